package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kdimtricp/movierank/internal/database"
	"github.com/kdimtricp/movierank/internal/logging"
	"github.com/kdimtricp/movierank/internal/models"
	"github.com/kdimtricp/movierank/internal/ranking"
	"github.com/kdimtricp/movierank/internal/rating"
	"github.com/kdimtricp/movierank/internal/search"
)

type CreateMovieRequest struct {
	UserName string `json:"user_name" validate:"required,max=50"`
	Title    string `json:"movie_title" validate:"required,max=200"`
	Category string `json:"initial_rating" validate:"required,oneof=thumbs_up okay thumbs_down"`
}

func (req *CreateMovieRequest) normalize() {
	req.UserName = strings.TrimSpace(req.UserName)
	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.TrimSpace(req.Category)
}

type UpdateScoreRequest struct {
	Score *int `json:"elo_rating" validate:"required,min=0,max=5000"`
}

type VerdictRequest struct {
	Verdict string `json:"verdict" validate:"required"`
}

// MovieResponse is a movie plus its display rating.
type MovieResponse struct {
	models.Movie
	Stars float64 `json:"stars"`
}

func newMovieResponse(m models.Movie) MovieResponse {
	return MovieResponse{Movie: m, Stars: m.Stars()}
}

// RankingResponse reports where a ranking stands after a request.
type RankingResponse struct {
	Movie  MovieResponse  `json:"movie"`
	Done   bool           `json:"done"`
	Prompt *rating.Prompt `json:"prompt,omitempty"`
}

func newRankingResponse(out *rating.Outcome) RankingResponse {
	return RankingResponse{
		Movie:  newMovieResponse(out.Movie),
		Done:   out.Done,
		Prompt: out.Prompt,
	}
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func (app *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := app.DB.Ping(ctx); err != nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeDatabase, "Database unavailable", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": app.DB.Type()})
}

func (app *App) InitDatabaseHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.DB.RunMigrations(r.Context(), app.MigrationsPath); err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeDatabase, "Failed to initialize database", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Database initialized successfully"})
}

func (app *App) DatabaseStatusHandler(w http.ResponseWriter, r *http.Request) {
	exists, err := app.DB.TableExists(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeDatabase, "Failed to check database", err)
		return
	}

	status := map[string]any{
		"database_type": app.DB.Type(),
		"table_exists":  exists,
		"total_movies":  0,
	}
	if exists {
		total, err := app.Movies.CountMovies(r.Context())
		if err != nil {
			respondError(w, r, http.StatusInternalServerError, CodeDatabase, "Failed to count movies", err)
			return
		}
		status["total_movies"] = total
	}
	respondJSON(w, http.StatusOK, status)
}

func (app *App) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := app.Movies.ListUsers(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeDatabase, "Failed to list users", err)
		return
	}
	respondList(w, users)
}

func (app *App) ListMoviesHandler(w http.ResponseWriter, r *http.Request) {
	user := app.userParam(r)

	var category models.Category
	if raw := r.URL.Query().Get("category"); raw != "" {
		c, err := models.ParseCategory(raw)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, CodeValidation, "category must be one of: thumbs_up okay thumbs_down", nil)
			return
		}
		category = c
	}

	movies, err := app.Movies.ListMovies(r.Context(), user, category)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeDatabase, "Failed to list movies", err)
		return
	}

	out := make([]MovieResponse, 0, len(movies))
	for _, m := range movies {
		out = append(out, newMovieResponse(m))
	}
	respondList(w, out)
}

func (app *App) CreateMovieHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateMovieRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error(), nil)
		return
	}
	req.normalize()
	if err := validateRequest(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error(), nil)
		return
	}

	out, err := app.Rating.AddMovie(r.Context(), req.UserName, req.Title, models.Category(req.Category))
	if err != nil {
		app.respondRatingError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, newRankingResponse(out))
}

func (app *App) UpdateMovieHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateScoreRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error(), nil)
		return
	}

	movie, err := app.Movies.UpdateScore(r.Context(), chi.URLParam(r, "id"), *req.Score)
	if err != nil {
		app.respondRatingError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newMovieResponse(*movie))
}

func (app *App) DeleteMovieHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := app.deleteMovie(r, id); err != nil {
		app.respondRatingError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (app *App) RerankMovieHandler(w http.ResponseWriter, r *http.Request) {
	out, err := app.Rating.RerankMovie(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		app.respondRatingError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newRankingResponse(out))
}

func (app *App) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	out, err := app.Rating.Current(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		app.respondRatingError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newRankingResponse(out))
}

func (app *App) SubmitVerdictHandler(w http.ResponseWriter, r *http.Request) {
	var req VerdictRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error(), nil)
		return
	}
	verdict, err := ranking.ParseVerdict(req.Verdict)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "verdict must be one of: a, b, equal", nil)
		return
	}

	out, err := app.Rating.SubmitVerdict(r.Context(), chi.URLParam(r, "sessionID"), verdict)
	if err != nil {
		app.respondRatingError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newRankingResponse(out))
}

func (app *App) AbandonSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := app.Rating.Abandon(r.Context(), id); err != nil {
		app.respondRatingError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"abandoned": id})
}

func (app *App) TitleSuggestHandler(w http.ResponseWriter, r *http.Request) {
	suggestions, err := app.Titles.Suggest(r.Context(), r.URL.Query().Get("q"))
	switch {
	case errors.Is(err, search.ErrEmptyQuery):
		respondError(w, r, http.StatusBadRequest, CodeValidation, "q is required", nil)
	case errors.Is(err, search.ErrNotConfigured):
		respondError(w, r, http.StatusServiceUnavailable, CodeLookupDisabled, "Title lookup is not configured", nil)
	case err != nil:
		respondError(w, r, http.StatusBadGateway, CodeLookupFailed, "Title lookup failed", err)
	default:
		respondList(w, suggestions)
	}
}

// deleteMovie removes a movie along with any ranking session it is the
// candidate of.
func (app *App) deleteMovie(r *http.Request, id string) error {
	if err := app.Movies.DeleteMovie(r.Context(), id); err != nil {
		return err
	}
	if err := app.Rating.ForgetMovie(r.Context(), id); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("movie_id", id).Msg("Failed to drop ranking session of deleted movie")
	}
	return nil
}

// respondRatingError maps domain errors onto HTTP statuses.
func (app *App) respondRatingError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classifyError(err)
	respondError(w, r, status, code, message, err)
}

func classifyError(err error) (status int, code, message string) {
	switch {
	// A failed final write wraps the store error, so it is matched first.
	case errors.Is(err, rating.ErrPersistFailed):
		return http.StatusBadGateway, CodePersistFailed, "Ranking finished but the score could not be saved"
	case errors.Is(err, database.ErrDuplicateMovie):
		return http.StatusConflict, CodeDuplicateMovie, "Movie already exists for this user"
	case errors.Is(err, database.ErrMovieNotFound):
		return http.StatusNotFound, CodeNotFound, "Movie not found"
	case errors.Is(err, database.ErrInvalidScore):
		return http.StatusBadRequest, CodeValidation, err.Error()
	case errors.Is(err, rating.ErrInvalidMovie), errors.Is(err, rating.ErrInvalidVerdict):
		return http.StatusBadRequest, CodeValidation, err.Error()
	case errors.Is(err, rating.ErrSessionNotFound):
		return http.StatusNotFound, CodeSessionNotFound, "Ranking session not found or expired"
	}
	return http.StatusInternalServerError, CodeInternal, "Internal server error"
}

func (app *App) userParam(r *http.Request) string {
	if user := strings.TrimSpace(r.URL.Query().Get("user")); user != "" {
		return user
	}
	return app.DefaultUser
}
