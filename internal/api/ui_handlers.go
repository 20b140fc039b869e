package api

import (
	"bytes"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/kdimtricp/movierank/internal/logging"
	"github.com/kdimtricp/movierank/internal/models"
	"github.com/kdimtricp/movierank/internal/ranking"
	"github.com/kdimtricp/movierank/internal/rating"
)

// moviesChangedEvent tells the page to reload its movie list.
const moviesChangedEvent = "moviesChanged"

type movieGroup struct {
	Category models.Category
	Movies   []models.Movie
}

// MovieList is one user's movies grouped by category, best category first.
type MovieList struct {
	User   string
	Groups []movieGroup
	Total  int
}

type pageData struct {
	MovieList
	Users       []string
	Categories  []models.Category
	TitleLookup bool
}

type alertData struct {
	Kind    string
	Message string
}

func (app *App) HomeHandler(w http.ResponseWriter, r *http.Request) {
	user := app.userParam(r)

	users, err := app.Movies.ListUsers(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to list users")
		http.Error(w, "Error loading users", http.StatusInternalServerError)
		return
	}
	if !slices.Contains(users, user) {
		users = append([]string{user}, users...)
	}

	list, err := app.loadList(r, user)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to list movies")
		http.Error(w, "Error loading movies", http.StatusInternalServerError)
		return
	}

	app.render(w, r, http.StatusOK, "index.html", pageData{
		MovieList:   list,
		Users:       users,
		Categories:  models.Categories(),
		TitleLookup: app.Titles.Enabled(),
	})
}

func (app *App) MovieListPartialHandler(w http.ResponseWriter, r *http.Request) {
	list, err := app.loadList(r, app.userParam(r))
	if err != nil {
		app.renderFailure(w, r, err)
		return
	}
	app.render(w, r, http.StatusOK, "movie_list", list)
}

func (app *App) AddMovieFormHandler(w http.ResponseWriter, r *http.Request) {
	req := CreateMovieRequest{
		UserName: r.FormValue("user_name"),
		Title:    r.FormValue("movie_title"),
		Category: r.FormValue("initial_rating"),
	}
	req.normalize()
	if err := validateRequest(&req); err != nil {
		app.renderAlert(w, r, http.StatusBadRequest, "error", err.Error())
		return
	}

	out, err := app.Rating.AddMovie(r.Context(), req.UserName, req.Title, models.Category(req.Category))
	if err != nil {
		app.renderFailure(w, r, err)
		return
	}
	app.renderRanking(w, r, out)
}

func (app *App) VerdictFormHandler(w http.ResponseWriter, r *http.Request) {
	verdict, err := ranking.ParseVerdict(r.FormValue("verdict"))
	if err != nil {
		app.renderAlert(w, r, http.StatusBadRequest, "error", "Pick A, B or Equal")
		return
	}

	out, err := app.Rating.SubmitVerdict(r.Context(), chi.URLParam(r, "sessionID"), verdict)
	if err != nil {
		app.renderFailure(w, r, err)
		return
	}
	app.renderRanking(w, r, out)
}

func (app *App) AbandonFormHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Rating.Abandon(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		app.renderFailure(w, r, err)
		return
	}
	w.Header().Set("HX-Trigger", moviesChangedEvent)
	app.renderAlert(w, r, http.StatusOK, "info", "Ranking cancelled. The movie keeps its starting score.")
}

func (app *App) RerankFormHandler(w http.ResponseWriter, r *http.Request) {
	out, err := app.Rating.RerankMovie(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		app.renderFailure(w, r, err)
		return
	}
	app.renderRanking(w, r, out)
}

func (app *App) DeleteMovieFormHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.deleteMovie(r, chi.URLParam(r, "id")); err != nil {
		app.renderFailure(w, r, err)
		return
	}
	w.Header().Set("HX-Trigger", moviesChangedEvent)
	w.WriteHeader(http.StatusOK)
}

func (app *App) renderRanking(w http.ResponseWriter, r *http.Request, out *rating.Outcome) {
	if out.Done {
		w.Header().Set("HX-Trigger", moviesChangedEvent)
	}
	app.render(w, r, http.StatusOK, "ranking", newRankingResponse(out))
}

func (app *App) loadList(r *http.Request, user string) (MovieList, error) {
	movies, err := app.Movies.ListMovies(r.Context(), user, "")
	if err != nil {
		return MovieList{}, err
	}

	groups := make([]movieGroup, 0, len(models.Categories()))
	for _, c := range models.Categories() {
		group := movieGroup{Category: c}
		for _, m := range movies {
			if m.Category == c {
				group.Movies = append(group.Movies, m)
			}
		}
		groups = append(groups, group)
	}
	return MovieList{User: user, Groups: groups, Total: len(movies)}, nil
}

func (app *App) renderFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classifyError(err)
	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).Str("code", code).Msg("UI request failed")
	}
	app.renderAlert(w, r, status, "error", message)
}

func (app *App) renderAlert(w http.ResponseWriter, r *http.Request, status int, kind, message string) {
	app.render(w, r, status, "alert", alertData{Kind: kind, Message: message})
}

// render executes a template into a buffer so a failing template never
// leaves a half-written response.
func (app *App) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := app.Templates.ExecuteTemplate(&buf, name, data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "Error rendering template", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
