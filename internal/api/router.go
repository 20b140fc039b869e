package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	StaticDir         string
	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
}

func NewRouter(app *App, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	limiter := rateLimit(cfg)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(cfg.CORSOrigins))

	r.Get("/ping", PingHandler)
	r.Get("/healthz", app.HealthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/init-movie-database", app.InitDatabaseHandler)
	r.Get("/database-status", app.DatabaseStatusHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/users", app.ListUsersHandler)
		r.Get("/movies", app.ListMoviesHandler)
		r.Get("/titles", app.TitleSuggestHandler)
		r.Get("/sessions/{sessionID}", app.GetSessionHandler)

		r.Group(func(r chi.Router) {
			r.Use(limiter)
			r.Post("/movies", app.CreateMovieHandler)
			r.Put("/movies/{id}", app.UpdateMovieHandler)
			r.Delete("/movies/{id}", app.DeleteMovieHandler)
			r.Post("/movies/{id}/rerank", app.RerankMovieHandler)
			r.Post("/sessions/{sessionID}/verdict", app.SubmitVerdictHandler)
			r.Delete("/sessions/{sessionID}", app.AbandonSessionHandler)
		})
	})

	r.Get("/", app.HomeHandler)
	r.Get("/partials/movies", app.MovieListPartialHandler)
	r.Group(func(r chi.Router) {
		r.Use(limiter)
		r.Post("/ui/movies", app.AddMovieFormHandler)
		r.Post("/ui/movies/{id}/rerank", app.RerankFormHandler)
		r.Delete("/ui/movies/{id}", app.DeleteMovieFormHandler)
		r.Post("/ui/sessions/{sessionID}/verdict", app.VerdictFormHandler)
		r.Delete("/ui/sessions/{sessionID}", app.AbandonFormHandler)
	})

	if cfg.StaticDir != "" {
		fileServer := http.FileServer(http.Dir(cfg.StaticDir))
		r.Handle("/static/*", http.StripPrefix("/static", fileServer))
	}

	return r
}
