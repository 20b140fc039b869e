package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kdimtricp/movierank/internal/api"
	"github.com/kdimtricp/movierank/internal/config"
	"github.com/kdimtricp/movierank/internal/database"
	"github.com/kdimtricp/movierank/internal/logging"
	"github.com/kdimtricp/movierank/internal/rating"
	"github.com/kdimtricp/movierank/internal/search"
	"github.com/kdimtricp/movierank/internal/supervisor"
	"github.com/redis/go-redis/v9"
)

// sessionStore is what both the rating service and the janitor need.
type sessionStore interface {
	rating.SessionStore
	supervisor.Sweeper
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn().Err(err).Msg("Failed to load .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(database.Config{
		Type:       cfg.Database.Type,
		Host:       cfg.Database.Host,
		Port:       cfg.Database.Port,
		User:       cfg.Database.User,
		Password:   cfg.Database.Password,
		Name:       cfg.Database.Name,
		URL:        cfg.Database.URL,
		SQLitePath: cfg.Database.SQLitePath,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	logging.Info().Str("path", cfg.Database.MigrationsPath).Msg("Running database migrations")
	if err := db.RunMigrations(ctx, cfg.Database.MigrationsPath); err != nil {
		logging.Fatal().Err(err).Msg("Failed to run migrations")
	}

	sessions, err := newSessionStore(ctx, cfg.Sessions)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize session store")
	}

	titles, err := newTitleLookup(ctx, cfg.Search)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize title lookup")
	}
	if !titles.Enabled() {
		logging.Info().Msg("Title lookup not configured. Set TMDB_API_KEY or GOOGLE_SEARCH_API_KEY to enable it")
	}

	templates, err := api.LoadTemplates(cfg.Server.TemplateDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load templates")
	}

	movies := database.NewMovieRepository(db)
	app := &api.App{
		DB:             db,
		Movies:         movies,
		Rating:         rating.NewService(movies, sessions),
		Titles:         titles,
		Templates:      templates,
		DefaultUser:    cfg.Server.DefaultUser,
		MigrationsPath: cfg.Database.MigrationsPath,
	}

	router := api.NewRouter(app, api.RouterConfig{
		StaticDir:         cfg.Server.StaticDir,
		CORSOrigins:       cfg.Security.CORSOrigins,
		RateLimitRequests: cfg.Security.RateLimitRequests,
		RateLimitWindow:   cfg.Security.RateLimitWindow,
		RateLimitDisabled: cfg.Security.RateLimitDisabled,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree := supervisor.NewTree(supervisor.DefaultTreeConfig())
	tree.AddAPIService(supervisor.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	tree.AddMaintenanceService(supervisor.NewJanitorService(sessions, cfg.Sessions.SweepInterval))

	logging.Info().
		Str("addr", server.Addr).
		Str("database", db.Type()).
		Str("sessions", cfg.Sessions.Store).
		Str("default_user", cfg.Server.DefaultUser).
		Msg("Server starting")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor stopped with error")
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}
	logging.Info().Msg("Server stopped")
}

func newSessionStore(ctx context.Context, cfg config.SessionsConfig) (sessionStore, error) {
	if cfg.Store != "redis" {
		return rating.NewMemoryStore(cfg.TTL), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	store := rating.NewRedisStore(client, cfg.TTL)
	if err := store.Ping(ctx); err != nil {
		client.Close()
		return nil, err
	}
	logging.Info().Str("addr", cfg.RedisAddr).Msg("Using redis session store")
	return store, nil
}

func newTitleLookup(ctx context.Context, cfg config.SearchConfig) (*search.TitleLookup, error) {
	var tmdb *search.TMDbClient
	if cfg.TMDbAPIKey != "" {
		tmdb = search.NewTMDbClient(cfg.TMDbAPIKey, cfg.TMDbBaseURL, cfg.Timeout)
	}

	var google *search.GoogleSearchClient
	if cfg.GoogleSearchAPIKey != "" {
		client, err := search.NewGoogleSearchClient(ctx, cfg.GoogleSearchAPIKey, cfg.GoogleCSEID)
		if err != nil {
			return nil, err
		}
		google = client
	}

	return search.NewTitleLookup(tmdb, google), nil
}
