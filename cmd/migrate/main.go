package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kdimtricp/movierank/internal/config"
	"github.com/kdimtricp/movierank/internal/database"
	"github.com/kdimtricp/movierank/internal/logging"
)

func main() {
	var (
		migrationsPath = flag.String("migrations", "", "Path to migrations directory (defaults to MIGRATIONS_PATH or ./migrations)")
		status         = flag.Bool("status", false, "Show migration status only")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: "console"})

	if *migrationsPath == "" {
		*migrationsPath = cfg.Database.MigrationsPath
	}

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
		logging.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	ctx := context.Background()
	if !*status {
		logging.Info().Str("path", *migrationsPath).Str("db", db.Type()).Msg("Running migrations")
		if err := db.RunMigrations(ctx, *migrationsPath); err != nil {
			logging.Fatal().Err(err).Msg("Failed to run migrations")
		}
		fmt.Println("Migrations completed successfully!")
		return
	}

	if db.Type() != "postgres" {
		fmt.Println("SQLite creates its schema on startup; there are no tracked migrations.")
		return
	}

	migrations, applied, err := database.NewMigrator(db.Conn(), db.Type()).Status(ctx, *migrationsPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to read migration status")
	}

	fmt.Println("Migration Status:")
	fmt.Println("=================")
	for _, m := range migrations {
		state := "pending"
		if applied[m.Version] {
			state = "applied"
		}
		fmt.Printf("%s - %s [%s]\n", m.Version, m.Name, state)
	}
}
