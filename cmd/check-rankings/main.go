package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kdimtricp/movierank/internal/config"
	"github.com/kdimtricp/movierank/internal/database"
	"github.com/kdimtricp/movierank/internal/logging"
	"github.com/kdimtricp/movierank/internal/models"
)

func main() {
	top := flag.Int("top", 3, "Movies to show per category")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{Level: "warn", Format: "console"})

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
		logging.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	fmt.Println("🔍 Checking Movie Rankings")
	fmt.Println("==========================")

	if cfg.TitleLookupEnabled() {
		fmt.Println("✅ Title lookup configured:")
		fmt.Printf("   - TMDb: %s\n", enabled(cfg.Search.TMDbAPIKey != ""))
		fmt.Printf("   - Google Custom Search: %s\n", enabled(cfg.Search.GoogleSearchAPIKey != ""))
	} else {
		fmt.Println("⚠️  Title lookup not configured (set TMDB_API_KEY or GOOGLE_SEARCH_API_KEY)")
	}
	fmt.Println()

	ctx := context.Background()
	exists, err := db.TableExists(ctx)
	if err != nil || !exists {
		fmt.Println("❌ No movie_ratings table found. Run the migrate command first.")
		os.Exit(1)
	}

	repo := database.NewMovieRepository(db)
	total, err := repo.CountMovies(ctx)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to count movies")
	}
	fmt.Printf("🎬 Total movies: %d\n", total)

	users, err := repo.ListUsers(ctx)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to list users")
	}
	if len(users) == 0 {
		fmt.Println("No movies ranked yet. Add one in the web UI!")
		return
	}

	for _, user := range users {
		counts, err := repo.CategoryCounts(ctx, user)
		if err != nil {
			logging.Error().Err(err).Str("user", user).Msg("Failed to count categories")
			continue
		}

		fmt.Printf("\n👤 %s\n", user)
		for _, c := range models.Categories() {
			fmt.Printf("   %s %-12s %d\n", c.Emoji(), c, counts[c])

			movies, err := repo.ListMovies(ctx, user, c)
			if err != nil {
				logging.Error().Err(err).Str("user", user).Msg("Failed to list movies")
				continue
			}
			for i, m := range movies {
				if i >= *top {
					fmt.Printf("      ... %d more\n", len(movies)-*top)
					break
				}
				rank := "-"
				if m.RankPosition != nil {
					rank = fmt.Sprintf("#%d", *m.RankPosition)
				}
				fmt.Printf("      %-4s %-40.40s ★ %.1f (%d)\n", rank, m.Title, m.Stars(), m.Score)
			}
		}
	}
}

func enabled(on bool) string {
	if on {
		return "Enabled"
	}
	return "Disabled"
}
