package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kdimtricp/movierank/internal/models"
	"gorm.io/gorm"
)

var (
	ErrMovieNotFound  = errors.New("movie not found")
	ErrDuplicateMovie = errors.New("movie already exists for this user")
	ErrInvalidScore   = fmt.Errorf("score must be between %d and %d", models.MinScore, models.MaxScore)
)

type MovieRepository struct {
	db *DB
}

func NewMovieRepository(db *DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// CreateMovie inserts a movie and refreshes its owner's rank positions.
func (r *MovieRepository) CreateMovie(ctx context.Context, movie *models.Movie) error {
	return r.db.GORM().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.Movie{}).
			Where("user_name = ? AND movie_title = ?", movie.UserName, movie.Title).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check for duplicate movie: %w", err)
		}
		if count > 0 {
			return ErrDuplicateMovie
		}

		if err := tx.Create(movie).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateMovie
			}
			return fmt.Errorf("failed to insert movie: %w", err)
		}

		if err := updateRankPositions(tx, movie.UserName); err != nil {
			return err
		}
		return tx.First(movie, "id = ?", movie.ID).Error
	})
}

func (r *MovieRepository) GetMovie(ctx context.Context, id string) (*models.Movie, error) {
	return getMovie(r.db.GORM().WithContext(ctx), id)
}

func getMovie(tx *gorm.DB, id string) (*models.Movie, error) {
	var movie models.Movie
	if err := tx.First(&movie, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMovieNotFound
		}
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}
	return &movie, nil
}

// ListMovies returns a user's movies by score descending; ties keep
// insertion order. An empty category lists every category.
func (r *MovieRepository) ListMovies(ctx context.Context, userName string, category models.Category) ([]models.Movie, error) {
	q := r.db.GORM().WithContext(ctx).Where("user_name = ?", userName)
	if category != "" {
		q = q.Where("initial_rating = ?", category)
	}

	var movies []models.Movie
	err := q.Order("elo_rating DESC").Order("created_at ASC").Order("id ASC").Find(&movies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	return movies, nil
}

func (r *MovieRepository) ListUsers(ctx context.Context) ([]string, error) {
	var users []string
	err := r.db.GORM().WithContext(ctx).Model(&models.Movie{}).
		Distinct("user_name").Order("user_name").Pluck("user_name", &users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateScore stores a new score and refreshes the owner's rank positions.
func (r *MovieRepository) UpdateScore(ctx context.Context, id string, score int) (*models.Movie, error) {
	if !models.ValidScore(score) {
		return nil, ErrInvalidScore
	}

	var updated *models.Movie
	err := r.db.GORM().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		movie, err := getMovie(tx, id)
		if err != nil {
			return err
		}

		err = tx.Model(&models.Movie{}).Where("id = ?", id).
			UpdateColumns(map[string]any{"elo_rating": score, "updated_at": time.Now().UTC()}).Error
		if err != nil {
			return fmt.Errorf("failed to update movie score: %w", err)
		}

		if err := updateRankPositions(tx, movie.UserName); err != nil {
			return err
		}

		updated, err = getMovie(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *MovieRepository) DeleteMovie(ctx context.Context, id string) error {
	return r.db.GORM().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		movie, err := getMovie(tx, id)
		if err != nil {
			return err
		}

		if err := tx.Delete(&models.Movie{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete movie: %w", err)
		}

		return updateRankPositions(tx, movie.UserName)
	})
}

func (r *MovieRepository) CountMovies(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GORM().WithContext(ctx).Model(&models.Movie{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count movies: %w", err)
	}
	return count, nil
}

// CategoryCounts returns how many movies a user has in each category.
func (r *MovieRepository) CategoryCounts(ctx context.Context, userName string) (map[models.Category]int64, error) {
	var rows []struct {
		Category models.Category `gorm:"column:initial_rating"`
		Count    int64           `gorm:"column:n"`
	}
	err := r.db.GORM().WithContext(ctx).Model(&models.Movie{}).
		Select("initial_rating, COUNT(*) AS n").
		Where("user_name = ?", userName).
		Group("initial_rating").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}

	counts := make(map[models.Category]int64, len(rows))
	for _, row := range rows {
		counts[row.Category] = row.Count
	}
	return counts, nil
}

// updateRankPositions renumbers a user's whole list, 1 being the best score.
func updateRankPositions(tx *gorm.DB, userName string) error {
	var ids []string
	err := tx.Model(&models.Movie{}).
		Where("user_name = ?", userName).
		Order("elo_rating DESC").Order("created_at ASC").Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return fmt.Errorf("failed to load rank order: %w", err)
	}

	for i, id := range ids {
		err := tx.Model(&models.Movie{}).Where("id = ?", id).UpdateColumn("rank_position", i+1).Error
		if err != nil {
			return fmt.Errorf("failed to update rank positions: %w", err)
		}
	}
	return nil
}
