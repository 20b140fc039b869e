package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	MinScore = 0
	MaxScore = 5000
)

// Category is the coarse thumbs rating a movie is first placed into.
type Category string

const (
	CategoryThumbsUp   Category = "thumbs_up"
	CategoryOkay       Category = "okay"
	CategoryThumbsDown Category = "thumbs_down"
)

var initialScores = map[Category]int{
	CategoryThumbsDown: 2000,
	CategoryOkay:       3000,
	CategoryThumbsUp:   4000,
}

// Categories lists every category from best to worst.
func Categories() []Category {
	return []Category{CategoryThumbsUp, CategoryOkay, CategoryThumbsDown}
}

func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("invalid category %q", s)
	}
	return c, nil
}

func (c Category) Valid() bool {
	_, ok := initialScores[c]
	return ok
}

// InitialScore is the provisional score a new movie gets before ranking.
func (c Category) InitialScore() int {
	return initialScores[c]
}

func (c Category) Emoji() string {
	switch c {
	case CategoryThumbsUp:
		return "👍"
	case CategoryOkay:
		return "👌"
	case CategoryThumbsDown:
		return "👎"
	}
	return ""
}

type Movie struct {
	ID           string    `gorm:"primaryKey;column:id" json:"id"`
	UserName     string    `gorm:"column:user_name" json:"user_name"`
	Title        string    `gorm:"column:movie_title" json:"movie_title"`
	Score        int       `gorm:"column:elo_rating" json:"elo_rating"`
	Category     Category  `gorm:"column:initial_rating" json:"initial_rating"`
	RankPosition *int      `gorm:"column:rank_position" json:"rank_position,omitempty"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Movie) TableName() string {
	return "movie_ratings"
}

func NewMovie(userName, title string, category Category) *Movie {
	now := time.Now().UTC()
	return &Movie{
		ID:        uuid.New().String(),
		UserName:  userName,
		Title:     title,
		Score:     category.InitialScore(),
		Category:  category,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Stars maps a score linearly onto a 1.0 to 5.0 display rating.
func Stars(score int) float64 {
	return 1 + (float64(score)/MaxScore)*4
}

func (m Movie) Stars() float64 {
	return Stars(m.Score)
}

// ValidScore reports whether score lies in [MinScore, MaxScore].
func ValidScore(score int) bool {
	return score >= MinScore && score <= MaxScore
}
