package models

import (
	"math"
	"testing"
)

func TestNewMovie(t *testing.T) {
	tests := []struct {
		category Category
		score    int
	}{
		{CategoryThumbsDown, 2000},
		{CategoryOkay, 3000},
		{CategoryThumbsUp, 4000},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			m := NewMovie("Jack", "Heat", tt.category)
			if m.ID == "" {
				t.Error("Expected generated ID")
			}
			if m.Score != tt.score {
				t.Errorf("Expected score %d, got %d", tt.score, m.Score)
			}
			if m.Category != tt.category {
				t.Errorf("Expected category %s, got %s", tt.category, m.Category)
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories() {
		got, err := ParseCategory(string(c))
		if err != nil || got != c {
			t.Errorf("Expected %s to parse, got %v (%v)", c, got, err)
		}
	}

	if _, err := ParseCategory("meh"); err == nil {
		t.Error("Expected error for unknown category")
	}
}

func TestStars(t *testing.T) {
	tests := []struct {
		score    int
		expected float64
	}{
		{0, 1.0},
		{2500, 3.0},
		{4000, 4.2},
		{5000, 5.0},
	}

	for _, tt := range tests {
		if got := Stars(tt.score); math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("Stars(%d): expected %.2f, got %.2f", tt.score, tt.expected, got)
		}
	}
}
