package api

import (
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/kdimtricp/movierank/internal/database"
	"github.com/kdimtricp/movierank/internal/models"
	"github.com/kdimtricp/movierank/internal/rating"
	"github.com/kdimtricp/movierank/internal/search"
)

// App holds everything the handlers need.
type App struct {
	DB             *database.DB
	Movies         *database.MovieRepository
	Rating         *rating.Service
	Titles         *search.TitleLookup
	Templates      *template.Template
	DefaultUser    string
	MigrationsPath string
}

var templateFuncs = template.FuncMap{
	"stars": func(score int) string {
		return fmt.Sprintf("%.1f", models.Stars(score))
	},
	"categoryLabel": categoryLabel,
	"add":           func(a, b int) int { return a + b },
}

func categoryLabel(c models.Category) string {
	switch c {
	case models.CategoryThumbsUp:
		return "Loved it"
	case models.CategoryOkay:
		return "It was okay"
	case models.CategoryThumbsDown:
		return "Didn't like it"
	}
	return string(c)
}

// LoadTemplates parses the page templates in dir and its partials/
// subdirectory.
func LoadTemplates(dir string) (*template.Template, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseGlob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	tmpl, err = tmpl.ParseGlob(filepath.Join(dir, "partials", "*.html"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse partial templates: %w", err)
	}
	return tmpl, nil
}
