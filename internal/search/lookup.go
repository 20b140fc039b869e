// Package search suggests canonical movie titles for the add-movie form,
// asking TMDb first and falling back to a Google custom search engine.
package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kdimtricp/movierank/internal/logging"
	"github.com/kdimtricp/movierank/internal/metrics"
	gobreaker "github.com/sony/gobreaker/v2"
)

var (
	ErrNotConfigured = errors.New("title lookup is not configured")
	ErrEmptyQuery    = errors.New("query must not be empty")
)

const maxSuggestions = 10

type Suggestion struct {
	Title     string `json:"title"`
	Year      string `json:"year,omitempty"`
	Overview  string `json:"overview,omitempty"`
	PosterURL string `json:"poster_url,omitempty"`
	Source    string `json:"source"`
}

type provider struct {
	name    string
	search  func(ctx context.Context, query string) ([]Suggestion, error)
	breaker *gobreaker.CircuitBreaker[[]Suggestion]
}

// TitleLookup queries each configured provider in turn. Every provider sits
// behind its own circuit breaker so a failing upstream is skipped quickly.
type TitleLookup struct {
	providers []provider
}

// NewTitleLookup accepts nil for any provider that is not configured.
func NewTitleLookup(tmdb *TMDbClient, google *GoogleSearchClient) *TitleLookup {
	l := &TitleLookup{}
	if tmdb != nil {
		l.providers = append(l.providers, newProvider("tmdb", func(ctx context.Context, q string) ([]Suggestion, error) {
			movies, err := tmdb.SearchMovies(ctx, q)
			if err != nil {
				return nil, err
			}
			out := make([]Suggestion, 0, len(movies))
			for _, m := range movies {
				out = append(out, Suggestion{
					Title:     m.Title,
					Year:      m.Year(),
					Overview:  m.Overview,
					PosterURL: GetImageURL(m.PosterPath, "w185"),
					Source:    "tmdb",
				})
			}
			return out, nil
		}))
	}
	if google != nil {
		l.providers = append(l.providers, newProvider("google", func(ctx context.Context, q string) ([]Suggestion, error) {
			results, err := google.WebSearch(ctx, q+" film")
			if err != nil {
				return nil, err
			}
			out := make([]Suggestion, 0, len(results))
			seen := make(map[string]bool)
			for _, r := range results {
				title, year := parseWebTitle(r.Title)
				key := strings.ToLower(title + "|" + year)
				if title == "" || seen[key] {
					continue
				}
				seen[key] = true
				out = append(out, Suggestion{
					Title:    title,
					Year:     year,
					Overview: r.Snippet,
					Source:   "google",
				})
			}
			return out, nil
		}))
	}
	return l
}

func newProvider(name string, search func(context.Context, string) ([]Suggestion, error)) provider {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]Suggestion](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Title lookup circuit breaker state change")
			metrics.RecordBreakerTransition(name, from.String(), to.String(), float64(to))
		},
	})

	return provider{name: name, search: search, breaker: cb}
}

func (l *TitleLookup) Enabled() bool {
	return l != nil && len(l.providers) > 0
}

// Suggest returns up to ten titles matching query from the first provider
// that answers. A provider that returns nothing hands over to the next one.
func (l *TitleLookup) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if !l.Enabled() {
		return nil, ErrNotConfigured
	}

	var lastErr error
	for _, p := range l.providers {
		start := time.Now()
		results, err := p.breaker.Execute(func() ([]Suggestion, error) {
			return p.search(ctx, query)
		})
		metrics.RecordTitleLookup(p.name, time.Since(start), err)

		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("provider", p.name).Msg("Title lookup failed")
			lastErr = err
			continue
		}
		if len(results) == 0 {
			continue
		}
		if len(results) > maxSuggestions {
			results = results[:maxSuggestions]
		}
		return results, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return []Suggestion{}, nil
}
