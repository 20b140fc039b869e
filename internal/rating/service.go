// Package rating runs ranking sessions on behalf of users: it creates the
// candidate movie, keeps the in-progress session in a SessionStore between
// requests and persists the final score once the search terminates.
package rating

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/kdimtricp/movierank/internal/logging"
	"github.com/kdimtricp/movierank/internal/metrics"
	"github.com/kdimtricp/movierank/internal/models"
	"github.com/kdimtricp/movierank/internal/ranking"
)

var (
	ErrSessionNotFound = errors.New("ranking session not found")
	ErrPersistFailed   = errors.New("failed to persist final score")
	ErrInvalidVerdict  = errors.New("invalid verdict")
	ErrInvalidMovie    = errors.New("invalid movie")
)

// sessionNamespace derives session ids from movie ids, which keeps at most
// one session per candidate.
var sessionNamespace = uuid.MustParse("8f1d6c2e-3b4a-5c6d-9e8f-0a1b2c3d4e5f")

type MovieStore interface {
	CreateMovie(ctx context.Context, movie *models.Movie) error
	GetMovie(ctx context.Context, id string) (*models.Movie, error)
	ListMovies(ctx context.Context, userName string, category models.Category) ([]models.Movie, error)
	UpdateScore(ctx context.Context, id string, score int) (*models.Movie, error)
}

type SessionStore interface {
	Save(ctx context.Context, id string, session ranking.Session) error
	Load(ctx context.Context, id string) (ranking.Session, bool, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// Prompt asks the user whether Candidate beats Opponent.
type Prompt struct {
	SessionID    string       `json:"session_id"`
	Candidate    models.Movie `json:"candidate"`
	Opponent     models.Movie `json:"opponent"`
	Answered     int          `json:"answered"`
	MaxRemaining int          `json:"max_remaining"`
}

// Outcome is the result of a ranking step. Movie carries the candidate's
// current score, which is the stored final score once Done is true.
type Outcome struct {
	Movie  models.Movie `json:"movie"`
	Done   bool         `json:"done"`
	Prompt *Prompt      `json:"prompt,omitempty"`
}

type Service struct {
	movies   MovieStore
	sessions SessionStore
	// mu serialises load, apply and save so two verdicts for the same
	// session cannot both apply to the same state.
	mu sync.Mutex
}

func NewService(movies MovieStore, sessions SessionStore) *Service {
	return &Service{
		movies:   movies,
		sessions: sessions,
	}
}

// AddMovie stores a new movie at its category's provisional score and
// starts ranking it against the user's other movies in that category.
func (s *Service) AddMovie(ctx context.Context, userName, title string, category models.Category) (*Outcome, error) {
	userName = strings.TrimSpace(userName)
	title = strings.TrimSpace(title)
	if userName == "" || title == "" {
		return nil, fmt.Errorf("%w: user and title are required", ErrInvalidMovie)
	}
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidMovie, category)
	}

	movie := models.NewMovie(userName, title, category)
	if err := s.movies.CreateMovie(ctx, movie); err != nil {
		return nil, fmt.Errorf("failed to create movie: %w", err)
	}

	logging.Ctx(ctx).Info().
		Str("movie_id", movie.ID).
		Str("user", userName).
		Str("category", string(category)).
		Msg("Movie added")

	return s.begin(ctx, *movie)
}

// RerankMovie places an existing movie again against the rest of its
// category. Any session already running for that movie is replaced.
func (s *Service) RerankMovie(ctx context.Context, movieID string) (*Outcome, error) {
	movie, err := s.movies.GetMovie(ctx, movieID)
	if err != nil {
		return nil, err
	}
	return s.begin(ctx, *movie)
}

func (s *Service) begin(ctx context.Context, candidate models.Movie) (*Outcome, error) {
	movies, err := s.movies.ListMovies(ctx, candidate.UserName, candidate.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to load ranking pool: %w", err)
	}
	pool := make([]models.Movie, 0, len(movies))
	for _, m := range movies {
		if m.ID != candidate.ID {
			pool = append(pool, m)
		}
	}

	session := ranking.Start(candidate, pool)
	metrics.RecordSessionStarted()

	id := sessionID(candidate.ID)
	if session.Terminated() {
		// Nothing to compare against; the stored score is already final.
		// A rerank may still have an older session for this movie.
		if err := s.ForgetMovie(ctx, candidate.ID); err != nil {
			return nil, err
		}
		metrics.RecordSessionFinished(metrics.OutcomeEmptyPool, 0)
		return &Outcome{Movie: session.Candidate(), Done: true}, nil
	}

	s.mu.Lock()
	err = s.sessions.Save(ctx, id, session)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to save ranking session: %w", err)
	}
	s.refreshActiveGauge(ctx)

	logging.Ctx(ctx).Debug().
		Str("session_id", id).
		Int("pool_size", len(pool)).
		Msg("Ranking session started")

	return pending(id, session), nil
}

// Current returns the comparison a session is waiting on.
func (s *Service) Current(ctx context.Context, id string) (*Outcome, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return pending(id, session), nil
}

// SubmitVerdict applies a verdict to the session's current comparison. When
// that ends the search the final score is written and the session removed.
func (s *Service) SubmitVerdict(ctx context.Context, id string, verdict ranking.Verdict) (*Outcome, error) {
	if !verdict.Valid() {
		return nil, ErrInvalidVerdict
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	next := session.Apply(verdict)
	metrics.RecordVerdict(verdict.String())

	if next.Active() {
		if err := s.sessions.Save(ctx, id, next); err != nil {
			return nil, fmt.Errorf("failed to save ranking session: %w", err)
		}
		return pending(id, next), nil
	}

	if err := s.sessions.Delete(ctx, id); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("session_id", id).Msg("Failed to delete finished session")
	}
	defer s.refreshActiveGauge(ctx)

	candidate := next.Candidate()
	updated, err := s.movies.UpdateScore(ctx, candidate.ID, next.FinalScore())
	if err != nil {
		metrics.RecordSessionFinished(metrics.OutcomePersistFailed, next.Comparisons())
		logging.Ctx(ctx).Error().Err(err).
			Str("session_id", id).
			Str("movie_id", candidate.ID).
			Int("score", next.FinalScore()).
			Msg("Failed to persist final score")
		return nil, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	metrics.RecordSessionFinished(metrics.OutcomeCompleted, next.Comparisons())
	logging.Ctx(ctx).Info().
		Str("movie_id", updated.ID).
		Int("score", updated.Score).
		Int("comparisons", next.Comparisons()).
		Msg("Movie ranked")

	return &Outcome{Movie: *updated, Done: true}, nil
}

// Abandon drops a session. The movie keeps whatever score is stored.
func (s *Service) Abandon(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete ranking session: %w", err)
	}
	metrics.RecordSessionFinished(metrics.OutcomeAbandoned, session.Comparisons())
	s.refreshActiveGauge(ctx)
	return nil
}

// ForgetMovie drops the ranking session for movieID, if there is one. It is
// called when the movie itself goes away.
func (s *Service) ForgetMovie(ctx context.Context, movieID string) error {
	id := sessionID(movieID)

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok, err := s.sessions.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load ranking session: %w", err)
	}
	if !ok {
		return nil
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete ranking session: %w", err)
	}
	metrics.RecordSessionFinished(metrics.OutcomeAbandoned, session.Comparisons())
	s.refreshActiveGauge(ctx)

	logging.Ctx(ctx).Debug().Str("session_id", id).Str("movie_id", movieID).Msg("Ranking session dropped")
	return nil
}

func (s *Service) load(ctx context.Context, id string) (ranking.Session, error) {
	session, ok, err := s.sessions.Load(ctx, id)
	if err != nil {
		return ranking.Session{}, fmt.Errorf("failed to load ranking session: %w", err)
	}
	if !ok {
		return ranking.Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (s *Service) refreshActiveGauge(ctx context.Context) {
	n, err := s.sessions.Count(ctx)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to count active sessions")
		return
	}
	metrics.SetActiveSessions(n)
}

func sessionID(movieID string) string {
	return uuid.NewSHA1(sessionNamespace, []byte(movieID)).String()
}

func pending(id string, session ranking.Session) *Outcome {
	c := session.Next()
	return &Outcome{
		Movie: c.Candidate,
		Prompt: &Prompt{
			SessionID:    id,
			Candidate:    c.Candidate,
			Opponent:     c.Opponent,
			Answered:     session.Comparisons(),
			MaxRemaining: session.MaxRemaining(),
		},
	}
}
