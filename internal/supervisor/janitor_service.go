package supervisor

import (
	"context"
	"time"

	"github.com/kdimtricp/movierank/internal/logging"
	"github.com/kdimtricp/movierank/internal/metrics"
)

// Sweeper removes expired ranking sessions.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
}

// JanitorService sweeps expired sessions every interval.
type JanitorService struct {
	store    Sweeper
	interval time.Duration
}

func NewJanitorService(store Sweeper, interval time.Duration) *JanitorService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &JanitorService{store: store, interval: interval}
}

func (j *JanitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *JanitorService) sweep(ctx context.Context) {
	removed, err := j.store.Sweep(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Session sweep failed")
		return
	}
	for range removed {
		metrics.RecordSessionFinished(metrics.OutcomeExpired, 0)
	}
	if removed > 0 {
		logging.Debug().Int("removed", removed).Msg("Expired ranking sessions swept")
	}

	if n, err := j.store.Count(ctx); err == nil {
		metrics.SetActiveSessions(n)
	}
}

func (j *JanitorService) String() string {
	return "session-janitor"
}
