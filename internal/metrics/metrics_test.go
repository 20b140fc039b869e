package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/movies", "200"))

	RecordAPIRequest("GET", "/api/movies", "200", 15*time.Millisecond)

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/movies", "200"))
	if after != before+1 {
		t.Errorf("Expected counter to increase by 1, got %v -> %v", before, after)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)

	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("Expected %v active requests, got %v", before+1, got)
	}

	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("Expected %v active requests, got %v", before, got)
	}
}

func TestRecordSessionFinished(t *testing.T) {
	outcomes := []string{OutcomeCompleted, OutcomeEmptyPool, OutcomeAbandoned, OutcomeExpired, OutcomePersistFailed}

	for _, outcome := range outcomes {
		t.Run(outcome, func(t *testing.T) {
			before := testutil.ToFloat64(RankingSessionsFinished.WithLabelValues(outcome))

			RecordSessionFinished(outcome, 3)

			if got := testutil.ToFloat64(RankingSessionsFinished.WithLabelValues(outcome)); got != before+1 {
				t.Errorf("Expected finished counter %v, got %v", before+1, got)
			}
		})
	}
}

func TestRecordTitleLookup(t *testing.T) {
	success := testutil.ToFloat64(TitleLookups.WithLabelValues("tmdb", "success"))
	failure := testutil.ToFloat64(TitleLookups.WithLabelValues("tmdb", "error"))

	RecordTitleLookup("tmdb", time.Millisecond, nil)
	RecordTitleLookup("tmdb", time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(TitleLookups.WithLabelValues("tmdb", "success")); got != success+1 {
		t.Errorf("Expected %v successes, got %v", success+1, got)
	}
	if got := testutil.ToFloat64(TitleLookups.WithLabelValues("tmdb", "error")); got != failure+1 {
		t.Errorf("Expected %v errors, got %v", failure+1, got)
	}
}

func TestMetricGathering(t *testing.T) {
	RecordVerdict("candidate")
	SetActiveSessions(2)

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	for _, p := range problems {
		t.Errorf("Metric lint problem: %s: %s", p.Metric, p.Text)
	}
}
