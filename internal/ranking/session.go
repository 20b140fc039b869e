// Package ranking places a newly rated movie inside its category with a
// binary-insertion search driven by pairwise verdicts.
//
// A Session is a plain value. Every transition returns the next Session and
// leaves the receiver untouched, so a caller can hold on to an older state
// (for example one that is still being rendered) without aliasing surprises:
//
//	s := ranking.Start(candidate, pool)
//	for !s.Terminated() {
//		c := s.Next()
//		s = s.Apply(ask(c.Candidate.Title, c.Opponent.Title))
//	}
//	persist(s.Candidate().ID, s.FinalScore())
package ranking

import (
	"cmp"
	"fmt"
	"math/bits"
	"slices"

	"github.com/kdimtricp/movierank/internal/models"
)

// Comparison is a single prompt: does Candidate beat Opponent?
type Comparison struct {
	Candidate models.Movie
	Opponent  models.Movie
	// Index is the opponent's position in the score-sorted pool.
	Index int
}

// Step is what the caller should do next: ask for a verdict on Comparison,
// or, once Done, persist FinalScore.
type Step struct {
	Done       bool
	Comparison Comparison
	FinalScore int
}

type Session struct {
	candidate   models.Movie
	pool        []models.Movie
	low         int
	high        int
	mid         int
	comparisons int
}

// Start begins ranking candidate against pool. The pool is copied and sorted
// by score descending; movies with equal scores keep their input order. The
// candidate must not be part of pool.
//
// An empty pool produces a session that is already terminated with the
// candidate's score unchanged.
func Start(candidate models.Movie, pool []models.Movie) Session {
	sorted := slices.Clone(pool)
	slices.SortStableFunc(sorted, func(a, b models.Movie) int {
		return cmp.Compare(b.Score, a.Score)
	})

	s := Session{
		candidate: candidate,
		pool:      sorted,
		low:       0,
		high:      len(sorted) - 1,
	}
	if s.Active() {
		s.mid = (s.low + s.high) / 2
	}
	return s
}

func (s Session) Active() bool {
	return s.low <= s.high
}

func (s Session) Terminated() bool {
	return s.low > s.high
}

// Next returns the pair to present to the user. It panics if the session
// has terminated.
func (s Session) Next() Comparison {
	if s.Terminated() {
		panic("ranking: Next called on a terminated session")
	}
	return Comparison{
		Candidate: s.candidate,
		Opponent:  s.pool[s.mid],
		Index:     s.mid,
	}
}

// Apply consumes a verdict on the current comparison and returns the next
// session state. It panics if the session has terminated or v is not a
// known verdict.
func (s Session) Apply(v Verdict) Session {
	if s.Terminated() {
		panic("ranking: Apply called on a terminated session")
	}

	opponent := s.pool[s.mid]
	s.candidate.Score = UpdateScore(v, opponent.Score)

	switch v {
	case CandidateWins:
		s.low = s.mid + 1
	case OpponentWins:
		s.high = s.mid - 1
	case Equal:
		// First equal match wins; stop narrowing.
		s.low = s.high + 1
	}
	s.comparisons++

	if s.Active() {
		s.mid = (s.low + s.high) / 2
	}
	return s
}

// FinalScore is the candidate's settled score. It panics while the session
// is still active.
func (s Session) FinalScore() int {
	if s.Active() {
		panic("ranking: FinalScore called on an active session")
	}
	return s.candidate.Score
}

func (s Session) Step() Step {
	if s.Terminated() {
		return Step{Done: true, FinalScore: s.candidate.Score}
	}
	return Step{Comparison: s.Next()}
}

func (s Session) Candidate() models.Movie {
	return s.candidate
}

// Pool returns a copy of the sorted pool.
func (s Session) Pool() []models.Movie {
	return slices.Clone(s.pool)
}

func (s Session) Bounds() (low, high, mid int) {
	return s.low, s.high, s.mid
}

// Comparisons is the number of verdicts applied so far.
func (s Session) Comparisons() int {
	return s.comparisons
}

// MaxRemaining is the worst-case number of verdicts still needed.
func (s Session) MaxRemaining() int {
	if s.Terminated() {
		return 0
	}
	return bits.Len(uint(s.high - s.low + 1))
}

// Snapshot is the serialisable form of a Session, used by session stores
// that live outside the process.
type Snapshot struct {
	Candidate   models.Movie   `json:"candidate"`
	Pool        []models.Movie `json:"pool"`
	Low         int            `json:"low"`
	High        int            `json:"high"`
	Mid         int            `json:"mid"`
	Comparisons int            `json:"comparisons"`
}

func (s Session) Snapshot() Snapshot {
	return Snapshot{
		Candidate:   s.candidate,
		Pool:        slices.Clone(s.pool),
		Low:         s.low,
		High:        s.high,
		Mid:         s.mid,
		Comparisons: s.comparisons,
	}
}

// Restore rebuilds an active Session from a snapshot. Terminated snapshots
// and bounds that do not describe a reachable state are rejected.
func Restore(snap Snapshot) (Session, error) {
	s := Session{
		candidate:   snap.Candidate,
		pool:        slices.Clone(snap.Pool),
		low:         snap.Low,
		high:        snap.High,
		mid:         snap.Mid,
		comparisons: snap.Comparisons,
	}
	if !s.Active() {
		return Session{}, fmt.Errorf("snapshot bounds [%d, %d] describe a terminated session", s.low, s.high)
	}
	if s.low < 0 || s.high >= len(s.pool) {
		return Session{}, fmt.Errorf("bounds [%d, %d] outside pool of %d", s.low, s.high, len(s.pool))
	}
	if s.mid != (s.low+s.high)/2 {
		return Session{}, fmt.Errorf("probe %d is not the midpoint of [%d, %d]", s.mid, s.low, s.high)
	}
	if !models.ValidScore(s.candidate.Score) {
		return Session{}, fmt.Errorf("candidate score %d out of range", s.candidate.Score)
	}
	return s, nil
}
