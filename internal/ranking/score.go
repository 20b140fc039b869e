package ranking

import (
	"fmt"
	"strings"

	"github.com/kdimtricp/movierank/internal/models"
)

// ScoreStep is the fixed nudge applied relative to the probed opponent.
const ScoreStep = 50

// Verdict is the user's judgment between the candidate and the probed movie.
type Verdict int

const (
	CandidateWins Verdict = iota + 1
	OpponentWins
	Equal
)

func (v Verdict) String() string {
	switch v {
	case CandidateWins:
		return "candidate"
	case OpponentWins:
		return "opponent"
	case Equal:
		return "equal"
	}
	return fmt.Sprintf("Verdict(%d)", int(v))
}

func (v Verdict) Valid() bool {
	return v >= CandidateWins && v <= Equal
}

// ParseVerdict accepts the button values used by the UI ("a", "b",
// "equal") as well as the long forms returned by String.
func ParseVerdict(s string) (Verdict, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a", "candidate":
		return CandidateWins, nil
	case "b", "opponent":
		return OpponentWins, nil
	case "equal", "=":
		return Equal, nil
	}
	return 0, fmt.Errorf("invalid verdict %q", s)
}

func (v Verdict) delta() int {
	switch v {
	case CandidateWins:
		return ScoreStep
	case OpponentWins:
		return -ScoreStep
	case Equal:
		return 0
	}
	panic(fmt.Sprintf("ranking: unknown verdict %d", int(v)))
}

// Clamp bounds score to [models.MinScore, models.MaxScore].
func Clamp(score int) int {
	return max(models.MinScore, min(models.MaxScore, score))
}

// UpdateScore returns the candidate's new score after a verdict against an
// opponent holding opponentScore.
func UpdateScore(v Verdict, opponentScore int) int {
	return Clamp(opponentScore + v.delta())
}
