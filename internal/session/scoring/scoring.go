// Package scoring computes sprint-mode points. Correct answers earn a
// difficulty base plus a speed bonus against the question's target time;
// wrong answers take the exam's negative-marking penalty.
package scoring

import (
	"math"
	"time"

	"github.com/anirudhsk/prepsprint/internal/question"
	"github.com/anirudhsk/prepsprint/internal/taxonomy"
)

// ExamRules holds per-exam scoring constants.
type ExamRules struct {
	// BasePoints by difficulty.
	BasePoints map[string]int
	// WrongPenalty is applied as-is on an incorrect answer (zero or negative).
	WrongPenalty int
}

// DefaultRules mirrors the negative-marking schemes of the supported exams.
// Board exams do not penalize wrong answers.
func DefaultRules() map[taxonomy.ExamID]ExamRules {
	competitive := ExamRules{
		BasePoints: map[string]int{
			question.DifficultyEasy:   10,
			question.DifficultyMedium: 20,
			question.DifficultyHard:   30,
		},
		WrongPenalty: -5,
	}
	boards := competitive
	boards.WrongPenalty = 0
	return map[taxonomy.ExamID]ExamRules{
		taxonomy.ExamJEEMain:  competitive,
		taxonomy.ExamNEET:     competitive,
		taxonomy.ExamBoards10: boards,
	}
}

// Engine computes sprint scores with configurable per-exam rules.
type Engine struct {
	rules map[taxonomy.ExamID]ExamRules
}

func NewEngine(rules map[taxonomy.ExamID]ExamRules) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Engine{rules: rules}
}

// SprintScore returns the points for one answer.
//
// A correct answer inside the target window earns
// base + round(0.5*base*(target-elapsed)/target), so an instant answer is
// worth 1.5x base and one exactly on target is worth base. Beyond the
// target the bonus is zero, never negative.
func (e *Engine) SprintScore(exam taxonomy.ExamID, difficulty string, correct bool, elapsed, target time.Duration) int {
	rules, ok := e.rules[exam]
	if !ok {
		rules = DefaultRules()[taxonomy.ExamJEEMain]
	}

	if !correct {
		return rules.WrongPenalty
	}

	base := rules.BasePoints[difficulty]
	if base == 0 {
		base = rules.BasePoints[question.DifficultyMedium]
	}

	if target <= 0 {
		return base
	}
	speedRatio := float64(target-elapsed) / float64(target)
	if speedRatio < 0 {
		speedRatio = 0
	}
	bonus := int(math.Round(0.5 * float64(base) * speedRatio))
	return base + bonus
}
