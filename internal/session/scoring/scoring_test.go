package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/anirudhsk/prepsprint/internal/question"
	"github.com/anirudhsk/prepsprint/internal/taxonomy"
)

func TestSprintScore(t *testing.T) {
	engine := NewEngine(nil)
	target := 120 * time.Second

	tests := []struct {
		name       string
		exam       taxonomy.ExamID
		difficulty string
		correct    bool
		elapsed    time.Duration
		want       int
	}{
		{"instant correct is 1.5x base", taxonomy.ExamJEEMain, question.DifficultyMedium, true, 0, 30},
		{"on-target correct is base", taxonomy.ExamJEEMain, question.DifficultyMedium, true, target, 20},
		{"halfway earns half the bonus", taxonomy.ExamJEEMain, question.DifficultyMedium, true, 60 * time.Second, 25},
		{"overtime correct still earns base", taxonomy.ExamJEEMain, question.DifficultyMedium, true, 5 * time.Minute, 20},
		{"wrong answer takes the penalty", taxonomy.ExamJEEMain, question.DifficultyHard, false, 10 * time.Second, -5},
		{"boards do not penalize", taxonomy.ExamBoards10, question.DifficultyEasy, false, 10 * time.Second, 0},
		{"easy base", taxonomy.ExamNEET, question.DifficultyEasy, true, target, 10},
		{"hard instant", taxonomy.ExamNEET, question.DifficultyHard, true, 0, 45},
		{"unknown difficulty falls back to medium base", taxonomy.ExamJEEMain, "brutal", true, target, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.SprintScore(tt.exam, tt.difficulty, tt.correct, tt.elapsed, target)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSprintScoreZeroTarget(t *testing.T) {
	engine := NewEngine(nil)
	got := engine.SprintScore(taxonomy.ExamJEEMain, question.DifficultyMedium, true, time.Second, 0)
	assert.Equal(t, 20, got, "no target means no speed bonus")
}
