package genpipe

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudhsk/prepsprint/internal/llm"
	"github.com/anirudhsk/prepsprint/internal/question"
)

func TestParseLetterAnswer(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  int
		ok    bool
	}{
		{"bare letter", "B", 1, true},
		{"lowercase", "c", 2, true},
		{"trailing period", "A.", 0, true},
		{"answer prefix", "Answer: D", 3, true},
		{"letter with prose", "The answer is B", 1, true},
		{"two different letters", "Either A or C", 0, false},
		{"same letter twice", "B, definitely B", 1, true},
		{"letter inside a word", "ABIDE", 0, false},
		{"no letter at all", "I am not sure", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseLetterAnswer(tt.reply)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestVerifyAnswer(t *testing.T) {
	cfg := Config{Verify: true, MaxTokens: 4096, Temperature: 0.7}

	run := func(t *testing.T, verifierReply llm.CannedResult, generatedIdx int) int {
		t.Helper()
		mock := llm.NewMockClient(
			llm.CannedResult{Content: batchJSON(validItemJSON("Verify me", generatedIdx))},
			verifierReply,
		)
		g := NewGenerator(mock, cfg, zerolog.Nop())

		qs, failures, err := g.GenerateBatch(context.Background(), testRequest())
		require.NoError(t, err)
		require.Empty(t, failures)
		require.Len(t, qs, 1)
		return qs[0].CorrectOptionIndex
	}

	t.Run("confident disagreement overrides", func(t *testing.T) {
		idx := run(t, llm.CannedResult{Content: json.RawMessage("C")}, 0)
		assert.Equal(t, 2, idx)
	})

	t.Run("agreement keeps answer", func(t *testing.T) {
		idx := run(t, llm.CannedResult{Content: json.RawMessage("A")}, 0)
		assert.Equal(t, 0, idx)
	})

	t.Run("inconclusive reply keeps original", func(t *testing.T) {
		idx := run(t, llm.CannedResult{Content: json.RawMessage("It could be A or B")}, 1)
		assert.Equal(t, 1, idx)
	})

	t.Run("verifier error keeps original and the item", func(t *testing.T) {
		idx := run(t, llm.CannedResult{Err: &llm.UnavailableError{}}, 2)
		assert.Equal(t, 2, idx)
	})
}

func TestVerifyBatch(t *testing.T) {
	mock := llm.NewMockClient(
		llm.CannedResult{Content: json.RawMessage("B")},
		llm.CannedResult{Content: json.RawMessage("A")},
	)
	g := NewGenerator(mock, Config{VerifyParallel: false}, zerolog.Nop())

	qs := []question.Question{
		{UUID: "q1", QuestionText: "First", Options: fourOptions(), CorrectOptionIndex: 0},
		{UUID: "q2", QuestionText: "Second", Options: fourOptions(), CorrectOptionIndex: 0},
	}
	g.VerifyBatch(context.Background(), qs)

	assert.Equal(t, 1, qs[0].CorrectOptionIndex)
	assert.Equal(t, 0, qs[1].CorrectOptionIndex)
	assert.Equal(t, 2, mock.CallCount())
}

func fourOptions() []question.Option {
	return []question.Option{{Text: "1"}, {Text: "2"}, {Text: "3"}, {Text: "4"}}
}
