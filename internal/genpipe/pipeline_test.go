package genpipe

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudhsk/prepsprint/internal/llm"
	"github.com/anirudhsk/prepsprint/internal/taxonomy"
)

func testRequest() GenRequest {
	return GenRequest{
		Exam:       taxonomy.ExamJEEMain,
		Topic:      "calculus",
		TopicName:  "Calculus",
		Subtopic:   "derivatives",
		Subject:    "Mathematics",
		ClassLevel: 12,
		Difficulty: "medium",
		Count:      3,
	}
}

func validItemJSON(text string, correctIdx int) string {
	return fmt.Sprintf(`{
		"question_text": %q,
		"options": ["1", "2", "3", "4"],
		"correct_option_index": %d,
		"fsm_tag": "chain-rule",
		"time_target_seconds": 90,
		"full_solution": ["differentiate", "substitute"],
		"difficulty": "medium",
		"diagram_required": false,
		"visual_description": ""
	}`, text, correctIdx)
}

func batchJSON(items ...string) json.RawMessage {
	out := `{"questions": [`
	for i, it := range items {
		if i > 0 {
			out += ","
		}
		out += it
	}
	return json.RawMessage(out + `]}`)
}

func newTestGenerator(mock *llm.MockClient, cfg Config) *Generator {
	return NewGenerator(mock, cfg, zerolog.Nop())
}

func TestGenerateBatch(t *testing.T) {
	cfg := Config{Verify: false, MaxTokens: 4096, Temperature: 0.7}

	t.Run("all items valid", func(t *testing.T) {
		mock := llm.NewMockClient(llm.CannedResult{Content: batchJSON(
			validItemJSON("What is d/dx of x^2?", 1),
			validItemJSON("What is d/dx of sin x?", 0),
		)})
		g := newTestGenerator(mock, cfg)

		qs, failures, err := g.GenerateBatch(context.Background(), testRequest())
		require.NoError(t, err)
		assert.Empty(t, failures)
		require.Len(t, qs, 2)
		assert.Equal(t, 1, qs[0].CorrectOptionIndex)
		assert.Equal(t, "chain-rule", qs[0].FSMTag)
		assert.Len(t, qs[0].Options, 4)
		assert.Equal(t, 90, qs[0].TimeTargets[taxonomy.ExamJEEMain])
		assert.NotEmpty(t, qs[0].UUID)
		assert.NotEqual(t, qs[0].UUID, qs[1].UUID)
	})

	t.Run("bad item is dropped, good items survive", func(t *testing.T) {
		badOptions := `{
			"question_text": "Too few options here",
			"options": ["1", "2"],
			"correct_option_index": 0,
			"fsm_tag": "chain-rule"
		}`
		mock := llm.NewMockClient(llm.CannedResult{Content: batchJSON(
			validItemJSON("Good question one", 0),
			badOptions,
			validItemJSON("Good question two", 2),
		)})
		g := newTestGenerator(mock, cfg)

		qs, failures, err := g.GenerateBatch(context.Background(), testRequest())
		require.NoError(t, err)
		require.Len(t, qs, 2)
		require.Len(t, failures, 1)
		assert.Equal(t, 1, failures[0].Index)
		assert.Equal(t, StageStructure, failures[0].Stage)
	})

	t.Run("out of range answer index defaults to zero", func(t *testing.T) {
		mock := llm.NewMockClient(llm.CannedResult{Content: batchJSON(
			validItemJSON("Index too large", 7),
		)})
		g := newTestGenerator(mock, cfg)

		qs, failures, err := g.GenerateBatch(context.Background(), testRequest())
		require.NoError(t, err)
		assert.Empty(t, failures)
		require.Len(t, qs, 1)
		assert.Equal(t, 0, qs[0].CorrectOptionIndex)
	})

	t.Run("empty question text fails the item", func(t *testing.T) {
		empty := `{
			"question_text": "   ",
			"options": ["1", "2", "3", "4"],
			"correct_option_index": 0,
			"fsm_tag": "chain-rule"
		}`
		mock := llm.NewMockClient(llm.CannedResult{Content: batchJSON(empty)})
		g := newTestGenerator(mock, cfg)

		qs, failures, err := g.GenerateBatch(context.Background(), testRequest())
		require.NoError(t, err)
		assert.Empty(t, qs)
		require.Len(t, failures, 1)
		assert.Equal(t, StageStructure, failures[0].Stage)
	})

	t.Run("near miss fsm tag is slugified", func(t *testing.T) {
		item := `{
			"question_text": "Slug me",
			"options": ["1", "2", "3", "4"],
			"correct_option_index": 0,
			"fsm_tag": "Chain Rule"
		}`
		mock := llm.NewMockClient(llm.CannedResult{Content: batchJSON(item)})
		g := newTestGenerator(mock, cfg)

		qs, _, err := g.GenerateBatch(context.Background(), testRequest())
		require.NoError(t, err)
		require.Len(t, qs, 1)
		assert.Equal(t, "chain-rule", qs[0].FSMTag)
	})

	t.Run("unsalvageable fsm tag fails the item", func(t *testing.T) {
		item := `{
			"question_text": "Bad tag",
			"options": ["1", "2", "3", "4"],
			"correct_option_index": 0,
			"fsm_tag": "chain--rule!"
		}`
		mock := llm.NewMockClient(llm.CannedResult{Content: batchJSON(item)})
		g := newTestGenerator(mock, cfg)

		qs, failures, err := g.GenerateBatch(context.Background(), testRequest())
		require.NoError(t, err)
		assert.Empty(t, qs)
		require.Len(t, failures, 1)
	})

	t.Run("missing difficulty inherits request", func(t *testing.T) {
		item := `{
			"question_text": "No difficulty set",
			"options": ["1", "2", "3", "4"],
			"correct_option_index": 0,
			"fsm_tag": "chain-rule"
		}`
		mock := llm.NewMockClient(llm.CannedResult{Content: batchJSON(item)})
		g := newTestGenerator(mock, cfg)

		qs, _, err := g.GenerateBatch(context.Background(), testRequest())
		require.NoError(t, err)
		require.Len(t, qs, 1)
		assert.Equal(t, "medium", qs[0].Difficulty)
	})

	t.Run("empty batch errors", func(t *testing.T) {
		mock := llm.NewMockClient(llm.CannedResult{Content: json.RawMessage(`{"questions": []}`)})
		g := newTestGenerator(mock, cfg)

		_, _, err := g.GenerateBatch(context.Background(), testRequest())
		assert.Error(t, err)
	})

	t.Run("bare array fallback", func(t *testing.T) {
		mock := llm.NewMockClient(llm.CannedResult{
			Content: json.RawMessage("[" + validItemJSON("Bare array item", 0) + "]"),
		})
		g := newTestGenerator(mock, cfg)

		qs, _, err := g.GenerateBatch(context.Background(), testRequest())
		require.NoError(t, err)
		require.Len(t, qs, 1)
	})

	t.Run("repairs fenced output after schema rejection", func(t *testing.T) {
		fenced := "```json\n" + string(batchJSON(validItemJSON("Repaired", 0))) + "\n```"
		mock := llm.NewMockClient(llm.CannedResult{
			Err: &llm.BadOutputError{Content: json.RawMessage(fenced)},
		})
		g := newTestGenerator(mock, cfg)

		qs, _, err := g.GenerateBatch(context.Background(), testRequest())
		require.NoError(t, err)
		require.Len(t, qs, 1)
		assert.Equal(t, "Repaired", qs[0].QuestionText)
	})
}

func TestGenerateOne(t *testing.T) {
	cfg := Config{Verify: false, MaxTokens: 4096, Temperature: 0.7}

	t.Run("returns the single question", func(t *testing.T) {
		mock := llm.NewMockClient(llm.CannedResult{Content: batchJSON(
			validItemJSON("Just one", 3),
		)})
		g := newTestGenerator(mock, cfg)

		q, err := g.GenerateOne(context.Background(), testRequest())
		require.NoError(t, err)
		assert.Equal(t, "Just one", q.QuestionText)
		assert.Equal(t, 3, q.CorrectOptionIndex)
	})

	t.Run("any failure fails the call", func(t *testing.T) {
		bad := `{
			"question_text": "Only two options",
			"options": ["1", "2"],
			"correct_option_index": 0,
			"fsm_tag": "chain-rule"
		}`
		mock := llm.NewMockClient(llm.CannedResult{Content: batchJSON(bad)})
		g := newTestGenerator(mock, cfg)

		_, err := g.GenerateOne(context.Background(), testRequest())
		assert.Error(t, err)
	})
}

func TestBuildBatchPromptIncludesAvoidList(t *testing.T) {
	req := testRequest()
	req.Avoid = []string{"What is d/dx of x^2?"}

	prompt := buildBatchPrompt(req)
	assert.Contains(t, prompt, "What is d/dx of x^2?")
}
