package genpipe

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anirudhsk/prepsprint/internal/llm"
	"github.com/anirudhsk/prepsprint/internal/question"
)

// tipsSchema shapes the generate-tips response.
var tipsSchema = &llm.Schema{
	Name:        "topic-tips",
	Description: "Short exam-strategy tips for one topic",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tips": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": 1,
			},
		},
		"required":             []any{"tips"},
		"additionalProperties": false,
	},
}

// GenerateTips produces short exam-strategy tips for a topic.
func (g *Generator) GenerateTips(ctx context.Context, req GenRequest, count int) ([]string, error) {
	prompt := fmt.Sprintf(
		"Give %d short, concrete exam-strategy tips for %s questions on %q (subtopic %q) at class %d level. One sentence each, exam-hall actionable, no generic study advice.",
		count, req.Exam, req.TopicName, req.Subtopic, req.ClassLevel,
	)

	res, err := g.client.Complete(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      prompt,
		Schema:      tipsSchema,
		MaxTokens:   1024,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("tips generation failed: %w", err)
	}

	var out struct {
		Tips []string `json:"tips"`
	}
	if err := json.Unmarshal(res.Content, &out); err != nil {
		return nil, fmt.Errorf("parse tips: %w", err)
	}
	return out.Tips, nil
}

// optimalPathSchema shapes the enrichment response for one question.
var optimalPathSchema = &llm.Schema{
	Name:        "optimal-path",
	Description: "The fastest exam-safe method for an existing question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"exists":        map[string]any{"type": "boolean"},
			"steps":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"preconditions": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"sanity_check":  map[string]any{"type": "string"},
		},
		"required":             []any{"exists", "steps"},
		"additionalProperties": false,
	},
}

// EnrichOptimalPath attaches a fastest-method block to a question that was
// persisted without one. Items that fail are skipped, not fatal, matching
// the batch pipeline's partial-failure semantics.
func (g *Generator) EnrichOptimalPath(ctx context.Context, q *question.Question) error {
	optionTexts := make([]string, len(q.Options))
	for i, o := range q.Options {
		optionTexts[i] = o.Text
	}

	prompt := fmt.Sprintf(
		"For the question below, give the fastest exam-safe solving method as discrete steps. If no shortcut beats the standard derivation, return exists=false with empty steps.\n\n%s",
		buildVerifyPrompt(q.QuestionText, optionTexts),
	)

	res, err := g.client.Complete(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      prompt,
		Schema:      optimalPathSchema,
		MaxTokens:   1024,
		Temperature: 0.2,
	})
	if err != nil {
		return fmt.Errorf("enrich %s: %w", q.UUID, err)
	}

	var path rawPath
	if err := json.Unmarshal(res.Content, &path); err != nil {
		return fmt.Errorf("parse optimal path for %s: %w", q.UUID, err)
	}

	q.OptimalPath = question.OptimalPath{
		Exists:        path.Exists,
		Steps:         path.Steps,
		Preconditions: path.Preconditions,
		SanityCheck:   path.SanityCheck,
	}
	return nil
}
