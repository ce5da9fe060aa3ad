package genpipe

import "github.com/anirudhsk/prepsprint/internal/llm"

// BatchSchema is the JSON schema for a generated question batch.
var BatchSchema = &llm.Schema{
	Name:        "practice-question-batch",
	Description: "A batch of multiple-choice exam practice questions",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type":  "array",
				"items": questionDefinition,
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}

var questionDefinition = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"question_text": map[string]any{
			"type":        "string",
			"description": "The question prompt shown to the student, plain text",
		},
		"options": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"minItems":    4,
			"maxItems":    4,
			"description": "Exactly 4 answer choices",
		},
		"correct_option_index": map[string]any{
			"type":        "integer",
			"minimum":     0,
			"maximum":     3,
			"description": "0-based index of the correct option",
		},
		"fsm_tag": map[string]any{
			"type":        "string",
			"pattern":     "^[a-z0-9]+(-[a-z0-9]+)*$",
			"description": "Lowercase kebab-case slug naming the reusable problem pattern",
		},
		"time_target_seconds": map[string]any{
			"type":        "integer",
			"minimum":     10,
			"description": "Seconds a well-prepared student should need",
		},
		"optimal_path": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"exists":        map[string]any{"type": "boolean"},
				"steps":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"preconditions": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"sanity_check":  map[string]any{"type": "string"},
			},
			"required":    []any{"exists", "steps"},
			"description": "The fastest safe method, if one exists",
		},
		"full_solution": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Complete step-by-step derivation",
		},
		"difficulty": map[string]any{
			"type": "string",
			"enum": []any{"easy", "medium", "hard"},
		},
		"diagram_required": map[string]any{
			"type":        "boolean",
			"description": "True when the question needs a figure to be answerable",
		},
		"visual_description": map[string]any{
			"type":        "string",
			"description": "Textual description of the figure, when diagram_required",
		},
	},
	"required": []any{
		"question_text", "options", "correct_option_index", "fsm_tag",
		"full_solution", "difficulty", "diagram_required",
	},
	"additionalProperties": false,
}

// verifySchema is intentionally absent: the verification pass asks for a
// bare letter A-D and parses free text, so a disagreeing model that adds
// prose is still usable.
