// Package llm abstracts the generative-AI providers used by the question
// pipeline. Callers construct a Client via NewClient and pass it in
// explicitly; there is no package-level singleton.
package llm

import (
	"context"
	"encoding/json"
)

// Client is the core abstraction for model interaction.
type Client interface {
	// Complete sends a prompt and returns the model output. When the
	// request carries a Schema the returned Content is JSON validated
	// against it; otherwise Content is the raw text.
	Complete(ctx context.Context, req Request) (*Result, error)

	// Model returns the model identifier this client is configured to use.
	Model() string
}

// Request describes what to send to the model.
type Request struct {
	// System sets the model's role and constraints.
	System string

	// Prompt is the user message. Generation here is single-turn.
	Prompt string

	// Schema, when set, instructs the provider to return JSON conforming
	// to it via the provider's native structured-output mechanism.
	Schema *Schema

	// MaxTokens bounds the response length.
	MaxTokens int

	// Temperature controls randomness, 0.0-1.0. Zero means deterministic.
	Temperature float64
}

// Schema defines the JSON structure expected from the model.
type Schema struct {
	// Name identifies the schema (tool name for Anthropic, schema name
	// for OpenAI). Kebab-case, e.g. "practice-question-batch".
	Name string

	// Description guides generation.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Result holds the model's output.
type Result struct {
	// Content is the generated output: validated JSON when a Schema was
	// requested, otherwise the raw text wrapped as a RawMessage.
	Content json.RawMessage

	// Model is the model that actually served the request.
	Model string

	// Truncated is true when generation stopped at the token limit.
	Truncated bool

	Usage Usage
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
}
