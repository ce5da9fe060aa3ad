package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond}
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	mock := NewMockClient(
		CannedResult{Err: &UnavailableError{Err: errors.New("503")}},
		CannedResult{Content: json.RawMessage(`{"ok":true}`)},
	)
	client := WithRetry(mock, fastPolicy())

	res, err := client.Complete(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(res.Content))
	assert.Equal(t, 2, mock.CallCount())
}

func TestRetryBadOutputOnlyOnce(t *testing.T) {
	mock := NewMockClient(
		CannedResult{Err: &BadOutputError{Err: errors.New("not json")}},
		CannedResult{Err: &BadOutputError{Err: errors.New("still not json")}},
		CannedResult{Content: json.RawMessage(`{}`)},
	)
	client := WithRetry(mock, fastPolicy())

	_, err := client.Complete(context.Background(), Request{Prompt: "hi"})
	require.Error(t, err)
	var bad *BadOutputError
	assert.ErrorAs(t, err, &bad)
	assert.Equal(t, 2, mock.CallCount())
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	mock := NewMockClient(
		CannedResult{Err: &RateLimitError{Err: errors.New("429")}},
		CannedResult{Err: &RateLimitError{Err: errors.New("429")}},
		CannedResult{Err: &RateLimitError{Err: errors.New("429")}},
		CannedResult{Err: &RateLimitError{Err: errors.New("429")}},
	)
	client := WithRetry(mock, fastPolicy())

	_, err := client.Complete(context.Background(), Request{Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, 4, mock.CallCount())
}

func TestSchemaRejectsNonConformingOutput(t *testing.T) {
	schema := &Schema{
		Name: "needs-count",
		Definition: map[string]any{
			"type":                 "object",
			"properties":           map[string]any{"count": map[string]any{"type": "integer"}},
			"required":             []any{"count"},
			"additionalProperties": false,
		},
	}

	assert.NoError(t, checkAgainstSchema(schema, json.RawMessage(`{"count":3}`)))

	err := checkAgainstSchema(schema, json.RawMessage(`{"count":"three"}`))
	var bad *BadOutputError
	require.ErrorAs(t, err, &bad)

	err = checkAgainstSchema(schema, json.RawMessage(`not json at all`))
	require.ErrorAs(t, err, &bad)
}
