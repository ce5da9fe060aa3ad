package llm

import (
	"encoding/json"
	"fmt"
	"time"
)

// RateLimitError indicates the provider returned a 429.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// BadOutputError indicates the model returned content that does not conform
// to the requested schema or could not be parsed.
type BadOutputError struct {
	Content json.RawMessage
	Err     error
}

func (e *BadOutputError) Error() string {
	return fmt.Sprintf("malformed model output: %v", e.Err)
}

func (e *BadOutputError) Unwrap() error { return e.Err }

// UnavailableError indicates the provider is down or unreachable.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model provider unavailable: %v", e.Err)
	}
	return "model provider unavailable"
}

func (e *UnavailableError) Unwrap() error { return e.Err }
