// Package genpipe turns model output into validated practice questions.
// Each batch item moves through parse, structural validation and an
// optional answer-verification pass; one bad item never aborts the batch.
package genpipe

import (
	"fmt"

	"github.com/anirudhsk/prepsprint/internal/taxonomy"
)

// Stage identifies where in the pipeline an item was at a given moment.
type Stage string

const (
	StagePending   Stage = "pending"
	StageParse     Stage = "parse_json"
	StageStructure Stage = "validate_structure"
	StageVerify    Stage = "verify_answer"
	StageReady     Stage = "ready"
)

// GenRequest describes one generation call.
type GenRequest struct {
	Exam       taxonomy.ExamID
	Topic      taxonomy.TopicID
	TopicName  string
	Subtopic   taxonomy.SubtopicID
	Subject    string
	ClassLevel int
	Difficulty string
	Count      int
	// Avoid lists question texts already served, for prompt-side dedup.
	Avoid []string
}

// ItemFailure records one dropped batch item and the stage that dropped it.
type ItemFailure struct {
	Index int
	Stage Stage
	Err   error
}

func (f ItemFailure) Error() string {
	return fmt.Sprintf("item %d failed at %s: %v", f.Index, f.Stage, f.Err)
}

// Config controls pipeline behavior.
type Config struct {
	// Verify enables the independent answer re-solve pass.
	Verify bool
	// VerifyParallel runs verification calls concurrently rather than one
	// blocking round-trip per item.
	VerifyParallel bool
	MaxTokens      int
	Temperature    float64
}

// DefaultConfig returns production defaults: verification on, sequential.
func DefaultConfig() Config {
	return Config{
		Verify:      true,
		MaxTokens:   4096,
		Temperature: 0.7,
	}
}
