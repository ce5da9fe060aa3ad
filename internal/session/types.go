// Package session runs server-side practice and sprint sessions: one
// state machine per run, from first question to summary.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/anirudhsk/prepsprint/internal/question"
	"github.com/anirudhsk/prepsprint/internal/taxonomy"
)

// State is the session lifecycle position.
type State string

const (
	// StateLoading means no question is displayable yet; either the
	// first batch or a follow-up batch is still being fetched.
	StateLoading  State = "loading"
	StateActive   State = "active"
	StateAnswered State = "answered"
	// StateIntervention gates progress after a wrong answer until the
	// user explicitly continues or retries a similar question.
	StateIntervention State = "intervention"
	// StateComplete means every planned question has been answered and
	// only finalize remains.
	StateComplete State = "complete"
	StateSummary  State = "summary"
)

// Session modes.
const (
	ModePractice = "practice"
	ModeSprint   = "sprint"
)

var (
	ErrUnknownTaxonomy = errors.New("unknown taxonomy node")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionFinished = errors.New("session already finished")
	ErrNotAnswerable   = errors.New("no active question to answer")
	ErrUnknownOption   = errors.New("selected option not in current question")
	// ErrGhostQuestion marks an attempt whose question row no longer
	// exists server-side. Attempt stores return it on FK violations so
	// the engine can swallow it without bothering the user.
	ErrGhostQuestion = errors.New("attempt references a missing question")
)

// Session is the persisted row; aggregates are written once at finalize.
type Session struct {
	ID              string              `json:"id"`
	UserID          string              `json:"userId"`
	Exam            taxonomy.ExamID     `json:"exam"`
	Topic           taxonomy.TopicID    `json:"topic"`
	Subtopic        taxonomy.SubtopicID `json:"subtopic"`
	Mode            string              `json:"mode"`
	Difficulty      string              `json:"difficulty"`
	StartedAt       time.Time           `json:"startedAt"`
	EndedAt         *time.Time          `json:"endedAt,omitempty"`
	CorrectCount    int                 `json:"correctCount"`
	WrongCount      int                 `json:"wrongCount"`
	SkippedCount    int                 `json:"skippedCount"`
	TotalScore      int                 `json:"totalScore"`
	AvgTimeMs       int                 `json:"avgTimeMs"`
	IsRetry         bool                `json:"isRetry"`
	ParentSessionID string              `json:"parentSessionId,omitempty"`
}

// Attempt is one answer event; append-only, created exactly once per
// question answered.
type Attempt struct {
	QuestionUUID        string `json:"questionUuid"`
	UserID              string `json:"userId"`
	SessionID           string `json:"sessionId"`
	FSMTag              string `json:"fsmTag"`
	SelectedOptionIndex int    `json:"selectedOptionIndex"`
	IsCorrect           bool   `json:"isCorrect"`
	TimeTakenMs         int    `json:"timeTakenMs"`
	TargetTimeMs        int    `json:"targetTimeMs"`
	ScoreEarned         int    `json:"scoreEarned"`
}

// StartRequest opens a new session.
type StartRequest struct {
	UserID          string
	Exam            taxonomy.ExamID
	Topic           taxonomy.TopicID
	Subtopic        taxonomy.SubtopicID
	Mode            string
	Difficulty      string
	QuestionCount   int
	IsRetry         bool
	ParentSessionID string
}

// AnswerResult is returned from answer submission, and again verbatim on
// idempotent resubmission of the same question.
type AnswerResult struct {
	Correct            bool  `json:"correct"`
	CorrectOptionIndex int   `json:"correctOptionIndex"`
	ScoreEarned        int   `json:"scoreEarned"`
	TimeTakenMs        int   `json:"timeTakenMs"`
	State              State `json:"state"`
}

// Snapshot is the client-facing view of a live session.
type Snapshot struct {
	SessionID        string             `json:"sessionId"`
	State            State              `json:"state"`
	Question         *question.Question `json:"question,omitempty"`
	Index            int                `json:"index"`
	Loaded           int                `json:"loaded"`
	QuestionCount    int                `json:"questionCount"`
	CorrectCount     int                `json:"correctCount"`
	WrongCount       int                `json:"wrongCount"`
	TotalScore       int                `json:"totalScore"`
	SessionElapsedMs int64              `json:"sessionElapsedMs"`
	Generating       bool               `json:"generating"`
}

// QuestionSource supplies question batches (implemented by question.Service).
type QuestionSource interface {
	QuestionsForUser(ctx context.Context, req question.BatchRequest) (question.Batch, error)
}

// Store persists session rows and attempts.
type Store interface {
	CreateSession(ctx context.Context, s *Session) error
	FinalizeSession(ctx context.Context, s *Session) error
	// SaveAttempt records the attempt and updates mastery aggregates in
	// one server-side call. Returns ErrGhostQuestion when the question
	// row is gone.
	SaveAttempt(ctx context.Context, a Attempt) error
}

// StateStore mirrors live session snapshots into ephemeral storage so a
// restarted process can report on in-flight sessions.
type StateStore interface {
	StoreSnapshot(ctx context.Context, snap Snapshot) error
	DeleteSnapshot(ctx context.Context, sessionID string) error
}
