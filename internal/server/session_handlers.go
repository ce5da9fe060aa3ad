package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/anirudhsk/prepsprint/internal/auth"
	"github.com/anirudhsk/prepsprint/internal/logging"
	"github.com/anirudhsk/prepsprint/internal/question"
	"github.com/anirudhsk/prepsprint/internal/session"
	"github.com/anirudhsk/prepsprint/internal/taxonomy"
	httperrors "github.com/anirudhsk/prepsprint/pkg/http/errors"
)

// SessionEngine is the slice of the session engine the handlers use.
// Every lookup is scoped to the calling user; a session owned by someone
// else behaves as if it does not exist.
type SessionEngine interface {
	Start(ctx context.Context, req session.StartRequest) (session.Snapshot, error)
	Snapshot(sessionID, userID string) (session.Snapshot, error)
	SubmitAnswer(ctx context.Context, sessionID, userID, optionID string) (session.AnswerResult, error)
	Continue(sessionID, userID string) (session.Snapshot, error)
	TrySimilar(ctx context.Context, sessionID, userID string) (session.Snapshot, error)
	SetDifficulty(ctx context.Context, sessionID, userID, difficulty string) (session.Snapshot, error)
	Finalize(ctx context.Context, sessionID, userID string) (session.Session, error)
}

// SessionHandlers provides REST endpoints for practice and sprint sessions.
type SessionHandlers struct {
	engine SessionEngine
	logger zerolog.Logger
}

// NewSessionHandlers creates HTTP handlers for session endpoints.
func NewSessionHandlers(engine SessionEngine, logger zerolog.Logger) *SessionHandlers {
	return &SessionHandlers{engine: engine, logger: logger}
}

// StartSessionRequest is the POST /v1/sessions payload. The user comes
// from the bearer token, never from the body.
type StartSessionRequest struct {
	Exam          string `json:"exam"`
	Topic         string `json:"topic"`
	Subtopic      string `json:"subtopic"`
	Mode          string `json:"mode"`
	Difficulty    string `json:"difficulty"`
	QuestionCount int    `json:"questionCount"`
}

// requireUser extracts the authenticated user or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return "", false
	}
	return claims.UserID.String(), true
}

// Start handles POST /v1/sessions
func (h *SessionHandlers) Start(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.Exam == "" || req.Topic == "" || req.Subtopic == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "exam, topic and subtopic are required", "exam")
		return
	}

	snap, err := h.engine.Start(r.Context(), session.StartRequest{
		UserID:        userID,
		Exam:          taxonomy.ExamID(req.Exam),
		Topic:         taxonomy.TopicID(req.Topic),
		Subtopic:      taxonomy.SubtopicID(req.Subtopic),
		Mode:          req.Mode,
		Difficulty:    req.Difficulty,
		QuestionCount: req.QuestionCount,
	})
	if err != nil {
		h.respondSessionError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, snap)
}

// Snapshot handles GET /v1/sessions/{id}
func (h *SessionHandlers) Snapshot(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	snap, err := h.engine.Snapshot(r.PathValue("id"), userID)
	if err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// SubmitAnswerRequest is the POST /v1/sessions/{id}/answer payload.
type SubmitAnswerRequest struct {
	OptionID string `json:"optionId"`
}

// SubmitAnswer handles POST /v1/sessions/{id}/answer
func (h *SessionHandlers) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.OptionID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "optionId is required", "optionId")
		return
	}

	result, err := h.engine.SubmitAnswer(r.Context(), r.PathValue("id"), userID, req.OptionID)
	if err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Continue handles POST /v1/sessions/{id}/continue
func (h *SessionHandlers) Continue(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	snap, err := h.engine.Continue(r.PathValue("id"), userID)
	if err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// TrySimilar handles POST /v1/sessions/{id}/try-similar
func (h *SessionHandlers) TrySimilar(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	snap, err := h.engine.TrySimilar(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, snap)
}

// SetDifficultyRequest is the POST /v1/sessions/{id}/difficulty payload.
type SetDifficultyRequest struct {
	Difficulty string `json:"difficulty"`
}

// SetDifficulty handles POST /v1/sessions/{id}/difficulty
func (h *SessionHandlers) SetDifficulty(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req SetDifficultyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	switch req.Difficulty {
	case question.DifficultyEasy, question.DifficultyMedium, question.DifficultyHard:
	default:
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "difficulty must be easy, medium or hard", "difficulty")
		return
	}

	snap, err := h.engine.SetDifficulty(r.Context(), r.PathValue("id"), userID, req.Difficulty)
	if err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// Finalize handles POST /v1/sessions/{id}/finalize
func (h *SessionHandlers) Finalize(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	summary, err := h.engine.Finalize(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *SessionHandlers) respondSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "Session not found")
	case errors.Is(err, session.ErrSessionFinished):
		httperrors.RespondConflict(w, httperrors.ErrCodeSessionFinished, "Session already finished")
	case errors.Is(err, session.ErrNotAnswerable):
		httperrors.RespondConflict(w, httperrors.ErrCodeNotAnswerable, "No active question to answer")
	case errors.Is(err, session.ErrUnknownOption):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidOption, "Selected option is not part of the current question")
	case errors.Is(err, session.ErrUnknownTaxonomy):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeUnknownTaxonomy, "Unknown exam, topic or subtopic")
	case errors.Is(err, question.ErrNoValidQuestions):
		httperrors.RespondBadGateway(w, httperrors.ErrCodeNoValidQuestions, "No valid questions could be produced for this topic")
	default:
		logger := logging.FromContext(r.Context())
		logger.Error().Err(err).Msg("session operation failed")
		httperrors.RespondInternalError(w, "Internal server error")
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
