package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/anirudhsk/prepsprint/internal/question"
	"github.com/anirudhsk/prepsprint/internal/taxonomy"
	httperrors "github.com/anirudhsk/prepsprint/pkg/http/errors"
)

// QuestionFetcher is the slice of the question service the handlers use.
type QuestionFetcher interface {
	QuestionsForUser(ctx context.Context, req question.BatchRequest) (question.Batch, error)
}

// QuestionHandlers provides REST endpoints for question fetch and the
// taxonomy catalog.
type QuestionHandlers struct {
	service QuestionFetcher
	catalog *taxonomy.Catalog
	logger  zerolog.Logger
}

// NewQuestionHandlers creates HTTP handlers for question endpoints.
func NewQuestionHandlers(service QuestionFetcher, catalog *taxonomy.Catalog, logger zerolog.Logger) *QuestionHandlers {
	return &QuestionHandlers{service: service, catalog: catalog, logger: logger}
}

type taxonomyTopic struct {
	Topic     taxonomy.TopicID `json:"topic"`
	TopicName string           `json:"topicName"`
	Subtopics []taxonomy.Node  `json:"subtopics"`
}

// ListTaxonomy handles GET /v1/taxonomy
func (h *QuestionHandlers) ListTaxonomy(w http.ResponseWriter, r *http.Request) {
	out := make(map[taxonomy.ExamID][]taxonomyTopic)
	for _, exam := range h.catalog.Exams() {
		for _, topic := range h.catalog.TopicsForExam(exam) {
			name, _ := h.catalog.TopicName(exam, topic)
			out[exam] = append(out[exam], taxonomyTopic{
				Topic:     topic,
				TopicName: name,
				Subtopics: h.catalog.Subtopics(exam, topic),
			})
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// FetchBatchRequest is the POST /v1/questions/batch payload.
type FetchBatchRequest struct {
	Exam       string   `json:"exam"`
	Topic      string   `json:"topic"`
	Subtopic   string   `json:"subtopic"`
	Count      int      `json:"count"`
	Difficulty string   `json:"difficulty"`
	Exclude    []string `json:"exclude,omitempty"`
}

// FetchBatch handles POST /v1/questions/batch
func (h *QuestionHandlers) FetchBatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req FetchBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.Count <= 0 {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "count must be a positive integer", "count")
		return
	}

	exam := taxonomy.ExamID(req.Exam)
	topic := taxonomy.TopicID(req.Topic)
	subtopic := taxonomy.SubtopicID(req.Subtopic)
	if _, ok := h.catalog.Lookup(exam, topic, subtopic); !ok {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeUnknownTaxonomy, "Unknown exam, topic or subtopic")
		return
	}

	batch, err := h.service.QuestionsForUser(r.Context(), question.BatchRequest{
		UserID:     userID,
		Exam:       exam,
		Topic:      topic,
		Subtopic:   subtopic,
		Count:      req.Count,
		Difficulty: req.Difficulty,
		Exclude:    req.Exclude,
	})
	if err != nil {
		if errors.Is(err, question.ErrNoValidQuestions) {
			httperrors.RespondBadGateway(w, httperrors.ErrCodeNoValidQuestions, "No valid questions could be produced for this topic")
			return
		}
		h.logger.Error().Err(err).Msg("question fetch failed")
		httperrors.RespondInternalError(w, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, batch)
}
