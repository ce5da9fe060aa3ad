package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/anirudhsk/prepsprint/internal/db/repository"
	"github.com/anirudhsk/prepsprint/internal/diagram"
	"github.com/anirudhsk/prepsprint/internal/genpipe"
	"github.com/anirudhsk/prepsprint/internal/question"
	"github.com/anirudhsk/prepsprint/internal/taxonomy"
	httperrors "github.com/anirudhsk/prepsprint/pkg/http/errors"
)

// Pipeline is the slice of the generation pipeline the admin handlers use.
type Pipeline interface {
	GenerateOne(ctx context.Context, req genpipe.GenRequest) (*question.Question, error)
	GenerateBatch(ctx context.Context, req genpipe.GenRequest) ([]question.Question, []genpipe.ItemFailure, error)
	GenerateTips(ctx context.Context, req genpipe.GenRequest, count int) ([]string, error)
	EnrichOptimalPath(ctx context.Context, q *question.Question) error
}

// AdminStore is the slice of the question repository the admin handlers use.
type AdminStore interface {
	SaveGenerated(ctx context.Context, qs []question.Question) error
	SaveRejected(ctx context.Context, items []repository.RejectedItem) error
	MissingOptimalPath(ctx context.Context, limit int) ([]question.Question, error)
	UpdatePayload(ctx context.Context, q *question.Question) error
}

// DiagramGenerator renders and attaches one diagram.
type DiagramGenerator interface {
	Generate(ctx context.Context, req diagram.Request) (string, error)
}

// AdminHandlers provides the content-operations endpoints: ahead-of-time
// generation, tip generation, diagram generation and payload enrichment.
// These routes sit behind network policy, not user auth.
type AdminHandlers struct {
	pipeline Pipeline
	store    AdminStore
	diagrams DiagramGenerator
	catalog  *taxonomy.Catalog
	logger   zerolog.Logger
}

// NewAdminHandlers creates HTTP handlers for admin endpoints.
func NewAdminHandlers(pipeline Pipeline, store AdminStore, diagrams DiagramGenerator, catalog *taxonomy.Catalog, logger zerolog.Logger) *AdminHandlers {
	return &AdminHandlers{
		pipeline: pipeline,
		store:    store,
		diagrams: diagrams,
		catalog:  catalog,
		logger:   logger,
	}
}

// GenerateRequest is the shared payload for the generation endpoints.
type GenerateRequest struct {
	Exam       string `json:"exam"`
	Topic      string `json:"topic"`
	Subtopic   string `json:"subtopic"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
}

func (h *AdminHandlers) resolveGenRequest(w http.ResponseWriter, req GenerateRequest) (genpipe.GenRequest, bool) {
	node, ok := h.catalog.Lookup(taxonomy.ExamID(req.Exam), taxonomy.TopicID(req.Topic), taxonomy.SubtopicID(req.Subtopic))
	if !ok {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeUnknownTaxonomy, "Unknown exam, topic or subtopic")
		return genpipe.GenRequest{}, false
	}

	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = question.DifficultyMedium
	}
	count := req.Count
	if count <= 0 {
		count = 1
	}

	return genpipe.GenRequest{
		Exam:       node.Exam,
		Topic:      node.Topic,
		TopicName:  node.TopicName,
		Subtopic:   node.Subtopic,
		Subject:    node.Subject,
		ClassLevel: node.ClassLevel,
		Difficulty: difficulty,
		Count:      count,
	}, true
}

// GenerateQuestion handles POST /v1/generate-question
func (h *AdminHandlers) GenerateQuestion(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	genReq, ok := h.resolveGenRequest(w, req)
	if !ok {
		return
	}

	q, err := h.pipeline.GenerateOne(r.Context(), genReq)
	if err != nil {
		h.logger.Error().Err(err).Str("topic", req.Topic).Msg("single-question generation failed")
		httperrors.RespondBadGateway(w, httperrors.ErrCodeGenerationFailed, "Question generation failed")
		return
	}

	if err := h.store.SaveGenerated(r.Context(), []question.Question{*q}); err != nil {
		h.logger.Error().Err(err).Msg("persisting generated question failed")
		httperrors.RespondInternalError(w, "Failed to persist generated question")
		return
	}

	respondJSON(w, http.StatusCreated, q)
}

// GenerateBatchResponse reports what a batch run produced and dropped.
type GenerateBatchResponse struct {
	Generated []question.Question `json:"generated"`
	Rejected  int                 `json:"rejected"`
}

// GenerateBatch handles POST /v1/generate-batch
func (h *AdminHandlers) GenerateBatch(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	genReq, ok := h.resolveGenRequest(w, req)
	if !ok {
		return
	}

	qs, failures, err := h.pipeline.GenerateBatch(r.Context(), genReq)
	if err != nil {
		h.logger.Error().Err(err).Str("topic", req.Topic).Msg("batch generation failed")
		httperrors.RespondBadGateway(w, httperrors.ErrCodeGenerationFailed, "Batch generation failed")
		return
	}

	if len(failures) > 0 {
		rejected := make([]repository.RejectedItem, 0, len(failures))
		for _, f := range failures {
			rejected = append(rejected, repository.RejectedItem{
				Topic:      string(genReq.Topic),
				Subtopic:   string(genReq.Subtopic),
				Difficulty: genReq.Difficulty,
				Stage:      string(f.Stage),
				Reason:     f.Error(),
			})
		}
		if err := h.store.SaveRejected(r.Context(), rejected); err != nil {
			h.logger.Warn().Err(err).Msg("staging rejected items failed")
		}
	}

	if len(qs) > 0 {
		if err := h.store.SaveGenerated(r.Context(), qs); err != nil {
			h.logger.Error().Err(err).Msg("persisting generated batch failed")
			httperrors.RespondInternalError(w, "Failed to persist generated questions")
			return
		}
	}

	respondJSON(w, http.StatusCreated, GenerateBatchResponse{
		Generated: qs,
		Rejected:  len(failures),
	})
}

// GenerateTips handles POST /v1/generate-tips
func (h *AdminHandlers) GenerateTips(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	genReq, ok := h.resolveGenRequest(w, req)
	if !ok {
		return
	}

	count := req.Count
	if count <= 0 {
		count = 5
	}

	tips, err := h.pipeline.GenerateTips(r.Context(), genReq, count)
	if err != nil {
		h.logger.Error().Err(err).Str("topic", req.Topic).Msg("tip generation failed")
		httperrors.RespondBadGateway(w, httperrors.ErrCodeGenerationFailed, "Tip generation failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"tips": tips})
}

// GenerateDiagramRequest is the POST /v1/generate-diagram payload.
type GenerateDiagramRequest struct {
	QuestionUUID      string `json:"questionUuid"`
	VisualDescription string `json:"visualDescription"`
}

// GenerateDiagram handles POST /v1/generate-diagram
func (h *AdminHandlers) GenerateDiagram(w http.ResponseWriter, r *http.Request) {
	if h.diagrams == nil {
		httperrors.RespondError(w, http.StatusServiceUnavailable, httperrors.ErrCodeServiceUnavailable, "Diagram generation is not configured")
		return
	}

	var req GenerateDiagramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.QuestionUUID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "questionUuid is required", "questionUuid")
		return
	}

	url, err := h.diagrams.Generate(r.Context(), diagram.Request{
		QuestionUUID:      req.QuestionUUID,
		VisualDescription: req.VisualDescription,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("question", req.QuestionUUID).Msg("diagram generation failed")
		httperrors.RespondBadGateway(w, httperrors.ErrCodeDiagramFailed, "Diagram generation failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"diagramUrl": url})
}

// EnrichRequest is the POST /v1/enrich-questions-batch payload.
type EnrichRequest struct {
	Limit int `json:"limit"`
}

// EnrichResponse reports how many stored questions gained an optimal path.
type EnrichResponse struct {
	Scanned  int `json:"scanned"`
	Enriched int `json:"enriched"`
	Failed   int `json:"failed"`
}

// EnrichQuestions handles POST /v1/enrich-questions-batch. It backfills
// optimal-path data onto stored questions that were generated before the
// pipeline produced it.
func (h *AdminHandlers) EnrichQuestions(w http.ResponseWriter, r *http.Request) {
	var req EnrichRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}

	qs, err := h.store.MissingOptimalPath(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("scanning for unenriched questions failed")
		httperrors.RespondInternalError(w, "Failed to scan for unenriched questions")
		return
	}

	resp := EnrichResponse{Scanned: len(qs)}
	for i := range qs {
		q := &qs[i]
		if err := h.pipeline.EnrichOptimalPath(r.Context(), q); err != nil {
			h.logger.Warn().Err(err).Str("question", q.UUID).Msg("optimal path enrichment failed")
			resp.Failed++
			continue
		}
		if err := h.store.UpdatePayload(r.Context(), q); err != nil {
			h.logger.Warn().Err(err).Str("question", q.UUID).Msg("persisting enriched payload failed")
			resp.Failed++
			continue
		}
		resp.Enriched++
	}

	respondJSON(w, http.StatusOK, resp)
}
