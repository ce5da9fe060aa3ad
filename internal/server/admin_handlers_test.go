package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudhsk/prepsprint/internal/db/repository"
	"github.com/anirudhsk/prepsprint/internal/diagram"
	"github.com/anirudhsk/prepsprint/internal/genpipe"
	"github.com/anirudhsk/prepsprint/internal/question"
	"github.com/anirudhsk/prepsprint/internal/taxonomy"
)

type stubPipeline struct {
	question  *question.Question
	batch     []question.Question
	failures  []genpipe.ItemFailure
	tips      []string
	err       error
	enrichErr error
	lastReq   genpipe.GenRequest
}

func (s *stubPipeline) GenerateOne(_ context.Context, req genpipe.GenRequest) (*question.Question, error) {
	s.lastReq = req
	return s.question, s.err
}

func (s *stubPipeline) GenerateBatch(_ context.Context, req genpipe.GenRequest) ([]question.Question, []genpipe.ItemFailure, error) {
	s.lastReq = req
	return s.batch, s.failures, s.err
}

func (s *stubPipeline) GenerateTips(_ context.Context, req genpipe.GenRequest, _ int) ([]string, error) {
	s.lastReq = req
	return s.tips, s.err
}

func (s *stubPipeline) EnrichOptimalPath(_ context.Context, q *question.Question) error {
	if s.enrichErr != nil {
		return s.enrichErr
	}
	q.OptimalPath = question.OptimalPath{Exists: true, Steps: []string{"shortcut"}}
	return nil
}

type stubAdminStore struct {
	saved    []question.Question
	rejected []repository.RejectedItem
	pending  []question.Question
	updated  []string
}

func (s *stubAdminStore) SaveGenerated(_ context.Context, qs []question.Question) error {
	s.saved = append(s.saved, qs...)
	return nil
}

func (s *stubAdminStore) SaveRejected(_ context.Context, items []repository.RejectedItem) error {
	s.rejected = append(s.rejected, items...)
	return nil
}

func (s *stubAdminStore) MissingOptimalPath(_ context.Context, limit int) ([]question.Question, error) {
	if limit < len(s.pending) {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *stubAdminStore) UpdatePayload(_ context.Context, q *question.Question) error {
	s.updated = append(s.updated, q.UUID)
	return nil
}

type stubDiagrams struct {
	url string
	err error
}

func (s *stubDiagrams) Generate(context.Context, diagram.Request) (string, error) {
	return s.url, s.err
}

func adminCatalog(t *testing.T) *taxonomy.Catalog {
	t.Helper()
	catalog, err := taxonomy.NewCatalog([]taxonomy.Node{{
		Exam:       taxonomy.ExamJEEMain,
		Topic:      "calculus",
		TopicName:  "Calculus",
		Subtopic:   "derivatives",
		Subject:    "Mathematics",
		ClassLevel: 12,
	}})
	require.NoError(t, err)
	return catalog
}

func testAdminHandlers(t *testing.T, pipeline *stubPipeline, store *stubAdminStore, diagrams DiagramGenerator) *AdminHandlers {
	t.Helper()
	return NewAdminHandlers(pipeline, store, diagrams, adminCatalog(t), zerolog.New(io.Discard))
}

func postJSON(target string, body interface{}) *http.Request {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	return httptest.NewRequest(http.MethodPost, target, &buf)
}

func TestGenerateQuestion(t *testing.T) {
	pipeline := &stubPipeline{question: &question.Question{UUID: "q-1", QuestionText: "What is x?"}}
	store := &stubAdminStore{}
	h := testAdminHandlers(t, pipeline, store, nil)

	rec := httptest.NewRecorder()
	h.GenerateQuestion(rec, postJSON("/v1/generate-question", GenerateRequest{
		Exam:     "jee-main",
		Topic:    "calculus",
		Subtopic: "derivatives",
	}))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, store.saved, 1)
	assert.Equal(t, "Calculus", pipeline.lastReq.TopicName)
	assert.Equal(t, "Mathematics", pipeline.lastReq.Subject)
	assert.Equal(t, question.DifficultyMedium, pipeline.lastReq.Difficulty)
}

func TestGenerateQuestionUnknownTaxonomy(t *testing.T) {
	h := testAdminHandlers(t, &stubPipeline{}, &stubAdminStore{}, nil)

	rec := httptest.NewRecorder()
	h.GenerateQuestion(rec, postJSON("/v1/generate-question", GenerateRequest{
		Exam:     "jee-main",
		Topic:    "calculus",
		Subtopic: "alchemy",
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateQuestionUpstreamFailure(t *testing.T) {
	pipeline := &stubPipeline{err: errors.New("model unavailable")}
	h := testAdminHandlers(t, pipeline, &stubAdminStore{}, nil)

	rec := httptest.NewRecorder()
	h.GenerateQuestion(rec, postJSON("/v1/generate-question", GenerateRequest{
		Exam:     "jee-main",
		Topic:    "calculus",
		Subtopic: "derivatives",
	}))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGenerateBatchStagesFailures(t *testing.T) {
	pipeline := &stubPipeline{
		batch: []question.Question{{UUID: "q-1"}, {UUID: "q-2"}},
		failures: []genpipe.ItemFailure{
			{Index: 2, Stage: genpipe.StageStructure, Err: errors.New("three options")},
		},
	}
	store := &stubAdminStore{}
	h := testAdminHandlers(t, pipeline, store, nil)

	rec := httptest.NewRecorder()
	h.GenerateBatch(rec, postJSON("/v1/generate-batch", GenerateRequest{
		Exam:     "jee-main",
		Topic:    "calculus",
		Subtopic: "derivatives",
		Count:    3,
	}))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, store.saved, 2)
	require.Len(t, store.rejected, 1)
	assert.Equal(t, "calculus", store.rejected[0].Topic)
	assert.Equal(t, string(genpipe.StageStructure), store.rejected[0].Stage)

	var resp GenerateBatchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Generated, 2)
	assert.Equal(t, 1, resp.Rejected)
}

func TestGenerateDiagram(t *testing.T) {
	h := testAdminHandlers(t, &stubPipeline{}, &stubAdminStore{}, &stubDiagrams{url: "https://cdn.example.com/diagrams/q-1.png"})

	rec := httptest.NewRecorder()
	h.GenerateDiagram(rec, postJSON("/v1/generate-diagram", GenerateDiagramRequest{
		QuestionUUID:      "q-1",
		VisualDescription: "circle inscribed in a square",
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "diagrams/q-1.png")
}

func TestGenerateDiagramNotConfigured(t *testing.T) {
	h := testAdminHandlers(t, &stubPipeline{}, &stubAdminStore{}, nil)

	rec := httptest.NewRecorder()
	h.GenerateDiagram(rec, postJSON("/v1/generate-diagram", GenerateDiagramRequest{QuestionUUID: "q-1"}))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestEnrichQuestions(t *testing.T) {
	store := &stubAdminStore{pending: []question.Question{{UUID: "q-1"}, {UUID: "q-2"}}}
	h := testAdminHandlers(t, &stubPipeline{}, store, nil)

	rec := httptest.NewRecorder()
	h.EnrichQuestions(rec, postJSON("/v1/enrich-questions-batch", EnrichRequest{Limit: 10}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"q-1", "q-2"}, store.updated)

	var resp EnrichResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Scanned)
	assert.Equal(t, 2, resp.Enriched)
	assert.Equal(t, 0, resp.Failed)
}
