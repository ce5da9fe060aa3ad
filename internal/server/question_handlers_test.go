package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudhsk/prepsprint/internal/question"
)

type stubFetcher struct {
	req   question.BatchRequest
	batch question.Batch
	err   error
	calls int
}

func (s *stubFetcher) QuestionsForUser(_ context.Context, req question.BatchRequest) (question.Batch, error) {
	s.req = req
	s.calls++
	return s.batch, s.err
}

func testQuestionHandlers(t *testing.T, fetcher *stubFetcher) *QuestionHandlers {
	t.Helper()
	return NewQuestionHandlers(fetcher, adminCatalog(t), zerolog.New(io.Discard))
}

func TestFetchBatch(t *testing.T) {
	fetcher := &stubFetcher{batch: question.Batch{
		Questions: []question.Question{{UUID: "q-1"}, {UUID: "q-2"}},
		Source:    "store",
	}}
	h := testQuestionHandlers(t, fetcher)

	req := authedRequest(http.MethodPost, "/v1/questions/batch", FetchBatchRequest{
		Exam:     "jee-main",
		Topic:    "calculus",
		Subtopic: "derivatives",
		Count:    2,
	})
	rec := httptest.NewRecorder()
	h.FetchBatch(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, fetcher.req.Count)
	assert.Equal(t, testUserID.String(), fetcher.req.UserID)
}

func TestFetchBatchRejectsNonPositiveCount(t *testing.T) {
	for _, count := range []int{0, -3} {
		fetcher := &stubFetcher{}
		h := testQuestionHandlers(t, fetcher)

		req := authedRequest(http.MethodPost, "/v1/questions/batch", FetchBatchRequest{
			Exam:     "jee-main",
			Topic:    "calculus",
			Subtopic: "derivatives",
			Count:    count,
		})
		rec := httptest.NewRecorder()
		h.FetchBatch(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "count %d", count)
		assert.Contains(t, rec.Body.String(), "count")
		assert.Zero(t, fetcher.calls, "invalid count never reaches the service")
	}
}

func TestFetchBatchUnknownTaxonomy(t *testing.T) {
	h := testQuestionHandlers(t, &stubFetcher{})

	req := authedRequest(http.MethodPost, "/v1/questions/batch", FetchBatchRequest{
		Exam:     "jee-main",
		Topic:    "calculus",
		Subtopic: "alchemy",
		Count:    3,
	})
	rec := httptest.NewRecorder()
	h.FetchBatch(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown_taxonomy_node")
}

func TestFetchBatchNoValidQuestions(t *testing.T) {
	h := testQuestionHandlers(t, &stubFetcher{err: question.ErrNoValidQuestions})

	req := authedRequest(http.MethodPost, "/v1/questions/batch", FetchBatchRequest{
		Exam:     "jee-main",
		Topic:    "calculus",
		Subtopic: "derivatives",
		Count:    3,
	})
	rec := httptest.NewRecorder()
	h.FetchBatch(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
