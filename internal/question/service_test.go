package question

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudhsk/prepsprint/internal/question/contentfilter"
	"github.com/anirudhsk/prepsprint/internal/taxonomy"
)

type stubStore struct {
	mu      sync.Mutex
	pool    []Question
	poolErr error
	saved   []Question
}

func (s *stubStore) CachedQuestions(_ context.Context, _ BatchRequest) ([]Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool, s.poolErr
}

func (s *stubStore) SaveGenerated(_ context.Context, qs []Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, qs...)
	return nil
}

type memoryCache struct {
	mu    sync.Mutex
	store map[string]Batch
}

func newMemoryCache() *memoryCache {
	return &memoryCache{store: map[string]Batch{}}
}

func (c *memoryCache) key(req BatchRequest) string {
	return strings.Join([]string{
		string(req.Exam), string(req.Topic), string(req.Subtopic),
		req.Difficulty, fmt.Sprint(req.Count), strings.Join(req.Exclude, "|"),
	}, ":")
}

func (c *memoryCache) Get(_ context.Context, req BatchRequest) (*Batch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if batch, ok := c.store[c.key(req)]; ok {
		return &batch, nil
	}
	return nil, nil
}

func (c *memoryCache) Set(_ context.Context, req BatchRequest, batch Batch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[c.key(req)] = batch
	return nil
}

type stubGenerator struct {
	mu      sync.Mutex
	batches [][]Question
	err     error
	calls   int
	avoid   [][]string
}

func (g *stubGenerator) Generate(_ context.Context, _ BatchRequest, avoid []string) ([]Question, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.avoid = append(g.avoid, avoid)
	if g.err != nil {
		return nil, g.err
	}
	if len(g.batches) == 0 {
		return nil, nil
	}
	next := g.batches[0]
	g.batches = g.batches[1:]
	return next, nil
}

func (g *stubGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func mcq(id, text string) Question {
	return Question{
		UUID:         id,
		QuestionText: text,
		Options: []Option{
			{Text: "one"}, {Text: "two"}, {Text: "three"}, {Text: "four"},
		},
		CorrectOptionIndex: 0,
		FSMTag:             "chain-rule",
		Difficulty:         DifficultyMedium,
		Topic:              "calculus",
		Subtopic:           "derivatives",
	}
}

func testService(t *testing.T, store *stubStore, cache BatchCache, gen Generator) *Service {
	t.Helper()
	catalog, err := taxonomy.NewCatalog([]taxonomy.Node{
		{Exam: taxonomy.ExamJEEMain, Topic: "calculus", TopicName: "Calculus", Subtopic: "derivatives", Subject: "Mathematics", ClassLevel: 12},
	})
	require.NoError(t, err)

	filter := contentfilter.New(map[string]contentfilter.Rule{
		"calculus": {Forbidden: contentfilter.MustPatterns(`(?i)mitochondria`)},
	}, zerolog.New(io.Discard))

	svc := NewService(store, cache, gen, filter, catalog, zerolog.New(io.Discard))
	svc.retryWait = time.Millisecond
	return svc
}

func testBatchRequest(count int) BatchRequest {
	return BatchRequest{
		UserID:     "user-1",
		Exam:       taxonomy.ExamJEEMain,
		Topic:      "calculus",
		Subtopic:   "derivatives",
		Count:      count,
		Difficulty: DifficultyMedium,
	}
}

func TestQuestionsForUserServesFromPool(t *testing.T) {
	store := &stubStore{pool: []Question{mcq("q1", "Differentiate x^2"), mcq("q2", "Differentiate sin x")}}
	cache := newMemoryCache()
	gen := &stubGenerator{}
	svc := testService(t, store, cache, gen)

	batch, err := svc.QuestionsForUser(context.Background(), testBatchRequest(2))
	require.NoError(t, err)
	assert.Len(t, batch.Questions, 2)
	assert.Equal(t, "store", batch.Source)
	assert.Equal(t, 0, gen.callCount())
	assert.Len(t, cache.store, 1, "batch should be cached")
}

func TestQuestionsForUserServesFromCacheSecondTime(t *testing.T) {
	store := &stubStore{pool: []Question{mcq("q1", "Differentiate x^2")}}
	cache := newMemoryCache()
	svc := testService(t, store, cache, &stubGenerator{})

	req := testBatchRequest(1)
	_, err := svc.QuestionsForUser(context.Background(), req)
	require.NoError(t, err)

	store.mu.Lock()
	store.poolErr = errors.New("db down")
	store.mu.Unlock()

	batch, err := svc.QuestionsForUser(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "cache", batch.Source)
	assert.Len(t, batch.Questions, 1)
}

func TestQuestionsForUserGeneratesWhenPoolShort(t *testing.T) {
	store := &stubStore{pool: []Question{mcq("q1", "Differentiate x^2")}}
	gen := &stubGenerator{batches: [][]Question{{mcq("g1", "Differentiate cos x")}}}
	svc := testService(t, store, newMemoryCache(), gen)

	batch, err := svc.QuestionsForUser(context.Background(), testBatchRequest(2))
	require.NoError(t, err)
	assert.Len(t, batch.Questions, 2)
	assert.Equal(t, "generated", batch.Source)
	assert.Equal(t, [][]string{{"Differentiate x^2"}}, gen.avoid, "pool texts should feed the dedup list")

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.saved, 1, "generated questions should be persisted")
}

func TestQuestionsForUserSkipsExcludedTexts(t *testing.T) {
	store := &stubStore{pool: []Question{
		mcq("q1", "Differentiate x^2"),
		mcq("q2", "Differentiate sin x"),
	}}
	svc := testService(t, store, newMemoryCache(), &stubGenerator{})

	req := testBatchRequest(1)
	req.Exclude = []string{"Differentiate x^2"}

	batch, err := svc.QuestionsForUser(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, batch.Questions, 1)
	assert.Equal(t, "q2", batch.Questions[0].UUID)
}

func TestQuestionsForUserFiltersOffTopic(t *testing.T) {
	store := &stubStore{pool: []Question{
		mcq("q1", "Differentiate x^2"),
		mcq("q2", "The mitochondria is the powerhouse of the cell"),
	}}
	svc := testService(t, store, newMemoryCache(), &stubGenerator{})

	batch, err := svc.QuestionsForUser(context.Background(), testBatchRequest(1))
	require.NoError(t, err)
	require.Len(t, batch.Questions, 1)
	assert.Equal(t, "q1", batch.Questions[0].UUID)
}

func TestQuestionsForUserRetriesOnceThenErrors(t *testing.T) {
	offTopic := mcq("bad", "The mitochondria is the powerhouse of the cell")
	store := &stubStore{}
	gen := &stubGenerator{batches: [][]Question{{offTopic}, {offTopic}}}
	svc := testService(t, store, newMemoryCache(), gen)

	_, err := svc.QuestionsForUser(context.Background(), testBatchRequest(1))
	require.ErrorIs(t, err, ErrNoValidQuestions)
	assert.Equal(t, 2, gen.callCount(), "one retry after the first all-rejected batch")
}

func TestQuestionsForUserRetrySucceeds(t *testing.T) {
	offTopic := mcq("bad", "The mitochondria is the powerhouse of the cell")
	store := &stubStore{}
	gen := &stubGenerator{batches: [][]Question{{offTopic}, {mcq("g1", "Differentiate tan x")}}}
	svc := testService(t, store, newMemoryCache(), gen)

	batch, err := svc.QuestionsForUser(context.Background(), testBatchRequest(1))
	require.NoError(t, err)
	require.Len(t, batch.Questions, 1)
	assert.Equal(t, "g1", batch.Questions[0].UUID)
}

func TestQuestionsForUserPartialPoolSurvivesGeneratorError(t *testing.T) {
	store := &stubStore{pool: []Question{mcq("q1", "Differentiate x^2")}}
	gen := &stubGenerator{err: errors.New("model down")}
	svc := testService(t, store, newMemoryCache(), gen)

	batch, err := svc.QuestionsForUser(context.Background(), testBatchRequest(3))
	require.NoError(t, err)
	assert.Len(t, batch.Questions, 1)
	assert.Equal(t, "store", batch.Source)
}

func TestAssignOptionIDs(t *testing.T) {
	qs := []Question{mcq("q1", "Differentiate x^2")}
	qs[0].Options[2].ID = "opt-existing"

	assignOptionIDs(qs)

	seen := map[string]struct{}{}
	for _, opt := range qs[0].Options {
		assert.NotEmpty(t, opt.ID)
		_, dup := seen[opt.ID]
		assert.False(t, dup, "option IDs must be unique within a question")
		seen[opt.ID] = struct{}{}
	}
	assert.Equal(t, "opt-existing", qs[0].Options[2].ID, "existing IDs are kept")
	assert.True(t, strings.HasPrefix(qs[0].Options[0].ID, "opt-0-"))
}

func TestAssignOptionIDsRegeneratesDuplicates(t *testing.T) {
	qs := []Question{mcq("q1", "Differentiate x^2")}
	qs[0].Options[1].ID = "opt-dup"
	qs[0].Options[3].ID = "opt-dup"

	assignOptionIDs(qs)

	assert.Equal(t, "opt-dup", qs[0].Options[1].ID, "first holder of an ID keeps it")
	assert.NotEqual(t, "opt-dup", qs[0].Options[3].ID)
	assert.True(t, strings.HasPrefix(qs[0].Options[3].ID, "opt-3-"))

	seen := map[string]struct{}{}
	for _, opt := range qs[0].Options {
		_, dup := seen[opt.ID]
		assert.False(t, dup)
		seen[opt.ID] = struct{}{}
	}
}

func TestPrefetchWorkerWarmsCache(t *testing.T) {
	store := &stubStore{pool: []Question{mcq("q1", "Differentiate x^2")}}
	cache := newMemoryCache()
	svc := testService(t, store, cache, &stubGenerator{})

	queue := make(chan BatchRequest, 1)
	queue <- testBatchRequest(1)

	worker := NewPrefetchWorker(svc, queue, zerolog.New(io.Discard), time.Second)
	go worker.Run()

	assert.Eventually(t, func() bool {
		cache.mu.Lock()
		defer cache.mu.Unlock()
		return len(cache.store) == 1
	}, time.Second, 10*time.Millisecond)
	worker.Stop()
}

func TestGeneratedDiagramQuestionsAreNotified(t *testing.T) {
	withDiagram := mcq("g1", "Differentiate cos x")
	withDiagram.DiagramRequired = true
	withDiagram.VisualDescription = "graph of cos x with tangent at origin"
	plain := mcq("g2", "Differentiate tan x")

	gen := &stubGenerator{batches: [][]Question{{withDiagram, plain}}}
	svc := testService(t, &stubStore{}, newMemoryCache(), gen)

	var notified []string
	svc.SetDiagramNotify(func(q Question) {
		notified = append(notified, q.UUID)
	})

	_, err := svc.QuestionsForUser(context.Background(), testBatchRequest(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, notified)
}
