package question

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/anirudhsk/prepsprint/internal/question/contentfilter"
	"github.com/anirudhsk/prepsprint/internal/taxonomy"
)

// ErrNoValidQuestions means every fetched and generated question was
// rejected by the content filter, even after a retry. Callers surface this
// explicitly rather than serving an empty batch.
var ErrNoValidQuestions = errors.New("no valid questions available")

// BatchCache defines cache behavior (implemented by the Redis-backed Cache).
type BatchCache interface {
	Get(ctx context.Context, req BatchRequest) (*Batch, error)
	Set(ctx context.Context, req BatchRequest, batch Batch) error
}

// Store is the Postgres-backed question pool.
type Store interface {
	CachedQuestions(ctx context.Context, req BatchRequest) ([]Question, error)
	SaveGenerated(ctx context.Context, qs []Question) error
}

// Generator produces fresh questions when the pool runs dry.
type Generator interface {
	Generate(ctx context.Context, req BatchRequest, avoid []string) ([]Question, error)
}

// Service orchestrates question delivery: Redis cache, then the curated
// Postgres pool, then on-demand generation. Everything that leaves the
// service has passed the content filter and carries stable option IDs.
type Service struct {
	store     Store
	cache     BatchCache
	generator Generator
	filter    *contentfilter.Filter
	catalog   *taxonomy.Catalog
	logger    zerolog.Logger
	retryWait time.Duration

	// notifyDiagram, when set, receives freshly generated questions that
	// need a diagram. Delivery happens after persistence and never blocks.
	notifyDiagram func(Question)
}

func NewService(store Store, cache BatchCache, generator Generator, filter *contentfilter.Filter, catalog *taxonomy.Catalog, logger zerolog.Logger) *Service {
	return &Service{
		store:     store,
		cache:     cache,
		generator: generator,
		filter:    filter,
		catalog:   catalog,
		logger:    logger.With().Str("component", "question").Logger(),
		retryWait: 2 * time.Second,
	}
}

// SetDiagramNotify registers a sink for generated questions flagged as
// needing a diagram. Must be called before the service starts serving.
func (s *Service) SetDiagramNotify(fn func(Question)) {
	s.notifyDiagram = fn
}

// QuestionsForUser returns up to req.Count questions for one user,
// respecting the priority: Redis cache, curated pool, generation.
func (s *Service) QuestionsForUser(ctx context.Context, req BatchRequest) (Batch, error) {
	if req.Count <= 0 {
		return Batch{}, fmt.Errorf("invalid question count %d", req.Count)
	}

	if cached, err := s.cache.Get(ctx, req); err == nil && cached != nil && len(cached.Questions) >= req.Count {
		return Batch{Questions: cached.Questions[:req.Count], Source: "cache"}, nil
	} else if err != nil {
		s.logger.Warn().Err(err).Msg("cache read failed, falling through")
	}

	pool, err := s.store.CachedQuestions(ctx, req)
	if err != nil {
		return Batch{}, fmt.Errorf("question pool lookup: %w", err)
	}
	valid := s.filterValid(req, dropExcluded(req.Exclude, pool))

	source := "store"
	if len(valid) < req.Count {
		avoid := append(append([]string{}, req.Exclude...), questionTexts(valid)...)
		generated, genErr := s.generateValid(ctx, req, avoid)
		if genErr != nil {
			if len(valid) == 0 {
				return Batch{}, genErr
			}
			// A partial pool still serves; generation topping it up is
			// best effort.
			s.logger.Warn().Err(genErr).Int("have", len(valid)).Int("want", req.Count).
				Msg("generation top-up failed, serving partial pool")
		} else {
			valid = append(valid, generated...)
			source = "generated"
		}
	}

	if len(valid) == 0 {
		return Batch{}, ErrNoValidQuestions
	}
	if len(valid) > req.Count {
		valid = valid[:req.Count]
	}

	assignOptionIDs(valid)

	batch := Batch{Questions: valid, Source: source}
	if err := s.cache.Set(ctx, req, batch); err != nil {
		s.logger.Warn().Err(err).Msg("cache write failed")
	}
	return batch, nil
}

// generateValid runs the generator and content filter, retrying once with a
// short wait when filtering rejects the entire batch.
func (s *Service) generateValid(ctx context.Context, req BatchRequest, avoid []string) ([]Question, error) {
	var out []Question

	backoff := retry.WithMaxRetries(1, retry.NewConstant(s.retryWait))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		generated, err := s.generator.Generate(ctx, req, avoid)
		if err != nil {
			return err // generator has its own retry layer
		}
		valid := s.filterValid(req, generated)
		if len(valid) == 0 {
			s.logger.Warn().Int("generated", len(generated)).
				Msg("content filter rejected the entire generated batch, retrying")
			return retry.RetryableError(ErrNoValidQuestions)
		}
		out = valid
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNoValidQuestions) {
			return nil, ErrNoValidQuestions
		}
		return nil, fmt.Errorf("question generation: %w", err)
	}

	if err := s.store.SaveGenerated(ctx, out); err != nil {
		s.logger.Warn().Err(err).Msg("persisting generated questions failed")
	}

	if s.notifyDiagram != nil {
		for _, q := range out {
			if q.DiagramRequired && q.VisualDescription != "" {
				s.notifyDiagram(q)
			}
		}
	}
	return out, nil
}

// filterValid drops questions the content filter rejects, logging each drop.
func (s *Service) filterValid(req BatchRequest, qs []Question) []Question {
	// An unknown topic yields an empty name, which the filter treats as
	// having no rule, so it fails open.
	topicName, _ := s.catalog.TopicName(req.Exam, req.Topic)
	valid := make([]Question, 0, len(qs))
	for _, q := range qs {
		if !s.filter.IsValidForTopic(topicName, q.QuestionText) {
			s.logger.Info().Str("question", q.UUID).Str("topic", topicName).
				Msg("dropping off-topic question")
			continue
		}
		valid = append(valid, q)
	}
	return valid
}

// assignOptionIDs gives every option lacking one a stable local key.
// An incoming ID that collides with an earlier option in the same question
// is regenerated too, so IDs stay unique within a question.
func assignOptionIDs(qs []Question) {
	for qi := range qs {
		seen := make(map[string]struct{}, len(qs[qi].Options))
		for oi := range qs[qi].Options {
			id := qs[qi].Options[oi].ID
			for {
				if id != "" {
					if _, dup := seen[id]; !dup {
						break
					}
				}
				id = fmt.Sprintf("opt-%d-%d-%s", oi, time.Now().UnixMilli(), uuid.NewString()[:8])
			}
			seen[id] = struct{}{}
			qs[qi].Options[oi].ID = id
		}
	}
}

// dropExcluded removes pool rows whose text was already served.
func dropExcluded(exclude []string, qs []Question) []Question {
	if len(exclude) == 0 {
		return qs
	}
	seen := make(map[string]struct{}, len(exclude))
	for _, text := range exclude {
		seen[text] = struct{}{}
	}
	kept := make([]Question, 0, len(qs))
	for _, q := range qs {
		if _, dup := seen[q.QuestionText]; dup {
			continue
		}
		kept = append(kept, q)
	}
	return kept
}

func questionTexts(qs []Question) []string {
	texts := make([]string, len(qs))
	for i, q := range qs {
		texts[i] = q.QuestionText
	}
	return texts
}
