package question

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// PrefetchWorker warms the cache for upcoming batches so an active session
// never blocks on generation. Sessions enqueue the next batch's request as
// soon as their remaining unseen count gets low.
type PrefetchWorker struct {
	service   *Service
	queue     <-chan BatchRequest
	logger    zerolog.Logger
	timeout   time.Duration
	shutdownC chan struct{}
}

func NewPrefetchWorker(service *Service, queue <-chan BatchRequest, logger zerolog.Logger, timeout time.Duration) *PrefetchWorker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PrefetchWorker{
		service:   service,
		queue:     queue,
		logger:    logger.With().Str("component", "prefetch").Logger(),
		timeout:   timeout,
		shutdownC: make(chan struct{}),
	}
}

func (w *PrefetchWorker) Run() {
	for {
		select {
		case <-w.shutdownC:
			w.logger.Info().Msg("prefetch worker stopping")
			return
		case req := <-w.queue:
			w.handle(req)
		}
	}
}

func (w *PrefetchWorker) handle(req BatchRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	// QuestionsForUser writes through to the cache; the result itself is
	// discarded here.
	if _, err := w.service.QuestionsForUser(ctx, req); err != nil {
		w.logger.Warn().Err(err).
			Str("exam", string(req.Exam)).
			Str("topic", string(req.Topic)).
			Msg("prefetch failed")
	}
}

func (w *PrefetchWorker) Stop() {
	close(w.shutdownC)
}
