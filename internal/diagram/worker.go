package diagram

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Worker drains diagram requests in the background so question delivery
// never waits on image generation.
type Worker struct {
	service   *Service
	queue     <-chan Request
	logger    zerolog.Logger
	timeout   time.Duration
	shutdownC chan struct{}
}

func NewWorker(service *Service, queue <-chan Request, logger zerolog.Logger, timeout time.Duration) *Worker {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Worker{
		service:   service,
		queue:     queue,
		logger:    logger.With().Str("component", "diagram-worker").Logger(),
		timeout:   timeout,
		shutdownC: make(chan struct{}),
	}
}

func (w *Worker) Run() {
	for {
		select {
		case <-w.shutdownC:
			w.logger.Info().Msg("diagram worker stopping")
			return
		case req := <-w.queue:
			w.handle(req)
		}
	}
}

func (w *Worker) handle(req Request) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	url, err := w.service.Generate(ctx, req)
	if err != nil {
		w.logger.Warn().Err(err).Str("question", req.QuestionUUID).Msg("diagram generation failed")
		return
	}
	w.logger.Debug().Str("question", req.QuestionUUID).Str("url", url).Msg("diagram ready")
}

func (w *Worker) Stop() {
	close(w.shutdownC)
}
