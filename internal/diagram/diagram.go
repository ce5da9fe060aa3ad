// Package diagram renders and stores question diagrams. Diagram delivery
// is fire-and-forget relative to question delivery: a session may show a
// question before its diagram resolves and patch the URL in later.
package diagram

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// timeoutThreshold classifies a slow render after the fact. There is no
// proactive cancellation at this mark; the fetch timeout handles that.
const timeoutThreshold = 50 * time.Second

// Renderer produces an image from a textual description.
type Renderer interface {
	Render(ctx context.Context, description string) ([]byte, error)
}

// BlobStore persists rendered images and returns a public URL.
type BlobStore interface {
	Put(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
}

// Patcher writes the resolved URL back onto the question row.
type Patcher interface {
	SetDiagramURL(ctx context.Context, questionUUID, url string) error
}

// Request asks for one diagram.
type Request struct {
	QuestionUUID      string
	VisualDescription string
}

// Service runs the render-upload-patch sequence.
type Service struct {
	renderer Renderer
	store    BlobStore
	patcher  Patcher
	logger   zerolog.Logger
}

func NewService(renderer Renderer, store BlobStore, patcher Patcher, logger zerolog.Logger) *Service {
	return &Service{
		renderer: renderer,
		store:    store,
		patcher:  patcher,
		logger:   logger.With().Str("component", "diagram").Logger(),
	}
}

// Generate renders the diagram, uploads it, and patches the question row.
// Returns the public URL.
func (s *Service) Generate(ctx context.Context, req Request) (string, error) {
	if req.VisualDescription == "" {
		return "", fmt.Errorf("question %s has no visual description", req.QuestionUUID)
	}

	started := time.Now()
	image, err := s.renderer.Render(ctx, req.VisualDescription)
	elapsed := time.Since(started)
	if err != nil {
		if elapsed > timeoutThreshold {
			return "", fmt.Errorf("diagram render timed out after %s: %w", elapsed.Round(time.Second), err)
		}
		return "", fmt.Errorf("diagram render: %w", err)
	}
	if elapsed > timeoutThreshold {
		s.logger.Warn().Dur("elapsed", elapsed).Str("question", req.QuestionUUID).
			Msg("diagram render exceeded the timeout threshold but completed")
	}

	objectName := fmt.Sprintf("diagrams/%s.png", req.QuestionUUID)
	url, err := s.store.Put(ctx, objectName, image, "image/png")
	if err != nil {
		return "", fmt.Errorf("diagram upload: %w", err)
	}

	if err := s.patcher.SetDiagramURL(ctx, req.QuestionUUID, url); err != nil {
		return "", fmt.Errorf("diagram url patch: %w", err)
	}
	return url, nil
}
