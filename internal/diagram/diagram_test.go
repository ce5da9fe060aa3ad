package diagram

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRenderer struct {
	image []byte
	err   error
}

func (r *stubRenderer) Render(_ context.Context, _ string) ([]byte, error) {
	return r.image, r.err
}

type stubBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (s *stubBlobStore) Put(_ context.Context, objectName string, data []byte, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[objectName] = data
	return "https://cdn.example.com/" + objectName, nil
}

type stubPatcher struct {
	mu      sync.Mutex
	patched map[string]string
}

func (p *stubPatcher) SetDiagramURL(_ context.Context, questionUUID, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.patched == nil {
		p.patched = map[string]string{}
	}
	p.patched[questionUUID] = url
	return nil
}

func TestGeneratePatchesQuestion(t *testing.T) {
	store := &stubBlobStore{}
	patcher := &stubPatcher{}
	svc := NewService(&stubRenderer{image: []byte("png-bytes")}, store, patcher, zerolog.New(io.Discard))

	url, err := svc.Generate(context.Background(), Request{
		QuestionUUID:      "q-1",
		VisualDescription: "a block on an inclined plane with friction arrows",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/diagrams/q-1.png", url)

	assert.Equal(t, []byte("png-bytes"), store.objects["diagrams/q-1.png"])
	assert.Equal(t, url, patcher.patched["q-1"])
}

func TestGenerateRequiresDescription(t *testing.T) {
	svc := NewService(&stubRenderer{}, &stubBlobStore{}, &stubPatcher{}, zerolog.New(io.Discard))
	_, err := svc.Generate(context.Background(), Request{QuestionUUID: "q-1"})
	assert.Error(t, err)
}

func TestGenerateRenderFailure(t *testing.T) {
	svc := NewService(&stubRenderer{err: errors.New("model overloaded")}, &stubBlobStore{}, &stubPatcher{}, zerolog.New(io.Discard))
	_, err := svc.Generate(context.Background(), Request{QuestionUUID: "q-1", VisualDescription: "circuit"})
	assert.Error(t, err)
}

func TestWorkerDrainsQueue(t *testing.T) {
	store := &stubBlobStore{}
	patcher := &stubPatcher{}
	svc := NewService(&stubRenderer{image: []byte("png")}, store, patcher, zerolog.New(io.Discard))

	queue := make(chan Request, 1)
	queue <- Request{QuestionUUID: "q-7", VisualDescription: "ray diagram for a convex lens"}

	worker := NewWorker(svc, queue, zerolog.New(io.Discard), time.Second)
	go worker.Run()

	assert.Eventually(t, func() bool {
		patcher.mu.Lock()
		defer patcher.mu.Unlock()
		return patcher.patched["q-7"] != ""
	}, time.Second, 10*time.Millisecond)
	worker.Stop()
}
