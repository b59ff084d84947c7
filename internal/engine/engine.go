// Package engine is the boundary to the on-device inference capability. The
// server treats it as a black box: given a normalized request, produce a
// result or a stream of text deltas.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ASSATALK/ios-project/internal/shared"
)

var ErrUnsupportedLibrary = errors.New("engine: unsupported library")

// Engine produces text for one request. GenerateStream calls onDelta for
// each incremental delta in order and returns once the stream is exhausted;
// the stream is finite and not restartable. Implementations may be called
// from multiple goroutines only when wrapped in Serialized.
type Engine interface {
	GenerateOnce(ctx context.Context, req *shared.GenerationRequest) (*shared.GenerationResult, error)
	GenerateStream(ctx context.Context, req *shared.GenerationRequest, onDelta func(delta string) error) error
}

// New builds the engine described by a packaged-model descriptor. Backends
// register by library name; the noop backend ships for development and UI
// work without model weights.
func New(desc *Descriptor) (Engine, error) {
	switch desc.Library {
	case "", "noop":
		return NewSerialized(NewNoop(desc.Model)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLibrary, desc.Library)
	}
}

// Serialized guards a singleton engine so at most one generation is in
// flight against the underlying model. All callers block on the same mutex.
type Serialized struct {
	mu    sync.Mutex
	inner Engine
}

func NewSerialized(inner Engine) *Serialized {
	return &Serialized{inner: inner}
}

func (s *Serialized) GenerateOnce(ctx context.Context, req *shared.GenerationRequest) (*shared.GenerationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.GenerateOnce(ctx, req)
}

func (s *Serialized) GenerateStream(ctx context.Context, req *shared.GenerationRequest, onDelta func(delta string) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.GenerateStream(ctx, req, onDelta)
}
