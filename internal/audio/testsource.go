package audio

import (
	"context"
	"sync/atomic"
)

// ChunkSource is a Source backed by an in-memory channel of PCM chunks,
// used by the control plane to feed live WebSocket binary frames into
// the pipeline, and by tests to feed it without a real microphone.
type ChunkSource struct {
	chunks chan []byte
	active atomic.Bool
}

// NewChunkSource creates a ChunkSource with the given buffered capacity.
func NewChunkSource(capacity int) *ChunkSource {
	return &ChunkSource{chunks: make(chan []byte, capacity)}
}

// Push enqueues a chunk of PCM bytes to be returned by a future ReadChunk.
// It is a no-op once the source has been stopped.
func (s *ChunkSource) Push(chunk []byte) {
	if !s.active.Load() {
		return
	}
	select {
	case s.chunks <- chunk:
	default:
	}
}

func (s *ChunkSource) Start(ctx context.Context) error {
	s.active.Store(true)
	return nil
}

func (s *ChunkSource) Stop() error {
	s.active.Store(false)
	return nil
}

func (s *ChunkSource) ReadChunk() ([]byte, error) {
	select {
	case c := <-s.chunks:
		return c, nil
	default:
		return nil, nil
	}
}

func (s *ChunkSource) IsActive() bool {
	return s.active.Load()
}
