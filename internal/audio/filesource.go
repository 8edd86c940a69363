package audio

import (
	"context"
	"os"
	"sync/atomic"
)

// PCMFileSource replays a raw 16-bit PCM file in fixed-size chunks, for
// feeding recorded fixtures through the pipeline end-to-end without a
// live microphone or WebSocket client.
type PCMFileSource struct {
	data      []byte
	chunkSize int
	pos       int
	active    atomic.Bool
}

// NewPCMFileSource reads path fully into memory and prepares to replay
// it in chunkSize-byte chunks.
func NewPCMFileSource(path string, chunkSize int) (*PCMFileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &PCMFileSource{data: data, chunkSize: chunkSize}, nil
}

func (s *PCMFileSource) Start(ctx context.Context) error {
	s.active.Store(true)
	return nil
}

func (s *PCMFileSource) Stop() error {
	s.active.Store(false)
	return nil
}

// ReadChunk returns the next chunkSize-byte slice, or nil once the file
// is exhausted.
func (s *PCMFileSource) ReadChunk() ([]byte, error) {
	if !s.active.Load() || s.pos >= len(s.data) {
		return nil, nil
	}
	end := s.pos + s.chunkSize
	if end > len(s.data) {
		end = len(s.data)
	}
	chunk := s.data[s.pos:end]
	s.pos = end
	return chunk, nil
}

func (s *PCMFileSource) IsActive() bool {
	return s.active.Load()
}
