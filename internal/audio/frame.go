// Package audio provides the wire-format and PCM conversion layer between an
// AudioSource and the canonical 16kHz mono float32 stream the VAD and ASR
// stages operate on.
package audio

import "context"

// DefaultSampleRate is the canonical sample rate every frame is normalized
// to before it reaches VadGate, per the single-canonical-rate invariant.
const DefaultSampleRate = 16000

// DefaultChunkMillis is the default source frame duration.
const DefaultChunkMillis = 20

// Frame is an immutable little-endian int16 mono PCM chunk at a fixed
// sample rate, produced by an AudioSource and consumed once by the
// pipeline's decoder loop.
type Frame struct {
	Samples    []byte
	SampleRate int
}

// Source produces raw PCM frames. Implementations may be a live microphone,
// a loopback capture, or a recorded-file reader used in tests; the engine
// does not care which. Resampling/downmixing to the canonical rate and mono
// happens inside the source.
type Source interface {
	Start(ctx context.Context) error
	Stop() error
	// ReadChunk returns the next available chunk of PCM bytes, or a nil/empty
	// slice if nothing is ready yet. It must not block longer than a few
	// frame periods.
	ReadChunk() ([]byte, error)
	IsActive() bool
}
