package vad

import (
	"testing"

	"github.com/nmtuan2007/echo-flux/internal/audio"
	"github.com/stretchr/testify/require"
)

// scriptedModel returns a fixed sequence of speech probabilities, one per
// Infer call, repeating the last value once exhausted.
type scriptedModel struct {
	probs []float64
	idx   int
}

func (m *scriptedModel) Infer(window []float32, sampleRate int, state HiddenState) (float64, HiddenState, error) {
	p := m.probs[m.idx]
	if m.idx < len(m.probs)-1 {
		m.idx++
	}
	return p, HiddenState{}, nil
}

func silentFrame() []byte {
	return make([]byte, WindowSamples*2)
}

func TestGateFailsOpenWithoutModel(t *testing.T) {
	g := New(DefaultConfig(), nil)
	require.True(t, g.Process(silentFrame()))
}

func TestGateRequiresConsecutiveSpeechFramesBeforeTransition(t *testing.T) {
	cfg := DefaultConfig()
	model := &scriptedModel{probs: []float64{0.9}}
	g := New(cfg, model)

	require.False(t, g.Process(silentFrame()))
	require.False(t, g.Process(silentFrame()))
	require.True(t, g.Process(silentFrame()))
}

func TestGateRequiresConsecutiveSilenceFramesBeforeTransition(t *testing.T) {
	cfg := DefaultConfig()
	model := &scriptedModel{probs: []float64{0.9, 0.9, 0.9}}
	g := New(cfg, model)

	for range 3 {
		g.Process(silentFrame())
	}
	require.True(t, g.IsSpeech())

	model.probs = []float64{0.1}
	model.idx = 0
	for i := 0; i < cfg.SilencePadFrames-1; i++ {
		require.True(t, g.Process(silentFrame()))
	}
	require.False(t, g.Process(silentFrame()))
}

func TestGateResetClearsHysteresisState(t *testing.T) {
	cfg := DefaultConfig()
	model := &scriptedModel{probs: []float64{0.9, 0.9, 0.9}}
	g := New(cfg, model)
	for range 3 {
		g.Process(silentFrame())
	}
	require.True(t, g.IsSpeech())

	g.Reset()
	require.False(t, g.IsSpeech())
	require.Empty(t, g.accum)
}

func TestGateAccumulatesPartialWindowsAcrossFrames(t *testing.T) {
	cfg := DefaultConfig()
	model := &scriptedModel{probs: []float64{0.9}}
	g := New(cfg, model)

	half := audio.Float32ToBytes(make([]float32, WindowSamples/2))
	g.Process(half)
	require.Len(t, g.accum, WindowSamples/2)
	g.Process(half)
	require.Empty(t, g.accum)
}
