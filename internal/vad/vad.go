// Package vad implements frame-level voice-activity detection with
// hysteresis, grounded on the pad-counter design in
// hubenschmidt-asr-llm-tts's internal/audio/vad.go and the hysteresis
// constants (3/8 frames) used by the original echo-flux VAD.
package vad

import (
	"log/slog"

	"github.com/nmtuan2007/echo-flux/internal/audio"
)

// WindowSamples is the Silero-style model's fixed input window, at the
// canonical 16kHz sample rate (32ms).
const WindowSamples = 512

// Config controls VadGate behavior.
type Config struct {
	Threshold        float64
	SpeechPadFrames  int
	SilencePadFrames int
	SampleRate       int
}

// DefaultConfig returns the spec-default hysteresis tuning.
func DefaultConfig() Config {
	return Config{
		Threshold:        0.5,
		SpeechPadFrames:  3,
		SilencePadFrames: 8,
		SampleRate:       audio.DefaultSampleRate,
	}
}

// HiddenState is the recurrent (h, c) state pair threaded through
// successive SpeechModel.Infer calls.
type HiddenState struct {
	H []float32
	C []float32
}

// SpeechModel is the neural voice-activity network: a Silero-style model
// taking a fixed-size window plus recurrent state and returning a speech
// probability plus updated state. It is an external collaborator — the
// engine does not care whether it is backed by ONNX Runtime, a remote
// inference service, or a test double.
type SpeechModel interface {
	// Infer runs one inference step over a WindowSamples-length window at
	// the given sample rate, returning the speech probability and the next
	// hidden state.
	Infer(window []float32, sampleRate int, state HiddenState) (prob float64, next HiddenState, err error)
}

// Gate is a frame-level speech/silence gate with hysteresis smoothing.
// It is owned exclusively by the pipeline's decoder thread — no locking.
type Gate struct {
	cfg   Config
	model SpeechModel

	accum []float32
	state HiddenState

	failOpen bool

	isSpeech         bool
	speechRunFrames  int
	silenceRunFrames int
}

// New creates a Gate. If model is nil the gate fails open: Process always
// returns true. A later inference error also switches the gate to
// fail-open.
func New(cfg Config, model SpeechModel) *Gate {
	g := &Gate{cfg: cfg, model: model}
	if model == nil {
		g.failOpen = true
		slog.Warn("vad: no speech model provided, failing open")
	}
	return g
}

// Process appends a PCM frame's samples and returns the current gate
// decision for this call, applying hysteresis across calls.
func (g *Gate) Process(frame []byte) bool {
	if g.failOpen {
		return true
	}

	samples := audio.BytesToFloat32(frame)
	g.accum = append(g.accum, samples...)

	frameIsSpeech := false
	for len(g.accum) >= WindowSamples {
		window := g.accum[:WindowSamples]
		g.accum = g.accum[WindowSamples:]

		prob, next, err := g.model.Infer(window, g.cfg.SampleRate, g.state)
		if err != nil {
			slog.Warn("vad: inference failed, failing open", "error", err)
			g.failOpen = true
			return true
		}
		g.state = next
		if prob > g.cfg.Threshold {
			frameIsSpeech = true
		}
	}

	return g.applyHysteresis(frameIsSpeech)
}

func (g *Gate) applyHysteresis(frameIsSpeech bool) bool {
	if frameIsSpeech {
		g.speechRunFrames++
		g.silenceRunFrames = 0
	} else {
		g.silenceRunFrames++
		g.speechRunFrames = 0
	}

	if !g.isSpeech && g.speechRunFrames >= g.cfg.SpeechPadFrames {
		g.isSpeech = true
	}
	if g.isSpeech && g.silenceRunFrames >= g.cfg.SilencePadFrames {
		g.isSpeech = false
	}

	return g.isSpeech
}

// Reset clears recurrent model state and hysteresis counters.
func (g *Gate) Reset() {
	g.accum = g.accum[:0]
	g.state = HiddenState{}
	g.isSpeech = false
	g.speechRunFrames = 0
	g.silenceRunFrames = 0
}

// IsSpeech reports the gate's current decision without processing a frame.
func (g *Gate) IsSpeech() bool {
	return g.isSpeech
}
