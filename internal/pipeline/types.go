// Package pipeline orchestrates the four concurrent workers — capture,
// decoder, translator, and emitter — that turn raw PCM frames into
// partial/final transcripts and translations, grounded on the
// goroutine/bounded-channel orchestration style of
// hubenschmidt-asr-llm-tts's internal/pipeline/pipeline.go.
package pipeline

import (
	"time"

	"github.com/nmtuan2007/echo-flux/internal/asr"
	"github.com/nmtuan2007/echo-flux/internal/audio"
	"github.com/nmtuan2007/echo-flux/internal/denoise"
	"github.com/nmtuan2007/echo-flux/internal/translation"
	"github.com/nmtuan2007/echo-flux/internal/vad"
)

const (
	// audioQueueCapacity bounds buffered PCM frames (cap 500 frames at
	// 20ms each is roughly 10s of audio).
	audioQueueCapacity = 500

	// translationQueueCapacity bounds queued translation jobs.
	translationQueueCapacity = 100

	// resultQueueCapacity bounds queued outbound events awaiting the
	// emitter.
	resultQueueCapacity = 256

	// translationEnqueueTimeout is how long the decoder waits for room in
	// translation_queue before dropping the job.
	translationEnqueueTimeout = 500 * time.Millisecond

	// decoderPopTimeout bounds how long the decoder waits for the first
	// frame before checking the silence timer.
	decoderPopTimeout = 100 * time.Millisecond

	// decoderDrainBatch is how many additional frames the decoder drains
	// non-blocking once it has one, to amortize per-call overhead.
	decoderDrainBatch = 10

	// silenceFinalizeDelay is how long silence must persist after speech
	// before the decoder force-finalizes the current segment.
	silenceFinalizeDelay = 800 * time.Millisecond

	// emitterPollInterval is how often the emitter wakes to check
	// result_queue when nothing is immediately available.
	emitterPollInterval = 20 * time.Millisecond

	// workerJoinTimeout bounds how long Stop waits for all workers
	// together to exit before giving up.
	workerJoinTimeout = 2 * time.Second
)

// Config wires a Pipeline's collaborators for one session.
type Config struct {
	Source             audio.Source
	Denoiser           *denoise.Denoiser
	VadGate            *vad.Gate
	AsrEngine          *asr.Engine
	TranslationRouter  *translation.Router
	TranslationEnabled bool
	SourceLang         string
	TargetLang         string
	SessionID          string
	SampleRate         int
}

// Event is an outbound pipeline event, shaped after the ControlPlane
// outbound message schema so the control layer can serialize it
// directly.
type Event struct {
	Type               string  `json:"type"`
	Text               string  `json:"text,omitempty"`
	Translation        string  `json:"translation,omitempty"`
	IsFinal            bool    `json:"is_final"`
	EntryID            string  `json:"entry_id,omitempty"`
	TranslationBackend string  `json:"translation_backend,omitempty"`
	SourceText         string  `json:"source_text,omitempty"`
	Message            string  `json:"message,omitempty"`
	Timestamp          float64 `json:"timestamp"`
}

// Sink receives outbound pipeline events in emission order.
type Sink func(Event)
