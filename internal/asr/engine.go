// Package asr implements the streaming ASR engine: a sliding audio
// window fed to a batch decoder, with segment-boundary commit policy
// and hallucination suppression, grounded on the pipeline orchestration
// idioms of hubenschmidt-asr-llm-tts's internal/pipeline package and the
// commit/device-fallback semantics of the original echo-flux
// faster_whisper_backend.
package asr

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nmtuan2007/echo-flux/internal/textclean"
)

// Engine wraps a Decoder with the streaming commit policy, hallucination
// suppression, and length sanity enforcement described for AsrEngine. It
// is owned exclusively by the pipeline's decoder thread; no locking.
type Engine struct {
	decoder Decoder
	window  *AudioWindow
	cfg     Config
	tuning  Tuning

	loaded       bool
	lastInfer    time.Time
	sampleRate   int
}

// NewEngine creates an Engine. The decoder is the external collaborator
// that performs batch inference; sampleRate is the canonical pipeline
// rate (16000).
func NewEngine(decoder Decoder, sampleRate int) *Engine {
	return &Engine{
		decoder:    decoder,
		window:     NewAudioWindow(sampleRate),
		sampleRate: sampleRate,
	}
}

// LoadModel transitions Idle -> Ready, resolving device/compute-type
// fallback: "auto" is resolved to a GPU attempt first, same as an
// explicit gpu request; a GPU attempt that fails to load retries on CPU
// with int8; an explicit cpu request is honored verbatim (subject only
// to the float16 -> int8 downgrade). The sidecar's actually-resolved
// device/compute-type, not the requested one, is what the engine keeps.
func (e *Engine) LoadModel(cfg Config) error {
	requested := cfg
	if requested.Device == DeviceAuto {
		requested.Device = DeviceGPU
	}

	resolvedCompute := ResolveComputeType(requested.Device, requested.ComputeType)
	attempt := requested
	attempt.ComputeType = resolvedCompute

	resolved, err := e.decoder.Load(attempt)
	if err != nil && requested.Device == DeviceGPU {
		slog.Warn("asr: gpu model load failed, retrying on cpu", "error", err)
		fallback := requested
		fallback.Device = DeviceCPU
		fallback.ComputeType = ResolveComputeType(DeviceCPU, requested.ComputeType)
		resolved, err = e.decoder.Load(fallback)
		if err == nil {
			attempt = fallback
		}
	}
	if err != nil {
		return fmt.Errorf("asr: model load failed: %w", err)
	}

	e.cfg = attempt
	if resolved.Device != "" {
		e.cfg.Device = resolved.Device
	}
	if resolved.ComputeType != "" {
		e.cfg.ComputeType = resolved.ComputeType
	}
	e.tuning = TuningFor(cfg.ModelSize)
	e.loaded = true
	e.window.Reset()
	e.lastInfer = time.Time{}
	return nil
}

// UnloadModel transitions Ready -> Idle.
func (e *Engine) UnloadModel() error {
	if !e.loaded {
		return nil
	}
	e.loaded = false
	e.window.Reset()
	return e.decoder.Unload()
}

// IsLoaded reports whether the engine is in the Ready state.
func (e *Engine) IsLoaded() bool {
	return e.loaded
}

// ResetStream drops the current window, discarding any buffered audio.
func (e *Engine) ResetStream() {
	e.window.Reset()
	e.lastInfer = time.Time{}
}

// TranscribeStream appends chunk to the window and applies the
// segment-boundary commit policy, returning at most one emitted
// segment.
func (e *Engine) TranscribeStream(chunk []float32) (*Segment, error) {
	if !e.loaded {
		return nil, nil
	}
	e.window.Append(chunk)

	now := time.Now()
	windowDuration := time.Duration(e.window.Duration() * float64(time.Second))

	overCap := windowDuration > e.tuning.MaxBufferDuration
	if !e.lastInfer.IsZero() && now.Sub(e.lastInfer) < e.tuning.InferenceInterval && !overCap {
		return nil, nil
	}
	if windowDuration < MinWindowBeforeFirstInference {
		return nil, nil
	}

	return e.runInference(now, overCap)
}

// FinalizeCurrent forces inference over whatever is buffered, emits it
// as a final segment, and clears the window.
func (e *Engine) FinalizeCurrent() (*Segment, error) {
	if !e.loaded || e.window.Len() == 0 {
		return nil, nil
	}
	segments, err := e.decode()
	if err != nil {
		slog.Warn("asr: finalize decode failed", "error", err)
		e.window.Reset()
		return nil, nil
	}
	seg := e.commitAllAsFinal(segments)
	e.window.Reset()
	return seg, nil
}

func (e *Engine) runInference(now time.Time, overCap bool) (*Segment, error) {
	segments, err := e.decode()
	e.lastInfer = now
	if err != nil {
		slog.Warn("asr: transient decode error, continuing", "error", err)
		return nil, nil
	}

	if len(segments) >= 2 {
		committed := segments[:len(segments)-1]
		cutSample := int(segments[len(segments)-2].End * float64(e.sampleRate))
		e.window.TruncateSamples(cutSample)
		return e.commitAllAsFinal(committed), nil
	}

	if overCap || windowSeconds(e.window) > FinalizationThreshold.Seconds() {
		seg := e.commitAllAsFinal(segments)
		e.window.Reset()
		return seg, nil
	}

	return e.joinOrForceFinal(segments), nil
}

func windowSeconds(w *AudioWindow) float64 {
	return w.Duration()
}

func (e *Engine) decode() ([]DecodedSegment, error) {
	return e.decoder.Transcribe(e.window.Samples(), e.sampleRate, GreedyOptions(e.cfg.Language))
}

func (e *Engine) commitAllAsFinal(segments []DecodedSegment) *Segment {
	if len(segments) == 0 {
		return nil
	}
	raw := joinSegmentText(segments)
	return e.finalizeText(raw, segments[0].Start, segments[len(segments)-1].End)
}

// joinOrForceFinal runs the three-pass cleaner over every decoded text,
// partial or not. A cleaned segment that drops below
// textclean.HallucinationThreshold is promoted to final and the window
// truncated, overriding the ordinary partial/cap/threshold decision -
// a hallucinating segment must never be left looping as an uncleaned
// partial just because it stayed under the buffer cap.
func (e *Engine) joinOrForceFinal(segments []DecodedSegment) *Segment {
	if len(segments) == 0 {
		return nil
	}
	raw := joinSegmentText(segments)
	if raw == "" {
		return nil
	}
	start, end := segments[0].Start, segments[len(segments)-1].End

	cleaned, hallucinated := textclean.Clean(raw)
	if hallucinated {
		seg := e.finalizeText(raw, start, end)
		e.window.Reset()
		return seg
	}

	return &Segment{
		Text:      cleaned,
		IsFinal:   false,
		StartTime: start,
		EndTime:   end,
	}
}

func (e *Engine) finalizeText(raw string, start, end float64) *Segment {
	cleaned, hallucinated := textclean.Clean(raw)
	duration := end - start
	if duration <= 0 {
		duration = e.window.Duration()
	}
	cleaned = textclean.EnforceLength(cleaned, duration)
	return &Segment{
		Text:         cleaned,
		IsFinal:      true,
		Hallucinated: hallucinated,
		StartTime:    start,
		EndTime:      end,
	}
}

func joinSegmentText(segments []DecodedSegment) string {
	out := ""
	for i, s := range segments {
		if i > 0 {
			out += " "
		}
		out += s.Text
	}
	return out
}
