package pipeline

import (
	"log/slog"
	"time"

	"github.com/nmtuan2007/echo-flux/internal/asr"
	"github.com/nmtuan2007/echo-flux/internal/audio"
	"github.com/nmtuan2007/echo-flux/internal/metrics"
)

// runDecoder pops frames from audio_queue, batches what's immediately
// available, runs VadGate then AsrEngine, and drives the silence timer
// that force-finalizes an utterance after silenceFinalizeDelay.
func (p *Pipeline) runDecoder() {
	defer p.wg.Done()

	wasSpeech := false
	var silenceStart time.Time

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		frame, ok := p.popFirstFrame()
		if !ok {
			if wasSpeech {
				if silenceStart.IsZero() {
					silenceStart = time.Now()
				} else if time.Since(silenceStart) >= silenceFinalizeDelay {
					p.finalizeOnSilence()
					wasSpeech = false
					silenceStart = time.Time{}
				}
			}
			continue
		}

		frames := p.drainAdditionalFrames(frame)
		blob := combineFrames(frames)
		if p.cfg.Denoiser != nil {
			blob = audio.Float32ToBytes(p.cfg.Denoiser.Denoise(audio.BytesToFloat32(blob)))
		}

		speech := true
		if p.cfg.VadGate != nil {
			speech = p.cfg.VadGate.Process(blob)
		}

		if speech {
			if !wasSpeech {
				metrics.VADSpeechSegments.Inc()
			}
			wasSpeech = true
			silenceStart = time.Time{}
			p.decodeSpeech(blob)
			continue
		}

		if wasSpeech && silenceStart.IsZero() {
			silenceStart = time.Now()
		}
		if wasSpeech && time.Since(silenceStart) >= silenceFinalizeDelay {
			p.finalizeOnSilence()
			wasSpeech = false
			silenceStart = time.Time{}
		}
	}
}

// popFirstFrame waits up to decoderPopTimeout for one frame.
func (p *Pipeline) popFirstFrame() ([]byte, bool) {
	select {
	case frame := <-p.audioQueue:
		return frame, true
	case <-time.After(decoderPopTimeout):
		return nil, false
	case <-p.stopCh:
		return nil, false
	}
}

// drainAdditionalFrames opportunistically collects up to
// decoderDrainBatch more already-queued frames to amortize per-call
// decode overhead.
func (p *Pipeline) drainAdditionalFrames(first []byte) [][]byte {
	frames := make([][]byte, 0, decoderDrainBatch+1)
	frames = append(frames, first)
	for i := 0; i < decoderDrainBatch; i++ {
		select {
		case frame := <-p.audioQueue:
			frames = append(frames, frame)
		default:
			return frames
		}
	}
	return frames
}

func combineFrames(frames [][]byte) []byte {
	total := 0
	for _, f := range frames {
		total += len(f)
	}
	out := make([]byte, 0, total)
	for _, f := range frames {
		out = append(out, f...)
	}
	return out
}

func (p *Pipeline) decodeSpeech(blob []byte) {
	if p.cfg.AsrEngine == nil {
		return
	}
	samples := audio.BytesToFloat32(blob)

	start := time.Now()
	seg, err := p.cfg.AsrEngine.TranscribeStream(samples)
	metrics.StageDuration.WithLabelValues("decoder").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.Errors.WithLabelValues("decoder", "transcribe_stream").Inc()
		slog.Warn("pipeline: transcribe_stream failed, continuing", "error", err)
		return
	}
	p.handleSegment(seg)
}

func (p *Pipeline) finalizeOnSilence() {
	if p.cfg.AsrEngine == nil {
		return
	}
	seg, err := p.cfg.AsrEngine.FinalizeCurrent()
	if err != nil {
		metrics.Errors.WithLabelValues("decoder", "finalize_current").Inc()
		slog.Warn("pipeline: finalize_current failed", "error", err)
		return
	}
	if p.cfg.VadGate != nil {
		p.cfg.VadGate.Reset()
	}
	p.handleSegment(seg)
}

func (p *Pipeline) handleSegment(seg *asr.Segment) {
	if seg == nil || seg.Text == "" {
		return
	}

	if !seg.IsFinal {
		metrics.ASRSegmentsTotal.WithLabelValues("partial").Inc()
		p.emit(partialEvent(seg))
		return
	}

	metrics.ASRSegmentsTotal.WithLabelValues("final").Inc()
	if seg.Hallucinated {
		metrics.ASRHallucinationsTotal.Inc()
	}

	entryID := newEntryID()
	p.emit(finalEvent(seg, entryID))

	if p.cfg.TranslationEnabled && p.cfg.TranslationRouter != nil {
		p.enqueueTranslation(translationJob{text: seg.Text, entryID: entryID})
	}
}

func (p *Pipeline) enqueueTranslation(job translationJob) {
	timer := time.NewTimer(translationEnqueueTimeout)
	defer timer.Stop()
	select {
	case p.translationQueue <- job:
	case <-timer.C:
		slog.Warn("pipeline: translation_queue full, dropping job", "entry_id", job.entryID)
	}
}

func partialEvent(seg *asr.Segment) Event {
	return Event{Type: "partial", Text: seg.Text, IsFinal: false}
}

func finalEvent(seg *asr.Segment, entryID string) Event {
	return Event{Type: "final", Text: seg.Text, EntryID: entryID, IsFinal: true}
}
