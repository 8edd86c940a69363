package pipeline

import (
	"log/slog"
	"time"

	"github.com/nmtuan2007/echo-flux/internal/metrics"
)

// runCapture reads PCM frames from the audio source and enqueues them.
// audio_queue is never blocked on: a full queue means stale samples, so
// the new frame is dropped rather than stalling capture.
func (p *Pipeline) runCapture() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		chunk, err := p.cfg.Source.ReadChunk()
		if err != nil {
			slog.Warn("pipeline: audio source read failed", "error", err)
			continue
		}
		if len(chunk) == 0 {
			time.Sleep(time.Millisecond)
			continue
		}

		select {
		case p.audioQueue <- chunk:
			metrics.AudioChunksTotal.Inc()
		default:
			// audio_queue full: this is realtime audio, stale samples are
			// worthless, so the frame is dropped.
			metrics.AudioChunksDropped.Inc()
		}
	}
}
