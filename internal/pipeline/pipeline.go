package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nmtuan2007/echo-flux/internal/metrics"
)

// Pipeline is the per-session capture -> decoder -> translator ->
// emitter orchestration. AsrEngine and VadGate are owned exclusively by
// the decoder goroutine; TranslationRouter is owned by the translator
// goroutine. No lock is held across an inference call.
type Pipeline struct {
	cfg  Config
	sink Sink

	running atomic.Bool
	wg      sync.WaitGroup

	audioQueue       chan []byte
	translationQueue chan translationJob
	resultQueue      chan Event

	stopCh chan struct{}
}

type translationJob struct {
	text    string
	entryID string
}

// New creates a Pipeline for one session. sink receives outbound events
// in emission order.
func New(cfg Config, sink Sink) *Pipeline {
	return &Pipeline{
		cfg:              cfg,
		sink:             sink,
		audioQueue:       make(chan []byte, audioQueueCapacity),
		translationQueue: make(chan translationJob, translationQueueCapacity),
		resultQueue:      make(chan Event, resultQueueCapacity),
		stopCh:           make(chan struct{}),
	}
}

// Start launches the capture, decoder, translator, and emitter workers.
func (p *Pipeline) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return nil
	}

	if err := p.cfg.Source.Start(ctx); err != nil {
		p.running.Store(false)
		return err
	}

	p.wg.Add(4)
	go p.runCapture()
	go p.runDecoder()
	go p.runTranslator()
	go p.runEmitter()

	metrics.SessionsActive.Inc()
	return nil
}

// Stop performs forced teardown: stops running, stops the audio source,
// joins the workers with bounded timeouts, finalizes any buffered audio
// one last time, and unloads both models.
func (p *Pipeline) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	metrics.SessionsActive.Dec()
	close(p.stopCh)
	_ = p.cfg.Source.Stop()

	joined := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(joined)
	}()
	select {
	case <-joined:
	case <-time.After(workerJoinTimeout):
		slog.Warn("pipeline: worker join timed out during stop")
	}

	if p.cfg.AsrEngine != nil {
		if seg, err := p.cfg.AsrEngine.FinalizeCurrent(); err == nil && seg != nil && seg.Text != "" {
			p.emit(finalEvent(seg, ""))
		}
		_ = p.cfg.AsrEngine.UnloadModel()
	}
	if p.cfg.TranslationRouter != nil {
		_ = p.cfg.TranslationRouter.UnloadModel()
	}
	if p.cfg.Denoiser != nil {
		p.cfg.Denoiser.Close()
	}
}

func (p *Pipeline) emit(evt Event) {
	evt.Timestamp = float64(time.Now().UnixNano()) / 1e9
	select {
	case p.resultQueue <- evt:
	default:
		slog.Warn("pipeline: result_queue full, dropping event", "type", evt.Type)
	}
}

func newEntryID() string {
	return uuid.NewString()
}
