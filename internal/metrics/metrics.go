// Package metrics exposes Prometheus collectors for the streaming
// pipeline, grounded on the promauto registration style of the
// teacher's internal/metrics/metrics.go, generalized from its
// call-center/LLM/RAG gauges to the VAD/ASR/translation domain.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_sessions_active",
		Help: "Currently running pipeline sessions",
	})

	AudioChunksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audio_chunks_processed_total",
		Help: "Total audio chunks accepted into audio_queue",
	})

	AudioChunksDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audio_chunks_dropped_total",
		Help: "Audio chunks dropped because audio_queue was full",
	})

	VADSpeechSegments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vad_speech_segments_total",
		Help: "Silence-to-speech transitions detected by VadGate",
	})

	ASRSegmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "asr_segments_total",
		Help: "AsrEngine segments emitted, by commit type",
	}, []string{"type"})

	ASRHallucinationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asr_hallucinations_total",
		Help: "Segments the hallucination cleaner flagged and force-finalized",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_stage_duration_seconds",
		Help:    "Per-stage processing latency",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.2, 0.3, 0.5, 0.8, 1.0, 2.0},
	}, []string{"stage"})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_errors_total",
		Help: "Error counts by stage and error type",
	}, []string{"stage", "error_type"})

	TranslationRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "translation_requests_total",
		Help: "Completed translation requests, by backend actually used",
	}, []string{"backend"})

	TranslationFailoversTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "translation_failovers_total",
		Help: "Times TranslationRouter permanently failed over to the local backend",
	})

	TranslationBackoffSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "translation_online_backoff_seconds",
		Help: "Current exponential backoff duration for the online translation backend",
	})
)
