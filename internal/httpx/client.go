// Package httpx provides the pooled HTTP client construction shared by the
// ASR, translation, and VAD sidecar clients, grounded on
// hubenschmidt-asr-llm-tts's internal/pipeline/httpclient.go.
package httpx

import (
	"net/http"
	"time"
)

// NewPooledClient creates an http.Client with connection pooling and a
// tuned transport, suitable for repeated calls to a local inference
// sidecar over the lifetime of a process.
func NewPooledClient(poolSize int, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:          poolSize,
			MaxIdleConnsPerHost:   poolSize,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}
}
