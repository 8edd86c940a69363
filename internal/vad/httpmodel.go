package vad

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nmtuan2007/echo-flux/internal/httpx"
)

// HTTPModel is a SpeechModel backed by a local Silero VAD inference
// sidecar reached over HTTP, grounded on the Silero HTTP client pattern
// seen across the retrieved pack (request a probability for a PCM
// window, carry recurrent state by value between calls).
type HTTPModel struct {
	url    string
	client *http.Client
}

// NewHTTPModel creates an HTTPModel targeting the given sidecar URL.
func NewHTTPModel(url string) *HTTPModel {
	return &HTTPModel{
		url:    url,
		client: httpx.NewPooledClient(4, 5*time.Second),
	}
}

type inferRequest struct {
	Window     []float32 `json:"window"`
	SampleRate int       `json:"sample_rate"`
	H          []float32 `json:"h"`
	C          []float32 `json:"c"`
}

type inferResponse struct {
	Prob float64   `json:"prob"`
	H    []float32 `json:"h"`
	C    []float32 `json:"c"`
}

// Infer satisfies SpeechModel by POSTing the window and recurrent state
// to the sidecar's /vad/infer endpoint.
func (m *HTTPModel) Infer(window []float32, sampleRate int, state HiddenState) (float64, HiddenState, error) {
	body, err := json.Marshal(inferRequest{
		Window:     window,
		SampleRate: sampleRate,
		H:          state.H,
		C:          state.C,
	})
	if err != nil {
		return 0, HiddenState{}, fmt.Errorf("vad: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, m.url+"/vad/infer", bytes.NewReader(body))
	if err != nil {
		return 0, HiddenState{}, fmt.Errorf("vad: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, HiddenState{}, fmt.Errorf("vad: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, HiddenState{}, fmt.Errorf("vad: sidecar returned status %d", resp.StatusCode)
	}

	var out inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, HiddenState{}, fmt.Errorf("vad: decode response: %w", err)
	}

	return out.Prob, HiddenState{H: out.H, C: out.C}, nil
}
