package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/nmtuan2007/echo-flux/internal/audio"
	"github.com/nmtuan2007/echo-flux/internal/httpx"
)

// HTTPDecoder is a Decoder backed by a local decode sidecar process,
// grounded on the multipart WAV upload pattern used throughout the
// retrieved pack's ASR/TTS HTTP clients. The sidecar owns the native
// Whisper-style runtime; this client only encodes requests and decodes
// responses.
type HTTPDecoder struct {
	url    string
	client *http.Client
}

// NewHTTPDecoder creates an HTTPDecoder targeting the given sidecar base
// URL with a pooled HTTP client.
func NewHTTPDecoder(url string) *HTTPDecoder {
	return &HTTPDecoder{
		url:    url,
		client: httpx.NewPooledClient(4, 30*time.Second),
	}
}

type loadRequest struct {
	ModelSize   string `json:"model_size"`
	Device      string `json:"device"`
	ComputeType string `json:"compute_type"`
}

type loadResponse struct {
	Device      string `json:"device"`
	ComputeType string `json:"compute_type"`
}

// Load asks the sidecar to load a model with the given config, returning
// whichever device/compute type the sidecar actually resolved to.
func (d *HTTPDecoder) Load(cfg Config) (ResolvedDevice, error) {
	body, err := json.Marshal(loadRequest{
		ModelSize:   string(cfg.ModelSize),
		Device:      string(cfg.Device),
		ComputeType: string(cfg.ComputeType),
	})
	if err != nil {
		return ResolvedDevice{}, fmt.Errorf("asr: encode load request: %w", err)
	}

	resp, err := d.client.Post(d.url+"/load", "application/json", bytes.NewReader(body))
	if err != nil {
		return ResolvedDevice{}, fmt.Errorf("asr: load request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ResolvedDevice{}, fmt.Errorf("asr: sidecar load returned status %d", resp.StatusCode)
	}

	var out loadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ResolvedDevice{}, fmt.Errorf("asr: decode load response: %w", err)
	}
	return ResolvedDevice{Device: Device(out.Device), ComputeType: ComputeType(out.ComputeType)}, nil
}

// Unload asks the sidecar to release the loaded model.
func (d *HTTPDecoder) Unload() error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, d.url+"/unload", nil)
	if err != nil {
		return fmt.Errorf("asr: build unload request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("asr: unload request failed: %w", err)
	}
	defer resp.Body.Close()
	return nil
}

type transcribeResponseSegment struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Text        string  `json:"text"`
	AvgLogprob  float64 `json:"avg_logprob"`
	NoSpeechProb float64 `json:"no_speech_prob"`
}

type transcribeResponse struct {
	Segments []transcribeResponseSegment `json:"segments"`
}

// Transcribe posts the window as a multipart WAV upload along with the
// fixed greedy decode options and returns the decoder's segments.
func (d *HTTPDecoder) Transcribe(samples []float32, sampleRate int, opts DecodeOptions) ([]DecodedSegment, error) {
	wav := audio.SamplesToWAV(samples, sampleRate)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio", "window.wav")
	if err != nil {
		return nil, fmt.Errorf("asr: build multipart part: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return nil, fmt.Errorf("asr: write multipart audio: %w", err)
	}

	_ = writer.WriteField("beam", itoa(opts.Beam))
	_ = writer.WriteField("best_of", itoa(opts.BestOf))
	_ = writer.WriteField("temperature", ftoa(opts.Temperature))
	_ = writer.WriteField("language", opts.Language)
	_ = writer.WriteField("condition_on_previous_text", btoa(opts.ConditionOnPrevious))
	_ = writer.WriteField("vad_filter", btoa(!opts.SuppressInternalVAD))

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("asr: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, d.url+"/transcribe", &buf)
	if err != nil {
		return nil, fmt.Errorf("asr: build transcribe request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("asr: transcribe request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("asr: sidecar transcribe returned status %d", resp.StatusCode)
	}

	var out transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("asr: decode transcribe response: %w", err)
	}

	segments := make([]DecodedSegment, 0, len(out.Segments))
	for _, s := range out.Segments {
		segments = append(segments, DecodedSegment{
			Start:      s.Start,
			End:        s.End,
			Text:       s.Text,
			AvgLogprob: s.AvgLogprob,
		})
	}
	return segments, nil
}
