package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nmtuan2007/echo-flux/internal/httpx"
	"github.com/nmtuan2007/echo-flux/internal/textclean"
)

// LocalBackend is a local neural MT backend (MarianMT-class) reached
// through a CTranslate2-style runtime sidecar, grounded on original
// echo-flux's marian_backend.py: one-time checkpoint conversion cached
// on disk, a GPU self-test after load with fallback to CPU/int8, and
// batch translation with beam_size=2.
type LocalBackend struct {
	url       string
	client    *http.Client
	modelsDir string

	mu     sync.Mutex
	loaded bool
	model  string
}

// NewLocalBackend creates a LocalBackend against a local inference
// sidecar, with a models directory used to key the on-disk conversion
// cache.
func NewLocalBackend(url, modelsDir string) *LocalBackend {
	return &LocalBackend{
		url:       url,
		client:    httpx.NewPooledClient(4, 30*time.Second),
		modelsDir: modelsDir,
	}
}

// ct2Dir returns the per-model conversion cache directory, keyed by
// replacing '/' with '_' in the model name as original echo-flux does.
func (b *LocalBackend) ct2Dir(modelName string) string {
	safe := strings.ReplaceAll(modelName, "/", "_")
	return filepath.Join(b.modelsDir, "ct2", safe)
}

type localLoadRequest struct {
	Model     string `json:"model"`
	Ct2Dir    string `json:"ct2_dir"`
	Device    string `json:"device"`
	SelfTest  bool   `json:"self_test"`
}

type localLoadResponse struct {
	Device    string `json:"device"`
	Converted bool   `json:"converted"`
}

// Load asks the sidecar to load (converting on first use if necessary)
// the given model, self-testing on GPU and falling back to CPU/int8 if
// the self-test fails. If conversion fails, the partial cache directory
// is removed and a load error surfaces.
func (b *LocalBackend) Load(cfg Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	model := cfg.LocalModel
	if model == "" {
		model = "Helsinki-NLP/opus-mt-" + cfg.SourceLang + "-" + cfg.TargetLang
	}
	ct2Dir := b.ct2Dir(model)

	if err := b.loadOnDevice(model, ct2Dir, "gpu", true); err != nil {
		os.RemoveAll(ct2Dir)
		if err2 := b.loadOnDevice(model, ct2Dir, "cpu", false); err2 != nil {
			os.RemoveAll(ct2Dir)
			return fmt.Errorf("translation: local model load failed on cpu after gpu failure: %w", err2)
		}
	}

	b.model = model
	b.loaded = true
	return nil
}

func (b *LocalBackend) loadOnDevice(model, ct2Dir, device string, selfTest bool) error {
	body, err := json.Marshal(localLoadRequest{Model: model, Ct2Dir: ct2Dir, Device: device, SelfTest: selfTest})
	if err != nil {
		return fmt.Errorf("translation: encode local load request: %w", err)
	}
	resp, err := b.client.Post(b.url+"/load", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("translation: local load request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("translation: local sidecar load returned status %d", resp.StatusCode)
	}
	var out localLoadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("translation: decode local load response: %w", err)
	}
	return nil
}

// Unload releases the local model.
func (b *LocalBackend) Unload() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.loaded {
		return nil
	}
	b.loaded = false

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, b.url+"/unload", nil)
	if err != nil {
		return fmt.Errorf("translation: build local unload request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("translation: local unload request failed: %w", err)
	}
	defer resp.Body.Close()
	return nil
}

// Loaded reports readiness.
func (b *LocalBackend) Loaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaded
}

type translateRequest struct {
	Sentences     []string `json:"sentences"`
	BeamSize      int      `json:"beam_size"`
	BatchType     string   `json:"batch_type"`
	MaxBatchSize  int      `json:"max_batch_size"`
}

type translateResponse struct {
	Hypotheses []string `json:"hypotheses"`
}

// Translate tokenizes the request into sentences, batch-translates with
// beam_size=2/batch_type=tokens/max_batch_size=2048, decodes the first
// hypothesis per sentence, joins with spaces, and runs the shared
// repetition cleaner over the result.
func (b *LocalBackend) Translate(text, sourceLang, targetLang string) (string, error) {
	sentences := SplitForTranslation(text)
	if len(sentences) == 0 {
		return "", nil
	}

	body, err := json.Marshal(translateRequest{
		Sentences:    sentences,
		BeamSize:     2,
		BatchType:    "tokens",
		MaxBatchSize: 2048,
	})
	if err != nil {
		return "", fmt.Errorf("translation: encode local translate request: %w", err)
	}

	resp, err := b.client.Post(b.url+"/translate", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("translation: local translate request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translation: local sidecar translate returned status %d", resp.StatusCode)
	}

	var out translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("translation: decode local translate response: %w", err)
	}

	joined := strings.Join(out.Hypotheses, " ")
	cleaned, _ := textclean.Clean(joined)
	return cleaned, nil
}
