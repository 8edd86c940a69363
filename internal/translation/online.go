package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nmtuan2007/echo-flux/internal/httpx"
	"github.com/nmtuan2007/echo-flux/internal/metrics"
	"github.com/nmtuan2007/echo-flux/internal/textclean"
)

// cacheCapacity bounds the OnlineBackend's LRU result cache.
const cacheCapacity = 500

// maxRequestsPerMinute bounds the sliding 60-second rate-limit window.
const maxRequestsPerMinute = 30

// initialBackoff is the first exponential-backoff window duration.
const initialBackoff = 2 * time.Second

// maxBackoff is the exponential-backoff cap.
const maxBackoff = 60 * time.Second

type cacheKey struct {
	src, tgt, text string
}

// OnlineBackend is a stateless-feeling HTTP client against a public
// translation endpoint, wrapped with an LRU result cache, a sliding
// rate-limit window, and exponential backoff on failure, grounded on
// original echo-flux's online_backend.py request/response shape and
// fallback_backend.py's backoff bookkeeping.
type OnlineBackend struct {
	url    string
	client *http.Client

	mu               sync.Mutex
	cache            *lru.Cache[cacheKey, string]
	requestTimes     []time.Time
	consecutiveFails int
	currentBackoff   time.Duration
	backoffUntil     time.Time
	loaded           bool
}

// NewOnlineBackend creates an OnlineBackend targeting the given public
// translation endpoint base URL.
func NewOnlineBackend(url string) *OnlineBackend {
	cache, _ := lru.New[cacheKey, string](cacheCapacity)
	return &OnlineBackend{
		url:            url,
		client:         httpx.NewPooledClient(4, 10*time.Second),
		cache:          cache,
		currentBackoff: initialBackoff,
	}
}

// Load marks the backend ready to use; the online backend has no model
// weights of its own to load.
func (b *OnlineBackend) Load(cfg Config) error {
	b.loaded = true
	return nil
}

// Unload marks the backend no longer ready.
func (b *OnlineBackend) Unload() error {
	b.loaded = false
	return nil
}

// Loaded reports readiness.
func (b *OnlineBackend) Loaded() bool {
	return b.loaded
}

// InBackoff reports whether the backend is currently within an active
// backoff window.
func (b *OnlineBackend) InBackoff() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Now().Before(b.backoffUntil)
}

// CurrentBackoff returns the backoff duration that would be applied on
// the next failure, for test/diagnostic use.
func (b *OnlineBackend) CurrentBackoff() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentBackoff
}

// Translate sends text through the online endpoint, applying cache
// lookup, rate limiting, and backoff. Text is split on sentence
// boundaries (falling back to commas for long sentences) and recombined
// into <=300-character chunks before being sent, one request per chunk,
// and the per-chunk results are joined with single spaces. A single
// piece longer than 300 characters is not split further and goes out as
// one request. A cache hit returns without a request; on backoff or
// transport/HTTP failure it returns an error for the router to act on;
// it never panics.
func (b *OnlineBackend) Translate(text, sourceLang, targetLang string) (string, error) {
	trimmed := strings.TrimSpace(text)
	key := cacheKey{src: sourceLang, tgt: targetLang, text: trimmed}

	b.mu.Lock()
	if cached, ok := b.cache.Get(key); ok {
		b.mu.Unlock()
		return cached, nil
	}
	if time.Now().Before(b.backoffUntil) {
		b.mu.Unlock()
		return "", fmt.Errorf("translation: online backend in backoff until %s", b.backoffUntil)
	}
	b.mu.Unlock()

	chunks := SplitForTranslation(trimmed)
	if len(chunks) == 0 {
		return "", nil
	}

	translated := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		b.waitForRateLimitSlot()

		result, err := b.callAPI(chunk, sourceLang, targetLang)
		if err != nil {
			b.mu.Lock()
			b.recordFailure()
			b.mu.Unlock()
			return "", err
		}
		translated = append(translated, result)
	}

	b.mu.Lock()
	b.recordSuccess()
	b.mu.Unlock()

	cleaned, _ := textclean.Clean(strings.Join(translated, " "))
	b.mu.Lock()
	b.cache.Add(key, cleaned)
	b.mu.Unlock()
	return cleaned, nil
}

// waitForRateLimitSlot blocks until the sliding 60s window has room for
// one more request, recording this request's timestamp.
func (b *OnlineBackend) waitForRateLimitSlot() {
	for {
		b.mu.Lock()
		now := time.Now()
		cutoff := now.Add(-time.Minute)
		kept := b.requestTimes[:0]
		for _, t := range b.requestTimes {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		b.requestTimes = kept

		if len(b.requestTimes) < maxRequestsPerMinute {
			b.requestTimes = append(b.requestTimes, now)
			b.mu.Unlock()
			return
		}
		wait := b.requestTimes[0].Add(time.Minute).Sub(now)
		b.mu.Unlock()
		if wait > 0 {
			time.Sleep(wait)
		}
	}
}

// recordFailure must be called with mu held. It activates/extends the
// backoff window and doubles currentBackoff, capped at maxBackoff.
func (b *OnlineBackend) recordFailure() {
	b.consecutiveFails++
	b.backoffUntil = time.Now().Add(b.currentBackoff)
	next := b.currentBackoff * 2
	if next > maxBackoff {
		next = maxBackoff
	}
	b.currentBackoff = next
	metrics.TranslationBackoffSeconds.Set(b.currentBackoff.Seconds())
}

// recordSuccess must be called with mu held. It resets the backoff state.
func (b *OnlineBackend) recordSuccess() {
	b.consecutiveFails = 0
	b.currentBackoff = initialBackoff
	b.backoffUntil = time.Time{}
	metrics.TranslationBackoffSeconds.Set(b.currentBackoff.Seconds())
}

type translateAPIResponse [][][]interface{}

// callAPI issues the HTTP request and parses the nested response shape
// used by the public translate endpoint mirrored in original echo-flux's
// online_backend.py.
func (b *OnlineBackend) callAPI(text, sourceLang, targetLang string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"q":      text,
		"source": sourceLang,
		"target": targetLang,
	})
	if err != nil {
		return "", fmt.Errorf("translation: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, b.url+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("translation: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translation: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden || resp.StatusCode >= 500 {
		return "", fmt.Errorf("translation: online endpoint returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translation: online endpoint returned status %d", resp.StatusCode)
	}

	var parsed translateAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("translation: decode response: %w", err)
	}

	var sb strings.Builder
	if len(parsed) > 0 {
		for _, sentence := range parsed[0] {
			if len(sentence) > 0 {
				if s, ok := sentence[0].(string); ok {
					sb.WriteString(s)
				}
			}
		}
	}
	return sb.String(), nil
}
