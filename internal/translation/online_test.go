package translation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestOnlineBackendTranslateChunksOversizedText drives Translate with
// text well over maxChunkChars and asserts the online endpoint never
// receives a single request covering the whole text: every request body
// must be <=300 characters, and there must be more than one of them.
func TestOnlineBackendTranslateChunksOversizedText(t *testing.T) {
	var requestCount atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount.Add(1)
		var body struct {
			Q string `json:"q"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.LessOrEqual(t, len(body.Q), maxChunkChars)

		resp := translateAPIResponse{{{body.Q}}}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	b := NewOnlineBackend(srv.URL)
	sentence := strings.Repeat("word ", 10) + ". "
	text := strings.Repeat(sentence, 20)
	require.Greater(t, len(text), maxChunkChars)

	result, err := b.Translate(text, "en", "vi")
	require.NoError(t, err)
	require.NotEmpty(t, result)
	require.Greater(t, requestCount.Load(), int32(1))
}

func TestOnlineBackendBackoffDoublesAndCaps(t *testing.T) {
	b := NewOnlineBackend("http://unused.invalid")

	expected := initialBackoff
	for k := 1; k <= 8; k++ {
		b.mu.Lock()
		b.recordFailure()
		got := b.currentBackoff
		b.mu.Unlock()

		expected *= 2
		if expected > maxBackoff {
			expected = maxBackoff
		}
		require.Equal(t, expected, got, "after %d failures", k)
	}
}

func TestOnlineBackendSuccessResetsBackoff(t *testing.T) {
	b := NewOnlineBackend("http://unused.invalid")
	b.mu.Lock()
	b.recordFailure()
	b.recordFailure()
	b.recordSuccess()
	got := b.currentBackoff
	fails := b.consecutiveFails
	b.mu.Unlock()

	require.Equal(t, initialBackoff, got)
	require.Equal(t, 0, fails)
}

func TestOnlineBackendRateLimitTrimsExpiredTimestampsAndBlocksAtCapacity(t *testing.T) {
	b := NewOnlineBackend("http://unused.invalid")

	now := time.Now()
	b.mu.Lock()
	b.requestTimes = make([]time.Time, maxRequestsPerMinute)
	// Oldest first, matching the insertion order waitForRateLimitSlot
	// appends in. The oldest is almost (but not quite) expired so the
	// block is short instead of waiting close to a minute.
	b.requestTimes[0] = now.Add(-time.Minute + 50*time.Millisecond)
	for i := 1; i < len(b.requestTimes); i++ {
		b.requestTimes[i] = now.Add(-time.Duration(len(b.requestTimes)-i) * time.Millisecond)
	}
	b.mu.Unlock()

	start := time.Now()
	b.waitForRateLimitSlot()
	elapsed := time.Since(start)

	require.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
	require.Less(t, elapsed, 500*time.Millisecond)

	b.mu.Lock()
	count := len(b.requestTimes)
	b.mu.Unlock()
	require.LessOrEqual(t, count, maxRequestsPerMinute)
}
