package translation

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nmtuan2007/echo-flux/internal/metrics"
)

// Router is the TranslationRouter state machine: it owns the online and
// local backends, dispatches translate calls to the active backend,
// falls over transparently on a single request's failure, and permanently
// switches to local after MaxConsecutiveFailures online failures until a
// periodic probe against online succeeds again. Grounded on original
// echo-flux's FallbackTranslationBackend state machine.
//
// Router is owned by the translator thread; the mutex exists only
// because probe retries and tests may touch state off-thread.
type Router struct {
	backends *registry[Backend]

	mu                 sync.Mutex
	active             BackendName
	consecutiveFailures int
	backoffUntil       time.Time
	lastOnlineRetry    time.Time
	sourceLang         string
	targetLang         string
}

// NewRouter wires an OnlineBackend and LocalBackend into a Router.
func NewRouter(online Backend, local Backend) *Router {
	reg := newRegistry[Backend]()
	reg.set(BackendOnline, online)
	reg.set(BackendLocal, local)
	return &Router{backends: reg}
}

// LoadModel initializes both backends (best-effort) and selects the
// initial active backend: the configured preference if it loaded,
// otherwise the other one.
func (r *Router) LoadModel(cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sourceLang = cfg.SourceLang
	r.targetLang = cfg.TargetLang

	online, _ := r.backends.get(BackendOnline)
	local, _ := r.backends.get(BackendLocal)

	onlineErr := online.Load(cfg)
	if onlineErr != nil {
		slog.Warn("translation: online backend failed to load", "error", onlineErr)
	}
	localErr := local.Load(cfg)
	if localErr != nil {
		slog.Warn("translation: local backend failed to load", "error", localErr)
	}

	preferred := cfg.PreferredBackend
	if preferred == "" {
		preferred = BackendOnline
	}

	switch preferred {
	case BackendOnline:
		if onlineErr == nil {
			r.active = BackendOnline
		} else {
			r.active = BackendLocal
		}
	default:
		if localErr == nil {
			r.active = BackendLocal
		} else {
			r.active = BackendOnline
		}
	}

	if onlineErr != nil && localErr != nil {
		return fmt.Errorf("translation: both backends failed to load")
	}
	return nil
}

// UnloadModel tears down both backends.
func (r *Router) UnloadModel() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	online, _ := r.backends.get(BackendOnline)
	local, _ := r.backends.get(BackendLocal)
	err1 := online.Unload()
	err2 := local.Unload()
	if err1 != nil {
		return err1
	}
	return err2
}

// IsLoaded reports whether at least one backend is ready.
func (r *Router) IsLoaded() bool {
	online, _ := r.backends.get(BackendOnline)
	local, _ := r.backends.get(BackendLocal)
	return online.Loaded() || local.Loaded()
}

// Active returns the currently active backend name.
func (r *Router) Active() BackendName {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Translate dispatches to the active backend. On failure it transparently
// falls over to the other backend for this single request and records a
// failure on the primary if the primary was online. After
// MaxConsecutiveFailures consecutive online failures, active permanently
// switches to local. Translate never returns an error to the caller:
// total failure yields a Result with empty TranslatedText.
func (r *Router) Translate(text, sourceLang, targetLang string) Result {
	r.maybeRetryOnline()

	r.mu.Lock()
	primary := r.active
	r.mu.Unlock()

	backend, err := r.backends.get(primary)
	if err == nil {
		translated, translateErr := backend.Translate(text, sourceLang, targetLang)
		if translateErr == nil {
			r.onSuccess(primary)
			return Result{TranslatedText: translated, Backend: primary}
		}
		if primary == BackendOnline {
			r.onlineFailure()
		}
	}

	other := BackendLocal
	if primary == BackendLocal {
		other = BackendOnline
	}
	fallback, err := r.backends.get(other)
	if err != nil {
		return Result{}
	}
	translated, err := fallback.Translate(text, sourceLang, targetLang)
	if err != nil {
		return Result{}
	}
	return Result{TranslatedText: translated, Backend: other}
}

func (r *Router) onSuccess(name BackendName) {
	if name != BackendOnline {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consecutiveFailures = 0
	r.backoffUntil = time.Time{}
}

// onlineFailure records a failure against the online backend and, once
// MaxConsecutiveFailures is reached, permanently fails over to local
// until the next successful probe.
func (r *Router) onlineFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consecutiveFailures++
	if r.consecutiveFailures >= MaxConsecutiveFailures {
		r.active = BackendLocal
		r.backoffUntil = time.Now().Add(OnlineRetryInterval)
		r.lastOnlineRetry = time.Now()
		metrics.TranslationFailoversTotal.Inc()
	}
}

// maybeRetryOnline issues a short probe translation against online every
// OnlineRetryInterval while fallen back to local; a non-empty result
// switches active back to online and resets failure counters.
func (r *Router) maybeRetryOnline() {
	r.mu.Lock()
	if r.active != BackendLocal {
		r.mu.Unlock()
		return
	}
	if time.Since(r.lastOnlineRetry) < OnlineRetryInterval {
		r.mu.Unlock()
		return
	}
	r.lastOnlineRetry = time.Now()
	sourceLang, targetLang := r.sourceLang, r.targetLang
	r.mu.Unlock()

	online, err := r.backends.get(BackendOnline)
	if err != nil {
		return
	}

	probe := "ok"
	result, err := online.Translate(probe, sourceLang, targetLang)
	if err != nil || result == "" {
		return
	}

	r.mu.Lock()
	r.active = BackendOnline
	r.consecutiveFailures = 0
	r.backoffUntil = time.Time{}
	r.mu.Unlock()
}

// IsFallenBack reports whether the router has failed over to local.
func (r *Router) IsFallenBack() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active == BackendLocal
}

// BackoffUntil returns the end of the online backoff window recorded at
// the last failover to local (zero before any failover and after a
// successful probe). A failed probe does not move it.
func (r *Router) BackoffUntil() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backoffUntil
}
