// Package translation implements the TranslationRouter: an
// online/local backend dispatcher with LRU caching, rate limiting, and
// exponential-backoff failover, grounded on the original echo-flux
// fallback_backend/online_backend/marian_backend modules and on the
// generic Router[T] dispatcher and HTTP sidecar client idioms from
// hubenschmidt-asr-llm-tts.
package translation

import "time"

// BackendName identifies one of the two translation backends.
type BackendName string

const (
	BackendOnline BackendName = "online"
	BackendLocal  BackendName = "local"
)

// MaxConsecutiveFailures is the number of consecutive online failures
// after which the router permanently fails over to the local backend
// until the next successful probe retry.
const MaxConsecutiveFailures = 3

// OnlineRetryInterval is how often the router probes the online backend
// again once it has fallen back to local.
const OnlineRetryInterval = 60 * time.Second

// Config configures TranslationRouter.LoadModel.
type Config struct {
	Enabled          bool
	PreferredBackend BackendName
	SourceLang       string
	TargetLang       string
	LocalModel       string
}

// Job is one unit of translation work handed to the translator thread.
type Job struct {
	Text       string
	SourceLang string
	TargetLang string
	EntryID    string
}

// Result is the outcome of a translate call. Failure semantics never
// surface an error to the pipeline: a total failure yields a Result with
// an empty TranslatedText, and the pipeline suppresses the translation
// branch of that message.
type Result struct {
	TranslatedText string
	Backend        BackendName
	Hallucinated   bool
}

// Backend is the interface both OnlineBackend and LocalBackend satisfy.
type Backend interface {
	Translate(text, sourceLang, targetLang string) (string, error)
	Load(cfg Config) error
	Unload() error
	Loaded() bool
}
