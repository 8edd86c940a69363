// Package config loads the engine configuration from defaults, an optional
// JSON file, and environment variable overrides, in that precedence order.
// It accepts both nested ({"asr":{"model_size":"small"}}) and flat dotted
// ({"asr.model_size":"small"}) JSON shapes for the same data, since a
// ControlPlane start.config payload and a user's config.json file tend to
// arrive in whichever shape the client happened to build.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/nmtuan2007/echo-flux/internal/env"
)

func defaultData() map[string]any {
	return map[string]any{
		"engine": map[string]any{
			"host": "127.0.0.1",
			"port": 8765,
		},
		"audio": map[string]any{
			"sample_rate":       16000,
			"chunk_ms":          20,
			"noise_suppression": false,
			"codec":             "pcm",
		},
		"asr": map[string]any{
			"model_size":   "small",
			"language":     "",
			"device":       "auto",
			"compute_type": "float16",
		},
		"vad": map[string]any{
			"enabled":   true,
			"threshold": 0.5,
		},
		"translation": map[string]any{
			"enabled":     false,
			"backend":     "local",
			"source_lang": "en",
			"target_lang": "vi",
			"model":       "",
		},
	}
}

type envBinding struct {
	dotted string
	cast   func(string) (any, error)
}

var envMap = map[string]envBinding{
	"ECHOFLUX_HOST":                {"engine.host", castString},
	"ECHOFLUX_PORT":                {"engine.port", castInt},
	"ECHOFLUX_SAMPLE_RATE":         {"audio.sample_rate", castInt},
	"ECHOFLUX_CHUNK_MS":            {"audio.chunk_ms", castInt},
	"ECHOFLUX_NOISE_SUPPRESSION":   {"audio.noise_suppression", castBool},
	"ECHOFLUX_MODEL_SIZE":          {"asr.model_size", castString},
	"ECHOFLUX_LANGUAGE":            {"asr.language", castString},
	"ECHOFLUX_DEVICE":              {"asr.device", castString},
	"ECHOFLUX_COMPUTE_TYPE":        {"asr.compute_type", castString},
	"ECHOFLUX_VAD_ENABLED":        {"vad.enabled", castBool},
	"ECHOFLUX_VAD_THRESHOLD":       {"vad.threshold", castFloat},
	"ECHOFLUX_TRANSLATION_ENABLED": {"translation.enabled", castBool},
	"ECHOFLUX_TRANSLATION_BACKEND": {"translation.backend", castString},
	"ECHOFLUX_SOURCE_LANG":         {"translation.source_lang", castString},
	"ECHOFLUX_TARGET_LANG":         {"translation.target_lang", castString},
	"ECHOFLUX_TRANSLATION_MODEL":   {"translation.model", castString},
}

func castString(v string) (any, error) { return v, nil }
func castInt(v string) (any, error)    { return strconv.Atoi(v) }
func castFloat(v string) (any, error)  { return strconv.ParseFloat(v, 64) }
func castBool(v string) (any, error) {
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no", "":
		return false, nil
	}
	return nil, fmt.Errorf("not a bool: %q", v)
}

// ASR mirrors asr.Config's JSON-facing fields.
type ASR struct {
	ModelSize   string `json:"model_size"`
	Language    string `json:"language"`
	Device      string `json:"device"`
	ComputeType string `json:"compute_type"`
}

type VAD struct {
	Enabled   bool    `json:"enabled"`
	Threshold float64 `json:"threshold"`
}

type Translation struct {
	Enabled    bool   `json:"enabled"`
	Backend    string `json:"backend"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	Model      string `json:"model"`
}

type Audio struct {
	SampleRate       int    `json:"sample_rate"`
	ChunkMs          int    `json:"chunk_ms"`
	NoiseSuppression bool   `json:"noise_suppression"`
	Codec            string `json:"codec"`
}

// Config is the resolved, typed view of the engine configuration.
type Config struct {
	ASR         ASR         `json:"asr"`
	VAD         VAD         `json:"vad"`
	Translation Translation `json:"translation"`
	Audio       Audio       `json:"audio"`
}

// Store holds the raw nested map and supports dotted get/set plus deep
// merges from either nested or flat-dotted JSON payloads.
type Store struct {
	data map[string]any
}

// New returns a Store seeded with defaults.
func New() *Store {
	return &Store{data: defaultData()}
}

// Load builds a Store from defaults, then an optional JSON config file
// (ignored if path is empty or missing), then environment overrides.
func Load(path string) (*Store, error) {
	s := New()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			raw, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
			if err := s.MergeJSON(raw); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}
	s.applyEnvOverrides()
	return s, nil
}

// MergeJSON merges a JSON object into the store. Keys may be nested
// ("asr": {"model_size": "small"}) or flat-dotted ("asr.model_size":
// "small"), or a mix of both within the same document.
func (s *Store) MergeJSON(raw []byte) error {
	var incoming map[string]any
	if err := json.Unmarshal(raw, &incoming); err != nil {
		return err
	}
	normalized := map[string]any{}
	for k, v := range incoming {
		if strings.Contains(k, ".") {
			setDotted(normalized, k, v)
			continue
		}
		normalized[k] = v
	}
	deepMerge(s.data, normalized)
	return nil
}

func (s *Store) applyEnvOverrides() {
	for envKey, binding := range envMap {
		raw := env.Str(envKey, "")
		if raw == "" {
			continue
		}
		val, err := binding.cast(raw)
		if err != nil {
			continue
		}
		s.Set(binding.dotted, val)
	}
}

// Get reads a dotted key, returning fallback if any path segment is missing.
func (s *Store) Get(dotted string, fallback any) any {
	keys := strings.Split(dotted, ".")
	var node any = s.data
	for _, k := range keys {
		m, ok := node.(map[string]any)
		if !ok {
			return fallback
		}
		node, ok = m[k]
		if !ok {
			return fallback
		}
	}
	return node
}

// Set writes a dotted key, creating intermediate maps as needed.
func (s *Store) Set(dotted string, value any) {
	setDotted(s.data, dotted, value)
}

func setDotted(root map[string]any, dotted string, value any) {
	keys := strings.Split(dotted, ".")
	node := root
	for _, k := range keys[:len(keys)-1] {
		next, ok := node[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[k] = next
		}
		node = next
	}
	node[keys[len(keys)-1]] = value
}

func deepMerge(base, override map[string]any) {
	for k, v := range override {
		if overrideMap, ok := v.(map[string]any); ok {
			if baseMap, ok := base[k].(map[string]any); ok {
				deepMerge(baseMap, overrideMap)
				continue
			}
		}
		base[k] = v
	}
}

// Resolve converts the store's current state into the typed Config, via a
// JSON round-trip so the dotted/nested merge logic above stays the single
// source of truth for shape.
func (s *Store) Resolve() (Config, error) {
	raw, err := json.Marshal(s.data)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DataDir resolves the per-OS user data directory, overridable via
// ECHOFLUX_DATA_DIR.
func DataDir() string {
	if override := env.Str("ECHOFLUX_DATA_DIR", ""); override != "" {
		return override
	}
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		if profile := env.Str("USERPROFILE", ""); profile != "" {
			home = profile
		}
		return filepath.Join(home, ".echoflux")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "EchoFlux")
	default:
		xdg := env.Str("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
		return filepath.Join(xdg, "echoflux")
	}
}

// ModelsDir returns <data-dir>/models, overridable via ECHOFLUX_MODELS_DIR.
func ModelsDir() string {
	if override := env.Str("ECHOFLUX_MODELS_DIR", ""); override != "" {
		return override
	}
	return filepath.Join(DataDir(), "models")
}

// LogsDir returns <data-dir>/logs.
func LogsDir() string {
	return filepath.Join(DataDir(), "logs")
}
