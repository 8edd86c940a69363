package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/nmtuan2007/echo-flux/internal/asr"
	"github.com/nmtuan2007/echo-flux/internal/audio"
	"github.com/nmtuan2007/echo-flux/internal/config"
	"github.com/nmtuan2007/echo-flux/internal/denoise"
	"github.com/nmtuan2007/echo-flux/internal/env"
	"github.com/nmtuan2007/echo-flux/internal/translation"
	"github.com/nmtuan2007/echo-flux/internal/vad"
)

// SidecarURLs points at the out-of-process model servers the HTTP-based
// Decoder/SpeechModel/Backend implementations call into. The config
// object (spec.md §6) never names these: the native runtimes they
// replace are in-process, but faster-whisper/Silero/MarianMT's Go
// equivalents here are out-of-process sidecars, so their addresses are
// environment-configured instead.
type SidecarURLs struct {
	ASRURL            string
	VADURL            string
	TranslationOnline string
	TranslationLocal  string
}

// DefaultSidecarURLs reads sidecar locations from the environment,
// falling back to the conventional local ports.
func DefaultSidecarURLs() SidecarURLs {
	return SidecarURLs{
		ASRURL:            env.Str("ECHOFLUX_ASR_URL", "http://127.0.0.1:8001"),
		VADURL:            env.Str("ECHOFLUX_VAD_URL", "http://127.0.0.1:8002"),
		TranslationOnline: env.Str("ECHOFLUX_TRANSLATION_ONLINE_URL", "http://127.0.0.1:8003"),
		TranslationLocal:  env.Str("ECHOFLUX_TRANSLATION_LOCAL_URL", "http://127.0.0.1:8004"),
	}
}

// Build assembles a session's model collaborators (VadGate, AsrEngine,
// TranslationRouter) from a resolved Config, loads their models, and
// wires them into a new Pipeline bound to source. Model load failure
// for ASR is fatal and returned to the caller, matching spec.md §7's
// "model load errors for ASR are fatal" rule; translation load errors
// are absorbed by the router's own online/local fallback, and if neither
// backend loads, the session runs with translation disabled.
func Build(cfg config.Config, urls SidecarURLs, source audio.Source, sessionID string, sink Sink) (*Pipeline, error) {
	sampleRate := cfg.Audio.SampleRate
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}

	var noiseSuppressor *denoise.Denoiser
	if cfg.Audio.NoiseSuppression {
		noiseSuppressor = denoise.New()
	}

	var gate *vad.Gate
	if cfg.VAD.Enabled {
		vadCfg := vad.DefaultConfig()
		vadCfg.SampleRate = sampleRate
		if cfg.VAD.Threshold > 0 {
			vadCfg.Threshold = cfg.VAD.Threshold
		}
		gate = vad.New(vadCfg, vad.NewHTTPModel(urls.VADURL))
	}

	asrEngine := asr.NewEngine(asr.NewHTTPDecoder(urls.ASRURL), sampleRate)
	if err := asrEngine.LoadModel(asr.Config{
		ModelSize:   asr.ModelSize(cfg.ASR.ModelSize),
		Language:    cfg.ASR.Language,
		Device:      asr.Device(cfg.ASR.Device),
		ComputeType: asr.ComputeType(cfg.ASR.ComputeType),
	}); err != nil {
		return nil, fmt.Errorf("pipeline: load asr model: %w", err)
	}

	var router *translation.Router
	if cfg.Translation.Enabled {
		router = translation.NewRouter(
			translation.NewOnlineBackend(urls.TranslationOnline),
			translation.NewLocalBackend(urls.TranslationLocal, config.ModelsDir()),
		)
		if err := router.LoadModel(translation.Config{
			Enabled:          true,
			PreferredBackend: translation.BackendName(cfg.Translation.Backend),
			SourceLang:       cfg.Translation.SourceLang,
			TargetLang:       cfg.Translation.TargetLang,
			LocalModel:       cfg.Translation.Model,
		}); err != nil {
			slog.Warn("pipeline: no translation backend loaded, translation disabled", "error", err)
			router = nil
		}
	}

	p := New(Config{
		Source:             source,
		Denoiser:           noiseSuppressor,
		VadGate:            gate,
		AsrEngine:          asrEngine,
		TranslationRouter:  router,
		TranslationEnabled: router != nil,
		SourceLang:         cfg.Translation.SourceLang,
		TargetLang:         cfg.Translation.TargetLang,
		SessionID:          sessionID,
		SampleRate:         sampleRate,
	}, sink)
	return p, nil
}
