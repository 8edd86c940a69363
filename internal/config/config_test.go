package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeJSONAcceptsNestedShape(t *testing.T) {
	s := New()
	err := s.MergeJSON([]byte(`{"asr":{"model_size":"large","language":"fr"}}`))
	require.NoError(t, err)
	require.Equal(t, "large", s.Get("asr.model_size", nil))
	require.Equal(t, "fr", s.Get("asr.language", nil))
}

func TestMergeJSONAcceptsFlatDottedShape(t *testing.T) {
	s := New()
	err := s.MergeJSON([]byte(`{"asr.model_size":"medium","vad.threshold":0.8}`))
	require.NoError(t, err)
	require.Equal(t, "medium", s.Get("asr.model_size", nil))
	require.InDelta(t, 0.8, s.Get("vad.threshold", nil), 0.0001)
}

func TestMergeJSONPreservesUntouchedSiblingKeys(t *testing.T) {
	s := New()
	require.NoError(t, s.MergeJSON([]byte(`{"asr":{"model_size":"tiny"}}`)))
	require.Equal(t, "tiny", s.Get("asr.model_size", nil))
	require.Equal(t, "auto", s.Get("asr.device", nil))
}

func TestResolveProducesTypedConfig(t *testing.T) {
	s := New()
	require.NoError(t, s.MergeJSON([]byte(`{"translation":{"enabled":true,"backend":"online"}}`)))
	cfg, err := s.Resolve()
	require.NoError(t, err)
	require.True(t, cfg.Translation.Enabled)
	require.Equal(t, "online", cfg.Translation.Backend)
	require.Equal(t, "small", cfg.ASR.ModelSize)
}

func TestSetCreatesIntermediateMaps(t *testing.T) {
	s := New()
	s.Set("translation.model", "opus-mt-en-vi")
	require.Equal(t, "opus-mt-en-vi", s.Get("translation.model", nil))
}

func TestGetReturnsFallbackForMissingPath(t *testing.T) {
	s := New()
	require.Equal(t, "fallback", s.Get("asr.nonexistent_key", "fallback"))
	require.Equal(t, "fallback", s.Get("nonexistent.deeply.nested", "fallback"))
}
