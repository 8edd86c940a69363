package asr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// scriptedDecoder returns a pre-programmed sequence of segment batches,
// one per Transcribe call, repeating the last entry once exhausted.
type scriptedDecoder struct {
	batches [][]DecodedSegment
	calls   int
	loadErr error
}

func (d *scriptedDecoder) Load(cfg Config) (ResolvedDevice, error) {
	if d.loadErr != nil {
		return ResolvedDevice{}, d.loadErr
	}
	return ResolvedDevice{Device: cfg.Device, ComputeType: cfg.ComputeType}, nil
}

func (d *scriptedDecoder) Unload() error { return nil }

func (d *scriptedDecoder) Transcribe(samples []float32, sampleRate int, opts DecodeOptions) ([]DecodedSegment, error) {
	idx := d.calls
	if idx >= len(d.batches) {
		idx = len(d.batches) - 1
	}
	d.calls++
	return d.batches[idx], nil
}

func chunkOfSeconds(sampleRate int, seconds float64) []float32 {
	return make([]float32, int(float64(sampleRate)*seconds))
}

func TestEngineLoadUnloadLifecycle(t *testing.T) {
	dec := &scriptedDecoder{}
	e := NewEngine(dec, 16000)
	require.False(t, e.IsLoaded())

	require.NoError(t, e.LoadModel(Config{ModelSize: ModelBase, Device: DeviceCPU, ComputeType: ComputeInt8}))
	require.True(t, e.IsLoaded())

	require.NoError(t, e.UnloadModel())
	require.False(t, e.IsLoaded())
}

func TestEngineGPULoadFailureFallsBackToCPU(t *testing.T) {
	realDec := &gpuFallbackDecoder{}
	e := NewEngine(realDec, 16000)
	err := e.LoadModel(Config{ModelSize: ModelBase, Device: DeviceGPU, ComputeType: ComputeFloat16})
	require.NoError(t, err)
	require.Equal(t, 2, realDec.attempts)
	require.Equal(t, DeviceCPU, realDec.lastCfg.Device)
	require.Equal(t, ComputeInt8, realDec.lastCfg.ComputeType)
}

type gpuFallbackDecoder struct {
	attempts int
	firstCfg Config
	lastCfg  Config
}

func (d *gpuFallbackDecoder) Load(cfg Config) (ResolvedDevice, error) {
	d.attempts++
	if d.attempts == 1 {
		d.firstCfg = cfg
	}
	d.lastCfg = cfg
	if cfg.Device == DeviceGPU {
		return ResolvedDevice{}, require.AnError
	}
	return ResolvedDevice{Device: cfg.Device, ComputeType: cfg.ComputeType}, nil
}
func (d *gpuFallbackDecoder) Unload() error { return nil }
func (d *gpuFallbackDecoder) Transcribe(samples []float32, sampleRate int, opts DecodeOptions) ([]DecodedSegment, error) {
	return nil, nil
}

func TestEngineWindowCapInvariant(t *testing.T) {
	dec := &scriptedDecoder{
		batches: [][]DecodedSegment{
			{{Start: 0, End: 1, Text: "hello", AvgLogprob: -0.1}},
		},
	}
	e := NewEngine(dec, 16000)
	require.NoError(t, e.LoadModel(Config{ModelSize: ModelTiny, Device: DeviceCPU, ComputeType: ComputeInt8}))
	e.lastInfer = time.Time{}

	oneChunk := chunkOfSeconds(16000, 0.1)
	maxBufferSamples := int(e.tuning.MaxBufferDuration.Seconds() * 16000)

	for i := 0; i < 200; i++ {
		e.TranscribeStream(oneChunk)
		require.LessOrEqual(t, e.window.Len(), maxBufferSamples+len(oneChunk))
	}
}

func TestEngineMultiSegmentSplitCommitsAllButLast(t *testing.T) {
	dec := &scriptedDecoder{
		batches: [][]DecodedSegment{
			{
				{Start: 0, End: 1.0, Text: "hello world", AvgLogprob: -0.1},
				{Start: 1.0, End: 2.0, Text: "how are you", AvgLogprob: -0.1},
			},
		},
	}
	e := NewEngine(dec, 16000)
	require.NoError(t, e.LoadModel(Config{ModelSize: ModelTiny, Device: DeviceCPU, ComputeType: ComputeInt8}))
	e.lastInfer = time.Time{}

	seg, err := e.TranscribeStream(chunkOfSeconds(16000, 0.5))
	require.NoError(t, err)
	require.NotNil(t, seg)
	require.True(t, seg.IsFinal)
	require.Equal(t, "hello world", seg.Text)
}

func TestEngineFinalizeCurrentClearsWindow(t *testing.T) {
	dec := &scriptedDecoder{
		batches: [][]DecodedSegment{
			{{Start: 0, End: 1, Text: "hello world", AvgLogprob: -0.1}},
		},
	}
	e := NewEngine(dec, 16000)
	require.NoError(t, e.LoadModel(Config{ModelSize: ModelTiny, Device: DeviceCPU, ComputeType: ComputeInt8}))

	e.window.Append(chunkOfSeconds(16000, 1.0))
	seg, err := e.FinalizeCurrent()
	require.NoError(t, err)
	require.NotNil(t, seg)
	require.True(t, seg.IsFinal)
	require.Equal(t, 0, e.window.Len())
}

func TestEngineHallucinationCleanupMarksFinal(t *testing.T) {
	dec := &scriptedDecoder{
		batches: [][]DecodedSegment{
			{{Start: 0, End: 2, Text: "ok ok ok ok ok ok ok ok ok ok", AvgLogprob: -0.1}},
		},
	}
	e := NewEngine(dec, 16000)
	require.NoError(t, e.LoadModel(Config{ModelSize: ModelTiny, Device: DeviceCPU, ComputeType: ComputeInt8}))

	e.window.Append(chunkOfSeconds(16000, 2.0))
	seg, err := e.FinalizeCurrent()
	require.NoError(t, err)
	require.NotNil(t, seg)
	require.True(t, seg.IsFinal)
	require.True(t, seg.Hallucinated)

	occurrences := 0
	for _, w := range splitWords(seg.Text) {
		if w == "ok" {
			occurrences++
		}
	}
	require.LessOrEqual(t, occurrences, 3)
}

// TestEngineHallucinationCleanupForcesFinalInNormalFlow exercises the
// ordinary TranscribeStream path (not FinalizeCurrent): a single
// hallucinating segment well under both the buffer cap and the
// finalization threshold must still be cleaned and promoted to final,
// not emitted forever as a raw uncleaned partial.
func TestEngineHallucinationCleanupForcesFinalInNormalFlow(t *testing.T) {
	dec := &scriptedDecoder{
		batches: [][]DecodedSegment{
			{{Start: 0, End: 0.5, Text: "ok ok ok ok ok ok ok ok ok ok", AvgLogprob: -0.1}},
		},
	}
	e := NewEngine(dec, 16000)
	require.NoError(t, e.LoadModel(Config{ModelSize: ModelBase, Device: DeviceCPU, ComputeType: ComputeInt8}))
	e.lastInfer = time.Time{}

	seg, err := e.TranscribeStream(chunkOfSeconds(16000, 0.5))
	require.NoError(t, err)
	require.NotNil(t, seg)
	require.True(t, seg.IsFinal)
	require.True(t, seg.Hallucinated)
	require.Equal(t, 0, e.window.Len())
}

// TestEngineNonHallucinatingSegmentStaysPartialAndCleaned confirms the
// three-pass cleaner still runs on an ordinary partial (the text is
// unchanged here since it has no repetition to collapse) and that the
// segment is left as a partial rather than forced final.
func TestEngineNonHallucinatingSegmentStaysPartialAndCleaned(t *testing.T) {
	dec := &scriptedDecoder{
		batches: [][]DecodedSegment{
			{{Start: 0, End: 0.5, Text: "hello there friend", AvgLogprob: -0.1}},
		},
	}
	e := NewEngine(dec, 16000)
	require.NoError(t, e.LoadModel(Config{ModelSize: ModelBase, Device: DeviceCPU, ComputeType: ComputeInt8}))
	e.lastInfer = time.Time{}

	seg, err := e.TranscribeStream(chunkOfSeconds(16000, 0.5))
	require.NoError(t, err)
	require.NotNil(t, seg)
	require.False(t, seg.IsFinal)
	require.Equal(t, "hello there friend", seg.Text)
}

// TestEngineAutoDeviceAttemptsGPUThenFallsBackToCPU confirms "auto" is
// resolved to a GPU attempt first, not forwarded verbatim to the
// decoder, and that a GPU load failure falls back to CPU/int8 exactly
// as an explicit gpu request would.
func TestEngineAutoDeviceAttemptsGPUThenFallsBackToCPU(t *testing.T) {
	dec := &gpuFallbackDecoder{}
	e := NewEngine(dec, 16000)

	err := e.LoadModel(Config{ModelSize: ModelBase, Device: DeviceAuto, ComputeType: ComputeFloat16})
	require.NoError(t, err)
	require.Equal(t, 2, dec.attempts)
	require.Equal(t, DeviceGPU, dec.firstCfg.Device)
	require.Equal(t, DeviceCPU, dec.lastCfg.Device)
	require.Equal(t, ComputeInt8, dec.lastCfg.ComputeType)
	require.Equal(t, DeviceCPU, e.cfg.Device)
}

// TestEngineKeepsSidecarResolvedDeviceAndComputeType confirms the
// engine records whatever device/compute_type the sidecar reports it
// actually loaded with, not the requested values.
func TestEngineKeepsSidecarResolvedDeviceAndComputeType(t *testing.T) {
	dec := &resolvingDecoder{resolved: ResolvedDevice{Device: DeviceGPU, ComputeType: ComputeInt8Float16}}
	e := NewEngine(dec, 16000)

	require.NoError(t, e.LoadModel(Config{ModelSize: ModelBase, Device: DeviceGPU, ComputeType: ComputeFloat16}))
	require.Equal(t, DeviceGPU, e.cfg.Device)
	require.Equal(t, ComputeInt8Float16, e.cfg.ComputeType)
}

type resolvingDecoder struct {
	resolved ResolvedDevice
}

func (d *resolvingDecoder) Load(cfg Config) (ResolvedDevice, error) { return d.resolved, nil }
func (d *resolvingDecoder) Unload() error                           { return nil }
func (d *resolvingDecoder) Transcribe(samples []float32, sampleRate int, opts DecodeOptions) ([]DecodedSegment, error) {
	return nil, nil
}

func splitWords(s string) []string {
	var words []string
	start := -1
	for i, r := range s {
		if r == ' ' {
			if start >= 0 {
				words = append(words, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, s[start:])
	}
	return words
}
