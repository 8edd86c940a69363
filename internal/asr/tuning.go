package asr

import "time"

// Tuning is the per-model-size inference cadence and window cap.
type Tuning struct {
	InferenceInterval time.Duration
	MaxBufferDuration time.Duration
}

// tuningTable holds the spec-default tuning per model size: smaller
// models run more often over a larger window; larger models run less
// often over a smaller window to bound latency.
var tuningTable = map[ModelSize]Tuning{
	ModelTiny:   {InferenceInterval: 150 * time.Millisecond, MaxBufferDuration: 5000 * time.Millisecond},
	ModelBase:   {InferenceInterval: 200 * time.Millisecond, MaxBufferDuration: 5000 * time.Millisecond},
	ModelSmall:  {InferenceInterval: 300 * time.Millisecond, MaxBufferDuration: 4000 * time.Millisecond},
	ModelMedium: {InferenceInterval: 500 * time.Millisecond, MaxBufferDuration: 3000 * time.Millisecond},
	ModelLarge:  {InferenceInterval: 600 * time.Millisecond, MaxBufferDuration: 3000 * time.Millisecond},
}

// TuningFor returns the tuning table entry for a model size, defaulting
// to the base entry for an unrecognized size.
func TuningFor(size ModelSize) Tuning {
	if t, ok := tuningTable[size]; ok {
		return t
	}
	return tuningTable[ModelBase]
}

// MinWindowBeforeFirstInference is the minimum buffered duration before
// the engine will run its first inference on a fresh window.
const MinWindowBeforeFirstInference = 300 * time.Millisecond

// FinalizationThreshold is the window duration past which the engine
// force-finalizes all decoded segments even without a multi-segment
// split.
const FinalizationThreshold = 10 * time.Second
