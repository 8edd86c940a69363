package asr

// ModelSize selects the inference-interval/window tuning table entry.
type ModelSize string

const (
	ModelTiny   ModelSize = "tiny"
	ModelBase   ModelSize = "base"
	ModelSmall  ModelSize = "small"
	ModelMedium ModelSize = "medium"
	ModelLarge  ModelSize = "large"
)

// Device is the device hint for model load.
type Device string

const (
	DeviceAuto Device = "auto"
	DeviceCPU  Device = "cpu"
	DeviceGPU  Device = "gpu"
)

// ComputeType is the quantization requested for model load.
type ComputeType string

const (
	ComputeInt8        ComputeType = "int8"
	ComputeFloat16     ComputeType = "float16"
	ComputeInt8Float16 ComputeType = "int8_float16"
)

// Config configures AsrEngine.load_model.
type Config struct {
	ModelSize   ModelSize
	Language    string // empty means auto-detect
	Device      Device
	ComputeType ComputeType
}

// ResolvedDevice carries the device fallback decision actually applied.
type ResolvedDevice struct {
	Device      Device
	ComputeType ComputeType
}

// DecodedSegment is one segment as returned by the underlying decoder,
// before commit-policy grouping.
type DecodedSegment struct {
	Start      float64
	End        float64
	Text       string
	AvgLogprob float64
}

// DecodeOptions pins the greedy, non-conditioned decode invocation the
// engine always requests.
type DecodeOptions struct {
	Beam                  int
	BestOf                int
	Temperature           float64
	Language              string
	ConditionOnPrevious   bool
	SuppressInternalVAD   bool
}

// GreedyOptions returns the fixed decode invocation used by every
// transcribe call: beam=1, best_of=1, temperature=0, no conditioning on
// prior text, the model's own VAD filter disabled.
func GreedyOptions(language string) DecodeOptions {
	return DecodeOptions{
		Beam:                1,
		BestOf:              1,
		Temperature:         0,
		Language:            language,
		ConditionOnPrevious: false,
		SuppressInternalVAD: true,
	}
}

// Segment is an emitted transcription segment, partial or final.
type Segment struct {
	Text          string
	IsFinal       bool
	Hallucinated  bool
	StartTime     float64
	EndTime       float64
}

// Decoder is the external collaborator performing batch inference over
// a window of audio, returning Whisper-style segments. Implementations
// may call into a local native runtime or an HTTP sidecar.
type Decoder interface {
	Transcribe(samples []float32, sampleRate int, opts DecodeOptions) ([]DecodedSegment, error)
	Load(cfg Config) (ResolvedDevice, error)
	Unload() error
}
