package asr

// AudioWindow is a growable float32 sample buffer accumulating audio
// between ASR inference calls. It is owned exclusively by the decoder
// thread and carries no internal locking.
type AudioWindow struct {
	samples    []float32
	sampleRate int
}

// NewAudioWindow creates an empty window at the given sample rate.
func NewAudioWindow(sampleRate int) *AudioWindow {
	return &AudioWindow{sampleRate: sampleRate}
}

// Append adds samples to the end of the window.
func (w *AudioWindow) Append(samples []float32) {
	w.samples = append(w.samples, samples...)
}

// Len returns the number of samples currently buffered.
func (w *AudioWindow) Len() int {
	return len(w.samples)
}

// Duration returns the buffered audio's duration in seconds.
func (w *AudioWindow) Duration() float64 {
	if w.sampleRate == 0 {
		return 0
	}
	return float64(len(w.samples)) / float64(w.sampleRate)
}

// Samples returns the buffered samples. Callers must not retain the
// returned slice past the next mutating call.
func (w *AudioWindow) Samples() []float32 {
	return w.samples
}

// TruncateSamples drops the first n samples from the window, as when a
// segment boundary commit consumes the audio up to segments[-2].end.
func (w *AudioWindow) TruncateSamples(n int) {
	if n <= 0 {
		return
	}
	if n >= len(w.samples) {
		w.samples = w.samples[:0]
		return
	}
	w.samples = append(w.samples[:0], w.samples[n:]...)
}

// Reset empties the window.
func (w *AudioWindow) Reset() {
	w.samples = w.samples[:0]
}
