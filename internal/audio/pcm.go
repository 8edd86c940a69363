package audio

import (
	"encoding/binary"
	"math"
)

// int16Scale is the divisor used to normalize a little-endian int16 PCM
// sample into the range the VAD and ASR stages expect.
const int16Scale = 32768.0

func decodePCM(data []byte) []float32 {
	n := len(data) / 2
	samples := make([]float32, n)
	for i := range n {
		s := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float32(s) / int16Scale
	}
	return samples
}

// BytesToFloat32 converts a little-endian int16 mono PCM buffer into
// normalized float32 samples in [-1.0, 1.0). A trailing odd byte is ignored.
func BytesToFloat32(data []byte) []float32 {
	return decodePCM(data)
}

// Float32ToBytes converts normalized float32 samples back into a
// little-endian int16 PCM buffer, clamping to the representable range.
func Float32ToBytes(samples []float32) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		clamped := float64(s)
		if clamped > 1.0 {
			clamped = 1.0
		}
		if clamped < -1.0 {
			clamped = -1.0
		}
		val := int16(math.Round(clamped * (int16Scale - 1)))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(val))
	}
	return buf
}
