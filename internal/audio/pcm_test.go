package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBytesToFloat32RoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 100, -100, 12345, -12345}
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		buf[i*2] = byte(uint16(s))
		buf[i*2+1] = byte(uint16(s) >> 8)
	}

	floats := BytesToFloat32(buf)
	require.Len(t, floats, len(samples))

	for i, f := range floats {
		require.GreaterOrEqual(t, f, float32(-1.0))
		require.Less(t, f, float32(1.0))

		want := float64(samples[i]) / int16Scale
		require.Less(t, math.Abs(float64(f)-want), 1e-6)
	}
}

func TestBytesToFloat32OddTrailingByteIgnored(t *testing.T) {
	buf := []byte{0x01, 0x02, 0xFF}
	floats := BytesToFloat32(buf)
	require.Len(t, floats, 1)
}
