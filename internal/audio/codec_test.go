package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPCM16RoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 12345}

	pcm := MarshalPCM16(samples)
	require.Len(t, pcm, len(samples)*2)

	back, err := UnmarshalPCM16(pcm)
	require.NoError(t, err)
	assert.Equal(t, samples, back)
}

func TestUnmarshalRejectsOddLength(t *testing.T) {
	_, err := UnmarshalPCM16([]byte{0x01, 0x02, 0x03})
	assert.Error(t, err)
}

func TestFloatEncodingClamps(t *testing.T) {
	out := EncodeFloats([]float64{0, 1, -1, 2.5, -2.5})
	assert.Equal(t, int16(0), out[0])
	assert.Equal(t, int16(32767), out[1])
	assert.Equal(t, int16(-32767), out[2])
	assert.Equal(t, int16(32767), out[3], "values above 1 clamp")
	assert.Equal(t, int16(-32767), out[4], "values below -1 clamp")
}

func TestFloatRoundTripIsClose(t *testing.T) {
	in := []float64{0, 0.5, -0.5, 0.99, -0.99}
	back := DecodeFloats(EncodeFloats(in))
	require.Len(t, back, len(in))
	for i := range in {
		assert.InDelta(t, in[i], back[i], 1.0/32767.0)
	}
}

func TestBase64RoundTrip(t *testing.T) {
	pcm := MarshalPCM16([]int16{100, -200, 300})
	back, err := DecodeBase64(EncodeBase64(pcm))
	require.NoError(t, err)
	assert.Equal(t, pcm, back)
}

func TestDecodeBase64Invalid(t *testing.T) {
	_, err := DecodeBase64("not!!base64@@")
	assert.Error(t, err)
}

func TestDuration(t *testing.T) {
	// One second of mono s16 at the playback rate.
	pcm := make([]byte, PlaybackRate*2)
	assert.Equal(t, time.Second, Duration(pcm, PlaybackRate))

	// Half a second at the capture rate.
	pcm = make([]byte, CaptureRate)
	assert.Equal(t, 500*time.Millisecond, Duration(pcm, CaptureRate))
}

func TestLevelMeterTracksVolume(t *testing.T) {
	m := NewLevelMeter()
	assert.Zero(t, m.Volume())

	loud := make([]int16, 1024)
	for i := range loud {
		loud[i] = 16000
	}
	m.Push(loud)
	assert.Greater(t, m.Volume(), 0.0)

	m.Reset()
	assert.Zero(t, m.Volume())
	assert.Equal(t, [3]float64{}, m.Bands())
}
