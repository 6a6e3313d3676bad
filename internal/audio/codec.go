// Package audio implements the PCM codec and frame math shared by the
// capture and playback paths. Upstream audio is mono 16 kHz, downstream
// mono 24 kHz, both 16-bit signed little-endian.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// CaptureRate is the upstream microphone sample rate in Hz.
	CaptureRate = 16000

	// PlaybackRate is the downstream agent-audio sample rate in Hz.
	PlaybackRate = 24000

	// FrameSamples is the fixed capture frame size (~256 ms at 16 kHz).
	FrameSamples = 4096

	bytesPerSample = 2
)

// MarshalPCM16 packs samples into 16-bit little-endian bytes.
func MarshalPCM16(samples []int16) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(s))
	}
	return out
}

// UnmarshalPCM16 unpacks 16-bit little-endian bytes into samples.
func UnmarshalPCM16(pcm []byte) ([]int16, error) {
	if len(pcm)%bytesPerSample != 0 {
		return nil, fmt.Errorf("pcm payload has odd length %d", len(pcm))
	}
	out := make([]int16, len(pcm)/bytesPerSample)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*bytesPerSample:]))
	}
	return out, nil
}

// EncodeFloats converts normalized [-1, 1] samples to int16, clamping
// out-of-range values.
func EncodeFloats(samples []float64) []int16 {
	out := make([]int16, len(samples))
	for i, v := range samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		out[i] = int16(v * 32767)
	}
	return out
}

// DecodeFloats converts int16 samples to normalized [-1, 1] floats.
func DecodeFloats(samples []int16) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s) / 32767
	}
	return out
}

// EncodeBase64 wraps PCM bytes for transport framing.
func EncodeBase64(pcm []byte) string {
	return base64.StdEncoding.EncodeToString(pcm)
}

// DecodeBase64 unwraps a transport audio payload.
func DecodeBase64(payload string) ([]byte, error) {
	pcm, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode audio payload: %w", err)
	}
	return pcm, nil
}

// Duration returns the play time of a PCM16 mono byte buffer at the given
// sample rate.
func Duration(pcm []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 || len(pcm) == 0 {
		return 0
	}
	samples := len(pcm) / bytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
