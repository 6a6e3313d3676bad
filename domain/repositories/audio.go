package repositories

import "context"

// AudioSource is a capture device producing fixed-size sample frames.
type AudioSource interface {
	// Start acquires the device. Failure is fatal to connect.
	Start(ctx context.Context) error

	// ReadFrame blocks until one full frame of samples is available or the
	// context is cancelled.
	ReadFrame(ctx context.Context) ([]int16, error)

	// Stop releases the device. Idempotent.
	Stop() error
}

// AudioSink is an output device consuming PCM16LE bytes.
type AudioSink interface {
	// Write queues decoded agent audio for output.
	Write(pcm []byte) error

	// Flush discards everything queued and silences output immediately.
	Flush()

	Close() error
}

// Analyser is the read-only tap over what is currently audible. Renderers
// poll it for lip-sync; nothing they do can affect scheduling.
type Analyser interface {
	// Volume reports the current output level in [0, 1].
	Volume() float64

	// Bands reports coarse low/mid/high energy of the current window.
	Bands() [3]float64
}
