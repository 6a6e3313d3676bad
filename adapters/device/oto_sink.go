package device

import (
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"
	"go.uber.org/zap"

	"github.com/leviathanch/Google-Companion/domain/repositories"
	"github.com/leviathanch/Google-Companion/internal/audio"
)

// SpeakerSink plays agent audio through the default output device. The
// player pulls from an internal buffer via io.Reader, so writes never
// block on the hardware.
type SpeakerSink struct {
	logger *zap.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	buf     []byte
	gen     uint64
	playing bool
	closed  bool

	otoCtx *oto.Context
	player *oto.Player
}

var _ repositories.AudioSink = (*SpeakerSink)(nil)

// NewSpeakerSink opens the output device at the session playback rate and
// blocks until the audio context is ready.
func NewSpeakerSink(logger *zap.Logger) (*SpeakerSink, error) {
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   audio.PlaybackRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   4800, // ~100ms at 24kHz mono s16
	})
	if err != nil {
		return nil, err
	}
	<-ready

	s := &SpeakerSink{logger: logger, otoCtx: otoCtx}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

// Write queues PCM for playback and starts the player on first data.
func (s *SpeakerSink) Write(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	s.buf = append(s.buf, pcm...)
	if !s.playing {
		s.playing = true
		s.player = s.otoCtx.NewPlayer(&playerFeed{sink: s, gen: s.gen})
		s.player.Play()
	}
	s.cond.Broadcast()
	return nil
}

// playerFeed is the io.Reader handed to an oto player. Each player gets
// its own feed pinned to the sink generation it was created in; once a
// Flush retires that generation the feed returns EOF, so a reader
// goroutine of a closed player can never consume audio queued after the
// flush.
type playerFeed struct {
	sink *SpeakerSink
	gen  uint64
}

func (f *playerFeed) Read(p []byte) (int, error) {
	s := f.sink
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.buf) == 0 && !s.closed && s.gen == f.gen {
		s.cond.Wait()
	}
	if s.gen != f.gen {
		return 0, io.EOF
	}
	if s.closed && len(s.buf) == 0 {
		// Silence lets oto drain without an error pop.
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

// Flush discards everything queued, including audio already handed to the
// player, so nothing stale leaks out after an interruption. Bumping the
// generation wakes and retires any reader still parked on the old player.
func (s *SpeakerSink) Flush() {
	s.mu.Lock()
	s.buf = s.buf[:0]
	s.gen++
	player := s.player
	s.player = nil
	s.playing = false
	s.cond.Broadcast()
	s.mu.Unlock()

	if player != nil {
		player.Pause()
		player.Reset()
		player.Close()
	}
}

// Close stops playback for good.
func (s *SpeakerSink) Close() error {
	s.mu.Lock()
	s.closed = true
	player := s.player
	s.player = nil
	s.cond.Broadcast()
	s.mu.Unlock()

	if player != nil {
		_ = player.Close()
	}
	return nil
}
