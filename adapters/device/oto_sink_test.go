package device

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newBufferSink builds a sink without an audio context. Tests mark it
// playing so Write only queues data instead of creating a real player.
func newBufferSink() *SpeakerSink {
	s := &SpeakerSink{logger: zap.NewNop(), playing: true}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func TestFlushRetiresParkedReader(t *testing.T) {
	s := newBufferSink()

	old := &playerFeed{sink: s, gen: s.gen}
	result := make(chan error, 1)
	go func() {
		_, err := old.Read(make([]byte, 8))
		result <- err
	}()

	// Let the reader park on the empty buffer before flushing.
	time.Sleep(20 * time.Millisecond)
	s.Flush()

	select {
	case err := <-result:
		assert.Equal(t, io.EOF, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reader of the flushed player never woke up")
	}

	// Audio written after the flush belongs to the new generation only.
	s.mu.Lock()
	s.playing = true
	s.mu.Unlock()
	require.NoError(t, s.Write([]byte{1, 0, 2, 0}))

	n, err := old.Read(make([]byte, 8))
	assert.Equal(t, io.EOF, err)
	assert.Zero(t, n)

	fresh := &playerFeed{sink: s, gen: s.gen}
	got := make([]byte, 8)
	n, err = fresh.Read(got)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 2, 0}, got[:n])
}

func TestReadBlocksUntilWrite(t *testing.T) {
	s := newBufferSink()
	feed := &playerFeed{sink: s, gen: s.gen}

	type readResult struct {
		n   int
		err error
	}
	result := make(chan readResult, 1)
	go func() {
		buf := make([]byte, 4)
		n, err := feed.Read(buf)
		result <- readResult{n, err}
	}()

	require.NoError(t, s.Write([]byte{9, 0}))

	select {
	case r := <-result:
		require.NoError(t, r.err)
		assert.Equal(t, 2, r.n)
	case <-time.After(2 * time.Second):
		t.Fatal("reader never received queued audio")
	}
}

func TestClosedSinkFeedsSilence(t *testing.T) {
	s := newBufferSink()
	feed := &playerFeed{sink: s, gen: s.gen}
	require.NoError(t, s.Close())

	buf := []byte{7, 7, 7, 7}
	n, err := feed.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, []byte{0, 0, 0, 0}, buf)
}
