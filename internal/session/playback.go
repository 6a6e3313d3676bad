package session

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/leviathanch/Google-Companion/domain/repositories"
	"github.com/leviathanch/Google-Companion/internal/audio"
)

// PlaybackScheduler lays decoded agent audio on a monotonic timeline.
// Buffers arriving faster than real time queue back-to-back with no gap and
// no overlap; if the producer stalls, the next buffer simply starts at
// arrival time. Flush is the only way the timeline moves backward.
type PlaybackScheduler struct {
	clk    clock.Clock
	sink   repositories.AudioSink
	tap    *audio.LevelMeter
	gate   *micGate
	logger *zap.Logger

	mu     sync.Mutex
	cursor time.Time
	active map[uint64]*scheduledBuffer
	nextID uint64
	epoch  uint64
}

type scheduledBuffer struct {
	start    time.Time
	duration time.Duration
	startT   *clock.Timer
	endT     *clock.Timer
}

// NewPlaybackScheduler creates a scheduler writing to sink and reporting
// levels through tap. The gate is updated synchronously as buffers drain.
func NewPlaybackScheduler(clk clock.Clock, sink repositories.AudioSink, tap *audio.LevelMeter, gate *micGate, logger *zap.Logger) *PlaybackScheduler {
	return &PlaybackScheduler{
		clk:    clk,
		sink:   sink,
		tap:    tap,
		gate:   gate,
		logger: logger,
		cursor: clk.Now(),
		active: make(map[uint64]*scheduledBuffer),
	}
}

// Reset moves the clock cursor to now, called once on connect.
func (p *PlaybackScheduler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursor = p.clk.Now()
}

// Schedule queues one decoded PCM16LE buffer for gapless output and returns
// its scheduled start time.
func (p *PlaybackScheduler) Schedule(pcm []byte) time.Time {
	d := audio.Duration(pcm, audio.PlaybackRate)

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clk.Now()
	start := now
	if p.cursor.After(now) {
		start = p.cursor
	}
	p.cursor = start.Add(d)

	p.gate.setSpeaking(true)

	id := p.nextID
	p.nextID++
	epoch := p.epoch
	buf := &scheduledBuffer{start: start, duration: d}
	p.active[id] = buf

	buf.startT = p.clk.AfterFunc(start.Sub(now), func() {
		p.play(epoch, pcm)
	})
	buf.endT = p.clk.AfterFunc(start.Sub(now)+d, func() {
		p.bufferEnded(epoch, id)
	})

	p.logger.Debug("Scheduled playback buffer",
		zap.Duration("duration", d),
		zap.Time("start", start),
		zap.Int("active", len(p.active)))

	return start
}

func (p *PlaybackScheduler) play(epoch uint64, pcm []byte) {
	p.mu.Lock()
	stale := epoch != p.epoch
	p.mu.Unlock()
	if stale {
		return
	}

	// The tap sees exactly the samples handed to the sink, so lip-sync
	// always reflects what is audible.
	if samples, err := audio.UnmarshalPCM16(pcm); err == nil {
		p.tap.Push(samples)
	}
	if err := p.sink.Write(pcm); err != nil {
		p.logger.Error("Failed to write playback buffer", zap.Error(err))
	}
}

// bufferEnded must update the gate under the same critical section that
// empties the active set; the next capture callback has to see the new
// speaking state.
func (p *PlaybackScheduler) bufferEnded(epoch uint64, id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if epoch != p.epoch {
		return
	}
	delete(p.active, id)
	if len(p.active) == 0 {
		p.gate.setSpeaking(false)
		p.tap.Reset()
	}
}

// Flush stops every active buffer immediately, clears the set, and resets
// the playback clock to now. Invoked on interruption and teardown.
func (p *PlaybackScheduler) Flush() {
	p.mu.Lock()
	for _, buf := range p.active {
		buf.startT.Stop()
		buf.endT.Stop()
	}
	p.active = make(map[uint64]*scheduledBuffer)
	p.epoch++
	p.cursor = p.clk.Now()
	p.mu.Unlock()

	p.sink.Flush()
	p.tap.Reset()
}

// ActiveCount reports how many buffers are scheduled or playing.
func (p *PlaybackScheduler) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// Cursor reports where the timeline currently ends.
func (p *PlaybackScheduler) Cursor() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}
