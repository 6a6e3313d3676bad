package session

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/leviathanch/Google-Companion/domain/entities"
	"github.com/leviathanch/Google-Companion/domain/repositories"
	"github.com/leviathanch/Google-Companion/internal/audio"
	"github.com/leviathanch/Google-Companion/internal/telemetry"
)

// TransportFactory builds a fresh transport for each connection attempt.
// A closed transport is never reused.
type TransportFactory func() repositories.AgentTransport

// Listener receives session-level notifications, typically fanned out to
// the monitor UI. All methods are called from the controller's loops and
// must not block.
type Listener interface {
	OnStateChange(state entities.SessionState)
	OnTranscript(msg entities.TranscriptMessage)
}

// Options carries the optional collaborators of a controller.
type Options struct {
	Transcriber repositories.Transcriber
	Grounding   repositories.GroundingSink
	Listener    Listener
}

// SessionController owns the lifecycle of one duplex voice session and is
// the only component that talks to the transport's event stream. All
// server events are applied from a single dispatch loop, so ordering
// between audio, transcription, turn boundaries and interruptions is
// exactly the wire ordering.
type SessionController struct {
	clk        clock.Clock
	newTrans   TransportFactory
	source     repositories.AudioSource
	gate       *micGate
	scheduler  *PlaybackScheduler
	aggregator *TranscriptAggregator
	dispatcher *ToolDispatcher
	interrupts *InterruptionHandler
	capture    *CaptureEngine
	tap        *audio.LevelMeter
	opts       Options
	setup      entities.SessionSetup
	metrics    *telemetry.Metrics
	logger     *zap.Logger

	mu            sync.Mutex
	state         entities.SessionState
	epoch         uint64
	transport     repositories.AgentTransport
	cancelCapture context.CancelFunc
	loopDone      chan struct{}
	lastErr       error
}

// NewSessionController wires the session pipeline around a transport
// factory and an audio device pair. The dispatcher must already carry
// its tool registrations; its manifest is captured into the setup at
// connect time.
func NewSessionController(
	clk clock.Clock,
	newTransport TransportFactory,
	source repositories.AudioSource,
	sink repositories.AudioSink,
	dispatcher *ToolDispatcher,
	transcriptSink repositories.TranscriptSink,
	setup entities.SessionSetup,
	opts Options,
	metrics *telemetry.Metrics,
	logger *zap.Logger,
) *SessionController {
	tap := audio.NewLevelMeter()
	gate := newMicGate(clk)
	scheduler := NewPlaybackScheduler(clk, sink, tap, gate, logger)
	aggregator := NewTranscriptAggregator(clk, transcriptSink, logger)
	interrupts := NewInterruptionHandler(scheduler, aggregator, gate, metrics, logger)

	return &SessionController{
		clk:        clk,
		newTrans:   newTransport,
		source:     source,
		gate:       gate,
		scheduler:  scheduler,
		aggregator: aggregator,
		dispatcher: dispatcher,
		interrupts: interrupts,
		tap:        tap,
		opts:       opts,
		setup:      setup,
		metrics:    metrics,
		logger:     logger,
		state:      entities.SessionDisconnected,
	}
}

// State reports the current lifecycle state.
func (c *SessionController) State() entities.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error that moved the session into SessionError, if any.
func (c *SessionController) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Analyser exposes the playback level meter for UI visualisation.
func (c *SessionController) Analyser() repositories.Analyser { return c.tap }

// IsSpeaking reports whether agent audio is currently scheduled.
func (c *SessionController) IsSpeaking() bool { return c.gate.Speaking() }

// SetExternalAudio marks that another program owns the speakers, which
// keeps the mic gate closed for the duration.
func (c *SessionController) SetExternalAudio(active bool) {
	c.gate.SetExternalAudio(active)
}

// Connect opens the transport, starts capture and the dispatch loop.
// Calling it while connecting or connected is a no-op. A Disconnect that
// lands while the transport is still opening wins: the late connect
// unwinds everything it built and reports ErrSessionClosed.
func (c *SessionController) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case entities.SessionConnecting, entities.SessionConnected:
		c.mu.Unlock()
		return nil
	}
	c.setState(entities.SessionConnecting)
	c.lastErr = nil
	c.epoch++
	myEpoch := c.epoch
	c.mu.Unlock()

	transport := c.newTrans()
	setup := c.setup
	setup.Tools = c.dispatcher.Manifest()

	if err := transport.Open(ctx, setup); err != nil {
		c.failConnect(myEpoch, err)
		return err
	}
	if err := c.source.Start(ctx); err != nil {
		_ = transport.Close()
		c.failConnect(myEpoch, err)
		return err
	}
	if c.opts.Transcriber != nil {
		if err := c.opts.Transcriber.Start(ctx, func(text string) {
			c.aggregator.OnDelta(entities.RoleUser, text)
		}); err != nil {
			c.logger.Warn("Local transcriber unavailable", zap.Error(err))
			c.opts.Transcriber = nil
		}
	}

	c.mu.Lock()
	if c.epoch != myEpoch {
		// Disconnect arrived while we were opening. Unwind.
		c.mu.Unlock()
		_ = transport.Close()
		_ = c.source.Stop()
		return entities.ErrSessionClosed
	}
	c.transport = transport
	c.gate.reset()
	c.scheduler.Reset()

	captureCtx, cancel := context.WithCancel(context.Background())
	c.cancelCapture = cancel
	c.capture = NewCaptureEngine(c.source, transport, c.gate, c.opts.Transcriber, c.metrics, c.logger)
	done := make(chan struct{})
	c.loopDone = done
	c.setState(entities.SessionConnected)
	c.mu.Unlock()

	go c.capture.Run(captureCtx, c.onFatal)
	go c.dispatchLoop(transport, myEpoch, done)

	c.logger.Info("Session connected")
	return nil
}

// Disconnect tears the session down. Safe to call in any state; calling
// it while disconnected is a no-op.
func (c *SessionController) Disconnect() error {
	c.mu.Lock()
	if c.state == entities.SessionDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.epoch++
	transport := c.transport
	c.transport = nil
	cancel := c.cancelCapture
	c.cancelCapture = nil
	done := c.loopDone
	c.loopDone = nil
	c.setState(entities.SessionDisconnected)
	c.mu.Unlock()

	c.teardown(transport, cancel, done)
	c.logger.Info("Session disconnected")
	return nil
}

// SendText injects a typed message into the live conversation.
func (c *SessionController) SendText(text string) error {
	c.mu.Lock()
	transport := c.transport
	connected := c.state == entities.SessionConnected
	c.mu.Unlock()
	if !connected || transport == nil {
		return entities.ErrNotConnected
	}
	return transport.SendClientText(text)
}

// dispatchLoop drains the transport's event stream until it closes. The
// loop exits only when the transport does; a closed stream with a
// transport error is always fatal and never retried. Once a newer epoch
// owns the session, events still buffered in the stream are drained and
// discarded so nothing gets scheduled behind a teardown.
func (c *SessionController) dispatchLoop(transport repositories.AgentTransport, epoch uint64, done chan struct{}) {
	ctx := context.Background()
	for ev := range transport.Events() {
		c.mu.Lock()
		stale := c.epoch != epoch
		c.mu.Unlock()
		if stale {
			continue
		}
		switch ev := ev.(type) {
		case repositories.AudioPartEvent:
			c.scheduler.Schedule(ev.PCM)
			c.metrics.BuffersScheduled.Add(ctx, 1)
		case repositories.TranscriptionEvent:
			c.aggregator.OnDelta(ev.Role, ev.Text)
		case repositories.TurnCompleteEvent:
			for _, msg := range c.aggregator.OnTurnComplete() {
				if c.opts.Listener != nil {
					c.opts.Listener.OnTranscript(msg)
				}
			}
		case repositories.InterruptedEvent:
			c.interrupts.OnInterrupted(ctx)
		case repositories.ToolCallEvent:
			go c.dispatcher.Dispatch(ctx, transport, ev.Calls)
		case repositories.GroundingEvent:
			if c.opts.Grounding != nil {
				c.opts.Grounding.OnGrounding(ev.Metadata)
			}
		case repositories.UnknownEvent:
			c.logger.Warn("Unhandled server event", zap.String("kind", ev.Kind))
		}
	}
	close(done)
	c.finalize(epoch, transport.Err())
}

// onFatal handles capture-side device failures.
func (c *SessionController) onFatal(err error) {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()
	c.finalize(epoch, err)
}

// finalize moves the session out of Connected after its transport or
// device died. A stale epoch means a newer Connect or Disconnect already
// owns the state; the late loop just goes away.
func (c *SessionController) finalize(epoch uint64, err error) {
	c.mu.Lock()
	if c.epoch != epoch || c.state != entities.SessionConnected {
		c.mu.Unlock()
		return
	}
	c.epoch++
	transport := c.transport
	c.transport = nil
	cancel := c.cancelCapture
	c.cancelCapture = nil
	done := c.loopDone
	c.loopDone = nil
	if err != nil {
		c.lastErr = err
		c.setState(entities.SessionError)
	} else {
		c.setState(entities.SessionDisconnected)
	}
	c.mu.Unlock()

	c.teardown(transport, cancel, done)
	if err != nil {
		c.logger.Error("Session failed", zap.Error(err))
	} else {
		c.logger.Info("Session closed by server")
	}
}

// failConnect records a connect-phase failure unless a concurrent
// Disconnect already moved the state on.
func (c *SessionController) failConnect(epoch uint64, err error) {
	_ = c.source.Stop()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return
	}
	c.lastErr = err
	c.setState(entities.SessionError)
	c.logger.Error("Session connect failed", zap.Error(err))
}

// teardown releases everything a live session holds. Called outside the
// state lock. Closing the transport ends the dispatch loop; the flush
// and gate reset happen only after the loop has exited, so no event the
// stream still held can schedule playback behind them.
func (c *SessionController) teardown(transport repositories.AgentTransport, cancel context.CancelFunc, done chan struct{}) {
	if cancel != nil {
		cancel()
	}
	if transport != nil {
		_ = transport.Close()
	}
	if done != nil {
		<-done
	}
	_ = c.source.Stop()
	if c.opts.Transcriber != nil {
		_ = c.opts.Transcriber.Close()
	}
	c.scheduler.Flush()
	c.aggregator.OnInterrupted()
	c.gate.reset()
}

// setState must be called with c.mu held.
func (c *SessionController) setState(state entities.SessionState) {
	if c.state == state {
		return
	}
	c.state = state
	if c.opts.Listener != nil {
		c.opts.Listener.OnStateChange(state)
	}
}
