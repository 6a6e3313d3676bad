package session

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/leviathanch/Google-Companion/domain/repositories"
	"github.com/leviathanch/Google-Companion/internal/audio"
	"github.com/leviathanch/Google-Companion/internal/telemetry"
)

// CaptureEngine pulls fixed-size frames from the microphone, applies the
// mic gate, and forwards encoded frames to the transport. Gated frames are
// dropped outright: there is no queue and no replay, so a closed gate
// means the audio is simply lost.
type CaptureEngine struct {
	source      repositories.AudioSource
	transport   repositories.AgentTransport
	gate        *micGate
	transcriber repositories.Transcriber
	metrics     *telemetry.Metrics
	logger      *zap.Logger
}

// NewCaptureEngine wires a capture loop. transcriber may be nil.
func NewCaptureEngine(
	source repositories.AudioSource,
	transport repositories.AgentTransport,
	gate *micGate,
	transcriber repositories.Transcriber,
	metrics *telemetry.Metrics,
	logger *zap.Logger,
) *CaptureEngine {
	return &CaptureEngine{
		source:      source,
		transport:   transport,
		gate:        gate,
		transcriber: transcriber,
		metrics:     metrics,
		logger:      logger,
	}
}

// Run reads frames until the context is cancelled or the device fails.
// A device failure mid-session is reported through onFatal; individual
// send failures are logged and the frame is lost.
func (e *CaptureEngine) Run(ctx context.Context, onFatal func(error)) {
	for {
		samples, err := e.source.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			e.logger.Error("Microphone read failed", zap.Error(err))
			if onFatal != nil {
				onFatal(err)
			}
			return
		}

		e.ProcessFrame(ctx, samples)
	}
}

// ProcessFrame applies the gate to one frame and forwards it when open.
func (e *CaptureEngine) ProcessFrame(ctx context.Context, samples []int16) {
	if !e.gate.Open() {
		e.metrics.FramesGated.Add(ctx, 1)
		return
	}

	pcm := audio.MarshalPCM16(samples)

	if e.transcriber != nil {
		if err := e.transcriber.Feed(pcm); err != nil {
			e.logger.Warn("Local transcriber rejected frame", zap.Error(err))
		}
	}

	if err := e.transport.SendRealtimeAudio(pcm); err != nil {
		e.logger.Error("Failed to send capture frame", zap.Error(err))
		return
	}
	e.metrics.FramesSent.Add(ctx, 1)
}
