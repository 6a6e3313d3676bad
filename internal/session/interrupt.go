package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/leviathanch/Google-Companion/internal/telemetry"
)

// InterruptionHandler reacts to barge-in. The whole point is latency:
// everything here runs synchronously on the event loop so pending audio
// is gone before the next frame is considered.
type InterruptionHandler struct {
	scheduler  *PlaybackScheduler
	aggregator *TranscriptAggregator
	gate       *micGate
	metrics    *telemetry.Metrics
	logger     *zap.Logger
}

func NewInterruptionHandler(scheduler *PlaybackScheduler, aggregator *TranscriptAggregator, gate *micGate, metrics *telemetry.Metrics, logger *zap.Logger) *InterruptionHandler {
	return &InterruptionHandler{
		scheduler:  scheduler,
		aggregator: aggregator,
		gate:       gate,
		metrics:    metrics,
		logger:     logger,
	}
}

// OnInterrupted drops all scheduled playback, discards the partial model
// transcript, and reopens the mic immediately. No cooldown: the user is
// already speaking, holding the gate would clip their turn.
func (h *InterruptionHandler) OnInterrupted(ctx context.Context) {
	dropped := h.scheduler.ActiveCount()
	h.scheduler.Flush()
	h.aggregator.OnInterrupted()
	h.gate.clearSpeaking()
	h.metrics.Interruptions.Add(ctx, 1)
	h.logger.Info("Playback interrupted by user", zap.Int("droppedBuffers", dropped))
}
