package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leviathanch/Google-Companion/domain/entities"
	"github.com/leviathanch/Google-Companion/domain/repositories"
)

// TranscriptAggregator accumulates streamed transcript deltas per role and
// flushes complete utterances on turn boundaries. An interrupted utterance
// is discarded, never emitted.
type TranscriptAggregator struct {
	clk    clock.Clock
	sink   repositories.TranscriptSink
	logger *zap.Logger

	mu      sync.Mutex
	buffers map[entities.Role]*strings.Builder
}

// NewTranscriptAggregator creates an aggregator emitting into sink.
// sink may be nil, in which case flushed messages are only logged.
func NewTranscriptAggregator(clk clock.Clock, sink repositories.TranscriptSink, logger *zap.Logger) *TranscriptAggregator {
	return &TranscriptAggregator{
		clk:    clk,
		sink:   sink,
		logger: logger,
		buffers: map[entities.Role]*strings.Builder{
			entities.RoleUser:  {},
			entities.RoleModel: {},
		},
	}
}

// OnDelta appends one fragment to the role's pending utterance.
func (a *TranscriptAggregator) OnDelta(role entities.Role, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	buf, ok := a.buffers[role]
	if !ok {
		a.logger.Warn("Transcript delta for unknown role", zap.String("role", string(role)))
		return
	}
	buf.WriteString(text)
}

// OnTurnComplete flushes both role buffers. Empty buffers produce nothing,
// so a duplicate turn-complete is a no-op.
func (a *TranscriptAggregator) OnTurnComplete() []entities.TranscriptMessage {
	a.mu.Lock()
	var out []entities.TranscriptMessage
	for _, role := range []entities.Role{entities.RoleUser, entities.RoleModel} {
		buf := a.buffers[role]
		if buf.Len() == 0 {
			continue
		}
		out = append(out, entities.TranscriptMessage{
			ID:        uuid.NewString(),
			Role:      role,
			Text:      buf.String(),
			Timestamp: a.clk.Now(),
		})
		buf.Reset()
	}
	a.mu.Unlock()

	for _, msg := range out {
		a.emit(msg)
	}
	return out
}

// OnInterrupted discards both buffers without emitting anything.
func (a *TranscriptAggregator) OnInterrupted() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, buf := range a.buffers {
		buf.Reset()
	}
}

func (a *TranscriptAggregator) emit(msg entities.TranscriptMessage) {
	a.logger.Info("Transcript message",
		zap.String("role", string(msg.Role)),
		zap.String("text", msg.Text))
	if a.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.sink.SaveTranscript(ctx, msg); err != nil {
		a.logger.Error("Failed to persist transcript message",
			zap.String("id", msg.ID),
			zap.Error(err))
	}
}
