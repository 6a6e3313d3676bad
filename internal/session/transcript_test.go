package session

import (
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leviathanch/Google-Companion/domain/entities"
)

func TestTranscriptDeltasJoinWithoutSeparator(t *testing.T) {
	agg := NewTranscriptAggregator(clock.NewMock(), nil, zap.NewNop())

	agg.OnDelta(entities.RoleModel, "Hel")
	agg.OnDelta(entities.RoleModel, "lo")

	msgs := agg.OnTurnComplete()
	require.Len(t, msgs, 1)
	assert.Equal(t, entities.RoleModel, msgs[0].Role)
	assert.Equal(t, "Hello", msgs[0].Text)
	assert.NotEmpty(t, msgs[0].ID)
}

func TestTurnCompleteFlushesBothRoles(t *testing.T) {
	sink := &memTranscriptSink{}
	agg := NewTranscriptAggregator(clock.NewMock(), sink, zap.NewNop())

	agg.OnDelta(entities.RoleUser, "what time is it")
	agg.OnDelta(entities.RoleModel, "It is noon.")

	msgs := agg.OnTurnComplete()
	require.Len(t, msgs, 2)
	assert.Equal(t, entities.RoleUser, msgs[0].Role)
	assert.Equal(t, entities.RoleModel, msgs[1].Role)
	assert.Len(t, sink.saved(), 2)
}

func TestDuplicateTurnCompleteEmitsNothing(t *testing.T) {
	sink := &memTranscriptSink{}
	agg := NewTranscriptAggregator(clock.NewMock(), sink, zap.NewNop())

	agg.OnDelta(entities.RoleModel, "done")
	require.Len(t, agg.OnTurnComplete(), 1)

	// The buffers are empty now; a second boundary is a no-op.
	assert.Empty(t, agg.OnTurnComplete())
	assert.Len(t, sink.saved(), 1)
}

func TestInterruptDiscardsPartialUtterance(t *testing.T) {
	sink := &memTranscriptSink{}
	agg := NewTranscriptAggregator(clock.NewMock(), sink, zap.NewNop())

	agg.OnDelta(entities.RoleModel, "I was about to say")
	agg.OnInterrupted()

	assert.Empty(t, agg.OnTurnComplete())
	assert.Empty(t, sink.saved())
}

func TestUnknownRoleIgnored(t *testing.T) {
	agg := NewTranscriptAggregator(clock.NewMock(), nil, zap.NewNop())

	agg.OnDelta(entities.Role("narrator"), "off script")
	assert.Empty(t, agg.OnTurnComplete())
}
