package repositories

import (
	"context"
	"encoding/json"

	"github.com/leviathanch/Google-Companion/domain/entities"
)

// AgentTransport abstracts the duplex connection to the remote
// generative-audio agent. Implementations deliver inbound events on a
// single channel in arrival order; the channel closes when the connection
// goes away for any reason, which is always fatal to the session.
type AgentTransport interface {
	// Open dials the agent and sends the session setup. It blocks until the
	// handshake completes or fails.
	Open(ctx context.Context, setup entities.SessionSetup) error

	// Events yields inbound events. Closed on connection loss or Close.
	Events() <-chan ServerEvent

	// SendRealtimeAudio forwards one captured PCM frame upstream.
	// Fire-and-forget; a failed send is logged by the caller, never retried.
	SendRealtimeAudio(pcm []byte) error

	// SendToolResponses sends one complete correlated response batch.
	SendToolResponses(responses []entities.ToolResponse) error

	// SendClientText injects a synthetic user turn, bypassing capture.
	SendClientText(text string) error

	// Err returns the terminal transport error, if any, once Events closes.
	Err() error

	Close() error
}

// ServerEvent is one inbound transport event. Exactly one concrete type per
// recognized event shape; anything else surfaces as UnknownEvent.
type ServerEvent interface {
	serverEvent()
}

// AudioPartEvent carries one decoded segment of agent speech (PCM16LE).
type AudioPartEvent struct {
	PCM []byte
}

// TranscriptionEvent carries one streamed transcript delta for a role.
type TranscriptionEvent struct {
	Role entities.Role
	Text string
}

// TurnCompleteEvent marks the end of the agent's current turn.
type TurnCompleteEvent struct{}

// InterruptedEvent signals user barge-in; the in-flight turn is abandoned.
type InterruptedEvent struct{}

// ToolCallEvent carries one batch of tool-call requests.
type ToolCallEvent struct {
	Calls []entities.ToolCall
}

// GroundingEvent passes grounding metadata through verbatim.
type GroundingEvent struct {
	Metadata json.RawMessage
}

// UnknownEvent is any unrecognized shape. Logged and dropped, never fatal.
type UnknownEvent struct {
	Kind string
	Raw  json.RawMessage
}

func (AudioPartEvent) serverEvent()     {}
func (TranscriptionEvent) serverEvent() {}
func (TurnCompleteEvent) serverEvent()  {}
func (InterruptedEvent) serverEvent()   {}
func (ToolCallEvent) serverEvent()      {}
func (GroundingEvent) serverEvent()     {}
func (UnknownEvent) serverEvent()       {}
