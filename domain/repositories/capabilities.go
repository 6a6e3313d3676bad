package repositories

import (
	"context"

	"github.com/leviathanch/Google-Companion/domain/entities"
)

// Capabilities are the inward-injected async functions tool handlers may
// call. Every field is optional; a nil function degrades to a
// "capability disabled" tool result, never a crash.
type Capabilities struct {
	Search       func(ctx context.Context, query string) (string, error)
	ReadResource func(ctx context.Context, name string) (string, error)
	ListTasks    func(ctx context.Context) (string, error)
	AddTask      func(ctx context.Context, task string) (string, error)
}

// SideEffects are outward-facing callbacks a tool handler may trigger. The
// dispatcher performs no persistence itself; it only delegates.
type SideEffects struct {
	SaveNote      func(title, body string) error
	SaveFile      func(name, content string) error
	PlayMedia     func(query string) error
	SetExpression func(name string) error
	Notify        func(title, body string) error
}

// TranscriptSink receives finalized transcript messages. The session emits
// into it and reads nothing back.
type TranscriptSink interface {
	SaveTranscript(ctx context.Context, msg entities.TranscriptMessage) error
}

// GroundingSink receives grounding metadata verbatim.
type GroundingSink interface {
	OnGrounding(raw []byte)
}

// Transcriber is an optional local speech-to-text stream for transports
// that do not emit user-side transcription events. Finalized utterance text
// is delivered through the callback passed to Start.
type Transcriber interface {
	Start(ctx context.Context, onFinal func(text string)) error
	Feed(pcm []byte) error
	Close() error
}
