package entities

import (
	"errors"
	"fmt"
)

// SessionState represents the lifecycle state of a voice session
type SessionState string

const (
	SessionDisconnected SessionState = "disconnected"
	SessionConnecting   SessionState = "connecting"
	SessionConnected    SessionState = "connected"
	SessionError        SessionState = "error"
)

// Terminal reports whether the state allows a new connect attempt
func (s SessionState) Terminal() bool {
	return s == SessionDisconnected || s == SessionError
}

var (
	// ErrNotConnected is returned by operations that require an open session
	ErrNotConnected = errors.New("session is not connected")

	// ErrSessionClosed is returned when a connect attempt is unwound by a
	// concurrent disconnect
	ErrSessionClosed = errors.New("session was closed during connect")

	// ErrTransportClosed is returned by transport sends after the connection
	// has gone away
	ErrTransportClosed = errors.New("transport is closed")
)

// TransportError wraps a connection-level failure with the operation and
// endpoint that produced it
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func NewTransportError(op, url string, status int, err error) *TransportError {
	return &TransportError{Op: op, URL: url, StatusCode: status, Err: err}
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport %s %s (status %d): %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SessionSetup is the negotiated configuration sent once at connect time
type SessionSetup struct {
	Persona          string            `json:"systemInstruction"`
	Voice            string            `json:"voice"`
	ResponseModality string            `json:"responseModality"`
	Tools            []ToolDeclaration `json:"tools,omitempty"`
}
