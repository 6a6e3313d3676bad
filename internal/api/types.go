package api

import "time"

// LoginRequest represents the request payload for monitor authentication
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the response payload for monitor authentication
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SendTextRequest carries a typed message for the live session
type SendTextRequest struct {
	Text string `json:"text" validate:"required"`
}

// StateResponse reports the session lifecycle state
type StateResponse struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
