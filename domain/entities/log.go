package entities

import "time"

// LogEntry is one observability record. Entries are append-only and never
// participate in control flow.
type LogEntry struct {
	Time    time.Time      `json:"time"`
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}
