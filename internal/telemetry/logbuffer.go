package telemetry

import (
	"sync"

	"github.com/leviathanch/Google-Companion/domain/entities"
)

// LogRing keeps the most recent log entries in memory so the monitor UI
// can show them without tailing files.
type LogRing struct {
	mu      sync.Mutex
	entries []entities.LogEntry
	next    int
	full    bool
}

func NewLogRing(capacity int) *LogRing {
	if capacity <= 0 {
		capacity = 256
	}
	return &LogRing{entries: make([]entities.LogEntry, capacity)}
}

func (r *LogRing) Append(entry entities.LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = entry
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
}

// Snapshot returns the buffered entries oldest first.
func (r *LogRing) Snapshot() []entities.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		out := make([]entities.LogEntry, r.next)
		copy(out, r.entries[:r.next])
		return out
	}
	out := make([]entities.LogEntry, 0, len(r.entries))
	out = append(out, r.entries[r.next:]...)
	out = append(out, r.entries[:r.next]...)
	return out
}

func (r *LogRing) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next = 0
	r.full = false
}
