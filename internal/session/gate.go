package session

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// speechCooldown is how long the gate stays closed after agent speech ends,
// so the tail of the reply plus room echo is not re-captured as user input.
const speechCooldown = 700 * time.Millisecond

// micGate decides whether a captured frame is forwarded. It is the one
// piece of state shared between the capture callback and the playback
// scheduler, so every update happens synchronously under the lock in the
// callback that observed the triggering event. A deferred update here is
// exactly the echo-feedback bug this gate exists to prevent.
type micGate struct {
	clk clock.Clock

	mu            sync.Mutex
	speaking      bool
	cooldownUntil time.Time
	externalAudio bool
}

func newMicGate(clk clock.Clock) *micGate {
	return &micGate{clk: clk}
}

// Open reports whether the next captured frame may be forwarded.
func (g *micGate) Open() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.externalAudio || g.speaking {
		return false
	}
	return !g.clk.Now().Before(g.cooldownUntil)
}

// setSpeaking flips the speaking flag. The transition to false records the
// cooldown deadline.
func (g *micGate) setSpeaking(speaking bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.speaking && !speaking {
		g.cooldownUntil = g.clk.Now().Add(speechCooldown)
	}
	g.speaking = speaking
}

// clearSpeaking drops the speaking flag without arming the cooldown, used
// on interruption: the user is already talking, gating them is pointless.
func (g *micGate) clearSpeaking() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.speaking = false
	g.cooldownUntil = time.Time{}
}

// SetExternalAudio marks that some other audio (a music player, say) is
// active, closing the gate while it lasts.
func (g *micGate) SetExternalAudio(active bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.externalAudio = active
}

func (g *micGate) Speaking() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.speaking
}

// reset clears all gate state on teardown.
func (g *micGate) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.speaking = false
	g.cooldownUntil = time.Time{}
	g.externalAudio = false
}
