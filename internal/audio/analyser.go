package audio

import (
	"math"
	"sync"
)

// LevelMeter is the analysis tap between the playback scheduler and the
// output sink. The scheduler pushes every buffer it plays; renderers read
// volume and coarse band energy for lip-sync. Reads never block or mutate
// scheduling state.
type LevelMeter struct {
	mu     sync.RWMutex
	volume float64
	bands  [3]float64
}

// NewLevelMeter creates an idle meter reading zero.
func NewLevelMeter() *LevelMeter {
	return &LevelMeter{}
}

// Push analyses one buffer of samples that is about to become audible.
func (m *LevelMeter) Push(samples []int16) {
	if len(samples) == 0 {
		return
	}

	var sum float64
	for _, s := range samples {
		v := float64(s) / 32767
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(samples)))

	// Coarse spectral split by zero-crossing density per third of the
	// buffer. Good enough for mouth shapes; not an FFT.
	var bands [3]float64
	third := len(samples) / 3
	if third > 0 {
		for b := 0; b < 3; b++ {
			seg := samples[b*third : (b+1)*third]
			var crossings, energy float64
			for i := 1; i < len(seg); i++ {
				if (seg[i-1] < 0) != (seg[i] < 0) {
					crossings++
				}
				v := float64(seg[i]) / 32767
				energy += v * v
			}
			density := crossings / float64(len(seg))
			bands[b] = math.Sqrt(energy/float64(len(seg))) * (0.5 + density)
		}
	}

	m.mu.Lock()
	m.volume = rms
	m.bands = bands
	m.mu.Unlock()
}

// Reset zeroes the meter, used when playback goes silent.
func (m *LevelMeter) Reset() {
	m.mu.Lock()
	m.volume = 0
	m.bands = [3]float64{}
	m.mu.Unlock()
}

// Volume reports the RMS level of the current window in [0, 1].
func (m *LevelMeter) Volume() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.volume
}

// Bands reports low/mid/high energy of the current window.
func (m *LevelMeter) Bands() [3]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bands
}
