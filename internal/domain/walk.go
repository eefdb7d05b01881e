package domain

import (
	"math"
	"math/rand"
)

// Walk tunables. The drift is a deliberate upward bias so the simulated
// market stays investable over long horizons instead of being a true
// martingale; tune DriftProbability/DriftNudge, do not "fix" it.
const (
	DefaultVolatility       = 0.002
	DefaultDriftProbability = 0.45
	DefaultDriftNudge       = 0.05
)

// Walk produces a bounded random walk over prices. Not safe for concurrent
// use; the feed owns one and advances it from a single goroutine.
type Walk struct {
	Volatility       float64 // max fractional change per step
	DriftProbability float64 // chance of the upward nudge per step
	DriftNudge       float64 // absolute amount added when drift fires

	rng *rand.Rand
}

// NewWalk returns a walk seeded for reproducibility. Seed 0 is a valid,
// fixed seed; callers wanting varied runs pass time.Now().UnixNano().
func NewWalk(seed int64) *Walk {
	return &Walk{
		Volatility:       DefaultVolatility,
		DriftProbability: DefaultDriftProbability,
		DriftNudge:       DefaultDriftNudge,
		rng:              rand.New(rand.NewSource(seed)),
	}
}

// NextPrice advances the walk one step from current. The change is uniform
// in [-Volatility, +Volatility] applied multiplicatively, then the drift
// nudge with probability DriftProbability. The result is rounded to currency
// granularity and always positive.
func (w *Walk) NextPrice(current float64) float64 {
	change := (w.rng.Float64()*2 - 1) * w.Volatility
	next := current * (1 + change)
	if w.rng.Float64() < w.DriftProbability {
		next += w.DriftNudge
	}
	next = Round2(next)
	if next < 0.01 {
		next = 0.01
	}
	return next
}

// Round2 rounds to 2 decimal places (currency granularity).
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
