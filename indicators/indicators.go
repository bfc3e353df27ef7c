// Package indicators provides streaming technical indicators over bars.
package indicators

import "github.com/rustyeddy/gridbt/market"

// Indicator computes a single streaming value from bars.
// It is deterministic and safe to use in backtests and sweeps.
type Indicator interface {
	// Name returns a stable identifier like "ATR(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next closed bar and updates internal state.
	Update(b market.Bar)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current indicator value, 0 until Ready.
	Value() float64
}

// Run feeds every bar through ind and returns the final value and whether
// the indicator finished its warmup.
func Run(ind Indicator, bars []market.Bar) (float64, bool) {
	for _, b := range bars {
		ind.Update(b)
	}
	return ind.Value(), ind.Ready()
}
