package backtest

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/gridbt/indicators"
	"github.com/rustyeddy/gridbt/market"
)

// DefaultATRFactors scale the daily ATR into grid densities: 0.5 is
// aggressive, 2.0 conservative.
var DefaultATRFactors = []float64{0.5, 1.0, 1.5, 2.0}

// ATRDensities derives grid densities from volatility: the daily ATR over
// period days as a fraction of the last daily close, times each factor,
// rounded to four decimals. Results outside (0,1) and duplicates are dropped.
func ATRDensities(bars []market.Bar, period int, factors []float64) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("atr densities: period must be positive, got %d", period)
	}
	days := market.Daily(bars)
	ind := indicators.NewATR(period)
	atr, ok := indicators.Run(ind, days)
	if !ok {
		return nil, fmt.Errorf("atr densities: %s needs %d daily bars, got %d", ind.Name(), ind.Warmup(), len(days))
	}
	last := days[len(days)-1].Close
	if last <= 0 || atr <= 0 {
		return nil, fmt.Errorf("atr densities: degenerate range atr=%g close=%g", atr, last)
	}
	pct := decimal.NewFromFloat(atr).Div(decimal.NewFromFloat(last))

	seen := make(map[float64]bool, len(factors))
	out := make([]float64, 0, len(factors))
	for _, f := range factors {
		d := pct.Mul(decimal.NewFromFloat(f)).Round(4).InexactFloat64()
		if d <= 0 || d >= 1 || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("atr densities: no usable density from factors %v", factors)
	}
	return out, nil
}
