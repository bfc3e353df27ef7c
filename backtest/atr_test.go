package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/gridbt/market"
)

// ranged builds n days of two minute bars with a constant 0.2 daily range.
func ranged(n int) []market.Bar {
	var out []market.Bar
	for d := 0; d < n; d++ {
		t0 := time.Date(2024, 1, 1+d, 9, 30, 0, 0, cst)
		out = append(out,
			market.Bar{Symbol: "X", Time: t0, Open: 10, High: 10.1, Low: 9.9, Close: 10},
			market.Bar{Symbol: "X", Time: t0.Add(time.Minute), Open: 10, High: 10.05, Low: 9.95, Close: 10},
		)
	}
	return out
}

func TestATRDensities(t *testing.T) {
	t.Parallel()

	got, err := ATRDensities(ranged(20), 14, DefaultATRFactors)
	require.NoError(t, err)
	// ATR 0.2 on a close of 10 is 2%
	assert.Equal(t, []float64{0.01, 0.02, 0.03, 0.04}, got)
}

func TestATRDensitiesDropsUnusable(t *testing.T) {
	t.Parallel()

	got, err := ATRDensities(ranged(20), 14, []float64{1, 1, 0, -1, 60})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.02}, got)

	_, err = ATRDensities(ranged(20), 14, []float64{0})
	assert.Error(t, err)
}

func TestATRDensitiesNeedsHistory(t *testing.T) {
	t.Parallel()

	_, err := ATRDensities(ranged(10), 14, DefaultATRFactors)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ATR(14) needs 15 daily bars, got 10")

	_, err = ATRDensities(ranged(10), 0, DefaultATRFactors)
	assert.Error(t, err)
}
