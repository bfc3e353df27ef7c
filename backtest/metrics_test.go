package backtest

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/gridbt/grid"
	"github.com/rustyeddy/gridbt/market"
)

var cst = time.FixedZone("CST", 8*3600)

func day(d, minute int) time.Time {
	return time.Date(2024, 3, d, 9, 31+minute, 0, 0, cst)
}

func TestDailyReturnsResamplesLastSample(t *testing.T) {
	t.Parallel()

	eq := []grid.EquityPoint{
		{Time: day(1, 0), Equity: 10100},
		{Time: day(1, 5), Equity: 10200},
		{Time: day(4, 0), Equity: 9000},
		{Time: day(4, 1), Equity: 10098},
	}
	got := DailyReturns(eq, 10000)
	require.Len(t, got, 2)
	assert.InDelta(t, 0.02, got[0], 1e-12)
	assert.InDelta(t, -0.01, got[1], 1e-12)

	assert.Nil(t, DailyReturns(nil, 10000))
}

func TestEvaluateFlat(t *testing.T) {
	t.Parallel()

	rep := grid.Report{
		Config: grid.DefaultConfig(),
		Equity: []grid.EquityPoint{{Time: day(1, 0), Equity: 10000}},
	}
	m := Evaluate(rep)
	assert.Zero(t, m.TotalReturn)
	assert.Zero(t, m.MaxDrawdown)
	assert.Zero(t, m.Sharpe)
	assert.Zero(t, m.WinRate)
	assert.Equal(t, 1, m.Days)
	// 0.35*0.5 + 0.25*1 + 0.2*0.5 + 0.1*0.5 + 0.1*0.5
	assert.InDelta(t, 0.625, m.Score, 1e-6)
}

func TestEvaluateDrawdownAndWinRate(t *testing.T) {
	t.Parallel()

	cfg := grid.DefaultConfig()
	rep := grid.Report{
		Config:     cfg,
		TradeCount: 4,
		Equity: []grid.EquityPoint{
			{Time: day(1, 0), Equity: 11000},
			{Time: day(2, 0), Equity: 8800},
			{Time: day(3, 0), Equity: 9900},
		},
		Fills: []grid.Fill{
			{Side: grid.Buy, Price: 10, Volume: 100},
			{Side: grid.Sell, Price: 10.2, Volume: 100, CostPrice: 10, PnL: 20},
			{Side: grid.Buy, Price: 10, Volume: 100},
			{Side: grid.Sell, Price: 9.5, Volume: 100, CostPrice: 10, PnL: -50},
		},
	}
	m := Evaluate(rep)
	assert.InDelta(t, -0.01, m.TotalReturn, 1e-6)
	assert.InDelta(t, 0.2, m.MaxDrawdown, 1e-6)
	assert.Equal(t, 2, m.Sells)
	assert.Equal(t, 0.5, m.WinRate)
	assert.Greater(t, m.CapitalUtilization, 0.0)
	assert.LessOrEqual(t, m.CapitalUtilization, 1.0)
	assert.Less(t, m.Sharpe, 0.0)
}

func TestUtilizationReleasesCostBasis(t *testing.T) {
	t.Parallel()

	fills := []grid.Fill{
		{Side: grid.Buy, Price: 10, Volume: 100},
		{Side: grid.Sell, Price: 10.2, Volume: 100, CostPrice: 10, PnL: 20},
	}
	// occupancy goes 1000 then 0, so the weighted mean is 1000
	assert.InDelta(t, 0.1, utilization(fills, 10000), 1e-12)

	fills = append(fills,
		grid.Fill{Side: grid.Buy, Price: 10, Volume: 100},
		grid.Fill{Side: grid.Sell, Price: 9.5, Volume: 100, CostPrice: 10, PnL: -50},
	)
	// 1000, 0, 1000, 0
	assert.InDelta(t, 0.1, utilization(fills, 10000), 1e-12)

	assert.Zero(t, utilization(nil, 10000))
}

func TestAnnualize(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.1, annualize(0.1, TradingDays), 1e-12)
	assert.InDelta(t, math.Pow(1.1, 2)-1, annualize(0.1, TradingDays/2), 1e-12)
	assert.Equal(t, -1.0, annualize(-1, 10))
	assert.Zero(t, annualize(0.5, 0))
}

func TestPrintReport(t *testing.T) {
	t.Parallel()

	cfg := grid.DefaultConfig()
	cfg.AnchorPrice = 10
	rep, err := grid.Run(context.Background(), market.NewSliceFeed([]market.Bar{
		{Symbol: "510300", Time: day(1, 0), Open: 10, High: 10, Low: 9.90, Close: 9.92},
		{Symbol: "510300", Time: day(1, 1), Open: 9.92, High: 10.20, Low: 9.90, Close: 10.10},
	}), cfg)
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintReport(&buf, Result{RunID: "RUN1", Report: rep, Metrics: Evaluate(rep)})
	out := buf.String()

	assert.Contains(t, out, "Run ID:        RUN1")
	assert.Contains(t, out, "Symbol:        510300")
	assert.Contains(t, out, "Grid Density:  1.00%")
	assert.Contains(t, out, "Max Lots:      10")
	assert.Contains(t, out, "End Cash:      10019.80")
	assert.Contains(t, out, "Realized P/L:  19.80")
	assert.Contains(t, out, "Win Rate:      100.00%")
	assert.NotContains(t, out, "Commission:")
}
