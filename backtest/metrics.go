package backtest

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/gridbt/grid"
)

const (
	TradingDays  = 252
	RiskFreeRate = 0.03
)

// Score weights.
const (
	wAnnualReturn = 0.35
	wMaxDrawdown  = 0.25
	wSharpe       = 0.20
	wTrades       = 0.10
	wUtilization  = 0.10
)

// Metrics summarizes a report. Ratios are fractions (0.05 = 5%) rounded to
// six decimals.
type Metrics struct {
	TotalReturn        float64 `json:"total_return"`
	AnnualReturn       float64 `json:"annual_return"`
	MaxDrawdown        float64 `json:"max_drawdown"`
	Sharpe             float64 `json:"sharpe"`
	TradeCount         int     `json:"trade_count"`
	Sells              int     `json:"sells"`
	WinRate            float64 `json:"win_rate"`
	CapitalUtilization float64 `json:"capital_utilization"`
	Days               int     `json:"days"`
	Score              float64 `json:"score"`
}

// Evaluate computes metrics from the daily-resampled equity curve and the
// fill ledger.
func Evaluate(rep grid.Report) Metrics {
	initial := rep.Config.InitialCash
	daily := DailyReturns(rep.Equity, initial)

	m := Metrics{
		TradeCount: rep.TradeCount,
		Days:       len(daily),
	}
	if len(daily) > 0 {
		m.TotalReturn = compound(daily) - 1
		m.AnnualReturn = annualize(m.TotalReturn, len(daily))
		m.MaxDrawdown = maxDrawdown(daily)
		if vol := stddev(daily) * math.Sqrt(TradingDays); vol != 0 {
			m.Sharpe = (m.AnnualReturn - RiskFreeRate) / vol
		}
	}

	var wins int
	for _, f := range rep.Fills {
		if f.Side != grid.Sell {
			continue
		}
		m.Sells++
		if f.PnL > 0 {
			wins++
		}
	}
	if m.Sells > 0 {
		m.WinRate = float64(wins) / float64(m.Sells)
	}
	m.CapitalUtilization = utilization(rep.Fills, initial)
	m.Score = score(m)

	m.TotalReturn = round6(m.TotalReturn)
	m.AnnualReturn = round6(m.AnnualReturn)
	m.MaxDrawdown = round6(m.MaxDrawdown)
	m.Sharpe = round6(m.Sharpe)
	m.WinRate = round6(m.WinRate)
	m.CapitalUtilization = round6(m.CapitalUtilization)
	m.Score = round6(m.Score)
	return m
}

// DailyReturns resamples the equity curve to the last sample of each
// calendar day (in the samples' own zone) and returns day-over-day returns.
// The first day is measured against initial.
func DailyReturns(eq []grid.EquityPoint, initial float64) []float64 {
	if len(eq) == 0 || initial <= 0 {
		return nil
	}

	var closes []float64
	var day time.Time
	for _, p := range eq {
		d := truncDay(p.Time)
		if len(closes) == 0 || !d.Equal(day) {
			closes = append(closes, p.Equity)
			day = d
			continue
		}
		closes[len(closes)-1] = p.Equity
	}

	out := make([]float64, len(closes))
	prev := initial
	for i, c := range closes {
		out[i] = c/prev - 1
		prev = c
	}
	return out
}

func truncDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func compound(rs []float64) float64 {
	v := 1.0
	for _, r := range rs {
		v *= 1 + r
	}
	return v
}

func annualize(total float64, days int) float64 {
	if days == 0 {
		return 0
	}
	if total <= -1 {
		return -1
	}
	return math.Pow(1+total, TradingDays/float64(days)) - 1
}

// maxDrawdown is returned as a positive fraction.
func maxDrawdown(rs []float64) float64 {
	v, peak, dd := 1.0, 1.0, 0.0
	for _, r := range rs {
		v *= 1 + r
		peak = max(peak, v)
		dd = min(dd, v/peak-1)
	}
	return -dd
}

// stddev is the sample standard deviation.
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// utilization is the occupancy-weighted average capital tied up in lots,
// as a fraction of initial cash, clamped to [0, 1].
func utilization(fills []grid.Fill, initial float64) float64 {
	if len(fills) == 0 || initial <= 0 {
		return 0
	}
	occupied := make([]float64, 0, len(fills))
	var cur, total float64
	for _, f := range fills {
		// sells release the capital the lot tied up, not the proceeds
		if f.Side == grid.Buy {
			cur += f.Price * float64(f.Volume)
		} else {
			cur -= f.CostPrice * float64(f.Volume)
		}
		occupied = append(occupied, cur)
		total += cur
	}
	if total == 0 {
		return 0
	}
	var weighted float64
	for _, o := range occupied {
		weighted += o * (o / total)
	}
	return min(max(weighted/initial, 0), 1)
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func score(m Metrics) float64 {
	return wAnnualReturn*sigmoid(m.AnnualReturn) +
		wMaxDrawdown*(1-m.MaxDrawdown) +
		wSharpe*sigmoid(m.Sharpe) +
		wTrades*sigmoid(float64(m.TradeCount)) +
		wUtilization*sigmoid(m.CapitalUtilization)
}

func round6(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return decimal.NewFromFloat(x).Round(6).InexactFloat64()
}
