package grid

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/gridbt/market"
)

// Report is the final state of a run.
type Report struct {
	Symbol string `json:"symbol,omitempty"`
	Config Config `json:"config"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Bars  int       `json:"bars"`

	FinalCash     float64 `json:"final_cash"`
	RealizedPnL   float64 `json:"realized_pnl"`
	UnrealizedPnL float64 `json:"unrealized_pnl_at_end"`
	Commission    float64 `json:"commission"`
	TradeCount    int     `json:"trade_count"`

	LotsRemaining []Lot         `json:"lots_remaining"`
	Fills         []Fill        `json:"trades"`
	Equity        []EquityPoint `json:"equity_curve"`
}

// FinalEquity is cash plus remaining lots at the last close.
func (r Report) FinalEquity() float64 {
	if len(r.Equity) == 0 {
		return r.FinalCash
	}
	if len(r.LotsRemaining) == 0 {
		return r.FinalCash
	}
	return r.Equity[len(r.Equity)-1].Equity
}

// Run is the backtest driver: a single synchronous pass over feed.
//
// The config is validated before the first bar is read. Feed errors, bad bars
// and invariant violations abort the run; ctx is only consulted between bars.
// The feed is closed on return.
func Run(ctx context.Context, feed market.Feed, cfg Config, opts ...Option) (Report, error) {
	if feed == nil {
		return Report{}, fmt.Errorf("grid run: feed is required")
	}
	defer feed.Close()

	sim, err := NewSimulator(cfg, opts...)
	if err != nil {
		return Report{}, err
	}

	var start time.Time
	var symbol string
	for {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}

		bar, ok, err := feed.Next()
		if err != nil {
			return Report{}, fmt.Errorf("grid run: read bar: %w", err)
		}
		if !ok {
			break
		}
		if start.IsZero() {
			start = bar.Time
			symbol = bar.Symbol
		}
		if err := sim.Step(bar); err != nil {
			return Report{}, fmt.Errorf("grid run: %w", err)
		}
	}

	if cfg.LiquidateAtEnd {
		if err := sim.Liquidate(); err != nil {
			return Report{}, fmt.Errorf("grid run: liquidate: %w", err)
		}
	}

	rep := sim.Finish()
	rep.Symbol = symbol
	rep.Start = start
	return rep, nil
}

// Finish moves the simulator to PhaseDone and builds the report.
func (s *Simulator) Finish() Report {
	s.phase = PhaseDone

	rep := Report{
		Config:        s.cfg,
		Bars:          s.bars,
		FinalCash:     s.acct.Cash,
		RealizedPnL:   s.acct.RealizedPnL,
		Commission:    s.acct.Commission,
		TradeCount:    len(s.acct.Fills),
		LotsRemaining: s.book.Lots(),
		Fills:         s.acct.Fills,
		Equity:        s.acct.Equity,
	}
	if s.bars > 0 {
		rep.Start = s.acct.Equity[0].Time
		rep.End = s.lastBar.Time
		last := s.lastBar.Close
		for _, l := range rep.LotsRemaining {
			rep.UnrealizedPnL += (last - l.CostPrice) * float64(l.Volume)
		}
	}
	return rep
}
