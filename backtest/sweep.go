package backtest

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/gridbt/grid"
	"github.com/rustyeddy/gridbt/internal/metrics"
	"github.com/rustyeddy/gridbt/market"
)

// Space is the parameter grid of a sweep. Empty dimensions keep the base
// config's value.
type Space struct {
	GridDensities []float64 `json:"grid_densities" yaml:"grid_densities"`
	SellGaps      []float64 `json:"sell_gaps" yaml:"sell_gaps"`
	MaxOpenLots   []int     `json:"max_open_lots" yaml:"max_open_lots"`
}

func DefaultSpace() Space {
	return Space{
		GridDensities: []float64{0.005, 0.01, 0.015, 0.02, 0.03},
		SellGaps:      []float64{0.01, 0.02, 0.03, 0.04},
		MaxOpenLots:   []int{6, 8, 10, 12, 14, 16},
	}
}

// Size is the number of combinations.
func (s Space) Size() int {
	return max(len(s.GridDensities), 1) * max(len(s.SellGaps), 1) * max(len(s.MaxOpenLots), 1)
}

// Configs expands the cartesian product over base, densities outermost.
func (s Space) Configs(base grid.Config) []grid.Config {
	densities := s.GridDensities
	if len(densities) == 0 {
		densities = []float64{base.GridDensity}
	}
	gaps := s.SellGaps
	if len(gaps) == 0 {
		gaps = []float64{base.SellGap}
	}
	lots := s.MaxOpenLots
	if len(lots) == 0 {
		lots = []int{base.MaxOpenLots}
	}

	out := make([]grid.Config, 0, s.Size())
	for _, d := range densities {
		for _, g := range gaps {
			for _, n := range lots {
				c := base
				c.GridDensity, c.SellGap, c.MaxOpenLots = d, g, n
				out = append(out, c)
			}
		}
	}
	return out
}

// SweepOptions tunes Sweep. Zero values pick defaults.
type SweepOptions struct {
	Workers int // default GOMAXPROCS
	TopN    int // 0 keeps every result
	// KeepLedger retains fills and equity curves in the results.
	KeepLedger bool
	Logger     *zap.Logger
}

// SweepResult is one evaluated combination.
type SweepResult struct {
	Index   int         `json:"index"`
	Config  grid.Config `json:"config"`
	Report  grid.Report `json:"report"`
	Metrics Metrics     `json:"metrics"`
}

// Sweep backtests every combination of space over bars in parallel. Each run
// owns its simulator; bars are shared read-only. Invalid combinations are
// skipped. The first run error cancels the rest. Results are ordered by
// score, best first, ties broken by combination order.
func Sweep(ctx context.Context, bars []market.Bar, base grid.Config, space Space, opts SweepOptions) ([]SweepResult, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("sweep: no bars")
	}
	symbol := bars[0].Symbol

	configs := space.Configs(base)
	results := make([]*SweepResult, len(configs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	log.Info("sweep started",
		zap.String("symbol", symbol),
		zap.Int("combinations", len(configs)),
		zap.Int("workers", workers),
		zap.Int("bars", len(bars)),
	)
	began := time.Now()

	for i, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			log.Warn("sweep: skipping combination", zap.Int("index", i), zap.Error(err))
			continue
		}
		g.Go(func() error {
			metrics.SweepInFlight.Inc()
			defer metrics.SweepInFlight.Dec()

			start := time.Now()
			rep, err := grid.Run(gctx, market.NewSliceFeed(bars), cfg)
			metrics.ObserveRun(symbol, rep, time.Since(start), err)
			if err != nil {
				return fmt.Errorf("sweep combination %d (density=%g gap=%g lots=%d): %w",
					i, cfg.GridDensity, cfg.SellGap, cfg.MaxOpenLots, err)
			}

			m := Evaluate(rep)
			if !opts.KeepLedger {
				rep.Fills, rep.Equity = nil, nil
			}
			results[i] = &SweepResult{Index: i, Config: cfg, Report: rep, Metrics: m}
			log.Debug("sweep run done",
				zap.Int("index", i),
				zap.Float64("score", m.Score),
				zap.Int("fills", rep.TradeCount),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]SweepResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Metrics.Score > out[b].Metrics.Score
	})
	if opts.TopN > 0 && len(out) > opts.TopN {
		out = out[:opts.TopN]
	}

	log.Info("sweep finished",
		zap.Int("evaluated", len(out)),
		zap.Duration("took", time.Since(began)),
	)
	return out, nil
}
