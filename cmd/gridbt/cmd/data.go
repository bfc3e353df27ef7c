package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/gridbt/config"
	"github.com/rustyeddy/gridbt/grid"
	"github.com/rustyeddy/gridbt/market"
	"github.com/rustyeddy/gridbt/store"
)

// runFlags are shared by backtest and sweep; they override the config file
// when set on the command line.
type runFlags struct {
	db, csv, symbol, start, end, tz string
	noAdjust                   bool

	density, gap, cash, commission, anchor float64
	lots                                   int
	lotUnit                                int64
	policy                                 string
	singleSell, liquidate, t1              bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.db, "db", "d", "", "bar store path")
	fl.StringVar(&f.csv, "csv", "", "read bars from this CSV file instead of the store")
	fl.StringVarP(&f.symbol, "symbol", "s", "", "symbol to backtest")
	fl.StringVar(&f.start, "start", "", "range start (inclusive), e.g. 2024-01-02")
	fl.StringVar(&f.end, "end", "", "range end (exclusive)")
	fl.StringVar(&f.tz, "tz", "", "timezone for --start/--end, e.g. Asia/Shanghai")
	fl.BoolVar(&f.noAdjust, "no-adjust", false, "skip forward price adjustment")

	fl.Float64Var(&f.density, "density", 0, "grid density, e.g. 0.01")
	fl.Float64Var(&f.gap, "gap", 0, "sell gap, e.g. 0.02")
	fl.IntVar(&f.lots, "lots", 0, "max open lots (0 = unbounded)")
	fl.Int64Var(&f.lotUnit, "lot-unit", 0, "shares per lot")
	fl.Float64Var(&f.cash, "cash", 0, "initial cash")
	fl.Float64Var(&f.commission, "commission", 0, "commission rate per fill, e.g. 0.0003")
	fl.Float64Var(&f.anchor, "anchor", 0, "anchor price (0 = first open)")
	fl.StringVar(&f.policy, "fill-policy", "", "clamp, limit or open")
	fl.BoolVar(&f.singleSell, "single-sell", false, "at most one sell per bar")
	fl.BoolVar(&f.liquidate, "liquidate", false, "sell remaining lots at the last close")
	fl.BoolVar(&f.t1, "t1", false, "T+1: no selling a lot on the day it was bought")
}

// apply copies changed flags onto cfg and validates the result.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	fl := cmd.Flags()
	set := func(name string, fn func()) {
		if fl.Changed(name) {
			fn()
		}
	}
	set("db", func() { cfg.Data.DBPath = f.db })
	set("csv", func() { cfg.Data.CSV = f.csv })
	set("symbol", func() { cfg.Data.Symbol = f.symbol })
	set("start", func() { cfg.Data.Start = f.start })
	set("end", func() { cfg.Data.End = f.end })
	set("tz", func() { cfg.Data.Timezone = f.tz })
	set("no-adjust", func() { cfg.Data.Adjust = !f.noAdjust })

	g := &cfg.Grid
	set("density", func() { g.GridDensity = f.density })
	set("gap", func() { g.SellGap = f.gap })
	set("lots", func() { g.MaxOpenLots = f.lots })
	set("lot-unit", func() { g.LotUnit = f.lotUnit })
	set("cash", func() { g.InitialCash = f.cash })
	set("commission", func() { g.CommissionRate = f.commission })
	set("anchor", func() { g.AnchorPrice = f.anchor })
	set("fill-policy", func() { g.FillPolicy = grid.FillPolicy(f.policy) })
	set("single-sell", func() { g.SingleSellPerBar = f.singleSell })
	set("liquidate", func() { g.LiquidateAtEnd = f.liquidate })
	set("t1", func() { g.SettleNextDay = f.t1 })

	return cfg.Validate()
}

// openFeed opens the configured bar range from the store or a CSV file,
// forward adjusted unless disabled.
func openFeed(ctx context.Context, cfg *config.Config) (market.Feed, error) {
	start, end, err := cfg.Data.Range()
	if err != nil {
		return nil, err
	}
	if cfg.Data.CSV != "" {
		feed, err := store.OpenCSV(cfg.Data.CSV, cfg.Data.Symbol, start, end)
		if err != nil {
			return nil, err
		}
		logger.Debug("streaming bars from csv", zap.String("path", cfg.Data.CSV))
		if !cfg.Data.Adjust {
			return feed, nil
		}
		adj, err := market.AdjustFeed(feed)
		if err != nil {
			return nil, err
		}
		return adj, nil
	}

	s, err := store.OpenSQLite(cfg.Data.DBPath)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	cur, err := s.Range(ctx, cfg.Data.Symbol, start, end)
	if err != nil {
		return nil, err
	}
	// Drain before the store closes.
	bars, err := market.Collect(cur)
	if err != nil {
		return nil, fmt.Errorf("read bars: %w", err)
	}
	logger.Debug("loaded bars",
		zap.String("symbol", cfg.Data.Symbol),
		zap.Int("bars", len(bars)),
		zap.Bool("adjust", cfg.Data.Adjust),
	)

	if !cfg.Data.Adjust {
		return market.NewSliceFeed(bars), nil
	}
	adj, err := market.Adjust(bars)
	if err != nil {
		return nil, err
	}
	return market.NewSliceFeed(adj), nil
}
