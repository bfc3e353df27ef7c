package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/gridbt/backtest"
	"github.com/rustyeddy/gridbt/market"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Backtest a grid of parameters in parallel",
	Long: `Sweep runs the cartesian product of grid densities, sell gaps and max open
lots (from the config's sweep section or the flags below) over the same bars
and ranks the runs by score. With --atr-factors the densities are derived
from the daily Average True Range instead.

Example:
  gridbt sweep --db bars.db -s 510300 --densities 0.005,0.01,0.02 --gaps 0.01,0.02 --top 5`,
	RunE: runSweep,
}

var (
	swFlags     runFlags
	swDensities []float64
	swGaps      []float64
	swLots      []int
	swWorkers   int
	swTop       int
	swJSON      string
	swATR       []float64
	swATRPeriod int
)

func init() {
	rootCmd.AddCommand(sweepCmd)
	swFlags.register(sweepCmd)
	fl := sweepCmd.Flags()
	fl.Float64SliceVar(&swDensities, "densities", nil, "grid densities to try")
	fl.Float64SliceVar(&swGaps, "gaps", nil, "sell gaps to try")
	fl.IntSliceVar(&swLots, "lots-list", nil, "max open lots to try")
	fl.IntVarP(&swWorkers, "workers", "w", 0, "parallel runs (default GOMAXPROCS)")
	fl.IntVar(&swTop, "top", 10, "show the best N runs (0 = all)")
	fl.StringVarP(&swJSON, "out", "o", "", "write results as JSON to this path")
	fl.Float64SliceVar(&swATR, "atr-factors", nil, "derive densities from daily ATR times these factors (e.g. 0.5,1,1.5,2)")
	fl.IntVar(&swATRPeriod, "atr-period", 14, "ATR period in days for --atr-factors")
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg := *appCfg
	if err := swFlags.apply(cmd, &cfg); err != nil {
		return err
	}
	space := cfg.Sweep
	if cmd.Flags().Changed("densities") {
		space.GridDensities = swDensities
	}
	if cmd.Flags().Changed("gaps") {
		space.SellGaps = swGaps
	}
	if cmd.Flags().Changed("lots-list") {
		space.MaxOpenLots = swLots
	}

	ctx := cmd.Context()
	feed, err := openFeed(ctx, &cfg)
	if err != nil {
		return err
	}
	bars, err := market.Collect(feed)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("atr-factors") {
		if space.GridDensities, err = backtest.ATRDensities(bars, swATRPeriod, swATR); err != nil {
			return err
		}
		logger.Info("densities from ATR", zap.Float64s("densities", space.GridDensities))
	}

	results, err := backtest.Sweep(ctx, bars, cfg.Grid, space, backtest.SweepOptions{
		Workers: swWorkers,
		TopN:    swTop,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sweep %s: %d bars, %d combinations\n\n", cfg.Data.Symbol, len(bars), space.Size())
	backtest.PrintSweep(out, results)

	if swJSON == "" {
		return nil
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(swJSON, data, 0644)
}
