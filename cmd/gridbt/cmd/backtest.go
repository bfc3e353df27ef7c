package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/gridbt/backtest"
	"github.com/rustyeddy/gridbt/config"
	"github.com/rustyeddy/gridbt/grid"
	"github.com/rustyeddy/gridbt/internal/metrics"
	"github.com/rustyeddy/gridbt/journal"
	"github.com/rustyeddy/gridbt/pkg/id"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest one grid configuration",
	Long: `Backtest replays a symbol's minute bars from the bar store through the grid
simulator and prints a report. Flags override the config file.

Example:
  gridbt backtest --db bars.db -s 510300 --start 2024-01-02 --end 2024-07-01 \
      --density 0.01 --gap 0.02 --lots 10 --cash 10000`,
	RunE: runBacktest,
}

var (
	btFlags   runFlags
	btJSON    string
	btNoSave  bool
	btDataset string
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	btFlags.register(backtestCmd)
	backtestCmd.Flags().StringVarP(&btJSON, "out", "o", "", "also write the run as JSON to this path")
	backtestCmd.Flags().BoolVar(&btNoSave, "no-journal", false, "don't record the run in the journal")
	backtestCmd.Flags().StringVar(&btDataset, "dataset", "", "dataset label for the journal (default data source path)")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg := *appCfg
	if err := btFlags.apply(cmd, &cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	feed, err := openFeed(ctx, &cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	rep, err := grid.Run(ctx, feed, cfg.Grid, grid.WithLogger(logger))
	metrics.ObserveRun(cfg.Data.Symbol, rep, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}
	logger.Info("backtest finished",
		zap.String("symbol", cfg.Data.Symbol),
		zap.Int("bars", rep.Bars),
		zap.Int("fills", rep.TradeCount),
		zap.Duration("took", time.Since(start)),
	)

	dataset := btDataset
	if dataset == "" {
		dataset = cfg.Data.DBPath
		if cfg.Data.CSV != "" {
			dataset = cfg.Data.CSV
		}
	}
	res := backtest.Result{
		RunID:   id.New(),
		Created: time.Now(),
		Dataset: dataset,
		Report:  rep,
		Metrics: backtest.Evaluate(rep),
	}
	backtest.PrintReport(cmd.OutOrStdout(), res)

	run := toRun(res)
	if btJSON != "" {
		f, err := os.Create(btJSON)
		if err != nil {
			return err
		}
		if err := journal.WriteJSON(f, run); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	if btNoSave || cfg.Journal.Type == "none" || cfg.Journal.Type == "" {
		return nil
	}
	return record(cmd, &cfg, run)
}

func toRun(r backtest.Result) journal.Run {
	return journal.Run{
		ID:        r.RunID,
		Created:   r.Created,
		Dataset:   r.Dataset,
		Report:    r.Report,
		ReturnPct: r.Metrics.TotalReturn * 100,
		MaxDDPct:  r.Metrics.MaxDrawdown * 100,
		WinRate:   r.Metrics.WinRate,
		Sharpe:    r.Metrics.Sharpe,
		Score:     r.Metrics.Score,
	}
}

func record(cmd *cobra.Command, cfg *config.Config, run journal.Run) error {
	path := cfg.Journal.DBPath
	if cfg.Journal.Type == "dir" {
		path = cfg.Journal.Dir
	}
	j, err := journal.Open(cfg.Journal.Type, path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	if err := j.RecordRun(cmd.Context(), run); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Recorded run %s (%s %s)\n", run.ID, cfg.Journal.Type, path)
	return nil
}
