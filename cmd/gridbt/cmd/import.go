package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/gridbt/internal/metrics"
	"github.com/rustyeddy/gridbt/store"
)

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import CSV or Parquet minute bars into the bar store",
	Long: `Import reads bar files and upserts them into a SQLite bar store, keyed by
(symbol, timestamp). Re-importing a file replaces the existing rows.

CSV files need a header with symbol,timestamp,open,high,low,close,volume and
optionally amount,adj_factor. Timestamps are RFC3339 with a zone offset.

Example:
  gridbt import --db bars.db data/510300-2024.csv data/159915.parquet`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

var importDBPath string

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVarP(&importDBPath, "db", "d", "", "bar store path (default data.db_path)")
}

func runImport(cmd *cobra.Command, args []string) error {
	path := importDBPath
	if path == "" {
		path = appCfg.Data.DBPath
	}
	s, err := store.OpenWritable(path)
	if err != nil {
		return fmt.Errorf("open bar store: %w", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	total := 0
	for _, f := range args {
		start := time.Now()
		n, err := store.Import(ctx, s, f)
		if err != nil {
			return err
		}
		total += n
		metrics.BarsImported.WithLabelValues(strings.TrimPrefix(filepath.Ext(f), ".")).Add(float64(n))
		logger.Info("imported bars",
			zap.String("file", f),
			zap.Int("bars", n),
			zap.Duration("took", time.Since(start)),
		)
	}

	syms, err := s.Symbols(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Imported %d bars into %s\n", total, path)
	for _, sym := range syms {
		sp, err := s.Span(ctx, sym)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %-10s %8d bars  %s → %s\n", sym, sp.Count,
			sp.First.Format("2006-01-02 15:04"), sp.Last.Format("2006-01-02 15:04"))
	}
	return nil
}
