package backtest

import (
	"fmt"
	"io"
	"time"

	"github.com/rustyeddy/gridbt/grid"
)

// Result bundles a finished report with its metrics and run ID.
type Result struct {
	RunID   string
	Created time.Time
	Dataset string
	Report  grid.Report
	Metrics Metrics
}

func PrintReport(w io.Writer, r Result) {
	rep := r.Report
	cfg := rep.Config

	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Grid Backtest Result")
	fmt.Fprintln(w, "==================================================")

	if r.RunID != "" {
		fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	}
	if !r.Created.IsZero() {
		fmt.Fprintf(w, "Created:       %s\n", r.Created.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Symbol:        %s\n", rep.Symbol)
	if r.Dataset != "" {
		fmt.Fprintf(w, "Dataset:       %s\n", r.Dataset)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", rep.Start.Format(time.RFC3339))
	fmt.Fprintf(w, "End:           %s\n", rep.End.Format(time.RFC3339))
	fmt.Fprintf(w, "Bars:          %d\n", rep.Bars)
	fmt.Fprintf(w, "Days:          %d\n", r.Metrics.Days)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Grid Configuration")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Grid Density:  %.2f%%\n", cfg.GridDensity*100)
	fmt.Fprintf(w, "Sell Gap:      %.2f%%\n", cfg.SellGap*100)
	fmt.Fprintf(w, "Lot Unit:      %d\n", cfg.LotUnit)
	if cfg.MaxOpenLots > 0 {
		fmt.Fprintf(w, "Max Lots:      %d\n", cfg.MaxOpenLots)
	} else {
		fmt.Fprintf(w, "Max Lots:      unbounded\n")
	}
	if cfg.CommissionRate > 0 {
		fmt.Fprintf(w, "Commission:    %.4f%%\n", cfg.CommissionRate*100)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Fills:         %d\n", rep.TradeCount)
	fmt.Fprintf(w, "Sells:         %d\n", r.Metrics.Sells)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", r.Metrics.WinRate*100)
	fmt.Fprintf(w, "Open Lots:     %d\n", len(rep.LotsRemaining))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Cash:    %.2f\n", cfg.InitialCash)
	fmt.Fprintf(w, "End Cash:      %.2f\n", rep.FinalCash)
	fmt.Fprintf(w, "Realized P/L:  %.2f\n", rep.RealizedPnL)
	fmt.Fprintf(w, "Unrealized:    %.2f\n", rep.UnrealizedPnL)
	if rep.Commission > 0 {
		fmt.Fprintf(w, "Commission:    %.2f\n", rep.Commission)
	}
	fmt.Fprintf(w, "Return:        %.2f%%\n", r.Metrics.TotalReturn*100)
	fmt.Fprintf(w, "Annualized:    %.2f%%\n", r.Metrics.AnnualReturn*100)
	if r.Metrics.MaxDrawdown > 0 {
		fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", r.Metrics.MaxDrawdown*100)
	}
	fmt.Fprintf(w, "Sharpe:        %.2f\n", r.Metrics.Sharpe)
	fmt.Fprintf(w, "Utilization:   %.2f%%\n", r.Metrics.CapitalUtilization*100)
	fmt.Fprintf(w, "Score:         %.4f\n", r.Metrics.Score)

	fmt.Fprintln(w)
}

// PrintSweep writes one line per sweep result.
func PrintSweep(w io.Writer, results []SweepResult) {
	fmt.Fprintf(w, "%-4s %8s %8s %5s %7s %9s %9s %7s %8s\n",
		"#", "density", "gap", "lots", "fills", "return%", "maxdd%", "sharpe", "score")
	for i, r := range results {
		c := r.Config
		fmt.Fprintf(w, "%-4d %8.4f %8.4f %5d %7d %9.2f %9.2f %7.2f %8.4f\n",
			i+1, c.GridDensity, c.SellGap, c.MaxOpenLots, r.Metrics.TradeCount,
			r.Metrics.TotalReturn*100, r.Metrics.MaxDrawdown*100, r.Metrics.Sharpe, r.Metrics.Score)
	}
}
