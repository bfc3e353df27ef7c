package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/gridbt/backtest"
	"github.com/rustyeddy/gridbt/journal"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Query recorded backtest runs",
	Long: `Query backtest runs recorded in the SQLite journal.

Subcommands:
  list - List recorded runs, newest first
  show - Show one run as a text report, Org block or JSON

Examples:
  gridbt runs list
  gridbt runs show 01HV3K... --org`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var (
	runsDBPath string
	runsOrg    bool
	runsJSON   bool
)

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)

	runsCmd.PersistentFlags().StringVarP(&runsDBPath, "db", "d", "", "journal DB path (default journal.db_path)")
	runsShowCmd.Flags().BoolVar(&runsOrg, "org", false, "print as an Org block")
	runsShowCmd.Flags().BoolVar(&runsJSON, "json", false, "print as JSON")
}

func openRuns() (*journal.SQLite, error) {
	path := runsDBPath
	if path == "" {
		path = appCfg.Journal.DBPath
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runRunsList(cmd *cobra.Command, args []string) error {
	j, err := openRuns()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListRuns(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tCREATED\tSYMBOL\tDENSITY\tGAP\tFILLS\tRETURN%\tSCORE")
	for _, r := range runs {
		c := r.Report.Config
		fmt.Fprintf(w, "%s\t%s\t%s\t%.4f\t%.4f\t%d\t%.2f\t%.4f\n",
			r.ID, r.Created.Format("2006-01-02 15:04"), r.Report.Symbol,
			c.GridDensity, c.SellGap, r.Report.TradeCount, r.ReturnPct, r.Score)
	}
	return w.Flush()
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	j, err := openRuns()
	if err != nil {
		return err
	}
	defer j.Close()

	run, err := j.LoadRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case runsJSON:
		return journal.WriteJSON(out, run)
	case runsOrg:
		s, err := journal.FormatRunOrg(run)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, s)
		return nil
	}
	backtest.PrintReport(out, backtest.Result{
		RunID:   run.ID,
		Created: run.Created,
		Dataset: run.Dataset,
		Report:  run.Report,
		Metrics: backtest.Evaluate(run.Report),
	})
	return nil
}
