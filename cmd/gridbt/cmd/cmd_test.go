package cmd

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/gridbt/config"
	"github.com/rustyeddy/gridbt/journal"
)

func writeBarsCSV(t *testing.T, path string) {
	t.Helper()

	var b strings.Builder
	b.WriteString("symbol,timestamp,open,high,low,close,volume,amount,adj_factor\n")
	start := time.Date(2024, 3, 4, 9, 30, 0, 0, time.FixedZone("CST", 8*3600))
	for i := 0; i < 480; i++ {
		p := 10 + 0.3*math.Sin(float64(i)/20)
		ts := start.Add(time.Duration(i%240)*time.Minute + time.Duration(i/240)*24*time.Hour)
		fmt.Fprintf(&b, "510300,%s,%.3f,%.3f,%.3f,%.3f,1000,%.1f,1\n",
			ts.Format(time.RFC3339), p, p+0.02, p-0.02, p, p*1000)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

// One sequential test: cobra commands and their flags are package globals.
func TestCLIWorkflow(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "bars.csv")
	barsDB := filepath.Join(dir, "bars.db")
	runsDB := filepath.Join(dir, "runs.db")
	cfgPath := filepath.Join(dir, "gridbt.yaml")
	jsonPath := filepath.Join(dir, "run.json")

	writeBarsCSV(t, csvPath)

	cfg := config.Default()
	cfg.Data.DBPath = barsDB
	cfg.Journal.DBPath = runsDB
	cfg.Log.Level = "error"
	require.NoError(t, cfg.SaveToFile(cfgPath))

	out := execute(t, "config", "validate", "-f", cfgPath)
	assert.Contains(t, out, "Configuration valid")

	out = execute(t, "-c", cfgPath, "import", csvPath)
	assert.Contains(t, out, "Imported 480 bars")
	assert.Contains(t, out, "510300")

	out = execute(t, "-c", cfgPath, "backtest", "--density", "0.005", "--gap", "0.01", "-o", jsonPath)
	assert.Contains(t, out, "Grid Backtest Result")
	assert.Contains(t, out, "Grid Density:  0.50%")
	assert.Contains(t, out, "Recorded run")

	fh, err := os.Open(jsonPath)
	require.NoError(t, err)
	run, err := journal.ReadJSON(fh)
	fh.Close()
	require.NoError(t, err)
	assert.Equal(t, 480, run.Report.Bars)
	assert.NotZero(t, run.Report.TradeCount)

	out = execute(t, "-c", cfgPath, "backtest", "--csv", csvPath, "--no-journal", "--end", "2024-03-05")
	assert.Contains(t, out, "Grid Backtest Result")
	assert.NotContains(t, out, "Recorded run")

	out = execute(t, "-c", cfgPath, "runs", "list")
	assert.Contains(t, out, run.ID)

	out = execute(t, "-c", cfgPath, "runs", "show", run.ID, "--org")
	assert.Contains(t, out, ":RUN_ID:      "+run.ID)

	out = execute(t, "-c", cfgPath, "sweep", "--densities", "0.005,0.01", "--gaps", "0.01", "--lots-list", "5", "--top", "0")
	assert.Contains(t, out, "2 combinations")
	assert.Contains(t, out, "score")

	out = execute(t, "-c", cfgPath, "sweep", "--atr-factors", "1", "--atr-period", "1", "--top", "0")
	assert.Contains(t, out, "1 combinations")

	out = execute(t, "version")
	assert.Contains(t, out, "gridbt version")
}
