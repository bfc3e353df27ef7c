package journal

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/gridbt/grid"
	"github.com/rustyeddy/gridbt/market"
)

var t0 = time.Date(2024, 3, 1, 9, 31, 0, 0, time.UTC)

func sampleRun(t *testing.T) Run {
	t.Helper()

	bars := []market.Bar{
		{Symbol: "510300", Time: t0, Open: 10, High: 10, Low: 9.90, Close: 9.92},
		{Symbol: "510300", Time: t0.Add(time.Minute), Open: 9.92, High: 9.95, Low: 9.80, Close: 9.85},
		{Symbol: "510300", Time: t0.Add(2 * time.Minute), Open: 9.85, High: 10.20, Low: 9.85, Close: 10.10},
	}
	cfg := grid.DefaultConfig()
	cfg.AnchorPrice = 10
	cfg.CommissionRate = 0.0003

	rep, err := grid.Run(context.Background(), market.NewSliceFeed(bars), cfg)
	require.NoError(t, err)

	return Run{
		ID:        "01HZZZTESTRUN0000000000000",
		Created:   time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC),
		Dataset:   "minute.db",
		Report:    rep,
		ReturnPct: 0.123456789,
		MaxDDPct:  0.5,
		WinRate:   1,
		Sharpe:    1.25,
		Score:     0.42,
		Notes:     []string{"first", "second"},
	}
}

func TestSQLiteRecordAndLoadRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, err := NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer j.Close()

	run := sampleRun(t)
	require.NotEmpty(t, run.Report.Fills)
	require.NoError(t, j.RecordRun(ctx, run))

	got, err := j.LoadRun(ctx, run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.True(t, run.Created.Equal(got.Created))
	assert.Equal(t, run.Dataset, got.Dataset)
	assert.Equal(t, run.Notes, got.Notes)
	assert.Equal(t, run.ReturnPct, got.ReturnPct)
	assert.Equal(t, run.Report.Config, got.Report.Config)
	assert.Equal(t, run.Report.FinalCash, got.Report.FinalCash)
	assert.Equal(t, run.Report.RealizedPnL, got.Report.RealizedPnL)
	assert.Equal(t, run.Report.Commission, got.Report.Commission)
	assert.Equal(t, run.Report.TradeCount, got.Report.TradeCount)
	assert.True(t, run.Report.Start.Equal(got.Report.Start))
	assert.True(t, run.Report.End.Equal(got.Report.End))

	require.Len(t, got.Report.Fills, len(run.Report.Fills))
	for i, f := range run.Report.Fills {
		g := got.Report.Fills[i]
		assert.True(t, f.Time.Equal(g.Time))
		g.Time = f.Time
		assert.Equal(t, f, g)
	}
	require.Len(t, got.Report.Equity, len(run.Report.Equity))
	assert.Equal(t, run.Report.Equity[2].Equity, got.Report.Equity[2].Equity)
	require.Len(t, got.Report.LotsRemaining, len(run.Report.LotsRemaining))
}

func TestSQLiteListAndDeleteRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, err := NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer j.Close()

	a := sampleRun(t)
	b := sampleRun(t)
	b.ID = "01HZZZTESTRUN0000000000001"
	b.Created = a.Created.Add(time.Hour)
	require.NoError(t, j.RecordRun(ctx, a))
	require.NoError(t, j.RecordRun(ctx, b))

	runs, err := j.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, b.ID, runs[0].ID)
	assert.Empty(t, runs[0].Report.Fills)

	require.NoError(t, j.DeleteRun(ctx, a.ID))
	_, err = j.LoadRun(ctx, a.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, j.DeleteRun(ctx, a.ID), ErrRunNotFound)

	assert.Error(t, j.RecordRun(ctx, b), "duplicate run id")
}

func TestCSVJournalRecordFill(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fillsPath := filepath.Join(dir, "fills.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(fillsPath, equityPath)
	require.NoError(t, err)

	require.NoError(t, j.RecordFill(grid.Fill{
		Seq: 1, Time: t0, Side: grid.Sell, Price: 10.098, Volume: 100,
		CashAfter: 10019.8, LotIndex: 0, CostPrice: 9.9, PnL: 19.8, Reason: "take-profit",
	}))
	require.NoError(t, j.RecordEquity(grid.EquityPoint{Time: t0, Equity: 10019.8, Cash: 10019.8}))
	require.NoError(t, j.Close())

	data, err := os.ReadFile(fillsPath)
	require.NoError(t, err)
	reader := csv.NewReader(strings.NewReader(string(data)))
	_, err = reader.Read() // header
	require.NoError(t, err)
	row, err := reader.Read()
	require.NoError(t, err)

	want := []string{
		"1",
		t0.Format(time.RFC3339),
		"sell",
		"10.098000",
		"100",
		"10019.800000",
		"0",
		"9.900000",
		"0.000000",
		"19.800000",
		"take-profit",
	}
	assert.Equal(t, want, row)

	data, err = os.ReadFile(equityPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), t0.Format(time.RFC3339)+",10019.800000,10019.800000")
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	run := sampleRun(t)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, run))
	assert.Contains(t, buf.String(), `"unrealized_pnl_at_end"`)
	assert.Contains(t, buf.String(), `"equity_curve"`)

	got, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, run.Report.FinalCash, got.Report.FinalCash)
	assert.Equal(t, run.Report.Config, got.Report.Config)
	require.Len(t, got.Report.Fills, len(run.Report.Fills))
	assert.Equal(t, run.Report.Fills[0].Price, got.Report.Fills[0].Price)

	_, err = ReadJSON(strings.NewReader("{"))
	assert.Error(t, err)
}

func TestFormatRunOrg(t *testing.T) {
	t.Parallel()

	run := sampleRun(t)
	out, err := FormatRunOrg(run)
	require.NoError(t, err)

	assert.Contains(t, out, "* BACKTEST: Grid 510300 minute.db")
	assert.Contains(t, out, ":RUN_ID:      "+run.ID)
	assert.Contains(t, out, ":STRATEGY:    grid")
	assert.Contains(t, out, ":START_CASH:  10000.00")
	assert.Contains(t, out, ":RETURN_PCT:  0.12")
	assert.Contains(t, out, "| Grid density % | 1.00 |")
	assert.Contains(t, out, "** Fills")
	assert.Contains(t, out, "| buy |")
	assert.Contains(t, out, "- first")
	assert.Contains(t, out, ":CREATED:     [2024-03-02 Sat 08:00]")

	run.ID = ""
	run.Report.Fills = nil
	run.Notes = nil
	out, err = FormatRunOrg(run)
	require.NoError(t, err)
	assert.Contains(t, out, "(run-id?)")
	assert.NotContains(t, out, "** Fills")
	assert.NotContains(t, out, "** Observations")
}

func TestDirJournal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "runs")

	jr, err := Open("dir", dir)
	require.NoError(t, err)
	run := sampleRun(t)
	require.NoError(t, jr.RecordRun(ctx, run))
	require.NoError(t, jr.Close())

	for _, name := range []string{".json", ".org", "-fills.csv", "-equity.csv"} {
		assert.FileExists(t, filepath.Join(dir, run.ID+name))
	}

	got, err := jr.(*Dir).LoadRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Report.TradeCount, got.Report.TradeCount)

	_, err = jr.(*Dir).LoadRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = Open("mongo", dir)
	assert.Error(t, err)
}
