package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/gridbt/grid"
)

// SQLite stores runs with their fills, equity curve and remaining lots.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

// RecordRun writes the run and all of its rows in a single transaction.
func (j *SQLite) RecordRun(ctx context.Context, r Run) error {
	if r.ID == "" {
		return fmt.Errorf("record run: empty run id")
	}
	cfg, err := json.Marshal(r.Report.Config)
	if err != nil {
		return err
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rep := r.Report
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, created, dataset, symbol, start_time, end_time, bars, config,
		 final_cash, realized_pnl, unrealized_pnl, commission, trade_count,
		 return_pct, max_dd_pct, win_rate, sharpe, score, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Created, r.Dataset, rep.Symbol, rep.Start, rep.End, rep.Bars, string(cfg),
		rep.FinalCash, rep.RealizedPnL, rep.UnrealizedPnL, rep.Commission, rep.TradeCount,
		r.ReturnPct, r.MaxDDPct, r.WinRate, r.Sharpe, r.Score, strings.Join(r.Notes, "\n"),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.ID, err)
	}

	fill, err := tx.PrepareContext(ctx, `
		INSERT INTO fills
		(run_id, seq, time, side, price, volume, cash_after, lot_index, cost_price, commission, pnl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer fill.Close()
	for _, f := range rep.Fills {
		if _, err := fill.ExecContext(ctx,
			r.ID, f.Seq, f.Time, string(f.Side), f.Price, f.Volume, f.CashAfter,
			f.LotIndex, f.CostPrice, f.Commission, f.PnL, f.Reason,
		); err != nil {
			return fmt.Errorf("record fill %d: %w", f.Seq, err)
		}
	}

	eq, err := tx.PrepareContext(ctx, `INSERT INTO equity (run_id, seq, time, equity, cash) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer eq.Close()
	for i, p := range rep.Equity {
		if _, err := eq.ExecContext(ctx, r.ID, i, p.Time, p.Equity, p.Cash); err != nil {
			return fmt.Errorf("record equity %d: %w", i, err)
		}
	}

	lot, err := tx.PrepareContext(ctx, `
		INSERT INTO lots (run_id, seq, cost_price, volume, open_time, target_sell_price)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer lot.Close()
	for i, l := range rep.LotsRemaining {
		if _, err := lot.ExecContext(ctx, r.ID, i, l.CostPrice, l.Volume, l.OpenTime, l.TargetSellPrice); err != nil {
			return fmt.Errorf("record lot %d: %w", i, err)
		}
	}

	return tx.Commit()
}

const runColumns = `run_id, created, dataset, symbol, start_time, end_time, bars, config,
	final_cash, realized_pnl, unrealized_pnl, commission, trade_count,
	return_pct, max_dd_pct, win_rate, sharpe, score, notes`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r     Run
		cfg   string
		notes string
	)
	rep := &r.Report
	err := s.Scan(
		&r.ID, &r.Created, &r.Dataset, &rep.Symbol, &rep.Start, &rep.End, &rep.Bars, &cfg,
		&rep.FinalCash, &rep.RealizedPnL, &rep.UnrealizedPnL, &rep.Commission, &rep.TradeCount,
		&r.ReturnPct, &r.MaxDDPct, &r.WinRate, &r.Sharpe, &r.Score, &notes,
	)
	if err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(cfg), &rep.Config); err != nil {
		return Run{}, fmt.Errorf("run %s config: %w", r.ID, err)
	}
	if notes != "" {
		r.Notes = strings.Split(notes, "\n")
	}
	return r, nil
}

// ListRuns returns run summaries (no fills, equity or lots), newest first.
func (j *SQLite) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created DESC, run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadRun returns a run with its full ledger.
func (j *SQLite) LoadRun(ctx context.Context, runID string) (Run, error) {
	r, err := scanRun(j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if err != nil {
		if err == sql.ErrNoRows {
			return Run{}, fmt.Errorf("%w: %q", ErrRunNotFound, runID)
		}
		return Run{}, err
	}

	if r.Report.Fills, err = j.listFills(ctx, runID); err != nil {
		return Run{}, err
	}
	if r.Report.Equity, err = j.listEquity(ctx, runID); err != nil {
		return Run{}, err
	}
	if r.Report.LotsRemaining, err = j.listLots(ctx, runID); err != nil {
		return Run{}, err
	}
	return r, nil
}

func (j *SQLite) listFills(ctx context.Context, runID string) ([]grid.Fill, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, time, side, price, volume, cash_after, lot_index, cost_price, commission, pnl, reason
		FROM fills
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []grid.Fill{}
	for rows.Next() {
		var f grid.Fill
		var side string
		if err := rows.Scan(
			&f.Seq, &f.Time, &side, &f.Price, &f.Volume, &f.CashAfter,
			&f.LotIndex, &f.CostPrice, &f.Commission, &f.PnL, &f.Reason,
		); err != nil {
			return nil, err
		}
		f.Side = grid.Side(side)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (j *SQLite) listEquity(ctx context.Context, runID string) ([]grid.EquityPoint, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT time, equity, cash
		FROM equity
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []grid.EquityPoint{}
	for rows.Next() {
		var p grid.EquityPoint
		if err := rows.Scan(&p.Time, &p.Equity, &p.Cash); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (j *SQLite) listLots(ctx context.Context, runID string) ([]grid.Lot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT cost_price, volume, open_time, target_sell_price
		FROM lots
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []grid.Lot{}
	for rows.Next() {
		var l grid.Lot
		if err := rows.Scan(&l.CostPrice, &l.Volume, &l.OpenTime, &l.TargetSellPrice); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its rows.
func (j *SQLite) DeleteRun(ctx context.Context, runID string) error {
	res, err := j.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %q", ErrRunNotFound, runID)
	}
	return nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
