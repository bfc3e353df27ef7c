package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/gridbt/market"
)

// Schema is applied by OpenWritable. Timestamps are unix seconds plus the
// bar's UTC offset so the original zone survives the round trip.
const Schema = `
CREATE TABLE IF NOT EXISTS bars (
	symbol     TEXT    NOT NULL,
	ts         INTEGER NOT NULL,
	utc_offset INTEGER NOT NULL DEFAULT 0,
	open       REAL    NOT NULL,
	high       REAL    NOT NULL,
	low        REAL    NOT NULL,
	close      REAL    NOT NULL,
	volume     INTEGER NOT NULL DEFAULT 0,
	amount     REAL    NOT NULL DEFAULT 0,
	adj_factor REAL,
	PRIMARY KEY (symbol, ts)
);
`

// SQLite is a Store backed by a single SQLite file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens an existing bar database read-only.
func OpenSQLite(path string) (*SQLite, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open bar store: %w", err)
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open bar store %s: %w", path, err)
	}
	return &SQLite{db: db}, nil
}

// OpenWritable opens (creating if needed) a bar database for import.
func OpenWritable(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create bar schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Upsert writes bars in one transaction; rows with the same (symbol, ts)
// are replaced.
func (s *SQLite) Upsert(ctx context.Context, bars []market.Bar) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars
		(symbol, ts, utc_offset, open, high, low, close, volume, amount, adj_factor)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, b := range bars {
		if err := b.Validate(); err != nil {
			return 0, fmt.Errorf("bar %d: %w", i, err)
		}
		_, off := b.Time.Zone()
		var adj sql.NullFloat64
		if b.HasAdjFactor {
			adj = sql.NullFloat64{Float64: b.AdjFactor, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			b.Symbol, b.Time.Unix(), off,
			b.Open, b.High, b.Low, b.Close, b.Volume, b.Amount, adj,
		); err != nil {
			return 0, fmt.Errorf("upsert %s %s: %w", b.Symbol, b.Time.Format(time.RFC3339), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(bars), nil
}

func (s *SQLite) Range(ctx context.Context, symbol string, start, end time.Time) (Cursor, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM bars WHERE symbol = ? LIMIT 1`, symbol).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	if err != nil {
		return nil, err
	}

	lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
	if !start.IsZero() {
		lo = start.Unix()
	}
	if !end.IsZero() {
		hi = end.Unix()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, ts, utc_offset, open, high, low, close, volume, amount, adj_factor
		FROM bars
		WHERE symbol = ? AND ts >= ? AND ts < ?
		ORDER BY ts ASC`, symbol, lo, hi)
	if err != nil {
		return nil, err
	}

	c := &sqliteCursor{rows: rows}
	// Prefetch so an empty range is reported at open, not at the first Next.
	b, ok, err := c.read()
	if err != nil {
		rows.Close()
		return nil, err
	}
	if !ok {
		rows.Close()
		return nil, fmt.Errorf("%w: %s [%s, %s)", ErrEmptyRange, symbol, fmtTime(start), fmtTime(end))
	}
	c.head, c.hasHead = b, true
	return c, nil
}

func (s *SQLite) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM bars ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

func (s *SQLite) Span(ctx context.Context, symbol string) (Span, error) {
	var (
		first, last sql.NullInt64
		count       int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT MIN(ts), MAX(ts), COUNT(*) FROM bars WHERE symbol = ?`, symbol,
	).Scan(&first, &last, &count)
	if err != nil {
		return Span{}, err
	}
	if count == 0 {
		return Span{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	sp := Span{Symbol: symbol, Count: count}
	var off int
	if err := s.db.QueryRowContext(ctx,
		`SELECT utc_offset FROM bars WHERE symbol = ? AND ts = ?`, symbol, first.Int64,
	).Scan(&off); err != nil {
		return Span{}, err
	}
	sp.First = unixIn(first.Int64, off)
	sp.Last = unixIn(last.Int64, off)
	return sp, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type sqliteCursor struct {
	rows    *sql.Rows
	head    market.Bar
	hasHead bool
	done    bool
}

func (c *sqliteCursor) Next() (market.Bar, bool, error) {
	if c.hasHead {
		c.hasHead = false
		return c.head, true, nil
	}
	if c.done {
		return market.Bar{}, false, nil
	}
	return c.read()
}

func (c *sqliteCursor) read() (market.Bar, bool, error) {
	if !c.rows.Next() {
		c.done = true
		return market.Bar{}, false, c.rows.Err()
	}

	var (
		b   market.Bar
		ts  int64
		off int
		adj sql.NullFloat64
	)
	if err := c.rows.Scan(&b.Symbol, &ts, &off,
		&b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.Amount, &adj); err != nil {
		return market.Bar{}, false, err
	}
	b.Time = unixIn(ts, off)
	if adj.Valid {
		b = b.WithAdjFactor(adj.Float64)
	}
	return b, true, nil
}

func (c *sqliteCursor) Close() error {
	c.done = true
	return c.rows.Close()
}

func unixIn(ts int64, off int) time.Time {
	t := time.Unix(ts, 0)
	if off == 0 {
		return t.UTC()
	}
	return t.In(time.FixedZone("", off))
}
