package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/gridbt/market"
)

// CSV bar files need a header row naming at least these columns. amount and
// adj_factor are optional; an empty adj_factor cell means "no factor".
var csvRequired = []string{"symbol", "timestamp", "open", "high", "low", "close", "volume"}

// CSVFeed streams bars from a CSV source. It optionally keeps only one
// symbol and bars in [From, To). Blank rows are skipped; any other malformed
// row is an error.
type CSVFeed struct {
	c      io.Closer
	r      *csv.Reader
	col    map[string]int
	line   int
	symbol string
	from   time.Time
	to     time.Time
}

// OpenCSV opens a streaming feed over the bar CSV at path. Empty symbol and
// zero times disable the corresponding filter.
func OpenCSV(path, symbol string, from, to time.Time) (*CSVFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	feed, err := NewCSVFeed(f, symbol, from, to)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	feed.c = f
	return feed, nil
}

// NewCSVFeed reads and checks the header row of r.
func NewCSVFeed(r io.Reader, symbol string, from, to time.Time) (*CSVFeed, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, err
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range csvRequired {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("header missing column %q", name)
		}
	}
	return &CSVFeed{r: cr, col: col, line: 1, symbol: symbol, from: from, to: to}, nil
}

func (f *CSVFeed) Next() (market.Bar, bool, error) {
	for {
		row, err := f.r.Read()
		if err == io.EOF {
			return market.Bar{}, false, nil
		}
		if err != nil {
			return market.Bar{}, false, err
		}
		f.line++
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		b, err := parseBarRow(row, f.col)
		if err != nil {
			return market.Bar{}, false, fmt.Errorf("line %d: %w", f.line, err)
		}
		if err := b.Validate(); err != nil {
			return market.Bar{}, false, fmt.Errorf("line %d: %w", f.line, err)
		}
		if f.symbol != "" && b.Symbol != f.symbol {
			continue
		}
		if !inRange(b.Time, f.from, f.to) {
			continue
		}
		return b, true, nil
	}
}

func (f *CSVFeed) Close() error {
	if f.c != nil {
		return f.c.Close()
	}
	return nil
}

// ReadCSVFile reads every bar of the CSV at path.
func ReadCSVFile(path string) ([]market.Bar, error) {
	feed, err := OpenCSV(path, "", time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	bars, err := market.Collect(feed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

// ReadCSV parses bars from r. Timestamps are RFC3339 with a zone offset.
func ReadCSV(r io.Reader) ([]market.Bar, error) {
	feed, err := NewCSVFeed(r, "", time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	return market.Collect(feed)
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

func parseBarRow(row []string, col map[string]int) (market.Bar, error) {
	cell := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	num := func(name string) (float64, error) {
		v, err := strconv.ParseFloat(cell(name), 64)
		if err != nil {
			return 0, fmt.Errorf("bad %s %q: %w", name, cell(name), err)
		}
		return v, nil
	}

	var b market.Bar
	var err error

	b.Symbol = cell("symbol")
	if b.Symbol == "" {
		return b, fmt.Errorf("empty symbol")
	}

	ts := cell("timestamp")
	// Accept RFC3339 or RFC3339Nano.
	if b.Time, err = time.Parse(time.RFC3339, ts); err != nil {
		t2, err2 := time.Parse(time.RFC3339Nano, ts)
		if err2 != nil {
			return b, fmt.Errorf("bad timestamp %q: %w", ts, err)
		}
		b.Time = t2
	}

	if b.Open, err = num("open"); err != nil {
		return b, err
	}
	if b.High, err = num("high"); err != nil {
		return b, err
	}
	if b.Low, err = num("low"); err != nil {
		return b, err
	}
	if b.Close, err = num("close"); err != nil {
		return b, err
	}
	if b.Volume, err = strconv.ParseInt(cell("volume"), 10, 64); err != nil {
		return b, fmt.Errorf("bad volume %q: %w", cell("volume"), err)
	}
	if cell("amount") != "" {
		if b.Amount, err = num("amount"); err != nil {
			return b, err
		}
	}
	if cell("adj_factor") != "" {
		f, err := num("adj_factor")
		if err != nil {
			return b, err
		}
		b = b.WithAdjFactor(f)
	}
	return b, nil
}
