package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/gridbt/grid"
)

// CSVJournal streams fills and equity samples to two CSV files.
type CSVJournal struct {
	fills  *csv.Writer
	equity *csv.Writer
	ff, ef *os.File
}

func NewCSV(fillsPath, equityPath string) (*CSVJournal, error) {
	ff, err := os.Create(fillsPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		ff.Close()
		return nil, err
	}

	fw := csv.NewWriter(ff)
	ew := csv.NewWriter(ef)

	if err := fw.Write([]string{"seq", "time", "side", "price", "volume", "cash_after", "lot_index", "cost_price", "commission", "pnl", "reason"}); err != nil {
		return nil, err
	}
	if err := ew.Write([]string{"time", "equity", "cash"}); err != nil {
		return nil, err
	}

	fw.Flush()
	if err := fw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{fw, ew, ff, ef}, nil
}

func (j *CSVJournal) RecordFill(x grid.Fill) error {
	return j.fills.Write([]string{
		strconv.Itoa(x.Seq),
		x.Time.Format(time.RFC3339),
		string(x.Side),
		f(x.Price),
		strconv.FormatInt(x.Volume, 10),
		f(x.CashAfter),
		strconv.Itoa(x.LotIndex),
		f(x.CostPrice),
		f(x.Commission),
		f(x.PnL),
		x.Reason,
	})
}

func (j *CSVJournal) RecordEquity(e grid.EquityPoint) error {
	return j.equity.Write([]string{
		e.Time.Format(time.RFC3339),
		f(e.Equity),
		f(e.Cash),
	})
}

func (j *CSVJournal) Close() error {
	j.fills.Flush()
	if err := j.fills.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.ff.Close(); err != nil {
		return err
	}
	if err := j.ef.Close(); err != nil {
		return err
	}
	return nil
}

// WriteCSV dumps a finished report's ledger and equity curve.
func WriteCSV(rep grid.Report, fillsPath, equityPath string) error {
	j, err := NewCSV(fillsPath, equityPath)
	if err != nil {
		return err
	}
	for _, x := range rep.Fills {
		if err := j.RecordFill(x); err != nil {
			j.Close()
			return err
		}
	}
	for _, e := range rep.Equity {
		if err := j.RecordEquity(e); err != nil {
			j.Close()
			return err
		}
	}
	return j.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
