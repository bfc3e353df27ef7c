package store

import (
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/rustyeddy/gridbt/market"
)

// ParquetBar is the on-disk row of a bar Parquet file. Timestamp is unix
// milliseconds; UTCOffset is the zone offset in seconds. A zero AdjFactor is
// stored as null and read back as "no factor".
type ParquetBar struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp"`
	UTCOffset int32   `parquet:"utc_offset"`
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    int64   `parquet:"volume"`
	Amount    float64 `parquet:"amount,optional"`
	AdjFactor float64 `parquet:"adj_factor,optional"`
}

func toParquet(b market.Bar) ParquetBar {
	_, off := b.Time.Zone()
	p := ParquetBar{
		Symbol:    b.Symbol,
		Timestamp: b.Time.UnixMilli(),
		UTCOffset: int32(off),
		Open:      b.Open,
		High:      b.High,
		Low:       b.Low,
		Close:     b.Close,
		Volume:    b.Volume,
		Amount:    b.Amount,
	}
	if b.HasAdjFactor {
		p.AdjFactor = b.AdjFactor
	}
	return p
}

func (p ParquetBar) bar() market.Bar {
	t := time.UnixMilli(p.Timestamp)
	if p.UTCOffset == 0 {
		t = t.UTC()
	} else {
		t = t.In(time.FixedZone("", int(p.UTCOffset)))
	}
	b := market.Bar{
		Symbol: p.Symbol,
		Time:   t,
		Open:   p.Open,
		High:   p.High,
		Low:    p.Low,
		Close:  p.Close,
		Volume: p.Volume,
		Amount: p.Amount,
	}
	if p.AdjFactor != 0 {
		b = b.WithAdjFactor(p.AdjFactor)
	}
	return b
}

// WriteParquet saves bars to path.
func WriteParquet(path string, bars []market.Bar) error {
	rows := make([]ParquetBar, len(bars))
	for i, b := range bars {
		rows[i] = toParquet(b)
	}
	return parquet.WriteFile(path, rows)
}

// ReadParquet loads and validates every bar in path.
func ReadParquet(path string) ([]market.Bar, error) {
	rows, err := parquet.ReadFile[ParquetBar](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}

	bars := make([]market.Bar, 0, len(rows))
	for i, r := range rows {
		b := r.bar()
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i, err)
		}
		bars = append(bars, b)
	}
	return bars, nil
}
