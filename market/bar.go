package market

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidBar is returned when a bar breaks the OHLC price invariants.
var ErrInvalidBar = errors.New("invalid bar")

// Bar is a one minute OHLC candle. Prices are in quote currency, Time is the
// (timezone tagged) open of the minute.
type Bar struct {
	Symbol string
	Time   time.Time

	Open  float64
	High  float64
	Low   float64
	Close float64

	Volume int64
	Amount float64

	// AdjFactor is only meaningful when HasAdjFactor is set.
	AdjFactor    float64
	HasAdjFactor bool
}

// Validate checks low <= min(open,close) <= max(open,close) <= high with
// strictly positive prices and non-negative volume/amount.
func (b Bar) Validate() error {
	if b.Time.IsZero() {
		return fmt.Errorf("%w: %s missing timestamp", ErrInvalidBar, b.Symbol)
	}
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return fmt.Errorf("%w: %s %s non-positive price o=%g h=%g l=%g c=%g",
			ErrInvalidBar, b.Symbol, b.Time.Format(time.RFC3339), b.Open, b.High, b.Low, b.Close)
	}
	if b.Low > min(b.Open, b.Close) || max(b.Open, b.Close) > b.High {
		return fmt.Errorf("%w: %s %s range o=%g h=%g l=%g c=%g",
			ErrInvalidBar, b.Symbol, b.Time.Format(time.RFC3339), b.Open, b.High, b.Low, b.Close)
	}
	if b.Volume < 0 || b.Amount < 0 {
		return fmt.Errorf("%w: %s %s negative volume/amount", ErrInvalidBar, b.Symbol, b.Time.Format(time.RFC3339))
	}
	if b.HasAdjFactor && b.AdjFactor < 0 {
		return fmt.Errorf("%w: %s %s negative adj_factor", ErrInvalidBar, b.Symbol, b.Time.Format(time.RFC3339))
	}
	return nil
}

// WithAdjFactor returns a copy of b carrying the given adjustment factor.
func (b Bar) WithAdjFactor(f float64) Bar {
	b.AdjFactor = f
	b.HasAdjFactor = true
	return b
}

// Feed yields bars one at a time in ascending time order.
// Implementations return (ok=false, err=nil) at EOF.
type Feed interface {
	Next() (b Bar, ok bool, err error)
	Close() error
}

// SliceFeed is an in-memory Feed over a bar slice.
type SliceFeed struct {
	bars []Bar
	idx  int
}

func NewSliceFeed(bars []Bar) *SliceFeed {
	return &SliceFeed{bars: bars}
}

func (f *SliceFeed) Next() (Bar, bool, error) {
	if f.idx >= len(f.bars) {
		return Bar{}, false, nil
	}
	b := f.bars[f.idx]
	f.idx++
	return b, true, nil
}

func (f *SliceFeed) Close() error { return nil }

// Collect drains a feed into a slice and closes it.
func Collect(feed Feed) ([]Bar, error) {
	defer feed.Close()

	var out []Bar
	for {
		b, ok, err := feed.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, b)
	}
}
