package market

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidAdjustment is returned when the anchor (latest) adjustment factor
// is zero or any factor in the series is not positive.
var ErrInvalidAdjustment = errors.New("invalid adjustment factor")

// AdjustedDecimals is the precision prices are rounded to after adjustment.
const AdjustedDecimals = 3

// Adjust forward-adjusts a bar series so every price is comparable to the
// level of the last bar: mult = factor / lastFactor, p = round(p*mult, 3).
//
// A series where any bar lacks a factor is returned unchanged. Volume and
// amount are never touched. The returned bars carry factor 1, so adjusting
// an adjusted series is the identity.
func Adjust(bars []Bar) ([]Bar, error) {
	if len(bars) == 0 {
		return nil, nil
	}
	for _, b := range bars {
		if !b.HasAdjFactor {
			out := make([]Bar, len(bars))
			copy(out, bars)
			return out, nil
		}
	}

	last := bars[len(bars)-1].AdjFactor
	if last == 0 {
		return nil, fmt.Errorf("%w: latest factor is zero", ErrInvalidAdjustment)
	}
	anchor := decimal.NewFromFloat(last)

	out := make([]Bar, len(bars))
	for i, b := range bars {
		if b.AdjFactor <= 0 {
			return nil, fmt.Errorf("%w: %s %s factor %g", ErrInvalidAdjustment,
				b.Symbol, b.Time.Format("2006-01-02 15:04"), b.AdjFactor)
		}
		mult := decimal.NewFromFloat(b.AdjFactor).Div(anchor)

		b.Open = scale(b.Open, mult)
		b.High = scale(b.High, mult)
		b.Low = scale(b.Low, mult)
		b.Close = scale(b.Close, mult)
		b.AdjFactor = 1
		out[i] = b
	}
	return out, nil
}

// AdjustFeed drains feed, adjusts the series and returns an in-memory feed.
// The whole series is needed because the anchor is the last bar's factor.
func AdjustFeed(feed Feed) (*SliceFeed, error) {
	bars, err := Collect(feed)
	if err != nil {
		return nil, err
	}
	adj, err := Adjust(bars)
	if err != nil {
		return nil, err
	}
	return NewSliceFeed(adj), nil
}

func scale(p float64, mult decimal.Decimal) float64 {
	return decimal.NewFromFloat(p).Mul(mult).Round(AdjustedDecimals).InexactFloat64()
}
