// Package store persists minute bars and serves them back as ordered,
// lazily read ranges.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/gridbt/market"
)

var (
	// ErrUnknownSymbol is returned when a symbol has no bars at all.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrEmptyRange is returned when a symbol exists but no bar falls in the range.
	ErrEmptyRange = errors.New("empty range")
)

// Cursor is a single-pass ascending sequence of bars. It has the same pull
// contract as market.Feed and can be handed straight to grid.Run.
type Cursor = market.Feed

// Span describes the stored extent of one symbol.
type Span struct {
	Symbol string
	First  time.Time
	Last   time.Time
	Count  int64
}

// Store is the read side of a bar store.
type Store interface {
	// Range returns bars with start <= t < end in ascending order. A zero
	// start or end leaves that side unbounded.
	Range(ctx context.Context, symbol string, start, end time.Time) (Cursor, error)
	Symbols(ctx context.Context) ([]string, error)
	Span(ctx context.Context, symbol string) (Span, error)
	Close() error
}

// Writer upserts bars keyed by (symbol, time).
type Writer interface {
	Upsert(ctx context.Context, bars []market.Bar) (int, error)
}
