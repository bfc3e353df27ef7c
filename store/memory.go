package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/gridbt/market"
)

// Memory is an in-process Store. Bars are kept sorted per symbol; a bar with
// the same timestamp as an existing one replaces it.
type Memory struct {
	mu   sync.RWMutex
	bars map[string][]market.Bar
}

// NewMemory returns a store loaded with bars. Any invalid bar fails the
// whole load.
func NewMemory(bars ...market.Bar) (*Memory, error) {
	m := &Memory{bars: make(map[string][]market.Bar)}
	if _, err := m.Upsert(context.Background(), bars); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Memory) Upsert(ctx context.Context, bars []market.Bar) (int, error) {
	for _, b := range bars {
		if err := b.Validate(); err != nil {
			return 0, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range bars {
		s := m.bars[b.Symbol]
		i := sort.Search(len(s), func(i int) bool { return !s[i].Time.Before(b.Time) })
		if i < len(s) && s[i].Time.Equal(b.Time) {
			s[i] = b
			continue
		}
		m.bars[b.Symbol] = slices.Insert(s, i, b)
	}
	return len(bars), nil
}

func (m *Memory) Range(ctx context.Context, symbol string, start, end time.Time) (Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.bars[symbol]
	if !ok || len(s) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	lo := 0
	if !start.IsZero() {
		lo = sort.Search(len(s), func(i int) bool { return !s[i].Time.Before(start) })
	}
	hi := len(s)
	if !end.IsZero() {
		hi = sort.Search(len(s), func(i int) bool { return !s[i].Time.Before(end) })
	}
	if lo >= hi {
		return nil, fmt.Errorf("%w: %s [%s, %s)", ErrEmptyRange, symbol, fmtTime(start), fmtTime(end))
	}

	// copy so later upserts don't race the cursor
	return market.NewSliceFeed(slices.Clone(s[lo:hi])), nil
}

func (m *Memory) Symbols(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.bars))
	for sym, s := range m.bars {
		if len(s) > 0 {
			out = append(out, sym)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (m *Memory) Span(ctx context.Context, symbol string) (Span, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.bars[symbol]
	if len(s) == 0 {
		return Span{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return Span{Symbol: symbol, First: s[0].Time, Last: s[len(s)-1].Time, Count: int64(len(s))}, nil
}

func (m *Memory) Close() error { return nil }

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}
