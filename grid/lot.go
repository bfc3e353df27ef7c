package grid

import (
	"errors"
	"fmt"
	"iter"
	"time"
)

// ErrCapacity is returned by LotBook.Push when the book is full. The
// simulator treats it as buy ineligibility, it never surfaces from Run.
var ErrCapacity = errors.New("lot book at capacity")

// Lot is one open grid fill with its own cost basis and take-profit.
type Lot struct {
	CostPrice       float64   `json:"cost_price"`
	Volume          int64     `json:"volume"`
	OpenTime        time.Time `json:"open_timestamp"`
	TargetSellPrice float64   `json:"target_sell_price"`
}

// NewLot prices a lot's take-profit from cfg.SellGap.
func NewLot(cost float64, volume int64, opened time.Time, cfg Config) Lot {
	return Lot{
		CostPrice:       cost,
		Volume:          volume,
		OpenTime:        opened,
		TargetSellPrice: cfg.sellTarget(cost),
	}
}

// Cost is the cash paid for the lot, commission excluded.
func (l Lot) Cost() float64 { return l.CostPrice * float64(l.Volume) }

// LotBook is the ordered stack of open lots. Index 0 is the oldest lot,
// Len()-1 the newest.
type LotBook struct {
	lots     []Lot
	capacity int // 0 = unbounded
}

func NewLotBook(capacity int) *LotBook {
	hint := capacity
	if hint == 0 || hint > 1024 {
		hint = 16
	}
	return &LotBook{lots: make([]Lot, 0, hint), capacity: capacity}
}

func (b *LotBook) Len() int { return len(b.lots) }

// Full reports whether another Push would fail.
func (b *LotBook) Full() bool {
	return b.capacity > 0 && len(b.lots) >= b.capacity
}

// Push appends lot as the newest entry.
func (b *LotBook) Push(lot Lot) error {
	if b.Full() {
		return fmt.Errorf("%w: %d/%d lots", ErrCapacity, len(b.lots), b.capacity)
	}
	b.lots = append(b.lots, lot)
	return nil
}

// At returns the lot at index i (0 = oldest).
func (b *LotBook) At(i int) (Lot, bool) {
	if i < 0 || i >= len(b.lots) {
		return Lot{}, false
	}
	return b.lots[i], true
}

// PeekRecent returns the k-th lot from the tail; k=0 is the newest.
func (b *LotBook) PeekRecent(k int) (Lot, bool) {
	return b.At(len(b.lots) - 1 - k)
}

// PopAt removes the lot at index i; later indices shift down by one.
func (b *LotBook) PopAt(i int) (Lot, error) {
	if i < 0 || i >= len(b.lots) {
		return Lot{}, fmt.Errorf("pop lot: index %d out of range [0,%d)", i, len(b.lots))
	}
	lot := b.lots[i]
	b.lots = append(b.lots[:i], b.lots[i+1:]...)
	return lot, nil
}

// PopBack removes and returns the newest lot.
func (b *LotBook) PopBack() (Lot, bool) {
	if len(b.lots) == 0 {
		return Lot{}, false
	}
	n := len(b.lots) - 1
	lot := b.lots[n]
	b.lots = b.lots[:n]
	return lot, true
}

// Reverse yields (index, lot) newest first, at most limit lots (limit <= 0
// means all). The book must not be mutated while iterating.
func (b *LotBook) Reverse(limit int) iter.Seq2[int, Lot] {
	return func(yield func(int, Lot) bool) {
		n := 0
		for i := len(b.lots) - 1; i >= 0; i-- {
			if limit > 0 && n >= limit {
				return
			}
			if !yield(i, b.lots[i]) {
				return
			}
			n++
		}
	}
}

// MarkToMarket values every open lot at price.
func (b *LotBook) MarkToMarket(price float64) float64 {
	var v float64
	for _, l := range b.lots {
		v += price * float64(l.Volume)
	}
	return v
}

// CostBasis is the sum of cost price * volume over open lots.
func (b *LotBook) CostBasis() float64 {
	var v float64
	for _, l := range b.lots {
		v += l.Cost()
	}
	return v
}

// Volume is the total open volume.
func (b *LotBook) Volume() int64 {
	var v int64
	for _, l := range b.lots {
		v += l.Volume
	}
	return v
}

// Lots returns a copy of the open lots, oldest first.
func (b *LotBook) Lots() []Lot {
	out := make([]Lot, len(b.lots))
	copy(out, b.lots)
	return out
}
