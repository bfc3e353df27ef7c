package grid

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rustyeddy/gridbt/market"
)

// ErrAccountingInvariant marks a broken accounting invariant. It always
// indicates a bug and aborts the run.
var ErrAccountingInvariant = errors.New("accounting invariant violated")

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// NoLot is the LotIndex of fills that did not pop a lot.
const NoLot = -1

// Fill is one ledger entry.
type Fill struct {
	Seq        int       `json:"seq"`
	Time       time.Time `json:"timestamp"`
	Side       Side      `json:"side"`
	Price      float64   `json:"price"`
	Volume     int64     `json:"volume"`
	CashAfter  float64   `json:"cash_after"`
	LotIndex   int       `json:"lot_index"`
	CostPrice  float64   `json:"cost_price"`
	Commission float64   `json:"commission"`
	PnL        float64   `json:"pnl"`
	Reason     string    `json:"reason,omitempty"`
}

// EquityPoint is one sample of the equity curve, taken at bar close.
type EquityPoint struct {
	Time   time.Time `json:"timestamp"`
	Equity float64   `json:"equity"`
	Cash   float64   `json:"cash"`
}

// Account holds cash, P&L and the append-only trade ledger of a run.
type Account struct {
	InitialCash float64
	Cash        float64

	// RealizedPnL is net of sell commission; GrossPnL is not.
	RealizedPnL float64
	GrossPnL    float64
	Commission  float64

	Fills  []Fill
	Equity []EquityPoint
}

func NewAccount(initialCash float64) *Account {
	return &Account{InitialCash: initialCash, Cash: initialCash}
}

// Buy debits price*volume plus commission and records the fill.
func (a *Account) Buy(t time.Time, lot Lot, rate float64, reason string) Fill {
	notional := lot.CostPrice * float64(lot.Volume)
	fee := notional * rate

	a.Cash -= notional + fee
	a.Commission += fee

	return a.record(Fill{
		Time:       t,
		Side:       Buy,
		Price:      lot.CostPrice,
		Volume:     lot.Volume,
		LotIndex:   NoLot,
		CostPrice:  lot.CostPrice,
		Commission: fee,
		Reason:     reason,
	})
}

// Sell credits the proceeds of closing lot at price, net of commission.
func (a *Account) Sell(t time.Time, lot Lot, idx int, price, rate float64, reason string) Fill {
	notional := price * float64(lot.Volume)
	fee := notional * rate
	gross := (price - lot.CostPrice) * float64(lot.Volume)

	a.Cash += notional - fee
	a.Commission += fee
	a.GrossPnL += gross
	a.RealizedPnL += gross - fee

	return a.record(Fill{
		Time:       t,
		Side:       Sell,
		Price:      price,
		Volume:     lot.Volume,
		LotIndex:   idx,
		CostPrice:  lot.CostPrice,
		Commission: fee,
		PnL:        gross - fee,
		Reason:     reason,
	})
}

func (a *Account) record(f Fill) Fill {
	f.Seq = len(a.Fills)
	f.CashAfter = a.Cash
	a.Fills = append(a.Fills, f)
	return f
}

// Mark appends an equity sample.
func (a *Account) Mark(t time.Time, lotsValue float64) {
	a.Equity = append(a.Equity, EquityPoint{Time: t, Equity: a.Cash + lotsValue, Cash: a.Cash})
}

// LastFill returns the most recent ledger entry.
func (a *Account) LastFill() (Fill, bool) {
	if len(a.Fills) == 0 {
		return Fill{}, false
	}
	return a.Fills[len(a.Fills)-1], true
}

// Check verifies cash >= 0 and the mass balance
//
//	initial + gross_pnl == cash + cost_basis + commissions
//
// which reduces to initial + realized == cash + cost_basis without commission.
func (a *Account) Check(book *LotBook) (predicate string, ok bool) {
	if a.Cash < -tolerance(a.InitialCash) {
		return fmt.Sprintf("cash >= 0 (cash=%.6f)", a.Cash), false
	}
	lhs := a.InitialCash + a.GrossPnL
	rhs := a.Cash + book.CostBasis() + a.Commission
	if math.Abs(lhs-rhs) > tolerance(lhs) {
		return fmt.Sprintf("initial+gross_pnl == cash+cost_basis+commission (%.6f != %.6f)", lhs, rhs), false
	}
	return "", true
}

func tolerance(scale float64) float64 {
	return 1e-6 * max(1, math.Abs(scale))
}

// InvariantError carries the context of a failed accounting check.
type InvariantError struct {
	Predicate string
	Phase     Phase
	Bar       market.Bar
	LastFill  *Fill
}

func (e *InvariantError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s during %s", ErrAccountingInvariant, e.Predicate, e.Phase)
	fmt.Fprintf(&b, "; bar %s o=%g h=%g l=%g c=%g", e.Bar.Time.Format(time.RFC3339),
		e.Bar.Open, e.Bar.High, e.Bar.Low, e.Bar.Close)
	if e.LastFill != nil {
		f := e.LastFill
		fmt.Fprintf(&b, "; last fill #%d %s %d@%g cash_after=%.6f", f.Seq, f.Side, f.Volume, f.Price, f.CashAfter)
	}
	return b.String()
}

func (e *InvariantError) Unwrap() error { return ErrAccountingInvariant }
