package grid

import (
	"time"

	"github.com/rustyeddy/gridbt/market"
)

// State is the mutable part of the grid carried from bar to bar.
type State struct {
	LastBuyPrice float64 `json:"last_buy_price"`
	OpenLotCount int     `json:"open_lot_count"`
}

// BuyTrigger is the single buy rung for the next bar: one grid step below
// the last buy, always strictly below it.
func BuyTrigger(cfg Config, st State) float64 {
	return cfg.buyRung(st.LastBuyPrice)
}

// BuyEligible reports whether the buy at trigger fires on bar. Capacity and
// cash shortfalls are plain ineligibility.
func BuyEligible(cfg Config, book *LotBook, cash, trigger float64, bar market.Bar) bool {
	if trigger <= 0 || bar.Low > trigger {
		return false
	}
	if book.Full() {
		return false
	}
	if cash < trigger*float64(cfg.LotUnit)*(1+cfg.CommissionRate) {
		return false
	}
	if cfg.LowerLimit > 0 && bar.Close <= cfg.LowerLimit {
		return false
	}
	if cfg.UpperLimit > 0 && bar.Close >= cfg.UpperLimit {
		return false
	}
	return true
}

// SellEligible reports whether lot's take-profit is reached on bar.
func SellEligible(cfg Config, lot Lot, bar market.Bar) bool {
	if bar.High < lot.TargetSellPrice {
		return false
	}
	if cfg.SettleNextDay && sameDay(lot.OpenTime, bar.Time) {
		return false
	}
	return true
}

// SellTriggers lists the indices of lots whose target is reached on bar,
// newest first. The simulator pops them in this order.
func SellTriggers(cfg Config, book *LotBook, bar market.Bar) []int {
	var out []int
	for i, lot := range book.Reverse(0) {
		if SellEligible(cfg, lot, bar) {
			out = append(out, i)
		}
	}
	return out
}

// BuyFillPrice is the execution price of a triggered buy.
func BuyFillPrice(policy FillPolicy, trigger float64, bar market.Bar) float64 {
	switch policy {
	case FillLimit:
		return trigger
	case FillOpen:
		return min(trigger, bar.Open)
	default:
		return min(trigger, bar.High)
	}
}

// SellFillPrice is the execution price of a triggered sell.
func SellFillPrice(policy FillPolicy, target float64, bar market.Bar) float64 {
	switch policy {
	case FillLimit:
		return target
	case FillOpen:
		return max(target, bar.Open)
	default:
		return max(target, bar.Low)
	}
}

func sameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
