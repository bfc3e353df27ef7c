package grid

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidConfig is returned by Validate (and Run) before any bar is read.
var ErrInvalidConfig = errors.New("invalid grid config")

// FillPolicy decides the price a triggered order fills at when the bar gaps
// through the resting limit.
type FillPolicy string

const (
	// FillClamp fills buys at min(trigger, high) and sells at max(target, low),
	// so every fill lies inside the bar.
	FillClamp FillPolicy = "clamp"
	// FillLimit always fills at the resting limit, even outside the bar.
	FillLimit FillPolicy = "limit"
	// FillOpen fills at the open when the bar opens through the limit.
	FillOpen FillPolicy = "open"
)

// Config is the immutable parameter set of one grid run.
type Config struct {
	GridDensity    float64 `json:"grid_density" yaml:"grid_density"`
	SellGap        float64 `json:"sell_gap" yaml:"sell_gap"`
	LotUnit        int64   `json:"lot_unit" yaml:"lot_unit"`
	MaxOpenLots    int     `json:"max_open_lots" yaml:"max_open_lots"` // 0 = unbounded
	InitialCash    float64 `json:"initial_cash" yaml:"initial_cash"`
	CommissionRate float64 `json:"commission_rate" yaml:"commission_rate"`
	AnchorPrice    float64 `json:"anchor_price" yaml:"anchor_price"` // 0 = first bar open

	FillPolicy       FillPolicy `json:"fill_policy,omitempty" yaml:"fill_policy,omitempty"`
	SingleSellPerBar bool       `json:"single_sell_per_bar,omitempty" yaml:"single_sell_per_bar,omitempty"`
	LiquidateAtEnd   bool       `json:"liquidate_at_end,omitempty" yaml:"liquidate_at_end,omitempty"`

	// PriceDecimals snaps trigger prices to a tick of that many decimals:
	// buy rungs round down, take-profit targets round up. 0 keeps exact prices.
	PriceDecimals int `json:"price_decimals,omitempty" yaml:"price_decimals,omitempty"`

	// Buys only fire while the bar close is strictly inside (LowerLimit, UpperLimit).
	// Zero disables a side.
	LowerLimit float64 `json:"lower_limit,omitempty" yaml:"lower_limit,omitempty"`
	UpperLimit float64 `json:"upper_limit,omitempty" yaml:"upper_limit,omitempty"`

	// SettleNextDay blocks selling a lot on the trading day it was bought (T+1).
	SettleNextDay bool `json:"settle_next_day,omitempty" yaml:"settle_next_day,omitempty"`
}

// DefaultConfig mirrors the reference scenario parameters.
func DefaultConfig() Config {
	return Config{
		GridDensity: 0.01,
		SellGap:     0.02,
		LotUnit:     100,
		MaxOpenLots: 10,
		InitialCash: 10000,
		FillPolicy:  FillClamp,
	}
}

// Validate checks the static constraints of the configuration.
func (c Config) Validate() error {
	switch {
	case c.GridDensity <= 0 || c.GridDensity >= 1:
		return invalid("grid_density must be in (0, 1), got %g", c.GridDensity)
	case c.SellGap <= 0 || c.SellGap >= 1:
		return invalid("sell_gap must be in (0, 1), got %g", c.SellGap)
	case c.LotUnit <= 0:
		return invalid("lot_unit must be positive, got %d", c.LotUnit)
	case c.MaxOpenLots < 0:
		return invalid("max_open_lots must be positive or 0 for unbounded, got %d", c.MaxOpenLots)
	case c.InitialCash <= 0:
		return invalid("initial_cash must be positive, got %g", c.InitialCash)
	case c.CommissionRate < 0 || c.CommissionRate >= 1:
		return invalid("commission_rate must be in [0, 1), got %g", c.CommissionRate)
	case c.AnchorPrice < 0:
		return invalid("anchor_price must be positive or 0 to use the first open, got %g", c.AnchorPrice)
	case c.PriceDecimals < 0 || c.PriceDecimals > 8:
		return invalid("price_decimals must be between 0 and 8, got %d", c.PriceDecimals)
	case c.LowerLimit < 0 || c.UpperLimit < 0:
		return invalid("lower_limit and upper_limit must not be negative")
	case c.UpperLimit > 0 && c.LowerLimit >= c.UpperLimit:
		return invalid("lower_limit must be below upper_limit")
	}

	switch c.FillPolicy {
	case "", FillClamp, FillLimit, FillOpen:
	default:
		return invalid("fill_policy must be clamp, limit or open, got %q", c.FillPolicy)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func (c Config) policy() FillPolicy {
	if c.FillPolicy == "" {
		return FillClamp
	}
	return c.FillPolicy
}

var one = decimal.NewFromInt(1)

// buyRung is last * (1 - GridDensity). With a tick it is floored, so it
// stays strictly below last.
func (c Config) buyRung(last float64) float64 {
	p := decimal.NewFromFloat(last).Mul(one.Sub(decimal.NewFromFloat(c.GridDensity)))
	if c.PriceDecimals > 0 {
		p = p.RoundFloor(int32(c.PriceDecimals))
	}
	return p.InexactFloat64()
}

// sellTarget is cost * (1 + SellGap). With a tick it is ceiled, so it never
// falls below the exact target.
func (c Config) sellTarget(cost float64) float64 {
	p := decimal.NewFromFloat(cost).Mul(one.Add(decimal.NewFromFloat(c.SellGap)))
	if c.PriceDecimals > 0 {
		p = p.RoundCeil(int32(c.PriceDecimals))
	}
	return p.InexactFloat64()
}

// Unbounded reports whether the lot book has no capacity limit.
func (c Config) Unbounded() bool { return c.MaxOpenLots == 0 }
