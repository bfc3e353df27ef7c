package journal

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/gridbt/grid"
)

// ErrRunNotFound is returned by LoadRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded backtest: the driver's report plus bookkeeping.
type Run struct {
	ID      string    `json:"run_id"`
	Created time.Time `json:"created"`
	Dataset string    `json:"dataset,omitempty"`

	Report grid.Report `json:"report"`

	// Derived / computed by the caller, zero when not evaluated.
	ReturnPct float64 `json:"return_pct"`
	MaxDDPct  float64 `json:"max_dd_pct"`
	WinRate   float64 `json:"win_rate"`
	Sharpe    float64 `json:"sharpe"`
	Score     float64 `json:"score"`

	Notes []string `json:"notes,omitempty"`
}

// Journal persists finished runs.
type Journal interface {
	RecordRun(ctx context.Context, r Run) error
	Close() error
}
