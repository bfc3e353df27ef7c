package grid

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rustyeddy/gridbt/market"
)

// ErrOutOfOrder is returned when bar timestamps are not strictly increasing.
var ErrOutOfOrder = errors.New("bar out of order")

// Phase is the per-bar state of the simulator:
// Idle -> EvalSells -> ApplyBuy -> MarkEquity -> Idle, and Done at the end.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseEvalSells
	PhaseApplyBuy
	PhaseMarkEquity
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseEvalSells:
		return "eval-sells"
	case PhaseApplyBuy:
		return "apply-buy"
	case PhaseMarkEquity:
		return "mark-equity"
	case PhaseDone:
		return "done"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Simulator applies the grid fill rules to one bar at a time. It owns its
// lot book, account and grid state and is not safe for concurrent use.
type Simulator struct {
	cfg   Config
	book  *LotBook
	acct  *Account
	state State
	phase Phase

	seeded  bool
	lastBar market.Bar
	bars    int

	log      *zap.Logger
	observer func(Fill)
}

// Option configures a Simulator (and Run).
type Option func(*Simulator)

// WithLogger logs fills at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.log = l
		}
	}
}

// WithObserver is called synchronously after every fill.
func WithObserver(fn func(Fill)) Option {
	return func(s *Simulator) { s.observer = fn }
}

// NewSimulator validates cfg and returns a simulator at PhaseIdle.
func NewSimulator(cfg Config, opts ...Option) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Simulator{
		cfg:  cfg,
		book: NewLotBook(cfg.MaxOpenLots),
		acct: NewAccount(cfg.InitialCash),
		log:  zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	if cfg.AnchorPrice > 0 {
		s.seed(cfg.AnchorPrice)
	}
	return s, nil
}

func (s *Simulator) seed(p float64) {
	s.state.LastBuyPrice = p
	s.seeded = true
}

func (s *Simulator) Config() Config      { return s.cfg }
func (s *Simulator) State() State        { return s.state }
func (s *Simulator) Phase() Phase        { return s.phase }
func (s *Simulator) Book() *LotBook      { return s.book }
func (s *Simulator) Account() *Account   { return s.acct }
func (s *Simulator) LastBar() market.Bar { return s.lastBar }

// Step runs one bar through the state machine: sells (LIFO, cascading),
// then at most one buy, then an equity sample.
func (s *Simulator) Step(bar market.Bar) error {
	if s.phase == PhaseDone {
		return fmt.Errorf("step: simulator is done")
	}
	if err := bar.Validate(); err != nil {
		return err
	}
	if s.bars > 0 && !bar.Time.After(s.lastBar.Time) {
		return fmt.Errorf("%w: %s after %s", ErrOutOfOrder,
			bar.Time.Format("2006-01-02 15:04"), s.lastBar.Time.Format("2006-01-02 15:04"))
	}
	if !s.seeded {
		s.seed(bar.Open)
	}
	s.lastBar = bar

	// The buy rung comes from the pre-bar state.
	trigger := BuyTrigger(s.cfg, s.state)

	s.phase = PhaseEvalSells
	if err := s.evalSells(bar); err != nil {
		return err
	}

	s.phase = PhaseApplyBuy
	if err := s.applyBuy(bar, trigger); err != nil {
		return err
	}

	s.phase = PhaseMarkEquity
	s.acct.Mark(bar.Time, s.book.MarkToMarket(bar.Close))
	if err := s.check(); err != nil {
		return err
	}

	s.bars++
	s.phase = PhaseIdle
	return nil
}

func (s *Simulator) evalSells(bar market.Bar) error {
	// Indices come newest first; removing index i leaves [0,i) untouched.
	for _, i := range SellTriggers(s.cfg, s.book, bar) {
		lot, err := s.book.PopAt(i)
		if err != nil {
			return err
		}
		price := SellFillPrice(s.cfg.policy(), lot.TargetSellPrice, bar)
		f := s.acct.Sell(bar.Time, lot, i, price, s.cfg.CommissionRate, "take-profit")
		s.state.LastBuyPrice = rebase(s.book, lot)
		s.state.OpenLotCount = s.book.Len()
		if err := s.filled(f); err != nil {
			return err
		}
		if s.cfg.SingleSellPerBar {
			break
		}
	}
	return nil
}

// rebase is the reference price after sold leaves the book: the newest
// remaining lot's cost, or sold's cost once the book is empty.
func rebase(book *LotBook, sold Lot) float64 {
	if top, ok := book.PeekRecent(0); ok {
		return top.CostPrice
	}
	return sold.CostPrice
}

func (s *Simulator) applyBuy(bar market.Bar, trigger float64) error {
	if !BuyEligible(s.cfg, s.book, s.acct.Cash, trigger, bar) {
		return nil
	}
	price := BuyFillPrice(s.cfg.policy(), trigger, bar)
	lot := NewLot(price, s.cfg.LotUnit, bar.Time, s.cfg)
	if err := s.book.Push(lot); err != nil {
		if errors.Is(err, ErrCapacity) {
			return nil
		}
		return err
	}
	f := s.acct.Buy(bar.Time, lot, s.cfg.CommissionRate, "grid")
	s.state.LastBuyPrice = price
	s.state.OpenLotCount = s.book.Len()
	return s.filled(f)
}

// Liquidate sells every open lot, newest first, at the last bar's close.
func (s *Simulator) Liquidate() error {
	if s.bars == 0 {
		return nil
	}
	bar := s.lastBar
	for s.book.Len() > 0 {
		i := s.book.Len() - 1
		lot, _ := s.book.PopBack()
		f := s.acct.Sell(bar.Time, lot, i, bar.Close, s.cfg.CommissionRate, "liquidate")
		s.state.OpenLotCount = s.book.Len()
		if err := s.filled(f); err != nil {
			return err
		}
	}
	return s.check()
}

func (s *Simulator) filled(f Fill) error {
	s.log.Debug("fill",
		zap.Int("seq", f.Seq),
		zap.Time("time", f.Time),
		zap.String("side", string(f.Side)),
		zap.Float64("price", f.Price),
		zap.Int64("volume", f.Volume),
		zap.Float64("cash", f.CashAfter),
		zap.Int("open_lots", s.book.Len()),
	)
	if s.observer != nil {
		s.observer(f)
	}
	if f.CashAfter < -tolerance(s.acct.InitialCash) {
		return s.violation("cash >= 0 after fill")
	}
	return nil
}

func (s *Simulator) check() error {
	if pred, ok := s.acct.Check(s.book); !ok {
		return s.violation(pred)
	}
	if s.cfg.MaxOpenLots > 0 && s.book.Len() > s.cfg.MaxOpenLots {
		return s.violation(fmt.Sprintf("open lots <= max_open_lots (%d > %d)", s.book.Len(), s.cfg.MaxOpenLots))
	}
	return nil
}

func (s *Simulator) violation(pred string) error {
	e := &InvariantError{Predicate: pred, Phase: s.phase, Bar: s.lastBar}
	if f, ok := s.acct.LastFill(); ok {
		e.LastFill = &f
	}
	s.log.Error("accounting invariant violated", zap.Error(e))
	return e
}
