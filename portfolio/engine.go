package portfolio

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/rustyeddy/ledger/broker"
	"github.com/rustyeddy/ledger/journal"
	"github.com/rustyeddy/ledger/market"
)

// CashPolicy decides what happens when a fill would take cash below zero.
type CashPolicy int

const (
	// AllowNegativeCash books negative cash as margin debt.
	AllowNegativeCash CashPolicy = iota
	// RejectNegativeCash rejects the fill as a validation error.
	RejectNegativeCash
)

func (p CashPolicy) String() string {
	if p == RejectNegativeCash {
		return "reject"
	}
	return "allow"
}

// ParseCashPolicy accepts "allow" (or empty) and "reject".
func ParseCashPolicy(s string) (CashPolicy, error) {
	switch s {
	case "", "allow":
		return AllowNegativeCash, nil
	case "reject":
		return RejectNegativeCash, nil
	}
	return AllowNegativeCash, fmt.Errorf("unknown cash policy %q", s)
}

// Observer is told about every fill outcome. It is called after the engine
// lock is released, so it may query the engine.
type Observer interface {
	FillCommitted(FillOutcome)
	FillRejected(broker.Fill, error)
}

// Engine is the portfolio accounting engine. It owns the account, one
// holding per traded symbol and the transaction journal.
//
// Fills must be fed one at a time in time order. Queries may run from other
// goroutines; they see either the state before or after a fill, never a
// partial one.
type Engine struct {
	mu       sync.RWMutex
	dir      market.Directory
	acct     broker.Account
	holdings map[string]*Holding
	tx       *journal.Transactions

	policy   CashPolicy
	log      *slog.Logger
	observer Observer
	now      func() time.Time
}

type Option func(*Engine)

// WithLogger injects the engine logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

func WithCashPolicy(p CashPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithClock sets the time used for fills that carry no timestamp.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func New(dir market.Directory, acct broker.Account, opts ...Option) *Engine {
	e := &Engine{
		dir:      dir,
		acct:     acct,
		holdings: make(map[string]*Holding),
		tx:       journal.NewTransactions(),
		log:      slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Account returns a copy of the account.
func (e *Engine) Account() broker.Account {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.acct
}

func (e *Engine) Cash() market.Cash {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.acct.Cash
}

// SetCash overrides the cash balance. It is meant for initialization and
// administrative corrections, not trading.
func (e *Engine) SetCash(c market.Cash) {
	e.mu.Lock()
	prev, id := e.acct.Cash, e.acct.ID
	e.acct.Cash = c
	e.mu.Unlock()

	e.log.Info("cash set", "account", id, "from", prev.String(), "to", c.String())
}

// Holding returns the holding for a directory symbol. Symbols never traded
// are flat.
func (e *Engine) Holding(symbol string) (Holding, error) {
	if _, err := e.lookup("holding", symbol); err != nil {
		return Holding{}, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.holdingLocked(symbol), nil
}

// SetHolding replaces a symbol's holding with snapshot. It is used by
// external reporting and reconciliation, never by fill processing.
func (e *Engine) SetHolding(symbol string, snapshot Holding) error {
	const op = "set holding"
	if _, err := e.lookup(op, symbol); err != nil {
		return err
	}
	if snapshot.AveragePrice.IsNegative() {
		return validationError(op, symbol, fmt.Errorf("%w: negative average price %s", ErrInvalidHolding, snapshot.AveragePrice))
	}
	if snapshot.Quantity == math.MinInt64 {
		return validationError(op, symbol, fmt.Errorf("%w: quantity %d", ErrInvalidHolding, snapshot.Quantity))
	}
	if snapshot.Quantity == 0 && !snapshot.AveragePrice.IsZero() {
		return validationError(op, symbol, fmt.Errorf("%w: flat holding with average price %s", ErrInvalidHolding, snapshot.AveragePrice))
	}
	snapshot.Symbol = symbol

	e.mu.Lock()
	e.holdings[symbol] = &snapshot
	e.mu.Unlock()

	e.log.Info("holding set", "symbol", symbol, "quantity", snapshot.Quantity, "average_price", snapshot.AveragePrice.String())
	return nil
}

// Holdings returns a read-only snapshot of every directory symbol.
func (e *Engine) Holdings() View {
	symbols := e.dir.Symbols()

	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]Holding, len(symbols))
	for _, s := range symbols {
		out[s] = e.holdingLocked(s)
	}
	return newView(out)
}

// Transactions returns the realized-profit journal in insertion order.
func (e *Engine) Transactions() []journal.Entry {
	return e.tx.Entries()
}

// TransactionsBetween returns journal entries keyed in [start, end). A zero
// end leaves the range open.
func (e *Engine) TransactionsBetween(start, end time.Time) []journal.Entry {
	return e.tx.Between(start, end)
}

func (e *Engine) TransactionStats() journal.Stats {
	return e.tx.Stats()
}

func (e *Engine) holdingLocked(symbol string) Holding {
	if h, ok := e.holdings[symbol]; ok {
		return *h
	}
	return Holding{Symbol: symbol}
}

// lookup resolves symbol in the directory.
func (e *Engine) lookup(op, symbol string) (market.Instrument, error) {
	if symbol == "" {
		return market.Instrument{}, validationError(op, symbol, ErrUnknownSymbol)
	}
	in, err := e.dir.Instrument(symbol)
	if err != nil {
		if errors.Is(err, market.ErrUnknownInstrument) {
			return market.Instrument{}, validationError(op, symbol, fmt.Errorf("%w: %v", ErrUnknownSymbol, err))
		}
		return market.Instrument{}, processingError(op, symbol, fmt.Errorf("directory lookup: %w", err))
	}
	return in, nil
}

// instrument resolves symbol and checks the values the ledger divides by.
func (e *Engine) instrument(op, symbol string) (market.Instrument, error) {
	in, err := e.lookup(op, symbol)
	if err != nil {
		return market.Instrument{}, err
	}
	if !in.Leverage.IsPositive() {
		return market.Instrument{}, validationError(op, symbol, fmt.Errorf("%w, got %s", ErrInvalidLeverage, in.Leverage))
	}
	return in, nil
}
