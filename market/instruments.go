// market/instruments.go
package market

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrUnknownInstrument is returned by a Directory for symbols it does not hold.
var ErrUnknownInstrument = errors.New("unknown instrument")

// One is the leverage of an unlevered instrument.
var One = decimal.NewFromInt(1)

// Instrument is what the ledger needs to know about a tradable symbol.
type Instrument struct {
	Symbol   string
	Price    Price
	Leverage Leverage
	Fees     FeeModel
}

// Directory resolves symbols to their current instrument data. The ledger
// only reads from it.
type Directory interface {
	Instrument(symbol string) (Instrument, error)
	Symbols() []string
}

// Registry is an in-memory Directory safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	instruments map[string]Instrument
}

func NewRegistry() *Registry {
	return &Registry{instruments: make(map[string]Instrument)}
}

// Add inserts or replaces an instrument. A nil fee model means no fees.
func (r *Registry) Add(in Instrument) error {
	if in.Symbol == "" {
		return errors.New("add instrument: symbol is required")
	}
	if in.Fees == nil {
		in.Fees = NoFee{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instruments[in.Symbol] = in
	return nil
}

func (r *Registry) Instrument(symbol string) (Instrument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	in, ok := r.instruments[symbol]
	if !ok {
		return Instrument{}, fmt.Errorf("%w %q", ErrUnknownInstrument, symbol)
	}
	return in, nil
}

// Symbols returns the registered symbols in sorted order.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.instruments))
	for s := range r.instruments {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// SetPrice marks symbol to a new current price.
func (r *Registry) SetPrice(symbol string, p Price) error {
	if p.IsNegative() {
		return fmt.Errorf("set price %s: negative price %s", symbol, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.instruments[symbol]
	if !ok {
		return fmt.Errorf("set price: %w %q", ErrUnknownInstrument, symbol)
	}
	in.Price = p
	r.instruments[symbol] = in
	return nil
}

func (r *Registry) SetLeverage(symbol string, lev Leverage) error {
	if !lev.IsPositive() {
		return fmt.Errorf("set leverage %s: leverage must be positive, got %s", symbol, lev)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.instruments[symbol]
	if !ok {
		return fmt.Errorf("set leverage: %w %q", ErrUnknownInstrument, symbol)
	}
	in.Leverage = lev
	r.instruments[symbol] = in
	return nil
}
