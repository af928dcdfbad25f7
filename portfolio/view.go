package portfolio

import (
	"iter"
	"sort"
)

// View is an immutable snapshot of every holding known to the directory.
// It has no mutating methods; use Engine.SetHolding for administrative
// replacement.
type View struct {
	holdings map[string]Holding
	symbols  []string
}

func (v View) Get(symbol string) (Holding, bool) {
	h, ok := v.holdings[symbol]
	return h, ok
}

func (v View) Contains(symbol string) bool {
	_, ok := v.holdings[symbol]
	return ok
}

func (v View) Len() int { return len(v.symbols) }

// Symbols returns the symbols in sorted order.
func (v View) Symbols() []string {
	return append([]string(nil), v.symbols...)
}

// All iterates holdings in symbol order.
func (v View) All() iter.Seq2[string, Holding] {
	return func(yield func(string, Holding) bool) {
		for _, s := range v.symbols {
			if !yield(s, v.holdings[s]) {
				return
			}
		}
	}
}

func newView(holdings map[string]Holding) View {
	symbols := make([]string, 0, len(holdings))
	for s := range holdings {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return View{holdings: holdings, symbols: symbols}
}
