package journal

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Resolution is the step used to move a colliding key forward. It is the
// smallest interval time.Time can represent.
const Resolution = time.Nanosecond

// Entry is one realized-profit event: net profit after entry and exit fees.
type Entry struct {
	Time   time.Time
	Profit decimal.Decimal
}

type key struct {
	sec  int64
	nsec int
}

func keyOf(t time.Time) key { return key{sec: t.Unix(), nsec: t.Nanosecond()} }

// Transactions is the append-only realized-profit record. Keys are unique
// instants; insertion order is preserved for history queries.
type Transactions struct {
	mu      sync.RWMutex
	index   map[key]int
	entries []Entry
}

func NewTransactions() *Transactions {
	return &Transactions{index: make(map[key]int)}
}

func (tx *Transactions) freeLocked(t time.Time) time.Time {
	for {
		if _, taken := tx.index[keyOf(t)]; !taken {
			return t
		}
		t = t.Add(Resolution)
	}
}

// Add records profit at the first free instant at or after t and returns
// the instant used.
func (tx *Transactions) Add(t time.Time, profit decimal.Decimal) time.Time {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	t = tx.freeLocked(t)
	tx.index[keyOf(t)] = len(tx.entries)
	tx.entries = append(tx.entries, Entry{Time: t, Profit: profit})
	return t
}

// Get returns the profit recorded at exactly t.
func (tx *Transactions) Get(t time.Time) (decimal.Decimal, bool) {
	tx.mu.RLock()
	defer tx.mu.RUnlock()
	i, ok := tx.index[keyOf(t)]
	if !ok {
		return decimal.Zero, false
	}
	return tx.entries[i].Profit, true
}

func (tx *Transactions) Len() int {
	tx.mu.RLock()
	defer tx.mu.RUnlock()
	return len(tx.entries)
}

// Entries returns a copy of all entries in insertion order.
func (tx *Transactions) Entries() []Entry {
	tx.mu.RLock()
	defer tx.mu.RUnlock()
	out := make([]Entry, len(tx.entries))
	copy(out, tx.entries)
	return out
}

// Between returns entries with start <= Time < end, in insertion order.
// A zero end leaves the range open.
func (tx *Transactions) Between(start, end time.Time) []Entry {
	tx.mu.RLock()
	defer tx.mu.RUnlock()
	var out []Entry
	for _, e := range tx.entries {
		if !e.Time.Before(start) && (end.IsZero() || e.Time.Before(end)) {
			out = append(out, e)
		}
	}
	return out
}

// Stats summarizes closing results over the whole journal.
type Stats struct {
	Trades       int
	Wins         int
	Losses       int
	Net          decimal.Decimal
	GrossProfit  decimal.Decimal
	GrossLoss    decimal.Decimal // positive magnitude
	ProfitFactor decimal.Decimal // zero when there are no losses
	WinRate      decimal.Decimal
}

func (tx *Transactions) Stats() Stats {
	return Summarize(tx.Entries())
}

// Summarize computes Stats for any slice of entries.
func Summarize(entries []Entry) Stats {
	s := Stats{
		Net:          decimal.Zero,
		GrossProfit:  decimal.Zero,
		GrossLoss:    decimal.Zero,
		ProfitFactor: decimal.Zero,
		WinRate:      decimal.Zero,
	}
	for _, e := range entries {
		s.Trades++
		s.Net = s.Net.Add(e.Profit)
		switch {
		case e.Profit.IsPositive():
			s.Wins++
			s.GrossProfit = s.GrossProfit.Add(e.Profit)
		case e.Profit.IsNegative():
			s.Losses++
			s.GrossLoss = s.GrossLoss.Sub(e.Profit)
		}
	}
	if s.GrossLoss.IsPositive() {
		s.ProfitFactor = s.GrossProfit.Div(s.GrossLoss)
	}
	if s.Trades > 0 {
		s.WinRate = decimal.NewFromInt(int64(s.Wins)).Div(decimal.NewFromInt(int64(s.Trades)))
	}
	return s
}
