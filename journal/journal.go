// journal/journal.go
package journal

import (
	"sync"
	"time"

	"github.com/rustyeddy/ledger/market"
)

// TradeRecord is one closing fill as written to a reporting sink.
type TradeRecord struct {
	ID             string
	FillID         string
	Symbol         string
	Quantity       market.Units // closed quantity, signed by the side that was closed
	EntryPrice     market.Price // average price of the closed exposure
	ExitPrice      market.Price
	Time           time.Time // transaction journal key
	RealizedProfit market.Cash
	Fee            market.Cash
	Net            market.Cash // realized profit minus entry and exit fees
}

// EquitySnapshot is the account state after a committed fill.
type EquitySnapshot struct {
	Time             time.Time
	Cash             market.Cash
	HoldingsValue    market.Cash
	UnrealizedProfit market.Cash
	RealizedProfit   market.Cash
	Fees             market.Cash
	PortfolioValue   market.Cash
}

// Sink receives ledger output for reporting. Sinks never feed state back
// into the engine.
type Sink interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }

// Memory keeps records in slices.
type Memory struct {
	mu     sync.Mutex
	trades []TradeRecord
	equity []EquitySnapshot
	closed bool
}

func (m *Memory) RecordTrade(rec TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, rec)
	return nil
}

func (m *Memory) RecordEquity(rec EquitySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equity = append(m.equity, rec)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Memory) Trades() []TradeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TradeRecord(nil), m.trades...)
}

func (m *Memory) Equity() []EquitySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EquitySnapshot(nil), m.equity...)
}

func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
