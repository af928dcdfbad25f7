package portfolio

import (
	"time"

	"github.com/rustyeddy/ledger/internal/id"
	"github.com/rustyeddy/ledger/journal"
	"github.com/rustyeddy/ledger/market"
)

// TradeRecord converts a closing outcome into a sink record. The quantity
// carries the sign of the side that was closed. ok is false for fills that
// closed nothing.
func (o FillOutcome) TradeRecord() (rec journal.TradeRecord, ok bool) {
	if !o.Closed {
		return journal.TradeRecord{}, false
	}
	// A fill ID is one trade per fill, so it stands in when the journal key
	// was pushed past the last ULID millisecond.
	tid, err := id.At(o.JournalTime)
	if err != nil {
		tid = o.Fill.ID
	}
	return journal.TradeRecord{
		ID:             tid,
		FillID:         o.Fill.ID,
		Symbol:         o.Fill.Symbol,
		Quantity:       -market.Units(market.Sign(o.Fill.Quantity)) * o.ClosedQuantity,
		EntryPrice:     o.EntryPrice,
		ExitPrice:      o.Fill.Price,
		Time:           o.JournalTime,
		RealizedProfit: o.RealizedProfit,
		Fee:            o.Fee,
		Net:            o.NetProfit(),
	}, true
}

// Snapshot stamps the totals for an equity sink.
func (t Totals) Snapshot(at time.Time) journal.EquitySnapshot {
	return journal.EquitySnapshot{
		Time:             at,
		Cash:             t.Cash,
		HoldingsValue:    t.HoldingsValue,
		UnrealizedProfit: t.UnrealizedProfit,
		RealizedProfit:   t.RealizedProfit,
		Fees:             t.Fees,
		PortfolioValue:   t.PortfolioValue,
	}
}
