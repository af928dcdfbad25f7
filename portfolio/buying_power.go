package portfolio

import (
	"github.com/rustyeddy/ledger/broker"
	"github.com/rustyeddy/ledger/market"
)

// BuyingPower is the notional exposure obtainable on symbol in direction.
// Trading against an open position frees twice its market value: the
// exposure closed plus the margin it held.
func (e *Engine) BuyingPower(symbol string, dir broker.Direction) (market.Cash, error) {
	in, err := e.instrument("buying power", symbol)
	if err != nil {
		return market.Cash{}, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	remaining := e.acct.Cash.Mul(in.Leverage)
	if dir == broker.Hold {
		return remaining, nil
	}

	h := e.holdingLocked(symbol)
	freed := h.HoldingsValue(in.Price).Mul(two)
	switch {
	case h.IsLong() && dir == broker.Sell:
		return remaining.Add(freed), nil
	case h.IsShort() && dir == broker.Buy:
		return remaining.Add(freed), nil
	}
	return remaining, nil
}
