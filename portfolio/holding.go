package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/ledger/market"
)

// Holding is the per-symbol ledger entry. Quantity is signed; AveragePrice
// is zero whenever Quantity is zero.
type Holding struct {
	Symbol          string
	Quantity        market.Units
	AveragePrice    market.Price
	Fees            market.Cash
	RealizedProfit  market.Cash
	SaleVolume      market.Cash
	LastTradeProfit market.Cash
}

func (h Holding) IsLong() bool  { return h.Quantity > 0 }
func (h Holding) IsShort() bool { return h.Quantity < 0 }
func (h Holding) IsFlat() bool  { return h.Quantity == 0 }

func (h Holding) AbsQuantity() market.Units { return market.Abs(h.Quantity) }

// HoldingCost is the absolute cost basis of the open quantity.
func (h Holding) HoldingCost() market.Cash {
	return h.AveragePrice.Mul(market.Dec(h.AbsQuantity()))
}

// HoldingsValue is the absolute market value of the open quantity at price.
func (h Holding) HoldingsValue(price market.Price) market.Cash {
	return price.Mul(market.Dec(h.AbsQuantity()))
}

// UnrealizedProfit marks the open quantity to price. Longs gain when price
// rises, shorts when it falls.
func (h Holding) UnrealizedProfit(price market.Price) market.Cash {
	if h.Quantity == 0 {
		return decimal.Zero
	}
	return price.Sub(h.AveragePrice).Mul(market.Dec(h.Quantity))
}
