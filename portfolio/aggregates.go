package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/ledger/market"
)

// Totals are the account-level folds over every holding, marked at the
// directory's current prices.
type Totals struct {
	Cash             market.Cash
	HoldingsValue    market.Cash
	UnleveredCost    market.Cash
	UnrealizedProfit market.Cash
	Fees             market.Cash
	RealizedProfit   market.Cash
	SaleVolume       market.Cash
	PortfolioValue   market.Cash
}

func (t Totals) Invested() bool { return t.HoldingsValue.IsPositive() }

// Totals computes every aggregate from current state. Nothing is cached.
func (e *Engine) Totals() Totals {
	symbols := e.dir.Symbols()

	e.mu.RLock()
	defer e.mu.RUnlock()

	t := Totals{
		Cash:             e.acct.Cash,
		HoldingsValue:    decimal.Zero,
		UnleveredCost:    decimal.Zero,
		UnrealizedProfit: decimal.Zero,
		Fees:             decimal.Zero,
		RealizedProfit:   decimal.Zero,
		SaleVolume:       decimal.Zero,
	}
	for _, s := range symbols {
		h, ok := e.holdings[s]
		if !ok {
			continue
		}
		t.Fees = t.Fees.Add(h.Fees)
		t.RealizedProfit = t.RealizedProfit.Add(h.RealizedProfit)
		t.SaleVolume = t.SaleVolume.Add(h.SaleVolume)
		if h.Quantity == 0 {
			continue
		}

		in, err := e.dir.Instrument(s)
		if err != nil {
			e.log.Warn("totals: holding without instrument", "symbol", s, "err", err)
			continue
		}
		t.HoldingsValue = t.HoldingsValue.Add(h.HoldingsValue(in.Price))
		t.UnrealizedProfit = t.UnrealizedProfit.Add(h.UnrealizedProfit(in.Price))
		if in.Leverage.IsPositive() {
			t.UnleveredCost = t.UnleveredCost.Add(h.HoldingCost().Div(in.Leverage))
		}
	}
	t.PortfolioValue = t.Cash.Add(t.UnrealizedProfit).Add(t.UnleveredCost)
	return t
}

func (e *Engine) TotalHoldingsValue() market.Cash    { return e.Totals().HoldingsValue }
func (e *Engine) TotalUnleveredCost() market.Cash    { return e.Totals().UnleveredCost }
func (e *Engine) TotalUnrealizedProfit() market.Cash { return e.Totals().UnrealizedProfit }
func (e *Engine) TotalFees() market.Cash             { return e.Totals().Fees }
func (e *Engine) TotalRealizedProfit() market.Cash   { return e.Totals().RealizedProfit }
func (e *Engine) TotalSaleVolume() market.Cash       { return e.Totals().SaleVolume }

// TotalPortfolioValue is cash plus unrealized profit plus the collateral
// reserved against open positions: the account value if everything were
// closed at current prices.
func (e *Engine) TotalPortfolioValue() market.Cash { return e.Totals().PortfolioValue }

// Invested reports whether any holding has market value.
func (e *Engine) Invested() bool { return e.Totals().Invested() }
