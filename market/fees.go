package market

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FeeModel returns the transaction fee for a fill of quantity units at price.
// Quantity is always the absolute fill size.
type FeeModel interface {
	Fee(quantity Units, price Price) (Cash, error)
}

// NoFee charges nothing.
type NoFee struct{}

func (NoFee) Fee(Units, Price) (Cash, error) { return decimal.Zero, nil }

// FlatFee charges the same amount for every fill.
type FlatFee struct {
	Amount Cash
}

func (f FlatFee) Fee(Units, Price) (Cash, error) { return f.Amount, nil }

// PerUnitFee charges Rate per unit with an optional Minimum per fill.
// This is the usual equity commission shape: 0.005/share, 1.00 minimum.
type PerUnitFee struct {
	Rate    Cash
	Minimum Cash
}

func (f PerUnitFee) Fee(quantity Units, _ Price) (Cash, error) {
	if quantity < 0 {
		return decimal.Zero, fmt.Errorf("per unit fee: negative quantity %d", quantity)
	}
	fee := f.Rate.Mul(Dec(quantity))
	if fee.LessThan(f.Minimum) {
		return f.Minimum, nil
	}
	return fee, nil
}

// PercentFee charges Rate of the fill notional (0.001 = 10 bps).
type PercentFee struct {
	Rate decimal.Decimal
}

func (f PercentFee) Fee(quantity Units, price Price) (Cash, error) {
	return price.Mul(Dec(quantity)).Mul(f.Rate), nil
}

// FeeFunc adapts a plain function to FeeModel.
type FeeFunc func(quantity Units, price Price) (Cash, error)

func (f FeeFunc) Fee(quantity Units, price Price) (Cash, error) { return f(quantity, price) }
