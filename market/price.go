package market

import "github.com/shopspring/decimal"

// Units is a signed trade or holding size. Positive is long, negative is short.
type Units = int64

// Price, Cash and Leverage are fixed-point decimals. Never float64 for money.
type (
	Price    = decimal.Decimal
	Cash     = decimal.Decimal
	Leverage = decimal.Decimal
)

// Abs returns the absolute size of u.
func Abs(u Units) Units {
	if u < 0 {
		return -u
	}
	return u
}

// Sign returns -1, 0 or +1 for u.
func Sign(u Units) int {
	switch {
	case u > 0:
		return 1
	case u < 0:
		return -1
	}
	return 0
}

// Dec converts a unit count to a decimal for arithmetic with prices.
func Dec(u Units) decimal.Decimal {
	return decimal.NewFromInt(u)
}
