package broker

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/ledger/market"
)

// Direction is the side of a fill or a buying power request.
type Direction int

const (
	Hold Direction = iota
	Buy
	Sell
)

func (d Direction) String() string {
	switch d {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "hold"
	}
}

// ParseDirection accepts buy, sell or hold in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	case "hold", "":
		return Hold, nil
	}
	return Hold, fmt.Errorf("unknown direction %q", s)
}

// DirectionOf returns the direction implied by a signed quantity.
func DirectionOf(u market.Units) Direction {
	switch {
	case u > 0:
		return Buy
	case u < 0:
		return Sell
	}
	return Hold
}

// Account is the cash side of the ledger.
type Account struct {
	ID             string
	Currency       string
	Cash           market.Cash
	RealizedProfit market.Cash // cumulative across all positions
}

// Fill is an executed trade applied against the ledger. Quantity is the
// signed delta: positive buys, negative sells.
type Fill struct {
	ID       string
	Time     time.Time
	Symbol   string
	Price    market.Price
	Quantity market.Units
}

func (f Fill) Direction() Direction      { return DirectionOf(f.Quantity) }
func (f Fill) AbsQuantity() market.Units { return market.Abs(f.Quantity) }

func (f Fill) String() string {
	return fmt.Sprintf("%s %s %d @ %s", f.Direction(), f.Symbol, f.AbsQuantity(), f.Price)
}
