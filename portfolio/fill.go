package portfolio

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/ledger/broker"
	"github.com/rustyeddy/ledger/internal/id"
	"github.com/rustyeddy/ledger/market"
)

var two = decimal.NewFromInt(2)

// FillOutcome is the committed effect of one fill.
type FillOutcome struct {
	Fill           broker.Fill  // with ID and Time resolved
	Fee            market.Cash  // fee charged to cash for this fill
	EntryPrice     market.Price // average price before the fill
	ClosedQuantity market.Units // absolute quantity closed, zero for pure opens
	RealizedProfit market.Cash
	Closed         bool
	JournalTime    time.Time // transaction journal key, zero unless Closed
	Holding        Holding   // after the fill
	Cash           market.Cash
}

// NetProfit is the realized profit less the entry and exit fees, the value
// written to the transaction journal.
func (o FillOutcome) NetProfit() market.Cash {
	return o.RealizedProfit.Sub(two.Mul(o.Fee))
}

// stagedFill carries every value a fill will write. Nothing in the engine
// changes until commit.
type stagedFill struct {
	fill    broker.Fill
	fee     market.Cash
	entry   market.Price
	cash    market.Cash
	holding Holding
	closed  market.Units
	profit  market.Cash
}

// ProcessFill applies fill to the ledger. On error the ledger is unchanged
// and the error is a *LedgerError.
func (e *Engine) ProcessFill(fill broker.Fill) (FillOutcome, error) {
	out, err := e.processFill(fill)
	if err != nil {
		e.log.Warn("fill rejected", "fill", fill.String(), "err", err)
		if e.observer != nil {
			e.observer.FillRejected(fill, err)
		}
		return FillOutcome{}, err
	}

	e.log.Debug("fill committed",
		"id", out.Fill.ID,
		"fill", out.Fill.String(),
		"fee", out.Fee.String(),
		"quantity", out.Holding.Quantity,
		"average_price", out.Holding.AveragePrice.String(),
		"cash", out.Cash.String(),
		"closed", out.ClosedQuantity,
		"realized", out.RealizedProfit.String(),
	)
	if e.observer != nil {
		e.observer.FillCommitted(out)
	}
	return out, nil
}

func (e *Engine) processFill(fill broker.Fill) (FillOutcome, error) {
	const op = "process fill"

	in, err := e.instrument(op, fill.Symbol)
	if err != nil {
		return FillOutcome{}, err
	}
	if fill.Quantity == 0 || fill.Quantity == math.MinInt64 {
		return FillOutcome{}, validationError(op, fill.Symbol, fmt.Errorf("%w, got %d", ErrInvalidQuantity, fill.Quantity))
	}
	if fill.Price.IsNegative() {
		return FillOutcome{}, validationError(op, fill.Symbol, fmt.Errorf("%w, got %s", ErrNegativePrice, fill.Price))
	}
	if fill.Time.IsZero() {
		fill.Time = e.now()
	}
	if !id.Valid(fill.Time) {
		return FillOutcome{}, validationError(op, fill.Symbol, fmt.Errorf("%w, got %s", ErrInvalidTime, fill.Time.Format(time.RFC3339Nano)))
	}
	if fill.ID == "" {
		fid, err := id.At(fill.Time)
		if err != nil {
			return FillOutcome{}, validationError(op, fill.Symbol, fmt.Errorf("%w: %v", ErrInvalidTime, err))
		}
		fill.ID = fid
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	st, err := e.stage(fill, in)
	if err != nil {
		return FillOutcome{}, err
	}
	if e.policy == RejectNegativeCash && st.cash.IsNegative() {
		return FillOutcome{}, validationError(op, fill.Symbol,
			fmt.Errorf("%w: cash would be %s", ErrInsufficientCash, st.cash))
	}
	return e.commitLocked(st), nil
}

// stage computes the fill against a copy of the current holding and cash.
// A panic from a collaborator becomes a processing error.
func (e *Engine) stage(fill broker.Fill, in market.Instrument) (st stagedFill, err error) {
	const op = "process fill"
	defer func() {
		if r := recover(); r != nil {
			err = processingError(op, fill.Symbol, fmt.Errorf("staging panicked: %v", r))
		}
	}()

	h := e.holdingLocked(fill.Symbol)
	st = stagedFill{
		fill:   fill,
		entry:  h.AveragePrice,
		cash:   e.acct.Cash,
		profit: decimal.Zero,
	}

	abs := fill.AbsQuantity()
	absQty := market.Dec(abs)
	lev := in.Leverage

	if in.Fees == nil {
		in.Fees = market.NoFee{}
	}
	fee, ferr := in.Fees.Fee(abs, fill.Price)
	if ferr != nil {
		return stagedFill{}, processingError(op, fill.Symbol, fmt.Errorf("%w: %v", ErrFeeModel, ferr))
	}
	st.fee = fee.Abs()
	st.cash = st.cash.Sub(st.fee)
	h.Fees = h.Fees.Add(st.fee)
	h.SaleVolume = h.SaleVolume.Add(fill.Price.Mul(absQty))

	qty := h.Quantity
	avg := h.AveragePrice
	reserve := fill.Price.Mul(absQty).Div(lev)

	switch {
	case qty == 0:
		avg = fill.Price
		qty = fill.Quantity
		st.cash = st.cash.Sub(reserve)

	case market.Sign(qty) == market.Sign(fill.Quantity):
		// Adding to the position: volume weighted average on signed sizes.
		total := qty + fill.Quantity
		if market.Sign(total) != market.Sign(qty) || total == math.MinInt64 {
			return stagedFill{}, validationError(op, fill.Symbol, fmt.Errorf("%w: %d + %d overflows", ErrQuantityOverflow, qty, fill.Quantity))
		}
		avg = avg.Mul(market.Dec(qty)).Add(fill.Price.Mul(market.Dec(fill.Quantity))).Div(market.Dec(total))
		qty = total
		st.cash = st.cash.Sub(reserve)

	default:
		// Reducing, closing or flipping.
		st.closed = min(market.Abs(qty), abs)
		closed := market.Dec(st.closed)
		if qty > 0 {
			st.profit = fill.Price.Sub(avg).Mul(closed)
		} else {
			st.profit = avg.Sub(fill.Price).Mul(closed)
		}
		st.cash = st.cash.Add(st.profit).Add(avg.Mul(closed).Div(lev))

		qty += fill.Quantity
		switch {
		case qty == 0:
			avg = decimal.Zero
		case market.Sign(qty) == market.Sign(fill.Quantity):
			// Flipped through zero: the remainder opens at the fill price.
			avg = fill.Price
			st.cash = st.cash.Sub(fill.Price.Mul(market.Dec(market.Abs(qty))).Div(lev))
		}
	}

	if st.closed > 0 {
		h.RealizedProfit = h.RealizedProfit.Add(st.profit)
		h.LastTradeProfit = st.profit
	}
	h.Quantity = qty
	h.AveragePrice = avg
	st.holding = h
	return st, nil
}

func (e *Engine) commitLocked(st stagedFill) FillOutcome {
	h := st.holding
	e.holdings[h.Symbol] = &h
	e.acct.Cash = st.cash

	out := FillOutcome{
		Fill:           st.fill,
		Fee:            st.fee,
		EntryPrice:     st.entry,
		ClosedQuantity: st.closed,
		RealizedProfit: st.profit,
		Holding:        h,
		Cash:           st.cash,
	}
	if st.closed > 0 {
		e.acct.RealizedProfit = e.acct.RealizedProfit.Add(st.profit)
		out.Closed = true
		out.JournalTime = e.tx.Add(st.fill.Time, out.NetProfit())
	}
	return out
}
