package replay

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/ledger/broker"
	"github.com/rustyeddy/ledger/journal"
	"github.com/rustyeddy/ledger/market"
	"github.com/rustyeddy/ledger/portfolio"
)

// PriceSetter is the mark-to-market side of an instrument directory.
// *market.Registry satisfies it.
type PriceSetter interface {
	SetPrice(symbol string, p market.Price) error
}

// Options controls how replay behaves.
type Options struct {
	// Calendar decides which fills are inside market hours. Fills outside
	// are skipped and counted. Nil means always open.
	Calendar market.Calendar

	// SkipRejected keeps going past fills the engine rejects as invalid.
	// Processing errors always halt the replay.
	SkipRejected bool

	// Sink receives a trade record for every closing fill and an equity
	// snapshot after every committed fill. Nil discards.
	Sink journal.Sink

	Logger *slog.Logger
}

// Result counts what a replay did.
type Result struct {
	Rows     int
	Fills    int
	Rejected int
	Skipped  int
	Prices   int
	Cash     int
}

// CSV replays a ledger event file.
//
// Rows are:
//
//	time,event,symbol,arg1,arg2
//
// Events (case-insensitive):
//
//	FILL:   symbol  arg1=quantity (signed)  arg2=price
//	PRICE:  symbol  arg1=price
//	CASH:   arg1=amount (symbol column may be empty)
//
// Time is RFC3339 with optional fractional seconds. A header row whose first
// column is "time" is skipped. Rows must not go back in time.
func CSV(ctx context.Context, path string, eng *portfolio.Engine, prices PriceSetter, opts Options) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	return Read(ctx, f, eng, prices, opts)
}

// Read replays events from r. See CSV for the format.
func Read(ctx context.Context, r io.Reader, eng *portfolio.Engine, prices PriceSetter, opts Options) (Result, error) {
	p := &player{
		eng:    eng,
		prices: prices,
		opts:   opts,
		log:    opts.Logger,
	}
	if p.opts.Calendar == nil {
		p.opts.Calendar = market.AlwaysOpen{}
	}
	if p.opts.Sink == nil {
		p.opts.Sink = journal.Nop{}
	}
	if p.log == nil {
		p.log = slog.New(slog.DiscardHandler)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	line := 0
	for {
		if err := ctx.Err(); err != nil {
			return p.res, err
		}
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return p.res, err
		}
		line++
		if len(row) == 0 {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "time") {
			continue
		}
		if err := p.row(row); err != nil {
			return p.res, fmt.Errorf("row %d: %w", line, err)
		}
	}

	p.log.Info("replay complete",
		"rows", p.res.Rows,
		"fills", p.res.Fills,
		"rejected", p.res.Rejected,
		"skipped", p.res.Skipped,
		"prices", p.res.Prices,
	)
	return p.res, nil
}

type player struct {
	eng    *portfolio.Engine
	prices PriceSetter
	opts   Options
	log    *slog.Logger
	res    Result
	last   time.Time
}

func (p *player) row(row []string) error {
	for i := range row {
		row[i] = strings.TrimSpace(row[i])
	}
	if len(row) < 2 {
		return fmt.Errorf("bad row (need at least time,event): %v", row)
	}

	t, err := time.Parse(time.RFC3339Nano, row[0])
	if err != nil {
		return fmt.Errorf("bad time %q: %w", row[0], err)
	}
	if t.Before(p.last) {
		return fmt.Errorf("time %s is before previous row %s", t.Format(time.RFC3339Nano), p.last.Format(time.RFC3339Nano))
	}
	p.last = t
	p.res.Rows++

	args := row[2:]
	switch strings.ToUpper(row[1]) {
	case "FILL":
		return p.fill(t, args)
	case "PRICE":
		return p.price(args)
	case "CASH":
		return p.cash(args)
	default:
		return fmt.Errorf("unknown event %q", row[1])
	}
}

func (p *player) fill(t time.Time, args []string) error {
	// FILL,SPY,100,10.25
	if len(args) < 3 {
		return fmt.Errorf("FILL: need symbol,quantity,price")
	}
	qty, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("FILL: bad quantity %q: %w", args[1], err)
	}
	price, err := decimal.NewFromString(args[2])
	if err != nil {
		return fmt.Errorf("FILL: bad price %q: %w", args[2], err)
	}
	f := broker.Fill{Time: t, Symbol: args[0], Quantity: qty, Price: price}

	if !p.opts.Calendar.IsOpen(t) {
		p.res.Skipped++
		p.log.Debug("fill outside market hours", "fill", f.String(), "time", t)
		return nil
	}

	out, err := p.eng.ProcessFill(f)
	if err != nil {
		p.res.Rejected++
		if p.opts.SkipRejected && portfolio.IsValidation(err) {
			return nil
		}
		return err
	}
	p.res.Fills++

	if rec, ok := out.TradeRecord(); ok {
		if err := p.opts.Sink.RecordTrade(rec); err != nil {
			return fmt.Errorf("record trade: %w", err)
		}
	}
	if err := p.opts.Sink.RecordEquity(p.eng.Totals().Snapshot(t)); err != nil {
		return fmt.Errorf("record equity: %w", err)
	}
	return nil
}

func (p *player) price(args []string) error {
	// PRICE,SPY,10.50
	if len(args) < 2 {
		return fmt.Errorf("PRICE: need symbol,price")
	}
	if p.prices == nil {
		return errors.New("PRICE: no price setter configured")
	}
	price, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("PRICE: bad price %q: %w", args[1], err)
	}
	if err := p.prices.SetPrice(args[0], price); err != nil {
		return fmt.Errorf("PRICE: %w", err)
	}
	p.res.Prices++
	return nil
}

func (p *player) cash(args []string) error {
	// CASH,,250000
	if len(args) < 2 {
		return fmt.Errorf("CASH: need ,amount")
	}
	amount, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("CASH: bad amount %q: %w", args[1], err)
	}
	p.eng.SetCash(amount)
	p.res.Cash++
	return nil
}
