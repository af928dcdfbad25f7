package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

var (
	tradesHeader = []string{"trade_id", "fill_id", "symbol", "quantity", "entry_price", "exit_price", "time", "realized_profit", "fee", "net"}
	equityHeader = []string{"time", "cash", "holdings_value", "unrealized_profit", "realized_profit", "fees", "portfolio_value"}
)

// CSV writes trades and equity snapshots to two files. Decimals are
// written in full precision.
type CSV struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string) (*CSV, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		_ = tf.Close()
		return nil, err
	}

	tw := csv.NewWriter(tf)
	ew := csv.NewWriter(ef)

	if err := tw.Write(tradesHeader); err != nil {
		return nil, err
	}
	if err := ew.Write(equityHeader); err != nil {
		return nil, err
	}

	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSV{tw, ew, tf, ef}, nil
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	err := j.trades.Write([]string{
		t.ID,
		t.FillID,
		t.Symbol,
		strconv.FormatInt(t.Quantity, 10),
		t.EntryPrice.String(),
		t.ExitPrice.String(),
		t.Time.UTC().Format(time.RFC3339Nano),
		t.RealizedProfit.String(),
		t.Fee.String(),
		t.Net.String(),
	})
	if err != nil {
		return fmt.Errorf("write trade %s: %w", t.ID, err)
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	err := j.equity.Write([]string{
		e.Time.UTC().Format(time.RFC3339Nano),
		e.Cash.String(),
		e.HoldingsValue.String(),
		e.UnrealizedProfit.String(),
		e.RealizedProfit.String(),
		e.Fees.String(),
		e.PortfolioValue.String(),
	})
	if err != nil {
		return fmt.Errorf("write equity: %w", err)
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSV) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}
