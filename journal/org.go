package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatTradeOrg renders a TradeRecord as an Org-mode block suitable for
// pasting into a trading journal. Facts go in the PROPERTIES drawer; the
// Review heading is left for notes.
func FormatTradeOrg(t TradeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Close: %s (%s)\n", t.Symbol, shortID(t.ID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %s\n", t.ID)
	fmt.Fprintf(&b, ":FILL_ID: %s\n", t.FillID)
	fmt.Fprintf(&b, ":SYMBOL: %s\n", t.Symbol)
	fmt.Fprintf(&b, ":QUANTITY: %d\n", t.Quantity)
	fmt.Fprintf(&b, ":ENTRY_PRICE: %s\n", t.EntryPrice)
	fmt.Fprintf(&b, ":EXIT_PRICE: %s\n", t.ExitPrice)
	fmt.Fprintf(&b, ":TIME: %s\n", t.Time.UTC().Format(time.RFC3339Nano))
	fmt.Fprintf(&b, ":REALIZED_PROFIT: %s\n", t.RealizedProfit.StringFixed(2))
	fmt.Fprintf(&b, ":FEE: %s\n", t.Fee.StringFixed(2))
	fmt.Fprintf(&b, ":NET: %s\n", t.Net.StringFixed(2))
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Review\n- \n")

	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

// FormatStatsOrg renders journal statistics as an Org table.
func FormatStatsOrg(s Stats) string {
	var b strings.Builder
	b.WriteString("| trades | wins | losses | net | gross profit | gross loss | profit factor | win rate |\n")
	b.WriteString("|--------+------+--------+-----+--------------+------------+---------------+----------|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %s | %s | %s | %s | %s |\n",
		s.Trades, s.Wins, s.Losses,
		s.Net.StringFixed(2), s.GrossProfit.StringFixed(2), s.GrossLoss.StringFixed(2),
		s.ProfitFactor.StringFixed(2), s.WinRate.StringFixed(2))
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
