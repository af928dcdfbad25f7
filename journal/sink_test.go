package journal

import (
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrade(id string, at time.Time) TradeRecord {
	return TradeRecord{
		ID:             id,
		FillID:         "F-" + id,
		Symbol:         "SPY",
		Quantity:       40,
		EntryPrice:     d("10"),
		ExitPrice:      d("12.125"),
		Time:           at,
		RealizedProfit: d("85"),
		Fee:            d("1.005"),
		Net:            d("82.99"),
	}
}

func sampleEquity(at time.Time) EquitySnapshot {
	return EquitySnapshot{
		Time:             at,
		Cash:             d("99380.123456789"),
		HoldingsValue:    d("720"),
		UnrealizedProfit: d("120"),
		RealizedProfit:   d("80"),
		Fees:             d("2"),
		PortfolioValue:   d("100100.123456789"),
	}
}

func TestCSVHeadersAndRows(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(tradesPath, equityPath)
	require.NoError(t, err)

	at := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)
	require.NoError(t, j.RecordTrade(sampleTrade("T1", at)))
	require.NoError(t, j.RecordEquity(sampleEquity(at)))
	require.NoError(t, j.Close())

	f, err := os.Open(tradesPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, tradesHeader, rows[0])
	assert.Equal(t, []string{"T1", "F-T1", "SPY", "40", "10", "12.125", "2024-01-02T03:04:05.000000006Z", "85", "1.005", "82.99"}, rows[1])

	ef, err := os.Open(equityPath)
	require.NoError(t, err)
	defer ef.Close()
	rows, err = csv.NewReader(ef).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, equityHeader, rows[0])
	assert.Equal(t, "99380.123456789", rows[1][1])
}

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('trades','equity')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	assert.True(t, found["trades"])
	assert.True(t, found["equity"])
}

func TestSQLiteTradeRoundTrip(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	t0 := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	require.NoError(t, j.RecordTrade(sampleTrade("T1", t0)))
	require.NoError(t, j.RecordTrade(sampleTrade("T2", t0.Add(Resolution))))
	require.NoError(t, j.RecordTrade(sampleTrade("T3", t0.Add(2*time.Hour))))

	rec, err := j.GetTrade("T2")
	require.NoError(t, err)
	assert.Equal(t, "F-T2", rec.FillID)
	assert.Equal(t, int64(40), rec.Quantity)
	assert.True(t, rec.ExitPrice.Equal(d("12.125")))
	assert.True(t, rec.Fee.Equal(d("1.005")))
	assert.True(t, rec.Time.Equal(t0.Add(Resolution)))

	_, err = j.GetTrade("missing")
	assert.ErrorContains(t, err, "not found")

	recs, err := j.ListTradesBetween(t0, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "T1", recs[0].ID)
	assert.Equal(t, "T2", recs[1].ID)
}

func TestSQLiteEquityRoundTrip(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	t0 := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	require.NoError(t, j.RecordEquity(sampleEquity(t0)))

	out, err := j.ListEquityBetween(t0.Add(-time.Minute), t0.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].Time.Equal(t0))
	assert.True(t, out[0].Cash.Equal(d("99380.123456789")))
	assert.True(t, out[0].PortfolioValue.Equal(d("100100.123456789")))
}

func TestMemorySink(t *testing.T) {
	m := &Memory{}
	at := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, m.RecordTrade(sampleTrade("T1", at)))
	require.NoError(t, m.RecordEquity(sampleEquity(at)))
	require.NoError(t, m.Close())

	assert.Len(t, m.Trades(), 1)
	assert.Len(t, m.Equity(), 1)
	assert.True(t, m.Closed())

	var s Sink = Nop{}
	assert.NoError(t, s.RecordTrade(TradeRecord{}))
}

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	rec := sampleTrade("01HN3ZK8Q2ABCDEF", time.Date(2024, 3, 15, 10, 30, 45, 0, time.UTC))
	out := FormatTradeOrg(rec)

	assert.Contains(t, out, "** Close: SPY (01HN3ZK8)")
	assert.Contains(t, out, ":PROPERTIES:")
	assert.Contains(t, out, ":TRADE_ID: 01HN3ZK8Q2ABCDEF")
	assert.Contains(t, out, ":QUANTITY: 40")
	assert.Contains(t, out, ":EXIT_PRICE: 12.125")
	assert.Contains(t, out, ":TIME: 2024-03-15T10:30:45Z")
	assert.Contains(t, out, ":REALIZED_PROFIT: 85.00")
	assert.Contains(t, out, ":NET: 82.99")
	assert.Contains(t, out, ":END:")

	both := FormatTradesOrg([]TradeRecord{rec, rec})
	assert.Equal(t, 2, strings.Count(both, "** Close:"))
}

func TestFormatStatsOrg(t *testing.T) {
	out := FormatStatsOrg(Stats{Trades: 2, Wins: 1, Losses: 1, Net: d("5"), GrossProfit: d("10"), GrossLoss: d("5"), ProfitFactor: d("2"), WinRate: d("0.5")})
	assert.Contains(t, out, "| 2 | 1 | 1 | 5.00 | 10.00 | 5.00 | 2.00 | 0.50 |")
}
