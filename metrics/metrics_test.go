package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ledger/broker"
	"github.com/rustyeddy/ledger/market"
	"github.com/rustyeddy/ledger/portfolio"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newLedger(t *testing.T) (*portfolio.Engine, *Recorder, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	rec := New(reg)

	dir := market.NewRegistry()
	require.NoError(t, dir.Add(market.Instrument{
		Symbol:   "SPY",
		Price:    d("10"),
		Leverage: d("1"),
		Fees:     market.FlatFee{Amount: d("1")},
	}))
	eng := portfolio.New(dir, broker.Account{Cash: d("10000")}, portfolio.WithObserver(rec))
	return eng, rec, reg
}

func TestRecorderCountsFills(t *testing.T) {
	eng, rec, _ := newLedger(t)
	at := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

	for _, f := range []broker.Fill{
		{Symbol: "SPY", Quantity: 100, Price: d("10"), Time: at},
		{Symbol: "SPY", Quantity: -40, Price: d("12"), Time: at.Add(time.Minute)},
		{Symbol: "SPY", Quantity: -60, Price: d("9"), Time: at.Add(2 * time.Minute)},
	} {
		_, err := eng.ProcessFill(f)
		require.NoError(t, err)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.FillsTotal.WithLabelValues("buy")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.FillsTotal.WithLabelValues("sell")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.PositionsClosed))
	assert.Equal(t, 3.0, testutil.ToFloat64(rec.FeesTotal))
	assert.Equal(t, 80.0, testutil.ToFloat64(rec.RealizedProfit))
	assert.Equal(t, 60.0, testutil.ToFloat64(rec.RealizedLoss))
	assert.Equal(t, 2020.0, testutil.ToFloat64(rec.SaleVolume))
	assert.Equal(t, eng.Cash().InexactFloat64(), testutil.ToFloat64(rec.Cash))
}

func TestRecorderCountsRejections(t *testing.T) {
	eng, rec, _ := newLedger(t)

	_, err := eng.ProcessFill(broker.Fill{Symbol: "QQQ", Quantity: 1, Price: d("1")})
	require.Error(t, err)
	_, err = eng.ProcessFill(broker.Fill{Symbol: "SPY", Quantity: 0, Price: d("1")})
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.RejectionsTotal.WithLabelValues("validation")))
	assert.Equal(t, 0.0, testutil.ToFloat64(rec.RejectionsTotal.WithLabelValues("processing")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := New(reg)

	r := chi.NewRouter()
	r.Use(rec.Middleware)
	r.Get("/holdings/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", Handler(reg))

	for _, p := range []string{"/holdings/SPY", "/holdings/QQQ"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", p, nil))
		assert.Equal(t, http.StatusTeapot, w.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.HTTPRequests.WithLabelValues("GET", "/holdings/{symbol}", "418")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "ledger_http_requests_total"))
	assert.True(t, strings.Contains(body, `path="/holdings/{symbol}"`))
}

func TestNewRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
