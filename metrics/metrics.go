// Package metrics provides Prometheus instrumentation for the ledger.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rustyeddy/ledger/broker"
	"github.com/rustyeddy/ledger/market"
	"github.com/rustyeddy/ledger/portfolio"
)

// Recorder is a portfolio.Observer that exports fill activity, and an HTTP
// middleware that exports request counts and latency.
type Recorder struct {
	FillsTotal       *prometheus.CounterVec
	RejectionsTotal  *prometheus.CounterVec
	PositionsClosed  prometheus.Counter
	RealizedProfit   prometheus.Counter
	RealizedLoss     prometheus.Counter
	FeesTotal        prometheus.Counter
	SaleVolume       prometheus.Counter
	Cash             prometheus.Gauge
	HTTPRequests     *prometheus.CounterVec
	HTTPRequestTimes *prometheus.HistogramVec
}

var _ portfolio.Observer = (*Recorder)(nil)

// New registers the ledger metrics on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		FillsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_fills_total",
			Help: "Committed fills, partitioned by direction",
		}, []string{"direction"}),

		RejectionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_fill_rejections_total",
			Help: "Rejected fills, partitioned by error kind",
		}, []string{"kind"}),

		PositionsClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "ledger_positions_closed_total",
			Help: "Fills that closed some or all of a position",
		}),

		RealizedProfit: f.NewCounter(prometheus.CounterOpts{
			Name: "ledger_realized_profit_total",
			Help: "Sum of positive realized profit",
		}),

		RealizedLoss: f.NewCounter(prometheus.CounterOpts{
			Name: "ledger_realized_loss_total",
			Help: "Sum of realized losses as a positive magnitude",
		}),

		FeesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "ledger_fees_total",
			Help: "Fees charged to cash",
		}),

		SaleVolume: f.NewCounter(prometheus.CounterOpts{
			Name: "ledger_sale_volume_total",
			Help: "Gross traded notional",
		}),

		Cash: f.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_cash",
			Help: "Account cash after the last committed fill",
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "path", "status"}),

		HTTPRequestTimes: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"method", "path"}),
	}
}

func (r *Recorder) FillCommitted(o portfolio.FillOutcome) {
	r.FillsTotal.WithLabelValues(o.Fill.Direction().String()).Inc()
	r.FeesTotal.Add(o.Fee.InexactFloat64())
	r.SaleVolume.Add(o.Fill.Price.Mul(market.Dec(o.Fill.AbsQuantity())).InexactFloat64())
	r.Cash.Set(o.Cash.InexactFloat64())
	if !o.Closed {
		return
	}
	r.PositionsClosed.Inc()
	switch {
	case o.RealizedProfit.IsPositive():
		r.RealizedProfit.Add(o.RealizedProfit.InexactFloat64())
	case o.RealizedProfit.IsNegative():
		r.RealizedLoss.Add(o.RealizedProfit.Neg().InexactFloat64())
	}
}

func (r *Recorder) FillRejected(_ broker.Fill, err error) {
	r.RejectionsTotal.WithLabelValues(portfolio.KindOf(err).String()).Inc()
}

// Handler returns the Prometheus metrics HTTP handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Middleware returns an HTTP middleware that records request metrics.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, req)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := req.URL.Path
		if rc := chi.RouteContext(req.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		r.HTTPRequests.WithLabelValues(req.Method, path, strconv.Itoa(wrapped.status)).Inc()
		r.HTTPRequestTimes.WithLabelValues(req.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
