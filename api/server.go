// Package api serves the ledger over HTTP: read-only portfolio queries plus
// a fill intake endpoint serialized by the engine lock.
//
// All monetary values are decimal strings in JSON.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rustyeddy/ledger/journal"
	"github.com/rustyeddy/ledger/metrics"
	"github.com/rustyeddy/ledger/portfolio"
)

// Server holds the HTTP handlers for one engine.
type Server struct {
	eng      *portfolio.Engine
	sink     journal.Sink
	log      *slog.Logger
	recorder *metrics.Recorder
	gatherer prometheus.Gatherer
	timeout  time.Duration
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSink records trades and equity for fills posted to the API.
func WithSink(j journal.Sink) Option {
	return func(s *Server) {
		if j != nil {
			s.sink = j
		}
	}
}

// WithMetrics instruments requests with rec and serves g on /metrics.
func WithMetrics(rec *metrics.Recorder, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.recorder = rec
		s.gatherer = g
	}
}

// WithTimeout bounds every request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

func NewServer(eng *portfolio.Engine, opts ...Option) *Server {
	s := &Server{
		eng:     eng,
		sink:    journal.Nop{},
		log:     slog.New(slog.DiscardHandler),
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	if s.timeout > 0 {
		r.Use(middleware.Timeout(s.timeout))
	}
	if s.recorder != nil {
		r.Use(s.recorder.Middleware)
	}

	r.Get("/health", s.Health)
	if s.gatherer != nil {
		r.Handle("/metrics", metrics.Handler(s.gatherer))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/portfolio", s.GetPortfolio)
		r.Get("/holdings", s.ListHoldings)
		r.Get("/holdings/{symbol}", s.GetHolding)
		r.Get("/buying-power/{symbol}", s.GetBuyingPower)
		r.Get("/transactions", s.ListTransactions)
		r.Post("/fills", s.PostFill)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
