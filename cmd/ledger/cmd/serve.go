package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/ledger/api"
	"github.com/rustyeddy/ledger/metrics"
	"github.com/rustyeddy/ledger/portfolio"
	"github.com/rustyeddy/ledger/replay"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ledger over HTTP",
	Long: `Start the HTTP service: portfolio, holdings, buying power and
transaction queries, fill intake, /health and Prometheus /metrics.

An event file can be replayed first to seed the books.

Examples:
  ledger serve -c ledger.yaml
  ledger serve --addr :9090 -e data/events.csv`,
	RunE: runServe,
}

var (
	serveAddr       string
	serveEventsPath string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().StringVarP(&serveEventsPath, "events", "e", "", "CSV event file replayed before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	shutdownTimeout, err := cfg.Server.ParseShutdownTimeout()
	if err != nil {
		return err
	}

	preg := prometheus.NewRegistry()
	preg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(preg)

	eng, reg, err := cfg.Engine(portfolio.WithLogger(log), portfolio.WithObserver(rec))
	if err != nil {
		return err
	}
	sink, err := cfg.OpenSink()
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer sink.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if serveEventsPath != "" {
		cal, err := cfg.MarketCalendar()
		if err != nil {
			return err
		}
		res, err := replay.CSV(ctx, serveEventsPath, eng, reg, replay.Options{
			Calendar:     cal,
			SkipRejected: cfg.Replay.SkipRejected,
			Sink:         sink,
			Logger:       log,
		})
		if err != nil {
			return fmt.Errorf("seed replay: %w", err)
		}
		log.Info("seeded from events", "path", serveEventsPath, "fills", res.Fills)
	}

	srv := &http.Server{
		Addr: addr,
		Handler: api.NewServer(eng,
			api.WithLogger(log),
			api.WithSink(sink),
			api.WithMetrics(rec, preg),
		).Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("ledger listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("shutting down ledger...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "err", err)
		return err
	}
	log.Info("ledger stopped")
	return nil
}
