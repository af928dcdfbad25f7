package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ledger/config"
	"github.com/rustyeddy/ledger/journal"
	"github.com/rustyeddy/ledger/portfolio"
	"github.com/rustyeddy/ledger/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay fills, price marks and cash events from CSV",
	Long: `Replay a ledger event file through the accounting engine.

Rows are time,event,symbol,arg1,arg2 with events FILL, PRICE and CASH.
Closing fills and equity snapshots are written to the configured journal.

Examples:
  ledger replay -e data/events.csv
  ledger replay -c ledger.yaml`,
	RunE: runReplay,
}

var (
	replayEventsPath   string
	replaySkipRejected bool
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVarP(&replayEventsPath, "events", "e", "", "CSV event file (overrides replay.csv_file)")
	replayCmd.Flags().BoolVar(&replaySkipRejected, "skip-rejected", false, "continue past fills rejected as invalid")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := replayEventsPath
	if path == "" {
		path = cfg.Replay.CSVFile
	}
	if path == "" {
		return fmt.Errorf("either --events or replay.csv_file is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	eng, res, err := replayFile(ctx, cfg, path, replaySkipRejected || cfg.Replay.SkipRejected, out)
	if err != nil {
		return err
	}
	printSummary(out, cfg, eng, res)
	return nil
}

// replayFile builds an engine from cfg and replays path into it, writing to
// the configured journal.
func replayFile(ctx context.Context, cfg *config.Config, path string, skip bool, out io.Writer) (*portfolio.Engine, replay.Result, error) {
	log, err := newLogger(cfg)
	if err != nil {
		return nil, replay.Result{}, err
	}
	eng, reg, err := cfg.Engine(portfolio.WithLogger(log))
	if err != nil {
		return nil, replay.Result{}, err
	}
	cal, err := cfg.MarketCalendar()
	if err != nil {
		return nil, replay.Result{}, err
	}
	sink, err := cfg.OpenSink()
	if err != nil {
		return nil, replay.Result{}, fmt.Errorf("create journal: %w", err)
	}
	defer sink.Close()

	fmt.Fprintf(out, "Replaying events from: %s\n", path)
	fmt.Fprintf(out, "  Account: %s (%s %s)\n", cfg.Account.ID, cfg.Account.Cash.StringFixed(2), cfg.Account.Currency)

	res, err := replay.CSV(ctx, path, eng, reg, replay.Options{
		Calendar:     cal,
		SkipRejected: skip,
		Sink:         sink,
		Logger:       log,
	})
	if err != nil {
		return nil, res, fmt.Errorf("replay error: %w", err)
	}
	return eng, res, nil
}

func printSummary(out io.Writer, cfg *config.Config, eng *portfolio.Engine, res replay.Result) {
	t := eng.Totals()
	fmt.Fprintf(out, "\nReplay complete!\n")
	fmt.Fprintf(out, "  Rows: %d  Fills: %d  Rejected: %d  Skipped: %d  Prices: %d\n",
		res.Rows, res.Fills, res.Rejected, res.Skipped, res.Prices)
	fmt.Fprintf(out, "  Cash: %s\n", t.Cash.StringFixed(2))
	fmt.Fprintf(out, "  Holdings Value: %s\n", t.HoldingsValue.StringFixed(2))
	fmt.Fprintf(out, "  Unrealized: %s\n", t.UnrealizedProfit.StringFixed(2))
	fmt.Fprintf(out, "  Realized: %s\n", t.RealizedProfit.StringFixed(2))
	fmt.Fprintf(out, "  Fees: %s\n", t.Fees.StringFixed(2))
	fmt.Fprintf(out, "  Portfolio Value: %s\n", t.PortfolioValue.StringFixed(2))
	fmt.Fprintln(out)
	fmt.Fprint(out, journal.FormatStatsOrg(eng.TransactionStats()))

	switch cfg.Journal.Type {
	case "csv":
		fmt.Fprintf(out, "\nResults saved to:\n  - %s\n  - %s\n", cfg.Journal.TradesFile, cfg.Journal.EquityFile)
	case "sqlite":
		fmt.Fprintf(out, "\nResults saved to: %s\n", cfg.Journal.DBPath)
	}
}
