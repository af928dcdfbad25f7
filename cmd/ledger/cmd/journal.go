package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ledger/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and display trade journal records from a SQLite database.

Subcommands:
  trade  - Get details of a specific trade by ID
  list   - List trades closed on a day (today by default)
  stats  - Summarize trades closed on a day (today by default)

Examples:
  ledger journal trade <trade-id>
  ledger journal list --day 2024-01-15
  ledger journal stats --day 2024-01-15`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trades closed on a day",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize trades closed on a day",
	Args:  cobra.NoArgs,
	RunE:  runJournalStats,
}

var (
	journalDBPath string
	journalDay    string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalStatsCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal DB (defaults to journal.db_path, then ./ledger.sqlite)")
	journalCmd.PersistentFlags().StringVar(&journalDay, "day", "", "day as YYYY-MM-DD in local time (default today)")
}

func openJournal() (*journal.SQLite, error) {
	path := journalDBPath
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.Journal.DBPath
	}
	if path == "" {
		path = "./ledger.sqlite"
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := j.GetTrade(args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(rec))
	return nil
}

func dayTrades() ([]journal.TradeRecord, error) {
	j, err := openJournal()
	if err != nil {
		return nil, err
	}
	defer j.Close()

	loc := time.Local
	day := journalDay
	if day == "" {
		day = time.Now().In(loc).Format("2006-01-02")
	}
	start, end, err := dayBounds(loc, day)
	if err != nil {
		return nil, fmt.Errorf("date: %w", err)
	}

	recs, err := j.ListTradesBetween(start, end)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	return recs, nil
}

func runJournalList(cmd *cobra.Command, args []string) error {
	recs, err := dayTrades()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
	return nil
}

func runJournalStats(cmd *cobra.Command, args []string) error {
	recs, err := dayTrades()
	if err != nil {
		return err
	}
	entries := make([]journal.Entry, 0, len(recs))
	for _, r := range recs {
		entries = append(entries, journal.Entry{Time: r.Time, Profit: r.Net})
	}
	fmt.Fprint(cmd.OutOrStdout(), journal.FormatStatsOrg(journal.Summarize(entries)))
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}
