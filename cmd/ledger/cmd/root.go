package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ledger/config"
)

var rootCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Position accounting ledger for simulated and replayed trading",
	Long: `Ledger keeps the books for a trading account.

It provides tools for:
  - Replaying fills, price marks and cash adjustments from CSV
  - Serving holdings, buying power and portfolio value over HTTP
  - Writing trades and equity snapshots to CSV or SQLite journals
  - Querying journaled trades

Complete documentation is available at https://github.com/rustyeddy/ledger`,
	SilenceUsage: true,
}

var configPath string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (YAML or JSON); defaults are used when empty")
}

// loadConfig reads --config, or returns the defaults.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	return cfg.Log.Logger(os.Stderr)
}
