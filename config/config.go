package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/ledger/broker"
	"github.com/rustyeddy/ledger/journal"
	"github.com/rustyeddy/ledger/market"
	"github.com/rustyeddy/ledger/portfolio"
)

// Config represents the complete ledger configuration
type Config struct {
	Account     AccountConfig      `json:"account" yaml:"account"`
	Instruments []InstrumentConfig `json:"instruments" yaml:"instruments"`
	CashPolicy  string             `json:"cash_policy,omitempty" yaml:"cash_policy,omitempty"` // "allow" or "reject"
	Calendar    CalendarConfig     `json:"calendar" yaml:"calendar"`
	Journal     JournalConfig      `json:"journal" yaml:"journal"`
	Replay      ReplayConfig       `json:"replay,omitempty" yaml:"replay,omitempty"`
	Server      ServerConfig       `json:"server" yaml:"server"`
	Log         LogConfig          `json:"log" yaml:"log"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	ID       string          `json:"id" yaml:"id"`
	Currency string          `json:"currency" yaml:"currency"`
	Cash     decimal.Decimal `json:"cash" yaml:"cash"`
}

// InstrumentConfig seeds one directory entry
type InstrumentConfig struct {
	Symbol   string          `json:"symbol" yaml:"symbol"`
	Price    decimal.Decimal `json:"price" yaml:"price"`
	Leverage decimal.Decimal `json:"leverage" yaml:"leverage"`
	Fee      FeeConfig       `json:"fee,omitempty" yaml:"fee,omitempty"`
}

// FeeConfig selects a fee model: none, flat, per_unit or percent
type FeeConfig struct {
	Type    string          `json:"type,omitempty" yaml:"type,omitempty"`
	Amount  decimal.Decimal `json:"amount,omitempty" yaml:"amount,omitempty"`
	Rate    decimal.Decimal `json:"rate,omitempty" yaml:"rate,omitempty"`
	Minimum decimal.Decimal `json:"minimum,omitempty" yaml:"minimum,omitempty"`
}

// CalendarConfig selects market hours for replay: always or forex
type CalendarConfig struct {
	Type     string `json:"type" yaml:"type"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"` // IANA zone, e.g. America/New_York
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite", "memory" or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// ReplayConfig names the event file replayed by "ledger replay"
type ReplayConfig struct {
	CSVFile      string `json:"csv_file,omitempty" yaml:"csv_file,omitempty"`
	SkipRejected bool   `json:"skip_rejected,omitempty" yaml:"skip_rejected,omitempty"`
}

// ServerConfig contains HTTP service parameters
type ServerConfig struct {
	Addr            string `json:"addr" yaml:"addr"`
	ShutdownTimeout string `json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout,omitempty"` // e.g., "10s"
}

// ParseShutdownTimeout converts the timeout string to time.Duration
func (s ServerConfig) ParseShutdownTimeout() (time.Duration, error) {
	if s.ShutdownTimeout == "" {
		return 10 * time.Second, nil
	}
	return time.ParseDuration(s.ShutdownTimeout)
}

// LogConfig controls the slog handler
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`   // debug, info, warn, error
	Format string `json:"format,omitempty" yaml:"format,omitempty"` // text or json
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml, JSON otherwise)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Cash.IsNegative() {
		return fmt.Errorf("account.cash must not be negative")
	}
	if len(c.Instruments) == 0 {
		return fmt.Errorf("at least one instrument is required")
	}
	seen := make(map[string]bool, len(c.Instruments))
	for i, in := range c.Instruments {
		if in.Symbol == "" {
			return fmt.Errorf("instruments[%d].symbol is required", i)
		}
		if seen[in.Symbol] {
			return fmt.Errorf("duplicate instrument: %s", in.Symbol)
		}
		seen[in.Symbol] = true
		if in.Price.IsNegative() {
			return fmt.Errorf("instrument %s: price must not be negative", in.Symbol)
		}
		if !in.Leverage.IsPositive() {
			return fmt.Errorf("instrument %s: leverage must be positive", in.Symbol)
		}
		if _, err := in.Fee.Model(); err != nil {
			return fmt.Errorf("instrument %s: %w", in.Symbol, err)
		}
	}
	if _, err := portfolio.ParseCashPolicy(c.CashPolicy); err != nil {
		return fmt.Errorf("cash_policy: %w", err)
	}
	if _, err := c.MarketCalendar(); err != nil {
		return err
	}
	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "memory", "none":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite', 'memory' or 'none'")
	}
	if _, err := c.Server.ParseShutdownTimeout(); err != nil {
		return fmt.Errorf("server.shutdown_timeout: %w", err)
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	return nil
}

// Model builds the configured fee model.
func (f FeeConfig) Model() (market.FeeModel, error) {
	for name, v := range map[string]decimal.Decimal{"amount": f.Amount, "rate": f.Rate, "minimum": f.Minimum} {
		if v.IsNegative() {
			return nil, fmt.Errorf("fee.%s must not be negative", name)
		}
	}
	switch f.Type {
	case "", "none":
		return market.NoFee{}, nil
	case "flat":
		return market.FlatFee{Amount: f.Amount}, nil
	case "per_unit":
		return market.PerUnitFee{Rate: f.Rate, Minimum: f.Minimum}, nil
	case "percent":
		return market.PercentFee{Rate: f.Rate}, nil
	}
	return nil, fmt.Errorf("unknown fee type %q", f.Type)
}

// Registry builds the instrument directory.
func (c *Config) Registry() (*market.Registry, error) {
	reg := market.NewRegistry()
	for _, in := range c.Instruments {
		fees, err := in.Fee.Model()
		if err != nil {
			return nil, fmt.Errorf("instrument %s: %w", in.Symbol, err)
		}
		err = reg.Add(market.Instrument{
			Symbol:   in.Symbol,
			Price:    in.Price,
			Leverage: in.Leverage,
			Fees:     fees,
		})
		if err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// BrokerAccount is the starting account.
func (c *Config) BrokerAccount() broker.Account {
	return broker.Account{
		ID:       c.Account.ID,
		Currency: c.Account.Currency,
		Cash:     c.Account.Cash,
	}
}

func (c *Config) Policy() (portfolio.CashPolicy, error) {
	return portfolio.ParseCashPolicy(c.CashPolicy)
}

// MarketCalendar builds the configured calendar.
func (c *Config) MarketCalendar() (market.Calendar, error) {
	switch c.Calendar.Type {
	case "", "always":
		return market.AlwaysOpen{}, nil
	case "forex":
		cal := market.ForexCalendar{}
		if c.Calendar.Location != "" {
			loc, err := time.LoadLocation(c.Calendar.Location)
			if err != nil {
				return nil, fmt.Errorf("calendar.location: %w", err)
			}
			cal.Location = loc
		}
		return cal, nil
	}
	return nil, fmt.Errorf("calendar.type must be 'always' or 'forex'")
}

// OpenSink opens the configured journal sink. The caller closes it.
func (c *Config) OpenSink() (journal.Sink, error) {
	switch c.Journal.Type {
	case "csv":
		return journal.NewCSV(c.Journal.TradesFile, c.Journal.EquityFile)
	case "sqlite":
		return journal.NewSQLite(c.Journal.DBPath)
	case "memory":
		return &journal.Memory{}, nil
	case "none", "":
		return journal.Nop{}, nil
	}
	return nil, fmt.Errorf("unknown journal type %q", c.Journal.Type)
}

// Engine builds a ledger engine from the account, instruments and policy.
func (c *Config) Engine(opts ...portfolio.Option) (*portfolio.Engine, *market.Registry, error) {
	reg, err := c.Registry()
	if err != nil {
		return nil, nil, err
	}
	policy, err := c.Policy()
	if err != nil {
		return nil, nil, err
	}
	opts = append([]portfolio.Option{portfolio.WithCashPolicy(policy)}, opts...)
	return portfolio.New(reg, c.BrokerAccount(), opts...), reg, nil
}

func (l LogConfig) level() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level must be debug, info, warn or error")
}

// Logger builds the configured slog logger writing to w.
func (l LogConfig) Logger(w io.Writer) (*slog.Logger, error) {
	lvl, err := l.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch l.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("log.format must be text or json")
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:       "LEDGER-001",
			Currency: "USD",
			Cash:     decimal.NewFromInt(100000),
		},
		Instruments: []InstrumentConfig{
			{
				Symbol:   "EUR_USD",
				Price:    decimal.RequireFromString("1.0850"),
				Leverage: decimal.NewFromInt(50),
			},
			{
				Symbol:   "SPY",
				Price:    decimal.NewFromInt(470),
				Leverage: decimal.NewFromInt(2),
				Fee: FeeConfig{
					Type:    "per_unit",
					Rate:    decimal.RequireFromString("0.005"),
					Minimum: decimal.NewFromInt(1),
				},
			},
		},
		CashPolicy: "allow",
		Calendar:   CalendarConfig{Type: "always"},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: "10s",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}
