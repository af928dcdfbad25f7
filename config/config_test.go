package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ledger/broker"
	"github.com/rustyeddy/ledger/journal"
	"github.com/rustyeddy/ledger/market"
	"github.com/rustyeddy/ledger/portfolio"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, "USD", cfg.Account.Currency)
	assert.True(t, cfg.Account.Cash.Equal(decimal.NewFromInt(100000)))
	assert.Len(t, cfg.Instruments, 2)
	assert.NoError(t, cfg.Validate())
}

func validInstruments() []InstrumentConfig {
	return []InstrumentConfig{{Symbol: "SPY", Price: decimal.NewFromInt(10), Leverage: decimal.NewFromInt(1)}}
}

func TestValidate(t *testing.T) {
	acct := AccountConfig{Currency: "USD", Cash: decimal.NewFromInt(100000)}
	csvJournal := JournalConfig{Type: "csv", TradesFile: "trades.csv", EquityFile: "equity.csv"}

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			config:  Default(),
			wantErr: false,
		},
		{
			name: "missing currency",
			config: &Config{
				Account: AccountConfig{Cash: decimal.NewFromInt(100000)},
			},
			wantErr: true,
			errMsg:  "account.currency is required",
		},
		{
			name: "negative cash",
			config: &Config{
				Account: AccountConfig{Currency: "USD", Cash: decimal.NewFromInt(-1000)},
			},
			wantErr: true,
			errMsg:  "account.cash must not be negative",
		},
		{
			name:    "no instruments",
			config:  &Config{Account: acct, Journal: csvJournal},
			wantErr: true,
			errMsg:  "at least one instrument is required",
		},
		{
			name: "duplicate instrument",
			config: &Config{
				Account:     acct,
				Instruments: append(validInstruments(), validInstruments()...),
				Journal:     csvJournal,
			},
			wantErr: true,
			errMsg:  "duplicate instrument: SPY",
		},
		{
			name: "zero leverage",
			config: &Config{
				Account:     acct,
				Instruments: []InstrumentConfig{{Symbol: "SPY", Price: decimal.NewFromInt(10)}},
				Journal:     csvJournal,
			},
			wantErr: true,
			errMsg:  "leverage must be positive",
		},
		{
			name: "unknown fee type",
			config: &Config{
				Account: acct,
				Instruments: []InstrumentConfig{{
					Symbol: "SPY", Price: decimal.NewFromInt(10), Leverage: decimal.NewFromInt(1),
					Fee: FeeConfig{Type: "tiered"},
				}},
				Journal: csvJournal,
			},
			wantErr: true,
			errMsg:  "unknown fee type",
		},
		{
			name: "negative fee rate",
			config: &Config{
				Account: acct,
				Instruments: []InstrumentConfig{{
					Symbol: "SPY", Price: decimal.NewFromInt(10), Leverage: decimal.NewFromInt(1),
					Fee: FeeConfig{Type: "percent", Rate: decimal.NewFromInt(-1)},
				}},
				Journal: csvJournal,
			},
			wantErr: true,
			errMsg:  "fee.rate must not be negative",
		},
		{
			name:    "bad cash policy",
			config:  &Config{Account: acct, Instruments: validInstruments(), CashPolicy: "clamp", Journal: csvJournal},
			wantErr: true,
			errMsg:  "cash_policy",
		},
		{
			name:    "bad calendar",
			config:  &Config{Account: acct, Instruments: validInstruments(), Calendar: CalendarConfig{Type: "nyse"}, Journal: csvJournal},
			wantErr: true,
			errMsg:  "calendar.type",
		},
		{
			name:    "csv journal without files",
			config:  &Config{Account: acct, Instruments: validInstruments(), Journal: JournalConfig{Type: "csv"}},
			wantErr: true,
			errMsg:  "journal trades_file and equity_file required",
		},
		{
			name:    "sqlite journal without path",
			config:  &Config{Account: acct, Instruments: validInstruments(), Journal: JournalConfig{Type: "sqlite"}},
			wantErr: true,
			errMsg:  "journal db_path required",
		},
		{
			name:    "bad shutdown timeout",
			config:  &Config{Account: acct, Instruments: validInstruments(), Journal: csvJournal, Server: ServerConfig{ShutdownTimeout: "soon"}},
			wantErr: true,
			errMsg:  "server.shutdown_timeout",
		},
		{
			name:    "bad log level",
			config:  &Config{Account: acct, Instruments: validInstruments(), Journal: csvJournal, Log: LogConfig{Level: "loud"}},
			wantErr: true,
			errMsg:  "log.level",
		},
		{
			name:    "memory journal",
			config:  &Config{Account: acct, Instruments: validInstruments(), Journal: JournalConfig{Type: "memory"}},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			path := filepath.Join(tmpDir, "test"+tt.ext)

			err := cfg.SaveToFile(path)
			require.NoError(t, err)

			_, err = os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)

			assert.Equal(t, cfg.Account.Currency, loaded.Account.Currency)
			assert.True(t, cfg.Account.Cash.Equal(loaded.Account.Cash))
			require.Len(t, loaded.Instruments, 2)
			assert.Equal(t, "SPY", loaded.Instruments[1].Symbol)
			assert.True(t, loaded.Instruments[0].Price.Equal(decimal.RequireFromString("1.085")))
			assert.Equal(t, "per_unit", loaded.Instruments[1].Fee.Type)
			assert.True(t, loaded.Instruments[1].Fee.Rate.Equal(decimal.RequireFromString("0.005")))
			assert.Equal(t, cfg.Journal, loaded.Journal)
			assert.Equal(t, cfg.Server, loaded.Server)
		})
	}
}

func TestLoadHandWrittenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	src := `account:
  id: ACC-7
  currency: USD
  cash: 25000.50
instruments:
  - symbol: EUR_USD
    price: 1.0850
    leverage: 50
    fee:
      type: flat
      amount: 0.25
cash_policy: reject
calendar:
  type: forex
  location: UTC
journal:
  type: none
server:
  addr: 127.0.0.1:9090
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.Account.Cash.Equal(decimal.RequireFromString("25000.5")))

	eng, reg, err := cfg.Engine()
	require.NoError(t, err)
	in, err := reg.Instrument("EUR_USD")
	require.NoError(t, err)
	assert.Equal(t, market.FlatFee{Amount: decimal.RequireFromString("0.25")}, in.Fees)

	// A reject policy refuses a fill that overdraws cash.
	_, err = eng.ProcessFill(broker.Fill{Symbol: "EUR_USD", Quantity: 10_000_000, Price: decimal.RequireFromString("1.085")})
	assert.ErrorIs(t, err, portfolio.ErrInsufficientCash)

	cal, err := cfg.MarketCalendar()
	require.NoError(t, err)
	assert.False(t, cal.IsOpen(time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC)))
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account: [unterminated"), 0o644))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestOpenSink(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		journal JournalConfig
		check   func(t *testing.T, s journal.Sink)
	}{
		{"csv", JournalConfig{Type: "csv", TradesFile: filepath.Join(dir, "t.csv"), EquityFile: filepath.Join(dir, "e.csv")}, func(t *testing.T, s journal.Sink) {
			assert.IsType(t, &journal.CSV{}, s)
		}},
		{"sqlite", JournalConfig{Type: "sqlite", DBPath: filepath.Join(dir, "l.sqlite")}, func(t *testing.T, s journal.Sink) {
			assert.IsType(t, &journal.SQLite{}, s)
		}},
		{"memory", JournalConfig{Type: "memory"}, func(t *testing.T, s journal.Sink) {
			assert.IsType(t, &journal.Memory{}, s)
		}},
		{"none", JournalConfig{Type: "none"}, func(t *testing.T, s journal.Sink) {
			assert.Equal(t, journal.Nop{}, s)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Journal = tt.journal
			s, err := cfg.OpenSink()
			require.NoError(t, err)
			defer s.Close()
			tt.check(t, s)
		})
	}

	cfg := Default()
	cfg.Journal.Type = "kafka"
	_, err := cfg.OpenSink()
	assert.Error(t, err)
}

func TestFeeModels(t *testing.T) {
	tests := []struct {
		fee  FeeConfig
		want market.FeeModel
	}{
		{FeeConfig{}, market.NoFee{}},
		{FeeConfig{Type: "none"}, market.NoFee{}},
		{FeeConfig{Type: "flat", Amount: decimal.NewFromInt(1)}, market.FlatFee{Amount: decimal.NewFromInt(1)}},
		{FeeConfig{Type: "percent", Rate: decimal.RequireFromString("0.001")}, market.PercentFee{Rate: decimal.RequireFromString("0.001")}},
		{FeeConfig{Type: "per_unit", Rate: decimal.RequireFromString("0.005"), Minimum: decimal.NewFromInt(1)},
			market.PerUnitFee{Rate: decimal.RequireFromString("0.005"), Minimum: decimal.NewFromInt(1)}},
	}
	for _, tt := range tests {
		got, err := tt.fee.Model()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := LogConfig{Level: "warn", Format: "json"}.Logger(&buf)
	require.NoError(t, err)
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = LogConfig{Format: "xml"}.Logger(&buf)
	assert.Error(t, err)
}

func TestServerShutdownTimeout(t *testing.T) {
	d, err := ServerConfig{}.ParseShutdownTimeout()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, d)

	d, err = ServerConfig{ShutdownTimeout: "3s"}.ParseShutdownTimeout()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, d)
}
