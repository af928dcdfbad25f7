package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ledger/config"
)

// run executes the root command with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, journalDBPath, journalDay = "", "", ""
	replayEventsPath, replaySkipRejected = "", false
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ledger version "+version)
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")

	out, err := run(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")
	assert.FileExists(t, path)

	out, err = run(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "Instrument: SPY")
	assert.Contains(t, out, "Journal: csv")
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account: [\n"), 0o644))

	_, err := run(t, "config", "validate", "-f", path)
	assert.Error(t, err)
}

const events = `time,event,symbol,arg1,arg2
2024-01-02T15:00:00Z,FILL,SPY,100,10
2024-01-02T15:01:00Z,PRICE,SPY,12
2024-01-02T15:02:00Z,FILL,SPY,-40,12
2024-01-02T15:03:00Z,FILL,SPY,-60,9
`

func TestReplayThenQueryJournal(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "ledger.sqlite")
	eventsPath := filepath.Join(tmp, "events.csv")
	require.NoError(t, os.WriteFile(eventsPath, []byte(events), 0o644))

	cfg := config.Default()
	cfg.Journal = config.JournalConfig{Type: "sqlite", DBPath: dbPath}
	cfgPath := filepath.Join(tmp, "ledger.yaml")
	require.NoError(t, cfg.SaveToFile(cfgPath))

	out, err := run(t, "replay", "-c", cfgPath, "-e", eventsPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Replay complete!")
	assert.Contains(t, out, "Fills: 3  Rejected: 0")
	assert.Contains(t, out, "Results saved to: "+dbPath)

	day := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC).In(time.Local).Format("2006-01-02")
	out, err = run(t, "journal", "list", "--db", dbPath, "--day", day)
	require.NoError(t, err)
	assert.Contains(t, out, ":SYMBOL: SPY")
	assert.Contains(t, out, ":QUANTITY: 40")
	assert.Contains(t, out, ":QUANTITY: 60")

	out, err = run(t, "journal", "stats", "--db", dbPath, "--day", day)
	require.NoError(t, err)
	assert.Contains(t, out, "| 2 | 1 | 1 |")
}

func TestReplayRequiresEvents(t *testing.T) {
	_, err := run(t, "replay")
	assert.ErrorContains(t, err, "--events")
}

func TestDayBounds(t *testing.T) {
	start, end, err := dayBounds(time.UTC, "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))

	_, _, err = dayBounds(time.UTC, "03/10/2024")
	assert.Error(t, err)
}
