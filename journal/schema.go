// journal/schema.go
package journal

// Decimal columns are TEXT so values round-trip exactly.
const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	fill_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	entry_price TEXT NOT NULL,
	exit_price TEXT NOT NULL,
	time DATETIME NOT NULL,
	realized_profit TEXT NOT NULL,
	fee TEXT NOT NULL,
	net TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_time ON trades(time);

CREATE TABLE IF NOT EXISTS equity (
	time DATETIME NOT NULL,
	cash TEXT NOT NULL,
	holdings_value TEXT NOT NULL,
	unrealized_profit TEXT NOT NULL,
	realized_profit TEXT NOT NULL,
	fees TEXT NOT NULL,
	portfolio_value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
`
