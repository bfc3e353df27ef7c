package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	dataset TEXT NOT NULL DEFAULT '',
	symbol TEXT NOT NULL DEFAULT '',
	start_time DATETIME,
	end_time DATETIME,
	bars INTEGER NOT NULL,
	config TEXT NOT NULL,
	final_cash REAL NOT NULL,
	realized_pnl REAL NOT NULL,
	unrealized_pnl REAL NOT NULL,
	commission REAL NOT NULL,
	trade_count INTEGER NOT NULL,
	return_pct REAL NOT NULL DEFAULT 0,
	max_dd_pct REAL NOT NULL DEFAULT 0,
	win_rate REAL NOT NULL DEFAULT 0,
	sharpe REAL NOT NULL DEFAULT 0,
	score REAL NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS fills (
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	time DATETIME NOT NULL,
	side TEXT NOT NULL,
	price REAL NOT NULL,
	volume INTEGER NOT NULL,
	cash_after REAL NOT NULL,
	lot_index INTEGER NOT NULL,
	cost_price REAL NOT NULL,
	commission REAL NOT NULL,
	pnl REAL NOT NULL,
	reason TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	time DATETIME NOT NULL,
	equity REAL NOT NULL,
	cash REAL NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS lots (
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	cost_price REAL NOT NULL,
	volume INTEGER NOT NULL,
	open_time DATETIME NOT NULL,
	target_sell_price REAL NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created);
`
