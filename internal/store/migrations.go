package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	sender_name  TEXT NOT NULL DEFAULT '',
	sender_email TEXT NOT NULL DEFAULT '',
	bcc_list     TEXT NOT NULL DEFAULT '',
	daily_cap    INTEGER NOT NULL DEFAULT 25 CHECK (daily_cap >= 0),
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

INSERT OR IGNORE INTO settings (id) VALUES (1);

CREATE TABLE IF NOT EXISTS sends (
	id TEXT NOT NULL,
	ts INTEGER NOT NULL
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_sends_ts ON sends(ts);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
