package sqlite

// initSchema creates the database schema if it doesn't exist.
func (db *DB) initSchema() error {
	schema := `
	-- One row per retained sample. Memory rows leave mount and kind empty.
	CREATE TABLE IF NOT EXISTS samples (
		resource TEXT NOT NULL,
		mount    TEXT NOT NULL DEFAULT '',
		kind     TEXT NOT NULL DEFAULT '',
		ts       INTEGER NOT NULL,
		value    REAL NOT NULL,
		PRIMARY KEY (resource, mount, kind, ts)
	);

	-- Mountpoints with allocated series, kept even when both series are
	-- currently empty so allocations survive a reload.
	CREATE TABLE IF NOT EXISTS mounts (
		mount TEXT PRIMARY KEY
	);

	CREATE INDEX IF NOT EXISTS idx_samples_ts ON samples(ts);
	`

	_, err := db.conn.Exec(schema)
	return err
}
