package storage

import "fmt"

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Baseline windows: one row per retained sample value, seq is
			-- the FIFO position within the key's window (0 = oldest).
			CREATE TABLE IF NOT EXISTS samples (
				namespace TEXT NOT NULL,
				metric_name TEXT NOT NULL,
				statistic TEXT NOT NULL,
				seq INTEGER NOT NULL,
				value REAL NOT NULL,
				PRIMARY KEY (namespace, metric_name, statistic, seq)
			);

			-- Alert event lifecycle state.
			CREATE TABLE IF NOT EXISTS alert_events (
				id TEXT PRIMARY KEY,
				subject TEXT NOT NULL,
				source TEXT NOT NULL,
				severity TEXT NOT NULL,
				summary TEXT NOT NULL,
				state TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				resolved_at DATETIME
			);

			CREATE INDEX IF NOT EXISTS idx_alert_events_state ON alert_events(state);
		`,
	},
}

// migrate applies all pending migrations.
func (s *SQLiteStorage) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if _, err := s.db.Exec(m.Up); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.Version, m.Name); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}
	return nil
}
