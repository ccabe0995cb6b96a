package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Keymap table - per-action key chord overrides
		`CREATE TABLE IF NOT EXISTS keymap (
			action TEXT PRIMARY KEY,
			key TEXT NOT NULL,
			modifiers TEXT NOT NULL DEFAULT '[]',
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Dispatch log table - one row per accepted gesture
		`CREATE TABLE IF NOT EXISTS dispatch_log (
			id TEXT PRIMARY KEY,
			gesture TEXT NOT NULL,
			action TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			dispatched_at DATETIME NOT NULL
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_dispatch_log_dispatched_at ON dispatch_log(dispatched_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
