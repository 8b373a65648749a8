package database

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
	logger *zap.Logger
}

func New(storagePath string, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("sqlite", storagePath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &DB{
		DB:     db,
		logger: logger,
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database connection established", zap.String("path", storagePath))
	return database, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		// Live timer state, one active row per (owner, date)
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			date TEXT NOT NULL,
			arrival_time TEXT NOT NULL,
			required_work_hours INTEGER NOT NULL,
			required_work_minutes INTEGER NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 0,
			is_running INTEGER NOT NULL DEFAULT 0,
			is_paused INTEGER NOT NULL DEFAULT 0,
			start_time TIMESTAMP,
			current_session_start TIMESTAMP,
			pause_start_time TIMESTAMP,
			total_worked_ms INTEGER NOT NULL DEFAULT 0,
			total_paused_ms INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_owner_date ON sessions(owner_id, date)`,
		// History ledger, one entry per session
		`CREATE TABLE IF NOT EXISTS entries (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			session_id TEXT NOT NULL REFERENCES sessions(id),
			name TEXT,
			date TIMESTAMP NOT NULL,
			check_in TIMESTAMP NOT NULL,
			check_out TIMESTAMP,
			total_worked_ms INTEGER NOT NULL DEFAULT 0,
			total_paused_ms INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_owner ON entries(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_session ON entries(session_id)`,
		// Persistence intents that failed to apply, retried in the background
		`CREATE TABLE IF NOT EXISTS pending_writes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			target TEXT NOT NULL,
			target_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			retry_count INTEGER DEFAULT 0,
			last_attempt TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_writes_created ON pending_writes(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	db.logger.Info("Database migrations completed")
	return nil
}

func (db *DB) Close() error {
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	db.logger.Info("Database connection closed")
	return nil
}
