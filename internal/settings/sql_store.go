package settings

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bhandras/avatarctl/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

const schemaV1 = `
CREATE TABLE IF NOT EXISTS settings (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	snapshot   TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLStore keeps the snapshot as a single JSON row in a SQLite database.
type SQLStore struct {
	db   *sql.DB
	path string
}

// OpenSQLStore opens (creating if needed) the SQLite database at path and
// applies the schema.
func OpenSQLStore(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLStore{db: db, path: path}, nil
}

// runMigrations applies the schema once and records it.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", "001_settings").Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}
	if count > 0 {
		return nil
	}

	if _, err := db.Exec(schemaV1); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}
	if _, err := db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", "001_settings"); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return nil
}

// Path implements Store.
func (s *SQLStore) Path() string { return s.path }

// Close releases the database handle.
func (s *SQLStore) Close() error { return s.db.Close() }

// Load implements Store.
func (s *SQLStore) Load() Snapshot {
	var raw string
	err := s.db.QueryRow("SELECT snapshot FROM settings WHERE id = 1").Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Defaults()
	}
	if err != nil {
		logger.Warnf("[settings] query %s failed, using defaults: %v", s.path, err)
		return Defaults()
	}

	cfg := Defaults()
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		logger.Warnf("[settings] %s parse failed, using defaults: %v", s.path, err)
		return Defaults()
	}
	return cfg
}

// Save implements Store.
func (s *SQLStore) Save(cfg Snapshot) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO settings (id, snapshot, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at
	`, string(raw))
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	logger.Infof("[settings] saved: %s", s.path)
	return nil
}
