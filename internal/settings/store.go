// Package settings persists the configuration snapshot.
//
// Loading never fails: a missing or unreadable snapshot degrades to Defaults.
// Saving reports failures to the caller.
package settings

import (
	"path/filepath"
	"strings"
)

// Store loads and saves the configuration snapshot.
type Store interface {
	// Load returns the persisted snapshot, or Defaults if none can be read.
	Load() Snapshot
	// Save overwrites the persisted snapshot.
	Save(Snapshot) error
	// Path describes where the snapshot is stored.
	Path() string
}

// Open returns the store for path, picking the backend by file extension:
// .yaml/.yml (YAML file), .db/.sqlite/.sqlite3 (SQLite), anything else JSON.
func Open(path string) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		store, err := OpenSQLStore(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case ".yaml", ".yml":
		return NewFileStore(path, FormatYAML), nil
	default:
		return NewFileStore(path, FormatJSON), nil
	}
}
