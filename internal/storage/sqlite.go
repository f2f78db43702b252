package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStorage is the default durable store: a single database file on disk.
type SQLiteStorage struct {
	*sqlStorage
}

// NewSQLiteStorage opens (creating if needed) the database file at path and migrates it.
func NewSQLiteStorage(path string, logger *zap.Logger) (*SQLiteStorage, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("error creating database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database %s: %w", path, err)
	}

	// One connection serializes writers and avoids SQLITE_BUSY between handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		logger.Warn("Failed to enable WAL mode, continuing without it", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error setting busy timeout: %w", err)
	}

	s, err := newSQLStorage(db, "sqlite", identity, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStorage{sqlStorage: s}, nil
}
