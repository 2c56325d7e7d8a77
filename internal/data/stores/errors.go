package stores

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/colonyops/sage/internal/data/db"
)

// IsBusyError reports whether err is SQLITE_BUSY, which happens when another
// sage process holds the write lock past the busy timeout.
func IsBusyError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_BUSY
	}
	return false
}

// IsCorruptionError reports whether err means the database file is unusable.
func IsCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CORRUPT, sqlite3.SQLITE_NOTADB:
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "database disk image is malformed") ||
		strings.Contains(msg, "file is not a database")
}

// IsNotFoundError reports whether err wraps sql.ErrNoRows.
func IsNotFoundError(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// OpenDatabase opens the sage database. A corrupt file is moved aside and a
// fresh database is created in its place; only credentials, preferences and
// notification history are lost. The returned path is the backup, empty when
// no recovery happened.
func OpenDatabase(dataDir string, opts db.OpenOptions, logger zerolog.Logger) (*db.DB, string, error) {
	database, err := db.Open(dataDir, opts)
	if err == nil {
		return database, "", nil
	}
	if !IsCorruptionError(err) {
		return nil, "", err
	}

	backup, recErr := RecoverFromCorruption(dataDir)
	if recErr != nil {
		return nil, "", errors.Join(err, recErr)
	}
	logger.Warn().Err(err).Str("backup", backup).Msg("database corrupt, starting fresh")

	database, err = db.Open(dataDir, opts)
	if err != nil {
		return nil, backup, fmt.Errorf("reopen after recovery: %w", err)
	}
	return database, backup, nil
}

// RecoverFromCorruption moves the database file and its WAL and SHM sidecars
// to a timestamped backup and returns the backup path. A missing database is
// not an error.
func RecoverFromCorruption(dataDir string) (string, error) {
	dbPath := filepath.Join(dataDir, db.FileName)
	backup := fmt.Sprintf("%s.corrupt.%s", dbPath, time.Now().Format("20060102-150405"))

	if err := os.Rename(dbPath, backup); err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("back up database: %w", err)
		}
		backup = ""
	}

	// Stale sidecars would be replayed against the new file.
	for _, suffix := range []string{"-wal", "-shm"} {
		side := dbPath + suffix
		if _, err := os.Stat(side); err != nil {
			continue
		}
		target := backup + suffix
		if backup == "" {
			target = side + ".stale"
		}
		if err := os.Rename(side, target); err != nil {
			if rmErr := os.Remove(side); rmErr != nil {
				return backup, fmt.Errorf("remove %s: %w", suffix, err)
			}
		}
	}
	return backup, nil
}
