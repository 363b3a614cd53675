package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vaayushanti/bagspec/common/logger"
	_ "modernc.org/sqlite"
)

// SQLite wraps a database/sql handle opened with the modernc driver
type SQLite struct {
	*sql.DB
	log *logger.Logger
}

// OpenSQLite opens (or creates) a SQLite database at path.
// Use ":memory:" for a private in-memory database.
//
// The pool is pinned to a single connection: SQLite allows one writer at a
// time, and an in-memory database is per-connection.
func OpenSQLite(ctx context.Context, path string, log *logger.Logger) (*SQLite, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	handle.SetMaxOpenConns(1)
	handle.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := handle.PingContext(pingCtx); err != nil {
		handle.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	pragmas := []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"}
	if !isMemoryPath(path) {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}

	for _, pragma := range pragmas {
		if _, err := handle.ExecContext(ctx, pragma); err != nil {
			handle.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	log.Info("database connected", "driver", "sqlite", "path", path)

	return &SQLite{DB: handle, log: log}, nil
}

func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:") || strings.Contains(path, "mode=memory")
}

// Close closes the underlying handle
func (s *SQLite) Close() error {
	s.log.Info("closing sqlite database")
	return s.DB.Close()
}

// Health checks database health
func (s *SQLite) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return s.DB.PingContext(ctx)
}
