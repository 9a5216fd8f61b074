// Package sqlite provides a storage.Backend that keeps each save as a row in
// a SQLite database. Importing the package registers the "sqlite" driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tailored-agentic-units/gamesave/storage"
	"github.com/tailored-agentic-units/gamesave/storage/sqlite/migrations"
)

func init() {
	storage.Register("sqlite", func(cfg *storage.Config) (storage.Backend, error) {
		return Open(cfg.Path)
	})
}

// Store persists saves in SQLite.
type Store struct {
	sqlDB *sql.DB
	path  string
}

// Open opens a SQLite save store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection serializes writers and avoids SQLITE_BUSY between them.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, path: cleanPath}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// ResolvePath returns a sqlite:// location naming the database file and row.
func (s *Store) ResolvePath(name string) string {
	return "sqlite://" + filepath.ToSlash(s.path) + "#" + name
}

func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key, err := storage.CleanName(name)
	if err != nil {
		return false, err
	}

	var found int
	err = s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(1) FROM saves WHERE name = ?`, key).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", storage.ErrReadFailed, name, err)
	}
	return found > 0, nil
}

func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := storage.CleanName(name)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = s.sqlDB.QueryRowContext(ctx, `SELECT data FROM saves WHERE name = ?`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, name)
		}
		return nil, fmt.Errorf("%w: %s: %v", storage.ErrReadFailed, name, err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// Write upserts the row in a single statement, which SQLite applies
// atomically.
func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := storage.CleanName(name)
	if err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO saves (name, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, data, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", storage.ErrWriteFailed, name, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := storage.CleanName(name)
	if err != nil {
		return err
	}

	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM saves WHERE name = ?`, key); err != nil {
		return fmt.Errorf("%w: delete %s: %w", storage.ErrWriteFailed, name, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT name FROM saves ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrReadFailed, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: %v", storage.ErrReadFailed, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrReadFailed, err)
	}
	return names, nil
}
