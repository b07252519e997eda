package mapping

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/iptvproxy/internal/persistence/sqlite"
)

var (
	// ErrInvalid is returned for entries with an empty source or target name.
	ErrInvalid = errors.New("mapping: invalid entry")
	// ErrNotFound is returned when deleting an unknown entry.
	ErrNotFound = errors.New("mapping: entry not found")
)

// Store persists mapping entries edited through the API.
type Store interface {
	All(ctx context.Context) (Table, error)
	Put(ctx context.Context, from, to string) error
	Delete(ctx context.Context, from string) error
	Close() error
}

// SQLiteStore keeps mapping entries in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (and migrates) the mapping database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mapping: migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS channel_mappings (
		from_name TEXT PRIMARY KEY,
		to_name TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`)
	return err
}

// All returns every persisted entry.
func (s *SQLiteStore) All(ctx context.Context) (Table, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT from_name, to_name FROM channel_mappings ORDER BY from_name`)
	if err != nil {
		return nil, fmt.Errorf("mapping: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	t := Table{}
	for rows.Next() {
		var from, to string
		if err := rows.Scan(&from, &to); err != nil {
			return nil, fmt.Errorf("mapping: scan: %w", err)
		}
		t[from] = to
	}
	return t, rows.Err()
}

// Put inserts or replaces one entry.
func (s *SQLiteStore) Put(ctx context.Context, from, to string) error {
	from, to = Key(from), Key(to)
	if from == "" || to == "" {
		return ErrInvalid
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO channel_mappings (from_name, to_name, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(from_name) DO UPDATE SET to_name = excluded.to_name, updated_at = excluded.updated_at`,
		from, to, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("mapping: put %q: %w", from, err)
	}
	return nil
}

// Delete removes one entry.
func (s *SQLiteStore) Delete(ctx context.Context, from string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM channel_mappings WHERE from_name = ?`, Key(from))
	if err != nil {
		return fmt.Errorf("mapping: delete %q: %w", from, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mapping: delete %q: %w", from, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Check verifies database integrity; used as a readiness check.
func (s *SQLiteStore) Check(ctx context.Context) error {
	return sqlite.QuickCheck(ctx, s.db)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
