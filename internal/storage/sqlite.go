package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	state      TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	snapshot   BLOB
);`

// SQLiteStore persists session records in SQLite. Watch notifications are
// in-process, emitted on every Save: the subscription is to new versions of
// the record, not to the file.
type SQLiteStore struct {
	db       *sql.DB
	watchers *watcherSet
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &SQLiteStore{db: db, watchers: newWatcherSet()}, nil
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Exists reports whether a record is stored under id.
func (s *SQLiteStore) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query session %s: %w", id, err)
	}
	return true, nil
}

// Load reads the full record, or ErrNotFound.
func (s *SQLiteStore) Load(ctx context.Context, id string) (Record, error) {
	var (
		rec       Record
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, state, created_at, snapshot FROM sessions WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Name, &rec.State, &createdAt, &rec.Snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load session %s: %w", id, err)
	}
	rec.CreatedAt = fromMillis(createdAt)
	return rec, nil
}

// Save writes the full record, replacing any previous version, and notifies
// watchers of its id.
func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, name, state, created_at, snapshot)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   state = excluded.state,
		   snapshot = excluded.snapshot`,
		rec.ID, rec.Name, rec.State, toMillis(rec.CreatedAt), rec.Snapshot,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", rec.ID, err)
	}
	s.watchers.notify(rec)
	return nil
}

// Delete removes the record if present.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// List returns the ids of all stored records.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Watch subscribes to saves under id until ctx is done.
func (s *SQLiteStore) Watch(ctx context.Context, id string) (<-chan Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.watchers.watch(ctx, id), nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
