// Package storage defines the session-keyed persistence contract the
// registry relies on: existence checks, full-record reads and overwrites,
// and a per-key change subscription. Implementations may be in-memory or
// durable; the registry does not care which.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no record exists for the requested id.
var ErrNotFound = errors.New("record not found")

// Record is the persisted form of one session: identification fields for
// listing plus the full state snapshot as JSON.
type Record struct {
	ID        string
	Name      string
	State     string
	CreatedAt time.Time
	Snapshot  []byte
}

// Store is the storage collaborator contract. Save overwrites the full
// record for its id and notifies watchers of that id.
type Store interface {
	// Exists reports whether a record is stored under id.
	Exists(ctx context.Context, id string) (bool, error)
	// Load reads the full record, or ErrNotFound.
	Load(ctx context.Context, id string) (Record, error)
	// Save writes the full record, replacing any previous version.
	Save(ctx context.Context, rec Record) error
	// Delete removes the record; deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
	// List returns the ids of all stored records.
	List(ctx context.Context) ([]string, error)
	// Watch delivers every record version saved under id until ctx is
	// done. Delivery is best-effort: a slow watcher may miss intermediate
	// versions but always observes them in save order.
	Watch(ctx context.Context, id string) (<-chan Record, error)
	// Close releases underlying resources.
	Close() error
}
