package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps records in a map. It is the default store: all
// consistency in this server is local to one process, so durable media is
// optional.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]Record
	watchers *watcherSet
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]Record),
		watchers: newWatcherSet(),
	}
}

// Exists reports whether a record is stored under id.
func (s *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[id]
	return ok, nil
}

// Load reads the full record, or ErrNotFound.
func (s *MemoryStore) Load(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Snapshot = append([]byte(nil), rec.Snapshot...)
	return rec, nil
}

// Save overwrites the record and notifies watchers of its id.
func (s *MemoryStore) Save(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored := rec
	stored.Snapshot = append([]byte(nil), rec.Snapshot...)

	s.mu.Lock()
	s.records[rec.ID] = stored
	s.mu.Unlock()

	s.watchers.notify(stored)
	return nil
}

// Delete removes the record if present.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.records, id)
	s.mu.Unlock()
	return nil
}

// List returns the ids of all stored records.
func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	return ids, nil
}

// Watch subscribes to saves under id until ctx is done.
func (s *MemoryStore) Watch(ctx context.Context, id string) (<-chan Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.watchers.watch(ctx, id), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
