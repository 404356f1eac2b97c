// Package registry owns the set of live sessions: creation, lookup,
// listing, membership changes and destruction. It is the only component
// holding the session index, guarded by its own mutex held just for index
// mutation — gameplay inside a session never blocks the registry.
package registry

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"grid-arena/internal/game"
	"grid-arena/internal/storage"
)

// Registry-level errors; error text is the wire-visible message.
var (
	ErrNotFound         = errors.New("game does not exist")
	ErrNameTaken        = errors.New("game name already in use")
	ErrDuplicateSession = errors.New("you already created a game")
	ErrMissingName      = errors.New("missing name")
	ErrNoGames          = errors.New("no games available")
	ErrTooManyGames     = errors.New("too many games, please wait some time and retry")
)

const (
	// MaxSessions caps the live session count surfaced by list.
	MaxSessions = 999
	// MaxNameLength caps normalized session names.
	MaxNameLength = 32
	// DefaultSessionTTL is how long an unstarted session may idle before
	// lazy eviction.
	DefaultSessionTTL = 24 * time.Hour
)

// Summary is one row of a lobby listing.
type Summary struct {
	ID         string `json:"gameId"`
	Name       string `json:"name"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
}

// Config holds registry settings.
type Config struct {
	Game       game.Config   // per-session gameplay settings
	SessionTTL time.Duration // expiry age for unstarted sessions

	// OnDestroy is called after a session leaves the index, outside the
	// registry lock. Used to tear down notification subscriptions.
	OnDestroy func(sessionID string)

	// Clock overrides time.Now, for expiry tests.
	Clock func() time.Time
}

// Registry creates, finds, lists and expires sessions, and enforces
// name uniqueness among non-finished sessions and one owned session per
// creator. Records are checkpointed to the storage collaborator best-effort;
// a storage failure never fails the game operation.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*game.Session
	owners   map[int]string // creator player id -> owned session id

	store storage.Store
	cfg   Config

	playerSerial atomic.Int64
}

// New creates a registry persisting through store.
func New(cfg Config, store storage.Store) *Registry {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Registry{
		sessions: make(map[string]*game.Session),
		owners:   make(map[int]string),
		store:    store,
		cfg:      cfg,
	}
}

// NextPlayerID hands out process-wide monotonically increasing player ids,
// one per connecting client.
func (r *Registry) NextPlayerID() int {
	return int(r.playerSerial.Add(1))
}

// NormalizeName trims, lowercases and length-caps a session name.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) > MaxNameLength {
		name = name[:MaxNameLength]
	}
	return name
}

// Create allocates a lobby session owned by creatorID, with the creator as
// its first player. The session id derives from the creator's player id.
func (r *Registry) Create(creatorID int, name string) (*game.Session, error) {
	name = NormalizeName(name)
	if name == "" {
		return nil, ErrMissingName
	}

	r.mu.Lock()
	if _, owns := r.owners[creatorID]; owns {
		r.mu.Unlock()
		return nil, ErrDuplicateSession
	}
	for _, s := range r.sessions {
		if s.Name() == name && s.State() != game.StateFinished {
			r.mu.Unlock()
			return nil, ErrNameTaken
		}
	}

	// The creator joins before the session is published to the index, so a
	// concurrent List never observes an empty newborn session and evicts it.
	s := game.NewSession(strconv.Itoa(creatorID), name, r.cfg.Game)
	if err := s.Join(creatorID); err != nil {
		// Freshly created lobby cannot refuse its creator.
		r.mu.Unlock()
		return nil, err
	}
	r.sessions[s.ID()] = s
	r.owners[creatorID] = s.ID()
	r.mu.Unlock()

	r.checkpoint(s)
	log.Printf("🎲 Session %s (%q) created by player %d", s.ID(), name, creatorID)
	return s, nil
}

// Find returns the live session with the given id.
func (r *Registry) Find(id string) (*game.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Join adds a player to a lobby session.
func (r *Registry) Join(sessionID string, playerID int) (*game.Session, error) {
	s, err := r.Find(sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.Join(playerID); err != nil {
		return nil, err
	}
	r.checkpoint(s)
	return s, nil
}

// Leave removes the player from the session in any state, destroying the
// session when it empties.
func (r *Registry) Leave(sessionID string, playerID int) {
	s, err := r.Find(sessionID)
	if err != nil {
		return
	}
	if empty := s.Leave(playerID); empty {
		r.destroy(sessionID)
		log.Printf("🗑️ Session %s destroyed: last player left", sessionID)
		return
	}
	r.checkpoint(s)
}

// Remove tears down the session the creator owns, if any.
func (r *Registry) Remove(creatorID int) {
	r.mu.Lock()
	id, owns := r.owners[creatorID]
	r.mu.Unlock()
	if !owns {
		return
	}
	r.destroy(id)
	log.Printf("🗑️ Session %s removed by its creator", id)
}

// List returns a summary of every joinable session: in the lobby and below
// capacity. As a side effect it lazily evicts expired and empty sessions.
// An empty result is the distinguished ErrNoGames rather than an empty
// slice, matching the wire protocol's "no games available" reply.
func (r *Registry) List() ([]Summary, error) {
	r.snapshotAndEvict()

	r.mu.Lock()
	if len(r.sessions) > MaxSessions {
		r.mu.Unlock()
		return nil, ErrTooManyGames
	}
	summaries := make([]Summary, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s.State() != game.StateLobby {
			continue
		}
		count := s.PlayerCount()
		if count >= s.MaxPlayers() {
			continue
		}
		summaries = append(summaries, Summary{
			ID:         s.ID(),
			Name:       s.Name(),
			Players:    count,
			MaxPlayers: s.MaxPlayers(),
		})
	}
	r.mu.Unlock()

	if len(summaries) == 0 {
		return nil, ErrNoGames
	}
	return summaries, nil
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Checkpoint persists the session's current snapshot, best-effort. The API
// layer calls this after gameplay mutations (start/move/attack) that the
// registry does not mediate.
func (r *Registry) Checkpoint(sessionID string) {
	if s, err := r.Find(sessionID); err == nil {
		r.checkpoint(s)
	}
}

// snapshotAndEvict destroys unstarted sessions past their TTL and any empty
// session encountered. Runs lazily from List.
func (r *Registry) snapshotAndEvict() {
	cutoff := r.cfg.Clock().Add(-r.cfg.SessionTTL)

	r.mu.Lock()
	var evict []string
	for id, s := range r.sessions {
		if s.PlayerCount() == 0 {
			evict = append(evict, id)
			continue
		}
		if s.State() == game.StateLobby && s.CreatedAt().Before(cutoff) {
			evict = append(evict, id)
		}
	}
	r.mu.Unlock()

	for _, id := range evict {
		r.destroy(id)
		log.Printf("🗑️ Session %s evicted: expired or empty", id)
	}
}

// destroy removes the session from the index, its owner mapping and the
// store, then fires OnDestroy.
func (r *Registry) destroy(id string) {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	for owner, owned := range r.owners {
		if owned == id {
			delete(r.owners, owner)
		}
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.store.Delete(ctx, id); err != nil {
		log.Printf("⚠️ Failed to delete stored session %s: %v", id, err)
	}
	if r.cfg.OnDestroy != nil {
		r.cfg.OnDestroy(id)
	}
}

// checkpoint persists the session snapshot. Storage failures are logged and
// swallowed: a broken store must not break gameplay.
func (r *Registry) checkpoint(s *game.Session) {
	snap := s.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.store.Save(ctx, storage.Record{
		ID:        snap.ID,
		Name:      snap.Name,
		State:     snap.State,
		CreatedAt: snap.CreatedAt,
		Snapshot:  game.EncodePayload(snap),
	}); err != nil {
		log.Printf("⚠️ Failed to persist session %s: %v", snap.ID, err)
	}
}
