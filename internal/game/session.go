package game

import (
	"math/rand"
	"sync"
	"time"
)

// State is the session lifecycle state.
type State uint8

const (
	StateLobby State = iota
	StateActive
	StateFinished
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateLobby:
		return "lobby"
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Config holds per-session gameplay settings.
type Config struct {
	GridWidth       int
	GridHeight      int
	ActionsPerRound int
	MaxPlayers      int
	TerrainMax      int // max terrain modifier, 0 for a flat map
	Rand            RandSource
}

func (c Config) withDefaults() Config {
	if c.GridWidth <= 0 {
		c.GridWidth = 5
	}
	if c.GridHeight <= 0 {
		c.GridHeight = 5
	}
	if c.ActionsPerRound <= 0 {
		c.ActionsPerRound = 2
	}
	if c.MaxPlayers <= 0 || c.MaxPlayers > MaxPlayers {
		c.MaxPlayers = MaxPlayers
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return c
}

// Session is one game instance: grid, players, turn state and event log.
// Every mutating operation runs under one mutex so it is atomic with respect
// to other operations on the same session; operations on different sessions
// never contend. Nothing here blocks on I/O while the lock is held —
// mutation appends to the log and returns, delivery is the subscribers'
// problem.
type Session struct {
	mu sync.Mutex

	id        string
	name      string
	createdAt time.Time
	startedAt time.Time

	cfg     Config
	grid    *Grid
	players []*Player // join order; order drives turn rotation
	turns   *TurnEngine
	combat  *CombatResolver
	rng     RandSource

	state    State
	winnerID int

	log *Log
}

// NewSession creates an empty lobby session. The creator joins through Join
// like everyone else.
func NewSession(id, name string, cfg Config) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		id:        id,
		name:      name,
		createdAt: time.Now(),
		cfg:       cfg,
		grid:      NewTerrainGrid(cfg.GridWidth, cfg.GridHeight, cfg.TerrainMax, cfg.Rand),
		turns:     NewTurnEngine(cfg.ActionsPerRound),
		combat:    NewCombatResolver(cfg.Rand),
		rng:       cfg.Rand,
		state:     StateLobby,
		log:       NewLog(),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Name returns the normalized session name.
func (s *Session) Name() string { return s.name }

// CreatedAt returns the creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Log returns the session's event log for subscription.
func (s *Session) Log() *Log { return s.log }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PlayerCount returns the number of present players.
func (s *Session) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// MaxPlayers returns the session's player cap.
func (s *Session) MaxPlayers() int { return s.cfg.MaxPlayers }

// WinnerID returns the winner's player id, 0 unless Finished via
// elimination.
func (s *Session) WinnerID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winnerID
}

// TurnPlayerID returns the current turn holder's id, 0 when not active.
func (s *Session) TurnPlayerID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns.HolderID()
}

// HasPlayer reports whether the player is present.
func (s *Session) HasPlayer(playerID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerByID(playerID) != nil
}

// Join adds a player to the lobby, assigning the lowest unused color slot.
func (s *Session) Join(playerID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLobby {
		return ErrAlreadyStarted
	}
	if len(s.players) >= s.cfg.MaxPlayers {
		return ErrFull
	}
	if s.playerByID(playerID) != nil {
		return ErrAlreadyJoined
	}

	p := NewPlayer(playerID, s.freeColorSlot())
	s.players = append(s.players, p)
	s.log.Append(NewEvent(EventTypePlayerJoined, s.id, playerID, PlayerJoinedPayload{
		PlayerID:  playerID,
		ColorSlot: p.ColorSlot,
		Color:     p.Color(),
		Players:   len(s.players),
	}))
	return nil
}

// Leave removes a player in any state. If the leaver held the turn, the turn
// advances from their former position in join order. Returns true when the
// session is now empty and should be destroyed by the registry.
func (s *Session) Leave(playerID int) (empty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.players, playerID)
	if idx < 0 {
		return len(s.players) == 0
	}
	heldTurn := s.turns.HolderID() == playerID
	s.removePlayerAt(idx)

	if len(s.players) == 0 {
		return true
	}

	events := []Event{NewEvent(EventTypePlayerLeft, s.id, playerID, PlayerLeftPayload{
		PlayerID: playerID,
		Players:  len(s.players),
	})}
	if s.state == StateActive && heldTurn {
		if holder, ok := s.turns.HolderRemoved(s.players, idx); ok {
			events = append(events, s.turnChangedEvent(holder))
		}
	}
	s.log.Append(events...)
	return false
}

// Start moves the session from lobby to active: every player gets a distinct
// random cell, the first joiner gets the turn, quotas reset. Only a member
// may start, and only once.
func (s *Session) Start(playerID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playerByID(playerID) == nil {
		return ErrNotAMember
	}
	if s.state != StateLobby {
		return ErrAlreadyStarted
	}
	if len(s.players) < 2 {
		return ErrNotEnoughPlayers
	}

	s.placePlayers()
	s.state = StateActive
	s.startedAt = time.Now()
	s.turns.Begin(s.players)

	s.log.Append(NewEvent(EventTypeGameStarted, s.id, playerID, GameStartedPayload{
		Snapshot: s.snapshotLocked(),
	}))
	return nil
}

// Move relocates the turn holder to an empty interior cell and consumes one
// action. Failed validation consumes nothing.
func (s *Session) Move(playerID, x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.gate(playerID)
	if err != nil {
		return err
	}
	if !s.grid.InInterior(x, y) {
		return ErrOutOfBounds
	}
	if s.playerAt(x, y) != nil {
		return ErrCellOccupied
	}

	fromX, fromY := p.X, p.Y
	p.X, p.Y = x, y

	events := []Event{NewEvent(EventTypePlayerMoved, s.id, playerID, PlayerMovedPayload{
		PlayerID: playerID,
		FromX:    fromX,
		FromY:    fromY,
		ToX:      x,
		ToY:      y,
	})}
	events = s.consumeAction(events)
	s.log.Append(events...)
	return nil
}

// Attack resolves an attack by the turn holder against the player at the
// target cell. A resolved attack consumes one action whether it hits or
// misses; a missing target consumes nothing.
func (s *Session) Attack(playerID, x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	attacker, err := s.gate(playerID)
	if err != nil {
		return err
	}
	victim := s.playerAt(x, y)
	if victim == nil || victim.ID == attacker.ID {
		return ErrNoTarget
	}

	hit, damage := s.combat.Resolve(attacker, victim, s.grid.ValueAt(victim.X, victim.Y))
	if hit {
		victim.Life -= damage
	}

	events := []Event{NewEvent(EventTypeAttackResolved, s.id, playerID, AttackResolvedPayload{
		AttackerID: attacker.ID,
		VictimID:   victim.ID,
		Hit:        hit,
		Damage:     damage,
		VictimLife: victim.Life,
	})}

	if !victim.Alive() {
		idx := indexOf(s.players, victim.ID)
		s.removePlayerAt(idx)
		events = append(events, NewEvent(EventTypePlayerEliminated, s.id, playerID, PlayerEliminatedPayload{
			PlayerID: victim.ID,
			ByID:     attacker.ID,
		}))
		if len(s.players) == 1 {
			s.state = StateFinished
			s.winnerID = s.players[0].ID
			events = append(events, NewEvent(EventTypeGameFinished, s.id, s.winnerID, GameFinishedPayload{
				WinnerID: s.winnerID,
			}))
		}
	}

	if s.state == StateActive {
		events = s.consumeAction(events)
	}
	s.log.Append(events...)
	return nil
}

// Snapshot returns a copy of the full session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// gate checks the shared move/attack preconditions, in order: session
// active, caller present, caller holds the turn.
func (s *Session) gate(playerID int) (*Player, error) {
	if s.state != StateActive {
		return nil, ErrNotActive
	}
	p := s.playerByID(playerID)
	if p == nil {
		return nil, ErrNotAMember
	}
	if s.turns.HolderID() != playerID {
		return nil, ErrNotYourTurn
	}
	return p, nil
}

// consumeAction spends one action and appends a TurnChanged event when the
// turn rotates.
func (s *Session) consumeAction(events []Event) []Event {
	if rotated, holder := s.turns.ConsumeAction(s.players); rotated {
		events = append(events, s.turnChangedEvent(holder))
	}
	return events
}

func (s *Session) turnChangedEvent(holderID int) Event {
	return NewEvent(EventTypeTurnChanged, s.id, holderID, TurnChangedPayload{
		PlayerID: holderID,
		Actions:  s.turns.Quota(),
	})
}

// placePlayers assigns each player a distinct random cell by rejection
// sampling. Terminates quickly since player count is far below cell count.
func (s *Session) placePlayers() {
	occupied := make(map[int]bool, len(s.players))
	for _, p := range s.players {
		for {
			x := s.rng.Intn(s.grid.Width)
			y := s.rng.Intn(s.grid.Height)
			if cell := s.grid.Index(x, y); !occupied[cell] {
				occupied[cell] = true
				p.X, p.Y = x, y
				break
			}
		}
	}
}

func (s *Session) playerByID(id int) *Player {
	i := indexOf(s.players, id)
	if i < 0 {
		return nil
	}
	return s.players[i]
}

// playerAt returns the living player occupying (x, y). Only meaningful once
// the game is active, since lobby positions are undefined.
func (s *Session) playerAt(x, y int) *Player {
	if s.state != StateActive {
		return nil
	}
	for _, p := range s.players {
		if p.X == x && p.Y == y {
			return p
		}
	}
	return nil
}

func (s *Session) freeColorSlot() int {
	taken := make(map[int]bool, len(s.players))
	for _, p := range s.players {
		taken[p.ColorSlot] = true
	}
	for slot := 0; slot < s.cfg.MaxPlayers; slot++ {
		if !taken[slot] {
			return slot
		}
	}
	return 0
}

func (s *Session) removePlayerAt(idx int) {
	s.players = append(s.players[:idx], s.players[idx+1:]...)
}

func (s *Session) snapshotLocked() Snapshot {
	players := make([]PlayerSnapshot, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, PlayerSnapshot{
			ID:        p.ID,
			X:         p.X,
			Y:         p.Y,
			Life:      p.Life,
			Actions:   p.ActionsRemaining,
			ColorSlot: p.ColorSlot,
			Color:     p.Color(),
		})
	}
	grid := Grid{Width: s.grid.Width, Height: s.grid.Height, Cells: append([]int(nil), s.grid.Cells...)}
	return Snapshot{
		ID:           s.id,
		Name:         s.name,
		State:        s.state.String(),
		CreatedAt:    s.createdAt,
		StartedAt:    s.startedAt,
		MaxPlayers:   s.cfg.MaxPlayers,
		Grid:         grid,
		Players:      players,
		TurnPlayerID: s.turns.HolderID(),
		WinnerID:     s.winnerID,
	}
}
