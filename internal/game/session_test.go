package game

import (
	"errors"
	"math"
	"testing"
)

// newArena builds a 5x5 flat session named "arena" with two joined players
// (ids 1 and 2) still in the lobby. Placement and combat rolls come from rng.
func newArena(t *testing.T, rng RandSource) *Session {
	t.Helper()
	s := NewSession("1", "arena", Config{
		GridWidth:       5,
		GridHeight:      5,
		ActionsPerRound: 2,
		Rand:            rng,
	})
	if err := s.Join(1); err != nil {
		t.Fatalf("join player 1: %v", err)
	}
	if err := s.Join(2); err != nil {
		t.Fatalf("join player 2: %v", err)
	}
	return s
}

func eventTypes(s *Session) []EventType {
	events, _ := s.Log().Since(0)
	types := make([]EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

func lastEvents(s *Session, n int) []Event {
	events, _ := s.Log().Since(0)
	if len(events) < n {
		return events
	}
	return events[len(events)-n:]
}

func playerSnap(t *testing.T, s *Session, id int) PlayerSnapshot {
	t.Helper()
	for _, p := range s.Snapshot().Players {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("player %d not in snapshot", id)
	return PlayerSnapshot{}
}

// assertNoSharedCells checks the standing invariant that no two present
// players occupy the same cell in an active session.
func assertNoSharedCells(t *testing.T, s *Session) {
	t.Helper()
	seen := map[[2]int]int{}
	for _, p := range s.Snapshot().Players {
		key := [2]int{p.X, p.Y}
		if other, ok := seen[key]; ok {
			t.Fatalf("players %d and %d share cell (%d,%d)", other, p.ID, p.X, p.Y)
		}
		seen[key] = p.ID
	}
}

func TestJoinAssignsColorSlotsInOrder(t *testing.T) {
	s := newArena(t, &scriptedRand{})

	if got := playerSnap(t, s, 1).ColorSlot; got != 0 {
		t.Errorf("first joiner slot = %d, want 0", got)
	}
	if got := playerSnap(t, s, 2).ColorSlot; got != 1 {
		t.Errorf("second joiner slot = %d, want 1", got)
	}
}

func TestJoinPreconditions(t *testing.T) {
	s := newArena(t, &scriptedRand{ints: []int{1, 1, 2, 2}})

	if err := s.Join(2); !errors.Is(err, ErrAlreadyJoined) {
		t.Errorf("duplicate join error = %v, want ErrAlreadyJoined", err)
	}
	for id := 3; id <= 8; id++ {
		if err := s.Join(id); err != nil {
			t.Fatalf("join player %d: %v", id, err)
		}
	}
	if err := s.Join(9); !errors.Is(err, ErrFull) {
		t.Errorf("join at capacity error = %v, want ErrFull", err)
	}
	for id := 3; id <= 8; id++ {
		s.Leave(id)
	}
	if err := s.Start(1); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Join(9); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("join after start error = %v, want ErrAlreadyStarted", err)
	}
}

func TestStartPreconditions(t *testing.T) {
	s := NewSession("1", "arena", Config{Rand: &scriptedRand{}})
	if err := s.Join(1); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(7); !errors.Is(err, ErrNotAMember) {
		t.Errorf("start by outsider error = %v, want ErrNotAMember", err)
	}
	if err := s.Start(1); !errors.Is(err, ErrNotEnoughPlayers) {
		t.Errorf("solo start error = %v, want ErrNotEnoughPlayers", err)
	}
	if s.State() != StateLobby {
		t.Error("failed start must leave the session in the lobby")
	}
}

func TestStartPlacesPlayersOnDistinctCells(t *testing.T) {
	// Second player first draws player 1's cell and must redraw.
	rng := &scriptedRand{ints: []int{1, 1, 1, 1, 2, 2}}
	s := newArena(t, rng)

	if err := s.Start(1); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.State() != StateActive {
		t.Fatalf("state = %v, want active", s.State())
	}
	snap := s.Snapshot()
	for _, p := range snap.Players {
		if p.X < 0 || p.X >= 5 || p.Y < 0 || p.Y >= 5 {
			t.Errorf("player %d at (%d,%d) is out of bounds", p.ID, p.X, p.Y)
		}
	}
	assertNoSharedCells(t, s)
	if snap.TurnPlayerID != 1 {
		t.Errorf("turn = %d, want first joiner", snap.TurnPlayerID)
	}
	if err := s.Start(1); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second start error = %v, want ErrAlreadyStarted", err)
	}
}

func TestStartEmitsSnapshotEvent(t *testing.T) {
	s := newArena(t, &scriptedRand{ints: []int{1, 1, 2, 2}})
	if err := s.Start(1); err != nil {
		t.Fatal(err)
	}

	events, _ := s.Log().Since(0)
	last := events[len(events)-1]
	if last.Type != EventTypeGameStarted {
		t.Fatalf("last event = %v, want game_started", last.Type)
	}
	if len(last.Payload) == 0 {
		t.Fatal("game_started event carries no snapshot payload")
	}
}

func TestMoveScenario(t *testing.T) {
	// Players at (1,1) and (2,2).
	s := newArena(t, &scriptedRand{ints: []int{1, 1, 2, 2}})
	if err := s.Start(1); err != nil {
		t.Fatal(err)
	}

	if err := s.Move(2, 3, 3); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("move off-turn error = %v, want ErrNotYourTurn", err)
	}
	if err := s.Move(1, 3, 3); err != nil {
		t.Fatalf("move: %v", err)
	}
	p := playerSnap(t, s, 1)
	if p.X != 3 || p.Y != 3 {
		t.Errorf("player 1 at (%d,%d), want (3,3)", p.X, p.Y)
	}
	if p.Actions != 1 {
		t.Errorf("actions after move = %d, want 1", p.Actions)
	}
	assertNoSharedCells(t, s)

	// Occupied cell: rejected, no action consumed, turn unchanged.
	if err := s.Move(1, 2, 2); !errors.Is(err, ErrCellOccupied) {
		t.Errorf("move onto occupant error = %v, want ErrCellOccupied", err)
	}
	if got := playerSnap(t, s, 1).Actions; got != 1 {
		t.Errorf("failed move consumed an action: %d, want 1", got)
	}
	if s.TurnPlayerID() != 1 {
		t.Errorf("failed move rotated turn to %d", s.TurnPlayerID())
	}
}

func TestMoveBounds(t *testing.T) {
	s := newArena(t, &scriptedRand{ints: []int{1, 1, 2, 2}})
	if err := s.Move(1, 3, 3); !errors.Is(err, ErrNotActive) {
		t.Errorf("move in lobby error = %v, want ErrNotActive", err)
	}
	if err := s.Start(1); err != nil {
		t.Fatal(err)
	}

	// The outermost ring is not playable.
	for _, target := range [][2]int{{0, 3}, {4, 3}, {3, 0}, {3, 4}, {6, 3}} {
		if err := s.Move(1, target[0], target[1]); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("move to (%d,%d) error = %v, want ErrOutOfBounds", target[0], target[1], err)
		}
	}
	if got := playerSnap(t, s, 1).Actions; got != 2 {
		t.Errorf("failed moves consumed actions: %d remaining, want 2", got)
	}
}

func TestMoveQuotaRotatesTurn(t *testing.T) {
	s := newArena(t, &scriptedRand{ints: []int{1, 1, 2, 2}})
	if err := s.Start(1); err != nil {
		t.Fatal(err)
	}

	if err := s.Move(1, 3, 3); err != nil {
		t.Fatal(err)
	}
	if err := s.Move(1, 3, 2); err != nil {
		t.Fatal(err)
	}
	if s.TurnPlayerID() != 2 {
		t.Fatalf("turn = %d after quota spent, want 2", s.TurnPlayerID())
	}
	last := lastEvents(s, 1)[0]
	if last.Type != EventTypeTurnChanged {
		t.Errorf("last event = %v, want turn_changed", last.Type)
	}
	if got := playerSnap(t, s, 2).Actions; got != 2 {
		t.Errorf("new holder actions = %d, want 2", got)
	}
}

func TestAttackNoTarget(t *testing.T) {
	s := newArena(t, &scriptedRand{ints: []int{1, 1, 2, 2}})
	if err := s.Start(1); err != nil {
		t.Fatal(err)
	}

	if err := s.Attack(1, 4, 4); !errors.Is(err, ErrNoTarget) {
		t.Errorf("attack on empty cell error = %v, want ErrNoTarget", err)
	}
	// Targeting your own cell finds nobody either.
	if err := s.Attack(1, 1, 1); !errors.Is(err, ErrNoTarget) {
		t.Errorf("attack on own cell error = %v, want ErrNoTarget", err)
	}
	if got := playerSnap(t, s, 1).Actions; got != 2 {
		t.Errorf("no-target attack consumed actions: %d remaining, want 2", got)
	}
	if s.TurnPlayerID() != 1 {
		t.Errorf("no-target attack rotated turn to %d", s.TurnPlayerID())
	}
}

func TestAttackMissConsumesAction(t *testing.T) {
	// Roll 0.9 misses on flat terrain.
	s := newArena(t, &scriptedRand{ints: []int{1, 1, 2, 2}, floats: []float64{0.9}})
	if err := s.Start(1); err != nil {
		t.Fatal(err)
	}

	if err := s.Attack(1, 2, 2); err != nil {
		t.Fatalf("attack: %v", err)
	}
	last := lastEvents(s, 1)[0]
	if last.Type != EventTypeAttackResolved {
		t.Fatalf("last event = %v, want attack_resolved", last.Type)
	}
	if got := playerSnap(t, s, 2).Life; got != 1 {
		t.Errorf("victim life after miss = %v, want 1", got)
	}
	if got := playerSnap(t, s, 1).Actions; got != 1 {
		t.Errorf("miss did not consume an action: %d remaining, want 1", got)
	}
}

func TestAttackHitDamagesByDistance(t *testing.T) {
	// Players at (1,1) and (2,2): diagonal distance sqrt(2).
	s := newArena(t, &scriptedRand{ints: []int{1, 1, 2, 2}, floats: []float64{0.1}})
	if err := s.Start(1); err != nil {
		t.Fatal(err)
	}

	if err := s.Attack(1, 2, 2); err != nil {
		t.Fatalf("attack: %v", err)
	}
	want := 1 - 1/math.Sqrt2
	if got := playerSnap(t, s, 2).Life; math.Abs(got-want) > 1e-12 {
		t.Errorf("victim life = %v, want %v", got, want)
	}
}

func TestAttackEliminationFinishesGame(t *testing.T) {
	// Players adjacent at (1,1) and (1,2): distance 1, damage 1, lethal.
	s := newArena(t, &scriptedRand{ints: []int{1, 1, 1, 2}, floats: []float64{0.1}})
	if err := s.Start(1); err != nil {
		t.Fatal(err)
	}

	if err := s.Attack(1, 1, 2); err != nil {
		t.Fatalf("attack: %v", err)
	}
	if s.State() != StateFinished {
		t.Fatalf("state = %v, want finished", s.State())
	}
	if s.WinnerID() != 1 {
		t.Errorf("winner = %d, want 1", s.WinnerID())
	}
	if s.PlayerCount() != 1 {
		t.Errorf("player count = %d, want 1 (victim removed, not marked)", s.PlayerCount())
	}

	tail := lastEvents(s, 3)
	want := []EventType{EventTypeAttackResolved, EventTypePlayerEliminated, EventTypeGameFinished}
	for i, typ := range want {
		if tail[i].Type != typ {
			t.Errorf("event %d = %v, want %v", i, tail[i].Type, typ)
		}
	}

	// Terminal state rejects further actions.
	if err := s.Attack(1, 1, 2); !errors.Is(err, ErrNotActive) {
		t.Errorf("attack after finish error = %v, want ErrNotActive", err)
	}
	if err := s.Move(1, 3, 3); !errors.Is(err, ErrNotActive) {
		t.Errorf("move after finish error = %v, want ErrNotActive", err)
	}
}

func TestLifeMonotonicallyDecreases(t *testing.T) {
	// Far apart so repeated hits are survivable: (1,1) vs (4,4) (hypot ~4.24).
	s := newArena(t, &scriptedRand{ints: []int{1, 1, 4, 4}, floats: []float64{0.1}})
	if err := s.Start(1); err != nil {
		t.Fatal(err)
	}

	prev := 1.0
	for i := 0; i < 2; i++ {
		if err := s.Attack(1, 4, 4); err != nil {
			t.Fatalf("attack %d: %v", i, err)
		}
		life := playerSnap(t, s, 2).Life
		if life >= prev {
			t.Errorf("life did not decrease: %v -> %v", prev, life)
		}
		if life <= 0 {
			t.Fatalf("player 2 unexpectedly eliminated at life %v", life)
		}
		prev = life
	}
	// Quota of 2 spent: turn rotated to player 2.
	if s.TurnPlayerID() != 2 {
		t.Errorf("turn = %d after two attacks, want 2", s.TurnPlayerID())
	}
}

func TestLeaveRotatesTurnAwayFromHolder(t *testing.T) {
	s := newArena(t, &scriptedRand{ints: []int{1, 1, 2, 2, 3, 3}})
	if err := s.Join(3); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(1); err != nil {
		t.Fatal(err)
	}

	if empty := s.Leave(1); empty {
		t.Fatal("session with remaining players reported empty")
	}
	if s.TurnPlayerID() != 2 {
		t.Errorf("turn = %d after holder left, want 2", s.TurnPlayerID())
	}
	tail := lastEvents(s, 2)
	if tail[0].Type != EventTypePlayerLeft || tail[1].Type != EventTypeTurnChanged {
		t.Errorf("leave events = %v, %v; want player_left, turn_changed", tail[0].Type, tail[1].Type)
	}
}

func TestLeaveLastPlayerReportsEmpty(t *testing.T) {
	s := NewSession("1", "arena", Config{Rand: &scriptedRand{}})
	if err := s.Join(1); err != nil {
		t.Fatal(err)
	}
	if empty := s.Leave(1); !empty {
		t.Error("last leave should report the session empty for destruction")
	}
}

func TestEliminatedPlayerNeverHoldsTurnAgain(t *testing.T) {
	// Three players: 1 at (1,1), 2 at (1,2), 3 at (3,3). Player 1 kills 2.
	s := newArena(t, &scriptedRand{ints: []int{1, 1, 1, 2, 3, 3}, floats: []float64{0.1}})
	if err := s.Join(3); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(1); err != nil {
		t.Fatal(err)
	}

	if err := s.Attack(1, 1, 2); err != nil {
		t.Fatal(err)
	}
	if s.State() != StateActive {
		t.Fatalf("state = %v, want still active with two players", s.State())
	}
	if s.HasPlayer(2) {
		t.Error("eliminated player still present")
	}
	// Spend remaining quota; rotation must skip straight to player 3.
	if err := s.Move(1, 3, 2); err != nil {
		t.Fatal(err)
	}
	if s.TurnPlayerID() != 3 {
		t.Errorf("turn = %d, want 3 (eliminated id 2 must never reappear)", s.TurnPlayerID())
	}
	assertNoSharedCells(t, s)
}
