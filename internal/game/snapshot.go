package game

import "time"

// PlayerSnapshot is the JSON-friendly copy of one player.
type PlayerSnapshot struct {
	ID        int     `json:"id"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Life      float64 `json:"life"`
	Actions   int     `json:"actions"`
	ColorSlot int     `json:"colorSlot"`
	Color     string  `json:"color"`
}

// Snapshot is an immutable copy of a session's full authoritative state,
// pushed on game start and served over the read API.
type Snapshot struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	State        string           `json:"state"`
	CreatedAt    time.Time        `json:"createdAt"`
	StartedAt    time.Time        `json:"startedAt,omitzero"`
	MaxPlayers   int              `json:"maxPlayers"`
	Grid         Grid             `json:"grid"`
	Players      []PlayerSnapshot `json:"players"`
	TurnPlayerID int              `json:"turn"`
	WinnerID     int              `json:"winnerId,omitempty"`
}
