package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypePlayerJoined
	EventTypePlayerLeft
	EventTypeGameStarted
	EventTypeTurnChanged
	EventTypePlayerMoved
	EventTypeAttackResolved
	EventTypePlayerEliminated
	EventTypeGameFinished
)

// EventVersion for backwards compatibility on the wire
const EventVersion uint8 = 1

// Event is one entry in a session's append-only log. Sequence is assigned by
// the log on append and doubles as the subscriber cursor.
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"type"`
	Name      string          `json:"event"`
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`
	SessionID string          `json:"sessionId"`
	PlayerID  int             `json:"playerId"` // acting player, 0 for none
	Payload   json.RawMessage `json:"payload"`
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypePlayerJoined:
		return "player_joined"
	case EventTypePlayerLeft:
		return "player_left"
	case EventTypeGameStarted:
		return "game_started"
	case EventTypeTurnChanged:
		return "turn_changed"
	case EventTypePlayerMoved:
		return "player_moved"
	case EventTypeAttackResolved:
		return "attack_resolved"
	case EventTypePlayerEliminated:
		return "player_eliminated"
	case EventTypeGameFinished:
		return "game_finished"
	default:
		return "unknown"
	}
}

// Typed payloads for each event type

// PlayerJoinedPayload announces a new lobby member.
type PlayerJoinedPayload struct {
	PlayerID  int    `json:"playerId"`
	ColorSlot int    `json:"colorSlot"`
	Color     string `json:"color"`
	Players   int    `json:"players"`
}

// PlayerLeftPayload announces a departed member.
type PlayerLeftPayload struct {
	PlayerID int `json:"playerId"`
	Players  int `json:"players"`
}

// GameStartedPayload carries the full session snapshot. This is the one push
// that is a snapshot rather than a delta: clients have no prior state to
// diff against at start.
type GameStartedPayload struct {
	Snapshot Snapshot `json:"snapshot"`
}

// TurnChangedPayload names the new turn holder.
type TurnChangedPayload struct {
	PlayerID int `json:"playerId"`
	Actions  int `json:"actions"`
}

// PlayerMovedPayload records a completed move.
type PlayerMovedPayload struct {
	PlayerID int `json:"playerId"`
	FromX    int `json:"fromX"`
	FromY    int `json:"fromY"`
	ToX      int `json:"toX"`
	ToY      int `json:"toY"`
}

// AttackResolvedPayload records an attack outcome. Misses are observable
// events too, not silent.
type AttackResolvedPayload struct {
	AttackerID int     `json:"attackerId"`
	VictimID   int     `json:"victimId"`
	Hit        bool    `json:"hit"`
	Damage     float64 `json:"damage"`
	VictimLife float64 `json:"victimLife"`
}

// PlayerEliminatedPayload records a player removed at zero life.
type PlayerEliminatedPayload struct {
	PlayerID int `json:"playerId"`
	ByID     int `json:"byId"`
}

// GameFinishedPayload names the last living player.
type GameFinishedPayload struct {
	WinnerID int `json:"winnerId"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) json.RawMessage {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp. Sequence is left
// for the log to assign.
func NewEvent(eventType EventType, sessionID string, playerID int, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Name:      eventType.String(),
		Timestamp: time.Now().UnixNano(),
		SessionID: sessionID,
		PlayerID:  playerID,
		Payload:   EncodePayload(payload),
	}
}
