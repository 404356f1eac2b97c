package game

import "errors"

// Precondition errors reported to the issuing client. None of these mutate
// session state; the error text is the wire-visible message.
var (
	ErrAlreadyStarted   = errors.New("game already started")
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	ErrFull             = errors.New("already full")
	ErrAlreadyJoined    = errors.New("already in this game")
	ErrNotAMember       = errors.New("you are not part of this game")
	ErrNotActive        = errors.New("game is not running")
	ErrNotYourTurn      = errors.New("it is not your turn")
	ErrOutOfBounds      = errors.New("target outside the playable area")
	ErrCellOccupied     = errors.New("cell is occupied")
	ErrNoTarget         = errors.New("no player at target cell")
)
