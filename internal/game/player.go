package game

// ColorPalette is the fixed set of player colors. Its size bounds the number
// of players a session can hold: each player owns one slot.
var ColorPalette = []string{
	"#e6194b", // red
	"#3cb44b", // green
	"#4363d8", // blue
	"#ffe119", // yellow
	"#f58231", // orange
	"#911eb4", // purple
	"#42d4f4", // cyan
	"#f032e6", // magenta
}

// MaxPlayers is the per-session player cap, equal to the palette size.
var MaxPlayers = len(ColorPalette)

// Player is one participant in a session. Position is undefined until the
// game starts. Life is in (0,1]; a player whose life drops to zero or below
// is removed from the session, never kept around dead.
type Player struct {
	ID               int     `json:"id"`
	X                int     `json:"x"`
	Y                int     `json:"y"`
	Life             float64 `json:"life"`
	ActionsRemaining int     `json:"actions"`
	ColorSlot        int     `json:"colorSlot"`
}

// NewPlayer creates a player at full life holding the given color slot.
func NewPlayer(id, colorSlot int) *Player {
	return &Player{
		ID:        id,
		Life:      1.0,
		ColorSlot: colorSlot,
	}
}

// Color returns the palette color for the player's slot.
func (p *Player) Color() string {
	return ColorPalette[p.ColorSlot]
}

// Alive reports whether the player still has life left.
func (p *Player) Alive() bool {
	return p.Life > 0
}
