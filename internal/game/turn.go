package game

// TurnEngine owns action-quota bookkeeping and round-robin rotation. The
// rotation order is the session's player slice, which is kept in join order;
// removed players are simply absent from it.
type TurnEngine struct {
	quota    int
	holderID int
}

// NewTurnEngine creates a turn engine granting quota actions per turn.
func NewTurnEngine(quota int) *TurnEngine {
	return &TurnEngine{quota: quota}
}

// Quota returns the per-turn action quota.
func (t *TurnEngine) Quota() int {
	return t.quota
}

// HolderID returns the id of the current turn holder, 0 if none.
func (t *TurnEngine) HolderID() int {
	return t.holderID
}

// Begin hands the first turn to the first player in join order and resets
// every player's quota.
func (t *TurnEngine) Begin(players []*Player) int {
	for _, p := range players {
		p.ActionsRemaining = t.quota
	}
	t.holderID = players[0].ID
	return t.holderID
}

// ConsumeAction spends one action of the current holder. When the holder's
// quota hits zero the turn rotates to the next player in circular join
// order, whose quota resets to full. Returns whether rotation happened and
// the holder id afterwards.
func (t *TurnEngine) ConsumeAction(players []*Player) (rotated bool, holderID int) {
	idx := indexOf(players, t.holderID)
	if idx < 0 {
		return false, t.holderID
	}
	holder := players[idx]
	holder.ActionsRemaining--
	if holder.ActionsRemaining > 0 {
		return false, t.holderID
	}
	t.rotateTo(players, (idx+1)%len(players))
	return true, t.holderID
}

// HolderRemoved advances the turn after the current holder left the player
// slice, using the holder's former index as the rotation anchor. players is
// the slice after removal. Returns false when nobody is left to rotate to.
func (t *TurnEngine) HolderRemoved(players []*Player, removedIndex int) (holderID int, ok bool) {
	if len(players) == 0 {
		t.holderID = 0
		return 0, false
	}
	t.rotateTo(players, removedIndex%len(players))
	return t.holderID, true
}

func (t *TurnEngine) rotateTo(players []*Player, idx int) {
	next := players[idx]
	next.ActionsRemaining = t.quota
	t.holderID = next.ID
}

func indexOf(players []*Player, id int) int {
	for i, p := range players {
		if p.ID == id {
			return i
		}
	}
	return -1
}
