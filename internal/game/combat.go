package game

// RandSource is the subset of math/rand the game logic draws from. Tests
// substitute a scripted source for deterministic outcomes.
type RandSource interface {
	Float64() float64
	Intn(n int) int
}

// CombatResolver computes hit/miss and damage for an attack.
type CombatResolver struct {
	rng RandSource
}

// NewCombatResolver creates a resolver drawing rolls from rng.
func NewCombatResolver(rng RandSource) *CombatResolver {
	return &CombatResolver{rng: rng}
}

// HitChance returns the probability of hitting a victim standing on terrain
// with the given modifier: 1 - 0.5/(g+1). Flat terrain (g=0) is a coin
// flip; higher modifiers approach certainty.
func HitChance(terrain int) float64 {
	return 1 - 0.5/float64(terrain+1)
}

// Damage returns the damage dealt across the given distance. Closer attacks
// hit harder; distinct cells are at least 1 apart so damage never exceeds 1.
func Damage(distance float64) float64 {
	return 1 / distance
}

// Resolve rolls the attack of attacker against victim standing on terrain.
// Damage is zero on a miss.
func (c *CombatResolver) Resolve(attacker, victim *Player, terrain int) (hit bool, damage float64) {
	if c.rng.Float64() >= HitChance(terrain) {
		return false, 0
	}
	return true, Damage(Distance(attacker.X, attacker.Y, victim.X, victim.Y))
}
