package game

import (
	"math"
	"testing"
)

func TestHitChance(t *testing.T) {
	if got := HitChance(0); got != 0.5 {
		t.Errorf("HitChance(0) = %v, want 0.5", got)
	}
	if got := HitChance(1); got != 0.75 {
		t.Errorf("HitChance(1) = %v, want 0.75", got)
	}
	// Monotonically increasing, asymptotically approaching 1.
	prev := 0.0
	for g := 0; g < 50; g++ {
		hc := HitChance(g)
		if hc <= prev || hc >= 1 {
			t.Fatalf("HitChance(%d) = %v, want in (%v, 1)", g, hc, prev)
		}
		prev = hc
	}
}

func TestDamageByDistance(t *testing.T) {
	if got := Damage(1); got != 1 {
		t.Errorf("Damage(1) = %v, want 1", got)
	}
	if got := Damage(2); got != 0.5 {
		t.Errorf("Damage(2) = %v, want 0.5", got)
	}
	if got := Damage(math.Sqrt2); math.Abs(got-1/math.Sqrt2) > 1e-12 {
		t.Errorf("Damage(sqrt2) = %v, want 1/sqrt2", got)
	}
}

func TestResolveMiss(t *testing.T) {
	// Roll 0.6 >= 0.5 hit chance on flat terrain: miss, zero damage.
	resolver := NewCombatResolver(&scriptedRand{floats: []float64{0.6}})
	attacker := &Player{ID: 1, X: 1, Y: 1, Life: 1}
	victim := &Player{ID: 2, X: 1, Y: 2, Life: 1}

	hit, damage := resolver.Resolve(attacker, victim, 0)
	if hit {
		t.Error("expected a miss")
	}
	if damage != 0 {
		t.Errorf("miss damage = %v, want 0", damage)
	}
}

func TestResolveHit(t *testing.T) {
	resolver := NewCombatResolver(&scriptedRand{floats: []float64{0.4}})
	attacker := &Player{ID: 1, X: 1, Y: 1, Life: 1}
	victim := &Player{ID: 2, X: 4, Y: 5, Life: 1}

	hit, damage := resolver.Resolve(attacker, victim, 0)
	if !hit {
		t.Fatal("expected a hit")
	}
	// Distance (1,1)->(4,5) is 5, so damage is 0.2.
	if math.Abs(damage-0.2) > 1e-12 {
		t.Errorf("damage = %v, want 0.2", damage)
	}
	if damage <= 0 || damage > 1 {
		t.Errorf("hit damage %v outside (0,1]", damage)
	}
}

func TestResolveTerrainRaisesHitChance(t *testing.T) {
	// 0.6 misses on flat terrain but hits on modifier 2 (chance ~0.833).
	resolver := NewCombatResolver(&scriptedRand{floats: []float64{0.6}})
	attacker := &Player{ID: 1, X: 0, Y: 0, Life: 1}
	victim := &Player{ID: 2, X: 0, Y: 1, Life: 1}

	if hit, _ := resolver.Resolve(attacker, victim, 2); !hit {
		t.Error("roll 0.6 should hit on terrain modifier 2")
	}
}
