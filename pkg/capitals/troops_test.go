package capitals

import (
	"math/rand"
	"testing"
)

func TestTroopTier(t *testing.T) {
	tests := []struct {
		name       string
		prosperity float64
		perTier    int
		maxTier    int
		want       int
	}{
		{"just below first boundary", 2499, 2500, 6, 0},
		{"exactly at first boundary", 2500, 2500, 6, 1},
		{"exactly at third boundary", 7500, 2500, 6, 3},
		{"clamped to max", 20000, 2500, 6, 6},
		{"zero prosperity", 0, 2500, 6, 0},
		{"negative prosperity", -300, 2500, 6, 0},
		{"lower max tier", 20000, 2500, 2, 2},
		{"zero divisor treated as one", 3, 0, 6, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TroopTier(tt.prosperity, tt.perTier, tt.maxTier); got != tt.want {
				t.Errorf("TroopTier(%v, %d, %d) = %d, want %d", tt.prosperity, tt.perTier, tt.maxTier, got, tt.want)
			}
		})
	}
}

func testTree() *TroopTree {
	return &TroopTree{
		Base: map[CultureID]UnitID{
			"vlandia": "vlandian_recruit",
			"empty":   "",
		},
		Upgrades: map[UnitID][]UnitID{
			"vlandian_recruit":  {"vlandian_footman", "vlandian_levy_crossbowman"},
			"vlandian_footman":  {"vlandian_infantry"},
			"vlandian_infantry": {"vlandian_sergeant"},
			// crossbow line ends early
			"vlandian_levy_crossbowman": {"vlandian_crossbowman"},
		},
	}
}

func TestSelectUnitTierZeroIsBase(t *testing.T) {
	u, reached, ok := SelectUnit(testTree(), "vlandia", 0, rand.New(rand.NewSource(1)))
	if !ok || u != "vlandian_recruit" || reached != 0 {
		t.Errorf("expected base unit at depth 0, got %s depth %d ok=%v", u, reached, ok)
	}
}

func TestSelectUnitStopsAtEndOfLine(t *testing.T) {
	tree := testTree()
	for seed := int64(0); seed < 20; seed++ {
		u, reached, ok := SelectUnit(tree, "vlandia", 6, rand.New(rand.NewSource(seed)))
		if !ok {
			t.Fatal("expected a unit")
		}
		switch u {
		case "vlandian_sergeant":
			if reached != 3 {
				t.Errorf("infantry line should stop at depth 3, got %d", reached)
			}
		case "vlandian_crossbowman":
			if reached != 2 {
				t.Errorf("crossbow line should stop at depth 2, got %d", reached)
			}
		default:
			t.Errorf("unexpected unit %s at depth %d", u, reached)
		}
	}
}

func TestSelectUnitBranchesBothWays(t *testing.T) {
	tree := testTree()
	rng := rand.New(rand.NewSource(42))
	seen := make(map[UnitID]bool)
	for i := 0; i < 200; i++ {
		u, _, _ := SelectUnit(tree, "vlandia", 1, rng)
		seen[u] = true
	}
	if !seen["vlandian_footman"] || !seen["vlandian_levy_crossbowman"] {
		t.Errorf("expected both branches to be chosen, saw %v", seen)
	}
}

func TestSelectUnitDeterministicWithSeed(t *testing.T) {
	tree := testTree()
	a, _, _ := SelectUnit(tree, "vlandia", 4, rand.New(rand.NewSource(7)))
	b, _, _ := SelectUnit(tree, "vlandia", 4, rand.New(rand.NewSource(7)))
	if a != b {
		t.Errorf("same seed should pick the same unit: %s vs %s", a, b)
	}
}

func TestSelectUnitUnknownCulture(t *testing.T) {
	if _, _, ok := SelectUnit(testTree(), "khuzait", 2, nil); ok {
		t.Error("culture without a base unit should not resolve")
	}
	if _, _, ok := SelectUnit(testTree(), "empty", 2, nil); ok {
		t.Error("empty base unit should not resolve")
	}
	if _, _, ok := SelectUnit(nil, "vlandia", 2, nil); ok {
		t.Error("nil tree should not resolve")
	}
}

func TestFoodCredit(t *testing.T) {
	tests := []struct {
		members    int
		multiplier float64
		want       float64
	}{
		{100, 0.5, 50},
		{40, 0.25, 30},
		{100, 1.0, 0},
		{100, 1.5, 0},
		{0, 0.5, 0},
	}
	for _, tt := range tests {
		if got := FoodCredit(tt.members, tt.multiplier); got != tt.want {
			t.Errorf("FoodCredit(%d, %v) = %v, want %v", tt.members, tt.multiplier, got, tt.want)
		}
	}
}

func TestModifiersFor(t *testing.T) {
	c := ModifiersFor(true)
	if c.AutoRecruitment || !c.FreeGarrisonWages || c.DailyProjectMultiplier != 2 || c.MaxBuildingLevel != 5 {
		t.Errorf("unexpected capital modifiers: %+v", c)
	}
	n := ModifiersFor(false)
	if !n.AutoRecruitment || n.FreeGarrisonWages || n.DailyProjectMultiplier != 1 || n.MaxBuildingLevel != 3 {
		t.Errorf("unexpected settlement modifiers: %+v", n)
	}
}
