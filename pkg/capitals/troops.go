package capitals

import (
	"math"
	"math/rand"
)

// Troop tier bounds.
const (
	MinTroopTier             = 0
	DefaultMaxTroopTier      = 6
	DefaultProsperityPerTier = 2500
)

// TroopTree is a set of culture troop trees: each culture has a base unit and
// every unit lists the units it can upgrade into.
type TroopTree struct {
	Base     map[CultureID]UnitID `yaml:"base" json:"base"`
	Upgrades map[UnitID][]UnitID  `yaml:"upgrades" json:"upgrades"`
}

// TroopTier maps prosperity to an upgrade depth:
// clamp(floor(prosperity / perTier), 0, maxTier).
func TroopTier(prosperity float64, perTier, maxTier int) int {
	if perTier < 1 {
		perTier = 1
	}
	if maxTier < MinTroopTier {
		maxTier = MinTroopTier
	}
	if math.IsNaN(prosperity) || prosperity <= 0 {
		return MinTroopTier
	}
	tier := math.Floor(prosperity / float64(perTier))
	if tier > float64(maxTier) {
		return maxTier
	}
	return int(tier)
}

// SelectUnit walks culture's upgrade graph tier steps from its base unit. When a
// unit branches, one upgrade is picked uniformly with rng (nil uses the global
// source). The walk stops early at a unit with no upgrades. Returns the unit and
// the depth actually reached; ok is false only when the culture has no base unit.
func SelectUnit(tree *TroopTree, culture CultureID, tier int, rng *rand.Rand) (unit UnitID, reached int, ok bool) {
	if tree == nil {
		return "", 0, false
	}
	current, ok := tree.Base[culture]
	if !ok || current == "" {
		return "", 0, false
	}
	for reached < tier {
		next := tree.Upgrades[current]
		if len(next) == 0 {
			break
		}
		current = next[intn(rng, len(next))]
		reached++
	}
	return current, reached, true
}

func intn(rng *rand.Rand, n int) int {
	if n == 1 {
		return 0
	}
	if rng != nil {
		return rng.Intn(n)
	}
	return rand.Intn(n)
}

// BaseFoodPerMember is the nominal daily food a garrison member eats.
const BaseFoodPerMember = 1.0

// FoodCredit is the food to credit back to a settlement so that a garrison of
// members effectively eats at multiplier times the nominal rate. Multipliers at
// or above 1 credit nothing.
func FoodCredit(members int, multiplier float64) float64 {
	if members <= 0 {
		return 0
	}
	normal := float64(members) * BaseFoodPerMember
	savings := normal - normal*multiplier
	if savings <= 0 {
		return 0
	}
	return savings
}
