package config

import "github.com/freeeve/kingdom-capitals/pkg/capitals"

// Bounds applied by Validate.
const (
	MaxDailyReinforcement = 10
	MaxFoodMultiplier     = 2.0
)

// Settings is the read-only snapshot of gameplay flags handed to a session. It is a
// value type: copies never alias each other.
type Settings struct {
	EnableCapitalConquest       bool `env:"ENABLE_CAPITAL_CONQUEST" envDefault:"true" json:"enable_capital_conquest"`
	TransferCapitalToRulingClan bool `env:"TRANSFER_CAPITAL_TO_RULING_CLAN" envDefault:"true" json:"transfer_capital_to_ruling_clan"`
	VassalizeDefeatedClans      bool `env:"VASSALIZE_DEFEATED_CLANS" envDefault:"true" json:"vassalize_defeated_clans"`
	EnableConquestNotifications bool `env:"ENABLE_CONQUEST_NOTIFICATIONS" envDefault:"true" json:"enable_conquest_notifications"`
	EnableGarrisonReinforcement bool `env:"ENABLE_GARRISON_REINFORCEMENT" envDefault:"true" json:"enable_garrison_reinforcement"`

	DailyGarrisonReinforcement        int     `env:"DAILY_GARRISON_REINFORCEMENT" envDefault:"3" json:"daily_garrison_reinforcement"`
	GarrisonFoodConsumptionMultiplier float64 `env:"GARRISON_FOOD_CONSUMPTION_MULTIPLIER" envDefault:"0.5" json:"garrison_food_consumption_multiplier"`
	ProsperityPerTroopTier            int     `env:"PROSPERITY_PER_TROOP_TIER" envDefault:"2500" json:"prosperity_per_troop_tier"`
	MaxTroopTier                      int     `env:"MAX_TROOP_TIER" envDefault:"6" json:"max_troop_tier"`
	RecentlyCapturedDays              uint64  `env:"RECENTLY_CAPTURED_DAYS" envDefault:"1" json:"recently_captured_days"`
}

// DefaultSettings mirrors the envDefault tags.
func DefaultSettings() Settings {
	return Settings{
		EnableCapitalConquest:             true,
		TransferCapitalToRulingClan:       true,
		VassalizeDefeatedClans:            true,
		EnableConquestNotifications:       true,
		EnableGarrisonReinforcement:       true,
		DailyGarrisonReinforcement:        3,
		GarrisonFoodConsumptionMultiplier: 0.5,
		ProsperityPerTroopTier:            capitals.DefaultProsperityPerTier,
		MaxTroopTier:                      capitals.DefaultMaxTroopTier,
		RecentlyCapturedDays:              capitals.DefaultRecentlyCapturedDays,
	}
}

// Validate returns a copy with out-of-range values clamped.
func (s Settings) Validate() Settings {
	if s.ProsperityPerTroopTier < 1 {
		s.ProsperityPerTroopTier = 1
	}
	if s.MaxTroopTier < capitals.MinTroopTier {
		s.MaxTroopTier = capitals.MinTroopTier
	}
	s.GarrisonFoodConsumptionMultiplier = clamp(s.GarrisonFoodConsumptionMultiplier, 0, MaxFoodMultiplier)
	if s.DailyGarrisonReinforcement < 0 {
		s.DailyGarrisonReinforcement = 0
	}
	if s.DailyGarrisonReinforcement > MaxDailyReinforcement {
		s.DailyGarrisonReinforcement = MaxDailyReinforcement
	}
	if s.RecentlyCapturedDays < 1 {
		s.RecentlyCapturedDays = 1
	}
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v != v || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
