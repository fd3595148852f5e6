package capitals

// Building level caps.
const (
	CapitalMaxBuildingLevel = 5
	DefaultMaxBuildingLevel = 3
)

// Modifiers describes how the host's economy models treat a settlement because of
// its capital status.
type Modifiers struct {
	IsCapital bool `json:"is_capital"`
	// AutoRecruitment is false for capitals; their garrison grows through daily
	// reinforcement instead.
	AutoRecruitment bool `json:"auto_recruitment"`
	// FreeGarrisonWages removes garrison wages and the party wage limit.
	FreeGarrisonWages bool `json:"free_garrison_wages"`
	// DailyProjectMultiplier scales the effect of daily_* building projects.
	DailyProjectMultiplier float64 `json:"daily_project_multiplier"`
	MaxBuildingLevel       int     `json:"max_building_level"`
}

// ModifiersFor returns the modifiers for a settlement.
func ModifiersFor(isCapital bool) Modifiers {
	if !isCapital {
		return Modifiers{
			AutoRecruitment:        true,
			DailyProjectMultiplier: 1,
			MaxBuildingLevel:       DefaultMaxBuildingLevel,
		}
	}
	return Modifiers{
		IsCapital:              true,
		AutoRecruitment:        false,
		FreeGarrisonWages:      true,
		DailyProjectMultiplier: 2,
		MaxBuildingLevel:       CapitalMaxBuildingLevel,
	}
}
