package capitals

import "sort"

// defaultCapitals maps each stock faction to the settlement it starts with as capital.
var defaultCapitals = map[FactionID]SettlementID{
	"battania": "town_B1",  // Marunath
	"vlandia":  "town_V5",  // Galend
	"aserai":   "town_A1",  // Quyaz
	"sturgia":  "town_S2",  // Balgard
	"khuzait":  "town_K3",  // Makeb
	"empire_w": "town_EW3", // Jalmarys
	"empire":   "town_EN2", // Diathma
	"empire_s": "town_ES4", // Lycaron
}

// DefaultCapital returns the canonical home settlement of a stock faction.
func DefaultCapital(faction FactionID) (SettlementID, bool) {
	s, ok := defaultCapitals[faction]
	return s, ok
}

// IsDefaultCapital reports whether the settlement is any stock faction's home capital.
func IsDefaultCapital(settlement SettlementID) bool {
	for _, s := range defaultCapitals {
		if s == settlement {
			return true
		}
	}
	return false
}

// DefaultFactionFor returns the stock faction whose home capital is settlement.
func DefaultFactionFor(settlement SettlementID) (FactionID, bool) {
	for f, s := range defaultCapitals {
		if s == settlement {
			return f, true
		}
	}
	return "", false
}

// DefaultEntries returns the whole default table sorted by faction.
func DefaultEntries() []Entry {
	out := make([]Entry, 0, len(defaultCapitals))
	for f, s := range defaultCapitals {
		out = append(out, Entry{Faction: f, Settlement: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Faction < out[j].Faction })
	return out
}
