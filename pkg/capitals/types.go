// Package capitals holds the pure rules for faction capitals and their garrisons.
// It does no I/O and no logging.
package capitals

import (
	"fmt"
	"strings"
)

// FactionID identifies a top-level political faction (kingdom).
type FactionID string

// SettlementID identifies a settlement (town or castle).
type SettlementID string

// ClanID identifies a member-group of a faction.
type ClanID string

// HeroID identifies a person in the host world.
type HeroID string

// CultureID identifies a culture, which owns a troop tree.
type CultureID string

// UnitID identifies a troop type in a culture's upgrade graph.
type UnitID string

// ChangeCause describes why a settlement changed owner.
type ChangeCause string

const (
	CauseSiege     ChangeCause = "siege"
	CauseBarter    ChangeCause = "barter"
	CauseRebellion ChangeCause = "rebellion"
	CauseGift      ChangeCause = "gift"
	CauseGrant     ChangeCause = "grant"
	CauseOther     ChangeCause = "other"
)

// IsConquest reports whether the cause can trigger capital conquest handling.
// Gifts, grants and anything unrecognised never do.
func (c ChangeCause) IsConquest() bool {
	switch c {
	case CauseSiege, CauseBarter, CauseRebellion:
		return true
	default:
		return false
	}
}

// ParseChangeCause maps a wire string to a ChangeCause. "purchase" is accepted as an
// alias for barter.
func ParseChangeCause(s string) (ChangeCause, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "siege", "by_siege":
		return CauseSiege, nil
	case "barter", "purchase", "by_barter":
		return CauseBarter, nil
	case "rebellion", "by_rebellion":
		return CauseRebellion, nil
	case "gift", "by_gift":
		return CauseGift, nil
	case "grant", "by_grant":
		return CauseGrant, nil
	case "other", "default", "":
		return CauseOther, nil
	default:
		return "", fmt.Errorf("unknown change cause %q", s)
	}
}

// Entry is one faction -> capital mapping.
type Entry struct {
	Faction    FactionID    `json:"faction"`
	Settlement SettlementID `json:"settlement"`
}
