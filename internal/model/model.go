package model

import (
	"time"

	"github.com/freeeve/kingdom-capitals/pkg/capitals"
)

// Faction is a top-level political entity as the host world sees it.
type Faction struct {
	ID         capitals.FactionID `json:"id" yaml:"id"`
	Name       string             `json:"name" yaml:"name"`
	Leader     capitals.HeroID    `json:"leader,omitempty" yaml:"leader"`
	RulingClan capitals.ClanID    `json:"ruling_clan,omitempty" yaml:"ruling_clan"`
	Eliminated bool               `json:"eliminated" yaml:"eliminated"`
}

// Clan is a member group of a faction. An empty Faction means the clan is
// independent.
type Clan struct {
	ID         capitals.ClanID    `json:"id" yaml:"id"`
	Name       string             `json:"name" yaml:"name"`
	Leader     capitals.HeroID    `json:"leader" yaml:"leader"`
	Faction    capitals.FactionID `json:"faction,omitempty" yaml:"faction"`
	Vassal     bool               `json:"vassal" yaml:"vassal"`
	Eliminated bool               `json:"eliminated" yaml:"eliminated"`
}

// Hero is a person in the host world. Culture decides which troops a capital
// owned by the hero's clan recruits.
type Hero struct {
	ID      capitals.HeroID    `json:"id" yaml:"id"`
	Name    string             `json:"name" yaml:"name"`
	Clan    capitals.ClanID    `json:"clan,omitempty" yaml:"clan"`
	Culture capitals.CultureID `json:"culture,omitempty" yaml:"culture"`
	Player  bool               `json:"player,omitempty" yaml:"player"`
	Dead    bool               `json:"dead,omitempty" yaml:"dead"`
}

// GarrisonStack is a count of one troop type.
type GarrisonStack struct {
	Unit  capitals.UnitID `json:"unit" yaml:"unit"`
	Count int             `json:"count" yaml:"count"`
}

// Settlement is a town or castle. Its faction derives from its owning clan.
type Settlement struct {
	ID         capitals.SettlementID `json:"id" yaml:"id"`
	Name       string                `json:"name" yaml:"name"`
	OwnerClan  capitals.ClanID       `json:"owner_clan" yaml:"owner_clan"`
	Culture    capitals.CultureID    `json:"culture" yaml:"culture"`
	Food       float64               `json:"food" yaml:"food"`
	Prosperity float64               `json:"prosperity" yaml:"prosperity"`
	Garrison   []GarrisonStack       `json:"garrison,omitempty" yaml:"garrison"`
}

// GarrisonSize returns the total number of troops stationed.
func (s *Settlement) GarrisonSize() int {
	n := 0
	for _, g := range s.Garrison {
		n += g.Count
	}
	return n
}

// Step outcome statuses.
const (
	StepOK      = "ok"
	StepSkipped = "skipped"
	StepFailed  = "failed"
)

// StepResult is the outcome of one capture sub-step.
type StepResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
}

// CaptureRecord is the journal entry for one capture sequence.
type CaptureRecord struct {
	ID         string                `json:"id"`
	Day        uint64                `json:"day"`
	Settlement capitals.SettlementID `json:"settlement"`
	OldFaction capitals.FactionID    `json:"old_faction"`
	NewFaction capitals.FactionID    `json:"new_faction"`
	Capturer   capitals.HeroID       `json:"capturer"`
	Cause      capitals.ChangeCause  `json:"cause"`
	Steps      []StepResult          `json:"steps"`
	CreatedAt  time.Time             `json:"created_at"`
}

// Failed reports whether any step failed.
func (r *CaptureRecord) Failed() bool {
	for _, s := range r.Steps {
		if s.Status == StepFailed {
			return true
		}
	}
	return false
}

// Notification kinds.
const (
	NotifyConquest          = "conquest"
	NotifyPlayerConquest    = "player_conquest"
	NotifyFoundFaction      = "found_faction"
	NotifyPendingClaim      = "pending_claim"
	NotifyCapitalRecognised = "capital_recognised"
)

// Notification is an in-simulation message about capital status.
type Notification struct {
	Kind       string                `json:"kind"`
	Day        uint64                `json:"day"`
	Settlement capitals.SettlementID `json:"settlement,omitempty"`
	Faction    capitals.FactionID    `json:"faction,omitempty"`
	// Hero is set for messages addressed to one player.
	Hero capitals.HeroID `json:"hero,omitempty"`
	Text string          `json:"text"`
}

// CapitalStatus is the API view of one settlement's capital status.
type CapitalStatus struct {
	Settlement       capitals.SettlementID `json:"settlement"`
	Faction          capitals.FactionID    `json:"faction,omitempty"`
	RecentlyCaptured bool                  `json:"recently_captured"`
	capitals.Modifiers
}
