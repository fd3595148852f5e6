// Package memory is an in-process host world loaded from a YAML scenario. It backs
// the simulator, the dev server and the service tests.
package memory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/freeeve/kingdom-capitals/internal/model"
	"github.com/freeeve/kingdom-capitals/pkg/capitals"
)

// Script event types.
const (
	EventTick               = "tick"
	EventOwnershipChanged   = "ownership_changed"
	EventLeaderDied         = "leader_died"
	EventClanChangedFaction = "clan_changed_faction"
	EventFoundFaction       = "found_faction"
	EventElectLeader        = "elect_leader"
)

// ScriptEvent is one step of a scenario replay. Which fields apply depends on Type.
type ScriptEvent struct {
	Type       string                `yaml:"type"`
	Days       int                   `yaml:"days,omitempty"`
	Settlement capitals.SettlementID `yaml:"settlement,omitempty"`
	Capturer   capitals.HeroID       `yaml:"capturer,omitempty"`
	Cause      string                `yaml:"cause,omitempty"`
	Hero       capitals.HeroID       `yaml:"hero,omitempty"`
	Clan       capitals.ClanID       `yaml:"clan,omitempty"`
	Faction    capitals.FactionID    `yaml:"faction,omitempty"`
	Name       string                `yaml:"name,omitempty"`
}

// Scenario is the on-disk description of a world and an optional event script.
type Scenario struct {
	Player      capitals.HeroID    `yaml:"player"`
	Factions    []model.Faction    `yaml:"factions"`
	Clans       []model.Clan       `yaml:"clans"`
	Heroes      []model.Hero       `yaml:"heroes"`
	Settlements []model.Settlement `yaml:"settlements"`
	Troops      capitals.TroopTree `yaml:"troops"`
	Script      []ScriptEvent      `yaml:"script"`
}

// LoadScenario reads and parses a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses YAML scenario data and checks its references.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scenario) validate() error {
	factions := make(map[capitals.FactionID]bool)
	for _, f := range sc.Factions {
		if f.ID == "" {
			return fmt.Errorf("faction with empty id")
		}
		factions[f.ID] = true
	}
	clans := make(map[capitals.ClanID]bool)
	for _, c := range sc.Clans {
		if c.ID == "" {
			return fmt.Errorf("clan with empty id")
		}
		if c.Faction != "" && !factions[c.Faction] {
			return fmt.Errorf("clan %s: unknown faction %s", c.ID, c.Faction)
		}
		clans[c.ID] = true
	}
	heroes := make(map[capitals.HeroID]bool)
	for _, h := range sc.Heroes {
		if h.Clan != "" && !clans[h.Clan] {
			return fmt.Errorf("hero %s: unknown clan %s", h.ID, h.Clan)
		}
		heroes[h.ID] = true
	}
	for _, f := range sc.Factions {
		if f.RulingClan != "" && !clans[f.RulingClan] {
			return fmt.Errorf("faction %s: unknown ruling clan %s", f.ID, f.RulingClan)
		}
		if f.Leader != "" && !heroes[f.Leader] {
			return fmt.Errorf("faction %s: unknown leader %s", f.ID, f.Leader)
		}
	}
	for _, s := range sc.Settlements {
		if s.OwnerClan != "" && !clans[s.OwnerClan] {
			return fmt.Errorf("settlement %s: unknown owner clan %s", s.ID, s.OwnerClan)
		}
	}
	if sc.Player != "" && !heroes[sc.Player] {
		return fmt.Errorf("unknown player hero %s", sc.Player)
	}
	for i, ev := range sc.Script {
		switch ev.Type {
		case EventTick, EventOwnershipChanged, EventLeaderDied, EventClanChangedFaction, EventFoundFaction, EventElectLeader:
		default:
			return fmt.Errorf("script[%d]: unknown event type %q", i, ev.Type)
		}
	}
	return nil
}
