package repository

import (
	"context"
	"errors"

	"github.com/freeeve/kingdom-capitals/internal/model"
	"github.com/freeeve/kingdom-capitals/pkg/capitals"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// WorldRepository is the host simulation's entity model as the capital services
// see it. Lookups of missing entities return ErrNotFound; empty ids in results
// mean "none" (an independent clan, a faction without a leader).
type WorldRepository interface {
	// Factions
	Factions(ctx context.Context) ([]model.Faction, error)
	Faction(ctx context.Context, id capitals.FactionID) (*model.Faction, error)
	FactionLeader(ctx context.Context, id capitals.FactionID) (capitals.HeroID, error)
	RulingClan(ctx context.Context, id capitals.FactionID) (capitals.ClanID, error)
	ClansOf(ctx context.Context, id capitals.FactionID) ([]model.Clan, error)
	IsEliminated(ctx context.Context, id capitals.FactionID) (bool, error)

	// People
	Hero(ctx context.Context, id capitals.HeroID) (*model.Hero, error)
	Clan(ctx context.Context, id capitals.ClanID) (*model.Clan, error)
	ClanOfHero(ctx context.Context, id capitals.HeroID) (capitals.ClanID, error)
	FactionOfHero(ctx context.Context, id capitals.HeroID) (capitals.FactionID, error)
	PlayerHero(ctx context.Context) (capitals.HeroID, error)

	// Settlements
	Settlement(ctx context.Context, id capitals.SettlementID) (*model.Settlement, error)
	SettlementOwner(ctx context.Context, id capitals.SettlementID) (capitals.ClanID, error)
	SettlementFaction(ctx context.Context, id capitals.SettlementID) (capitals.FactionID, error)
	AddFood(ctx context.Context, id capitals.SettlementID, amount float64) error
	AddGarrison(ctx context.Context, id capitals.SettlementID, unit capitals.UnitID, count int) error
	TroopTree(ctx context.Context) (*capitals.TroopTree, error)

	// Operations
	TransferSettlement(ctx context.Context, newOwner capitals.HeroID, settlement capitals.SettlementID) error
	TransferClanToFaction(ctx context.Context, clan capitals.ClanID, faction capitals.FactionID, asVassal bool) error
	EliminateFaction(ctx context.Context, id capitals.FactionID) error
}

// ConquestJournal is the durable log of capture sequences.
type ConquestJournal interface {
	SaveCapture(ctx context.Context, rec *model.CaptureRecord) error
	RecentCaptures(ctx context.Context, limit int) ([]model.CaptureRecord, error)
	CapturesOf(ctx context.Context, settlement capitals.SettlementID) ([]model.CaptureRecord, error)
}

// CapitalMirror publishes capital state and notifications for out-of-process
// consumers.
type CapitalMirror interface {
	SyncCapitals(ctx context.Context, entries []capitals.Entry, recent []capitals.SettlementID) error
	PublishNotification(ctx context.Context, n model.Notification) error
	Clear(ctx context.Context) error
}
