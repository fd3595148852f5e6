package service

import (
	"context"
	"sort"

	"github.com/freeeve/kingdom-capitals/internal/model"
	"github.com/freeeve/kingdom-capitals/pkg/capitals"
)

// factionLedBy finds a living faction whose leader is hero.
func (s *Session) factionLedBy(ctx context.Context, hero capitals.HeroID) (capitals.FactionID, bool) {
	factions, err := s.world.Factions(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list factions")
		return "", false
	}
	for _, f := range factions {
		if !f.Eliminated && f.Leader == hero {
			return f.ID, true
		}
	}
	return "", false
}

func (s *Session) registerClaim(ctx context.Context, faction capitals.FactionID, settlement capitals.SettlementID) {
	displaced, ok := s.registry.RegisterNew(faction, settlement)
	if !ok {
		return
	}
	delete(s.claims, settlement)

	l := s.log.Info().Str("settlement", string(settlement)).Str("faction", string(faction))
	if displaced != "" {
		l = l.Str("displaced", string(displaced))
	}
	l.Msg("Registered new capital")

	s.emit(ctx, model.Notification{
		Kind:       model.NotifyCapitalRecognised,
		Settlement: settlement,
		Faction:    faction,
		Text:       capitalRecognisedText(s.settlementName(ctx, settlement), s.factionName(ctx, faction)),
	})
	s.syncMirror(ctx)
}

// resolveClaim re-checks one pending claim. The claim is dropped when the player
// no longer owns the settlement and registered once the player leads a faction.
// It reports whether the claim was registered.
func (s *Session) resolveClaim(ctx context.Context, settlement capitals.SettlementID) bool {
	hero, ok := s.claims[settlement]
	if !ok {
		return false
	}
	heroClan, err := s.world.ClanOfHero(ctx, hero)
	if err != nil {
		s.log.Warn().Err(err).Str("hero", string(hero)).Msg("Dropping claim of unknown hero")
		delete(s.claims, settlement)
		return false
	}
	owner, err := s.world.SettlementOwner(ctx, settlement)
	if err != nil || owner == "" || owner != heroClan {
		s.log.Info().Str("settlement", string(settlement)).Msg("Claimed capital changed hands, dropping claim")
		delete(s.claims, settlement)
		return false
	}
	f, ok := s.factionLedBy(ctx, hero)
	if !ok {
		return false
	}
	s.registerClaim(ctx, f, settlement)
	return true
}

// resolveClaims re-checks every pending claim and returns how many registered.
func (s *Session) resolveClaims(ctx context.Context) int {
	if len(s.claims) == 0 {
		return 0
	}
	keys := make([]capitals.SettlementID, 0, len(s.claims))
	for k := range s.claims {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	n := 0
	for _, k := range keys {
		if s.resolveClaim(ctx, k) {
			n++
		}
	}
	return n
}
