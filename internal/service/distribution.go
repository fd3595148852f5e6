package service

import (
	"context"
	"errors"

	"github.com/freeeve/kingdom-capitals/pkg/capitals"
)

// ReviewDistribution is the hook the host's automatic distribution of unclaimed
// settlements calls before offering settlement to faction's vote. A recently
// captured capital is withheld and, if not already there, handed to the ruling
// clan's leader. A failed hand-over is logged and does not change the answer.
func (s *Session) ReviewDistribution(ctx context.Context, settlement capitals.SettlementID, faction capitals.FactionID) (allow bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	allow = true
	defer s.guard("distribution-review")

	if !s.started || !s.registry.WasRecentlyCaptured(settlement) {
		return true
	}
	l := s.log.With().Str("settlement", string(settlement)).Str("faction", string(faction)).Logger()

	if faction == "" {
		f, err := s.world.SettlementFaction(ctx, settlement)
		if err != nil {
			l.Warn().Err(err).Msg("Could not resolve settlement faction for distribution review")
			return false
		}
		faction = f
	}
	if err := s.transferToRulingClan(ctx, settlement, faction); err != nil && !errors.Is(err, errSkipped) {
		l.Error().Err(err).Msg("Failed to hand recently captured capital to ruling clan")
	}
	l.Info().Msg("Blocked distribution of recently captured capital")
	return false
}

