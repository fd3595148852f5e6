package service

import (
	"context"

	"github.com/freeeve/kingdom-capitals/pkg/capitals"
)

// LeaderDied is the host's hero-killed event.
type LeaderDied struct {
	Victim  capitals.HeroID    `json:"victim"`
	Faction capitals.FactionID `json:"faction"`
	// WasLeader lets a host that already vacated the seat say the victim led Faction.
	WasLeader bool `json:"was_leader,omitempty"`
}

// ClanChangedFaction is the host's clan-changed-faction event.
type ClanChangedFaction struct {
	Clan       capitals.ClanID    `json:"clan"`
	OldFaction capitals.FactionID `json:"old_faction"`
	NewFaction capitals.FactionID `json:"new_faction"`
	// WasRuling tells whether the clan ruled OldFaction before it left.
	WasRuling bool `json:"was_ruling,omitempty"`
}

func successionKey(f capitals.FactionID) capitals.TaskKey {
	return capitals.TaskKey{Op: capitals.OpSuccession, Target: string(f)}
}

// OnLeaderDied defers a capital re-home to the next day, after the host's
// election has picked a successor. It reports whether a re-home was scheduled.
func (s *Session) OnLeaderDied(ctx context.Context, evt LeaderDied) (scheduled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.guard("leader-died")

	if !s.started || evt.Faction == "" {
		return false
	}
	if !evt.WasLeader {
		leader, err := s.world.FactionLeader(ctx, evt.Faction)
		if err != nil {
			s.log.Warn().Err(err).Str("faction", string(evt.Faction)).Msg("Could not resolve faction leader")
			return false
		}
		if leader != evt.Victim {
			return false
		}
	}
	capital, ok := s.registry.CapitalOf(evt.Faction)
	if !ok {
		return false
	}

	faction := evt.Faction
	s.sched.Schedule(successionKey(faction), s.day+1, func(ctx context.Context) {
		defer s.guard("succession")
		s.rehome(ctx, faction, capital)
	})
	s.log.Info().
		Str("hero", string(evt.Victim)).
		Str("faction", string(faction)).
		Str("settlement", string(capital)).
		Msg("Ruler killed, capital transfer scheduled")
	return true
}

// OnClanChangedFaction re-homes the capital at once when the ruling clan leaves,
// since the host appoints the successor synchronously in that case.
func (s *Session) OnClanChangedFaction(ctx context.Context, evt ClanChangedFaction) (rehomed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.guard("clan-changed-faction")

	if !s.started || evt.OldFaction == "" || evt.OldFaction == evt.NewFaction {
		return false
	}
	wasRuling := evt.WasRuling
	if !wasRuling {
		ruling, err := s.world.RulingClan(ctx, evt.OldFaction)
		wasRuling = err == nil && ruling == evt.Clan
	}
	if !wasRuling {
		return false
	}
	capital, ok := s.registry.CapitalOf(evt.OldFaction)
	if !ok {
		return false
	}
	s.sched.Cancel(successionKey(evt.OldFaction))
	return s.rehome(ctx, evt.OldFaction, capital)
}

// rehome moves capital to the current leader of faction unless the leader's clan
// already owns it. It does nothing once the faction is gone or the capital has
// moved on.
func (s *Session) rehome(ctx context.Context, faction capitals.FactionID, capital capitals.SettlementID) bool {
	l := s.log.With().Str("faction", string(faction)).Str("settlement", string(capital)).Logger()

	elim, err := s.world.IsEliminated(ctx, faction)
	if err != nil || elim {
		l.Info().Err(err).Msg("Faction eliminated, capital transfer cancelled")
		return false
	}
	if cur, ok := s.registry.CapitalOf(faction); !ok || cur != capital {
		l.Info().Msg("Capital changed since transfer was scheduled, skipping")
		return false
	}
	leader, err := s.world.FactionLeader(ctx, faction)
	if err != nil || leader == "" {
		l.Warn().Err(err).Msg("No new ruler found, capital transfer skipped")
		return false
	}
	leaderClan, err := s.world.ClanOfHero(ctx, leader)
	if err != nil {
		l.Error().Err(err).Str("hero", string(leader)).Msg("Could not resolve ruler clan")
		return false
	}
	owner, err := s.world.SettlementOwner(ctx, capital)
	if err != nil {
		l.Error().Err(err).Msg("Could not resolve capital owner")
		return false
	}
	if owner == leaderClan {
		return false
	}
	if err := s.world.TransferSettlement(ctx, leader, capital); err != nil {
		l.Error().Err(err).Str("hero", string(leader)).Msg("Failed to transfer capital to new ruler")
		return false
	}
	l.Info().Str("hero", string(leader)).Str("clan", string(leaderClan)).Msg("Capital transferred to new ruler")
	s.syncMirror(ctx)
	return true
}
