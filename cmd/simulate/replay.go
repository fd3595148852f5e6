package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/freeeve/kingdom-capitals/internal/model"
	"github.com/freeeve/kingdom-capitals/internal/repository/memory"
	"github.com/freeeve/kingdom-capitals/internal/service"
	"github.com/freeeve/kingdom-capitals/pkg/capitals"
)

// replayer drives a session from a scenario script, applying each event to the
// world first and then reporting it to the session the way a host would.
type replayer struct {
	world   *memory.World
	session *service.Session
	out     io.Writer
}

// Summary is the final state printed with -json.
type Summary struct {
	Day         uint64                `json:"day"`
	Capitals    []capitals.Entry      `json:"capitals"`
	Factions    []model.Faction       `json:"factions"`
	Settlements []model.Settlement    `json:"settlements"`
	Captures    []model.CaptureRecord `json:"captures"`
	Pending     map[string]string     `json:"pending_claims,omitempty"`
}

func (r *replayer) run(ctx context.Context, script []memory.ScriptEvent) error {
	if _, err := r.session.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	r.printCapitals()

	for i, ev := range script {
		desc, err := r.apply(ctx, ev)
		if err != nil {
			return fmt.Errorf("script[%d] %s: %w", i, ev.Type, err)
		}
		fmt.Fprintf(r.out, "[day %d] %s\n", r.session.Day(), desc)
		r.printCapitals()
	}
	return nil
}

func (r *replayer) apply(ctx context.Context, ev memory.ScriptEvent) (string, error) {
	switch ev.Type {
	case memory.EventTick:
		days := max(ev.Days, 1)
		var fired, reinforced int
		for range days {
			r.world.RunElections()
			rep := r.session.Tick(ctx)
			fired += rep.TasksFired
			reinforced += rep.Reinforced
		}
		return fmt.Sprintf("tick x%d (tasks=%d reinforced=%d)", days, fired, reinforced), nil

	case memory.EventOwnershipChanged:
		cause, err := capitals.ParseChangeCause(ev.Cause)
		if err != nil {
			return "", err
		}
		former, err := r.ownerLeader(ctx, ev.Settlement)
		if err != nil {
			return "", err
		}
		if err := r.world.TransferSettlement(ctx, ev.Capturer, ev.Settlement); err != nil {
			return "", err
		}
		out, _ := r.session.OnOwnershipChanged(ctx, service.OwnershipChange{
			Settlement:  ev.Settlement,
			FormerOwner: former,
			Capturer:    ev.Capturer,
			Cause:       cause,
		})
		return fmt.Sprintf("%s takes %s by %s: %s", ev.Capturer, ev.Settlement, cause, out), nil

	case memory.EventLeaderDied:
		faction, err := r.world.FactionOfHero(ctx, ev.Hero)
		if err != nil {
			return "", err
		}
		// The session checks leadership before the host vacates the seat.
		scheduled := r.session.OnLeaderDied(ctx, service.LeaderDied{Victim: ev.Hero, Faction: faction})
		if _, err := r.world.KillHero(ev.Hero); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s dies (succession scheduled: %t)", ev.Hero, scheduled), nil

	case memory.EventClanChangedFaction:
		clan, err := r.world.Clan(ctx, ev.Clan)
		if err != nil {
			return "", err
		}
		old := clan.Faction
		ruling, _ := r.world.RulingClan(ctx, old)
		if err := r.world.TransferClanToFaction(ctx, ev.Clan, ev.Faction, false); err != nil {
			return "", err
		}
		rehomed := r.session.OnClanChangedFaction(ctx, service.ClanChangedFaction{
			Clan:       ev.Clan,
			OldFaction: old,
			NewFaction: ev.Faction,
			WasRuling:  ruling == ev.Clan,
		})
		return fmt.Sprintf("%s leaves %s for %s (capital rehomed: %t)", ev.Clan, old, ev.Faction, rehomed), nil

	case memory.EventFoundFaction:
		if err := r.world.FoundFaction(ev.Faction, ev.Name, ev.Hero); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s founds %s", ev.Hero, ev.Faction), nil

	case memory.EventElectLeader:
		if err := r.world.ElectLeader(ev.Faction, ev.Hero); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s elected to lead %s", ev.Hero, ev.Faction), nil
	}
	return "", fmt.Errorf("unknown event type %q", ev.Type)
}

// ownerLeader returns the leader of the clan currently holding settlement.
func (r *replayer) ownerLeader(ctx context.Context, settlement capitals.SettlementID) (capitals.HeroID, error) {
	owner, err := r.world.SettlementOwner(ctx, settlement)
	if err != nil {
		return "", err
	}
	if owner == "" {
		return "", nil
	}
	clan, err := r.world.Clan(ctx, owner)
	if err != nil {
		return "", err
	}
	return clan.Leader, nil
}

func (r *replayer) printCapitals() {
	entries, err := r.session.Capitals()
	if err != nil {
		fmt.Fprintf(r.out, "  capitals: %v\n", err)
		return
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s=%s", e.Faction, e.Settlement)
	}
	fmt.Fprintf(r.out, "  capitals: %s\n", strings.Join(parts, " "))

	pending := r.session.PendingClaims()
	if len(pending) == 0 {
		return
	}
	claims := make([]string, 0, len(pending))
	for s, h := range pending {
		claims = append(claims, fmt.Sprintf("%s<-%s", s, h))
	}
	sort.Strings(claims)
	fmt.Fprintf(r.out, "  pending claims: %s\n", strings.Join(claims, " "))
}

func (r *replayer) summary(ctx context.Context) (*Summary, error) {
	sum := &Summary{Day: r.session.Day(), Settlements: r.world.Settlements()}
	var err error
	if sum.Capitals, err = r.session.Capitals(); err != nil {
		return nil, err
	}
	if sum.Factions, err = r.world.Factions(ctx); err != nil {
		return nil, err
	}
	if sum.Captures, err = r.session.RecentCaptures(ctx, 0); err != nil {
		return nil, err
	}
	if pending := r.session.PendingClaims(); len(pending) > 0 {
		sum.Pending = make(map[string]string, len(pending))
		for s, h := range pending {
			sum.Pending[string(s)] = string(h)
		}
	}
	return sum, nil
}
