package service

import (
	"context"
	"fmt"

	"github.com/freeeve/kingdom-capitals/pkg/capitals"
)

// Reinforcement is the result of reinforcing one capital.
type Reinforcement struct {
	Settlement capitals.SettlementID
	Culture    capitals.CultureID
	Unit       capitals.UnitID
	Tier       int
	Reached    int
	Count      int
	FoodCredit float64
}

// reinforceCapitals grows every capital's garrison once. It returns how many
// capitals were reinforced.
func (s *Session) reinforceCapitals(ctx context.Context) int {
	tree, err := s.world.TroopTree(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load troop tree")
		return 0
	}
	n := 0
	for _, e := range s.registry.Capitals() {
		if s.reinforceOne(ctx, tree, e.Settlement) {
			n++
		}
	}
	return n
}

func (s *Session) reinforceOne(ctx context.Context, tree *capitals.TroopTree, settlement capitals.SettlementID) (ok bool) {
	defer s.guard("garrison")
	r, err := s.reinforce(ctx, tree, settlement)
	l := s.log.With().Str("settlement", string(settlement)).Logger()
	switch {
	case err != nil:
		l.Error().Err(err).Msg("Garrison reinforcement failed")
		return false
	case r == nil:
		return false
	}
	l.Debug().
		Str("culture", string(r.Culture)).
		Str("unit", string(r.Unit)).
		Int("tier", r.Tier).
		Int("reached", r.Reached).
		Int("count", r.Count).
		Float64("food", r.FoodCredit).
		Msg("Garrison reinforced")
	return true
}

// reinforce adds the configured number of prosperity-tier troops to a capital and
// credits back part of the garrison's food upkeep. A nil result with a nil error
// means the capital was skipped.
func (s *Session) reinforce(ctx context.Context, tree *capitals.TroopTree, settlement capitals.SettlementID) (*Reinforcement, error) {
	st, err := s.world.Settlement(ctx, settlement)
	if err != nil {
		return nil, fmt.Errorf("settlement: %w", err)
	}
	if st.Food <= 0 {
		s.log.Info().Str("settlement", string(settlement)).Msg("Capital has no food, skipping garrison reinforcement")
		return nil, nil
	}
	culture := s.ownerCulture(ctx, settlement)
	if culture == "" {
		culture = st.Culture
	}
	if culture == "" {
		s.log.Warn().Str("settlement", string(settlement)).Msg("Capital has no culture, skipping garrison reinforcement")
		return nil, nil
	}

	tier := capitals.TroopTier(st.Prosperity, s.settings.ProsperityPerTroopTier, s.settings.MaxTroopTier)
	unit, reached, ok := capitals.SelectUnit(tree, culture, tier, s.rng)
	if !ok {
		s.log.Warn().
			Str("settlement", string(settlement)).
			Str("culture", string(culture)).
			Int("tier", tier).
			Msg("Could not find troop type")
		return nil, nil
	}

	count := s.settings.DailyGarrisonReinforcement
	if err := s.world.AddGarrison(ctx, settlement, unit, count); err != nil {
		return nil, fmt.Errorf("add garrison: %w", err)
	}

	members := st.GarrisonSize() + count
	credit := capitals.FoodCredit(members, s.settings.GarrisonFoodConsumptionMultiplier)
	if credit > 0 {
		if err := s.world.AddFood(ctx, settlement, credit); err != nil {
			return nil, fmt.Errorf("credit food: %w", err)
		}
	}
	return &Reinforcement{
		Settlement: settlement,
		Culture:    culture,
		Unit:       unit,
		Tier:       tier,
		Reached:    reached,
		Count:      count,
		FoodCredit: credit,
	}, nil
}

// ownerCulture returns the culture of the leader of the clan that owns
// settlement, or "" when the host does not know it.
func (s *Session) ownerCulture(ctx context.Context, settlement capitals.SettlementID) capitals.CultureID {
	owner, err := s.world.SettlementOwner(ctx, settlement)
	if err != nil || owner == "" {
		return ""
	}
	clan, err := s.world.Clan(ctx, owner)
	if err != nil || clan.Leader == "" {
		return ""
	}
	leader, err := s.world.Hero(ctx, clan.Leader)
	if err != nil {
		return ""
	}
	return leader.Culture
}
