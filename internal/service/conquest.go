package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/freeeve/kingdom-capitals/internal/model"
	"github.com/freeeve/kingdom-capitals/pkg/capitals"
)

// Capture step names, in execution order.
const (
	StepMark        = "mark_recently_captured"
	StepTransfer    = "transfer_to_ruling_clan"
	StepVassalize   = "vassalize_clans"
	StepUnregister  = "unregister_capital"
	StepEliminate   = "eliminate_faction"
	StepNotify      = "notify"
	captureStepsLen = 6
)

// OwnershipChange is the host's settlement ownership-changed event.
type OwnershipChange struct {
	Settlement  capitals.SettlementID `json:"settlement"`
	FormerOwner capitals.HeroID       `json:"former_owner"`
	Capturer    capitals.HeroID       `json:"capturer"`
	Cause       capitals.ChangeCause  `json:"cause"`
}

// Outcome describes what an ownership change led to.
type Outcome string

const (
	OutcomeIgnored      Outcome = "ignored"
	OutcomeDisabled     Outcome = "disabled"
	OutcomeAborted      Outcome = "aborted"
	OutcomePendingClaim Outcome = "pending_claim"
	OutcomeRegistered   Outcome = "registered"
	OutcomeCaptured     Outcome = "captured"
)

// errSkipped marks a step that decided at run time it had nothing to do.
var errSkipped = errors.New("skipped")

func skip(reason string) error { return fmt.Errorf("%w: %s", errSkipped, reason) }

// OnOwnershipChanged handles a settlement changing hands. When the settlement is a
// capital taken by siege, barter or rebellion, the capture sequence runs and its
// record is returned.
func (s *Session) OnOwnershipChanged(ctx context.Context, evt OwnershipChange) (out Outcome, rec *model.CaptureRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out = OutcomeIgnored
	defer s.guard("ownership-changed")

	if !s.started {
		return OutcomeIgnored, nil
	}
	if _, pending := s.claims[evt.Settlement]; pending {
		if s.resolveClaim(ctx, evt.Settlement) {
			return OutcomeRegistered, nil
		}
	}
	return s.conquer(ctx, evt)
}

func (s *Session) conquer(ctx context.Context, evt OwnershipChange) (Outcome, *model.CaptureRecord) {
	l := s.log.With().
		Str("settlement", string(evt.Settlement)).
		Str("capturer", string(evt.Capturer)).
		Str("cause", string(evt.Cause)).
		Logger()

	if !s.registry.IsCapital(evt.Settlement) || !evt.Cause.IsConquest() {
		return OutcomeIgnored, nil
	}
	oldFaction, err := s.world.FactionOfHero(ctx, evt.FormerOwner)
	if err != nil || oldFaction == "" {
		l.Error().Err(err).Str("formerOwner", string(evt.FormerOwner)).Msg("Capital conquered but old faction is unresolved")
		return OutcomeAborted, nil
	}
	newFaction, err := s.world.FactionOfHero(ctx, evt.Capturer)
	if err != nil {
		l.Warn().Err(err).Msg("Could not resolve capturer faction")
		newFaction = ""
	}
	l = l.With().Str("oldFaction", string(oldFaction)).Str("newFaction", string(newFaction)).Logger()

	if newFaction == oldFaction {
		l.Debug().Msg("Capital changed hands inside its own faction")
		return OutcomeIgnored, nil
	}

	if newFaction == "" {
		player, _ := s.world.PlayerHero(ctx)
		if player == "" || player != evt.Capturer {
			l.Info().Msg("Capital taken by a capturer without a faction")
			return OutcomeIgnored, nil
		}
		return s.playerCapture(ctx, l, evt, oldFaction), nil
	}

	// The player's pending claim above is honored even with conquest off.
	if !s.settings.EnableCapitalConquest {
		l.Info().Msg("Capital conquest disabled in settings, treating capital as a normal settlement")
		return OutcomeDisabled, nil
	}

	rec := s.captureSequence(ctx, l, evt, oldFaction, newFaction)
	return OutcomeCaptured, rec
}

// playerCapture handles the player taking a capital before founding a faction.
func (s *Session) playerCapture(ctx context.Context, l zerolog.Logger, evt OwnershipChange, oldFaction capitals.FactionID) Outcome {
	capital := s.settlementName(ctx, evt.Settlement)
	l.Info().Msg("Player captured capital without a faction")
	s.emit(ctx, model.Notification{
		Kind:       model.NotifyFoundFaction,
		Settlement: evt.Settlement,
		Faction:    oldFaction,
		Hero:       evt.Capturer,
		Text:       foundFactionText(capital, s.factionName(ctx, oldFaction)),
	})

	if f, ok := s.factionLedBy(ctx, evt.Capturer); ok {
		s.registerClaim(ctx, f, evt.Settlement)
		return OutcomeRegistered
	}

	s.claims[evt.Settlement] = evt.Capturer
	l.Warn().Msg("Player faction not found yet, capital claim left pending")
	s.emit(ctx, model.Notification{
		Kind:       model.NotifyPendingClaim,
		Settlement: evt.Settlement,
		Hero:       evt.Capturer,
		Text:       pendingClaimText(capital),
	})
	return OutcomePendingClaim
}

// captureSequence runs the ordered capture steps. A failing step is recorded and
// logged and the remaining steps still run.
func (s *Session) captureSequence(ctx context.Context, l zerolog.Logger, evt OwnershipChange, oldFaction, newFaction capitals.FactionID) *model.CaptureRecord {
	rec := &model.CaptureRecord{
		ID:         uuid.NewString(),
		Day:        s.day,
		Settlement: evt.Settlement,
		OldFaction: oldFaction,
		NewFaction: newFaction,
		Capturer:   evt.Capturer,
		Cause:      evt.Cause,
		Steps:      make([]model.StepResult, 0, captureStepsLen),
		CreatedAt:  time.Now().UTC(),
	}
	l = l.With().Str("captureId", rec.ID).Logger()
	l.Info().Msg("Capital captured, running capture sequence")

	run := func(name string, enabled bool, fn func() error) {
		rec.Steps = append(rec.Steps, runStep(l, name, enabled, fn))
	}

	// Names are resolved before the old faction disappears.
	capitalName := s.settlementName(ctx, evt.Settlement)
	oldName := s.factionName(ctx, oldFaction)

	run(StepMark, true, func() error {
		if !s.registry.MarkRecentlyCaptured(evt.Settlement, s.day) {
			return capitals.ErrNotInitialized
		}
		return nil
	})
	run(StepTransfer, s.settings.TransferCapitalToRulingClan, func() error {
		return s.transferToRulingClan(ctx, evt.Settlement, newFaction)
	})
	run(StepVassalize, s.settings.VassalizeDefeatedClans, func() error {
		return s.vassalize(ctx, l, oldFaction, newFaction)
	})
	run(StepUnregister, true, func() error {
		if !s.registry.Unregister(evt.Settlement, oldFaction) {
			return skip("faction had no registered capital")
		}
		return nil
	})
	run(StepEliminate, true, func() error {
		elim, err := s.world.IsEliminated(ctx, oldFaction)
		if err != nil {
			return fmt.Errorf("check eliminated: %w", err)
		}
		if elim {
			return skip("faction already eliminated")
		}
		return s.world.EliminateFaction(ctx, oldFaction)
	})
	run(StepNotify, s.settings.EnableConquestNotifications, func() error {
		s.emit(ctx, model.Notification{
			Kind:       model.NotifyConquest,
			Settlement: evt.Settlement,
			Faction:    oldFaction,
			Text:       factionFallenText(capitalName, oldName),
		})
		if player, _ := s.world.PlayerHero(ctx); player != "" && player == evt.Capturer {
			s.emit(ctx, model.Notification{
				Kind:       model.NotifyPlayerConquest,
				Settlement: evt.Settlement,
				Faction:    oldFaction,
				Hero:       evt.Capturer,
				Text:       playerConquestText(oldName),
			})
		}
		return nil
	})

	delete(s.claims, evt.Settlement)
	s.rememberCapture(*rec)
	if s.journal != nil {
		if err := s.journal.SaveCapture(ctx, rec); err != nil {
			l.Error().Err(err).Msg("Failed to journal capture record")
		}
	}
	s.syncMirror(ctx)

	ev := l.Info()
	if rec.Failed() {
		ev = l.Warn()
	}
	ev.Bool("failedSteps", rec.Failed()).Msg("Capture sequence finished")
	return rec
}

// runStep executes one capture step, converting a panic into a failed result.
func runStep(l zerolog.Logger, name string, enabled bool, fn func() error) (res model.StepResult) {
	res.Name = name
	if !enabled {
		res.Status = model.StepSkipped
		res.Reason = "disabled in settings"
		l.Info().Str("step", name).Msg("Capture step disabled")
		return res
	}
	defer func() {
		if r := recover(); r != nil {
			res.Status = model.StepFailed
			res.Error = fmt.Sprintf("panic: %v", r)
			l.Error().Str("step", name).Interface("panic", r).Msg("Capture step panicked")
		}
	}()

	err := fn()
	switch {
	case err == nil:
		res.Status = model.StepOK
		l.Info().Str("step", name).Msg("Capture step completed")
	case errors.Is(err, errSkipped):
		res.Status = model.StepSkipped
		res.Reason = err.Error()
		l.Info().Str("step", name).Str("reason", res.Reason).Msg("Capture step skipped")
	default:
		res.Status = model.StepFailed
		res.Error = err.Error()
		l.Error().Err(err).Str("step", name).Msg("Capture step failed")
	}
	return res
}

// transferToRulingClan gives settlement to the leader of faction's ruling clan.
func (s *Session) transferToRulingClan(ctx context.Context, settlement capitals.SettlementID, faction capitals.FactionID) error {
	ruling, err := s.world.RulingClan(ctx, faction)
	if err != nil {
		return fmt.Errorf("ruling clan of %s: %w", faction, err)
	}
	if ruling == "" {
		return fmt.Errorf("faction %s has no ruling clan", faction)
	}
	owner, err := s.world.SettlementOwner(ctx, settlement)
	if err != nil {
		return fmt.Errorf("owner of %s: %w", settlement, err)
	}
	if owner == ruling {
		return skip("already owned by the ruling clan")
	}
	clan, err := s.world.Clan(ctx, ruling)
	if err != nil {
		return fmt.Errorf("clan %s: %w", ruling, err)
	}
	if clan.Leader == "" {
		return fmt.Errorf("ruling clan %s has no leader", ruling)
	}
	if err := s.world.TransferSettlement(ctx, clan.Leader, settlement); err != nil {
		return fmt.Errorf("transfer %s to %s: %w", settlement, clan.Leader, err)
	}
	s.log.Info().
		Str("settlement", string(settlement)).
		Str("clan", string(ruling)).
		Str("hero", string(clan.Leader)).
		Msg("Capital transferred to ruling clan")
	return nil
}

// vassalize moves every clan of the defeated faction except its ruling clan into
// the conqueror as a vassal. One clan failing does not stop the others.
func (s *Session) vassalize(ctx context.Context, l zerolog.Logger, from, to capitals.FactionID) error {
	ruling, err := s.world.RulingClan(ctx, from)
	if err != nil {
		return fmt.Errorf("ruling clan of %s: %w", from, err)
	}
	clans, err := s.world.ClansOf(ctx, from)
	if err != nil {
		return fmt.Errorf("clans of %s: %w", from, err)
	}

	var errs []error
	moved := 0
	for _, c := range clans {
		if c.ID == ruling || c.Eliminated {
			continue
		}
		if err := s.world.TransferClanToFaction(ctx, c.ID, to, true); err != nil {
			errs = append(errs, fmt.Errorf("clan %s: %w", c.ID, err))
			continue
		}
		moved++
		l.Info().Str("clan", string(c.ID)).Msg("Vassalized clan")
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if moved == 0 {
		return skip("no eligible clans")
	}
	return nil
}
