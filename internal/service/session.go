package service

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/freeeve/kingdom-capitals/internal/config"
	"github.com/freeeve/kingdom-capitals/internal/logger"
	"github.com/freeeve/kingdom-capitals/internal/model"
	"github.com/freeeve/kingdom-capitals/internal/repository"
	"github.com/freeeve/kingdom-capitals/pkg/capitals"
)

// ErrNotStarted is returned by queries made before Start or after End.
var ErrNotStarted = errors.New("session not started")

// recentCaptureLimit bounds the in-memory capture history kept for the API.
const recentCaptureLimit = 100

// Session owns the capital registry and the day scheduler for one game session
// and routes host events to the conquest, succession and garrison logic. Every
// exported method takes the session lock, so events and ticks run one at a time
// as they would on the host's simulation thread.
type Session struct {
	mu sync.Mutex

	id       string
	world    repository.WorldRepository
	settings config.Settings
	registry *capitals.Registry
	sched    *capitals.Scheduler
	rng      *rand.Rand
	notifier Notifier
	journal  repository.ConquestJournal // optional
	mirror   repository.CapitalMirror   // optional
	log      zerolog.Logger

	day     uint64
	started bool
	// claims holds captured capitals waiting for the player to found a faction.
	claims   map[capitals.SettlementID]capitals.HeroID
	captures []model.CaptureRecord
}

// Option configures a Session.
type Option func(*Session)

// WithNotifier sets where notifications are delivered.
func WithNotifier(n Notifier) Option {
	return func(s *Session) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithJournal enables durable capture records.
func WithJournal(j repository.ConquestJournal) Option {
	return func(s *Session) { s.journal = j }
}

// WithMirror enables publishing capital state to an out-of-process mirror.
func WithMirror(m repository.CapitalMirror) Option {
	return func(s *Session) { s.mirror = m }
}

// WithRand sets the random source used for troop upgrade branches.
func WithRand(r *rand.Rand) Option {
	return func(s *Session) {
		if r != nil {
			s.rng = r
		}
	}
}

// WithSeed seeds the troop upgrade random source. Zero picks a random seed.
func WithSeed(seed int64) Option {
	return func(s *Session) {
		if seed == 0 {
			seed = randomSeed()
		}
		s.rng = rand.New(rand.NewSource(seed))
	}
}

func randomSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 1
	}
	return int64(binary.LittleEndian.Uint64(b[:]) >> 1)
}

// NewSession creates a session over world. settings is validated and copied.
func NewSession(world repository.WorldRepository, settings config.Settings, opts ...Option) *Session {
	sched := capitals.NewScheduler()
	settings = settings.Validate()
	reg := capitals.NewRegistry(sched)
	reg.SetExpiryDays(settings.RecentlyCapturedDays)

	s := &Session{
		id:       uuid.NewString(),
		world:    world,
		settings: settings,
		registry: reg,
		sched:    sched,
		notifier: NoopNotifier{},
		claims:   make(map[capitals.SettlementID]capitals.HeroID),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(randomSeed()))
	}
	s.log = logger.Component("session").With().Str("sessionId", s.id).Logger()
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Settings returns the settings snapshot in use.
func (s *Session) Settings() config.Settings { return s.settings }

// Day returns the current simulated day.
func (s *Session) Day() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.day
}

// Started reports whether the session is running.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// guard recovers a panic raised by the host world so it never reaches the caller.
func (s *Session) guard(op string) {
	if r := recover(); r != nil {
		s.log.Error().
			Str("op", op).
			Interface("panic", r).
			Bytes("stack", debug.Stack()).
			Msg("Recovered panic in session entry point")
	}
}

// Start initializes the registry from the default capital table. Calling it on a
// running session logs a warning and changes nothing.
func (s *Session) Start(ctx context.Context) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.guard("start")

	if s.started {
		s.log.Warn().Int("capitals", s.registry.Len()).Msg("Capital registry already initialized")
		return s.registry.Len(), nil
	}

	factions, err := s.world.Factions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list factions: %w", err)
	}
	ids := make([]capitals.FactionID, 0, len(factions))
	for _, f := range factions {
		if !f.Eliminated {
			ids = append(ids, f.ID)
		}
	}

	n, err = s.registry.Initialize(ids, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("Capital registry already initialized")
		return n, nil
	}
	s.started = true
	s.log.Info().Int("capitals", n).Msg("Capital registry initialized")
	s.syncMirror(ctx)
	return n, nil
}

// End tears the session down: pending tasks are dropped and the registry is
// cleared. A later Start begins a fresh session state.
func (s *Session) End(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.guard("end")

	if !s.started {
		return
	}
	s.sched.Clear()
	s.registry.Reset()
	s.claims = make(map[capitals.SettlementID]capitals.HeroID)
	s.started = false
	if s.mirror != nil {
		if err := s.mirror.Clear(ctx); err != nil {
			s.log.Error().Err(err).Msg("Failed to clear capital mirror")
		}
	}
	s.log.Info().Uint64("day", s.day).Msg("Session ended")
}

// TickReport summarizes one simulated day.
type TickReport struct {
	Day            uint64 `json:"day"`
	TasksFired     int    `json:"tasks_fired"`
	ClaimsResolved int    `json:"claims_resolved"`
	Reinforced     int    `json:"reinforced"`
}

// Tick advances the session by one day: due tasks fire, pending player claims are
// re-checked, capital garrisons are reinforced and the mirror is refreshed.
func (s *Session) Tick(ctx context.Context) (rep TickReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.guard("tick")

	s.day++
	rep.Day = s.day
	if !s.started {
		return rep
	}

	rep.TasksFired = s.sched.RunDue(ctx, s.day)
	rep.ClaimsResolved = s.resolveClaims(ctx)
	if s.settings.EnableGarrisonReinforcement {
		rep.Reinforced = s.reinforceCapitals(ctx)
	}
	s.syncMirror(ctx)

	s.log.Debug().
		Uint64("day", rep.Day).
		Int("tasks", rep.TasksFired).
		Int("claims", rep.ClaimsResolved).
		Int("reinforced", rep.Reinforced).
		Msg("Day processed")
	return rep
}

// Capitals returns the current faction -> capital entries.
func (s *Session) Capitals() ([]capitals.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.registry.Capitals(), nil
}

// CapitalOf returns a faction's capital.
func (s *Session) CapitalOf(faction capitals.FactionID) (capitals.SettlementID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return "", ErrNotStarted
	}
	c, ok := s.registry.CapitalOf(faction)
	if !ok {
		return "", fmt.Errorf("capital of %s: %w", faction, repository.ErrNotFound)
	}
	return c, nil
}

// IsCapital is the host-facing capital predicate. It is false before Start.
func (s *Session) IsCapital(settlement capitals.SettlementID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.IsCapital(settlement)
}

// Status reports a settlement's capital status and the modifiers that follow from it.
func (s *Session) Status(settlement capitals.SettlementID) model.CapitalStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.registry.FactionOf(settlement)
	return model.CapitalStatus{
		Settlement:       settlement,
		Faction:          f,
		RecentlyCaptured: s.registry.WasRecentlyCaptured(settlement),
		Modifiers:        capitals.ModifiersFor(ok),
	}
}

// PendingClaims returns captured capitals waiting for the player's faction.
func (s *Session) PendingClaims() map[capitals.SettlementID]capitals.HeroID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[capitals.SettlementID]capitals.HeroID, len(s.claims))
	for k, v := range s.claims {
		out[k] = v
	}
	return out
}

// RecentCaptures returns the newest capture records first. The journal is
// preferred when configured.
func (s *Session) RecentCaptures(ctx context.Context, limit int) ([]model.CaptureRecord, error) {
	if limit <= 0 || limit > recentCaptureLimit {
		limit = recentCaptureLimit
	}
	if s.journal != nil {
		recs, err := s.journal.RecentCaptures(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("recent captures: %w", err)
		}
		return recs, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.CaptureRecord, 0, limit)
	for i := len(s.captures) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.captures[i])
	}
	return out, nil
}

// CapturesOf returns the capture records of one settlement, newest first.
func (s *Session) CapturesOf(ctx context.Context, settlement capitals.SettlementID) ([]model.CaptureRecord, error) {
	if s.journal != nil {
		recs, err := s.journal.CapturesOf(ctx, settlement)
		if err != nil {
			return nil, fmt.Errorf("captures of %s: %w", settlement, err)
		}
		return recs, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.CaptureRecord
	for i := len(s.captures) - 1; i >= 0; i-- {
		if s.captures[i].Settlement == settlement {
			out = append(out, s.captures[i])
		}
	}
	return out, nil
}

func (s *Session) rememberCapture(rec model.CaptureRecord) {
	s.captures = append(s.captures, rec)
	if len(s.captures) > recentCaptureLimit {
		s.captures = s.captures[len(s.captures)-recentCaptureLimit:]
	}
}

func (s *Session) emit(ctx context.Context, n model.Notification) {
	n.Day = s.day
	s.notifier.Notify(n)
	if s.mirror != nil {
		if err := s.mirror.PublishNotification(ctx, n); err != nil {
			s.log.Error().Err(err).Str("kind", n.Kind).Msg("Failed to publish notification")
		}
	}
}

func (s *Session) syncMirror(ctx context.Context) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.SyncCapitals(ctx, s.registry.Capitals(), s.registry.RecentlyCaptured()); err != nil {
		s.log.Error().Err(err).Msg("Failed to sync capital mirror")
	}
}

// settlementName returns a display name, falling back to the id.
func (s *Session) settlementName(ctx context.Context, id capitals.SettlementID) string {
	st, err := s.world.Settlement(ctx, id)
	if err != nil || st.Name == "" {
		return string(id)
	}
	return st.Name
}

func (s *Session) factionName(ctx context.Context, id capitals.FactionID) string {
	f, err := s.world.Faction(ctx, id)
	if err != nil || f.Name == "" {
		return string(id)
	}
	return f.Name
}
