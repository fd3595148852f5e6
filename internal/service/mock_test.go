package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/freeeve/kingdom-capitals/internal/config"
	"github.com/freeeve/kingdom-capitals/internal/model"
	"github.com/freeeve/kingdom-capitals/internal/repository/memory"
	"github.com/freeeve/kingdom-capitals/pkg/capitals"
)

const fixtureScenario = `
player: player
factions:
  - {id: vlandia, name: Vlandia, leader: derthert, ruling_clan: dey_meroc}
  - {id: sturgia, name: Sturgia, leader: raganvad, ruling_clan: rurikung}
  - {id: aserai, name: Aserai, leader: unqid, ruling_clan: banu_sarran}
clans:
  - {id: dey_meroc, leader: derthert, faction: vlandia}
  - {id: dey_rothad, leader: rothad, faction: vlandia}
  - {id: dey_tougard, leader: tougard, faction: vlandia}
  - {id: rurikung, leader: raganvad, faction: sturgia}
  - {id: vagirid, leader: olek, faction: sturgia}
  - {id: banu_sarran, leader: unqid, faction: aserai}
  - {id: player_clan, leader: player}
heroes:
  - {id: derthert, name: Derthert, clan: dey_meroc}
  - {id: derthert_son, clan: dey_meroc}
  - {id: rothad, clan: dey_rothad}
  - {id: tougard, clan: dey_tougard}
  - {id: raganvad, clan: rurikung}
  - {id: olek, clan: vagirid}
  - {id: unqid, clan: banu_sarran, culture: aserai}
  - {id: player, clan: player_clan, player: true}
settlements:
  - {id: town_V5, name: Galend, owner_clan: dey_meroc, culture: vlandia, food: 40, prosperity: 5200}
  - {id: town_V1, name: Pravend, owner_clan: dey_rothad, culture: vlandia, food: 20, prosperity: 3000}
  - {id: town_S2, name: Balgard, owner_clan: rurikung, culture: sturgia, food: 0, prosperity: 9000}
  - {id: town_A1, name: Quyaz, owner_clan: banu_sarran, culture: aserai, food: 30, prosperity: 20000, garrison: [{unit: aserai_recruit, count: 7}]}
troops:
  base:
    vlandia: vlandian_recruit
    aserai: aserai_recruit
  upgrades:
    vlandian_recruit: [vlandian_footman, vlandian_levy_crossbowman]
    vlandian_footman: [vlandian_infantry]
    vlandian_levy_crossbowman: [vlandian_crossbowman]
    aserai_recruit: [aserai_footman]
    aserai_footman: [aserai_infantry]
`

// mockWorld wraps the in-memory world so tests can inject failures per call.
type mockWorld struct {
	*memory.World
	failTransferClan map[capitals.ClanID]error
	failEliminate    error
	failTransfer     error
	panicOnTransfer  bool
	transferCalls    int
	// hideFaction makes FactionOfHero report no faction, as the host does for a
	// hero whose faction was founded later in the same tick.
	hideFaction map[capitals.HeroID]bool
}

func newMockWorld(t *testing.T) *mockWorld {
	t.Helper()
	sc, err := memory.ParseScenario([]byte(fixtureScenario))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return &mockWorld{
		World:            memory.NewWorld(sc),
		failTransferClan: make(map[capitals.ClanID]error),
		hideFaction:      make(map[capitals.HeroID]bool),
	}
}

func (m *mockWorld) TransferClanToFaction(ctx context.Context, clan capitals.ClanID, faction capitals.FactionID, asVassal bool) error {
	if err := m.failTransferClan[clan]; err != nil {
		return err
	}
	return m.World.TransferClanToFaction(ctx, clan, faction, asVassal)
}

func (m *mockWorld) FactionOfHero(ctx context.Context, id capitals.HeroID) (capitals.FactionID, error) {
	if m.hideFaction[id] {
		return "", nil
	}
	return m.World.FactionOfHero(ctx, id)
}

func (m *mockWorld) EliminateFaction(ctx context.Context, id capitals.FactionID) error {
	if m.failEliminate != nil {
		return m.failEliminate
	}
	return m.World.EliminateFaction(ctx, id)
}

func (m *mockWorld) TransferSettlement(ctx context.Context, hero capitals.HeroID, s capitals.SettlementID) error {
	m.transferCalls++
	if m.panicOnTransfer {
		panic("host transfer exploded")
	}
	if m.failTransfer != nil {
		return m.failTransfer
	}
	return m.World.TransferSettlement(ctx, hero, s)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (r *recordingNotifier) Notify(n model.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, n := range r.sent {
		out[i] = n.Kind
	}
	return out
}

type mockJournal struct {
	records []model.CaptureRecord
	failErr error
}

func (m *mockJournal) SaveCapture(_ context.Context, rec *model.CaptureRecord) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.records = append(m.records, *rec)
	return nil
}

func (m *mockJournal) RecentCaptures(_ context.Context, limit int) ([]model.CaptureRecord, error) {
	var out []model.CaptureRecord
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *mockJournal) CapturesOf(_ context.Context, s capitals.SettlementID) ([]model.CaptureRecord, error) {
	var out []model.CaptureRecord
	for _, r := range m.records {
		if r.Settlement == s {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockMirror struct {
	syncs     int
	capitals  []capitals.Entry
	recent    []capitals.SettlementID
	published []model.Notification
	cleared   bool
}

func (m *mockMirror) SyncCapitals(_ context.Context, entries []capitals.Entry, recent []capitals.SettlementID) error {
	m.syncs++
	m.capitals = entries
	m.recent = recent
	return nil
}

func (m *mockMirror) PublishNotification(_ context.Context, n model.Notification) error {
	m.published = append(m.published, n)
	return nil
}

func (m *mockMirror) Clear(context.Context) error {
	m.cleared = true
	return nil
}

var errHost = errors.New("host failure")

type fixture struct {
	world    *mockWorld
	notes    *recordingNotifier
	journal  *mockJournal
	mirror   *mockMirror
	session  *Session
	settings config.Settings
}

func newFixture(t *testing.T, mutate ...func(*config.Settings)) *fixture {
	t.Helper()
	settings := config.DefaultSettings()
	for _, m := range mutate {
		m(&settings)
	}
	f := &fixture{
		world:    newMockWorld(t),
		notes:    &recordingNotifier{},
		journal:  &mockJournal{},
		mirror:   &mockMirror{},
		settings: settings,
	}
	f.session = NewSession(f.world, settings,
		WithNotifier(f.notes),
		WithJournal(f.journal),
		WithMirror(f.mirror),
		WithRand(rand.New(rand.NewSource(1))),
	)
	if _, err := f.session.Start(context.Background()); err != nil {
		t.Fatalf("start session: %v", err)
	}
	return f
}

// siege captures settlement for capturer the way the host does: ownership moves
// first, then the event fires.
func (f *fixture) siege(t *testing.T, settlement capitals.SettlementID, former, capturer capitals.HeroID, cause capitals.ChangeCause) (Outcome, *model.CaptureRecord) {
	t.Helper()
	ctx := context.Background()
	if err := f.world.World.TransferSettlement(ctx, capturer, settlement); err != nil {
		t.Fatalf("host transfer: %v", err)
	}
	return f.session.OnOwnershipChanged(ctx, OwnershipChange{
		Settlement:  settlement,
		FormerOwner: former,
		Capturer:    capturer,
		Cause:       cause,
	})
}

func stepStatus(rec *model.CaptureRecord, name string) string {
	for _, s := range rec.Steps {
		if s.Name == name {
			return s.Status
		}
	}
	return ""
}
