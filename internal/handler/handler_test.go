package handler

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/freeeve/kingdom-capitals/internal/config"
	"github.com/freeeve/kingdom-capitals/internal/model"
	"github.com/freeeve/kingdom-capitals/internal/repository/memory"
	"github.com/freeeve/kingdom-capitals/internal/service"
	"github.com/freeeve/kingdom-capitals/pkg/capitals"
)

const testScenario = `
player: player
factions:
  - {id: vlandia, name: Vlandia, leader: derthert, ruling_clan: dey_meroc}
  - {id: sturgia, name: Sturgia, leader: raganvad, ruling_clan: rurikung}
clans:
  - {id: dey_meroc, leader: derthert, faction: vlandia}
  - {id: dey_rothad, leader: rothad, faction: vlandia}
  - {id: rurikung, leader: raganvad, faction: sturgia}
  - {id: vagirid, leader: olek, faction: sturgia}
  - {id: player_clan, leader: player}
heroes:
  - {id: derthert, clan: dey_meroc}
  - {id: rothad, clan: dey_rothad}
  - {id: raganvad, clan: rurikung}
  - {id: olek, clan: vagirid}
  - {id: player, clan: player_clan, player: true}
settlements:
  - {id: town_V5, name: Galend, owner_clan: dey_meroc, culture: vlandia, food: 10, prosperity: 3000}
  - {id: town_S2, name: Balgard, owner_clan: rurikung, culture: sturgia, food: 10, prosperity: 3000}
troops:
  base: {vlandia: vlandian_recruit, sturgia: sturgian_recruit}
  upgrades:
    vlandian_recruit: [vlandian_footman]
    sturgian_recruit: [sturgian_warrior]
`

type testEnv struct {
	world   *memory.World
	session *service.Session
	hub     *Hub
	events  *EventHandler
	capital *CapitalHandler
	lobby   *SessionHandler
}

func newTestEnv(t *testing.T, start bool) *testEnv {
	t.Helper()
	sc, err := memory.ParseScenario([]byte(testScenario))
	if err != nil {
		t.Fatalf("parse scenario: %v", err)
	}
	world := memory.NewWorld(sc)
	hub := NewHub()
	session := service.NewSession(world, config.DefaultSettings(),
		service.WithNotifier(hub),
		service.WithRand(rand.New(rand.NewSource(7))),
	)
	if start {
		if _, err := session.Start(context.Background()); err != nil {
			t.Fatalf("start: %v", err)
		}
	}
	return &testEnv{
		world:   world,
		session: session,
		hub:     hub,
		events:  NewEventHandler(session, hub),
		capital: NewCapitalHandler(session),
		lobby:   NewSessionHandler(session, hub),
	}
}

func post(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestSessionStartAndList(t *testing.T) {
	env := newTestEnv(t, false)
	c := newTestConn("host-1")
	env.hub.Register(c)
	defer env.hub.Unregister(c)

	rec := httptest.NewRecorder()
	env.capital.ListCapitals(rec, httptest.NewRequest(http.MethodGet, "/capitals", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 before start, got %d", rec.Code)
	}

	rec = post(t, env.lobby.Start, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[map[string]any](t, rec); got["capitals"].(float64) != 2 {
		t.Errorf("expected 2 capitals, got %v", got["capitals"])
	}
	select {
	case msg := <-c.send:
		if ev := decodeEvent(t, msg); ev.Type != EventSessionStarted {
			t.Errorf("expected session_started, got %s", ev.Type)
		}
	case <-time.After(time.Second):
		t.Error("no session_started event")
	}

	rec = httptest.NewRecorder()
	env.capital.ListCapitals(rec, httptest.NewRequest(http.MethodGet, "/capitals", nil))
	entries := decode[[]capitals.Entry](t, rec)
	if len(entries) != 2 || entries[0].Faction != "sturgia" || entries[1].Settlement != "town_V5" {
		t.Errorf("unexpected capitals %+v", entries)
	}
}

func TestGetCapital(t *testing.T) {
	env := newTestEnv(t, true)

	req := httptest.NewRequest(http.MethodGet, "/capitals/vlandia", nil)
	req.SetPathValue("factionId", "vlandia")
	rec := httptest.NewRecorder()
	env.capital.GetCapital(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if e := decode[capitals.Entry](t, rec); e.Settlement != "town_V5" {
		t.Errorf("unexpected entry %+v", e)
	}

	req = httptest.NewRequest(http.MethodGet, "/capitals/khuzait", nil)
	req.SetPathValue("factionId", "khuzait")
	rec = httptest.NewRecorder()
	env.capital.GetCapital(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestSettlementStatus(t *testing.T) {
	env := newTestEnv(t, true)

	req := httptest.NewRequest(http.MethodGet, "/settlements/town_S2/capital", nil)
	req.SetPathValue("id", "town_S2")
	rec := httptest.NewRecorder()
	env.capital.SettlementStatus(rec, req)

	st := decode[model.CapitalStatus](t, rec)
	if st.Faction != "sturgia" || !st.IsCapital || st.MaxBuildingLevel != capitals.CapitalMaxBuildingLevel {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestOwnershipChangedCapture(t *testing.T) {
	env := newTestEnv(t, true)
	c := newTestConn("host-1")
	env.hub.Register(c)
	defer env.hub.Unregister(c)

	env.world.TransferSettlement(context.Background(), "olek", "town_V5")
	rec := post(t, env.events.OwnershipChanged,
		`{"settlement":"town_V5","former_owner":"derthert","capturer":"olek","cause":"siege"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		Outcome string              `json:"outcome"`
		Capture model.CaptureRecord `json:"capture"`
	}](t, rec)
	if resp.Outcome != string(service.OutcomeCaptured) || resp.Capture.OldFaction != "vlandia" {
		t.Errorf("unexpected response %+v", resp)
	}

	var kinds []string
	for len(c.send) > 0 {
		kinds = append(kinds, decodeEvent(t, <-c.send).Type)
	}
	want := []string{model.NotifyConquest, EventCaptureRecorded}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", kinds, want)
	}

	rec = httptest.NewRecorder()
	env.capital.ListCaptures(rec, httptest.NewRequest(http.MethodGet, "/captures?limit=5", nil))
	if recs := decode[[]model.CaptureRecord](t, rec); len(recs) != 1 {
		t.Errorf("expected one capture, got %d", len(recs))
	}

	rec = httptest.NewRecorder()
	env.capital.ListCaptures(rec, httptest.NewRequest(http.MethodGet, "/captures?settlement=town_S2", nil))
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty list, got %s", rec.Body.String())
	}
}

func TestOwnershipChangedValidation(t *testing.T) {
	env := newTestEnv(t, true)
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"missing settlement", `{"capturer":"olek","cause":"siege"}`},
		{"unknown cause", `{"settlement":"town_V5","capturer":"olek","cause":"dragon"}`},
		{"unknown field", `{"settlement":"town_V5","capturer":"olek","cause":"siege","extra":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := post(t, env.events.OwnershipChanged, tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestListCapturesBadLimit(t *testing.T) {
	env := newTestEnv(t, true)
	rec := httptest.NewRecorder()
	env.capital.ListCaptures(rec, httptest.NewRequest(http.MethodGet, "/captures?limit=zero", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestLeaderDiedAndTick(t *testing.T) {
	env := newTestEnv(t, true)

	rec := post(t, env.events.LeaderDied, `{"victim":"derthert","faction":"vlandia"}`)
	if got := decode[map[string]bool](t, rec); !got["scheduled"] {
		t.Fatalf("expected scheduled, got %s", rec.Body.String())
	}
	env.world.KillHero("derthert")
	env.world.ElectLeader("vlandia", "rothad")

	rec = post(t, env.lobby.Tick, `{"days":2}`)
	reports := decode[[]service.TickReport](t, rec)
	if len(reports) != 2 || reports[0].TasksFired != 1 || reports[1].Day != 2 {
		t.Errorf("unexpected reports %+v", reports)
	}
	if owner, _ := env.world.SettlementOwner(context.Background(), "town_V5"); owner != "dey_rothad" {
		t.Errorf("expected capital with dey_rothad, got %s", owner)
	}
}

func TestTickRejectsBadDays(t *testing.T) {
	env := newTestEnv(t, true)
	if rec := post(t, env.lobby.Tick, `{"days":1000}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if rec := post(t, env.lobby.Tick, ""); rec.Code != http.StatusOK {
		t.Errorf("empty body should tick once, got %d", rec.Code)
	}
	if env.session.Day() != 1 {
		t.Errorf("day = %d, want 1", env.session.Day())
	}
}

func TestClanChangedFaction(t *testing.T) {
	env := newTestEnv(t, true)
	env.world.TransferClanToFaction(context.Background(), "dey_meroc", "sturgia", false)

	rec := post(t, env.events.ClanChangedFaction,
		`{"clan":"dey_meroc","old_faction":"vlandia","new_faction":"sturgia","was_ruling":true}`)
	if got := decode[map[string]bool](t, rec); !got["rehomed"] {
		t.Errorf("expected rehomed, got %s", rec.Body.String())
	}
	if rec := post(t, env.events.ClanChangedFaction, `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without clan, got %d", rec.Code)
	}
}

func TestReviewDistribution(t *testing.T) {
	env := newTestEnv(t, true)
	env.world.TransferSettlement(context.Background(), "olek", "town_V5")
	post(t, env.events.OwnershipChanged, `{"settlement":"town_V5","former_owner":"derthert","capturer":"olek","cause":"barter"}`)

	rec := post(t, env.events.ReviewDistribution, `{"settlement":"town_V5","faction":"sturgia"}`)
	if got := decode[map[string]bool](t, rec); got["allow"] {
		t.Error("recently captured capital should be withheld")
	}
	rec = post(t, env.events.ReviewDistribution, `{"settlement":"town_S2"}`)
	if got := decode[map[string]bool](t, rec); !got["allow"] {
		t.Error("other settlements should be allowed")
	}
}

func TestSessionEnd(t *testing.T) {
	env := newTestEnv(t, true)
	if rec := post(t, env.lobby.End, ""); rec.Code != http.StatusOK {
		t.Fatalf("end: %d", rec.Code)
	}
	rec := httptest.NewRecorder()
	env.lobby.GetSession(rec, httptest.NewRequest(http.MethodGet, "/session", nil))
	if got := decode[map[string]any](t, rec); got["started"] != false {
		t.Errorf("expected stopped session, got %v", got)
	}
}

func decodeEvent(t *testing.T, msg []byte) WSEvent {
	t.Helper()
	var ev WSEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return ev
}
