package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/freeeve/kingdom-capitals/internal/model"
	"github.com/freeeve/kingdom-capitals/internal/repository"
	"github.com/freeeve/kingdom-capitals/pkg/capitals"
)

// World is an in-memory repository.WorldRepository. It also carries the host-side
// mechanics the capital services rely on: successor assignment when a ruling clan
// leaves, clan release on elimination, and leader elections.
type World struct {
	mu          sync.RWMutex
	player      capitals.HeroID
	factions    map[capitals.FactionID]*model.Faction
	clans       map[capitals.ClanID]*model.Clan
	heroes      map[capitals.HeroID]*model.Hero
	settlements map[capitals.SettlementID]*model.Settlement
	troops      capitals.TroopTree
}

var _ repository.WorldRepository = (*World)(nil)

// NewWorld builds a world from a scenario. The scenario is copied.
func NewWorld(sc *Scenario) *World {
	w := &World{
		player:      sc.Player,
		factions:    make(map[capitals.FactionID]*model.Faction),
		clans:       make(map[capitals.ClanID]*model.Clan),
		heroes:      make(map[capitals.HeroID]*model.Hero),
		settlements: make(map[capitals.SettlementID]*model.Settlement),
		troops:      sc.Troops,
	}
	for _, f := range sc.Factions {
		w.factions[f.ID] = &f
	}
	for _, c := range sc.Clans {
		w.clans[c.ID] = &c
	}
	for _, h := range sc.Heroes {
		w.heroes[h.ID] = &h
		if h.Player && w.player == "" {
			w.player = h.ID
		}
	}
	for _, s := range sc.Settlements {
		s.Garrison = append([]model.GarrisonStack(nil), s.Garrison...)
		w.settlements[s.ID] = &s
	}
	return w
}

func notFound(kind string, id any) error {
	return fmt.Errorf("%s %v: %w", kind, id, repository.ErrNotFound)
}

func (w *World) Factions(_ context.Context) ([]model.Faction, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]model.Faction, 0, len(w.factions))
	for _, f := range w.factions {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (w *World) Faction(_ context.Context, id capitals.FactionID) (*model.Faction, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	f, ok := w.factions[id]
	if !ok {
		return nil, notFound("faction", id)
	}
	cp := *f
	return &cp, nil
}

func (w *World) FactionLeader(_ context.Context, id capitals.FactionID) (capitals.HeroID, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	f, ok := w.factions[id]
	if !ok {
		return "", notFound("faction", id)
	}
	return f.Leader, nil
}

func (w *World) RulingClan(_ context.Context, id capitals.FactionID) (capitals.ClanID, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	f, ok := w.factions[id]
	if !ok {
		return "", notFound("faction", id)
	}
	return f.RulingClan, nil
}

func (w *World) ClansOf(_ context.Context, id capitals.FactionID) ([]model.Clan, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if _, ok := w.factions[id]; !ok {
		return nil, notFound("faction", id)
	}
	return w.clansOfLocked(id), nil
}

func (w *World) clansOfLocked(id capitals.FactionID) []model.Clan {
	var out []model.Clan
	for _, c := range w.clans {
		if c.Faction == id {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) IsEliminated(_ context.Context, id capitals.FactionID) (bool, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	f, ok := w.factions[id]
	if !ok {
		return false, notFound("faction", id)
	}
	return f.Eliminated, nil
}

func (w *World) Hero(_ context.Context, id capitals.HeroID) (*model.Hero, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	h, ok := w.heroes[id]
	if !ok {
		return nil, notFound("hero", id)
	}
	cp := *h
	return &cp, nil
}

func (w *World) Clan(_ context.Context, id capitals.ClanID) (*model.Clan, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	c, ok := w.clans[id]
	if !ok {
		return nil, notFound("clan", id)
	}
	cp := *c
	return &cp, nil
}

func (w *World) ClanOfHero(_ context.Context, id capitals.HeroID) (capitals.ClanID, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	h, ok := w.heroes[id]
	if !ok {
		return "", notFound("hero", id)
	}
	return h.Clan, nil
}

func (w *World) FactionOfHero(_ context.Context, id capitals.HeroID) (capitals.FactionID, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	h, ok := w.heroes[id]
	if !ok {
		return "", notFound("hero", id)
	}
	return w.factionOfClanLocked(h.Clan), nil
}

func (w *World) factionOfClanLocked(id capitals.ClanID) capitals.FactionID {
	c, ok := w.clans[id]
	if !ok {
		return ""
	}
	return c.Faction
}

func (w *World) PlayerHero(_ context.Context) (capitals.HeroID, error) {
	if w.player == "" {
		return "", notFound("player hero", "")
	}
	return w.player, nil
}

func (w *World) Settlement(_ context.Context, id capitals.SettlementID) (*model.Settlement, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.settlements[id]
	if !ok {
		return nil, notFound("settlement", id)
	}
	cp := *s
	cp.Garrison = append([]model.GarrisonStack(nil), s.Garrison...)
	return &cp, nil
}

// Settlements returns every settlement, sorted by id.
func (w *World) Settlements() []model.Settlement {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]model.Settlement, 0, len(w.settlements))
	for _, s := range w.settlements {
		cp := *s
		cp.Garrison = append([]model.GarrisonStack(nil), s.Garrison...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) SettlementOwner(_ context.Context, id capitals.SettlementID) (capitals.ClanID, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.settlements[id]
	if !ok {
		return "", notFound("settlement", id)
	}
	return s.OwnerClan, nil
}

func (w *World) SettlementFaction(_ context.Context, id capitals.SettlementID) (capitals.FactionID, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.settlements[id]
	if !ok {
		return "", notFound("settlement", id)
	}
	return w.factionOfClanLocked(s.OwnerClan), nil
}

func (w *World) AddFood(_ context.Context, id capitals.SettlementID, amount float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.settlements[id]
	if !ok {
		return notFound("settlement", id)
	}
	s.Food += amount
	return nil
}

func (w *World) AddGarrison(_ context.Context, id capitals.SettlementID, unit capitals.UnitID, count int) error {
	if count <= 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.settlements[id]
	if !ok {
		return notFound("settlement", id)
	}
	for i := range s.Garrison {
		if s.Garrison[i].Unit == unit {
			s.Garrison[i].Count += count
			return nil
		}
	}
	s.Garrison = append(s.Garrison, model.GarrisonStack{Unit: unit, Count: count})
	return nil
}

func (w *World) TroopTree(_ context.Context) (*capitals.TroopTree, error) {
	return &w.troops, nil
}

func (w *World) TransferSettlement(_ context.Context, newOwner capitals.HeroID, settlement capitals.SettlementID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.settlements[settlement]
	if !ok {
		return notFound("settlement", settlement)
	}
	h, ok := w.heroes[newOwner]
	if !ok {
		return notFound("hero", newOwner)
	}
	if h.Clan == "" {
		return fmt.Errorf("hero %s has no clan to own %s", newOwner, settlement)
	}
	s.OwnerClan = h.Clan
	return nil
}

// TransferClanToFaction moves a clan. When the clan was ruling its former faction
// a successor clan is appointed immediately.
func (w *World) TransferClanToFaction(_ context.Context, clan capitals.ClanID, faction capitals.FactionID, asVassal bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.clans[clan]
	if !ok {
		return notFound("clan", clan)
	}
	if faction != "" {
		f, ok := w.factions[faction]
		if !ok {
			return notFound("faction", faction)
		}
		if f.Eliminated {
			return fmt.Errorf("faction %s is eliminated", faction)
		}
	}
	old := c.Faction
	c.Faction = faction
	c.Vassal = asVassal && faction != ""
	if of, ok := w.factions[old]; ok && of.RulingClan == clan {
		w.appointSuccessorLocked(of)
	}
	return nil
}

// EliminateFaction destroys a faction. Clans still inside become independent.
func (w *World) EliminateFaction(_ context.Context, id capitals.FactionID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.factions[id]
	if !ok {
		return notFound("faction", id)
	}
	if f.Eliminated {
		return nil
	}
	for _, c := range w.clans {
		if c.Faction == id {
			c.Faction = ""
			c.Vassal = false
		}
	}
	f.Eliminated = true
	f.Leader = ""
	f.RulingClan = ""
	return nil
}

// appointSuccessorLocked hands rule to the first remaining clan with a living leader.
func (w *World) appointSuccessorLocked(f *model.Faction) {
	f.Leader, f.RulingClan = "", ""
	for _, c := range w.clansOfLocked(f.ID) {
		if c.Eliminated || c.Leader == "" {
			continue
		}
		if h, ok := w.heroes[c.Leader]; ok && !h.Dead {
			f.RulingClan = c.ID
			f.Leader = c.Leader
			w.clans[c.ID].Vassal = false
			return
		}
	}
}

// KillHero marks a hero dead. A faction led by the hero is left without a leader
// until ElectLeader or RunElections fills the seat; a clan led by the hero passes
// to its first living member. Returns the faction the hero led, if any.
func (w *World) KillHero(id capitals.HeroID) (capitals.FactionID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	h, ok := w.heroes[id]
	if !ok {
		return "", notFound("hero", id)
	}
	h.Dead = true

	if c, ok := w.clans[h.Clan]; ok && c.Leader == id {
		c.Leader = w.heirLocked(c.ID)
	}
	for _, f := range w.factions {
		if f.Leader == id {
			f.Leader = ""
			return f.ID, nil
		}
	}
	return "", nil
}

func (w *World) heirLocked(clan capitals.ClanID) capitals.HeroID {
	var ids []capitals.HeroID
	for _, h := range w.heroes {
		if h.Clan == clan && !h.Dead {
			ids = append(ids, h.ID)
		}
	}
	if len(ids) == 0 {
		return ""
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids[0]
}

// ElectLeader makes hero the leader of faction and the hero's clan the ruling clan.
func (w *World) ElectLeader(faction capitals.FactionID, hero capitals.HeroID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.factions[faction]
	if !ok {
		return notFound("faction", faction)
	}
	h, ok := w.heroes[hero]
	if !ok {
		return notFound("hero", hero)
	}
	c, ok := w.clans[h.Clan]
	if !ok || c.Faction != faction {
		return fmt.Errorf("hero %s is not in faction %s", hero, faction)
	}
	f.Leader = hero
	f.RulingClan = c.ID
	c.Vassal = false
	return nil
}

// RunElections fills every vacant leader seat of a living faction. The current
// ruling clan keeps the throne when it still has a living leader.
func (w *World) RunElections() []capitals.FactionID {
	w.mu.Lock()
	defer w.mu.Unlock()
	var elected []capitals.FactionID
	for _, f := range w.factions {
		if f.Eliminated || f.Leader != "" {
			continue
		}
		if c, ok := w.clans[f.RulingClan]; ok && c.Leader != "" {
			f.Leader = c.Leader
		} else {
			w.appointSuccessorLocked(f)
		}
		if f.Leader != "" {
			elected = append(elected, f.ID)
		}
	}
	sort.Slice(elected, func(i, j int) bool { return elected[i] < elected[j] })
	return elected
}

// FoundFaction creates a faction ruled by hero's clan.
func (w *World) FoundFaction(id capitals.FactionID, name string, hero capitals.HeroID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.factions[id]; exists {
		return fmt.Errorf("faction %s already exists", id)
	}
	h, ok := w.heroes[hero]
	if !ok {
		return notFound("hero", hero)
	}
	c, ok := w.clans[h.Clan]
	if !ok {
		return fmt.Errorf("hero %s has no clan", hero)
	}
	if c.Faction != "" {
		return fmt.Errorf("clan %s already belongs to %s", c.ID, c.Faction)
	}
	w.factions[id] = &model.Faction{ID: id, Name: name, Leader: hero, RulingClan: c.ID}
	c.Faction = id
	c.Vassal = false
	return nil
}

// Clans returns every clan, sorted by id.
func (w *World) Clans() []model.Clan {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]model.Clan, 0, len(w.clans))
	for _, c := range w.clans {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
