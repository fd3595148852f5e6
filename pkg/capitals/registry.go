package capitals

import (
	"context"
	"errors"
	"sort"
)

var (
	ErrAlreadyInitialized = errors.New("capital registry already initialized")
	ErrNotInitialized     = errors.New("capital registry not initialized")
)

// DefaultRecentlyCapturedDays is how long a captured capital stays shielded from
// automatic distribution.
const DefaultRecentlyCapturedDays = 1

// CapitalLookup resolves a faction's canonical home settlement.
type CapitalLookup func(FactionID) (SettlementID, bool)

// Registry is the authoritative faction -> capital mapping plus the set of
// recently captured capitals. A settlement is the capital of at most one faction
// and a faction has at most one capital.
//
// Every query on an uninitialized registry returns false/empty and every mutation
// is a no-op; use Initialized to tell the two apart.
type Registry struct {
	capitals    map[FactionID]SettlementID
	recent      map[SettlementID]uint64 // settlement -> day it was marked
	sched       *Scheduler
	expiryDays  uint64
	initialized bool
}

// NewRegistry creates an uninitialized registry whose expiry callbacks are
// scheduled on sched.
func NewRegistry(sched *Scheduler) *Registry {
	if sched == nil {
		sched = NewScheduler()
	}
	return &Registry{
		capitals:   make(map[FactionID]SettlementID),
		recent:     make(map[SettlementID]uint64),
		sched:      sched,
		expiryDays: DefaultRecentlyCapturedDays,
	}
}

// SetExpiryDays changes the recently-captured window. Values below one day are
// raised to one.
func (r *Registry) SetExpiryDays(days uint64) {
	if days < 1 {
		days = 1
	}
	r.expiryDays = days
}

// Initialize populates the registry by asking lookup for each faction's home
// settlement. A second call returns ErrAlreadyInitialized and changes nothing.
// Returns the number of capitals registered.
func (r *Registry) Initialize(factions []FactionID, lookup CapitalLookup) (int, error) {
	if r.initialized {
		return len(r.capitals), ErrAlreadyInitialized
	}
	if lookup == nil {
		lookup = DefaultCapital
	}
	taken := make(map[SettlementID]bool)
	for _, f := range factions {
		s, ok := lookup(f)
		if !ok || s == "" || taken[s] {
			continue
		}
		r.capitals[f] = s
		taken[s] = true
	}
	r.initialized = true
	return len(r.capitals), nil
}

// Initialized reports whether Initialize has run.
func (r *Registry) Initialized() bool { return r.initialized }

// IsCapital reports whether settlement is the current capital of any faction.
func (r *Registry) IsCapital(settlement SettlementID) bool {
	if !r.initialized || settlement == "" {
		return false
	}
	_, ok := r.FactionOf(settlement)
	return ok
}

// CapitalOf returns a faction's capital.
func (r *Registry) CapitalOf(faction FactionID) (SettlementID, bool) {
	if !r.initialized || faction == "" {
		return "", false
	}
	s, ok := r.capitals[faction]
	return s, ok
}

// FactionOf returns the faction whose capital is settlement.
func (r *Registry) FactionOf(settlement SettlementID) (FactionID, bool) {
	if !r.initialized {
		return "", false
	}
	for f, s := range r.capitals {
		if s == settlement {
			return f, true
		}
	}
	return "", false
}

// Capitals returns every entry sorted by faction.
func (r *Registry) Capitals() []Entry {
	if !r.initialized {
		return nil
	}
	out := make([]Entry, 0, len(r.capitals))
	for f, s := range r.capitals {
		out = append(out, Entry{Faction: f, Settlement: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Faction < out[j].Faction })
	return out
}

// Len returns the number of registered capitals.
func (r *Registry) Len() int { return len(r.capitals) }

// Unregister removes faction's mapping if present. It reports whether an entry
// was removed.
func (r *Registry) Unregister(settlement SettlementID, faction FactionID) bool {
	if !r.initialized || settlement == "" || faction == "" {
		return false
	}
	if _, ok := r.capitals[faction]; !ok {
		return false
	}
	delete(r.capitals, faction)
	return true
}

// RegisterNew makes settlement the capital of faction. If another faction held
// settlement, that entry is dropped and its faction returned as displaced; any
// previous capital of faction is replaced.
func (r *Registry) RegisterNew(faction FactionID, settlement SettlementID) (displaced FactionID, ok bool) {
	if !r.initialized || faction == "" || settlement == "" {
		return "", false
	}
	if holder, held := r.FactionOf(settlement); held && holder != faction {
		delete(r.capitals, holder)
		displaced = holder
	}
	r.capitals[faction] = settlement
	return displaced, true
}

// MarkRecentlyCaptured shields settlement from automatic distribution until the
// expiry task fires on day today+window. Re-marking restarts the window.
func (r *Registry) MarkRecentlyCaptured(settlement SettlementID, today uint64) bool {
	if !r.initialized || settlement == "" {
		return false
	}
	r.recent[settlement] = today
	r.sched.Schedule(expiryKey(settlement), today+r.expiryDays, func(context.Context) {
		delete(r.recent, settlement)
	})
	return true
}

// WasRecentlyCaptured reports whether settlement is inside its shield window.
func (r *Registry) WasRecentlyCaptured(settlement SettlementID) bool {
	if !r.initialized {
		return false
	}
	_, ok := r.recent[settlement]
	return ok
}

// RecentlyCaptured returns the shielded settlements, sorted.
func (r *Registry) RecentlyCaptured() []SettlementID {
	out := make([]SettlementID, 0, len(r.recent))
	for s := range r.recent {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Reset tears the registry down at session end: all entries and pending expiry
// tasks are dropped and the registry becomes uninitialized.
func (r *Registry) Reset() {
	for s := range r.recent {
		r.sched.Cancel(expiryKey(s))
	}
	r.capitals = make(map[FactionID]SettlementID)
	r.recent = make(map[SettlementID]uint64)
	r.initialized = false
}

func expiryKey(s SettlementID) TaskKey {
	return TaskKey{Op: OpExpireRecentlyCaptured, Target: string(s)}
}
