package aggregate

import (
	"sort"

	"demostats/internal/event"
)

// Registry maps account IDs to the participants seen in the match.
type Registry struct {
	populated bool
	players   map[uint64]*event.Participant
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{players: make(map[uint64]*event.Participant)}
}

// Populate registers the roster of a live round start. The first call
// returns the registered participants ordered by slot; later calls only
// refresh names and teams, and register newcomers silently.
func (r *Registry) Populate(roster []event.Participant) []event.Participant {
	first := !r.populated
	r.populated = true
	for i := range roster {
		r.put(roster[i])
	}
	if !first {
		return nil
	}
	return r.All()
}

// Populated reports whether the roster has been captured.
func (r *Registry) Populated() bool {
	return r.populated
}

// Observe records a participant referenced by an event if it is unknown.
func (r *Registry) Observe(p *event.Participant) {
	if p == nil || p.AccountID == 0 {
		return
	}
	if _, ok := r.players[p.AccountID]; ok {
		return
	}
	r.put(*p)
}

// Lookup returns the participant for an account.
func (r *Registry) Lookup(id uint64) (event.Participant, bool) {
	p, ok := r.players[id]
	if !ok {
		return event.Participant{}, false
	}
	return *p, true
}

// IDs returns every known account.
func (r *Registry) IDs() []uint64 {
	ids := make([]uint64, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	return ids
}

// All returns every known participant ordered by slot, then account.
func (r *Registry) All() []event.Participant {
	out := make([]event.Participant, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Slot != out[j].Slot {
			return out[i].Slot < out[j].Slot
		}
		return out[i].AccountID < out[j].AccountID
	})
	return out
}

func (r *Registry) put(p event.Participant) {
	if p.AccountID == 0 {
		return
	}
	cp := p
	r.players[p.AccountID] = &cp
}
