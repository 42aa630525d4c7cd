package aggregate

import "demostats/internal/event"

// EntryTracker detects the opening kill of each round. It is armed when the
// freeze period ends and consumed by the first qualifying death.
type EntryTracker struct {
	armed  bool
	kills  map[uint64]int
	deaths map[uint64]int
}

// NewEntryTracker returns a disarmed tracker.
func NewEntryTracker() *EntryTracker {
	return &EntryTracker{kills: make(map[uint64]int), deaths: make(map[uint64]int)}
}

// Arm enables detection for the current round.
func (t *EntryTracker) Arm() { t.armed = true }

// Disarm drops a pending flag.
func (t *EntryTracker) Disarm() { t.armed = false }

// Armed reports whether the next qualifying death is an entry.
func (t *EntryTracker) Armed() bool { return t.armed }

// Observe consumes the flag if d is a qualifying kill and reports whether it did.
// Suicides, world kills and team kills do not qualify.
func (t *EntryTracker) Observe(d event.Death) bool {
	if !t.armed || d.Killer == nil || d.Victim == nil {
		return false
	}
	if d.Killer.AccountID == d.Victim.AccountID {
		return false
	}
	if sameTeam(d.Killer, d.Victim) {
		return false
	}
	t.armed = false
	t.kills[d.Killer.AccountID]++
	t.deaths[d.Victim.AccountID]++
	return true
}

// Kills returns the entry kills of an account.
func (t *EntryTracker) Kills(id uint64) int { return t.kills[id] }

// Deaths returns the entry deaths of an account.
func (t *EntryTracker) Deaths(id uint64) int { return t.deaths[id] }

func sameTeam(a, b *event.Participant) bool {
	if a.Team == event.TeamUnknown || b.Team == event.TeamUnknown {
		return false
	}
	return a.Team == b.Team
}
