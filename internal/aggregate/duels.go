package aggregate

import (
	"sort"
	"strings"

	"demostats/internal/event"
)

// DuelKey identifies an ordered attacker/victim pair. Attacker 0 is the world.
type DuelKey struct {
	Attacker uint64
	Victim   uint64
}

// DuelStats accumulates what one attacker did to one victim. Names are the
// ones known when the pair was first seen.
type DuelStats struct {
	AttackerName string
	VictimName   string
	Kills        int
	Damage       int
}

// DuelTally accumulates credited damage and kills per pair.
type DuelTally struct {
	duels map[DuelKey]*DuelStats
}

// NewDuelTally returns an empty tally.
func NewDuelTally() *DuelTally {
	return &DuelTally{duels: make(map[DuelKey]*DuelStats)}
}

// Record adds credited damage for the pair and a kill when lethal.
// A nil attacker is attributed to the world.
func (d *DuelTally) Record(attacker, victim *event.Participant, credited int, lethal bool) {
	key := DuelKey{Attacker: accountOf(attacker), Victim: accountOf(victim)}
	stats := d.duels[key]
	if stats == nil {
		stats = &DuelStats{AttackerName: label(attacker), VictimName: label(victim)}
		d.duels[key] = stats
	}
	stats.Damage += credited
	if lethal {
		stats.Kills++
	}
}

// Get returns the stats for a pair.
func (d *DuelTally) Get(key DuelKey) (DuelStats, bool) {
	s, ok := d.duels[key]
	if !ok {
		return DuelStats{}, false
	}
	return *s, true
}

// DamageDealt sums the credited damage of an attacker over all victims.
func (d *DuelTally) DamageDealt(attacker uint64) int {
	total := 0
	for key, s := range d.duels {
		if key.Attacker == attacker {
			total += s.Damage
		}
	}
	return total
}

// Rankings returns the kill and damage rankings. Pairs with a zero count are
// left out. Ordering is count descending, then the composed key ascending,
// then account IDs.
func (d *DuelTally) Rankings() (kills, damage []Ranked) {
	for key, s := range d.duels {
		r := Ranked{AttackerID: key.Attacker, VictimID: key.Victim, Attacker: s.AttackerName, Victim: s.VictimName}
		if s.Kills > 0 {
			r.Count = s.Kills
			kills = append(kills, r)
		}
		if s.Damage > 0 {
			r.Count = s.Damage
			damage = append(damage, r)
		}
	}
	sortRanking(kills)
	sortRanking(damage)
	return kills, damage
}

func sortRanking(rs []Ranked) {
	sort.Slice(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if c := strings.Compare(a.Key(), b.Key()); c != 0 {
			return c < 0
		}
		if a.AttackerID != b.AttackerID {
			return a.AttackerID < b.AttackerID
		}
		return a.VictimID < b.VictimID
	})
}
