package demo

import "demostats/internal/event"

// ledger accumulates per-round counters for every participant seen in a
// live round. Rounds are indexed from zero.
type ledger struct {
	round   int
	players map[uint64]*event.PlayerRounds
	order   []uint64
}

func newLedger() *ledger {
	return &ledger{round: -1, players: make(map[uint64]*event.PlayerRounds)}
}

// begin moves to the round following roundsPlayed completed rounds.
func (l *ledger) begin(roundsPlayed int) {
	l.round = roundsPlayed
}

func (l *ledger) live() bool {
	return l.round >= 0
}

func (l *ledger) counters(p *event.Participant) *event.RoundCounters {
	if p == nil || !l.live() {
		return nil
	}
	pr, ok := l.players[p.AccountID]
	if !ok {
		pr = &event.PlayerRounds{}
		l.players[p.AccountID] = pr
		l.order = append(l.order, p.AccountID)
	}
	pr.Participant = *p
	for len(pr.Rounds) <= l.round {
		pr.Rounds = append(pr.Rounds, event.RoundCounters{})
	}
	return &pr.Rounds[l.round]
}

func (l *ledger) equipment(p *event.Participant, value int) {
	if c := l.counters(p); c != nil {
		c.EquipmentValue = value
	}
}

// kill books a death. Suicides and team kills give the killer no kill.
func (l *ledger) kill(killer, victim, assister *event.Participant) {
	if c := l.counters(victim); c != nil {
		c.Deaths++
	}
	if killer == nil || victim == nil || killer.AccountID == victim.AccountID {
		return
	}
	if killer.Team == victim.Team && killer.Team != event.TeamUnknown {
		return
	}
	if c := l.counters(killer); c != nil {
		c.Kills++
	}
	if c := l.counters(assister); c != nil {
		c.Assists++
	}
}

func (l *ledger) objective(p *event.Participant) {
	if c := l.counters(p); c != nil {
		c.Objectives++
	}
}

func (l *ledger) stats(meta event.Meta, roundsPlayed int) event.MatchStats {
	ms := event.MatchStats{Meta: meta, RoundsPlayed: roundsPlayed}
	for _, id := range l.order {
		ms.Players = append(ms.Players, *l.players[id])
	}
	return ms
}
