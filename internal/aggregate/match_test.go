package aggregate

import (
	"errors"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	. "github.com/smartystreets/goconvey/convey"

	"demostats/internal/event"
	"demostats/internal/logging"
)

type recordingSink struct {
	records []Record
	roster  []event.Participant
	fail    error
}

func (s *recordingSink) Emit(rec Record) error {
	if s.fail != nil {
		return s.fail
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *recordingSink) Roster(p event.Participant) error {
	s.roster = append(s.roster, p)
	return nil
}

func (s *recordingSink) categories() []string {
	out := make([]string, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Category)
	}
	return out
}

type countingObserver struct {
	applied map[string]int
	dropped map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{applied: map[string]int{}, dropped: map[string]int{}}
}

func (o *countingObserver) EventApplied(kind string)   { o.applied[kind]++ }
func (o *countingObserver) EventDropped(reason string) { o.dropped[reason]++ }

func at(tick int, sec float64) event.Meta {
	return event.Meta{Tick: tick, Time: time.Duration(sec * float64(time.Second))}
}

func TestMatchScenarios(t *testing.T) {
	Convey("Given a match with two opposing participants", t, func() {
		sink := &recordingSink{}
		obs := newCountingObserver()
		m := NewMatch(DefaultPolicy(), sink, WithObserver(obs), WithLogger(logging.Nop()))

		a := event.Participant{AccountID: 1, Name: "A", Slot: 1, Team: event.TeamSideA}
		b := event.Participant{AccountID: 2, Name: "B", Slot: 2, Team: event.TeamSideB}
		roster := []event.Participant{a, b}

		Convey("When damage arrives during warmup", func() {
			So(m.Apply(event.RoundStart{Meta: at(1, 1), Warmup: true, Participants: roster}), ShouldBeNil)
			So(m.Apply(event.Hurt{Meta: at(2, 2), Attacker: &a, Victim: &b, Damage: 50, Health: 50}), ShouldBeNil)

			Convey("Then nothing is aggregated or emitted", func() {
				So(sink.records, ShouldBeEmpty)
				So(sink.roster, ShouldBeEmpty)
				So(obs.dropped[DropInactiveRound], ShouldEqual, 1)
				sum := m.Finish()
				So(sum.DamageRanking, ShouldBeEmpty)
				So(sum.KillRanking, ShouldBeEmpty)
			})
		})

		Convey("When A hurts B for 60 and then 100", func() {
			So(m.Apply(event.RoundStart{Meta: at(10, 5), RoundsPlayed: 0, Participants: roster}), ShouldBeNil)
			So(m.Apply(event.Hurt{Meta: at(20, 30), Attacker: &a, Victim: &b, Damage: 60, Health: 40}), ShouldBeNil)
			So(m.Apply(event.Hurt{Meta: at(21, 31), Attacker: &a, Victim: &b, Damage: 100, Health: 0}), ShouldBeNil)

			Convey("Then damage is clamped to 100 and one kill is counted", func() {
				sum := m.Finish()
				So(len(sum.DamageRanking), ShouldEqual, 1)
				So(sum.DamageRanking[0].Count, ShouldEqual, 100)
				So(sum.DamageRanking[0].Key(), ShouldEqual, "A ==> B")
				So(len(sum.KillRanking), ShouldEqual, 1)
				So(sum.KillRanking[0].Count, ShouldEqual, 1)
				So(sum.Players[0].Damage, ShouldEqual, 100)
			})

			Convey("Then the next round restores health", func() {
				So(m.Apply(event.RoundStart{Meta: at(30, 60), RoundsPlayed: 1, Participants: roster}), ShouldBeNil)
				So(m.Apply(event.Hurt{Meta: at(31, 61), Attacker: &a, Victim: &b, Damage: 100, Health: 0}), ShouldBeNil)
				sum := m.Finish()
				So(sum.DamageRanking[0].Count, ShouldEqual, 200)
				So(sum.KillRanking[0].Count, ShouldEqual, 2)
				So(m.Round(), ShouldEqual, 2)
			})

			Convey("Then the roster was announced once, after the first round start", func() {
				So(sink.categories(), ShouldResemble, []string{CategoryRoundStart})
				So(len(sink.roster), ShouldEqual, 2)
				So(sink.roster[0].Name, ShouldEqual, "A")
			})
		})

		Convey("When a round is played through", func() {
			a.Position = r3.Vector{X: 1, Y: 2, Z: 3}
			events := []event.Event{
				event.RoundStart{Meta: at(100, 10), Participants: roster},
				event.FreezeEnd{Meta: at(200, 25)},
				event.WeaponFire{Meta: at(210, 26), Shooter: &a, Weapon: "ak47"},
				event.Detonation{Meta: at(220, 27), Grenade: "flashbang", Thrower: &a, Position: r3.Vector{X: 10, Y: 20, Z: 30}},
				event.Blind{Meta: at(220, 27), Thrower: &a, Victim: &b, Duration: 1500 * time.Millisecond},
				event.Hurt{Meta: at(230, 28.5), Attacker: &a, Victim: &b, Damage: 120, Health: 0, Headshot: true},
				event.Death{Meta: at(230, 28.5), Killer: &a, Victim: &b, Weapon: "ak47", Headshot: true},
				event.Objective{Meta: at(240, 40), Kind: event.ObjectivePlant, Player: &a, Site: "A"},
				event.RoundEnd{Meta: at(300, 60), Winner: event.TeamSideA, Reason: 9},
				event.WinPanel{Meta: at(300, 60), FunFact: "#funfact_kills"},
				event.MVP{Meta: at(301, 60), Player: &a, Reason: 1},
			}
			for _, e := range events {
				So(m.Apply(e), ShouldBeNil)
			}

			Convey("Then each category is emitted in order", func() {
				So(sink.categories(), ShouldResemble, []string{
					CategoryRoundStart, CategoryFreezeEnd, CategoryWeaponFire, "flashbang_detonate",
					CategoryFlashHit, CategoryDeath, event.ObjectivePlant, CategoryRoundEnd, CategoryFunFact, CategoryMVP,
				})
			})

			Convey("Then freeze end carries the freeze time and re-bases the clock", func() {
				fe := sink.records[1]
				So(fe.Round, ShouldEqual, 1)
				So(fe.Elapsed, ShouldEqual, 0)
				So(fe.Fields, ShouldResemble, []string{"15.00"})
				So(sink.records[2].Elapsed, ShouldEqual, time.Second)
			})

			Convey("Then the blind refers to the flash that caused it", func() {
				hit := sink.records[4]
				So(hit.Fields, ShouldResemble, []string{"A", RelationEnemy, "10.0,20.0,30.0", "0.0,0.0,0.0", "1.50"})
			})

			Convey("Then the first kill after freeze end is the entry", func() {
				death := sink.records[5]
				So(death.Fields, ShouldResemble, []string{"A", "B", "", "ak47", "1", "entry", "1.0,2.0,3.0", "0.0,0.0,0.0"})
				sum := m.Finish()
				So(sum.Players[0].EntryKills, ShouldEqual, 1)
				So(sum.Players[1].EntryDeaths, ShouldEqual, 1)
			})
		})

		Convey("When a blind arrives without a detonation", func() {
			So(m.Apply(event.RoundStart{Meta: at(1, 1), Participants: roster}), ShouldBeNil)
			So(m.Apply(event.Blind{Meta: at(2, 2), Thrower: &a, Victim: &b}), ShouldBeNil)

			Convey("Then it is emitted without a location and flagged", func() {
				So(sink.records[1].Fields[2], ShouldEqual, "")
				So(obs.dropped[DropInconsistent], ShouldEqual, 1)
			})
		})

		Convey("When the victim cannot be resolved", func() {
			So(m.Apply(event.RoundStart{Meta: at(1, 1), Participants: roster}), ShouldBeNil)
			So(m.Apply(event.Hurt{Meta: at(2, 2), Attacker: &a, Damage: 30, Health: 70}), ShouldBeNil)
			So(obs.dropped[DropUnresolved], ShouldEqual, 1)
			So(m.Finish().DamageRanking, ShouldBeEmpty)
		})

		Convey("When match stats arrive at the end", func() {
			So(m.Apply(event.RoundStart{Meta: at(1, 1), Participants: roster}), ShouldBeNil)
			rounds := make([]event.RoundCounters, 3)
			rounds[1] = event.RoundCounters{Kills: 2, Assists: 1, EquipmentValue: 800}
			So(m.Apply(event.MatchStats{Meta: at(9, 9), RoundsPlayed: 3, Players: []event.PlayerRounds{
				{Participant: a, Rounds: rounds},
			}}), ShouldBeNil)

			Convey("Then the summary carries the economy classification", func() {
				sum := m.Finish()
				So(sum.Rounds, ShouldEqual, 3)
				So(len(sum.Players), ShouldEqual, 2)
				pa := sum.Players[0]
				So(pa.Kills, ShouldEqual, 2)
				So(pa.Assists, ShouldEqual, 1)
				So(pa.SaveKills, ShouldEqual, 2)
				So(pa.LightBuyKills, ShouldEqual, 2)
				So(pa.WeightedEquipment, ShouldEqual, 1600)
				So(pa.AvgEquipmentPerKill, ShouldEqual, 800)
				So(sum.Players[1].Kills, ShouldEqual, 0)
			})
		})

		Convey("When the highlight participants are configured", func() {
			policy := DefaultPolicy()
			policy.Highlight = Highlight{First: 1, Second: 2, MaxDistanceSq: 1000}
			m = NewMatch(policy, sink, WithLogger(logging.Nop()))
			c := event.Participant{AccountID: 3, Name: "C", Team: event.TeamSideA, Position: r3.Vector{X: 10}}

			So(m.Apply(event.RoundStart{Meta: at(1, 1), Participants: roster}), ShouldBeNil)
			So(m.Apply(event.Death{Meta: at(2, 2), Killer: &c, Victim: &a}), ShouldBeNil)
			So(m.Apply(event.Death{Meta: at(3, 3), Killer: &b, Victim: &c}), ShouldBeNil)

			Convey("Then a highlight line follows the second death", func() {
				last := sink.records[len(sink.records)-1]
				So(last.Category, ShouldEqual, CategoryHighlight)
				So(last.Fields, ShouldResemble, []string{"A", "B", "C", "0.0", "100.0"})
			})
		})

		Convey("When the sink fails", func() {
			sink.fail = errors.New("closed pipe")
			err := m.Apply(event.RoundStart{Meta: at(1, 1), Participants: roster})
			So(err, ShouldNotBeNil)
			So(errors.Is(err, sink.fail), ShouldBeTrue)
		})
	})
}
