package demo

import (
	"errors"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"demostats/internal/event"
)

func collect(out *[]event.Event) func(event.Event) error {
	return func(e event.Event) error {
		*out = append(*out, e)
		return nil
	}
}

func ticks(events []event.Event) []string {
	var s []string
	for _, e := range events {
		switch ev := e.(type) {
		case event.Blind:
			s = append(s, "blind")
		case event.Detonation:
			s = append(s, ev.Grenade)
		default:
			s = append(s, "other")
		}
	}
	return s
}

func TestOrderer(t *testing.T) {
	Convey("Given an orderer", t, func() {
		var out []event.Event
		o := newOrderer(nil, collect(&out))
		victim := &event.Participant{AccountID: 2}

		Convey("A blind reported before its flash in the same tick is delivered after it", func() {
			So(o.push(event.Blind{Meta: event.Meta{Tick: 10}, Victim: victim}), ShouldBeNil)
			So(out, ShouldBeEmpty)
			So(o.push(event.Detonation{Meta: event.Meta{Tick: 10}, Grenade: "flashbang"}), ShouldBeNil)
			So(ticks(out), ShouldResemble, []string{"flashbang", "blind"})
			So(event.CheckOrder(out), ShouldBeNil)
		})

		Convey("A blind after its flash passes straight through", func() {
			So(o.push(event.Detonation{Meta: event.Meta{Tick: 10}, Grenade: "flashbang"}), ShouldBeNil)
			So(o.push(event.Blind{Meta: event.Meta{Tick: 10}, Victim: victim}), ShouldBeNil)
			So(ticks(out), ShouldResemble, []string{"flashbang", "blind"})
		})

		Convey("Other grenades do not release pending blinds", func() {
			So(o.push(event.Blind{Meta: event.Meta{Tick: 10}, Victim: victim}), ShouldBeNil)
			So(o.push(event.Detonation{Meta: event.Meta{Tick: 10}, Grenade: "smokegrenade"}), ShouldBeNil)
			So(ticks(out), ShouldResemble, []string{"smokegrenade"})

			Convey("But a later tick does", func() {
				So(o.push(event.FreezeEnd{Meta: event.Meta{Tick: 11}}), ShouldBeNil)
				So(ticks(out), ShouldResemble, []string{"smokegrenade", "blind", "other"})
			})

			Convey("And so does an explicit flush", func() {
				So(o.flush(), ShouldBeNil)
				So(ticks(out), ShouldResemble, []string{"smokegrenade", "blind"})
			})
		})

		Convey("Consumer errors stop delivery", func() {
			boom := errors.New("boom")
			o = newOrderer(nil, func(event.Event) error { return boom })
			So(o.push(event.FreezeEnd{}), ShouldEqual, boom)
		})
	})
}

func TestLedger(t *testing.T) {
	Convey("Given a ledger", t, func() {
		l := newLedger()
		a := &event.Participant{AccountID: 1, Name: "a", Team: event.TeamSideA}
		a2 := &event.Participant{AccountID: 3, Name: "a2", Team: event.TeamSideA}
		b := &event.Participant{AccountID: 2, Name: "b", Team: event.TeamSideB}

		Convey("Nothing is booked before the first live round", func() {
			l.kill(a, b, nil)
			So(l.stats(event.Meta{}, 0).Players, ShouldBeEmpty)
		})

		Convey("When two rounds are played", func() {
			l.begin(0)
			l.equipment(a, 800)
			l.kill(a, b, a2)
			l.kill(a, a2, nil)
			l.begin(1)
			l.equipment(a, 4700)
			l.objective(a)
			l.kill(b, b, nil)

			stats := l.stats(event.Meta{Tick: 99}, 2)

			Convey("Then counters land in the right rounds", func() {
				So(stats.RoundsPlayed, ShouldEqual, 2)
				So(stats.Players[0].Participant.AccountID, ShouldEqual, 1)
				ra := stats.Players[0].Rounds
				So(len(ra), ShouldEqual, 2)
				So(ra[0], ShouldResemble, event.RoundCounters{Kills: 1, EquipmentValue: 800})
				So(ra[1], ShouldResemble, event.RoundCounters{Objectives: 1, EquipmentValue: 4700})
			})

			Convey("Then team kills and suicides give no kill but count the death", func() {
				var byID = map[uint64]event.PlayerRounds{}
				for _, p := range stats.Players {
					byID[p.Participant.AccountID] = p
				}
				So(byID[3].Rounds[0].Deaths, ShouldEqual, 1)
				So(byID[3].Rounds[0].Assists, ShouldEqual, 1)
				So(byID[2].Rounds[0].Deaths, ShouldEqual, 1)
				So(byID[2].Rounds[1].Deaths, ShouldEqual, 1)
				So(byID[2].Rounds[1].Kills, ShouldEqual, 0)
			})
		})
	})
}

func TestOpen(t *testing.T) {
	Convey("Opening unusable paths fails with an input error", t, func() {
		_, err := Open(filepath.Join(t.TempDir(), "missing.dem"), nil)
		So(errors.Is(err, ErrInputAccess), ShouldBeTrue)

		_, err = Open(t.TempDir(), nil)
		So(errors.Is(err, ErrInputAccess), ShouldBeTrue)
	})
}
