package aggregate

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"demostats/internal/event"
)

func TestRoundTracker(t *testing.T) {
	Convey("Given a round tracker", t, func() {
		var rt RoundTracker

		Convey("It starts inactive", func() {
			So(rt.Active(), ShouldBeFalse)
			So(rt.Number(), ShouldEqual, 0)
		})

		Convey("When a live round starts after four completed rounds", func() {
			n := rt.Start(event.Meta{Time: 10 * time.Second}, false, 4)

			Convey("Then it is round five and the clock starts there", func() {
				So(n, ShouldEqual, 5)
				So(rt.Active(), ShouldBeTrue)
				So(rt.Elapsed(event.Meta{Time: 12 * time.Second}), ShouldEqual, 2*time.Second)
			})

			Convey("Then freeze end only re-bases the clock", func() {
				freeze := rt.FreezeEnd(event.Meta{Time: 25 * time.Second})
				So(freeze, ShouldEqual, 15*time.Second)
				So(rt.Number(), ShouldEqual, 5)
				So(rt.Elapsed(event.Meta{Time: 26 * time.Second}), ShouldEqual, time.Second)
			})

			Convey("Then warmup resets the number to zero", func() {
				So(rt.Start(event.Meta{Time: 30 * time.Second}, true, 4), ShouldEqual, 0)
				So(rt.Active(), ShouldBeFalse)
			})
		})
	})
}

func TestHealthLedger(t *testing.T) {
	Convey("Given a health ledger reset for two accounts", t, func() {
		h := NewHealthLedger()
		h.Reset([]uint64{1, 2})

		Convey("Credited damage is clamped to remaining health", func() {
			So(h.Credit(2, 60, 40), ShouldEqual, 60)
			So(h.Health(2), ShouldEqual, 40)
			So(h.Credit(2, 100, 0), ShouldEqual, 40)
			So(h.Health(2), ShouldEqual, 0)
			So(h.Credit(2, 30, 0), ShouldEqual, 0)
		})

		Convey("Negative values never produce negative credit or health", func() {
			So(h.Credit(1, -5, -3), ShouldEqual, 0)
			So(h.Health(1), ShouldEqual, 0)
		})

		Convey("Unknown accounts start at full health", func() {
			So(h.Health(99), ShouldEqual, FullHealth)
			So(h.Credit(99, 150, 0), ShouldEqual, FullHealth)
		})

		Convey("Reset restores full health", func() {
			h.Credit(1, 70, 30)
			h.Reset([]uint64{1})
			So(h.Health(1), ShouldEqual, FullHealth)
		})
	})
}

func TestRegistry(t *testing.T) {
	Convey("Given an empty registry", t, func() {
		r := NewRegistry()
		roster := []event.Participant{
			{AccountID: 20, Name: "b", Slot: 2, Team: event.TeamSideA},
			{AccountID: 10, Name: "a", Slot: 1, Team: event.TeamSideB},
		}

		Convey("The first population returns the roster in slot order", func() {
			added := r.Populate(roster)
			So(r.Populated(), ShouldBeTrue)
			So(len(added), ShouldEqual, 2)
			So(added[0].Name, ShouldEqual, "a")
			So(added[1].Name, ShouldEqual, "b")

			Convey("Later populations refresh teams without re-announcing", func() {
				swapped := []event.Participant{{AccountID: 10, Name: "a", Slot: 1, Team: event.TeamSideA}}
				So(r.Populate(swapped), ShouldBeNil)
				p, ok := r.Lookup(10)
				So(ok, ShouldBeTrue)
				So(p.Team, ShouldEqual, event.TeamSideA)
			})
		})

		Convey("Observe registers unknown participants only once", func() {
			r.Observe(&event.Participant{AccountID: 5, Name: "first"})
			r.Observe(&event.Participant{AccountID: 5, Name: "second"})
			r.Observe(nil)
			p, ok := r.Lookup(5)
			So(ok, ShouldBeTrue)
			So(p.Name, ShouldEqual, "first")
			So(len(r.IDs()), ShouldEqual, 1)
		})
	})
}
