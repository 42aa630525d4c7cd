// Package event defines the typed telemetry stream consumed by the aggregator.
//
// Every concrete event is one of the types declared in this file. Consumers
// dispatch with a single type switch; the set is closed by the unexported
// marker method on Event.
package event

import (
	"time"

	"github.com/golang/geo/r3"
)

// Team identifies the side a participant plays on.
type Team int

const (
	TeamUnknown Team = iota
	TeamSpectator
	TeamSideA // terrorists
	TeamSideB // counter-terrorists
)

// Letter returns the one-character team code used in report lines.
func (t Team) Letter() string {
	switch t {
	case TeamSideA:
		return "T"
	case TeamSideB:
		return "C"
	case TeamSpectator:
		return "S"
	default:
		return "U"
	}
}

// Participant is a snapshot of a player as known when the event was produced.
// AccountID is the stable identity; Name is display-only.
type Participant struct {
	AccountID uint64
	Name      string
	Slot      int
	UserID    int
	Team      Team
	Position  r3.Vector
}

// Meta carries the stream position of an event.
type Meta struct {
	Tick int
	Time time.Duration
}

// Event is the closed union of telemetry events.
type Event interface {
	Header() Meta
	sealed()
}

// RoundStart opens a round. RoundsPlayed counts completed rounds before this one.
type RoundStart struct {
	Meta
	Warmup       bool
	RoundsPlayed int
	Participants []Participant
}

// FreezeEnd marks the end of the buy period.
type FreezeEnd struct {
	Meta
}

// RoundEnd closes play in the current round.
type RoundEnd struct {
	Meta
	Winner Team
	Reason int
}

// WinPanel carries the terminal fun-fact token shown after a round.
type WinPanel struct {
	Meta
	FunFact string
}

// MVP names the round's most valuable player.
type MVP struct {
	Meta
	Player *Participant
	Reason int
}

// Hurt reports damage. Damage is the raw amount before clamping, Health the
// victim's health after the hit.
type Hurt struct {
	Meta
	Attacker *Participant
	Victim   *Participant
	Damage   int
	Health   int
	Weapon   string
	Headshot bool
}

// Death reports a kill as announced by the game.
type Death struct {
	Meta
	Killer   *Participant
	Victim   *Participant
	Assister *Participant
	Weapon   string
	Headshot bool
}

// Detonation reports a grenade going off. Grenade is the lower-case type
// name, e.g. "flashbang" or "smokegrenade".
type Detonation struct {
	Meta
	Grenade  string
	Thrower  *Participant
	Position r3.Vector
}

// Blind reports a participant blinded by a flash.
type Blind struct {
	Meta
	Thrower  *Participant
	Victim   *Participant
	Duration time.Duration
}

// WeaponFire reports a shot.
type WeaponFire struct {
	Meta
	Shooter *Participant
	Weapon  string
}

// Objective kinds.
const (
	ObjectivePlant  = "bomb_planted"
	ObjectiveDefuse = "bomb_defused"
)

// Objective reports a bomb plant or defuse.
type Objective struct {
	Meta
	Kind   string
	Player *Participant
	Site   string
}

// RoundCounters holds one participant's counters for one round.
type RoundCounters struct {
	Kills          int
	Assists        int
	Deaths         int
	Objectives     int
	EquipmentValue int
}

// PlayerRounds is a participant with its per-round counters indexed by
// round (0 is the first live round).
type PlayerRounds struct {
	Participant Participant
	Rounds      []RoundCounters
}

// MatchStats is delivered once, after every other event.
type MatchStats struct {
	Meta
	RoundsPlayed int
	Players      []PlayerRounds
}

func (m Meta) Header() Meta { return m }

func (RoundStart) sealed() {}
func (FreezeEnd) sealed()  {}
func (RoundEnd) sealed()   {}
func (WinPanel) sealed()   {}
func (MVP) sealed()        {}
func (Hurt) sealed()       {}
func (Death) sealed()      {}
func (Detonation) sealed() {}
func (Blind) sealed()      {}
func (WeaponFire) sealed() {}
func (Objective) sealed()  {}
func (MatchStats) sealed() {}
