package aggregate

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang/geo/r3"

	"demostats/internal/event"
)

// WorldLabel names the attacker of damage with no resolvable source.
const WorldLabel = "world"

// Economy thresholds and round layout defaults.
const (
	DefaultSaveThreshold         = 1000 // equipment value below this is a save round
	DefaultLightBuyThreshold     = 2900 // equipment value below this is a light buy
	DefaultRoundsPerHalf         = 12
	DefaultOvertimeRoundsPerHalf = 3
)

// Drop reasons reported to the Observer.
const (
	DropInactiveRound = "inactive_round"
	DropUnresolved    = "unresolved_participant"
	DropInconsistent  = "inconsistent_state"
)

// Highlight configures the two-participant proximity detector.
// The detector is disabled when either account is zero.
type Highlight struct {
	First         uint64
	Second        uint64
	OriginX       float64
	OriginY       float64
	MaxDistanceSq float64
}

// Enabled reports whether both participants are configured.
func (h Highlight) Enabled() bool {
	return h.First != 0 && h.Second != 0
}

// Policy holds the tunable rules of a match analysis.
type Policy struct {
	SaveThreshold         int
	LightBuyThreshold     int
	RoundsPerHalf         int
	OvertimeRoundsPerHalf int
	BlindGrenades         []string
	Highlight             Highlight
}

// DefaultPolicy returns the competitive defaults.
func DefaultPolicy() Policy {
	return Policy{
		SaveThreshold:         DefaultSaveThreshold,
		LightBuyThreshold:     DefaultLightBuyThreshold,
		RoundsPerHalf:         DefaultRoundsPerHalf,
		OvertimeRoundsPerHalf: DefaultOvertimeRoundsPerHalf,
		BlindGrenades:         []string{event.DefaultBlindGrenade},
	}
}

// IsOvertimeRound reports whether the zero-based round index is past regulation.
func (p Policy) IsOvertimeRound(r int) bool {
	return r >= 2*p.RoundsPerHalf
}

// IsSentinelRound reports whether the zero-based round index is the first or
// last round of a half. Regulation halves are RoundsPerHalf long, overtime
// halves OvertimeRoundsPerHalf long.
func (p Policy) IsSentinelRound(r int) bool {
	if r < 0 || p.RoundsPerHalf <= 0 {
		return false
	}
	half := p.RoundsPerHalf
	if p.IsOvertimeRound(r) {
		half = p.OvertimeRoundsPerHalf
		if half <= 0 {
			return false
		}
		r -= 2 * p.RoundsPerHalf
	}
	i := r % half
	return i == 0 || i == half-1
}

// Record is one streaming report line before rendering.
type Record struct {
	Category string
	Tick     int
	Round    int
	Elapsed  time.Duration
	Fields   []string
}

// Sink receives streaming output as the match is applied.
type Sink interface {
	Emit(rec Record) error
	Roster(p event.Participant) error
}

// Observer receives counters about applied and dropped events.
type Observer interface {
	EventApplied(kind string)
	EventDropped(reason string)
}

type nopObserver struct{}

func (nopObserver) EventApplied(string) {}
func (nopObserver) EventDropped(string) {}

// PlayerSummary is the end-of-match line for one participant.
type PlayerSummary struct {
	AccountID           uint64
	Name                string
	Slot                int
	Team                event.Team
	Kills               int
	Assists             int
	Deaths              int
	Objectives          int
	Damage              int
	EntryKills          int
	EntryDeaths         int
	SaveKills           int
	LightBuyKills       int
	WeightedEquipment   int
	AvgEquipmentPerKill int
}

// Ranked is one entry of a kill or damage ranking.
type Ranked struct {
	AttackerID uint64
	VictimID   uint64
	Attacker   string
	Victim     string
	Count      int
}

// Key renders the composed ranking key used for tie-breaking.
func (r Ranked) Key() string {
	return r.Attacker + " ==> " + r.Victim
}

// Summary is the end-of-stream result of a Match.
type Summary struct {
	Rounds        int
	Players       []PlayerSummary
	KillRanking   []Ranked
	DamageRanking []Ranked
}

func label(p *event.Participant) string {
	if p == nil {
		return WorldLabel
	}
	return p.Name
}

func accountOf(p *event.Participant) uint64 {
	if p == nil {
		return 0
	}
	return p.AccountID
}

func formatPos(v r3.Vector) string {
	return fmt.Sprintf("%.1f,%.1f,%.1f", v.X, v.Y, v.Z)
}

func positionOf(p *event.Participant) string {
	if p == nil {
		return ""
	}
	return formatPos(p.Position)
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 2, 64)
}

func distance(sq float64) string {
	return strconv.FormatFloat(sq, 'f', 1, 64)
}
