package aggregate

import (
	"github.com/golang/geo/r3"

	"demostats/internal/event"
)

// Relations of a flash thrower to its victim.
const (
	RelationSelf  = "Self"
	RelationTeam  = "Team"
	RelationEnemy = "Enemy"
)

// FlashTracker remembers where the latest blinding grenade went off.
type FlashTracker struct {
	grenades map[string]bool
	last     r3.Vector
	seen     bool
}

// NewFlashTracker tracks the given grenade types.
func NewFlashTracker(grenades []string) *FlashTracker {
	if len(grenades) == 0 {
		grenades = []string{event.DefaultBlindGrenade}
	}
	g := make(map[string]bool, len(grenades))
	for _, name := range grenades {
		g[name] = true
	}
	return &FlashTracker{grenades: g}
}

// Detonated overwrites the last location if d is a tracked type.
func (f *FlashTracker) Detonated(d event.Detonation) {
	if !f.grenades[d.Grenade] {
		return
	}
	f.last = d.Position
	f.seen = true
}

// Last returns the latest tracked detonation, if any since the last reset.
func (f *FlashTracker) Last() (r3.Vector, bool) {
	return f.last, f.seen
}

// Reset forgets the last detonation.
func (f *FlashTracker) Reset() {
	f.last = r3.Vector{}
	f.seen = false
}

// Relation classifies a blind by who threw the flash.
func Relation(thrower, victim *event.Participant) string {
	if thrower == nil || victim == nil {
		return RelationEnemy
	}
	if thrower.AccountID == victim.AccountID {
		return RelationSelf
	}
	if sameTeam(thrower, victim) {
		return RelationTeam
	}
	return RelationEnemy
}

// HighlightHit describes a detected highlight.
type HighlightHit struct {
	Killer       event.Participant
	Victim       event.Participant
	KillerDistSq float64
	VictimDistSq float64
}

// HighlightDetector flags a kill by the second participant that follows the
// death of the first, when killer and victim both stand near the origin.
type HighlightDetector struct {
	cfg   Highlight
	armed bool
}

// NewHighlightDetector builds a detector; a disabled config never fires.
func NewHighlightDetector(cfg Highlight) *HighlightDetector {
	return &HighlightDetector{cfg: cfg}
}

// Observe feeds one death. The flag raised by the first participant's death
// stays set until the second participant's next kill is evaluated.
func (h *HighlightDetector) Observe(d event.Death) (HighlightHit, bool) {
	if !h.cfg.Enabled() {
		return HighlightHit{}, false
	}
	if d.Victim != nil && d.Victim.AccountID == h.cfg.First {
		h.armed = true
		return HighlightHit{}, false
	}
	if !h.armed || d.Killer == nil || d.Killer.AccountID != h.cfg.Second || d.Victim == nil {
		return HighlightHit{}, false
	}
	h.armed = false

	hit := HighlightHit{
		Killer:       *d.Killer,
		Victim:       *d.Victim,
		KillerDistSq: h.planarDistSq(d.Killer.Position),
		VictimDistSq: h.planarDistSq(d.Victim.Position),
	}
	if hit.KillerDistSq > h.cfg.MaxDistanceSq || hit.VictimDistSq > h.cfg.MaxDistanceSq {
		return HighlightHit{}, false
	}
	return hit, true
}

// Armed reports whether the first participant's death is pending evaluation.
func (h *HighlightDetector) Armed() bool { return h.armed }

// Reset clears a pending flag.
func (h *HighlightDetector) Reset() { h.armed = false }

func (h *HighlightDetector) planarDistSq(p r3.Vector) float64 {
	origin := r3.Vector{X: h.cfg.OriginX, Y: h.cfg.OriginY, Z: p.Z}
	return p.Sub(origin).Norm2()
}
