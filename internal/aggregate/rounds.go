package aggregate

import (
	"time"

	"demostats/internal/event"
)

// RoundTracker owns the current round number and the origin of the
// round-relative clock. Round 0 means warmup or not yet started.
type RoundTracker struct {
	number int
	origin time.Duration
}

// Start opens a round and returns its number.
func (t *RoundTracker) Start(m event.Meta, warmup bool, roundsPlayed int) int {
	if warmup {
		t.number = 0
	} else {
		t.number = roundsPlayed + 1
	}
	t.origin = m.Time
	return t.number
}

// FreezeEnd re-bases the clock and returns the time elapsed since the
// previous origin. The round number is untouched.
func (t *RoundTracker) FreezeEnd(m event.Meta) time.Duration {
	elapsed := t.Elapsed(m)
	t.origin = m.Time
	return elapsed
}

// Number returns the current round number.
func (t *RoundTracker) Number() int {
	return t.number
}

// Active reports whether events should be attributed to a round.
func (t *RoundTracker) Active() bool {
	return t.number > 0
}

// Elapsed returns the time since the current origin.
func (t *RoundTracker) Elapsed(m event.Meta) time.Duration {
	return m.Time - t.origin
}
