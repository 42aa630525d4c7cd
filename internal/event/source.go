package event

import (
	"context"
	"errors"
	"fmt"
)

// ErrOrder is returned by CheckOrder when a stream breaks the ordering contract.
var ErrOrder = errors.New("event order violated")

// DefaultBlindGrenade is the detonation type whose position blind events refer to.
const DefaultBlindGrenade = "flashbang"

// Source yields a finite stream of events in chronological order.
//
// Implementations guarantee that:
//   - ticks never decrease;
//   - a Blind is delivered after the Detonation of the flash that caused it,
//     within the same round;
//   - a MatchStats, if produced at all, is the last event.
//
// Stream stops at the first error returned by yield and returns it.
type Source interface {
	Stream(ctx context.Context, yield func(Event) error) error
}

// Replay is an in-memory Source over recorded events.
type Replay []Event

// Stream delivers the recorded events in order.
func (r Replay) Stream(ctx context.Context, yield func(Event) error) error {
	for _, e := range r {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := yield(e); err != nil {
			return err
		}
	}
	return nil
}

// CheckOrder verifies events against the Source ordering contract.
// blindGrenades lists the detonation types able to cause a Blind; it
// defaults to DefaultBlindGrenade.
func CheckOrder(events []Event, blindGrenades ...string) error {
	if len(blindGrenades) == 0 {
		blindGrenades = []string{DefaultBlindGrenade}
	}
	blinding := make(map[string]bool, len(blindGrenades))
	for _, g := range blindGrenades {
		blinding[g] = true
	}

	lastTick := -1
	detonated := false
	for i, e := range events {
		tick := e.Header().Tick
		if tick < lastTick {
			return fmt.Errorf("%w: event %d at tick %d after tick %d", ErrOrder, i, tick, lastTick)
		}
		lastTick = tick

		switch ev := e.(type) {
		case RoundStart:
			detonated = false
		case Detonation:
			if blinding[ev.Grenade] {
				detonated = true
			}
		case Blind:
			if !detonated {
				return fmt.Errorf("%w: blind at tick %d precedes any flash detonation in its round", ErrOrder, tick)
			}
		case MatchStats:
			if i != len(events)-1 {
				return fmt.Errorf("%w: match stats at position %d of %d", ErrOrder, i, len(events))
			}
		}
	}
	return nil
}
