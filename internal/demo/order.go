package demo

import "demostats/internal/event"

// orderer holds back blind events until the flash that caused them has been
// delivered. Blinds still pending when a later tick arrives are released
// before it.
type orderer struct {
	yield     func(event.Event) error
	blinding  map[string]bool
	pending   []event.Blind
	flashTick int
}

func newOrderer(blindGrenades []string, yield func(event.Event) error) *orderer {
	if len(blindGrenades) == 0 {
		blindGrenades = []string{event.DefaultBlindGrenade}
	}
	b := make(map[string]bool, len(blindGrenades))
	for _, g := range blindGrenades {
		b[g] = true
	}
	return &orderer{yield: yield, blinding: b, flashTick: -1}
}

func (o *orderer) push(e event.Event) error {
	tick := e.Header().Tick
	if len(o.pending) > 0 && tick > o.pending[0].Tick {
		if err := o.flush(); err != nil {
			return err
		}
	}

	switch ev := e.(type) {
	case event.Blind:
		if ev.Tick == o.flashTick {
			return o.yield(ev)
		}
		o.pending = append(o.pending, ev)
		return nil
	case event.Detonation:
		if err := o.yield(ev); err != nil {
			return err
		}
		if o.blinding[ev.Grenade] {
			o.flashTick = ev.Tick
			return o.flush()
		}
		return nil
	default:
		return o.yield(e)
	}
}

func (o *orderer) flush() error {
	pending := o.pending
	o.pending = nil
	for _, b := range pending {
		if err := o.yield(b); err != nil {
			return err
		}
	}
	return nil
}
