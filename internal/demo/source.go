// Package demo decodes CS2 recordings into the telemetry event stream.
package demo

import (
	"context"
	"errors"
	"fmt"
	"os"

	dem "github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs"
	"github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs/common"
	"github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs/events"

	"demostats/internal/event"
	"demostats/internal/logging"
)

var (
	// ErrInputAccess is returned when the recording cannot be opened or read.
	ErrInputAccess = errors.New("input access failed")
	// ErrDecode is returned when the recording is malformed.
	ErrDecode = errors.New("decode failed")
)

// botAccountBase offsets bot user IDs into an account range no real
// account uses, since bots carry no SteamID.
const botAccountBase uint64 = 1 << 62

const winPanelEvent = "cs_win_panel_round"

var grenadeNames = map[common.EquipmentType]string{
	common.EqFlash:      "flashbang",
	common.EqSmoke:      "smokegrenade",
	common.EqHE:         "hegrenade",
	common.EqDecoy:      "decoy",
	common.EqMolotov:    "molotov",
	common.EqIncendiary: "incendiary",
}

// Source streams events from a recording on disk.
type Source struct {
	path          string
	blindGrenades []string
	log           logging.Interface
}

// Open checks that path is a readable file and returns a Source for it.
func Open(path string, blindGrenades []string) (*Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputAccess, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInputAccess, path)
	}
	return &Source{path: path, blindGrenades: blindGrenades, log: logging.Logger()}, nil
}

// Path returns the recording path.
func (s *Source) Path() string {
	return s.path
}

// Stream decodes the recording and delivers events to yield. A MatchStats
// event closes a successfully decoded stream.
func (s *Source) Stream(ctx context.Context, yield func(event.Event) error) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInputAccess, err)
	}
	defer f.Close()

	p := dem.NewParser(f)
	defer p.Close()

	st := &streamer{parser: p, ledger: newLedger()}
	st.order = newOrderer(s.blindGrenades, yield)
	st.register()

	stop := context.AfterFunc(ctx, p.Cancel)
	defer stop()

	parseErr := parseToEnd(p)
	if st.err != nil {
		return st.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if parseErr != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, s.path, parseErr)
	}

	if err := st.order.flush(); err != nil {
		return err
	}
	gs := p.GameState()
	stats := st.ledger.stats(st.meta(), gs.TotalRoundsPlayed())
	s.log.Debugf("decoded %s: %d rounds, %d participants", s.path, stats.RoundsPlayed, len(stats.Players))
	return yield(stats)
}

func parseToEnd(p dem.Parser) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()
	return p.ParseToEnd()
}

type streamer struct {
	parser dem.Parser
	order  *orderer
	ledger *ledger
	err    error
}

func (s *streamer) emit(e event.Event) {
	if s.err != nil {
		return
	}
	if err := s.order.push(e); err != nil {
		s.err = err
		s.parser.Cancel()
	}
}

func (s *streamer) meta() event.Meta {
	return event.Meta{Tick: s.parser.GameState().IngameTick(), Time: s.parser.CurrentTime()}
}

func (s *streamer) register() {
	p := s.parser

	p.RegisterEventHandler(func(e events.RoundStart) {
		gs := p.GameState()
		warmup := gs.IsWarmupPeriod()
		played := gs.TotalRoundsPlayed()
		if !warmup {
			s.ledger.begin(played)
		}
		s.emit(event.RoundStart{
			Meta:         s.meta(),
			Warmup:       warmup,
			RoundsPlayed: played,
			Participants: roster(gs.Participants().Playing()),
		})
	})

	p.RegisterEventHandler(func(e events.RoundFreezetimeEnd) {
		if !p.GameState().IsWarmupPeriod() {
			for _, pl := range p.GameState().Participants().Playing() {
				s.ledger.equipment(participant(pl), pl.EquipmentValueFreezeTimeEnd())
			}
		}
		s.emit(event.FreezeEnd{Meta: s.meta()})
	})

	p.RegisterEventHandler(func(e events.PlayerHurt) {
		s.emit(event.Hurt{
			Meta:     s.meta(),
			Attacker: participant(e.Attacker),
			Victim:   participant(e.Player),
			Damage:   e.HealthDamage,
			Health:   e.Health,
			Weapon:   weaponName(e.Weapon),
			Headshot: e.HitGroup == events.HitGroupHead,
		})
	})

	p.RegisterEventHandler(func(e events.Kill) {
		d := event.Death{
			Meta:     s.meta(),
			Killer:   participant(e.Killer),
			Victim:   participant(e.Victim),
			Assister: participant(e.Assister),
			Weapon:   weaponName(e.Weapon),
			Headshot: e.IsHeadshot,
		}
		if !p.GameState().IsWarmupPeriod() {
			s.ledger.kill(d.Killer, d.Victim, d.Assister)
		}
		s.emit(d)
	})

	p.RegisterEventHandler(func(e events.FlashExplode) { s.detonation(e.GrenadeEvent) })
	p.RegisterEventHandler(func(e events.SmokeStart) { s.detonation(e.GrenadeEvent) })
	p.RegisterEventHandler(func(e events.HeExplode) { s.detonation(e.GrenadeEvent) })
	p.RegisterEventHandler(func(e events.DecoyStart) { s.detonation(e.GrenadeEvent) })

	p.RegisterEventHandler(func(e events.PlayerFlashed) {
		s.emit(event.Blind{
			Meta:     s.meta(),
			Thrower:  participant(e.Attacker),
			Victim:   participant(e.Player),
			Duration: e.FlashDuration(),
		})
	})

	p.RegisterEventHandler(func(e events.WeaponFire) {
		s.emit(event.WeaponFire{Meta: s.meta(), Shooter: participant(e.Shooter), Weapon: weaponName(e.Weapon)})
	})

	p.RegisterEventHandler(func(e events.BombPlanted) {
		s.objective(event.ObjectivePlant, e.BombEvent)
	})
	p.RegisterEventHandler(func(e events.BombDefused) {
		s.objective(event.ObjectiveDefuse, e.BombEvent)
	})

	p.RegisterEventHandler(func(e events.RoundEnd) {
		s.emit(event.RoundEnd{Meta: s.meta(), Winner: team(e.Winner), Reason: int(e.Reason)})
	})

	p.RegisterEventHandler(func(e events.RoundMVPAnnouncement) {
		s.emit(event.MVP{Meta: s.meta(), Player: participant(e.Player), Reason: int(e.Reason)})
	})

	p.RegisterEventHandler(func(e events.GenericGameEvent) {
		if e.Name != winPanelEvent {
			return
		}
		s.emit(event.WinPanel{Meta: s.meta(), FunFact: e.Data["funfact_token"].GetValString()})
	})
}

func (s *streamer) detonation(e events.GrenadeEvent) {
	name, ok := grenadeNames[e.GrenadeType]
	if !ok {
		return
	}
	s.emit(event.Detonation{Meta: s.meta(), Grenade: name, Thrower: participant(e.Thrower), Position: e.Position})
}

func (s *streamer) objective(kind string, e events.BombEvent) {
	pl := participant(e.Player)
	if !s.parser.GameState().IsWarmupPeriod() {
		s.ledger.objective(pl)
	}
	s.emit(event.Objective{Meta: s.meta(), Kind: kind, Player: pl, Site: string(rune(e.Site))})
}

func roster(players []*common.Player) []event.Participant {
	out := make([]event.Participant, 0, len(players))
	for _, pl := range players {
		if p := participant(pl); p != nil {
			out = append(out, *p)
		}
	}
	return out
}

func participant(pl *common.Player) *event.Participant {
	if pl == nil {
		return nil
	}
	return &event.Participant{
		AccountID: accountID(pl),
		Name:      pl.Name,
		Slot:      pl.EntityID,
		UserID:    pl.UserID,
		Team:      team(pl.Team),
		Position:  pl.Position(),
	}
}

func accountID(pl *common.Player) uint64 {
	if pl.SteamID64 != 0 {
		return pl.SteamID64
	}
	return botAccountBase + uint64(pl.UserID)
}

func team(t common.Team) event.Team {
	switch t {
	case common.TeamTerrorists:
		return event.TeamSideA
	case common.TeamCounterTerrorists:
		return event.TeamSideB
	case common.TeamSpectators:
		return event.TeamSpectator
	default:
		return event.TeamUnknown
	}
}

func weaponName(eq *common.Equipment) string {
	if eq == nil {
		return ""
	}
	return eq.String()
}
