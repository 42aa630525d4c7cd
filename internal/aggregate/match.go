package aggregate

import (
	"fmt"
	"strconv"

	"demostats/internal/event"
	"demostats/internal/logging"
)

// Streaming categories.
const (
	CategoryRoundStart = "round_start"
	CategoryFreezeEnd  = "freeze_end"
	CategoryDeath      = "player_death"
	CategoryFlashHit   = "flash_hit"
	CategoryWeaponFire = "weapon_fire"
	CategoryRoundEnd   = "round_end"
	CategoryFunFact    = "round_funfact"
	CategoryMVP        = "round_mvp"
	CategoryHighlight  = "highlight"
	DetonateSuffix     = "_detonate"
)

// Option configures a Match.
type Option func(*Match)

// WithObserver reports applied and dropped events to o.
func WithObserver(o Observer) Option {
	return func(m *Match) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithLogger sets the logger used for non-fatal conditions.
func WithLogger(l logging.Interface) Option {
	return func(m *Match) {
		if l != nil {
			m.log = l
		}
	}
}

// Match is the aggregation state of one recording. It is not safe for
// concurrent use; events must be applied in stream order.
type Match struct {
	policy   Policy
	sink     Sink
	observer Observer
	log      logging.Interface

	rounds    RoundTracker
	registry  *Registry
	health    *HealthLedger
	duels     *DuelTally
	entries   *EntryTracker
	flash     *FlashTracker
	highlight *HighlightDetector

	stats     *event.MatchStats
	lastRound int
}

// NewMatch builds an empty Match writing streaming lines to sink.
func NewMatch(policy Policy, sink Sink, opts ...Option) *Match {
	m := &Match{
		policy:    policy,
		sink:      sink,
		observer:  nopObserver{},
		log:       logging.Logger(),
		registry:  NewRegistry(),
		health:    NewHealthLedger(),
		duels:     NewDuelTally(),
		entries:   NewEntryTracker(),
		flash:     NewFlashTracker(policy.BlindGrenades),
		highlight: NewHighlightDetector(policy.Highlight),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Round returns the current round number.
func (m *Match) Round() int {
	return m.rounds.Number()
}

// Apply folds one event into the match. Only sink failures and unknown
// event types are returned as errors.
func (m *Match) Apply(e event.Event) error {
	if !m.accepts(e) {
		m.observer.EventDropped(DropInactiveRound)
		return nil
	}

	switch ev := e.(type) {
	case event.RoundStart:
		return m.roundStart(ev)
	case event.FreezeEnd:
		return m.freezeEnd(ev)
	case event.Hurt:
		return m.hurt(ev)
	case event.Death:
		return m.death(ev)
	case event.Detonation:
		return m.detonation(ev)
	case event.Blind:
		return m.blind(ev)
	case event.WeaponFire:
		m.observe(ev.Shooter)
		return m.emit(CategoryWeaponFire, ev.Meta, label(ev.Shooter), ev.Weapon)
	case event.Objective:
		m.observe(ev.Player)
		return m.emit(ev.Kind, ev.Meta, label(ev.Player), ev.Site)
	case event.RoundEnd:
		return m.emit(CategoryRoundEnd, ev.Meta, ev.Winner.Letter(), itoa(ev.Reason))
	case event.WinPanel:
		if ev.FunFact == "" {
			return nil
		}
		return m.emit(CategoryFunFact, ev.Meta, ev.FunFact)
	case event.MVP:
		m.observe(ev.Player)
		return m.emit(CategoryMVP, ev.Meta, label(ev.Player), itoa(ev.Reason))
	case event.MatchStats:
		m.stats = &ev
		m.observer.EventApplied("match_stats")
		return nil
	default:
		return fmt.Errorf("apply event: unsupported type %T", e)
	}
}

// accepts gates everything but round boundaries and match stats on a live round.
func (m *Match) accepts(e event.Event) bool {
	switch e.(type) {
	case event.RoundStart, event.MatchStats:
		return true
	}
	return m.rounds.Active()
}

func (m *Match) roundStart(ev event.RoundStart) error {
	number := m.rounds.Start(ev.Meta, ev.Warmup, ev.RoundsPlayed)

	ids := m.registry.IDs()
	for _, p := range ev.Participants {
		ids = append(ids, p.AccountID)
	}
	m.health.Reset(ids)
	m.flash.Reset()
	m.entries.Disarm()

	if number == 0 {
		m.highlight.Reset()
		m.observer.EventApplied("warmup_start")
		return nil
	}
	if number < m.lastRound {
		m.log.Warnf("round number went back from %d to %d at tick %d", m.lastRound, number, ev.Tick)
		m.observer.EventDropped(DropInconsistent)
	}
	m.lastRound = number
	m.observer.EventApplied(CategoryRoundStart)

	roster := m.registry.Populate(ev.Participants)
	if err := m.emit(CategoryRoundStart, ev.Meta, itoa(ev.RoundsPlayed)); err != nil {
		return err
	}
	for _, p := range roster {
		if err := m.sink.Roster(p); err != nil {
			return fmt.Errorf("emit roster: %w", err)
		}
	}
	return nil
}

func (m *Match) freezeEnd(ev event.FreezeEnd) error {
	m.observer.EventApplied(CategoryFreezeEnd)
	freeze := m.rounds.Elapsed(ev.Meta)
	m.rounds.FreezeEnd(ev.Meta)
	m.entries.Arm()
	return m.emit(CategoryFreezeEnd, ev.Meta, seconds(freeze))
}

func (m *Match) hurt(ev event.Hurt) error {
	if ev.Victim == nil {
		m.log.Debugf("hurt at tick %d has no resolvable victim", ev.Tick)
		m.observer.EventDropped(DropUnresolved)
		return nil
	}
	m.observe(ev.Attacker)
	m.observe(ev.Victim)
	if ev.Attacker == nil {
		m.observer.EventDropped(DropUnresolved)
	}

	post := max(ev.Health, 0)
	credited := m.health.Credit(ev.Victim.AccountID, ev.Damage, post)
	m.duels.Record(ev.Attacker, ev.Victim, credited, post == 0)
	m.observer.EventApplied("player_hurt")
	return nil
}

func (m *Match) death(ev event.Death) error {
	m.observe(ev.Killer)
	m.observe(ev.Victim)
	m.observe(ev.Assister)
	m.observer.EventApplied(CategoryDeath)

	entry := m.entries.Observe(ev)
	assister := ""
	if ev.Assister != nil {
		assister = ev.Assister.Name
	}
	entryTag := ""
	if entry {
		entryTag = "entry"
	}
	err := m.emit(CategoryDeath, ev.Meta,
		label(ev.Killer), label(ev.Victim), assister, ev.Weapon, flag(ev.Headshot), entryTag,
		positionOf(ev.Killer), positionOf(ev.Victim))
	if err != nil {
		return err
	}

	hit, ok := m.highlight.Observe(ev)
	if !ok {
		return nil
	}
	first := m.policy.Highlight.First
	firstName := strconv.FormatUint(first, 10)
	if p, found := m.registry.Lookup(first); found {
		firstName = p.Name
	}
	return m.emit(CategoryHighlight, ev.Meta, firstName, hit.Killer.Name, hit.Victim.Name,
		distance(hit.KillerDistSq), distance(hit.VictimDistSq))
}

func (m *Match) detonation(ev event.Detonation) error {
	m.observe(ev.Thrower)
	m.flash.Detonated(ev)
	m.observer.EventApplied("detonation")
	return m.emit(ev.Grenade+DetonateSuffix, ev.Meta, label(ev.Thrower), formatPos(ev.Position))
}

func (m *Match) blind(ev event.Blind) error {
	if ev.Victim == nil {
		m.observer.EventDropped(DropUnresolved)
		return nil
	}
	m.observe(ev.Thrower)
	m.observe(ev.Victim)

	where := ""
	if pos, ok := m.flash.Last(); ok {
		where = formatPos(pos)
	} else {
		m.log.Debugf("blind at tick %d has no preceding detonation", ev.Tick)
		m.observer.EventDropped(DropInconsistent)
	}
	m.observer.EventApplied(CategoryFlashHit)
	return m.emit(CategoryFlashHit, ev.Meta,
		label(ev.Thrower), Relation(ev.Thrower, ev.Victim), where, positionOf(ev.Victim), seconds(ev.Duration))
}

func (m *Match) observe(p *event.Participant) {
	m.registry.Observe(p)
}

func (m *Match) emit(category string, meta event.Meta, fields ...string) error {
	rec := Record{
		Category: category,
		Tick:     meta.Tick,
		Round:    m.rounds.Number(),
		Elapsed:  m.rounds.Elapsed(meta),
		Fields:   fields,
	}
	if err := m.sink.Emit(rec); err != nil {
		return fmt.Errorf("emit %s: %w", category, err)
	}
	return nil
}

// Finish closes the stream and returns the end-of-match summary.
func (m *Match) Finish() Summary {
	sum := Summary{Rounds: m.lastRound}

	perPlayer := make(map[uint64]event.PlayerRounds)
	if m.stats != nil {
		sum.Rounds = m.stats.RoundsPlayed
		for _, pr := range m.stats.Players {
			perPlayer[pr.Participant.AccountID] = pr
			m.registry.Observe(&pr.Participant)
		}
	}

	for _, p := range m.registry.All() {
		var econ EconomyResult
		if pr, ok := perPlayer[p.AccountID]; ok {
			econ = ClassifyEconomy(m.policy, sum.Rounds, pr.Rounds)
		}
		sum.Players = append(sum.Players, PlayerSummary{
			AccountID:           p.AccountID,
			Name:                p.Name,
			Slot:                p.Slot,
			Team:                p.Team,
			Kills:               econ.Kills,
			Assists:             econ.Assists,
			Deaths:              econ.Deaths,
			Objectives:          econ.Objectives,
			Damage:              m.duels.DamageDealt(p.AccountID),
			EntryKills:          m.entries.Kills(p.AccountID),
			EntryDeaths:         m.entries.Deaths(p.AccountID),
			SaveKills:           econ.SaveKills,
			LightBuyKills:       econ.LightBuyKills,
			WeightedEquipment:   econ.WeightedEquipment,
			AvgEquipmentPerKill: econ.AvgEquipmentPerKill(),
		})
	}

	sum.KillRanking, sum.DamageRanking = m.duels.Rankings()
	return sum
}
