// Package report renders aggregation output as colon-separated text lines.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"demostats/internal/aggregate"
	"demostats/internal/event"
)

// Separator joins the fields of a line.
const Separator = ":"

// Line categories owned by the report itself.
const (
	CategoryPlayer  = "player"
	CategorySummary = "summary"
)

// Sanitize replaces control characters and the separator with '.'.
// Other bytes, including multi-byte UTF-8 sequences, pass through.
func Sanitize(s string) string {
	if strings.IndexFunc(s, unsafeRune) < 0 {
		return s
	}
	b := []byte(s)
	for i, c := range b {
		if c < 0x20 || c == ':' {
			b[i] = '.'
		}
	}
	return string(b)
}

func unsafeRune(r rune) bool {
	return r < 0x20 || r == ':'
}

func join(fields ...string) string {
	for i, f := range fields {
		fields[i] = Sanitize(f)
	}
	return strings.Join(fields, Separator)
}

// StreamLine renders category:tick:R<round>:elapsed:fields...
func StreamLine(rec aggregate.Record) string {
	fields := make([]string, 0, 4+len(rec.Fields))
	fields = append(fields,
		rec.Category,
		strconv.Itoa(rec.Tick),
		"R"+strconv.Itoa(rec.Round),
		strconv.FormatFloat(rec.Elapsed.Seconds(), 'f', 2, 64),
	)
	fields = append(fields, rec.Fields...)
	return join(fields...)
}

// RosterLine renders player:account:slot:name:userid:team.
func RosterLine(p event.Participant) string {
	return join(
		CategoryPlayer,
		strconv.FormatUint(p.AccountID, 10),
		strconv.Itoa(p.Slot),
		p.Name,
		strconv.Itoa(p.UserID),
		p.Team.Letter(),
	)
}

// SummaryLine renders one participant's end-of-match statistics.
func SummaryLine(p aggregate.PlayerSummary) string {
	return join(
		CategorySummary,
		strconv.FormatUint(p.AccountID, 10),
		p.Name,
		p.Team.Letter(),
		strconv.Itoa(p.Kills),
		strconv.Itoa(p.Assists),
		strconv.Itoa(p.Deaths),
		strconv.Itoa(p.Objectives),
		strconv.Itoa(p.Damage),
		strconv.Itoa(p.EntryKills),
		strconv.Itoa(p.EntryDeaths),
		strconv.Itoa(p.SaveKills),
		strconv.Itoa(p.LightBuyKills),
		strconv.Itoa(p.AvgEquipmentPerKill),
	)
}

// RankingLine renders "[   n] attacker <verb> victim".
func RankingLine(r aggregate.Ranked, verb string) string {
	return fmt.Sprintf("[%4d] %s %s %s", r.Count, Sanitize(r.Attacker), verb, Sanitize(r.Victim))
}

// Option configures a Writer.
type Option func(*Writer)

// WithCategories restricts streaming output to the named categories.
// An empty list streams everything.
func WithCategories(categories []string) Option {
	return func(w *Writer) {
		if len(categories) == 0 {
			return
		}
		w.only = make(map[string]bool, len(categories))
		for _, c := range categories {
			w.only[strings.TrimSpace(c)] = true
		}
	}
}

// WithLineHook calls fn with the category of every written line.
func WithLineHook(fn func(category string)) Option {
	return func(w *Writer) {
		if fn != nil {
			w.hook = fn
		}
	}
}

// Writer is an aggregate.Sink writing lines to an io.Writer.
type Writer struct {
	out   *bufio.Writer
	only  map[string]bool
	hook  func(string)
	lines int
}

var _ aggregate.Sink = (*Writer)(nil)

// NewWriter wraps out in a buffered line writer. Call Flush when done.
func NewWriter(out io.Writer, opts ...Option) *Writer {
	w := &Writer{out: bufio.NewWriter(out), hook: func(string) {}}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Emit writes a streaming line unless its category is filtered out.
func (w *Writer) Emit(rec aggregate.Record) error {
	if !w.enabled(rec.Category) {
		return nil
	}
	return w.line(rec.Category, StreamLine(rec))
}

// Roster writes a player line.
func (w *Writer) Roster(p event.Participant) error {
	if !w.enabled(CategoryPlayer) {
		return nil
	}
	return w.line(CategoryPlayer, RosterLine(p))
}

// WriteSummary writes the per-participant lines followed by the kill and
// damage rankings.
func (w *Writer) WriteSummary(sum aggregate.Summary) error {
	for _, p := range sum.Players {
		if err := w.line(CategorySummary, SummaryLine(p)); err != nil {
			return err
		}
	}
	for _, r := range sum.KillRanking {
		if err := w.line("kill_ranking", RankingLine(r, "killed")); err != nil {
			return err
		}
	}
	for _, r := range sum.DamageRanking {
		if err := w.line("damage_ranking", RankingLine(r, "damaged")); err != nil {
			return err
		}
	}
	return nil
}

// Lines returns the number of lines written.
func (w *Writer) Lines() int {
	return w.lines
}

// Flush writes buffered lines to the underlying writer.
func (w *Writer) Flush() error {
	if err := w.out.Flush(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}

func (w *Writer) enabled(category string) bool {
	return w.only == nil || w.only[category]
}

func (w *Writer) line(category, text string) error {
	if _, err := w.out.WriteString(text); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	if err := w.out.WriteByte('\n'); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	w.lines++
	w.hook(category)
	return nil
}
