package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"demostats/internal/aggregate"
	"demostats/internal/demo"
	"demostats/internal/event"
	"demostats/internal/logging"
	"demostats/internal/metrics"
	"demostats/internal/report"
	"demostats/internal/store"
)

// FormatVersion changes whenever the report format changes, invalidating caches.
const FormatVersion = "demostats-report-1"

// JobPayload represents a queued analysis request.
type JobPayload struct {
	Path string `json:"path"`
}

// Result describes one finished analysis.
type Result struct {
	RunID   uuid.UUID
	Summary aggregate.Summary
	Lines   int
	Elapsed time.Duration
}

// SourceOpener opens the event source for a recording path.
type SourceOpener func(path string, blindGrenades []string) (event.Source, error)

// OpenDemo opens a recording with the demoinfocs decoder.
func OpenDemo(path string, blindGrenades []string) (event.Source, error) {
	src, err := demo.Open(path, blindGrenades)
	if err != nil {
		return nil, err
	}
	return src, nil
}

// Processor analyses recordings.
type Processor struct {
	policy     aggregate.Policy
	categories []string
	metrics    *metrics.Manager
	open       SourceOpener
	log        logging.Interface
}

// New builds a processor. A nil metrics manager gets a private one.
func New(policy aggregate.Policy, categories []string, m *metrics.Manager) *Processor {
	if m == nil {
		m = metrics.NewManager()
	}
	return &Processor{
		policy:     policy,
		categories: categories,
		metrics:    m,
		open:       OpenDemo,
		log:        logging.Logger(),
	}
}

// WithOpener replaces how recordings are opened.
func (p *Processor) WithOpener(open SourceOpener) *Processor {
	p.open = open
	return p
}

// Fingerprint identifies the current analysis settings for caches.
func (p *Processor) Fingerprint() (string, error) {
	return store.Fingerprint(FormatVersion, struct {
		Policy     aggregate.Policy
		Categories []string
	}{p.policy, p.categories})
}

// Run folds every event of src into a fresh match, streaming lines to out
// and finishing with the summary.
func (p *Processor) Run(ctx context.Context, src event.Source, out io.Writer) (*Result, error) {
	startTime := time.Now()
	runID := uuid.New()

	w := report.NewWriter(out, report.WithCategories(p.categories), report.WithLineHook(p.metrics.LineWritten))
	match := aggregate.NewMatch(p.policy, w, aggregate.WithObserver(p.metrics), aggregate.WithLogger(p.log))

	if err := src.Stream(ctx, match.Apply); err != nil {
		_ = w.Flush()
		return nil, fmt.Errorf("stream events: %w", err)
	}

	sum := match.Finish()
	if err := w.WriteSummary(sum); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}

	res := &Result{RunID: runID, Summary: sum, Lines: w.Lines(), Elapsed: time.Since(startTime)}
	p.log.Infof("run %s: %d rounds, %d participants, %d kill pairs, %d lines in %v",
		runID, sum.Rounds, len(sum.Players), len(sum.KillRanking), res.Lines, res.Elapsed)
	return res, nil
}

// HandleFile analyses the recording at path, writing the report to out.
func (p *Processor) HandleFile(ctx context.Context, path string, out io.Writer) (*Result, error) {
	startTime := time.Now()
	p.log.Infof("processing %s", path)

	src, err := p.open(path, p.policy.BlindGrenades)
	if err != nil {
		p.metrics.DemoProcessed(resultOf(err), time.Since(startTime))
		return nil, fmt.Errorf("open recording: %w", err)
	}
	res, err := p.Run(ctx, src, out)
	if err != nil {
		p.metrics.DemoProcessed(resultOf(err), time.Since(startTime))
		return nil, err
	}
	p.metrics.DemoProcessed(metrics.ResultOK, res.Elapsed)
	return res, nil
}

// Analyze runs a recording into a cache entry whose first line is
// date:<modification time>.
func (p *Processor) Analyze(ctx context.Context, path string) (store.Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return store.Entry{}, fmt.Errorf("stat recording: %w: %w", demo.ErrInputAccess, err)
	}

	var buf bytes.Buffer
	res, err := p.HandleFile(ctx, path, &buf)
	if err != nil {
		return store.Entry{}, err
	}

	date := info.ModTime().Unix()
	lines := []string{"date:" + strconv.FormatInt(date, 10)}
	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return store.Entry{RunID: res.RunID.String(), Date: date, Lines: lines}, nil
}

// JobHandler returns a queue handler that analyses the requested recording
// and stores the entry under its base name.
func (p *Processor) JobHandler(ctx context.Context, cache store.Cache) func([]byte) error {
	return func(payload []byte) error {
		var job JobPayload
		if err := json.Unmarshal(payload, &job); err != nil {
			return fmt.Errorf("unmarshal job payload: %w", err)
		}
		if job.Path == "" {
			return fmt.Errorf("job payload has no path")
		}

		entry, err := p.Analyze(ctx, job.Path)
		if err != nil {
			return fmt.Errorf("analyze %s: %w", job.Path, err)
		}
		if err := cache.Put(ctx, filepath.Base(job.Path), entry); err != nil {
			return fmt.Errorf("store result: %w", err)
		}
		return nil
	}
}

func resultOf(err error) string {
	switch {
	case errors.Is(err, demo.ErrInputAccess):
		return metrics.ResultInputError
	case errors.Is(err, demo.ErrDecode):
		return metrics.ResultDecodeError
	default:
		return metrics.ResultFailed
	}
}
