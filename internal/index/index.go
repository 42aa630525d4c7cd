// Package index analyses a directory of recordings into a cache, skipping
// recordings already analysed under the current settings.
package index

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"demostats/internal/logging"
	"demostats/internal/metrics"
	"demostats/internal/processor"
	"demostats/internal/store"
)

// Analyzer turns one recording into a cache entry.
type Analyzer interface {
	Analyze(ctx context.Context, path string) (store.Entry, error)
}

// Enqueuer hands jobs to remote workers.
type Enqueuer interface {
	Enqueue(ctx context.Context, job any) error
}

// Report counts what a run did.
type Report struct {
	Found    int
	Cached   int
	Analyzed int
	Failed   int
	Queued   int
	Halted   bool
}

// Indexer walks a recordings directory.
type Indexer struct {
	analyzer Analyzer
	cache    store.Cache
	workers  int
	metrics  *metrics.Manager
	log      logging.Interface
}

// New builds an indexer running at most workers analyses at once.
func New(analyzer Analyzer, cache store.Cache, workers int, m *metrics.Manager) *Indexer {
	if workers < 1 {
		workers = 1
	}
	if m == nil {
		m = metrics.NewManager()
	}
	return &Indexer{analyzer: analyzer, cache: cache, workers: workers, metrics: m, log: logging.Logger()}
}

// Scan lists the recordings in dir, newest name first.
func Scan(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.dem"))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	return paths, nil
}

// Run analyses every uncached recording in dir. Cancelling ctx stops
// scheduling new work; the cache is saved either way.
func (ix *Indexer) Run(ctx context.Context, dir string) (Report, error) {
	paths, err := Scan(dir)
	if err != nil {
		return Report{}, err
	}
	rep := Report{Found: len(paths)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		name := filepath.Base(path)
		cached, err := ix.cache.Has(ctx, name)
		if err != nil {
			_ = g.Wait()
			return rep, err
		}
		if cached {
			rep.Cached++
			ix.metrics.DemoProcessed(metrics.ResultCached, 0)
			continue
		}

		g.Go(func() error {
			entry, err := ix.analyzer.Analyze(gctx, path)
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				ix.log.Warnf("skipping %s: %v", name, err)
				mu.Lock()
				rep.Failed++
				mu.Unlock()
				return nil
			}
			if err := ix.cache.Put(gctx, name, entry); err != nil {
				return fmt.Errorf("cache %s: %w", name, err)
			}
			mu.Lock()
			rep.Analyzed++
			mu.Unlock()
			return nil
		})
	}
	runErr := g.Wait()

	rep.Halted = ctx.Err() != nil
	if rep.Halted {
		ix.log.Warnf("halting early, saving %d new entries", rep.Analyzed)
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := ix.cache.Save(saveCtx); err != nil {
		return rep, err
	}
	if runErr != nil {
		return rep, runErr
	}
	ix.log.Infof("indexed %s: %d found, %d cached, %d analysed, %d failed", dir, rep.Found, rep.Cached, rep.Analyzed, rep.Failed)
	return rep, nil
}

// Enqueue pushes a job for every uncached recording in dir instead of
// analysing locally.
func (ix *Indexer) Enqueue(ctx context.Context, dir string, q Enqueuer) (Report, error) {
	paths, err := Scan(dir)
	if err != nil {
		return Report{}, err
	}
	rep := Report{Found: len(paths)}
	for _, path := range paths {
		if ctx.Err() != nil {
			rep.Halted = true
			break
		}
		cached, err := ix.cache.Has(ctx, filepath.Base(path))
		if err != nil {
			return rep, err
		}
		if cached {
			rep.Cached++
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return rep, fmt.Errorf("resolve %s: %w", path, err)
		}
		if err := q.Enqueue(ctx, processor.JobPayload{Path: abs}); err != nil {
			return rep, err
		}
		rep.Queued++
	}
	ix.log.Infof("queued %d of %d recordings from %s", rep.Queued, rep.Found, dir)
	return rep, nil
}
