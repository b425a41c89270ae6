// Package fetch runs source adapters concurrently and merges their
// results into one ordered, deduplicated run report.
package fetch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"newsbrief/internal/news"
	"newsbrief/internal/sources"
)

// DefaultTimeout bounds one adapter call when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Orchestrator fans out adapter calls, applies a per-adapter timeout,
// and joins every launched call before returning. It never fails:
// adapter errors become Failure entries on the report.
type Orchestrator struct {
	timeout time.Duration
	logger  *slog.Logger
}

func NewOrchestrator(timeout time.Duration, logger *slog.Logger) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{timeout: timeout, logger: logger}
}

// outcome is the result of running one adapter. Exactly one of items
// or failure holds.
type outcome struct {
	name    string
	items   []news.Item
	failure *news.Failure
}

// Run invokes every adapter concurrently with limit items each and
// returns once all of them have completed, failed, or timed out. The
// merged items are in input (registry) order across sources and
// original order within a source, deduplicated first-seen. Parallelism
// is bounded only by len(srcs): adapter calls are I/O-bound and the
// set is small.
func (o *Orchestrator) Run(ctx context.Context, srcs []sources.Source, limit int) *news.RunReport {
	results := make([]outcome, len(srcs))

	var wg sync.WaitGroup
	for i, src := range srcs {
		wg.Add(1)
		go func(idx int, src sources.Source) {
			defer wg.Done()
			results[idx] = o.fetchOne(ctx, src, limit)
		}(i, src)
	}
	wg.Wait()

	return o.merge(results)
}

// fetchOne runs a single adapter under the per-adapter deadline. The
// call itself happens in an inner goroutine so that an adapter which
// ignores ctx cancellation is abandoned rather than awaited; its late
// result, if any, lands in a buffered channel and is discarded.
func (o *Orchestrator) fetchOne(ctx context.Context, src sources.Source, limit int) outcome {
	name := src.Descriptor().Name
	start := time.Now()

	fetchCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	type result struct {
		items []news.Item
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		items, err := src.Fetch(fetchCtx, limit)
		resultCh <- result{items: items, err: err}
	}()

	select {
	case res := <-resultCh:
		elapsed := time.Since(start)
		if res.err != nil {
			o.logger.Warn("source failed", "source", name, "error", res.err, "elapsed", elapsed)
			return outcome{name: name, failure: &news.Failure{
				Source:  name,
				Kind:    news.Classify(res.err),
				Message: res.err.Error(),
				Elapsed: elapsed,
			}}
		}

		items := res.items
		if len(items) > limit {
			// Contract guard: an adapter must not exceed the limit.
			items = items[:limit]
		}
		o.logger.Info("source fetched", "source", name, "count", len(items), "elapsed", elapsed)
		return outcome{name: name, items: items}

	case <-fetchCtx.Done():
		elapsed := time.Since(start)
		o.logger.Warn("source timed out", "source", name, "timeout", o.timeout)
		return outcome{name: name, failure: &news.Failure{
			Source:  name,
			Kind:    news.ErrTimeout,
			Message: fetchCtx.Err().Error(),
			Elapsed: elapsed,
		}}
	}
}

// merge folds the per-adapter outcomes into a report, preserving input
// order and retaining the first-seen instance of each dedup key.
func (o *Orchestrator) merge(results []outcome) *news.RunReport {
	report := &news.RunReport{
		Items:     make([]news.Item, 0),
		Succeeded: make([]string, 0),
		Failed:    make([]news.Failure, 0),
	}

	seen := make(map[string]struct{})
	for _, res := range results {
		if res.failure != nil {
			report.Failed = append(report.Failed, *res.failure)
			continue
		}

		report.Succeeded = append(report.Succeeded, res.name)
		for _, item := range res.items {
			if item.Title == "" {
				continue
			}
			if item.Source == "" {
				item.Source = res.name
			}

			key := item.DedupKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			report.Items = append(report.Items, item)
		}
	}

	return report
}
