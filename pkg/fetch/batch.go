package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/briefwire/briefwire/pkg/domain"
)

// BatchResult holds the outcome of a cross-topic run. A topic's failure
// never affects its siblings; failed topics carry empty article sets and an
// entry in Errors.
type BatchResult struct {
	Articles map[string][]domain.Article
	Errors   map[string]error
}

// FetchAll resolves all topics in quota-sized batches. Topics within a batch
// run concurrently with staggered starts; batches run strictly after one
// another with a fixed delay to respect shared provider quotas.
func (o *Orchestrator) FetchAll(ctx context.Context, topics []string) BatchResult {
	result := BatchResult{
		Articles: make(map[string][]domain.Article, len(topics)),
		Errors:   make(map[string]error),
	}
	if len(topics) == 0 {
		return result
	}

	batchSize := o.batchSize()
	lgr.Printf("[INFO] fetching %d topics in batches of %d", len(topics), batchSize)

	var mu sync.Mutex
	for start := 0; start < len(topics); start += batchSize {
		end := min(start+batchSize, len(topics))
		batch := topics[start:end]

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(batchSize)
		for i, topic := range batch {
			delay := time.Duration(i) * o.cfg.StaggerDelay
			g.Go(func() error {
				// staggered start avoids a thundering herd on the providers
				select {
				case <-gctx.Done():
					mu.Lock()
					result.Errors[topic] = gctx.Err()
					mu.Unlock()
					return nil
				case <-time.After(delay):
				}

				articles := o.FetchTopic(gctx, topic)
				mu.Lock()
				result.Articles[topic] = articles
				mu.Unlock()
				return nil // failures are collected, never abort siblings
			})
		}
		_ = g.Wait() // goroutines always return nil

		if end < len(topics) {
			select {
			case <-ctx.Done():
				for _, t := range topics[end:] {
					result.Errors[t] = ctx.Err()
				}
				return result
			case <-time.After(o.cfg.BatchDelay):
			}
		}
	}
	return result
}

// batchSize derives the batch size from the remaining primary-provider quota
// divided by the estimated requests per topic, floored at 2 with a default
// when the provider is effectively unlimited
func (o *Orchestrator) batchSize() int {
	remaining := o.limiter.Remaining(o.primary.Name())
	if remaining >= 1<<20 {
		return o.cfg.DefaultBatchSize
	}
	size := remaining / o.cfg.RequestsPerTopic
	if size < 2 {
		return 2
	}
	return size
}
