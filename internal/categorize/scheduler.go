package categorize

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// BatchClassifier classifies one batch of queries. Implementations should
// absorb their own failures, but the scheduler guards against a returned
// error anyway by downgrading the whole batch to the sentinel category.
type BatchClassifier interface {
	ClassifyBatch(ctx context.Context, queries []string) (map[string]string, error)
}

// Scheduler settings bounds. Batch size and worker clamps follow the limits
// the Anthropic API tolerates comfortably for this prompt shape.
const (
	minBatchSize = 20
	maxBatchSize = 200
	minWorkers   = 1
	maxWorkers   = 5
)

// Scheduler computes the delta of queries needing classification, partitions
// it into fixed-size batches, and dispatches them sequentially or across a
// bounded worker pool.
type Scheduler struct {
	exec      BatchClassifier
	batchSize int
	parallel  bool
	workers   int
	delay     time.Duration
}

// NewScheduler builds a scheduler. Out-of-range sizes are clamped: batch
// size to [20,200], workers to [1,5]. The delay paces sequential mode only.
func NewScheduler(exec BatchClassifier, batchSize int, parallel bool, workers int, delay time.Duration) *Scheduler {
	if batchSize < minBatchSize {
		batchSize = minBatchSize
	}
	if batchSize > maxBatchSize {
		batchSize = maxBatchSize
	}
	if workers < minWorkers {
		workers = minWorkers
	}
	if workers > maxWorkers {
		workers = maxWorkers
	}
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &Scheduler{
		exec:      exec,
		batchSize: batchSize,
		parallel:  parallel,
		workers:   workers,
		delay:     delay,
	}
}

// Run classifies every query in all that the cache does not already cover
// and returns the full merged category map. When the cache covers everything
// no classification call is made. A failing batch never blocks the others:
// its queries come back with the sentinel category. Every query in all is
// guaranteed a category in the result.
func (s *Scheduler) Run(ctx context.Context, all []string, cache *Cache) map[string]string {
	missing := cache.MissingFrom(all)
	if len(missing) == 0 {
		zap.L().Info("categorize: all queries cached, skipping classification",
			zap.Int("queries", len(all)),
		)
		return cache.Snapshot()
	}

	batches := partition(missing, s.batchSize)
	zap.L().Info("categorize: scheduling classification",
		zap.Int("queries", len(all)),
		zap.Int("new", len(missing)),
		zap.Int("batches", len(batches)),
		zap.Bool("parallel", s.parallel),
	)

	var partials []map[string]string
	if s.parallel {
		partials = s.runParallel(ctx, batches)
	} else {
		partials = s.runSequential(ctx, batches)
	}

	// Reduce all partial results in one place. Only queries that were
	// actually scheduled may enter the cache.
	scheduled := make(map[string]struct{}, len(missing))
	for _, q := range missing {
		scheduled[q] = struct{}{}
	}
	merged := make(map[string]string, len(missing))
	for _, p := range partials {
		for q, cat := range p {
			if _, ok := scheduled[q]; ok {
				merged[q] = cat
			}
		}
	}
	// Anything a partial somehow dropped still gets the sentinel.
	for _, q := range missing {
		if _, ok := merged[q]; !ok {
			merged[q] = Uncategorized
		}
	}

	cache.PutBatch(merged)
	return cache.Snapshot()
}

// runSequential executes batches one at a time in order, paced by a rate
// limiter as a courtesy to the external service.
func (s *Scheduler) runSequential(ctx context.Context, batches [][]string) []map[string]string {
	limiter := rate.NewLimiter(rate.Every(s.delay), 1)
	partials := make([]map[string]string, 0, len(batches))

	for i, batch := range batches {
		if err := limiter.Wait(ctx); err != nil {
			// Context gone: downgrade this and all remaining batches.
			zap.L().Warn("categorize: scheduling interrupted", zap.Error(err))
			for _, rest := range batches[i:] {
				partials = append(partials, sentinelMap(rest))
			}
			break
		}
		partials = append(partials, s.classifyGuarded(ctx, batch, i))
	}
	return partials
}

// runParallel dispatches batches to a bounded worker pool. Each task returns
// an isolated partial result; nothing shared is mutated from the workers.
func (s *Scheduler) runParallel(ctx context.Context, batches [][]string) []map[string]string {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	var mu sync.Mutex
	partials := make([]map[string]string, 0, len(batches))

	for i, batch := range batches {
		g.Go(func() error {
			result := s.classifyGuarded(gCtx, batch, i)
			mu.Lock()
			partials = append(partials, result)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return partials
}

// classifyGuarded runs one batch and enforces the failure policy: any error
// maps the whole batch to the sentinel category.
func (s *Scheduler) classifyGuarded(ctx context.Context, batch []string, idx int) map[string]string {
	result, err := s.exec.ClassifyBatch(ctx, batch)
	if err != nil {
		zap.L().Warn("categorize: batch errored, assigning sentinel category",
			zap.Int("batch", idx),
			zap.Int("batch_size", len(batch)),
			zap.Error(err),
		)
		return sentinelMap(batch)
	}
	return result
}

// partition splits queries into ordered batches of at most size, with no
// overlap and no gaps.
func partition(queries []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(queries); start += size {
		end := start + size
		if end > len(queries) {
			end = len(queries)
		}
		batches = append(batches, queries[start:end])
	}
	return batches
}
