package categorize

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClassifier is a BatchClassifier with a programmable per-batch response.
type stubClassifier struct {
	mu      sync.Mutex
	batches [][]string
	classFn func(batch []string) (map[string]string, error)
}

func (s *stubClassifier) ClassifyBatch(ctx context.Context, queries []string) (map[string]string, error) {
	s.mu.Lock()
	cp := make([]string, len(queries))
	copy(cp, queries)
	s.batches = append(s.batches, cp)
	s.mu.Unlock()

	if s.classFn != nil {
		return s.classFn(queries)
	}
	out := make(map[string]string, len(queries))
	for _, q := range queries {
		out[q] = "Category"
	}
	return out, nil
}

func (s *stubClassifier) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func queryList(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("query %03d", i)
	}
	return out
}

func TestScheduler_PartitionsIntoBatches(t *testing.T) {
	stub := &stubClassifier{}
	sched := NewScheduler(stub, 100, true, 3, time.Millisecond)

	queries := queryList(130)
	got := sched.Run(context.Background(), queries, NewCache(true))

	require.Equal(t, 2, stub.calls())
	require.Len(t, got, 130)
	for _, q := range queries {
		assert.Equal(t, "Category", got[q])
	}
}

func TestScheduler_CacheShortCircuit(t *testing.T) {
	stub := &stubClassifier{}
	sched := NewScheduler(stub, 100, false, 1, time.Millisecond)

	cache := NewCache(true)
	cache.PutBatch(map[string]string{"a": "Lunchbox", "b": "Bento"})

	got := sched.Run(context.Background(), []string{"a", "b"}, cache)

	assert.Equal(t, 0, stub.calls())
	assert.Equal(t, map[string]string{"a": "Lunchbox", "b": "Bento"}, got)
}

func TestScheduler_OnlyMissingScheduled(t *testing.T) {
	stub := &stubClassifier{}
	sched := NewScheduler(stub, 100, false, 1, time.Millisecond)

	cache := NewCache(true)
	cache.PutBatch(map[string]string{"a": "Lunchbox"})

	got := sched.Run(context.Background(), []string{"a", "b"}, cache)

	require.Equal(t, 1, stub.calls())
	assert.Equal(t, []string{"b"}, stub.batches[0])
	assert.Equal(t, "Lunchbox", got["a"])
	assert.Equal(t, "Category", got["b"])
}

// A batch whose classifier errors degrades to the sentinel without blocking
// the other batches.
func TestScheduler_FailedBatchGetsSentinel(t *testing.T) {
	stub := &stubClassifier{}
	stub.classFn = func(batch []string) (map[string]string, error) {
		if batch[0] == "query 000" {
			return nil, eris.New("boom")
		}
		out := make(map[string]string, len(batch))
		for _, q := range batch {
			out[q] = "Category"
		}
		return out, nil
	}
	sched := NewScheduler(stub, 20, false, 1, time.Millisecond)

	queries := queryList(40)
	got := sched.Run(context.Background(), queries, NewCache(true))

	require.Len(t, got, 40)
	assert.Equal(t, Uncategorized, got["query 000"])
	assert.Equal(t, Uncategorized, got["query 019"])
	assert.Equal(t, "Category", got["query 020"])
	assert.Equal(t, "Category", got["query 039"])
}

func TestScheduler_PartialResponseFilledWithSentinel(t *testing.T) {
	stub := &stubClassifier{}
	stub.classFn = func(batch []string) (map[string]string, error) {
		// Answer only the first query of each batch.
		return map[string]string{batch[0]: "Category"}, nil
	}
	sched := NewScheduler(stub, 20, true, 3, time.Millisecond)

	queries := queryList(25)
	got := sched.Run(context.Background(), queries, NewCache(true))

	require.Len(t, got, 25)
	assert.Equal(t, "Category", got["query 000"])
	assert.Equal(t, "Category", got["query 020"])
	assert.Equal(t, Uncategorized, got["query 001"])
	assert.Equal(t, Uncategorized, got["query 024"])
}

func TestScheduler_UnscheduledKeysDropped(t *testing.T) {
	stub := &stubClassifier{}
	stub.classFn = func(batch []string) (map[string]string, error) {
		out := map[string]string{"stowaway": "Noise"}
		for _, q := range batch {
			out[q] = "Category"
		}
		return out, nil
	}
	sched := NewScheduler(stub, 20, false, 1, time.Millisecond)

	cache := NewCache(true)
	got := sched.Run(context.Background(), []string{"a"}, cache)

	assert.Equal(t, map[string]string{"a": "Category"}, got)
	_, ok := cache.Get("stowaway")
	assert.False(t, ok)
}

func TestScheduler_ClampsSettings(t *testing.T) {
	stub := &stubClassifier{}
	sched := NewScheduler(stub, 5, true, 50, 0)

	assert.Equal(t, minBatchSize, sched.batchSize)
	assert.Equal(t, maxWorkers, sched.workers)
	assert.Equal(t, 500*time.Millisecond, sched.delay)

	sched = NewScheduler(stub, 5000, true, 0, time.Second)
	assert.Equal(t, maxBatchSize, sched.batchSize)
	assert.Equal(t, minWorkers, sched.workers)
}

func TestScheduler_CancelledContextDegradesToSentinel(t *testing.T) {
	stub := &stubClassifier{}
	sched := NewScheduler(stub, 20, false, 1, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	queries := queryList(25)
	got := sched.Run(ctx, queries, NewCache(true))

	require.Len(t, got, 25)
	for _, q := range queries {
		assert.Equal(t, Uncategorized, got[q])
	}
}

func TestPartition(t *testing.T) {
	batches := partition(queryList(5), 2)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 2)
	assert.Len(t, batches[2], 1)

	assert.Nil(t, partition(nil, 2))
}
