// Package pipeline owns the per-session analysis state: the accumulated
// canonical table and the category cache, extended on each ingest and each
// classification run.
package pipeline

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sqp-cli/internal/categorize"
	"github.com/sells-group/sqp-cli/internal/ingest"
	"github.com/sells-group/sqp-cli/internal/metrics"
	"github.com/sells-group/sqp-cli/internal/model"
	"github.com/sells-group/sqp-cli/internal/schema"
)

// Session holds one analysis run's accumulated state. Create it empty,
// extend the table with each upload, extend the category cache with each
// classification run. Nothing is persisted beyond the session.
type Session struct {
	ID    uuid.UUID
	rules []schema.Rule

	// Table is the accumulated canonical dataset, nil before first ingest.
	Table *model.Table
	// Categorized is Table plus the Category column, nil before the first
	// classification run.
	Categorized *model.Table
	// Cache is the session category map.
	Cache *categorize.Cache
}

// New creates an empty session using the given schema rules and sentinel
// retry policy.
func New(rules []schema.Rule, retrySentinel bool) *Session {
	return &Session{
		ID:    uuid.New(),
		rules: rules,
		Cache: categorize.NewCache(retrySentinel),
	}
}

// Ingest loads, normalizes, and metric-completes the given files, then
// merges the result into the session table. Newly uploaded rows supersede
// older rows with the same identity key. Returns the merged table.
func (s *Session) Ingest(files []ingest.File) (*model.Table, error) {
	t, err := ingest.LoadAll(files, s.rules)
	if err != nil {
		return nil, err
	}
	metrics.Derive(t)

	queryCol, err := schema.IdentityColumn(t)
	if err != nil {
		return nil, err
	}
	s.Table = model.Merge(s.Table, t, queryCol)

	zap.L().Info("pipeline: dataset extended",
		zap.String("session", s.ID.String()),
		zap.Int("new_rows", t.Len()),
		zap.Int("total_rows", s.Table.Len()),
	)
	return s.Table, nil
}

// Categorize classifies every distinct query in the session table through
// the scheduler, extends the category cache, and returns the categorized
// table. Every row gets a Category value, sentinel included.
func (s *Session) Categorize(ctx context.Context, sched *categorize.Scheduler) (*model.Table, error) {
	if s.Table == nil {
		return nil, eris.New("pipeline: no data ingested yet")
	}

	queryCol, err := schema.IdentityColumn(s.Table)
	if err != nil {
		return nil, err
	}

	queries := s.Table.DistinctValues(queryCol)
	categories := sched.Run(ctx, queries, s.Cache)

	s.Categorized = applyCategories(s.Table, queryCol, categories)

	zap.L().Info("pipeline: categorization applied",
		zap.String("session", s.ID.String()),
		zap.Int("distinct_queries", len(queries)),
		zap.Int("cached_categories", s.Cache.Len()),
	)
	return s.Categorized, nil
}

// applyCategories returns a copy of the table with a Category column mapped
// from the category map. Queries without an entry get the sentinel.
func applyCategories(t *model.Table, queryCol string, categories map[string]string) *model.Table {
	out := t.Clone()
	out.AddColumn(model.ColCategory)
	for _, r := range out.Rows {
		cat, ok := categories[r[queryCol]]
		if !ok || cat == "" {
			cat = categorize.Uncategorized
		}
		r[model.ColCategory] = cat
	}
	return out
}
