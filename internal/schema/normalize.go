package schema

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sqp-cli/internal/model"
)

// ErrMissingIdentityColumn is returned when a table has no recognizable
// search query column after normalization.
var ErrMissingIdentityColumn = eris.New("schema: no search query column found")

// ResolveRenames evaluates the rule table against a column set once and
// returns an explicit old-name to canonical-name mapping. First match wins
// per canonical name; a canonical column already present in the table is
// never overwritten.
func ResolveRenames(columns []string, rules []Rule) map[string]string {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}

	renames := make(map[string]string)
	for _, rule := range rules {
		if _, ok := present[rule.Canonical]; ok {
			continue
		}
		for _, syn := range rule.Synonyms {
			if syn == rule.Canonical {
				continue
			}
			if _, ok := present[syn]; !ok {
				continue
			}
			if _, taken := renames[syn]; taken {
				continue
			}
			renames[syn] = rule.Canonical
			present[rule.Canonical] = struct{}{}
			break
		}
	}
	return renames
}

// Normalize renames every column matching a synonym rule to its canonical
// name. Columns not covered by any rule pass through unchanged. Missing
// canonical columns are not an error; downstream stages treat them as
// optional.
func Normalize(t *model.Table, rules []Rule) *model.Table {
	renames := ResolveRenames(t.Columns, rules)
	if len(renames) == 0 {
		return t
	}

	out := model.NewTable(nil)
	for _, c := range t.Columns {
		if canonical, ok := renames[c]; ok {
			out.AddColumn(canonical)
		} else {
			out.AddColumn(c)
		}
	}

	out.Rows = make([]model.Row, len(t.Rows))
	for i, r := range t.Rows {
		nr := make(model.Row, len(r))
		for k, v := range r {
			if canonical, ok := renames[k]; ok {
				nr[canonical] = v
			} else {
				nr[k] = v
			}
		}
		out.Rows[i] = nr
	}

	zap.L().Debug("schema: normalized columns",
		zap.Int("renamed", len(renames)),
		zap.Int("columns", len(out.Columns)),
	)
	return out
}

// IdentityColumn returns the name of the search query column. After
// normalization this is the canonical name; as a last resort any column
// whose name contains "search" together with "query" or "term" is accepted.
func IdentityColumn(t *model.Table) (string, error) {
	if t.HasColumn(model.ColSearchQuery) {
		return model.ColSearchQuery, nil
	}
	for _, c := range t.Columns {
		lower := strings.ToLower(c)
		if strings.Contains(lower, "search") && (strings.Contains(lower, "query") || strings.Contains(lower, "term")) {
			return c, nil
		}
	}
	return "", ErrMissingIdentityColumn
}
