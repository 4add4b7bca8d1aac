package ingest

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sqp-cli/internal/model"
	"github.com/sells-group/sqp-cli/internal/schema"
)

// Load parses a single raw payload into a table. The extension decides the
// parser; anything other than .csv, .xlsx, or .xls is an ErrUnsupportedFormat.
func Load(f File) (*model.Table, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Name), "."))
	switch ext {
	case "csv":
		t, err := readCSV(f.Data)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: load %s", f.Name)
		}
		return t, nil
	case "xlsx", "xls":
		t, err := readXLSX(f.Data)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: load %s", f.Name)
		}
		return t, nil
	default:
		return nil, eris.Wrapf(ErrUnsupportedFormat, "ingest: load %s (extension %q)", f.Name, ext)
	}
}

// LoadAll loads every payload in input order, normalizes each against the
// rule table, concatenates them, and deduplicates on the query identity key
// keeping the last occurrence, so later files win ties. A failure in any one
// file aborts the whole load; there is no partial-success result.
func LoadAll(files []File, rules []schema.Rule) (*model.Table, error) {
	if len(files) == 0 {
		return nil, eris.New("ingest: no files supplied")
	}

	var combined *model.Table
	for _, f := range files {
		t, err := Load(f)
		if err != nil {
			return nil, err
		}
		t = schema.Normalize(t, rules)
		zap.L().Info("ingest: loaded file",
			zap.String("file", f.Name),
			zap.Int("rows", t.Len()),
			zap.Int("columns", len(t.Columns)),
		)
		if combined == nil {
			combined = t
		} else {
			combined = combined.Concat(t)
		}
	}

	queryCol, err := schema.IdentityColumn(combined)
	if err != nil {
		return nil, err
	}

	before := combined.Len()
	combined = combined.DedupeLast(queryCol)
	if removed := before - combined.Len(); removed > 0 {
		zap.L().Info("ingest: deduplicated combined dataset",
			zap.Int("duplicates_removed", removed),
			zap.Int("rows", combined.Len()),
		)
	}
	return combined, nil
}
