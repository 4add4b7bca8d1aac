package model

// Row is a single observation keyed by column name. Cell values are kept as
// strings; numeric interpretation happens in the metrics package.
type Row map[string]string

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered sequence of rows with an explicit column order.
// Column order is preserved through normalization and export.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable creates an empty table with the given column order.
func NewTable(columns []string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// HasColumn reports whether the table schema contains the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn appends a column to the schema if not already present.
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// Append adds a row to the table.
func (t *Table) Append(r Row) {
	t.Rows = append(t.Rows, r)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := NewTable(t.Columns)
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// DistinctValues returns the distinct non-empty values of a column in first
// appearance order.
func (t *Table) DistinctValues(col string) []string {
	seen := make(map[string]struct{}, len(t.Rows))
	var out []string
	for _, r := range t.Rows {
		v := r[col]
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// identityKey builds the dedup key for a row: (query, period) when the table
// carries a period column, query alone otherwise.
func identityKey(r Row, queryCol string, withPeriod bool) string {
	if withPeriod {
		return r[queryCol] + "\x00" + r[ColMonth]
	}
	return r[queryCol]
}

// DedupeLast removes duplicate rows by identity key, keeping the last
// occurrence. Surviving rows retain their relative order of last appearance.
func (t *Table) DedupeLast(queryCol string) *Table {
	withPeriod := t.HasColumn(ColMonth)

	last := make(map[string]int, len(t.Rows))
	for i, r := range t.Rows {
		last[identityKey(r, queryCol, withPeriod)] = i
	}

	out := NewTable(t.Columns)
	for i, r := range t.Rows {
		if last[identityKey(r, queryCol, withPeriod)] == i {
			out.Append(r)
		}
	}
	return out
}

// Concat appends all rows of other, unioning the column schemas. Columns of
// other that are new to t are appended after t's columns.
func (t *Table) Concat(other *Table) *Table {
	out := NewTable(t.Columns)
	for _, c := range other.Columns {
		out.AddColumn(c)
	}
	out.Rows = make([]Row, 0, len(t.Rows)+len(other.Rows))
	out.Rows = append(out.Rows, t.Rows...)
	out.Rows = append(out.Rows, other.Rows...)
	return out
}

// Merge combines a previously accumulated table with newly ingested rows.
// Existing rows come first, so on identity-key collision the incoming row
// wins. A nil existing table returns incoming unchanged.
func Merge(existing, incoming *Table, queryCol string) *Table {
	if existing == nil {
		return incoming
	}
	return existing.Concat(incoming).DedupeLast(queryCol)
}
