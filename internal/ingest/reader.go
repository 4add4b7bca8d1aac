// Package ingest loads raw SQP report payloads (CSV and Excel) into tables,
// handling the encoding and leading-metadata-row quirks of Amazon exports,
// and combines multiple files into one deduplicated dataset.
package ingest

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/sells-group/sqp-cli/internal/model"
)

// ErrUnsupportedFormat is returned for file extensions the ingestor does not
// understand. During a multi-file load it aborts the whole batch.
var ErrUnsupportedFormat = eris.New("ingest: unsupported file format")

// File is one raw payload with its declared name. The extension selects the
// parser.
type File struct {
	Name string
	Data []byte
}

// metadataMarkers identify the metadata line Amazon prepends to some CSV
// exports (e.g. `Brand=Acme, Reporting range=...`). When the first line
// carries one of these, exactly one line is skipped before the header.
var metadataMarkers = []string{"Brand=", "Reporting range"}

func hasMetadataLine(data []byte) bool {
	head := data
	if len(head) > 200 {
		head = head[:200]
	}
	first := string(head)
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	for _, m := range metadataMarkers {
		if strings.Contains(first, m) {
			return true
		}
	}
	return false
}

// readCSV parses a delimited-text payload. UTF-8 is attempted first; payloads
// that are not valid UTF-8 are re-decoded as Latin-1, which accepts any byte
// sequence.
func readCSV(data []byte) (*model.Table, error) {
	if !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, eris.Wrap(err, "ingest: decode csv as latin-1")
		}
		zap.L().Debug("ingest: csv payload fell back to latin-1 decoding")
		data = decoded
	}

	skip := 0
	if hasMetadataLine(data) {
		skip = 1
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	for i := 0; i < skip; i++ {
		if _, err := reader.Read(); err != nil {
			return nil, eris.Wrap(err, "ingest: skip metadata line")
		}
	}

	header, err := reader.Read()
	if err == io.EOF {
		return model.NewTable(nil), nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read csv header")
	}

	return rowsToTable(header, func() ([]string, error) {
		rec, err := reader.Read()
		if err == io.EOF {
			return nil, nil
		}
		return rec, err
	})
}

// readXLSX parses a spreadsheet payload from the first sheet. Exactly one
// leading row is always skipped; Amazon's Excel exports carry a fixed title
// row, so no metadata heuristic applies here.
func readXLSX(data []byte) (*model.Table, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open spreadsheet")
	}
	if len(f.Sheets) == 0 {
		return model.NewTable(nil), nil
	}
	sheet := f.Sheets[0]

	const skipRows = 1
	if len(sheet.Rows) <= skipRows {
		return model.NewTable(nil), nil
	}

	header := cellStrings(sheet.Rows[skipRows])
	i := skipRows + 1
	return rowsToTable(header, func() ([]string, error) {
		if i >= len(sheet.Rows) {
			return nil, nil
		}
		rec := cellStrings(sheet.Rows[i])
		i++
		return rec, nil
	})
}

func cellStrings(row *xlsx.Row) []string {
	out := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		out[i] = c.String()
	}
	return out
}

// rowsToTable drains next() into a table keyed by the header. Short records
// leave trailing cells empty; extra cells beyond the header are dropped.
func rowsToTable(header []string, next func() ([]string, error)) (*model.Table, error) {
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	t := model.NewTable(columns)
	for {
		rec, err := next()
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read row")
		}
		if rec == nil {
			return t, nil
		}
		r := make(model.Row, len(columns))
		for i, col := range columns {
			if col == "" {
				continue
			}
			if i < len(rec) {
				r[col] = strings.TrimSpace(rec[i])
			} else {
				r[col] = ""
			}
		}
		t.Append(r)
	}
}
