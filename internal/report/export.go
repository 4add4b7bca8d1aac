package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sqp-cli/internal/model"
)

// WriteTable writes a table as delimited text, header first, preserving
// column order.
func WriteTable(w io.Writer, t *model.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return eris.Wrap(err, "report: write header")
	}
	rec := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for i, col := range t.Columns {
			rec[i] = r[col]
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrap(err, "report: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush")
}

// WriteAggregates writes the category-level aggregate table as delimited
// text, including the opportunity columns when scored.
func WriteAggregates(w io.Writer, aggs []CategoryAggregate) error {
	cw := csv.NewWriter(w)
	header := []string{"Category", "Total Impressions", "Total Sales", "Query Count", "Market Share %", "Volume Score", "Opportunity Score"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "report: write aggregate header")
	}
	for _, a := range aggs {
		rec := []string{
			a.Category,
			formatNum(a.TotalImpressions),
			formatNum(a.TotalSales),
			strconv.Itoa(a.QueryCount),
			formatNum(a.MarketShare),
			formatNum(a.VolumeScore),
			formatNum(a.OpportunityScore),
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrap(err, "report: write aggregate row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush aggregates")
}

// WriteDistribution writes the category distribution as delimited text.
func WriteDistribution(w io.Writer, dist []CategoryCount) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Category", "Count"}); err != nil {
		return eris.Wrap(err, "report: write distribution header")
	}
	for _, d := range dist {
		if err := cw.Write([]string{d.Category, strconv.Itoa(d.Count)}); err != nil {
			return eris.Wrap(err, "report: write distribution row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush distribution")
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
