package metrics

import (
	"go.uber.org/zap"

	"github.com/sells-group/sqp-cli/internal/model"
)

// Raw Amazon column names consulted by the sales fallback chain when the
// normalizer was skipped or the canonical columns are absent.
const (
	rawPurchaseCount = "Purchases: Total Count"
	rawMedianPrice   = "Purchases: Price (Median)"
)

// numericColumns are coerced in place before any derivation runs.
var numericColumns = []string{
	model.ColImpressions,
	model.ColClicks,
	model.ColOrders,
	model.ColSales,
	model.ColCTR,
	model.ColConversionRate,
}

// Derive fills in missing metrics on a normalized table, in place:
// CTR, conversion rate, orders, sales, and market share. Each metric is
// only computed when its canonical column is absent (sales additionally
// when present but entirely zero). Rows are never dropped.
func Derive(t *model.Table) {
	coerceNumeric(t)

	deriveCTR(t)
	deriveConversionRate(t)
	copyOrders(t)
	deriveSales(t)
	deriveMarketShare(t)
}

// coerceNumeric rewrites every known numeric cell as a parsed number so
// later stages can rely on clean values. Absent cells become 0.
func coerceNumeric(t *model.Table) {
	for _, col := range numericColumns {
		if !t.HasColumn(col) {
			continue
		}
		for _, r := range t.Rows {
			r[col] = FormatFloat(CoerceFloat(r[col]))
		}
	}
}

func deriveCTR(t *model.Table) {
	if t.HasColumn(model.ColCTR) || !t.HasColumn(model.ColClicks) || !t.HasColumn(model.ColImpressions) {
		return
	}
	t.AddColumn(model.ColCTR)
	for _, r := range t.Rows {
		r[model.ColCTR] = FormatFloat(ratio(r, model.ColClicks, model.ColImpressions))
	}
}

func deriveConversionRate(t *model.Table) {
	if t.HasColumn(model.ColConversionRate) || !t.HasColumn(model.ColClicks) {
		return
	}
	src := model.ColOrders
	if !t.HasColumn(src) {
		src = rawPurchaseCount
	}
	if !t.HasColumn(src) {
		return
	}
	t.AddColumn(model.ColConversionRate)
	for _, r := range t.Rows {
		r[model.ColConversionRate] = FormatFloat(ratio(r, src, model.ColClicks))
	}
}

// ratio computes numerator/denominator*100 with a divide-by-zero guard.
func ratio(r model.Row, num, den string) float64 {
	d := CoerceFloat(r[den])
	if d == 0 {
		return 0
	}
	return CoerceFloat(r[num]) / d * 100
}

// copyOrders standardizes the orders column from the raw purchase count
// when the normalizer did not already map it.
func copyOrders(t *model.Table) {
	if t.HasColumn(model.ColOrders) || !t.HasColumn(rawPurchaseCount) {
		return
	}
	t.AddColumn(model.ColOrders)
	for _, r := range t.Rows {
		r[model.ColOrders] = FormatFloat(CoerceFloat(r[rawPurchaseCount]))
	}
}

// deriveSales computes sales when the column is absent or sums to zero,
// trying orders x purchase price, then orders x median price, then purchase
// count x median price. When no chain applies, sales is 0 for every row.
func deriveSales(t *model.Table) {
	if t.HasColumn(model.ColSales) && columnSum(t, model.ColSales) > 0 {
		return
	}

	type pair struct{ count, price string }
	chains := []pair{
		{model.ColOrders, model.ColPurchasePrice},
		{model.ColOrders, rawMedianPrice},
		{rawPurchaseCount, rawMedianPrice},
	}

	t.AddColumn(model.ColSales)
	for _, c := range chains {
		if !t.HasColumn(c.count) || !t.HasColumn(c.price) {
			continue
		}
		for _, r := range t.Rows {
			r[model.ColSales] = FormatFloat(Round2(CoerceFloat(r[c.count]) * CoerceFloat(r[c.price])))
		}
		if c.count == rawPurchaseCount {
			copyOrders(t)
		}
		zap.L().Debug("metrics: derived sales",
			zap.String("count_col", c.count),
			zap.String("price_col", c.price),
		)
		return
	}

	for _, r := range t.Rows {
		r[model.ColSales] = "0"
	}
}

func deriveMarketShare(t *model.Table) {
	if !t.HasColumn(model.ColSales) {
		return
	}
	total := columnSum(t, model.ColSales)
	t.AddColumn(model.ColMarketShare)
	for _, r := range t.Rows {
		if total == 0 {
			r[model.ColMarketShare] = "0"
			continue
		}
		r[model.ColMarketShare] = FormatFloat(Round2(CoerceFloat(r[model.ColSales]) / total * 100))
	}
}

func columnSum(t *model.Table, col string) float64 {
	var sum float64
	for _, r := range t.Rows {
		sum += CoerceFloat(r[col])
	}
	return sum
}
