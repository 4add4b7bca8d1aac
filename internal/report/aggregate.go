// Package report aggregates the categorized dataset into comparison views:
// summary stats, category distribution, category-level aggregates with
// opportunity scoring, share of voice, and monthly trends.
package report

import (
	"sort"

	"github.com/sells-group/sqp-cli/internal/metrics"
	"github.com/sells-group/sqp-cli/internal/model"
)

// SummaryStats are the headline numbers for one processed dataset.
type SummaryStats struct {
	TotalQueries      int     `json:"total_queries"`
	TotalImpressions  float64 `json:"total_impressions"`
	TotalClicks       float64 `json:"total_clicks"`
	TotalOrders       float64 `json:"total_orders"`
	TotalSales        float64 `json:"total_sales"`
	AvgCTR            float64 `json:"avg_ctr"`
	AvgConversionRate float64 `json:"avg_conversion_rate"`
}

// Summary computes summary statistics over a processed table. Absent
// columns contribute zero.
func Summary(t *model.Table) SummaryStats {
	s := SummaryStats{TotalQueries: t.Len()}
	if t.Len() == 0 {
		return s
	}

	var ctrSum, cvrSum float64
	for _, r := range t.Rows {
		s.TotalImpressions += metrics.CoerceFloat(r[model.ColImpressions])
		s.TotalClicks += metrics.CoerceFloat(r[model.ColClicks])
		s.TotalOrders += metrics.CoerceFloat(r[model.ColOrders])
		s.TotalSales += metrics.CoerceFloat(r[model.ColSales])
		ctrSum += metrics.CoerceFloat(r[model.ColCTR])
		cvrSum += metrics.CoerceFloat(r[model.ColConversionRate])
	}
	if t.HasColumn(model.ColCTR) {
		s.AvgCTR = ctrSum / float64(t.Len())
	}
	if t.HasColumn(model.ColConversionRate) {
		s.AvgConversionRate = cvrSum / float64(t.Len())
	}
	return s
}

// CategoryCount is one entry of the category distribution.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Distribution counts rows per category, sorted by count descending with
// category name as tiebreaker.
func Distribution(t *model.Table) []CategoryCount {
	counts := make(map[string]int)
	for _, r := range t.Rows {
		counts[r[model.ColCategory]]++
	}
	out := make([]CategoryCount, 0, len(counts))
	for cat, n := range counts {
		out = append(out, CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// CategoryAggregate is one row of the category-level aggregate table.
type CategoryAggregate struct {
	Category         string  `json:"category"`
	TotalImpressions float64 `json:"total_impressions"`
	TotalSales       float64 `json:"total_sales"`
	QueryCount       int     `json:"query_count"`
	MarketShare      float64 `json:"market_share_pct"`
	VolumeScore      float64 `json:"volume_score"`
	OpportunityScore float64 `json:"opportunity_score"`
}

// Aggregate groups the categorized table by category and computes total
// impressions, total sales, query count, and market share per category.
// Output is sorted by total sales descending.
func Aggregate(t *model.Table) []CategoryAggregate {
	byCat := make(map[string]*CategoryAggregate)
	var order []string
	for _, r := range t.Rows {
		cat := r[model.ColCategory]
		agg, ok := byCat[cat]
		if !ok {
			agg = &CategoryAggregate{Category: cat}
			byCat[cat] = agg
			order = append(order, cat)
		}
		agg.TotalImpressions += metrics.CoerceFloat(r[model.ColImpressions])
		agg.TotalSales += metrics.CoerceFloat(r[model.ColSales])
		agg.QueryCount++
	}

	var totalSales float64
	for _, cat := range order {
		totalSales += byCat[cat].TotalSales
	}

	out := make([]CategoryAggregate, 0, len(order))
	for _, cat := range order {
		agg := *byCat[cat]
		if totalSales > 0 {
			agg.MarketShare = metrics.Round2(agg.TotalSales / totalSales * 100)
		}
		out = append(out, agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSales != out[j].TotalSales {
			return out[i].TotalSales > out[j].TotalSales
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Opportunities scores each category aggregate: high search volume combined
// with low market share means high opportunity. Result is sorted by
// opportunity score descending.
func Opportunities(aggs []CategoryAggregate) []CategoryAggregate {
	var maxImpressions, maxShare float64
	for _, a := range aggs {
		if a.TotalImpressions > maxImpressions {
			maxImpressions = a.TotalImpressions
		}
		if a.MarketShare > maxShare {
			maxShare = a.MarketShare
		}
	}

	out := make([]CategoryAggregate, len(aggs))
	copy(out, aggs)
	if maxImpressions > 0 && maxShare > 0 {
		for i := range out {
			out[i].VolumeScore = out[i].TotalImpressions / maxImpressions * 100
			out[i].OpportunityScore = out[i].VolumeScore * (100 - out[i].MarketShare) / 100
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpportunityScore != out[j].OpportunityScore {
			return out[i].OpportunityScore > out[j].OpportunityScore
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// VoiceShare compares a category's visibility share against its revenue
// share across the whole table.
type VoiceShare struct {
	Category        string  `json:"category"`
	ImpressionShare float64 `json:"impression_share_pct"`
	SalesShare      float64 `json:"sales_share_pct"`
}

// ShareOfVoice computes per-category impression share and sales share,
// sorted by impression share descending.
func ShareOfVoice(t *model.Table) []VoiceShare {
	aggs := Aggregate(t)

	var totalImpressions, totalSales float64
	for _, a := range aggs {
		totalImpressions += a.TotalImpressions
		totalSales += a.TotalSales
	}

	out := make([]VoiceShare, 0, len(aggs))
	for _, a := range aggs {
		v := VoiceShare{Category: a.Category}
		if totalImpressions > 0 {
			v.ImpressionShare = metrics.Round2(a.TotalImpressions / totalImpressions * 100)
		}
		if totalSales > 0 {
			v.SalesShare = metrics.Round2(a.TotalSales / totalSales * 100)
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ImpressionShare != out[j].ImpressionShare {
			return out[i].ImpressionShare > out[j].ImpressionShare
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// MonthTrend is one period bucket of the temporal trend view.
type MonthTrend struct {
	Month            string  `json:"month"`
	Impressions      float64 `json:"impressions"`
	BrandImpressions float64 `json:"brand_impressions"`
	Sales            float64 `json:"sales"`
	BrandShare       float64 `json:"brand_share_pct"`
}

// MonthlyTrends groups the table by period bucket and computes market
// impressions, brand impressions, sales, and the brand impression share per
// month, sorted by month. Returns nil when the table has no period column.
func MonthlyTrends(t *model.Table) []MonthTrend {
	if !t.HasColumn(model.ColMonth) {
		return nil
	}

	byMonth := make(map[string]*MonthTrend)
	for _, r := range t.Rows {
		m := r[model.ColMonth]
		trend, ok := byMonth[m]
		if !ok {
			trend = &MonthTrend{Month: m}
			byMonth[m] = trend
		}
		trend.Impressions += metrics.CoerceFloat(r[model.ColImpressions])
		trend.BrandImpressions += metrics.CoerceFloat(r[model.ColBrandImpressions])
		trend.Sales += metrics.CoerceFloat(r[model.ColSales])
	}

	out := make([]MonthTrend, 0, len(byMonth))
	for _, trend := range byMonth {
		if trend.Impressions > 0 {
			trend.BrandShare = metrics.Round2(trend.BrandImpressions / trend.Impressions * 100)
		}
		out = append(out, *trend)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
