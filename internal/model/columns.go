// Package model defines the canonical tabular data structures shared by the
// ingestion, normalization, categorization, and reporting stages.
package model

// Canonical column names produced by the schema normalizer. Downstream
// stages treat every one of these as optional.
const (
	ColSearchQuery    = "Search Query"
	ColImpressions    = "Impressions"
	ColClicks         = "Clicks"
	ColCTR            = "CTR"
	ColOrders         = "Orders"
	ColSales          = "Sales"
	ColPurchasePrice  = "Purchase Price"
	ColConversionRate = "Conversion Rate"
	ColMarketShare    = "Market Share %"
	ColCategory       = "Category"
	ColMonth          = "Month"

	ColBrandImpressions  = "Brand Impressions"
	ColBrandClicks       = "Brand Clicks"
	ColBrandOrders       = "Brand Orders"
	ColBrandShare        = "Brand Share %"
	ColSearchQueryVolume = "Search Query Volume"
	ColSearchQueryScore  = "Search Query Score"
)
