// Package schema normalizes the heterogeneous column naming of Amazon SQP
// exports into the canonical column set defined in internal/model.
package schema

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/sqp-cli/internal/model"
)

// Rule maps one canonical column name to its known synonyms, in priority
// order. Earlier synonyms win when several are present in one table.
type Rule struct {
	Canonical string   `yaml:"canonical"`
	Synonyms  []string `yaml:"synonyms"`
}

// DefaultRules returns the built-in rule table covering the column name
// variants seen across Amazon SQP report formats. Rule order and synonym
// order are significant.
func DefaultRules() []Rule {
	return []Rule{
		{model.ColSearchQuery, []string{"Search Query", "Search Term", "search_query", "search_term", "Query", "query"}},
		{model.ColImpressions, []string{"Impressions: Total Count", "Impressions", "impressions", "Impr.", "Impr"}},
		{model.ColClicks, []string{"Clicks: Total Count", "Clicks", "clicks", "Click", "click"}},
		{model.ColCTR, []string{"Clicks: Click Rate %", "CTR", "ctr", "Click-Through Rate", "Click Rate"}},
		{model.ColOrders, []string{"Purchases: Total Count", "Orders", "orders", "Order", "order", "Total Orders", "Purchases"}},
		{model.ColSales, []string{"Sales", "sales", "Revenue", "revenue", "Total Sales"}},
		{model.ColPurchasePrice, []string{"Purchases: Price (Median)", "Purchase Price", "Price"}},
		{model.ColConversionRate, []string{"Purchases: Purchase Rate %", "Conversion Rate", "conversion_rate", "CVR", "cvr", "Conv. Rate", "Purchase Rate"}},
		{model.ColMonth, []string{"Month", "month", "Reporting Date", "Reporting Range"}},
		{model.ColBrandImpressions, []string{"Impressions: Brand Count"}},
		{model.ColBrandClicks, []string{"Clicks: Brand Count"}},
		{model.ColBrandOrders, []string{"Purchases: Brand Count"}},
		{model.ColBrandShare, []string{"Impressions: Brand Share %"}},
		{model.ColSearchQueryVolume, []string{"Search Query Volume"}},
		{model.ColSearchQueryScore, []string{"Search Query Score"}},
	}
}

// rulesFile is the on-disk override format.
type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules returns the default rule table, extended by the optional YAML
// rules file at path. Override rules append after the defaults so the
// built-in synonyms keep priority. An empty path returns the defaults.
func LoadRules(path string) ([]Rule, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "schema: read rules file %s", path)
	}

	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, eris.Wrapf(err, "schema: parse rules file %s", path)
	}

	for _, r := range rf.Rules {
		if r.Canonical == "" || len(r.Synonyms) == 0 {
			return nil, eris.Errorf("schema: rules file %s: rule needs canonical name and at least one synonym", path)
		}
	}

	return append(rules, rf.Rules...), nil
}
