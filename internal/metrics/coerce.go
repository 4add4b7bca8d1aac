// Package metrics fills in derived SQP metrics (CTR, conversion rate, sales,
// market share) using prioritized fallback chains over whatever raw columns
// a report happens to carry.
package metrics

import (
	"math"
	"strconv"
	"strings"
)

// CoerceFloat parses a raw cell into a non-negative finite number. Every
// character other than digits and the decimal point is stripped first, so
// values like "1,234", "€19.99", or "12%" all parse. Unparseable input
// coerces to 0, never an error.
func CoerceFloat(raw string) float64 {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatFloat renders a metric value back into a cell, without a trailing
// zero tail ("199.9" rather than "199.900000").
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
