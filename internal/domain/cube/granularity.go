// Package cube holds the persisted aggregate model of the financial trend
// cube: time granularities, concrete periods, and the sum/count rows keyed by
// tenant, period, and dimension tuple.
package cube

import "fmt"

// Granularity identifies a supported time-bucketing scheme.
//
// Every granularity buckets dates by an anchor unit: week-based granularities
// by the ISO week (Monday start) a date falls in, month-based granularities by
// its calendar month. A period starts at the anchor unit's start and extends
// forward the granularity's span, so each date belongs to exactly one period
// per granularity.
type Granularity string

const (
	GranularityWeekly    Granularity = "WEEKLY"
	GranularityBiweekly  Granularity = "BIWEEKLY"
	GranularityMonthly   Granularity = "MONTHLY"
	GranularityQuarterly Granularity = "QUARTERLY"
	GranularityBiannual  Granularity = "BIANNUAL"
	GranularityAnnual    Granularity = "ANNUAL"
)

// SupportedGranularities returns the fixed set of granularities the cube
// maintains rows for. The set is deliberately not configurable: shrinking or
// growing it at runtime would orphan persisted buckets.
func SupportedGranularities() []Granularity {
	return []Granularity{
		GranularityWeekly,
		GranularityBiweekly,
		GranularityMonthly,
		GranularityQuarterly,
		GranularityBiannual,
		GranularityAnnual,
	}
}

// ParseGranularity converts a string into a supported Granularity
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(s)
	switch g {
	case GranularityWeekly, GranularityBiweekly, GranularityMonthly,
		GranularityQuarterly, GranularityBiannual, GranularityAnnual:
		return g, nil
	}
	return "", fmt.Errorf("unsupported granularity: %q", s)
}

// WeekBased reports whether the granularity anchors on weeks rather than months
func (g Granularity) WeekBased() bool {
	return g == GranularityWeekly || g == GranularityBiweekly
}

// SpanWeeks returns the period length in weeks for week-based granularities
func (g Granularity) SpanWeeks() int {
	switch g {
	case GranularityWeekly:
		return 1
	case GranularityBiweekly:
		return 2
	}
	return 0
}

// SpanMonths returns the period length in months for month-based granularities
func (g Granularity) SpanMonths() int {
	switch g {
	case GranularityMonthly:
		return 1
	case GranularityQuarterly:
		return 3
	case GranularityBiannual:
		return 6
	case GranularityAnnual:
		return 12
	}
	return 0
}
