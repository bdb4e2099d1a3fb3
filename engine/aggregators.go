package engine

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ============================================================================
// AGGREGATORS — Grouping, Aggregation, Ranking via RecordView
// ============================================================================
// All functions operate on RecordView: zero-copy access to any data source.
// Grouping produces SubViews (index lists into parent view).
// Null measures (NaN) are skipped by every aggregate.
// ============================================================================

// GroupAndAggregate groups by one dimension, aggregates a measure and sorts.
// Pipeline: group → aggregate → sort → limit.
func GroupAndAggregate(view RecordView, dimension, measure, aggregation, direction string, limit int) []Group {
	if view.Len() == 0 {
		return nil
	}
	if dimension != "" && !hasKey(view.DimensionKeys(), dimension) {
		return nil
	}

	var groups []Group
	if dimension == "" {
		groups = []Group{{Key: "all", Label: "Total", View: view}}
	} else {
		groups = groupBySingle(view, dimension)
	}

	for i := range groups {
		aggregateGroup(&groups[i], measure, aggregation)
	}

	SortGroups(groups, direction)

	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	return groups
}

// ============================================================================
// GROUPING
// ============================================================================

// groupBySingle groups rows by a dimension in first-appearance order.
func groupBySingle(view RecordView, dimension string) []Group {
	grouped := make(map[string][]int)
	order := make([]string, 0)

	for i := 0; i < view.Len(); i++ {
		key := view.Dimension(i, dimension)
		if _, exists := grouped[key]; !exists {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], i)
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		groups = append(groups, Group{
			Key:   key,
			Label: key,
			View:  newSubView(view, grouped[key]),
		})
	}
	return groups
}

// ============================================================================
// TOP-N
// ============================================================================

// TopN keeps the rows belonging to the n highest-ranked values of dimension.
// Groups rank by the sum of metric, or by row count when metric is empty or
// not carried by the view. Ranking is descending and stable: ties keep the
// order in which the groups first appear. Rows keep their original order.
func TopN(view RecordView, dimension, metric string, n int) RecordView {
	if n <= 0 || !hasKey(view.DimensionKeys(), dimension) {
		return newSubView(view, allIndices(view.Len()))
	}

	aggregation := "sum"
	if metric == "" || !hasKey(view.MeasureKeys(), metric) {
		aggregation = "count"
	}

	groups := groupBySingle(view, dimension)
	for i := range groups {
		aggregateGroup(&groups[i], metric, aggregation)
	}
	SortGroups(groups, "desc")

	keep := make(map[string]bool, n)
	for i := 0; i < len(groups) && i < n; i++ {
		keep[groups[i].Key] = true
	}

	indices := make([]int, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		if keep[view.Dimension(i, dimension)] {
			indices = append(indices, i)
		}
	}
	return newSubView(view, indices)
}

// ============================================================================
// AGGREGATION
// ============================================================================

func aggregateGroup(group *Group, measure string, aggregation string) {
	group.Count = group.View.Len()
	if group.Count == 0 {
		return
	}

	switch aggregation {
	case "count":
		group.Value = float64(group.Count)
	case "avg":
		group.Value = AvgMeasure(group.View, measure)
	case "rate":
		group.Value = AvgMeasure(group.View, measure) * 100
	default:
		group.Value = SumMeasure(group.View, measure)
	}
}

// SumMeasure sums a named measure across a view, skipping nulls.
func SumMeasure(view RecordView, measure string) float64 {
	var total float64
	for i := 0; i < view.Len(); i++ {
		if v := view.Measure(i, measure); !math.IsNaN(v) {
			total += v
		}
	}
	return total
}

// AvgMeasure computes the mean of the non-null values of a measure.
func AvgMeasure(view RecordView, measure string) float64 {
	var total float64
	var n int
	for i := 0; i < view.Len(); i++ {
		if v := view.Measure(i, measure); !math.IsNaN(v) {
			total += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// CountWhere counts rows whose measure satisfies pred. Nulls never match.
func CountWhere(view RecordView, measure string, pred func(float64) bool) int {
	var n int
	for i := 0; i < view.Len(); i++ {
		if v := view.Measure(i, measure); !math.IsNaN(v) && pred(v) {
			n++
		}
	}
	return n
}

// ============================================================================
// SORTING
// ============================================================================

// SortGroups sorts groups in place. Sorting is stable so equal values keep
// their grouping order.
func SortGroups(groups []Group, direction string) {
	switch direction {
	case "desc":
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value > groups[j].Value })
	case "asc":
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value < groups[j].Value })
	default:
		// preserve grouping order
	}
}

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// FormatValue renders a measure deterministically: whole numbers without
// decimals, fractions with two, nulls as the empty string.
func FormatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatAmount formats an amount with comma separators and fixed decimals.
func FormatAmount(amount float64, decimals int) string {
	if math.IsNaN(amount) {
		return ""
	}
	negative := amount < 0
	if negative {
		amount = -amount
	}

	s := strconv.FormatFloat(amount, 'f', decimals, 64)
	intStr, frac, _ := strings.Cut(s, ".")
	if len(intStr) > 3 {
		var parts []string
		for len(intStr) > 3 {
			parts = append([]string{intStr[len(intStr)-3:]}, parts...)
			intStr = intStr[:len(intStr)-3]
		}
		parts = append([]string{intStr}, parts...)
		intStr = strings.Join(parts, ",")
	}

	result := intStr
	if frac != "" {
		result += "." + frac
	}
	if negative {
		result = "-" + result
	}
	return result
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", FormatInt(n/1000), n%1000)
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// LabelForAggregation returns a human-readable label for an aggregation type.
func LabelForAggregation(aggregation string) string {
	switch aggregation {
	case "sum":
		return "Total"
	case "count":
		return "Count"
	case "avg":
		return "Average"
	case "rate":
		return "Rate %"
	default:
		return "Value"
	}
}
