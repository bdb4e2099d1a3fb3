package engine

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/spektr-org/shipinsight/schema"
)

// ============================================================================
// FILTERS — Time window and column constraints via RecordView
// ============================================================================
// Single-pass filters: each checks all constraints per record in one loop.
// Each returns a SubView (index list into parent); zero data copy.
// ============================================================================

// ApplyTimeRange keeps the rows whose date column falls inside the range.
// last_n_days keeps dates on or after today minus N days; between keeps
// dates from start through end inclusive. Rows with a null date are dropped.
func ApplyTimeRange(view RecordView, tr *TimeRange, column string, now time.Time) RecordView {
	from, until, ok := rangeBounds(tr, now)
	if !ok {
		return newSubView(view, allIndices(view.Len()))
	}

	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		t := view.Time(i, column)
		if t.IsZero() {
			continue
		}
		if !t.Before(from) && (until.IsZero() || t.Before(until)) {
			indices = append(indices, i)
		}
	}
	return newSubView(view, indices)
}

// rangeBounds resolves a time range to [from, until). A zero until is open.
// last_n_days starts at the instant now minus N days, not at midnight.
func rangeBounds(tr *TimeRange, now time.Time) (from, until time.Time, ok bool) {
	if tr == nil {
		return time.Time{}, time.Time{}, false
	}
	switch tr.Type {
	case RangeLastNDays:
		if tr.N <= 0 {
			return time.Time{}, time.Time{}, false
		}
		return now.UTC().AddDate(0, 0, -tr.N), time.Time{}, true
	case RangeBetween:
		start := schema.ParseDate(tr.Start)
		end := schema.ParseDate(tr.End)
		if start.IsZero() || end.IsZero() {
			return time.Time{}, time.Time{}, false
		}
		return start, end.AddDate(0, 0, 1), true
	}
	return time.Time{}, time.Time{}, false
}

// DescribeRange renders a time range for traces.
func DescribeRange(tr *TimeRange) string {
	if tr == nil {
		return "all time"
	}
	switch tr.Type {
	case RangeLastNDays:
		return fmt.Sprintf("last %d days", tr.N)
	case RangeBetween:
		return fmt.Sprintf("%s to %s", tr.Start, tr.End)
	}
	return "all time"
}

// ApplyFilters returns a view of records matching every column constraint.
// Measures compare numerically, everything else by exact text. Columns the
// view does not carry are ignored. The result is always a new view.
func ApplyFilters(view RecordView, filters Filters) RecordView {
	type check struct {
		column  string
		measure bool
		nums    []float64
		value   FilterValue
	}

	var checks []check
	for col, fv := range filters {
		if len(fv.Values) == 0 {
			continue
		}
		switch {
		case hasKey(view.MeasureKeys(), col):
			c := check{column: col, measure: true}
			for _, s := range fv.Values {
				if f, err := strconv.ParseFloat(s, 64); err == nil {
					c.nums = append(c.nums, f)
				}
			}
			checks = append(checks, c)
		case hasKey(view.DimensionKeys(), col):
			checks = append(checks, check{column: col, value: fv})
		}
	}

	if len(checks) == 0 {
		return newSubView(view, allIndices(view.Len()))
	}

	// Single pass: a record passes if it matches ALL constraints
	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		pass := true
		for _, c := range checks {
			if c.measure {
				pass = matchesNumber(view.Measure(i, c.column), c.nums)
			} else {
				pass = c.value.Matches(view.Dimension(i, c.column))
			}
			if !pass {
				break
			}
		}
		if pass {
			indices = append(indices, i)
		}
	}

	return newSubView(view, indices)
}

func matchesNumber(v float64, allowed []float64) bool {
	if math.IsNaN(v) {
		return false
	}
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
