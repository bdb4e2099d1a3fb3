package engine

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/spektr-org/shipinsight/schema"
)

// ============================================================================
// PLAN VALIDATOR — Repairs any payload into a well-formed Plan
// ============================================================================
// Rules:
//   1. All six keys exist; filters is never nil.
//   2. Every column reference resolves through the catalog or is dropped.
//   3. limit.n must be a positive integer, else limit is null.
//   4. order_by.direction is "asc" or "desc" (default "desc").
//   5. Categorical filter values take the dataset's spelling.
//
// Validation never fails and never panics. It is idempotent:
// ValidatePlan(ValidatePlan(p, s), s) equals ValidatePlan(p, s).
// ============================================================================

// Validate coerces a decoded payload into a Plan. raw may be a
// map[string]any, a Plan, a *Plan, JSON text ([]byte or string), or anything
// else (which yields the empty plan).
func Validate(raw any, sch schema.Config) Plan {
	p := Plan{Filters: Filters{}}
	m := asObject(raw)
	if m == nil {
		return p
	}

	p.TimeRange = validateTimeRange(m["time_range"], sch)
	p.Filters = validateFilters(m["filters"], sch)
	p.GroupBy = validateGroupBy(m["group_by"], sch)
	p.OrderBy = validateOrderBy(m["order_by"], sch)
	p.Limit = validateLimit(m["limit"], p.GroupBy, p.OrderBy, sch)
	p.Select = validateSelect(m["select"], sch)
	return p
}

// ValidatePlan re-validates a typed plan against the catalog.
func ValidatePlan(p Plan, sch schema.Config) Plan {
	return Validate(p.Payload(), sch)
}

func asObject(raw any) map[string]any {
	switch v := raw.(type) {
	case map[string]any:
		return v
	case Plan:
		return v.Payload()
	case *Plan:
		if v == nil {
			return nil
		}
		return v.Payload()
	case []byte:
		return decodeObject(v)
	case string:
		return decodeObject([]byte(v))
	case json.RawMessage:
		return decodeObject(v)
	}
	return nil
}

func decodeObject(data []byte) map[string]any {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

// ============================================================================
// FIELD VALIDATORS
// ============================================================================

func validateTimeRange(raw any, sch schema.Config) *TimeRange {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil
	}

	kind := strings.ToLower(strings.TrimSpace(firstString(m, "type", "kind")))
	kind = strings.NewReplacer(" ", "_", "-", "_").Replace(kind)
	switch kind {
	case "absolute", "range", "between_dates", "date_range":
		kind = RangeBetween
	case "last_days", "relative", "days":
		kind = RangeLastNDays
	case "":
		if _, ok := m["n"]; ok {
			kind = RangeLastNDays
		} else if _, ok := m["start"]; ok {
			kind = RangeBetween
		}
	}

	var tr *TimeRange
	switch kind {
	case RangeLastNDays:
		n, ok := asPositiveInt(firstValue(m, "n", "days"))
		if !ok {
			return nil
		}
		tr = LastNDays(n)

	case RangeBetween:
		start := schema.ParseDate(firstString(m, "start", "from"))
		end := schema.ParseDate(firstString(m, "end", "to"))
		if start.IsZero() || end.IsZero() {
			return nil
		}
		if end.Before(start) {
			start, end = end, start
		}
		tr = Between(start, end)

	default:
		return nil
	}

	if col := firstString(m, "column"); col != "" {
		if key, ok := sch.ResolveTemporal(col); ok {
			tr.Column = key
		}
	}
	return tr
}

func validateFilters(raw any, sch schema.Config) Filters {
	out := Filters{}
	m, ok := raw.(map[string]any)
	if !ok {
		return out
	}

	// Sorted so that two keys resolving to the same column pick a stable winner.
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		col, ok := sch.ResolveColumn(k)
		if !ok {
			continue
		}
		if _, dup := out[col]; dup {
			continue
		}
		if fv, ok := coerceFilterValue(m[k], col, sch); ok {
			out[col] = fv
		}
	}
	return out
}

func coerceFilterValue(raw any, col string, sch schema.Config) (FilterValue, bool) {
	if list, ok := raw.([]any); ok {
		fv := FilterValue{Set: true}
		seen := make(map[string]bool)
		for _, item := range list {
			v, ok := canonicalCell(item, col, sch)
			if !ok || seen[v] {
				continue
			}
			seen[v] = true
			fv.Values = append(fv.Values, v)
		}
		return fv, len(fv.Values) > 0
	}
	v, ok := canonicalCell(raw, col, sch)
	if !ok {
		return FilterValue{}, false
	}
	return Scalar(v), true
}

// canonicalCell renders one filter value the way the executor compares it.
func canonicalCell(raw any, col string, sch schema.Config) (string, bool) {
	if _, isMeasure := sch.Measure(col); isMeasure {
		var f float64
		switch x := raw.(type) {
		case bool:
			if x {
				f = 1
			}
		default:
			s, ok := scalarString(raw)
			if !ok {
				return "", false
			}
			f = schema.ParseNumber(s)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", false
		}
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}

	s, ok := scalarString(raw)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if d, ok := sch.Dimension(col); ok && d.IsTemporal {
		if t := schema.ParseDate(s); !t.IsZero() {
			return t.Format(dateLayout), true
		}
		return s, true
	}
	return sch.CanonicalValue(col, s), true
}

func validateGroupBy(raw any, sch schema.Config) *string {
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	if key, ok := sch.ResolveDimension(s); ok {
		return Ptr(key)
	}
	return nil
}

func validateOrderBy(raw any, sch schema.Config) *OrderBy {
	var metric, direction string
	switch v := raw.(type) {
	case string:
		metric = v
	case map[string]any:
		metric = firstString(v, "metric", "column", "by")
		direction = firstString(v, "direction", "dir", "order")
	default:
		return nil
	}

	key, ok := sch.ResolveMetric(metric)
	if !ok {
		return nil
	}
	return &OrderBy{Metric: key, Direction: normalizeDirection(direction)}
}

func normalizeDirection(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "asc", "ascending", "up", "lowest":
		return "asc"
	}
	return "desc"
}

func validateLimit(raw any, groupBy *string, orderBy *OrderBy, sch schema.Config) *Limit {
	var dimension string
	var nRaw, metricRaw any

	switch v := raw.(type) {
	case map[string]any:
		dimension = firstString(v, "dimension", "by", "column")
		nRaw = firstValue(v, "n", "count", "top")
		metricRaw = v["metric"]
	case float64, int, json.Number, string:
		// A bare number ranks the group_by dimension by the order_by metric.
		if groupBy == nil {
			return nil
		}
		dimension = *groupBy
		nRaw = v
		if orderBy != nil {
			metricRaw = orderBy.Metric
		}
	default:
		return nil
	}

	dim, ok := sch.ResolveDimension(dimension)
	if !ok {
		return nil
	}
	n, ok := asPositiveInt(nRaw)
	if !ok {
		return nil
	}

	l := &Limit{Dimension: dim, N: n}
	if s, ok := metricRaw.(string); ok {
		if key, ok := sch.ResolveMetric(s); ok {
			l.Metric = Ptr(key)
		}
	}
	return l
}

func validateSelect(raw any, sch schema.Config) []string {
	var names []string
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
	case string:
		names = strings.Split(v, ",")
	default:
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	for _, n := range names {
		key, ok := sch.ResolveColumn(n)
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

// ============================================================================
// COERCION HELPERS
// ============================================================================

func firstValue(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// asPositiveInt accepts whole numbers and numeric strings greater than zero.
func asPositiveInt(v any) (int, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || f < 1 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
