package schema

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ============================================================================
// DISCOVERY — Completes the catalog from loaded data
// ============================================================================
// The column set is fixed; what varies per dataset is the set of values each
// categorical column takes. Discovery collects them so that the validator can
// canonicalize filter values and the planners can match entity names.
//
// Also hosts the parsing helpers shared with the dataset loader.
// ============================================================================

// Source is the read surface discovery needs. engine.RecordView satisfies it.
type Source interface {
	Len() int
	Dimension(index int, key string) string
}

// DiscoverOptions controls discovery behavior.
type DiscoverOptions struct {
	MaxValues int    // Max known values kept per dimension. Default: 200
	Name      string // Dataset name override
}

// DefaultDiscoverOptions returns sensible defaults.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{MaxValues: 200}
}

// Discover returns a copy of base with known values, cardinality hints and
// the record count filled from src. Temporal dimensions get no values.
func Discover(base Config, src Source, opts ...DiscoverOptions) Config {
	opt := DefaultDiscoverOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}
	if opt.MaxValues <= 0 {
		opt.MaxValues = DefaultDiscoverOptions().MaxValues
	}

	out := base
	if opt.Name != "" {
		out.Name = opt.Name
	}
	out.Dimensions = make([]DimensionMeta, len(base.Dimensions))
	copy(out.Dimensions, base.Dimensions)
	out.Measures = make([]MeasureMeta, len(base.Measures))
	copy(out.Measures, base.Measures)

	n := src.Len()
	for i := range out.Dimensions {
		d := &out.Dimensions[i]
		if d.IsTemporal {
			continue
		}
		unique := make(map[string]bool)
		for r := 0; r < n; r++ {
			if v := strings.TrimSpace(src.Dimension(r, d.Key)); !isNull(v) {
				unique[v] = true
			}
		}
		d.SampleValues = collectSamples(unique, opt.MaxValues)
		d.CardinalityHint = cardinalityHint(len(unique))
	}

	out.RecordCount = n
	out.DiscoveredFrom = "dataset"
	return out
}

func cardinalityHint(unique int) string {
	switch {
	case unique <= 10:
		return "low"
	case unique <= 100:
		return "medium"
	default:
		return "high"
	}
}

// ============================================================================
// VALUE PARSING
// ============================================================================

func isNull(v string) bool {
	switch v {
	case "", "null", "NULL", "N/A", "n/a", "NaN", "nan", "NaT":
		return true
	}
	return false
}

// ParseNumber parses a numeric cell. Thousands separators and a leading
// currency symbol are tolerated. Empty or invalid input yields NaN.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if isNull(s) {
		return math.NaN()
	}
	s = strings.ReplaceAll(s, ",", "")
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimLeft(s, "$€£₹")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	if neg {
		f = -f
	}
	return f
}

var dateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07:00",
	"2006/01/02",
	"01/02/2006",
}

// ParseDate parses a date cell and drops any timezone, returning midnight
// UTC of the calendar day. Unparseable input yields the zero time.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if isNull(s) {
		return time.Time{}
	}
	for _, f := range dateFormats {
		if t, err := time.Parse(f, s); err == nil {
			if t.Location() != time.UTC {
				t = t.UTC()
			}
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
	}
	return time.Time{}
}

// ============================================================================
// STRING UTILITIES
// ============================================================================

// NormalizeName converts "Column Name", "column-name" or "columnName" to "column_name".
func NormalizeName(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	prevLower := false
	for _, r := range s {
		switch {
		case r == ' ' || r == '-':
			b.WriteRune('_')
			prevLower = false
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteRune('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		default:
			b.WriteRune(r)
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
	}
	out := b.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	return strings.Trim(out, "_")
}

// DisplayNameFor cleans a key for human display.
// "lead_time_days" → "Lead Time Days"
func DisplayNameFor(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// collectSamples returns up to maxSamples values in sorted order.
func collectSamples(uniqueSet map[string]bool, maxSamples int) []string {
	vals := make([]string, 0, len(uniqueSet))
	for v := range uniqueSet {
		vals = append(vals, v)
	}
	sort.Strings(vals)
	if len(vals) > maxSamples {
		vals = vals[:maxSamples]
	}
	return vals
}
