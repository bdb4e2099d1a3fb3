package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// ENGINE TYPES — Query Plan and Execution Result
// ============================================================================
// The Plan is the only contract between planning (heuristic or remote) and
// execution. It is built per question, validated once at the planning
// boundary, executed once and discarded.
// ============================================================================

// ============================================================================
// PLAN — Contract between planners and the executor
// ============================================================================

// Plan is a bounded query: time window, filters and top-N ranking.
// All six keys are always serialized; absent parts are null.
// group_by and order_by are advisory for presentation; the executor
// enforces only time_range, filters and limit.
type Plan struct {
	TimeRange *TimeRange `json:"time_range"`
	Filters   Filters    `json:"filters"`
	GroupBy   *string    `json:"group_by"`
	OrderBy   *OrderBy   `json:"order_by"`
	Limit     *Limit     `json:"limit"`
	Select    []string   `json:"select"`
}

// Time range kinds.
const (
	RangeLastNDays = "last_n_days"
	RangeBetween   = "between"
)

// TimeRange is either a relative window (last N days) or absolute dates.
type TimeRange struct {
	Type   string `json:"type"`
	N      int    `json:"n,omitempty"`
	Start  string `json:"start,omitempty"` // YYYY-MM-DD, inclusive
	End    string `json:"end,omitempty"`   // YYYY-MM-DD, inclusive
	Column string `json:"column,omitempty"`
}

// LastNDays builds a relative time range.
func LastNDays(n int) *TimeRange {
	return &TimeRange{Type: RangeLastNDays, N: n}
}

// Between builds an absolute time range from two calendar days.
func Between(start, end time.Time) *TimeRange {
	return &TimeRange{Type: RangeBetween, Start: start.Format(dateLayout), End: end.Format(dateLayout)}
}

// OrderBy names the ranking metric for presentation.
type OrderBy struct {
	Metric    string `json:"metric"`
	Direction string `json:"direction"` // "asc" or "desc"
}

// Limit keeps only the rows of the top N values of a dimension.
// A nil Metric ranks by row count.
type Limit struct {
	Dimension string  `json:"dimension"`
	N         int     `json:"n"`
	Metric    *string `json:"metric"`
}

// Ptr returns a pointer to v. Handy for the nullable plan fields.
func Ptr[T any](v T) *T { return &v }

const dateLayout = "2006-01-02"

// JSON returns the compact JSON form of the plan.
func (p Plan) JSON() string {
	b, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Payload returns the plan as a generic decoded JSON object, the shape a
// remote planner produces.
func (p Plan) Payload() map[string]any {
	var m map[string]any
	_ = json.Unmarshal([]byte(p.JSON()), &m)
	return m
}

// Clone returns a deep copy of the plan.
func (p Plan) Clone() Plan {
	out := Plan{}
	if p.TimeRange != nil {
		tr := *p.TimeRange
		out.TimeRange = &tr
	}
	if p.Filters != nil {
		out.Filters = make(Filters, len(p.Filters))
		for k, v := range p.Filters {
			out.Filters[k] = FilterValue{Values: append([]string(nil), v.Values...), Set: v.Set}
		}
	}
	if p.GroupBy != nil {
		out.GroupBy = Ptr(*p.GroupBy)
	}
	if p.OrderBy != nil {
		ob := *p.OrderBy
		out.OrderBy = &ob
	}
	if p.Limit != nil {
		l := *p.Limit
		if l.Metric != nil {
			l.Metric = Ptr(*l.Metric)
		}
		out.Limit = &l
	}
	if p.Select != nil {
		out.Select = append([]string(nil), p.Select...)
	}
	return out
}

// ============================================================================
// FILTERS
// ============================================================================

// Filters maps a column to its constraint. Columns are AND-combined.
type Filters map[string]FilterValue

// FilterValue is either a scalar (exact equality) or a set (membership).
type FilterValue struct {
	Values []string
	Set    bool
}

// Scalar builds an equality constraint.
func Scalar(v string) FilterValue { return FilterValue{Values: []string{v}} }

// OneOf builds a membership constraint.
func OneOf(vs ...string) FilterValue { return FilterValue{Values: vs, Set: true} }

// Matches reports whether a cell value satisfies the constraint.
func (f FilterValue) Matches(v string) bool {
	for _, want := range f.Values {
		if want == v {
			return true
		}
	}
	return false
}

// String renders the constraint for traces: "Air" or "[Air, Ocean]".
func (f FilterValue) String() string {
	if f.Set {
		return "[" + strings.Join(f.Values, ", ") + "]"
	}
	if len(f.Values) == 0 {
		return ""
	}
	return f.Values[0]
}

// MarshalJSON writes a scalar as a string and a set as an array.
func (f FilterValue) MarshalJSON() ([]byte, error) {
	if f.Set {
		vals := f.Values
		if vals == nil {
			vals = []string{}
		}
		return json.Marshal(vals)
	}
	if len(f.Values) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(f.Values[0])
}

// UnmarshalJSON accepts a string, number, boolean or an array of those.
func (f *FilterValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var raw []any
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		f.Set = true
		f.Values = f.Values[:0]
		for _, r := range raw {
			if s, ok := scalarString(r); ok {
				f.Values = append(f.Values, s)
			}
		}
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s, ok := scalarString(raw)
	if !ok {
		return fmt.Errorf("filter value must be a scalar or a list, got %s", string(data))
	}
	f.Set = false
	f.Values = []string{s}
	return nil
}

// scalarString renders a decoded JSON scalar as text.
func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case json.Number:
		return x.String(), true
	case bool:
		if x {
			return "true", true
		}
		return "false", true
	}
	return "", false
}

// ============================================================================
// RESULT — Executor output
// ============================================================================

// Result is the outcome of executing a plan: a new view over the source
// plus per-stage row counts for the trace.
type Result struct {
	Plan   Plan       `json:"plan"`
	View   RecordView `json:"-"`
	Stages []Stage    `json:"stages"`
}

// Stage records one executor step.
type Stage struct {
	Name    string `json:"name"` // "time_range", "filters", "limit"
	Before  int    `json:"before"`
	After   int    `json:"after"`
	Skipped bool   `json:"skipped,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// ============================================================================
// GROUP — Intermediate computation result
// ============================================================================

// Group represents a grouped/aggregated result.
type Group struct {
	Key   string     `json:"key"`
	Label string     `json:"label"`
	Value float64    `json:"value"`
	Count int        `json:"count"`
	View  RecordView `json:"-"` // Sub-view for records in this group (zero-copy)
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartConfig is chart-ready series data. Drawing stays with the caller.
type ChartConfig struct {
	ID         string        `json:"id"`
	ChartType  string        `json:"chartType"`
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	Series     []ChartSeries `json:"series"`
	Colors     []string      `json:"colors,omitempty"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint represents a single data point.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData defines how to render a table.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Summary *Summary   `json:"summary,omitempty"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number", "date"
	Align string `json:"align"` // "left", "right"
}

// Summary provides totals for a table.
type Summary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}
