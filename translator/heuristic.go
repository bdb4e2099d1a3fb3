package translator

import (
	"context"
	"strings"
	"time"

	"github.com/spektr-org/shipinsight/engine"
	"github.com/spektr-org/shipinsight/schema"
)

// ============================================================================
// HEURISTIC PLANNER — Deterministic text → Plan
// ============================================================================
// No network, no randomness. The same question, catalog and day always
// produce the same plan. Also used to fill the gaps of remote plans.
// ============================================================================

// Heuristic is the rule-table planner.
type Heuristic struct {
	now func() time.Time
}

// HeuristicOption configures a Heuristic.
type HeuristicOption func(*Heuristic)

// WithClock sets the clock calendar ranges ("this month") are computed from.
func WithClock(now func() time.Time) HeuristicOption {
	return func(h *Heuristic) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHeuristic creates the rule-table planner.
func NewHeuristic(opts ...HeuristicOption) *Heuristic {
	h := &Heuristic{now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Translate implements Translator.
func (h *Heuristic) Translate(_ context.Context, question string, sch schema.Config) *TranslateResult {
	return &TranslateResult{Plan: h.Plan(question, sch), Source: SourceHeuristic}
}

// Plan builds a validated plan from the question.
func (h *Heuristic) Plan(question string, sch schema.Config) engine.Plan {
	// Names are matched against the question as typed; number words are
	// normalized only for the time and top-N rules.
	original := strings.TrimSpace(question)
	text := strings.ToLower(NormalizeNumberWords(original))

	raw := map[string]any{}
	filters := map[string]any{}

	if tr := MatchTimeRange(text, today(h.now())); tr != nil {
		raw["time_range"] = timeRangePayload(tr)
	}

	if v, ok := MatchStatus(text); ok {
		filters["status"] = v
	}
	if v, ok := MatchMode(text); ok {
		filters["mode"] = v
	}
	if v, ok := MatchOrigin(original); ok {
		filters["origin_country"] = v
	}
	if v, ok := MatchDestination(original); ok {
		filters["destination_country"] = v
	}
	if v, ok := MatchLane(original, sch.KnownValues("lane")); ok {
		filters["lane"] = v
	}
	if v, ok := MatchSupplier(original, sch.KnownValues("supplier")); ok {
		filters["supplier"] = v
	}
	raw["filters"] = filters

	if top, ok := MatchTopN(text, sch); ok {
		raw["group_by"] = top.Dimension
		limit := map[string]any{"dimension": top.Dimension, "n": top.N}
		if top.Metric != "" {
			raw["order_by"] = map[string]any{"metric": top.Metric, "direction": "desc"}
			limit["metric"] = top.Metric
		}
		raw["limit"] = limit
	} else {
		groupBy, metric := MatchBy(text, sch)
		if groupBy != "" {
			raw["group_by"] = groupBy
		}
		if metric != "" {
			raw["order_by"] = map[string]any{"metric": metric, "direction": "desc"}
		}
	}

	return engine.Validate(raw, sch)
}

// Enrich fills the parts of a remote plan that were left empty with what
// the rules find in the same question. Every top-level key the remote plan
// set is kept; filter columns are added only when the remote plan has none
// for that column.
func (h *Heuristic) Enrich(remote engine.Plan, question string, sch schema.Config) engine.Plan {
	return mergePlans(remote, h.Plan(question, sch))
}

func mergePlans(primary, fallback engine.Plan) engine.Plan {
	out := primary.Clone()
	if out.TimeRange == nil && fallback.TimeRange != nil {
		tr := *fallback.TimeRange
		out.TimeRange = &tr
	}
	if out.Filters == nil {
		out.Filters = engine.Filters{}
	}
	for col, fv := range fallback.Filters {
		if _, set := out.Filters[col]; !set {
			out.Filters[col] = engine.FilterValue{Values: append([]string(nil), fv.Values...), Set: fv.Set}
		}
	}
	fb := fallback.Clone()
	if out.GroupBy == nil {
		out.GroupBy = fb.GroupBy
	}
	if out.OrderBy == nil {
		out.OrderBy = fb.OrderBy
	}
	if out.Limit == nil {
		out.Limit = fb.Limit
	}
	if out.Select == nil {
		out.Select = fb.Select
	}
	return out
}

func timeRangePayload(tr *engine.TimeRange) map[string]any {
	if tr.Type == engine.RangeLastNDays {
		return map[string]any{"type": tr.Type, "n": tr.N}
	}
	return map[string]any{"type": tr.Type, "start": tr.Start, "end": tr.End}
}

func today(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
