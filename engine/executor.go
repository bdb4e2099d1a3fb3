package engine

import (
	"fmt"

	"go.uber.org/zap"
)

// ============================================================================
// EXECUTOR — Applies a validated Plan to a RecordView
// ============================================================================
// Entry point: Execute(plan, view, opts...)
//
// Stages, always in this order:
//   1. time_range — window on the designated date column
//   2. filters    — AND of column constraints
//   3. limit      — keep rows of the top N dimension values
//
// group_by, order_by and select are left to the presentation layer.
// This function never calls an external service and never mutates the
// source view. Each stage returns a new SubView.
// ============================================================================

// Execute runs a plan against a view. It has no failure modes: unknown
// columns and unresolvable ranges degrade the corresponding stage to a no-op.
//
// Options:
//   - WithNow(t) / WithClock(fn) — reference time for relative ranges
//   - WithDateColumn(key) — date column when the plan names none (default po_date)
//   - WithLogger(l) — stage-level debug logging
func Execute(plan Plan, view RecordView, opts ...Option) *Result {
	cfg := applyOptions(opts)
	res := &Result{Plan: plan}
	current := view
	applied := false

	// 1. Time range
	column := cfg.DateColumn
	if plan.TimeRange != nil && plan.TimeRange.Column != "" {
		column = plan.TimeRange.Column
	}
	stage := Stage{Name: "time_range", Before: current.Len()}
	if plan.TimeRange == nil {
		stage.Skipped = true
	} else if !hasKey(current.TimeKeys(), column) && !hasKey(current.DimensionKeys(), column) {
		stage.Skipped = true
		stage.Detail = fmt.Sprintf("date column %q not in dataset", column)
	} else {
		current = ApplyTimeRange(current, plan.TimeRange, column, cfg.Now())
		applied = true
		stage.Detail = fmt.Sprintf("%s on %s", DescribeRange(plan.TimeRange), column)
	}
	stage.After = current.Len()
	res.Stages = append(res.Stages, stage)

	// 2. Filters
	stage = Stage{Name: "filters", Before: current.Len()}
	if len(plan.Filters) == 0 {
		stage.Skipped = true
	} else {
		current = ApplyFilters(current, plan.Filters)
		applied = true
		stage.Detail = describeFilters(plan.Filters)
	}
	stage.After = current.Len()
	res.Stages = append(res.Stages, stage)

	// 3. Top-N limit
	stage = Stage{Name: "limit", Before: current.Len()}
	if plan.Limit == nil {
		stage.Skipped = true
	} else {
		metric := ""
		if plan.Limit.Metric != nil {
			metric = *plan.Limit.Metric
		}
		current = TopN(current, plan.Limit.Dimension, metric, plan.Limit.N)
		applied = true
		stage.Detail = describeLimit(plan.Limit)
	}
	stage.After = current.Len()
	res.Stages = append(res.Stages, stage)

	// Stages may pass their input through; always hand back a distinct view.
	if !applied {
		current = Subset(view, allIndices(view.Len()))
	}
	res.View = current

	for _, s := range res.Stages {
		cfg.Logger.Debug("plan stage",
			zap.String("stage", s.Name),
			zap.Int("before", s.Before),
			zap.Int("after", s.After),
			zap.Bool("skipped", s.Skipped))
	}
	return res
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
