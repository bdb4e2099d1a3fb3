package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/spektr-org/shipinsight/schema"
)

// ============================================================================
// TABLE BUILDER — Produces TableData from a result view
// ============================================================================
// List tables render one row per shipment. Summary tables render the
// group_by/order_by intent of a plan, which the executor leaves to display.
// Cell formatting is deterministic so identical inputs give identical CSV.
// ============================================================================

// RiskyColumns is the projection of the risky-shipments table.
var RiskyColumns = []string{
	"shipment_id", "po_number", "supplier", "lane", "mode", "status",
	"po_date", "planned_eta", "actual_eta", schema.ColDelayDays, schema.ColTotalLandedCost,
}

// BuildTable renders one row per record. columns selects and orders the
// output; empty means every catalog column the view carries.
func BuildTable(view RecordView, sch schema.Config, columns []string) *TableData {
	cols := tableColumns(view, sch, columns)

	rows := make([][]string, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		row := make([]string, len(cols))
		for j, c := range cols {
			if c.Type == "number" {
				row[j] = FormatValue(view.Measure(i, c.Key))
			} else {
				row[j] = view.Dimension(i, c.Key)
			}
		}
		rows = append(rows, row)
	}

	table := &TableData{
		Columns: cols,
		Rows:    rows,
		Summary: &Summary{
			Label:  fmt.Sprintf("Total (%s shipments)", FormatInt(view.Len())),
			Values: map[string]string{},
		},
	}
	for _, c := range cols {
		if c.Key == schema.ColTotalLandedCost {
			table.Summary.Values[c.Key] = FormatAmount(SumMeasure(view, c.Key), 2)
		}
	}
	return table
}

func tableColumns(view RecordView, sch schema.Config, keys []string) []Column {
	if len(keys) == 0 {
		keys = sch.Columns()
	}

	var cols []Column
	for _, key := range keys {
		switch {
		case hasKey(view.MeasureKeys(), key):
			cols = append(cols, Column{Key: key, Label: sch.DisplayName(key), Type: "number", Align: "right"})
		case hasKey(view.DimensionKeys(), key):
			typ := "text"
			if d, ok := sch.Dimension(key); ok && d.IsTemporal {
				typ = "date"
			}
			cols = append(cols, Column{Key: key, Label: sch.DisplayName(key), Type: typ, Align: "left"})
		}
	}
	return cols
}

// BuildRiskyTable lists shipments flagged at risk, most delayed first.
func BuildRiskyTable(view RecordView, sch schema.Config) *TableData {
	var indices []int
	for i := 0; i < view.Len(); i++ {
		if view.Measure(i, schema.ColRiskFlag) == 1 {
			indices = append(indices, i)
		}
	}
	sort.SliceStable(indices, func(a, b int) bool {
		da := view.Measure(indices[a], schema.ColDelayDays)
		db := view.Measure(indices[b], schema.ColDelayDays)
		if math.IsNaN(db) {
			return !math.IsNaN(da)
		}
		return da > db
	})

	table := BuildTable(newSubView(view, indices), sch, RiskyColumns)
	table.Title = "Risky Shipments"
	return table
}

// ============================================================================
// SUMMARY TABLE — group_by / order_by for display
// ============================================================================

// BuildSummary aggregates the result view along the plan's grouping intent.
// The dimension is group_by, else the limit dimension; the metric is the
// order_by metric, else the limit metric, else a row count. Returns nil when
// the plan names no dimension.
func BuildSummary(plan Plan, view RecordView, sch schema.Config) *TableData {
	dim := ""
	switch {
	case plan.GroupBy != nil:
		dim = *plan.GroupBy
	case plan.Limit != nil:
		dim = plan.Limit.Dimension
	}
	if dim == "" || !hasKey(view.DimensionKeys(), dim) {
		return nil
	}

	metric := ""
	direction := "desc"
	if plan.OrderBy != nil {
		metric = plan.OrderBy.Metric
		direction = plan.OrderBy.Direction
	} else if plan.Limit != nil && plan.Limit.Metric != nil {
		metric = *plan.Limit.Metric
	}

	aggregation := "count"
	valueLabel := "Shipments"
	if metric != "" && hasKey(view.MeasureKeys(), metric) {
		aggregation = "sum"
		if m, ok := sch.Measure(metric); ok {
			if m.DefaultAggregation == "avg" {
				aggregation = "avg"
				if m.Unit == "flag" {
					aggregation = "rate"
				}
			}
		}
		valueLabel = LabelForAggregation(aggregation) + " " + sch.DisplayName(metric)
	}

	limit := 0
	if plan.Limit != nil && plan.Limit.Dimension == dim {
		limit = plan.Limit.N
	}
	groups := GroupAndAggregate(view, dim, metric, aggregation, direction, limit)

	title := sch.DisplayName(dim)
	if aggregation != "count" {
		title = sch.DisplayName(metric) + " by " + sch.DisplayName(dim)
	}

	table := &TableData{
		Title: title,
		Columns: []Column{
			{Key: dim, Label: sch.DisplayName(dim), Type: "text", Align: "left"},
			{Key: "value", Label: valueLabel, Type: "number", Align: "right"},
			{Key: "count", Label: "Shipments", Type: "number", Align: "right"},
		},
		Rows: make([][]string, 0, len(groups)),
	}

	var total int
	for _, g := range groups {
		table.Rows = append(table.Rows, []string{g.Label, FormatValue(RoundTo2(g.Value)), FormatInt(g.Count)})
		total += g.Count
	}
	table.Summary = &Summary{Label: "Total", Values: map[string]string{"count": FormatInt(total)}}
	return table
}

// ============================================================================
// CSV OUTPUT
// ============================================================================

// WriteCSV serializes a table with a header row of column keys.
func WriteCSV(w io.Writer, table *TableData) error {
	cw := csv.NewWriter(w)
	if table == nil {
		cw.Flush()
		return cw.Error()
	}

	header := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		header[i] = c.Key
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range table.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
