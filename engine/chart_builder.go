package engine

import (
	"fmt"
	"math"
	"strconv"

	"github.com/spektr-org/shipinsight/schema"
)

// ============================================================================
// CHART BUILDER — Produces ChartConfig from a result view
// ============================================================================
// Charts are series data only. Rendering belongs to whoever consumes them.
// ============================================================================

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

const (
	spendTopSuppliers = 12
	leadTimeMaxBins   = 30
)

// BuildChart produces a single-series chart from aggregated groups.
func BuildChart(id, chartType, title, xAxis, yAxis string, groups []Group) *ChartConfig {
	if len(groups) == 0 {
		return nil
	}
	if chartType == "" {
		chartType = "bar"
	}

	config := &ChartConfig{
		ID:         id,
		ChartType:  chartType,
		Title:      title,
		XAxis:      xAxis,
		YAxis:      yAxis,
		ShowLegend: false,
		ShowGrid:   chartType != "pie",
		Series:     buildSingleSeries(groups, yAxis),
	}
	config.Colors = assignColors(len(config.Series))
	return config
}

// BuildPlanChart charts the summary of a plan: the grouping dimension
// against the ranking metric, or row counts when the plan has no metric.
func BuildPlanChart(plan Plan, view RecordView, sch schema.Config) *ChartConfig {
	summary := BuildSummary(plan, view, sch)
	if summary == nil || len(summary.Rows) == 0 {
		return nil
	}

	groups := make([]Group, 0, len(summary.Rows))
	for _, row := range summary.Rows {
		v, _ := strconv.ParseFloat(row[1], 64)
		groups = append(groups, Group{Key: row[0], Label: row[0], Value: v})
	}
	return BuildChart("plan", "bar", summary.Title, summary.Columns[0].Label, summary.Columns[1].Label, groups)
}

// BuildDashboardCharts returns the standard shipment charts for a view:
// spend by supplier, on-time rate by supplier, the lead time distribution
// and average delay by lane. Charts with no data are omitted.
func BuildDashboardCharts(view RecordView) []*ChartConfig {
	var charts []*ChartConfig

	spend := GroupAndAggregate(view, "supplier", schema.ColTotalLandedCost, "sum", "desc", spendTopSuppliers)
	if c := BuildChart("spend_by_supplier", "bar", "Spend by Supplier", "Supplier", "Total Landed Cost", spend); c != nil {
		charts = append(charts, c)
	}

	onTime := GroupAndAggregate(view, "supplier", schema.ColOnTime, "rate", "desc", 0)
	if c := BuildChart("on_time_by_supplier", "bar", "On-time % by Supplier", "Supplier", "On-time %", onTime); c != nil {
		charts = append(charts, c)
	}

	if hist := leadTimeHistogram(view, leadTimeMaxBins); len(hist) > 0 {
		charts = append(charts, BuildChart("lead_time_distribution", "histogram", "Lead Time Distribution", "Lead Time (days)", "Shipments", hist))
	}

	delay := GroupAndAggregate(view, "lane", schema.ColDelayDays, "avg", "desc", 0)
	if c := BuildChart("delay_by_lane", "bar", "Average Delay by Lane", "Lane", "Avg Delay (days)", delay); c != nil {
		charts = append(charts, c)
	}

	return charts
}

// leadTimeHistogram buckets lead times into at most maxBins integer-width bins.
func leadTimeHistogram(view RecordView, maxBins int) []Group {
	var values []float64
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < view.Len(); i++ {
		v := view.Measure(i, schema.ColLeadTimeDays)
		if math.IsNaN(v) {
			continue
		}
		values = append(values, v)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if len(values) == 0 {
		return nil
	}

	lo = math.Floor(lo)
	width := math.Max(1, math.Ceil((math.Floor(hi)-lo+1)/float64(maxBins)))
	bins := int(math.Floor((hi-lo)/width)) + 1

	groups := make([]Group, bins)
	for b := range groups {
		start := lo + float64(b)*width
		label := fmt.Sprintf("%s-%s", FormatValue(start), FormatValue(start+width))
		groups[b] = Group{Key: label, Label: label}
	}
	for _, v := range values {
		b := int(math.Floor((v - lo) / width))
		if b >= bins {
			b = bins - 1
		}
		groups[b].Count++
		groups[b].Value++
	}
	return groups
}

// ============================================================================
// SERIES BUILDERS
// ============================================================================

func buildSingleSeries(groups []Group, seriesName string) []ChartSeries {
	if seriesName == "" {
		seriesName = "Value"
	}

	points := make([]ChartPoint, 0, len(groups))
	for _, g := range groups {
		points = append(points, ChartPoint{
			Label: g.Label,
			Value: RoundTo2(g.Value),
		})
	}

	return []ChartSeries{{
		Name: seriesName,
		Data: points,
	}}
}

func assignColors(count int) []string {
	colors := make([]string, count)
	for i := 0; i < count; i++ {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}
