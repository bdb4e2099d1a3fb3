package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spektr-org/shipinsight/schema"
)

// ============================================================================
// TEXT BUILDER — Plan descriptions and headline KPIs
// ============================================================================

// DescribePlan renders a one-line human description of a plan, e.g.
// "last 30 days; mode = Air, status = Delayed; top 5 supplier by total_landed_cost".
func DescribePlan(p Plan) string {
	var parts []string
	if p.TimeRange != nil {
		parts = append(parts, DescribeRange(p.TimeRange))
	}
	if len(p.Filters) > 0 {
		parts = append(parts, describeFilters(p.Filters))
	}
	if p.Limit != nil {
		parts = append(parts, describeLimit(p.Limit))
	} else if p.GroupBy != nil {
		parts = append(parts, "by "+*p.GroupBy)
	}
	if p.OrderBy != nil {
		parts = append(parts, fmt.Sprintf("ordered by %s %s", p.OrderBy.Metric, p.OrderBy.Direction))
	}
	if len(parts) == 0 {
		return "all shipments"
	}
	return strings.Join(parts, "; ")
}

// describeFilters lists constraints sorted by column.
func describeFilters(f Filters) string {
	cols := make([]string, 0, len(f))
	for c := range f {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		op := "="
		if f[c].Set {
			op = "in"
		}
		parts = append(parts, fmt.Sprintf("%s %s %s", c, op, f[c].String()))
	}
	return strings.Join(parts, ", ")
}

func describeLimit(l *Limit) string {
	by := "row count"
	if l.Metric != nil {
		by = *l.Metric
	}
	return fmt.Sprintf("top %d %s by %s", l.N, l.Dimension, by)
}

// ============================================================================
// KPIs
// ============================================================================

// KPIs are the headline figures of a view.
type KPIs struct {
	TotalShipments int     `json:"totalShipments"`
	OnTimeRate     float64 `json:"onTimeRate"`      // percent of shipments on time
	AvgLeadTime    float64 `json:"avgLeadTimeDays"` // mean over known lead times
	LateRate       float64 `json:"lateRate"`        // percent of shipments with delay > 0
	TotalSpend     float64 `json:"totalSpend"`
	RiskyShipments int     `json:"riskyShipments"`
}

// ComputeKPIs summarizes a view. An empty view yields zeros.
func ComputeKPIs(view RecordView) KPIs {
	n := view.Len()
	k := KPIs{
		TotalShipments: n,
		TotalSpend:     SumMeasure(view, schema.ColTotalLandedCost),
		RiskyShipments: CountWhere(view, schema.ColRiskFlag, func(v float64) bool { return v == 1 }),
	}
	if n == 0 {
		return k
	}
	k.OnTimeRate = SumMeasure(view, schema.ColOnTime) / float64(n) * 100
	k.AvgLeadTime = AvgMeasure(view, schema.ColLeadTimeDays)
	late := CountWhere(view, schema.ColDelayDays, func(v float64) bool { return v > 0 })
	k.LateRate = float64(late) / float64(n) * 100
	return k
}

// Lines renders the KPIs as labelled lines for text output.
func (k KPIs) Lines() []string {
	return []string{
		"Total Shipments: " + FormatInt(k.TotalShipments),
		fmt.Sprintf("On-time Delivery: %.1f%%", k.OnTimeRate),
		fmt.Sprintf("Avg Lead Time (days): %.1f", k.AvgLeadTime),
		fmt.Sprintf("Late Shipment Rate: %.1f%%", k.LateRate),
		"Total Spend: " + FormatAmount(k.TotalSpend, 0),
		"Risky Shipments: " + FormatInt(k.RiskyShipments),
	}
}
