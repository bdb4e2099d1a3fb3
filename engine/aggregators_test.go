package engine

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupAndAggregate(t *testing.T) {
	view := fixtureView()

	groups := GroupAndAggregate(view, "lane", "delay_days_vs_planned_eta", "avg", "desc", 0)
	require.Len(t, groups, 3)
	// CN->US averages 10 and 0 (S7 is null): 5.
	assert.Equal(t, "CN->US", groups[0].Label)
	assert.InDelta(t, 5.0, groups[0].Value, 1e-9)
	assert.Equal(t, 3, groups[0].Count)

	groups = GroupAndAggregate(view, "supplier", "total_landed_cost", "sum", "asc", 2)
	require.Len(t, groups, 2)
	assert.Equal(t, "Delta Co", groups[0].Label)
	assert.Equal(t, "Gamma Inc", groups[1].Label)

	assert.Nil(t, GroupAndAggregate(view, "incoterm", "total_landed_cost", "sum", "desc", 0))
	assert.Nil(t, GroupAndAggregate(Subset(view, nil), "supplier", "", "count", "desc", 0))
}

func TestAggregates_SkipNulls(t *testing.T) {
	view := fixtureView()

	assert.InDelta(t, 38.0/6.0, AvgMeasure(view, "lead_time_days"), 1e-9)
	assert.Equal(t, 9500.0, SumMeasure(view, "total_landed_cost"))
	assert.Equal(t, 3, CountWhere(view, "delay_days_vs_planned_eta", func(v float64) bool { return v > 0 }))

	empty := Subset(view, nil)
	assert.Equal(t, 0.0, AvgMeasure(empty, "lead_time_days"))
	assert.Equal(t, 0.0, SumMeasure(empty, "lead_time_days"))
}

func TestComputeKPIs(t *testing.T) {
	k := ComputeKPIs(fixtureView())

	assert.Equal(t, 7, k.TotalShipments)
	assert.InDelta(t, 2.0/7.0*100, k.OnTimeRate, 1e-9)
	assert.InDelta(t, 38.0/6.0, k.AvgLeadTime, 1e-9)
	assert.InDelta(t, 3.0/7.0*100, k.LateRate, 1e-9)
	assert.Equal(t, 9500.0, k.TotalSpend)
	assert.Equal(t, 2, k.RiskyShipments)
	assert.Contains(t, k.Lines(), "Total Spend: 9,500")

	assert.Equal(t, KPIs{}, ComputeKPIs(Subset(fixtureView(), nil)))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1,234,567.89", FormatAmount(1234567.891, 2))
	assert.Equal(t, "-1,000", FormatAmount(-1000, 0))
	assert.Equal(t, "", FormatAmount(math.NaN(), 2))
	assert.Equal(t, "12,345", FormatInt(12345))
	assert.Equal(t, "999", FormatInt(999))
	assert.Equal(t, "42", FormatValue(42))
	assert.Equal(t, "0.50", FormatValue(0.5))
	assert.Equal(t, "", FormatValue(math.NaN()))
}

func TestBuildTable(t *testing.T) {
	sch := fixtureSchema()

	table := BuildTable(fixtureView(), sch, []string{"shipment_id", "mode", "total_landed_cost", "incoterm"})

	require.Len(t, table.Columns, 3, "columns the view lacks are dropped")
	assert.Equal(t, "number", table.Columns[2].Type)
	assert.Equal(t, []string{"S1", "Air", "1000"}, table.Rows[0])
	assert.Equal(t, "9,500.00", table.Summary.Values["total_landed_cost"])
}

func TestBuildRiskyTable(t *testing.T) {
	table := BuildRiskyTable(fixtureView(), fixtureSchema())

	require.Len(t, table.Rows, 2)
	assert.Equal(t, "S2", table.Rows[0][0], "most delayed first")
	assert.Equal(t, "S5", table.Rows[1][0])
	assert.Equal(t, "po_date", table.Columns[5].Key)
	assert.Equal(t, "date", table.Columns[5].Type)
}

func TestBuildSummary(t *testing.T) {
	sch := fixtureSchema()
	plan := Plan{
		GroupBy: Ptr("supplier"),
		OrderBy: &OrderBy{Metric: "total_landed_cost", Direction: "desc"},
		Limit:   &Limit{Dimension: "supplier", N: 2, Metric: Ptr("total_landed_cost")},
	}

	table := BuildSummary(plan, fixtureView(), sch)

	require.NotNil(t, table)
	assert.Equal(t, "Total Landed Cost by Supplier", table.Title)
	assert.Equal(t, [][]string{{"Beta Ltd", "4500", "2"}, {"Acme Corp", "3000", "2"}}, table.Rows)

	rate := BuildSummary(Plan{GroupBy: Ptr("mode"), OrderBy: &OrderBy{Metric: "on_time", Direction: "desc"}}, fixtureView(), sch)
	require.NotNil(t, rate)
	assert.Equal(t, "Rate % On Time", rate.Columns[1].Label)
	assert.Equal(t, "Air", rate.Rows[0][0])
	assert.Equal(t, "66.67", rate.Rows[0][1])

	counts := BuildSummary(Plan{Limit: &Limit{Dimension: "lane", N: 1}}, fixtureView(), sch)
	require.NotNil(t, counts)
	assert.Equal(t, [][]string{{"CN->US", "3", "3"}}, counts.Rows)

	assert.Nil(t, BuildSummary(Plan{}, fixtureView(), sch))
}

func TestWriteCSV(t *testing.T) {
	table := BuildTable(fixtureView(), fixtureSchema(), []string{"shipment_id", "supplier", "total_landed_cost"})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "shipment_id,supplier,total_landed_cost", lines[0])
	assert.Equal(t, "S2,Beta Ltd,3000", lines[2])

	buf.Reset()
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Empty(t, buf.String())
}

func TestBuildDashboardCharts(t *testing.T) {
	charts := BuildDashboardCharts(fixtureView())

	require.Len(t, charts, 4)
	assert.Equal(t, "spend_by_supplier", charts[0].ID)
	assert.Equal(t, ChartPoint{Label: "Beta Ltd", Value: 4500}, charts[0].Series[0].Data[0])
	assert.Equal(t, "on_time_by_supplier", charts[1].ID)
	assert.Equal(t, "lead_time_distribution", charts[2].ID)
	assert.Equal(t, "delay_by_lane", charts[3].ID)

	var total float64
	for _, p := range charts[2].Series[0].Data {
		total += p.Value
	}
	assert.Equal(t, 6.0, total, "null lead times are not binned")

	assert.Empty(t, BuildDashboardCharts(Subset(fixtureView(), nil)))
}
