package schema

// ============================================================================
// SHIPMENT CATALOG — Fixed columns of the procurement/shipment dataset
// ============================================================================

// Status values the dataset uses.
const (
	StatusDelivered = "Delivered"
	StatusInTransit = "In-Transit"
	StatusDelayed   = "Delayed"
	StatusCancelled = "Cancelled"
)

// Derived feature columns.
const (
	ColPOValue         = "po_value"
	ColTotalLandedCost = "total_landed_cost"
	ColLeadTimeDays    = "lead_time_days"
	ColTransitTimeDays = "transit_time_days"
	ColDelayDays       = "delay_days_vs_planned_eta"
	ColOnTime          = "on_time"
	ColRiskFlag        = "risk_flag"
)

// BaseColumns must be present in every input file.
var BaseColumns = []string{
	"po_number", "supplier", "origin_country", "destination_country", "lane", "mode",
	"incoterm", "status", "quantity", "unit_price", "freight_cost", "duty_cost", "shipment_id",
}

// DateColumns must be present in every input file and parse as dates.
var DateColumns = []string{
	"po_date", "planned_ship_date", "actual_ship_date", "planned_eta", "actual_eta",
}

// DerivedColumns are computed at load time unless the input supplies them.
var DerivedColumns = []string{
	ColPOValue, ColTotalLandedCost, ColLeadTimeDays, ColTransitTimeDays,
	ColDelayDays, ColOnTime, ColRiskFlag,
}

// RequiredColumns returns base and date columns in input order.
func RequiredColumns() []string {
	out := make([]string, 0, len(BaseColumns)+len(DateColumns))
	out = append(out, BaseColumns...)
	return append(out, DateColumns...)
}

// Shipments returns the catalog for the shipment dataset.
// Known values are empty until Discover runs against loaded data.
func Shipments() Config {
	derived := func(m MeasureMeta, desc, agg string) MeasureMeta {
		m.Description = desc
		m.Derived = true
		m.DefaultAggregation = agg
		return m
	}

	return Config{
		Name:        "Procurement & Shipment Insights",
		Version:     "1.0",
		Description: "Purchase orders and their shipments: suppliers, lanes, modes, costs and milestone dates.",
		DateColumn:  "po_date",
		Dimensions: []DimensionMeta{
			DefaultDimension("supplier", "Supplier", "suppliers", "vendor", "vendors"),
			DefaultDimension("lane", "Lane", "lanes", "route", "routes"),
			DefaultDimension("mode", "Mode", "modes", "transport mode"),
			DefaultDimension("status", "Status", "statuses", "shipment status"),
			DefaultDimension("origin_country", "Origin Country", "origin", "origins", "origin countries"),
			DefaultDimension("destination_country", "Destination Country", "destination", "destinations", "destination countries"),
			DefaultDimension("incoterm", "Incoterm", "incoterms"),
			DefaultDimension("po_number", "PO Number", "po", "purchase order"),
			DefaultDimension("shipment_id", "Shipment ID", "shipment"),
			DateDimension("po_date", "PO Date", "order date", "date"),
			DateDimension("planned_ship_date", "Planned Ship Date"),
			DateDimension("actual_ship_date", "Actual Ship Date", "ship date"),
			DateDimension("planned_eta", "Planned ETA", "eta"),
			DateDimension("actual_eta", "Actual ETA", "arrival date"),
		},
		Measures: []MeasureMeta{
			DefaultMeasure("quantity", "Quantity", "units", "qty", "units", "volume"),
			DefaultMeasure("unit_price", "Unit Price", "currency", "price"),
			DefaultMeasure("freight_cost", "Freight Cost", "currency", "freight"),
			DefaultMeasure("duty_cost", "Duty Cost", "currency", "duty", "duties"),
			derived(DefaultMeasure(ColPOValue, "PO Value", "currency", "value", "po value", "order value"),
				"quantity × unit_price", "sum"),
			derived(DefaultMeasure(ColTotalLandedCost, "Total Landed Cost", "currency",
				"spend", "total spend", "total_spend", "landed cost", "landed_cost", "cost"),
				"po_value + freight_cost + duty_cost", "sum"),
			derived(DefaultMeasure(ColLeadTimeDays, "Lead Time (days)", "days", "lead time", "lead_time"),
				"actual_ship_date − po_date", "avg"),
			derived(DefaultMeasure(ColTransitTimeDays, "Transit Time (days)", "days", "transit time", "transit"),
				"actual_eta − actual_ship_date", "avg"),
			derived(DefaultMeasure(ColDelayDays, "Delay vs Planned ETA (days)", "days",
				"delay", "delays", "delay days", "delay_days", "avg_delay", "lateness", "late"),
				"actual_eta − planned_eta", "avg"),
			derived(DefaultMeasure(ColOnTime, "On Time", "flag",
				"on-time", "on time", "on_time_percent", "on_time_%", "on-time %", "otp", "punctuality"),
				"1 when delivered no later than planned ETA", "avg"),
			derived(DefaultMeasure(ColRiskFlag, "Risk Flag", "flag", "risk flag", "risk score", "risk"),
				"1 when overdue in transit or delivered more than 7 days late", "sum"),
		},
	}
}
