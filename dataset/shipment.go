// Package dataset loads shipment data, derives the per-row features the
// planners and executor rely on and exposes the rows as an engine view.
package dataset

import (
	"time"

	"github.com/spektr-org/shipinsight/engine"
	"github.com/spektr-org/shipinsight/schema"
)

// Shipment is one purchase order line and its shipment milestones.
// Null numbers are NaN and null dates are the zero time.
type Shipment struct {
	PONumber           string
	Supplier           string
	OriginCountry      string
	DestinationCountry string
	Lane               string
	Mode               string
	Incoterm           string
	Status             string
	ShipmentID         string

	Quantity    float64
	UnitPrice   float64
	FreightCost float64
	DutyCost    float64

	PODate          time.Time
	PlannedShipDate time.Time
	ActualShipDate  time.Time
	PlannedETA      time.Time
	ActualETA       time.Time

	// Derived features
	POValue         float64
	TotalLandedCost float64
	LeadTimeDays    float64
	TransitTimeDays float64
	DelayDays       float64
	OnTime          float64
	RiskFlag        float64
}

// adapter exposes Shipment fields under their catalog keys.
var adapter = engine.NewDomainAdapter[Shipment]().
	Dimension("po_number", func(s Shipment) string { return s.PONumber }).
	Dimension("supplier", func(s Shipment) string { return s.Supplier }).
	Dimension("origin_country", func(s Shipment) string { return s.OriginCountry }).
	Dimension("destination_country", func(s Shipment) string { return s.DestinationCountry }).
	Dimension("lane", func(s Shipment) string { return s.Lane }).
	Dimension("mode", func(s Shipment) string { return s.Mode }).
	Dimension("incoterm", func(s Shipment) string { return s.Incoterm }).
	Dimension("status", func(s Shipment) string { return s.Status }).
	Dimension("shipment_id", func(s Shipment) string { return s.ShipmentID }).
	Time("po_date", func(s Shipment) time.Time { return s.PODate }).
	Time("planned_ship_date", func(s Shipment) time.Time { return s.PlannedShipDate }).
	Time("actual_ship_date", func(s Shipment) time.Time { return s.ActualShipDate }).
	Time("planned_eta", func(s Shipment) time.Time { return s.PlannedETA }).
	Time("actual_eta", func(s Shipment) time.Time { return s.ActualETA }).
	Measure("quantity", func(s Shipment) float64 { return s.Quantity }).
	Measure("unit_price", func(s Shipment) float64 { return s.UnitPrice }).
	Measure("freight_cost", func(s Shipment) float64 { return s.FreightCost }).
	Measure("duty_cost", func(s Shipment) float64 { return s.DutyCost }).
	Measure(schema.ColPOValue, func(s Shipment) float64 { return s.POValue }).
	Measure(schema.ColTotalLandedCost, func(s Shipment) float64 { return s.TotalLandedCost }).
	Measure(schema.ColLeadTimeDays, func(s Shipment) float64 { return s.LeadTimeDays }).
	Measure(schema.ColTransitTimeDays, func(s Shipment) float64 { return s.TransitTimeDays }).
	Measure(schema.ColDelayDays, func(s Shipment) float64 { return s.DelayDays }).
	Measure(schema.ColOnTime, func(s Shipment) float64 { return s.OnTime }).
	Measure(schema.ColRiskFlag, func(s Shipment) float64 { return s.RiskFlag })

// column setters, keyed by normalized header name.
var setters = map[string]func(*Shipment, string){
	"po_number":           func(s *Shipment, v string) { s.PONumber = v },
	"supplier":            func(s *Shipment, v string) { s.Supplier = v },
	"origin_country":      func(s *Shipment, v string) { s.OriginCountry = v },
	"destination_country": func(s *Shipment, v string) { s.DestinationCountry = v },
	"lane":                func(s *Shipment, v string) { s.Lane = v },
	"mode":                func(s *Shipment, v string) { s.Mode = v },
	"incoterm":            func(s *Shipment, v string) { s.Incoterm = v },
	"status":              func(s *Shipment, v string) { s.Status = v },
	"shipment_id":         func(s *Shipment, v string) { s.ShipmentID = v },

	"quantity":     func(s *Shipment, v string) { s.Quantity = schema.ParseNumber(v) },
	"unit_price":   func(s *Shipment, v string) { s.UnitPrice = schema.ParseNumber(v) },
	"freight_cost": func(s *Shipment, v string) { s.FreightCost = schema.ParseNumber(v) },
	"duty_cost":    func(s *Shipment, v string) { s.DutyCost = schema.ParseNumber(v) },

	"po_date":           func(s *Shipment, v string) { s.PODate = schema.ParseDate(v) },
	"planned_ship_date": func(s *Shipment, v string) { s.PlannedShipDate = schema.ParseDate(v) },
	"actual_ship_date":  func(s *Shipment, v string) { s.ActualShipDate = schema.ParseDate(v) },
	"planned_eta":       func(s *Shipment, v string) { s.PlannedETA = schema.ParseDate(v) },
	"actual_eta":        func(s *Shipment, v string) { s.ActualETA = schema.ParseDate(v) },

	schema.ColPOValue:         func(s *Shipment, v string) { s.POValue = schema.ParseNumber(v) },
	schema.ColTotalLandedCost: func(s *Shipment, v string) { s.TotalLandedCost = schema.ParseNumber(v) },
	schema.ColLeadTimeDays:    func(s *Shipment, v string) { s.LeadTimeDays = schema.ParseNumber(v) },
	schema.ColTransitTimeDays: func(s *Shipment, v string) { s.TransitTimeDays = schema.ParseNumber(v) },
	schema.ColDelayDays:       func(s *Shipment, v string) { s.DelayDays = schema.ParseNumber(v) },
	schema.ColOnTime:          func(s *Shipment, v string) { s.OnTime = parseFlag(v) },
	schema.ColRiskFlag:        func(s *Shipment, v string) { s.RiskFlag = parseFlag(v) },
}

// parseFlag reads 0/1 columns, also accepting true/false.
func parseFlag(v string) float64 {
	switch v {
	case "true", "True", "TRUE":
		return 1
	case "false", "False", "FALSE":
		return 0
	}
	return schema.ParseNumber(v)
}
