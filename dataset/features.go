package dataset

import (
	"math"
	"time"

	"github.com/spektr-org/shipinsight/schema"
)

// riskDelayDays is how late a delivered shipment must be to count as risky.
const riskDelayDays = 7

// deriveFeatures fills every derived column the input did not supply.
// Supplied values are never overwritten. today is a UTC calendar day.
func deriveFeatures(s *Shipment, supplied map[string]bool, today time.Time) {
	if !supplied[schema.ColPOValue] {
		s.POValue = s.Quantity * s.UnitPrice
	}
	if !supplied[schema.ColTotalLandedCost] {
		s.TotalLandedCost = s.POValue + s.FreightCost + s.DutyCost
	}
	if !supplied[schema.ColLeadTimeDays] {
		s.LeadTimeDays = daysBetween(s.PODate, s.ActualShipDate)
	}
	if !supplied[schema.ColTransitTimeDays] {
		s.TransitTimeDays = daysBetween(s.ActualShipDate, s.ActualETA)
	}
	if !supplied[schema.ColDelayDays] {
		s.DelayDays = daysBetween(s.PlannedETA, s.ActualETA)
	}
	if !supplied[schema.ColOnTime] {
		s.OnTime = boolFlag(onTime(s))
	}
	if !supplied[schema.ColRiskFlag] {
		s.RiskFlag = boolFlag(atRisk(s, today))
	}
}

// daysBetween returns whole days from a to b, NaN when either is null.
func daysBetween(a, b time.Time) float64 {
	if a.IsZero() || b.IsZero() {
		return math.NaN()
	}
	return math.Floor(b.Sub(a).Hours() / 24)
}

func onTime(s *Shipment) bool {
	if s.Status != schema.StatusDelivered || s.ActualETA.IsZero() || s.PlannedETA.IsZero() {
		return false
	}
	return !s.ActualETA.After(s.PlannedETA)
}

// atRisk: overdue while still moving, or delivered more than a week late.
func atRisk(s *Shipment, today time.Time) bool {
	switch s.Status {
	case schema.StatusInTransit, schema.StatusDelayed:
		return !s.PlannedETA.IsZero() && s.PlannedETA.Before(today)
	case schema.StatusDelivered:
		return !math.IsNaN(s.DelayDays) && s.DelayDays > riskDelayDays
	}
	return false
}

func boolFlag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
