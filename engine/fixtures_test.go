package engine

import (
	"math"
	"time"

	"github.com/spektr-org/shipinsight/engine/enginetest"
	"github.com/spektr-org/shipinsight/schema"
)

// testNow sits mid-day so relative ranges exercise day truncation.
var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func shipment(id, supplier, lane, mode, status, poDate string, cost, delay, onTime, risk, lead float64) enginetest.Record {
	return enginetest.Record{
		Dimensions: map[string]string{
			"shipment_id": id,
			"supplier":    supplier,
			"lane":        lane,
			"mode":        mode,
			"status":      status,
			"po_date":     poDate,
		},
		Measures: map[string]float64{
			schema.ColTotalLandedCost: cost,
			schema.ColDelayDays:       delay,
			schema.ColOnTime:          onTime,
			schema.ColRiskFlag:        risk,
			schema.ColLeadTimeDays:    lead,
		},
	}
}

func fixtureRecords() []enginetest.Record {
	nan := math.NaN()
	return []enginetest.Record{
		shipment("S1", "Acme Corp", "CN->US", "Air", "Delivered", "2026-09-01", 1000, 0, 1, 0, 5),
		shipment("S2", "Beta Ltd", "CN->US", "Ocean", "Delayed", "2026-09-20", 3000, 10, 0, 1, 12),
		shipment("S3", "Gamma Inc", "VN->DE", "Road", "In-Transit", "2026-10-10", 500, 0, 0, 0, 3),
		shipment("S4", "Acme Corp", "VN->DE", "Ocean", "Delivered", "2026-10-12", 2000, 2, 0, 0, 8),
		shipment("S5", "Beta Ltd", "IN->GB", "Air", "Delayed", "2026-06-01", 1500, 9, 0, 1, 6),
		shipment("S6", "Delta Co", "IN->GB", "Air", "Delivered", "2025-12-01", 800, -1, 1, 0, 4),
		shipment("S7", "Gamma Inc", "CN->US", "Ocean", "Cancelled", "", 700, nan, 0, 0, nan),
	}
}

func fixtureView() RecordView {
	return enginetest.NewSliceView(fixtureRecords())
}

func fixtureSchema() schema.Config {
	return schema.Discover(schema.Shipments(), fixtureView())
}

// ids lists the shipment_id of every row in a view.
func ids(v RecordView) []string {
	out := make([]string, v.Len())
	for i := range out {
		out[i] = v.Dimension(i, "shipment_id")
	}
	return out
}
