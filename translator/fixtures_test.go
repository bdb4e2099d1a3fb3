package translator

import (
	"time"

	"github.com/spektr-org/shipinsight/engine"
	"github.com/spektr-org/shipinsight/engine/enginetest"
	"github.com/spektr-org/shipinsight/schema"
)

var testToday = time.Date(2026, 10, 16, 14, 0, 0, 0, time.UTC)

func testClock() time.Time { return testToday }

func record(supplier, lane, mode, status, poDate string, cost float64) enginetest.Record {
	origin, dest := lane[:2], lane[len(lane)-2:]
	return enginetest.Record{
		Dimensions: map[string]string{
			"supplier":            supplier,
			"lane":                lane,
			"mode":                mode,
			"status":              status,
			"origin_country":      origin,
			"destination_country": dest,
			"po_date":             poDate,
		},
		Measures: map[string]float64{schema.ColTotalLandedCost: cost},
	}
}

func testView() engine.RecordView {
	return enginetest.NewSliceView([]enginetest.Record{
		record("Acme Components", "CN->US", "Air", "Delayed", "2026-10-01", 1200),
		record("Hanoi Textiles", "VN->US", "Ocean", "Delivered", "2026-09-20", 800),
		record("Shenzhen Electronics Co.", "CN->US", "Ocean", "In-Transit", "2026-08-15", 4000),
		record("Bharat Steel Works", "IN->DE", "Road", "Cancelled", "2026-10-10", 300),
		record("Acme Components", "CN->US", "Air", "Delivered", "2026-10-12", 900),
	})
}

func testSchema() schema.Config {
	return schema.Discover(schema.Shipments(), testView())
}
