package insight

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/spektr-org/shipinsight/dataset"
	"github.com/spektr-org/shipinsight/engine"
	"github.com/spektr-org/shipinsight/translator"
)

var testNow = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

const shipmentsCSV = `po_number,supplier,origin_country,destination_country,lane,mode,incoterm,status,quantity,unit_price,freight_cost,duty_cost,shipment_id,po_date,planned_ship_date,actual_ship_date,planned_eta,actual_eta
P1,Acme Components,CN,US,CN->US,Air,FOB,Delayed,10,100,50,10,S1,2026-10-01,2026-10-03,2026-10-04,2026-10-08,
P2,Acme Components,CN,US,CN->US,Ocean,FOB,Delivered,20,100,200,20,S2,2026-09-01,2026-09-05,2026-09-06,2026-10-01,2026-09-30
P3,Hanoi Textiles,VN,US,VN->US,Air,CIF,Delayed,5,100,30,0,S3,2026-10-05,2026-10-07,2026-10-08,2026-10-12,
P4,Hanoi Textiles,VN,US,VN->US,Ocean,CIF,Delivered,50,100,300,50,S4,2026-08-01,2026-08-05,2026-08-07,2026-09-05,2026-09-15
P5,Bharat Steel Works,IN,DE,IN->DE,Road,DDP,Delivered,30,100,100,0,S5,2026-07-20,2026-07-25,2026-07-26,2026-08-20,2026-08-20
P6,Shenzhen Electronics Co.,CN,US,CN->US,Air,FOB,Delayed,8,100,40,0,S6,2026-10-10,2026-10-11,2026-10-12,2026-10-20,
P7,Nippon Optics,JP,US,JP->US,Air,FOB,Delivered,40,100,100,0,S7,2026-09-25,2026-09-27,2026-09-28,2026-10-02,2026-10-01
P8,Rhine Precision GmbH,DE,US,DE->US,Ocean,EXW,In-Transit,10,100,100,0,S8,2025-06-01,2025-06-05,2025-06-06,2025-07-10,
P9,Monterrey Plastics,MX,US,MX->US,Road,DAP,Cancelled,10,10,0,0,S9,2026-10-12,,,,
`

func newTestService(t *testing.T, opts ...Option) (*Service, *dataset.Dataset) {
	t.Helper()
	ds, err := dataset.Load(strings.NewReader(shipmentsCSV), dataset.WithNow(testNow))
	require.NoError(t, err)

	// No backend configured: every question is planned by the rule tables.
	remote := translator.NewRemote(nil, translator.WithRemoteClock(clock))
	opts = append([]Option{WithClock(clock)}, opts...)
	return New(ds.View(), ds.Schema(), remote, opts...), ds
}

func column(view engine.RecordView, key string) []string {
	out := make([]string, view.Len())
	for i := range out {
		out[i] = view.Dimension(i, key)
	}
	return out
}

func TestAsk_EmptyQuestionReturnsBase(t *testing.T) {
	svc, ds := newTestService(t)
	base := DefaultBaseFilter(ds.View())

	ans, err := svc.Ask(context.Background(), Request{Question: "   ", Base: base})

	require.NoError(t, err)
	assert.Nil(t, ans.Plan)
	assert.Empty(t, ans.Stages)
	assert.Contains(t, ans.Trace, "no question")
	assert.Equal(t, 8, ans.Rows, "base view minus the old order")
	assert.Equal(t, column(base.Apply(ds.View()), "shipment_id"), column(ans.View(), "shipment_id"))
}

func TestAsk_TopSuppliersBySpend(t *testing.T) {
	svc, ds := newTestService(t)

	ans, err := svc.Ask(context.Background(), Request{
		Question: "top 5 suppliers by spend last quarter",
		Base:     DefaultBaseFilter(ds.View()),
	})
	require.NoError(t, err)

	assert.Equal(t, translator.SourceHeuristic, ans.Source)
	assert.NotEmpty(t, ans.Note)
	require.NotNil(t, ans.Plan)
	assert.Equal(t, engine.LastNDays(90), ans.Plan.TimeRange)
	assert.Equal(t, engine.Ptr("supplier"), ans.Plan.GroupBy)
	assert.Equal(t, &engine.Limit{Dimension: "supplier", N: 5, Metric: engine.Ptr("total_landed_cost")}, ans.Plan.Limit)

	suppliers := map[string]bool{}
	for _, s := range column(ans.View(), "supplier") {
		suppliers[s] = true
	}
	assert.Len(t, suppliers, 5)
	assert.NotContains(t, suppliers, "Monterrey Plastics")

	require.NotNil(t, ans.Summary)
	var order []string
	for _, row := range ans.Summary.Rows {
		order = append(order, row[0])
	}
	assert.Equal(t, []string{"Hanoi Textiles", "Nippon Optics", "Acme Components", "Bharat Steel Works", "Shenzhen Electronics Co."}, order)
	assert.Equal(t, "5880", ans.Summary.Rows[0][1])

	require.NotEmpty(t, ans.Charts)
	assert.Equal(t, "plan", ans.Charts[0].ID)
}

func TestAsk_DelayedAirFromCN(t *testing.T) {
	svc, ds := newTestService(t)

	ans, err := svc.Ask(context.Background(), Request{
		Question: "show delayed air shipments from CN last 30 days",
		Base:     DefaultBaseFilter(ds.View()),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"S1", "S6"}, column(ans.View(), "shipment_id"))
	for i := 0; i < ans.View().Len(); i++ {
		assert.Equal(t, "Delayed", ans.View().Dimension(i, "status"))
		assert.Equal(t, "Air", ans.View().Dimension(i, "mode"))
		assert.Equal(t, "CN", ans.View().Dimension(i, "origin_country"))
	}
	assert.Equal(t, 1, ans.KPIs.RiskyShipments, "only S1 is past its planned ETA")
}

func TestAsk_AllDataIgnoresBase(t *testing.T) {
	svc, ds := newTestService(t)
	base := BaseFilter{Supplier: "Acme Components"}

	scoped, err := svc.Ask(context.Background(), Request{Question: "ocean shipments", Base: base})
	require.NoError(t, err)
	assert.Equal(t, []string{"S2"}, column(scoped.View(), "shipment_id"))

	all, err := svc.Ask(context.Background(), Request{Question: "ocean shipments in all data", Base: base})
	require.NoError(t, err)
	assert.Equal(t, []string{"S2", "S4", "S8"}, column(all.View(), "shipment_id"))

	assert.Len(t, ds.Rows, 9)
}

func TestAsk_TraceAndCSV(t *testing.T) {
	svc, _ := newTestService(t)

	ans, err := svc.Ask(context.Background(), Request{Question: "delivered shipments by supplier"})
	require.NoError(t, err)

	assert.Contains(t, ans.Trace, "planner: heuristic")
	assert.Contains(t, ans.Trace, "plan: status = Delivered; by supplier")
	assert.Contains(t, ans.Trace, "stages: time_range skipped, filters 9→4, limit skipped")
	assert.Contains(t, ans.Trace, `json: {"time_range":null`)
	assert.Equal(t, "Results", ans.Table.Title)

	var buf bytes.Buffer
	require.NoError(t, ans.WriteCSV(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1+4)
	assert.True(t, strings.HasPrefix(lines[0], "supplier,lane,mode,status,"))
}

func TestAsk_UniqueIDs(t *testing.T) {
	svc, _ := newTestService(t)

	a, err := svc.Ask(context.Background(), Request{Question: "air"})
	require.NoError(t, err)
	b, err := svc.Ask(context.Background(), Request{Question: "air"})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, column(a.View(), "shipment_id"), column(b.View(), "shipment_id"))
}

func TestAsk_CancelledContext(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Ask(ctx, Request{Question: "air"})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestAskAll(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc, _ := newTestService(t, WithParallelism(2))
	reqs := []Request{
		{Question: "air shipments"},
		{Question: "ocean shipments"},
		{Question: "road shipments"},
		{Question: ""},
	}

	answers, err := svc.AskAll(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, answers, len(reqs))

	assert.Equal(t, []string{"S1", "S3", "S6", "S7"}, column(answers[0].View(), "shipment_id"))
	assert.Equal(t, []string{"S2", "S4", "S8"}, column(answers[1].View(), "shipment_id"))
	assert.Equal(t, []string{"S5", "S9"}, column(answers[2].View(), "shipment_id"))
	assert.Nil(t, answers[3].Plan)
	assert.Equal(t, 9, answers[3].Rows)
	for i, a := range answers {
		assert.Equal(t, reqs[i].Question, a.Question)
	}
}

func TestAskAll_Cancelled(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.AskAll(ctx, []Request{{Question: "air"}})

	assert.ErrorIs(t, err, context.Canceled)
}
