package translator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spektr-org/shipinsight/engine"
	"github.com/spektr-org/shipinsight/schema"
)

type fakeCompleter struct {
	reply string
	err   error
	block bool
	calls atomic.Int32
	seen  []Message
}

func (f *fakeCompleter) Model() string { return "fake-model" }

func (f *fakeCompleter) Complete(ctx context.Context, messages []Message) (string, error) {
	f.calls.Add(1)
	f.seen = messages
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

func newTestRemote(backend Completer, opts ...RemoteOption) *Remote {
	opts = append([]RemoteOption{WithRemoteClock(testClock)}, opts...)
	return NewRemote(backend, opts...)
}

func TestRemote_Success(t *testing.T) {
	fake := &fakeCompleter{reply: "```json\n{\"filters\": {\"mode\": \"air\"}, \"time_range\": null}\n```"}
	r := newTestRemote(fake)

	res := r.Translate(context.Background(), "delayed shipments last 30 days", testSchema())

	assert.Equal(t, SourceRemote, res.Source)
	assert.Equal(t, "fake-model", res.Model)
	assert.Empty(t, res.Note)
	want := engine.Plan{
		TimeRange: engine.LastNDays(30),
		Filters: engine.Filters{
			"mode":   engine.Scalar("Air"),
			"status": engine.Scalar(schema.StatusDelayed),
		},
	}
	assert.Empty(t, cmp.Diff(want, res.Plan))

	require.NotEmpty(t, fake.seen)
	assert.Equal(t, RoleSystem, fake.seen[0].Role)
	assert.Contains(t, fake.seen[0].Content, "Today is 2026-10-16.")
}

func TestRemote_RemoteKeysWin(t *testing.T) {
	fake := &fakeCompleter{reply: `{"time_range": {"type": "last_n_days", "n": 7}, "filters": {"status": "In-Transit"}}`}
	r := newTestRemote(fake)

	res := r.Translate(context.Background(), "risky shipments last 30 days", testSchema())

	assert.Equal(t, SourceRemote, res.Source)
	assert.Equal(t, engine.LastNDays(7), res.Plan.TimeRange)
	assert.Equal(t, engine.Scalar(schema.StatusInTransit), res.Plan.Filters["status"])
}

func TestRemote_RepairsPlan(t *testing.T) {
	fake := &fakeCompleter{reply: `{"filters": {"warehouse": "W1", "Supplier": "acme components"}, "limit": {"dimension": "supplier", "n": -3}, "order_by": {"metric": "spend", "direction": "sideways"}}`}
	r := newTestRemote(fake)

	res := r.Translate(context.Background(), "what did we buy", testSchema())

	assert.Equal(t, engine.Filters{"supplier": engine.Scalar("Acme Components")}, res.Plan.Filters)
	assert.Nil(t, res.Plan.Limit)
	assert.Equal(t, &engine.OrderBy{Metric: schema.ColTotalLandedCost, Direction: "desc"}, res.Plan.OrderBy)
}

func TestRemote_FallsBackToHeuristic(t *testing.T) {
	question := "top 3 suppliers by spend last quarter"
	tests := []struct {
		name    string
		backend *fakeCompleter
	}{
		{"prose reply", &fakeCompleter{reply: "I think you want the biggest suppliers."}},
		{"empty reply", &fakeCompleter{reply: ""}},
		{"array reply", &fakeCompleter{reply: "[1, 2]"}},
		{"transport error", &fakeCompleter{err: errors.New("connection refused")}},
		{"http error", &fakeCompleter{err: &HTTPError{Status: 503, Body: "unavailable"}}},
	}

	sch := testSchema()
	heuristic := NewHeuristic(WithClock(testClock)).Plan(question, sch)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			r := newTestRemote(tt.backend, WithLogger(zap.New(core)))

			res := r.Translate(context.Background(), question, sch)

			assert.Equal(t, SourceHeuristic, res.Source)
			assert.Equal(t, "fake-model", res.Model)
			assert.Contains(t, res.Note, "used heuristic plan")
			assert.Empty(t, cmp.Diff(heuristic, res.Plan))
			assert.Equal(t, 1, logs.Len())

			view := testView()
			direct := engine.Execute(heuristic, view, engine.WithNow(testToday))
			fallback := engine.Execute(res.Plan, view, engine.WithNow(testToday))
			assert.Equal(t, engine.BuildTable(direct.View, sch, nil), engine.BuildTable(fallback.View, sch, nil))
		})
	}
}

func TestRemote_NoToken(t *testing.T) {
	r := newTestRemote(&fakeCompleter{err: ErrNoToken})

	res := r.Translate(context.Background(), "air shipments", testSchema())

	assert.Equal(t, SourceHeuristic, res.Source)
	assert.Equal(t, "no API token configured; using heuristic planner", res.Note)
	assert.Equal(t, engine.Scalar("Air"), res.Plan.Filters["mode"])
}

func TestRemote_NilBackend(t *testing.T) {
	res := newTestRemote(nil).Translate(context.Background(), "air shipments", testSchema())

	assert.Equal(t, SourceHeuristic, res.Source)
	assert.Empty(t, res.Model)
	assert.NotEmpty(t, res.Note)
}

func TestRemote_Timeout(t *testing.T) {
	fake := &fakeCompleter{block: true}
	r := newTestRemote(fake, WithTimeout(30*time.Millisecond))

	start := time.Now()
	res := r.Translate(context.Background(), "ocean shipments", testSchema())

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, SourceHeuristic, res.Source)
	assert.Contains(t, res.Note, context.DeadlineExceeded.Error())
	assert.Equal(t, engine.Scalar("Ocean"), res.Plan.Filters["mode"])
}

func TestRemote_RateLimited(t *testing.T) {
	fake := &fakeCompleter{reply: `{"filters": {}}`}
	r := newTestRemote(fake, WithRateLimit(0.001, 1), WithTimeout(50*time.Millisecond))
	sch := testSchema()

	first := r.Translate(context.Background(), "air shipments", sch)
	second := r.Translate(context.Background(), "air shipments", sch)

	assert.Equal(t, SourceRemote, first.Source)
	assert.Equal(t, SourceHeuristic, second.Source)
	assert.Contains(t, second.Note, "rate limit")
	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestRemote_Unlimited(t *testing.T) {
	fake := &fakeCompleter{reply: `{}`}
	r := newTestRemote(fake, WithRateLimit(0, 0))

	for i := 0; i < 20; i++ {
		assert.Equal(t, SourceRemote, r.Translate(context.Background(), "q", testSchema()).Source)
	}
	assert.Equal(t, int32(20), fake.calls.Load())
}
