package insight

import (
	"strings"
	"time"

	"github.com/spektr-org/shipinsight/engine"
)

// All is the selector value meaning "no restriction".
const All = "All"

// baseLookback is the default window of the base view.
const baseLookback = 365 * 24 * time.Hour

// BaseFilter is the standing selection a question is asked against: a
// po_date window plus single-value selectors. Zero dates leave that side of
// the window open; empty or "All" selectors do not restrict.
type BaseFilter struct {
	From     time.Time `json:"from,omitempty"`
	To       time.Time `json:"to,omitempty"`
	Supplier string    `json:"supplier,omitempty"`
	Lane     string    `json:"lane,omitempty"`
	Mode     string    `json:"mode,omitempty"`
	Status   string    `json:"status,omitempty"`
}

// DefaultBaseFilter covers the last year of orders up to the latest po_date
// in the view, clipped to the earliest one.
func DefaultBaseFilter(view engine.RecordView) BaseFilter {
	var lo, hi time.Time
	for i := 0; i < view.Len(); i++ {
		t := view.Time(i, dateColumn)
		if t.IsZero() {
			continue
		}
		if lo.IsZero() || t.Before(lo) {
			lo = t
		}
		if hi.IsZero() || t.After(hi) {
			hi = t
		}
	}
	if hi.IsZero() {
		return BaseFilter{}
	}
	from := hi.Add(-baseLookback)
	if from.Before(lo) {
		from = lo
	}
	return BaseFilter{From: from, To: hi}
}

// IsZero reports whether the filter restricts nothing.
func (b BaseFilter) IsZero() bool {
	return b.From.IsZero() && b.To.IsZero() && len(b.selectors()) == 0
}

// Apply returns the rows of view the filter keeps. Rows with a null po_date
// are dropped whenever a date bound is set.
func (b BaseFilter) Apply(view engine.RecordView) engine.RecordView {
	selectors := b.selectors()
	from, to := dayOf(b.From), dayOf(b.To)

	indices := make([]int, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		if !from.IsZero() || !to.IsZero() {
			t := dayOf(view.Time(i, dateColumn))
			if t.IsZero() || (!from.IsZero() && t.Before(from)) || (!to.IsZero() && t.After(to)) {
				continue
			}
		}
		keep := true
		for col, want := range selectors {
			if view.Dimension(i, col) != want {
				keep = false
				break
			}
		}
		if keep {
			indices = append(indices, i)
		}
	}
	return engine.Subset(view, indices)
}

func (b BaseFilter) selectors() map[string]string {
	out := make(map[string]string)
	for col, v := range map[string]string{
		"supplier": b.Supplier,
		"lane":     b.Lane,
		"mode":     b.Mode,
		"status":   b.Status,
	} {
		v = strings.TrimSpace(v)
		if v != "" && !strings.EqualFold(v, All) {
			out[col] = v
		}
	}
	return out
}

func dayOf(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
