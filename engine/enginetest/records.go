// Package enginetest provides an in-memory engine.RecordView for tests.
package enginetest

import (
	"time"

	"github.com/spektr-org/shipinsight/schema"
)

// Record is a single row with string dimensions, numeric measures and dates.
// A date missing from Times is parsed from the dimension of the same key.
type Record struct {
	Dimensions map[string]string
	Measures   map[string]float64
	Times      map[string]time.Time
}

// SliceView serves a []Record through the engine.RecordView methods.
type SliceView struct {
	records  []Record
	dimKeys  []string
	mesKeys  []string
	timeKeys []string
}

// NewSliceView wraps records. Keys are listed in first-seen order.
func NewSliceView(records []Record) *SliceView {
	v := &SliceView{records: records}
	dimSeen := make(map[string]bool)
	mesSeen := make(map[string]bool)
	timeSeen := make(map[string]bool)
	for _, r := range records {
		for k := range r.Dimensions {
			if !dimSeen[k] {
				dimSeen[k] = true
				v.dimKeys = append(v.dimKeys, k)
			}
		}
		for k := range r.Measures {
			if !mesSeen[k] {
				mesSeen[k] = true
				v.mesKeys = append(v.mesKeys, k)
			}
		}
		for k := range r.Times {
			if !timeSeen[k] {
				timeSeen[k] = true
				v.timeKeys = append(v.timeKeys, k)
			}
		}
	}
	return v
}

func (v *SliceView) Len() int { return len(v.records) }

func (v *SliceView) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.records) {
		return ""
	}
	if s, ok := v.records[i].Dimensions[key]; ok {
		return s
	}
	if t, ok := v.records[i].Times[key]; ok && !t.IsZero() {
		return t.Format("2006-01-02")
	}
	return ""
}

func (v *SliceView) Measure(i int, key string) float64 {
	if i < 0 || i >= len(v.records) {
		return 0
	}
	return v.records[i].Measures[key]
}

func (v *SliceView) Time(i int, key string) time.Time {
	if i < 0 || i >= len(v.records) {
		return time.Time{}
	}
	if t, ok := v.records[i].Times[key]; ok {
		return t
	}
	return schema.ParseDate(v.records[i].Dimensions[key])
}

func (v *SliceView) DimensionKeys() []string { return v.dimKeys }
func (v *SliceView) MeasureKeys() []string   { return v.mesKeys }
func (v *SliceView) TimeKeys() []string      { return v.timeKeys }
