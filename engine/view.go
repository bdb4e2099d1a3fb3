package engine

import "time"

// ============================================================================
// RECORD VIEW — Zero-Copy Data Access Interface
// ============================================================================
// The engine never owns the dataset. It reads through this interface and
// every stage returns a new view; the source is never mutated.
//
// Implementations:
//   DomainView[T]  — reads typed structs via accessor functions (zero-copy)
//   SubView        — filtered subset (indices into parent, zero-copy)
// ============================================================================

// RecordView provides indexed access to a dataset.
// The engine calls the accessors in tight loops; keep implementations fast.
type RecordView interface {
	Len() int
	Dimension(index int, key string) string
	Measure(index int, key string) float64
	Time(index int, key string) time.Time // zero when null or unparseable
	DimensionKeys() []string
	MeasureKeys() []string
	TimeKeys() []string
}

// ============================================================================
// SUB VIEW — filtered subset (zero-copy)
// ============================================================================

// SubView is a filtered subset of a parent RecordView.
// Holds indices into the parent; no data copy.
type SubView struct {
	parent  RecordView
	indices []int
}

func newSubView(parent RecordView, indices []int) RecordView {
	return &SubView{parent: parent, indices: indices}
}

// Subset returns a view over the given parent rows. Exported for callers that
// select rows themselves (base filters, risk tables).
func Subset(parent RecordView, indices []int) RecordView {
	return newSubView(parent, append([]int(nil), indices...))
}

func (v *SubView) Len() int { return len(v.indices) }

func (v *SubView) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.indices) {
		return ""
	}
	return v.parent.Dimension(v.indices[i], key)
}

func (v *SubView) Measure(i int, key string) float64 {
	if i < 0 || i >= len(v.indices) {
		return 0
	}
	return v.parent.Measure(v.indices[i], key)
}

func (v *SubView) Time(i int, key string) time.Time {
	if i < 0 || i >= len(v.indices) {
		return time.Time{}
	}
	return v.parent.Time(v.indices[i], key)
}

func (v *SubView) DimensionKeys() []string { return v.parent.DimensionKeys() }
func (v *SubView) MeasureKeys() []string   { return v.parent.MeasureKeys() }
func (v *SubView) TimeKeys() []string      { return v.parent.TimeKeys() }

// ============================================================================
// DOMAIN ADAPTER — Zero-copy typed struct access
// ============================================================================
//
// Usage:
//
//	adapter := engine.NewDomainAdapter[Shipment]().
//	    Dimension("supplier", func(s Shipment) string { return s.Supplier }).
//	    Measure("freight_cost", func(s Shipment) float64 { return s.FreightCost }).
//	    Time("po_date", func(s Shipment) time.Time { return s.PODate })
//
//	view := adapter.Bind(shipments)
//	result := engine.Execute(plan, view, opts...)
//
// Time accessors are also exposed as dimensions formatted YYYY-MM-DD.
// ============================================================================

// DomainAdapter builds a RecordView from typed structs.
// Declare once, bind many times.
type DomainAdapter[T any] struct {
	dimOrder  []string
	mesOrder  []string
	timeOrder []string
	dims      map[string]func(T) string
	meas      map[string]func(T) float64
	times     map[string]func(T) time.Time
}

// NewDomainAdapter creates a new adapter for type T.
func NewDomainAdapter[T any]() *DomainAdapter[T] {
	return &DomainAdapter[T]{
		dims:  make(map[string]func(T) string),
		meas:  make(map[string]func(T) float64),
		times: make(map[string]func(T) time.Time),
	}
}

// Dimension registers a dimension accessor.
func (a *DomainAdapter[T]) Dimension(key string, fn func(T) string) *DomainAdapter[T] {
	if _, exists := a.dims[key]; !exists {
		a.dimOrder = append(a.dimOrder, key)
	}
	a.dims[key] = fn
	return a
}

// Measure registers a measure accessor.
func (a *DomainAdapter[T]) Measure(key string, fn func(T) float64) *DomainAdapter[T] {
	if _, exists := a.meas[key]; !exists {
		a.mesOrder = append(a.mesOrder, key)
	}
	a.meas[key] = fn
	return a
}

// Time registers a date accessor. The date is also readable as a dimension.
func (a *DomainAdapter[T]) Time(key string, fn func(T) time.Time) *DomainAdapter[T] {
	if _, exists := a.times[key]; !exists {
		a.timeOrder = append(a.timeOrder, key)
	}
	a.times[key] = fn
	return a.Dimension(key, func(t T) string {
		d := fn(t)
		if d.IsZero() {
			return ""
		}
		return d.Format(dateLayout)
	})
}

// Bind creates a RecordView from a data slice. Zero-copy: holds a reference.
func (a *DomainAdapter[T]) Bind(data []T) RecordView {
	return &DomainView[T]{
		data:     data,
		dims:     a.dims,
		meas:     a.meas,
		times:    a.times,
		dimKeys:  a.dimOrder,
		measKeys: a.mesOrder,
		timeKeys: a.timeOrder,
	}
}

// DomainView reads typed struct fields via registered accessor functions.
type DomainView[T any] struct {
	data     []T
	dims     map[string]func(T) string
	meas     map[string]func(T) float64
	times    map[string]func(T) time.Time
	dimKeys  []string
	measKeys []string
	timeKeys []string
}

func (v *DomainView[T]) Len() int { return len(v.data) }

func (v *DomainView[T]) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.data) {
		return ""
	}
	if fn, ok := v.dims[key]; ok {
		return fn(v.data[i])
	}
	return ""
}

func (v *DomainView[T]) Measure(i int, key string) float64 {
	if i < 0 || i >= len(v.data) {
		return 0
	}
	if fn, ok := v.meas[key]; ok {
		return fn(v.data[i])
	}
	return 0
}

func (v *DomainView[T]) Time(i int, key string) time.Time {
	if i < 0 || i >= len(v.data) {
		return time.Time{}
	}
	if fn, ok := v.times[key]; ok {
		return fn(v.data[i])
	}
	return time.Time{}
}

func (v *DomainView[T]) DimensionKeys() []string { return v.dimKeys }
func (v *DomainView[T]) MeasureKeys() []string   { return v.measKeys }
func (v *DomainView[T]) TimeKeys() []string      { return v.timeKeys }

// ============================================================================
// KEY HELPERS
// ============================================================================

func hasKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
