package schema

import (
	"regexp"
	"sort"
	"strings"
)

// ============================================================================
// SCHEMA — Describes the shape of the shipment dataset
// ============================================================================
// The catalog is fixed (see Shipments) and completed from loaded data by
// Discover, which fills the known categorical values.
// The validator uses it to resolve column references.
// The planners use it for alias tables, known values and prompt hints.
// ============================================================================

// Config describes the complete shape of a dataset.
type Config struct {
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`

	Dimensions []DimensionMeta `json:"dimensions"`
	Measures   []MeasureMeta   `json:"measures"`

	// DateColumn is the column a time range applies to when the plan names none.
	DateColumn string `json:"dateColumn"`

	// Discovery metadata
	DiscoveredFrom string `json:"discoveredFrom,omitempty"`
	RecordCount    int    `json:"recordCount,omitempty"`
}

// DimensionMeta describes a string or date field used for grouping and filtering.
type DimensionMeta struct {
	Key             string   `json:"key"`
	DisplayName     string   `json:"displayName"`
	Description     string   `json:"description,omitempty"`
	SampleValues    []string `json:"sampleValues,omitempty"`
	Aliases         []string `json:"aliases,omitempty"`
	Groupable       bool     `json:"groupable"`
	Filterable      bool     `json:"filterable"`
	IsTemporal      bool     `json:"isTemporal,omitempty"`
	TemporalFormat  string   `json:"temporalFormat,omitempty"`
	CardinalityHint string   `json:"cardinalityHint,omitempty"` // "low", "medium", "high"
}

// MeasureMeta describes a numeric field used for ranking and aggregation.
type MeasureMeta struct {
	Key                string   `json:"key"`
	DisplayName        string   `json:"displayName"`
	Description        string   `json:"description,omitempty"`
	Unit               string   `json:"unit,omitempty"` // "currency", "units", "days", "flag"
	Aliases            []string `json:"aliases,omitempty"`
	Derived            bool     `json:"derived,omitempty"`
	DefaultAggregation string   `json:"defaultAggregation,omitempty"`
}

// Alias maps a user phrase to a column key.
type Alias struct {
	Phrase string `json:"phrase"`
	Column string `json:"column"`
}

// DefaultDimension creates a DimensionMeta with sensible defaults.
func DefaultDimension(key, displayName string, aliases ...string) DimensionMeta {
	return DimensionMeta{
		Key:         key,
		DisplayName: displayName,
		Aliases:     aliases,
		Groupable:   true,
		Filterable:  true,
	}
}

// DateDimension creates a temporal DimensionMeta. Dates filter but never group.
func DateDimension(key, displayName string, aliases ...string) DimensionMeta {
	return DimensionMeta{
		Key:            key,
		DisplayName:    displayName,
		Aliases:        aliases,
		Filterable:     true,
		IsTemporal:     true,
		TemporalFormat: "2006-01-02",
	}
}

// DefaultMeasure creates a MeasureMeta with sensible defaults.
func DefaultMeasure(key, displayName, unit string, aliases ...string) MeasureMeta {
	return MeasureMeta{
		Key:                key,
		DisplayName:        displayName,
		Unit:               unit,
		Aliases:            aliases,
		DefaultAggregation: "sum",
	}
}

// DimensionKeys returns all dimension keys, dates included.
func (c Config) DimensionKeys() []string {
	keys := make([]string, len(c.Dimensions))
	for i, d := range c.Dimensions {
		keys[i] = d.Key
	}
	return keys
}

// MeasureKeys returns all measure keys.
func (c Config) MeasureKeys() []string {
	keys := make([]string, len(c.Measures))
	for i, m := range c.Measures {
		keys[i] = m.Key
	}
	return keys
}

// TemporalKeys returns the keys of all date columns.
func (c Config) TemporalKeys() []string {
	var keys []string
	for _, d := range c.Dimensions {
		if d.IsTemporal {
			keys = append(keys, d.Key)
		}
	}
	return keys
}

// Columns returns every column key: dimensions first, then measures.
func (c Config) Columns() []string {
	return append(c.DimensionKeys(), c.MeasureKeys()...)
}

// Dimension looks up dimension metadata by key.
func (c Config) Dimension(key string) (DimensionMeta, bool) {
	for _, d := range c.Dimensions {
		if d.Key == key {
			return d, true
		}
	}
	return DimensionMeta{}, false
}

// Measure looks up measure metadata by key.
func (c Config) Measure(key string) (MeasureMeta, bool) {
	for _, m := range c.Measures {
		if m.Key == key {
			return m, true
		}
	}
	return MeasureMeta{}, false
}

// DisplayName returns the display name of any column, or the key itself.
func (c Config) DisplayName(key string) string {
	if d, ok := c.Dimension(key); ok && d.DisplayName != "" {
		return d.DisplayName
	}
	if m, ok := c.Measure(key); ok && m.DisplayName != "" {
		return m.DisplayName
	}
	return key
}

// ============================================================================
// COLUMN RESOLUTION
// ============================================================================
// All lookups are case-insensitive and tolerate spaces or hyphens in place
// of underscores. Aliases are consulted after exact keys.
// ============================================================================

// ResolveColumn maps a name to any known column key.
func (c Config) ResolveColumn(name string) (string, bool) {
	if key, ok := c.ResolveDimension(name); ok {
		return key, true
	}
	if key, ok := c.ResolveMetric(name); ok {
		return key, true
	}
	return c.ResolveTemporal(name)
}

// ResolveDimension maps a name to a groupable dimension key.
func (c Config) ResolveDimension(name string) (string, bool) {
	n := NormalizeName(name)
	if n == "" {
		return "", false
	}
	for _, d := range c.Dimensions {
		if d.Groupable && d.Key == n {
			return d.Key, true
		}
	}
	for _, d := range c.Dimensions {
		if !d.Groupable {
			continue
		}
		for _, a := range d.Aliases {
			if NormalizeName(a) == n {
				return d.Key, true
			}
		}
	}
	return "", false
}

// ResolveMetric maps a name to a measure key through the metric alias table.
func (c Config) ResolveMetric(name string) (string, bool) {
	n := NormalizeName(name)
	if n == "" {
		return "", false
	}
	for _, m := range c.Measures {
		if m.Key == n {
			return m.Key, true
		}
	}
	for _, m := range c.Measures {
		for _, a := range m.Aliases {
			if NormalizeName(a) == n {
				return m.Key, true
			}
		}
	}
	return "", false
}

// ResolveTemporal maps a name to a date column key.
func (c Config) ResolveTemporal(name string) (string, bool) {
	n := NormalizeName(name)
	if n == "" {
		return "", false
	}
	for _, d := range c.Dimensions {
		if !d.IsTemporal {
			continue
		}
		if d.Key == n {
			return d.Key, true
		}
		for _, a := range d.Aliases {
			if NormalizeName(a) == n {
				return d.Key, true
			}
		}
	}
	return "", false
}

// KnownValues returns the discovered values of a dimension.
func (c Config) KnownValues(key string) []string {
	if d, ok := c.Dimension(key); ok {
		return d.SampleValues
	}
	return nil
}

// CanonicalValue returns the dataset spelling of a categorical value when a
// case-insensitive match exists, otherwise the value unchanged.
func (c Config) CanonicalValue(key, value string) string {
	v := strings.TrimSpace(value)
	for _, known := range c.KnownValues(key) {
		if strings.EqualFold(known, v) {
			return known
		}
	}
	return v
}

// DimensionAliases lists the alias phrases of groupable dimensions,
// longest phrase first so that "origin country" wins over "origin".
func (c Config) DimensionAliases() []Alias {
	var out []Alias
	for _, d := range c.Dimensions {
		if !d.Groupable {
			continue
		}
		out = append(out, Alias{Phrase: strings.ReplaceAll(d.Key, "_", " "), Column: d.Key})
		for _, a := range d.Aliases {
			out = append(out, Alias{Phrase: a, Column: d.Key})
		}
	}
	sortAliases(out)
	return out
}

// MetricAliases lists the alias phrases of measures, longest phrase first.
func (c Config) MetricAliases() []Alias {
	var out []Alias
	for _, m := range c.Measures {
		for _, a := range m.Aliases {
			out = append(out, Alias{Phrase: a, Column: m.Key})
		}
	}
	sortAliases(out)
	return out
}

// MatchMetric finds the first metric alias mentioned in free text.
// Longer phrases are tried first; matches respect word boundaries.
func (c Config) MatchMetric(text string) (string, bool) {
	for _, a := range c.MetricAliases() {
		if ContainsPhrase(text, a.Phrase) {
			return a.Column, true
		}
	}
	return "", false
}

func sortAliases(aliases []Alias) {
	sort.SliceStable(aliases, func(i, j int) bool {
		return len(aliases[i].Phrase) > len(aliases[j].Phrase)
	})
}

// ContainsPhrase reports whether text mentions phrase as whole words,
// ignoring case. Spaces, hyphens and underscores in the phrase are
// interchangeable.
func ContainsPhrase(text, phrase string) bool {
	return phraseRegex(phrase).MatchString(text)
}

func phraseRegex(phrase string) *regexp.Regexp {
	parts := strings.FieldsFunc(strings.ToLower(phrase), func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	})
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	pattern := `(?i)(?:^|[^\pL\pN_])` + strings.Join(parts, `[\s_-]+`) + `(?:$|[^\pL\pN_])`
	return regexp.MustCompile(pattern)
}
