package dataset

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spektr-org/shipinsight/engine"
	"github.com/spektr-org/shipinsight/schema"
)

// ============================================================================
// LOADER — CSV → []Shipment with derived features
// ============================================================================
// The header must carry every required column; otherwise the load fails
// with *MissingColumnsError and no partial dataset is returned.
// Features are derived once here. Views and the discovered catalog are
// built on top of the loaded rows and never modify them.
// ============================================================================

//go:embed sample_shipments.csv
var sampleCSV []byte

// MissingColumnsError reports required columns absent from the header.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Columns, ", ")
}

// Dataset is a loaded, feature-complete shipment table.
type Dataset struct {
	Rows     []Shipment
	Source   string
	LoadedAt time.Time

	supplied map[string]bool
	skipped  int
	sch      schema.Config
}

// Option configures a load.
type Option func(*loadConfig)

type loadConfig struct {
	now    func() time.Time
	logger *zap.Logger
	source string
}

// WithNow fixes "today" for the risk feature.
func WithNow(t time.Time) Option {
	return func(c *loadConfig) { c.now = func() time.Time { return t } }
}

// WithLogger sets the logger for load diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *loadConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSource labels the dataset (file path, "sample").
func WithSource(name string) Option {
	return func(c *loadConfig) { c.source = name }
}

// Sample loads the bundled reference dataset.
func Sample(opts ...Option) (*Dataset, error) {
	opts = append([]Option{WithSource("sample")}, opts...)
	return Load(bytes.NewReader(sampleCSV), opts...)
}

// LoadFile loads a CSV file from disk.
func LoadFile(path string, opts ...Option) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	opts = append([]Option{WithSource(path)}, opts...)
	return Load(f, opts...)
}

// Load parses shipment CSV. Header names are normalized; unknown columns are
// ignored. Rows the CSV reader cannot parse are skipped and counted.
func Load(r io.Reader, opts ...Option) (*Dataset, error) {
	cfg := &loadConfig{now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &MissingColumnsError{Columns: schema.RequiredColumns()}
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	keys := make([]string, len(header))
	present := make(map[string]bool, len(header))
	for i, h := range header {
		keys[i] = schema.NormalizeName(strings.TrimPrefix(h, "\ufeff"))
		present[keys[i]] = true
	}

	var missing []string
	for _, c := range schema.RequiredColumns() {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	ds := &Dataset{
		Source:   cfg.source,
		LoadedAt: cfg.now(),
		supplied: make(map[string]bool),
	}
	for _, c := range schema.DerivedColumns {
		ds.supplied[c] = present[c]
	}

	today := startOfDay(cfg.now())
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			ds.skipped++
			cfg.logger.Warn("skipping malformed csv row", zap.Int("line", line), zap.Error(err))
			continue
		}

		s := newShipment()
		for i, val := range row {
			if i >= len(keys) {
				break
			}
			if set, ok := setters[keys[i]]; ok {
				set(&s, strings.TrimSpace(val))
			}
		}
		deriveFeatures(&s, ds.supplied, today)
		ds.Rows = append(ds.Rows, s)
	}

	ds.sch = schema.Discover(schema.Shipments(), ds.View())
	cfg.logger.Info("dataset loaded",
		zap.String("source", ds.Source),
		zap.Int("rows", len(ds.Rows)),
		zap.Int("skipped", ds.skipped))
	return ds, nil
}

// newShipment returns a row whose numeric fields start null.
func newShipment() Shipment {
	nan := math.NaN()
	return Shipment{
		Quantity: nan, UnitPrice: nan, FreightCost: nan, DutyCost: nan,
		POValue: nan, TotalLandedCost: nan, LeadTimeDays: nan, TransitTimeDays: nan,
		DelayDays: nan, OnTime: nan, RiskFlag: nan,
	}
}

// View returns a zero-copy engine view over the rows.
func (d *Dataset) View() engine.RecordView {
	return adapter.Bind(d.Rows)
}

// Schema returns the catalog completed with this dataset's known values.
func (d *Dataset) Schema() schema.Config {
	return d.sch
}

// Supplied reports whether a derived column came from the input file.
func (d *Dataset) Supplied(column string) bool {
	return d.supplied[column]
}

// Skipped returns the number of malformed rows dropped during the load.
func (d *Dataset) Skipped() int {
	return d.skipped
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
