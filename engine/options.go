package engine

import (
	"time"

	"go.uber.org/zap"
)

// ============================================================================
// ENGINE OPTIONS — Functional options for Execute()
// ============================================================================

// Option configures engine behavior via functional options pattern.
type Option func(*config)

type config struct {
	Now        func() time.Time
	DateColumn string // date column used when the plan names none
	Logger     *zap.Logger
}

// WithNow pins "now" for relative time ranges.
func WithNow(t time.Time) Option {
	return func(c *config) {
		c.Now = func() time.Time { return t }
	}
}

// WithClock sets the function used to read the current time.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.Now = now
		}
	}
}

// WithDateColumn sets the designated date column for time ranges.
func WithDateColumn(column string) Option {
	return func(c *config) {
		if column != "" {
			c.DateColumn = column
		}
	}
}

// WithLogger sets the logger for stage-level debug output.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		Now:        time.Now,
		DateColumn: "po_date",
		Logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
