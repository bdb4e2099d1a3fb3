// Package logging builds zap loggers for shipinsight.
//
// Loggers are injected, never global. Components accept a *zap.Logger and
// pass it through Default so a nil logger discards output. Only main decides
// level and encoding.
//
// Logging is sparse: lifecycle boundaries (dataset loaded, question answered,
// remote planner fell back) are the intended log points, never per-row work.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger writing to stderr. format is "json" for the production
// encoder or "console" for the development one; level is any zap level name.
func New(level, format string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(strings.ToLower(level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	var cfg zap.Config
	switch strings.ToLower(format) {
	case "json":
		cfg = zap.NewProductionConfig()
	case "", "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Default returns l if non-nil, otherwise a no-op logger.
//
//	func NewComponent(logger *zap.Logger) *Component {
//	    return &Component{logger: logging.Default(logger).Named("component")}
//	}
func Default(l *zap.Logger) *zap.Logger {
	if l != nil {
		return l
	}
	return zap.NewNop()
}
