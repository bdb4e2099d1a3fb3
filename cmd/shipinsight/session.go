package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spektr-org/shipinsight/config"
	"github.com/spektr-org/shipinsight/dataset"
	"github.com/spektr-org/shipinsight/engine"
	"github.com/spektr-org/shipinsight/insight"
	"github.com/spektr-org/shipinsight/translator"
)

// session is a loaded dataset plus the planner and service over it.
type session struct {
	ds  *dataset.Dataset
	tr  translator.Translator
	svc *insight.Service
}

func (a *app) open(ctx context.Context) (*session, error) {
	ds, err := a.loadDataset()
	if err != nil {
		return nil, err
	}
	tr, err := a.translator(ctx)
	if err != nil {
		return nil, err
	}
	svc := insight.New(ds.View(), ds.Schema(), tr,
		insight.WithClock(a.now),
		insight.WithLogger(a.logger),
		insight.WithParallelism(a.cfg.Planner.Parallelism))
	return &session{ds: ds, tr: tr, svc: svc}, nil
}

func (a *app) loadDataset() (*dataset.Dataset, error) {
	opts := []dataset.Option{dataset.WithNow(a.now()), dataset.WithLogger(a.logger)}
	if a.cfg.Dataset.Path == "" {
		return dataset.Sample(opts...)
	}
	return dataset.LoadFile(a.cfg.Dataset.Path, opts...)
}

// translator builds the configured planner. Remote planners without a token
// still work: every question falls back to the rules with a notice.
func (a *app) translator(ctx context.Context) (translator.Translator, error) {
	p := a.cfg.Planner
	opts := []translator.RemoteOption{
		translator.WithTimeout(a.cfg.GetTimeout()),
		translator.WithRateLimit(p.RatePerSec, p.Burst),
		translator.WithLogger(a.logger),
		translator.WithRemoteClock(a.now),
	}

	if p.Provider == config.ProviderHeuristic {
		return translator.NewHeuristic(translator.WithClock(a.now)), nil
	}
	if !a.cfg.HasToken() {
		a.logger.Warn("no API token configured; questions are planned by local rules",
			zap.String("provider", p.Provider))
	}

	switch p.Provider {
	case config.ProviderGemini:
		g, err := translator.NewGemini(ctx, translator.GeminiConfig{
			APIKey:  p.APIKey,
			Model:   p.Model,
			BaseURL: p.BaseURL,
			Timeout: a.cfg.GetTimeout(),
		})
		if err != nil {
			return nil, err
		}
		return translator.NewRemote(g, opts...), nil
	default:
		r := translator.NewRouter(translator.RouterConfig{
			BaseURL: p.BaseURL,
			Model:   p.Model,
			Token:   p.APIKey,
			Timeout: a.cfg.GetTimeout(),
		}, a.logger)
		return translator.NewRemote(r, opts...), nil
	}
}

// output returns the destination writer and a close func.
func (a *app) output(cmd *cobra.Command) (io.Writer, func() error, error) {
	if a.outFile == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(a.outFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() error {
		if err := f.Close(); err != nil {
			return err
		}
		a.logger.Info("output written", zap.String("path", a.outFile))
		return nil
	}, nil
}

// ============================================================================
// BASE SELECTION FLAGS
// ============================================================================

// baseFlags narrow the dataset before a question is applied.
type baseFlags struct {
	from, to                     string
	supplier, lane, mode, status string
	allDates                     bool
}

func (b *baseFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&b.from, "from", "", "base window start YYYY-MM-DD (default: one year before the latest PO)")
	f.StringVar(&b.to, "to", "", "base window end YYYY-MM-DD (default: latest PO date)")
	f.StringVar(&b.supplier, "supplier", insight.All, "base supplier")
	f.StringVar(&b.lane, "lane", insight.All, "base lane")
	f.StringVar(&b.mode, "mode", insight.All, "base mode")
	f.StringVar(&b.status, "status", insight.All, "base status")
	f.BoolVar(&b.allDates, "all-dates", false, "do not restrict the base selection by PO date")
}

func (b *baseFlags) filter(view engine.RecordView) (insight.BaseFilter, error) {
	var base insight.BaseFilter
	if !b.allDates {
		base = insight.DefaultBaseFilter(view)
	}
	for _, bound := range []struct {
		flag, value string
		dst         *time.Time
	}{
		{"--from", b.from, &base.From},
		{"--to", b.to, &base.To},
	} {
		if bound.value == "" {
			continue
		}
		day, err := time.Parse("2006-01-02", strings.TrimSpace(bound.value))
		if err != nil {
			return insight.BaseFilter{}, fmt.Errorf("invalid %s %q: %w", bound.flag, bound.value, err)
		}
		*bound.dst = day
	}
	base.Supplier = b.supplier
	base.Lane = b.lane
	base.Mode = b.mode
	base.Status = b.status
	return base, nil
}
