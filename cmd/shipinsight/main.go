// Command shipinsight answers natural-language questions about shipment data.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spektr-org/shipinsight/config"
	"github.com/spektr-org/shipinsight/logging"
)

// ============================================================================
// SHIPINSIGHT CLI — Ask your shipments
// ============================================================================

const version = "0.3.0"

// app holds flag values and the state PersistentPreRunE prepares.
type app struct {
	dataPath   string
	configPath string
	format     string
	outFile    string
	provider   string
	model      string
	today      string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
	now    func() time.Time
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "shipinsight",
		Short: "Ask questions about shipment data",
		Long: `shipinsight turns a question like "top 5 suppliers by spend last quarter"
into a bounded plan (time window, filters, top-N), runs it over the shipment
dataset and prints the matching rows, KPIs and a trace of how it got there.

Questions are planned by a remote model when a token is configured
(HF_TOKEN for the router, GEMINI_API_KEY for Gemini), otherwise by local rules.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&a.dataPath, "data", "", "shipment CSV (default: config dataset.path, else the bundled sample)")
	f.StringVar(&a.configPath, "config", "", "config file (default: $SHIPINSIGHT_CONFIG or "+config.DefaultConfigPath+")")
	f.StringVarP(&a.format, "format", "f", "text", "output format: text, json, pretty, csv")
	f.StringVarP(&a.outFile, "out", "o", "", "write output to file instead of stdout")
	f.StringVar(&a.provider, "provider", "", "planner: router, gemini, heuristic (overrides config)")
	f.StringVar(&a.model, "model", "", "remote model name (overrides config)")
	f.StringVar(&a.today, "today", "", "treat this YYYY-MM-DD as today")
	f.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newAskCmd(a),
		newPlanCmd(a),
		newBatchCmd(a),
		newSchemaCmd(a),
		newInitCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// setup loads config and builds the logger. Flags override config; the
// token is chosen after the provider flag is applied.
func (a *app) setup(cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if a.dataPath != "" {
		cfg.Dataset.Path = a.dataPath
	}
	if a.provider != "" {
		cfg.Planner.Provider = strings.ToLower(a.provider)
	}
	if a.model != "" {
		cfg.Planner.Model = a.model
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	cfg.ResolveToken()
	if err := cfg.Validate(); err != nil {
		return err
	}
	switch a.format {
	case "text", "json", "pretty", "csv":
	default:
		return fmt.Errorf("invalid --format %q (valid: text, json, pretty, csv)", a.format)
	}

	a.now = time.Now
	if a.today != "" {
		day, err := time.Parse("2006-01-02", a.today)
		if err != nil {
			return fmt.Errorf("invalid --today %q: %w", a.today, err)
		}
		a.now = func() time.Time { return day }
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
