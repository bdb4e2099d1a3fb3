package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spektr-org/shipinsight/config"
	"github.com/spektr-org/shipinsight/engine"
	"github.com/spektr-org/shipinsight/insight"
	"github.com/spektr-org/shipinsight/schema"
)

func newAskCmd(a *app) *cobra.Command {
	var base baseFlags
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question",
		Example: `  shipinsight ask "top 5 suppliers by spend last quarter"
  shipinsight ask "delayed air shipments from CN last 30 days" --format csv --out late.csv
  shipinsight ask "ocean shipments" --supplier "Acme Components" --all-dates`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			filter, err := base.filter(s.ds.View())
			if err != nil {
				return err
			}
			ans, err := s.svc.Ask(cmd.Context(), insight.Request{
				Question: strings.Join(args, " "),
				Base:     filter,
			})
			if err != nil {
				return err
			}

			w, done, err := a.output(cmd)
			if err != nil {
				return err
			}
			if err := newPrinter(a.format, w).answer(ans); err != nil {
				_ = done()
				return err
			}
			return done()
		},
	}
	base.register(cmd)
	return cmd
}

// planOutput is what the plan command prints.
type planOutput struct {
	Question string      `json:"question"`
	Source   string      `json:"source"`
	Model    string      `json:"model,omitempty"`
	Note     string      `json:"note,omitempty"`
	Plan     engine.Plan `json:"plan"`
}

func newPlanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <question>",
		Short: "Show the plan for a question without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.format == "csv" {
				return errors.New("plan has no csv form; use text, json or pretty")
			}
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			question := strings.Join(args, " ")
			res := s.tr.Translate(cmd.Context(), question, s.ds.Schema())

			w, done, err := a.output(cmd)
			if err != nil {
				return err
			}
			p := newPrinter(a.format, w)
			if a.format == "text" {
				pairs := [][2]string{
					{"planner", res.Source},
					{"plan", engine.DescribePlan(res.Plan)},
				}
				if res.Model != "" {
					pairs = append(pairs, [2]string{"model", res.Model})
				}
				if res.Note != "" {
					pairs = append(pairs, [2]string{"note", res.Note})
				}
				pairs = append(pairs, [2]string{"json", res.Plan.JSON()})
				p.kv(pairs)
				return done()
			}
			err = p.json(planOutput{
				Question: question,
				Source:   res.Source,
				Model:    res.Model,
				Note:     res.Note,
				Plan:     res.Plan,
			})
			if err != nil {
				_ = done()
				return err
			}
			return done()
		},
	}
}

func newBatchCmd(a *app) *cobra.Command {
	var base baseFlags
	cmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "Answer one question per line from a file or stdin",
		Long: `Answer one question per line. Blank lines and lines starting with # are
skipped. With no file, or "-", questions are read from stdin. Questions are
answered concurrently against the same base selection; output keeps input order.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.format == "csv" {
				return errors.New("batch has no csv form; ask one question with --format csv")
			}

			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open questions: %w", err)
				}
				defer f.Close()
				in = f
			}
			questions, err := readQuestions(in)
			if err != nil {
				return err
			}
			if len(questions) == 0 {
				return errors.New("no questions to answer")
			}

			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			filter, err := base.filter(s.ds.View())
			if err != nil {
				return err
			}
			reqs := make([]insight.Request, len(questions))
			for i, q := range questions {
				reqs[i] = insight.Request{Question: q, Base: filter}
			}
			answers, err := s.svc.AskAll(cmd.Context(), reqs)
			if err != nil {
				return err
			}

			w, done, err := a.output(cmd)
			if err != nil {
				return err
			}
			p := newPrinter(a.format, w)
			if a.format == "text" {
				for i, ans := range answers {
					if i > 0 {
						fmt.Fprintln(w, "\n---")
					}
					p.answerText(ans)
				}
				return done()
			}
			if err := p.json(answers); err != nil {
				_ = done()
				return err
			}
			return done()
		},
	}
	base.register(cmd)
	return cmd
}

// readQuestions returns the non-blank, non-comment lines of r.
func readQuestions(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	return out, nil
}

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Show the dataset columns, aliases and known values",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.format == "csv" {
				return errors.New("schema has no csv form; use text, json or pretty")
			}
			ds, err := a.loadDataset()
			if err != nil {
				return err
			}
			sch := ds.Schema()

			w, done, err := a.output(cmd)
			if err != nil {
				return err
			}
			p := newPrinter(a.format, w)
			if a.format != "text" {
				if err := p.json(sch); err != nil {
					_ = done()
					return err
				}
				return done()
			}

			fmt.Fprintf(w, "%s: %d rows from %s\n\n", sch.Name, len(ds.Rows), ds.Source)
			p.table([]string{"COLUMN", "KIND", "NAME", "ALIASES", "VALUES"}, schemaRows(sch))
			return done()
		},
	}
}

// schemaRows lists dimensions then measures, one row per column.
func schemaRows(sch schema.Config) [][]string {
	const maxValues = 5
	var rows [][]string
	for _, d := range sch.Dimensions {
		kind := "dimension"
		if d.IsTemporal {
			kind = "date"
		}
		values := sch.KnownValues(d.Key)
		more := ""
		if len(values) > maxValues {
			more = fmt.Sprintf(" (+%d)", len(values)-maxValues)
			values = values[:maxValues]
		}
		rows = append(rows, []string{d.Key, kind, d.DisplayName, strings.Join(d.Aliases, ", "), strings.Join(values, " | ") + more})
	}
	for _, m := range sch.Measures {
		kind := "measure"
		if m.Derived {
			kind = "derived"
		}
		rows = append(rows, []string{m.Key, kind, m.DisplayName, strings.Join(m.Aliases, ", "), m.Unit})
	}
	return rows
}

func newInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Long: `Write a config file with the default settings. --data, --provider and
--model are recorded when given. Tokens are never written; put them in the
secrets file or the environment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if path == "" {
				path = config.Path()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}

			cfg := config.DefaultConfig()
			cfg.Dataset.Path = a.dataPath
			if a.provider != "" {
				cfg.Planner.Provider = strings.ToLower(a.provider)
			}
			cfg.Planner.Model = a.model
			if err := cfg.Save(path); err != nil {
				return err
			}
			a.logger.Debug("config written", zap.String("path", path))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		// Skip config and logger setup.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shipinsight %s\n", version)
		},
	}
}
