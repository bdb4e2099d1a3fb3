// Package insight answers questions about a shipment view: it plans each
// question with a Translator, executes the plan and assembles the tables,
// KPIs, charts and trace a presentation layer needs.
package insight

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spektr-org/shipinsight/engine"
	"github.com/spektr-org/shipinsight/logging"
	"github.com/spektr-org/shipinsight/schema"
	"github.com/spektr-org/shipinsight/translator"
)

const (
	dateColumn       = "po_date"
	maxTracePlanJSON = 800
	allDataPhrase    = "all data"
)

// Service answers questions against one read-only view. It holds no
// per-question state, so one Service may serve concurrent callers.
type Service struct {
	view        engine.RecordView
	sch         schema.Config
	translator  translator.Translator
	now         func() time.Time
	logger      *zap.Logger
	parallelism int
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for relative time ranges.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithParallelism bounds how many questions AskAll answers at once.
func WithParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// New creates a Service. A nil translator plans heuristically.
func New(view engine.RecordView, sch schema.Config, tr translator.Translator, opts ...Option) *Service {
	s := &Service{
		view:        view,
		sch:         sch,
		translator:  tr,
		now:         time.Now,
		logger:      zap.NewNop(),
		parallelism: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.Default(s.logger).Named("insight")
	if s.translator == nil {
		s.translator = translator.NewHeuristic(translator.WithClock(s.now))
	}
	return s
}

// Request is one question asked against a base selection.
type Request struct {
	Question string     `json:"question"`
	Base     BaseFilter `json:"base"`
}

// Answer is everything shown for one question.
type Answer struct {
	ID       string                `json:"id"`
	Question string                `json:"question"`
	Plan     *engine.Plan          `json:"plan"`
	Source   string                `json:"source,omitempty"`
	Model    string                `json:"model,omitempty"`
	Note     string                `json:"note,omitempty"`
	Trace    string                `json:"trace"`
	Stages   []engine.Stage        `json:"stages,omitempty"`
	Rows     int                   `json:"rows"`
	Table    *engine.TableData     `json:"table"`
	Summary  *engine.TableData     `json:"summary,omitempty"`
	KPIs     engine.KPIs           `json:"kpis"`
	Charts   []*engine.ChartConfig `json:"charts,omitempty"`
	Risky    *engine.TableData     `json:"risky,omitempty"`

	view engine.RecordView
}

// View returns the rows the answer is built from.
func (a *Answer) View() engine.RecordView { return a.view }

// WriteCSV writes the result table as CSV.
func (a *Answer) WriteCSV(w io.Writer) error {
	return engine.WriteCSV(w, a.Table)
}

// Ask plans and executes one question. An empty question executes nothing
// and answers with the base view. The only error is a cancelled context.
func (s *Service) Ask(ctx context.Context, req Request) (*Answer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	question := strings.TrimSpace(req.Question)
	base := req.Base.Apply(s.view)
	ans := &Answer{ID: uuid.NewString(), Question: question}

	if question == "" {
		ans.Trace = "no question asked; showing the base selection"
		s.present(ans, nil, base)
		return ans, nil
	}

	if strings.Contains(strings.ToLower(question), allDataPhrase) {
		base = engine.Subset(s.view, allRows(s.view.Len()))
	}

	tr := s.translator.Translate(ctx, question, s.sch)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	plan := tr.Plan
	res := engine.Execute(plan, base,
		engine.WithClock(s.now),
		engine.WithDateColumn(s.sch.DateColumn),
		engine.WithLogger(s.logger))

	ans.Plan = &plan
	ans.Source, ans.Model, ans.Note = tr.Source, tr.Model, tr.Note
	ans.Stages = res.Stages
	ans.Trace = buildTrace(tr, res)
	s.present(ans, &plan, res.View)

	s.logger.Info("question answered",
		zap.String("id", ans.ID),
		zap.String("source", ans.Source),
		zap.Int("base_rows", base.Len()),
		zap.Int("rows", ans.Rows))
	return ans, nil
}

// AskAll answers several questions concurrently. Answers keep the order of
// reqs. The first error cancels the remaining questions.
func (s *Service) AskAll(ctx context.Context, reqs []Request) ([]*Answer, error) {
	answers := make([]*Answer, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, req := range reqs {
		g.Go(func() error {
			ans, err := s.Ask(gctx, req)
			if err != nil {
				return fmt.Errorf("question %d: %w", i+1, err)
			}
			answers[i] = ans
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return answers, nil
}

func (s *Service) present(ans *Answer, plan *engine.Plan, view engine.RecordView) {
	ans.view = view
	ans.Rows = view.Len()
	ans.KPIs = engine.ComputeKPIs(view)
	ans.Risky = engine.BuildRiskyTable(view, s.sch)
	ans.Charts = engine.BuildDashboardCharts(view)

	var columns []string
	if plan != nil {
		columns = plan.Select
		ans.Summary = engine.BuildSummary(*plan, view, s.sch)
		if c := engine.BuildPlanChart(*plan, view, s.sch); c != nil {
			ans.Charts = append([]*engine.ChartConfig{c}, ans.Charts...)
		}
	}
	ans.Table = engine.BuildTable(view, s.sch, columns)
	ans.Table.Title = "Results"
}

// buildTrace summarizes how a question was answered.
func buildTrace(tr *translator.TranslateResult, res *engine.Result) string {
	var b strings.Builder

	b.WriteString("planner: " + tr.Source)
	if tr.Model != "" {
		b.WriteString(" (" + tr.Model + ")")
	}
	b.WriteString("\nplan: " + engine.DescribePlan(res.Plan))

	stages := make([]string, 0, len(res.Stages))
	for _, st := range res.Stages {
		if st.Skipped {
			stages = append(stages, st.Name+" skipped")
			continue
		}
		stages = append(stages, fmt.Sprintf("%s %d→%d", st.Name, st.Before, st.After))
	}
	b.WriteString("\nstages: " + strings.Join(stages, ", "))

	if tr.Note != "" {
		b.WriteString("\nnote: " + tr.Note)
	}

	js := res.Plan.JSON()
	if len(js) > maxTracePlanJSON {
		js = js[:maxTracePlanJSON] + "…"
	}
	b.WriteString("\njson: " + js)
	return b.String()
}

func allRows(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
