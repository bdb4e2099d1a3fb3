package translator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spektr-org/shipinsight/engine"
	"github.com/spektr-org/shipinsight/schema"
)

// ============================================================================
// REMOTE PLANNER — Language model with heuristic fallback
// ============================================================================
// Flow: rate limit → backend.Complete → ExtractJSON → Validate → Enrich →
// ValidatePlan. Any failure along the way returns the heuristic plan for the
// same question with a Note. Translate never returns an error.
// ============================================================================

// DefaultTimeout bounds one remote planning call.
const DefaultTimeout = 30 * time.Second

// Remote plans with a hosted model and falls back to the rule tables.
type Remote struct {
	backend   Completer
	heuristic *Heuristic
	limiter   *rate.Limiter
	timeout   time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// RemoteOption configures a Remote.
type RemoteOption func(*Remote)

// WithTimeout bounds each remote call.
func WithTimeout(d time.Duration) RemoteOption {
	return func(r *Remote) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRateLimit caps remote calls at perSecond with the given burst.
// A non-positive rate removes the cap.
func WithRateLimit(perSecond float64, burst int) RemoteOption {
	return func(r *Remote) {
		if perSecond <= 0 {
			r.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets the logger for fallback diagnostics.
func WithLogger(l *zap.Logger) RemoteOption {
	return func(r *Remote) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRemoteClock sets the clock used for "today" in prompts and fallbacks.
func WithRemoteClock(now func() time.Time) RemoteOption {
	return func(r *Remote) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRemote wraps a backend. A nil backend plans heuristically, with a note.
func NewRemote(backend Completer, opts ...RemoteOption) *Remote {
	r := &Remote{
		backend: backend,
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		timeout: DefaultTimeout,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.heuristic = NewHeuristic(WithClock(r.now))
	return r
}

// Translate implements Translator.
func (r *Remote) Translate(ctx context.Context, question string, sch schema.Config) *TranslateResult {
	if r.backend == nil {
		return r.fallback(question, sch, "", errors.New("no remote planner configured"))
	}
	model := r.backend.Model()

	plan, err := r.plan(ctx, question, sch)
	if err != nil {
		return r.fallback(question, sch, model, err)
	}
	return &TranslateResult{Plan: plan, Source: SourceRemote, Model: model}
}

func (r *Remote) plan(ctx context.Context, question string, sch schema.Config) (engine.Plan, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.limiter.Wait(ctx); err != nil {
		return engine.Plan{}, fmt.Errorf("rate limit: %w", err)
	}

	reply, err := r.backend.Complete(ctx, BuildMessages(question, sch, today(r.now())))
	if err != nil {
		return engine.Plan{}, err
	}
	payload, err := ExtractJSON(reply)
	if err != nil {
		return engine.Plan{}, err
	}

	plan := engine.Validate(payload, sch)
	plan = r.heuristic.Enrich(plan, question, sch)
	return engine.ValidatePlan(plan, sch), nil
}

func (r *Remote) fallback(question string, sch schema.Config, model string, cause error) *TranslateResult {
	note := fmt.Sprintf("remote planner unavailable (%v); used heuristic plan", cause)
	if errors.Is(cause, ErrNoToken) {
		note = "no API token configured; using heuristic planner"
	}
	r.logger.Warn("remote planning failed, falling back to heuristic",
		zap.String("model", model), zap.Error(cause))

	return &TranslateResult{
		Plan:   r.heuristic.Plan(question, sch),
		Source: SourceHeuristic,
		Model:  model,
		Note:   note,
	}
}
