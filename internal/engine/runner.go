package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/codewithboateng/policylint/internal/aggregate"
	"github.com/codewithboateng/policylint/internal/ir"
	"github.com/codewithboateng/policylint/internal/rules"
)

// Runner evaluates many units in parallel and aggregates the result.
type Runner struct {
	reg     *rules.Registry
	eval    *Evaluator
	workers int
	waivers []ir.Waiver
	now     func() time.Time

	log    *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter
	ins    *instruments
}

type Option func(*Runner)

// WithWorkers bounds the number of units evaluated at once.
func WithWorkers(n int) Option { return func(r *Runner) { r.workers = n } }

func WithLogger(l *slog.Logger) Option { return func(r *Runner) { r.log = l } }

func WithTracer(t trace.Tracer) Option { return func(r *Runner) { r.tracer = t } }

func WithMeter(m metric.Meter) Option { return func(r *Runner) { r.meter = m } }

// WithWaivers passes stored waivers to the aggregator.
func WithWaivers(ws []ir.Waiver) Option { return func(r *Runner) { r.waivers = ws } }

func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

func NewRunner(reg *rules.Registry, opts ...Option) (*Runner, error) {
	r := &Runner{reg: reg, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	if r.workers <= 0 {
		r.workers = runtime.GOMAXPROCS(0)
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(instrumentationName)
	}
	if r.meter == nil {
		r.meter = otel.Meter(instrumentationName)
	}
	ins, err := newInstruments(r.meter)
	if err != nil {
		return nil, fmt.Errorf("engine telemetry: %w", err)
	}
	r.ins = ins
	r.eval = NewEvaluator(reg, r.log)
	return r, nil
}

// Run evaluates units (and records already-rejected inputs) and returns the
// aggregated report. When ctx ends early, the report covers the units that
// completed and the error is ctx.Err().
func (r *Runner) Run(ctx context.Context, units []*ir.SourceUnit, rejected ...*ir.ModelError) (ir.Report, error) {
	ctx, span := r.tracer.Start(ctx, "engine.run", trace.WithAttributes(
		attribute.Int("units.count", len(units)),
		attribute.Int("workers", r.workers),
	))
	defer span.End()

	start := time.Now()
	agg := aggregate.New(r.reg, aggregate.WithWaivers(r.waivers), aggregate.WithClock(r.now))
	for _, me := range rejected {
		b := r.eval.Reject(me)
		r.ins.recordUnit(ctx, outcomeSkipped, b.Findings, 0)
		agg.Add(b)
	}

	var g errgroup.Group
	g.SetLimit(r.workers)
	for _, u := range units {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r.evaluate(ctx, u, agg)
			return nil
		})
	}
	_ = g.Wait()

	rep := agg.Report()
	span.SetAttributes(
		attribute.Int("findings.error", rep.Summary.Error),
		attribute.Int("findings.warning", rep.Summary.Warning),
		attribute.Int("findings.info", rep.Summary.Info),
		attribute.Int("findings.suppressed", rep.Summary.Suppressed),
	)
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "run aborted")
		span.RecordError(err)
		r.log.Warn("analysis aborted", "completed_units", rep.Summary.Units, "err", err)
		return rep, err
	}
	r.log.Info("analysis complete",
		"units", rep.Summary.Units,
		"skipped", rep.Summary.Skipped,
		"errors", rep.Summary.Error,
		"warnings", rep.Summary.Warning,
		"infos", rep.Summary.Info,
		"suppressed", rep.Summary.Suppressed,
		"took", time.Since(start),
	)
	return rep, nil
}

func (r *Runner) evaluate(ctx context.Context, u *ir.SourceUnit, agg *aggregate.Aggregator) {
	if ctx.Err() != nil {
		return
	}
	path := "(nil)"
	if u != nil {
		path = u.Path
	}
	ctx, span := r.tracer.Start(ctx, "engine.unit", trace.WithAttributes(attribute.String("unit.id", path)))
	defer span.End()

	start := time.Now()
	b, err := r.safeEvaluate(ctx, u, path)
	took := time.Since(start)
	if err != nil {
		// partial units are never reported
		span.SetStatus(codes.Error, "cancelled")
		r.ins.recordUnit(ctx, outcomeCancelled, nil, took)
		return
	}
	outcome := outcomeOK
	if b.Skipped {
		outcome = outcomeSkipped
	}
	span.SetAttributes(attribute.Int("findings.count", len(b.Findings)))
	r.ins.recordUnit(ctx, outcome, b.Findings, took)
	r.log.Debug("unit evaluated", "unit", path, "findings", len(b.Findings), "took", took)
	agg.Add(b)
}

// safeEvaluate keeps a crash outside any predicate (for instance in
// malformed parser output) scoped to its unit.
func (r *Runner) safeEvaluate(ctx context.Context, u *ir.SourceUnit, path string) (b aggregate.Batch, err error) {
	defer func() {
		if p := recover(); p != nil {
			b, err = r.eval.Reject(&ir.ModelError{Unit: path, Reason: fmt.Sprintf("unit could not be traversed: %v", p)}), nil
		}
	}()
	return r.eval.Evaluate(ctx, u)
}
