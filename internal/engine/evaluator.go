package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codewithboateng/policylint/internal/aggregate"
	"github.com/codewithboateng/policylint/internal/ir"
	"github.com/codewithboateng/policylint/internal/rules"
)

// Evaluator applies a Registry to one unit at a time. It holds no mutable
// state and may be shared by workers.
type Evaluator struct {
	reg *rules.Registry
	log *slog.Logger
}

func NewEvaluator(reg *rules.Registry, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{reg: reg, log: logger}
}

// Evaluate validates u and runs every applicable rule over it. The error is
// ctx.Err() when the context ends mid-unit; the batch is then incomplete
// and must be discarded.
func (e *Evaluator) Evaluate(ctx context.Context, u *ir.SourceUnit) (aggregate.Batch, error) {
	if u == nil {
		return e.Reject(&ir.ModelError{Unit: "(nil)", Reason: "nil unit"}), nil
	}
	if err := u.Validate(); err != nil {
		var me *ir.ModelError
		if !errors.As(err, &me) {
			me = &ir.ModelError{Unit: u.Path, Reason: err.Error()}
		}
		return e.Reject(me), nil
	}

	st := &unitState{
		ev:     e,
		unit:   u,
		failed: map[string]bool{},
		batch:  aggregate.Batch{Unit: u.Path, Directives: append([]ir.Directive(nil), u.Directives...)},
	}
	var err error
	u.Walk(func(d *ir.Declaration) bool {
		if err = ctx.Err(); err != nil {
			return false
		}
		st.declaration(d)
		return true
	})
	if err != nil {
		return aggregate.Batch{}, err
	}
	return st.batch, nil
}

// Reject turns an ingestion failure into the single finding of a skipped unit.
func (e *Evaluator) Reject(me *ir.ModelError) aggregate.Batch {
	e.log.Warn("unit skipped", "unit", me.Unit, "err", me.Error())
	reason := me.Reason
	if me.Path != "" {
		reason = me.Path + ": " + reason
	}
	f := e.reg.EngineFinding(rules.IDModelError, me.Unit, me.Span, map[string]any{"reason": reason})
	return aggregate.Batch{Unit: me.Unit, Findings: []ir.Finding{f}, Skipped: true}
}

type unitState struct {
	ev     *Evaluator
	unit   *ir.SourceUnit
	failed map[string]bool // rules that already failed on this unit
	batch  aggregate.Batch
}

func (s *unitState) declaration(d *ir.Declaration) {
	settings := s.ev.reg.Settings()
	for _, r := range s.ev.reg.ForKind(rules.NodeDeclaration) {
		if r.AppliesTo(d) {
			s.apply(r, rules.Node{Kind: rules.NodeDeclaration, Unit: s.unit, Decl: d, Settings: settings})
		}
	}
	for _, a := range d.Annotations {
		for _, r := range s.ev.reg.ForKind(rules.NodeAnnotation) {
			s.apply(r, rules.Node{Kind: rules.NodeAnnotation, Unit: s.unit, Decl: d, Annotation: a, Settings: settings})
		}
		s.batch.Directives = append(s.batch.Directives, suppressWarnings(d, a)...)
	}
	if d.Doc != nil {
		for _, r := range s.ev.reg.ForKind(rules.NodeDocComment) {
			s.apply(r, rules.Node{Kind: rules.NodeDocComment, Unit: s.unit, Decl: d, Doc: d.Doc, Settings: settings})
		}
	}
}

// apply runs one predicate. A failing rule yields one internal finding
// and is skipped for the rest of the unit.
func (s *unitState) apply(r *rules.Rule, n rules.Node) {
	if s.failed[r.ID] {
		return
	}
	m, msg, err := s.call(r, n)
	if err != nil {
		s.failed[r.ID] = true
		s.ev.log.Warn("rule failed", "rule", r.ID, "unit", s.unit.Path, "err", err)
		f := s.ev.reg.EngineFinding(rules.IDRuleFailure, s.unit.Path, n.Span(),
			map[string]any{"rule": r.ID, "reason": errReason(err)})
		f.Subject = r.ID
		s.batch.Findings = append(s.batch.Findings, f)
		return
	}
	if m == nil {
		return
	}
	sp := m.Span
	if sp.IsZero() {
		sp = n.Span()
	}
	s.batch.Findings = append(s.batch.Findings, ir.Finding{
		RuleID:   r.ID,
		Severity: r.Severity,
		Unit:     s.unit.Path,
		Span:     sp,
		Message:  msg,
	})
}

func (s *unitState) call(r *rules.Rule, n rules.Node) (m *rules.Match, msg string, err error) {
	defer func() {
		if p := recover(); p != nil {
			m, msg = nil, ""
			err = &rules.RulePredicateError{RuleID: r.ID, Unit: s.unit.Path, Panic: p}
		}
	}()
	m, err = r.Predicate(n)
	if err != nil {
		return nil, "", &rules.RulePredicateError{RuleID: r.ID, Unit: s.unit.Path, Err: err}
	}
	if m == nil {
		return nil, "", nil
	}
	msg, err = r.Render(n, m)
	if err != nil {
		return nil, "", &rules.RulePredicateError{RuleID: r.ID, Unit: s.unit.Path, Err: fmt.Errorf("render message: %w", err)}
	}
	return m, msg, nil
}

func errReason(err error) string {
	var pe *rules.RulePredicateError
	if errors.As(err, &pe) {
		if pe.Panic != nil {
			return fmt.Sprintf("panic: %v", pe.Panic)
		}
		if pe.Err != nil {
			return pe.Err.Error()
		}
	}
	return err.Error()
}

// suppressWarnings converts @SuppressWarnings("policylint:<id>") into a
// directive covering the annotated declaration.
func suppressWarnings(d *ir.Declaration, a *ir.Annotation) []ir.Directive {
	if ir.SimpleName(a.Name) != "SuppressWarnings" {
		return nil
	}
	var ids []string
	for _, arg := range a.Args {
		if arg.Name != "" && arg.Name != "value" {
			continue
		}
		for _, v := range strings.Split(strings.Trim(arg.Value, "{} "), ",") {
			v = strings.Trim(strings.TrimSpace(v), `"`)
			if id, ok := strings.CutPrefix(v, aggregate.DirectivePrefix); ok {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return []ir.Directive{{Text: aggregate.DirectivePrefix + "disable " + strings.Join(ids, ","), Span: d.Span}}
}
