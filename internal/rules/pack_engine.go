package rules

import (
	"fmt"

	"github.com/codewithboateng/policylint/internal/ir"
)

// Reserved rule ids for findings the engine raises itself.
const (
	IDModelError        = "engine-model-error"
	IDRuleFailure       = "engine-rule-failure"
	IDSuppressionSyntax = "engine-suppression-syntax"
	// IDConfiguration tags the single finding of a report produced after a
	// fatal configuration error; no Registry exists in that case.
	IDConfiguration = "engine-configuration"
)

// EnginePack holds the rules every Registry carries. They have no
// predicate; the evaluator and aggregator emit their findings directly.
func EnginePack() Pack {
	return Pack{
		Name:    "engine",
		Version: ir.Version,
		Rules: []Rule{
			{
				ID:       IDModelError,
				Category: CategoryEngine,
				Target:   NodeUnit,
				Severity: ir.SeverityError,
				Summary:  "Parser output violates the symbol model contract; the unit was skipped.",
				Message:  "unit skipped: {{.Data.reason}}",
			},
			{
				ID:       IDRuleFailure,
				Category: CategoryEngine,
				Target:   NodeUnit,
				Severity: ir.SeverityError,
				Summary:  "A rule predicate failed; other rules still ran.",
				Message:  "internal error in rule {{.Data.rule}}: {{.Data.reason}}",
			},
			{
				ID:       IDSuppressionSyntax,
				Category: CategoryEngine,
				Target:   NodeUnit,
				Severity: ir.SeverityInfo,
				Summary:  "Malformed inline suppression directive.",
				Message:  "malformed suppression directive: {{.Data.reason}}",
			},
		},
	}
}

// EngineFinding builds a finding for one of the reserved engine rules.
func (r *Registry) EngineFinding(id, unit string, span ir.Span, data map[string]any) ir.Finding {
	f := ir.Finding{RuleID: id, Severity: ir.SeverityError, Unit: unit, Span: span}
	rule, ok := r.Get(id)
	if !ok {
		f.Message = fmt.Sprint(data)
		return f
	}
	f.Severity = rule.Severity
	msg, err := rule.Render(Node{Kind: NodeUnit}, &Match{Data: data})
	if err != nil {
		msg = rule.Summary
	}
	f.Message = msg
	return f
}
