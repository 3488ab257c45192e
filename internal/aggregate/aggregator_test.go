package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewithboateng/policylint/internal/ir"
	"github.com/codewithboateng/policylint/internal/rules"
)

func sp(l1, c1, l2, c2 int) ir.Span {
	return ir.Span{Start: ir.Position{Line: l1, Column: c1}, End: ir.Position{Line: l2, Column: c2}}
}

func testRegistry(t *testing.T) *rules.Registry {
	t.Helper()
	none := func(rules.Node) (*rules.Match, error) { return nil, nil }
	p := rules.Pack{Name: "test", Version: "1"}
	for _, id := range []string{"naming-a", "naming-b"} {
		p.Rules = append(p.Rules, rules.Rule{
			ID: id, Category: rules.CategoryNaming, Target: rules.NodeDeclaration,
			Severity: ir.SeverityWarning, Message: "m", Predicate: none,
		})
	}
	reg, err := rules.NewRegistry(rules.Settings{}, p)
	require.NoError(t, err)
	return reg
}

func finding(rule, unit string, s ir.Span, sev ir.Severity) ir.Finding {
	return ir.Finding{RuleID: rule, Severity: sev, Unit: unit, Span: s, Message: rule + " at " + s.String()}
}

func TestReport_OrdersAcrossBatches(t *testing.T) {
	a := New(testRegistry(t))
	a.Add(Batch{Unit: "b.java", Findings: []ir.Finding{
		finding("naming-b", "b.java", sp(2, 1, 2, 5), ir.SeverityWarning),
	}})
	a.Add(Batch{Unit: "a.java", Findings: []ir.Finding{
		finding("naming-b", "a.java", sp(4, 1, 4, 5), ir.SeverityWarning),
		finding("naming-b", "a.java", sp(1, 3, 1, 5), ir.SeverityWarning),
		finding("naming-a", "a.java", sp(1, 3, 1, 9), ir.SeverityError),
	}})

	rep := a.Report()
	var got []string
	for _, f := range rep.Findings {
		got = append(got, f.Unit+" "+f.Span.Start.String()+" "+f.RuleID)
	}
	assert.Equal(t, []string{
		"a.java 1:3 naming-a",
		"a.java 1:3 naming-b",
		"a.java 4:1 naming-b",
		"b.java 2:1 naming-b",
	}, got)
	assert.Equal(t, ir.Summary{Error: 1, Warning: 3, Units: 2}, rep.Summary)
	assert.True(t, rep.Failed())
}

func TestReport_Deduplicates(t *testing.T) {
	a := New(testRegistry(t))
	f := finding("naming-a", "a.java", sp(1, 1, 1, 4), ir.SeverityWarning)
	a.Add(Batch{Unit: "a.java", Findings: []ir.Finding{f, f}})

	rep := a.Report()
	require.Len(t, rep.Findings, 1)
	assert.Equal(t, 1, rep.Summary.Warning)
}

func TestReport_DedupeKeepsEngineSubjects(t *testing.T) {
	a := New(testRegistry(t))
	one := finding(rules.IDRuleFailure, "a.java", sp(1, 1, 9, 2), ir.SeverityError)
	one.Subject, one.Message = "naming-b", "internal error in rule naming-b: boom"
	two := one
	two.Subject, two.Message = "naming-a", "internal error in rule naming-a: boom"
	a.Add(Batch{Unit: "a.java", Findings: []ir.Finding{one, two, one}})

	rep := a.Report()
	require.Len(t, rep.Findings, 2)
	assert.Equal(t, "naming-a", rep.Findings[0].Subject)
	assert.Equal(t, "naming-b", rep.Findings[1].Subject)
	assert.Equal(t, 2, rep.Summary.Error)
}

func TestReport_EmptyIsNotNil(t *testing.T) {
	rep := New(testRegistry(t)).Report()
	assert.NotNil(t, rep.Findings)
	assert.False(t, rep.Failed())
}

func TestReport_InlineSuppression(t *testing.T) {
	a := New(testRegistry(t))
	a.Add(Batch{
		Unit: "a.java",
		Findings: []ir.Finding{
			finding("naming-a", "a.java", sp(3, 1, 3, 9), ir.SeverityWarning),
			finding("naming-b", "a.java", sp(3, 1, 3, 9), ir.SeverityWarning),
			finding("naming-a", "a.java", sp(9, 1, 9, 9), ir.SeverityWarning),
		},
		Directives: []ir.Directive{{Text: "policylint:disable naming-a -- generated", Span: sp(2, 1, 5, 1)}},
	})

	rep := a.Report()
	require.Len(t, rep.Findings, 3)
	assert.True(t, rep.Findings[0].Suppressed)
	assert.Equal(t, "inline", rep.Findings[0].SuppressedBy)
	assert.False(t, rep.Findings[1].Suppressed, "other rules stay active")
	assert.False(t, rep.Findings[2].Suppressed, "outside the directive span")
	assert.Equal(t, 2, rep.Summary.Warning)
	assert.Equal(t, 1, rep.Summary.Suppressed)
}

func TestReport_AllDoesNotSilenceEngineFindings(t *testing.T) {
	reg := testRegistry(t)
	a := New(reg)
	crash := reg.EngineFinding(rules.IDRuleFailure, "a.java", sp(3, 1, 3, 9), map[string]any{"rule": "naming-a", "reason": "boom"})
	a.Add(Batch{
		Unit:       "a.java",
		Findings:   []ir.Finding{crash, finding("naming-b", "a.java", sp(3, 1, 3, 9), ir.SeverityWarning)},
		Directives: []ir.Directive{{Text: "policylint:disable all", Span: sp(1, 1, 9, 1)}},
	})

	rep := a.Report()
	require.Len(t, rep.Findings, 2)
	assert.Equal(t, rules.IDRuleFailure, rep.Findings[0].RuleID)
	assert.False(t, rep.Findings[0].Suppressed)
	assert.True(t, rep.Findings[1].Suppressed)

	b := New(reg)
	b.Add(Batch{
		Unit:       "a.java",
		Findings:   []ir.Finding{crash},
		Directives: []ir.Directive{{Text: "policylint:disable engine-rule-failure", Span: sp(1, 1, 9, 1)}},
	})
	assert.True(t, b.Report().Findings[0].Suppressed)
}

func TestReport_MalformedDirectives(t *testing.T) {
	cases := map[string]string{
		"no prefix":    "disable naming-a",
		"unknown verb": "policylint:enable naming-a",
		"unknown rule": "policylint:disable naming-zzz",
		"no rule":      "policylint:disable -- why",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			a := New(testRegistry(t))
			f := finding("naming-a", "a.java", sp(3, 1, 3, 9), ir.SeverityWarning)
			a.Add(Batch{
				Unit:       "a.java",
				Findings:   []ir.Finding{f},
				Directives: []ir.Directive{{Text: text, Span: sp(2, 1, 5, 1)}},
			})
			rep := a.Report()
			require.Len(t, rep.Findings, 2)
			assert.Equal(t, rules.IDSuppressionSyntax, rep.Findings[0].RuleID)
			assert.Equal(t, ir.SeverityInfo, rep.Findings[0].Severity)
			assert.False(t, rep.Findings[1].Suppressed, "a malformed directive suppresses nothing")
			assert.Equal(t, 1, rep.Summary.Info)
		})
	}
}

func TestReport_Waivers(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	revoked := now.Add(-time.Hour)
	ws := []ir.Waiver{
		{ID: 1, RuleID: "naming-a", ExpiresAt: now.Add(-time.Minute)},
		{ID: 2, RuleID: "NAMING-A", Unit: "a.java", PatternSub: "3:1", ExpiresAt: now.Add(time.Hour)},
		{ID: 3, RuleID: "naming-b", ExpiresAt: now.Add(time.Hour), RevokedAt: &revoked},
	}
	a := New(testRegistry(t), WithWaivers(ws), WithClock(func() time.Time { return now }))
	a.Add(Batch{Unit: "a.java", Findings: []ir.Finding{
		finding("naming-a", "a.java", sp(3, 1, 3, 9), ir.SeverityWarning),
		finding("naming-a", "a.java", sp(7, 1, 7, 9), ir.SeverityWarning),
		finding("naming-b", "a.java", sp(8, 1, 8, 9), ir.SeverityWarning),
	}})

	rep := a.Report()
	require.Len(t, rep.Findings, 3)
	assert.Equal(t, "waiver:2", rep.Findings[0].SuppressedBy)
	assert.False(t, rep.Findings[1].Suppressed, "pattern does not match")
	assert.False(t, rep.Findings[2].Suppressed, "revoked")
	assert.Equal(t, 2, rep.Summary.Warning)
}

func TestReport_SkippedUnitsCounted(t *testing.T) {
	reg := testRegistry(t)
	a := New(reg)
	a.Add(Batch{Unit: "bad.java", Skipped: true, Findings: []ir.Finding{
		reg.EngineFinding(rules.IDModelError, "bad.java", ir.Span{}, map[string]any{"reason": "inverted span"}),
	}})
	a.Add(Batch{Unit: "ok.java"})

	rep := a.Report()
	assert.Equal(t, 2, rep.Summary.Units)
	assert.Equal(t, 1, rep.Summary.Skipped)
	require.Len(t, rep.Findings, 1)
	assert.Equal(t, "unit skipped: inverted span", rep.Findings[0].Message)
}
