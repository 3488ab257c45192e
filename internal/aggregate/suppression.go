package aggregate

import (
	"fmt"
	"strings"

	"github.com/codewithboateng/policylint/internal/ir"
	"github.com/codewithboateng/policylint/internal/rules"
)

// DirectivePrefix introduces every inline suppression directive.
const DirectivePrefix = "policylint:"

// SuppressionSyntaxError describes a malformed inline directive.
type SuppressionSyntaxError struct {
	Unit   string
	Span   ir.Span
	Text   string
	Reason string
}

func (e *SuppressionSyntaxError) Error() string {
	return fmt.Sprintf("%s:%s: malformed directive %q: %s", e.Unit, e.Span.Start, e.Text, e.Reason)
}

type suppression struct {
	all  bool
	ids  map[string]bool
	span ir.Span
}

// covers reports whether the suppression silences f. Engine findings are
// only silenced by naming their id explicitly.
func (s suppression) covers(f ir.Finding) bool {
	if !s.span.Contains(f.Span) {
		return false
	}
	if s.ids[f.RuleID] {
		return true
	}
	return s.all && !strings.HasPrefix(f.RuleID, "engine-")
}

// parseDirective reads "policylint:disable <all|id[,id...]> [-- reason]".
func parseDirective(unit string, d ir.Directive, reg *rules.Registry) (suppression, error) {
	fail := func(format string, args ...any) (suppression, error) {
		return suppression{}, &SuppressionSyntaxError{Unit: unit, Span: d.Span, Text: d.Text, Reason: fmt.Sprintf(format, args...)}
	}
	text := strings.TrimSpace(d.Text)
	if !strings.HasPrefix(text, DirectivePrefix) {
		return fail("missing %q prefix", DirectivePrefix)
	}
	text = strings.TrimPrefix(text, DirectivePrefix)
	if i := strings.Index(text, "--"); i >= 0 {
		text = text[:i]
	}
	verb, rest, _ := strings.Cut(strings.TrimSpace(text), " ")
	if verb != "disable" {
		return fail("unknown verb %q", verb)
	}
	s := suppression{ids: map[string]bool{}, span: d.Span}
	for _, id := range strings.Split(rest, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if id == "all" {
			s.all = true
			continue
		}
		if _, ok := reg.Get(id); !ok {
			return fail("unknown rule %q", id)
		}
		s.ids[id] = true
	}
	if !s.all && len(s.ids) == 0 {
		return fail("no rule named")
	}
	return s, nil
}
