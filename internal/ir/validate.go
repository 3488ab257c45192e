package ir

import (
	"fmt"
	"strings"
)

// ModelError reports parser output that violates the symbol-model contract.
// It is scoped to a single unit.
type ModelError struct {
	Unit   string
	Path   string // declaration path inside the unit, e.g. "Outer.Inner#close"
	Span   Span
	Reason string
}

func (e *ModelError) Error() string {
	var b strings.Builder
	b.WriteString("model error in ")
	b.WriteString(e.Unit)
	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
	}
	if !e.Span.IsZero() {
		b.WriteString(" [")
		b.WriteString(e.Span.String())
		b.WriteString("]")
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

// Validate links the unit and checks the span and structure invariants.
// The first violation is returned.
func (u *SourceUnit) Validate() error {
	if strings.TrimSpace(u.Path) == "" {
		return &ModelError{Unit: "(unnamed)", Reason: "unit has no path"}
	}
	if u.Bounds().IsZero() {
		return &ModelError{Unit: u.Path, Reason: "unit has no line index"}
	}
	u.Link()

	fail := func(d *Declaration, s Span, format string, args ...any) error {
		me := &ModelError{Unit: u.Path, Span: s, Reason: fmt.Sprintf(format, args...)}
		if d != nil {
			me.Path = u.QualifiedName(d)
		}
		return me
	}
	inUnit := func(s Span) bool {
		for _, p := range [2]Position{s.Start, s.End} {
			if p.Line < 1 || p.Line > len(u.Lines) || p.Column < 1 || p.Column > u.Lines[p.Line-1]+1 {
				return false
			}
		}
		return true
	}

	for _, im := range u.Imports {
		if !im.Span.IsZero() && !inUnit(im.Span) {
			return fail(nil, im.Span, "import %q outside unit bounds", im.Path)
		}
	}
	for _, dir := range u.Directives {
		if !inUnit(dir.Span) {
			return fail(nil, dir.Span, "directive outside unit bounds")
		}
	}

	var err error
	u.Walk(func(d *Declaration) bool {
		err = u.validateDecl(d, inUnit, fail)
		return err == nil
	})
	if err != nil {
		return err
	}
	for _, d := range u.Declarations {
		if d == nil {
			return fail(nil, Span{}, "nil top-level declaration")
		}
	}
	return nil
}

func (u *SourceUnit) validateDecl(d *Declaration, inUnit func(Span) bool, fail func(*Declaration, Span, string, ...any) error) error {
	if !d.Kind.IsValid() {
		return fail(d, d.Span, "unknown declaration kind %q", d.Kind)
	}
	if d.Name == "" {
		return fail(d, d.Span, "declaration without name")
	}
	if d.Span.Empty() {
		return fail(d, d.Span, "empty declaration span")
	}
	if !inUnit(d.Span) {
		return fail(d, d.Span, "declaration span outside unit bounds")
	}
	if d.Parent != nil && !d.Parent.Span.Contains(d.Span) {
		return fail(d, d.Span, "member span outside enclosing type %s", d.Parent.Name)
	}
	if d.Kind != DeclType && len(d.Members) > 0 {
		return fail(d, d.Span, "%s declaration with members", d.Kind)
	}
	for _, m := range d.Members {
		if m == nil {
			return fail(d, d.Span, "nil member")
		}
	}
	for _, a := range d.Annotations {
		if a == nil || a.Name == "" {
			return fail(d, d.Span, "annotation without name")
		}
		if !d.Span.Contains(a.Span) || a.Span.Empty() {
			return fail(d, a.Span, "annotation @%s outside its declaration", a.Name)
		}
	}
	if doc := d.Doc; doc != nil {
		if doc.Span.Empty() || !inUnit(doc.Span) {
			return fail(d, doc.Span, "doc comment span outside unit bounds")
		}
		for _, t := range doc.Tags {
			if t.Kind == "" {
				return fail(d, t.Span, "doc tag without kind")
			}
			if !doc.Span.Contains(t.Span) {
				return fail(d, t.Span, "doc tag @%s outside its comment", t.Kind)
			}
		}
	}
	for _, h := range d.Handlers {
		if !d.Span.Contains(h.Span) {
			return fail(d, h.Span, "exception handler outside its method")
		}
	}
	for _, r := range d.Resources {
		if !d.Span.Contains(r.Span) {
			return fail(d, r.Span, "resource scope outside its method")
		}
	}
	return nil
}
