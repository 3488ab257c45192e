package ir

import (
	"strings"
)

// Link sets the non-owning back references (member -> parent type,
// annotation -> declaration, doc -> declaration), derives the doc summary
// flag and builds the qualified-name index. It is idempotent.
func (u *SourceUnit) Link() {
	if u.linked {
		return
	}
	u.byName = map[string]*Declaration{}
	var link func(parent *Declaration, ds []*Declaration)
	link = func(parent *Declaration, ds []*Declaration) {
		for _, d := range ds {
			if d == nil {
				continue
			}
			d.Parent = parent
			for _, a := range d.Annotations {
				if a != nil {
					a.Owner = d
				}
			}
			if d.Doc != nil {
				d.Doc.Owner = d
				_, d.Doc.SummaryTerminated = SummaryFragment(d.Doc.Summary)
			}
			qn := u.QualifiedName(d)
			if _, dup := u.byName[qn]; !dup {
				u.byName[qn] = d
			}
			link(d, d.Members)
		}
	}
	link(nil, u.Declarations)
	u.linked = true
}

// Bounds returns the span of the whole unit derived from Lines.
func (u *SourceUnit) Bounds() Span {
	if len(u.Lines) == 0 {
		return Span{}
	}
	last := len(u.Lines)
	return Span{
		Start: Position{Line: 1, Column: 1},
		End:   Position{Line: last, Column: u.Lines[last-1] + 1},
	}
}

// Walk visits declarations depth-first, parents before their members.
// Returning false from fn stops the walk.
func (u *SourceUnit) Walk(fn func(d *Declaration) bool) {
	var walk func(ds []*Declaration) bool
	walk = func(ds []*Declaration) bool {
		for _, d := range ds {
			if d == nil {
				continue
			}
			if !fn(d) {
				return false
			}
			if !walk(d.Members) {
				return false
			}
		}
		return true
	}
	walk(u.Declarations)
}

// AllDeclarations returns every declaration in Walk order.
func (u *SourceUnit) AllDeclarations() []*Declaration {
	var out []*Declaration
	u.Walk(func(d *Declaration) bool {
		out = append(out, d)
		return true
	})
	return out
}

// QualifiedName joins the package, enclosing types and the declaration name.
// Methods and fields are separated from their type by '#'.
func (u *SourceUnit) QualifiedName(d *Declaration) string {
	var chain []string
	for p := d.Parent; p != nil; p = p.Parent {
		chain = append(chain, p.Name)
	}
	var b strings.Builder
	if u.Package != "" {
		b.WriteString(u.Package)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(chain[i])
	}
	if b.Len() > 0 {
		if d.Kind == DeclType {
			b.WriteByte('.')
		} else {
			b.WriteByte('#')
		}
	}
	b.WriteString(d.Name)
	return b.String()
}

// Lookup finds a declaration by qualified name. Overloaded methods resolve
// to the first one in source order.
func (u *SourceUnit) Lookup(qname string) (*Declaration, bool) {
	u.Link()
	d, ok := u.byName[qname]
	return d, ok
}

// AnnotationTarget returns the declaration an annotation decorates.
func (u *SourceUnit) AnnotationTarget(a *Annotation) (*Declaration, bool) {
	if a == nil {
		return nil, false
	}
	u.Link()
	return a.Owner, a.Owner != nil
}

// ResolveName maps a simple or partially qualified name to its qualified
// form through the unit's single-type imports. Unresolvable names are
// returned as written.
func (u *SourceUnit) ResolveName(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	for _, im := range u.Imports {
		if !im.Static && SimpleName(im.Path) == name {
			return im.Path
		}
	}
	return name
}

// SimpleName strips any qualifier from name.
func SimpleName(name string) string {
	name = strings.TrimPrefix(name, "@")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// SummaryFragment returns the first sentence of a doc summary: the text up
// to and including the first period that is followed by whitespace or ends
// the text. Abbreviations such as "e.g." end the fragment early.
func SummaryFragment(summary string) (string, bool) {
	s := strings.TrimSpace(summary)
	for i := 0; i < len(s); i++ {
		if s[i] != '.' {
			continue
		}
		if i == len(s)-1 || isSpace(s[i+1]) {
			return s[:i+1], true
		}
	}
	return s, false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
