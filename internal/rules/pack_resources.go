package rules

import (
	"strings"

	"github.com/codewithboateng/policylint/internal/ir"
)

const IDResourceCloseThrows = "resource-close-throws"

type ResourcePolicy struct {
	// Capabilities are the supertypes that make a type auto-closing.
	Capabilities []string
	// CloseMethod is the zero-argument closing operation.
	CloseMethod string
}

func ResourcePack(name, version string, p ResourcePolicy) Pack {
	caps := map[string]bool{}
	for _, c := range p.Capabilities {
		caps[ir.SimpleName(c)] = true
	}
	if len(caps) == 0 {
		caps["AutoCloseable"], caps["Closeable"] = true, true
	}
	closer := p.CloseMethod
	if closer == "" {
		closer = "close"
	}
	return Pack{
		Name:    name,
		Version: version,
		Rules: []Rule{{
			ID:        IDResourceCloseThrows,
			Category:  CategoryResourceLifecycle,
			Target:    NodeDeclaration,
			DeclKinds: []ir.DeclKind{ir.DeclMethod},
			Severity:  ir.SeverityWarning,
			Summary:   "Closing operations should be idempotent and declare no checked exceptions.",
			Message:   "{{.Qualified}} declares {{.Data.throws}}; closing operations should not throw",
			Predicate: closeThrows(caps, closer),
		}},
	}
}

// closeThrows flags any declared throws; checked and unchecked exceptions
// look the same without type information.
func closeThrows(caps map[string]bool, closer string) Predicate {
	return func(n Node) (*Match, error) {
		d := n.Decl
		if d.Name != closer || len(d.Parameters) > 0 || len(d.Throws) == 0 {
			return nil, nil
		}
		if d.Parent == nil || !implementsAny(d.Parent, caps) {
			return nil, nil
		}
		return &Match{Data: map[string]any{"throws": "throws " + strings.Join(d.Throws, ", ")}}, nil
	}
}

func implementsAny(d *ir.Declaration, caps map[string]bool) bool {
	for _, s := range d.Implements {
		// strip type arguments: Foo<Bar> -> Foo
		if i := strings.IndexByte(s, '<'); i >= 0 {
			s = s[:i]
		}
		if caps[ir.SimpleName(s)] {
			return true
		}
	}
	return false
}
