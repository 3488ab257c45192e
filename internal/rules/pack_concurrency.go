package rules

import "github.com/codewithboateng/policylint/internal/ir"

const IDConcurrencyUnguardedField = "concurrency-unguarded-field"

type ConcurrencyPolicy struct {
	// Markers declare a type thread-safe. Default ThreadSafe, Immutable.
	Markers []string
	// Guard documents the lock protecting a field. Default GuardedBy.
	Guard string
}

func ConcurrencyPack(name, version string, p ConcurrencyPolicy) Pack {
	markers := p.Markers
	if len(markers) == 0 {
		markers = []string{"ThreadSafe", "Immutable"}
	}
	guard := p.Guard
	if guard == "" {
		guard = "GuardedBy"
	}
	return Pack{
		Name:    name,
		Version: version,
		Rules: []Rule{{
			ID:        IDConcurrencyUnguardedField,
			Category:  CategoryConcurrency,
			Target:    NodeDeclaration,
			DeclKinds: []ir.DeclKind{ir.DeclField},
			Severity:  ir.SeverityWarning,
			Summary:   "Mutable fields of thread-safe types must be final, volatile or guarded.",
			Message:   "field {{.Name}} of @{{.Data.marker}} type {{.Data.owner}} is mutable and has no @{{.Data.guard}}",
			Predicate: unguardedField(markers, guard),
		}},
	}
}

func unguardedField(markers []string, guard string) Predicate {
	return func(n Node) (*Match, error) {
		d := n.Decl
		if d.Parent == nil || d.HasModifier("final") || d.HasModifier("volatile") || d.Annotation(guard) != nil {
			return nil, nil
		}
		for _, m := range markers {
			if d.Parent.Annotation(m) != nil {
				return &Match{Data: map[string]any{"marker": ir.SimpleName(m), "owner": d.Parent.Name, "guard": guard}}, nil
			}
		}
		return nil, nil
	}
}
