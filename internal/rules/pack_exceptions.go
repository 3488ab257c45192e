package rules

import (
	"strings"

	"github.com/codewithboateng/policylint/internal/ir"
)

const IDExceptionEmptyHandler = "exception-empty-handler"

func ExceptionPack(name, version string) Pack {
	return Pack{
		Name:    name,
		Version: version,
		Rules: []Rule{{
			ID:        IDExceptionEmptyHandler,
			Category:  CategoryExceptionHandling,
			Target:    NodeDeclaration,
			DeclKinds: []ir.DeclKind{ir.DeclMethod},
			Severity:  ir.SeverityWarning,
			Summary:   "Caught exceptions are handled or the empty handler explains why.",
			Message:   "{{.Qualified}} silently swallows {{.Data.caught}}",
			Predicate: emptyHandler,
		}},
	}
}

// emptyHandler reports the first empty, uncommented handler of a method.
func emptyHandler(n Node) (*Match, error) {
	for _, h := range n.Decl.Handlers {
		if h.Empty && !h.Commented {
			return &Match{Span: h.Span, Data: map[string]any{"caught": strings.Join(h.Caught, " | ")}}, nil
		}
	}
	return nil, nil
}
