package rules

import (
	"regexp"

	"github.com/iancoleman/strcase"

	"github.com/codewithboateng/policylint/internal/ir"
)

const (
	IDNamingConstantCase = "naming-constant-case"
	IDNamingTypeCase     = "naming-type-case"
)

var (
	reConstant = regexp.MustCompile(`^[A-Z][A-Z0-9]*(_[A-Z0-9]+)*$`)
	reType     = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
)

type NamingPolicy struct {
	// ConstantExemptions are static final names allowed outside
	// SCREAMING_SNAKE_CASE. Default serialVersionUID.
	ConstantExemptions []string
}

func NamingPack(name, version string, p NamingPolicy) Pack {
	exempt := map[string]bool{}
	for _, e := range p.ConstantExemptions {
		exempt[e] = true
	}
	if len(exempt) == 0 {
		exempt["serialVersionUID"] = true
	}
	return Pack{
		Name:    name,
		Version: version,
		Rules: []Rule{
			{
				ID:        IDNamingConstantCase,
				Category:  CategoryNaming,
				Target:    NodeDeclaration,
				DeclKinds: []ir.DeclKind{ir.DeclField},
				Severity:  ir.SeverityInfo,
				Summary:   "Constants are named in SCREAMING_SNAKE_CASE.",
				Message:   "constant {{.Name}} should be named {{.Data.want}}",
				Predicate: constantCase(exempt),
			},
			{
				ID:        IDNamingTypeCase,
				Category:  CategoryNaming,
				Target:    NodeDeclaration,
				DeclKinds: []ir.DeclKind{ir.DeclType},
				Severity:  ir.SeverityInfo,
				Summary:   "Type names are UpperCamelCase.",
				Message:   "type {{.Name}} should be named {{.Data.want}}",
				Predicate: typeCase,
			},
		},
	}
}

func constantCase(exempt map[string]bool) Predicate {
	return func(n Node) (*Match, error) {
		d := n.Decl
		if !d.HasModifier("static") || !d.HasModifier("final") || exempt[d.Name] || reConstant.MatchString(d.Name) {
			return nil, nil
		}
		return &Match{Data: map[string]any{"want": strcase.ToScreamingSnake(d.Name)}}, nil
	}
}

func typeCase(n Node) (*Match, error) {
	if reType.MatchString(n.Decl.Name) {
		return nil, nil
	}
	return &Match{Data: map[string]any{"want": strcase.ToCamel(n.Decl.Name)}}, nil
}
