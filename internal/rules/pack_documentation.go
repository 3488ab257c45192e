package rules

import (
	"strings"

	"github.com/codewithboateng/policylint/internal/ir"
)

const (
	IDDocTagOrder          = "doc-tag-order"
	IDDocDeprecatedMatch   = "doc-deprecated-mismatch"
	IDDocSummaryPeriod     = "doc-summary-period"
	IDDocMissingPublic     = "doc-missing-public"
	defaultDeprecationName = "Deprecated"
)

type DocPolicy struct {
	// DeprecationAnnotation pairs with the @deprecated tag. Default "Deprecated".
	DeprecationAnnotation string
	// MissingSeverity escalates doc-missing-public. Default warning.
	MissingSeverity ir.Severity
}

// canonical block-tag order: param*, return?, throws*, see*, since?, deprecated?
var tagRank = map[string]int{
	"param":      0,
	"return":     1,
	"throws":     2,
	"exception":  2,
	"see":        3,
	"since":      4,
	"deprecated": 5,
}

var singleTag = map[string]bool{"return": true, "since": true, "deprecated": true}

func DocumentationPack(name, version string, p DocPolicy) Pack {
	dep := p.DeprecationAnnotation
	if dep == "" {
		dep = defaultDeprecationName
	}
	missing := p.MissingSeverity
	if missing == "" {
		missing = ir.SeverityWarning
	}
	return Pack{
		Name:    name,
		Version: version,
		Rules: []Rule{
			{
				ID:        IDDocTagOrder,
				Category:  CategoryDocumentation,
				Target:    NodeDocComment,
				Severity:  ir.SeverityWarning,
				Summary:   "Block tags must follow param, return, throws (alphabetical), see, since, deprecated.",
				Message:   "doc tag @{{.Data.tag}} {{.Data.problem}}",
				Predicate: tagOrder,
			},
			{
				ID:        IDDocDeprecatedMatch,
				Category:  CategoryDocumentation,
				Target:    NodeDeclaration,
				Severity:  ir.SeverityError,
				Summary:   "@deprecated doc tag and deprecation annotation must appear together.",
				Message:   "{{.Name}} has {{.Data.has}} but no {{.Data.missing}}",
				Predicate: deprecatedMismatch(dep),
			},
			{
				ID:        IDDocSummaryPeriod,
				Category:  CategoryDocumentation,
				Target:    NodeDocComment,
				Severity:  ir.SeverityWarning,
				Summary:   "The summary fragment must end with a period.",
				Message:   "doc summary of {{.Name}} {{.Data.problem}}",
				Predicate: summaryPeriod,
			},
			{
				ID:        IDDocMissingPublic,
				Category:  CategoryDocumentation,
				Target:    NodeDeclaration,
				DeclKinds: []ir.DeclKind{ir.DeclType, ir.DeclMethod},
				Severity:  missing,
				Summary:   "Public types and methods need a doc comment.",
				Message:   "public {{.Kind}} {{.Qualified}} has no doc comment",
				Predicate: missingPublicDoc,
			},
		},
	}
}

// tagOrder reports only the first tag out of canonical order.
func tagOrder(n Node) (*Match, error) {
	prev, prevKind, prevThrows := -1, "", ""
	seen := map[string]bool{}
	for _, t := range n.Doc.Tags {
		rank, known := tagRank[t.Kind]
		if !known {
			continue
		}
		fail := func(problem string) (*Match, error) {
			return &Match{Span: t.Span, Data: map[string]any{"tag": t.Kind, "problem": problem}}, nil
		}
		if rank < prev {
			return fail("appears after @" + prevKind)
		}
		if singleTag[t.Kind] && seen[t.Kind] {
			return fail("appears more than once")
		}
		if rank == tagRank["throws"] {
			exc := strings.ToLower(ir.SimpleName(firstWord(t.Text)))
			if prev == rank && exc < prevThrows {
				return fail("is not in alphabetical order (" + firstWord(t.Text) + ")")
			}
			prevThrows = exc
		}
		seen[t.Kind] = true
		prev, prevKind = rank, t.Kind
	}
	return nil, nil
}

func firstWord(s string) string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

func deprecatedMismatch(annotation string) Predicate {
	return func(n Node) (*Match, error) {
		hasTag := n.Decl.Doc != nil && n.Decl.Doc.HasTag("deprecated")
		hasAnn := n.Decl.Annotation(annotation) != nil
		switch {
		case hasTag && !hasAnn:
			return &Match{Data: map[string]any{"has": "a @deprecated tag", "missing": "@" + annotation + " annotation"}}, nil
		case hasAnn && !hasTag:
			return &Match{Data: map[string]any{"has": "@" + annotation, "missing": "@deprecated doc tag"}}, nil
		}
		return nil, nil
	}
}

func summaryPeriod(n Node) (*Match, error) {
	if strings.TrimSpace(n.Doc.Summary) == "" {
		return &Match{Data: map[string]any{"problem": "is missing"}}, nil
	}
	if n.Doc.SummaryTerminated {
		return nil, nil
	}
	return &Match{Data: map[string]any{"problem": "does not end with a period"}}, nil
}

func missingPublicDoc(n Node) (*Match, error) {
	if n.Decl.Visibility != ir.VisibilityPublic || n.Decl.Doc != nil {
		return nil, nil
	}
	return &Match{}, nil
}
