package rules

import (
	"bytes"
	"text/template"

	"github.com/codewithboateng/policylint/internal/ir"
)

type Category string

const (
	CategoryAnnotationPolicy  Category = "annotation-policy"
	CategoryDocumentation     Category = "documentation"
	CategoryNaming            Category = "naming"
	CategoryResourceLifecycle Category = "resource-lifecycle"
	CategoryConcurrency       Category = "concurrency"
	CategoryExceptionHandling Category = "exception-handling"

	// CategoryEngine is reserved for the engine's own rules.
	CategoryEngine Category = "engine"
)

// NodeKind is the dispatch tag a rule declares for its predicate.
type NodeKind string

const (
	NodeDeclaration NodeKind = "declaration"
	NodeDocComment  NodeKind = "doc-comment"
	NodeAnnotation  NodeKind = "annotation"
	NodeUnit        NodeKind = "unit"
)

// targets lists which node kinds each category may inspect.
var targets = map[Category][]NodeKind{
	CategoryAnnotationPolicy:  {NodeAnnotation, NodeDeclaration},
	CategoryDocumentation:     {NodeDocComment, NodeDeclaration},
	CategoryNaming:            {NodeDeclaration},
	CategoryResourceLifecycle: {NodeDeclaration},
	CategoryConcurrency:       {NodeDeclaration, NodeAnnotation},
	CategoryExceptionHandling: {NodeDeclaration},
	CategoryEngine:            {NodeUnit},
}

func (c Category) IsValid() bool {
	_, ok := targets[c]
	return ok
}

// Accepts reports whether a rule of category c may target kind k.
func (c Category) Accepts(k NodeKind) bool {
	for _, x := range targets[c] {
		if x == k {
			return true
		}
	}
	return false
}

// Node is the read-only view handed to a predicate. Decl is the declaration
// itself for declaration nodes and the owner for doc comments and
// annotations; ancestry is reachable through Decl.Parent.
type Node struct {
	Kind       NodeKind
	Unit       *ir.SourceUnit
	Decl       *ir.Declaration
	Doc        *ir.DocComment
	Annotation *ir.Annotation
	Settings   *Settings
}

func (n Node) Span() ir.Span {
	switch n.Kind {
	case NodeDocComment:
		if n.Doc != nil {
			return n.Doc.Span
		}
	case NodeAnnotation:
		if n.Annotation != nil {
			return n.Annotation.Span
		}
	case NodeUnit:
		if n.Unit != nil {
			return n.Unit.Bounds()
		}
	}
	if n.Decl != nil {
		return n.Decl.Span
	}
	return ir.Span{}
}

// Name is the name of the inspected element.
func (n Node) Name() string {
	switch {
	case n.Kind == NodeAnnotation && n.Annotation != nil:
		return n.Annotation.Name
	case n.Decl != nil:
		return n.Decl.Name
	case n.Unit != nil:
		return n.Unit.Path
	}
	return ""
}

// Match is a positive predicate result. A zero Span means the node's span.
type Match struct {
	Span ir.Span
	Data map[string]any
}

// Predicate inspects one node. It must not mutate the node or keep state
// between calls; a nil Match means no violation.
type Predicate func(n Node) (*Match, error)

// Rule is a data record plus an opaque predicate.
type Rule struct {
	ID        string
	Pack      string
	Category  Category
	Target    NodeKind
	DeclKinds []ir.DeclKind // optional filter for declaration targets
	Severity  ir.Severity
	Summary   string
	// Message is a text/template rendered with .Name, .Kind, .Qualified,
	// .Unit and .Data (the match data).
	Message   string
	Predicate Predicate

	tmpl *template.Template
}

// AppliesTo reports whether the rule's declaration-kind filter admits d.
func (r *Rule) AppliesTo(d *ir.Declaration) bool {
	if len(r.DeclKinds) == 0 || d == nil {
		return true
	}
	for _, k := range r.DeclKinds {
		if k == d.Kind {
			return true
		}
	}
	return false
}

type messageData struct {
	Name      string
	Kind      string
	Qualified string
	Unit      string
	Data      map[string]any
}

// Render produces the finding message for a match on n.
func (r *Rule) Render(n Node, m *Match) (string, error) {
	if r.tmpl == nil {
		return r.Message, nil
	}
	md := messageData{Name: n.Name(), Kind: string(n.Kind)}
	if n.Unit != nil {
		md.Unit = n.Unit.Path
		if n.Decl != nil {
			md.Qualified = n.Unit.QualifiedName(n.Decl)
		}
	}
	if n.Decl != nil && n.Kind == NodeDeclaration {
		md.Kind = string(n.Decl.Kind)
	}
	if m != nil {
		md.Data = m.Data
	}
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, md); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *Rule) compile() error {
	t, err := template.New(r.ID).Option("missingkey=zero").Parse(r.Message)
	if err != nil {
		return err
	}
	r.tmpl = t
	return nil
}
