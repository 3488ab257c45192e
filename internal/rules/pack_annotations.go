package rules

import (
	"fmt"
	"strings"

	"github.com/codewithboateng/policylint/internal/ir"
)

const (
	IDAnnotationBanned            = "annotation-banned"
	IDAnnotationUnlisted          = "annotation-unlisted"
	IDAnnotationCautionOption     = "annotation-caution-option"
	IDAnnotationNullablePrimitive = "annotation-nullable-primitive"
)

type Tier string

const (
	TierAllowed Tier = "allowed"
	TierCaution Tier = "caution"
	TierBanned  Tier = "banned"
)

func (t Tier) IsValid() bool {
	return t == TierAllowed || t == TierCaution || t == TierBanned
}

// OptionRequirement is the sub-policy of a caution-tier annotation: when
// the decorated declaration carries WhenMarker (or always, if WhenMarker is
// empty) the annotation must set Option to Value.
type OptionRequirement struct {
	Option     string
	Value      string
	WhenMarker string
}

type AnnotationEntry struct {
	Name    string // simple or qualified
	Tier    Tier
	Reason  string
	Require *OptionRequirement
}

type AnnotationPolicy struct {
	Entries []AnnotationEntry
	// NullableNames are the annotations expressing "may be null".
	NullableNames []string
}

type annotationTable map[string]AnnotationEntry

// lookup matches an annotation as written, by its import-resolved
// qualified name, then by simple name.
func (t annotationTable) lookup(u *ir.SourceUnit, name string) (AnnotationEntry, bool) {
	name = strings.TrimPrefix(name, "@")
	if e, ok := t[name]; ok {
		return e, true
	}
	if u != nil {
		if e, ok := t[u.ResolveName(name)]; ok {
			return e, true
		}
	}
	e, ok := t[ir.SimpleName(name)]
	return e, ok
}

// AnnotationPack builds the allow/ban list rules from a policy table.
func AnnotationPack(name, version string, p AnnotationPolicy) (Pack, error) {
	table := annotationTable{}
	for _, e := range p.Entries {
		e.Name = strings.TrimPrefix(strings.TrimSpace(e.Name), "@")
		if e.Name == "" {
			return Pack{}, &RuleDefinitionError{RuleID: IDAnnotationBanned, Pack: name, Reason: "annotation entry without name"}
		}
		if !e.Tier.IsValid() {
			return Pack{}, &RuleDefinitionError{RuleID: IDAnnotationBanned, Pack: name, Reason: fmt.Sprintf("annotation %q: unknown tier %q", e.Name, e.Tier)}
		}
		if e.Require != nil && e.Tier != TierCaution {
			return Pack{}, &RuleDefinitionError{RuleID: IDAnnotationCautionOption, Pack: name, Reason: fmt.Sprintf("annotation %q: option requirement on a %s entry", e.Name, e.Tier)}
		}
		if _, dup := table[e.Name]; dup {
			return Pack{}, &RuleDefinitionError{RuleID: IDAnnotationBanned, Pack: name, Reason: fmt.Sprintf("annotation %q listed twice", e.Name)}
		}
		table[e.Name] = e
	}
	nullable := map[string]bool{}
	for _, n := range p.NullableNames {
		nullable[ir.SimpleName(n)] = true
	}

	return Pack{
		Name:    name,
		Version: version,
		Rules: []Rule{
			{
				ID:        IDAnnotationBanned,
				Category:  CategoryAnnotationPolicy,
				Target:    NodeAnnotation,
				Severity:  ir.SeverityError,
				Summary:   "Annotation is on the ban list.",
				Message:   "annotation @{{.Name}} is banned: {{.Data.reason}}",
				Predicate: bannedAnnotation(table),
			},
			{
				ID:        IDAnnotationUnlisted,
				Category:  CategoryAnnotationPolicy,
				Target:    NodeAnnotation,
				Severity:  ir.SeverityError,
				Summary:   "Annotation is not on the allow-list (closed-world policy).",
				Message:   "annotation @{{.Name}} is not on the allow-list",
				Predicate: unlistedAnnotation(table),
			},
			{
				ID:        IDAnnotationCautionOption,
				Category:  CategoryAnnotationPolicy,
				Target:    NodeAnnotation,
				Severity:  ir.SeverityWarning,
				Summary:   "Caution-tier annotation is missing a required option.",
				Message:   "annotation @{{.Name}} on {{.Data.target}} must set {{.Data.option}}={{.Data.value}}{{if .Data.marker}} because it carries @{{.Data.marker}}{{end}}",
				Predicate: cautionOption(table),
			},
			{
				ID:        IDAnnotationNullablePrimitive,
				Category:  CategoryAnnotationPolicy,
				Target:    NodeAnnotation,
				Severity:  ir.SeverityWarning,
				Summary:   "Nullability annotation on a primitive type.",
				Message:   "@{{.Name}} has no effect on primitive type {{.Data.type}}",
				Predicate: nullablePrimitive(nullable),
			},
		},
	}, nil
}

func bannedAnnotation(t annotationTable) Predicate {
	return func(n Node) (*Match, error) {
		e, ok := t.lookup(n.Unit, n.Annotation.Name)
		if !ok || e.Tier != TierBanned {
			return nil, nil
		}
		reason := e.Reason
		if reason == "" {
			reason = "no reason recorded"
		}
		return &Match{Data: map[string]any{"reason": reason}}, nil
	}
}

func unlistedAnnotation(t annotationTable) Predicate {
	return func(n Node) (*Match, error) {
		if n.Settings != nil && n.Settings.Permissive {
			return nil, nil
		}
		if _, ok := t.lookup(n.Unit, n.Annotation.Name); ok {
			return nil, nil
		}
		return &Match{}, nil
	}
}

func cautionOption(t annotationTable) Predicate {
	return func(n Node) (*Match, error) {
		e, ok := t.lookup(n.Unit, n.Annotation.Name)
		if !ok || e.Tier != TierCaution || e.Require == nil {
			return nil, nil
		}
		req := e.Require
		if req.WhenMarker != "" && !carriesMarker(n.Decl, req.WhenMarker) {
			return nil, nil
		}
		if v, set := n.Annotation.Arg(req.Option); set && v == req.Value {
			return nil, nil
		}
		target := ""
		if n.Decl != nil {
			target = n.Decl.Name
		}
		return &Match{Data: map[string]any{
			"option": req.Option,
			"value":  req.Value,
			"marker": req.WhenMarker,
			"target": target,
		}}, nil
	}
}

// carriesMarker reports whether d, or for a type any of its fields, is
// annotated with marker.
func carriesMarker(d *ir.Declaration, marker string) bool {
	if d == nil {
		return false
	}
	if d.Annotation(marker) != nil {
		return true
	}
	if d.Kind != ir.DeclType {
		return false
	}
	for _, m := range d.Members {
		if m != nil && m.Kind == ir.DeclField && m.Annotation(marker) != nil {
			return true
		}
	}
	return false
}

func nullablePrimitive(names map[string]bool) Predicate {
	return func(n Node) (*Match, error) {
		if !names[ir.SimpleName(n.Annotation.Name)] || n.Decl == nil {
			return nil, nil
		}
		var typ string
		switch n.Decl.Kind {
		case ir.DeclField:
			typ = n.Decl.Type
		case ir.DeclMethod:
			typ = n.Decl.ReturnType
		default:
			return nil, nil
		}
		if !isPrimitive(typ) {
			return nil, nil
		}
		return &Match{Data: map[string]any{"type": typ}}, nil
	}
}

func isPrimitive(typ string) bool {
	switch strings.TrimSpace(typ) {
	case "boolean", "byte", "char", "short", "int", "long", "float", "double":
		return true
	}
	return false
}
