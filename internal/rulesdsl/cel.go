package rulesdsl

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/codewithboateng/policylint/internal/ir"
	"github.com/codewithboateng/policylint/internal/rules"
)

// celEnv declares the variables a `when:` expression may read. Each is a
// map; absent nodes (a doc on an undocumented declaration, the annotation
// of a declaration rule) are empty maps.
func celEnv() (*cel.Env, error) {
	obj := cel.MapType(cel.StringType, cel.DynType)
	return cel.NewEnv(
		cel.Variable("decl", obj),
		cel.Variable("annotation", obj),
		cel.Variable("doc", obj),
		cel.Variable("unit", obj),
	)
}

func compileWhen(expr string) (rules.Predicate, error) {
	env, err := celEnv()
	if err != nil {
		return nil, err
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression yields %s, want bool", out)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	return func(n rules.Node) (*rules.Match, error) {
		val, _, err := prg.Eval(activation(n))
		if err != nil {
			return nil, fmt.Errorf("evaluate when: %w", err)
		}
		hit, ok := val.Value().(bool)
		if !ok {
			return nil, fmt.Errorf("when expression returned %T, want bool", val.Value())
		}
		if !hit {
			return nil, nil
		}
		return &rules.Match{}, nil
	}, nil
}

func activation(n rules.Node) map[string]any {
	return map[string]any{
		"decl":       declVars(n.Unit, n.Decl),
		"annotation": annotationVars(n.Unit, n.Annotation),
		"doc":        docVars(n.Doc),
		"unit":       unitVars(n.Unit),
	}
}

func declVars(u *ir.SourceUnit, d *ir.Declaration) map[string]any {
	if d == nil {
		return map[string]any{}
	}
	var anns []string
	for _, a := range d.Annotations {
		anns = append(anns, ir.SimpleName(a.Name))
	}
	params := []map[string]any{}
	for _, p := range d.Parameters {
		params = append(params, map[string]any{"name": p.Name, "type": p.Type})
	}
	parent := ""
	if d.Parent != nil {
		parent = d.Parent.Name
	}
	qualified := d.Name
	if u != nil {
		qualified = u.QualifiedName(d)
	}
	return map[string]any{
		"kind":        string(d.Kind),
		"name":        d.Name,
		"qualified":   qualified,
		"visibility":  string(d.Visibility),
		"modifiers":   strs(d.Modifiers),
		"annotations": strs(anns),
		"type_kind":   d.TypeKind,
		"implements":  strs(d.Implements),
		"return_type": d.ReturnType,
		"parameters":  params,
		"throws":      strs(d.Throws),
		"type":        d.Type,
		"parent":      parent,
		"has_doc":     d.Doc != nil,
		"members":     int64(len(d.Members)),
		"handlers":    int64(len(d.Handlers)),
		"line":        int64(d.Span.Start.Line),
	}
}

func annotationVars(u *ir.SourceUnit, a *ir.Annotation) map[string]any {
	if a == nil {
		return map[string]any{}
	}
	args := map[string]string{}
	for _, arg := range a.Args {
		name := arg.Name
		if name == "" {
			name = "value"
		}
		args[name] = arg.Value
	}
	resolved := a.Name
	if u != nil {
		resolved = u.ResolveName(a.Name)
	}
	return map[string]any{
		"name":     a.Name,
		"simple":   ir.SimpleName(a.Name),
		"resolved": resolved,
		"args":     args,
	}
}

func docVars(d *ir.DocComment) map[string]any {
	if d == nil {
		return map[string]any{}
	}
	tags := []map[string]any{}
	for _, t := range d.Tags {
		tags = append(tags, map[string]any{"kind": t.Kind, "text": t.Text})
	}
	return map[string]any{
		"summary":            d.Summary,
		"summary_terminated": d.SummaryTerminated,
		"tags":               tags,
	}
}

func unitVars(u *ir.SourceUnit) map[string]any {
	if u == nil {
		return map[string]any{}
	}
	var imports []string
	for _, im := range u.Imports {
		imports = append(imports, im.Path)
	}
	return map[string]any{
		"path":    u.Path,
		"package": u.Package,
		"imports": strs(imports),
		"lines":   int64(len(u.Lines)),
	}
}

// strs keeps empty lists as lists so size() and `in` work on them.
func strs(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
