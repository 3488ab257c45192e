package rulesdsl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewithboateng/policylint/internal/ir"
	"github.com/codewithboateng/policylint/internal/rules"
)

func sp(l1, c1, l2, c2 int) ir.Span {
	return ir.Span{Start: ir.Position{Line: l1, Column: c1}, End: ir.Position{Line: l2, Column: c2}}
}

func ruleByID(t *testing.T, p rules.Pack, id string) rules.Rule {
	t.Helper()
	for _, r := range p.Rules {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("rule %s missing from pack %s", id, p.Name)
	return rules.Rule{}
}

func TestDefault_BuildsRegistry(t *testing.T) {
	p, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "house-style", p.Name)

	reg, err := rules.NewRegistry(rules.Settings{}, p)
	require.NoError(t, err)
	for _, id := range []string{
		rules.IDAnnotationBanned, rules.IDDocTagOrder, rules.IDResourceCloseThrows,
		rules.IDConcurrencyUnguardedField, rules.IDNamingConstantCase, rules.IDExceptionEmptyHandler,
	} {
		_, ok := reg.Get(id)
		assert.True(t, ok, id)
	}
	assert.Equal(t, []string{"house-style@1"}, reg.Packs())
}

func TestParse_SectionsAreOptional(t *testing.T) {
	p, err := Parse("docs.yaml", []byte("name: docs\nversion: \"2\"\ndocumentation:\n  missing_severity: error\n"))
	require.NoError(t, err)
	require.Len(t, p.Rules, 4)
	assert.Equal(t, ir.SeverityError, ruleByID(t, p, rules.IDDocMissingPublic).Severity)
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"bad yaml":        "name: [x",
		"unknown key":     "name: x\nannotationz: {}\n",
		"no name":         "version: \"1\"\n",
		"bad tier":        "name: x\nannotations:\n  entries:\n    - {name: Data, tier: forbidden}\n",
		"bad severity":    "name: x\ndocumentation: {missing_severity: fatal}\n",
		"custom no when":  "name: x\ncustom:\n  - {id: c, category: naming, target: declaration, severity: info, message: m}\n",
		"custom bad expr": "name: x\ncustom:\n  - {id: c, category: naming, target: declaration, severity: info, message: m, when: 'decl.name ==='}\n",
		"custom not bool": "name: x\ncustom:\n  - {id: c, category: naming, target: declaration, severity: info, message: m, when: '1 + 2'}\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse("p.yaml", []byte(src))
			var def *rules.RuleDefinitionError
			require.ErrorAs(t, err, &def)
		})
	}
}

func TestLoadFiles_DuplicateAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	require.NoError(t, os.WriteFile(a, []byte("name: a\nexceptions: {}\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("name: b\nexceptions: {}\n"), 0o644))

	packs, err := LoadFiles(a, b)
	require.NoError(t, err)
	_, err = rules.NewRegistry(rules.Settings{}, packs...)
	var dup *rules.DuplicateRuleError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, rules.IDExceptionEmptyHandler, dup.ID)

	_, err = LoadFiles(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestLoadFiles_NoneMeansDefault(t *testing.T) {
	packs, err := LoadFiles()
	require.NoError(t, err)
	require.Len(t, packs, 1)
	assert.Equal(t, "house-style", packs[0].Name)
}

const customPack = `
name: custom
custom:
  - id: naming-hungarian-field
    category: naming
    target: declaration
    decl_kinds: [field]
    severity: warning
    summary: Fields must not use the m_ prefix.
    message: "field {{.Qualified}} uses the m_ prefix"
    when: 'decl.name.startsWith("m_")'
  - id: annotation-inject-on-private
    category: annotation-policy
    target: annotation
    severity: info
    message: "@{{.Name}} on a private member"
    when: 'annotation.simple == "Inject" && decl.visibility == "private"'
  - id: doc-todo-summary
    category: documentation
    target: doc-comment
    severity: info
    message: "summary left as TODO"
    when: 'doc.summary.startsWith("TODO") || doc.tags.exists(t, t.kind == "todo")'
`

func TestCustomRules(t *testing.T) {
	p, err := Parse("custom.yaml", []byte(customPack))
	require.NoError(t, err)
	_, err = rules.NewRegistry(rules.Settings{}, p)
	require.NoError(t, err)

	inject := &ir.Annotation{Name: "javax.inject.Inject", Span: sp(3, 3, 3, 10)}
	field := &ir.Declaration{Kind: ir.DeclField, Name: "m_count", Visibility: ir.VisibilityPrivate, Span: sp(3, 3, 3, 30), Annotations: []*ir.Annotation{inject}}
	doc := &ir.DocComment{Summary: "TODO describe.", Span: sp(1, 1, 1, 20)}
	typ := &ir.Declaration{Kind: ir.DeclType, Name: "Counter", Doc: doc, Span: sp(2, 1, 5, 2), Members: []*ir.Declaration{field}}
	u := &ir.SourceUnit{Path: "Counter.java", Package: "com.acme", Declarations: []*ir.Declaration{typ}, Lines: []int{40, 40, 40, 40, 40}}
	u.Link()

	hungarian := ruleByID(t, p, "naming-hungarian-field")
	m, err := hungarian.Predicate(rules.Node{Kind: rules.NodeDeclaration, Unit: u, Decl: field})
	require.NoError(t, err)
	assert.NotNil(t, m)
	m, err = hungarian.Predicate(rules.Node{Kind: rules.NodeDeclaration, Unit: u, Decl: typ})
	require.NoError(t, err)
	assert.Nil(t, m)

	onPrivate := ruleByID(t, p, "annotation-inject-on-private")
	m, err = onPrivate.Predicate(rules.Node{Kind: rules.NodeAnnotation, Unit: u, Decl: field, Annotation: inject})
	require.NoError(t, err)
	assert.NotNil(t, m)

	todo := ruleByID(t, p, "doc-todo-summary")
	m, err = todo.Predicate(rules.Node{Kind: rules.NodeDocComment, Unit: u, Decl: typ, Doc: doc})
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestCustomRules_EvaluationError(t *testing.T) {
	p, err := Parse("c.yaml", []byte(`
name: c
custom:
  - {id: naming-x, category: naming, target: declaration, severity: info, message: m, when: 'decl.nosuchkey == "x"'}
`))
	require.NoError(t, err)
	d := &ir.Declaration{Kind: ir.DeclField, Name: "x", Span: sp(1, 1, 1, 5)}
	u := &ir.SourceUnit{Path: "X.java", Declarations: []*ir.Declaration{d}, Lines: []int{10}}
	u.Link()

	_, err = p.Rules[0].Predicate(rules.Node{Kind: rules.NodeDeclaration, Unit: u, Decl: d})
	require.Error(t, err)
}
