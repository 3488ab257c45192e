package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewithboateng/policylint/internal/ir"
)

func span(l1, c1, l2, c2 int) ir.Span {
	return ir.Span{Start: ir.Position{Line: l1, Column: c1}, End: ir.Position{Line: l2, Column: c2}}
}

func ann(name string, args ...ir.Argument) *ir.Annotation {
	return &ir.Annotation{Name: name, Args: args, Span: span(1, 1, 1, 5)}
}

func linked(decls ...*ir.Declaration) *ir.SourceUnit {
	u := &ir.SourceUnit{Path: "Unit.java", Package: "com.acme", Declarations: decls, Lines: []int{80, 80, 80}}
	u.Imports = []ir.Import{{Path: "org.cache.CacheLoader"}}
	u.Link()
	return u
}

func mustRule(t *testing.T, p Pack, id string) *Rule {
	t.Helper()
	for i := range p.Rules {
		if p.Rules[i].ID == id {
			return &p.Rules[i]
		}
	}
	t.Fatalf("rule %s not in pack %s", id, p.Name)
	return nil
}

func annotationNode(u *ir.SourceUnit, a *ir.Annotation, s *Settings) Node {
	return Node{Kind: NodeAnnotation, Unit: u, Decl: a.Owner, Annotation: a, Settings: s}
}

func testPolicy() AnnotationPolicy {
	return AnnotationPolicy{
		Entries: []AnnotationEntry{
			{Name: "cacheLoader", Tier: TierBanned, Reason: "use the shared cache module"},
			{Name: "org.cache.CacheLoader", Tier: TierBanned, Reason: "qualified ban"},
			{Name: "Override", Tier: TierAllowed},
			{Name: "ToString", Tier: TierCaution, Require: &OptionRequirement{Option: "onlyExplicitlyIncluded", Value: "true", WhenMarker: "Sensitive"}},
		},
		NullableNames: []string{"Nullable"},
	}
}

func TestAnnotationPack_Banned(t *testing.T) {
	p, err := AnnotationPack("annotations", "1", testPolicy())
	require.NoError(t, err)
	rule := mustRule(t, p, IDAnnotationBanned)

	a := ann("cacheLoader", ir.Argument{Name: "value", Value: "anything"})
	u := linked(&ir.Declaration{Kind: ir.DeclField, Name: "c", Annotations: []*ir.Annotation{a}})

	m, err := rule.Predicate(annotationNode(u, a, &Settings{}))
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "use the shared cache module", m.Data["reason"])

	// resolved through the import
	b := ann("CacheLoader")
	u2 := linked(&ir.Declaration{Kind: ir.DeclField, Name: "c", Annotations: []*ir.Annotation{b}})
	m, _ = rule.Predicate(annotationNode(u2, b, &Settings{}))
	require.NotNil(t, m)
	assert.Equal(t, "qualified ban", m.Data["reason"])
}

func TestAnnotationPack_UnlistedHonoursPermissive(t *testing.T) {
	p, err := AnnotationPack("annotations", "1", testPolicy())
	require.NoError(t, err)
	rule := mustRule(t, p, IDAnnotationUnlisted)

	a := ann("Frobnicate")
	u := linked(&ir.Declaration{Kind: ir.DeclMethod, Name: "m", Annotations: []*ir.Annotation{a}})

	m, _ := rule.Predicate(annotationNode(u, a, &Settings{}))
	assert.NotNil(t, m)
	m, _ = rule.Predicate(annotationNode(u, a, &Settings{Permissive: true}))
	assert.Nil(t, m)

	listed := ann("Override")
	u2 := linked(&ir.Declaration{Kind: ir.DeclMethod, Name: "m", Annotations: []*ir.Annotation{listed}})
	m, _ = rule.Predicate(annotationNode(u2, listed, &Settings{}))
	assert.Nil(t, m)
}

func TestAnnotationPack_CautionOption(t *testing.T) {
	p, err := AnnotationPack("annotations", "1", testPolicy())
	require.NoError(t, err)
	rule := mustRule(t, p, IDAnnotationCautionOption)

	build := func(args []ir.Argument, sensitive bool) (*ir.SourceUnit, *ir.Annotation) {
		a := ann("ToString", args...)
		field := &ir.Declaration{Kind: ir.DeclField, Name: "ssn", Span: span(2, 1, 2, 20)}
		if sensitive {
			field.Annotations = []*ir.Annotation{ann("Sensitive")}
		}
		typ := &ir.Declaration{Kind: ir.DeclType, Name: "Person", Annotations: []*ir.Annotation{a}, Members: []*ir.Declaration{field}}
		return linked(typ), a
	}

	u, a := build(nil, true)
	m, _ := rule.Predicate(annotationNode(u, a, &Settings{}))
	require.NotNil(t, m)
	assert.Equal(t, "Sensitive", m.Data["marker"])

	u, a = build([]ir.Argument{{Name: "onlyExplicitlyIncluded", Value: "true"}}, true)
	m, _ = rule.Predicate(annotationNode(u, a, &Settings{}))
	assert.Nil(t, m)

	u, a = build(nil, false)
	m, _ = rule.Predicate(annotationNode(u, a, &Settings{}))
	assert.Nil(t, m, "no marker, no requirement")
}

func TestAnnotationPack_RejectsBadTables(t *testing.T) {
	_, err := AnnotationPack("a", "1", AnnotationPolicy{Entries: []AnnotationEntry{{Name: "X", Tier: "maybe"}}})
	assert.Error(t, err)
	_, err = AnnotationPack("a", "1", AnnotationPolicy{Entries: []AnnotationEntry{{Name: "X", Tier: TierBanned}, {Name: "@X", Tier: TierAllowed}}})
	assert.Error(t, err)
	_, err = AnnotationPack("a", "1", AnnotationPolicy{Entries: []AnnotationEntry{{Name: "X", Tier: TierAllowed, Require: &OptionRequirement{Option: "o"}}}})
	assert.Error(t, err)
}

func TestAnnotationPack_NullablePrimitive(t *testing.T) {
	p, err := AnnotationPack("annotations", "1", testPolicy())
	require.NoError(t, err)
	rule := mustRule(t, p, IDAnnotationNullablePrimitive)

	a := ann("javax.annotation.Nullable")
	u := linked(&ir.Declaration{Kind: ir.DeclMethod, Name: "size", ReturnType: "int", Annotations: []*ir.Annotation{a}})
	m, _ := rule.Predicate(annotationNode(u, a, &Settings{}))
	require.NotNil(t, m)
	assert.Equal(t, "int", m.Data["type"])

	b := ann("Nullable")
	u = linked(&ir.Declaration{Kind: ir.DeclField, Name: "name", Type: "String", Annotations: []*ir.Annotation{b}})
	m, _ = rule.Predicate(annotationNode(u, b, &Settings{}))
	assert.Nil(t, m)
}

func docNode(tags ...string) Node {
	doc := &ir.DocComment{Summary: "Does things."}
	for i, k := range tags {
		doc.Tags = append(doc.Tags, ir.Tag{Kind: k, Span: span(i+1, 1, i+1, 10)})
	}
	d := &ir.Declaration{Kind: ir.DeclMethod, Name: "m", Doc: doc}
	u := linked(d)
	return Node{Kind: NodeDocComment, Unit: u, Decl: d, Doc: doc}
}

func TestTagOrder(t *testing.T) {
	cases := []struct {
		tags []string
		bad  bool
	}{
		{[]string{"param", "return"}, false},
		{[]string{"return", "param"}, true},
		{[]string{"param", "param", "return", "throws", "see", "since", "deprecated"}, false},
		{[]string{"since", "see"}, true},
		{[]string{"return", "return"}, true},
		{[]string{"author", "param", "version", "return"}, false},
		{nil, false},
	}
	for _, c := range cases {
		m, err := tagOrder(docNode(c.tags...))
		require.NoError(t, err)
		assert.Equal(t, c.bad, m != nil, "%v", c.tags)
	}

	n := docNode("return", "param")
	m, _ := tagOrder(n)
	require.NotNil(t, m)
	assert.Equal(t, n.Doc.Tags[1].Span, m.Span, "points at the offending tag")

	n = docNode("return", "param", "since", "see")
	m, _ = tagOrder(n)
	require.NotNil(t, m)
	assert.Equal(t, n.Doc.Tags[1].Span, m.Span, "first misplaced tag only")
}

func TestTagOrder_ThrowsAlphabetical(t *testing.T) {
	n := docNode("throws", "throws")
	n.Doc.Tags[0].Text = "java.io.IOException if io fails"
	n.Doc.Tags[1].Text = "IllegalStateException when closed"
	m, _ := tagOrder(n)
	assert.Nil(t, m)

	n.Doc.Tags[0].Text, n.Doc.Tags[1].Text = n.Doc.Tags[1].Text, n.Doc.Tags[0].Text
	m, _ = tagOrder(n)
	require.NotNil(t, m)
	assert.Contains(t, m.Data["problem"], "alphabetical")
}

func TestDeprecatedMismatch(t *testing.T) {
	pred := deprecatedMismatch("Deprecated")
	withTag := &ir.Declaration{Kind: ir.DeclMethod, Name: "old", Doc: &ir.DocComment{Tags: []ir.Tag{{Kind: "deprecated"}}}}
	withAnn := &ir.Declaration{Kind: ir.DeclMethod, Name: "old", Annotations: []*ir.Annotation{ann("java.lang.Deprecated")}}
	both := &ir.Declaration{Kind: ir.DeclMethod, Name: "old", Doc: withTag.Doc, Annotations: withAnn.Annotations}

	m, _ := pred(Node{Kind: NodeDeclaration, Decl: withTag})
	assert.NotNil(t, m)
	m, _ = pred(Node{Kind: NodeDeclaration, Decl: withAnn})
	assert.NotNil(t, m)
	m, _ = pred(Node{Kind: NodeDeclaration, Decl: both})
	assert.Nil(t, m)
}

func TestSummaryPeriod(t *testing.T) {
	cases := map[string]bool{
		"Returns the size.":                  false,
		"Returns the size. More prose here.": false,
		"Returns the size":                   true,
		"":                                   true,
		"Version 1.2 of the API":             true,
		// documented heuristic: the abbreviation ends the fragment
		"Frobs things, e.g. widgets": false,
	}
	for summary, bad := range cases {
		doc := &ir.DocComment{Summary: summary, Span: span(1, 1, 1, 40)}
		d := &ir.Declaration{Kind: ir.DeclMethod, Name: "m", Doc: doc, Span: span(1, 1, 2, 1)}
		linked(d)
		m, err := summaryPeriod(Node{Kind: NodeDocComment, Decl: d, Doc: doc})
		require.NoError(t, err)
		assert.Equal(t, bad, m != nil, "%q", summary)
	}
}

func TestMissingPublicDoc(t *testing.T) {
	p := DocumentationPack("docs", "1", DocPolicy{MissingSeverity: ir.SeverityError})
	rule := mustRule(t, p, IDDocMissingPublic)
	assert.Equal(t, ir.SeverityError, rule.Severity)
	assert.False(t, rule.AppliesTo(&ir.Declaration{Kind: ir.DeclField}))

	for vis, want := range map[ir.Visibility]bool{
		ir.VisibilityPublic:  true,
		ir.VisibilityPrivate: false,
		ir.VisibilityPackage: false,
	} {
		d := &ir.Declaration{Kind: ir.DeclMethod, Name: "m", Visibility: vis}
		m, _ := rule.Predicate(Node{Kind: NodeDeclaration, Decl: d})
		assert.Equal(t, want, m != nil, vis)
	}
}

func TestResourceCloseThrows(t *testing.T) {
	rule := mustRule(t, ResourcePack("resources", "1", ResourcePolicy{}), IDResourceCloseThrows)

	closeM := &ir.Declaration{Kind: ir.DeclMethod, Name: "close", Throws: []string{"IOException"}}
	typ := &ir.Declaration{Kind: ir.DeclType, Name: "Conn", Implements: []string{"java.lang.AutoCloseable"}, Members: []*ir.Declaration{closeM}}
	linked(typ)
	m, _ := rule.Predicate(Node{Kind: NodeDeclaration, Decl: closeM})
	require.NotNil(t, m)
	assert.Equal(t, "throws IOException", m.Data["throws"])

	closeM.Throws = []string{"IllegalStateException"}
	m, _ = rule.Predicate(Node{Kind: NodeDeclaration, Decl: closeM})
	require.NotNil(t, m, "unchecked exceptions are indistinguishable without types")

	closeM.Throws = nil
	m, _ = rule.Predicate(Node{Kind: NodeDeclaration, Decl: closeM})
	assert.Nil(t, m)

	other := &ir.Declaration{Kind: ir.DeclMethod, Name: "close", Throws: []string{"IOException"}}
	linked(&ir.Declaration{Kind: ir.DeclType, Name: "Plain", Members: []*ir.Declaration{other}})
	m, _ = rule.Predicate(Node{Kind: NodeDeclaration, Decl: other})
	assert.Nil(t, m, "not an auto-closing type")
}

func TestConcurrencyUnguardedField(t *testing.T) {
	rule := mustRule(t, ConcurrencyPack("concurrency", "1", ConcurrencyPolicy{}), IDConcurrencyUnguardedField)

	count := &ir.Declaration{Kind: ir.DeclField, Name: "count", Type: "int"}
	guarded := &ir.Declaration{Kind: ir.DeclField, Name: "items", Annotations: []*ir.Annotation{ann("GuardedBy", ir.Argument{Name: "value", Value: "lock"})}}
	final := &ir.Declaration{Kind: ir.DeclField, Name: "lock", Modifiers: []string{"private", "final"}}
	linked(&ir.Declaration{Kind: ir.DeclType, Name: "Counter", Annotations: []*ir.Annotation{ann("ThreadSafe")}, Members: []*ir.Declaration{count, guarded, final}})

	m, _ := rule.Predicate(Node{Kind: NodeDeclaration, Decl: count})
	assert.NotNil(t, m)
	m, _ = rule.Predicate(Node{Kind: NodeDeclaration, Decl: guarded})
	assert.Nil(t, m)
	m, _ = rule.Predicate(Node{Kind: NodeDeclaration, Decl: final})
	assert.Nil(t, m)
}

func TestNaming(t *testing.T) {
	p := NamingPack("naming", "1", NamingPolicy{})
	constant := mustRule(t, p, IDNamingConstantCase)
	typ := mustRule(t, p, IDNamingTypeCase)

	for name, bad := range map[string]bool{"MAX_SIZE": false, "maxSize": true, "serialVersionUID": false} {
		d := &ir.Declaration{Kind: ir.DeclField, Name: name, Modifiers: []string{"static", "final"}}
		m, _ := constant.Predicate(Node{Kind: NodeDeclaration, Decl: d})
		assert.Equal(t, bad, m != nil, name)
	}
	m, _ := constant.Predicate(Node{Kind: NodeDeclaration, Decl: &ir.Declaration{Kind: ir.DeclField, Name: "maxSize"}})
	assert.Nil(t, m, "instance fields are not constants")

	m, _ = typ.Predicate(Node{Kind: NodeDeclaration, Decl: &ir.Declaration{Kind: ir.DeclType, Name: "http_client"}})
	require.NotNil(t, m)
	assert.Equal(t, "HttpClient", m.Data["want"])
}

func TestExceptionEmptyHandler(t *testing.T) {
	rule := mustRule(t, ExceptionPack("exceptions", "1"), IDExceptionEmptyHandler)
	d := &ir.Declaration{Kind: ir.DeclMethod, Name: "run", Handlers: []ir.Handler{
		{Caught: []string{"InterruptedException"}, Empty: true, Commented: true, Span: span(2, 1, 2, 9)},
		{Caught: []string{"IOException", "SQLException"}, Empty: true, Span: span(3, 1, 3, 9)},
	}}
	m, _ := rule.Predicate(Node{Kind: NodeDeclaration, Decl: d})
	require.NotNil(t, m)
	assert.Equal(t, span(3, 1, 3, 9), m.Span)
	assert.Equal(t, "IOException | SQLException", m.Data["caught"])
}
