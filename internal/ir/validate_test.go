package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Accepts(t *testing.T) {
	require.NoError(t, sampleUnit().Validate())
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(u *SourceUnit){
		"no path":              func(u *SourceUnit) { u.Path = "" },
		"no line index":        func(u *SourceUnit) { u.Lines = nil },
		"span past last line":  func(u *SourceUnit) { u.Declarations[0].Span.End.Line = 42 },
		"column past line end": func(u *SourceUnit) { u.Declarations[0].Members[0].Span.End.Column = 99 },
		"empty span":           func(u *SourceUnit) { d := u.Declarations[0].Members[2]; d.Span.End = d.Span.Start },
		"member escapes parent": func(u *SourceUnit) {
			u.Declarations[0].Members[1].Members[0].Span = sp(8, 3, 8, 10)
		},
		"annotation escapes decl": func(u *SourceUnit) { u.Declarations[0].Annotations[0].Span = sp(1, 1, 1, 5) },
		"doc tag escapes doc": func(u *SourceUnit) {
			u.Declarations[0].Doc.Tags = []Tag{{Kind: "see", Span: sp(2, 1, 2, 3)}}
		},
		"unknown kind": func(u *SourceUnit) { u.Declarations[0].Kind = "module" },
		"field with members": func(u *SourceUnit) {
			u.Declarations[0].Members[0].Members = []*Declaration{{Kind: DeclField, Name: "x"}}
		},
		"directive outside": func(u *SourceUnit) { u.Directives = []Directive{{Text: "x", Span: sp(20, 1, 21, 1)}} },
		"nil declaration":   func(u *SourceUnit) { u.Declarations = append(u.Declarations, nil) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			u := sampleUnit()
			mutate(u)
			err := u.Validate()
			var me *ModelError
			require.ErrorAs(t, err, &me)
			assert.NotEmpty(t, me.Reason)
		})
	}
}

func TestModelError_Message(t *testing.T) {
	err := &ModelError{Unit: "A.java", Path: "a.A#m", Span: sp(1, 1, 1, 4), Reason: "bad"}
	assert.Equal(t, "model error in A.java at a.A#m [1:1-1:4]: bad", err.Error())
}
