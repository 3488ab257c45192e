package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewithboateng/policylint/internal/ir"
)

const jsonUnit = `{
  "path": "src/com/acme/Cache.java",
  "package": "com.acme",
  "imports": [{"path": "org.cache.cacheLoader"}],
  "lines": [20, 30, 30, 2],
  "declarations": [{
    "kind": "type", "name": "Cache", "visibility": "public",
    "span": {"start": {"line": 1, "column": 1}, "end": {"line": 4, "column": 2}},
    "members": [{
      "kind": "field", "name": "loader", "type": "Loader",
      "span": {"start": {"line": 2, "column": 3}, "end": {"line": 2, "column": 30}},
      "annotations": [{"name": "cacheLoader", "span": {"start": {"line": 2, "column": 3}, "end": {"line": 2, "column": 15}}}]
    }]
  }]
}`

const yamlUnits = `path: A.java
lines: [10]
declarations:
  - kind: type
    name: A
    span: {start: {line: 1, column: 1}, end: {line: 1, column: 10}}
---
lines: [10]
declarations: []
`

func TestParseDocument_SummaryFlagIsDerived(t *testing.T) {
	const doc = `{
  "path": "A.java",
  "lines": [40],
  "declarations": [{
    "kind": "type", "name": "A",
    "span": {"start": {"line": 1, "column": 1}, "end": {"line": 1, "column": 30}},
    "doc": {"summary": "Holds things", "summary_terminated": true,
            "span": {"start": {"line": 1, "column": 1}, "end": {"line": 1, "column": 20}}}
  }]
}`
	units, err := ParseDocument("a.unit.json", []byte(doc))
	require.NoError(t, err)
	require.Len(t, units, 1)
	units[0].Link()
	assert.False(t, units[0].Declarations[0].Doc.SummaryTerminated)
}

func write(t *testing.T, dir, name, body string) {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func TestParse_Directory(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a/cache.unit.json", jsonUnit)
	write(t, dir, "b/multi.unit.yaml", yamlUnits)
	write(t, dir, "b/broken.unit.json", `{"path": 12}`)
	write(t, dir, "README.md", "ignored")

	res, diags := Parse(dir)
	assert.Empty(t, diags.Warnings)
	require.Len(t, res.Units, 3)
	assert.Equal(t, "src/com/acme/Cache.java", res.Units[0].Path)
	assert.Equal(t, "A.java", res.Units[1].Path)
	assert.Equal(t, "b/multi#1", res.Units[2].Path)

	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "b/broken.unit.json", res.Rejected[0].Unit)
	assert.Contains(t, res.Rejected[0].Reason, "decode")

	require.NoError(t, res.Units[0].Validate())
	field := res.Units[0].Declarations[0].Members[0]
	assert.Equal(t, "Cache", field.Parent.Name)
	assert.Equal(t, "cacheLoader", field.Annotations[0].Name)
}

func TestParse_SingleFileAndEmpty(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "one.unit.json", jsonUnit)

	res, diags := Parse(filepath.Join(dir, "one.unit.json"))
	assert.Empty(t, diags.Warnings)
	require.Len(t, res.Units, 1)

	res, diags = Parse(t.TempDir())
	assert.Empty(t, res.Units)
	assert.NotEmpty(t, diags.Warnings)
}

func TestParseDocument_Errors(t *testing.T) {
	cases := map[string]string{
		"empty.unit.yaml":   "",
		"null.unit.json":    "[null]",
		"garbage.unit.json": "{",
		"bad.unit.yaml":     "lines: [a, b",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDocument(name, []byte(body))
			var me *ir.ModelError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, name, me.Unit)
		})
	}
}

func TestParseDocument_NamesPathlessUnit(t *testing.T) {
	us, err := ParseDocument("pkg/Thing.unit.json", []byte(`{"lines":[1],"declarations":[]}`))
	require.NoError(t, err)
	require.Len(t, us, 1)
	assert.Equal(t, "pkg/Thing", us[0].Path)
}

// Arbitrary documents must never panic ingestion or validation.
func FuzzParseDocument(f *testing.F) {
	f.Add([]byte(jsonUnit), true)
	f.Add([]byte(yamlUnits), false)
	f.Add([]byte(`{"lines":[0],"declarations":[null,{"kind":"type"}]}`), true)
	f.Add([]byte("declarations: [{members: [{members: []}]}]"), false)
	f.Fuzz(func(t *testing.T, data []byte, asJSON bool) {
		name := "fuzz.unit.yaml"
		if asJSON {
			name = "fuzz.unit.json"
		}
		us, err := ParseDocument(name, data)
		if err != nil {
			return
		}
		for _, u := range us {
			_ = u.Validate()
		}
	})
}
