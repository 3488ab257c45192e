package ir

const Version = "1.0"

type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityProtected Visibility = "protected"
	VisibilityPrivate   Visibility = "private"
	VisibilityPackage   Visibility = "package"
)

// DeclKind selects the Declaration variant.
type DeclKind string

const (
	DeclType   DeclKind = "type"
	DeclMethod DeclKind = "method"
	DeclField  DeclKind = "field"
)

func (k DeclKind) IsValid() bool {
	switch k {
	case DeclType, DeclMethod, DeclField:
		return true
	}
	return false
}

// SourceUnit is one analyzed file as handed over by the parser collaborator.
// It is read-only once Link has run.
type SourceUnit struct {
	Path         string         `json:"path" yaml:"path"`
	Package      string         `json:"package,omitempty" yaml:"package,omitempty"`
	Imports      []Import       `json:"imports,omitempty" yaml:"imports,omitempty"`
	Declarations []*Declaration `json:"declarations" yaml:"declarations"`
	Directives   []Directive    `json:"directives,omitempty" yaml:"directives,omitempty"`
	// Lines holds the column width of every source line; it is the raw
	// line/column index used for position mapping and bounds checks.
	Lines []int `json:"lines" yaml:"lines"`

	linked bool
	byName map[string]*Declaration
}

type Import struct {
	Path   string `json:"path" yaml:"path"`
	Static bool   `json:"static,omitempty" yaml:"static,omitempty"`
	Span   Span   `json:"span" yaml:"span"`
}

// Directive is a raw inline suppression comment. Span is the range the
// directive covers, not the comment itself.
type Directive struct {
	Text string `json:"text" yaml:"text"`
	Span Span   `json:"span" yaml:"span"`
}

type Declaration struct {
	Kind        DeclKind      `json:"kind" yaml:"kind"`
	Name        string        `json:"name" yaml:"name"`
	Visibility  Visibility    `json:"visibility" yaml:"visibility"`
	Modifiers   []string      `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
	Annotations []*Annotation `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Doc         *DocComment   `json:"doc,omitempty" yaml:"doc,omitempty"`
	Span        Span          `json:"span" yaml:"span"`

	// type declarations
	TypeKind   string         `json:"type_kind,omitempty" yaml:"type_kind,omitempty"` // class|interface|enum|record|annotation
	Implements []string       `json:"implements,omitempty" yaml:"implements,omitempty"`
	Members    []*Declaration `json:"members,omitempty" yaml:"members,omitempty"`

	// method declarations
	ReturnType string          `json:"return_type,omitempty" yaml:"return_type,omitempty"`
	Parameters []Parameter     `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Throws     []string        `json:"throws,omitempty" yaml:"throws,omitempty"`
	Handlers   []Handler       `json:"handlers,omitempty" yaml:"handlers,omitempty"`
	Resources  []ResourceScope `json:"resources,omitempty" yaml:"resources,omitempty"`

	// field declarations
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// Parent is a non-owning back reference to the enclosing type.
	Parent *Declaration `json:"-" yaml:"-"`
}

type Parameter struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// Handler is one exception handler (catch clause) inside a method body.
type Handler struct {
	Caught    []string `json:"caught" yaml:"caught"`
	Empty     bool     `json:"empty,omitempty" yaml:"empty,omitempty"`
	Commented bool     `json:"commented,omitempty" yaml:"commented,omitempty"`
	Span      Span     `json:"span" yaml:"span"`
}

// ResourceScope is a resource-managing block (try-with-resources and alike).
type ResourceScope struct {
	Resources []string `json:"resources" yaml:"resources"`
	Span      Span     `json:"span" yaml:"span"`
}

type Annotation struct {
	Name string     `json:"name" yaml:"name"`
	Args []Argument `json:"args,omitempty" yaml:"args,omitempty"`
	Span Span       `json:"span" yaml:"span"`

	Owner *Declaration `json:"-" yaml:"-"`
}

// Argument is one annotation element; Args keep the order they were written in.
type Argument struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

type DocComment struct {
	Summary string `json:"summary" yaml:"summary"`
	Tags    []Tag  `json:"tags,omitempty" yaml:"tags,omitempty"`
	Span    Span   `json:"span" yaml:"span"`

	// SummaryTerminated reports whether the summary fragment ends with a
	// period followed by whitespace (or end of text). Derived by Link from
	// Summary; documents cannot set it.
	SummaryTerminated bool `json:"-" yaml:"-"`

	Owner *Declaration `json:"-" yaml:"-"`
}

// Tag is a block tag such as @param or @throws. Kind is the tag name
// without the leading '@'.
type Tag struct {
	Kind string `json:"kind" yaml:"kind"`
	Text string `json:"text,omitempty" yaml:"text,omitempty"`
	Span Span   `json:"span" yaml:"span"`
}

// Arg returns the value of the named annotation argument.
func (a *Annotation) Arg(name string) (string, bool) {
	for _, x := range a.Args {
		if x.Name == name {
			return x.Value, true
		}
	}
	return "", false
}

func (d *Declaration) HasModifier(m string) bool {
	for _, x := range d.Modifiers {
		if x == m {
			return true
		}
	}
	return false
}

// Annotation returns the first annotation whose simple name is name.
func (d *Declaration) Annotation(name string) *Annotation {
	for _, a := range d.Annotations {
		if SimpleName(a.Name) == SimpleName(name) {
			return a
		}
	}
	return nil
}

func (d *DocComment) HasTag(kind string) bool {
	for _, t := range d.Tags {
		if t.Kind == kind {
			return true
		}
	}
	return false
}
