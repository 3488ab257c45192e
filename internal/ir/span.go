package ir

import "fmt"

// Position is a 1-based line/column pair.
type Position struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

func (p Position) Before(q Position) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Column < q.Column
}

func (p Position) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Column) }

// Span is a half-open range [Start, End).
type Span struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end" yaml:"end"`
}

func (s Span) IsZero() bool { return s == Span{} }

// Empty reports whether the span covers no text, including inverted spans.
func (s Span) Empty() bool { return !s.Start.Before(s.End) }

// Contains reports whether o lies entirely within s.
func (s Span) Contains(o Span) bool {
	return !o.Start.Before(s.Start) && !s.End.Before(o.End)
}

func (s Span) String() string { return s.Start.String() + "-" + s.End.String() }

// Compare orders spans by start, then end.
func (s Span) Compare(o Span) int {
	switch {
	case s.Start.Before(o.Start):
		return -1
	case o.Start.Before(s.Start):
		return 1
	case s.End.Before(o.End):
		return -1
	case o.End.Before(s.End):
		return 1
	}
	return 0
}
