package diag

import (
	"bytes"
	"fmt"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/loc"

	"github.com/rainlang/rain/compiler/ast"
)

type (
	Kind int

	// Error is a compiler diagnostic.
	// It carries one or two source locations.
	Error struct {
		Kind  Kind
		Msg   string
		Spans []ast.Span

		// PC is where an internal error was raised.
		PC loc.PC
	}

	// Source maps byte offsets to lines.
	Source struct {
		Name string
		Text []byte

		lines []int
	}

	Position struct {
		Line int
		Col  int
	}
)

const (
	Resolution Kind = iota
	Generation
	Internal
	CompileTime
	Syntax
)

func (k Kind) String() string {
	switch k {
	case Resolution:
		return "resolution"
	case Generation:
		return "generation"
	case Internal:
		return "internal"
	case CompileTime:
		return "compile time"
	case Syntax:
		return "syntax"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func New(k Kind, msg string, spans ...ast.Span) *Error {
	return &Error{
		Kind:  k,
		Msg:   msg,
		Spans: spans,
	}
}

func Errorf(k Kind, span ast.Span, format string, args ...any) *Error {
	return New(k, fmt.Sprintf(format, args...), span)
}

// Internalf reports a compiler defect.
func Internalf(span ast.Span, format string, args ...any) *Error {
	e := New(Internal, fmt.Sprintf(format, args...), span)
	e.PC = loc.Caller(1)

	return e
}

func (e *Error) Error() string {
	if e.Kind == Internal && e.PC != 0 {
		return fmt.Sprintf("internal compiler error: %s (at %v)", e.Msg, e.PC)
	}

	return e.Msg
}

// User reports whether the error is caused by the program being compiled
// rather than by the compiler itself.
func (e *Error) User() bool { return e.Kind != Internal }

// As finds the diagnostic in the error chain.
func As(err error) (*Error, bool) {
	var e *Error

	ok := errors.As(err, &e)

	return e, ok
}

// IsKind reports whether err carries a diagnostic of the kind.
func IsKind(err error, k Kind) bool {
	e, ok := As(err)

	return ok && e.Kind == k
}

func NewSource(name string, text []byte) *Source {
	s := &Source{
		Name: name,
		Text: text,
	}

	s.lines = append(s.lines, 0)

	for i, c := range text {
		if c == '\n' {
			s.lines = append(s.lines, i+1)
		}
	}

	return s
}

// Position converts offset into 1-based line and column.
func (s *Source) Position(off int) (p Position) {
	l, r := 0, len(s.lines)

	for l+1 < r {
		m := (l + r) / 2

		if s.lines[m] <= off {
			l = m
		} else {
			r = m
		}
	}

	return Position{Line: l + 1, Col: off - s.lines[l] + 1}
}

// Format renders err with source positions of all the spans it refers to.
// Errors without a diagnostic are rendered as is.
func Format(s *Source, err error) string {
	e, ok := As(err)
	if !ok || s == nil || len(e.Spans) == 0 {
		return err.Error()
	}

	var b []byte

	for i, sp := range e.Spans {
		p := s.Position(sp.Pos)

		if i == 0 {
			b = hfmt.Appendf(b, "%s:%d:%d: %v", s.Name, p.Line, p.Col, err)
		} else {
			b = hfmt.Appendf(b, "\n%s:%d:%d: note: related location", s.Name, p.Line, p.Col)
		}

		b = s.appendQuote(b, sp, p)
	}

	return string(b)
}

func (s *Source) appendQuote(b []byte, sp ast.Span, p Position) []byte {
	st := sp.Pos - (p.Col - 1)
	if st < 0 || st > len(s.Text) {
		return b
	}

	end := bytes.IndexByte(s.Text[st:], '\n')
	if end < 0 {
		end = len(s.Text)
	} else {
		end += st
	}

	b = hfmt.Appendf(b, "\n\t%s\n\t", s.Text[st:end])

	for i := st; i < sp.Pos; i++ {
		if s.Text[i] == '\t' {
			b = append(b, '\t')
		} else {
			b = append(b, ' ')
		}
	}

	n := sp.End - sp.Pos
	if n < 1 {
		n = 1
	}
	if sp.Pos+n > end {
		n = end - sp.Pos
		if n < 1 {
			n = 1
		}
	}

	for i := 0; i < n; i++ {
		b = append(b, '^')
	}

	return b
}
