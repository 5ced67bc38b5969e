package ast

import (
	"tlog.app/go/errors"
	"tlog.app/go/tlog/tlwire"
)

type (
	// Expr is a node of the expression tree.
	// The set of implementations is closed, Kind tells which one it is.
	Expr interface {
		Kind() Kind
		Span() Span

		// Type is the resolved type, nil until the node is validated.
		Type() Type
		SetType(t Type) error

		CompileTimeCapable() bool

		expr()
	}

	Kind int

	Span struct {
		Pos int
		End int
	}

	// Base is embedded into every expression.
	Base struct {
		Pos int
		End int

		typ Type
	}

	// Callee is a resolved function or method binding attached to the tree by the resolver.
	Callee interface {
		CalleeName() string
	}

	Module struct {
		Name string

		Decls []Expr
	}
)

const (
	KindInvalid Kind = iota
	KindBool
	KindInteger
	KindFloat
	KindIdentifier
	KindMember
	KindCall
	KindCtor
	KindBinary
	KindUnary
	KindBlock
	KindIf
	KindWhile
	KindLet
	KindReturn
	KindBreak
	KindCast
	KindFunction
	KindCompileTime
	KindExport
	KindTypeDecl

	kindEnd
)

var kindNames = [...]string{
	KindInvalid:     "invalid",
	KindBool:        "bool",
	KindInteger:     "integer",
	KindFloat:       "float",
	KindIdentifier:  "identifier",
	KindMember:      "member",
	KindCall:        "call",
	KindCtor:        "ctor",
	KindBinary:      "binary",
	KindUnary:       "unary",
	KindBlock:       "block",
	KindIf:          "if",
	KindWhile:       "while",
	KindLet:         "let",
	KindReturn:      "return",
	KindBreak:       "break",
	KindCast:        "cast",
	KindFunction:    "function",
	KindCompileTime: "compile_time",
	KindExport:      "export",
	KindTypeDecl:    "type_decl",
}

func (k Kind) String() string {
	if k < 0 || k >= kindEnd {
		return "kind(?)"
	}

	return kindNames[k]
}

func MakeSpan(pos, end int) Span { return Span{Pos: pos, End: end} }

// Merge returns the smallest span covering both.
// Zero spans are ignored.
func (s Span) Merge(x Span) Span {
	if s == (Span{}) {
		return x
	}
	if x == (Span{}) {
		return s
	}

	if x.Pos < s.Pos {
		s.Pos = x.Pos
	}
	if x.End > s.End {
		s.End = x.End
	}

	return s
}

func (s Span) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)
	b = e.AppendKeyInt64(b, "pos", int64(s.Pos))
	b = e.AppendKeyInt64(b, "end", int64(s.End))

	return b
}

func MakeBase(s Span) Base { return Base{Pos: s.Pos, End: s.End} }

func (b *Base) Span() Span { return Span{Pos: b.Pos, End: b.End} }

func (b *Base) SetSpan(s Span) { b.Pos, b.End = s.Pos, s.End }

func (b *Base) Type() Type { return b.typ }

// SetType fills the resolved type slot.
// Setting an equal type again is a no-op, any other change is an error.
func (b *Base) SetType(t Type) error {
	if b.typ == nil {
		b.typ = t
		return nil
	}

	if t == nil || !SameType(b.typ, t) {
		return errors.New("resolved type changed: %v -> %v", b.typ, t)
	}

	return nil
}

func (*Base) expr() {}

// MergeSpans merges spans of all the non-nil expressions.
func MergeSpans(xs ...Expr) (s Span) {
	for _, x := range xs {
		if x == nil {
			continue
		}

		s = s.Merge(x.Span())
	}

	return s
}
