package scope

import (
	"github.com/rainlang/rain/compiler/ast"
	"github.com/rainlang/rain/compiler/ir"
)

type (
	// Builtin is a native operation implementing a builtin method.
	Builtin int

	Primitive struct {
		Type *ast.OpaqueType

		Bits   int
		Signed bool
		Float  bool
		Bool   bool
	}
)

const (
	BuiltinNone Builtin = iota
	BuiltinAdd
	BuiltinSub
	BuiltinMul
	BuiltinDiv
	BuiltinRem
	BuiltinAnd
	BuiltinOr
	BuiltinXor
	BuiltinShl
	BuiltinShr
	BuiltinEq
	BuiltinNe
	BuiltinLt
	BuiltinLe
	BuiltinGt
	BuiltinGe
	BuiltinNeg
	BuiltinPos
	BuiltinNot
)

var (
	I8  = &ast.OpaqueType{Name: "i8"}
	I16 = &ast.OpaqueType{Name: "i16"}
	I32 = &ast.OpaqueType{Name: "i32"}
	I64 = &ast.OpaqueType{Name: "i64"}
	U8  = &ast.OpaqueType{Name: "u8"}
	U16 = &ast.OpaqueType{Name: "u16"}
	U32 = &ast.OpaqueType{Name: "u32"}
	U64 = &ast.OpaqueType{Name: "u64"}
	F32 = &ast.OpaqueType{Name: "f32"}
	F64 = &ast.OpaqueType{Name: "f64"}

	Bool = &ast.OpaqueType{Name: "bool"}
)

var primitives = []Primitive{
	{Type: I8, Bits: 8, Signed: true},
	{Type: I16, Bits: 16, Signed: true},
	{Type: I32, Bits: 32, Signed: true},
	{Type: I64, Bits: 64, Signed: true},
	{Type: U8, Bits: 8},
	{Type: U16, Bits: 16},
	{Type: U32, Bits: 32},
	{Type: U64, Bits: 64},
	{Type: F32, Bits: 32, Float: true, Signed: true},
	{Type: F64, Bits: 64, Float: true, Signed: true},
	{Type: Bool, Bits: 1, Bool: true},
}

var binaryBuiltins = map[ast.BinaryOp]Builtin{
	ast.OpAdd: BuiltinAdd,
	ast.OpSub: BuiltinSub,
	ast.OpMul: BuiltinMul,
	ast.OpDiv: BuiltinDiv,
	ast.OpRem: BuiltinRem,
	ast.OpAnd: BuiltinAnd,
	ast.OpOr:  BuiltinOr,
	ast.OpXor: BuiltinXor,
	ast.OpShl: BuiltinShl,
	ast.OpShr: BuiltinShr,
	ast.OpEq:  BuiltinEq,
	ast.OpNe:  BuiltinNe,
	ast.OpLt:  BuiltinLt,
	ast.OpLe:  BuiltinLe,
	ast.OpGt:  BuiltinGt,
	ast.OpGe:  BuiltinGe,
}

// NewBuiltin creates the root frame with primitive types and their operator methods.
func NewBuiltin(c *ir.Context) *Scope {
	s := New(nil, "builtin")

	for _, p := range primitives {
		_ = s.DeclareType(p.Type.Name, p.Type, ast.Span{})

		if p.Float {
			s.SetIRType(p.Type, c.Float(p.Bits))
		} else {
			s.SetIRType(p.Type, c.Int(p.Bits))
		}

		s.declareOperators(p)
	}

	s.SealIRTypes()

	return s
}

// PrimitiveOf returns primitive info for builtin opaque types.
func PrimitiveOf(t ast.Type) (Primitive, bool) {
	o, ok := t.(*ast.OpaqueType)
	if !ok {
		return Primitive{}, false
	}

	for _, p := range primitives {
		if p.Type == o || p.Type.Name == o.Name {
			return p, true
		}
	}

	return Primitive{}, false
}

// IsNumeric reports whether t is a builtin integer or float type.
func IsNumeric(t ast.Type) bool {
	p, ok := PrimitiveOf(t)
	return ok && !p.Bool
}

func (s *Scope) declareOperators(p Primitive) {
	t := p.Type

	bin := func(op ast.BinaryOp, res ast.Type) {
		s.builtinMethod(t, op.MethodName(), binaryBuiltins[op], res, t, t)
	}

	switch {
	case p.Bool:
		for _, op := range []ast.BinaryOp{ast.OpAnd, ast.OpOr, ast.OpXor} {
			bin(op, t)
		}

		bin(ast.OpEq, Bool)
		bin(ast.OpNe, Bool)

		s.builtinMethod(t, ast.UnaryNot.MethodName(), BuiltinNot, t, t)

		return
	case p.Float:
		for _, op := range []ast.BinaryOp{ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpRem} {
			bin(op, t)
		}
	default:
		for _, op := range []ast.BinaryOp{ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpRem,
			ast.OpAnd, ast.OpOr, ast.OpXor, ast.OpShl, ast.OpShr} {
			bin(op, t)
		}

		s.builtinMethod(t, ast.UnaryNot.MethodName(), BuiltinNot, t, t)
	}

	for op := ast.OpEq; op <= ast.OpGe; op++ {
		bin(op, Bool)
	}

	if p.Signed {
		s.builtinMethod(t, ast.UnaryNeg.MethodName(), BuiltinNeg, t, t)
	}

	s.builtinMethod(t, ast.UnaryPos.MethodName(), BuiltinPos, t, t)
}

func (s *Scope) builtinMethod(recv ast.Type, name string, op Builtin, res ast.Type, params ...ast.Type) {
	fn := &Function{
		Name:     name,
		Receiver: recv,
		Type: &ast.FunctionType{
			Params: params,
			Result: res,
		},
		Builtin: op,
		IR:      ir.Nil,
	}

	if err := s.RegisterMethod(fn); err != nil {
		panic(err)
	}
}
