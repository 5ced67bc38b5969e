package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanMerge(t *testing.T) {
	assert.Equal(t, Span{Pos: 2, End: 9}, Span{Pos: 4, End: 9}.Merge(Span{Pos: 2, End: 5}))
	assert.Equal(t, Span{Pos: 2, End: 5}, Span{}.Merge(Span{Pos: 2, End: 5}))

	l := &Integer{Base: MakeBase(MakeSpan(0, 1))}
	r := &Integer{Base: MakeBase(MakeSpan(4, 6))}

	assert.Equal(t, Span{Pos: 0, End: 6}, MergeSpans(l, nil, r))
}

func TestSetTypeOnce(t *testing.T) {
	i32 := &OpaqueType{Name: "i32"}
	f32 := &OpaqueType{Name: "f32"}

	x := &Integer{Value: 1}
	assert.Nil(t, x.Type())

	require.NoError(t, x.SetType(i32))
	require.NoError(t, x.SetType(&OpaqueType{Name: "i32"}))
	assert.Error(t, x.SetType(f32))
	assert.Same(t, i32, x.Type())
}

func TestSameType(t *testing.T) {
	i32 := &OpaqueType{Name: "i32"}

	a := &StructType{Fields: []Field{{Name: "x", Type: i32}}}
	b := &StructType{Fields: []Field{{Name: "x", Type: i32}}}
	c := &StructType{Fields: []Field{{Name: "y", Type: i32}}}

	assert.True(t, SameType(a, b))
	assert.False(t, SameType(a, c))
	assert.Equal(t, TypeKey(a), TypeKey(b))

	n1 := &StructType{Name: "S", Fields: a.Fields}
	n2 := &StructType{Name: "S", Fields: a.Fields}

	assert.True(t, SameType(n1, n1))
	assert.False(t, SameType(n1, n2))
	assert.True(t, TypeKey(n1) == TypeKey(n1))
	assert.False(t, TypeKey(n1) == TypeKey(n2))

	f1 := &FunctionType{Params: []Type{i32, a}, Result: i32}
	f2 := &FunctionType{Params: []Type{i32, b}, Result: i32}
	f3 := &FunctionType{Params: []Type{i32, b}}

	assert.True(t, SameType(f1, f2))
	assert.False(t, SameType(f1, f3))

	assert.True(t, SameType(&OptionalType{Elem: i32}, &OptionalType{Elem: i32}))
	assert.False(t, SameType(&UnresolvedType{Name: "i32"}, &UnresolvedType{Name: "i32"}))
}

func TestCompileTimeCapable(t *testing.T) {
	one := func() Expr { return &Integer{Value: 1} }
	id := func() Expr { return &Identifier{Name: "x"} }

	for _, tc := range []struct {
		name string
		x    Expr
		exp  bool
	}{
		{"literal", one(), true},
		{"identifier", id(), false},
		{"binary", &Binary{Op: OpAdd, L: one(), R: one()}, true},
		{"binary_var", &Binary{Op: OpAdd, L: one(), R: id()}, false},
		{"assign", &Binary{Op: OpAssign, L: one(), R: one()}, false},
		{"call", &Call{Callee: &Identifier{Name: "f"}, Args: []Expr{one()}}, true},
		{"call_var_arg", &Call{Callee: &Identifier{Name: "f"}, Args: []Expr{id()}}, false},
		{"if_no_else", &If{Cond: &Bool{Value: true}, Then: &Block{Value: one()}}, false},
		{"if_else", &If{Cond: &Bool{Value: true}, Then: &Block{Value: one()}, Else: &Block{Value: one()}}, true},
		{"nested_compile_time", &CompileTime{X: one()}, false},
		{"function", &Function{Name: "f", Body: &Block{Value: id()}}, true},
		{"export", &Export{X: &Function{Name: "f", Body: &Block{}}}, false},
		{"type_decl", &TypeDecl{Name: "S", Of: &StructType{Name: "S"}}, false},
		{"ctor", &Ctor{Target: &UnresolvedType{Name: "S"}, Fields: []FieldInit{{Name: "a", Value: one()}}}, true},
		{"let_block", &Block{Stmts: []Expr{&Let{Name: "a", Init: one()}}, Value: one()}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.exp, tc.x.CompileTimeCapable())
		})
	}
}

func TestOperatorNames(t *testing.T) {
	assert.Equal(t, "__add__", OpAdd.MethodName())
	assert.Equal(t, "__rem__", OpRem.MethodName())
	assert.Equal(t, "__neg__", UnaryNeg.MethodName())
	assert.Equal(t, OpLe, BinaryOpBySymbol("<="))
	assert.Equal(t, OpInvalid, BinaryOpBySymbol("<=>"))
	assert.Greater(t, OpMul.Precedence(), OpAdd.Precedence())
}
