package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainlang/rain/compiler/ast"
	"github.com/rainlang/rain/compiler/diag"
	"github.com/rainlang/rain/compiler/ir"
)

func TestBuiltinTypes(t *testing.T) {
	c := ir.NewContext()
	b := NewBuiltin(c)

	for _, n := range []string{"i8", "i16", "i32", "i64", "u8", "u16", "u32", "u64", "f32", "f64", "bool"} {
		tp, ok := b.FindNamedType(n)
		require.True(t, ok, n)

		r, ok := b.IRType(tp)
		require.True(t, ok, n)
		assert.NotEqual(t, ir.NoType, r)
	}

	r, _ := b.IRType(I32)
	assert.Equal(t, c.Int(32), r)

	r, _ = b.IRType(F32)
	assert.Equal(t, c.Float(32), r)

	r, _ = b.IRType(Bool)
	assert.Equal(t, c.Int(1), r)
}

func TestLookupShadowing(t *testing.T) {
	b := NewBuiltin(ir.NewContext())
	mod := New(b, "module")
	blk := New(mod, "block")

	mod.Declare(&Variable{Name: "a", Type: I32, Value: 1})
	blk.Declare(&Variable{Name: "a", Type: F64, Value: 2})

	v, ok := blk.FindVariable("a")
	require.True(t, ok)
	assert.Equal(t, ir.Expr(2), v.Value)

	v, ok = mod.FindVariable("a")
	require.True(t, ok)
	assert.Equal(t, ir.Expr(1), v.Value)

	_, ok = blk.FindVariable("b")
	assert.False(t, ok)

	_, ok = blk.LocalVariable("a")
	assert.True(t, ok)

	err := mod.DeclareUnique(&Variable{Name: "a", Span: ast.MakeSpan(10, 11)})
	e, ok := diag.As(err)
	require.True(t, ok)
	assert.Len(t, e.Spans, 2)
}

func TestResolveType(t *testing.T) {
	b := NewBuiltin(ir.NewContext())
	mod := New(b, "module")

	s := &ast.StructType{Name: "S", Fields: []ast.Field{{Name: "x", Type: &ast.UnresolvedType{Name: "i32"}}}}

	require.NoError(t, mod.DeclareType("S", s, ast.MakeSpan(0, 1)))
	require.NoError(t, mod.ResolveBody(s))
	assert.Same(t, I32, s.Fields[0].Type)

	r, err := mod.ResolveType(&ast.UnresolvedType{Name: "S"})
	require.NoError(t, err)
	assert.Same(t, s, r)

	r, err = mod.ResolveType(I64)
	require.NoError(t, err)
	assert.Same(t, I64, r)

	opt, err := mod.ResolveType(&ast.OptionalType{Elem: &ast.UnresolvedType{Name: "S"}})
	require.NoError(t, err)
	assert.Same(t, s, opt.(*ast.OptionalType).Elem)

	_, err = mod.ResolveType(&ast.UnresolvedType{Name: "T", Span: ast.MakeSpan(5, 6)})
	assert.EqualError(t, err, "unknown type: T")

	err = mod.DeclareType("S", &ast.StructType{Name: "S"}, ast.MakeSpan(7, 8))
	assert.ErrorContains(t, err, "multiple definition")
}

func TestMethods(t *testing.T) {
	b := NewBuiltin(ir.NewContext())
	mod := New(b, "module")

	s := &ast.StructType{Name: "S"}

	m := &Function{
		Name:     "m",
		Receiver: s,
		Type:     &ast.FunctionType{Params: []ast.Type{s}, Result: I32},
	}

	require.NoError(t, mod.RegisterMethod(m))
	assert.Error(t, mod.RegisterMethod(&Function{Name: "m", Receiver: s, Type: &ast.FunctionType{Params: []ast.Type{s}}}))

	blk := New(mod, "block")

	found, err := blk.FindMethod(s, "m", []ast.Type{s})
	require.NoError(t, err)
	assert.Same(t, m, found)

	found, err = blk.FindMethod(s, "m", []ast.Type{s, I32})
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = blk.FindMethod(&ast.StructType{Name: "S"}, "m", []ast.Type{s})
	require.NoError(t, err)
	assert.Nil(t, found)

	add, err := blk.FindMethod(I32, "__add__", []ast.Type{I32, I32})
	require.NoError(t, err)
	require.NotNil(t, add)
	assert.Equal(t, BuiltinAdd, add.Builtin)
	assert.Same(t, I32, add.Type.Result)

	lt, err := blk.FindMethod(F64, "__lt__", []ast.Type{F64, F64})
	require.NoError(t, err)
	require.NotNil(t, lt)
	assert.Same(t, Bool, lt.Type.Result)

	neg, err := blk.FindMethod(U32, "__neg__", []ast.Type{U32})
	require.NoError(t, err)
	assert.Nil(t, neg)

	assert.Equal(t, "S.m", m.MangledName())
}

func TestPermissions(t *testing.T) {
	mod := New(NewBuiltin(ir.NewContext()), "module")

	fn := New(mod, "fn")
	fn.ReturnAllowed = true

	loop := New(New(fn, "block"), "loop")
	loop.BreakAllowed = true

	inner := New(New(loop, "body"), "fn2")
	inner.ReturnAllowed = true

	body := New(loop, "body")

	assert.Same(t, loop, body.LoopFrame())
	assert.Same(t, fn, body.FunctionFrame())

	assert.Nil(t, inner.LoopFrame())
	assert.Same(t, inner, inner.FunctionFrame())

	assert.Nil(t, mod.FunctionFrame())
}

func TestIRTypeCache(t *testing.T) {
	c := ir.NewContext()
	b := NewBuiltin(c)
	mod := New(b, "module")
	blk := New(mod, "block")

	s := &ast.StructType{Name: "S", Fields: []ast.Field{{Name: "x", Type: I32}}}
	require.NoError(t, mod.DeclareType("S", s, ast.Span{}))

	blk.SetIRType(s, c.NamedStruct("S", c.Int(32)))

	_, ok := mod.IRType(s)
	assert.True(t, ok, "named types are cached where declared")

	u := &ast.StructType{Fields: []ast.Field{{Name: "x", Type: I32}}}
	blk.SetIRType(u, c.Struct(c.Int(32)))

	r, ok := mod.IRType(&ast.StructType{Fields: []ast.Field{{Name: "x", Type: I32}}})
	assert.True(t, ok, "unnamed types are cached in the outermost open frame")
	assert.Equal(t, c.Struct(c.Int(32)), r)

	_, ok = b.IRType(u)
	assert.False(t, ok, "builtin frame is sealed")

	opt := &ast.OptionalType{Elem: I32}
	b.SetIRType(opt, c.Struct(c.Int(1), c.Int(32)))

	_, ok = b.IRType(opt)
	assert.False(t, ok)

	// another module does not see the first one's cache
	_, ok = New(b, "other").IRType(u)
	assert.False(t, ok)
}
