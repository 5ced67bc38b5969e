package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypesInterned(t *testing.T) {
	c := NewContext()

	assert.Equal(t, c.Int(32), c.Int(32))
	assert.NotEqual(t, c.Int(32), c.Int(64))
	assert.Equal(t, c.Struct(c.Int(32), c.Float(32)), c.Struct(c.Int(32), c.Float(32)))

	a := c.NamedStruct("S", c.Int(32))
	b := c.NamedStruct("S", c.Int(32))
	assert.NotEqual(t, a, b)

	assert.Equal(t, "{ i32, float }", c.TypeString(c.Struct(c.Int(32), c.Float(32))))
	assert.Equal(t, "%S", c.TypeString(a))
	assert.Equal(t, "i32 (i32, double)", c.TypeString(c.Func(c.Int(32), c.Int(32), c.Float(64))))
}

func buildDouble(t *testing.T) (*Module, Expr) {
	t.Helper()

	m := NewModule(nil, "test")
	i32 := m.Ctx.Int(32)

	f := m.NewFunc("double", m.Ctx.Func(i32, i32), Exported, "n")

	b := NewBuilder(m)
	b.SetInsertPoint(m.NewBlock(f, "entry"))

	n := m.Func(f).Params[0]
	r := b.BinOp(OpMul, n, m.ConstInt(i32, 2))
	b.Ret(r)

	require.True(t, b.Terminated())

	return m, f
}

func TestPrint(t *testing.T) {
	m, _ := buildDouble(t)

	m.Triple = "wasm32-unknown-unknown"

	exp := `; module test
target triple = "wasm32-unknown-unknown"

define export i32 @double(i32 %n) {
entry:
  %0 = mul i32 %n, 2
  ret i32 %0
}
`

	assert.Equal(t, exp, m.String())
}

func TestBuilderSaveRestore(t *testing.T) {
	m, f := buildDouble(t)

	b := NewBuilder(m)
	entry := m.Func(f).Blocks[0]
	b.SetInsertPoint(entry)

	func() {
		b.Save()
		defer b.Restore()

		g := m.NewFunc("#exec", m.Ctx.Func(m.Ctx.Void()), Internal)
		b.SetInsertPoint(m.NewBlock(g, "entry"))
		b.RetVoid()

		assert.Equal(t, 1, b.Depth())
	}()

	assert.Equal(t, Cursor{Func: f, Block: entry}, b.Cursor())
	assert.Equal(t, 0, b.Depth())

	assert.Panics(t, b.Restore)
}

func TestAllocaInEntry(t *testing.T) {
	m := NewModule(nil, "test")
	i32 := m.Ctx.Int(32)

	f := m.NewFunc("f", m.Ctx.Func(m.Ctx.Void()), Internal)

	b := NewBuilder(m)
	entry := m.NewBlock(f, "entry")
	b.SetInsertPoint(entry)

	b.Store(m.ConstInt(i32, 1), b.Alloca(i32))

	loop := b.NewBlock("loop")
	b.Br(loop)
	b.SetInsertPoint(loop)

	b.Alloca(i32)

	code := m.Block(entry).Code
	require.Len(t, code, 4)

	assert.IsType(t, Alloca{}, m.Exprs[code[0]])
	assert.IsType(t, Alloca{}, m.Exprs[code[1]])
	assert.IsType(t, Store{}, m.Exprs[code[2]])
	assert.IsType(t, Br{}, m.Exprs[code[3]])

	assert.Equal(t, "loop", m.Block(loop).Label)
	assert.Equal(t, "loop1", m.Block(b.NewBlock("loop")).Label)
}

func TestCloneIndependent(t *testing.T) {
	m, f := buildDouble(t)

	c := m.Clone()

	g := m.NewFunc("other", m.Ctx.Func(m.Ctx.Void()), Internal)
	m.RemoveFunc(f)

	assert.Equal(t, []Expr{g}, m.Funcs)
	assert.Nil(t, m.Func(f))

	assert.Equal(t, []Expr{f}, c.Funcs)
	require.NotNil(t, c.Func(f))
	assert.Equal(t, "double", c.Func(f).Name)
	assert.Equal(t, f, c.LookupFunc("double"))
	assert.Equal(t, Nil, c.LookupFunc("other"))
}

func TestPrintConstants(t *testing.T) {
	m := NewModule(nil, "c")
	c := m.Ctx

	st := c.Struct(c.Int(32), c.Float(64), c.Int(1))
	f := m.NewFunc("k", c.Func(st), Internal)

	b := NewBuilder(m)
	b.SetInsertPoint(m.NewBlock(f, "entry"))
	b.Ret(m.ConstStruct(st, m.ConstInt(c.Int(32), -3), m.ConstFloat(c.Float(64), 2), m.ConstInt(c.Int(1), 1)))

	assert.Contains(t, m.String(), "ret { i32, double, i1 } { i32 -3, double 2.0e+00, i1 true }")
}
