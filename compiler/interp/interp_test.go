package interp

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"

	"github.com/rainlang/rain/compiler/ir"
)

func newFunc(m *ir.Module, name string, res ir.Type, params ...ir.Type) (ir.Expr, *ir.Builder) {
	f := m.NewFunc(name, m.Ctx.Func(res, params...), ir.Internal)

	b := ir.NewBuilder(m)
	b.SetInsertPoint(m.NewBlock(f, "entry"))

	return f, b
}

func TestArith(t *testing.T) {
	ctx := context.Background()

	m := ir.NewModule(nil, "t")
	i32 := m.Ctx.Int(32)

	f, b := newFunc(m, "double", i32, i32)
	p := m.Func(f).Params[0]
	b.Ret(b.BinOp(ir.OpMul, p, m.ConstInt(i32, 2)))

	e := New(m)

	res, err := e.Run(ctx, f, IntValue(32, 21))
	require.NoError(t, err)
	assert.Equal(t, IntValue(32, 42), res)

	res, err = e.RunByName(ctx, "double", IntValue(32, math.MaxInt32))
	require.NoError(t, err)
	assert.Equal(t, int64(-2), res.Int)

	_, err = e.RunByName(ctx, "triple")
	assert.Error(t, err)
}

func TestIntWidths(t *testing.T) {
	for _, tc := range []struct {
		op   ir.Op
		bits int
		l, r int64
		exp  int64
	}{
		{ir.OpAdd, 8, 127, 1, -128},
		{ir.OpSub, 16, -32768, 1, 32767},
		{ir.OpUDiv, 8, -1, 2, 127},
		{ir.OpURem, 8, -1, 10, 5},
		{ir.OpSDiv, 32, -7, 2, -3},
		{ir.OpSRem, 32, -7, 2, -1},
		{ir.OpSDiv, 32, math.MinInt32, -1, math.MinInt32},
		{ir.OpShl, 8, 1, 7, -128},
		{ir.OpAShr, 8, -128, 7, -1},
		{ir.OpLShr, 8, -128, 7, 1},
		{ir.OpShl, 32, 1, 32, 0},
		{ir.OpXor, 1, 1, 1, 0},
	} {
		v, err := binOp(tc.op, IntValue(tc.bits, tc.l), IntValue(tc.bits, tc.r))
		require.NoError(t, err, "%v", tc.op)
		assert.Equal(t, tc.exp, v.Int, "%v i%d %d %d", tc.op, tc.bits, tc.l, tc.r)
	}

	_, err := binOp(ir.OpSDiv, IntValue(32, 1), IntValue(32, 0))
	assert.True(t, errors.Is(err, ErrDivisionByZero))

	assert.True(t, compare(ir.PredULt, IntValue(8, 1), IntValue(8, -1)))
	assert.False(t, compare(ir.PredSLt, IntValue(8, 1), IntValue(8, -1)))
}

func TestFloat32Rounding(t *testing.T) {
	a, b := 0.1, 0.2
	a32, b32 := float32(a), float32(b)

	v, err := binOp(ir.OpFAdd, Float32Value(a32), Float32Value(b32))
	require.NoError(t, err)

	assert.Equal(t, KindFloat, v.Kind)
	assert.Equal(t, float64(a32+b32), v.Float)

	d, err := binOp(ir.OpFAdd, Float64Value(a), Float64Value(b))
	require.NoError(t, err)
	assert.Equal(t, a+b, d.Float)
	assert.NotEqual(t, 0.3, d.Float)

	assert.False(t, compare(ir.PredFONe, Float64Value(math.NaN()), Float64Value(1)))
}

func TestLoopWithPhi(t *testing.T) {
	ctx := context.Background()

	m := ir.NewModule(nil, "t")
	i32 := m.Ctx.Int(32)

	// sum of 1..n
	f, b := newFunc(m, "sum", i32, i32)
	n := m.Func(f).Params[0]

	entry := b.Block()
	loop := b.NewBlock("loop")
	done := b.NewBlock("done")

	b.Br(loop)

	b.SetInsertPoint(loop)
	i := b.Phi(i32, ir.PhiBranch{B: entry, Expr: m.ConstInt(i32, 1)})
	acc := b.Phi(i32, ir.PhiBranch{B: entry, Expr: m.ConstInt(i32, 0)})
	acc2 := b.BinOp(ir.OpAdd, acc, i)
	i2 := b.BinOp(ir.OpAdd, i, m.ConstInt(i32, 1))
	b.AddIncoming(i, i2, loop)
	b.AddIncoming(acc, acc2, loop)
	b.CondBr(b.Cmp(ir.PredSLe, i2, n), loop, done)

	b.SetInsertPoint(done)
	b.Ret(acc2)

	res, err := New(m).Run(ctx, f, IntValue(32, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(55), res.Int)
}

func TestStructMemory(t *testing.T) {
	ctx := context.Background()

	m := ir.NewModule(nil, "t")
	c := m.Ctx
	i32 := c.Int(32)
	f32 := c.Float(32)
	st := c.NamedStruct("P", i32, f32)

	f, b := newFunc(m, "mk", st)

	slot := b.Alloca(st)
	agg := b.Insert(m.Poison(st), m.ConstInt(i32, 7), 0)
	agg = b.Insert(agg, m.ConstFloat(f32, 1.5), 1)
	b.Store(agg, slot)

	fp := b.FieldPtr(st, slot, 0)
	x := b.Load(i32, fp)
	b.Store(b.BinOp(ir.OpAdd, x, m.ConstInt(i32, 1)), fp)

	b.Ret(b.Load(st, slot))

	res, err := New(m).Run(ctx, f)
	require.NoError(t, err)

	assert.Equal(t, AggregateValue(IntValue(32, 8), Float32Value(1.5)), res)
}

func TestExternal(t *testing.T) {
	ctx := context.Background()

	m := ir.NewModule(nil, "t")
	f64 := m.Ctx.Float(64)

	sqrt := m.NewFunc("test_sqrt", m.Ctx.Func(f64, f64), ir.External)

	f, b := newFunc(m, "run", f64)
	b.Ret(b.Call(sqrt, m.ConstFloat(f64, 16)))

	e := New(m)

	_, err := e.Run(ctx, f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lle_X_test_sqrt")

	Register("test_sqrt", func(args []Value) (Value, error) {
		return Float64Value(math.Sqrt(args[0].Float)), nil
	})

	res, err := e.Run(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, Float64Value(4), res)

	e.Register("test_sqrt", func(args []Value) (Value, error) {
		return Float64Value(-1), nil
	})

	res, err = e.Run(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, Float64Value(-1), res)

	Register("test_abs", func(args []Value) (Value, error) { return args[0], nil })

	names := Registered()
	assert.Contains(t, names, "lle_X_test_sqrt")
	assert.IsIncreasing(t, names)
}

func TestRecursionLimit(t *testing.T) {
	m := ir.NewModule(nil, "t")

	f, b := newFunc(m, "loop", m.Ctx.Void())
	b.Call(f)
	b.RetVoid()

	e := New(m)
	e.MaxDepth = 10

	_, err := e.Run(context.Background(), f)
	assert.ErrorContains(t, err, "call stack exhausted")
}
