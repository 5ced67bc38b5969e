package compile

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainlang/rain/compiler/ast"
	"github.com/rainlang/rain/compiler/diag"
	"github.com/rainlang/rain/compiler/interp"
	"github.com/rainlang/rain/compiler/ir"
	"github.com/rainlang/rain/compiler/parse"
	"github.com/rainlang/rain/compiler/scope"
)

func build(t *testing.T, c *Compiler, src string) (*Module, error) {
	t.Helper()

	ctx := context.Background()

	m, err := parse.Parse(ctx, "test", []byte(src))
	require.NoError(t, err)

	return c.Build(ctx, m)
}

func mustBuild(t *testing.T, c *Compiler, src string) *Module {
	t.Helper()

	mod, err := build(t, c, src)
	require.NoError(t, err)

	return mod
}

// retValue returns the value the function returns in its last ret.
func retValue(t *testing.T, m *ir.Module, name string) ir.Expr {
	t.Helper()

	f := m.LookupFunc(name)
	require.NotEqual(t, ir.Nil, f, "no function %v", name)

	r := ir.Nil

	for _, b := range m.Func(f).Blocks {
		for _, id := range m.Block(b).Code {
			if ret, ok := m.Exprs[id].(ir.Ret); ok {
				r = ret.Val
			}
		}
	}

	require.NotEqual(t, ir.Nil, r, "%v returns nothing", name)

	return r
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	mod := mustBuild(t, New(), `
export fn double(x: i32) -> i32 { x * 2 }

export fn run() -> i32 { double(21) }

fn sum(n: i32) -> i32 {
	let mut s = 0
	let mut i = 0
	while i < n {
		i = i + 1
		s = s + i
	}
	s
}
`)

	assert.Equal(t, DefaultTriple, mod.IR.Triple)
	assert.Equal(t, ir.Exported, mod.IR.Func(mod.IR.LookupFunc("run")).Linkage)
	assert.Equal(t, ir.Internal, mod.IR.Func(mod.IR.LookupFunc("sum")).Linkage)

	e := interp.New(mod.IR)

	res, err := e.RunByName(ctx, "run")
	require.NoError(t, err)
	assert.Equal(t, interp.IntValue(32, 42), res)

	res, err = e.RunByName(ctx, "sum", interp.IntValue(32, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(55), res.Int)
}

func TestCompileTime(t *testing.T) {
	mod := mustBuild(t, New(), `
struct P { x: i32, y: f64 }

fn double(x: i32) -> i32 { x * 2 }

fn seven() -> i32 { #(3 + 4) }
fn half() -> f64 { #(1.0 / 2.0) }
fn mk() -> P { #(P { x: 1, y: 2.5 }) }
fn later() -> i32 { #double(21) }
`)

	m := mod.IR

	assert.Equal(t, ir.ConstInt{Value: 7}, m.Exprs[retValue(t, m, "seven")])
	assert.Equal(t, ir.ConstFloat{Value: 0.5}, m.Exprs[retValue(t, m, "half")])
	assert.Equal(t, ir.ConstInt{Value: 42}, m.Exprs[retValue(t, m, "later")])

	cs, ok := m.Exprs[retValue(t, m, "mk")].(ir.ConstStruct)
	require.True(t, ok, "got %T", m.Exprs[retValue(t, m, "mk")])
	require.Len(t, cs.Fields, 2)
	assert.Equal(t, ir.ConstInt{Value: 1}, m.Exprs[cs.Fields[0]])
	assert.Equal(t, ir.ConstFloat{Value: 2.5}, m.Exprs[cs.Fields[1]])

	assert.Equal(t, ir.Nil, m.LookupFunc(ExecFuncName))
	assert.Len(t, m.Funcs, 5)
}

func TestCompileTimeExternal(t *testing.T) {
	c := New()
	require.NoError(t, c.LoadMathExternals())

	mod := mustBuild(t, c, `fn root() -> f64 { #__builtin_sqrt(16.0) }`)

	assert.Equal(t, ir.ConstFloat{Value: 4}, mod.IR.Exprs[retValue(t, mod.IR, "root")])

	f := mod.IR.LookupFunc(BuiltinSqrt)
	require.NotEqual(t, ir.Nil, f)
	assert.Equal(t, ir.External, mod.IR.Func(f).Linkage)
	assert.Equal(t, "math", mod.IR.Func(f).Namespace)

	err := c.DeclareExternalFunction(BuiltinSqrt, "math", nil)
	assert.ErrorContains(t, err, "no function type given")

	err = c.DeclareExternalFunction("", "math", nil)
	assert.ErrorContains(t, err, "no name given")
}

func TestCompileTimeFailure(t *testing.T) {
	_, err := build(t, New(), `fn f() -> i32 { #(1 / 0) }`)
	require.Error(t, err)

	assert.ErrorContains(t, err, "compile-time evaluation failed")
	assert.True(t, diag.IsKind(err, diag.CompileTime))
}

func TestCtor(t *testing.T) {
	mod := mustBuild(t, New(), `
struct P { x: i32, y: i32 }

fn full(a: i32) -> P { P { y: a, x: 1 } }
fn part(a: i32) -> P { P { y: a } }
`)

	m := mod.IR

	// inserts are made in source order over the initial value
	walk := func(e ir.Expr) (idx []int, base any) {
		for {
			ins, ok := m.Exprs[e].(ir.Insert)
			if !ok {
				return idx, m.Exprs[e]
			}

			idx = append([]int{ins.Index}, idx...)
			e = ins.Agg
		}
	}

	idx, base := walk(retValue(t, m, "full"))
	assert.Equal(t, []int{1, 0}, idx)
	assert.Equal(t, ir.Poison{}, base)

	idx, base = walk(retValue(t, m, "part"))
	assert.Equal(t, []int{1}, idx)
	assert.Equal(t, ir.Zero{}, base)
}

func TestForwardReference(t *testing.T) {
	src := `
fn f() -> i32 { g() + 1 }
fn g() -> i32 { 2 }
`

	mod := mustBuild(t, New(), src)

	res, err := interp.New(mod.IR).RunByName(context.Background(), "f")
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Int)

	_, err = build(t, NewWithOptions(Options{SinglePass: true}), src)
	assert.ErrorContains(t, err, "unknown variable: g")
}

func TestRebuild(t *testing.T) {
	src := `
struct P { x: i32, y: i32 }

fn P.sum(self) -> i32 { self.x + self.y }

export fn main() -> i32 {
	let p = P { x: 1, y: 2 }
	if p.sum() > 2 { p.sum() } else { #(5 * 5) }
}
`

	ctx := context.Background()
	c := New()

	m, err := parse.Parse(ctx, "test", []byte(src))
	require.NoError(t, err)

	a, err := c.Build(ctx, m)
	require.NoError(t, err)

	main := ast.Unwrap(m.Decls[2]).(*ast.Function)
	cond := main.Body.Value.(*ast.If).Cond
	typ := cond.Type()

	b, err := c.Build(ctx, m)
	require.NoError(t, err)

	assert.Same(t, typ, cond.Type())
	assert.Equal(t, a.IR.String(), b.IR.String())
	assert.Equal(t, 1, strings.Count(b.IR.String(), "%P = type"))
	assert.NotSame(t, a.IR, b.IR)

	_, ok := a.Scope.FindVariable("main")
	assert.True(t, ok)
	assert.Nil(t, a.Scope.Parent())
}

func TestMethodSymbols(t *testing.T) {
	mod := mustBuild(t, New(), `
struct P { x: i32 }

fn P.get(self) -> i32 { self.x }
fn P.make(x: i32) -> P { P { x: x } }

fn main() -> i32 { P.make(3).get() }
`)

	assert.NotEqual(t, ir.Nil, mod.IR.LookupFunc("P.get"))
	assert.NotEqual(t, ir.Nil, mod.IR.LookupFunc("P.make"))

	res, err := interp.New(mod.IR).RunByName(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Int)
}

func TestBuiltinUntouched(t *testing.T) {
	c := New()

	opt := &ast.OptionalType{Elem: scope.I32}

	_, ok := c.Builtin.IRType(opt)
	require.False(t, ok)

	mustBuild(t, c, `fn f(c: bool) -> ?i32 { if c { 1 } }`)

	_, ok = c.Builtin.IRType(opt)
	assert.False(t, ok, "type cache of a build stays in its module frame")
}

func TestCompileTimeGenerationFailure(t *testing.T) {
	ctx := context.Background()

	m := ir.NewModule(nil, "t")
	s := scope.New(scope.NewBuiltin(m.Ctx), "t")
	g := NewGenerator(m, s, Options{})

	f := m.NewFunc("f", m.Ctx.Func(m.Ctx.Int(32)), ir.Internal)
	g.b.SetInsertPoint(m.NewBlock(f, "entry"))

	cur := g.b.Cursor()
	funcs := len(m.Funcs)

	// calling a literal is capable but has no code generation
	call := &ast.Call{Callee: &ast.Integer{Value: 1}}
	require.NoError(t, call.Callee.SetType(scope.I32))
	require.NoError(t, call.SetType(scope.I32))
	require.True(t, call.CompileTimeCapable())

	_, err := g.compileTime(ctx, &ast.CompileTime{X: call})
	require.Error(t, err)
	assert.True(t, diag.IsKind(err, diag.Generation), "%v", err)

	assert.Equal(t, 0, g.b.Depth())
	assert.Equal(t, cur, g.b.Cursor())
	assert.Same(t, s, g.Scope())
	assert.Equal(t, ir.Nil, m.LookupFunc(ExecFuncName))
	assert.Len(t, m.Funcs, funcs)
}

func TestCompileTimeWarnings(t *testing.T) {
	src := `
fn f(a: i32) -> i32 { #(a + 1) }
fn g() -> i32 { #(2 + 3) }
`

	mod := mustBuild(t, New(), src)

	require.Len(t, mod.Warnings, 1)

	w := mod.Warnings[0]
	assert.Equal(t, diag.CompileTime, w.Kind)
	assert.Contains(t, w.Error(), "not compile-time capable")
	require.Len(t, w.Spans, 1)
	assert.Equal(t, "a + 1", src[w.Spans[0].Pos:w.Spans[0].End])

	_, ok := mod.IR.Exprs[retValue(t, mod.IR, "f")].(ir.BinOp)
	assert.True(t, ok, "generated at run time")
}
