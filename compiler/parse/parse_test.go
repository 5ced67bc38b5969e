package parse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainlang/rain/compiler/ast"
	"github.com/rainlang/rain/compiler/diag"
)

func body(t *testing.T, src string) *ast.Block {
	t.Helper()

	m, err := Parse(context.Background(), "test", []byte(src))
	require.NoError(t, err)
	require.Len(t, m.Decls, 1)

	f, ok := ast.Unwrap(m.Decls[0]).(*ast.Function)
	require.True(t, ok, "got %T", m.Decls[0])

	return f.Body
}

func TestModule(t *testing.T) {
	m, err := Parse(context.Background(), "lib", []byte(`
// leading comment
struct Point { x: f64, y: f64 }

fn Point.len2(self) -> f64 { self.x * self.x + self.y * self.y }

export fn main() -> i32 {
	let mut a = 1 // trailing comment
	a = a + 2;
	a
};
`))
	require.NoError(t, err)

	assert.Equal(t, "lib", m.Name)
	require.Len(t, m.Decls, 3)

	td, ok := m.Decls[0].(*ast.TypeDecl)
	require.True(t, ok)
	assert.Equal(t, "Point", td.Name)

	method, ok := m.Decls[1].(*ast.Function)
	require.True(t, ok)
	assert.Equal(t, "len2", method.Name)
	require.NotNil(t, method.Receiver)
	assert.Equal(t, "Point", method.Receiver.String())
	assert.True(t, method.TakesSelf())

	exp, ok := m.Decls[2].(*ast.Export)
	require.True(t, ok)

	main := ast.Unwrap(exp).(*ast.Function)
	assert.Equal(t, "main", main.Name)
	assert.Equal(t, "i32", main.Result.String())

	require.Len(t, main.Body.Stmts, 2)

	let := main.Body.Stmts[0].(*ast.Let)
	assert.Equal(t, "a", let.Name)
	assert.True(t, let.Mutable)

	assert.IsType(t, &ast.Binary{}, main.Body.Stmts[1])
	assert.IsType(t, &ast.Identifier{}, main.Body.Value)
}

func TestNumbers(t *testing.T) {
	for _, tc := range []struct {
		src string
		exp any
	}{
		{"42", uint64(42)},
		{"0x1F", uint64(31)},
		{"0o17", uint64(15)},
		{"0b101", uint64(5)},
		{"1_000", uint64(1000)},
		{"1.5", 1.5},
		{"1.5e3", 1500.0},
		{"25e-2", 0.25},
	} {
		b := body(t, "fn f() { "+tc.src+" }")

		switch x := b.Value.(type) {
		case *ast.Integer:
			assert.Equal(t, tc.exp, x.Value, "%v", tc.src)
		case *ast.Float:
			assert.Equal(t, tc.exp, x.Value, "%v", tc.src)
		default:
			t.Errorf("%v: unexpected %T", tc.src, x)
		}
	}
}

func TestPrecedence(t *testing.T) {
	b := body(t, `fn f() -> i32 { 1 + 2 * 3 - 4 }`)

	sub, ok := b.Value.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.OpSub, sub.Op)

	add, ok := sub.L.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.OpAdd, add.Op)

	mul, ok := add.R.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.OpMul, mul.Op)
}

func TestConditionWithoutCtor(t *testing.T) {
	b := body(t, `fn f(a: bool) -> i32 { if a { 1 } else { 2 } }`)

	x, ok := b.Value.(*ast.If)
	require.True(t, ok)

	assert.IsType(t, &ast.Identifier{}, x.Cond)
	require.NotNil(t, x.Else)
	assert.IsType(t, &ast.Integer{}, x.Then.Value)
}

func TestCompileTimeAndCast(t *testing.T) {
	b := body(t, `fn f() -> f64 { #(3 + 4) as f64 }`)

	c, ok := b.Value.(*ast.Cast)
	require.True(t, ok, "got %T", b.Value)
	assert.Equal(t, "f64", c.To.String())
	assert.IsType(t, &ast.CompileTime{}, c.X)

	b = body(t, `fn f() -> i32 { #g(1).x }`)

	ct, ok := b.Value.(*ast.CompileTime)
	require.True(t, ok, "got %T", b.Value)
	assert.IsType(t, &ast.Member{}, ct.X)
}

func TestTrailingSemicolons(t *testing.T) {
	m, err := Parse(context.Background(), "test", []byte("fn f() { };\n\nfn g() { } ;\n"))
	require.NoError(t, err)
	assert.Len(t, m.Decls, 2)
}

func TestSyntaxErrors(t *testing.T) {
	for _, tc := range []struct {
		src string
		msg string
	}{
		{`fn () { }`, "identifier expected"},
		{`let x = 1`, `declaration expected, got "let"`},
		{`fn f( { }`, "identifier expected"},
		{`fn f() { 1 + }`, "expected"},
		{`struct P { x: i32 `, "expected"},
	} {
		_, err := Parse(context.Background(), "test", []byte(tc.src))
		require.Error(t, err, "%v", tc.src)
		assert.ErrorContains(t, err, tc.msg, "%v", tc.src)
		assert.True(t, diag.IsKind(err, diag.Syntax), "%v: %v", tc.src, err)
	}
}

func TestModuleName(t *testing.T) {
	assert.Equal(t, "foo", ModuleName("dir/foo.rain"))
	assert.Equal(t, "bar", ModuleName("bar"))
}
