package analyze

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainlang/rain/compiler/ast"
	"github.com/rainlang/rain/compiler/diag"
	"github.com/rainlang/rain/compiler/ir"
	"github.com/rainlang/rain/compiler/parse"
	"github.com/rainlang/rain/compiler/scope"
)

func check(t *testing.T, src string, opts Options) (*ast.Module, *scope.Scope, error) {
	t.Helper()

	ctx := context.Background()

	m, err := parse.Parse(ctx, "test", []byte(src))
	require.NoError(t, err)

	s, err := Module(ctx, scope.NewBuiltin(ir.NewContext()), m, opts)

	return m, s, err
}

func TestResolveTypes(t *testing.T) {
	m, s, err := check(t, `
struct Point { x: f64, y: f64 }

fn Point.len2(self) -> f64 {
	self.x * self.x + self.y * self.y
}

fn main() -> f64 {
	let p = Point { x: 3.0, y: 4.0 }
	let n: i64 = 10
	p.len2() + 1.0
}
`, Options{})
	require.NoError(t, err)

	_, ok := s.FindNamedType("Point")
	assert.True(t, ok)

	v, ok := s.FindVariable("main")
	require.True(t, ok)
	require.NotNil(t, v.Func)
	assert.Equal(t, "f64", v.Func.Type.Result.String())

	main := ast.Unwrap(m.Decls[2]).(*ast.Function)

	let := main.Body.Stmts[1].(*ast.Let)
	assert.Equal(t, "i64", let.Init.Type().String(), "literal takes the declared type")

	val := main.Body.Value.(*ast.Binary)
	assert.Equal(t, "f64", val.Type().String())

	call := val.L.(*ast.Call)
	require.NotNil(t, call.Method)
	assert.Equal(t, "len2", call.Method.(*scope.Function).Name)
	assert.True(t, call.Self)
}

func TestIfWithoutElse(t *testing.T) {
	m, _, err := check(t, `
fn f(c: bool) {
	let v = if c { 1 }
}
`, Options{})
	require.NoError(t, err)

	f := ast.Unwrap(m.Decls[0]).(*ast.Function)
	let := f.Body.Stmts[0].(*ast.Let)

	assert.Equal(t, "?i32", let.Init.Type().String())
}

func TestForwardReference(t *testing.T) {
	src := `
fn f() -> i32 { g() + 1 }
fn g() -> i32 { 2 }
`

	_, _, err := check(t, src, Options{})
	assert.NoError(t, err)

	_, _, err = check(t, src, Options{SinglePass: true})
	assert.ErrorContains(t, err, "unknown variable: g")
}

func TestIntegerLimits(t *testing.T) {
	for _, src := range []string{
		`fn f() -> i8 { -128 }`,
		`fn f() -> i8 { 127 }`,
		`fn f() -> u8 { 255 }`,
		`fn f() -> i64 { -9223372036854775808 }`,
		`fn f() -> u64 { 18446744073709551615 }`,
	} {
		_, _, err := check(t, src, Options{})
		assert.NoError(t, err, "%s", src)
	}
}

func TestErrors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		src   string
		msg   string
		spans int
	}{
		{"unknown_variable", `fn f() -> i32 { y }`, "unknown variable: y", 1},
		{"immutable", "fn f() {\n\tlet x = 1\n\tx = 2\n}", `cannot assign to immutable variable "x"`, 2},
		{"if_mismatch", "fn f(c: bool) {\n\tlet v = if c { 1 } else { true }\n}", "if branch types do not match: i32 and bool", 2},
		{"if_cond", `fn f() -> i32 { if 1 { 2 } else { 3 } }`, "if condition must result in a boolean value", 1},
		{"while_cond", `fn f() { while 1 { } }`, "while condition must result in a boolean value", 1},
		{"break", `fn f() { break }`, "break outside of loop", 1},
		{"return_value", `fn f() { return 1 }`, "unexpected return value in function without result", 1},
		{"return_missing", `fn f() -> i32 { return }`, "missing return value: function returns i32", 2},
		{"return_type", `fn f() -> i32 { return true }`, "return type mismatch: declared i32, got bool", 2},
		{"overflow", `fn f() -> i8 { 300 }`, "integer literal 300 overflows i8", 1},
		{"overflow_signed", `fn f() -> i8 { 200 }`, "integer literal 200 overflows i8", 1},
		{"overflow_i32", `fn f() -> i32 { 4294967295 }`, "integer literal 4294967295 overflows i32", 1},
		{"overflow_neg", `fn f() -> i8 { -129 }`, "integer literal 129 overflows i8", 1},
		{"overflow_pos_min", `fn f() -> i8 { 128 }`, "integer literal 128 overflows i8", 1},
		{"args", "fn g(a: i32) -> i32 { a }\nfn f() -> i32 { g() }", "wrong number of arguments", 1},
		{"arg_type", "fn g(a: i32) -> i32 { a }\nfn f() -> i32 { g(true) }", "argument 1 type mismatch: expected i32, got bool", 1},
		{"no_method", "struct P { x: i32 }\nfn f(p: P) -> i32 { p.nope() }", `no matching method found, looking for method named "nope" on type "P"`, 1},
		{"method_args", "struct S { x: i32 }\nfn S.m(self) -> i32 { self.x }\nfn f(s: S) -> i32 { s.m(1) }", `no matching method found, looking for method named "m" on type "S"`, 1},
		{"method_recv", "struct S { x: i32 }\nfn S.m(self) -> i32 { self.x }\nfn f(x: i32) -> i32 { x.m() }", `no matching method found, looking for method named "m" on type "i32"`, 1},
		{"no_member", "struct P { x: i32 }\nfn f(p: P) -> i32 { p.y }", `unknown member; "y" not found in struct "P"`, 1},
		{"bind_void", "fn g() { }\nfn f() { let v = g() }", `cannot bind "v" to a value of type void`, 1},
		{"call_value", "fn g() -> i32 { 1 }\nfn f() -> i32 {\n\tlet h = g\n\th()\n}", `cannot call function value "h": currently not implemented`, 1},
		{"call_expr", "fn g() -> i32 { 1 }\nfn f(c: bool) -> i32 { (if c { g } else { g })() }", "cannot call non-identifier expression: currently not implemented", 1},
		{"bad_cast", `fn f() -> bool { 1 as bool }`, "cannot cast i32 to bool", 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := check(t, tc.src, Options{})
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.msg)

			d, ok := diag.As(err)
			require.True(t, ok, "diagnostic expected: %v", err)
			assert.Equal(t, diag.Resolution, d.Kind)
			assert.Len(t, d.Spans, tc.spans)
		})
	}
}

func TestImmutableSpans(t *testing.T) {
	src := "fn f() {\n\tlet x = 1\n\tx = 2\n}"

	_, _, err := check(t, src, Options{})

	d, ok := diag.As(err)
	require.True(t, ok)
	require.Len(t, d.Spans, 2)

	assert.Equal(t, "x", src[d.Spans[0].Pos:d.Spans[0].End])
	assert.Equal(t, "let x = 1", src[d.Spans[1].Pos:d.Spans[1].End])
}
