package format

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainlang/rain/compiler/ast"
	"github.com/rainlang/rain/compiler/parse"
)

func TestFormatModule(tb *testing.T) {
	ctx := context.Background()

	src := `
struct Point { x: f64, y: f64 }

fn Point.add(self, o: Point) -> Point {
	Point { x: self.x + o.x, y: self.y + o.y }
}

export fn main() -> i32 {
	let mut i = 0
	while i < 10 { i = i + 1 }
	if i == 10 { 1 } else if i > 3 { 2 } else { 3 }
}
`

	exp := `struct Point {
	x: f64,
	y: f64,
}

fn Point.add(self, o: Point) -> Point {
	Point { x: self.x + o.x, y: self.y + o.y }
}

export fn main() -> i32 {
	let mut i = 0;
	while i < 10 {
		i = i + 1
	};
	if i == 10 {
		1
	} else if i > 3 {
		2
	} else {
		3
	}
}
`

	m, err := parse.Parse(ctx, "point", []byte(src))
	require.NoError(tb, err)

	b, err := Format(ctx, nil, m)
	require.NoError(tb, err)
	assert.Equal(tb, exp, string(b))

	stable(tb, b)
}

func TestFormatExpr(tb *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		src, exp string
	}{
		{"(a + b) * -(a - b)", "(a + b) * -(a - b)"},
		{"a - (b - c)", "a - (b - c)"},
		{"(a - b) - c", "a - b - c"},
		{"a = b = c", "a = b = c"},
		{"#(1 + 2)", "#(1 + 2)"},
		{"#(3 + 4) as f64", "#(3 + 4) as f64"},
		{"#(x as f64)", "#(x as f64)"},
		{"#(-x)", "#(-x)"},
		{"-#x", "-#x"},
		{"#f(2).y", "#f(2).y"},
		{"(#f(2)).y", "(#f(2)).y"},
		{"x as i64 + 1", "x as i64 + 1"},
		{"(a + b) as f32", "(a + b) as f32"},
		{"p.x.y", "p.x.y"},
		{"f(1, 2.5, true)", "f(1, 2.5, true)"},
		{"2.0", "2.0"},
		{"a && b || c", "a & b | c"},
		{"if (P { x: 1 }).x == 1 { 1 } else { 2 }", "if (P { x: 1 }).x == 1 {\n\t1\n} else {\n\t2\n}"},
		{"P {}", "P {}"},
	} {
		src := "fn f() { " + tc.src + " }"

		m, err := parse.Parse(ctx, "expr", []byte(src))
		require.NoError(tb, err, "%s", tc.src)
		require.Len(tb, m.Decls, 1)

		fn := m.Decls[0].(*ast.Function)
		require.NotNil(tb, fn.Body.Value, "%s", tc.src)

		b, err := Format(ctx, nil, fn.Body.Value)
		require.NoError(tb, err, "%s", tc.src)
		assert.Equal(tb, tc.exp, string(b), "%s", tc.src)
	}
}

func TestFormatStatements(tb *testing.T) {
	ctx := context.Background()

	src := `fn f(a: i32) -> i32 {
	let x: i32 = a
	f(x)
	return x
}
`

	m, err := parse.Parse(ctx, "stmts", []byte(src))
	require.NoError(tb, err)

	b, err := Format(ctx, nil, m)
	require.NoError(tb, err)

	assert.Equal(tb, `fn f(a: i32) -> i32 {
	let x: i32 = a;
	f(x);
	return x;
}
`, string(b))

	stable(tb, b)
}

func TestFormatTypes(tb *testing.T) {
	ctx := context.Background()

	src := `
type Pair = (i32, f64)
type Maybe = ?i32
type Op = fn(i32, i32) -> i32
interface Shape {
	fn area(Shape) -> f64
}
`

	m, err := parse.Parse(ctx, "types", []byte(src))
	require.NoError(tb, err)

	b, err := Format(ctx, nil, m)
	require.NoError(tb, err)

	assert.Equal(tb, `type Pair = (i32, f64)

type Maybe = ?i32

type Op = fn(i32, i32) -> i32

interface Shape {
	fn area(Shape) -> f64
}
`, string(b))

	stable(tb, b)
}

func TestFormatUnsupported(tb *testing.T) {
	_, err := Format(context.Background(), nil, 5)
	assert.Error(tb, err)
}

func stable(tb *testing.T, b []byte) {
	tb.Helper()

	ctx := context.Background()

	m, err := parse.Parse(ctx, "again", b)
	require.NoError(tb, err)

	c, err := Format(ctx, nil, m)
	require.NoError(tb, err)

	assert.Equal(tb, string(b), string(c))
}
