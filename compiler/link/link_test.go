package link

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainlang/rain/compiler/compile"
	"github.com/rainlang/rain/compiler/parse"
)

func build(t *testing.T, c *compile.Compiler, name, src string) *compile.Module {
	t.Helper()

	ctx := context.Background()

	m, err := parse.Parse(ctx, name, []byte(src))
	require.NoError(t, err)

	mod, err := c.Build(ctx, m)
	require.NoError(t, err)

	return mod
}

func TestLinkGC(t *testing.T) {
	ctx := context.Background()
	c := compile.New()

	a := build(t, c, "a", `
export fn main() -> i32 { used(1) }
fn used(x: i32) -> i32 { deeper(x) + 1 }
fn deeper(x: i32) -> i32 { x * 2 }
fn unused() -> i32 { 5 }
`)

	b := build(t, c, "b", `
export fn other() -> i32 { 7 }
fn dead() -> i32 { 1 }
fn kept() -> i32 { 2 }
`)

	img, err := Link(ctx, []*compile.Module{a, b}, Options{ForceExport: []string{"kept"}})
	require.NoError(t, err)

	var exports []string
	for _, s := range img.Exports {
		exports = append(exports, s.Name)
	}

	assert.Equal(t, []string{"kept", "main", "other"}, exports)
	assert.Equal(t, []string{"dead", "unused"}, img.Removed)

	var names []string
	for _, f := range img.Module.Funcs {
		names = append(names, img.Module.Func(f).Name)
	}

	assert.ElementsMatch(t, []string{"main", "used", "deeper", "other", "kept"}, names)

	// inputs are not modified
	assert.Len(t, a.IR.Funcs, 4)
}

func TestLinkNoGC(t *testing.T) {
	ctx := context.Background()
	c := compile.New()

	a := build(t, c, "a", `
export fn main() -> i32 { 1 }
fn unused() -> i32 { 5 }
`)

	img, err := Link(ctx, []*compile.Module{a}, Options{NoGC: true})
	require.NoError(t, err)

	assert.Empty(t, img.Removed)
	assert.Len(t, img.Module.Funcs, 2)
}

func TestLinkErrors(t *testing.T) {
	ctx := context.Background()
	c := compile.New()

	a := build(t, c, "a", `export fn main() -> i32 { 1 }`)
	b := build(t, c, "b", `export fn main() -> i32 { 2 }`)

	_, err := Link(ctx, []*compile.Module{a, b}, Options{})
	assert.ErrorContains(t, err, "duplicate exported symbol: main")

	_, err = Link(ctx, []*compile.Module{a}, Options{ForceExport: []string{"nope"}})
	assert.ErrorContains(t, err, "no such function: nope")

	_, err = Link(ctx, nil, Options{})
	assert.Error(t, err)

	other := compile.New()
	x := build(t, other, "x", `export fn x() -> i32 { 1 }`)

	_, err = Link(ctx, []*compile.Module{a, x}, Options{})
	assert.ErrorContains(t, err, "different type contexts")
}

func TestStackLayout(t *testing.T) {
	ctx := context.Background()
	c := compile.New()

	a := build(t, c, "a", `export fn main() -> i32 { 1 }`)

	for _, tc := range []struct {
		stack, pages int
	}{
		{0, DefaultStackPages},
		{1, 1},
		{PageSize, 1},
		{PageSize + 1, 2},
		{10 * PageSize, 10},
	} {
		img, err := Link(ctx, []*compile.Module{a}, Options{StackSize: tc.stack, MemoryExport: "memory"})
		require.NoError(t, err)

		assert.Equal(t, tc.pages, img.Pages, "stack %d", tc.stack)
		assert.Equal(t, tc.pages*PageSize, img.StackTop)
		assert.Equal(t, img.StackTop, img.DataBase)
	}
}

func TestImageText(t *testing.T) {
	ctx := context.Background()
	c := compile.New()
	require.NoError(t, c.LoadMathExternals())

	a := build(t, c, "a", `export fn root(x: f64) -> f64 { __builtin_sqrt(x) }`)

	img, err := Link(ctx, []*compile.Module{a}, Options{MemoryExport: "memory"})
	require.NoError(t, err)

	require.Len(t, img.Imports, 1)
	assert.Equal(t, "math", img.Imports[0].Namespace)
	assert.Equal(t, compile.BuiltinSqrt, img.Imports[0].Name)

	text := img.String()

	assert.Contains(t, text, `memory pages 16 export "memory"`)
	assert.Contains(t, text, "stack 0x0-0x100000\n")
	assert.Contains(t, text, "import math.__builtin_sqrt\n")
	assert.Contains(t, text, "export root\n")
	assert.Contains(t, text, "removed __builtin_cos\n")
}
