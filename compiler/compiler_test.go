package compiler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainlang/rain/compiler/compile"
	"github.com/rainlang/rain/compiler/diag"
	"github.com/rainlang/rain/compiler/interp"
)

func TestCompileFile(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "answer.rain")

	err := os.WriteFile(path, []byte("export fn main() -> i32 { #(6 * 7) }\n"), 0o644)
	require.NoError(t, err)

	mod, err := CompileFile(ctx, compile.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "answer", mod.Name)

	res, err := interp.New(mod.IR).RunByName(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, int64(42), res.Int)
}

func TestSourceError(t *testing.T) {
	ctx := context.Background()

	src := "fn f() -> i32 {\n\tlet x = 1\n\tx = 2\n\tx\n}\n"

	_, err := Compile(ctx, compile.New(), "bad.rain", []byte(src))
	require.Error(t, err)

	var se SourceError
	require.ErrorAs(t, err, &se)
	assert.True(t, diag.IsKind(err, diag.Resolution))

	text := err.Error()
	assert.Contains(t, text, "bad.rain:3:2: ")
	assert.Contains(t, text, `cannot assign to immutable variable "x"`)
	assert.Contains(t, text, "bad.rain:2:2: note: related location")

	_, err = Compile(ctx, compile.New(), "syntax.rain", []byte("fn ( {}"))
	require.Error(t, err)
	assert.True(t, diag.IsKind(err, diag.Syntax))
	assert.Contains(t, err.Error(), "syntax.rain:1:4: ")
}
