package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/rainlang/rain/compiler/ast"
	"github.com/rainlang/rain/compiler/compile"
	"github.com/rainlang/rain/compiler/diag"
	"github.com/rainlang/rain/compiler/parse"
)

type (
	// File is a parsed source file.
	File struct {
		Path string
		Text []byte

		AST *ast.Module
	}

	// SourceError renders the diagnostic with source locations.
	SourceError struct {
		Src *diag.Source
		Err error
	}
)

func ParseFile(ctx context.Context, path string) (*File, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", path)

	return Parse(ctx, path, text)
}

// Parse parses text. The module is named after the path base.
func Parse(ctx context.Context, path string, text []byte) (*File, error) {
	f := &File{
		Path: path,
		Text: text,
	}

	m, err := parse.Parse(ctx, parse.ModuleName(path), text)
	if err != nil {
		return nil, f.Error(errors.Wrap(err, "parse text"))
	}

	f.AST = m

	return f, nil
}

func CompileFile(ctx context.Context, c *compile.Compiler, path string) (*compile.Module, error) {
	f, err := ParseFile(ctx, path)
	if err != nil {
		return nil, err
	}

	return f.Compile(ctx, c)
}

func Compile(ctx context.Context, c *compile.Compiler, path string, text []byte) (*compile.Module, error) {
	f, err := Parse(ctx, path, text)
	if err != nil {
		return nil, err
	}

	return f.Compile(ctx, c)
}

// Compile builds the file with c.
func (f *File) Compile(ctx context.Context, c *compile.Compiler) (*compile.Module, error) {
	mod, err := c.Build(ctx, f.AST)
	if err != nil {
		return nil, f.Error(errors.Wrap(err, "compile %v", f.Path))
	}

	tr := tlog.SpanFromContext(ctx)

	for _, w := range mod.Warnings {
		tr.Printw("warning", "file", f.Path, "warning", f.Error(w).Error())
	}

	return mod, nil
}

// Error attaches the file source to err.
func (f *File) Error(err error) error {
	if err == nil {
		return nil
	}

	return SourceError{
		Src: diag.NewSource(f.Path, f.Text),
		Err: err,
	}
}

func (e SourceError) Error() string { return diag.Format(e.Src, e.Err) }

func (e SourceError) Unwrap() error { return e.Err }
