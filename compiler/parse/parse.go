package parse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/rainlang/rain/compiler/ast"
	"github.com/rainlang/rain/compiler/diag"
)

type (
	// State is a parser of a single source text.
	// Positions in the tree are byte offsets into the text.
	State struct {
		b []byte

		Name string

		// struct literals are not allowed in if and while conditions
		noCtor bool
	}

	PartialReadError struct {
		End int
	}
)

func ParseFile(ctx context.Context, name string) (*ast.Module, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	return Parse(ctx, ModuleName(name), data)
}

// ModuleName derives module name from the file path.
func ModuleName(path string) string {
	base := filepath.Base(path)

	return strings.TrimSuffix(base, filepath.Ext(base))
}

func Parse(ctx context.Context, name string, text []byte) (*ast.Module, error) {
	return New(name, text).Module(ctx)
}

func New(name string, text []byte) *State {
	return &State{
		b:    text,
		Name: name,
	}
}

func (s *State) Text(pos, end int) []byte {
	return s.b[pos:end]
}

// Module parses the whole text as a sequence of declarations.
func (s *State) Module(ctx context.Context) (m *ast.Module, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "parse", "module", s.Name, "size", len(s.b))
	defer tr.Finish("err", &err)

	m = &ast.Module{Name: s.Name}

	i := s.skip(0)

	for i < len(s.b) {
		var d ast.Expr

		st := i

		d, i, err = s.decl(ctx, i)
		if err != nil {
			return nil, err
		}

		if i == st {
			return nil, PartialReadError{End: i}
		}

		m.Decls = append(m.Decls, d)

		i = s.skip(i)
		i, _ = s.punct(i, ";")
		i = s.skip(i)
	}

	tr.V("parse").Printw("parsed", "decls", len(m.Decls))

	return m, nil
}

func (s *State) skip(i int) int {
	return SpaceAll.SkipComments(s.b, i)
}

func (s *State) errorf(pos int, format string, args ...any) error {
	end := pos
	if end < len(s.b) {
		end++
	}

	return diag.Errorf(diag.Syntax, ast.MakeSpan(pos, end), format, args...)
}

// expected reports what was expected and what was found instead.
func (s *State) expected(i int, what string) error {
	if i >= len(s.b) {
		return s.errorf(i, "%s expected, got end of file", what)
	}

	end := i + 1
	for end < len(s.b) && end < i+16 && !isSpace(s.b[end]) {
		end++
	}

	return s.errorf(i, "%s expected, got %q", what, s.b[i:end])
}

func isSpace(c byte) bool {
	return c < 64 && SpaceAll&(1<<c) != 0
}

func (e PartialReadError) Error() string {
	return fmt.Sprintf("partial read: stopped at %d", e.End)
}
