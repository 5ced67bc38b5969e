package parse

import (
	"context"

	"github.com/rainlang/rain/compiler/ast"
)

// decl parses a top-level declaration.
func (s *State) decl(ctx context.Context, st int) (x ast.Expr, i int, err error) {
	i = s.skip(st)

	if j, ok := s.keyword(i, "export"); ok {
		var y ast.Expr

		y, j, err = s.decl(ctx, j)
		if err != nil {
			return nil, st, err
		}

		return &ast.Export{Base: ast.MakeBase(ast.MakeSpan(i, j)), X: y}, j, nil
	}

	w, _ := s.word(i)

	switch w {
	case "fn":
		return s.function(ctx, i)
	case "struct", "interface", "type":
		return s.typeDecl(i)
	}

	return nil, st, s.expected(i, "declaration")
}

// stmt parses a statement or an expression in a block.
func (s *State) stmt(ctx context.Context, st int) (x ast.Expr, i int, err error) {
	i = s.skip(st)

	w, j := s.word(i)

	switch w {
	case "let":
		return s.let(ctx, i, j)
	case "return":
		n := &ast.Return{}

		if !s.endOfStmt(j) {
			n.Value, j, err = s.expr(ctx, j)
			if err != nil {
				return nil, st, err
			}
		}

		n.Base = ast.MakeBase(ast.MakeSpan(i, j))

		return n, j, nil
	case "break":
		return &ast.Break{Base: ast.MakeBase(ast.MakeSpan(i, j))}, j, nil
	case "fn":
		return s.function(ctx, i)
	case "struct", "interface", "type":
		return s.typeDecl(i)
	}

	return s.expr(ctx, i)
}

// endOfStmt reports whether the statement ends at st:
// at a new line, ';', '}', a comment or the end of text.
func (s *State) endOfStmt(st int) bool {
	i := SpaceTab.Skip(s.b, st)

	if i == len(s.b) {
		return true
	}

	switch s.b[i] {
	case '\n', '\r', ';', '}':
		return true
	}

	return s.peek(i, "//")
}

func (s *State) let(ctx context.Context, st, kwEnd int) (x ast.Expr, i int, err error) {
	n := &ast.Let{}

	i = s.skip(kwEnd)

	if j, ok := s.keyword(i, "mut"); ok {
		n.Mutable = true
		i = s.skip(j)
	}

	n.Name, i, err = s.ident(i)
	if err != nil {
		return nil, st, err
	}

	i = s.skip(i)

	if j, ok := s.punct(i, ":"); ok {
		n.Decl, i, err = s.typ(j)
		if err != nil {
			return nil, st, err
		}
	}

	i, err = s.expect(i, "=")
	if err != nil {
		return nil, st, err
	}

	n.Init, i, err = s.expr(ctx, i)
	if err != nil {
		return nil, st, err
	}

	n.Base = ast.MakeBase(ast.MakeSpan(st, i))

	return n, i, nil
}

// block parses "{ stmts }".
// The last expression not followed by ';' is the block value.
func (s *State) block(ctx context.Context, st int) (x ast.Expr, i int, err error) {
	b, i, err := s.blockAt(ctx, st)
	if err != nil {
		return nil, st, err
	}

	return b, i, nil
}

func (s *State) blockAt(ctx context.Context, st int) (b *ast.Block, i int, err error) {
	defer func(prev bool) { s.noCtor = prev }(s.noCtor)
	s.noCtor = false

	pos := s.skip(st)

	i, err = s.expect(st, "{")
	if err != nil {
		return nil, st, err
	}

	b = &ast.Block{}

	for {
		i = s.skip(i)

		if j, ok := s.punct(i, "}"); ok {
			i = j
			break
		}

		if j, ok := s.punct(i, ";"); ok {
			i = j
			continue
		}

		if i == len(s.b) {
			return nil, st, s.expected(i, "'}'")
		}

		var x ast.Expr

		x, i, err = s.stmt(ctx, i)
		if err != nil {
			return nil, st, err
		}

		j := s.skip(i)

		if k, ok := s.punct(j, ";"); ok {
			i = k
			b.Stmts = append(b.Stmts, x)

			continue
		}

		if s.peek(j, "}") && isValue(x) {
			b.Value = x
			continue
		}

		b.Stmts = append(b.Stmts, x)
	}

	b.Base = ast.MakeBase(ast.MakeSpan(pos, i))

	return b, i, nil
}

func isValue(x ast.Expr) bool {
	switch x.Kind() {
	case ast.KindLet, ast.KindReturn, ast.KindBreak, ast.KindWhile, ast.KindFunction, ast.KindTypeDecl:
		return false
	}

	return true
}

// function parses "fn [Recv.]name(args) [-> type] { body }".
func (s *State) function(ctx context.Context, st int) (x ast.Expr, i int, err error) {
	i, _ = s.keyword(s.skip(st), "fn")
	i = s.skip(i)

	fn := &ast.Function{}

	nst := i

	fn.Name, i, err = s.ident(i)
	if err != nil {
		return nil, st, err
	}

	if j, ok := s.punct(i, "."); ok {
		fn.Receiver = &ast.UnresolvedType{Name: fn.Name, Span: ast.MakeSpan(nst, i)}

		fn.Name, i, err = s.ident(j)
		if err != nil {
			return nil, st, err
		}
	}

	i, err = s.expect(i, "(")
	if err != nil {
		return nil, st, err
	}

	for {
		i = s.skip(i)

		if j, ok := s.punct(i, ")"); ok {
			i = j
			break
		}

		ap := i

		var a ast.Arg

		a.Name, i, err = s.ident(i)
		if err != nil {
			return nil, st, err
		}

		i = s.skip(i)

		if j, ok := s.punct(i, ":"); ok {
			a.Type, i, err = s.typ(j)
			if err != nil {
				return nil, st, err
			}
		}

		a.Span = ast.MakeSpan(ap, i)
		fn.Args = append(fn.Args, a)

		i = s.skip(i)

		if j, ok := s.punct(i, ","); ok {
			i = j
		} else if !s.peek(i, ")") {
			return nil, st, s.expected(i, "',' or ')'")
		}
	}

	fn.Result, i, fn.ResultSpan, err = s.result(i)
	if err != nil {
		return nil, st, err
	}

	fn.Body, i, err = s.blockAt(ctx, i)
	if err != nil {
		return nil, st, err
	}

	fn.Base = ast.MakeBase(ast.MakeSpan(s.skip(st), i))

	return fn, i, nil
}

// typeDecl parses struct, interface and type alias declarations.
func (s *State) typeDecl(st int) (x ast.Expr, i int, err error) {
	pos := s.skip(st)

	w, i := s.word(pos)

	n := &ast.TypeDecl{}

	n.Name, i, err = s.ident(s.skip(i))
	if err != nil {
		return nil, st, err
	}

	switch w {
	case "struct":
		var fs []ast.Field

		fs, i, err = s.fields(i)
		if err != nil {
			return nil, st, err
		}

		n.Of = &ast.StructType{Name: n.Name, Fields: fs, Span: ast.MakeSpan(pos, i)}
	case "interface":
		var ms []ast.MethodSig

		ms, i, err = s.methods(i)
		if err != nil {
			return nil, st, err
		}

		n.Of = &ast.InterfaceType{Name: n.Name, Methods: ms, Span: ast.MakeSpan(pos, i)}
	case "type":
		i, err = s.expect(i, "=")
		if err != nil {
			return nil, st, err
		}

		n.Of, i, err = s.typ(i)
		if err != nil {
			return nil, st, err
		}
	}

	n.Base = ast.MakeBase(ast.MakeSpan(pos, i))

	return n, i, nil
}

// methods parses interface body "{ fn name(types) [-> type] ... }".
func (s *State) methods(st int) (ms []ast.MethodSig, i int, err error) {
	i, err = s.expect(st, "{")
	if err != nil {
		return nil, st, err
	}

	for {
		i = s.skip(i)

		if j, ok := s.punct(i, "}"); ok {
			return ms, j, nil
		}

		j, ok := s.keyword(i, "fn")
		if !ok {
			return nil, st, s.expected(i, "method signature")
		}

		var m ast.MethodSig

		m.Name, i, err = s.ident(s.skip(j))
		if err != nil {
			return nil, st, err
		}

		var t ast.Type

		t, i, err = s.funcType(i)
		if err != nil {
			return nil, st, err
		}

		m.Type = t.(*ast.FunctionType)
		ms = append(ms, m)

		i = s.skip(i)

		if j, ok := s.punct(i, ","); ok {
			i = j
		} else if j, ok := s.punct(i, ";"); ok {
			i = j
		}
	}
}
