package parse

import (
	"context"

	"github.com/rainlang/rain/compiler/ast"
)

var binarySymbols = []struct {
	sym string
	op  ast.BinaryOp
}{
	{"==", ast.OpEq},
	{"!=", ast.OpNe},
	{"<=", ast.OpLe},
	{">=", ast.OpGe},
	{"<<", ast.OpShl},
	{">>", ast.OpShr},
	{"&&", ast.OpAnd},
	{"||", ast.OpOr},
	{"=", ast.OpAssign},
	{"<", ast.OpLt},
	{">", ast.OpGt},
	{"+", ast.OpAdd},
	{"-", ast.OpSub},
	{"*", ast.OpMul},
	{"/", ast.OpDiv},
	{"%", ast.OpRem},
	{"&", ast.OpAnd},
	{"|", ast.OpOr},
	{"^", ast.OpXor},
}

func (s *State) expr(ctx context.Context, st int) (x ast.Expr, i int, err error) {
	return s.binary(ctx, st, 1)
}

// exprNoCtor parses an expression where '{' starts a block, not a struct literal.
func (s *State) exprNoCtor(ctx context.Context, st int) (x ast.Expr, i int, err error) {
	defer func(prev bool) { s.noCtor = prev }(s.noCtor)
	s.noCtor = true

	return s.expr(ctx, st)
}

// binary parses operators binding at least as tight as prec.
// Assignment is right associative, everything else is left associative.
func (s *State) binary(ctx context.Context, st int, prec int) (x ast.Expr, i int, err error) {
	x, i, err = s.unary(ctx, st)
	if err != nil {
		return nil, st, err
	}

	for {
		j := s.skip(i)

		op, k := s.binaryOp(j)
		if op == ast.OpInvalid || op.Precedence() < prec {
			return x, i, nil
		}

		next := op.Precedence() + 1
		if op == ast.OpAssign {
			next = op.Precedence()
		}

		var r ast.Expr

		r, i, err = s.binary(ctx, k, next)
		if err != nil {
			return nil, st, err
		}

		x = &ast.Binary{
			Base: ast.MakeBase(ast.MakeSpan(x.Span().Pos, r.Span().End)),
			Op:   op,
			L:    x,
			R:    r,
		}
	}
}

func (s *State) binaryOp(st int) (op ast.BinaryOp, i int) {
	for _, o := range binarySymbols {
		j, ok := s.punct(st, o.sym)
		if !ok {
			continue
		}

		// "==" and "=>" are not assignments, "//" never gets here
		if o.op == ast.OpAssign && j < len(s.b) && (s.b[j] == '=' || s.b[j] == '>') {
			continue
		}

		if o.op == ast.OpSub && s.peek(j, ">") {
			return ast.OpInvalid, st
		}

		return o.op, s.skip(j)
	}

	return ast.OpInvalid, st
}

func (s *State) unary(ctx context.Context, st int) (x ast.Expr, i int, err error) {
	i = s.skip(st)

	var op ast.UnaryOp

	switch {
	case s.peek(i, "#"):
		pos := i

		x, i, err = s.primary(ctx, i+1)
		if err != nil {
			return nil, st, err
		}

		// # binds to the primary and its member and call suffixes only
		x, i, err = s.suffixes(ctx, x, i, false)
		if err != nil {
			return nil, st, err
		}

		x = &ast.CompileTime{Base: ast.MakeBase(ast.MakeSpan(pos, i)), X: x}

		return s.suffixes(ctx, x, i, true)
	case s.peek(i, "-") && !s.peek(i, "->"):
		op = ast.UnaryNeg
	case s.peek(i, "+"):
		op = ast.UnaryPos
	case s.peek(i, "!") && !s.peek(i, "!="):
		op = ast.UnaryNot
	default:
		return s.postfix(ctx, i)
	}

	pos := i

	var y ast.Expr

	y, i, err = s.unary(ctx, i+1)
	if err != nil {
		return nil, st, err
	}

	return &ast.Unary{Base: ast.MakeBase(ast.MakeSpan(pos, i)), Op: op, X: y}, i, nil
}

func (s *State) postfix(ctx context.Context, st int) (x ast.Expr, i int, err error) {
	x, i, err = s.primary(ctx, st)
	if err != nil {
		return nil, st, err
	}

	return s.suffixes(ctx, x, i, true)
}

// suffixes applies member, call and, if casts is set, cast suffixes to x.
func (s *State) suffixes(ctx context.Context, x ast.Expr, st int, casts bool) (_ ast.Expr, i int, err error) {
	i = st

	for {
		j := s.skip(i)

		if k, ok := s.punct(j, "."); ok {
			k = s.skip(k)

			var name string

			name, i, err = s.ident(k)
			if err != nil {
				return nil, st, err
			}

			x = &ast.Member{Base: ast.MakeBase(ast.MakeSpan(x.Span().Pos, i)), Owner: x, Name: name, Index: -1}

			continue
		}

		j = SpaceTab.Skip(s.b, i)

		if k, ok := s.punct(j, "("); ok {
			var args []ast.Expr

			args, i, err = s.args(ctx, k)
			if err != nil {
				return nil, st, err
			}

			x = &ast.Call{Base: ast.MakeBase(ast.MakeSpan(x.Span().Pos, i)), Callee: x, Args: args}

			continue
		}

		if k, ok := s.keyword(j, "as"); ok && casts {
			var t ast.Type

			t, i, err = s.typ(k)
			if err != nil {
				return nil, st, err
			}

			x = &ast.Cast{Base: ast.MakeBase(ast.MakeSpan(x.Span().Pos, i)), X: x, To: t}

			continue
		}

		return x, i, nil
	}
}

// args parses call arguments after the opening parenthesis.
func (s *State) args(ctx context.Context, st int) (args []ast.Expr, i int, err error) {
	defer func(prev bool) { s.noCtor = prev }(s.noCtor)
	s.noCtor = false

	i = s.skip(st)

	for {
		if j, ok := s.punct(i, ")"); ok {
			return args, j, nil
		}

		var a ast.Expr

		a, i, err = s.expr(ctx, i)
		if err != nil {
			return nil, st, err
		}

		args = append(args, a)

		i = s.skip(i)

		if j, ok := s.punct(i, ","); ok {
			i = s.skip(j)
			continue
		}

		if !s.peek(i, ")") {
			return nil, st, s.expected(i, "',' or ')'")
		}
	}
}

func (s *State) primary(ctx context.Context, st int) (x ast.Expr, i int, err error) {
	i = s.skip(st)

	if i == len(s.b) {
		return nil, st, s.expected(i, "expression")
	}

	if c := s.b[i]; c >= '0' && c <= '9' {
		return s.number(i)
	}

	if j, ok := s.punct(i, "("); ok {
		defer func(prev bool) { s.noCtor = prev }(s.noCtor)
		s.noCtor = false

		x, j, err = s.expr(ctx, j)
		if err != nil {
			return nil, st, err
		}

		j, err = s.expect(j, ")")
		if err != nil {
			return nil, st, err
		}

		return x, j, nil
	}

	if s.peek(i, "{") {
		return s.block(ctx, i)
	}

	w, j := s.word(i)

	switch w {
	case "":
		return nil, st, s.expected(i, "expression")
	case "true", "false":
		return &ast.Bool{Base: ast.MakeBase(ast.MakeSpan(i, j)), Value: w == "true"}, j, nil
	case "if":
		return s.ifExpr(ctx, i)
	case "while":
		return s.while(ctx, i)
	}

	if IsKeyword(w) {
		return nil, st, s.expected(i, "expression")
	}

	if !s.noCtor && s.ctorAhead(j) {
		return s.ctor(ctx, i, w, j)
	}

	return &ast.Identifier{Base: ast.MakeBase(ast.MakeSpan(i, j)), Name: w}, j, nil
}

// ctorAhead reports whether a struct literal body follows: "{ }" or "{ name:".
func (s *State) ctorAhead(st int) bool {
	i, ok := s.punct(s.skip(st), "{")
	if !ok {
		return false
	}

	i = s.skip(i)

	if s.peek(i, "}") {
		return true
	}

	w, i := s.word(i)
	if w == "" || IsKeyword(w) {
		return false
	}

	i = s.skip(i)

	return s.peek(i, ":") && !s.peek(i, "::")
}

func (s *State) ctor(ctx context.Context, st int, name string, nameEnd int) (x ast.Expr, i int, err error) {
	c := &ast.Ctor{
		Target: &ast.UnresolvedType{Name: name, Span: ast.MakeSpan(st, nameEnd)},
	}

	i, err = s.expect(nameEnd, "{")
	if err != nil {
		return nil, st, err
	}

	for {
		i = s.skip(i)

		if j, ok := s.punct(i, "}"); ok {
			i = j
			break
		}

		fst := i

		var f string

		f, i, err = s.ident(i)
		if err != nil {
			return nil, st, err
		}

		i, err = s.expect(i, ":")
		if err != nil {
			return nil, st, err
		}

		var v ast.Expr

		v, i, err = s.expr(ctx, i)
		if err != nil {
			return nil, st, err
		}

		c.Fields = append(c.Fields, ast.FieldInit{Name: f, Value: v, Span: ast.MakeSpan(fst, i), Index: -1})

		i = s.skip(i)

		if j, ok := s.punct(i, ","); ok {
			i = j
		} else if !s.peek(i, "}") {
			return nil, st, s.expected(i, "',' or '}'")
		}
	}

	c.Base = ast.MakeBase(ast.MakeSpan(st, i))

	return c, i, nil
}

func (s *State) ifExpr(ctx context.Context, st int) (x ast.Expr, i int, err error) {
	i, _ = s.keyword(st, "if")

	n := &ast.If{}

	n.Cond, i, err = s.exprNoCtor(ctx, i)
	if err != nil {
		return nil, st, err
	}

	n.Then, i, err = s.blockAt(ctx, i)
	if err != nil {
		return nil, st, err
	}

	j := s.skip(i)

	if k, ok := s.keyword(j, "else"); ok {
		k = s.skip(k)

		if s.peekKeyword(k, "if") {
			var y ast.Expr

			y, i, err = s.ifExpr(ctx, k)
			if err != nil {
				return nil, st, err
			}

			n.Else = &ast.Block{Base: ast.MakeBase(y.Span()), Value: y}
		} else {
			n.Else, i, err = s.blockAt(ctx, k)
			if err != nil {
				return nil, st, err
			}
		}
	}

	n.Base = ast.MakeBase(ast.MakeSpan(st, i))

	return n, i, nil
}

func (s *State) while(ctx context.Context, st int) (x ast.Expr, i int, err error) {
	i, _ = s.keyword(st, "while")

	n := &ast.While{}

	n.Cond, i, err = s.exprNoCtor(ctx, i)
	if err != nil {
		return nil, st, err
	}

	n.Body, i, err = s.blockAt(ctx, i)
	if err != nil {
		return nil, st, err
	}

	n.Base = ast.MakeBase(ast.MakeSpan(st, i))

	return n, i, nil
}
