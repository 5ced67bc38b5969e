package format

import (
	"context"
	"strconv"
	"strings"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/rainlang/rain/compiler/ast"
)

type (
	printer struct {
		// struct literals must be parenthesized in conditions
		cond bool
	}
)

// Format appends the source text of x to b.
// x is a *ast.Module, an ast.Expr or an ast.Type.
func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	var p printer

	return p.format(ctx, b, x, 0)
}

func (p *printer) format(ctx context.Context, b []byte, x any, d int) ([]byte, error) {
	switch x := x.(type) {
	case *ast.Module:
		return p.formatModule(ctx, b, x, d)
	case ast.Expr:
		return p.formatExpr(ctx, b, x, d)
	case ast.Type:
		return appendType(b, x), nil
	default:
		return nil, errors.New("unsupported type: %T", x)
	}
}

func (p *printer) formatModule(ctx context.Context, b []byte, x *ast.Module, d int) (_ []byte, err error) {
	for i, decl := range x.Decls {
		if i != 0 {
			b = append(b, '\n')
		}

		b = app(b, d, "")

		b, err = p.formatExpr(ctx, b, decl, d)
		if err != nil {
			return nil, errors.Wrap(err, "decl %d", i)
		}

		b = append(b, '\n')
	}

	return b, nil
}

func (p *printer) formatFunc(ctx context.Context, b []byte, x *ast.Function, d int) (_ []byte, err error) {
	b = append(b, "fn "...)

	if x.Receiver != nil {
		b = appendType(b, x.Receiver)
		b = append(b, '.')
	}

	b = app(b, 0, "%v(", x.Name)

	for i, a := range x.Args {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = append(b, a.Name...)

		if a.Type != nil && !(i == 0 && a.Name == "self" && x.Receiver != nil) {
			b = append(b, ": "...)
			b = appendType(b, a.Type)
		}
	}

	b = append(b, ')')

	if x.Result != nil {
		b = append(b, " -> "...)
		b = appendType(b, x.Result)
	}

	b = append(b, ' ')

	b, err = p.formatBlock(ctx, b, x.Body, d)
	if err != nil {
		return nil, errors.Wrap(err, "fn %v", x.Name)
	}

	return b, nil
}

func (p *printer) formatBlock(ctx context.Context, b []byte, x *ast.Block, d int) (_ []byte, err error) {
	defer func(prev bool) { p.cond = prev }(p.cond)
	p.cond = false

	if len(x.Stmts) == 0 && x.Value == nil {
		return append(b, "{}"...), nil
	}

	b = append(b, "{\n"...)

	for _, s := range x.Stmts {
		b = app(b, d+1, "")

		b, err = p.formatExpr(ctx, b, s, d+1)
		if err != nil {
			return nil, err
		}

		switch s.Kind() {
		case ast.KindFunction, ast.KindTypeDecl:
		default:
			b = append(b, ';')
		}

		b = append(b, '\n')
	}

	if x.Value != nil {
		b = app(b, d+1, "")

		b, err = p.formatExpr(ctx, b, x.Value, d+1)
		if err != nil {
			return nil, err
		}

		b = append(b, '\n')
	}

	b = app(b, d, "}")

	return b, nil
}

func (p *printer) formatExpr(ctx context.Context, b []byte, x ast.Expr, d int) (_ []byte, err error) {
	switch x := x.(type) {
	case *ast.Bool:
		b = strconv.AppendBool(b, x.Value)
	case *ast.Integer:
		b = strconv.AppendUint(b, x.Value, 10)
	case *ast.Float:
		b = appendFloat(b, x.Value)
	case *ast.Identifier:
		b = append(b, x.Name...)
	case *ast.Member:
		b, err = p.operand(ctx, b, x.Owner, d, postfixPrec)
		if err != nil {
			return nil, errors.Wrap(err, "owner")
		}

		b = append(b, '.')
		b = append(b, x.Name...)
	case *ast.Call:
		b, err = p.operand(ctx, b, x.Callee, d, postfixPrec)
		if err != nil {
			return nil, errors.Wrap(err, "callee")
		}

		b = append(b, '(')

		for i, a := range x.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b, err = p.nested(ctx, b, a, d)
			if err != nil {
				return nil, errors.Wrap(err, "arg %d", i)
			}
		}

		b = append(b, ')')
	case *ast.Ctor:
		if p.cond {
			b = append(b, '(')
		}

		b = appendType(b, x.Target)

		if len(x.Fields) == 0 {
			b = append(b, " {}"...)
		} else {
			b = append(b, " { "...)

			for i, f := range x.Fields {
				if i != 0 {
					b = append(b, ", "...)
				}

				b = app(b, 0, "%s: ", f.Name)

				b, err = p.nested(ctx, b, f.Value, d)
				if err != nil {
					return nil, errors.Wrap(err, "field %v", f.Name)
				}
			}

			b = append(b, " }"...)
		}

		if p.cond {
			b = append(b, ')')
		}
	case *ast.Binary:
		prec := x.Op.Precedence()

		lp, rp := prec, prec+1
		if x.Op == ast.OpAssign {
			lp, rp = prec+1, prec
		}

		b, err = p.operand(ctx, b, x.L, d, lp)
		if err != nil {
			return nil, errors.Wrap(err, "left")
		}

		b = app(b, 0, " %v ", x.Op)

		b, err = p.operand(ctx, b, x.R, d, rp)
		if err != nil {
			return nil, errors.Wrap(err, "right")
		}
	case *ast.Unary:
		b = append(b, x.Op.String()...)

		b, err = p.operand(ctx, b, x.X, d, unaryPrec)
		if err != nil {
			return nil, errors.Wrap(err, "operand")
		}
	case *ast.Block:
		return p.formatBlock(ctx, b, x, d)
	case *ast.If:
		b, err = p.formatIf(ctx, b, x, d)
		if err != nil {
			return nil, err
		}
	case *ast.While:
		b = append(b, "while "...)

		b, err = p.condition(ctx, b, x.Cond, d)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}

		b = append(b, ' ')

		b, err = p.formatBlock(ctx, b, x.Body, d)
		if err != nil {
			return nil, errors.Wrap(err, "body")
		}
	case *ast.Let:
		b = append(b, "let "...)

		if x.Mutable {
			b = append(b, "mut "...)
		}

		b = append(b, x.Name...)

		if x.Decl != nil {
			b = append(b, ": "...)
			b = appendType(b, x.Decl)
		}

		b = append(b, " = "...)

		b, err = p.nested(ctx, b, x.Init, d)
		if err != nil {
			return nil, errors.Wrap(err, "let %v", x.Name)
		}
	case *ast.Return:
		b = append(b, "return"...)

		if x.Value != nil {
			b = append(b, ' ')

			b, err = p.nested(ctx, b, x.Value, d)
			if err != nil {
				return nil, errors.Wrap(err, "return")
			}
		}
	case *ast.Break:
		b = append(b, "break"...)
	case *ast.Cast:
		b, err = p.operand(ctx, b, x.X, d, castPrec)
		if err != nil {
			return nil, errors.Wrap(err, "cast")
		}

		b = append(b, " as "...)
		b = appendType(b, x.To)
	case *ast.Function:
		return p.formatFunc(ctx, b, x, d)
	case *ast.CompileTime:
		b = append(b, '#')

		b, err = p.operand(ctx, b, x.X, d, postfixPrec)
		if err != nil {
			return nil, errors.Wrap(err, "compile time")
		}
	case *ast.Export:
		b = append(b, "export "...)

		return p.formatExpr(ctx, b, x.X, d)
	case *ast.TypeDecl:
		return p.formatTypeDecl(b, x, d), nil
	default:
		return nil, errors.New("unsupported expr: %T", x)
	}

	return b, nil
}

func (p *printer) formatIf(ctx context.Context, b []byte, x *ast.If, d int) (_ []byte, err error) {
	b = append(b, "if "...)

	b, err = p.condition(ctx, b, x.Cond, d)
	if err != nil {
		return nil, errors.Wrap(err, "cond")
	}

	b = append(b, ' ')

	b, err = p.formatBlock(ctx, b, x.Then, d)
	if err != nil {
		return nil, errors.Wrap(err, "then")
	}

	if x.Else == nil {
		return b, nil
	}

	b = append(b, " else "...)

	if len(x.Else.Stmts) == 0 {
		if elif, ok := x.Else.Value.(*ast.If); ok {
			return p.formatIf(ctx, b, elif, d)
		}
	}

	b, err = p.formatBlock(ctx, b, x.Else, d)
	if err != nil {
		return nil, errors.Wrap(err, "else")
	}

	return b, nil
}

func (p *printer) formatTypeDecl(b []byte, x *ast.TypeDecl, d int) []byte {
	switch t := x.Of.(type) {
	case *ast.StructType:
		b = app(b, 0, "struct %s ", x.Name)

		return appendFields(b, t.Fields, d)
	case *ast.InterfaceType:
		b = app(b, 0, "interface %s {\n", x.Name)

		for _, m := range t.Methods {
			b = app(b, d+1, "fn %s", m.Name)
			b = appendSignature(b, m.Type)
			b = append(b, '\n')
		}

		return app(b, d, "}")
	default:
		b = app(b, 0, "type %s = ", x.Name)

		return appendType(b, x.Of)
	}
}

const (
	unaryPrec       = 100
	castPrec        = 101
	compileTimePrec = 102
	postfixPrec     = 103
)

func precedence(x ast.Expr) int {
	switch x := x.(type) {
	case *ast.Binary:
		return x.Op.Precedence()
	case *ast.Unary:
		return unaryPrec
	case *ast.Cast:
		return castPrec
	case *ast.CompileTime:
		return compileTimePrec
	case *ast.If, *ast.While, *ast.Block, *ast.Let, *ast.Return, *ast.Break, *ast.Function:
		return 0
	}

	return postfixPrec
}

// operand formats x in parentheses if it binds looser than prec.
func (p *printer) operand(ctx context.Context, b []byte, x ast.Expr, d, prec int) (_ []byte, err error) {
	if precedence(x) >= prec {
		return p.formatExpr(ctx, b, x, d)
	}

	b = append(b, '(')

	b, err = p.nested(ctx, b, x, d)
	if err != nil {
		return nil, err
	}

	return append(b, ')'), nil
}

// nested formats x in a context where struct literals need no parentheses.
func (p *printer) nested(ctx context.Context, b []byte, x ast.Expr, d int) ([]byte, error) {
	defer func(prev bool) { p.cond = prev }(p.cond)
	p.cond = false

	return p.formatExpr(ctx, b, x, d)
}

func (p *printer) condition(ctx context.Context, b []byte, x ast.Expr, d int) ([]byte, error) {
	defer func(prev bool) { p.cond = prev }(p.cond)
	p.cond = true

	return p.formatExpr(ctx, b, x, d)
}

func appendFields(b []byte, fs []ast.Field, d int) []byte {
	if len(fs) == 0 {
		return append(b, "{}"...)
	}

	b = append(b, "{\n"...)

	for _, f := range fs {
		b = app(b, d+1, "%s: ", f.Name)
		b = appendType(b, f.Type)
		b = append(b, ",\n"...)
	}

	return app(b, d, "}")
}

func appendSignature(b []byte, t *ast.FunctionType) []byte {
	b = append(b, '(')

	for i, pt := range t.Params {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = appendType(b, pt)
	}

	b = append(b, ')')

	if t.Result != nil {
		b = append(b, " -> "...)
		b = appendType(b, t.Result)
	}

	return b
}

func appendType(b []byte, t ast.Type) []byte {
	switch t := t.(type) {
	case *ast.StructType:
		if t.Name != "" {
			return append(b, t.Name...)
		}

		b = append(b, "struct { "...)

		for i, f := range t.Fields {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = app(b, 0, "%s: ", f.Name)
			b = appendType(b, f.Type)
		}

		return append(b, " }"...)
	case *ast.FunctionType:
		b = append(b, "fn"...)

		return appendSignature(b, t)
	case *ast.TupleType:
		b = append(b, '(')

		for i, e := range t.Elems {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = appendType(b, e)
		}

		return append(b, ')')
	case *ast.OptionalType:
		b = append(b, '?')

		return appendType(b, t.Elem)
	case nil:
		return b
	default:
		return append(b, t.String()...)
	}
}

func appendFloat(b []byte, v float64) []byte {
	st := len(b)

	b = strconv.AppendFloat(b, v, 'g', -1, 64)

	if !strings.ContainsAny(string(b[st:]), ".eEnN") {
		b = append(b, ".0"...)
	}

	return b
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"

	for d > len(tabs) {
		b = append(b, tabs...)
		d -= len(tabs)
	}

	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)

	return b
}
