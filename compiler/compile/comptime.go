package compile

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/rainlang/rain/compiler/ast"
	"github.com/rainlang/rain/compiler/diag"
	"github.com/rainlang/rain/compiler/interp"
	"github.com/rainlang/rain/compiler/ir"
)

// ExecFuncName is the temporary function compile-time expressions run in.
const ExecFuncName = "#exec"

// compileTime evaluates the expression with the interpreter
// and replaces it with the resulting constant.
// Expressions which can't be evaluated early are generated as is.
func (g *Generator) compileTime(ctx context.Context, x *ast.CompileTime) (_ ir.Expr, err error) {
	tr := tlog.SpanFromContext(ctx)

	if !x.X.CompileTimeCapable() {
		tr.Printw("warning: expression is not compile-time capable", "span", x.X.Span(), "kind", x.X.Kind())

		g.Warnings = append(g.Warnings, diag.Errorf(diag.CompileTime, x.X.Span(), "expression is not compile-time capable; generated at run time"))

		return g.gen(ctx, x.X)
	}

	rt, err := g.irType(x.X.Type())
	if err != nil {
		return ir.Nil, err
	}

	if err = g.completePending(ctx); err != nil {
		return ir.Nil, err
	}

	g.b.Save()
	defer g.b.Restore()

	f := g.M.NewFunc(ExecFuncName, g.M.Ctx.Func(rt), ir.Internal)
	defer g.M.RemoveFunc(f)

	g.b.SetInsertPoint(g.M.NewBlock(f, "entry"))

	defer g.enter("comptime")()

	v, err := g.gen(ctx, x.X)
	if err != nil {
		return ir.Nil, err
	}

	if !g.b.Terminated() {
		g.b.Ret(v)
	}

	res, err := g.eng.Run(ctx, f)
	if err != nil {
		return ir.Nil, diag.Errorf(diag.CompileTime, x.Span(), "compile-time evaluation failed: %v", err)
	}

	tr.V("comptime").Printw("compile-time value", "span", x.Span(), "value", res)

	return g.constFromValue(res, rt, x.Span())
}

// constFromValue converts an interpreter value into a module constant of type t.
func (g *Generator) constFromValue(v interp.Value, t ir.Type, span ast.Span) (ir.Expr, error) {
	switch tt := g.M.Ctx.Type(t).(type) {
	case ir.Void:
		return ir.Nil, nil
	case ir.Int:
		if v.Kind != interp.KindInt || v.Bits != tt.Bits {
			break
		}

		return g.M.ConstInt(t, v.Int), nil
	case ir.Float:
		if v.Kind != interp.KindFloat && v.Kind != interp.KindDouble {
			break
		}

		return g.M.ConstFloat(t, v.Float), nil
	case ir.Struct:
		if v.Kind != interp.KindAggregate || len(v.Agg) != len(tt.Fields) {
			break
		}

		fs := make([]ir.Expr, len(tt.Fields))

		for i, ft := range tt.Fields {
			f, err := g.constFromValue(v.Agg[i], ft, span)
			if err != nil {
				return ir.Nil, err
			}

			fs[i] = f
		}

		return g.M.ConstStruct(t, fs...), nil
	}

	return ir.Nil, diag.Errorf(diag.CompileTime, span, "unsupported runtime value shape: %v for type %v", v.Kind, g.M.Ctx.TypeString(t))
}
