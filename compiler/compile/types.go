package compile

import (
	"github.com/rainlang/rain/compiler/ast"
	"github.com/rainlang/rain/compiler/diag"
	"github.com/rainlang/rain/compiler/ir"
	"github.com/rainlang/rain/compiler/scope"
)

// irType returns the generated representation of t.
// Every distinct type is converted once and cached in the scope.
func (g *Generator) irType(t ast.Type) (r ir.Type, err error) {
	if t == nil || ast.IsVoid(t) {
		return g.M.Ctx.Void(), nil
	}

	if r, ok := g.s.IRType(t); ok {
		return r, nil
	}

	c := g.M.Ctx

	switch t := t.(type) {
	case *ast.StructType:
		fs, err := g.irTypes(fieldTypes(t)...)
		if err != nil {
			return ir.NoType, err
		}

		if t.Name != "" {
			r = c.NamedStruct(t.Name, fs...)
		} else {
			r = c.Struct(fs...)
		}
	case *ast.TupleType:
		fs, err := g.irTypes(t.Elems...)
		if err != nil {
			return ir.NoType, err
		}

		r = c.Struct(fs...)
	case *ast.OptionalType:
		e, err := g.irType(t.Elem)
		if err != nil {
			return ir.NoType, err
		}

		r = c.Struct(c.Int(1), e)
	case *ast.FunctionType:
		ps, err := g.irTypes(t.Params...)
		if err != nil {
			return ir.NoType, err
		}

		res, err := g.irType(t.Result)
		if err != nil {
			return ir.NoType, err
		}

		r = c.Func(res, ps...)
	default:
		return ir.NoType, diag.Errorf(diag.Generation, typeSpan(t), "cannot generate value of type %v", t)
	}

	g.s.SetIRType(t, r)

	return r, nil
}

func (g *Generator) irTypes(ts ...ast.Type) ([]ir.Type, error) {
	r := make([]ir.Type, len(ts))

	for i, t := range ts {
		x, err := g.irType(t)
		if err != nil {
			return nil, err
		}

		r[i] = x
	}

	return r, nil
}

func fieldTypes(st *ast.StructType) []ast.Type {
	r := make([]ast.Type, len(st.Fields))

	for i, f := range st.Fields {
		r[i] = f.Type
	}

	return r
}

func typeSpan(t ast.Type) ast.Span {
	switch t := t.(type) {
	case *ast.StructType:
		return t.Span
	case *ast.InterfaceType:
		return t.Span
	case *ast.UnresolvedType:
		return t.Span
	}

	return ast.Span{}
}

// castOp selects the conversion between primitives.
// ok is false if no instruction is needed.
func castOp(from, to scope.Primitive) (op ir.CastOp, ok bool) {
	switch {
	case from.Float && to.Float:
		switch {
		case from.Bits < to.Bits:
			return ir.CastFPExt, true
		case from.Bits > to.Bits:
			return ir.CastFPTrunc, true
		}

		return 0, false
	case from.Float:
		if to.Signed {
			return ir.CastFPToSI, true
		}

		return ir.CastFPToUI, true
	case to.Float:
		if from.Signed {
			return ir.CastSIToFP, true
		}

		return ir.CastUIToFP, true
	case from.Bits < to.Bits:
		if from.Signed {
			return ir.CastSExt, true
		}

		return ir.CastZExt, true
	case from.Bits > to.Bits:
		return ir.CastTrunc, true
	}

	return 0, false
}
