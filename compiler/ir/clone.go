package ir

// Clone makes a deep copy of the module.
// Expression ids stay valid in the copy; the type Context is shared.
func (m *Module) Clone() *Module {
	c := &Module{
		Name:       m.Name,
		DataLayout: m.DataLayout,
		Triple:     m.Triple,
		Ctx:        m.Ctx,
		Funcs:      append([]Expr{}, m.Funcs...),
		Exprs:      make([]any, len(m.Exprs)),
		EType:      append([]Type{}, m.EType...),
	}

	for i, x := range m.Exprs {
		c.Exprs[i] = cloneExpr(x)
	}

	return c
}

func cloneExpr(x any) any {
	switch x := x.(type) {
	case *Func:
		cp := *x
		cp.Params = append([]Expr{}, x.Params...)
		cp.Blocks = append([]Expr{}, x.Blocks...)

		return &cp
	case *Block:
		cp := *x
		cp.Code = append([]Expr{}, x.Code...)

		return &cp
	case Call:
		x.Args = append([]Expr{}, x.Args...)
		return x
	case Phi:
		return append(Phi{}, x...)
	case ConstStruct:
		x.Fields = append([]Expr{}, x.Fields...)
		return x
	default:
		return x
	}
}

// Remap returns a copy of x with every expression reference replaced by f.
// Nil references are kept.
func Remap(x any, f func(Expr) Expr) any {
	g := func(e Expr) Expr {
		if e == Nil {
			return Nil
		}

		return f(e)
	}

	list := func(l []Expr) []Expr {
		r := make([]Expr, len(l))

		for i, e := range l {
			r[i] = g(e)
		}

		return r
	}

	switch x := x.(type) {
	case *Func:
		cp := *x
		cp.Params = list(x.Params)
		cp.Blocks = list(x.Blocks)

		return &cp
	case *Block:
		cp := *x
		cp.Func = g(x.Func)
		cp.Code = list(x.Code)

		return &cp
	case Param:
		x.Func = g(x.Func)

		return x
	case BinOp:
		x.L, x.R = g(x.L), g(x.R)

		return x
	case Cmp:
		x.L, x.R = g(x.L), g(x.R)

		return x
	case FNeg:
		x.X = g(x.X)

		return x
	case Cast:
		x.X = g(x.X)

		return x
	case Load:
		x.Ptr = g(x.Ptr)

		return x
	case Store:
		x.Val, x.Ptr = g(x.Val), g(x.Ptr)

		return x
	case FieldPtr:
		x.Ptr = g(x.Ptr)

		return x
	case Extract:
		x.Agg = g(x.Agg)

		return x
	case Insert:
		x.Agg, x.Val = g(x.Agg), g(x.Val)

		return x
	case Call:
		x.Func = g(x.Func)
		x.Args = list(x.Args)

		return x
	case Br:
		x.To = g(x.To)

		return x
	case CondBr:
		x.Cond, x.Then, x.Else = g(x.Cond), g(x.Then), g(x.Else)

		return x
	case Ret:
		x.Val = g(x.Val)

		return x
	case Phi:
		r := make(Phi, len(x))

		for i, b := range x {
			r[i] = PhiBranch{B: g(b.B), Expr: g(b.Expr)}
		}

		return r
	case ConstStruct:
		x.Fields = list(x.Fields)

		return x
	default:
		return x
	}
}
