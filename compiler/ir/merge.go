package ir

import "tlog.app/go/errors"

// Merge appends functions of src to m.
// Both modules must share the type Context.
// It returns the offset added to src expression ids.
func (m *Module) Merge(src *Module) (off Expr, err error) {
	if src.Ctx != m.Ctx {
		return 0, errors.New("merge %v: modules use different type contexts", src.Name)
	}

	off = Expr(len(m.Exprs))

	shift := func(e Expr) Expr { return e + off }

	for i, x := range src.Exprs {
		m.Exprs = append(m.Exprs, Remap(x, shift))
		m.EType = append(m.EType, src.EType[i])
	}

	for _, f := range src.Funcs {
		m.Funcs = append(m.Funcs, f+off)
	}

	return off, nil
}
