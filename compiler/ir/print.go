package ir

import (
	"fmt"
	"math"
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
)

type printer struct {
	m *Module

	names map[Expr]string
}

func (c *Context) TypeString(t Type) string {
	return string(c.appendTypeRef(nil, t))
}

func (c *Context) appendTypeRef(b []byte, t Type) []byte {
	if s, ok := c.Type(t).(Struct); ok && s.Name != "" {
		return hfmt.Appendf(b, "%%%s", s.Name)
	}

	return c.appendType(b, c.Type(t))
}

func (c *Context) appendType(b []byte, x any) []byte {
	switch x := x.(type) {
	case Void:
		return append(b, "void"...)
	case Ptr:
		return append(b, "ptr"...)
	case Int:
		return hfmt.Appendf(b, "i%d", x.Bits)
	case Float:
		if x.Bits == 32 {
			return append(b, "float"...)
		}

		return append(b, "double"...)
	case Struct:
		if len(x.Fields) == 0 {
			return append(b, "{}"...)
		}

		b = append(b, "{ "...)

		for i, f := range x.Fields {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = c.appendTypeRef(b, f)
		}

		return append(b, " }"...)
	case FuncType:
		b = c.appendTypeRef(b, x.Result)
		b = append(b, " ("...)

		for i, p := range x.Params {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = c.appendTypeRef(b, p)
		}

		return append(b, ")"...)
	case nil:
		return append(b, "<notype>"...)
	default:
		panic(x)
	}
}

func (m *Module) String() string {
	return string(m.AppendText(nil))
}

// AppendText renders the module in a textual LLVM-like form.
func (m *Module) AppendText(b []byte) []byte {
	b = hfmt.Appendf(b, "; module %s\n", m.Name)

	if m.DataLayout != "" {
		b = hfmt.Appendf(b, "target datalayout = %q\n", m.DataLayout)
	}
	if m.Triple != "" {
		b = hfmt.Appendf(b, "target triple = %q\n", m.Triple)
	}

	for t, x := range m.Ctx.Types {
		s, ok := x.(Struct)
		if !ok || s.Name == "" || !m.usesType(Type(t)) {
			continue
		}

		b = hfmt.Appendf(b, "\n%%%s = type ", s.Name)
		b = m.Ctx.appendType(b, Struct{Fields: s.Fields})
	}

	for _, f := range m.Funcs {
		b = append(b, '\n')
		b = m.AppendFunc(b, f)
	}

	return b
}

func (m *Module) usesType(t Type) bool {
	for _, x := range m.EType {
		if x == t {
			return true
		}
	}

	return false
}

func (m *Module) AppendFunc(b []byte, f Expr) []byte {
	p := &printer{
		m:     m,
		names: make(map[Expr]string),
	}

	return p.appendFunc(b, f)
}

func (p *printer) appendFunc(b []byte, f Expr) []byte {
	m := p.m
	fn := m.Func(f)
	ft := m.FuncType(f)

	for i, a := range fn.Params {
		n := m.Exprs[a].(Param).Name
		if n == "" {
			n = "arg" + strconv.Itoa(i)
		}

		p.names[a] = "%" + n
	}

	n := 0

	for _, blk := range fn.Blocks {
		for _, id := range m.Block(blk).Code {
			if m.Ctx.IsVoid(m.EType[id]) {
				continue
			}

			p.names[id] = "%" + strconv.Itoa(n)
			n++
		}
	}

	kw := "define"
	if len(fn.Blocks) == 0 {
		kw = "declare"
	}

	b = hfmt.Appendf(b, "%s %v ", kw, fn.Linkage)
	b = m.Ctx.appendTypeRef(b, ft.Result)
	b = hfmt.Appendf(b, " @%s(", quoteName(fn.Name))

	for i, a := range fn.Params {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = m.Ctx.appendTypeRef(b, m.EType[a])
		b = append(b, ' ')
		b = append(b, p.names[a]...)
	}

	b = append(b, ')')

	if fn.Namespace != "" {
		b = hfmt.Appendf(b, " namespace(%q)", fn.Namespace)
	}

	if len(fn.Blocks) == 0 {
		return append(b, '\n')
	}

	b = append(b, " {\n"...)

	for i, blk := range fn.Blocks {
		bl := m.Block(blk)

		if i != 0 {
			b = append(b, '\n')
		}

		b = hfmt.Appendf(b, "%s:\n", bl.Label)

		for _, id := range bl.Code {
			b = append(b, "  "...)
			b = p.appendInstr(b, id)
			b = append(b, '\n')
		}
	}

	return append(b, "}\n"...)
}

func (p *printer) appendInstr(b []byte, id Expr) []byte {
	m := p.m

	if n, ok := p.names[id]; ok {
		b = hfmt.Appendf(b, "%s = ", n)
	}

	switch x := m.Exprs[id].(type) {
	case BinOp:
		b = hfmt.Appendf(b, "%v ", x.Op)
		b = p.appendTyped(b, x.L)
		b = append(b, ", "...)
		b = p.appendRef(b, x.R)
	case Cmp:
		b = hfmt.Appendf(b, "%v ", x.Pred)
		b = p.appendTyped(b, x.L)
		b = append(b, ", "...)
		b = p.appendRef(b, x.R)
	case FNeg:
		b = append(b, "fneg "...)
		b = p.appendTyped(b, x.X)
	case Cast:
		b = hfmt.Appendf(b, "%v ", x.Op)
		b = p.appendTyped(b, x.X)
		b = append(b, " to "...)
		b = m.Ctx.appendTypeRef(b, m.EType[id])
	case Alloca:
		b = append(b, "alloca "...)
		b = m.Ctx.appendTypeRef(b, x.Elem)
	case Load:
		b = append(b, "load "...)
		b = m.Ctx.appendTypeRef(b, m.EType[id])
		b = append(b, ", "...)
		b = p.appendTyped(b, x.Ptr)
	case Store:
		b = append(b, "store "...)
		b = p.appendTyped(b, x.Val)
		b = append(b, ", "...)
		b = p.appendTyped(b, x.Ptr)
	case FieldPtr:
		b = append(b, "getelementptr inbounds "...)
		b = m.Ctx.appendTypeRef(b, x.Struct)
		b = append(b, ", "...)
		b = p.appendTyped(b, x.Ptr)
		b = hfmt.Appendf(b, ", i32 0, i32 %d", x.Index)
	case Extract:
		b = append(b, "extractvalue "...)
		b = p.appendTyped(b, x.Agg)
		b = hfmt.Appendf(b, ", %d", x.Index)
	case Insert:
		b = append(b, "insertvalue "...)
		b = p.appendTyped(b, x.Agg)
		b = append(b, ", "...)
		b = p.appendTyped(b, x.Val)
		b = hfmt.Appendf(b, ", %d", x.Index)
	case Call:
		b = append(b, "call "...)
		b = m.Ctx.appendTypeRef(b, m.EType[id])
		b = hfmt.Appendf(b, " @%s(", quoteName(m.funcName(x.Func)))

		for i, a := range x.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = p.appendTyped(b, a)
		}

		b = append(b, ')')
	case Br:
		b = hfmt.Appendf(b, "br label %%%s", m.Block(x.To).Label)
	case CondBr:
		b = append(b, "br "...)
		b = p.appendTyped(b, x.Cond)
		b = hfmt.Appendf(b, ", label %%%s, label %%%s", m.Block(x.Then).Label, m.Block(x.Else).Label)
	case Ret:
		if x.Val == Nil {
			return append(b, "ret void"...)
		}

		b = append(b, "ret "...)
		b = p.appendTyped(b, x.Val)
	case Phi:
		b = append(b, "phi "...)
		b = m.Ctx.appendTypeRef(b, m.EType[id])

		for i, br := range x {
			if i != 0 {
				b = append(b, ',')
			}

			b = append(b, " [ "...)
			b = p.appendRef(b, br.Expr)
			b = hfmt.Appendf(b, ", %%%s ]", m.Block(br.B).Label)
		}
	default:
		panic(fmt.Sprintf("unsupported instruction: %T", x))
	}

	return b
}

func (p *printer) appendTyped(b []byte, e Expr) []byte {
	b = p.m.Ctx.appendTypeRef(b, p.m.EType[e])
	b = append(b, ' ')

	return p.appendRef(b, e)
}

func (p *printer) appendRef(b []byte, e Expr) []byte {
	if n, ok := p.names[e]; ok {
		return append(b, n...)
	}

	m := p.m

	switch x := m.Exprs[e].(type) {
	case ConstInt:
		if t, ok := m.Ctx.Type(m.EType[e]).(Int); ok && t.Bits == 1 {
			if x.Value != 0 {
				return append(b, "true"...)
			}

			return append(b, "false"...)
		}

		return strconv.AppendInt(b, x.Value, 10)
	case ConstFloat:
		return appendFloat(b, x.Value)
	case ConstStruct:
		b = append(b, "{ "...)

		for i, f := range x.Fields {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = p.appendTyped(b, f)
		}

		return append(b, " }"...)
	case Zero:
		return append(b, "zeroinitializer"...)
	case Poison:
		return append(b, "poison"...)
	case *Func:
		return hfmt.Appendf(b, "@%s", quoteName(x.Name))
	default:
		return hfmt.Appendf(b, "<%d:%T>", e, x)
	}
}

func (m *Module) funcName(f Expr) string {
	if fn := m.Func(f); fn != nil {
		return fn.Name
	}

	return "<removed>"
}

func appendFloat(b []byte, v float64) []byte {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return hfmt.Appendf(b, "0x%016X", math.Float64bits(v))
	}

	st := len(b)
	b = strconv.AppendFloat(b, v, 'e', -1, 64)

	for _, c := range b[st:] {
		if c == '.' {
			return b
		}
	}

	// always print a dot so floats are distinguishable from ints
	tail := append([]byte{}, b[st:]...)
	b = b[:st]

	for i, c := range tail {
		if c == 'e' {
			b = append(b, tail[:i]...)
			b = append(b, ".0"...)
			return append(b, tail[i:]...)
		}
	}

	return append(b, tail...)
}

func quoteName(n string) string {
	for _, c := range []byte(n) {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '.') {
			return strconv.Quote(n)
		}
	}

	return n
}
