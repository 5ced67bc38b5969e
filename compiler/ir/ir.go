package ir

import (
	"fmt"
	"strconv"

	"tlog.app/go/tlog/tlwire"
)

type (
	// Expr is an index into Module.Exprs.
	Expr int

	// Type is an index into Context.Types.
	Type int

	// Context owns the type table.
	// Modules sharing a Context share type identities.
	Context struct {
		Types []any

		index map[string]Type
	}

	Void struct{}

	Ptr struct{}

	Int struct {
		Bits int
	}

	Float struct {
		Bits int
	}

	Struct struct {
		Name   string // empty for literal structs
		Fields []Type
	}

	FuncType struct {
		Params []Type
		Result Type
	}

	Linkage int

	Module struct {
		Name string

		DataLayout string
		Triple     string

		Ctx *Context

		Funcs []Expr

		Exprs []any
		EType []Type
	}

	Func struct {
		Name string
		Sig  Type

		Linkage Linkage

		// Namespace of an external function.
		Namespace string

		Params []Expr
		Blocks []Expr
	}

	Block struct {
		Label string
		Func  Expr

		Code []Expr
	}

	Param struct {
		Func  Expr
		Index int
		Name  string
	}

	ConstInt struct {
		Value int64
	}

	ConstFloat struct {
		Value float64
	}

	ConstStruct struct {
		Fields []Expr
	}

	Zero struct{}

	Poison struct{}
)

const (
	Nil Expr = -1

	NoType Type = -1
)

const (
	Internal Linkage = iota
	Exported
	External
)

func (l Linkage) String() string {
	switch l {
	case Internal:
		return "internal"
	case Exported:
		return "export"
	case External:
		return "external"
	default:
		return "linkage(?)"
	}
}

func NewContext() *Context {
	c := &Context{
		index: make(map[string]Type),
	}

	c.intern("void", Void{})
	c.intern("ptr", Ptr{})

	return c
}

func (c *Context) Void() Type { return c.intern("void", Void{}) }

func (c *Context) Ptr() Type { return c.intern("ptr", Ptr{}) }

func (c *Context) Int(bits int) Type {
	t := Int{Bits: bits}
	return c.intern(c.key(t), t)
}

func (c *Context) Float(bits int) Type {
	t := Float{Bits: bits}
	return c.intern(c.key(t), t)
}

// Struct returns a literal struct type, equal fields give equal types.
func (c *Context) Struct(fields ...Type) Type {
	t := Struct{Fields: fields}
	return c.intern(c.key(t), t)
}

// NamedStruct creates a new distinct struct type.
func (c *Context) NamedStruct(name string, fields ...Type) Type {
	c.Types = append(c.Types, Struct{Name: name, Fields: fields})

	return Type(len(c.Types) - 1)
}

func (c *Context) Func(result Type, params ...Type) Type {
	t := FuncType{Params: params, Result: result}
	return c.intern(c.key(t), t)
}

func (c *Context) Type(t Type) any {
	if t < 0 || int(t) >= len(c.Types) {
		return nil
	}

	return c.Types[t]
}

func (c *Context) IsVoid(t Type) bool {
	_, ok := c.Type(t).(Void)
	return ok
}

func (c *Context) intern(key string, x any) Type {
	if t, ok := c.index[key]; ok {
		return t
	}

	c.Types = append(c.Types, x)
	t := Type(len(c.Types) - 1)

	c.index[key] = t

	return t
}

func (c *Context) key(x any) string {
	return fmt.Sprintf("%#v", x)
}

func NewModule(ctx *Context, name string) *Module {
	if ctx == nil {
		ctx = NewContext()
	}

	return &Module{
		Name: name,
		Ctx:  ctx,
	}
}

// Add allocates a new expression in the arena.
// It doesn't attach it to any block.
func (m *Module) Add(x any, t Type) Expr {
	m.Exprs = append(m.Exprs, x)
	m.EType = append(m.EType, t)

	return Expr(len(m.Exprs) - 1)
}

func (m *Module) TypeOf(e Expr) Type {
	if e < 0 || int(e) >= len(m.EType) {
		return NoType
	}

	return m.EType[e]
}

func (m *Module) Func(e Expr) *Func {
	f, _ := m.Exprs[e].(*Func)
	return f
}

func (m *Module) Block(e Expr) *Block {
	b, _ := m.Exprs[e].(*Block)
	return b
}

func (m *Module) FuncType(f Expr) FuncType {
	return m.Ctx.Type(m.Func(f).Sig).(FuncType)
}

func (m *Module) NewFunc(name string, sig Type, l Linkage, paramNames ...string) Expr {
	ft := m.Ctx.Type(sig).(FuncType)

	f := &Func{
		Name:    name,
		Sig:     sig,
		Linkage: l,
	}

	id := m.Add(f, sig)

	for i, t := range ft.Params {
		var n string
		if i < len(paramNames) {
			n = paramNames[i]
		}

		p := m.Add(Param{Func: id, Index: i, Name: n}, t)

		f.Params = append(f.Params, p)
	}

	m.Funcs = append(m.Funcs, id)

	return id
}

// LookupFunc finds function by name or returns Nil.
func (m *Module) LookupFunc(name string) Expr {
	for _, f := range m.Funcs {
		if m.Func(f).Name == name {
			return f
		}
	}

	return Nil
}

// RemoveFunc detaches function from the module.
// Its arena entries stay but are never reachable again.
func (m *Module) RemoveFunc(f Expr) {
	for i, x := range m.Funcs {
		if x != f {
			continue
		}

		copy(m.Funcs[i:], m.Funcs[i+1:])
		m.Funcs = m.Funcs[:len(m.Funcs)-1]

		m.Exprs[f] = removed{}

		return
	}
}

func (m *Module) NewBlock(f Expr, label string) Expr {
	fn := m.Func(f)

	label = m.uniqueLabel(fn, label)

	b := m.Add(&Block{Label: label, Func: f}, m.Ctx.Void())

	fn.Blocks = append(fn.Blocks, b)

	return b
}

func (m *Module) uniqueLabel(fn *Func, label string) string {
	try := label

	for n := 1; ; n++ {
		dup := false

		for _, b := range fn.Blocks {
			if m.Block(b).Label == try {
				dup = true
				break
			}
		}

		if !dup {
			return try
		}

		try = label + strconv.Itoa(n)
	}
}

// ConstInt creates an integer constant normalized to the type width.
func (m *Module) ConstInt(t Type, v int64) Expr {
	if it, ok := m.Ctx.Type(t).(Int); ok {
		v = NormalizeInt(v, it.Bits)
	}

	return m.Add(ConstInt{Value: v}, t)
}

func (m *Module) ConstFloat(t Type, v float64) Expr { return m.Add(ConstFloat{Value: v}, t) }

func (m *Module) ConstStruct(t Type, fields ...Expr) Expr {
	return m.Add(ConstStruct{Fields: fields}, t)
}

func (m *Module) Zero(t Type) Expr { return m.Add(Zero{}, t) }

func (m *Module) Poison(t Type) Expr { return m.Add(Poison{}, t) }

// IsConst reports whether e is a constant.
func (m *Module) IsConst(e Expr) bool {
	switch m.Exprs[e].(type) {
	case ConstInt, ConstFloat, ConstStruct, Zero, Poison:
		return true
	}

	return false
}

func (p PhiBranch) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)
	b = e.AppendKeyInt64(b, "b", int64(p.B))
	b = e.AppendKeyInt64(b, "id", int64(p.Expr))

	return b
}

type removed struct{}

// NormalizeInt truncates v to bits and sign-extends it back.
// Single bit values are zero-extended.
func NormalizeInt(v int64, bits int) int64 {
	switch {
	case bits >= 64:
		return v
	case bits == 1:
		return v & 1
	case bits <= 0:
		return 0
	}

	sh := 64 - bits

	return v << sh >> sh
}
