package ast

type (
	Bool struct {
		Base

		Value bool
	}

	Integer struct {
		Base

		Value uint64
	}

	Float struct {
		Base

		Value float64
	}

	Identifier struct {
		Base

		Name string
	}

	Member struct {
		Base

		Owner Expr
		Name  string

		// Index of the field in the owner struct, set by the resolver.
		Index int
	}

	Call struct {
		Base

		Callee Expr
		Args   []Expr

		// Method is set when the callee is a method reference (x.m or T.m).
		Method Callee
		// Self is true when the callee owner is passed as the first argument.
		Self bool
	}

	FieldInit struct {
		Name  string
		Value Expr

		Span Span

		// Index of the field in the target struct, set by the resolver.
		Index int
	}

	// Ctor is a struct literal.
	Ctor struct {
		Base

		Target Type
		Fields []FieldInit
	}

	Binary struct {
		Base

		Op   BinaryOp
		L, R Expr

		Method Callee
	}

	Unary struct {
		Base

		Op UnaryOp
		X  Expr

		Method Callee
	}

	Block struct {
		Base

		Stmts []Expr
		Value Expr // trailing expression, nil if none
	}

	If struct {
		Base

		Cond Expr
		Then *Block
		Else *Block
	}

	While struct {
		Base

		Cond Expr
		Body *Block
	}

	Let struct {
		Base

		Name    string
		Decl    Type // optional annotation
		Init    Expr
		Mutable bool
	}

	Return struct {
		Base

		Value Expr
	}

	Break struct {
		Base
	}

	Cast struct {
		Base

		X  Expr
		To Type
	}

	Arg struct {
		Name string
		Type Type

		Span Span
	}

	// Function is a function or method definition.
	// Methods have a Receiver; methods taking self have it as the first Arg.
	Function struct {
		Base

		Name     string
		Receiver Type
		Args     []Arg
		Result   Type
		Body     *Block

		ResultSpan Span

		// Binding is the callable registered by the resolver.
		Binding Callee
	}

	CompileTime struct {
		Base

		X Expr
	}

	Export struct {
		Base

		X Expr
	}

	TypeDecl struct {
		Base

		Name string
		Of   Type
	}
)

func (*Bool) Kind() Kind        { return KindBool }
func (*Integer) Kind() Kind     { return KindInteger }
func (*Float) Kind() Kind       { return KindFloat }
func (*Identifier) Kind() Kind  { return KindIdentifier }
func (*Member) Kind() Kind      { return KindMember }
func (*Call) Kind() Kind        { return KindCall }
func (*Ctor) Kind() Kind        { return KindCtor }
func (*Binary) Kind() Kind      { return KindBinary }
func (*Unary) Kind() Kind       { return KindUnary }
func (*Block) Kind() Kind       { return KindBlock }
func (*If) Kind() Kind          { return KindIf }
func (*While) Kind() Kind       { return KindWhile }
func (*Let) Kind() Kind         { return KindLet }
func (*Return) Kind() Kind      { return KindReturn }
func (*Break) Kind() Kind       { return KindBreak }
func (*Cast) Kind() Kind        { return KindCast }
func (*Function) Kind() Kind    { return KindFunction }
func (*CompileTime) Kind() Kind { return KindCompileTime }
func (*Export) Kind() Kind      { return KindExport }
func (*TypeDecl) Kind() Kind    { return KindTypeDecl }

func (*Bool) CompileTimeCapable() bool    { return true }
func (*Integer) CompileTimeCapable() bool { return true }
func (*Float) CompileTimeCapable() bool   { return true }

// Variables may refer to the run-time state of the enclosing function.
func (*Identifier) CompileTimeCapable() bool { return false }

func (x *Member) CompileTimeCapable() bool { return x.Owner.CompileTimeCapable() }

func (x *Call) CompileTimeCapable() bool {
	switch c := x.Callee.(type) {
	case *Identifier:
	case *Member:
		if x.Self && !c.Owner.CompileTimeCapable() {
			return false
		}
	default:
		if !c.CompileTimeCapable() {
			return false
		}
	}

	return allCapable(x.Args...)
}

func (x *Ctor) CompileTimeCapable() bool {
	for _, f := range x.Fields {
		if !f.Value.CompileTimeCapable() {
			return false
		}
	}

	return true
}

func (x *Binary) CompileTimeCapable() bool {
	if x.Op == OpAssign {
		return false
	}

	return x.L.CompileTimeCapable() && x.R.CompileTimeCapable()
}

func (x *Unary) CompileTimeCapable() bool { return x.X.CompileTimeCapable() }

func (x *Block) CompileTimeCapable() bool {
	return allCapable(x.Stmts...) && (x.Value == nil || x.Value.CompileTimeCapable())
}

// If without else has no fallback value to produce.
func (x *If) CompileTimeCapable() bool {
	if x.Else == nil {
		return false
	}

	return x.Cond.CompileTimeCapable() && x.Then.CompileTimeCapable() && x.Else.CompileTimeCapable()
}

func (x *While) CompileTimeCapable() bool {
	return x.Cond.CompileTimeCapable() && x.Body.CompileTimeCapable()
}

func (*Let) CompileTimeCapable() bool    { return false }
func (*Return) CompileTimeCapable() bool { return false }
func (*Break) CompileTimeCapable() bool  { return false }

func (x *Cast) CompileTimeCapable() bool { return x.X.CompileTimeCapable() }

// Function bodies only run when called.
// Access to global mutable state is not checked.
func (*Function) CompileTimeCapable() bool { return true }

func (*CompileTime) CompileTimeCapable() bool { return false }
func (*Export) CompileTimeCapable() bool      { return false }
func (*TypeDecl) CompileTimeCapable() bool    { return false }

func allCapable(xs ...Expr) bool {
	for _, x := range xs {
		if !x.CompileTimeCapable() {
			return false
		}
	}

	return true
}

// IsMethod reports whether the function is attached to a receiver type.
func (x *Function) IsMethod() bool { return x.Receiver != nil }

// TakesSelf reports whether the first argument is the receiver.
func (x *Function) TakesSelf() bool {
	return x.Receiver != nil && len(x.Args) != 0 && x.Args[0].Name == "self"
}

// Signature builds the function type out of declared argument and result types.
func (x *Function) Signature() *FunctionType {
	t := &FunctionType{
		Params: make([]Type, len(x.Args)),
		Result: x.Result,
	}

	for i, a := range x.Args {
		t.Params[i] = a.Type
	}

	return t
}

// Unwrap strips Export wrappers.
func Unwrap(x Expr) Expr {
	for {
		e, ok := x.(*Export)
		if !ok {
			return x
		}

		x = e.X
	}
}
