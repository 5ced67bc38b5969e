package analyze

import (
	"context"
	"fmt"
	"math"
	"strings"

	"tlog.app/go/tlog"

	"github.com/rainlang/rain/compiler/ast"
	"github.com/rainlang/rain/compiler/diag"
	"github.com/rainlang/rain/compiler/ir"
	"github.com/rainlang/rain/compiler/scope"
)

type (
	Options struct {
		// SinglePass validates declarations in source order.
		// Referring to a function declared later is an error then.
		SinglePass bool
	}

	// Resolver validates the tree and fills in types,
	// resolved methods and field indexes.
	Resolver struct {
		Options

		Builtin *scope.Scope
	}
)

func New(builtin *scope.Scope, opts Options) *Resolver {
	return &Resolver{
		Options: opts,
		Builtin: builtin,
	}
}

// Module validates module m against the builtin frame.
func Module(ctx context.Context, builtin *scope.Scope, m *ast.Module, opts Options) (*scope.Scope, error) {
	return New(builtin, opts).Module(ctx, m)
}

// Module validates every declaration and returns the module frame.
func (r *Resolver) Module(ctx context.Context, m *ast.Module) (s *scope.Scope, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "analyze", "module", m.Name, "decls", len(m.Decls), "single_pass", r.SinglePass)
	defer tr.Finish("err", &err)

	s = scope.New(r.Builtin, m.Name)

	for _, d := range m.Decls {
		switch ast.Unwrap(d).(type) {
		case *ast.TypeDecl, *ast.Function:
		default:
			return nil, diag.Errorf(diag.Resolution, d.Span(), "expected declaration at top level, got %v", d.Kind())
		}
	}

	if r.SinglePass {
		for _, d := range m.Decls {
			if err = r.decl(ctx, s, d, true); err != nil {
				return nil, err
			}
		}

		return s, nil
	}

	var types []*ast.TypeDecl
	var funcs []*ast.Function

	for _, d := range m.Decls {
		switch x := ast.Unwrap(d).(type) {
		case *ast.TypeDecl:
			types = append(types, x)
		case *ast.Function:
			funcs = append(funcs, x)
		}
	}

	for _, x := range types {
		if err = r.declareType(s, x); err != nil {
			return nil, err
		}
	}

	for _, x := range types {
		if err = s.ResolveBody(x.Of); err != nil {
			return nil, err
		}
	}

	for _, x := range funcs {
		if err = r.declareFunction(ctx, s, x); err != nil {
			return nil, err
		}
	}

	for _, d := range m.Decls {
		if err = r.decl(ctx, s, d, false); err != nil {
			return nil, err
		}
	}

	tr.V("scope").Printw("module scope", "types", len(s.Types()), "vars", len(s.Variables()), "methods", len(s.Methods()))

	return s, nil
}

// decl validates a top-level declaration.
// Declarations are already made unless declare is set.
func (r *Resolver) decl(ctx context.Context, s *scope.Scope, d ast.Expr, declare bool) (err error) {
	switch x := d.(type) {
	case *ast.Export:
		err = r.decl(ctx, s, x.X, declare)
	case *ast.TypeDecl:
		if declare {
			err = r.declareType(s, x)
			if err == nil {
				err = s.ResolveBody(x.Of)
			}
		}
	case *ast.Function:
		if declare {
			err = r.declareFunction(ctx, s, x)
		}

		if err == nil {
			err = r.function(ctx, s, x)
		}

		return err
	}

	if err != nil {
		return err
	}

	return setType(d, ast.Void)
}

func (r *Resolver) declareType(s *scope.Scope, x *ast.TypeDecl) error {
	switch t := x.Of.(type) {
	case *ast.StructType:
		if t.Name == "" {
			t.Name = x.Name
		}
	case *ast.InterfaceType:
		if t.Name == "" {
			t.Name = x.Name
		}
	default:
		rt, err := s.ResolveType(x.Of)
		if err != nil {
			return err
		}

		x.Of = rt
	}

	return s.DeclareType(x.Name, x.Of, x.Span())
}

// declareFunction resolves the signature and binds the function in s.
// Methods are registered against their receiver.
func (r *Resolver) declareFunction(ctx context.Context, s *scope.Scope, fn *ast.Function) (err error) {
	if fn.Receiver != nil {
		fn.Receiver, err = s.ResolveType(fn.Receiver)
		if err != nil {
			return err
		}

		if fn.TakesSelf() && fn.Args[0].Type == nil {
			fn.Args[0].Type = fn.Receiver
		}
	}

	for i, a := range fn.Args {
		if a.Type == nil {
			return diag.Errorf(diag.Resolution, a.Span, "missing type of argument %q", a.Name)
		}

		fn.Args[i].Type, err = s.ResolveType(a.Type)
		if err != nil {
			return err
		}
	}

	fn.Result, err = s.ResolveType(fn.Result)
	if err != nil {
		return err
	}

	if fn.Result != nil && ast.IsVoid(fn.Result) {
		fn.Result = nil
	}

	sig := fn.Signature()

	f := &scope.Function{
		Name:     fn.Name,
		Receiver: fn.Receiver,
		Type:     sig,
		Decl:     fn,
		IR:       ir.Nil,
		Span:     fn.Span(),
	}

	fn.Binding = f

	tlog.SpanFromContext(ctx).V("analyze").Printw("declare function", "name", f.MangledName(), "type", sig, "span", fn.Span())

	if fn.Receiver != nil {
		err = s.RegisterMethod(f)
	} else {
		err = s.DeclareUnique(&scope.Variable{
			Name:  fn.Name,
			Type:  sig,
			Value: ir.Nil,
			Func:  f,
			Span:  fn.Span(),
		})
	}

	if err != nil {
		return err
	}

	return setType(fn, sig)
}

// function validates the body of a declared function.
func (r *Resolver) function(ctx context.Context, s *scope.Scope, fn *ast.Function) (err error) {
	fs := scope.New(s, "fn "+fn.Name)
	fs.ReturnAllowed = true
	fs.Result = fn.Result
	fs.ResultSpan = fn.ResultSpan

	if fs.ResultSpan == (ast.Span{}) {
		fs.ResultSpan = fn.Span()
	}

	for _, a := range fn.Args {
		err = fs.DeclareUnique(&scope.Variable{
			Name:  a.Name,
			Type:  a.Type,
			Value: ir.Nil,
			Span:  a.Span,
		})
		if err != nil {
			return err
		}
	}

	bt, err := r.expr(ctx, fs, fn.Body, fn.Result)
	if err != nil {
		return err
	}

	switch {
	case fn.Result == nil:
	case diverges(fn.Body):
	case fn.Body.Value == nil:
		return diag.New(diag.Resolution, fmt.Sprintf("missing return value in function %q", fn.Name), fn.Body.Span(), fs.ResultSpan)
	case !ast.SameType(bt, fn.Result):
		return diag.New(diag.Resolution, fmt.Sprintf("function %q result type mismatch: declared %v, got %v", fn.Name, fn.Result, bt), fn.Body.Value.Span(), fs.ResultSpan)
	}

	return nil
}

// expr validates x and returns its type.
// want is the expected type if known, it is used to type literals.
func (r *Resolver) expr(ctx context.Context, s *scope.Scope, x ast.Expr, want ast.Type) (t ast.Type, err error) {
	switch x := x.(type) {
	case *ast.Bool:
		t = scope.Bool
	case *ast.Integer:
		t, err = integer(x, want, false)
	case *ast.Float:
		t = scope.F64

		if p, ok := scope.PrimitiveOf(want); ok && p.Float {
			t = want
		}
	case *ast.Identifier:
		t, err = r.identifier(s, x)
	case *ast.Member:
		t, err = r.member(ctx, s, x)
	case *ast.Call:
		t, err = r.call(ctx, s, x)
	case *ast.Ctor:
		t, err = r.ctor(ctx, s, x)
	case *ast.Binary:
		t, err = r.binary(ctx, s, x, want)
	case *ast.Unary:
		t, err = r.unary(ctx, s, x, want)
	case *ast.Block:
		t, err = r.block(ctx, scope.New(s, "block"), x, want)
	case *ast.If:
		t, err = r.ifExpr(ctx, s, x, want)
	case *ast.While:
		t, err = r.while(ctx, s, x)
	case *ast.Let:
		t, err = r.let(ctx, s, x)
	case *ast.Return:
		t, err = r.ret(ctx, s, x)
	case *ast.Break:
		if s.LoopFrame() == nil {
			return nil, diag.Errorf(diag.Resolution, x.Span(), "break outside of loop")
		}

		t = ast.Void
	case *ast.Cast:
		t, err = r.cast(ctx, s, x)
	case *ast.Function:
		err = r.declareFunction(ctx, s, x)
		if err == nil {
			err = r.function(ctx, s, x)
		}

		return ast.Void, err
	case *ast.CompileTime:
		t, err = r.expr(ctx, s, x.X, want)
	case *ast.Export:
		return nil, diag.Errorf(diag.Resolution, x.Span(), "export is only allowed at top level")
	case *ast.TypeDecl:
		err = r.declareType(s, x)
		if err == nil {
			err = s.ResolveBody(x.Of)
		}

		t = ast.Void
	default:
		return nil, diag.Internalf(x.Span(), "unsupported expression: %T", x)
	}

	if err != nil {
		return nil, err
	}

	if err = setType(x, t); err != nil {
		return nil, err
	}

	return t, nil
}

// integer types the literal by want, i32 by default.
// neg is set for the operand of a unary minus, where the signed minimum fits.
func integer(x *ast.Integer, want ast.Type, neg bool) (ast.Type, error) {
	t := ast.Type(scope.I32)
	p, _ := scope.PrimitiveOf(t)

	if wp, ok := scope.PrimitiveOf(want); ok && !wp.Bool {
		t, p = want, wp
	}

	if p.Float {
		return t, nil
	}

	var limit uint64 = math.MaxUint64

	switch {
	case p.Signed && neg:
		limit = 1 << (p.Bits - 1)
	case p.Signed:
		limit = 1<<(p.Bits-1) - 1
	case p.Bits < 64:
		limit = 1<<p.Bits - 1
	}

	if x.Value > limit {
		return nil, diag.Errorf(diag.Resolution, x.Span(), "integer literal %d overflows %v", x.Value, t)
	}

	return t, nil
}

func (r *Resolver) identifier(s *scope.Scope, x *ast.Identifier) (ast.Type, error) {
	if v, ok := s.FindVariable(x.Name); ok {
		return v.Type, nil
	}

	if t, ok := s.FindNamedType(x.Name); ok {
		return &ast.MetaType{Of: t}, nil
	}

	return nil, diag.Errorf(diag.Resolution, x.Span(), "unknown variable: %s", x.Name)
}

func (r *Resolver) member(ctx context.Context, s *scope.Scope, x *ast.Member) (ast.Type, error) {
	ot, err := r.expr(ctx, s, x.Owner, nil)
	if err != nil {
		return nil, err
	}

	switch ot := ot.(type) {
	case nil:
		return nil, diag.Errorf(diag.Resolution, x.Span(), "cannot access member of unknown type")
	case *ast.MetaType:
		return nil, diag.Errorf(diag.Resolution, x.Span(), "cannot access member of type %v: only methods may be called on types", ot.Of)
	case *ast.OptionalType:
		switch x.Name {
		case "has":
			x.Index = 0
			return scope.Bool, nil
		case "value":
			x.Index = 1
			return ot.Elem, nil
		}

		return nil, diag.Errorf(diag.Resolution, x.Span(), "unknown member; %q not found in optional %v", x.Name, ot)
	case *ast.StructType:
		idx := ot.Field(x.Name)
		if idx < 0 {
			return nil, unknownMember(x.Span(), x.Name, ot)
		}

		x.Index = idx

		return ot.Fields[idx].Type, nil
	default:
		return nil, diag.Errorf(diag.Resolution, x.Span(), "cannot access member of non-struct type")
	}
}

func unknownMember(span ast.Span, name string, st *ast.StructType) error {
	if st.Name == "" {
		return diag.Errorf(diag.Resolution, span, "unknown member; %q not found in unnamed struct", name)
	}

	return diag.Errorf(diag.Resolution, span, "unknown member; %q not found in struct %q", name, st.Name)
}

func (r *Resolver) call(ctx context.Context, s *scope.Scope, x *ast.Call) (ast.Type, error) {
	if m, ok := x.Callee.(*ast.Member); ok {
		return r.methodCall(ctx, s, x, m)
	}

	ct, err := r.expr(ctx, s, x.Callee, nil)
	if err != nil {
		return nil, err
	}

	ft, ok := ct.(*ast.FunctionType)
	if !ok {
		return nil, diag.Errorf(diag.Resolution, x.Callee.Span(), "cannot call non-function value of type %v", ct)
	}

	// only declared functions are called directly
	switch c := x.Callee.(type) {
	case *ast.Identifier:
		if v, ok := s.FindVariable(c.Name); !ok || v.Func == nil {
			return nil, diag.Errorf(diag.Resolution, c.Span(), "cannot call function value %q: currently not implemented", c.Name)
		}
	default:
		return nil, diag.Errorf(diag.Resolution, c.Span(), "cannot call non-identifier expression: currently not implemented")
	}

	if len(x.Args) != len(ft.Params) {
		return nil, diag.Errorf(diag.Resolution, x.Span(), "wrong number of arguments: %v expects %d, got %d", ft, len(ft.Params), len(x.Args))
	}

	for i, a := range x.Args {
		at, err := r.expr(ctx, s, a, ft.Params[i])
		if err != nil {
			return nil, err
		}

		if !ast.SameType(at, ft.Params[i]) {
			return nil, diag.Errorf(diag.Resolution, a.Span(), "argument %d type mismatch: expected %v, got %v", i+1, ft.Params[i], at)
		}
	}

	return result(ft), nil
}

func (r *Resolver) methodCall(ctx context.Context, s *scope.Scope, x *ast.Call, m *ast.Member) (ast.Type, error) {
	ot, err := r.expr(ctx, s, m.Owner, nil)
	if err != nil {
		return nil, err
	}

	var recv ast.Type
	var args []ast.Type

	if meta, ok := ot.(*ast.MetaType); ok {
		recv = meta.Of
	} else {
		recv = ot
		args = append(args, ot)
		x.Self = true
	}

	for _, a := range x.Args {
		at, err := r.expr(ctx, s, a, nil)
		if err != nil {
			return nil, err
		}

		args = append(args, at)
	}

	fn, err := s.FindMethod(recv, m.Name, args)
	if err != nil {
		return nil, diag.Errorf(diag.Resolution, m.Span(), "%v", err)
	}

	if fn == nil {
		return nil, diag.Errorf(diag.Resolution, m.Span(), "no matching method found, looking for method named %q on type %q taking (%s)", m.Name, recv.String(), typeList(args))
	}

	x.Method = fn

	if err = setType(m, fn.Type); err != nil {
		return nil, err
	}

	return result(fn.Type), nil
}

func (r *Resolver) ctor(ctx context.Context, s *scope.Scope, x *ast.Ctor) (ast.Type, error) {
	t, err := s.ResolveType(x.Target)
	if err != nil {
		return nil, err
	}

	st, ok := t.(*ast.StructType)
	if !ok {
		return nil, diag.Errorf(diag.Resolution, x.Span(), "cannot construct non-struct type %v", t)
	}

	x.Target = st

	seen := make(map[string]ast.Span, len(x.Fields))

	for i, f := range x.Fields {
		if prev, ok := seen[f.Name]; ok {
			return nil, diag.New(diag.Resolution, fmt.Sprintf("duplicate field %q in struct literal", f.Name), f.Span, prev)
		}

		seen[f.Name] = f.Span

		idx := st.Field(f.Name)
		if idx < 0 {
			return nil, unknownMember(f.Span, f.Name, st)
		}

		ft := st.Fields[idx].Type

		vt, err := r.expr(ctx, s, f.Value, ft)
		if err != nil {
			return nil, err
		}

		if !ast.SameType(vt, ft) {
			return nil, diag.Errorf(diag.Resolution, f.Value.Span(), "field %q type mismatch: expected %v, got %v", f.Name, ft, vt)
		}

		x.Fields[i].Index = idx
	}

	return st, nil
}

func (r *Resolver) binary(ctx context.Context, s *scope.Scope, x *ast.Binary, want ast.Type) (ast.Type, error) {
	if x.Op == ast.OpAssign {
		return r.assign(ctx, s, x)
	}

	var lt, rt ast.Type
	var err error

	hint := want
	if x.Op.IsComparison() || x.Op == ast.OpShl || x.Op == ast.OpShr {
		hint = nil
	}

	if isLiteral(x.L) && !isLiteral(x.R) {
		rt, err = r.expr(ctx, s, x.R, nil)
		if err == nil {
			lt, err = r.expr(ctx, s, x.L, rt)
		}
	} else {
		lt, err = r.expr(ctx, s, x.L, hint)
		if err == nil {
			rt, err = r.expr(ctx, s, x.R, lt)
		}
	}

	if err != nil {
		return nil, err
	}

	fn, err := s.FindMethod(lt, x.Op.MethodName(), []ast.Type{lt, rt})
	if err != nil {
		return nil, diag.Errorf(diag.Resolution, x.Span(), "%v", err)
	}

	if fn == nil {
		return nil, diag.Errorf(diag.Resolution, x.Span(), "no matching binary operator method found, looking for method named %q on type %q", x.Op.MethodName(), lt.String())
	}

	x.Method = fn

	return result(fn.Type), nil
}

func (r *Resolver) assign(ctx context.Context, s *scope.Scope, x *ast.Binary) (ast.Type, error) {
	id, ok := x.L.(*ast.Identifier)
	if !ok {
		return nil, diag.Errorf(diag.Resolution, x.L.Span(), "left side of assignment must be a variable")
	}

	v, ok := s.FindVariable(id.Name)
	if !ok {
		return nil, diag.Errorf(diag.Resolution, id.Span(), "unknown variable: %s", id.Name)
	}

	if !v.Mutable {
		return nil, diag.New(diag.Resolution, fmt.Sprintf("cannot assign to immutable variable %q", id.Name), id.Span(), v.Span)
	}

	if err := setType(id, v.Type); err != nil {
		return nil, err
	}

	rt, err := r.expr(ctx, s, x.R, v.Type)
	if err != nil {
		return nil, err
	}

	if !ast.SameType(rt, v.Type) {
		return nil, diag.Errorf(diag.Resolution, x.R.Span(), "assignment type mismatch: %q is %v, got %v", id.Name, v.Type, rt)
	}

	return ast.Void, nil
}

func (r *Resolver) unary(ctx context.Context, s *scope.Scope, x *ast.Unary, want ast.Type) (xt ast.Type, err error) {
	if lit, ok := x.X.(*ast.Integer); ok && x.Op == ast.UnaryNeg {
		xt, err = integer(lit, want, true)
		if err == nil {
			err = setType(lit, xt)
		}
	} else {
		xt, err = r.expr(ctx, s, x.X, want)
	}
	if err != nil {
		return nil, err
	}

	fn, err := s.FindMethod(xt, x.Op.MethodName(), []ast.Type{xt})
	if err != nil {
		return nil, diag.Errorf(diag.Resolution, x.Span(), "%v", err)
	}

	if fn == nil {
		return nil, diag.Errorf(diag.Resolution, x.Span(), "no matching unary operator method found, looking for method named %q on type %q", x.Op.MethodName(), xt.String())
	}

	x.Method = fn

	return result(fn.Type), nil
}

// block validates statements in frame s.
func (r *Resolver) block(ctx context.Context, s *scope.Scope, x *ast.Block, want ast.Type) (ast.Type, error) {
	for _, st := range x.Stmts {
		if _, err := r.expr(ctx, s, st, nil); err != nil {
			return nil, err
		}
	}

	if x.Value == nil {
		return ast.Void, nil
	}

	return r.expr(ctx, s, x.Value, want)
}

func (r *Resolver) ifExpr(ctx context.Context, s *scope.Scope, x *ast.If, want ast.Type) (ast.Type, error) {
	ct, err := r.expr(ctx, s, x.Cond, scope.Bool)
	if err != nil {
		return nil, err
	}

	if !ast.SameType(ct, scope.Bool) {
		return nil, diag.Errorf(diag.Resolution, x.Cond.Span(), "if condition must result in a boolean value")
	}

	if x.Else == nil {
		if o, ok := want.(*ast.OptionalType); ok {
			want = o.Elem
		}
	}

	tt, err := r.expr(ctx, s, x.Then, want)
	if err != nil {
		return nil, err
	}

	if x.Else == nil {
		if ast.IsVoid(tt) || diverges(x.Then) {
			return ast.Void, nil
		}

		return &ast.OptionalType{Elem: tt}, nil
	}

	if want == nil && !ast.IsVoid(tt) {
		want = tt
	}

	et, err := r.expr(ctx, s, x.Else, want)
	if err != nil {
		return nil, err
	}

	switch {
	case diverges(x.Then):
		return et, nil
	case diverges(x.Else):
		return tt, nil
	case !ast.SameType(tt, et):
		return nil, diag.New(diag.Resolution, fmt.Sprintf("if branch types do not match: %v and %v", tt, et), branchSpan(x.Then), branchSpan(x.Else))
	}

	return tt, nil
}

func branchSpan(b *ast.Block) ast.Span {
	if b.Value != nil {
		return b.Value.Span()
	}

	return b.Span()
}

func (r *Resolver) while(ctx context.Context, s *scope.Scope, x *ast.While) (ast.Type, error) {
	ct, err := r.expr(ctx, s, x.Cond, scope.Bool)
	if err != nil {
		return nil, err
	}

	if !ast.SameType(ct, scope.Bool) {
		return nil, diag.Errorf(diag.Resolution, x.Cond.Span(), "while condition must result in a boolean value")
	}

	ls := scope.New(s, "loop")
	ls.BreakAllowed = true

	if _, err = r.expr(ctx, ls, x.Body, nil); err != nil {
		return nil, err
	}

	return ast.Void, nil
}

func (r *Resolver) let(ctx context.Context, s *scope.Scope, x *ast.Let) (ast.Type, error) {
	decl, err := s.ResolveType(x.Decl)
	if err != nil {
		return nil, err
	}

	x.Decl = decl

	it, err := r.expr(ctx, s, x.Init, decl)
	if err != nil {
		return nil, err
	}

	if ast.IsVoid(it) {
		return nil, diag.Errorf(diag.Resolution, x.Init.Span(), "cannot bind %q to a value of type void", x.Name)
	}

	if _, ok := it.(*ast.MetaType); ok {
		return nil, diag.Errorf(diag.Resolution, x.Init.Span(), "cannot bind %q to a type", x.Name)
	}

	if decl != nil && !ast.SameType(it, decl) {
		return nil, diag.Errorf(diag.Resolution, x.Init.Span(), "cannot bind %q: declared %v, got %v", x.Name, decl, it)
	}

	s.Declare(&scope.Variable{
		Name:    x.Name,
		Type:    it,
		Value:   ir.Nil,
		Mutable: x.Mutable,
		Span:    x.Span(),
	})

	return ast.Void, nil
}

func (r *Resolver) ret(ctx context.Context, s *scope.Scope, x *ast.Return) (ast.Type, error) {
	fs := s.FunctionFrame()
	if fs == nil {
		return nil, diag.Errorf(diag.Resolution, x.Span(), "return outside of function")
	}

	switch {
	case x.Value == nil && fs.Result != nil:
		return nil, diag.New(diag.Resolution, fmt.Sprintf("missing return value: function returns %v", fs.Result), x.Span(), fs.ResultSpan)
	case x.Value == nil:
		return ast.Void, nil
	case fs.Result == nil:
		return nil, diag.Errorf(diag.Resolution, x.Value.Span(), "unexpected return value in function without result")
	}

	vt, err := r.expr(ctx, s, x.Value, fs.Result)
	if err != nil {
		return nil, err
	}

	if !ast.SameType(vt, fs.Result) {
		return nil, diag.New(diag.Resolution, fmt.Sprintf("return type mismatch: declared %v, got %v", fs.Result, vt), x.Value.Span(), fs.ResultSpan)
	}

	return ast.Void, nil
}

func (r *Resolver) cast(ctx context.Context, s *scope.Scope, x *ast.Cast) (ast.Type, error) {
	to, err := s.ResolveType(x.To)
	if err != nil {
		return nil, err
	}

	x.To = to

	xt, err := r.expr(ctx, s, x.X, nil)
	if err != nil {
		return nil, err
	}

	if !Castable(xt, to) {
		return nil, diag.Errorf(diag.Resolution, x.Span(), "cannot cast %v to %v", xt, to)
	}

	return to, nil
}

// Castable reports whether from converts to to with a cast:
// between numeric primitives and from bool to integers.
func Castable(from, to ast.Type) bool {
	fp, ok := scope.PrimitiveOf(from)
	if !ok {
		return false
	}

	tp, ok := scope.PrimitiveOf(to)
	if !ok {
		return false
	}

	switch {
	case tp.Bool:
		return fp.Bool
	case fp.Bool:
		return !tp.Float
	}

	return true
}

// diverges reports whether control never reaches the end of x.
func diverges(x ast.Expr) bool {
	switch x := x.(type) {
	case *ast.Return, *ast.Break:
		return true
	case *ast.Block:
		for _, s := range x.Stmts {
			if diverges(s) {
				return true
			}
		}

		return x.Value != nil && diverges(x.Value)
	case *ast.If:
		return x.Else != nil && diverges(x.Then) && diverges(x.Else)
	}

	return false
}

// Diverges reports whether control never reaches the end of x.
func Diverges(x ast.Expr) bool { return diverges(x) }

func isLiteral(x ast.Expr) bool {
	switch x := x.(type) {
	case *ast.Integer, *ast.Float:
		return true
	case *ast.Unary:
		return isLiteral(x.X)
	}

	return false
}

func result(ft *ast.FunctionType) ast.Type {
	if ft.Result == nil {
		return ast.Void
	}

	return ft.Result
}

func typeList(ts []ast.Type) string {
	var b strings.Builder

	for i, t := range ts {
		if i != 0 {
			b.WriteString(", ")
		}

		b.WriteString(t.String())
	}

	return b.String()
}

func setType(x ast.Expr, t ast.Type) error {
	if err := x.SetType(t); err != nil {
		return diag.Internalf(x.Span(), "%v", err)
	}

	return nil
}
