package compile

import (
	"context"
	"strconv"

	"tlog.app/go/tlog"

	"github.com/rainlang/rain/compiler/ast"
	"github.com/rainlang/rain/compiler/diag"
	"github.com/rainlang/rain/compiler/interp"
	"github.com/rainlang/rain/compiler/ir"
	"github.com/rainlang/rain/compiler/scope"
)

type (
	// Generator lowers resolved trees into the working module.
	Generator struct {
		Options

		M   *ir.Module
		b   *ir.Builder
		eng *interp.Engine

		// active frame
		s *scope.Scope

		bodies map[*scope.Function]*body
		order  []*ast.Function

		// Warnings are diagnostics that did not stop generation.
		Warnings []*diag.Error
	}

	body struct {
		state bodyState

		// frame the function is declared in
		frame *scope.Scope
	}

	bodyState int
)

const (
	bodyPending bodyState = iota
	bodyGenerating
	bodyDone
)

func NewGenerator(m *ir.Module, s *scope.Scope, opts Options) *Generator {
	return &Generator{
		Options: opts,
		M:       m,
		b:       ir.NewBuilder(m),
		eng:     interp.New(m),
		s:       s,
		bodies:  make(map[*scope.Function]*body),
	}
}

// Scope returns the active frame.
func (g *Generator) Scope() *scope.Scope { return g.s }

// Engine returns the interpreter bound to the working module.
func (g *Generator) Engine() *interp.Engine { return g.eng }

// Module generates every top-level declaration of m.
func (g *Generator) Module(ctx context.Context, m *ast.Module) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "generate", "module", m.Name, "single_pass", g.SinglePass)
	defer tr.Finish("err", &err)

	for _, d := range m.Decls {
		switch d.Kind() {
		case ast.KindTypeDecl, ast.KindExport, ast.KindFunction:
		default:
			return diag.Internalf(d.Span(), "unsupported top-level expression: %v", d.Kind())
		}
	}

	if g.SinglePass {
		for _, d := range m.Decls {
			if err = g.topLevel(ctx, d, true); err != nil {
				return err
			}
		}

		return nil
	}

	for _, d := range m.Decls {
		if td, ok := ast.Unwrap(d).(*ast.TypeDecl); ok {
			if err = g.typeDecl(td); err != nil {
				return err
			}
		}
	}

	for _, d := range m.Decls {
		if fn, ok := ast.Unwrap(d).(*ast.Function); ok {
			if err = g.declareFunction(ctx, fn, linkage(d)); err != nil {
				return err
			}
		}
	}

	for _, d := range m.Decls {
		if err = g.topLevel(ctx, d, false); err != nil {
			return err
		}
	}

	if tr.If("dump_ir") {
		tr.Printw("module ir", "ir", g.M.String())
	}

	return nil
}

func (g *Generator) topLevel(ctx context.Context, d ast.Expr, declare bool) (err error) {
	switch x := ast.Unwrap(d).(type) {
	case *ast.TypeDecl:
		if declare {
			return g.typeDecl(x)
		}
	case *ast.Function:
		if declare {
			err = g.declareFunction(ctx, x, linkage(d))
			if err != nil {
				return err
			}
		}

		return g.functionBody(ctx, x)
	default:
		return diag.Internalf(d.Span(), "unsupported top-level expression: %v", d.Kind())
	}

	return nil
}

func linkage(d ast.Expr) ir.Linkage {
	if d.Kind() == ast.KindExport {
		return ir.Exported
	}

	return ir.Internal
}

// gen generates x at the insertion point.
// Void expressions result in ir.Nil.
func (g *Generator) gen(ctx context.Context, x ast.Expr) (ir.Expr, error) {
	switch x.Kind() {
	case ast.KindBool:
		v := int64(0)
		if x.(*ast.Bool).Value {
			v = 1
		}

		return g.M.ConstInt(g.M.Ctx.Int(1), v), nil
	case ast.KindInteger:
		return g.integer(x.(*ast.Integer))
	case ast.KindFloat:
		return g.float(x.(*ast.Float))
	case ast.KindIdentifier:
		return g.identifier(x.(*ast.Identifier))
	case ast.KindMember:
		return g.member(ctx, x.(*ast.Member))
	case ast.KindCall:
		return g.call(ctx, x.(*ast.Call))
	case ast.KindCtor:
		return g.ctor(ctx, x.(*ast.Ctor))
	case ast.KindBinary:
		return g.binary(ctx, x.(*ast.Binary))
	case ast.KindUnary:
		return g.unary(ctx, x.(*ast.Unary))
	case ast.KindBlock:
		return g.block(ctx, x.(*ast.Block))
	case ast.KindIf:
		return g.ifExpr(ctx, x.(*ast.If))
	case ast.KindWhile:
		return g.while(ctx, x.(*ast.While))
	case ast.KindLet:
		return g.let(ctx, x.(*ast.Let))
	case ast.KindReturn:
		return g.ret(ctx, x.(*ast.Return))
	case ast.KindBreak:
		return g.brk(x.(*ast.Break))
	case ast.KindCast:
		return g.cast(ctx, x.(*ast.Cast))
	case ast.KindFunction:
		return ir.Nil, g.function(ctx, x.(*ast.Function))
	case ast.KindCompileTime:
		return g.compileTime(ctx, x.(*ast.CompileTime))
	case ast.KindTypeDecl:
		return ir.Nil, g.typeDecl(x.(*ast.TypeDecl))
	case ast.KindExport:
		return ir.Nil, diag.Errorf(diag.Generation, x.Span(), "export is only allowed at top level")
	default:
		return ir.Nil, diag.Internalf(x.Span(), "unsupported expression: %v", x.Kind())
	}
}

func (g *Generator) integer(x *ast.Integer) (ir.Expr, error) {
	t, err := g.irType(x.Type())
	if err != nil {
		return ir.Nil, err
	}

	if p, ok := scope.PrimitiveOf(x.Type()); ok && p.Float {
		return g.floatConst(t, p.Bits, float64(x.Value)), nil
	}

	return g.M.ConstInt(t, int64(x.Value)), nil
}

func (g *Generator) float(x *ast.Float) (ir.Expr, error) {
	t, err := g.irType(x.Type())
	if err != nil {
		return ir.Nil, err
	}

	p, _ := scope.PrimitiveOf(x.Type())

	return g.floatConst(t, p.Bits, x.Value), nil
}

func (g *Generator) floatConst(t ir.Type, bits int, v float64) ir.Expr {
	if bits == 32 {
		v = float64(float32(v))
	}

	return g.M.ConstFloat(t, v)
}

func (g *Generator) identifier(x *ast.Identifier) (ir.Expr, error) {
	v, ok := g.s.FindVariable(x.Name)
	if !ok {
		return ir.Nil, diag.Errorf(diag.Generation, x.Span(), "unknown variable: %s", x.Name)
	}

	if v.Func != nil {
		if v.Func.IR == ir.Nil {
			return ir.Nil, diag.Errorf(diag.Generation, x.Span(), "unknown variable: %s", x.Name)
		}

		return v.Func.IR, nil
	}

	if v.Value == ir.Nil {
		return ir.Nil, diag.Internalf(x.Span(), "variable %q has no value", x.Name)
	}

	if !v.Alloca {
		return v.Value, nil
	}

	t, err := g.irType(v.Type)
	if err != nil {
		return ir.Nil, err
	}

	return g.b.Load(t, v.Value), nil
}

func (g *Generator) member(ctx context.Context, x *ast.Member) (ir.Expr, error) {
	var st *ast.StructType

	switch ot := x.Owner.Type().(type) {
	case nil:
		return ir.Nil, diag.Errorf(diag.Generation, x.Span(), "cannot access member of unknown type")
	case *ast.OptionalType:
		owner, err := g.gen(ctx, x.Owner)
		if err != nil {
			return ir.Nil, err
		}

		return g.b.Extract(owner, x.Index), nil
	case *ast.StructType:
		st = ot
	default:
		return ir.Nil, diag.Errorf(diag.Generation, x.Span(), "cannot access member of non-struct type")
	}

	idx := st.Field(x.Name)
	if idx < 0 {
		return ir.Nil, unknownMember(x.Span(), x.Name, st)
	}

	if id, ok := x.Owner.(*ast.Identifier); ok {
		if v, ok := g.s.FindVariable(id.Name); ok && v.Alloca {
			stt, err := g.irType(st)
			if err != nil {
				return ir.Nil, err
			}

			ft, err := g.irType(st.Fields[idx].Type)
			if err != nil {
				return ir.Nil, err
			}

			ptr := g.b.FieldPtr(stt, v.Value, idx)

			return g.b.Load(ft, ptr), nil
		}
	}

	owner, err := g.gen(ctx, x.Owner)
	if err != nil {
		return ir.Nil, err
	}

	return g.b.Extract(owner, idx), nil
}

func unknownMember(span ast.Span, name string, st *ast.StructType) error {
	if st.Name == "" {
		return diag.Errorf(diag.Generation, span, "unknown member; %q not found in unnamed struct", name)
	}

	return diag.Errorf(diag.Generation, span, "unknown member; %q not found in struct %q", name, st.Name)
}

func (g *Generator) call(ctx context.Context, x *ast.Call) (ir.Expr, error) {
	var fn *scope.Function
	var args []ir.Expr

	switch c := x.Callee.(type) {
	case *ast.Member:
		m, ok := x.Method.(*scope.Function)
		if !ok {
			return ir.Nil, diag.Errorf(diag.Generation, x.Callee.Span(), "cannot call non-identifier expression: currently not implemented")
		}

		fn = m

		if x.Self {
			self, err := g.gen(ctx, c.Owner)
			if err != nil {
				return ir.Nil, err
			}

			args = append(args, self)
		}
	case *ast.Identifier:
		v, ok := g.s.FindVariable(c.Name)
		if !ok || v.Func == nil && v.Value == ir.Nil {
			return ir.Nil, diag.Errorf(diag.Generation, c.Span(), "unknown variable: %s", c.Name)
		}

		if v.Func == nil {
			return ir.Nil, diag.Errorf(diag.Generation, c.Span(), "cannot call %q: not a function", c.Name)
		}

		fn = v.Func
	default:
		return ir.Nil, diag.Errorf(diag.Generation, x.Callee.Span(), "cannot call non-identifier expression: currently not implemented")
	}

	for _, a := range x.Args {
		v, err := g.gen(ctx, a)
		if err != nil {
			return ir.Nil, err
		}

		args = append(args, v)
	}

	return g.callFunction(fn, args, x.Span())
}

func (g *Generator) callFunction(fn *scope.Function, args []ir.Expr, span ast.Span) (ir.Expr, error) {
	if fn.Builtin != scope.BuiltinNone {
		return g.builtin(fn, args, span)
	}

	if fn.IR == ir.Nil {
		if fn.Receiver == nil {
			return ir.Nil, diag.Errorf(diag.Generation, span, "unknown variable: %s", fn.Name)
		}

		return ir.Nil, diag.Errorf(diag.Generation, span, "method %q is used before it is declared", fn.MangledName())
	}

	r := g.b.Call(fn.IR, args...)

	if fn.Type.Result == nil {
		return ir.Nil, nil
	}

	return r, nil
}

func (g *Generator) ctor(ctx context.Context, x *ast.Ctor) (ir.Expr, error) {
	st, ok := x.Target.(*ast.StructType)
	if !ok {
		return ir.Nil, diag.Errorf(diag.Generation, x.Span(), "cannot construct non-struct type %v", x.Target)
	}

	t, err := g.irType(st)
	if err != nil {
		return ir.Nil, err
	}

	var agg ir.Expr

	if len(x.Fields) == len(st.Fields) {
		agg = g.M.Poison(t)
	} else {
		agg = g.M.Zero(t)
	}

	for _, f := range x.Fields {
		v, err := g.gen(ctx, f.Value)
		if err != nil {
			return ir.Nil, err
		}

		agg = g.b.Insert(agg, v, f.Index)
	}

	return agg, nil
}

func (g *Generator) binary(ctx context.Context, x *ast.Binary) (ir.Expr, error) {
	if x.Op == ast.OpAssign {
		return g.assign(ctx, x)
	}

	l, err := g.gen(ctx, x.L)
	if err != nil {
		return ir.Nil, err
	}

	r, err := g.gen(ctx, x.R)
	if err != nil {
		return ir.Nil, err
	}

	fn, ok := x.Method.(*scope.Function)
	if !ok {
		return ir.Nil, diag.Errorf(diag.Generation, x.Span(), "no matching binary operator method found, looking for method named %q on type %q", x.Op.MethodName(), typeName(x.L.Type()))
	}

	return g.callFunction(fn, []ir.Expr{l, r}, x.Span())
}

func (g *Generator) assign(ctx context.Context, x *ast.Binary) (ir.Expr, error) {
	id, ok := x.L.(*ast.Identifier)
	if !ok {
		return ir.Nil, diag.Errorf(diag.Generation, x.L.Span(), "left side of assignment must be a variable")
	}

	v, ok := g.s.FindVariable(id.Name)
	if !ok {
		return ir.Nil, diag.Errorf(diag.Generation, id.Span(), "unknown variable: %s", id.Name)
	}

	if !v.Alloca {
		return ir.Nil, diag.Errorf(diag.Generation, id.Span(), "cannot assign to immutable variable %q", id.Name)
	}

	r, err := g.gen(ctx, x.R)
	if err != nil {
		return ir.Nil, err
	}

	g.b.Store(r, v.Value)

	return ir.Nil, nil
}

func (g *Generator) unary(ctx context.Context, x *ast.Unary) (ir.Expr, error) {
	v, err := g.gen(ctx, x.X)
	if err != nil {
		return ir.Nil, err
	}

	fn, ok := x.Method.(*scope.Function)
	if !ok {
		return ir.Nil, diag.Errorf(diag.Generation, x.Span(), "no matching unary operator method found, looking for method named %q on type %q", x.Op.MethodName(), typeName(x.X.Type()))
	}

	return g.callFunction(fn, []ir.Expr{v}, x.Span())
}

func typeName(t ast.Type) string {
	if t == nil {
		return "<unknown>"
	}

	return t.String()
}

// builtin emits the native operation of a primitive operator method.
func (g *Generator) builtin(fn *scope.Function, args []ir.Expr, span ast.Span) (ir.Expr, error) {
	p, ok := scope.PrimitiveOf(fn.Receiver)
	if !ok {
		return ir.Nil, diag.Internalf(span, "builtin method %v on non-primitive type %v", fn.Name, fn.Receiver)
	}

	arith := func(i, u, f ir.Op) (ir.Expr, error) {
		op := i

		switch {
		case p.Float:
			op = f
		case !p.Signed:
			op = u
		}

		return g.b.BinOp(op, args[0], args[1]), nil
	}

	cmp := func(i, u, f ir.Pred) (ir.Expr, error) {
		pred := i

		switch {
		case p.Float:
			pred = f
		case !p.Signed:
			pred = u
		}

		return g.b.Cmp(pred, args[0], args[1]), nil
	}

	intOnly := func(op ir.Op) (ir.Expr, error) {
		if p.Float {
			return ir.Nil, diag.Internalf(span, "builtin %v on float type %v", fn.Name, fn.Receiver)
		}

		return g.b.BinOp(op, args[0], args[1]), nil
	}

	switch fn.Builtin {
	case scope.BuiltinAdd:
		return arith(ir.OpAdd, ir.OpAdd, ir.OpFAdd)
	case scope.BuiltinSub:
		return arith(ir.OpSub, ir.OpSub, ir.OpFSub)
	case scope.BuiltinMul:
		return arith(ir.OpMul, ir.OpMul, ir.OpFMul)
	case scope.BuiltinDiv:
		return arith(ir.OpSDiv, ir.OpUDiv, ir.OpFDiv)
	case scope.BuiltinRem:
		return arith(ir.OpSRem, ir.OpURem, ir.OpFRem)
	case scope.BuiltinAnd:
		return intOnly(ir.OpAnd)
	case scope.BuiltinOr:
		return intOnly(ir.OpOr)
	case scope.BuiltinXor:
		return intOnly(ir.OpXor)
	case scope.BuiltinShl:
		return intOnly(ir.OpShl)
	case scope.BuiltinShr:
		if p.Signed {
			return intOnly(ir.OpAShr)
		}

		return intOnly(ir.OpLShr)
	case scope.BuiltinEq:
		return cmp(ir.PredEq, ir.PredEq, ir.PredFOEq)
	case scope.BuiltinNe:
		return cmp(ir.PredNe, ir.PredNe, ir.PredFONe)
	case scope.BuiltinLt:
		return cmp(ir.PredSLt, ir.PredULt, ir.PredFOLt)
	case scope.BuiltinLe:
		return cmp(ir.PredSLe, ir.PredULe, ir.PredFOLe)
	case scope.BuiltinGt:
		return cmp(ir.PredSGt, ir.PredUGt, ir.PredFOGt)
	case scope.BuiltinGe:
		return cmp(ir.PredSGe, ir.PredUGe, ir.PredFOGe)
	case scope.BuiltinPos:
		return args[0], nil
	case scope.BuiltinNeg:
		if p.Float {
			return g.b.FNeg(args[0]), nil
		}

		zero := g.M.ConstInt(g.M.TypeOf(args[0]), 0)

		return g.b.BinOp(ir.OpSub, zero, args[0]), nil
	case scope.BuiltinNot:
		if p.Float {
			return ir.Nil, diag.Internalf(span, "builtin %v on float type %v", fn.Name, fn.Receiver)
		}

		ones := g.M.ConstInt(g.M.TypeOf(args[0]), -1)

		return g.b.BinOp(ir.OpXor, args[0], ones), nil
	default:
		return ir.Nil, diag.Internalf(span, "unsupported builtin operation %v on %v", fn.Name, fn.Receiver)
	}
}

// block generates statements in a new frame.
// Statements after a terminator are unreachable and skipped.
func (g *Generator) block(ctx context.Context, x *ast.Block) (_ ir.Expr, err error) {
	defer g.enter("block")()

	for _, st := range x.Stmts {
		if g.b.Terminated() {
			return ir.Nil, nil
		}

		if _, err = g.gen(ctx, st); err != nil {
			return ir.Nil, err
		}
	}

	if x.Value == nil || g.b.Terminated() {
		return ir.Nil, nil
	}

	return g.gen(ctx, x.Value)
}

// enter opens a frame and returns the function closing it.
func (g *Generator) enter(name string) func() {
	prev := g.s
	g.s = scope.New(prev, name)

	return func() { g.s = prev }
}

func (g *Generator) ifExpr(ctx context.Context, x *ast.If) (ir.Expr, error) {
	cond, err := g.gen(ctx, x.Cond)
	if err != nil {
		return ir.Nil, err
	}

	if ct := g.M.Ctx.Type(g.M.TypeOf(cond)); ct != (ir.Int{Bits: 1}) {
		return ir.Nil, diag.Errorf(diag.Generation, x.Cond.Span(), "if condition must result in a boolean value")
	}

	t := x.Type()

	var rt ir.Type
	if !ast.IsVoid(t) {
		rt, err = g.irType(t)
		if err != nil {
			return ir.Nil, err
		}
	}

	from := g.b.Block()

	thenB := g.b.NewBlock("then")
	elseB := ir.Nil
	endB := g.b.NewBlock("endif")

	if x.Else != nil {
		elseB = g.b.NewBlock("else")
		g.b.CondBr(cond, thenB, elseB)
	} else {
		g.b.CondBr(cond, thenB, endB)
	}

	var phi []ir.PhiBranch

	g.b.SetInsertPoint(thenB)

	tv, err := g.gen(ctx, x.Then)
	if err != nil {
		return ir.Nil, err
	}

	if !g.b.Terminated() {
		if x.Else == nil && !ast.IsVoid(t) {
			opt := g.b.Insert(g.M.Zero(rt), g.M.ConstInt(g.M.Ctx.Int(1), 1), 0)
			tv = g.b.Insert(opt, tv, 1)
		}

		phi = append(phi, ir.PhiBranch{B: g.b.Block(), Expr: tv})
		g.b.Br(endB)
	}

	if x.Else != nil {
		g.b.SetInsertPoint(elseB)

		ev, err := g.gen(ctx, x.Else)
		if err != nil {
			return ir.Nil, err
		}

		if !g.b.Terminated() {
			phi = append(phi, ir.PhiBranch{B: g.b.Block(), Expr: ev})
			g.b.Br(endB)
		}
	} else if !ast.IsVoid(t) {
		phi = append(phi, ir.PhiBranch{B: from, Expr: g.M.Zero(rt)})
	}

	g.b.SetInsertPoint(endB)

	if ast.IsVoid(t) || len(phi) == 0 {
		return ir.Nil, nil
	}

	if len(phi) == 1 && x.Else != nil {
		return phi[0].Expr, nil
	}

	return g.b.Phi(rt, phi...), nil
}

func (g *Generator) while(ctx context.Context, x *ast.While) (_ ir.Expr, err error) {
	condB := g.b.NewBlock("while")
	bodyB := g.b.NewBlock("do")
	endB := g.b.NewBlock("endwhile")

	g.b.Br(condB)
	g.b.SetInsertPoint(condB)

	cond, err := g.gen(ctx, x.Cond)
	if err != nil {
		return ir.Nil, err
	}

	g.b.CondBr(cond, bodyB, endB)
	g.b.SetInsertPoint(bodyB)

	defer g.enter("loop")()

	g.s.BreakAllowed = true
	g.s.BreakTo = endB

	if _, err = g.gen(ctx, x.Body); err != nil {
		return ir.Nil, err
	}

	if !g.b.Terminated() {
		g.b.Br(condB)
	}

	g.b.SetInsertPoint(endB)

	return ir.Nil, nil
}

func (g *Generator) let(ctx context.Context, x *ast.Let) (ir.Expr, error) {
	v, err := g.gen(ctx, x.Init)
	if err != nil {
		return ir.Nil, err
	}

	t := x.Init.Type()

	vr := &scope.Variable{
		Name:    x.Name,
		Type:    t,
		Value:   v,
		Mutable: x.Mutable,
		Span:    x.Span(),
	}

	if x.Mutable {
		rt, err := g.irType(t)
		if err != nil {
			return ir.Nil, err
		}

		vr.Value = g.b.Alloca(rt)
		vr.Alloca = true

		g.b.Store(v, vr.Value)
	}

	g.s.Declare(vr)

	return ir.Nil, nil
}

func (g *Generator) ret(ctx context.Context, x *ast.Return) (ir.Expr, error) {
	if g.s.FunctionFrame() == nil {
		return ir.Nil, diag.Errorf(diag.Generation, x.Span(), "return outside of function")
	}

	if x.Value == nil {
		g.b.RetVoid()

		return ir.Nil, nil
	}

	v, err := g.gen(ctx, x.Value)
	if err != nil {
		return ir.Nil, err
	}

	g.b.Ret(v)

	return ir.Nil, nil
}

func (g *Generator) brk(x *ast.Break) (ir.Expr, error) {
	l := g.s.LoopFrame()
	if l == nil {
		return ir.Nil, diag.Errorf(diag.Generation, x.Span(), "break outside of loop")
	}

	g.b.Br(l.BreakTo)

	return ir.Nil, nil
}

func (g *Generator) cast(ctx context.Context, x *ast.Cast) (ir.Expr, error) {
	v, err := g.gen(ctx, x.X)
	if err != nil {
		return ir.Nil, err
	}

	from, ok1 := scope.PrimitiveOf(x.X.Type())
	to, ok2 := scope.PrimitiveOf(x.To)

	if !ok1 || !ok2 {
		return ir.Nil, diag.Errorf(diag.Generation, x.Span(), "cannot cast %v to %v", x.X.Type(), x.To)
	}

	op, ok := castOp(from, to)
	if !ok {
		return v, nil
	}

	rt, err := g.irType(x.To)
	if err != nil {
		return ir.Nil, err
	}

	return g.b.Cast(op, v, rt), nil
}

func (g *Generator) typeDecl(x *ast.TypeDecl) error {
	if _, ok := g.s.LocalVariable(x.Name); ok {
		return diag.Errorf(diag.Generation, x.Span(), "type %q conflicts with a variable", x.Name)
	}

	return g.s.DeclareType(x.Name, x.Of, x.Span())
}

// declareFunction creates the IR function and binds it in the active frame.
func (g *Generator) declareFunction(ctx context.Context, x *ast.Function, l ir.Linkage) error {
	fn, ok := x.Binding.(*scope.Function)
	if !ok {
		return diag.Internalf(x.Span(), "function %q is not resolved", x.Name)
	}

	sig, err := g.irType(fn.Type)
	if err != nil {
		return err
	}

	names := make([]string, len(x.Args))
	for i, a := range x.Args {
		names[i] = a.Name
	}

	fn.IR = g.M.NewFunc(g.symbol(fn), sig, l, names...)
	g.bodies[fn] = &body{state: bodyPending, frame: g.s}
	g.order = append(g.order, x)

	tlog.SpanFromContext(ctx).V("gen").Printw("declare function", "name", g.M.Func(fn.IR).Name, "linkage", l, "id", fn.IR)

	if fn.Receiver != nil {
		return g.s.RegisterMethod(fn)
	}

	return g.s.DeclareUnique(&scope.Variable{
		Name:  fn.Name,
		Type:  fn.Type,
		Value: fn.IR,
		Func:  fn,
		Span:  x.Span(),
	})
}

// symbol returns a function name unique in the module.
func (g *Generator) symbol(fn *scope.Function) string {
	name := fn.MangledName()

	if g.M.LookupFunc(name) == ir.Nil {
		return name
	}

	for i := 1; ; i++ {
		n := name + "." + strconv.Itoa(i)

		if g.M.LookupFunc(n) == ir.Nil {
			return n
		}
	}
}

// function generates a function declared in a block.
func (g *Generator) function(ctx context.Context, x *ast.Function) error {
	if err := g.declareFunction(ctx, x, ir.Internal); err != nil {
		return err
	}

	return g.functionBody(ctx, x)
}

func (g *Generator) functionBody(ctx context.Context, x *ast.Function) (err error) {
	fn := x.Binding.(*scope.Function)

	st := g.bodies[fn]
	if st == nil || st.state != bodyPending {
		return nil
	}

	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "generate function", "name", fn.MangledName())
	defer tr.Finish("err", &err)

	st.state = bodyGenerating

	g.b.Save()
	defer g.b.Restore()

	prev := g.s
	defer func() { g.s = prev }()

	g.s = scope.New(st.frame, "fn "+fn.Name)

	g.s.ReturnAllowed = true
	g.s.Result = fn.Type.Result

	f := g.M.Func(fn.IR)

	g.b.SetInsertPoint(g.M.NewBlock(fn.IR, "entry"))

	for i, a := range x.Args {
		g.s.Declare(&scope.Variable{
			Name:  a.Name,
			Type:  a.Type,
			Value: f.Params[i],
			Span:  a.Span,
		})
	}

	v, err := g.gen(ctx, x.Body)
	if err != nil {
		return err
	}

	if !g.b.Terminated() {
		switch {
		case fn.Type.Result == nil:
			g.b.RetVoid()
		case v == ir.Nil:
			// unreachable: every path has returned
			g.b.Ret(g.M.Poison(g.M.FuncType(fn.IR).Result))
		default:
			g.b.Ret(v)
		}
	}

	st.state = bodyDone

	return nil
}

// completePending generates bodies of declared functions
// not yet generated so they may be called at compile time.
func (g *Generator) completePending(ctx context.Context) error {
	for i := 0; i < len(g.order); i++ {
		x := g.order[i]

		fn, ok := x.Binding.(*scope.Function)
		if !ok || g.bodies[fn] == nil || g.bodies[fn].state != bodyPending {
			continue
		}

		if err := g.functionBody(ctx, x); err != nil {
			return err
		}
	}

	return nil
}
