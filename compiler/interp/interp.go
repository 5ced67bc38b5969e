package interp

import (
	"context"
	"math"
	"sync"

	"nikand.dev/go/heap"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/rainlang/rain/compiler/ir"
)

type (
	// ExternalFunc is a native implementation of an external function.
	ExternalFunc func(args []Value) (Value, error)

	// Engine executes IR functions of a module.
	Engine struct {
		M *ir.Module

		// MaxDepth limits the call stack, 0 means DefaultMaxDepth.
		MaxDepth int

		ext map[string]ExternalFunc

		depth int
	}

	frame struct {
		fn   *ir.Func
		regs map[ir.Expr]Value
	}
)

// ExternalPrefix is prepended to external function names
// to get the name native implementations are registered under.
const ExternalPrefix = "lle_X_"

const DefaultMaxDepth = 4096

var registry struct {
	sync.RWMutex

	funcs map[string]ExternalFunc
}

var ErrDivisionByZero = errors.New("integer division by zero")

// Mangle returns the registry name of the external function.
func Mangle(name string) string { return ExternalPrefix + name }

// Register makes the native implementation visible to every Engine.
func Register(name string, f ExternalFunc) {
	registry.Lock()
	defer registry.Unlock()

	if registry.funcs == nil {
		registry.funcs = make(map[string]ExternalFunc)
	}

	registry.funcs[Mangle(name)] = f
}

// Lookup finds the native implementation by function name.
func Lookup(name string) (ExternalFunc, bool) {
	registry.RLock()
	defer registry.RUnlock()

	f, ok := registry.funcs[Mangle(name)]

	return f, ok
}

// Registered lists registry names of native implementations in order.
func Registered() []string {
	registry.RLock()
	defer registry.RUnlock()

	h := heap.Heap[string]{Less: func(d []string, i, j int) bool { return d[i] < d[j] }}

	for n := range registry.funcs {
		h.Push(n)
	}

	r := make([]string, 0, h.Len())

	for h.Len() != 0 {
		r = append(r, h.Pop())
	}

	return r
}

func New(m *ir.Module) *Engine {
	return &Engine{
		M: m,
	}
}

// Register adds an implementation visible to this Engine only.
// It takes precedence over the global registry.
func (e *Engine) Register(name string, f ExternalFunc) {
	if e.ext == nil {
		e.ext = make(map[string]ExternalFunc)
	}

	e.ext[Mangle(name)] = f
}

// RunByName runs the function found by its name.
func (e *Engine) RunByName(ctx context.Context, name string, args ...Value) (Value, error) {
	f := e.M.LookupFunc(name)
	if f == ir.Nil {
		return Value{}, errors.New("no function: %v", name)
	}

	return e.Run(ctx, f, args...)
}

// Run executes the function to completion.
// There is no step limit: a non-terminating function never returns.
func (e *Engine) Run(ctx context.Context, f ir.Expr, args ...Value) (res Value, err error) {
	tr := tlog.SpanFromContext(ctx)

	if tr.If("interp") {
		tr.Printw("interp: run", "func", e.funcName(f), "args", args)
		defer tr.Printw("interp: done", "func", e.funcName(f), "res", res, "err", err)
	}

	e.depth = 0

	return e.call(ctx, f, args)
}

func (e *Engine) funcName(f ir.Expr) string {
	if fn := e.M.Func(f); fn != nil {
		return fn.Name
	}

	return "<removed>"
}

func (e *Engine) call(ctx context.Context, f ir.Expr, args []Value) (_ Value, err error) {
	fn := e.M.Func(f)
	if fn == nil {
		return Value{}, errors.New("call of removed function %d", f)
	}

	if len(args) != len(fn.Params) {
		return Value{}, errors.New("%v: expected %d arguments, got %d", fn.Name, len(fn.Params), len(args))
	}

	if len(fn.Blocks) == 0 {
		return e.callExternal(fn, args)
	}

	limit := e.MaxDepth
	if limit == 0 {
		limit = DefaultMaxDepth
	}

	if e.depth >= limit {
		return Value{}, errors.New("%v: call stack exhausted (depth %d)", fn.Name, e.depth)
	}

	e.depth++
	defer func() { e.depth-- }()

	fr := &frame{
		fn:   fn,
		regs: make(map[ir.Expr]Value, len(args)),
	}

	for i, p := range fn.Params {
		fr.regs[p] = args[i]
	}

	prev := ir.Nil
	blk := fn.Blocks[0]

	for {
		next, res, done, err := e.runBlock(ctx, fr, prev, blk)
		if err != nil {
			return Value{}, errors.Wrap(err, "%v: %v", fn.Name, e.M.Block(blk).Label)
		}

		if done {
			return res, nil
		}

		prev, blk = blk, next
	}
}

func (e *Engine) callExternal(fn *ir.Func, args []Value) (Value, error) {
	impl, ok := e.ext[Mangle(fn.Name)]
	if !ok {
		impl, ok = Lookup(fn.Name)
	}

	if !ok {
		return Value{}, errors.New("external function %v has no native implementation (%v)", fn.Name, Mangle(fn.Name))
	}

	res, err := impl(args)
	if err != nil {
		return Value{}, errors.Wrap(err, "%v", fn.Name)
	}

	return res, nil
}

func (e *Engine) runBlock(ctx context.Context, fr *frame, prev, blk ir.Expr) (next ir.Expr, res Value, done bool, err error) {
	code := e.M.Block(blk).Code

	i := 0

	// phis read values as they were on block entry
	var phis []Value

	for ; i < len(code); i++ {
		p, ok := e.M.Exprs[code[i]].(ir.Phi)
		if !ok {
			break
		}

		v, err := e.phi(fr, p, prev)
		if err != nil {
			return ir.Nil, Value{}, false, err
		}

		phis = append(phis, v)
	}

	for j, v := range phis {
		fr.regs[code[j]] = v
	}

	for ; i < len(code); i++ {
		id := code[i]

		switch x := e.M.Exprs[id].(type) {
		case ir.Br:
			return x.To, Value{}, false, nil
		case ir.CondBr:
			c, err := e.value(fr, x.Cond)
			if err != nil {
				return ir.Nil, Value{}, false, err
			}

			if c.Bool() {
				return x.Then, Value{}, false, nil
			}

			return x.Else, Value{}, false, nil
		case ir.Ret:
			if x.Val == ir.Nil {
				return ir.Nil, Value{}, true, nil
			}

			v, err := e.value(fr, x.Val)
			if err != nil {
				return ir.Nil, Value{}, false, err
			}

			return ir.Nil, v.Copy(), true, nil
		}

		v, err := e.exec(ctx, fr, id)
		if err != nil {
			return ir.Nil, Value{}, false, err
		}

		fr.regs[id] = v
	}

	return ir.Nil, Value{}, false, errors.New("block %v has no terminator", e.M.Block(blk).Label)
}

func (e *Engine) phi(fr *frame, p ir.Phi, prev ir.Expr) (Value, error) {
	for _, br := range p {
		if br.B == prev {
			return e.value(fr, br.Expr)
		}
	}

	return Value{}, errors.New("phi has no branch from block %d", prev)
}

func (e *Engine) exec(ctx context.Context, fr *frame, id ir.Expr) (Value, error) {
	m := e.M

	switch x := m.Exprs[id].(type) {
	case ir.BinOp:
		l, r, err := e.values2(fr, x.L, x.R)
		if err != nil {
			return Value{}, err
		}

		return binOp(x.Op, l, r)
	case ir.Cmp:
		l, r, err := e.values2(fr, x.L, x.R)
		if err != nil {
			return Value{}, err
		}

		return BoolValue(compare(x.Pred, l, r)), nil
	case ir.FNeg:
		v, err := e.value(fr, x.X)
		if err != nil {
			return Value{}, err
		}

		v.Float = -v.Float

		return v, nil
	case ir.Cast:
		v, err := e.value(fr, x.X)
		if err != nil {
			return Value{}, err
		}

		return cast(m.Ctx, x.Op, v, m.EType[id])
	case ir.Alloca:
		cell := Zero(m.Ctx, x.Elem)

		return Value{Kind: KindPointer, Ptr: &cell}, nil
	case ir.Load:
		p, err := e.pointer(fr, x.Ptr)
		if err != nil {
			return Value{}, err
		}

		return p.Copy(), nil
	case ir.Store:
		p, err := e.pointer(fr, x.Ptr)
		if err != nil {
			return Value{}, err
		}

		v, err := e.value(fr, x.Val)
		if err != nil {
			return Value{}, err
		}

		p.assign(v)

		return Value{}, nil
	case ir.FieldPtr:
		p, err := e.pointer(fr, x.Ptr)
		if err != nil {
			return Value{}, err
		}

		if p.Kind != KindAggregate || x.Index >= len(p.Agg) {
			return Value{}, errors.New("field pointer %d into %v", x.Index, p.Kind)
		}

		return Value{Kind: KindPointer, Ptr: &p.Agg[x.Index]}, nil
	case ir.Extract:
		agg, err := e.value(fr, x.Agg)
		if err != nil {
			return Value{}, err
		}

		if agg.Kind != KindAggregate || x.Index >= len(agg.Agg) {
			return Value{}, errors.New("extract %d from %v", x.Index, agg.Kind)
		}

		return agg.Agg[x.Index].Copy(), nil
	case ir.Insert:
		agg, v, err := e.values2(fr, x.Agg, x.Val)
		if err != nil {
			return Value{}, err
		}

		if agg.Kind != KindAggregate || x.Index >= len(agg.Agg) {
			return Value{}, errors.New("insert %d into %v", x.Index, agg.Kind)
		}

		agg = agg.Copy()
		agg.Agg[x.Index] = v.Copy()

		return agg, nil
	case ir.Call:
		args := make([]Value, len(x.Args))

		for i, a := range x.Args {
			v, err := e.value(fr, a)
			if err != nil {
				return Value{}, err
			}

			args[i] = v.Copy()
		}

		return e.call(ctx, x.Func, args)
	default:
		panic(x)
	}
}

func (e *Engine) values2(fr *frame, a, b ir.Expr) (x, y Value, err error) {
	x, err = e.value(fr, a)
	if err != nil {
		return
	}

	y, err = e.value(fr, b)

	return
}

func (e *Engine) pointer(fr *frame, id ir.Expr) (*Value, error) {
	p, err := e.value(fr, id)
	if err != nil {
		return nil, err
	}

	if p.Kind != KindPointer || p.Ptr == nil {
		return nil, errors.New("not a valid pointer: %v", p)
	}

	return p.Ptr, nil
}

// value reads an operand: a register or a constant.
func (e *Engine) value(fr *frame, id ir.Expr) (Value, error) {
	if v, ok := fr.regs[id]; ok {
		return v, nil
	}

	return e.constant(id)
}

func (e *Engine) constant(id ir.Expr) (Value, error) {
	m := e.M
	t := m.EType[id]

	switch x := m.Exprs[id].(type) {
	case ir.ConstInt:
		it, ok := m.Ctx.Type(t).(ir.Int)
		if !ok {
			return Value{}, errors.New("integer constant of type %v", m.Ctx.TypeString(t))
		}

		return IntValue(it.Bits, x.Value), nil
	case ir.ConstFloat:
		ft, ok := m.Ctx.Type(t).(ir.Float)
		if !ok {
			return Value{}, errors.New("float constant of type %v", m.Ctx.TypeString(t))
		}

		if ft.Bits == 32 {
			return Float32Value(float32(x.Value)), nil
		}

		return Float64Value(x.Value), nil
	case ir.ConstStruct:
		agg := make([]Value, len(x.Fields))

		for i, f := range x.Fields {
			v, err := e.constant(f)
			if err != nil {
				return Value{}, err
			}

			agg[i] = v
		}

		return AggregateValue(agg...), nil
	case ir.Zero, ir.Poison:
		return Zero(m.Ctx, t), nil
	default:
		return Value{}, errors.New("value %d (%T) is not available", id, x)
	}
}

func binOp(op ir.Op, l, r Value) (Value, error) {
	switch op {
	case ir.OpFAdd, ir.OpFSub, ir.OpFMul, ir.OpFDiv, ir.OpFRem:
		var v float64

		switch op {
		case ir.OpFAdd:
			v = l.Float + r.Float
		case ir.OpFSub:
			v = l.Float - r.Float
		case ir.OpFMul:
			v = l.Float * r.Float
		case ir.OpFDiv:
			v = l.Float / r.Float
		case ir.OpFRem:
			v = math.Mod(l.Float, r.Float)
		}

		if l.Kind == KindFloat {
			return Float32Value(float32(v)), nil
		}

		return Float64Value(v), nil
	}

	bits := l.Bits

	var v int64

	switch op {
	case ir.OpAdd:
		v = l.Int + r.Int
	case ir.OpSub:
		v = l.Int - r.Int
	case ir.OpMul:
		v = l.Int * r.Int
	case ir.OpSDiv, ir.OpSRem:
		if r.Int == 0 {
			return Value{}, ErrDivisionByZero
		}

		// MinInt / -1 wraps
		if r.Int == -1 {
			if op == ir.OpSDiv {
				v = -l.Int
			}

			break
		}

		if op == ir.OpSDiv {
			v = l.Int / r.Int
		} else {
			v = l.Int % r.Int
		}
	case ir.OpUDiv, ir.OpURem:
		if r.Uint() == 0 {
			return Value{}, ErrDivisionByZero
		}

		if op == ir.OpUDiv {
			v = int64(l.Uint() / r.Uint())
		} else {
			v = int64(l.Uint() % r.Uint())
		}
	case ir.OpAnd:
		v = l.Int & r.Int
	case ir.OpOr:
		v = l.Int | r.Int
	case ir.OpXor:
		v = l.Int ^ r.Int
	case ir.OpShl, ir.OpAShr, ir.OpLShr:
		sh := r.Uint()

		switch {
		case sh >= uint64(bits) && op == ir.OpAShr && l.Int < 0:
			v = -1
		case sh >= uint64(bits):
			v = 0
		case op == ir.OpShl:
			v = l.Int << sh
		case op == ir.OpAShr:
			v = l.Int >> sh
		default:
			v = int64(l.Uint() >> sh)
		}
	default:
		return Value{}, errors.New("unsupported binary op: %v", op)
	}

	return IntValue(bits, v), nil
}

func compare(p ir.Pred, l, r Value) bool {
	switch p {
	case ir.PredEq:
		return l.Int == r.Int
	case ir.PredNe:
		return l.Int != r.Int
	case ir.PredSLt:
		return l.Int < r.Int
	case ir.PredSLe:
		return l.Int <= r.Int
	case ir.PredSGt:
		return l.Int > r.Int
	case ir.PredSGe:
		return l.Int >= r.Int
	case ir.PredULt:
		return l.Uint() < r.Uint()
	case ir.PredULe:
		return l.Uint() <= r.Uint()
	case ir.PredUGt:
		return l.Uint() > r.Uint()
	case ir.PredUGe:
		return l.Uint() >= r.Uint()
	case ir.PredFOEq:
		return l.Float == r.Float
	case ir.PredFONe:
		return l.Float != r.Float && !math.IsNaN(l.Float) && !math.IsNaN(r.Float)
	case ir.PredFOLt:
		return l.Float < r.Float
	case ir.PredFOLe:
		return l.Float <= r.Float
	case ir.PredFOGt:
		return l.Float > r.Float
	case ir.PredFOGe:
		return l.Float >= r.Float
	default:
		panic(p)
	}
}

func cast(c *ir.Context, op ir.CastOp, v Value, to ir.Type) (Value, error) {
	switch t := c.Type(to).(type) {
	case ir.Int:
		switch op {
		case ir.CastTrunc, ir.CastSExt:
			return IntValue(t.Bits, v.Int), nil
		case ir.CastZExt:
			return IntValue(t.Bits, int64(v.Uint())), nil
		case ir.CastFPToSI:
			return IntValue(t.Bits, int64(v.Float)), nil
		case ir.CastFPToUI:
			return IntValue(t.Bits, int64(uint64(v.Float))), nil
		}
	case ir.Float:
		var f float64

		switch op {
		case ir.CastFPTrunc, ir.CastFPExt:
			f = v.Float
		case ir.CastSIToFP:
			f = float64(v.Int)
		case ir.CastUIToFP:
			f = float64(v.Uint())
		default:
			return Value{}, errors.New("unsupported cast %v to float", op)
		}

		if t.Bits == 32 {
			return Float32Value(float32(f)), nil
		}

		return Float64Value(f), nil
	}

	return Value{}, errors.New("unsupported cast %v to %v", op, c.TypeString(to))
}
