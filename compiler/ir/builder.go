package ir

import (
	"fmt"

	"tlog.app/go/loc"
)

type (
	// Cursor is an insertion point: new instructions go to the end of Block.
	Cursor struct {
		Func  Expr
		Block Expr
	}

	Builder struct {
		M *Module

		cur Cursor

		stack []saved
	}

	saved struct {
		Cursor

		from loc.PC
	}
)

var NoCursor = Cursor{Func: Nil, Block: Nil}

func NewBuilder(m *Module) *Builder {
	return &Builder{
		M:   m,
		cur: NoCursor,
	}
}

func (b *Builder) Cursor() Cursor { return b.cur }

func (b *Builder) SetCursor(c Cursor) { b.cur = c }

func (b *Builder) Func() Expr { return b.cur.Func }

func (b *Builder) Block() Expr { return b.cur.Block }

func (b *Builder) SetInsertPoint(blk Expr) {
	b.cur = Cursor{
		Func:  b.M.Block(blk).Func,
		Block: blk,
	}
}

// Save pushes the current insertion point.
// Each Save must be paired with a Restore, usually deferred.
func (b *Builder) Save() {
	b.stack = append(b.stack, saved{Cursor: b.cur, from: loc.Caller(1)})
}

// Restore pops the insertion point pushed by the last Save.
func (b *Builder) Restore() {
	if len(b.stack) == 0 {
		panic("builder: restore without save")
	}

	last := len(b.stack) - 1

	b.cur = b.stack[last].Cursor
	b.stack = b.stack[:last]
}

// Depth is the number of saved insertion points.
func (b *Builder) Depth() int { return len(b.stack) }

// Reset drops all the state and switches to another module.
func (b *Builder) Reset(m *Module) {
	if len(b.stack) != 0 {
		panic(fmt.Sprintf("builder: reset with %d saved cursors, last from %v", len(b.stack), b.stack[len(b.stack)-1].from))
	}

	b.M = m
	b.cur = NoCursor
}

func (b *Builder) NewBlock(label string) Expr {
	return b.M.NewBlock(b.cur.Func, label)
}

// Terminated reports whether the current block already ends with a terminator.
func (b *Builder) Terminated() bool {
	if b.cur.Block == Nil {
		return false
	}

	blk := b.M.Block(b.cur.Block)
	if len(blk.Code) == 0 {
		return false
	}

	return IsTerminator(b.M.Exprs[blk.Code[len(blk.Code)-1]])
}

// Add appends the instruction at the insertion point.
func (b *Builder) Add(x any, t Type) Expr {
	if b.cur.Block == Nil {
		panic(fmt.Sprintf("builder: no insertion point for %T", x))
	}

	id := b.M.Add(x, t)

	blk := b.M.Block(b.cur.Block)
	blk.Code = append(blk.Code, id)

	return id
}

func (b *Builder) BinOp(op Op, l, r Expr) Expr {
	return b.Add(BinOp{Op: op, L: l, R: r}, b.M.TypeOf(l))
}

func (b *Builder) Cmp(p Pred, l, r Expr) Expr {
	return b.Add(Cmp{Pred: p, L: l, R: r}, b.M.Ctx.Int(1))
}

func (b *Builder) FNeg(x Expr) Expr {
	return b.Add(FNeg{X: x}, b.M.TypeOf(x))
}

func (b *Builder) Cast(op CastOp, x Expr, to Type) Expr {
	return b.Add(Cast{Op: op, X: x}, to)
}

// Alloca places a stack slot at the top of the function entry block
// so loops do not grow the stack.
func (b *Builder) Alloca(t Type) Expr {
	fn := b.M.Func(b.cur.Func)
	entry := b.M.Block(fn.Blocks[0])

	id := b.M.Add(Alloca{Elem: t}, b.M.Ctx.Ptr())

	i := 0
	for i < len(entry.Code) {
		if _, ok := b.M.Exprs[entry.Code[i]].(Alloca); !ok {
			break
		}

		i++
	}

	entry.Code = append(entry.Code, Nil)
	copy(entry.Code[i+1:], entry.Code[i:])
	entry.Code[i] = id

	return id
}

func (b *Builder) Load(t Type, ptr Expr) Expr {
	return b.Add(Load{Ptr: ptr}, t)
}

func (b *Builder) Store(val, ptr Expr) Expr {
	return b.Add(Store{Val: val, Ptr: ptr}, b.M.Ctx.Void())
}

func (b *Builder) FieldPtr(st Type, ptr Expr, idx int) Expr {
	return b.Add(FieldPtr{Ptr: ptr, Struct: st, Index: idx}, b.M.Ctx.Ptr())
}

func (b *Builder) Extract(agg Expr, idx int) Expr {
	st := b.M.Ctx.Type(b.M.TypeOf(agg)).(Struct)

	return b.Add(Extract{Agg: agg, Index: idx}, st.Fields[idx])
}

func (b *Builder) Insert(agg, val Expr, idx int) Expr {
	return b.Add(Insert{Agg: agg, Val: val, Index: idx}, b.M.TypeOf(agg))
}

func (b *Builder) Call(f Expr, args ...Expr) Expr {
	ft := b.M.FuncType(f)

	return b.Add(Call{Func: f, Args: args}, ft.Result)
}

func (b *Builder) Br(to Expr) Expr {
	return b.Add(Br{To: to}, b.M.Ctx.Void())
}

func (b *Builder) CondBr(cond, then, els Expr) Expr {
	return b.Add(CondBr{Cond: cond, Then: then, Else: els}, b.M.Ctx.Void())
}

func (b *Builder) Ret(val Expr) Expr {
	return b.Add(Ret{Val: val}, b.M.Ctx.Void())
}

func (b *Builder) RetVoid() Expr { return b.Ret(Nil) }

func (b *Builder) Phi(t Type, branches ...PhiBranch) Expr {
	return b.Add(Phi(branches), t)
}

// AddIncoming appends a branch to the phi.
func (b *Builder) AddIncoming(phi, val, from Expr) {
	p := b.M.Exprs[phi].(Phi)

	b.M.Exprs[phi] = append(p, PhiBranch{B: from, Expr: val})
}
