package ir

type (
	Op   int
	Pred int

	CastOp int

	BinOp struct {
		Op   Op
		L, R Expr
	}

	Cmp struct {
		Pred Pred
		L, R Expr
	}

	FNeg struct {
		X Expr
	}

	Cast struct {
		Op CastOp
		X  Expr
	}

	Alloca struct {
		Elem Type
	}

	Load struct {
		Ptr Expr
	}

	Store struct {
		Val Expr
		Ptr Expr
	}

	// FieldPtr is an address of the struct field behind Ptr.
	FieldPtr struct {
		Ptr    Expr
		Struct Type
		Index  int
	}

	Extract struct {
		Agg   Expr
		Index int
	}

	Insert struct {
		Agg   Expr
		Val   Expr
		Index int
	}

	Call struct {
		Func Expr
		Args []Expr
	}

	Br struct {
		To Expr
	}

	CondBr struct {
		Cond Expr
		Then Expr
		Else Expr
	}

	Ret struct {
		Val Expr
	}

	Phi []PhiBranch

	PhiBranch struct {
		B    Expr
		Expr Expr
	}
)

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpSDiv
	OpUDiv
	OpSRem
	OpURem
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpFRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpAShr
	OpLShr
)

const (
	PredEq Pred = iota
	PredNe
	PredSLt
	PredSLe
	PredSGt
	PredSGe
	PredULt
	PredULe
	PredUGt
	PredUGe
	PredFOEq
	PredFONe
	PredFOLt
	PredFOLe
	PredFOGt
	PredFOGe
)

const (
	CastTrunc CastOp = iota
	CastZExt
	CastSExt
	CastFPTrunc
	CastFPExt
	CastFPToSI
	CastFPToUI
	CastSIToFP
	CastUIToFP
)

var opNames = [...]string{
	OpAdd:  "add",
	OpSub:  "sub",
	OpMul:  "mul",
	OpSDiv: "sdiv",
	OpUDiv: "udiv",
	OpSRem: "srem",
	OpURem: "urem",
	OpFAdd: "fadd",
	OpFSub: "fsub",
	OpFMul: "fmul",
	OpFDiv: "fdiv",
	OpFRem: "frem",
	OpAnd:  "and",
	OpOr:   "or",
	OpXor:  "xor",
	OpShl:  "shl",
	OpAShr: "ashr",
	OpLShr: "lshr",
}

var predNames = [...]string{
	PredEq:   "icmp eq",
	PredNe:   "icmp ne",
	PredSLt:  "icmp slt",
	PredSLe:  "icmp sle",
	PredSGt:  "icmp sgt",
	PredSGe:  "icmp sge",
	PredULt:  "icmp ult",
	PredULe:  "icmp ule",
	PredUGt:  "icmp ugt",
	PredUGe:  "icmp uge",
	PredFOEq: "fcmp oeq",
	PredFONe: "fcmp one",
	PredFOLt: "fcmp olt",
	PredFOLe: "fcmp ole",
	PredFOGt: "fcmp ogt",
	PredFOGe: "fcmp oge",
}

var castNames = [...]string{
	CastTrunc:   "trunc",
	CastZExt:    "zext",
	CastSExt:    "sext",
	CastFPTrunc: "fptrunc",
	CastFPExt:   "fpext",
	CastFPToSI:  "fptosi",
	CastFPToUI:  "fptoui",
	CastSIToFP:  "sitofp",
	CastUIToFP:  "uitofp",
}

func (op Op) String() string { return opNames[op] }

func (p Pred) String() string { return predNames[p] }

func (op CastOp) String() string { return castNames[op] }

// IsFloat reports whether the comparison is on floating point values.
func (p Pred) IsFloat() bool { return p >= PredFOEq }

// IsTerminator reports whether x ends a basic block.
func IsTerminator(x any) bool {
	switch x.(type) {
	case Br, CondBr, Ret:
		return true
	}

	return false
}

// Operands lists expressions the instruction reads.
func Operands(x any) []Expr {
	switch x := x.(type) {
	case BinOp:
		return []Expr{x.L, x.R}
	case Cmp:
		return []Expr{x.L, x.R}
	case FNeg:
		return []Expr{x.X}
	case Cast:
		return []Expr{x.X}
	case Load:
		return []Expr{x.Ptr}
	case Store:
		return []Expr{x.Val, x.Ptr}
	case FieldPtr:
		return []Expr{x.Ptr}
	case Extract:
		return []Expr{x.Agg}
	case Insert:
		return []Expr{x.Agg, x.Val}
	case Call:
		return append([]Expr{x.Func}, x.Args...)
	case CondBr:
		return []Expr{x.Cond}
	case Ret:
		if x.Val == Nil {
			return nil
		}

		return []Expr{x.Val}
	case Phi:
		l := make([]Expr, len(x))

		for i, b := range x {
			l[i] = b.Expr
		}

		return l
	case ConstStruct:
		return x.Fields
	default:
		return nil
	}
}
