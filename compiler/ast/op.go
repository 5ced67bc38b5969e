package ast

type (
	BinaryOp int
	UnaryOp  int
)

const (
	OpInvalid BinaryOp = iota
	OpAssign
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	binaryOpEnd
)

const (
	UnaryInvalid UnaryOp = iota
	UnaryNeg
	UnaryPos
	UnaryNot

	unaryOpEnd
)

var binaryOps = [...]struct {
	sym    string
	method string
	prec   int
}{
	OpInvalid: {"?", "", 0},
	OpAssign:  {"=", "__assign__", 1},
	OpOr:      {"|", "__or__", 2},
	OpXor:     {"^", "__xor__", 3},
	OpAnd:     {"&", "__and__", 4},
	OpEq:      {"==", "__eq__", 5},
	OpNe:      {"!=", "__ne__", 5},
	OpLt:      {"<", "__lt__", 6},
	OpLe:      {"<=", "__le__", 6},
	OpGt:      {">", "__gt__", 6},
	OpGe:      {">=", "__ge__", 6},
	OpShl:     {"<<", "__shl__", 7},
	OpShr:     {">>", "__shr__", 7},
	OpAdd:     {"+", "__add__", 8},
	OpSub:     {"-", "__sub__", 8},
	OpMul:     {"*", "__mul__", 9},
	OpDiv:     {"/", "__div__", 9},
	OpRem:     {"%", "__rem__", 9},
}

var unaryOps = [...]struct {
	sym    string
	method string
}{
	UnaryInvalid: {"?", ""},
	UnaryNeg:     {"-", "__neg__"},
	UnaryPos:     {"+", "__pos__"},
	UnaryNot:     {"!", "__not__"},
}

// MethodName is the dunder method the operator is resolved to.
func (op BinaryOp) MethodName() string {
	if op <= OpInvalid || op >= binaryOpEnd {
		return ""
	}

	return binaryOps[op].method
}

func (op BinaryOp) String() string {
	if op <= OpInvalid || op >= binaryOpEnd {
		return "?"
	}

	return binaryOps[op].sym
}

// Precedence is higher for tighter binding operators.
func (op BinaryOp) Precedence() int {
	if op <= OpInvalid || op >= binaryOpEnd {
		return 0
	}

	return binaryOps[op].prec
}

// IsComparison reports whether the operator yields bool.
func (op BinaryOp) IsComparison() bool {
	return op >= OpEq && op <= OpGe
}

func (op UnaryOp) MethodName() string {
	if op <= UnaryInvalid || op >= unaryOpEnd {
		return ""
	}

	return unaryOps[op].method
}

func (op UnaryOp) String() string {
	if op <= UnaryInvalid || op >= unaryOpEnd {
		return "?"
	}

	return unaryOps[op].sym
}

// BinaryOpBySymbol returns OpInvalid for unknown symbols.
func BinaryOpBySymbol(sym string) BinaryOp {
	for op := OpAssign; op < binaryOpEnd; op++ {
		if binaryOps[op].sym == sym {
			return op
		}
	}

	return OpInvalid
}
