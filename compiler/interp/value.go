package interp

import (
	"fmt"
	"strconv"
	"strings"

	"tlog.app/go/tlog/tlwire"

	"github.com/rainlang/rain/compiler/ir"
)

type (
	Kind int

	// Value is a run-time value of the interpreter.
	// Integers are kept sign-extended to 64 bits, i1 is 0 or 1.
	Value struct {
		Kind Kind

		Bits  int
		Int   int64
		Float float64

		Agg []Value
		Ptr *Value
	}
)

const (
	KindVoid Kind = iota
	KindInt
	KindFloat
	KindDouble
	KindAggregate
	KindPointer
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindAggregate:
		return "aggregate"
	case KindPointer:
		return "pointer"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func IntValue(bits int, v int64) Value {
	return Value{Kind: KindInt, Bits: bits, Int: ir.NormalizeInt(v, bits)}
}

func BoolValue(v bool) Value {
	if v {
		return IntValue(1, 1)
	}

	return IntValue(1, 0)
}

func Float32Value(v float32) Value { return Value{Kind: KindFloat, Bits: 32, Float: float64(v)} }

func Float64Value(v float64) Value { return Value{Kind: KindDouble, Bits: 64, Float: v} }

func AggregateValue(fields ...Value) Value { return Value{Kind: KindAggregate, Agg: fields} }

// Uint returns the integer as unsigned of its width.
func (v Value) Uint() uint64 {
	if v.Bits >= 64 {
		return uint64(v.Int)
	}

	return uint64(v.Int) & (1<<v.Bits - 1)
}

func (v Value) Bool() bool { return v.Int != 0 }

// Copy makes a deep copy of aggregates, pointers are shared.
func (v Value) Copy() Value {
	if v.Kind != KindAggregate {
		return v
	}

	agg := make([]Value, len(v.Agg))

	for i, f := range v.Agg {
		agg[i] = f.Copy()
	}

	v.Agg = agg

	return v
}

// assign stores v into the cell in place
// so field pointers into the cell stay valid.
func (c *Value) assign(v Value) {
	if c.Kind == KindAggregate && v.Kind == KindAggregate && len(c.Agg) == len(v.Agg) {
		for i := range v.Agg {
			c.Agg[i].assign(v.Agg[i])
		}

		return
	}

	*c = v.Copy()
}

func (v Value) String() string {
	switch v.Kind {
	case KindVoid:
		return "void"
	case KindInt:
		return fmt.Sprintf("i%d %d", v.Bits, v.Int)
	case KindFloat:
		return "float " + strconv.FormatFloat(v.Float, 'g', -1, 32)
	case KindDouble:
		return "double " + strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindAggregate:
		var b strings.Builder

		b.WriteString("{")

		for i, f := range v.Agg {
			if i != 0 {
				b.WriteString(",")
			}

			b.WriteString(" ")
			b.WriteString(f.String())
		}

		b.WriteString(" }")

		return b.String()
	case KindPointer:
		return fmt.Sprintf("ptr %p", v.Ptr)
	default:
		return v.Kind.String()
	}
}

func (v Value) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	return e.AppendString(b, v.String())
}

// Zero returns the zero value of the IR type.
func Zero(c *ir.Context, t ir.Type) Value {
	switch x := c.Type(t).(type) {
	case ir.Int:
		return IntValue(x.Bits, 0)
	case ir.Float:
		if x.Bits == 32 {
			return Float32Value(0)
		}

		return Float64Value(0)
	case ir.Struct:
		agg := make([]Value, len(x.Fields))

		for i, f := range x.Fields {
			agg[i] = Zero(c, f)
		}

		return AggregateValue(agg...)
	case ir.Ptr:
		return Value{Kind: KindPointer}
	case ir.Void:
		return Value{}
	default:
		panic(fmt.Sprintf("zero value of %T", x))
	}
}
