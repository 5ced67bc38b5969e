package ast

import (
	"fmt"
	"strings"
)

type (
	// Type is a node of the type graph.
	// Named struct and interface types are compared by pointer,
	// everything else structurally.
	Type interface {
		TypeKind() TypeKind
		String() string

		typ()
	}

	TypeKind int

	OpaqueType struct {
		Name string
	}

	FunctionType struct {
		Params []Type
		Result Type // nil means no value
	}

	Field struct {
		Name string
		Type Type

		Span Span
	}

	StructType struct {
		Name   string // empty for unnamed structs
		Fields []Field

		Span Span
	}

	MethodSig struct {
		Name string
		Type *FunctionType
	}

	InterfaceType struct {
		Name    string
		Methods []MethodSig

		Span Span
	}

	TupleType struct {
		Elems []Type
	}

	OptionalType struct {
		Elem Type
	}

	// MetaType is the type of a type name used as a value,
	// as in constructor targets and static method calls.
	MetaType struct {
		Of Type
	}

	// UnresolvedType is a type name waiting for lookup.
	UnresolvedType struct {
		Name string

		Span Span
	}
)

const (
	TypeInvalid TypeKind = iota
	TypeOpaque
	TypeFunction
	TypeStruct
	TypeInterface
	TypeTuple
	TypeOptional
	TypeMeta
	TypeUnresolved
)

func (*OpaqueType) TypeKind() TypeKind     { return TypeOpaque }
func (*FunctionType) TypeKind() TypeKind   { return TypeFunction }
func (*StructType) TypeKind() TypeKind     { return TypeStruct }
func (*InterfaceType) TypeKind() TypeKind  { return TypeInterface }
func (*TupleType) TypeKind() TypeKind      { return TypeTuple }
func (*OptionalType) TypeKind() TypeKind   { return TypeOptional }
func (*MetaType) TypeKind() TypeKind       { return TypeMeta }
func (*UnresolvedType) TypeKind() TypeKind { return TypeUnresolved }

func (*OpaqueType) typ()     {}
func (*FunctionType) typ()   {}
func (*StructType) typ()     {}
func (*InterfaceType) typ()  {}
func (*TupleType) typ()      {}
func (*OptionalType) typ()   {}
func (*MetaType) typ()       {}
func (*UnresolvedType) typ() {}

func (t *OpaqueType) String() string { return t.Name }

func (t *FunctionType) String() string {
	var b strings.Builder

	b.WriteString("fn(")
	writeTypes(&b, t.Params)
	b.WriteString(")")

	if t.Result != nil {
		fmt.Fprintf(&b, " -> %v", t.Result)
	}

	return b.String()
}

func (t *StructType) String() string {
	if t.Name != "" {
		return t.Name
	}

	var b strings.Builder

	b.WriteString("struct {")

	for i, f := range t.Fields {
		if i != 0 {
			b.WriteString(",")
		}

		fmt.Fprintf(&b, " %s: %v", f.Name, f.Type)
	}

	b.WriteString(" }")

	return b.String()
}

func (t *InterfaceType) String() string { return t.Name }

func (t *TupleType) String() string {
	var b strings.Builder

	b.WriteString("(")
	writeTypes(&b, t.Elems)
	b.WriteString(")")

	return b.String()
}

func (t *OptionalType) String() string { return "?" + t.Elem.String() }

func (t *MetaType) String() string { return "type " + t.Of.String() }

func (t *UnresolvedType) String() string { return t.Name }

// Field returns the index of the named field or -1.
func (t *StructType) Field(name string) int {
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}

	return -1
}

func (t *InterfaceType) Method(name string) int {
	for i, m := range t.Methods {
		if m.Name == name {
			return i
		}
	}

	return -1
}

// SameType reports whether a and b denote the same type.
func SameType(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch a := a.(type) {
	case *OpaqueType:
		b, ok := b.(*OpaqueType)
		return ok && (a == b || a.Name == b.Name)
	case *StructType:
		b, ok := b.(*StructType)
		if !ok {
			return false
		}

		if a == b {
			return true
		}

		if a.Name != "" || b.Name != "" || len(a.Fields) != len(b.Fields) {
			return false
		}

		for i := range a.Fields {
			if a.Fields[i].Name != b.Fields[i].Name || !SameType(a.Fields[i].Type, b.Fields[i].Type) {
				return false
			}
		}

		return true
	case *InterfaceType:
		return a == b
	case *FunctionType:
		b, ok := b.(*FunctionType)
		return ok && sameTypes(a.Params, b.Params) && SameType(a.Result, b.Result)
	case *TupleType:
		b, ok := b.(*TupleType)
		return ok && sameTypes(a.Elems, b.Elems)
	case *OptionalType:
		b, ok := b.(*OptionalType)
		return ok && SameType(a.Elem, b.Elem)
	case *MetaType:
		b, ok := b.(*MetaType)
		return ok && SameType(a.Of, b.Of)
	case *UnresolvedType:
		return false
	default:
		panic(a)
	}
}

func sameTypes(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if !SameType(a[i], b[i]) {
			return false
		}
	}

	return true
}

// TypeKey returns a comparable key unique per distinct type:
// the pointer for named types and the structural shape for the rest.
func TypeKey(t Type) any {
	switch t := t.(type) {
	case *StructType:
		if t.Name != "" {
			return t
		}
	case *InterfaceType:
		return t
	case *OpaqueType:
		return "opaque:" + t.Name
	}

	var b strings.Builder

	writeKey(&b, t)

	return b.String()
}

func writeKey(b *strings.Builder, t Type) {
	switch t := t.(type) {
	case nil:
		b.WriteString("void")
	case *OpaqueType:
		b.WriteString(t.Name)
	case *StructType:
		if t.Name != "" {
			fmt.Fprintf(b, "%s@%p", t.Name, t)
			return
		}

		b.WriteString("struct{")

		for _, f := range t.Fields {
			fmt.Fprintf(b, "%s:", f.Name)
			writeKey(b, f.Type)
			b.WriteString(";")
		}

		b.WriteString("}")
	case *InterfaceType:
		fmt.Fprintf(b, "%s@%p", t.Name, t)
	case *FunctionType:
		b.WriteString("fn(")

		for _, p := range t.Params {
			writeKey(b, p)
			b.WriteString(",")
		}

		b.WriteString(")")
		writeKey(b, t.Result)
	case *TupleType:
		b.WriteString("(")

		for _, e := range t.Elems {
			writeKey(b, e)
			b.WriteString(",")
		}

		b.WriteString(")")
	case *OptionalType:
		b.WriteString("?")
		writeKey(b, t.Elem)
	case *MetaType:
		b.WriteString("type ")
		writeKey(b, t.Of)
	case *UnresolvedType:
		fmt.Fprintf(b, "unresolved %s", t.Name)
	default:
		panic(t)
	}
}

func writeTypes(b *strings.Builder, ts []Type) {
	for i, t := range ts {
		if i != 0 {
			b.WriteString(", ")
		}

		fmt.Fprintf(b, "%v", t)
	}
}

// Void is the type of expressions producing no value.
var Void Type = &OpaqueType{Name: "void"}

// IsVoid reports whether t carries no value.
func IsVoid(t Type) bool {
	if t == nil || t == Void {
		return true
	}

	o, ok := t.(*OpaqueType)

	return ok && o.Name == "void"
}
