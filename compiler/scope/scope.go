package scope

import (
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/rainlang/rain/compiler/ast"
	"github.com/rainlang/rain/compiler/diag"
	"github.com/rainlang/rain/compiler/ir"
)

type (
	// Scope is a lexical frame chained to its parent.
	// Lookups walk from the innermost frame outward, the first hit wins.
	Scope struct {
		parent *Scope

		Name string

		types   map[string]typeEntry
		irTypes map[any]ir.Type
		// sealed frames keep their irTypes as they are
		sealed bool
		methods map[methodKey][]*Function
		vars    map[string]*Variable

		// Function frames allow return and stop break lookup.
		ReturnAllowed bool
		// Loop frames allow break.
		BreakAllowed bool

		// Result is the declared result type of the function frame.
		Result     ast.Type
		ResultSpan ast.Span

		// BreakTo is the loop exit block of the loop frame.
		BreakTo ir.Expr

		from loc.PC
	}

	typeEntry struct {
		Type ast.Type
		Span ast.Span
	}

	// Variable is a named value.
	// Alloca variables hold the address of a stack slot, others hold the value itself.
	Variable struct {
		Name string
		Type ast.Type

		Value ir.Expr

		Mutable bool
		Alloca  bool

		// Func is set for variables naming a function.
		Func *Function

		Span ast.Span
	}

	// Function is a callable: user function or method, builtin operator or external function.
	Function struct {
		Name     string
		Receiver ast.Type
		Type     *ast.FunctionType

		Decl *ast.Function

		Builtin Builtin

		// Namespace is set for external functions.
		Namespace string
		External  bool

		// IR is the generated function, ir.Nil until declared.
		IR ir.Expr

		Span ast.Span
	}

	methodKey struct {
		recv any
		name string
	}
)

func New(parent *Scope, name string) *Scope {
	s := &Scope{
		parent:  parent,
		Name:    name,
		BreakTo: ir.Nil,
		from:    loc.Caller(1),
	}

	tlog.V("scope").Printw("new scope", "name", name, "parent", parent.name(), "from", loc.Callers(1, 2))

	return s
}

func (s *Scope) Parent() *Scope { return s.parent }

// SetParent relinks the frame, nil detaches it.
func (s *Scope) SetParent(p *Scope) { s.parent = p }

func (s *Scope) name() string {
	if s == nil {
		return ""
	}

	return s.Name
}

// DeclareType binds a named type in this frame.
func (s *Scope) DeclareType(name string, t ast.Type, span ast.Span) error {
	if prev, ok := s.types[name]; ok {
		return diag.New(diag.Resolution, fmt.Sprintf("multiple definition of type %q", name), span, prev.Span)
	}

	if s.types == nil {
		s.types = make(map[string]typeEntry)
	}

	s.types[name] = typeEntry{Type: t, Span: span}

	return nil
}

func (s *Scope) FindNamedType(name string) (ast.Type, bool) {
	for f := s; f != nil; f = f.parent {
		if e, ok := f.types[name]; ok {
			return e.Type, true
		}
	}

	return nil, false
}

// Types lists type names declared in this frame.
func (s *Scope) Types() map[string]ast.Type {
	r := make(map[string]ast.Type, len(s.types))

	for n, e := range s.types {
		r[n] = e.Type
	}

	return r
}

// ResolveType replaces unresolved names with declared types.
// Concrete types are returned as is, composite types are resolved recursively.
func (s *Scope) ResolveType(t ast.Type) (ast.Type, error) {
	switch x := t.(type) {
	case nil:
		return nil, nil
	case *ast.UnresolvedType:
		r, ok := s.FindNamedType(x.Name)
		if !ok {
			return nil, diag.Errorf(diag.Resolution, x.Span, "unknown type: %s", x.Name)
		}

		return r, nil
	case *ast.StructType:
		if x.Name != "" {
			return x, nil
		}

		for i, f := range x.Fields {
			ft, err := s.ResolveType(f.Type)
			if err != nil {
				return nil, err
			}

			x.Fields[i].Type = ft
		}

		return x, nil
	case *ast.FunctionType:
		for i, p := range x.Params {
			pt, err := s.ResolveType(p)
			if err != nil {
				return nil, err
			}

			x.Params[i] = pt
		}

		r, err := s.ResolveType(x.Result)
		if err != nil {
			return nil, err
		}

		x.Result = r

		return x, nil
	case *ast.TupleType:
		for i, e := range x.Elems {
			et, err := s.ResolveType(e)
			if err != nil {
				return nil, err
			}

			x.Elems[i] = et
		}

		return x, nil
	case *ast.OptionalType:
		e, err := s.ResolveType(x.Elem)
		if err != nil {
			return nil, err
		}

		x.Elem = e

		return x, nil
	case *ast.MetaType:
		o, err := s.ResolveType(x.Of)
		if err != nil {
			return nil, err
		}

		x.Of = o

		return x, nil
	default:
		return t, nil
	}
}

// ResolveBody resolves field and method types of a named type declared in place.
func (s *Scope) ResolveBody(t ast.Type) error {
	switch x := t.(type) {
	case *ast.StructType:
		for i, f := range x.Fields {
			ft, err := s.ResolveType(f.Type)
			if err != nil {
				return err
			}

			if ast.SameType(ft, x) {
				return diag.Errorf(diag.Resolution, f.Span, "struct %q contains itself in field %q", x.Name, f.Name)
			}

			x.Fields[i].Type = ft
		}
	case *ast.InterfaceType:
		for _, m := range x.Methods {
			if _, err := s.ResolveType(m.Type); err != nil {
				return err
			}
		}
	}

	return nil
}

// Declare binds the variable in this frame, shadowing any previous binding.
func (s *Scope) Declare(v *Variable) {
	if s.vars == nil {
		s.vars = make(map[string]*Variable)
	}

	tlog.V("scope,vars").Printw("declare", "scope", s.Name, "name", v.Name, "type", v.Type, "value", v.Value, "alloca", v.Alloca, "from", loc.Caller(1))

	s.vars[v.Name] = v
}

// DeclareUnique binds the variable and fails if the name is taken in this frame.
func (s *Scope) DeclareUnique(v *Variable) error {
	if prev, ok := s.vars[v.Name]; ok {
		return diag.New(diag.Resolution, fmt.Sprintf("multiple definition of %q", v.Name), v.Span, prev.Span)
	}

	s.Declare(v)

	return nil
}

func (s *Scope) FindVariable(name string) (*Variable, bool) {
	for f := s; f != nil; f = f.parent {
		if v, ok := f.vars[name]; ok {
			return v, true
		}
	}

	return nil, false
}

// LocalVariable looks the name up in this frame only.
func (s *Scope) LocalVariable(name string) (*Variable, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// Variables lists variables declared in this frame.
func (s *Scope) Variables() map[string]*Variable {
	r := make(map[string]*Variable, len(s.vars))

	for n, v := range s.vars {
		r[n] = v
	}

	return r
}

// RegisterMethod attaches the method to its receiver type in this frame.
func (s *Scope) RegisterMethod(fn *Function) error {
	if fn.Receiver == nil {
		return errors.New("register method %v: no receiver", fn.Name)
	}

	k := methodKey{recv: ast.TypeKey(fn.Receiver), name: fn.Name}

	for _, prev := range s.methods[k] {
		if sameParams(prev.Type.Params, fn.Type.Params) {
			return diag.New(diag.Resolution, fmt.Sprintf("multiple definition of method %q on type %q", fn.Name, fn.Receiver), fn.Span, prev.Span)
		}
	}

	if s.methods == nil {
		s.methods = make(map[methodKey][]*Function)
	}

	s.methods[k] = append(s.methods[k], fn)

	return nil
}

// FindMethod looks for the method registered on the receiver type
// with exactly these argument types.
// Nil is returned if there is none.
func (s *Scope) FindMethod(recv ast.Type, name string, args []ast.Type) (*Function, error) {
	k := methodKey{recv: ast.TypeKey(recv), name: name}

	for f := s; f != nil; f = f.parent {
		var found *Function

		for _, m := range f.methods[k] {
			if !sameParams(m.Type.Params, args) {
				continue
			}

			if found != nil {
				return nil, errors.New("ambiguous method %q on type %q", name, recv)
			}

			found = m
		}

		if found != nil {
			return found, nil
		}
	}

	return nil, nil
}

// HasMethod reports whether any method with the name exists on the receiver.
func (s *Scope) HasMethod(recv ast.Type, name string) bool {
	k := methodKey{recv: ast.TypeKey(recv), name: name}

	for f := s; f != nil; f = f.parent {
		if len(f.methods[k]) != 0 {
			return true
		}
	}

	return false
}

// Methods lists methods registered in this frame.
func (s *Scope) Methods() []*Function {
	var r []*Function

	for _, l := range s.methods {
		r = append(r, l...)
	}

	return r
}

// FunctionFrame returns the nearest frame that allows return.
func (s *Scope) FunctionFrame() *Scope {
	for f := s; f != nil; f = f.parent {
		if f.ReturnAllowed {
			return f
		}
	}

	return nil
}

// LoopFrame returns the nearest loop frame inside the current function.
func (s *Scope) LoopFrame() *Scope {
	for f := s; f != nil; f = f.parent {
		if f.BreakAllowed {
			return f
		}

		if f.ReturnAllowed {
			return nil
		}
	}

	return nil
}

// SealIRTypes fixes the frame's type cache.
// Representations of types declared elsewhere are cached in inner frames then.
func (s *Scope) SealIRTypes() { s.sealed = true }

// IRType returns the cached generated representation of t.
func (s *Scope) IRType(t ast.Type) (ir.Type, bool) {
	k := ast.TypeKey(t)

	for f := s; f != nil; f = f.parent {
		if r, ok := f.irTypes[k]; ok {
			return r, true
		}
	}

	return ir.NoType, false
}

// SetIRType caches the representation of t.
// Named types are cached in the frame declaring them,
// others in the outermost frame which is not sealed.
// Nothing is cached if there is no such frame.
func (s *Scope) SetIRType(t ast.Type, r ir.Type) {
	f := s.cacheFrame(t)
	if f == nil {
		return
	}

	if f.irTypes == nil {
		f.irTypes = make(map[any]ir.Type)
	}

	f.irTypes[ast.TypeKey(t)] = r
}

func (s *Scope) cacheFrame(t ast.Type) *Scope {
	var name string

	switch x := t.(type) {
	case *ast.StructType:
		name = x.Name
	case *ast.InterfaceType:
		name = x.Name
	case *ast.OpaqueType:
		name = x.Name
	}

	var last *Scope

	for f := s; f != nil; f = f.parent {
		if name != "" {
			if e, ok := f.types[name]; ok && e.Type == t {
				if f.sealed {
					return nil
				}

				return f
			}
		}

		if !f.sealed {
			last = f
		}
	}

	return last
}

func (fn *Function) CalleeName() string { return fn.Name }

// MangledName is the symbol name: methods are prefixed with the receiver type.
func (fn *Function) MangledName() string {
	if fn.Receiver == nil {
		return fn.Name
	}

	return fn.Receiver.String() + "." + fn.Name
}

func sameParams(a, b []ast.Type) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if !ast.SameType(a[i], b[i]) {
			return false
		}
	}

	return true
}
