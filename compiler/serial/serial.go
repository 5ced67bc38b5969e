package serial

import (
	"crypto/sha256"
	"encoding/binary"
	"math"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/rainlang/rain/compiler/ast"
)

/*
Library layout, little endian:

	magic     [8]byte  "\x00oranlib"
	sha256    [32]byte of everything starting from version
	version   byte
	reserved  [3]byte
	types       uint32 count
	expressions uint32 count
	variables   uint32 count
	indices     uint32 count
	strings     uint32 size

	types       [types]       {kind, a, b, c uint32}
	expressions [expressions] {kind, a, b, c uint32}
	variables   [variables]   {name, type, flags uint32}
	indices     [indices]     {a, b uint32}
	strings     [strings]     byte

Strings are referenced by an index whose pair is the blob range.
Lists are index ranges [start, end).
Index 0 holds the range of top-level declarations.
*/

type (
	record [4]uint32

	variable [3]uint32

	pair [2]uint32

	builder struct {
		types   []record
		exprs   []record
		vars    []variable
		indices []pair
		strings []byte

		typeIDs map[ast.Type]uint32
		strIDs  map[string]uint32
	}
)

const (
	Version = 0

	hashedOff  = 40
	headerSize = 44
	countsSize = 20

	typeSize = 16
	exprSize = 16
	varSize  = 12
	pairSize = 8

	// None marks an absent reference.
	None = math.MaxUint32
)

const (
	typeOpaque = iota + 1
	typeFunction
	typeStruct
	typeInterface
	typeTuple
	typeOptional
	typeMeta
	typeUnresolved
)

const (
	varMutable = 1 << iota
)

var Magic = [8]byte{0x00, 0x6f, 0x72, 0x61, 0x6e, 0x6c, 0x69, 0x62}

// Build serializes the module declarations.
func Build(m *ast.Module) (_ []byte, err error) {
	b := &builder{
		typeIDs: make(map[ast.Type]uint32),
		strIDs:  make(map[string]uint32),
	}

	b.indices = append(b.indices, pair{})

	decls := make([]uint32, len(m.Decls))

	for i, d := range m.Decls {
		decls[i], err = b.expr(d)
		if err != nil {
			return nil, errors.Wrap(err, "decl %d", i)
		}
	}

	st, end := b.list(decls)
	b.indices[0] = pair{st, end}

	data := b.encode()

	tlog.V("serial").Printw("build library", "module", m.Name, "types", len(b.types), "exprs", len(b.exprs), "vars", len(b.vars), "indices", len(b.indices), "strings", len(b.strings), "size", len(data))

	return data, nil
}

func (b *builder) encode() []byte {
	size := headerSize + countsSize +
		typeSize*len(b.types) + exprSize*len(b.exprs) + varSize*len(b.vars) +
		pairSize*len(b.indices) + len(b.strings)

	w := make([]byte, 0, size)

	w = append(w, Magic[:]...)
	w = append(w, make([]byte, sha256.Size)...)
	w = append(w, Version, 0, 0, 0)

	le := binary.LittleEndian

	for _, n := range []int{len(b.types), len(b.exprs), len(b.vars), len(b.indices), len(b.strings)} {
		w = le.AppendUint32(w, uint32(n))
	}

	for _, tables := range [][]record{b.types, b.exprs} {
		for _, r := range tables {
			for _, v := range r {
				w = le.AppendUint32(w, v)
			}
		}
	}

	for _, r := range b.vars {
		for _, v := range r {
			w = le.AppendUint32(w, v)
		}
	}

	for _, p := range b.indices {
		w = le.AppendUint32(w, p[0])
		w = le.AppendUint32(w, p[1])
	}

	w = append(w, b.strings...)

	sum := sha256.Sum256(w[hashedOff:])
	copy(w[len(Magic):], sum[:])

	return w
}

func (b *builder) str(s string) uint32 {
	if id, ok := b.strIDs[s]; ok {
		return id
	}

	st := uint32(len(b.strings))
	b.strings = append(b.strings, s...)

	id := uint32(len(b.indices))
	b.indices = append(b.indices, pair{st, uint32(len(b.strings))})

	b.strIDs[s] = id

	return id
}

// list appends values as a contiguous index range.
func (b *builder) list(vs []uint32) (st, end uint32) {
	st = uint32(len(b.indices))

	for _, v := range vs {
		b.indices = append(b.indices, pair{v, 0})
	}

	return st, uint32(len(b.indices))
}

func (b *builder) pairs(ps []pair) (st, end uint32) {
	st = uint32(len(b.indices))
	b.indices = append(b.indices, ps...)

	return st, uint32(len(b.indices))
}

func (b *builder) optStr(s string) uint32 {
	if s == "" {
		return None
	}

	return b.str(s)
}

func (b *builder) typ(t ast.Type) (id uint32, err error) {
	if t == nil {
		return None, nil
	}

	if id, ok := b.typeIDs[t]; ok {
		return id, nil
	}

	// reserved before children so named types may refer to themselves
	id = uint32(len(b.types))
	b.types = append(b.types, record{})
	b.typeIDs[t] = id

	var r record

	switch t := t.(type) {
	case *ast.OpaqueType:
		r = record{typeOpaque, b.str(t.Name)}
	case *ast.UnresolvedType:
		r = record{typeUnresolved, b.str(t.Name)}
	case *ast.FunctionType:
		res, err := b.typ(t.Result)
		if err != nil {
			return None, err
		}

		ps, err := b.typeList(t.Params)
		if err != nil {
			return None, err
		}

		st, end := b.list(ps)
		r = record{typeFunction, res, st, end}
	case *ast.StructType:
		fs := make([]pair, len(t.Fields))

		for i, f := range t.Fields {
			ft, err := b.typ(f.Type)
			if err != nil {
				return None, errors.Wrap(err, "field %v", f.Name)
			}

			fs[i] = pair{b.str(f.Name), ft}
		}

		st, end := b.pairs(fs)
		r = record{typeStruct, b.optStr(t.Name), st, end}
	case *ast.InterfaceType:
		ms := make([]pair, len(t.Methods))

		for i, m := range t.Methods {
			mt, err := b.typ(m.Type)
			if err != nil {
				return None, errors.Wrap(err, "method %v", m.Name)
			}

			ms[i] = pair{b.str(m.Name), mt}
		}

		st, end := b.pairs(ms)
		r = record{typeInterface, b.optStr(t.Name), st, end}
	case *ast.TupleType:
		es, err := b.typeList(t.Elems)
		if err != nil {
			return None, err
		}

		st, end := b.list(es)
		r = record{typeTuple, 0, st, end}
	case *ast.OptionalType:
		e, err := b.typ(t.Elem)
		if err != nil {
			return None, err
		}

		r = record{typeOptional, e}
	case *ast.MetaType:
		o, err := b.typ(t.Of)
		if err != nil {
			return None, err
		}

		r = record{typeMeta, o}
	default:
		return None, errors.New("unsupported type: %T", t)
	}

	b.types[id] = r

	return id, nil
}

func (b *builder) typeList(ts []ast.Type) ([]uint32, error) {
	r := make([]uint32, len(ts))

	for i, t := range ts {
		id, err := b.typ(t)
		if err != nil {
			return nil, err
		}

		r[i] = id
	}

	return r, nil
}

func (b *builder) exprList(xs []ast.Expr) ([]uint32, error) {
	r := make([]uint32, len(xs))

	for i, x := range xs {
		id, err := b.expr(x)
		if err != nil {
			return nil, err
		}

		r[i] = id
	}

	return r, nil
}

func (b *builder) variable(name string, t ast.Type, mut bool) (uint32, error) {
	tid, err := b.typ(t)
	if err != nil {
		return None, errors.Wrap(err, "variable %v", name)
	}

	var flags uint32
	if mut {
		flags |= varMutable
	}

	b.vars = append(b.vars, variable{b.str(name), tid, flags})

	return uint32(len(b.vars) - 1), nil
}

// expr appends x after its children, so references always point backwards.
func (b *builder) expr(x ast.Expr) (id uint32, err error) {
	if x == nil {
		return None, nil
	}

	r := record{uint32(x.Kind())}

	switch x := x.(type) {
	case *ast.Bool:
		if x.Value {
			r[1] = 1
		}
	case *ast.Integer:
		r[1], r[2] = uint32(x.Value), uint32(x.Value>>32)
	case *ast.Float:
		v := math.Float64bits(x.Value)
		r[1], r[2] = uint32(v), uint32(v>>32)
	case *ast.Identifier:
		r[1] = b.str(x.Name)
	case *ast.Member:
		o, err := b.expr(x.Owner)
		if err != nil {
			return None, err
		}

		r[1], r[2] = o, b.str(x.Name)
	case *ast.Call:
		c, err := b.expr(x.Callee)
		if err != nil {
			return None, err
		}

		args, err := b.exprList(x.Args)
		if err != nil {
			return None, errors.Wrap(err, "args")
		}

		r[1] = c
		r[2], r[3] = b.list(args)
	case *ast.Ctor:
		t, err := b.typ(x.Target)
		if err != nil {
			return None, err
		}

		fs := make([]pair, len(x.Fields))

		for i, f := range x.Fields {
			v, err := b.expr(f.Value)
			if err != nil {
				return None, errors.Wrap(err, "field %v", f.Name)
			}

			fs[i] = pair{b.str(f.Name), v}
		}

		r[1] = t
		r[2], r[3] = b.pairs(fs)
	case *ast.Binary:
		l, err := b.expr(x.L)
		if err != nil {
			return None, err
		}

		rr, err := b.expr(x.R)
		if err != nil {
			return None, err
		}

		r[1], r[2], r[3] = l, rr, uint32(x.Op)
	case *ast.Unary:
		y, err := b.expr(x.X)
		if err != nil {
			return None, err
		}

		r[1], r[2] = y, uint32(x.Op)
	case *ast.Block:
		ss, err := b.exprList(x.Stmts)
		if err != nil {
			return None, err
		}

		v, err := b.expr(x.Value)
		if err != nil {
			return None, err
		}

		r[1], r[2] = b.list(ss)
		r[3] = v
	case *ast.If:
		c, err := b.expr(x.Cond)
		if err != nil {
			return None, errors.Wrap(err, "cond")
		}

		then, err := b.expr(x.Then)
		if err != nil {
			return None, errors.Wrap(err, "then")
		}

		els := uint32(None)

		if x.Else != nil {
			els, err = b.expr(x.Else)
			if err != nil {
				return None, errors.Wrap(err, "else")
			}
		}

		r[1], r[2], r[3] = c, then, els
	case *ast.While:
		c, err := b.expr(x.Cond)
		if err != nil {
			return None, errors.Wrap(err, "cond")
		}

		body, err := b.expr(x.Body)
		if err != nil {
			return None, errors.Wrap(err, "body")
		}

		r[1], r[2] = c, body
	case *ast.Let:
		init, err := b.expr(x.Init)
		if err != nil {
			return None, errors.Wrap(err, "let %v", x.Name)
		}

		v, err := b.variable(x.Name, x.Decl, x.Mutable)
		if err != nil {
			return None, err
		}

		r[1], r[2] = v, init
	case *ast.Return:
		v, err := b.expr(x.Value)
		if err != nil {
			return None, err
		}

		r[1] = v
	case *ast.Break:
	case *ast.Cast:
		y, err := b.expr(x.X)
		if err != nil {
			return None, err
		}

		t, err := b.typ(x.To)
		if err != nil {
			return None, err
		}

		r[1], r[2] = y, t
	case *ast.Function:
		return b.function(x)
	case *ast.CompileTime:
		y, err := b.expr(x.X)
		if err != nil {
			return None, err
		}

		r[1] = y
	case *ast.Export:
		y, err := b.expr(x.X)
		if err != nil {
			return None, err
		}

		r[1] = y
	case *ast.TypeDecl:
		t, err := b.typ(x.Of)
		if err != nil {
			return None, errors.Wrap(err, "type %v", x.Name)
		}

		r[1], r[2] = b.str(x.Name), t
	default:
		return None, errors.New("unsupported expression: %T", x)
	}

	b.exprs = append(b.exprs, r)

	return uint32(len(b.exprs) - 1), nil
}

// function is {kind, name, header, body}.
// Header is an index range: (receiver, result), (args count, 0), then argument variables.
func (b *builder) function(x *ast.Function) (id uint32, err error) {
	body, err := b.expr(x.Body)
	if err != nil {
		return None, errors.Wrap(err, "fn %v", x.Name)
	}

	recv, err := b.typ(x.Receiver)
	if err != nil {
		return None, err
	}

	res, err := b.typ(x.Result)
	if err != nil {
		return None, err
	}

	hdr := []pair{{recv, res}, {uint32(len(x.Args)), 0}}

	for _, a := range x.Args {
		v, err := b.variable(a.Name, a.Type, false)
		if err != nil {
			return None, err
		}

		hdr = append(hdr, pair{v, 0})
	}

	st, _ := b.pairs(hdr)

	b.exprs = append(b.exprs, record{uint32(ast.KindFunction), b.str(x.Name), st, body})

	return uint32(len(b.exprs) - 1), nil
}
