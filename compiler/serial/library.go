package serial

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/rainlang/rain/compiler/analyze"
	"github.com/rainlang/rain/compiler/ast"
	"github.com/rainlang/rain/compiler/scope"
)

type (
	// Library is a loaded and verified serialized module.
	Library struct {
		Hash    [sha256.Size]byte
		Version int

		types   []record
		exprs   []record
		vars    []variable
		indices []pair
		strings []byte
	}

	decoder struct {
		*Library

		types map[uint32]ast.Type
		busy  map[uint32]bool
	}
)

var (
	ErrTooSmall  = errors.New("file too small to contain header information")
	ErrMagic     = errors.New("unknown file type: invalid magic number")
	ErrIntegrity = errors.New("file integrity check failed: sha256 mismatch")
	ErrVersion   = errors.New("unknown version number")
	ErrPastEnd   = errors.New("invalid file contents: file references data past the end of the file")
	ErrBadRef    = errors.New("invalid file contents: bad reference")
)

// FromMemory verifies the header and splits data into tables.
// Data is copied.
func FromMemory(data []byte) (*Library, error) {
	if len(data) < headerSize {
		return nil, ErrTooSmall
	}

	if !bytes.Equal(data[:len(Magic)], Magic[:]) {
		return nil, ErrMagic
	}

	sum := sha256.Sum256(data[hashedOff:])
	if !bytes.Equal(sum[:], data[len(Magic):hashedOff]) {
		return nil, ErrIntegrity
	}

	if data[hashedOff] != Version {
		return nil, ErrVersion
	}

	if len(data) < headerSize+countsSize {
		return nil, ErrPastEnd
	}

	le := binary.LittleEndian

	var n [5]uint64

	for i := range n {
		n[i] = uint64(le.Uint32(data[headerSize+4*i:]))
	}

	size := uint64(headerSize+countsSize) +
		typeSize*n[0] + exprSize*n[1] + varSize*n[2] + pairSize*n[3] + n[4]

	if size > uint64(len(data)) {
		return nil, ErrPastEnd
	}

	l := &Library{
		Version: int(data[hashedOff]),
	}

	copy(l.Hash[:], sum[:])

	p := data[headerSize+countsSize:]

	readRecords := func(cnt uint64) []record {
		r := make([]record, cnt)

		for i := range r {
			for j := range r[i] {
				r[i][j] = le.Uint32(p)
				p = p[4:]
			}
		}

		return r
	}

	l.types = readRecords(n[0])
	l.exprs = readRecords(n[1])

	l.vars = make([]variable, n[2])

	for i := range l.vars {
		for j := range l.vars[i] {
			l.vars[i][j] = le.Uint32(p)
			p = p[4:]
		}
	}

	l.indices = make([]pair, n[3])

	for i := range l.indices {
		l.indices[i] = pair{le.Uint32(p), le.Uint32(p[4:])}
		p = p[8:]
	}

	l.strings = append([]byte{}, p[:n[4]]...)

	return l, nil
}

func (l *Library) Counts() (types, exprs, vars, indices, strings int) {
	return len(l.types), len(l.exprs), len(l.vars), len(l.indices), len(l.strings)
}

// Module decodes the declarations back into a tree.
// Spans and resolved types are not preserved.
func (l *Library) Module(name string) (_ *ast.Module, err error) {
	d := &decoder{
		Library: l,
		types:   make(map[uint32]ast.Type),
		busy:    make(map[uint32]bool),
	}

	if len(l.indices) == 0 {
		return nil, ErrBadRef
	}

	root := l.indices[0]

	ids, err := d.list(root[0], root[1])
	if err != nil {
		return nil, errors.Wrap(err, "decls")
	}

	m := &ast.Module{Name: name}

	for _, id := range ids {
		x, err := d.expr(id, None)
		if err != nil {
			return nil, errors.Wrap(err, "decl %d", id)
		}

		m.Decls = append(m.Decls, x)
	}

	return m, nil
}

// Scope validates the library against the builtin frame
// and returns a detached frame with exported types and functions only.
func (l *Library) Scope(ctx context.Context, builtin *scope.Scope, name string) (s *scope.Scope, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "library scope", "name", name)
	defer tr.Finish("err", &err)

	m, err := l.Module(name)
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	_, err = analyze.Module(ctx, builtin, m, analyze.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "analyze")
	}

	s = scope.New(nil, name)

	for _, d := range m.Decls {
		e, ok := d.(*ast.Export)
		if !ok {
			continue
		}

		switch x := ast.Unwrap(e).(type) {
		case *ast.TypeDecl:
			err = s.DeclareType(x.Name, x.Of, x.Span())
		case *ast.Function:
			f, _ := x.Binding.(*scope.Function)
			if f == nil {
				return nil, errors.New("function %v is not bound", x.Name)
			}

			if f.Receiver != nil {
				err = s.RegisterMethod(f)
				break
			}

			err = s.DeclareUnique(&scope.Variable{
				Name:  f.Name,
				Type:  f.Type,
				Value: f.IR,
				Func:  f,
			})
		}

		if err != nil {
			return nil, err
		}
	}

	tr.Printw("exported", "types", len(s.Types()), "vars", len(s.Variables()), "methods", len(s.Methods()))

	return s, nil
}

func (d *decoder) str(id uint32) (string, error) {
	if int64(id) >= int64(len(d.indices)) {
		return "", ErrBadRef
	}

	p := d.indices[id]

	if p[0] > p[1] || int64(p[1]) > int64(len(d.strings)) {
		return "", ErrPastEnd
	}

	return string(d.strings[p[0]:p[1]]), nil
}

func (d *decoder) pairs(st, end uint32) ([]pair, error) {
	if st > end || int64(end) > int64(len(d.indices)) {
		return nil, ErrBadRef
	}

	return d.indices[st:end], nil
}

func (d *decoder) list(st, end uint32) ([]uint32, error) {
	ps, err := d.pairs(st, end)
	if err != nil {
		return nil, err
	}

	r := make([]uint32, len(ps))

	for i, p := range ps {
		r[i] = p[0]
	}

	return r, nil
}

func (d *decoder) typ(id uint32) (t ast.Type, err error) {
	if id == None {
		return nil, nil
	}

	if t, ok := d.types[id]; ok {
		return t, nil
	}

	if int64(id) >= int64(len(d.Library.types)) {
		return nil, ErrBadRef
	}

	if d.busy[id] {
		return nil, errors.New("type %d refers to itself", id)
	}

	d.busy[id] = true
	defer delete(d.busy, id)

	r := d.Library.types[id]

	switch r[0] {
	case typeOpaque, typeUnresolved:
		name, err := d.str(r[1])
		if err != nil {
			return nil, err
		}

		if name == "void" {
			t = ast.Void
			break
		}

		t = &ast.UnresolvedType{Name: name}
	case typeFunction:
		ft := &ast.FunctionType{}

		ft.Result, err = d.typ(r[1])
		if err != nil {
			return nil, err
		}

		ft.Params, err = d.typeList(r[2], r[3])
		if err != nil {
			return nil, err
		}

		t = ft
	case typeStruct:
		st := &ast.StructType{}

		if st.Name, err = d.optStr(r[1]); err != nil {
			return nil, err
		}

		if st.Name != "" {
			d.types[id] = st
		}

		ps, err := d.pairs(r[2], r[3])
		if err != nil {
			return nil, err
		}

		for _, p := range ps {
			var f ast.Field

			if f.Name, err = d.str(p[0]); err != nil {
				return nil, err
			}

			if f.Type, err = d.typ(p[1]); err != nil {
				return nil, err
			}

			st.Fields = append(st.Fields, f)
		}

		t = st
	case typeInterface:
		it := &ast.InterfaceType{}

		if it.Name, err = d.optStr(r[1]); err != nil {
			return nil, err
		}

		if it.Name != "" {
			d.types[id] = it
		}

		ps, err := d.pairs(r[2], r[3])
		if err != nil {
			return nil, err
		}

		for _, p := range ps {
			var m ast.MethodSig

			if m.Name, err = d.str(p[0]); err != nil {
				return nil, err
			}

			mt, err := d.typ(p[1])
			if err != nil {
				return nil, err
			}

			m.Type, _ = mt.(*ast.FunctionType)
			if m.Type == nil {
				return nil, errors.New("method %v: not a function type", m.Name)
			}

			it.Methods = append(it.Methods, m)
		}

		t = it
	case typeTuple:
		es, err := d.typeList(r[2], r[3])
		if err != nil {
			return nil, err
		}

		t = &ast.TupleType{Elems: es}
	case typeOptional:
		e, err := d.typ(r[1])
		if err != nil {
			return nil, err
		}

		t = &ast.OptionalType{Elem: e}
	case typeMeta:
		o, err := d.typ(r[1])
		if err != nil {
			return nil, err
		}

		t = &ast.MetaType{Of: o}
	default:
		return nil, errors.New("unknown type kind: %d", r[0])
	}

	d.types[id] = t

	return t, nil
}

func (d *decoder) optStr(id uint32) (string, error) {
	if id == None {
		return "", nil
	}

	return d.str(id)
}

func (d *decoder) typeList(st, end uint32) ([]ast.Type, error) {
	ids, err := d.list(st, end)
	if err != nil {
		return nil, err
	}

	r := make([]ast.Type, len(ids))

	for i, id := range ids {
		if r[i], err = d.typ(id); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (d *decoder) block(id, parent uint32) (*ast.Block, error) {
	x, err := d.expr(id, parent)
	if err != nil {
		return nil, err
	}

	b, ok := x.(*ast.Block)
	if !ok {
		return nil, errors.New("expected block, got %v", x.Kind())
	}

	return b, nil
}

func (d *decoder) exprList(st, end, parent uint32) ([]ast.Expr, error) {
	ids, err := d.list(st, end)
	if err != nil {
		return nil, err
	}

	r := make([]ast.Expr, len(ids))

	for i, id := range ids {
		if r[i], err = d.expr(id, parent); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (d *decoder) variable(id uint32) (name string, t ast.Type, mut bool, err error) {
	if int64(id) >= int64(len(d.vars)) {
		return "", nil, false, ErrBadRef
	}

	v := d.vars[id]

	if name, err = d.str(v[0]); err != nil {
		return "", nil, false, err
	}

	if t, err = d.typ(v[1]); err != nil {
		return "", nil, false, err
	}

	return name, t, v[2]&varMutable != 0, nil
}

// expr decodes expression id, which must precede its parent.
func (d *decoder) expr(id, parent uint32) (x ast.Expr, err error) {
	if id == None {
		return nil, nil
	}

	if int64(id) >= int64(len(d.exprs)) || parent != None && id >= parent {
		return nil, ErrBadRef
	}

	r := d.exprs[id]

	switch ast.Kind(r[0]) {
	case ast.KindBool:
		x = &ast.Bool{Value: r[1] != 0}
	case ast.KindInteger:
		x = &ast.Integer{Value: uint64(r[1]) | uint64(r[2])<<32}
	case ast.KindFloat:
		x = &ast.Float{Value: math.Float64frombits(uint64(r[1]) | uint64(r[2])<<32)}
	case ast.KindIdentifier:
		n := &ast.Identifier{}
		n.Name, err = d.str(r[1])
		x = n
	case ast.KindMember:
		n := &ast.Member{Index: -1}

		if n.Owner, err = d.expr(r[1], id); err != nil {
			return nil, err
		}

		n.Name, err = d.str(r[2])
		x = n
	case ast.KindCall:
		n := &ast.Call{}

		if n.Callee, err = d.expr(r[1], id); err != nil {
			return nil, err
		}

		n.Args, err = d.exprList(r[2], r[3], id)
		x = n
	case ast.KindCtor:
		n := &ast.Ctor{}

		if n.Target, err = d.typ(r[1]); err != nil {
			return nil, err
		}

		ps, err := d.pairs(r[2], r[3])
		if err != nil {
			return nil, err
		}

		for _, p := range ps {
			f := ast.FieldInit{Index: -1}

			if f.Name, err = d.str(p[0]); err != nil {
				return nil, err
			}

			if f.Value, err = d.expr(p[1], id); err != nil {
				return nil, err
			}

			n.Fields = append(n.Fields, f)
		}

		x = n
	case ast.KindBinary:
		n := &ast.Binary{Op: ast.BinaryOp(r[3])}

		if n.L, err = d.expr(r[1], id); err != nil {
			return nil, err
		}

		n.R, err = d.expr(r[2], id)
		x = n
	case ast.KindUnary:
		n := &ast.Unary{Op: ast.UnaryOp(r[2])}
		n.X, err = d.expr(r[1], id)
		x = n
	case ast.KindBlock:
		n := &ast.Block{}

		if n.Stmts, err = d.exprList(r[1], r[2], id); err != nil {
			return nil, err
		}

		n.Value, err = d.expr(r[3], id)
		x = n
	case ast.KindIf:
		n := &ast.If{}

		if n.Cond, err = d.expr(r[1], id); err != nil {
			return nil, err
		}

		if n.Then, err = d.block(r[2], id); err != nil {
			return nil, err
		}

		if r[3] != None {
			n.Else, err = d.block(r[3], id)
		}

		x = n
	case ast.KindWhile:
		n := &ast.While{}

		if n.Cond, err = d.expr(r[1], id); err != nil {
			return nil, err
		}

		n.Body, err = d.block(r[2], id)
		x = n
	case ast.KindLet:
		n := &ast.Let{}

		if n.Name, n.Decl, n.Mutable, err = d.variable(r[1]); err != nil {
			return nil, err
		}

		n.Init, err = d.expr(r[2], id)
		x = n
	case ast.KindReturn:
		n := &ast.Return{}
		n.Value, err = d.expr(r[1], id)
		x = n
	case ast.KindBreak:
		x = &ast.Break{}
	case ast.KindCast:
		n := &ast.Cast{}

		if n.X, err = d.expr(r[1], id); err != nil {
			return nil, err
		}

		n.To, err = d.typ(r[2])
		x = n
	case ast.KindFunction:
		x, err = d.function(id, r)
	case ast.KindCompileTime:
		n := &ast.CompileTime{}
		n.X, err = d.expr(r[1], id)
		x = n
	case ast.KindExport:
		n := &ast.Export{}
		n.X, err = d.expr(r[1], id)
		x = n
	case ast.KindTypeDecl:
		n := &ast.TypeDecl{}

		if n.Name, err = d.str(r[1]); err != nil {
			return nil, err
		}

		n.Of, err = d.typ(r[2])
		x = n
	default:
		return nil, errors.New("unknown expression kind: %d", r[0])
	}

	if err != nil {
		return nil, err
	}

	return x, nil
}

func (d *decoder) function(id uint32, r record) (_ ast.Expr, err error) {
	fn := &ast.Function{}

	if fn.Name, err = d.str(r[1]); err != nil {
		return nil, err
	}

	hdr, err := d.pairs(r[2], r[2]+2)
	if err != nil {
		return nil, err
	}

	if fn.Receiver, err = d.typ(hdr[0][0]); err != nil {
		return nil, err
	}

	if fn.Result, err = d.typ(hdr[0][1]); err != nil {
		return nil, err
	}

	args, err := d.list(r[2]+2, r[2]+2+hdr[1][0])
	if err != nil {
		return nil, err
	}

	for _, v := range args {
		var a ast.Arg

		if a.Name, a.Type, _, err = d.variable(v); err != nil {
			return nil, err
		}

		fn.Args = append(fn.Args, a)
	}

	if fn.Body, err = d.block(r[3], id); err != nil {
		return nil, errors.Wrap(err, "fn %v", fn.Name)
	}

	return fn, nil
}
