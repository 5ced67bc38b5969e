package parse

import (
	"github.com/rainlang/rain/compiler/ast"
)

func (s *State) typ(st int) (t ast.Type, i int, err error) {
	i = s.skip(st)

	if j, ok := s.punct(i, "?"); ok {
		e, j, err := s.typ(j)
		if err != nil {
			return nil, st, err
		}

		return &ast.OptionalType{Elem: e}, j, nil
	}

	if j, ok := s.keyword(i, "struct"); ok {
		fs, j, err := s.fields(j)
		if err != nil {
			return nil, st, err
		}

		return &ast.StructType{Fields: fs, Span: ast.MakeSpan(i, j)}, j, nil
	}

	if j, ok := s.keyword(i, "fn"); ok {
		return s.funcType(j)
	}

	if j, ok := s.punct(i, "("); ok {
		var elems []ast.Type

		elems, j, err = s.typeList(j, ")")
		if err != nil {
			return nil, st, err
		}

		if len(elems) == 1 {
			return elems[0], j, nil
		}

		return &ast.TupleType{Elems: elems}, j, nil
	}

	name, j, err := s.ident(i)
	if err != nil {
		return nil, st, s.expected(i, "type")
	}

	return &ast.UnresolvedType{Name: name, Span: ast.MakeSpan(i, j)}, j, nil
}

// typeList parses comma separated types up to the closing token.
func (s *State) typeList(st int, end string) (ts []ast.Type, i int, err error) {
	i = s.skip(st)

	for {
		if j, ok := s.punct(i, end); ok {
			return ts, j, nil
		}

		var t ast.Type

		t, i, err = s.typ(i)
		if err != nil {
			return nil, st, err
		}

		ts = append(ts, t)

		i = s.skip(i)

		if j, ok := s.punct(i, ","); ok {
			i = s.skip(j)
			continue
		}

		if !s.peek(i, end) {
			return nil, st, s.expected(i, "',' or '"+end+"'")
		}
	}
}

func (s *State) funcType(st int) (t ast.Type, i int, err error) {
	i, err = s.expect(st, "(")
	if err != nil {
		return nil, st, err
	}

	params, i, err := s.typeList(i, ")")
	if err != nil {
		return nil, st, err
	}

	ft := &ast.FunctionType{Params: params}

	ft.Result, i, _, err = s.result(i)
	if err != nil {
		return nil, st, err
	}

	return ft, i, nil
}

// result parses an optional "-> type" suffix.
func (s *State) result(st int) (t ast.Type, i int, span ast.Span, err error) {
	i = s.skip(st)

	j, ok := s.punct(i, "->")
	if !ok {
		return nil, st, span, nil
	}

	tst := s.skip(j)

	t, i, err = s.typ(tst)
	if err != nil {
		return nil, st, span, err
	}

	return t, i, ast.MakeSpan(tst, i), nil
}

// fields parses "{ name: type, ... }".
func (s *State) fields(st int) (fs []ast.Field, i int, err error) {
	i, err = s.expect(st, "{")
	if err != nil {
		return nil, st, err
	}

	for {
		i = s.skip(i)

		if j, ok := s.punct(i, "}"); ok {
			return fs, j, nil
		}

		fst := i

		var name string

		name, i, err = s.ident(i)
		if err != nil {
			return nil, st, err
		}

		i, err = s.expect(i, ":")
		if err != nil {
			return nil, st, err
		}

		var t ast.Type

		t, i, err = s.typ(i)
		if err != nil {
			return nil, st, err
		}

		fs = append(fs, ast.Field{Name: name, Type: t, Span: ast.MakeSpan(fst, i)})

		i = s.skip(i)

		if j, ok := s.punct(i, ","); ok {
			i = j
		} else if j, ok := s.punct(i, ";"); ok {
			i = j
		}
	}
}
