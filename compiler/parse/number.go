package parse

import (
	"strconv"
	"strings"

	"github.com/rainlang/rain/compiler/ast"
)

// number parses integer and float literals.
// Integers may have 0x, 0o and 0b prefixes, digits may be separated by '_'.
func (s *State) number(st int) (x ast.Expr, i int, err error) {
	b := s.b
	i = st

	base := 10

	if i+1 < len(b) && b[i] == '0' {
		switch b[i+1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}

		if base != 10 {
			i += 2
		}
	}

	dst := i
	dot := false
	exp := false

loop:
	for ; i < len(b); i++ {
		c := b[i]

		switch {
		case c >= '0' && c <= '9' || c == '_':
		case base == 16 && (c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'):
		case base == 10 && !dot && !exp && c == '.' && i+1 < len(b) && b[i+1] >= '0' && b[i+1] <= '9':
			dot = true
		case base == 10 && !exp && (c == 'e' || c == 'E'):
			exp = true

			if i+1 < len(b) && (b[i+1] == '+' || b[i+1] == '-') {
				i++
			}
		default:
			break loop
		}
	}

	if i == dst {
		return nil, st, s.expected(st, "number")
	}

	span := ast.MakeSpan(st, i)
	text := strings.ReplaceAll(string(b[dst:i]), "_", "")

	if dot || exp {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, st, s.errorf(st, "bad float literal %q: %v", b[st:i], err)
		}

		return &ast.Float{Base: ast.MakeBase(span), Value: v}, i, nil
	}

	v, err := strconv.ParseUint(text, base, 64)
	if err != nil {
		return nil, st, s.errorf(st, "bad integer literal %q: %v", b[st:i], err)
	}

	return &ast.Integer{Base: ast.MakeBase(span), Value: v}, i, nil
}
