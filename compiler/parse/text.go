package parse

import (
	"bytes"
	"fmt"
	"unicode/utf8"
)

var keywords = map[string]struct{}{
	"as":        {},
	"break":     {},
	"else":      {},
	"export":    {},
	"false":     {},
	"fn":        {},
	"if":        {},
	"interface": {},
	"let":       {},
	"mut":       {},
	"return":    {},
	"struct":    {},
	"true":      {},
	"type":      {},
	"while":     {},
}

func IsKeyword(s string) bool {
	_, ok := keywords[s]
	return ok
}

// word reads an identifier or keyword at st.
func (s *State) word(st int) (w string, i int) {
	b := s.b
	i = st

	if i == len(b) {
		return "", st
	}

	c := b[i]

	switch {
	case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_':
		i++
	case c >= utf8.RuneSelf:
	default:
		return "", st
	}

loop:
	for i < len(b) {
		c := b[i]

		switch {
		case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_':
			i++
		case c >= utf8.RuneSelf:
			r, w := utf8.DecodeRune(b[i:])
			if r == utf8.RuneError {
				break loop
			}

			i += w
		default:
			break loop
		}
	}

	return string(b[st:i]), i
}

// ident reads an identifier which is not a keyword.
func (s *State) ident(st int) (name string, i int, err error) {
	name, i = s.word(st)
	if name == "" || IsKeyword(name) {
		return "", st, s.expected(st, "identifier")
	}

	return name, i, nil
}

// keyword consumes kw if it's the next whole word.
func (s *State) keyword(st int, kw string) (i int, ok bool) {
	w, i := s.word(st)
	if w != kw {
		return st, false
	}

	return i, true
}

func (s *State) peekKeyword(st int, kw string) bool {
	_, ok := s.keyword(st, kw)
	return ok
}

// punct consumes p if the text continues with it.
func (s *State) punct(st int, p string) (i int, ok bool) {
	if bytes.HasPrefix(s.b[st:], []byte(p)) {
		return st + len(p), true
	}

	return st, false
}

func (s *State) peek(st int, p string) bool {
	return bytes.HasPrefix(s.b[st:], []byte(p))
}

// expect skips spaces and consumes p or fails.
func (s *State) expect(st int, p string) (i int, err error) {
	i = s.skip(st)

	i, ok := s.punct(i, p)
	if !ok {
		return i, s.expected(i, fmt.Sprintf("%q", p))
	}

	return i, nil
}
