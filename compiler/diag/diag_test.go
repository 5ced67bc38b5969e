package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"

	"github.com/rainlang/rain/compiler/ast"
)

func TestPosition(t *testing.T) {
	s := NewSource("a.rn", []byte("fn a() {\n\tb\n}\n"))

	assert.Equal(t, Position{Line: 1, Col: 1}, s.Position(0))
	assert.Equal(t, Position{Line: 1, Col: 4}, s.Position(3))
	assert.Equal(t, Position{Line: 2, Col: 2}, s.Position(10))
	assert.Equal(t, Position{Line: 3, Col: 1}, s.Position(12))
}

func TestFormatTwoSpans(t *testing.T) {
	text := []byte("let a = 1\nlet a = 2\n")
	s := NewSource("x.rn", text)

	err := New(Resolution, "multiple definition of a", ast.MakeSpan(14, 15), ast.MakeSpan(4, 5))
	wrapped := errors.Wrap(err, "validate")

	res := Format(s, wrapped)

	assert.Contains(t, res, "x.rn:2:5: validate: multiple definition of a")
	assert.Contains(t, res, "x.rn:1:5: note: related location")
	assert.Contains(t, res, "\tlet a = 2\n\t    ^")
}

func TestAsAndKind(t *testing.T) {
	err := errors.Wrap(Internalf(ast.Span{}, "bad %v", "state"), "gen")

	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, Internal, e.Kind)
	assert.False(t, e.User())
	assert.NotZero(t, e.PC)
	assert.Contains(t, e.Error(), "internal compiler error: bad state")

	assert.True(t, IsKind(err, Internal))
	assert.False(t, IsKind(errors.New("plain"), Internal))

	assert.Equal(t, "plain", Format(NewSource("", nil), errors.New("plain")))
}
