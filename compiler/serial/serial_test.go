package serial

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainlang/rain/compiler/ast"
	"github.com/rainlang/rain/compiler/format"
	"github.com/rainlang/rain/compiler/ir"
	"github.com/rainlang/rain/compiler/parse"
	"github.com/rainlang/rain/compiler/scope"
)

const src = `
struct Point { x: f64, y: f64 }

type Pair = (i32, ?i64)

fn Point.add(self, o: Point) -> Point {
	Point { x: self.x + o.x, y: self.y + o.y }
}

fn helper(a: i32) -> i32 {
	let mut s = a
	while s < 100 {
		s = s * 2
		if s == 64 { break }
	}
	return s
}

export fn double(x: i32) -> i32 {
	x * 2
}

export fn main() -> f64 {
	let p = Point { x: 1.5, y: -2.0 }
	#(3 + 4) as f64 + p.add(p).x
}
`

func build(t *testing.T) (*ast.Module, []byte) {
	t.Helper()

	m, err := parse.Parse(context.Background(), "lib", []byte(src))
	require.NoError(t, err)

	data, err := Build(m)
	require.NoError(t, err)

	return m, data
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()

	m, data := build(t)

	assert.Equal(t, Magic[:], data[:8])

	l, err := FromMemory(data)
	require.NoError(t, err)
	assert.Equal(t, Version, l.Version)

	back, err := l.Module("lib")
	require.NoError(t, err)

	exp, err := format.Format(ctx, nil, m)
	require.NoError(t, err)

	got, err := format.Format(ctx, nil, back)
	require.NoError(t, err)

	assert.Equal(t, string(exp), string(got))

	again, err := Build(back)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestByteFlip(t *testing.T) {
	_, data := build(t)

	for i := hashedOff; i < len(data); i++ {
		cp := append([]byte{}, data...)
		cp[i] ^= 0x01

		_, err := FromMemory(cp)
		assert.ErrorIs(t, err, ErrIntegrity, "byte %d", i)
	}

	cp := append([]byte{}, data...)
	cp[3] ^= 0xff

	_, err := FromMemory(cp)
	assert.ErrorIs(t, err, ErrMagic)

	_, err = FromMemory(data[:headerSize-1])
	assert.ErrorIs(t, err, ErrTooSmall)
}

func TestBadHeader(t *testing.T) {
	_, data := build(t)

	cp := append([]byte{}, data...)
	cp[hashedOff] = 7
	rehash(cp)

	_, err := FromMemory(cp)
	assert.ErrorIs(t, err, ErrVersion)

	cp = append([]byte{}, data...)
	binary.LittleEndian.PutUint32(cp[headerSize+16:], 1<<20) // strings size
	rehash(cp)

	_, err = FromMemory(cp)
	assert.ErrorIs(t, err, ErrPastEnd)
}

func TestLibraryScope(t *testing.T) {
	ctx := context.Background()

	_, data := build(t)

	l, err := FromMemory(data)
	require.NoError(t, err)

	builtin := scope.NewBuiltin(ir.NewContext())

	s, err := l.Scope(ctx, builtin, "lib")
	require.NoError(t, err)

	assert.Nil(t, s.Parent())

	v, ok := s.FindVariable("double")
	require.True(t, ok)
	require.NotNil(t, v.Func)
	assert.Equal(t, "i32", v.Func.Type.Result.String())

	_, ok = s.FindVariable("main")
	assert.True(t, ok)

	_, ok = s.FindVariable("helper")
	assert.False(t, ok, "not exported")

	_, ok = s.FindNamedType("Point")
	assert.False(t, ok, "not exported")
}

func rehash(b []byte) {
	sum := sha256.Sum256(b[hashedOff:])
	copy(b[len(Magic):], sum[:])
}
