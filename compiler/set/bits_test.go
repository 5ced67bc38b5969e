package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBits(t *testing.T) {
	var s Bits[int]

	assert.False(t, s.IsSet(3))
	assert.Equal(t, 0, s.Size())

	assert.True(t, s.Add(3))
	assert.False(t, s.Add(3))

	s.Set(200)
	s.Set(64)

	assert.True(t, s.IsSet(200))
	assert.False(t, s.IsSet(-1))
	assert.Equal(t, []int{3, 64, 200}, s.Keys())

	s.Clear(64)
	assert.Equal(t, []int{3, 200}, s.Keys())

	x := MakeBits(1, 3, 500)
	s.Merge(x)
	assert.Equal(t, []int{1, 3, 200, 500}, s.Keys())

	var first []int

	s.Range(func(k int) bool {
		first = append(first, k)
		return len(first) < 2
	})

	assert.Equal(t, []int{1, 3}, first)

	s.Reset()
	assert.Equal(t, 0, s.Size())
}
