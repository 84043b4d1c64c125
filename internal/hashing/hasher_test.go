package hashing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSumIsDeterministic(t *testing.T) {
	h := New(8)
	a := h.Sum([]byte("body{color:red}"))
	b := h.Sum([]byte("body{color:red}"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 8)
}

func TestSumDiffersForDifferentBytes(t *testing.T) {
	h := New(12)
	assert.NotEqual(t, h.Sum([]byte("a")), h.Sum([]byte("b")))
}

func TestLengthClamping(t *testing.T) {
	assert.Len(t, New(2).Sum([]byte("x")), MinLength)
	assert.Len(t, New(100).Sum([]byte("x")), MaxLength)
	assert.Len(t, New(10).Sum([]byte("x")), 10)
}

func TestFullSumIsHexSHA256(t *testing.T) {
	sum := FullSum([]byte("hello"))
	assert.Len(t, sum, 64)
	// Known sha256("hello") prefix.
	assert.Equal(t, "2cf24dba", sum[:8])
}

func TestFragmentIsPrefixOfFullSum(t *testing.T) {
	h := New(16)
	data := []byte("content")
	assert.Equal(t, FullSum(data)[:16], h.Sum(data))
}
