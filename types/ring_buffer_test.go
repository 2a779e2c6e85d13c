package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/darkerego/particle-proxy/types"
)

func TestRingBuffer(t *testing.T) {
	b := types.NewRingBuffer[int](4)

	_, ok := b.Pop()
	assert.False(t, ok)

	for i := 0; i < 3; i++ {
		b.Push(i)
	}
	assert.Equal(t, 3, b.Length())

	v, ok := b.At(0)
	assert.True(t, ok)
	assert.Equal(t, 0, v)

	v, ok = b.At(2)
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = b.At(3)
	assert.False(t, ok)

	v, ok = b.Pop()
	assert.True(t, ok)
	assert.Equal(t, 0, v)
	assert.Equal(t, 2, b.Length())
}

func TestRingBufferWrapsAndGrows(t *testing.T) {
	b := types.NewRingBuffer[int](2)

	// push/pop cycles force the indices to wrap around
	for i := 0; i < 10; i++ {
		b.Push(i)
		v, ok := b.Pop()
		assert.True(t, ok)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 0, b.Length())

	// exceeding the initial capacity grows the buffer in order
	for i := 0; i < 20; i++ {
		b.Push(i)
	}
	assert.Equal(t, 20, b.Length())
	for i := 0; i < 20; i++ {
		v, ok := b.Pop()
		assert.True(t, ok)
		assert.Equal(t, i, v)
	}
}
