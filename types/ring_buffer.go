package types

// RingBuffer is a growable FIFO ring. Not safe for concurrent use.
type RingBuffer[T any] struct {
	buf []T

	head int
	tail int
}

func NewRingBuffer[T any](capacity ...int) *RingBuffer[T] {
	c := 16
	if len(capacity) > 0 && capacity[0] > 0 {
		c = capacity[0]
	}

	return &RingBuffer[T]{
		buf: make([]T, c+1),
	}
}

func (b *RingBuffer[T]) Length() int {
	if b.head >= b.tail {
		return b.head - b.tail
	}
	return len(b.buf) + b.head - b.tail
}

func (b *RingBuffer[T]) Push(value T) {
	if size := b.Length(); size == len(b.buf)-1 { // time to grow
		newBuf := make([]T, 2*len(b.buf))
		for idx := 0; idx < size; idx++ {
			v, _ := b.At(idx)
			newBuf[idx] = v
		}
		b.buf = newBuf
		b.tail = 0
		b.head = size
	}

	b.buf[b.head] = value
	b.head++
	if b.head == len(b.buf) {
		b.head = 0
	}
}

func (b *RingBuffer[T]) Pop() (T, bool) {
	if b.head == b.tail {
		var res T
		return res, false
	}

	v := b.buf[b.tail]
	b.tail++
	if b.tail == len(b.buf) {
		b.tail = 0
	}

	return v, true
}

func (b *RingBuffer[T]) At(idx int) (T, bool) {
	if idx < 0 || idx >= b.Length() {
		var res T
		return res, false
	}

	pos := b.tail + idx
	if pos >= len(b.buf) {
		pos -= len(b.buf)
	}

	return b.buf[pos], true
}
