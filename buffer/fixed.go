package buffer

import (
	"github.com/valyala/bytebufferpool"

	"github.com/rawbytedev/lanes/errors"
)

// Fixed is a Buffer over caller-provided memory. Writes that would make the
// region longer than len(dst) fail with a capacity error.
type Fixed struct {
	dst      []byte
	heap     *bytebufferpool.ByteBuffer
	sizes    Sizes
	finished bool
}

// NewFixed writes into dst. The inline lane goes straight into dst; the
// trailing lane is staged in a pooled scratch buffer until Finish.
func NewFixed(dst []byte) *Fixed {
	return &Fixed{dst: dst, heap: bytebufferpool.Get()}
}

func (f *Fixed) check(n int) error {
	if f.finished {
		return errFinished
	}
	if need := f.sizes.Total() + n; need > len(f.dst) {
		return errors.Capacity(need, len(f.dst))
	}
	return nil
}

func (f *Fixed) WriteStack(p []byte) error {
	if err := f.check(len(p)); err != nil {
		return err
	}
	copy(f.dst[f.sizes.Stack:], p)
	f.sizes.Stack += len(p)
	return nil
}

func (f *Fixed) WriteHeap(p []byte) error {
	if err := f.check(len(p)); err != nil {
		return err
	}
	f.heap.B = append(f.heap.B, p...)
	f.sizes.Heap += len(p)
	return nil
}

func (f *Fixed) Sizes() Sizes { return f.sizes }

// Cap returns the capacity of the underlying memory.
func (f *Fixed) Cap() int { return len(f.dst) }

// Finish copies the trailing lane behind the inline lane and returns the
// scratch buffer to the pool.
func (f *Fixed) Finish() (Sizes, error) {
	if f.finished {
		return f.sizes, nil
	}
	copy(f.dst[f.sizes.Stack:], f.heap.B)
	bytebufferpool.Put(f.heap)
	f.heap = nil
	f.finished = true
	return f.sizes, nil
}

// Bytes returns the finished region inside dst.
func (f *Fixed) Bytes() []byte {
	if !f.finished {
		return nil
	}
	return f.dst[:f.sizes.Total()]
}
