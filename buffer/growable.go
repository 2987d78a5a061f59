package buffer

import (
	"slices"

	"github.com/valyala/bytebufferpool"
)

// Growable is an unbounded Buffer backed by pooled byte buffers. Call
// Release when done with the bytes it returned.
type Growable struct {
	stack    *bytebufferpool.ByteBuffer
	heap     *bytebufferpool.ByteBuffer
	sizes    Sizes
	finished bool
}

// NewGrowable takes both lanes from the pool.
func NewGrowable() *Growable {
	return &Growable{
		stack: bytebufferpool.Get(),
		heap:  bytebufferpool.Get(),
	}
}

// Reserve grows both lanes so that s more bytes fit without reallocating.
func (g *Growable) Reserve(s Sizes) {
	g.stack.B = slices.Grow(g.stack.B, s.Stack+s.Heap)
	g.heap.B = slices.Grow(g.heap.B, s.Heap)
}

func (g *Growable) WriteStack(p []byte) error {
	if g.finished {
		return errFinished
	}
	g.stack.B = append(g.stack.B, p...)
	g.sizes.Stack += len(p)
	return nil
}

func (g *Growable) WriteHeap(p []byte) error {
	if g.finished {
		return errFinished
	}
	g.heap.B = append(g.heap.B, p...)
	g.sizes.Heap += len(p)
	return nil
}

func (g *Growable) Sizes() Sizes { return g.sizes }

// Finish appends the trailing lane to the inline lane. It is idempotent.
func (g *Growable) Finish() (Sizes, error) {
	if !g.finished {
		g.stack.B = append(g.stack.B, g.heap.B...)
		g.heap.Reset()
		g.finished = true
	}
	return g.sizes, nil
}

// Stack returns the inline lane. Only valid before Finish.
func (g *Growable) Stack() []byte { return g.stack.B[:g.sizes.Stack] }

// Heap returns the trailing lane. Only valid before Finish.
func (g *Growable) Heap() []byte { return g.heap.B }

// Bytes returns the finished region. It aliases pooled memory and is
// invalid after Release or Reset.
func (g *Growable) Bytes() []byte {
	if !g.finished {
		return nil
	}
	return g.stack.B
}

// AppendTo finishes the buffer and appends the region to dst.
func (g *Growable) AppendTo(dst []byte) []byte {
	_, _ = g.Finish()
	return append(dst, g.stack.B...)
}

// Reset empties both lanes for reuse.
func (g *Growable) Reset() {
	g.stack.Reset()
	g.heap.Reset()
	g.sizes = Sizes{}
	g.finished = false
}

// Release returns both lanes to the pool. The Growable must not be used
// afterwards.
func (g *Growable) Release() {
	if g.stack != nil {
		bytebufferpool.Put(g.stack)
		g.stack = nil
	}
	if g.heap != nil {
		bytebufferpool.Put(g.heap)
		g.heap = nil
	}
}
