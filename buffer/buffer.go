// Package buffer provides the two-lane sinks serializers write into.
//
// A serialized region is its inline lane followed by its trailing lane.
// Writers append to either lane in any order; the lanes are joined when the
// buffer is finished. Offsets stored in the data are relative to the start
// of the trailing lane, so the buffer may grow or move storage freely.
package buffer

import "github.com/rawbytedev/lanes/errors"

// Sizes counts the bytes committed to each lane.
type Sizes struct {
	Stack int
	Heap  int
}

// Add sums two sizes, as when two writes are sequenced.
func (s Sizes) Add(o Sizes) Sizes {
	return Sizes{Stack: s.Stack + o.Stack, Heap: s.Heap + o.Heap}
}

// Total is the length of the finished region.
func (s Sizes) Total() int { return s.Stack + s.Heap }

// Buffer is an append-only two-lane sink. After any error the contents are
// unspecified and the buffer must be discarded.
type Buffer interface {
	// WriteStack appends to the inline lane.
	WriteStack(p []byte) error
	// WriteHeap appends to the trailing lane.
	WriteHeap(p []byte) error
	// Sizes reports what has been committed so far.
	Sizes() Sizes
	// Finish joins the lanes and returns the final sizes.
	Finish() (Sizes, error)
}

var errFinished = errors.New(errors.PhaseEncode, errors.KindUnsupported).
	Detail("write to finished buffer").
	Build()
