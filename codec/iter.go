package codec

import (
	"reflect"
	"strconv"

	"github.com/rawbytedev/lanes/errors"
	"github.com/rawbytedev/lanes/fixed"
	"github.com/rawbytedev/lanes/formula"
)

type seqMode uint8

const (
	seqZero  seqMode = iota // count only
	seqFixed                // count rows of stride bytes, then a shared trailing lane
	seqVar                  // count rows of stackLen | heapLen | stack | heap
)

// Iter walks the elements of an encoded sequence without decoding them up
// front. It is finite, knows its exact remaining length and can be reset
// to the first element.
type Iter struct {
	elem    *formula.Formula
	src     *Source
	opts    Options
	mode    seqMode
	count   int
	payload []byte
	base    int
	stride  int
	idx     int
	cur     int
}

// seqIter reads a sequence header from the remaining inline bytes and
// validates the count against the available input.
func (d *Deserializer) seqIter(f *formula.Formula) (*Iter, error) {
	it := &Iter{elem: f.Elem, src: d.src, opts: d.opts}
	if f.Elem.MaxStack.IsZero() {
		u, err := fixed.UsizeFromLE(d.ReadAllBytes())
		if err != nil {
			return nil, err
		}
		if it.count, err = u.Int(); err != nil {
			return nil, err
		}
		it.mode = seqZero
		return it, nil
	}

	switch want, n := 2*fixed.Width, d.Remaining(); {
	case n > want:
		return nil, errors.WrongLength(errors.PhaseDecode, f.Type.String(), want, n)
	case n < want:
		return nil, errors.OutOfBounds(errors.PhaseDecode, want, n)
	}
	count, err := d.ReadUsize()
	if err != nil {
		return nil, err
	}
	off, err := d.ReadUsize()
	if err != nil {
		return nil, err
	}
	if off > len(d.heap) {
		return nil, errors.OutOfBounds(errors.PhaseDecode, off, len(d.heap))
	}
	it.count = count
	it.payload = d.heap[off:]
	it.base = d.heapBase + off

	minRow := 2 * fixed.Width
	it.mode = seqVar
	if f.Elem.Exact {
		it.stride, _ = f.Elem.MaxStack.Get()
		minRow = it.stride
		it.mode = seqFixed
	}
	if count > len(it.payload)/minRow {
		return nil, errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
			GoType(f.Type.String()).
			Value(count).
			Detail("%d elements cannot fit in %d bytes", count, len(it.payload)).
			Build()
	}
	return it, nil
}

// Len returns the number of elements not yet visited.
func (it *Iter) Len() int { return it.count - it.idx }

// Count returns the total number of elements.
func (it *Iter) Count() int { return it.count }

// Elem returns the element formula.
func (it *Iter) Elem() *formula.Formula { return it.elem }

// Reset rewinds to the first element.
func (it *Iter) Reset() { it.idx, it.cur = 0, 0 }

// Clone returns an independent iterator positioned at the first element.
func (it *Iter) Clone() *Iter {
	c := *it
	c.Reset()
	return &c
}

// Next decodes the next element into dst. It returns false once the
// sequence is exhausted.
func (it *Iter) Next(dst reflect.Value) (bool, error) {
	if it.idx >= it.count {
		return false, nil
	}
	dst.SetZero()
	if err := it.next(dst); err != nil {
		return false, err
	}
	return true, nil
}

// Rows returns the packed element rows of a fixed-stride sequence.
func (it *Iter) Rows() ([]byte, bool) {
	if it.mode != seqFixed {
		return nil, false
	}
	return it.rows(), true
}

func (it *Iter) rows() []byte { return it.payload[:it.count*it.stride] }

// next decodes the current element in place and advances.
func (it *Iter) next(dst reflect.Value) error {
	var sub Deserializer
	switch it.mode {
	case seqZero:
		sub = Deserializer{src: it.src, opts: it.opts}
	case seqFixed:
		start, heapStart := it.idx*it.stride, it.count*it.stride
		sub = Deserializer{
			src:       it.src,
			stack:     it.payload[start : start+it.stride],
			stackBase: it.base + start,
			heap:      it.payload[heapStart:],
			heapBase:  it.base + heapStart,
			opts:      it.opts,
		}
	case seqVar:
		hdr := Deserializer{src: it.src, stack: it.payload[it.cur:], opts: it.opts}
		sl, err := hdr.ReadUsize()
		if err != nil {
			return it.wrap(err)
		}
		hl, err := hdr.ReadUsize()
		if err != nil {
			return it.wrap(err)
		}
		start := it.cur + 2*fixed.Width
		if rest := len(it.payload) - start; sl > rest || hl > rest-sl {
			return it.wrap(errors.OutOfBounds(errors.PhaseDecode, sl+hl, rest))
		}
		sub = Deserializer{
			src:       it.src,
			stack:     it.payload[start : start+sl],
			stackBase: it.base + start,
			heap:      it.payload[start+sl : start+sl+hl],
			heapBase:  it.base + start + sl,
			opts:      it.opts,
		}
		it.cur = start + sl + hl
	}
	if err := sub.read(it.elem, dst); err != nil {
		return it.wrap(err)
	}
	it.idx++
	return nil
}

func (it *Iter) wrap(err error) error {
	return errors.WithPath(err, "["+strconv.Itoa(it.idx)+"]")
}
