package codec

import (
	"unsafe"

	"go.uber.org/atomic"
	"golang.org/x/exp/constraints"

	"github.com/rawbytedev/lanes/errors"
	"github.com/rawbytedev/lanes/internal/common"
)

// Source is a shared, read-only input buffer that borrowed views point
// into. The caller must not modify the bytes while any view is in use.
type Source struct {
	data     []byte
	refs     atomic.Int32
	released atomic.Bool
}

// NewSource wraps data with one reference held by the caller.
func NewSource(data []byte) *Source {
	s := &Source{data: data}
	s.refs.Store(1)
	return s
}

// Retain adds a reference.
func (s *Source) Retain() *Source {
	s.refs.Inc()
	return s
}

// Release drops a reference. Views fail with a released error once the
// last reference is gone.
func (s *Source) Release() {
	if s.refs.Dec() == 0 {
		s.released.Store(true)
	}
}

// Alive reports whether views may still read the bytes.
func (s *Source) Alive() bool { return !s.released.Load() }

// Len returns the length of the underlying bytes.
func (s *Source) Len() int { return len(s.data) }

// Bytes returns the underlying bytes while the source is alive.
func (s *Source) Bytes() ([]byte, error) {
	if !s.Alive() {
		return nil, errReleased()
	}
	return s.data, nil
}

func errReleased() error {
	return errors.New(errors.PhaseDecode, errors.KindReleased).
		Detail("source buffer was released").
		Build()
}

// Handle is a borrowed byte range of a Source. Decoding a Handle field
// copies nothing; Bytes checks that the source is still alive.
type Handle struct {
	src *Source
	off int
	n   int
}

// HandleOf wraps b in a new Source, for values built in memory.
func HandleOf(b []byte) Handle {
	return Handle{src: NewSource(b), n: len(b)}
}

func (h Handle) Len() int    { return h.n }
func (h Handle) Offset() int { return h.off }

// Source returns the buffer the handle points into.
func (h Handle) Source() *Source { return h.src }

// Bytes returns the borrowed range.
func (h Handle) Bytes() ([]byte, error) {
	if h.src == nil {
		return nil, nil
	}
	data, err := h.src.Bytes()
	if err != nil {
		return nil, err
	}
	return data[h.off : h.off+h.n : h.off+h.n], nil
}

// BlobView marks Handle as a borrowed bytes layout.
func (Handle) BlobView() {}

// BindBlob points the handle at n bytes of src starting at off.
func (h *Handle) BindBlob(src *Source, off, n int) {
	h.src, h.off, h.n = src, off, n
}

// AsSlice reinterprets little-endian rows as a []T without copying. It
// fails on big-endian hosts, on a length that is not a multiple of the
// element size and on misaligned input. int and uint use the host width,
// not the portable wire width.
func AsSlice[T constraints.Integer | constraints.Float](b []byte) ([]T, error) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if !common.LittleEndianHost {
		return nil, errors.Unsupported(errors.PhaseDecode, "", "zero-copy views need a little-endian host")
	}
	if len(b)%size != 0 {
		return nil, errors.WrongLength(errors.PhaseDecode, "", len(b)/size*size, len(b))
	}
	if !common.Aligned(b, size) {
		return nil, errors.New(errors.PhaseDecode, errors.KindMisaligned).
			Detail("rows are not aligned to %d bytes", size).
			Build()
	}
	if len(b) == 0 {
		return []T{}, nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), len(b)/size), nil
}
