package fixed

import (
	"fmt"

	"github.com/ccoveille/go-safecast"

	"github.com/rawbytedev/lanes/errors"
)

// Usize is a portable unsigned length or offset.
type Usize word

// Isize is a portable signed integer.
type Isize sword

const (
	MaxUsize = Usize(^word(0))
	MaxIsize = Isize(^word(0) >> 1)
	MinIsize = -MaxIsize - 1
)

// NewUsize converts a native length. Negative values and values above
// MaxUsize fail with an overflow error.
func NewUsize(n int) (Usize, error) {
	v, err := safecast.Convert[word](n)
	if err != nil {
		return 0, overflow(n, "fixed.Usize", err)
	}
	return Usize(v), nil
}

// UsizeFromUint64 is NewUsize for unsigned native values.
func UsizeFromUint64(n uint64) (Usize, error) {
	v, err := safecast.Convert[word](n)
	if err != nil {
		return 0, overflow(n, "fixed.Usize", err)
	}
	return Usize(v), nil
}

// NewIsize converts a native signed integer.
func NewIsize(n int64) (Isize, error) {
	v, err := safecast.Convert[sword](n)
	if err != nil {
		return 0, overflow(n, "fixed.Isize", err)
	}
	return Isize(v), nil
}

// UsizeFromLE decodes exactly Width little-endian bytes.
func UsizeFromLE(b []byte) (Usize, error) {
	if err := checkLen(b, "fixed.Usize"); err != nil {
		return 0, err
	}
	return Usize(getWord(b)), nil
}

// IsizeFromLE decodes exactly Width little-endian bytes.
func IsizeFromLE(b []byte) (Isize, error) {
	if err := checkLen(b, "fixed.Isize"); err != nil {
		return 0, err
	}
	return Isize(sword(getWord(b))), nil
}

// Int converts to a native int. It fails when the host int is narrower
// than the wire width and the value does not fit.
func (u Usize) Int() (int, error) {
	n, err := safecast.Convert[int](word(u))
	if err != nil {
		return 0, errors.New(errors.PhaseDecode, errors.KindInvalidUsize).
			GoType("int").
			Value(uint64(u)).
			Cause(err).
			Detail("%d does not fit a native int", uint64(u)).
			Build()
	}
	return n, nil
}

// Uint64 returns the value widened to 64 bits.
func (u Usize) Uint64() uint64 { return uint64(u) }

// PutLE writes the value into the first Width bytes of b.
func (u Usize) PutLE(b []byte) { putWord(b, word(u)) }

// AppendLE appends the Width-byte encoding to dst.
func (u Usize) AppendLE(dst []byte) []byte {
	var scratch [Width]byte
	putWord(scratch[:], word(u))
	return append(dst, scratch[:]...)
}

// Int converts to a native int.
func (i Isize) Int() (int, error) {
	n, err := safecast.Convert[int](sword(i))
	if err != nil {
		return 0, errors.New(errors.PhaseDecode, errors.KindInvalidIsize).
			GoType("int").
			Value(int64(i)).
			Cause(err).
			Detail("%d does not fit a native int", int64(i)).
			Build()
	}
	return n, nil
}

// Int64 returns the value widened to 64 bits.
func (i Isize) Int64() int64 { return int64(i) }

func (i Isize) PutLE(b []byte) { putWord(b, word(i)) }

func (i Isize) AppendLE(dst []byte) []byte {
	var scratch [Width]byte
	putWord(scratch[:], word(i))
	return append(dst, scratch[:]...)
}

func checkLen(b []byte, goType string) error {
	switch {
	case len(b) < Width:
		return errors.OutOfBounds(errors.PhaseDecode, Width, len(b))
	case len(b) > Width:
		return errors.WrongLength(errors.PhaseDecode, goType, Width, len(b))
	}
	return nil
}

func overflow(v any, target string, cause error) error {
	e := errors.Overflow(errors.PhaseEncode, v, fmt.Sprintf("%s (%d bytes)", target, Width))
	e.Cause = cause
	return e
}
