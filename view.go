package lanes

import (
	"reflect"
	"unsafe"

	"golang.org/x/exp/constraints"

	"github.com/rawbytedev/lanes/codec"
	"github.com/rawbytedev/lanes/errors"
)

// View is a numeric sequence field that decodes to a slice aliasing the
// input, without copying, on little-endian hosts with aligned input.
type View[T constraints.Integer | constraints.Float] struct {
	vals []T
	it   *codec.Iter
}

// ViewOf returns an in-memory view over vals.
func ViewOf[T constraints.Integer | constraints.Float](vals ...T) View[T] {
	return View[T]{vals: vals}
}

// SeqElem reports the element type to the formula compiler.
func (View[T]) SeqElem() reflect.Type { return reflect.TypeFor[T]() }

// SeqLen returns the number of elements.
func (v View[T]) SeqLen() int {
	if v.it != nil {
		return v.it.Count()
	}
	return len(v.vals)
}

// EachSeq visits every element.
func (v View[T]) EachSeq(fn func(reflect.Value) error) error {
	if v.it == nil {
		for i := range v.vals {
			if err := fn(reflect.ValueOf(&v.vals[i]).Elem()); err != nil {
				return err
			}
		}
		return nil
	}
	it := v.it.Clone()
	e := reflect.New(reflect.TypeFor[T]()).Elem()
	for {
		ok, err := it.Next(e)
		if err != nil || !ok {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
}

// BindSeq points v at an encoded sequence.
func (v *View[T]) BindSeq(it *codec.Iter) {
	*v = View[T]{it: it}
}

// Len returns the number of elements.
func (v View[T]) Len() int { return v.SeqLen() }

// Slice returns the elements. For a decoded view the slice aliases the
// input and must not be written to. int and uint elements only alias when
// the portable width matches the host width.
func (v View[T]) Slice() ([]T, error) {
	if v.it == nil {
		return v.vals, nil
	}
	rows, ok := v.it.Rows()
	var zero T
	stride, _ := v.it.Elem().MaxStack.Get()
	if !ok || stride != int(unsafe.Sizeof(zero)) {
		return nil, errors.New(errors.PhaseDecode, errors.KindWrongLength).
			GoType(reflect.TypeFor[T]().String()).
			Detail("rows of %d bytes cannot be viewed as %d-byte elements", stride, unsafe.Sizeof(zero)).
			Build()
	}
	return codec.AsSlice[T](rows)
}
