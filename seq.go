package lanes

import (
	"reflect"

	"github.com/rawbytedev/lanes/codec"
)

// Seq is a sequence field that decodes lazily. A decoded Seq walks the
// input in place, so the input must outlive it; one built with SeqOf
// holds its elements in memory. Both kinds encode identically to []T.
//
//	for s.Next() {
//		use(s.Value())
//	}
//	if err := s.Err(); err != nil {
//		...
//	}
type Seq[T any] struct {
	vals []T
	it   *codec.Iter
	idx  int
	cur  T
	err  error
}

// SeqOf returns an in-memory sequence.
func SeqOf[T any](vals ...T) Seq[T] {
	return Seq[T]{vals: vals}
}

// SeqElem reports the element type to the formula compiler.
func (Seq[T]) SeqElem() reflect.Type { return reflect.TypeFor[T]() }

// SeqLen returns the total number of elements.
func (s Seq[T]) SeqLen() int {
	if s.it != nil {
		return s.it.Count()
	}
	return len(s.vals)
}

// EachSeq visits every element from the start, independently of the
// position of Next.
func (s Seq[T]) EachSeq(fn func(reflect.Value) error) error {
	if s.it == nil {
		for i := range s.vals {
			if err := fn(reflect.ValueOf(&s.vals[i]).Elem()); err != nil {
				return err
			}
		}
		return nil
	}
	it := s.it.Clone()
	v := reflect.New(reflect.TypeFor[T]()).Elem()
	for {
		ok, err := it.Next(v)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(v); err != nil {
			return err
		}
	}
}

// BindSeq points s at an encoded sequence.
func (s *Seq[T]) BindSeq(it *codec.Iter) {
	*s = Seq[T]{it: it}
}

// Len returns the number of elements Next has yet to produce.
func (s *Seq[T]) Len() int {
	if s.it != nil {
		return s.it.Len()
	}
	return len(s.vals) - s.idx
}

// Next advances to the next element. It returns false when the sequence
// is exhausted or an element fails to decode; Err tells them apart.
func (s *Seq[T]) Next() bool {
	if s.err != nil {
		return false
	}
	if s.it == nil {
		if s.idx >= len(s.vals) {
			return false
		}
		s.cur = s.vals[s.idx]
		s.idx++
		return true
	}
	ok, err := s.it.Next(reflect.ValueOf(&s.cur).Elem())
	if err != nil {
		s.err = err
		return false
	}
	return ok
}

// Value returns the element produced by the last call to Next.
func (s *Seq[T]) Value() T { return s.cur }

// Err returns the first decode error met by Next.
func (s *Seq[T]) Err() error { return s.err }

// Reset rewinds to the first element and clears any error.
func (s *Seq[T]) Reset() {
	var zero T
	s.idx, s.cur, s.err = 0, zero, nil
	if s.it != nil {
		s.it.Reset()
	}
}

// Collect decodes every element into a new slice.
func (s Seq[T]) Collect() ([]T, error) {
	out := make([]T, 0, s.SeqLen())
	err := s.EachSeq(func(v reflect.Value) error {
		e, _ := v.Interface().(T)
		out = append(out, e)
		return nil
	})
	return out, err
}
