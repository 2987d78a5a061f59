package codec

import (
	"reflect"

	"github.com/rawbytedev/lanes/buffer"
	"github.com/rawbytedev/lanes/fixed"
	"github.com/rawbytedev/lanes/formula"
)

// SizeHint reports the exact Sizes that serializing v as f produces,
// without writing anything. It returns false when the answer would need a
// full pass, as for lazy sequence views, or when v cannot be serialized.
func SizeHint(f *formula.Formula, v reflect.Value) (buffer.Sizes, bool) {
	if f.Exact && f.Heapless {
		n, _ := f.MaxStack.Get()
		return buffer.Sizes{Stack: n}, true
	}
	switch f.Kind {
	case formula.KindBytes:
		b, err := bytesOf(f, v)
		if err != nil {
			return buffer.Sizes{}, false
		}
		return buffer.Sizes{Stack: len(b)}, true
	case formula.KindStruct:
		var total buffer.Sizes
		for _, fd := range f.Fields {
			h, ok := hintField(fd.Formula, fd.ByRef, v.Field(fd.Index))
			if !ok {
				return buffer.Sizes{}, false
			}
			total = total.Add(h)
		}
		return total, true
	case formula.KindEnum:
		if v.IsNil() {
			return buffer.Sizes{}, false
		}
		d, ok := f.Discriminant(v.Elem().Type())
		if !ok {
			return buffer.Sizes{}, false
		}
		h, ok := SizeHint(f.Variants[d].Formula, v.Elem())
		return buffer.Sizes{Stack: fixed.Width}.Add(h), ok
	case formula.KindSeq:
		return seqHint(f, v)
	case formula.KindArray:
		var total buffer.Sizes
		for i := 0; i < f.Len; i++ {
			h, ok := hintField(f.Elem, f.ElemByRef, v.Index(i))
			if !ok {
				return buffer.Sizes{}, false
			}
			total = total.Add(h)
		}
		return total, true
	case formula.KindPointer:
		if v.IsNil() {
			return buffer.Sizes{}, false
		}
		return SizeHint(f.Elem, v.Elem())
	}
	return buffer.Sizes{}, false
}

func hintField(f *formula.Formula, byRef bool, v reflect.Value) (buffer.Sizes, bool) {
	h, ok := SizeHint(f, v)
	if !ok || !byRef {
		return h, ok
	}
	return buffer.Sizes{Stack: 2 * fixed.Width, Heap: h.Total()}, true
}

func seqHint(f *formula.Formula, v reflect.Value) (buffer.Sizes, bool) {
	if f.Elem.MaxStack.IsZero() {
		return buffer.Sizes{Stack: fixed.Width}, true
	}
	if f.View == formula.ViewSeq {
		return buffer.Sizes{}, false
	}
	out := buffer.Sizes{Stack: 2 * fixed.Width}
	n := v.Len()
	if f.Elem.Exact && f.Elem.Heapless {
		stride, _ := f.Elem.MaxStack.Get()
		out.Heap = n * stride
		return out, true
	}
	for i := 0; i < n; i++ {
		h, ok := SizeHint(f.Elem, v.Index(i))
		if !ok {
			return buffer.Sizes{}, false
		}
		if f.Elem.Exact {
			out.Heap += h.Total()
		} else {
			out.Heap += 2*fixed.Width + h.Total()
		}
	}
	return out, true
}
