package codec

import (
	"reflect"
	"strconv"
	"unsafe"

	"github.com/rawbytedev/lanes/buffer"
	"github.com/rawbytedev/lanes/errors"
	"github.com/rawbytedev/lanes/fixed"
	"github.com/rawbytedev/lanes/formula"
	"github.com/rawbytedev/lanes/internal/common"
)

// SeqSource is implemented by lazy sequence values so they can be written
// back out.
type SeqSource interface {
	SeqLen() int
	EachSeq(fn func(reflect.Value) error) error
}

// BlobSource is implemented by borrowed byte views so they can be written
// back out.
type BlobSource interface {
	Bytes() ([]byte, error)
}

// Serializer writes values into a Buffer following their formulas. It is
// used for one top-level value and then finished.
type Serializer struct {
	buf     buffer.Buffer
	opts    Options
	scratch []byte
}

// NewSerializer returns a serializer writing into buf.
func NewSerializer(buf buffer.Buffer, opts Options) *Serializer {
	return &Serializer{buf: buf, opts: opts, scratch: make([]byte, 0, 2*fixed.Width+8)}
}

// WriteBytes appends raw bytes to the inline lane.
func (s *Serializer) WriteBytes(p []byte) error {
	return s.buf.WriteStack(p)
}

// WriteValue writes v laid out as f.
func (s *Serializer) WriteValue(f *formula.Formula, v reflect.Value) error {
	return s.write(s.buf, f, v)
}

// Finish finalizes the buffer and returns what was written.
func (s *Serializer) Finish() (buffer.Sizes, error) {
	return s.buf.Finish()
}

func (s *Serializer) write(w buffer.Buffer, f *formula.Formula, v reflect.Value) error {
	switch f.Kind {
	case formula.KindPrimitive:
		s.scratch = common.AppendFixed(s.scratch[:0], v)
		return w.WriteStack(s.scratch)
	case formula.KindUsize:
		u, err := fixed.UsizeFromUint64(v.Uint())
		if err != nil {
			return err
		}
		s.scratch = u.AppendLE(s.scratch[:0])
		return w.WriteStack(s.scratch)
	case formula.KindIsize:
		i, err := fixed.NewIsize(v.Int())
		if err != nil {
			return err
		}
		s.scratch = i.AppendLE(s.scratch[:0])
		return w.WriteStack(s.scratch)
	case formula.KindBytes:
		b, err := bytesOf(f, v)
		if err != nil {
			return err
		}
		return w.WriteStack(b)
	case formula.KindStruct:
		return s.writeStruct(w, f, v)
	case formula.KindEnum:
		return s.writeEnum(w, f, v)
	case formula.KindSeq:
		return s.writeSeq(w, f, v)
	case formula.KindArray:
		return s.writeArray(w, f, v)
	case formula.KindPointer:
		if v.IsNil() {
			return errors.NilPointer(errors.PhaseEncode, v.Type().String())
		}
		return s.write(w, f.Elem, v.Elem())
	default:
		return errors.Unsupported(errors.PhaseEncode, v.Type().String(), f.Kind.String())
	}
}

func (s *Serializer) writeStruct(w buffer.Buffer, f *formula.Formula, v reflect.Value) error {
	for _, fd := range f.Fields {
		fv := v.Field(fd.Index)
		var err error
		if fd.ByRef {
			err = s.writeRef(w, fd.Formula, fv)
		} else {
			err = s.write(w, fd.Formula, fv)
		}
		if err != nil {
			return errors.WithPath(err, fd.Name)
		}
	}
	return nil
}

func (s *Serializer) writeEnum(w buffer.Buffer, f *formula.Formula, v reflect.Value) error {
	if v.IsNil() {
		return errors.NilPointer(errors.PhaseEncode, f.Type.String())
	}
	cv := v.Elem()
	d, ok := f.Discriminant(cv.Type())
	if !ok {
		return errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
			GoType(cv.Type().String()).
			Detail("not a registered variant of %s", f.Type).
			Build()
	}
	if err := s.writeUsize(w, d); err != nil {
		return err
	}
	if err := s.write(w, f.Variants[d].Formula, cv); err != nil {
		return errors.WithPath(err, cv.Type().String())
	}
	return nil
}

// writeRef serializes v into its own region, appends that region to the
// trailing lane and writes the length/offset pair inline.
func (s *Serializer) writeRef(w buffer.Buffer, f *formula.Formula, v reflect.Value) error {
	if f.Kind == formula.KindBytes {
		b, err := bytesOf(f, v)
		if err != nil {
			return err
		}
		if err := s.writePair(w, len(b), w.Sizes().Heap); err != nil {
			return err
		}
		return w.WriteHeap(b)
	}

	child := buffer.NewGrowable()
	defer child.Release()
	if err := s.write(child, f, v); err != nil {
		return err
	}
	if err := s.writePair(w, child.Sizes().Stack, w.Sizes().Heap); err != nil {
		return err
	}
	if err := w.WriteHeap(child.Stack()); err != nil {
		return err
	}
	return w.WriteHeap(child.Heap())
}

func (s *Serializer) writeSeq(w buffer.Buffer, f *formula.Formula, v reflect.Value) error {
	count := seqLen(f, v)
	if f.Elem.MaxStack.IsZero() {
		// Zero-width elements carry no bytes; only the count is stored.
		return s.writeUsize(w, count)
	}
	if err := s.writePair(w, count, w.Sizes().Heap); err != nil {
		return err
	}

	if f.Elem.Exact {
		if f.View == formula.ViewNone && f.Elem.Kind == formula.KindPrimitive && common.LittleEndianHost {
			return w.WriteHeap(common.RawBytes(v))
		}
		rows := buffer.NewGrowable()
		defer rows.Release()
		err := eachElem(f, v, func(ev reflect.Value) error {
			return s.write(rows, f.Elem, ev)
		})
		if err != nil {
			return err
		}
		if err := w.WriteHeap(rows.Stack()); err != nil {
			return err
		}
		return w.WriteHeap(rows.Heap())
	}

	row := buffer.NewGrowable()
	defer row.Release()
	return eachElem(f, v, func(ev reflect.Value) error {
		row.Reset()
		if err := s.write(row, f.Elem, ev); err != nil {
			return err
		}
		sz := row.Sizes()
		if err := s.writeUsizeTo(w.WriteHeap, sz.Stack, sz.Heap); err != nil {
			return err
		}
		if err := w.WriteHeap(row.Stack()); err != nil {
			return err
		}
		return w.WriteHeap(row.Heap())
	})
}

func (s *Serializer) writeArray(w buffer.Buffer, f *formula.Formula, v reflect.Value) error {
	for i := 0; i < f.Len; i++ {
		var err error
		if f.ElemByRef {
			err = s.writeRef(w, f.Elem, v.Index(i))
		} else {
			err = s.write(w, f.Elem, v.Index(i))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Serializer) writeUsize(w buffer.Buffer, n int) error {
	return s.writeUsizeTo(w.WriteStack, n)
}

// writePair writes a length (or count) and an offset, in that order.
func (s *Serializer) writePair(w buffer.Buffer, n, off int) error {
	return s.writeUsizeTo(w.WriteStack, n, off)
}

func (s *Serializer) writeUsizeTo(dst func([]byte) error, vals ...int) error {
	s.scratch = s.scratch[:0]
	for _, n := range vals {
		u, err := fixed.NewUsize(n)
		if err != nil {
			return err
		}
		s.scratch = u.AppendLE(s.scratch)
	}
	return dst(s.scratch)
}

func bytesOf(f *formula.Formula, v reflect.Value) ([]byte, error) {
	switch f.View {
	case formula.ViewString:
		str := v.String()
		return unsafe.Slice(unsafe.StringData(str), len(str)), nil
	case formula.ViewHandle:
		src, ok := v.Interface().(BlobSource)
		if !ok {
			return nil, errors.Unsupported(errors.PhaseEncode, v.Type().String(), "blob view has no Bytes method")
		}
		return src.Bytes()
	default:
		return v.Bytes(), nil
	}
}

func seqLen(f *formula.Formula, v reflect.Value) int {
	if f.View == formula.ViewSeq {
		return v.Interface().(SeqSource).SeqLen()
	}
	return v.Len()
}

func eachElem(f *formula.Formula, v reflect.Value, fn func(reflect.Value) error) error {
	if f.View == formula.ViewSeq {
		src, ok := v.Interface().(SeqSource)
		if !ok {
			return errors.Unsupported(errors.PhaseEncode, v.Type().String(), "sequence view has no EachSeq method")
		}
		return src.EachSeq(fn)
	}
	for i := 0; i < v.Len(); i++ {
		if err := fn(v.Index(i)); err != nil {
			return errors.WithPath(err, "["+strconv.Itoa(i)+"]")
		}
	}
	return nil
}
