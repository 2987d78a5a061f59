package codec

import (
	"reflect"
	"unsafe"

	"github.com/rawbytedev/lanes/errors"
	"github.com/rawbytedev/lanes/fixed"
	"github.com/rawbytedev/lanes/formula"
	"github.com/rawbytedev/lanes/internal/common"
)

// BlobTarget is implemented by pointer types that decode as borrowed
// byte views.
type BlobTarget interface {
	BindBlob(src *Source, off, n int)
}

// SeqTarget is implemented by pointer types that decode as lazy sequences.
type SeqTarget interface {
	BindSeq(it *Iter)
}

// Deserializer is a cursor over the inline bytes of one value and the
// trailing lane those bytes refer to. Children created for fields and
// references borrow disjoint sub-slices of the same input.
type Deserializer struct {
	src       *Source
	stack     []byte
	stackBase int
	heap      []byte
	heapBase  int
	pos       int
	opts      Options
}

// NewDeserializer reads a region whose inline lane is the first stackLen
// bytes of data.
func NewDeserializer(data []byte, stackLen int, opts Options) (*Deserializer, error) {
	return NewSourceDeserializer(NewSource(data), stackLen, opts)
}

// NewSourceDeserializer is NewDeserializer over a shared source, so that
// borrowed views can outlive the call and be released explicitly.
func NewSourceDeserializer(src *Source, stackLen int, opts Options) (*Deserializer, error) {
	data, err := src.Bytes()
	if err != nil {
		return nil, err
	}
	if stackLen < 0 || stackLen > len(data) {
		return nil, errors.OutOfBounds(errors.PhaseDecode, stackLen, len(data))
	}
	return &Deserializer{
		src:      src,
		stack:    data[:stackLen],
		heap:     data[stackLen:],
		heapBase: stackLen,
		opts:     opts,
	}, nil
}

// Remaining returns the number of unread inline bytes.
func (d *Deserializer) Remaining() int { return len(d.stack) - d.pos }

// ReadBytes consumes the next n inline bytes.
func (d *Deserializer) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > d.Remaining() {
		return nil, errors.OutOfBounds(errors.PhaseDecode, n, d.Remaining())
	}
	b := d.stack[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// ReadAllBytes consumes every remaining inline byte.
func (d *Deserializer) ReadAllBytes() []byte {
	b := d.stack[d.pos:]
	d.pos = len(d.stack)
	return b
}

// ReadUsize consumes one portable integer and converts it to an int.
func (d *Deserializer) ReadUsize() (int, error) {
	b, err := d.ReadBytes(fixed.Width)
	if err != nil {
		return 0, err
	}
	u, err := fixed.UsizeFromLE(b)
	if err != nil {
		return 0, err
	}
	return u.Int()
}

// ReadReference consumes a length/offset pair and checks that the byte
// range it names lies inside the trailing lane.
func (d *Deserializer) ReadReference() (n, off int, err error) {
	if n, err = d.ReadUsize(); err != nil {
		return 0, 0, err
	}
	if off, err = d.ReadUsize(); err != nil {
		return 0, 0, err
	}
	if off > len(d.heap) || n > len(d.heap)-off {
		return 0, 0, errors.OutOfBounds(errors.PhaseDecode, off+n, len(d.heap))
	}
	return n, off, nil
}

// Deserialize decodes the remaining inline bytes into dst, which must be
// settable. dst is reset first.
func (d *Deserializer) Deserialize(f *formula.Formula, dst reflect.Value) error {
	dst.SetZero()
	return d.read(f, dst)
}

// DeserializeInPlace decodes into dst reusing what it already holds:
// slices with enough capacity, allocated pointers and enum variants of the
// same type. Byte and numeric slices are only written over when
// Options.OwnedTarget allows it, since they may alias an earlier input.
// Fields tagged `lanes:"-"` keep their prior value, where Deserialize
// zeroes them.
func (d *Deserializer) DeserializeInPlace(f *formula.Formula, dst reflect.Value) error {
	return d.read(f, dst)
}

// Finish fails if inline bytes are left unread.
func (d *Deserializer) Finish() error {
	if n := d.Remaining(); n > 0 {
		return errors.WrongLength(errors.PhaseDecode, "", d.pos, len(d.stack))
	}
	return nil
}

// sub returns a child over the next n inline bytes sharing the trailing lane.
func (d *Deserializer) sub(n int) (Deserializer, error) {
	start := d.stackBase + d.pos
	b, err := d.ReadBytes(n)
	if err != nil {
		return Deserializer{}, err
	}
	return Deserializer{
		src:       d.src,
		stack:     b,
		stackBase: start,
		heap:      d.heap,
		heapBase:  d.heapBase,
		opts:      d.opts,
	}, nil
}

// ref returns a child over the region referenced by n and off.
func (d *Deserializer) ref(n, off int) Deserializer {
	return Deserializer{
		src:       d.src,
		stack:     d.heap[off : off+n],
		stackBase: d.heapBase + off,
		heap:      d.heap[off+n:],
		heapBase:  d.heapBase + off + n,
		opts:      d.opts,
	}
}

// read decodes the value occupying every remaining inline byte.
func (d *Deserializer) read(f *formula.Formula, dst reflect.Value) error {
	switch f.Kind {
	case formula.KindPrimitive:
		b, err := d.exact(f)
		if err != nil {
			return err
		}
		common.SetFixed(dst, b)
		return nil
	case formula.KindUsize:
		u, err := fixed.UsizeFromLE(d.ReadAllBytes())
		if err != nil {
			return err
		}
		if dst.OverflowUint(u.Uint64()) {
			return errors.New(errors.PhaseDecode, errors.KindInvalidUsize).
				GoType(dst.Type().String()).
				Value(u.Uint64()).
				Build()
		}
		dst.SetUint(u.Uint64())
		return nil
	case formula.KindIsize:
		i, err := fixed.IsizeFromLE(d.ReadAllBytes())
		if err != nil {
			return err
		}
		if dst.OverflowInt(i.Int64()) {
			return errors.New(errors.PhaseDecode, errors.KindInvalidIsize).
				GoType(dst.Type().String()).
				Value(i.Int64()).
				Build()
		}
		dst.SetInt(i.Int64())
		return nil
	case formula.KindBytes:
		off := d.stackBase + d.pos
		return d.setBytes(f, dst, d.ReadAllBytes(), off)
	case formula.KindStruct:
		return d.readStruct(f, dst)
	case formula.KindEnum:
		return d.readEnum(f, dst)
	case formula.KindSeq:
		return d.readSeq(f, dst)
	case formula.KindArray:
		return d.readArray(f, dst)
	case formula.KindPointer:
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return d.read(f.Elem, dst.Elem())
	default:
		return errors.Unsupported(errors.PhaseDecode, dst.Type().String(), f.Kind.String())
	}
}

// exact consumes the remaining bytes of a value that must be exactly
// f.MaxStack long.
func (d *Deserializer) exact(f *formula.Formula) ([]byte, error) {
	want, _ := f.MaxStack.Get()
	switch n := d.Remaining(); {
	case n > want:
		return nil, errors.WrongLength(errors.PhaseDecode, f.Type.String(), want, n)
	case n < want:
		return nil, errors.OutOfBounds(errors.PhaseDecode, want, n)
	}
	return d.ReadAllBytes(), nil
}

func (d *Deserializer) setBytes(f *formula.Formula, dst reflect.Value, b []byte, off int) error {
	switch f.View {
	case formula.ViewString:
		if d.opts.UnsafeStrings && len(b) > 0 {
			dst.SetString(unsafe.String(&b[0], len(b)))
		} else {
			dst.SetString(string(b))
		}
	case formula.ViewHandle:
		t, ok := dst.Addr().Interface().(BlobTarget)
		if !ok {
			return errors.Unsupported(errors.PhaseDecode, dst.Type().String(), "blob view has no BindBlob method")
		}
		t.BindBlob(d.src, off, len(b))
	default:
		if d.opts.BorrowBytes {
			if b == nil {
				b = []byte{}
			}
			dst.SetBytes(b[:len(b):len(b)])
			return nil
		}
		d.rowSlice(dst, len(b))
		copy(dst.Bytes(), b)
	}
	return nil
}

func (d *Deserializer) readStruct(f *formula.Formula, dst reflect.Value) error {
	if len(f.Fields) == 0 {
		if n := d.Remaining(); n > 0 {
			return errors.WrongLength(errors.PhaseDecode, f.Type.String(), 0, n)
		}
		return nil
	}
	for i, fd := range f.Fields {
		if err := d.readField(fd, i == len(f.Fields)-1, dst.Field(fd.Index)); err != nil {
			return errors.WithPath(err, fd.Name)
		}
	}
	return nil
}

func (d *Deserializer) readField(fd formula.Field, last bool, dst reflect.Value) error {
	if fd.ByRef {
		return d.readRef(fd.Formula, dst)
	}
	if last {
		return d.read(fd.Formula, dst)
	}
	size, _ := fd.Formula.MaxStack.Get()
	sub, err := d.sub(size)
	if err != nil {
		return err
	}
	return sub.read(fd.Formula, dst)
}

func (d *Deserializer) readRef(f *formula.Formula, dst reflect.Value) error {
	n, off, err := d.ReadReference()
	if err != nil {
		return err
	}
	child := d.ref(n, off)
	return child.read(f, dst)
}

func (d *Deserializer) readEnum(f *formula.Formula, dst reflect.Value) error {
	u, err := d.ReadBytes(fixed.Width)
	if err != nil {
		return err
	}
	disc, err := fixed.UsizeFromLE(u)
	if err != nil {
		return err
	}
	if disc.Uint64() >= uint64(len(f.Variants)) {
		return errors.UnknownDiscriminant(f.Type.String(), disc.Uint64(), len(f.Variants))
	}
	variant := f.Variants[disc.Uint64()]

	if !dst.IsNil() && dst.Elem().Type() == variant.Type {
		cur := dst.Elem()
		if cur.Kind() == reflect.Pointer && !cur.IsNil() {
			return errors.WithPath(d.read(variant.Formula.Elem, cur.Elem()), variant.Type.String())
		}
		nv := reflect.New(variant.Type).Elem()
		nv.Set(cur)
		if err := d.read(variant.Formula, nv); err != nil {
			return errors.WithPath(err, variant.Type.String())
		}
		dst.Set(nv)
		return nil
	}

	nv := reflect.New(variant.Type).Elem()
	if err := d.read(variant.Formula, nv); err != nil {
		return errors.WithPath(err, variant.Type.String())
	}
	dst.Set(nv)
	return nil
}

func (d *Deserializer) readArray(f *formula.Formula, dst reflect.Value) error {
	facts := f.ElemFacts()
	size, _ := facts.MaxStack.Get()
	if want, n := f.Len*size, d.Remaining(); n != want {
		if n > want {
			return errors.WrongLength(errors.PhaseDecode, f.Type.String(), want, n)
		}
		return errors.OutOfBounds(errors.PhaseDecode, want, n)
	}
	for i := 0; i < f.Len; i++ {
		sub, err := d.sub(size)
		if err != nil {
			return err
		}
		if f.ElemByRef {
			err = sub.readRef(f.Elem, dst.Index(i))
		} else {
			err = sub.read(f.Elem, dst.Index(i))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Deserializer) readSeq(f *formula.Formula, dst reflect.Value) error {
	it, err := d.seqIter(f)
	if err != nil {
		return err
	}
	if f.View == formula.ViewSeq {
		t, ok := dst.Addr().Interface().(SeqTarget)
		if !ok {
			return errors.Unsupported(errors.PhaseDecode, dst.Type().String(), "sequence view has no BindSeq method")
		}
		t.BindSeq(it)
		return nil
	}

	if it.mode == seqZero {
		return d.readZeroWidth(f, dst, it.count)
	}

	if f.Elem.Kind == formula.KindPrimitive {
		d.rowSlice(dst, it.count)
	} else {
		growSlice(dst, it.count)
	}
	if it.mode == seqFixed && f.Elem.Kind == formula.KindPrimitive && f.Elem.Prim != reflect.Bool && common.LittleEndianHost {
		return d.readPrimitiveRows(f, dst, it)
	}
	for i := 0; i < it.count; i++ {
		if err := it.next(dst.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

// readZeroWidth materializes count elements that occupy no wire bytes.
// Go types with no size cost nothing; others are bounded by MaxAlloc since
// the input cannot bound them.
func (d *Deserializer) readZeroWidth(f *formula.Formula, dst reflect.Value, count int) error {
	size := int(f.Elem.Type.Size())
	if size > 0 && count > d.opts.maxAlloc()/size {
		return errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
			GoType(f.Type.String()).
			Value(count).
			Detail("%d zero-width elements exceed the allocation limit", count).
			Build()
	}
	growSlice(dst, count)
	if size == 0 {
		return nil
	}
	empty := Deserializer{src: d.src, opts: d.opts}
	for i := 0; i < count; i++ {
		ev := dst.Index(i)
		ev.SetZero()
		if err := empty.read(f.Elem, ev); err != nil {
			return err
		}
	}
	return nil
}

// readPrimitiveRows fills a numeric slice from rows in one step, aliasing
// the input when allowed.
func (d *Deserializer) readPrimitiveRows(f *formula.Formula, dst reflect.Value, it *Iter) error {
	rows := it.rows()
	if d.opts.UnsafePrimitives && it.count > 0 {
		if common.Aligned(rows, common.Alignment(f.Elem.Prim)) {
			dst.Set(common.AliasFixed(dst.Type(), rows, it.count))
			return nil
		}
		if d.opts.CheckAlignment {
			return errors.New(errors.PhaseDecode, errors.KindMisaligned).
				GoType(f.Type.String()).
				Detail("rows at offset %d are not aligned to %d bytes", it.base, common.Alignment(f.Elem.Prim)).
				Build()
		}
	}
	common.CopyFixed(dst, rows)
	return nil
}

// rowSlice is growSlice for byte and numeric slices. Their backing array
// may be a view of some input, so it is kept only for owned targets.
func (d *Deserializer) rowSlice(dst reflect.Value, n int) {
	if d.opts.reuseRows() {
		growSlice(dst, n)
		return
	}
	dst.Set(reflect.MakeSlice(dst.Type(), n, n))
}

// growSlice sets dst to length n, keeping its backing array when it is
// large enough.
func growSlice(dst reflect.Value, n int) {
	if !dst.IsNil() && dst.Cap() >= n {
		dst.SetLen(n)
		return
	}
	dst.Set(reflect.MakeSlice(dst.Type(), n, n))
}
