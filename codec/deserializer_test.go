package codec

import (
	stderrors "errors"
	"reflect"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/lanes/errors"
	"github.com/rawbytedev/lanes/formula"
)

var decodeKinds = []errors.Kind{
	errors.KindOutOfBounds,
	errors.KindWrongLength,
	errors.KindInvalidUsize,
	errors.KindInvalidIsize,
	errors.KindUnknownDiscriminant,
}

func requireDecodeError(t testing.TB, err error) {
	t.Helper()
	require.Error(t, err)
	var e *errors.Error
	require.True(t, stderrors.As(err, &e), "unexpected error type %T: %v", err, err)
	require.Contains(t, decodeKinds, e.Kind, err.Error())
}

func TestTruncatedInput(t *testing.T) {
	r := newRegistry(t)

	check := func(t *testing.T, data []byte, stack int, f *formula.Formula) {
		for cut := 0; cut < len(data); cut++ {
			dst := reflect.New(f.Type).Elem()
			err := Deserialize(data[:cut], stack, f, dst, Options{})
			requireDecodeError(t, err)
		}
	}

	t.Run("doc", func(t *testing.T) {
		data, sizes, f := encode(t, r, sampleDoc(), Options{})
		check(t, data, sizes.Stack, f)
	})
	t.Run("doc with pointer variant", func(t *testing.T) {
		v := sampleDoc()
		v.Kind = &Label{Pos: 4, Text: "x"}
		data, sizes, f := encode(t, r, v, Options{})
		check(t, data, sizes.Stack, f)
	})
	t.Run("matrix", func(t *testing.T) {
		data, sizes, f := encode(t, r, sampleMatrix(), Options{})
		check(t, data, sizes.Stack, f)
	})
	t.Run("record", func(t *testing.T) {
		data, sizes, f := encode(t, r, Record{ID: 1, Name: []byte("abc"), Score: 2}, Options{})
		check(t, data, sizes.Stack, f)
	})
}

func TestPrimitiveLengthErrors(t *testing.T) {
	r := newRegistry(t)
	f, err := formula.For[uint32](r)
	require.NoError(t, err)

	var v uint32
	err = Deserialize([]byte{1, 2, 3, 4, 5}, 5, f, reflect.ValueOf(&v).Elem(), Options{})
	require.ErrorIs(t, err, errors.ErrWrongLength)
	err = Deserialize([]byte{1, 2, 3}, 3, f, reflect.ValueOf(&v).Elem(), Options{})
	require.ErrorIs(t, err, errors.ErrOutOfBounds)

	fr, err := formula.For[Record](r)
	require.NoError(t, err)
	data, sizes, _ := encode(t, r, Record{ID: 1, Name: []byte("n"), Score: 1}, Options{})
	long := append(append([]byte{}, data[:sizes.Stack]...), 0)
	long = append(long, data[sizes.Stack:]...)
	var rec Record
	err = Deserialize(long, sizes.Stack+1, fr, reflect.ValueOf(&rec).Elem(), Options{})
	require.ErrorIs(t, err, errors.ErrWrongLength)
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, []string{"Score"}, e.Path)
}

func TestEmptyStructLeftover(t *testing.T) {
	r := newRegistry(t)
	f, err := formula.For[Empty](r)
	require.NoError(t, err)

	var v Empty
	require.NoError(t, Deserialize(nil, 0, f, reflect.ValueOf(&v).Elem(), Options{}))
	err = Deserialize([]byte{0}, 1, f, reflect.ValueOf(&v).Elem(), Options{})
	require.ErrorIs(t, err, errors.ErrWrongLength)
}

func TestUnknownDiscriminant(t *testing.T) {
	r := newRegistry(t)
	f, err := formula.For[Shape](r)
	require.NoError(t, err)

	data := append(usize(3), 0, 0, 0, 0)
	var s Shape
	err = Deserialize(data, len(data), f, reflect.ValueOf(&s).Elem(), Options{})
	require.ErrorIs(t, err, errors.ErrUnknownDiscriminant)
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, errors.PhaseDecode, e.Phase)
	require.Nil(t, s)
}

func TestSequenceCountBounded(t *testing.T) {
	r := newRegistry(t)
	f, err := formula.For[[]uint32](r)
	require.NoError(t, err)

	// 100 rows claimed, 8 bytes present
	data := append(usize(100), usize(0)...)
	data = append(data, 1, 0, 0, 0, 2, 0, 0, 0)
	var out []uint32
	err = Deserialize(data, 2*W, f, reflect.ValueOf(&out).Elem(), Options{})
	require.ErrorIs(t, err, errors.ErrOutOfBounds)
}

func TestZeroWidthAllocationLimit(t *testing.T) {
	type Sized struct {
		Marks [0]uint64
		Pad   Empty
	}
	r := newRegistry(t)
	f, err := formula.For[[]*Sized](r)
	require.NoError(t, err)

	data := usize(100)
	var out []*Sized
	err = Deserialize(data, len(data), f, reflect.ValueOf(&out).Elem(), Options{MaxAlloc: 64})
	require.ErrorIs(t, err, errors.ErrOutOfBounds)

	require.NoError(t, Deserialize(data, len(data), f, reflect.ValueOf(&out).Elem(), Options{}))
	require.Len(t, out, 100)
	require.NotNil(t, out[99])
}

func TestDecodeInPlaceMatchesFresh(t *testing.T) {
	r := newRegistry(t)
	v := sampleDoc()
	data, sizes, f := encode(t, r, v, Options{})

	priors := []Doc{
		{},
		sampleDoc(),
		{
			ID:     9,
			Title:  "previous title that is longer",
			Inner:  Inner{Tags: []string{"1", "2", "3", "4", "5"}, Code: 1},
			Points: make([]int32, 10, 32),
			Kind:   &Label{Pos: 1, Text: "old"},
			Body:   make([]byte, 64),
		},
		{Kind: Rect{W: 100, H: 100}, Points: []int32{}},
	}
	fresh := decode[Doc](t, f, data, sizes.Stack, Options{})
	for i, prior := range priors {
		d, err := NewDeserializer(data, sizes.Stack, Options{})
		require.NoError(t, err)
		require.NoError(t, d.DeserializeInPlace(f, reflect.ValueOf(&prior).Elem()))
		require.NoError(t, d.Finish())
		require.Equal(t, fresh, prior, "prior %d", i)
	}
}

func TestDecodeInPlaceReusesStorage(t *testing.T) {
	type Holder struct {
		Vals  []uint32
		Names []string
		Body  []byte
	}
	r := newRegistry(t)
	data, sizes, f := encode(t, r, Holder{
		Vals:  []uint32{1, 2, 3},
		Names: []string{"a"},
		Body:  []byte("xy"),
	}, Options{})

	dst := Holder{
		Vals:  make([]uint32, 1, 8),
		Names: make([]string, 0, 4),
		Body:  make([]byte, 0, 16),
	}
	vals, names, body := unsafe.SliceData(dst.Vals), unsafe.SliceData(dst.Names), unsafe.SliceData(dst.Body)

	d, err := NewDeserializer(data, sizes.Stack, Options{OwnedTarget: true})
	require.NoError(t, err)
	require.NoError(t, d.DeserializeInPlace(f, reflect.ValueOf(&dst).Elem()))
	require.Equal(t, []uint32{1, 2, 3}, dst.Vals)
	require.Equal(t, []string{"a"}, dst.Names)
	require.Equal(t, []byte("xy"), dst.Body)
	require.Same(t, vals, unsafe.SliceData(dst.Vals))
	require.Same(t, names, unsafe.SliceData(dst.Names))
	require.Same(t, body, unsafe.SliceData(dst.Body))

	// Without OwnedTarget byte and numeric storage is replaced.
	vals, names, body = unsafe.SliceData(dst.Vals), unsafe.SliceData(dst.Names), unsafe.SliceData(dst.Body)
	d, err = NewDeserializer(data, sizes.Stack, Options{})
	require.NoError(t, err)
	require.NoError(t, d.DeserializeInPlace(f, reflect.ValueOf(&dst).Elem()))
	require.Equal(t, []uint32{1, 2, 3}, dst.Vals)
	require.Equal(t, []byte("xy"), dst.Body)
	require.NotSame(t, vals, unsafe.SliceData(dst.Vals))
	require.NotSame(t, body, unsafe.SliceData(dst.Body))
	require.Same(t, names, unsafe.SliceData(dst.Names))
}

func TestDecodeInPlaceLeavesBorrowedInputIntact(t *testing.T) {
	type Rows struct {
		Vals []uint16
	}
	type Blob struct {
		Body []byte
	}
	r := newRegistry(t)

	t.Run("rows", func(t *testing.T) {
		first, sizes, f := encode(t, r, Rows{Vals: []uint16{1, 2, 3}}, Options{})
		second, _, _ := encode(t, r, Rows{Vals: []uint16{7, 8, 9}}, Options{})
		opts := Options{UnsafePrimitives: true, OwnedTarget: true}

		a := alignedBytes(len(first))
		copy(a, first)
		var dst Rows
		d, err := NewDeserializer(a, sizes.Stack, opts)
		require.NoError(t, err)
		require.NoError(t, d.Deserialize(f, reflect.ValueOf(&dst).Elem()))
		require.Equal(t, unsafe.Pointer(&a[2*W]), unsafe.Pointer(&dst.Vals[0]))

		b := alignedBytes(len(second) + 1)[1:]
		copy(b, second)
		d, err = NewDeserializer(b, sizes.Stack, opts)
		require.NoError(t, err)
		require.NoError(t, d.DeserializeInPlace(f, reflect.ValueOf(&dst).Elem()))
		require.Equal(t, []uint16{7, 8, 9}, dst.Vals)
		require.Equal(t, first, a)
	})

	t.Run("bytes", func(t *testing.T) {
		first, sizes, f := encode(t, r, Blob{Body: []byte("aaaa")}, Options{})
		second, _, _ := encode(t, r, Blob{Body: []byte("bbbb")}, Options{})
		a := append([]byte(nil), first...)

		var dst Blob
		d, err := NewDeserializer(a, sizes.Stack, Options{BorrowBytes: true})
		require.NoError(t, err)
		require.NoError(t, d.Deserialize(f, reflect.ValueOf(&dst).Elem()))

		d, err = NewDeserializer(second, sizes.Stack, Options{})
		require.NoError(t, err)
		require.NoError(t, d.DeserializeInPlace(f, reflect.ValueOf(&dst).Elem()))
		require.Equal(t, []byte("bbbb"), dst.Body)
		require.Equal(t, first, a)
	})
}

func TestDecodeInPlaceKeepsVariantPointer(t *testing.T) {
	r := newRegistry(t)
	v := sampleDoc()
	v.Kind = &Label{Pos: 5, Text: "new"}
	data, sizes, f := encode(t, r, v, Options{})

	prior := sampleDoc()
	label := &Label{Pos: 1, Text: "old"}
	prior.Kind = label

	d, err := NewDeserializer(data, sizes.Stack, Options{})
	require.NoError(t, err)
	require.NoError(t, d.DeserializeInPlace(f, reflect.ValueOf(&prior).Elem()))
	require.Same(t, label, prior.Kind)
	require.Equal(t, &Label{Pos: 5, Text: "new"}, prior.Kind)

	// A fresh decode never reuses it.
	d, err = NewDeserializer(data, sizes.Stack, Options{})
	require.NoError(t, err)
	require.NoError(t, d.Deserialize(f, reflect.ValueOf(&prior).Elem()))
	require.NotSame(t, label, prior.Kind)
}

func TestDecodedEmptySlicesAreNonNil(t *testing.T) {
	type Holder struct {
		A []uint16
		B []string
		C []Empty
		D []byte
	}
	r := newRegistry(t)
	out := roundTrip(t, r, Holder{}, Options{})
	require.NotNil(t, out.A)
	require.NotNil(t, out.B)
	require.NotNil(t, out.C)
	require.NotNil(t, out.D)
	require.Empty(t, out.A)
}

func TestBorrowedDecode(t *testing.T) {
	r := newRegistry(t)
	v := sampleDoc()
	data, sizes, f := encode(t, r, v, Options{})
	opts := Options{UnsafeStrings: true, BorrowBytes: true}

	out := decode[Doc](t, f, data, sizes.Stack, opts)
	require.Equal(t, v, out)
	require.Equal(t, unsafe.Pointer(&data[sizes.Stack]), unsafe.Pointer(unsafe.StringData(out.Title)))
	last := sizes.Stack - len(v.Body)
	require.Equal(t, unsafe.Pointer(&data[last]), unsafe.Pointer(unsafe.SliceData(out.Body)))
	require.Equal(t, len(out.Body), cap(out.Body), "borrowed bytes must not expose the rest of the input")

	copied := decode[Doc](t, f, data, sizes.Stack, Options{})
	require.NotEqual(t, unsafe.Pointer(&data[sizes.Stack]), unsafe.Pointer(unsafe.StringData(copied.Title)))
}

func alignedBytes(n int) []byte {
	words := make([]uint64, n/8+2)
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), len(words)*8)[:n:n]
}

func TestUnsafePrimitives(t *testing.T) {
	type Holder struct {
		Vals []uint32
	}
	r := newRegistry(t)
	v := Holder{Vals: []uint32{10, 20, 30}}
	data, sizes, f := encode(t, r, v, Options{})
	opts := Options{UnsafePrimitives: true}

	buf := alignedBytes(len(data))
	copy(buf, data)
	out := decode[Holder](t, f, buf, sizes.Stack, opts)
	require.Equal(t, v, out)
	rows := unsafe.Pointer(&buf[2*W])
	if (2*W)%4 == 0 {
		require.Equal(t, rows, unsafe.Pointer(&out.Vals[0]))
	} else {
		require.NotEqual(t, rows, unsafe.Pointer(&out.Vals[0]))
	}

	shifted := alignedBytes(len(data) + 1)[1:]
	copy(shifted, data)
	out = decode[Holder](t, f, shifted, sizes.Stack, opts)
	require.Equal(t, v, out)
	require.NotEqual(t, unsafe.Pointer(&shifted[2*W]), unsafe.Pointer(&out.Vals[0]))

	opts.CheckAlignment = true
	var dst Holder
	err := Deserialize(shifted, sizes.Stack, f, reflect.ValueOf(&dst).Elem(), opts)
	require.ErrorIs(t, err, errors.ErrMisaligned)
}

func FuzzDecodeDoc(f *testing.F) {
	r := newRegistry(f)
	for _, v := range []Doc{sampleDoc(), {Kind: Circle{}, Inner: Inner{Tags: []string{}}, Points: []int32{}, Body: []byte{}}} {
		data, sizes, _ := encode(f, r, v, Options{})
		f.Add(data, sizes.Stack)
	}
	fd, err := formula.For[Doc](r)
	require.NoError(f, err)

	f.Fuzz(func(t *testing.T, data []byte, stack int) {
		var out Doc
		err := Deserialize(data, stack, fd, reflect.ValueOf(&out).Elem(), Options{})
		if err != nil {
			requireDecodeError(t, err)
			return
		}
		again, sizes, err := Serialize(fd, reflect.ValueOf(out), Options{})
		if err != nil {
			return
		}
		var back Doc
		require.NoError(t, Deserialize(again, sizes.Stack, fd, reflect.ValueOf(&back).Elem(), Options{}))
		twice, _, err := Serialize(fd, reflect.ValueOf(back), Options{})
		require.NoError(t, err)
		require.Equal(t, again, twice)
	})
}

func FuzzDecodeMatrix(f *testing.F) {
	r := newRegistry(f)
	data, sizes, fm := encode(f, r, sampleMatrix(), Options{})
	f.Add(data, sizes.Stack)
	f.Fuzz(func(t *testing.T, data []byte, stack int) {
		var out Matrix
		err := Deserialize(data, stack, fm, reflect.ValueOf(&out).Elem(), Options{UnsafePrimitives: true})
		if err != nil {
			requireDecodeError(t, err)
		}
	})
}

func TestDecodeInPlaceKeepsSkippedFields(t *testing.T) {
	type Cached struct {
		ID   uint32
		Memo string `lanes:"-"`
		Name string
	}
	r := newRegistry(t)
	data, sizes, f := encode(t, r, Cached{ID: 3, Memo: "dropped", Name: "n"}, Options{})

	dst := Cached{ID: 9, Memo: "kept", Name: "old"}
	d, err := NewDeserializer(data, sizes.Stack, Options{})
	require.NoError(t, err)
	require.NoError(t, d.DeserializeInPlace(f, reflect.ValueOf(&dst).Elem()))
	require.Equal(t, Cached{ID: 3, Memo: "kept", Name: "n"}, dst)

	d, err = NewDeserializer(data, sizes.Stack, Options{})
	require.NoError(t, err)
	require.NoError(t, d.Deserialize(f, reflect.ValueOf(&dst).Elem()))
	require.Equal(t, Cached{ID: 3, Name: "n"}, dst)
}
