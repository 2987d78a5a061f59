package codec

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/lanes/buffer"
	"github.com/rawbytedev/lanes/fixed"
	"github.com/rawbytedev/lanes/formula"
)

const W = fixed.Width

type Record struct {
	ID    uint32
	Name  []byte
	Score float64
}

type Shape interface{ isShape() }

type Circle struct{ R float32 }

type Rect struct{ W, H uint16 }

type Label struct {
	Pos  uint8
	Text string
}

func (Circle) isShape() {}
func (Rect) isShape()   {}
func (*Label) isShape() {}

type Inner struct {
	Tags []string
	Code uint16
}

type Doc struct {
	ID     uint32
	Title  string
	Inner  Inner
	Points []int32
	Kind   Shape
	Body   []byte
}

type Empty struct{}

type Matrix struct {
	Rows  [][]uint16
	Names [2]string
	Grid  [2][3]int8
	Flags []bool
	Owner *Label
	Count int
	Size  uint
	Off   fixed.Isize
	Len   fixed.Usize
	Marks []Empty
	None  [0]uint64
	Last  string
}

func newRegistry(t testing.TB) *formula.Registry {
	t.Helper()
	r := formula.NewRegistry(nil)
	require.NoError(t, r.RegisterEnum(reflect.TypeFor[Shape](),
		reflect.TypeFor[Circle](),
		reflect.TypeFor[Rect](),
		reflect.TypeFor[*Label](),
	))
	return r
}

func sampleDoc() Doc {
	return Doc{
		ID:     42,
		Title:  "lanes",
		Inner:  Inner{Tags: []string{"a", "", "bcd"}, Code: 7},
		Points: []int32{-1, 0, 1 << 20},
		Kind:   Rect{W: 3, H: 4},
		Body:   []byte("tail bytes"),
	}
}

func sampleMatrix() Matrix {
	return Matrix{
		Rows:  [][]uint16{{1, 2}, {}, {3}},
		Names: [2]string{"x", "yz"},
		Grid:  [2][3]int8{{1, -2, 3}, {-4, 5, -6}},
		Flags: []bool{true, false, true},
		Owner: &Label{Pos: 9, Text: "owner"},
		Count: -12345,
		Size:  77,
		Off:   -3,
		Len:   5,
		Marks: []Empty{{}, {}, {}},
		Last:  "end",
	}
}

func encode[T any](t testing.TB, r *formula.Registry, v T, opts Options) ([]byte, buffer.Sizes, *formula.Formula) {
	t.Helper()
	f, err := formula.For[T](r)
	require.NoError(t, err)
	data, sizes, err := Serialize(f, reflect.ValueOf(&v).Elem(), opts)
	require.NoError(t, err)
	require.Len(t, data, sizes.Total())
	return data, sizes, f
}

func decode[T any](t testing.TB, f *formula.Formula, data []byte, stack int, opts Options) T {
	t.Helper()
	var out T
	require.NoError(t, Deserialize(data, stack, f, reflect.ValueOf(&out).Elem(), opts))
	return out
}

func roundTrip[T any](t testing.TB, r *formula.Registry, v T, opts Options) T {
	t.Helper()
	data, sizes, f := encode(t, r, v, opts)
	return decode[T](t, f, data, sizes.Stack, opts)
}

func usize(n int) []byte {
	u, err := fixed.NewUsize(n)
	if err != nil {
		panic(err)
	}
	return u.AppendLE(nil)
}
