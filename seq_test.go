package lanes

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/lanes/errors"
	"github.com/rawbytedev/lanes/internal/common"
)

type Entry struct {
	Key   string
	Count uint32
}

type Log struct {
	ID      uint64
	Entries Seq[Entry]
	Samples View[uint32]
	Shapes  Seq[Shape]
	Note    string
}

func sampleLog() Log {
	return Log{
		ID:      1,
		Entries: SeqOf(Entry{Key: "a", Count: 1}, Entry{Key: "bb", Count: 2}, Entry{Key: "", Count: 3}),
		Samples: ViewOf[uint32](10, 20, 30, 40),
		Shapes:  SeqOf[Shape](Circle{R: 1}, &Label{Text: "l"}),
		Note:    "note",
	}
}

func TestSeqEncodesLikeSlice(t *testing.T) {
	type Plain struct {
		ID      uint64
		Entries []Entry
		Samples []uint32
		Shapes  []Shape
		Note    string
	}
	c := newCodec(t, Options{})
	viewed, err := c.Encode(sampleLog())
	require.NoError(t, err)
	plain, err := c.Encode(Plain{
		ID:      1,
		Entries: []Entry{{Key: "a", Count: 1}, {Key: "bb", Count: 2}, {Key: "", Count: 3}},
		Samples: []uint32{10, 20, 30, 40},
		Shapes:  []Shape{Circle{R: 1}, &Label{Text: "l"}},
		Note:    "note",
	})
	require.NoError(t, err)
	require.Equal(t, plain, viewed)

	var back Plain
	require.NoError(t, c.Decode(viewed, &back))
	require.Equal(t, []uint32{10, 20, 30, 40}, back.Samples)
}

func TestSeqLazyDecode(t *testing.T) {
	c := newCodec(t, Options{})
	pkt, err := c.Encode(sampleLog())
	require.NoError(t, err)

	var out Log
	require.NoError(t, c.Decode(pkt, &out))
	require.Equal(t, uint64(1), out.ID)
	require.Equal(t, "note", out.Note)

	want := []Entry{{Key: "a", Count: 1}, {Key: "bb", Count: 2}, {Key: "", Count: 3}}
	require.Equal(t, len(want), out.Entries.Len())
	var got []Entry
	for out.Entries.Next() {
		got = append(got, out.Entries.Value())
		require.Equal(t, len(want)-len(got), out.Entries.Len())
	}
	require.NoError(t, out.Entries.Err())
	require.Equal(t, want, got)
	require.False(t, out.Entries.Next(), "stays exhausted")

	out.Entries.Reset()
	require.Equal(t, len(want), out.Entries.Len())
	require.True(t, out.Entries.Next())
	require.Equal(t, want[0], out.Entries.Value())

	all, err := out.Entries.Collect()
	require.NoError(t, err)
	require.Equal(t, want, all)

	shapes, err := out.Shapes.Collect()
	require.NoError(t, err)
	require.Equal(t, []Shape{Circle{R: 1}, &Label{Text: "l"}}, shapes)

	// re-encoding a decoded view reproduces the packet
	again, err := c.Encode(out)
	require.NoError(t, err)
	require.Equal(t, pkt, again)
}

func TestSeqInMemory(t *testing.T) {
	s := SeqOf(1, 2, 3)
	require.Equal(t, 3, s.Len())
	sum := 0
	for s.Next() {
		sum += s.Value()
	}
	require.Equal(t, 6, sum)
	require.Zero(t, s.Len())
	s.Reset()
	require.Equal(t, 3, s.Len())
}

func TestSeqCorruptElement(t *testing.T) {
	type Strings struct {
		Vals Seq[string]
	}
	c := newCodec(t, Options{})
	region, sizes, err := c.Serialize(Strings{Vals: SeqOf("abc", "de")})
	require.NoError(t, err)
	// the second row's stack length now runs past the end
	second := sizes.Stack + 2*W + 3
	copy(region[second:], usizeLE(100))

	var out Strings
	require.NoError(t, c.Deserialize(region, sizes.Stack, &out))
	require.True(t, out.Vals.Next())
	require.Equal(t, "abc", out.Vals.Value())
	require.False(t, out.Vals.Next())
	require.ErrorIs(t, out.Vals.Err(), errors.ErrOutOfBounds)

	out.Vals.Reset()
	require.NoError(t, out.Vals.Err())
}

func TestViewAliasesInput(t *testing.T) {
	type Samples struct {
		Vals View[uint32]
	}
	c := newCodec(t, Options{})
	region, sizes, err := c.Serialize(Samples{Vals: ViewOf[uint32](7, 8, 9)})
	require.NoError(t, err)

	var out Samples
	require.NoError(t, c.Deserialize(region, sizes.Stack, &out))
	require.Equal(t, 3, out.Vals.Len())

	vals, err := out.Vals.Slice()
	if !common.LittleEndianHost {
		require.ErrorIs(t, err, errors.ErrUnsupported)
		return
	}
	if !common.Aligned(region[2*W:], 4) {
		require.ErrorIs(t, err, errors.ErrMisaligned)
		return
	}
	require.NoError(t, err)
	require.Equal(t, []uint32{7, 8, 9}, vals)
	require.Same(t, &region[2*W], (*byte)(unsafe.Pointer(&vals[0])))
}

func TestViewWidthMismatch(t *testing.T) {
	type Ints struct {
		Vals View[int]
	}
	c := newCodec(t, Options{})
	region, sizes, err := c.Serialize(Ints{Vals: ViewOf(1, 2)})
	require.NoError(t, err)
	var out Ints
	require.NoError(t, c.Deserialize(region, sizes.Stack, &out))
	if W != 8 || !common.LittleEndianHost {
		_, err = out.Vals.Slice()
		require.Error(t, err)
	}
}
