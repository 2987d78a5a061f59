package codec

// DefaultMaxAlloc bounds the Go memory a decoder may allocate for elements
// that occupy no bytes on the wire.
const DefaultMaxAlloc = 64 << 20

// Options tune how values are materialized. Encoding output never depends
// on them.
type Options struct {
	// UnsafeStrings makes decoded strings alias the input bytes.
	UnsafeStrings bool
	// BorrowBytes makes decoded []byte values alias the input bytes.
	BorrowBytes bool
	// UnsafePrimitives makes decoded numeric slices alias the input when
	// the host is little-endian and the rows are aligned.
	UnsafePrimitives bool
	// CheckAlignment turns a misaligned aliasing attempt into an error
	// instead of a silent copy.
	CheckAlignment bool
	// OwnedTarget declares that in-place decodes write into values holding
	// no borrowed views of any input, so their byte and numeric slices may
	// be overwritten. It is ignored when BorrowBytes or UnsafePrimitives is
	// set.
	OwnedTarget bool
	// MaxAlloc bounds allocations for zero-width elements. Zero selects
	// DefaultMaxAlloc.
	MaxAlloc int
}

// reuseRows reports whether existing byte and numeric slices may be
// written over.
func (o Options) reuseRows() bool {
	return o.OwnedTarget && !o.BorrowBytes && !o.UnsafePrimitives
}

func (o Options) maxAlloc() int {
	if o.MaxAlloc <= 0 {
		return DefaultMaxAlloc
	}
	return o.MaxAlloc
}
