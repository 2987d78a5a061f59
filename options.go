package lanes

import (
	"go.uber.org/zap"

	"github.com/rawbytedev/lanes/codec"
	"github.com/rawbytedev/lanes/formula"
	"github.com/rawbytedev/lanes/packet"
)

// Options configure a Codec.
type Options struct {
	// UnsafeStrings makes decoded strings alias the input; the caller must
	// keep the input alive and unmodified.
	UnsafeStrings bool
	// BorrowBytes makes decoded []byte values alias the input.
	BorrowBytes bool
	// UnsafePrimitives makes decoded numeric slices alias aligned input on
	// little-endian hosts.
	UnsafePrimitives bool
	// CheckAlignment reports misaligned numeric rows instead of copying them.
	CheckAlignment bool
	// OwnedTarget lets DecodeInPlace overwrite byte and numeric slices the
	// target already holds. Set it only when those slices were never
	// borrowed from an input. It has no effect together with BorrowBytes or
	// UnsafePrimitives.
	OwnedTarget bool

	// Compress stores packet bodies zstd-compressed.
	Compress bool
	// Checksum selects the packet integrity check.
	Checksum packet.Checksum

	// Capacity is the initial capacity of encoded packets.
	Capacity int

	// Logger receives debug output. Nil selects a no-op logger.
	Logger *zap.Logger
	// Registry caches formulas. Nil selects formula.Default().
	Registry *formula.Registry
}

func (o Options) codec() codec.Options {
	return codec.Options{
		UnsafeStrings:    o.UnsafeStrings,
		BorrowBytes:      o.BorrowBytes,
		UnsafePrimitives: o.UnsafePrimitives,
		CheckAlignment:   o.CheckAlignment,
		OwnedTarget:      o.OwnedTarget,
	}
}

func (o Options) packet() packet.Options {
	return packet.Options{
		Compress: o.Compress,
		Checksum: o.Checksum,
	}
}
