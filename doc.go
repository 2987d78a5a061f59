// Package lanes is a zero-copy binary serialization framework.
//
// Every value is written as two lanes: an inline lane holding fixed-size
// data in declaration order and a trailing lane holding variable-size
// payloads that the inline lane refers to by length and offset. Layouts
// are derived from Go types once and cached as formulas (package formula),
// so the reader always knows where each field lives without tags or
// per-field length prefixes.
//
// A Codec frames regions into packets (package packet) that record the
// inline length and optionally carry a checksum and zstd compression:
//
//	c, err := lanes.New(lanes.Options{Checksum: packet.ChecksumCRC32})
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	pkt, err := c.Encode(rec)
//	...
//	var out Record
//	err = c.Decode(pkt, &out)
//
// Sum types are Go interfaces whose variants are registered up front with
// RegisterEnum. Sequences may be decoded lazily with Seq, and numeric
// sequences viewed in place with View.
//
// The width of portable integers (lengths, offsets, discriminants, int and
// uint) is fixed at build time with the lanes_fixed8, lanes_fixed16 and
// lanes_fixed64 build tags; the default is 32 bits. Producer and consumer
// must be built with the same width.
package lanes
