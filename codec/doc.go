// Package codec serializes values into two-lane regions and reads them
// back, either by copying into Go values or by borrowing views over the
// input.
//
// Layout of a region, with W the portable integer width:
//
//	region    = inline ++ trailing
//	reference = len(W) off(W)      off counts from the start of trailing
//	enum      = discriminant(W) variant-fields
//	sequence  = count(W) off(W)    rows start at trailing[off]
//
// A struct's fields are written inline in declaration order. A field that
// is not last and not exact is serialized as its own region, appended to
// the trailing lane and replaced inline by a reference. The last field
// owns every remaining inline byte, so a trailing []byte or string needs
// no length.
//
// Sequence rows are fixed-size element encodings followed by one shared
// trailing lane when the element formula is exact, and
// stackLen(W) heapLen(W) inline trailing otherwise.
package codec
