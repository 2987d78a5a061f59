// Package formula holds the size algebra of the wire format and the
// registry that compiles Go types into formulas.
//
// Every formula carries three facts: the largest inline size (or
// unbounded), whether that size is exact, and whether the type ever writes
// to the trailing lane. Facts compose bottom-up:
//
//	primitive   width, exact, heapless
//	bytes       unbounded
//	struct      sum of fields, exact if the last field is, heapless if all are
//	enum        discriminant + widest variant, exact if all variants agree
//	sequence    unbounded unless elements are zero-width
//
// Only the last field of a struct may be variable-width. The registry
// satisfies this by storing earlier variable-width fields behind a
// length/offset reference, and rejects anything it cannot lay out
// (recursive types, maps, channels, unregistered interfaces) when the type
// is first compiled.
package formula
