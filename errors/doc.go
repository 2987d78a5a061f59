// Package errors provides the structured error type returned by every layer of
// lanes.
//
// Errors carry a Phase (register, encode, decode, packet) and a Kind. Kind is
// the matchable part: a decoder that runs out of input always reports
// KindOutOfBounds regardless of which layer noticed it.
//
//	err := errors.New(errors.PhaseDecode, errors.KindWrongLength).
//		Path("Header", "Size").
//		GoType("uint32").
//		Detail("expected %d bytes, got %d", 4, 6).
//		Build()
//
// The exported sentinels match by Kind only, so callers can write
//
//	if errors.Is(err, lerrors.ErrOutOfBounds) { ... }
//
// without caring about the phase.
package errors
