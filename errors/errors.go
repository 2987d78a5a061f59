package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseRegister Phase = "register" // formula compilation
	PhaseEncode   Phase = "encode"   // value to bytes
	PhaseDecode   Phase = "decode"   // bytes to value
	PhasePacket   Phase = "packet"   // framing, checksum, compression
)

// Kind categorizes the error
type Kind string

const (
	KindWrongLength         Kind = "wrong_length"
	KindOutOfBounds         Kind = "out_of_bounds"
	KindInvalidUsize        Kind = "invalid_usize"
	KindInvalidIsize        Kind = "invalid_isize"
	KindUnknownDiscriminant Kind = "unknown_discriminant"
	KindOverflow            Kind = "overflow"
	KindCapacity            Kind = "capacity"
	KindUnsupported         Kind = "unsupported"
	KindTypeMismatch        Kind = "type_mismatch"
	KindRecursive           Kind = "recursive"
	KindInvalidFormula      Kind = "invalid_formula"
	KindNilPointer          Kind = "nil_pointer"
	KindNotPointer          Kind = "not_pointer"
	KindChecksum            Kind = "checksum"
	KindCompression         Kind = "compression"
	KindReleased            Kind = "released"
	KindMisaligned          Kind = "misaligned"
)

// Sentinels for errors.Is. They carry no phase and match any phase.
var (
	ErrWrongLength         = &Error{Kind: KindWrongLength}
	ErrOutOfBounds         = &Error{Kind: KindOutOfBounds}
	ErrInvalidUsize        = &Error{Kind: KindInvalidUsize}
	ErrInvalidIsize        = &Error{Kind: KindInvalidIsize}
	ErrUnknownDiscriminant = &Error{Kind: KindUnknownDiscriminant}
	ErrOverflow            = &Error{Kind: KindOverflow}
	ErrCapacity            = &Error{Kind: KindCapacity}
	ErrUnsupported         = &Error{Kind: KindUnsupported}
	ErrTypeMismatch        = &Error{Kind: KindTypeMismatch}
	ErrRecursive           = &Error{Kind: KindRecursive}
	ErrInvalidFormula      = &Error{Kind: KindInvalidFormula}
	ErrNilPointer          = &Error{Kind: KindNilPointer}
	ErrNotPointer          = &Error{Kind: KindNotPointer}
	ErrChecksum            = &Error{Kind: KindChecksum}
	ErrCompression         = &Error{Kind: KindCompression}
	ErrReleased            = &Error{Kind: KindReleased}
	ErrMisaligned          = &Error{Kind: KindMisaligned}
)

// Error is the structured error type used throughout lanes
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" {
		b.WriteString(": Go type ")
		b.WriteString(e.GoType)
	}

	if e.Detail != "" {
		if e.GoType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Kind, and on Phase when the target names one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Phase == "" || t.Phase == e.Phase
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// WithPath prefixes the path of a structured error with the given segment.
// Other errors are returned unchanged.
func WithPath(err error, segment string) error {
	e, ok := err.(*Error)
	if !ok {
		return err
	}
	out := *e
	out.Path = make([]string, 0, len(e.Path)+1)
	out.Path = append(out.Path, segment)
	out.Path = append(out.Path, e.Path...)
	return &out
}

// Convenience constructors for common error patterns

// WrongLength reports an inline region longer than an exact-size type allows
func WrongLength(phase Phase, goType string, want, got int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindWrongLength,
		GoType: goType,
		Detail: fmt.Sprintf("expected %d bytes, got %d", want, got),
		Value:  got,
	}
}

// OutOfBounds reports a read or reference past the end of the input
func OutOfBounds(phase Phase, want, have int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("need %d bytes, %d available", want, have),
		Value:  want,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, value any, target string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Detail: fmt.Sprintf("value %v overflows %s", value, target),
		Value:  value,
	}
}

// UnknownDiscriminant reports a tag with no matching variant
func UnknownDiscriminant(goType string, disc uint64, variants int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindUnknownDiscriminant,
		GoType: goType,
		Detail: fmt.Sprintf("discriminant %d out of range (%d variants)", disc, variants),
		Value:  disc,
	}
}

// Capacity reports a write past a fixed-capacity buffer
func Capacity(need, capacity int) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindCapacity,
		Detail: fmt.Sprintf("need %d bytes, capacity %d", need, capacity),
		Value:  need,
	}
}

// Unsupported creates an unsupported type or operation error
func Unsupported(phase Phase, goType, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		GoType: goType,
		Detail: what,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		GoType: goType,
		Detail: "nil pointer",
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
