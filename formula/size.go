package formula

import (
	"strconv"

	"github.com/rawbytedev/lanes/errors"
	"github.com/rawbytedev/lanes/fixed"
)

// Size is an optional inline byte count. The zero value is Unbounded.
type Size struct {
	n  int
	ok bool
}

// Unbounded marks a formula whose inline footprint has no fixed bound.
var Unbounded = Size{}

// Bounded returns a size of exactly n bytes.
func Bounded(n int) Size { return Size{n: n, ok: true} }

// Get returns the bound and whether there is one.
func (s Size) Get() (int, bool) { return s.n, s.ok }

func (s Size) IsBounded() bool { return s.ok }

// IsZero reports a bounded size of zero bytes.
func (s Size) IsZero() bool { return s.ok && s.n == 0 }

func (s Size) String() string {
	if !s.ok {
		return "unbounded"
	}
	return strconv.Itoa(s.n)
}

// SumSize adds two sizes. Unbounded absorbs.
func SumSize(a, b Size) Size {
	if !a.ok || !b.ok {
		return Unbounded
	}
	return Bounded(a.n + b.n)
}

// MaxSize returns the larger of two sizes. Unbounded absorbs.
func MaxSize(a, b Size) Size {
	if !a.ok || !b.ok {
		return Unbounded
	}
	if a.n >= b.n {
		return a
	}
	return b
}

// Facts are the static size facts of a formula.
type Facts struct {
	// MaxStack bounds the inline bytes of every value.
	MaxStack Size
	// Exact holds when every value occupies exactly MaxStack inline bytes.
	Exact bool
	// Heapless holds when no value ever writes to the trailing lane.
	Heapless bool
}

// Validate checks the one invariant facts must satisfy on their own.
func (f Facts) Validate() error {
	if f.Exact && !f.MaxStack.IsBounded() {
		return errors.New(errors.PhaseRegister, errors.KindInvalidFormula).
			Detail("exact formula must have a bounded size").
			Build()
	}
	return nil
}

// PrimitiveFacts describes a fixed-width number or boolean.
func PrimitiveFacts(width int) Facts {
	return Facts{MaxStack: Bounded(width), Exact: true, Heapless: true}
}

// PortableFacts describes fixed.Usize and fixed.Isize.
func PortableFacts() Facts {
	return PrimitiveFacts(fixed.Width)
}

// BytesFacts describes a raw byte blob.
func BytesFacts() Facts {
	return Facts{MaxStack: Unbounded}
}

// RefFacts describes a length/offset pair pointing into the trailing lane.
func RefFacts() Facts {
	return Facts{MaxStack: Bounded(2 * fixed.Width), Exact: true}
}

// StructFacts composes the facts of an aggregate from its fields in
// declaration order. Callers must already have wrapped non-exact
// non-last fields in references.
func StructFacts(fields ...Facts) Facts {
	out := Facts{MaxStack: Bounded(0), Exact: true, Heapless: true}
	for _, f := range fields {
		out.MaxStack = SumSize(out.MaxStack, f.MaxStack)
		out.Heapless = out.Heapless && f.Heapless
	}
	if len(fields) > 0 {
		out.Exact = fields[len(fields)-1].Exact
	}
	return out
}

// EnumFacts composes a sum type from the aggregate facts of each variant.
func EnumFacts(variants ...Facts) Facts {
	out := Facts{Exact: true, Heapless: true}
	widest := Bounded(0)
	for i, v := range variants {
		widest = MaxSize(widest, v.MaxStack)
		out.Heapless = out.Heapless && v.Heapless
		if !v.Exact || !v.MaxStack.IsBounded() || (i > 0 && v.MaxStack != variants[0].MaxStack) {
			out.Exact = false
		}
	}
	out.MaxStack = SumSize(Bounded(fixed.Width), widest)
	return out
}

// SeqFacts describes a homogeneous sequence. Only zero-width elements keep
// the sequence bounded: its inline lane then holds just the element count.
func SeqFacts(elem Facts) Facts {
	if elem.MaxStack.IsZero() {
		return Facts{MaxStack: Bounded(fixed.Width), Exact: true, Heapless: elem.Heapless}
	}
	return Facts{MaxStack: Unbounded}
}

// ArrayFacts describes n inline elements. elem must be exact; non-exact
// element formulas are stored by reference and pass RefFacts here.
func ArrayFacts(n int, elem Facts) Facts {
	if n == 0 {
		return Facts{MaxStack: Bounded(0), Exact: true, Heapless: true}
	}
	size, _ := elem.MaxStack.Get()
	return Facts{MaxStack: Bounded(n * size), Exact: true, Heapless: elem.Heapless}
}
