package formula

import (
	"fmt"
	"reflect"
	"strings"
)

// Kind is the layout rule a formula follows.
type Kind uint8

const (
	KindPrimitive Kind = iota // fixed-width number or bool
	KindUsize                 // portable unsigned integer
	KindIsize                 // portable signed integer
	KindBytes                 // raw bytes
	KindStruct
	KindEnum
	KindSeq
	KindArray
	KindPointer
)

var kindNames = [...]string{
	KindPrimitive: "primitive",
	KindUsize:     "usize",
	KindIsize:     "isize",
	KindBytes:     "bytes",
	KindStruct:    "struct",
	KindEnum:      "enum",
	KindSeq:       "seq",
	KindArray:     "array",
	KindPointer:   "pointer",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// View selects the Go representation a Bytes or Seq formula decodes into.
type View uint8

const (
	ViewNone   View = iota
	ViewString      // string instead of []byte
	ViewHandle      // borrowed handle into the source buffer
	ViewSeq         // lazy sequence
)

// Sequencer is implemented by lazy sequence types. Such a type is laid
// out as a sequence of SeqElem values.
type Sequencer interface {
	SeqElem() reflect.Type
}

// Blobber marks types that are laid out as raw bytes and decode as a
// borrowed view.
type Blobber interface {
	BlobView()
}

// Formula is the compiled layout of one Go type.
type Formula struct {
	Facts

	Kind Kind
	Type reflect.Type
	// Prim is the reflect kind stored for primitives and portable integers.
	Prim reflect.Kind
	View View

	Fields   []Field   // KindStruct
	Variants []Variant // KindEnum

	// Elem is the element formula of sequences and arrays and the target
	// of pointers.
	Elem *Formula
	// ElemByRef is set on arrays whose element formula is not exact.
	ElemByRef bool
	// Len is the array length.
	Len int

	variants map[reflect.Type]int
}

// Field is one member of an aggregate.
type Field struct {
	Name  string
	Index int
	// ByRef is set when the field is not last and its formula is not exact.
	// Its payload then lives in the trailing lane behind a length/offset pair.
	ByRef   bool
	Formula *Formula
}

// Facts returns the facts the field contributes to its owner.
func (f Field) Facts() Facts {
	if f.ByRef {
		return RefFacts()
	}
	return f.Formula.Facts
}

// Variant is one alternative of an enum. Its discriminant is its index.
type Variant struct {
	Type    reflect.Type
	Formula *Formula
}

// Discriminant returns the discriminant of the concrete type t.
func (f *Formula) Discriminant(t reflect.Type) (int, bool) {
	d, ok := f.variants[t]
	return d, ok
}

// Width returns the byte width of a primitive or portable integer.
func (f *Formula) Width() int {
	n, _ := f.MaxStack.Get()
	return n
}

// ElemFacts returns the facts one array element occupies inline.
func (f *Formula) ElemFacts() Facts {
	if f.ElemByRef {
		return RefFacts()
	}
	return f.Elem.Facts
}

func (f *Formula) String() string {
	var b strings.Builder
	b.WriteString(f.Kind.String())
	if f.Type != nil {
		b.WriteByte(' ')
		b.WriteString(f.Type.String())
	}
	fmt.Fprintf(&b, "{max=%s", f.MaxStack)
	if f.Exact {
		b.WriteString(" exact")
	}
	if f.Heapless {
		b.WriteString(" heapless")
	}
	b.WriteByte('}')
	return b.String()
}
