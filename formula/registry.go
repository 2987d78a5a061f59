package formula

import (
	"reflect"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/rawbytedev/lanes/errors"
	"github.com/rawbytedev/lanes/fixed"
	"github.com/rawbytedev/lanes/internal/common"
)

// TagName is the struct tag consulted for field options. `lanes:"-"`
// leaves a field out of the layout.
const TagName = "lanes"

var (
	usizeType     = reflect.TypeFor[fixed.Usize]()
	isizeType     = reflect.TypeFor[fixed.Isize]()
	sequencerType = reflect.TypeFor[Sequencer]()
	blobberType   = reflect.TypeFor[Blobber]()
)

// Registry compiles Go types into formulas once and caches them. Enum
// formulas need their variants registered first with RegisterEnum.
type Registry struct {
	mu       sync.RWMutex
	formulas map[reflect.Type]*Formula
	enums    map[reflect.Type][]reflect.Type
	log      *zap.Logger
}

// NewRegistry returns an empty registry. A nil logger selects Logger().
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = Logger()
	}
	return &Registry{
		formulas: make(map[reflect.Type]*Formula),
		enums:    make(map[reflect.Type][]reflect.Type),
		log:      log,
	}
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry(nil)
	})
	return defaultRegistry
}

// RegisterEnum declares the interface type iface as a sum type whose
// variants are the given concrete types. Discriminants follow the order
// of variants; reordering them changes the wire format.
//
// The enum is compiled immediately, so invalid variants are reported here
// and not at serialization time.
func (r *Registry) RegisterEnum(iface reflect.Type, variants ...reflect.Type) error {
	if iface == nil || iface.Kind() != reflect.Interface {
		return errors.New(errors.PhaseRegister, errors.KindTypeMismatch).
			GoType(typeName(iface)).
			Detail("enum type must be an interface").
			Build()
	}
	if len(variants) == 0 {
		return errors.New(errors.PhaseRegister, errors.KindInvalidFormula).
			GoType(iface.String()).
			Detail("enum needs at least one variant").
			Build()
	}
	seen := make(map[reflect.Type]bool, len(variants))
	for _, v := range variants {
		if v == nil || v.Kind() == reflect.Interface || !v.Implements(iface) {
			return errors.New(errors.PhaseRegister, errors.KindTypeMismatch).
				GoType(typeName(v)).
				Detail("variant does not implement %s", iface).
				Build()
		}
		if seen[v] {
			return errors.New(errors.PhaseRegister, errors.KindInvalidFormula).
				GoType(v.String()).
				Detail("duplicate variant of %s", iface).
				Build()
		}
		seen[v] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.enums[iface]; ok {
		if slices.Equal(prev, variants) {
			return nil
		}
		return errors.New(errors.PhaseRegister, errors.KindInvalidFormula).
			GoType(iface.String()).
			Detail("enum already registered with different variants").
			Build()
	}
	r.enums[iface] = slices.Clone(variants)
	if _, err := r.compileLocked(iface); err != nil {
		delete(r.enums, iface)
		return err
	}
	return nil
}

// Of returns the formula of t, compiling it on first use.
func (r *Registry) Of(t reflect.Type) (*Formula, error) {
	if t == nil {
		return nil, errors.New(errors.PhaseRegister, errors.KindNilPointer).
			Detail("type cannot be nil").
			Build()
	}
	r.mu.RLock()
	if f, ok := r.formulas[t]; ok {
		r.mu.RUnlock()
		return f, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check
	if f, ok := r.formulas[t]; ok {
		return f, nil
	}
	return r.compileLocked(t)
}

// MustOf is Of for types known to be valid at init time. It panics on error.
func (r *Registry) MustOf(t reflect.Type) *Formula {
	f, err := r.Of(t)
	if err != nil {
		panic(err)
	}
	return f
}

// For returns the formula of T from r.
func For[T any](r *Registry) (*Formula, error) {
	return r.Of(reflect.TypeFor[T]())
}

func (r *Registry) compileLocked(t reflect.Type) (*Formula, error) {
	c := &compiler{
		r:      r,
		active: make(map[reflect.Type]bool),
		fresh:  make(map[reflect.Type]*Formula),
	}
	f, err := c.compile(t)
	if err != nil {
		return nil, err
	}
	for ft, ff := range c.fresh {
		r.formulas[ft] = ff
		r.log.Debug("compiled formula",
			zap.Stringer("type", ft),
			zap.Stringer("kind", ff.Kind),
			zap.Stringer("max_stack", ff.MaxStack),
			zap.Bool("exact", ff.Exact),
			zap.Bool("heapless", ff.Heapless),
		)
	}
	return f, nil
}

type compiler struct {
	r      *Registry
	active map[reflect.Type]bool
	fresh  map[reflect.Type]*Formula
}

func (c *compiler) compile(t reflect.Type) (*Formula, error) {
	if f, ok := c.r.formulas[t]; ok {
		return f, nil
	}
	if f, ok := c.fresh[t]; ok {
		return f, nil
	}
	if c.active[t] {
		return nil, errors.New(errors.PhaseRegister, errors.KindRecursive).
			GoType(t.String()).
			Detail("recursive types have no bounded layout").
			Build()
	}
	c.active[t] = true
	defer delete(c.active, t)

	f, err := c.build(t)
	if err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		e := err.(*errors.Error)
		e.GoType = t.String()
		return nil, e
	}
	c.fresh[t] = f
	return f, nil
}

func (c *compiler) build(t reflect.Type) (*Formula, error) {
	switch {
	case t == usizeType:
		return &Formula{Facts: PortableFacts(), Kind: KindUsize, Type: t, Prim: t.Kind()}, nil
	case t == isizeType:
		return &Formula{Facts: PortableFacts(), Kind: KindIsize, Type: t, Prim: t.Kind()}, nil
	case isValueType(t) && t.Implements(sequencerType):
		elemType := reflect.Zero(t).Interface().(Sequencer).SeqElem()
		elem, err := c.compile(elemType)
		if err != nil {
			return nil, errors.WithPath(err, "[]")
		}
		return &Formula{Facts: SeqFacts(elem.Facts), Kind: KindSeq, Type: t, View: ViewSeq, Elem: elem}, nil
	case isValueType(t) && t.Implements(blobberType):
		return &Formula{Facts: BytesFacts(), Kind: KindBytes, Type: t, View: ViewHandle}, nil
	}

	if common.IsFixedKind(t.Kind()) {
		return &Formula{Facts: PrimitiveFacts(common.FixedSize(t.Kind())), Kind: KindPrimitive, Type: t, Prim: t.Kind()}, nil
	}
	switch t.Kind() {
	case reflect.Int:
		return &Formula{Facts: PortableFacts(), Kind: KindIsize, Type: t, Prim: reflect.Int}, nil
	case reflect.Uint:
		return &Formula{Facts: PortableFacts(), Kind: KindUsize, Type: t, Prim: reflect.Uint}, nil
	case reflect.String:
		return &Formula{Facts: BytesFacts(), Kind: KindBytes, Type: t, View: ViewString}, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return &Formula{Facts: BytesFacts(), Kind: KindBytes, Type: t}, nil
		}
		elem, err := c.compile(t.Elem())
		if err != nil {
			return nil, errors.WithPath(err, "[]")
		}
		return &Formula{Facts: SeqFacts(elem.Facts), Kind: KindSeq, Type: t, Elem: elem}, nil
	case reflect.Array:
		elem, err := c.compile(t.Elem())
		if err != nil {
			return nil, errors.WithPath(err, "[]")
		}
		f := &Formula{Kind: KindArray, Type: t, Elem: elem, Len: t.Len(), ElemByRef: !elem.Exact}
		f.Facts = ArrayFacts(t.Len(), f.ElemFacts())
		return f, nil
	case reflect.Pointer:
		elem, err := c.compile(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Formula{Facts: elem.Facts, Kind: KindPointer, Type: t, Elem: elem}, nil
	case reflect.Struct:
		return c.buildStruct(t)
	case reflect.Interface:
		return c.buildEnum(t)
	default:
		return nil, errors.Unsupported(errors.PhaseRegister, t.String(), t.Kind().String()+" has no layout")
	}
}

func (c *compiler) buildStruct(t reflect.Type) (*Formula, error) {
	var fields []Field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Tag.Get(TagName) == "-" {
			continue
		}
		ff, err := c.compile(sf.Type)
		if err != nil {
			return nil, errors.WithPath(err, sf.Name)
		}
		fields = append(fields, Field{Name: sf.Name, Index: i, Formula: ff})
	}

	facts := make([]Facts, len(fields))
	for i := range fields {
		last := i == len(fields)-1
		fields[i].ByRef = !last && !fields[i].Formula.Exact
		facts[i] = fields[i].Facts()
	}
	return &Formula{Facts: StructFacts(facts...), Kind: KindStruct, Type: t, Fields: fields}, nil
}

func (c *compiler) buildEnum(t reflect.Type) (*Formula, error) {
	types, ok := c.r.enums[t]
	if !ok {
		return nil, errors.Unsupported(errors.PhaseRegister, t.String(), "interface is not a registered enum")
	}
	f := &Formula{
		Kind:     KindEnum,
		Type:     t,
		Variants: make([]Variant, len(types)),
		variants: make(map[reflect.Type]int, len(types)),
	}
	facts := make([]Facts, len(types))
	for i, vt := range types {
		vf, err := c.compile(vt)
		if err != nil {
			return nil, errors.WithPath(err, vt.String())
		}
		f.Variants[i] = Variant{Type: vt, Formula: vf}
		f.variants[vt] = i
		facts[i] = vf.Facts
	}
	f.Facts = EnumFacts(facts...)
	return f, nil
}

func isValueType(t reflect.Type) bool {
	return t.Kind() != reflect.Interface && t.Kind() != reflect.Pointer
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
