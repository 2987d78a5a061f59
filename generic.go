package lanes

import (
	"reflect"

	"github.com/rawbytedev/lanes/errors"
	"github.com/rawbytedev/lanes/formula"
)

// Marshal encodes v as a packet. T may be an interface type registered
// with RegisterEnum.
func Marshal[T any](c *Codec, v T) ([]byte, error) {
	return c.encode(reflect.ValueOf(&v).Elem())
}

// Unmarshal decodes a packet produced by Marshal.
func Unmarshal[T any](c *Codec, pkt []byte) (T, error) {
	var out T
	err := c.Decode(pkt, &out)
	return out, err
}

// RegisterEnum registers the interface type I as a sum type in r (or the
// default registry when r is nil). Variants are given as zero values of
// the concrete types, in discriminant order:
//
//	lanes.RegisterEnum[Shape](nil, Circle{}, Rect{}, (*Label)(nil))
func RegisterEnum[I any](r *formula.Registry, variants ...any) error {
	if r == nil {
		r = formula.Default()
	}
	types := make([]reflect.Type, len(variants))
	for i, v := range variants {
		if v == nil {
			return errors.New(errors.PhaseRegister, errors.KindNilPointer).
				GoType(reflect.TypeFor[I]().String()).
				Detail("variant %d is an untyped nil", i).
				Build()
		}
		types[i] = reflect.TypeOf(v)
	}
	return r.RegisterEnum(reflect.TypeFor[I](), types...)
}

// MustRegisterEnum is RegisterEnum that panics on error, for package
// initialization.
func MustRegisterEnum[I any](r *formula.Registry, variants ...any) {
	if err := RegisterEnum[I](r, variants...); err != nil {
		panic(err)
	}
}

// FormulaOf returns the formula of T in r (or the default registry).
func FormulaOf[T any](r *formula.Registry) (*formula.Formula, error) {
	if r == nil {
		r = formula.Default()
	}
	return formula.For[T](r)
}
