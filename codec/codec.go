package codec

import (
	"reflect"

	"github.com/rawbytedev/lanes/buffer"
	"github.com/rawbytedev/lanes/formula"
)

// Serialize writes v into a new Growable and returns a copy of the region.
func Serialize(f *formula.Formula, v reflect.Value, opts Options) ([]byte, buffer.Sizes, error) {
	g := buffer.NewGrowable()
	defer g.Release()
	if hint, ok := SizeHint(f, v); ok {
		g.Reserve(hint)
	}
	s := NewSerializer(g, opts)
	if err := s.WriteValue(f, v); err != nil {
		return nil, buffer.Sizes{}, err
	}
	sizes, err := s.Finish()
	if err != nil {
		return nil, buffer.Sizes{}, err
	}
	return g.AppendTo(make([]byte, 0, sizes.Total())), sizes, nil
}

// Deserialize decodes the region in data, whose inline lane is the first
// stackLen bytes, into dst.
func Deserialize(data []byte, stackLen int, f *formula.Formula, dst reflect.Value, opts Options) error {
	d, err := NewDeserializer(data, stackLen, opts)
	if err != nil {
		return err
	}
	if err := d.Deserialize(f, dst); err != nil {
		return err
	}
	return d.Finish()
}
