package lanes

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/rawbytedev/lanes/buffer"
	"github.com/rawbytedev/lanes/codec"
	"github.com/rawbytedev/lanes/errors"
	"github.com/rawbytedev/lanes/formula"
	"github.com/rawbytedev/lanes/packet"
)

// Codec encodes and decodes values using cached formulas. It is safe for
// concurrent use.
type Codec struct {
	opts  Options
	reg   *formula.Registry
	copts codec.Options
	w     *packet.Writer
	r     *packet.Reader
	log   *zap.Logger
}

// New returns a Codec. Close releases its compressor.
func New(opts Options) (*Codec, error) {
	c := &Codec{
		opts:  opts,
		reg:   opts.Registry,
		copts: opts.codec(),
		log:   opts.Logger,
	}
	if c.reg == nil {
		c.reg = formula.Default()
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}

	var err error
	if c.w, err = packet.NewWriter(opts.packet()); err != nil {
		return nil, err
	}
	if c.r, err = packet.NewReader(opts.packet()); err != nil {
		_ = c.w.Close()
		return nil, err
	}
	c.log.Debug("codec created",
		zap.Bool("compress", opts.Compress),
		zap.Stringer("checksum", opts.Checksum),
		zap.Bool("unsafe_strings", opts.UnsafeStrings),
		zap.Bool("unsafe_primitives", opts.UnsafePrimitives),
	)
	return c, nil
}

// Close releases the packet compressor and decompressor.
func (c *Codec) Close() error {
	c.r.Close()
	return c.w.Close()
}

// Registry returns the registry formulas are compiled in.
func (c *Codec) Registry() *formula.Registry { return c.reg }

// Formula returns the compiled formula of t.
func (c *Codec) Formula(t reflect.Type) (*formula.Formula, error) {
	return c.reg.Of(t)
}

// Encode serializes v and frames it as a packet.
func (c *Codec) Encode(v any) ([]byte, error) {
	return c.encode(reflect.ValueOf(v))
}

func (c *Codec) encode(v reflect.Value) ([]byte, error) {
	if !v.IsValid() {
		return nil, errors.NilPointer(errors.PhaseEncode, "<nil>")
	}
	f, err := c.reg.Of(v.Type())
	if err != nil {
		return nil, err
	}

	g := buffer.NewGrowable()
	defer g.Release()
	hint, hinted := codec.SizeHint(f, v)
	if hinted {
		g.Reserve(hint)
	}
	s := codec.NewSerializer(g, c.copts)
	if err := s.WriteValue(f, v); err != nil {
		return nil, err
	}
	sizes, err := s.Finish()
	if err != nil {
		return nil, err
	}

	capacity := c.opts.Capacity
	if n := packet.HeaderSize + sizes.Total() + c.opts.Checksum.Size(); capacity < n && !c.opts.Compress {
		capacity = n
	}
	return c.w.Append(make([]byte, 0, capacity), g.Bytes(), sizes)
}

// Decode validates pkt and decodes its region into dst, which must be a
// non-nil pointer. dst is reset first.
func (c *Codec) Decode(pkt []byte, dst any) error {
	return c.decode(pkt, dst, false)
}

// DecodeInPlace is Decode reusing the storage dst already holds. Byte and
// numeric slices are reused only with Options.OwnedTarget, and fields
// tagged `lanes:"-"` keep their prior value.
func (c *Codec) DecodeInPlace(pkt []byte, dst any) error {
	return c.decode(pkt, dst, true)
}

func (c *Codec) decode(pkt []byte, dst any, inPlace bool) error {
	rv, err := target(dst)
	if err != nil {
		return err
	}
	frame, err := c.r.Decode(pkt)
	if err != nil {
		c.log.Debug("packet rejected", zap.Error(err))
		return err
	}
	return c.read(codec.NewSource(frame.Region), frame.Stack, rv, inPlace)
}

// Serialize writes v as a bare region and reports its lane sizes.
func (c *Codec) Serialize(v any) ([]byte, buffer.Sizes, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, buffer.Sizes{}, errors.NilPointer(errors.PhaseEncode, "<nil>")
	}
	f, err := c.reg.Of(rv.Type())
	if err != nil {
		return nil, buffer.Sizes{}, err
	}
	return codec.Serialize(f, rv, c.copts)
}

// SerializeInto writes v as a bare region into dst without allocating.
// It fails with a capacity error when dst is too short.
func (c *Codec) SerializeInto(dst []byte, v any) (buffer.Sizes, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return buffer.Sizes{}, errors.NilPointer(errors.PhaseEncode, "<nil>")
	}
	f, err := c.reg.Of(rv.Type())
	if err != nil {
		return buffer.Sizes{}, err
	}
	s := codec.NewSerializer(buffer.NewFixed(dst), c.copts)
	if err := s.WriteValue(f, rv); err != nil {
		return buffer.Sizes{}, err
	}
	return s.Finish()
}

// Deserialize decodes a bare region whose inline lane is the first stack
// bytes of data.
func (c *Codec) Deserialize(data []byte, stack int, dst any) error {
	rv, err := target(dst)
	if err != nil {
		return err
	}
	return c.read(codec.NewSource(data), stack, rv, false)
}

// DeserializeSource is Deserialize over a shared source. Borrowed handles
// decoded from it stay valid until the source is released.
func (c *Codec) DeserializeSource(src *codec.Source, stack int, dst any) error {
	rv, err := target(dst)
	if err != nil {
		return err
	}
	return c.read(src, stack, rv, false)
}

// SizeHint reports the lane sizes v serializes to, when they can be
// computed without writing.
func (c *Codec) SizeHint(v any) (buffer.Sizes, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return buffer.Sizes{}, false
	}
	f, err := c.reg.Of(rv.Type())
	if err != nil {
		return buffer.Sizes{}, false
	}
	return codec.SizeHint(f, rv)
}

func (c *Codec) read(src *codec.Source, stack int, dst reflect.Value, inPlace bool) error {
	f, err := c.reg.Of(dst.Type())
	if err != nil {
		return err
	}
	d, err := codec.NewSourceDeserializer(src, stack, c.copts)
	if err != nil {
		return err
	}
	if inPlace {
		err = d.DeserializeInPlace(f, dst)
	} else {
		err = d.Deserialize(f, dst)
	}
	if err != nil {
		return err
	}
	return d.Finish()
}

// target returns the settable value dst points to.
func target(dst any) (reflect.Value, error) {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer {
		name := "<nil>"
		if rv.IsValid() {
			name = rv.Type().String()
		}
		return reflect.Value{}, errors.New(errors.PhaseDecode, errors.KindNotPointer).
			GoType(name).
			Detail("decode target must be a pointer").
			Build()
	}
	if rv.IsNil() {
		return reflect.Value{}, errors.NilPointer(errors.PhaseDecode, rv.Type().String())
	}
	return rv.Elem(), nil
}
