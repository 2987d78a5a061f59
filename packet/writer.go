package packet

import (
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/rawbytedev/lanes/buffer"
	"github.com/rawbytedev/lanes/errors"
)

// Writer frames regions into packets. It is safe for concurrent use.
type Writer struct {
	opts Options
	enc  *zstd.Encoder
	log  *zap.Logger
}

// NewWriter returns a Writer. Close releases the compressor.
func NewWriter(opts Options) (*Writer, error) {
	if opts.Checksum > ChecksumXXHash {
		return nil, errors.New(errors.PhasePacket, errors.KindUnsupported).
			Value(opts.Checksum).
			Detail("unknown checksum").
			Build()
	}
	w := &Writer{opts: opts, log: Logger()}
	if opts.Compress {
		enc, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(opts.level()),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			return nil, errors.Wrap(errors.PhasePacket, errors.KindCompression, err, "create zstd encoder")
		}
		w.enc = enc
	}
	return w, nil
}

// Append frames region, whose inline lane is sizes.Stack bytes long, and
// appends the packet to dst.
func (w *Writer) Append(dst, region []byte, sizes buffer.Sizes) ([]byte, error) {
	if sizes.Total() != len(region) {
		return dst, errors.WrongLength(errors.PhasePacket, "region", sizes.Total(), len(region))
	}

	flags := w.opts.Checksum.flag()
	if w.enc != nil {
		flags |= FlagCompressed
	}
	start := len(dst)
	dst = append(dst, Magic...)
	dst = append(dst, Version, byte(flags))

	var err error
	if dst, err = appendWord(dst, sizes.Stack); err != nil {
		return dst[:start], err
	}
	lenAt := len(dst)
	if dst, err = appendWord(dst, 0); err != nil {
		return dst[:start], err
	}

	bodyAt := len(dst)
	if w.enc != nil {
		dst = w.enc.EncodeAll(region, dst)
		w.log.Debug("compressed packet body",
			zap.Int("region", len(region)),
			zap.Int("body", len(dst)-bodyAt),
		)
	} else {
		dst = append(dst, region...)
	}

	body, err := appendWord(nil, len(dst)-bodyAt)
	if err != nil {
		return dst[:start], err
	}
	copy(dst[lenAt:], body)
	return w.opts.Checksum.append(dst, dst[start+len(Magic):]), nil
}

// Encode returns region framed as a new packet.
func (w *Writer) Encode(region []byte, sizes buffer.Sizes) ([]byte, error) {
	return w.Append(make([]byte, 0, HeaderSize+len(region)+w.opts.Checksum.Size()), region, sizes)
}

// Close releases the compressor.
func (w *Writer) Close() error {
	if w.enc == nil {
		return nil
	}
	return w.enc.Close()
}
