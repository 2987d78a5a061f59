package packet

import (
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/rawbytedev/lanes/buffer"
	"github.com/rawbytedev/lanes/errors"
)

// Frame is a decoded packet. Region aliases the packet bytes unless the
// body was compressed.
type Frame struct {
	Header
	Region []byte
}

// Sizes returns the lane sizes of the region.
func (f Frame) Sizes() buffer.Sizes {
	return buffer.Sizes{Stack: f.Stack, Heap: len(f.Region) - f.Stack}
}

// Reader validates packets and recovers their regions. It is safe for
// concurrent use.
type Reader struct {
	opts Options
	dec  *zstd.Decoder
	log  *zap.Logger
}

// NewReader returns a Reader. Close releases the decompressor.
func NewReader(opts Options) (*Reader, error) {
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(uint64(opts.maxRegion())),
	)
	if err != nil {
		return nil, errors.Wrap(errors.PhasePacket, errors.KindCompression, err, "create zstd decoder")
	}
	return &Reader{opts: opts, dec: dec, log: Logger()}, nil
}

// Decode validates pkt, which must hold exactly one packet, and returns
// its region.
func (r *Reader) Decode(pkt []byte) (Frame, error) {
	h, err := ParseHeader(pkt)
	if err != nil {
		return Frame{}, err
	}
	sum := h.Checksum().Size()
	if rest := len(pkt) - HeaderSize; h.Body > rest || sum > rest-h.Body {
		return Frame{}, errors.OutOfBounds(errors.PhasePacket, h.Body+sum, rest)
	}
	if n := h.Len(); len(pkt) > n {
		return Frame{}, errors.WrongLength(errors.PhasePacket, "packet", n, len(pkt))
	}

	end := HeaderSize + h.Body
	if !h.Checksum().verify(pkt[len(Magic):end], pkt[end:]) {
		return Frame{}, errors.New(errors.PhasePacket, errors.KindChecksum).
			Detail("%s mismatch", h.Checksum()).
			Build()
	}

	body := pkt[HeaderSize:end:end]
	if !h.Compressed() {
		return Frame{Header: h, Region: body}, nil
	}

	region, err := r.dec.DecodeAll(body, nil)
	if err != nil {
		return Frame{}, errors.Wrap(errors.PhasePacket, errors.KindCompression, err, "zstd decode")
	}
	if len(region) > r.opts.maxRegion() {
		return Frame{}, errors.New(errors.PhasePacket, errors.KindCompression).
			Value(len(region)).
			Detail("region exceeds %d bytes", r.opts.maxRegion()).
			Build()
	}
	if h.Stack > len(region) {
		return Frame{}, errors.OutOfBounds(errors.PhasePacket, h.Stack, len(region))
	}
	r.log.Debug("decompressed packet body",
		zap.Int("body", h.Body),
		zap.Int("region", len(region)),
	)
	return Frame{Header: h, Region: region}, nil
}

// Close releases the decompressor.
func (r *Reader) Close() {
	r.dec.Close()
}
