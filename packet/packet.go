package packet

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/rawbytedev/lanes/errors"
	"github.com/rawbytedev/lanes/fixed"
)

const (
	Magic   = "LN"
	Version = 1

	// prefix is magic, version and flags
	prefix = len(Magic) + 2
	// HeaderSize is the length of everything before the body.
	HeaderSize = prefix + 2*fixed.Width
)

// DefaultMaxRegion bounds the decompressed size a Reader accepts.
const DefaultMaxRegion = 64 << 20

// Flags describe how the body is stored.
type Flags uint8

const (
	FlagCompressed Flags = 1 << iota
	FlagCRC32
	FlagXXHash

	knownFlags = FlagCompressed | FlagCRC32 | FlagXXHash
)

// Checksum selects the trailing integrity check.
type Checksum uint8

const (
	ChecksumNone Checksum = iota
	ChecksumCRC32
	ChecksumXXHash
)

func (c Checksum) flag() Flags {
	switch c {
	case ChecksumCRC32:
		return FlagCRC32
	case ChecksumXXHash:
		return FlagXXHash
	}
	return 0
}

// Size returns the number of trailing checksum bytes.
func (c Checksum) Size() int {
	switch c {
	case ChecksumCRC32:
		return crc32.Size
	case ChecksumXXHash:
		return 8
	}
	return 0
}

func (c Checksum) append(dst, covered []byte) []byte {
	switch c {
	case ChecksumCRC32:
		return binary.LittleEndian.AppendUint32(dst, crc32.ChecksumIEEE(covered))
	case ChecksumXXHash:
		return binary.LittleEndian.AppendUint64(dst, xxhash.Sum64(covered))
	}
	return dst
}

func (c Checksum) verify(covered, sum []byte) bool {
	switch c {
	case ChecksumCRC32:
		return binary.LittleEndian.Uint32(sum) == crc32.ChecksumIEEE(covered)
	case ChecksumXXHash:
		return binary.LittleEndian.Uint64(sum) == xxhash.Sum64(covered)
	}
	return true
}

func (c Checksum) String() string {
	switch c {
	case ChecksumNone:
		return "none"
	case ChecksumCRC32:
		return "crc32"
	case ChecksumXXHash:
		return "xxhash"
	}
	return "unknown"
}

// Options configure Writers and Readers.
type Options struct {
	// Compress stores the body zstd-compressed.
	Compress bool
	// Level is the zstd encoder level. Zero selects zstd.SpeedDefault.
	Level zstd.EncoderLevel
	// Checksum selects the trailing integrity check.
	Checksum Checksum
	// MaxRegion bounds the decompressed region a Reader accepts. Zero
	// selects DefaultMaxRegion.
	MaxRegion int
}

func (o Options) level() zstd.EncoderLevel {
	if o.Level == 0 {
		return zstd.SpeedDefault
	}
	return o.Level
}

func (o Options) maxRegion() int {
	if o.MaxRegion <= 0 {
		return DefaultMaxRegion
	}
	return o.MaxRegion
}

// Header is the decoded fixed part of a packet.
type Header struct {
	Version uint8
	Flags   Flags
	Stack   int
	Body    int
}

// Checksum returns the checksum the flags select.
func (h Header) Checksum() Checksum {
	switch {
	case h.Flags&FlagCRC32 != 0:
		return ChecksumCRC32
	case h.Flags&FlagXXHash != 0:
		return ChecksumXXHash
	}
	return ChecksumNone
}

// Compressed reports whether the body is zstd-compressed.
func (h Header) Compressed() bool { return h.Flags&FlagCompressed != 0 }

// Len returns the total packet length the header declares.
func (h Header) Len() int { return HeaderSize + h.Body + h.Checksum().Size() }

// ParseHeader reads and validates the fixed part of pkt.
func ParseHeader(pkt []byte) (Header, error) {
	var h Header
	if len(pkt) < HeaderSize {
		return h, errors.OutOfBounds(errors.PhasePacket, HeaderSize, len(pkt))
	}
	if string(pkt[:len(Magic)]) != Magic {
		return h, errors.New(errors.PhasePacket, errors.KindUnsupported).
			Value(pkt[:len(Magic)]).
			Detail("bad magic").
			Build()
	}
	h.Version, h.Flags = pkt[len(Magic)], Flags(pkt[len(Magic)+1])
	if h.Version != Version {
		return h, errors.New(errors.PhasePacket, errors.KindUnsupported).
			Value(h.Version).
			Detail("unsupported version").
			Build()
	}
	if h.Flags&^knownFlags != 0 || h.Flags&FlagCRC32 != 0 && h.Flags&FlagXXHash != 0 {
		return h, errors.New(errors.PhasePacket, errors.KindUnsupported).
			Value(h.Flags).
			Detail("invalid flags %08b", uint8(h.Flags)).
			Build()
	}

	var err error
	if h.Stack, err = readWord(pkt[prefix:]); err != nil {
		return h, err
	}
	if h.Body, err = readWord(pkt[prefix+fixed.Width:]); err != nil {
		return h, err
	}
	if !h.Compressed() && h.Stack > h.Body {
		return h, errors.OutOfBounds(errors.PhasePacket, h.Stack, h.Body)
	}
	return h, nil
}

func readWord(b []byte) (int, error) {
	u, err := fixed.UsizeFromLE(b[:fixed.Width])
	if err != nil {
		return 0, err
	}
	return u.Int()
}

func appendWord(dst []byte, n int) ([]byte, error) {
	u, err := fixed.NewUsize(n)
	if err != nil {
		return dst, err
	}
	return u.AppendLE(dst), nil
}
