//go:build lanes_fixed64

package fixed

import "encoding/binary"

// Width is the byte width of every portable integer on the wire.
const Width = 8

type (
	word  = uint64
	sword = int64
)

func putWord(b []byte, v word) { binary.LittleEndian.PutUint64(b, v) }

func getWord(b []byte) word { return binary.LittleEndian.Uint64(b) }
