//go:build !lanes_fixed8 && !lanes_fixed16 && !lanes_fixed64

package fixed

import "encoding/binary"

// Width is the byte width of every portable integer on the wire.
const Width = 4

type (
	word  = uint32
	sword = int32
)

func putWord(b []byte, v word) { binary.LittleEndian.PutUint32(b, v) }

func getWord(b []byte) word { return binary.LittleEndian.Uint32(b) }
