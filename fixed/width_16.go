//go:build lanes_fixed16

package fixed

import "encoding/binary"

// Width is the byte width of every portable integer on the wire.
const Width = 2

type (
	word  = uint16
	sword = int16
)

func putWord(b []byte, v word) { binary.LittleEndian.PutUint16(b, v) }

func getWord(b []byte) word { return binary.LittleEndian.Uint16(b) }
