//go:build lanes_fixed8

package fixed

// Width is the byte width of every portable integer on the wire.
const Width = 1

type (
	word  = uint8
	sword = int8
)

func putWord(b []byte, v word) { b[0] = v }

func getWord(b []byte) word { return b[0] }
