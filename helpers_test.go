package lanes

import "github.com/rawbytedev/lanes/fixed"

const W = fixed.Width

func usizeLE(n int) []byte {
	u, err := fixed.NewUsize(n)
	if err != nil {
		panic(err)
	}
	return u.AppendLE(nil)
}
