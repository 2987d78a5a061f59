// Package fixed implements the portable integers used for every length,
// offset, element count and enum discriminant on the wire.
//
// The width is a build-time choice shared by the whole process:
//
//	go build                      # 4 bytes (default)
//	go build -tags lanes_fixed8   # 1 byte
//	go build -tags lanes_fixed16  # 2 bytes
//	go build -tags lanes_fixed64  # 8 bytes
//
// Data written by one width cannot be read by another. Nothing on the wire
// records the width, so mixing builds against the same bytes is undefined.
package fixed
