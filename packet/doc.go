// Package packet frames a serialized region for storage or transport.
//
// A packet is
//
//	magic "LN" | version | flags | stack W | body W | body | checksum
//
// where stack is the inline length of the region, body is the region or its
// zstd compression, and the optional checksum (CRC32 or XXH64) covers
// everything from the version byte through the body. Declared lengths must
// match the input exactly.
package packet
