package cram

import (
	"hash"
	"hash/crc32"
)

// newCRC32 returns a running IEEE CRC32 accumulator, the variant zlib
// (and so CRAM's BD/SD tags) use.
func newCRC32() hash.Hash32 { return crc32.NewIEEE() }
