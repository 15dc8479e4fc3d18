package checksum

import "github.com/zeebo/xxh3"

// XXH3_64bits computes the 64-bit XXH3 hash of data using the real xxh3
// implementation rather than a hand-rolled reimplementation of the
// algorithm.
func XXH3_64bits(data []byte) uint64 {
	return xxh3.Hash(data)
}

// XXH3Checksum folds the 64-bit XXH3 hash of data down to 32 bits for use as
// a Record/Ledger checksum alongside CRC32C.
func XXH3Checksum(data []byte) uint32 {
	h := xxh3.Hash(data)
	return uint32(h) ^ uint32(h>>32)
}

// XXH3ChecksumWithLastByte computes the XXH3 checksum of data with a
// logically-appended trailing byte that is not physically present in data
// (e.g. a compression tag stored adjacent to, rather than inside, the
// checksummed buffer).
func XXH3ChecksumWithLastByte(data []byte, lastByte byte) uint32 {
	buf := make([]byte, len(data)+1)
	copy(buf, data)
	buf[len(data)] = lastByte
	return XXH3Checksum(buf)
}
