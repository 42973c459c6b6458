package compress

import "hash/crc32"

// castagnoliTable is the CRC32C (Castagnoli) polynomial table used for
// both frame header/footer checksums. The standard library's hash/crc32
// package already exposes this polynomial as a first-class constant, so
// no third-party CRC32C implementation is needed here — see DESIGN.md.
var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C returns the Castagnoli CRC32 of data, continuing from prev (pass
// 0 to start a new checksum).
func CRC32C(prev uint32, data []byte) uint32 {
	return crc32.Update(prev, castagnoliTable, data)
}
