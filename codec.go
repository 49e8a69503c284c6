package tinyfs

import "encoding/binary"

// encodeInt32 packs a non-negative 32-bit value into 4 big-endian bytes.
// Block indices and file sizes are the only values ever encoded this way;
// negative values must never reach this function.
func encodeInt32(v int32, dest []byte) {
	binary.BigEndian.PutUint32(dest, uint32(v))
}

// decodeInt32 unpacks 4 big-endian bytes into a signed 32-bit value.
func decodeInt32(src []byte) int32 {
	return int32(binary.BigEndian.Uint32(src))
}
