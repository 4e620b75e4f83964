package dnp3

import (
	"encoding/binary"
	"fmt"
)

// Fixed payload sizes for the handful of non-indexed (count-qualifier,
// no-prefix) static object variations the engine itself decodes: Group 50
// Variation 1 (absolute time, 6 bytes) and Group 52 Variations 1/2 (restart
// delay in seconds/milliseconds, 2 bytes each).
func init() {
	registerFixedSize(50, 1, 6)
	registerFixedSize(52, 1, 2)
	registerFixedSize(52, 2, 2)
}

var fixedSizes = map[[2]uint8]int{}

func registerFixedSize(group, variation uint8, size int) {
	fixedSizes[[2]uint8{group, variation}] = size
}

func fixedObjectSize(group, variation uint8) int {
	return fixedSizes[[2]uint8{group, variation}]
}

// DecodeUint16LE decodes a little-endian 16-bit field (e.g. a Group 52
// restart-delay payload).
func DecodeUint16LE(data []byte) (uint16, error) {
	if len(data) < 2 {
		return 0, fmt.Errorf("dnp3: short uint16 payload: %d bytes", len(data))
	}
	return binary.LittleEndian.Uint16(data), nil
}

// DecodeAbsoluteTime decodes a Group 50 Variation 1 48-bit little-endian
// millisecond timestamp.
func DecodeAbsoluteTime(data []byte) (uint64, error) {
	if len(data) < 6 {
		return 0, fmt.Errorf("dnp3: short time payload: %d bytes", len(data))
	}
	var v uint64
	for i := 0; i < 6; i++ {
		v |= uint64(data[i]) << (8 * i)
	}
	return v, nil
}

// EncodeAbsoluteTime encodes ms as a 6-byte little-endian Group 50
// Variation 1 payload. ms must fit the 48-bit DNP3 timestamp bound.
func EncodeAbsoluteTime(ms uint64) []byte {
	b := make([]byte, 6)
	v := ms & 0xFFFFFFFFFFFF
	for i := 0; i < 6; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

// MaxTimestampMillis is the largest value a 48-bit DNP3 timestamp can hold.
const MaxTimestampMillis = (uint64(1) << 48) - 1

// FindHeader returns the first header matching group/variation, if any.
func FindHeader(headers []ObjectHeader, group, variation uint8) (ObjectHeader, bool) {
	for _, h := range headers {
		if h.Group == group && h.Variation == variation {
			return h, true
		}
	}
	return ObjectHeader{}, false
}
