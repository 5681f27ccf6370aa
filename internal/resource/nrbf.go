package resource

import (
	"encoding/binary"
	"fmt"
)

// NRBF (binary formatter) record identifiers used to locate the byte array
// member of serialized System.Drawing and ImageListStreamer objects.
const (
	nrbfSerializedStreamHeader = 0x00
	nrbfArraySinglePrimitive   = 0x0f
	nrbfPrimitiveByte          = 0x02
)

// extractByteArray returns the first single-dimension byte array record of
// a binary formatter stream. Icon, Bitmap and ImageListStreamer all keep
// their payload in exactly one such member (IconData / Data).
func extractByteArray(payload []byte) ([]byte, error) {
	if len(payload) == 0 || payload[0] != nrbfSerializedStreamHeader {
		return nil, fmt.Errorf("missing binary formatter stream header")
	}

	// record type (1) + object id (4) + length (4) + primitive type (1)
	const recordHeaderLen = 10
	for i := 1; i+recordHeaderLen <= len(payload); i++ {
		if payload[i] != nrbfArraySinglePrimitive || payload[i+9] != nrbfPrimitiveByte {
			continue
		}
		n := int(int32(binary.LittleEndian.Uint32(payload[i+5:])))
		start := i + recordHeaderLen
		if n <= 0 || start+n > len(payload) {
			continue
		}
		return payload[start : start+n], nil
	}

	return nil, fmt.Errorf("no byte array record in %d byte serialized object", len(payload))
}
