package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// HeaderSize is the length of the frame prefix in bytes.
const HeaderSize = 4

// ErrMalformedPayload indicates a frame payload that is not valid JSON.
// Receiving one is connection-fatal.
var ErrMalformedPayload = fmt.Errorf("malformed payload")

// Encode serializes v as JSON and prepends a 4-byte little-endian
// length prefix. Payloads whose length does not fit in the prefix are
// rejected, never truncated.
func Encode(v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	if uint64(len(payload)) > math.MaxUint32 {
		return nil, fmt.Errorf("encode frame: payload of %d bytes overflows length prefix", len(payload))
	}

	buf := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf[:HeaderSize], uint32(len(payload)))
	copy(buf[HeaderSize:], payload)
	return buf, nil
}

// Decode parses a frame payload (prefix already stripped) into v.
func Decode(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}
