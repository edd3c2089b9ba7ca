package protocol

import "encoding/binary"

// Buffer incrementally assembles an arbitrarily-chunked byte stream
// into complete frames. It retains partial trailing bytes between
// feeds, so a frame split at any offset is reassembled once the rest
// arrives.
type Buffer struct {
	buf []byte
}

// Feed appends a chunk read from the connection.
func (b *Buffer) Feed(p []byte) {
	b.buf = append(b.buf, p...)
}

// Next returns the payload of the next complete frame, or false when
// fewer than a full frame is buffered. Call it in a loop after each
// Feed: a burst of coalesced frames yields all of them.
func (b *Buffer) Next() ([]byte, bool) {
	if len(b.buf) < HeaderSize {
		return nil, false
	}
	length := int(binary.LittleEndian.Uint32(b.buf[:HeaderSize]))
	if len(b.buf) < HeaderSize+length {
		return nil, false
	}

	payload := make([]byte, length)
	copy(payload, b.buf[HeaderSize:HeaderSize+length])
	b.buf = b.buf[HeaderSize+length:]
	return payload, true
}

// Pending returns the number of buffered bytes not yet consumed.
func (b *Buffer) Pending() int {
	return len(b.buf)
}
