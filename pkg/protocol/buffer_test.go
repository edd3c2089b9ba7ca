package protocol

import (
	"encoding/json"
	"fmt"
	"testing"
)

func mustEncode(t *testing.T, v any) []byte {
	t.Helper()
	frame, err := Encode(v)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return frame
}

// TestSplitAtEveryOffset tests that a frame split at any byte boundary
// yields the same decoded request as an unsplit write.
func TestSplitAtEveryOffset(t *testing.T) {
	req := Request{
		ID:   json.RawMessage(`"split"`),
		Cmd:  CmdIsDir,
		Args: json.RawMessage(`{"path":"/tmp"}`),
	}
	frame := mustEncode(t, req)

	for offset := 0; offset <= len(frame); offset++ {
		var buf Buffer
		buf.Feed(frame[:offset])
		if payload, ok := buf.Next(); ok && offset < len(frame) {
			t.Fatalf("Offset %d: got premature frame %q", offset, payload)
		}
		buf.Feed(frame[offset:])

		payload, ok := buf.Next()
		if !ok {
			t.Fatalf("Offset %d: expected a complete frame", offset)
		}

		var decoded Request
		if err := Decode(payload, &decoded); err != nil {
			t.Fatalf("Offset %d: decode failed: %v", offset, err)
		}
		if decoded.Cmd != req.Cmd || string(decoded.ID) != string(req.ID) {
			t.Errorf("Offset %d: decoded %+v, want %+v", offset, decoded, req)
		}
		if buf.Pending() != 0 {
			t.Errorf("Offset %d: %d stray bytes left buffered", offset, buf.Pending())
		}
	}
}

// TestCoalescedBurst tests that N frames delivered in one chunk are all
// yielded before more input is required.
func TestCoalescedBurst(t *testing.T) {
	const n = 5
	var chunk []byte
	for i := 0; i < n; i++ {
		req := Request{
			ID:  json.RawMessage(fmt.Sprintf("%d", i)),
			Cmd: CmdPing,
		}
		chunk = append(chunk, mustEncode(t, req)...)
	}

	var buf Buffer
	buf.Feed(chunk)

	for i := 0; i < n; i++ {
		payload, ok := buf.Next()
		if !ok {
			t.Fatalf("Frame %d: expected a complete frame", i)
		}
		var decoded Request
		if err := Decode(payload, &decoded); err != nil {
			t.Fatalf("Frame %d: decode failed: %v", i, err)
		}
		if string(decoded.ID) != fmt.Sprintf("%d", i) {
			t.Errorf("Frame %d: got id %s, frames out of order", i, decoded.ID)
		}
	}
	if _, ok := buf.Next(); ok {
		t.Error("Expected no further frames")
	}
}

// TestPartialTrailingBytesRetained tests that a trailing partial frame
// survives until its remainder arrives.
func TestPartialTrailingBytesRetained(t *testing.T) {
	first := mustEncode(t, Request{ID: json.RawMessage(`1`), Cmd: CmdPing})
	second := mustEncode(t, Request{ID: json.RawMessage(`2`), Cmd: CmdAIStatus})

	var buf Buffer
	split := len(second) / 2
	buf.Feed(append(append([]byte{}, first...), second[:split]...))

	if _, ok := buf.Next(); !ok {
		t.Fatal("Expected the first frame")
	}
	if _, ok := buf.Next(); ok {
		t.Fatal("Second frame should still be incomplete")
	}

	buf.Feed(second[split:])
	payload, ok := buf.Next()
	if !ok {
		t.Fatal("Expected the second frame after its remainder")
	}
	var decoded Request
	if err := Decode(payload, &decoded); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Cmd != CmdAIStatus {
		t.Errorf("Expected cmd %q, got %q", CmdAIStatus, decoded.Cmd)
	}
}

// TestEmptyBufferYieldsNothing tests Next on a fresh buffer.
func TestEmptyBufferYieldsNothing(t *testing.T) {
	var buf Buffer
	if _, ok := buf.Next(); ok {
		t.Error("Fresh buffer should not yield a frame")
	}
}
