package server

import (
	"encoding/json"
	"net"
	"sync"

	"github.com/Vic92548/VCCE-Server/pkg/protocol"
)

// conn wraps a network connection with serialized frame writes, so
// stream events pushed from runner goroutines interleave safely with
// responses written by the dispatch loop.
type conn struct {
	mu sync.Mutex
	nc net.Conn
}

func newConn(nc net.Conn) *conn {
	return &conn{nc: nc}
}

func (c *conn) writeFrame(v any) error {
	frame, err := protocol.Encode(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.nc.Write(frame)
	return err
}

func (c *conn) writeResponse(resp protocol.Response) error {
	return c.writeFrame(resp)
}

func (c *conn) writeEvent(ev protocol.StreamEvent) error {
	return c.writeFrame(ev)
}

// streamSink delivers one exec request's events to the connection. It
// is scoped to a single request id and closes itself on the terminal
// exit event; anything emitted afterwards is dropped.
type streamSink struct {
	c      *conn
	id     json.RawMessage
	onExit func()

	mu     sync.Mutex
	closed bool
}

func newStreamSink(c *conn, id json.RawMessage) *streamSink {
	return &streamSink{c: c, id: id}
}

func (s *streamSink) Stdout(data string) {
	s.emit(protocol.StreamEvent{ID: s.id, Event: protocol.EventStdout, Data: data})
}

func (s *streamSink) Stderr(data string) {
	s.emit(protocol.StreamEvent{ID: s.id, Event: protocol.EventStderr, Data: data})
}

func (s *streamSink) Exit(code int) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.c.writeEvent(protocol.ExitEvent(s.id, code))
	if s.onExit != nil {
		s.onExit()
	}
}

func (s *streamSink) emit(ev protocol.StreamEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.c.writeEvent(ev)
}
