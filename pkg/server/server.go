// Package server accepts editor connections and dispatches framed
// commands to their handlers.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/Vic92548/VCCE-Server/pkg/ai"
	"github.com/Vic92548/VCCE-Server/pkg/config"
	"github.com/Vic92548/VCCE-Server/pkg/logger"
	"github.com/Vic92548/VCCE-Server/pkg/patch"
	"github.com/Vic92548/VCCE-Server/pkg/protocol"
	"github.com/Vic92548/VCCE-Server/pkg/runner"
)

// result is what a value handler produces for a successful response.
type result struct {
	data any
	meta any
}

// handlerFunc handles one request/response command. A returned error
// is reported as ok:false on that request and never faults the
// connection.
type handlerFunc func(ctx context.Context, args json.RawMessage) (result, error)

// Server handles editor connections over TCP. The context cache and
// patch registry behind the broker are shared across all connections.
type Server struct {
	cfg      *config.Config
	log      *logger.Logger
	broker   *ai.Broker
	patches  *patch.Registry
	handlers map[string]handlerFunc
	metrics  *Metrics

	mu       sync.Mutex
	listener net.Listener
}

// New creates a server with its full command table registered.
func New(cfg *config.Config, log *logger.Logger, broker *ai.Broker, patches *patch.Registry) *Server {
	s := &Server{
		cfg:     cfg,
		log:     log,
		broker:  broker,
		patches: patches,
		metrics: NewMetrics(),
	}
	s.registerHandlers()
	return s
}

// Metrics exposes the server's counters, for the debug HTTP endpoint.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// ListenAndServe binds the configured address and serves connections
// until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Listen, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.log.Info("listening on %s", ln.Addr())

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("accept failed: %w", err)
			}
		}
		go s.handleConn(ctx, nc)
	}
}

// Addr returns the bound listen address, for tests using port 0.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// handleConn runs one connection's read loop. Frame decoding and value
// handlers run sequentially here; exec hands off to a goroutine whose
// events interleave with later responses. Closing the connection
// cancels its context, which kills any children it spawned.
func (s *Server) handleConn(parent context.Context, nc net.Conn) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	defer nc.Close()

	s.log.Debug("connection from %s", nc.RemoteAddr())
	s.metrics.ConnOpened()
	defer s.metrics.ConnClosed()
	c := newConn(nc)

	var buf protocol.Buffer
	chunk := make([]byte, 64*1024)
	for {
		n, err := nc.Read(chunk)
		if n > 0 {
			buf.Feed(chunk[:n])
			// Drain every complete frame the chunk completed; a burst
			// of requests may arrive coalesced in one read.
			for {
				payload, ok := buf.Next()
				if !ok {
					break
				}

				var req protocol.Request
				if decodeErr := protocol.Decode(payload, &req); decodeErr != nil {
					s.metrics.MalformedFrame()
					s.log.Warn("closing %s: %v", nc.RemoteAddr(), decodeErr)
					c.writeResponse(protocol.Response{ID: nil, OK: false, Data: "Invalid JSON"})
					return
				}
				s.dispatch(ctx, c, req)
			}
		}
		if err != nil {
			s.log.Debug("connection %s closed: %v", nc.RemoteAddr(), err)
			return
		}
	}
}

// dispatch routes one request. Unknown commands and handler failures
// are reported on the request id; the connection stays usable.
func (s *Server) dispatch(ctx context.Context, c *conn, req protocol.Request) {
	if req.Cmd == protocol.CmdExec {
		s.dispatchExec(ctx, c, req)
		return
	}

	handler, ok := s.handlers[req.Cmd]
	if !ok {
		c.writeResponse(protocol.Response{
			ID:   req.ID,
			OK:   false,
			Data: fmt.Sprintf("Unknown command: %s", req.Cmd),
		})
		return
	}

	start := time.Now()
	res, err := handler(ctx, req.Args)
	s.metrics.CommandDone(req.Cmd, time.Since(start), err != nil)
	if err != nil {
		s.log.Debug("command %s failed: %v", req.Cmd, err)
		c.writeResponse(protocol.Response{ID: req.ID, OK: false, Data: err.Error()})
		return
	}
	c.writeResponse(protocol.Response{ID: req.ID, OK: true, Data: res.data, Meta: res.meta})
}

// dispatchExec validates the exec arguments synchronously, writes the
// acknowledgment, and only then starts the process goroutine, so the
// ack always precedes the first stream event.
func (s *Server) dispatchExec(ctx context.Context, c *conn, req protocol.Request) {
	var args struct {
		Cwd     string `json:"cwd"`
		Command string `json:"command"`
	}
	if err := decodeArgs(req.Args, &args); err != nil {
		c.writeResponse(protocol.Response{ID: req.ID, OK: false, Data: err.Error()})
		return
	}
	if strings.TrimSpace(args.Command) == "" {
		c.writeResponse(protocol.Response{ID: req.ID, OK: false, Data: "exec requires a command argument"})
		return
	}

	c.writeResponse(protocol.Response{ID: req.ID, OK: true, Started: true})

	s.metrics.ExecStarted()
	sink := newStreamSink(c, req.ID)
	sink.onExit = s.metrics.ExecFinished
	go runner.Run(ctx, args.Cwd, args.Command, sink)
}

// decodeArgs unmarshals the args object; absent args decode to zero
// values and each handler validates what it requires.
func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid arguments: %v", err)
	}
	return nil
}
