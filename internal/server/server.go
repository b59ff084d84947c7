// Package server accepts raw TCP connections and serves one request per
// connection. The listener, wire codec and handler together are the bridge
// that exposes the on-device engine to other devices on the same network.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aidarkhanov/nanoid"
	"go.uber.org/zap"

	"github.com/ASSATALK/ios-project/internal/engine"
	"github.com/ASSATALK/ios-project/internal/metrics"
	"github.com/ASSATALK/ios-project/internal/shared"
	"github.com/ASSATALK/ios-project/internal/wire"
)

type Config struct {
	// Port is fixed per build; 0 is only used by tests to grab a free port.
	Port int
}

type Server struct {
	cfg        Config
	log        *zap.SugaredLogger
	handler    *Handler
	ln         net.Listener
	wg         sync.WaitGroup
	inShutdown atomic.Bool
}

func New(cfg Config, eng engine.Engine, model string, log *zap.SugaredLogger) *Server {
	return &Server{
		cfg:     cfg,
		log:     log,
		handler: NewHandler(eng, model, log),
	}
}

// Start binds the listener. A bind failure is fatal to the host application;
// it is returned, not retried.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("binding port %d: %w", s.cfg.Port, err)
	}
	s.ln = ln
	return nil
}

// Addr is the bound listener address; valid after Start.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts connections until Shutdown closes the listener. Accept
// failures during shutdown are expected and swallowed.
func (s *Server) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.inShutdown.Load() {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// Shutdown stops accepting and waits for the in-flight connections, bounded
// by ctx. Called when the host application goes to background or exits.
func (s *Server) Shutdown(ctx context.Context) error {
	s.inShutdown.Store(true)
	if s.ln != nil {
		_ = s.ln.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handleConn owns one exchange end to end: bounded read, parse, dispatch,
// close. Transport failures close the connection with no response.
func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	reqID, _ := nanoid.Generate(shared.RequestIDAlphabet, shared.RequestIDLength)
	log := s.log.With("request_id", "req_"+reqID)
	start := time.Now()

	raw, err := readRequest(conn)
	if err != nil {
		log.Warnw("dropping connection", "error", err)
		return
	}

	req, err := wire.ParseRequest(raw)
	if err != nil {
		log.Warnw("malformed request", "error", err)
		return
	}
	log = log.With("method", req.Method, "path", req.Path)

	_ = conn.SetWriteDeadline(time.Now().Add(shared.ConnWriteTimeout))
	status := s.handler.handle(req, conn, log)

	log.Infow("end_of_request", "status_code", status, "duration", time.Since(start).String())
	metrics.ResponseCodes.WithLabelValues(req.Path, strconv.Itoa(status)).Inc()
}

// readRequest reads until the request is complete per its Content-Length,
// the peer half-closes, or the bounded buffer fills.
func readRequest(conn net.Conn) ([]byte, error) {
	_ = conn.SetReadDeadline(time.Now().Add(shared.ConnReadTimeout))

	var buf []byte
	tmp := make([]byte, 4096)
	for {
		n, err := conn.Read(tmp)
		buf = append(buf, tmp[:n]...)
		if len(buf) > shared.MaxRequestBytes {
			return nil, fmt.Errorf("request exceeds %d bytes", shared.MaxRequestBytes)
		}
		if wire.RequestComplete(buf) {
			return buf, nil
		}
		if err != nil {
			if err == io.EOF && len(buf) > 0 {
				return nil, errors.New("connection closed before request completed")
			}
			return nil, err
		}
	}
}
