// Package ipc exposes a bridge host over a unix socket using newline
// delimited JSON, one request per connection.
package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/1broseidon/webviewd/internal/bridge"
	"github.com/1broseidon/webviewd/internal/logging"
)

// Caller runs named operations. *bridge.Host implements it.
type Caller interface {
	Call(ctx context.Context, name string, payload []byte) ([]byte, error)
	Status(ctx context.Context) (bridge.Status, error)
}

// Server handles IPC requests from clients.
type Server struct {
	socketPath string
	caller     Caller
	logger     *logging.Logger

	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	conns    sync.WaitGroup

	shutdownMu   sync.Mutex
	shuttingDown bool
	active       map[net.Conn]struct{}
}

// NewServer creates a server that will listen on socketPath and forward
// requests to caller. A nil logger discards output.
func NewServer(socketPath string, caller Caller, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		socketPath: socketPath,
		caller:     caller,
		logger:     logger.Named("ipc"),
		ctx:        ctx,
		cancel:     cancel,
		active:     make(map[net.Conn]struct{}),
	}
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections. A stale socket file left by a
// previous run is removed first.
func (s *Server) Start() error {
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("listening", zap.String("socket", s.socketPath))
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.stopping() {
				return
			}
			s.logger.Warn("accept error", zap.Error(err))
			continue
		}

		if !s.track(conn) {
			conn.Close()
			return
		}
		go func() {
			defer s.conns.Done()
			defer s.untrack(conn)
			s.handleConnection(conn)
		}()
	}
}

// track registers conn so Stop can close it and wait for its handler. It
// reports false once the server is shutting down.
func (s *Server) track(conn net.Conn) bool {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	if s.shuttingDown {
		return false
	}
	s.active[conn] = struct{}{}
	s.conns.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.shutdownMu.Lock()
	delete(s.active, conn)
	s.shutdownMu.Unlock()
}

func (s *Server) stopping() bool {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	return s.shuttingDown
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	// A client gets DefaultTimeout to deliver its request line.
	conn.SetReadDeadline(time.Now().Add(DefaultTimeout))
	data, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(data) > 0) {
		s.logger.Debug("read error", zap.Error(err))
		return
	}

	resp := s.Handle(s.ctx, data)
	if _, err := conn.Write(append(resp, '\n')); err != nil {
		s.logger.Debug("write error", zap.Error(err))
	}
}

// Handle answers one request line with one envelope. It never fails: every
// problem is reported inside the envelope.
func (s *Server) Handle(ctx context.Context, line []byte) []byte {
	req, err := ParseRequest(line)
	if err != nil {
		return bridge.EncodeErr(fmt.Errorf("%w: %v", bridge.ErrInvalidRequest, err))
	}

	if req.Op == OpStatus {
		return s.handleStatus(ctx)
	}

	out, err := s.caller.Call(ctx, req.Op, req.Payload)
	if err != nil {
		if errors.Is(err, bridge.ErrUnknownOp) {
			s.logger.Warn("unknown operation", zap.String("op", req.Op))
		}
		return bridge.EncodeErr(err)
	}
	return out
}

func (s *Server) handleStatus(ctx context.Context) []byte {
	st, err := s.caller.Status(ctx)
	if err != nil {
		return bridge.EncodeErr(err)
	}
	ids := make([]uint32, 0, len(st.Instances))
	for _, id := range st.Instances {
		ids = append(ids, uint32(id))
	}
	return bridge.EncodeOK(&StatusData{
		Backend:       st.Backend,
		Instances:     ids,
		UptimeSeconds: int64(st.Uptime.Seconds()),
	})
}

// Stop closes the listener and every open connection, cancels in-flight
// calls, waits for handlers to return and removes the socket file.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	if s.shuttingDown {
		s.shutdownMu.Unlock()
		return
	}
	s.shuttingDown = true
	for conn := range s.active {
		conn.Close()
	}
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.cancel()
	s.conns.Wait()
	os.Remove(s.socketPath)
}
