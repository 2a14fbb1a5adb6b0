package localserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"time"
)

// Server serves an http.Handler on a Unix socket.
type Server struct {
	path     string
	srv      *http.Server
	listener net.Listener
	running  atomic.Bool
}

// New creates a new local server.
func New(socketPath string, handler http.Handler) *Server {
	return &Server{
		path: socketPath,
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Path returns the socket path.
func (s *Server) Path() string {
	return s.path
}

// Listen creates the socket. A stale socket file left by a crashed
// process is replaced; a live one is an error.
func (s *Server) Listen() error {
	if _, err := os.Stat(s.path); err == nil {
		if conn, err := net.DialTimeout("unix", s.path, time.Second); err == nil {
			_ = conn.Close()
			return fmt.Errorf("socket %s is in use", s.path)
		}
		if err := os.Remove(s.path); err != nil {
			return fmt.Errorf("remove stale socket: %w", err)
		}
	}

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return err
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		_ = ln.Close()
		return err
	}
	s.listener = ln
	return nil
}

// Serve serves on the socket created by Listen until Shutdown. It returns
// nil after a graceful shutdown.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("localserver: Listen not called")
	}
	s.running.Store(true)
	err := s.srv.Serve(s.listener)
	if !s.running.Load() || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServe combines Listen and Serve.
func (s *Server) ListenAndServe() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Shutdown drains active requests and removes the socket file.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)
	err := s.srv.Shutdown(ctx)
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
		err = rmErr
	}
	return err
}
