// Package server implements the file vault's TCP acceptor and the
// per-connection request handler that sits on top of it.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/filevault/internal/logger"
	"github.com/marmos91/filevault/pkg/auditlog"
	"github.com/marmos91/filevault/pkg/config"
	"github.com/marmos91/filevault/pkg/filelock"
	"github.com/marmos91/filevault/pkg/metrics"
	"github.com/marmos91/filevault/pkg/security"
)

// Server is the file vault's TCP acceptor. It owns the shared state every
// connection handler reads and mutates: the lock table, the security
// tracker, and the audit/security log writers.
type Server struct {
	config    config.ServerConfig
	security  config.SecurityConfig
	storage   config.StorageConfig
	authToken string

	locks   *filelock.Table
	tracker *security.Tracker
	audit   *auditlog.Writer
	metrics metrics.Registry

	listenerMu sync.Mutex
	listener   net.Listener

	shutdownOnce sync.Once
	shutdown     chan struct{}

	activeConns       sync.WaitGroup
	connCount         atomic.Int32
	activeConnections sync.Map // remote addr -> net.Conn

	connSemaphore chan struct{}
}

// New constructs a Server. authToken is the shared secret every AUTH
// command is compared against.
func New(cfg *config.Config, authToken string) *Server {
	var sem chan struct{}
	if cfg.Server.MaxConnections > 0 {
		sem = make(chan struct{}, cfg.Server.MaxConnections)
	}

	return &Server{
		config:        cfg.Server,
		security:      cfg.Security,
		storage:       cfg.Storage,
		authToken:     authToken,
		locks:         filelock.New(),
		tracker:       security.New(cfg.Security.FailureThreshold, cfg.Security.BlockWindow, cfg.Security.MaxClientsTracked),
		audit:         auditlog.New(cfg.Storage.LogDir),
		shutdown:      make(chan struct{}),
		connSemaphore: sem,
	}
}

// SetMetrics attaches a metrics registry. Nil leaves metrics disabled.
func (s *Server) SetMetrics(m metrics.Registry) {
	s.metrics = m
}

// Serve accepts connections until ctx is cancelled or Stop is called. It
// blocks until the accept loop exits.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.config.Port, err)
	}

	s.listenerMu.Lock()
	s.listener = listener
	s.listenerMu.Unlock()

	logger.Info("file vault listening", "port", s.config.Port)

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received", "error", ctx.Err())
		s.initiateShutdown()
	}()

	for {
		if s.connSemaphore != nil {
			select {
			case s.connSemaphore <- struct{}{}:
			case <-s.shutdown:
				return s.gracefulShutdown()
			}
		}

		conn, err := s.listener.Accept()
		if err != nil {
			if s.connSemaphore != nil {
				<-s.connSemaphore
			}
			select {
			case <-s.shutdown:
				return s.gracefulShutdown()
			default:
				logger.Debug("error accepting connection", "error", err)
				continue
			}
		}

		s.activeConns.Add(1)
		s.connCount.Add(1)
		addr := conn.RemoteAddr().String()
		s.activeConnections.Store(addr, conn)

		if s.metrics != nil {
			s.metrics.RecordConnectionAccepted()
			s.metrics.SetActiveConnections(s.connCount.Load())
		}

		go func(addr string, conn net.Conn) {
			defer func() {
				s.activeConnections.Delete(addr)
				s.activeConns.Done()
				s.connCount.Add(-1)
				if s.connSemaphore != nil {
					<-s.connSemaphore
				}
				if s.metrics != nil {
					s.metrics.RecordConnectionClosed()
					s.metrics.SetActiveConnections(s.connCount.Load())
				}
			}()

			newConnection(s, conn).serve()
		}(addr, conn)
	}
}

// initiateShutdown closes the listener and the shutdown channel so the
// accept loop returns, and sets a short read deadline on every active
// connection to unblock any in-flight reads quickly.
func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)

		s.listenerMu.Lock()
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("error closing listener", "error", err)
			}
		}
		s.listenerMu.Unlock()

		deadline := time.Now().Add(100 * time.Millisecond)
		s.activeConnections.Range(func(_, value any) bool {
			if conn, ok := value.(net.Conn); ok {
				_ = conn.SetReadDeadline(deadline)
			}
			return true
		})
	})
}

// gracefulShutdown waits for active connections to finish, up to
// config.Server.ShutdownTimeout, then force-closes anything still open.
func (s *Server) gracefulShutdown() error {
	active := s.connCount.Load()
	logger.Info("waiting for active connections", "active", active, "timeout", s.config.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("graceful shutdown complete")
		return nil
	case <-time.After(s.config.ShutdownTimeout):
		remaining := s.connCount.Load()
		logger.Warn("shutdown timeout exceeded, forcing closure", "active", remaining)
		s.activeConnections.Range(func(_, value any) bool {
			if conn, ok := value.(net.Conn); ok {
				_ = conn.Close()
			}
			return true
		})
		return fmt.Errorf("shutdown timeout: %d connections force-closed", remaining)
	}
}

// Stop initiates graceful shutdown and waits for it to complete.
func (s *Server) Stop(ctx context.Context) error {
	s.initiateShutdown()

	if ctx == nil {
		return s.gracefulShutdown()
	}

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Port returns the configured listening port.
func (s *Server) Port() int {
	return s.config.Port
}

// ActiveConnections returns the current number of live connections.
func (s *Server) ActiveConnections() int32 {
	return s.connCount.Load()
}
