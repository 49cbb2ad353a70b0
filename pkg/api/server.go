package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/filevault/internal/logger"
	"github.com/marmos91/filevault/pkg/config"
)

// Server provides the admin HTTP surface: liveness, readiness, and metrics.
//
// It is a genuinely separate surface from the line-protocol TCP service —
// it never participates in AUTH/command dispatch. It exists purely as an
// operability concern, the way every teacher service carries one.
type Server struct {
	server       *http.Server
	config       config.AdminConfig
	shutdownOnce sync.Once
}

// NewServer creates a new admin HTTP server in a stopped state. Call
// Start() to begin serving requests.
func NewServer(cfg config.AdminConfig, metricsEnabled bool, storageDir, metadataDir, logDir string) *Server {
	router := NewRouter(storageDir, metadataDir, logDir, metricsEnabled)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		server: server,
		config: cfg,
	}
}

// Start starts the admin HTTP server and blocks until the context is
// cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("admin server listening", "port", s.config.Port)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("admin server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("admin server failed: %w", err)
	}
}

// Stop initiates graceful shutdown of the admin HTTP server. Safe to call
// multiple times and concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("admin server shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("admin server shutdown error: %w", err)
			logger.Error("admin server shutdown error", "error", err)
		} else {
			logger.Info("admin server stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server is listening on.
func (s *Server) Port() int {
	return s.config.Port
}
