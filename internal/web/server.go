package web

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"
)

// =============================================================================
// Local HTTP Server
// Used outside Lambda; serves the API router until its context ends
// =============================================================================

// ServerConfig holds HTTP server timeouts
type ServerConfig struct {
	ReadTimeout time.Duration

	// WriteTimeout covers product create, which uploads media and posts before it answers
	WriteTimeout time.Duration

	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// ShutdownTimeout bounds how long in-flight requests may finish after Run's context ends
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns the timeouts used by cmd/server
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    5 * time.Minute,
		IdleTimeout:     60 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Server serves an API handler on a TCP address
type Server struct {
	addr       string
	config     ServerConfig
	router     http.Handler
	httpServer *http.Server
}

// NewServer creates a server with DefaultServerConfig. A nil router serves an empty API.
func NewServer(addr string, router http.Handler) *Server {
	return NewServerWithConfig(addr, router, DefaultServerConfig())
}

// NewServerWithConfig creates a server with explicit timeouts
func NewServerWithConfig(addr string, router http.Handler, config ServerConfig) *Server {
	if addr == "" {
		addr = ":8080"
	}
	if router == nil {
		router = NewRouter(RouterDeps{})
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultServerConfig().ShutdownTimeout
	}
	s := &Server{addr: addr, config: config, router: router}
	s.httpServer = &http.Server{
		Addr:           addr,
		Handler:        router,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}
	return s
}

// Handler returns the served router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return s.addr
}

// Run listens on the configured address and serves until ctx is done, then
// drains in-flight requests. A clean shutdown returns nil.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", ln.Addr())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
