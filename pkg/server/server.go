package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"rawhttp/pkg/http"
	"rawhttp/pkg/router"
	"rawhttp/pkg/vfs"
	"rawhttp/pkg/vfs/diskfs"
	"rawhttp/pkg/vfs/memfs"
)

// ShutdownTimeout bounds how long Run waits for open connections.
const ShutdownTimeout = 10 * time.Second

// Server wires the file store, route table and connection server together.
type Server struct {
	cfg     Config
	store   vfs.Store
	routes  *router.Router
	server  *http.Server
	mu      sync.RWMutex
	started bool
}

// New creates a server from cfg. Files live under cfg.Directory, or in
// memory when it is empty.
func New(cfg Config) *Server {
	var store vfs.Store
	if cfg.Directory != "" {
		store = diskfs.New(cfg.Directory)
	} else {
		store = memfs.New()
	}
	return NewWithStore(cfg, store)
}

// NewWithStore creates a server that serves files from store.
func NewWithStore(cfg Config, store vfs.Store) *Server {
	cfg.setDefaults()
	routes := NewRoutes(store, cfg.Logger)
	return &Server{
		cfg:    cfg,
		store:  store,
		routes: routes,
		server: &http.Server{
			Addr:         cfg.Addr,
			Handler:      routes,
			Compressor:   http.NewCompressor(cfg.CompressionLevel),
			Logger:       cfg.Logger,
			IdleTimeout:  cfg.IdleTimeout,
			WriteTimeout: cfg.WriteTimeout,
			MaxLineBytes: cfg.MaxLineBytes,
			MaxBodyBytes: cfg.MaxBodyBytes,
		},
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// ListenAddr returns the bound address once the server is listening.
func (s *Server) ListenAddr() net.Addr {
	return s.server.ListenAddr()
}

// Store returns the file store behind /files.
func (s *Server) Store() vfs.Store {
	return s.store
}

// Routes returns the route table.
func (s *Server) Routes() *router.Router {
	return s.routes
}

// Started returns whether the server has been started.
func (s *Server) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func (s *Server) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("server already started")
	}
	s.started = true
	return nil
}

// ListenAndServe listens on the configured address and serves connections
// until Shutdown or Close.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves connections accepted from ln.
func (s *Server) Serve(ln net.Listener) error {
	if err := s.start(); err != nil {
		ln.Close()
		return err
	}
	for _, rt := range s.routes.Routes() {
		s.cfg.Logger.Debug().Str("method", rt.Method).Str("pattern", rt.Pattern).Msg("route")
	}
	return s.server.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Close closes the server immediately.
func (s *Server) Close() error {
	return s.server.Close()
}

// Run serves until ctx is cancelled, then shuts down, giving open
// connections up to ShutdownTimeout to finish.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.cfg.Logger.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.Shutdown(sctx); err != nil {
		s.cfg.Logger.Warn().Err(err).Msg("forced shutdown")
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// NewLogger builds the process logger writing to w. format is "console"
// (the default) or "json".
func NewLogger(w io.Writer, format string, level zerolog.Level) (zerolog.Logger, error) {
	switch format {
	case "", "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", format)
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
