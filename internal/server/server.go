// Package server hosts line-oriented TCP sessions for the npshelld and
// npsocksd daemons: accept a connection, wrap it as a Connection, and
// hand it to a ConnectionHandler. npshelld-mp runs its own accept loop
// instead.
package server

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/infodancer/npcore/internal/config"
	"github.com/infodancer/npcore/internal/logging"
)

// Server coordinates one or more Listeners sharing a handler.
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	handler ConnectionHandler

	listeners []*Listener
	mu        sync.Mutex
}

// New creates a new Server with the given configuration and logger.
// If logger is nil, one is built from cfg.LogLevel.
func New(cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.New(cfg.LogLevel)
	}
	return &Server{cfg: cfg, logger: logger}
}

// SetHandler sets the connection handler for all listeners. Must be
// called before Run.
func (s *Server) SetHandler(handler ConnectionHandler) {
	s.handler = handler
}

// Run starts a listener on cfg.Listen and blocks until the context is
// canceled or the listener errors.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.handler == nil {
		s.mu.Unlock()
		return errNoHandler
	}

	listener := NewListener(ListenerConfig{
		Address:        s.cfg.Listen,
		IdleTimeout:    s.cfg.Timeouts.IdleTimeout(),
		CommandTimeout: s.cfg.Timeouts.CommandTimeout(),
		MaxClients:     s.cfg.MaxClients,
		Logger:         s.logger,
		Handler:        s.handler,
	})
	s.listeners = append(s.listeners, listener)
	s.mu.Unlock()

	s.logger.Info("starting server",
		slog.String("hostname", s.cfg.Hostname),
		slog.String("listen", s.cfg.Listen),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return listener.Start(groupCtx)
	})

	err := group.Wait()
	s.logger.Info("server stopped")
	if err != nil {
		return err
	}
	return ctx.Err()
}

// Shutdown stops all listeners.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.listeners {
		_ = l.Close()
	}
}

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger { return s.logger }

// Config returns the server's configuration.
func (s *Server) Config() *config.Config { return s.cfg }
