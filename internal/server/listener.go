package server

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/infodancer/npcore/internal/logging"
)

// ConnectionHandler processes one accepted connection to completion.
type ConnectionHandler func(ctx context.Context, conn *Connection)

// ListenerConfig configures a single Listener.
type ListenerConfig struct {
	Address        string
	IdleTimeout    time.Duration
	CommandTimeout time.Duration
	MaxClients     int
	Logger         *slog.Logger
	Handler        ConnectionHandler
}

// Listener accepts connections on one address and dispatches each to
// a handler goroutine, enforcing a maximum client count.
type Listener struct {
	cfg     ListenerConfig
	limiter *ConnectionLimiter
	ln      net.Listener
}

// NewListener builds a Listener from cfg. The listening socket is not
// opened until Start is called.
func NewListener(cfg ListenerConfig) *Listener {
	max := cfg.MaxClients
	if max <= 0 {
		max = 1 << 30
	}
	return &Listener{cfg: cfg, limiter: NewConnectionLimiter(max)}
}

// Address returns the configured listen address.
func (l *Listener) Address() string { return l.cfg.Address }

// Start opens the listening socket and accepts connections until ctx
// is canceled or Close is called.
func (l *Listener) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.cfg.Address)
	if err != nil {
		return err
	}
	l.ln = ln

	go func() {
		<-ctx.Done()
		l.ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}

		if !l.limiter.TryAcquire() {
			conn.Close()
			continue
		}

		go func(conn net.Conn) {
			defer l.limiter.Release()
			l.handle(ctx, conn)
		}(conn)
	}
}

func (l *Listener) handle(ctx context.Context, netConn net.Conn) {
	defer netConn.Close()

	logger := l.cfg.Logger
	if logger == nil {
		logger = logging.New("info")
	}
	logger = logger.With(slog.String("remote_addr", netConn.RemoteAddr().String()))
	ctx = logging.WithTraceID(ctx, logger)

	conn := NewConnection(netConn, logging.FromContext(ctx), l.cfg.IdleTimeout, l.cfg.CommandTimeout)
	l.cfg.Handler(ctx, conn)
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}
