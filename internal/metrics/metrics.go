// Package metrics provides interfaces and implementations for
// collecting npshelld/npshelld-mp/npsocksd metrics. This package
// defines the Collector interface for recording metrics and the
// Server interface for exposing them.
package metrics

import "context"

// Collector defines the interface for recording shell and SOCKS
// daemon metrics.
type Collector interface {
	// Session metrics (shell daemons)
	SessionOpened()
	SessionClosed()
	CommandDispatched(verb string)

	// User-pipe metrics (shell daemons)
	UserPipeEdgeCreated()
	UserPipeEdgeConsumed()

	// SOCKS metrics
	SocksReply(command string, code int)
	SocksBytesRelayed(direction string, n int64)
}

// Server defines the interface for a metrics HTTP server.
type Server interface {
	// Start begins serving metrics. It blocks until the context is
	// canceled or an error occurs.
	Start(ctx context.Context) error

	// Shutdown gracefully stops the metrics server.
	Shutdown(ctx context.Context) error
}
