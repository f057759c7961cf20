package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServer exposes a Prometheus gatherer over HTTP at a configured
// path, implementing Server.
type HTTPServer struct {
	srv *http.Server
}

// NewHTTPServer builds an HTTPServer that serves gatherer's metrics at
// path on addr.
func NewHTTPServer(addr, path string, gatherer prometheus.Gatherer) *HTTPServer {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &HTTPServer{srv: &http.Server{Addr: addr, Handler: mux}}
}

// Start begins serving metrics. It blocks until the context is
// canceled or the listener errors.
func (s *HTTPServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Shutdown gracefully stops the metrics server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
