// Command npshelld is the single-process multiplex chat variant: one
// Go process, one goroutine per connected session, a shared in-memory
// session directory and user-pipe registry.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/infodancer/npcore/internal/config"
	"github.com/infodancer/npcore/internal/debugdump"
	"github.com/infodancer/npcore/internal/logging"
	"github.com/infodancer/npcore/internal/metrics"
	"github.com/infodancer/npcore/internal/server"
	"github.com/infodancer/npcore/internal/shell"
)

const banner = `****************************************
** Welcome to the information server. **
****************************************
`

func main() {
	flags := config.ParseFlags()

	cfg, err := config.LoadWithFlags(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	var collector metrics.Collector = &metrics.NoopCollector{}
	if cfg.Metrics.Enabled {
		collector = metrics.NewPrometheusCollector(prometheus.DefaultRegisterer)
	}

	registry := shell.NewRegistry(cfg.MaxClients)
	pipes := shell.NewMemUserPipeRegistry()

	srv := server.New(&cfg, logger)
	srv.SetHandler(func(ctx context.Context, conn *server.Connection) {
		handleSession(ctx, conn, registry, pipes, collector)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewHTTPServer(cfg.Metrics.Address, cfg.Metrics.Path, prometheus.DefaultGatherer)
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				logger.Error("metrics server error", "error", err.Error())
			}
		}()
		logger.Info("metrics server started", "address", cfg.Metrics.Address, "path", cfg.Metrics.Path)
	}

	logger.Info("starting npshelld", "hostname", cfg.Hostname, "listen", cfg.Listen)
	if err := srv.Run(ctx); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("npshelld stopped")
}

func handleSession(ctx context.Context, conn *server.Connection, registry *shell.Registry, pipes shell.UserPipeRegistry, collector metrics.Collector) {
	addr := conn.RemoteAddr().String()
	logger := conn.Logger()

	sess, outbox, err := registry.Allocate(addr)
	if err != nil {
		logger.Info("session rejected: registry full")
		fmt.Fprint(conn.Conn(), "*** Error: server is full. ***\n")
		return
	}
	defer registry.Release(sess.ID())
	collector.SessionOpened()
	defer collector.SessionClosed()

	netConn := conn.Conn()
	fmt.Fprint(netConn, banner)
	registry.Broadcast(fmt.Sprintf("*** User '%s' entered from %s. ***\n", sess.Name(), addr))

	done := make(chan struct{})
	go pumpOutbox(netConn, outbox, done)
	defer close(done)

	fmt.Fprint(netConn, "% ")

	scanner := bufio.NewScanner(netConn)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		verb := strings.Fields(strings.TrimSpace(line))[0]
		collector.CommandDispatched(verb)

		result := shell.RunLine(sess, registry, pipes, addr, netConn, netConn, line)
		debugdump.Value(logger, "command dispatched", sess)
		if result.Terminate {
			return
		}
		fmt.Fprint(netConn, "% ")
	}
}

func pumpOutbox(w io.Writer, outbox <-chan string, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg, ok := <-outbox:
			if !ok {
				return
			}
			fmt.Fprint(w, msg)
		}
	}
}
