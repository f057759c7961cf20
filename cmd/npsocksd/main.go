// Command npsocksd is a SOCKS4/4A proxy daemon: it accepts TCP
// connections, parses one SOCKS4/4A request per connection, checks it
// against a firewall rule file reloaded on every request, and relays
// bytes for CONNECT/BIND requests the firewall allows.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/infodancer/npcore/internal/config"
	"github.com/infodancer/npcore/internal/logging"
	"github.com/infodancer/npcore/internal/metrics"
	"github.com/infodancer/npcore/internal/server"
	"github.com/infodancer/npcore/internal/socks"
)

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

	fw := socks.NewFirewall(cfg.Socks.RulesFile)

	srv := server.New(&cfg, logger)
	srv.SetHandler(func(ctx context.Context, conn *server.Connection) {
		socks.HandleConn(ctx, conn.Conn(), fw, collector)
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

	logger.Info("starting npsocksd", "hostname", cfg.Hostname, "listen", cfg.Listen, "rules_file", cfg.Socks.RulesFile)
	if err := srv.Run(ctx); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("npsocksd stopped")
}
