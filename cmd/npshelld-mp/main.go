// Command npshelld-mp is the multi-process chat variant: the listener
// process accepts connections and re-execs itself as a session-worker
// subprocess per connection, passing the client socket and a broker
// control socket by file descriptor. Re-invoking this same binary with
// argv[1] == shellmp.WorkerArg switches it into worker mode instead of
// starting a fresh listener.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/infodancer/npcore/internal/config"
	"github.com/infodancer/npcore/internal/logging"
	"github.com/infodancer/npcore/internal/shellmp"
)

func main() {
	if len(os.Args) >= 3 && os.Args[1] == shellmp.WorkerArg {
		runWorkerMode(os.Args[2])
		return
	}
	runListenerMode()
}

func runWorkerMode(addr string) {
	logger := logging.New(os.Getenv("NPCORE_LOG_LEVEL"))
	ctx := logging.WithTraceID(context.Background(), logger)

	if err := shellmp.RunWorker(ctx, addr); err != nil {
		fmt.Fprintf(os.Stderr, "worker error: %v\n", err)
		os.Exit(1)
	}
}

func runListenerMode() {
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
	os.Setenv("NPCORE_LOG_LEVEL", cfg.LogLevel)

	executable, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error resolving executable path: %v\n", err)
		os.Exit(1)
	}

	subServer := shellmp.NewSubprocessServer(executable, cfg.MaxClients)

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error listening on %s: %v\n", cfg.Listen, err)
		os.Exit(1)
	}
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logging.WithTraceID(ctx, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
		ln.Close()
	}()

	logger.Info("starting npshelld-mp", "hostname", cfg.Hostname, "listen", cfg.Listen)

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				logger.Info("npshelld-mp stopped")
				return
			default:
				logger.Error("accept error", "error", err.Error())
				continue
			}
		}

		addr := conn.RemoteAddr().String()
		go func(conn net.Conn) {
			if err := subServer.HandleConnection(ctx, conn, addr); err != nil {
				logger.Error("worker connection error", "addr", addr, "error", err.Error())
			}
		}(conn)
	}
}
