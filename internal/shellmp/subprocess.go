package shellmp

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"github.com/infodancer/npcore/internal/logging"
)

// Fd layout inherited by a session-worker subprocess, mirroring the
// teacher's cmd/pop3d/handler.go constants exactly in spirit: fixed,
// documented fd numbers rather than magic numbers scattered through
// the spawn and handler sides.
const (
	connFD      = 3 // the accepted client socket
	brokerFD    = 4 // control socket to the broker (this process)
	workerIDArg = "shellmp-worker"
)

// WorkerArg is the argv[1] value cmd/npshelld-mp checks at startup to
// decide whether it is running as the listener/broker or as a
// re-exec'd session worker.
const WorkerArg = workerIDArg

// SubprocessServer is the multi-process concurrency variant: one real
// OS process per connection, fork-equivalent via os/exec re-exec of
// this same binary, descriptor-passing via cmd.ExtraFiles. It owns the
// Broker, since it is the one process that never forks away and so is
// the natural home for the canonical session directory.
type SubprocessServer struct {
	Broker     *Broker
	Executable string // os.Executable() result, cached at startup
}

// NewSubprocessServer returns a server ready to spawn workers via a
// re-exec of the given executable path.
func NewSubprocessServer(executable string, maxClients int) *SubprocessServer {
	return &SubprocessServer{
		Broker:     NewBroker(maxClients),
		Executable: executable,
	}
}

// HandleConnection spawns a worker subprocess for one accepted
// connection and waits for it to exit. It is meant to be called on its
// own goroutine per connection by the accept loop the daemon binary
// owns (accept-loop dispatch is outside this package's scope; it is
// supplied by the cmd/npshelld-mp entrypoint).
func (s *SubprocessServer) HandleConnection(ctx context.Context, conn net.Conn, addr string) error {
	logger := logging.FromContext(ctx)

	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return fmt.Errorf("shellmp: connection is not a *net.TCPConn")
	}
	connFile, err := tcpConn.File()
	if err != nil {
		return fmt.Errorf("shellmp: extracting fd from connection: %w", err)
	}
	defer connFile.Close()

	parentBrokerEnd, childBrokerEnd, err := socketpair()
	if err != nil {
		return fmt.Errorf("shellmp: creating broker socketpair: %w", err)
	}
	defer childBrokerEnd.Close()

	cmd := exec.Command(s.Executable, workerIDArg, addr)
	cmd.ExtraFiles = []*os.File{connFile, childBrokerEnd}
	cmd.Env = append(os.Environ(), "NPCORE_WORKER=1")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		parentBrokerEnd.Close()
		return fmt.Errorf("shellmp: starting worker: %w", err)
	}

	// The parent's copies of the fds the child now owns independently
	// must be closed so the parent's descriptor table doesn't grow
	// without bound across connections (the "no FD leak" invariant).
	_ = connFile.Close()
	_ = childBrokerEnd.Close()

	parentConn, err := net.FileConn(parentBrokerEnd)
	parentBrokerEnd.Close()
	if err != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("shellmp: wrapping broker control fd: %w", err)
	}

	go s.Broker.Serve(parentConn)

	logger.Info("worker spawned", "pid", cmd.Process.Pid, "addr", addr)

	if err := cmd.Wait(); err != nil {
		logger.Info("worker exited with error", "pid", cmd.Process.Pid, "error", err.Error())
	}
	return nil
}

// socketpair creates a connected pair of Unix domain socket file
// descriptors, one to keep in this process and one to pass to the
// child via ExtraFiles — the descriptor-passing technique the teacher
// uses for auth/session pipes, applied here to the broker control
// channel instead.
func socketpair() (parent, child *os.File, err error) {
	fds, err := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	if err != nil {
		return nil, nil, err
	}
	parent = os.NewFile(uintptr(fds[0]), "broker-parent")
	child = os.NewFile(uintptr(fds[1]), "broker-child")
	return parent, child, nil
}

// fdName is a small helper used by worker.go's logging to describe
// which inherited fd number it's reconstructing, purely cosmetic.
func fdName(fd uintptr) string {
	return "fd" + strconv.FormatUint(uint64(fd), 10)
}
