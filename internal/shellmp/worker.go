package shellmp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/infodancer/npcore/internal/logging"
	"github.com/infodancer/npcore/internal/shell"
)

const banner = `****************************************
** Welcome to the information server. **
****************************************
`

// RunWorker is the subprocess entrypoint re-exec'd by
// SubprocessServer.HandleConnection: it reconstructs the accepted
// client socket from fd 3 and the broker control socket from fd 4,
// registers with the broker, runs the session's command loop, and
// unregisters on exit. This mirrors the teacher's
// cmd/pop3d/handler.go runProtocolHandler almost exactly, down to the
// "reconstruct from inherited fd" technique; only the payload (a shell
// session instead of a POP3 session) differs.
func RunWorker(ctx context.Context, addr string) error {
	connFile := os.NewFile(uintptr(connFD), fdName(connFD))
	conn, err := net.FileConn(connFile)
	if err != nil {
		return fmt.Errorf("shellmp: reconstructing client conn from %s: %w", fdName(connFD), err)
	}
	defer conn.Close()
	connFile.Close()

	brokerFile := os.NewFile(uintptr(brokerFD), fdName(brokerFD))
	brokerConn, err := net.FileConn(brokerFile)
	if err != nil {
		return fmt.Errorf("shellmp: reconstructing broker conn from %s: %w", fdName(brokerFD), err)
	}
	defer brokerConn.Close()
	brokerFile.Close()

	logger := logging.FromContext(ctx)
	broker := NewBrokerClient(brokerConn)

	id, err := broker.Allocate(addr, os.Getpid())
	if err != nil {
		logger.Error("allocating session id", "error", err.Error())
		return err
	}
	defer broker.Release(id)

	sess := shell.NewSession(id)
	fifo, err := NewFifoUserPipeRegistry()
	if err != nil {
		return fmt.Errorf("shellmp: initializing fifo dir: %w", err)
	}
	defer fifo.CleanupSession(id)
	pipes := NewUserPipes(fifo, broker)

	sigusr2 := make(chan os.Signal, 4)
	signal.Notify(sigusr2, syscall.SIGUSR2)
	defer signal.Stop(sigusr2)

	fmt.Fprint(conn, banner)
	broker.Broadcast(fmt.Sprintf("*** User '%s' entered from %s. ***\n", sess.Name(), addr))

	done := make(chan struct{})
	go pumpBrokerMessages(conn, broker, id, sigusr2, done)
	defer close(done)

	fmt.Fprint(conn, "% ")

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		prevName := sess.Name()

		result := shell.RunLine(sess, broker, pipes, addr, conn, conn, line)

		// shell.Dispatch's 'name' builtin only updates the local
		// Session; the broker's directory (the source of truth for
		// NameTaken/NameOf across all workers) needs the same update
		// applied explicitly once the rename has actually taken
		// effect locally.
		if newName := sess.Name(); newName != prevName {
			broker.SetName(id, newName)
		}

		if result.Terminate {
			return nil
		}
		fmt.Fprint(conn, "% ")
	}
	return scanner.Err()
}

// pumpBrokerMessages polls the broker for chat messages addressed to
// id and writes them to conn, since the broker cannot push into a
// worker's socket directly (that fd belongs solely to the worker). It
// polls both periodically and immediately on SIGUSR2, the signal a
// sending worker raises right after creating a user-pipe FIFO for us,
// so a pending tell/yell or pipe notice is not held up by the ticker's
// own period.
func pumpBrokerMessages(conn net.Conn, broker *BrokerClient, id int, wake <-chan os.Signal, done <-chan struct{}) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	drain := func() {
		for _, msg := range broker.Poll(id) {
			fmt.Fprintln(conn, msg)
		}
	}
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			drain()
		case <-wake:
			drain()
		}
	}
}
