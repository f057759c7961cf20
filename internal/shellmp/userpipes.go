package shellmp

import (
	"fmt"
	"io"
	"syscall"

	"github.com/infodancer/npcore/internal/shell"
)

// mpUserPipes adapts the FIFO data path and the broker's edge
// bookkeeping to shell.UserPipeRegistry, so the same shell.TrySend/
// shell.TryRecv driver code used by the single-process variant runs
// unchanged against a worker subprocess's session.
type mpUserPipes struct {
	fifo   *FifoUserPipeRegistry
	broker *BrokerClient
}

// NewUserPipes returns a shell.UserPipeRegistry backed by FIFOs on
// disk and the broker's cross-process edge table.
func NewUserPipes(fifo *FifoUserPipeRegistry, broker *BrokerClient) shell.UserPipeRegistry {
	return &mpUserPipes{fifo: fifo, broker: broker}
}

func (m *mpUserPipes) OpenOut(src, dst int) (io.WriteCloser, error) {
	if err := m.broker.TrySendEdge(src, dst); err != nil {
		return nil, err
	}

	dstPid, err := m.broker.GetPid(dst)
	if err != nil {
		return nil, fmt.Errorf("shellmp: resolving pid for #%d: %w", dst, err)
	}

	w, err := m.fifo.CreateAndOpenWriter(src, dst, func() error {
		return syscall.Kill(dstPid, syscall.SIGUSR2)
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (m *mpUserPipes) OpenIn(src, dst int) (io.ReadCloser, error) {
	if err := m.broker.TryRecvEdge(src, dst); err != nil {
		return nil, err
	}
	return m.fifo.OpenReaderBlocking(src, dst)
}
