// Package shellmp implements the multi-process shell variant: one
// worker subprocess per connection, FIFO-backed user-pipes, and a
// broker process (the original listener, never replaced) that holds
// the canonical session directory so workers never share memory
// directly.
package shellmp

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// FifoDir is the directory holding user-pipe FIFOs, relative to the
// daemon's working directory, matching the original layout.
const FifoDir = "user_pipe"

// FifoName returns the filesystem path of the FIFO used for the
// src->dst edge.
func FifoName(src, dst int) string {
	return filepath.Join(FifoDir, fmt.Sprintf("pipe_%d_%d", src, dst))
}

// FifoUserPipeRegistry is the filesystem-FIFO binding of
// shell.UserPipeRegistry, used when each session is a separate OS
// process and cannot share an in-memory pipe. It tracks in this
// process only which edges it created, so the at-most-one-live-edge
// check matches what try_send/try_recv observe locally; the broker is
// the cross-process source of truth for whether an edge already
// exists (see the broker's TRYSEND/TRYRECV verbs), so callers should consult it
// before calling these open methods.
type FifoUserPipeRegistry struct {
	mu    sync.Mutex
	owned map[string]bool
}

// NewFifoUserPipeRegistry ensures FifoDir exists and returns a
// registry bound to it.
func NewFifoUserPipeRegistry() (*FifoUserPipeRegistry, error) {
	if err := os.MkdirAll(FifoDir, 0o700); err != nil {
		return nil, err
	}
	return &FifoUserPipeRegistry{owned: make(map[string]bool)}, nil
}

// CreateAndOpenWriter creates the FIFO for src->dst with mode 0600,
// signals the receiver via notifyReceiver (SIGUSR2, by convention), and then
// opens the write end, which blocks until the receiver has opened its
// read end — exactly the handshake np_multi_proc.cpp performs.
func (f *FifoUserPipeRegistry) CreateAndOpenWriter(src, dst int, notifyReceiver func() error) (*os.File, error) {
	name := FifoName(src, dst)

	if err := unix.Mkfifo(name, 0o600); err != nil {
		return nil, fmt.Errorf("shellmp: mkfifo %s: %w", name, err)
	}

	f.mu.Lock()
	f.owned[name] = true
	f.mu.Unlock()

	if notifyReceiver != nil {
		if err := notifyReceiver(); err != nil {
			return nil, err
		}
	}

	// Opening O_WRONLY blocks until a reader opens the same FIFO,
	// which is exactly the synchronization the original relies on
	// instead of an explicit condition variable.
	w, err := os.OpenFile(name, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("shellmp: open writer for %s: %w", name, err)
	}
	return w, nil
}

// OpenReaderBlocking implements the receiver side of the handshake: it
// waits up to two seconds for the sender's FIFO to appear, then opens
// it with a single blocking O_RDONLY open, which returns once the
// writer has its end open. The FIFO is unlinked once the reader has it
// open, so a stale FIFO never outlives the edge it served.
func (f *FifoUserPipeRegistry) OpenReaderBlocking(src, dst int) (*os.File, error) {
	name := FifoName(src, dst)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(name); err == nil {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("shellmp: fifo %s never appeared", name)
		}
		time.Sleep(10 * time.Millisecond)
	}

	r, err := os.OpenFile(name, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("shellmp: open reader for %s: %w", name, err)
	}

	_ = os.Remove(name)
	f.mu.Lock()
	delete(f.owned, name)
	f.mu.Unlock()

	return r, nil
}

// CleanupSession removes every FIFO this process created that
// references id as either endpoint, used on session teardown so the
// at-most-once FD/FIFO invariant (spec's "no FD leak") holds even if a
// session exits mid-handshake.
func (f *FifoUserPipeRegistry) CleanupSession(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix1 := fmt.Sprintf(filepath.Join(FifoDir, "pipe_%d_"), id)
	suffix1 := fmt.Sprintf("_%d", id)
	for name := range f.owned {
		if len(name) >= len(prefix1) && name[:len(prefix1)] == prefix1 {
			_ = os.Remove(name)
			delete(f.owned, name)
			continue
		}
		if len(name) >= len(suffix1) && name[len(name)-len(suffix1):] == suffix1 {
			_ = os.Remove(name)
			delete(f.owned, name)
		}
	}
}
