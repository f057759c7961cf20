package shell

import (
	"os"
	"sort"
	"sync"
)

// PipeManager tracks numbered ("delayed") pipes for one session. A
// stage that declares '|N' hands its stdout to a pipe that isn't read
// until N input lines later. The manager is ticked exactly once per
// accepted input line; a pipe whose countdown reaches zero becomes
// claimable by that line's first eligible stage.
type PipeManager struct {
	mu      sync.Mutex
	pending map[int]*pendingPipe
}

type pendingPipe struct {
	r, w      *os.File
	remaining int
}

// NewPipeManager returns an empty pipe table.
func NewPipeManager() *PipeManager {
	return &PipeManager{pending: make(map[int]*pendingPipe)}
}

// Register creates a new OS pipe for a '|N' stage (N >= 1) and stores
// its read end to be claimed N Tick() calls from now. It returns the
// write end, which the caller wires to the declaring stage's stdout.
// A bare '|' ordinary pipe (N == 0) never goes through the manager at
// all — it is wired directly between adjacent stages on the same line
// by the executor, so it is never ticked and cannot collide with a
// numbered entry at key 0.
func (m *PipeManager) Register(n int) (*os.File, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.pending[n]; ok {
		_ = existing.r.Close()
		_ = existing.w.Close()
	}
	m.pending[n] = &pendingPipe{r: r, w: w, remaining: n}
	return w, nil
}

// Tick decrements every pending pipe's countdown by one. Call this
// exactly once per accepted input line, before wiring that line's
// stages.
func (m *PipeManager) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pending {
		if p.remaining > 0 {
			p.remaining--
		}
	}
}

// Claim returns the read end of the lowest-keyed pipe whose countdown
// has reached zero, removing it from the table. ok is false if no
// pipe is due yet.
func (m *PipeManager) Claim() (r *os.File, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var dueKeys []int
	for k, p := range m.pending {
		if p.remaining == 0 {
			dueKeys = append(dueKeys, k)
		}
	}
	if len(dueKeys) == 0 {
		return nil, false
	}
	sort.Ints(dueKeys)
	key := dueKeys[0]
	p := m.pending[key]
	delete(m.pending, key)
	return p.r, true
}

// Close releases every still-pending pipe's file descriptors without
// claiming them, used when a session ends with undelivered numbered
// pipes outstanding.
func (m *PipeManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, p := range m.pending {
		_ = p.r.Close()
		_ = p.w.Close()
		delete(m.pending, k)
	}
}
