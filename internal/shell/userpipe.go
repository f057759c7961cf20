package shell

import (
	"io"
	"sync"
)

// UserPipeRegistry hands out the directed src->dst edges used by a
// stage's '>N' (send) and '<N' (receive) tokens. Implementations must
// enforce the at-most-one-live-edge invariant: a given (src, dst) pair
// may have at most one open writer and one open reader at a time.
type UserPipeRegistry interface {
	// OpenOut returns the write side of the src->dst edge, creating it
	// if necessary. It returns ErrPipeEdgeBusy if a writer is already
	// attached to this edge.
	OpenOut(src, dst int) (io.WriteCloser, error)
	// OpenIn returns the read side of an existing src->dst edge; it
	// never creates one. It returns ErrPipeEdgeMissing if no sender has
	// opened the edge, and ErrPipeEdgeBusy if a reader is already
	// attached to it.
	OpenIn(src, dst int) (io.ReadCloser, error)
}

type userPipeEdgeKey struct{ src, dst int }

type memUserPipeEdge struct {
	r           *io.PipeReader
	w           *io.PipeWriter
	writerTaken bool
	readerTaken bool
}

// memUserPipeRegistry is the single-process binding: edges are plain
// io.Pipe pairs shared by goroutines in this process. It is the
// collapse of the FIFO-based multi-process registry to in-memory
// channels, valid because every session lives in the same address
// space here.
type memUserPipeRegistry struct {
	mu    sync.Mutex
	edges map[userPipeEdgeKey]*memUserPipeEdge
}

// NewMemUserPipeRegistry returns an empty in-memory user-pipe registry.
func NewMemUserPipeRegistry() UserPipeRegistry {
	return &memUserPipeRegistry{edges: make(map[userPipeEdgeKey]*memUserPipeEdge)}
}

// createEdge allocates a fresh src->dst edge. Only try_send (OpenOut)
// may call this: try_recv must never auto-create an edge it didn't
// find, since a receiver arriving before any sender has to be told the
// pipe does not exist yet, not handed a writer-less one.
func (m *memUserPipeRegistry) createEdge(src, dst int) *memUserPipeEdge {
	r, w := io.Pipe()
	e := &memUserPipeEdge{r: r, w: w}
	m.edges[userPipeEdgeKey{src, dst}] = e
	return e
}

func (m *memUserPipeRegistry) releaseIfDone(src, dst int) {
	key := userPipeEdgeKey{src, dst}
	e, ok := m.edges[key]
	if ok && !e.writerTaken && !e.readerTaken {
		delete(m.edges, key)
	}
}

func (m *memUserPipeRegistry) OpenOut(src, dst int) (io.WriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := userPipeEdgeKey{src, dst}
	e, ok := m.edges[key]
	if !ok {
		e = m.createEdge(src, dst)
	} else if e.writerTaken {
		return nil, ErrPipeEdgeBusy
	}
	e.writerTaken = true
	return &memEdgeWriter{registry: m, src: src, dst: dst, w: e.w}, nil
}

func (m *memUserPipeRegistry) OpenIn(src, dst int) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.edges[userPipeEdgeKey{src, dst}]
	if !ok {
		return nil, ErrPipeEdgeMissing
	}
	if e.readerTaken {
		return nil, ErrPipeEdgeBusy
	}
	e.readerTaken = true
	return &memEdgeReader{registry: m, src: src, dst: dst, r: e.r}, nil
}

type memEdgeWriter struct {
	registry *memUserPipeRegistry
	src, dst int
	w        *io.PipeWriter
}

func (w *memEdgeWriter) Write(p []byte) (int, error) { return w.w.Write(p) }

func (w *memEdgeWriter) Close() error {
	err := w.w.Close()
	w.registry.mu.Lock()
	if e, ok := w.registry.edges[userPipeEdgeKey{w.src, w.dst}]; ok {
		e.writerTaken = false
	}
	w.registry.releaseIfDone(w.src, w.dst)
	w.registry.mu.Unlock()
	return err
}

type memEdgeReader struct {
	registry *memUserPipeRegistry
	src, dst int
	r        *io.PipeReader
}

func (r *memEdgeReader) Read(p []byte) (int, error) { return r.r.Read(p) }

func (r *memEdgeReader) Close() error {
	err := r.r.Close()
	r.registry.mu.Lock()
	if e, ok := r.registry.edges[userPipeEdgeKey{r.src, r.dst}]; ok {
		e.readerTaken = false
	}
	r.registry.releaseIfDone(r.src, r.dst)
	r.registry.mu.Unlock()
	return err
}
