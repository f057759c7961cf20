package shell

import (
	"fmt"
	"sort"
	"sync"
)

// entry is the session directory's bookkeeping for one live client:
// the Session itself, the address it connected from, and the outbox
// channel its connection-handling goroutine drains to deliver
// broadcast/tell/yell text asynchronously. This is the mutex-guarded
// map of per-client channels that replaces the original shared-memory
// client table and SIGUSR1 signal delivery in the single-process
// variant.
type entry struct {
	session *Session
	addr    string
	outbox  chan string
}

// Registry is the single-process session directory: it allocates the
// smallest free session id, and implements the chat builtins' effects
// (who/tell/yell/name) against the live set of connected sessions.
type Registry struct {
	mu       sync.Mutex
	max      int
	sessions map[int]*entry
}

// NewRegistry returns an empty directory that allows at most max
// concurrently connected sessions.
func NewRegistry(max int) *Registry {
	return &Registry{max: max, sessions: make(map[int]*entry)}
}

// Allocate reserves the smallest unused id in [1, max] for a new
// session connecting from addr, and returns the Session plus a
// receive-only outbox channel for messages delivered to it.
func (r *Registry) Allocate(addr string) (*Session, <-chan string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id := 1; id <= r.max; id++ {
		if _, taken := r.sessions[id]; !taken {
			s := NewSession(id)
			out := make(chan string, 64)
			r.sessions[id] = &entry{session: s, addr: addr, outbox: out}
			return s, out, nil
		}
	}
	return nil, nil, ErrSessionFull
}

// Release removes a session from the directory, closing its outbox.
func (r *Registry) Release(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[id]; ok {
		close(e.outbox)
		delete(r.sessions, id)
	}
}

// Get returns the session registered under id, if any.
func (r *Registry) Get(id int) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return e.session, true
}

// Who returns the header line followed by one formatted line per
// connected session, in ascending id order:
// "<id>\t<name>\t<addr>\t<-me" on the requester's own line, matching
// the original client listing's header and self-marker exactly.
func (r *Registry) Who(selfID int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	lines := make([]string, 0, len(ids)+1)
	lines = append(lines, "<ID>\t<nickname>\t<IP:port>\t<indicate me>")
	for _, id := range ids {
		e := r.sessions[id]
		self := ""
		if id == selfID {
			self = "\t<-me"
		}
		lines = append(lines, fmt.Sprintf("%d\t%s\t%s%s", id, e.session.Name(), e.addr, self))
	}
	return lines
}

// Send delivers a line to a single session's outbox. It does not block
// indefinitely: the outbox is buffered, and a full outbox drops the
// message rather than stalling the sender, matching the original's
// best-effort shared-memory inbox write.
func (r *Registry) Send(id int, line string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return ErrNoSuchUser
	}
	select {
	case e.outbox <- line:
	default:
	}
	return nil
}

// Broadcast delivers a line to every connected session's outbox.
func (r *Registry) Broadcast(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.sessions {
		select {
		case e.outbox <- line:
		default:
		}
	}
}

// NameOf returns the nickname registered for id, if it is connected.
func (r *Registry) NameOf(id int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return "", false
	}
	return e.session.Name(), true
}

// NameTaken reports whether any connected session already uses name,
// used by the 'name' builtin to reject duplicates.
func (r *Registry) NameTaken(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.sessions {
		if e.session.Name() == name {
			return true
		}
	}
	return false
}

// Count returns the number of currently connected sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
