package shellmp

import (
	"bufio"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/infodancer/npcore/internal/shell"
)

// Broker is the Design-Notes-sanctioned replacement for the original's
// SysV shared-memory client table: it runs in the listener process
// (the one process that never forks away) and answers worker
// subprocesses' directory queries over a line-oriented protocol,
// avoiding any cross-process pointer or shared mutable memory. Verbs
// are plain text, one per line, answered "+OK ..." or "-ERR ...",
// matching the shape of the teacher's own session-pipe wire protocol.
type Broker struct {
	mu       sync.Mutex
	max      int
	sessions map[int]*brokerEntry
	edges    map[edgeKey]bool
	pending  map[int][]string
}

type brokerEntry struct {
	name string
	addr string
	pid  int
}

type edgeKey struct{ src, dst int }

// NewBroker returns a broker allowing at most max concurrent sessions.
func NewBroker(max int) *Broker {
	return &Broker{
		max:      max,
		sessions: make(map[int]*brokerEntry),
		edges:    make(map[edgeKey]bool),
		pending:  make(map[int][]string),
	}
}

// Serve runs the request/response loop for one worker's control
// connection until it disconnects or errs. It is meant to run in its
// own goroutine per worker, the way the teacher's dispatchSession
// handles one auth pipe per spawned child.
func (b *Broker) Serve(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		reply := b.handle(scanner.Text())
		if _, err := fmt.Fprintln(conn, reply); err != nil {
			return
		}
	}
}

func (b *Broker) handle(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "-ERR EMPTY"
	}
	verb := fields[0]
	args := fields[1:]

	switch verb {
	case "ALLOC":
		return b.handleAlloc(args)
	case "RELEASE":
		return b.handleRelease(args)
	case "WHO":
		return b.handleWho(args)
	case "SEND":
		return b.handleSend(line, args)
	case "BROADCAST":
		return b.handleBroadcast(line)
	case "NAMETAKEN":
		return b.handleNameTaken(args)
	case "NAMEOF":
		return b.handleNameOf(args)
	case "SETNAME":
		return b.handleSetName(args)
	case "TRYSEND":
		return b.handleTrySend(args)
	case "TRYRECV":
		return b.handleTryRecv(args)
	case "POLL":
		return b.handlePoll(args)
	case "GETPID":
		return b.handleGetPid(args)
	default:
		return "-ERR UNKNOWN_VERB"
	}
}

func (b *Broker) handleAlloc(args []string) string {
	if len(args) != 2 {
		return "-ERR USAGE"
	}
	pid, err := strconv.Atoi(args[1])
	if err != nil {
		return "-ERR USAGE"
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for id := 1; id <= b.max; id++ {
		if _, taken := b.sessions[id]; !taken {
			b.sessions[id] = &brokerEntry{addr: args[0], name: "(no name)", pid: pid}
			return fmt.Sprintf("+OK %d", id)
		}
	}
	return "-ERR FULL"
}

func (b *Broker) handleGetPid(args []string) string {
	id, err := parseID(args)
	if err != nil {
		return "-ERR USAGE"
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.sessions[id]
	if !ok {
		return "-ERR NOSUCHUSER"
	}
	return fmt.Sprintf("+OK %d", e.pid)
}

func (b *Broker) handleRelease(args []string) string {
	id, err := parseID(args)
	if err != nil {
		return "-ERR USAGE"
	}
	b.mu.Lock()
	delete(b.sessions, id)
	for k := range b.edges {
		if k.src == id || k.dst == id {
			delete(b.edges, k)
		}
	}
	b.mu.Unlock()
	return "+OK"
}

func (b *Broker) handleWho(args []string) string {
	self, err := parseID(args)
	if err != nil {
		return "-ERR USAGE"
	}
	b.mu.Lock()
	ids := make([]int, 0, len(b.sessions))
	for id := range b.sessions {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	lines := make([]string, 0, len(ids)+1)
	lines = append(lines, "<ID>\t<nickname>\t<IP:port>\t<indicate me>")
	for _, id := range ids {
		e := b.sessions[id]
		marker := ""
		if id == self {
			marker = "\t<-me"
		}
		lines = append(lines, fmt.Sprintf("%d\t%s\t%s%s", id, e.name, e.addr, marker))
	}
	b.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "+OK %d", len(lines))
	for _, l := range lines {
		sb.WriteByte('\n')
		sb.WriteString(l)
	}
	return sb.String()
}

func (b *Broker) handleSend(raw string, args []string) string {
	if len(args) < 2 {
		return "-ERR USAGE"
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return "-ERR USAGE"
	}
	text := strings.TrimPrefix(raw, "SEND "+args[0]+" ")
	b.mu.Lock()
	_, ok := b.sessions[id]
	b.mu.Unlock()
	if !ok {
		return "-ERR NOSUCHUSER"
	}
	_ = text // delivery itself happens out of band; see pending queue below.
	b.enqueue(id, text)
	return "+OK"
}

func (b *Broker) handleBroadcast(raw string) string {
	text := strings.TrimPrefix(raw, "BROADCAST ")
	b.mu.Lock()
	ids := make([]int, 0, len(b.sessions))
	for id := range b.sessions {
		ids = append(ids, id)
	}
	b.mu.Unlock()
	for _, id := range ids {
		b.enqueue(id, text)
	}
	return "+OK"
}

func (b *Broker) handleNameTaken(args []string) string {
	if len(args) != 1 {
		return "-ERR USAGE"
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.sessions {
		if e.name == args[0] {
			return "+OK YES"
		}
	}
	return "+OK NO"
}

func (b *Broker) handleNameOf(args []string) string {
	id, err := parseID(args)
	if err != nil {
		return "-ERR USAGE"
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.sessions[id]
	if !ok {
		return "-ERR NOSUCHUSER"
	}
	return "+OK " + e.name
}

func (b *Broker) handleSetName(args []string) string {
	if len(args) != 2 {
		return "-ERR USAGE"
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return "-ERR USAGE"
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.sessions[id]
	if !ok {
		return "-ERR NOSUCHUSER"
	}
	e.name = args[1]
	return "+OK"
}

func (b *Broker) handleTrySend(args []string) string {
	if len(args) != 2 {
		return "-ERR USAGE"
	}
	src, err1 := strconv.Atoi(args[0])
	dst, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil {
		return "-ERR USAGE"
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	key := edgeKey{src, dst}
	if b.edges[key] {
		return "-ERR " + shell.ErrPipeEdgeBusy.Error()
	}
	b.edges[key] = true
	return "+OK"
}

func (b *Broker) handleTryRecv(args []string) string {
	if len(args) != 2 {
		return "-ERR USAGE"
	}
	src, err1 := strconv.Atoi(args[0])
	dst, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil {
		return "-ERR USAGE"
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.sessions[src]; !ok {
		return "-ERR NOSENDER"
	}
	key := edgeKey{src, dst}
	if !b.edges[key] {
		return "-ERR NOEDGE"
	}
	delete(b.edges, key)
	return "+OK"
}

func parseID(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("shellmp: expected exactly one id argument")
	}
	return strconv.Atoi(args[0])
}

// enqueue queues text for delivery to id, drained by that worker's own
// POLL verb the next time its outbox-pump goroutine asks. The broker
// has no open stream into a worker's terminal output (that socket
// belongs to the worker, inherited straight from the accept loop), so
// delivery is pull-based rather than push-based.
func (b *Broker) enqueue(id int, text string) {
	b.mu.Lock()
	b.pending[id] = append(b.pending[id], text)
	b.mu.Unlock()
}

func (b *Broker) handlePoll(args []string) string {
	id, err := parseID(args)
	if err != nil {
		return "-ERR USAGE"
	}
	b.mu.Lock()
	msgs := b.pending[id]
	delete(b.pending, id)
	b.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "+OK %d", len(msgs))
	for _, m := range msgs {
		sb.WriteByte('\n')
		sb.WriteString(m)
	}
	return sb.String()
}
