package shellmp

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/infodancer/npcore/internal/shell"
)

// BrokerClient is a worker subprocess's handle to the broker's session
// directory. It implements shell.Directory directly, so a worker's
// line-execution driver (shell.RunLine) can use it exactly like the
// in-process Registry the single-process variant uses.
type BrokerClient struct {
	mu      sync.Mutex
	conn    net.Conn
	scanner *bufio.Scanner
	selfID  int
}

// NewBrokerClient wraps an already-connected control socket to the
// broker (inherited as a pre-fork file descriptor, the same technique
// the teacher's subprocess.go uses for its auth pipe).
func NewBrokerClient(conn net.Conn) *BrokerClient {
	return &BrokerClient{conn: conn, scanner: bufio.NewScanner(conn)}
}

func (c *BrokerClient) roundTrip(verb string, args ...string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := verb
	if len(args) > 0 {
		line = verb + " " + strings.Join(args, " ")
	}
	if _, err := fmt.Fprintln(c.conn, line); err != nil {
		return "", err
	}
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("shellmp: broker closed the connection")
	}
	return c.scanner.Text(), nil
}

func (c *BrokerClient) readLines(n int) ([]string, error) {
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if !c.scanner.Scan() {
			return nil, fmt.Errorf("shellmp: broker closed mid-response")
		}
		lines = append(lines, c.scanner.Text())
	}
	return lines, nil
}

// Allocate asks the broker for the smallest free session id for a
// connection from addr whose worker process id is pid (recorded so
// other workers can SIGUSR2 this one for the user-pipe handshake), and
// remembers the assigned id as this client's own id for Who()'s
// self-marker.
func (c *BrokerClient) Allocate(addr string, pid int) (int, error) {
	resp, err := c.roundTrip("ALLOC", addr, strconv.Itoa(pid))
	if err != nil {
		return 0, err
	}
	id, err := parseOKInt(resp)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.selfID = id
	c.mu.Unlock()
	return id, nil
}

// GetPid returns the OS process id of the worker holding session id,
// used to deliver the SIGUSR2 user-pipe-ready signal directly, the way
// np_multi_proc.cpp signals a specific client pid.
func (c *BrokerClient) GetPid(id int) (int, error) {
	resp, err := c.roundTrip("GETPID", strconv.Itoa(id))
	if err != nil {
		return 0, err
	}
	return parseOKInt(resp)
}

// Release tells the broker this worker's session has ended.
func (c *BrokerClient) Release(id int) error {
	_, err := c.roundTrip("RELEASE", strconv.Itoa(id))
	return err
}

// SetName tells the broker this worker's nickname.
func (c *BrokerClient) SetName(id int, name string) error {
	_, err := c.roundTrip("SETNAME", strconv.Itoa(id), name)
	return err
}

// Who implements shell.Directory.
func (c *BrokerClient) Who(selfID int) []string {
	resp, err := c.roundTrip("WHO", strconv.Itoa(selfID))
	if err != nil {
		return nil
	}
	n, ok := parseOKCount(resp)
	if !ok {
		return nil
	}
	lines, err := c.readLines(n)
	if err != nil {
		return nil
	}
	return lines
}

// Send implements shell.Directory.
func (c *BrokerClient) Send(id int, line string) error {
	resp, err := c.roundTrip("SEND", append([]string{strconv.Itoa(id)}, strings.Fields(line)...)...)
	if err != nil {
		return err
	}
	if strings.HasPrefix(resp, "-ERR") {
		return shell.ErrNoSuchUser
	}
	return nil
}

// Broadcast implements shell.Directory.
func (c *BrokerClient) Broadcast(line string) {
	_, _ = c.roundTrip("BROADCAST " + strings.TrimSuffix(line, "\n"))
}

// NameTaken implements shell.Directory.
func (c *BrokerClient) NameTaken(name string) bool {
	resp, err := c.roundTrip("NAMETAKEN", name)
	if err != nil {
		return false
	}
	return resp == "+OK YES"
}

// NameOf implements shell.Directory.
func (c *BrokerClient) NameOf(id int) (string, bool) {
	resp, err := c.roundTrip("NAMEOF", strconv.Itoa(id))
	if err != nil || strings.HasPrefix(resp, "-ERR") {
		return "", false
	}
	return strings.TrimPrefix(resp, "+OK "), true
}

// Poll drains messages queued for id since the last Poll, used by a
// worker's outbox-pump goroutine to push broker-originated chat lines
// into the connection's own output stream.
func (c *BrokerClient) Poll(id int) []string {
	resp, err := c.roundTrip("POLL", strconv.Itoa(id))
	if err != nil {
		return nil
	}
	n, ok := parseOKCount(resp)
	if !ok || n == 0 {
		return nil
	}
	lines, err := c.readLines(n)
	if err != nil {
		return nil
	}
	return lines
}

// TrySendEdge registers the src->dst user-pipe edge with the broker,
// returning shell.ErrPipeEdgeBusy if one is already live.
func (c *BrokerClient) TrySendEdge(src, dst int) error {
	resp, err := c.roundTrip("TRYSEND", strconv.Itoa(src), strconv.Itoa(dst))
	if err != nil {
		return err
	}
	if strings.HasPrefix(resp, "-ERR") {
		return shell.ErrPipeEdgeBusy
	}
	return nil
}

// TryRecvEdge consumes the src->dst user-pipe edge, returning an error
// naming which precondition failed (no such sender, no such edge).
func (c *BrokerClient) TryRecvEdge(src, dst int) error {
	resp, err := c.roundTrip("TRYRECV", strconv.Itoa(src), strconv.Itoa(dst))
	if err != nil {
		return err
	}
	switch resp {
	case "-ERR NOSENDER":
		return fmt.Errorf("shellmp: no such sender #%d", src)
	case "-ERR NOEDGE":
		return fmt.Errorf("shellmp: edge #%d->#%d does not exist", src, dst)
	}
	return nil
}

func parseOKInt(resp string) (int, error) {
	if !strings.HasPrefix(resp, "+OK ") {
		return 0, fmt.Errorf("shellmp: broker error: %s", resp)
	}
	return strconv.Atoi(strings.TrimPrefix(resp, "+OK "))
}

func parseOKCount(resp string) (int, bool) {
	if !strings.HasPrefix(resp, "+OK ") {
		return 0, false
	}
	fields := strings.Fields(resp)
	if len(fields) != 2 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
