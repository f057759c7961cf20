package socks

import (
	"fmt"
	"net"
)

// LogRecord formats the access-log block appended to stdout after
// every reply:
//
//	<S_IP>: <client.ip>
//	<S_PORT>: <client.port>
//	<D_IP>: <dest ip>
//	<D_PORT>: <dest port>
//	<Command>: CONNECT|BIND
//	<Reply>: Accept|Reject
//	<blank line>
type LogRecord struct {
	SourceIP   net.IP
	SourcePort uint16
	DestIP     net.IP
	DestPort   uint16
	Command    string // "CONNECT" or "BIND"
	Reply      string // "Accept" or "Reject"
}

func (r LogRecord) String() string {
	return fmt.Sprintf(
		"<S_IP>: %s\n<S_PORT>: %d\n<D_IP>: %s\n<D_PORT>: %d\n<Command>: %s\n<Reply>: %s\n\n",
		r.SourceIP, r.SourcePort, r.DestIP, r.DestPort, r.Command, r.Reply,
	)
}

// CommandName returns the human-readable command name used in log
// records for a SOCKS4 command byte.
func CommandName(cmd byte) string {
	switch cmd {
	case CommandConnect:
		return "CONNECT"
	case CommandBind:
		return "BIND"
	default:
		return "UNKNOWN"
	}
}
