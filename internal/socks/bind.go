package socks

import (
	"net"
)

// HandleBind implements the BIND mode handler: listen on an ephemeral
// port, reply once with that port before accepting (so the client can
// hand the port to the remote peer it expects a callback from), block
// for exactly one inbound connection, then reply a second time with
// the same port and a zero IP before the caller relays.
func HandleBind(req *Request, client net.Conn, fw *Firewall) (remote net.Conn, record LogRecord) {
	srcIP, srcPort := splitHostPort(client.RemoteAddr())
	record = LogRecord{
		SourceIP:   srcIP,
		SourcePort: srcPort,
		DestPort:   req.DstPort,
		Command:    CommandName(req.Command),
	}

	dstIP, err := ResolveDestination(req)
	if err != nil {
		record.DestIP = net.IP(req.DstIP[:])
		record.Reply = "Reject"
		reject(client)
		return nil, record
	}
	record.DestIP = dstIP

	if !fw.Allow(CommandBind, dstIP) {
		record.Reply = "Reject"
		reject(client)
		return nil, record
	}

	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		record.Reply = "Reject"
		reject(client)
		return nil, record
	}
	defer listener.Close()

	localPort := uint16(listener.Addr().(*net.TCPAddr).Port)
	if err := (Reply{Code: ReplyGranted, Port: localPort}).WriteTo(client); err != nil {
		record.Reply = "Reject"
		return nil, record
	}

	conn, err := listener.Accept()
	if err != nil {
		record.Reply = "Reject"
		reject(client)
		return nil, record
	}

	record.Reply = "Accept"
	Reply{Code: ReplyGranted, Port: localPort}.WriteTo(client)
	return conn, record
}
