package socks

import (
	"fmt"
	"net"
	"time"
)

// ResolveDestination returns the request's destination IP, resolving
// the SOCKS4A domain name if present.
func ResolveDestination(req *Request) (net.IP, error) {
	if !req.IsSocks4A {
		return net.IP(req.DstIP[:]), nil
	}
	ips, err := net.LookupIP(req.Domain)
	if err != nil {
		return nil, fmt.Errorf("socks: resolving %s: %w", req.Domain, err)
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
	}
	return nil, fmt.Errorf("socks: %s has no A record", req.Domain)
}

// HandleConnect implements the CONNECT mode handler: resolve, check
// the firewall, dial the destination, and reply. On success it returns
// the dialed connection for the caller to relay; on failure it has
// already written the rejection reply and the returned conn is nil.
func HandleConnect(req *Request, client net.Conn, fw *Firewall) (remote net.Conn, record LogRecord) {
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

	if !fw.Allow(CommandConnect, dstIP) {
		record.Reply = "Reject"
		reject(client)
		return nil, record
	}

	addr := net.JoinHostPort(dstIP.String(), fmt.Sprintf("%d", req.DstPort))
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		record.Reply = "Reject"
		reject(client)
		return nil, record
	}

	record.Reply = "Accept"
	localIP, localPort := splitHostPort(conn.LocalAddr())
	Reply{Code: ReplyGranted, Port: localPort, IP: to4Array(localIP)}.WriteTo(client)
	return conn, record
}

func reject(client net.Conn) {
	Reply{Code: ReplyRejected}.WriteTo(client)
}

func splitHostPort(addr net.Addr) (net.IP, uint16) {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return net.IPv4zero, 0
	}
	return tcpAddr.IP, uint16(tcpAddr.Port)
}

func to4Array(ip net.IP) [4]byte {
	var out [4]byte
	v4 := ip.To4()
	if v4 == nil {
		return out
	}
	copy(out[:], v4)
	return out
}
