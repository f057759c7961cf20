package socks

import (
	"encoding/binary"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func TestHandleBindSendsSamePortTwiceWithZeroIP(t *testing.T) {
	dir := t.TempDir()
	rulePath := filepath.Join(dir, "socks.conf")
	os.WriteFile(rulePath, []byte("permit b 127.0.0.1\n"), 0o644)
	fw := NewFirewall(rulePath)

	client, server := net.Pipe()
	req := &Request{Command: CommandBind, DstIP: [4]byte{127, 0, 0, 1}}

	type result struct {
		conn   net.Conn
		record LogRecord
	}
	done := make(chan result, 1)
	go func() {
		conn, record := HandleBind(req, server, fw)
		done <- result{conn, record}
	}()

	client.SetReadDeadline(time.Now().Add(3 * time.Second))
	first := make([]byte, 8)
	if _, err := readFull(client, first); err != nil {
		t.Fatalf("reading first reply: %v", err)
	}
	if first[1] != ReplyGranted {
		t.Fatalf("first reply code = %d, want %d", first[1], ReplyGranted)
	}
	firstPort := binary.BigEndian.Uint16(first[2:4])

	peerConn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(int(firstPort))))
	if err != nil {
		t.Fatalf("dialing bound port: %v", err)
	}
	defer peerConn.Close()

	second := make([]byte, 8)
	if _, err := readFull(client, second); err != nil {
		t.Fatalf("reading second reply: %v", err)
	}
	if second[1] != ReplyGranted {
		t.Fatalf("second reply code = %d, want %d", second[1], ReplyGranted)
	}
	secondPort := binary.BigEndian.Uint16(second[2:4])
	if secondPort != firstPort {
		t.Errorf("second reply port = %d, want same port as first reply %d", secondPort, firstPort)
	}
	if !allZero(second[4:8]) {
		t.Errorf("second reply IP = %v, want zero", second[4:8])
	}

	res := <-done
	if res.record.Reply != "Accept" {
		t.Errorf("record.Reply = %q, want Accept", res.record.Reply)
	}
	if res.conn == nil {
		t.Fatal("HandleBind returned a nil conn on accept success")
	}
	res.conn.Close()
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
