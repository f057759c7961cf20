package socks

import (
	"bufio"
	"bytes"
	"testing"
)

func TestReadRequestSocks4Connect(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{4, CommandConnect, 0x00, 0x50, 140, 113, 17, 10})
	buf.WriteString("anonymous\x00")

	req, err := ReadRequest(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("ReadRequest: %v", err)
	}
	if req.Command != CommandConnect {
		t.Errorf("Command = %d, want %d", req.Command, CommandConnect)
	}
	if req.DstPort != 0x50 {
		t.Errorf("DstPort = %d, want 80", req.DstPort)
	}
	if req.DstIP != [4]byte{140, 113, 17, 10} {
		t.Errorf("DstIP = %v", req.DstIP)
	}
	if req.UserID != "anonymous" {
		t.Errorf("UserID = %q", req.UserID)
	}
	if req.IsSocks4A {
		t.Error("plain SOCKS4 request should not be flagged as 4A")
	}
}

func TestReadRequestSocks4ADomain(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{4, CommandConnect, 0x00, 0x50, 0, 0, 0, 1})
	buf.WriteString("user\x00")
	buf.WriteString("example.com\x00")

	req, err := ReadRequest(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("ReadRequest: %v", err)
	}
	if !req.IsSocks4A {
		t.Fatal("expected IsSocks4A to be true for 0.0.0.X destination")
	}
	if req.Domain != "example.com" {
		t.Errorf("Domain = %q", req.Domain)
	}
}

func TestReadRequestRejectsBadVersion(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{5, CommandConnect, 0x00, 0x50, 1, 2, 3, 4})
	buf.WriteString("\x00")

	if _, err := ReadRequest(bufio.NewReader(&buf)); err == nil {
		t.Error("expected error for non-SOCKS4 version byte")
	}
}

func TestReadRequestRejectsUnknownCommand(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{4, 0x07, 0x00, 0x50, 1, 2, 3, 4})
	buf.WriteString("\x00")

	if _, err := ReadRequest(bufio.NewReader(&buf)); err == nil {
		t.Error("expected error for unknown command code")
	}
}

func TestReadRequestTruncatedHeader(t *testing.T) {
	buf := bytes.NewBuffer([]byte{4, CommandConnect, 0x00})
	if _, err := ReadRequest(bufio.NewReader(buf)); err == nil {
		t.Error("expected error on truncated header")
	}
}

func TestReplyWriteToWireFormat(t *testing.T) {
	var buf bytes.Buffer
	rep := Reply{Code: ReplyGranted}
	if err := rep.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	want := []byte{0x00, 0x5A, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("reply bytes = % X, want % X", buf.Bytes(), want)
	}
}

func TestReplyWriteToWithPortAndIP(t *testing.T) {
	var buf bytes.Buffer
	rep := Reply{Code: ReplyGranted, Port: 0x1F90, IP: [4]byte{10, 0, 0, 1}}
	if err := rep.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	want := []byte{0x00, 0x5A, 0x1F, 0x90, 10, 0, 0, 1}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("reply bytes = % X, want % X", buf.Bytes(), want)
	}
}
