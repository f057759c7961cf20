package socks

import (
	"io"
	"net"
	"sync"
)

// relayBufferSize matches the original's 4KB relay buffer.
const relayBufferSize = 4096

// Relay copies bytes in both directions between client and remote
// until either side closes or errors, then ensures both connections
// are closed so the other direction unblocks too. The two directions
// run on independent goroutines with disjoint buffers, satisfying the
// "must not interfere" requirement for concurrent relay directions.
// It returns the byte counts copied upstream (client to remote) and
// downstream (remote to client).
func Relay(client, remote net.Conn) (upstream, downstream int64) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		downstream = copyBuffered(client, remote)
		closeWrite(client)
	}()
	go func() {
		defer wg.Done()
		upstream = copyBuffered(remote, client)
		closeWrite(remote)
	}()

	wg.Wait()
	client.Close()
	remote.Close()
	return upstream, downstream
}

func copyBuffered(dst io.Writer, src io.Reader) int64 {
	buf := make([]byte, relayBufferSize)
	n, _ := io.CopyBuffer(dst, src, buf)
	return n
}

// closeWrite half-closes the write side so the peer sees EOF promptly
// without tearing down the other direction's still-in-flight reads.
func closeWrite(conn net.Conn) {
	type writeCloser interface {
		CloseWrite() error
	}
	if wc, ok := conn.(writeCloser); ok {
		_ = wc.CloseWrite()
	}
}
