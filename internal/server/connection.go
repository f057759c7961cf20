package server

import (
	"bufio"
	"log/slog"
	"net"
	"time"
)

// Connection wraps a net.Conn with buffered I/O and per-operation
// deadlines, the shape every line-oriented handler (shell session,
// SOCKS request) reads and writes through.
type Connection struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	logger *slog.Logger

	idleTimeout    time.Duration
	commandTimeout time.Duration
}

// NewConnection wraps conn for line-oriented use.
func NewConnection(conn net.Conn, logger *slog.Logger, idleTimeout, commandTimeout time.Duration) *Connection {
	return &Connection{
		conn:           conn,
		reader:         bufio.NewReader(conn),
		writer:         bufio.NewWriter(conn),
		logger:         logger,
		idleTimeout:    idleTimeout,
		commandTimeout: commandTimeout,
	}
}

// Reader returns the buffered reader for the underlying connection.
func (c *Connection) Reader() *bufio.Reader { return c.reader }

// Writer returns the buffered writer for the underlying connection.
// Callers must Flush() after writing a reply.
func (c *Connection) Writer() *bufio.Writer { return c.writer }

// Conn returns the underlying net.Conn.
func (c *Connection) Conn() net.Conn { return c.conn }

// Logger returns the connection's logger.
func (c *Connection) Logger() *slog.Logger { return c.logger }

// RemoteAddr returns the remote network address.
func (c *Connection) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// WriteLine writes s followed by CRLF and flushes.
func (c *Connection) WriteLine(s string) error {
	if _, err := c.writer.WriteString(s); err != nil {
		return err
	}
	if _, err := c.writer.WriteString("\r\n"); err != nil {
		return err
	}
	return c.writer.Flush()
}

// ReadLine blocks for at most the idle timeout and returns the next
// line with its trailing CRLF/LF stripped.
func (c *Connection) ReadLine() (string, error) {
	if c.idleTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.idleTimeout))
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, nil
}

// SetCommandDeadline arms the connection's deadline for a single
// command's worth of work.
func (c *Connection) SetCommandDeadline() {
	if c.commandTimeout > 0 {
		c.conn.SetDeadline(time.Now().Add(c.commandTimeout))
	}
}

// Close closes the underlying connection.
func (c *Connection) Close() error {
	return c.conn.Close()
}
