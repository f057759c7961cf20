package socks

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"

	"github.com/infodancer/npcore/internal/logging"
	"github.com/infodancer/npcore/internal/metrics"
)

// HandleConn runs one SOCKS4/4A connection end to end: read the
// request, dispatch to the CONNECT or BIND mode handler, log the
// result, and — on success — relay bytes until either side closes.
// collector may be nil, in which case metrics are skipped.
func HandleConn(ctx context.Context, client net.Conn, fw *Firewall, collector metrics.Collector) {
	if collector == nil {
		collector = &metrics.NoopCollector{}
	}
	logger := logging.FromContext(ctx)
	defer client.Close()

	req, err := ReadRequest(bufio.NewReader(client))
	if err != nil {
		logger.Info("socks request parse failed", "error", err.Error())
		Reply{Code: ReplyRejected}.WriteTo(client)
		return
	}

	var remote net.Conn
	var record LogRecord
	switch req.Command {
	case CommandConnect:
		remote, record = HandleConnect(req, client, fw)
	case CommandBind:
		remote, record = HandleBind(req, client, fw)
	default:
		Reply{Code: ReplyRejected}.WriteTo(client)
		return
	}

	fmt.Fprint(os.Stdout, record.String())
	logger.Info("socks request", "command", record.Command, "reply", record.Reply)
	replyCode := ReplyRejected
	if record.Reply == "Accept" {
		replyCode = ReplyGranted
	}
	collector.SocksReply(record.Command, replyCode)

	if remote == nil {
		return
	}
	defer remote.Close()

	upstream, downstream := Relay(client, remote)
	collector.SocksBytesRelayed("upstream", upstream)
	collector.SocksBytesRelayed("downstream", downstream)
}
