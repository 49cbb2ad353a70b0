package server

import (
	"bufio"
	"crypto/subtle"
	"net"
	"time"

	"github.com/marmos91/filevault/internal/logger"
	"github.com/marmos91/filevault/pkg/auditlog"
	"github.com/marmos91/filevault/pkg/protocol"
)

// connection drives the per-client state machine: NEW -> AUTHENTICATING ->
// AWAITING_COMMAND -> DISPATCHING -> TERMINATED. Every connection serves
// exactly one command and then closes; see the protocol codec's framing
// rules for why at most two line reads occur.
type connection struct {
	server *Server
	conn   net.Conn
	reader *bufio.Reader
	peerIP string
	start  time.Time
}

func newConnection(s *Server, conn net.Conn) *connection {
	peerIP := conn.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(peerIP); err == nil {
		peerIP = host
	}
	return &connection{
		server: s,
		conn:   conn,
		reader: bufio.NewReader(conn),
		peerIP: peerIP,
		start:  time.Now(),
	}
}

func (c *connection) serve() {
	defer c.conn.Close()

	if c.server.tracker.IsBlocked(c.peerIP) {
		_ = protocol.WriteError(c.conn, protocol.ErrClientBlocked)
		c.server.audit.Security(auditlog.EventBlockedClient, c.peerIP, "", "rejected while blocked")
		if c.server.metrics != nil {
			c.server.metrics.RecordBlockedClient()
		}
		return
	}

	authLine, err := protocol.ReadLine(c.reader)
	if err != nil {
		return
	}

	req := protocol.ParseLine(authLine)
	if !c.authenticate(req) {
		return
	}

	cmdLine, err := protocol.ReadLine(c.reader)
	if err != nil {
		return
	}

	cmd := protocol.ParseLine(cmdLine)
	c.dispatch(cmd)
}

// authenticate consumes the AUTH request line and reports whether the
// connection may proceed to AWAITING_COMMAND.
func (c *connection) authenticate(req protocol.Request) bool {
	if req.Verb == "" {
		c.rejectAuth(protocol.ErrAuthRequired, "")
		return false
	}
	if req.Verb != protocol.VerbAuth {
		c.rejectAuth(protocol.ErrAuthRequired, "")
		return false
	}

	token, ok := protocol.ParseAuth(req)
	if !ok {
		c.rejectAuth(protocol.ErrInvalidAuthFormat, "malformed AUTH")
		return false
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(c.server.authToken)) != 1 {
		c.rejectAuth(protocol.ErrUnauthorizedClient, "bad token")
		return false
	}

	c.server.tracker.RecordSuccess(c.peerIP)
	return true
}

func (c *connection) rejectAuth(message, details string) {
	justBlocked := c.server.tracker.RecordFailure(c.peerIP)
	c.server.audit.Security(auditlog.EventAuthFailure, c.peerIP, "", details)
	if justBlocked {
		c.server.audit.Security(auditlog.EventBlockedClient, c.peerIP, "", "failure threshold exceeded")
	}

	_ = protocol.WriteError(c.conn, message)
}

func (c *connection) dispatch(req protocol.Request) {
	switch req.Verb {
	case protocol.VerbUpload:
		handleUpload(c, req)
	case protocol.VerbDownload:
		handleDownload(c, req)
	case protocol.VerbList:
		handleList(c, req)
	case protocol.VerbDelete:
		handleDelete(c, req)
	case protocol.VerbLocks:
		handleLocks(c, req)
	case protocol.VerbLogs:
		handleLogs(c, req)
	default:
		_ = protocol.WriteError(c.conn, protocol.ErrUnknownCommand)
		logger.Debug("unknown command", "peer", c.peerIP, "verb", req.Verb)
	}
}
