package server

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"time"

	"github.com/gonzalop/myftp/internal/wire"
)

// session represents an FTP client session.
//
// A session is driven by exactly one goroutine. The only other goroutine that
// touches it is the control watcher started for the duration of a RETR, and
// that one only peeks at the reader.
type session struct {
	server *Server
	conn   net.Conn
	reader *wire.Reader
	writer *wire.Writer

	// ctx is cancelled when the server shuts down.
	ctx    context.Context
	cancel context.CancelFunc

	// Session tracking
	sessionID string
	remoteIP  netip.Addr

	// State
	user string

	// dataAddr is the endpoint announced by the last PORT. It is cleared by
	// every RETR.
	dataAddr netip.AddrPort
}

// errQuit ends the command loop after a QUIT has been answered.
var errQuit = errors.New("client quit")

// commandHandlers maps commands to their handler functions.
// USER and PASS are consumed by the login handshake; after login they, like
// any other unlisted token, are ignored.
var commandHandlers = map[string]func(*session, string) error{
	wire.OpPort: (*session).handlePORT,
	wire.OpRetr: (*session).handleRETR,
	wire.OpQuit: (*session).handleQUIT,
}

// generateSessionID generates a unique 8-character session ID.
func generateSessionID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%08x", b)
}

// newSession creates a new session.
func newSession(server *Server, conn net.Conn) *session {
	ctx, cancel := context.WithCancel(server.baseCtx)

	var remoteIP netip.Addr
	if ap, err := netip.ParseAddrPort(conn.RemoteAddr().String()); err == nil {
		remoteIP = ap.Addr().Unmap()
	}

	return &session{
		server:    server,
		conn:      conn,
		reader:    wire.NewReader(conn),
		writer:    wire.NewWriter(conn),
		ctx:       ctx,
		cancel:    cancel,
		sessionID: generateSessionID(),
		remoteIP:  remoteIP,
	}
}

// serve runs the session: greeting, login handshake, then one command at a
// time until QUIT, a fatal error or the peer going away.
func (s *session) serve() {
	defer s.close()

	s.server.logger.Info("session_started",
		"session_id", s.sessionID,
		"remote_ip", s.remoteIP,
	)

	if err := s.reply(wire.CodeServiceReady, s.server.welcomeMessage); err != nil {
		s.fail(err)
		return
	}

	if err := s.login(); err != nil {
		s.fail(err)
		return
	}

	for {
		cmd, err := s.reader.ReadCommand()
		if err != nil {
			s.fail(err)
			return
		}
		if err := s.handleCommand(cmd); err != nil {
			if !errors.Is(err, errQuit) {
				s.fail(err)
			}
			return
		}
	}
}

// handleCommand dispatches one command. A non-nil error ends the session.
func (s *session) handleCommand(cmd wire.Command) error {
	s.server.logger.Debug("command",
		"session_id", s.sessionID,
		"user", s.user,
		"command", cmd.String(),
	)

	handler, ok := commandHandlers[cmd.Op]
	if !ok {
		// recognized is true for USER or PASS repeated after login.
		s.server.logger.Warn("command_ignored",
			"session_id", s.sessionID,
			"user", s.user,
			"command", cmd.String(),
			"recognized", cmd.Known(),
		)
		return nil
	}

	start := time.Now()
	err := handler(s, cmd.Param)
	if s.server.metricsCollector != nil {
		s.server.metricsCollector.RecordCommand(cmd.Op, err == nil || errors.Is(err, errQuit), time.Since(start))
	}
	return err
}

func (s *session) handleQUIT(string) error {
	if err := s.reply(wire.CodeGoodbye, "Goodbye"); err != nil {
		return err
	}
	return errQuit
}

// reply sends a status line on the control connection.
func (s *session) reply(code wire.Code, text string) error {
	if err := s.writer.WriteResponse(code, text); err != nil {
		return fmt.Errorf("write reply %03d: %w", int(code), err)
	}
	return nil
}

// fail logs a session-ending error. Framing errors also get a best-effort 500
// so the peer learns why the connection is going away; handlers reply on
// their own before returning other errors.
func (s *session) fail(err error) {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		s.server.logger.Debug("client closed connection",
			"session_id", s.sessionID,
			"user", s.user,
		)
		return
	case errors.Is(err, wire.ErrProtocolFraming), errors.Is(err, wire.ErrMalformedCommand):
		_ = s.reply(wire.CodeSyntaxError, "Syntax error, command unrecognized")
	}

	s.server.logger.Warn("session_terminated",
		"session_id", s.sessionID,
		"remote_ip", s.remoteIP,
		"user", s.user,
		"error", err,
	)
}

// close closes the connection and cleans up resources.
func (s *session) close() {
	s.cancel()
	s.conn.Close()

	s.server.logger.Info("session_ended",
		"session_id", s.sessionID,
		"remote_ip", s.remoteIP,
		"user", s.user,
	)
}
