package server

import (
	"fmt"

	"github.com/gonzalop/myftp/internal/wire"
)

type handshakeState int

const (
	awaitUser handshakeState = iota
	awaitPass
	accepted
	denied
)

func (st handshakeState) String() string {
	switch st {
	case awaitUser:
		return "await_user"
	case awaitPass:
		return "await_pass"
	case accepted:
		return "accepted"
	case denied:
		return "denied"
	}
	return fmt.Sprintf("handshakeState(%d)", int(st))
}

// handshake is the server side of the USER/PASS exchange. It is a pure state
// machine: advance returns the reply to send and never touches the network.
type handshake struct {
	state handshakeState
	user  string
	auth  Authenticator

	// authErr records a failing credential store so the session can log it.
	authErr error
}

func newHandshake(auth Authenticator) *handshake {
	return &handshake{auth: auth}
}

// done reports whether the handshake reached a terminal state.
func (h *handshake) done() bool {
	return h.state == accepted || h.state == denied
}

// advance feeds one command to the handshake. A non-nil error means the
// session must send the returned reply and then close.
func (h *handshake) advance(cmd wire.Command) (wire.Response, error) {
	switch h.state {
	case awaitUser:
		if cmd.Op != wire.OpUser {
			h.state = denied
			return wire.Response{Code: wire.CodeBadSequence, Text: "Login with USER first"},
				fmt.Errorf("%w: got %s, want %s", wire.ErrUnexpectedCommand, cmd.Op, wire.OpUser)
		}
		h.user = cmd.Param
		h.state = awaitPass
		return wire.Response{Code: wire.CodeNeedPassword, Text: fmt.Sprintf("Password required for %s", h.user)}, nil

	case awaitPass:
		if cmd.Op != wire.OpPass {
			h.state = denied
			return wire.Response{Code: wire.CodeBadSequence, Text: "Login with PASS next"},
				fmt.Errorf("%w: got %s, want %s", wire.ErrUnexpectedCommand, cmd.Op, wire.OpPass)
		}
		ok, err := h.auth.Authenticate(h.user, cmd.Param)
		if err != nil {
			h.authErr = err
			ok = false
		}
		if !ok {
			h.state = denied
			return wire.Response{Code: wire.CodeLoginIncorrect, Text: "Login incorrect"},
				fmt.Errorf("%w: user %s", wire.ErrCredentialDenied, h.user)
		}
		h.state = accepted
		return wire.Response{Code: wire.CodeLoggedIn, Text: fmt.Sprintf("User %s logged in", h.user)}, nil
	}

	return wire.Response{Code: wire.CodeBadSequence, Text: "Bad sequence of commands"},
		fmt.Errorf("%w: handshake already %s", wire.ErrSequenceViolation, h.state)
}

// login runs the handshake on the control connection. It returns nil once
// the user is accepted; on any other outcome the reply has already been sent
// and the caller closes the session.
func (s *session) login() error {
	h := newHandshake(s.server.auth)
	for !h.done() {
		cmd, err := s.reader.ReadCommand()
		if err != nil {
			return err
		}

		s.server.logger.Debug("command",
			"session_id", s.sessionID,
			"remote_ip", s.remoteIP,
			"command", cmd.String(),
		)

		resp, herr := h.advance(cmd)
		if werr := s.reply(resp.Code, resp.Text); werr != nil {
			return werr
		}
		if herr != nil {
			if h.authErr != nil {
				s.server.logger.Error("credential check failed",
					"session_id", s.sessionID,
					"user", h.user,
					"error", h.authErr,
				)
			}
			if h.user != "" && cmd.Op == wire.OpPass {
				s.recordAuth(false, h.user)
			}
			return herr
		}
	}

	s.user = h.user
	s.recordAuth(true, s.user)
	s.server.logger.Info("login_success",
		"session_id", s.sessionID,
		"remote_ip", s.remoteIP,
		"user", s.user,
	)
	return nil
}

func (s *session) recordAuth(success bool, user string) {
	if !success {
		s.server.logger.Warn("login_failed",
			"session_id", s.sessionID,
			"remote_ip", s.remoteIP,
			"user", user,
		)
	}
	if s.server.metricsCollector != nil {
		s.server.metricsCollector.RecordAuthentication(success, user)
	}
}
