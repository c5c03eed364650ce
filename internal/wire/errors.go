package wire

import (
	"errors"
	"fmt"
)

// Error classes shared by the client and the server. Concrete errors wrap one
// of these so callers can classify them with errors.Is.
var (
	// ErrProtocolFraming means a control line could not be split into
	// code/text or op/param, or the peer answered with an unexpected code.
	ErrProtocolFraming = errors.New("protocol framing error")

	// ErrMalformedCommand means the operation token is missing or too short.
	ErrMalformedCommand = errors.New("malformed command")

	// ErrBadAddressEncoding means a PORT argument could not be decoded.
	ErrBadAddressEncoding = errors.New("bad address encoding")

	// ErrSequenceViolation means a command arrived in the wrong state.
	ErrSequenceViolation = errors.New("command sequence violation")

	// ErrDataChannelUnreachable means the outbound data connection failed.
	ErrDataChannelUnreachable = errors.New("data channel unreachable")

	// ErrTransferInterrupted means the data channel failed mid-copy.
	ErrTransferInterrupted = errors.New("transfer interrupted")

	// ErrCredentialDenied means the server rejected the user/password pair.
	ErrCredentialDenied = errors.New("credentials denied")
)

// ErrUnexpectedCommand is returned by the login handshake when the peer sends
// something other than the command the current state waits for.
var ErrUnexpectedCommand = fmt.Errorf("unexpected command: %w", ErrSequenceViolation)
