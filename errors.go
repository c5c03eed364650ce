package myftp

import (
	"fmt"

	"github.com/gonzalop/myftp/internal/wire"
)

// Error classes. Every error returned by the client for a protocol-level
// failure wraps one of these; test with errors.Is.
var (
	ErrProtocolFraming        = wire.ErrProtocolFraming
	ErrMalformedCommand       = wire.ErrMalformedCommand
	ErrBadAddressEncoding     = wire.ErrBadAddressEncoding
	ErrSequenceViolation      = wire.ErrSequenceViolation
	ErrUnexpectedCommand      = wire.ErrUnexpectedCommand
	ErrDataChannelUnreachable = wire.ErrDataChannelUnreachable
	ErrTransferInterrupted    = wire.ErrTransferInterrupted
	ErrCredentialDenied       = wire.ErrCredentialDenied
)

// ProtocolError represents an FTP protocol error with full context of the
// command/response conversation. This provides detailed debugging information
// beyond simple error messages.
type ProtocolError struct {
	// Command is the command that was sent (e.g., "RETR file.txt")
	Command string

	// Response is the raw response received from the server (e.g., "550 file.txt: no such file or directory")
	Response string

	// Code is the numeric response code (e.g., 550)
	Code int

	// Err is the error class, if the code maps to one.
	Err error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ftp: %s failed: %s (code %d): %v", e.Command, e.Response, e.Code, e.Err)
	}
	return fmt.Sprintf("ftp: %s failed: %s (code %d)", e.Command, e.Response, e.Code)
}

// Unwrap returns the error class.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Is4xx returns true if the error code is in the 4xx range (temporary failure).
func (e *ProtocolError) Is4xx() bool {
	return e.Code >= 400 && e.Code < 500
}

// Is5xx returns true if the error code is in the 5xx range (permanent failure).
func (e *ProtocolError) Is5xx() bool {
	return e.Code >= 500 && e.Code < 600
}

// IsNotFound reports whether the server refused a RETR because the file does
// not exist.
func (e *ProtocolError) IsNotFound() bool {
	return e.Code == int(wire.CodeFileUnavailable)
}

func newProtocolError(cmd wire.Command, resp wire.Response, class error) *ProtocolError {
	return &ProtocolError{
		Command:  cmd.String(),
		Response: resp.String(),
		Code:     int(resp.Code),
		Err:      class,
	}
}
