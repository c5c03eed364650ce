// Package wire implements the control-channel framing shared by the myftp
// client and server: status lines ("CODE TEXT\r\n"), command lines
// ("OP PARAM\r\n") and the PORT address encoding.
//
// All functions here are pure transforms. Reader and Writer add the line
// buffering on top of a net.Conn; they never interpret what they carry.
package wire

import (
	"fmt"
	"strings"
)

// Operation tokens understood by the server.
const (
	OpUser = "USER"
	OpPass = "PASS"
	OpPort = "PORT"
	OpRetr = "RETR"
	OpQuit = "QUIT"
)

// MinOpLength is the shortest operation token accepted on the wire.
const MinOpLength = 4

var lineBreaks = strings.NewReplacer("\r", " ", "\n", " ")

// Response is a single status line sent by the server.
type Response struct {
	Code Code
	Text string
}

// String returns the response as it appears on the wire, without terminator.
func (r Response) String() string {
	if r.Text == "" {
		return r.Code.String()
	}
	return r.Code.String() + " " + r.Text
}

// Command is a single command line sent by the client.
type Command struct {
	Op    string
	Param string
}

// Known reports whether the operation belongs to the recognized set.
func (c Command) Known() bool {
	switch c.Op {
	case OpUser, OpPass, OpPort, OpRetr, OpQuit:
		return true
	}
	return false
}

// String returns the command as it appears on the wire, with PASS arguments
// masked so it can be logged.
func (c Command) String() string {
	param := c.Param
	if c.Op == OpPass && param != "" {
		param = "***"
	}
	if param == "" {
		return c.Op
	}
	return c.Op + " " + param
}

// EncodeResponse formats a status line. Line breaks inside text are replaced
// by spaces so the result is always a single line. A code outside 100..999
// is ErrProtocolFraming.
func EncodeResponse(code Code, text string) (string, error) {
	if !code.Valid() {
		return "", fmt.Errorf("%w: status code %d is not three digits", ErrProtocolFraming, int(code))
	}
	if text == "" {
		return fmt.Sprintf("%03d\r\n", int(code)), nil
	}
	return fmt.Sprintf("%03d %s\r\n", int(code), lineBreaks.Replace(text)), nil
}

// DecodeResponse parses a status line including its terminator.
//
// Accepted forms: "220 text\r\n" and "220\r\n". A bare "\n" terminator is
// tolerated.
func DecodeResponse(line string) (Response, error) {
	body, err := trimTerminator(line)
	if err != nil {
		return Response{}, err
	}

	if len(body) < 3 || !isCode(body[:3]) {
		return Response{}, fmt.Errorf("%w: invalid response code in %q", ErrProtocolFraming, body)
	}
	code := Code(int(body[0]-'0')*100 + int(body[1]-'0')*10 + int(body[2]-'0'))

	if len(body) == 3 {
		return Response{Code: code}, nil
	}
	if body[3] != ' ' {
		return Response{}, fmt.Errorf("%w: invalid response format %q", ErrProtocolFraming, body)
	}
	return Response{Code: code, Text: body[4:]}, nil
}

// EncodeCommand formats a command line.
func EncodeCommand(op, param string) string {
	if param == "" {
		return op + "\r\n"
	}
	return op + " " + lineBreaks.Replace(param) + "\r\n"
}

// DecodeCommand parses a command line including its terminator. The
// operation is upper-cased; the parameter is everything after the first
// space.
func DecodeCommand(line string) (Command, error) {
	body, err := trimTerminator(line)
	if err != nil {
		return Command{}, err
	}

	op, param, _ := strings.Cut(body, " ")
	if len(op) < MinOpLength {
		return Command{}, fmt.Errorf("%w: %q", ErrMalformedCommand, body)
	}
	return Command{Op: strings.ToUpper(op), Param: param}, nil
}

func trimTerminator(line string) (string, error) {
	body, ok := strings.CutSuffix(line, "\n")
	if !ok {
		return "", fmt.Errorf("%w: missing line terminator in %q", ErrProtocolFraming, line)
	}
	body = strings.TrimSuffix(body, "\r")
	if strings.ContainsAny(body, "\r\n") {
		return "", fmt.Errorf("%w: embedded line break in %q", ErrProtocolFraming, body)
	}
	return body, nil
}

func isCode(s string) bool {
	if s[0] < '1' || s[0] > '9' {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
