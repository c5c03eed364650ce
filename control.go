package myftp

import (
	"fmt"

	"github.com/gonzalop/myftp/internal/wire"
)

// Response represents a status line from the server.
type Response struct {
	// Code is the 3-digit response code
	Code int

	// Message is the text after the code
	Message string
}

// String returns the response as it appeared on the wire.
func (r *Response) String() string {
	if r.Message == "" {
		return fmt.Sprintf("%03d", r.Code)
	}
	return fmt.Sprintf("%03d %s", r.Code, r.Message)
}

func toResponse(r wire.Response) *Response {
	return &Response{Code: int(r.Code), Message: r.Text}
}

// send writes a command without waiting for a reply. PORT is the only
// command the server does not answer.
func (c *Client) send(op, param string) error {
	cmd := wire.Command{Op: op, Param: param}
	c.logger.Debug("ftp command", "cmd", cmd.String())

	if err := c.writer.WriteCommand(op, param); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	return nil
}

// readResponse reads one status line from the control connection.
func (c *Client) readResponse() (wire.Response, error) {
	resp, err := c.reader.ReadResponse()
	if err != nil {
		return wire.Response{}, fmt.Errorf("failed to read response: %w", err)
	}
	c.logger.Debug("ftp response", "code", int(resp.Code), "message", resp.Text)
	return resp, nil
}

// sendCommand sends a command and returns the response.
func (c *Client) sendCommand(op, param string) (wire.Response, error) {
	if err := c.send(op, param); err != nil {
		return wire.Response{}, err
	}
	return c.readResponse()
}

// expectCode sends a command and verifies the response code matches the
// expected code. A mismatch is a ProtocolError wrapping ErrProtocolFraming.
func (c *Client) expectCode(expected wire.Code, op, param string) (wire.Response, error) {
	resp, err := c.sendCommand(op, param)
	if err != nil {
		return resp, err
	}
	if resp.Code != expected {
		return resp, newProtocolError(wire.Command{Op: op, Param: param}, resp, wire.ErrProtocolFraming)
	}
	return resp, nil
}
