package myftp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/gonzalop/myftp/internal/wire"
)

// Client represents an FTP client connection.
//
// A Client runs one command at a time and is not safe for concurrent use.
type Client struct {
	// conn is the underlying network connection (control channel)
	conn net.Conn

	// reader and writer frame control lines on conn
	reader *wire.Reader
	writer *wire.Writer

	// logger is used for debug logging
	logger *slog.Logger

	// dialer is used to establish the control connection
	dialer Dialer

	// progress is called while a file is received
	progress func(done, total int64)

	// greeting is the server's 220 line
	greeting *Response
}

// Dial connects to an FTP server at the given address and reads the
// greeting. The address should be in the form "host:port".
//
// Example:
//
//	client, err := myftp.Dial("127.0.0.1:2121")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.Login("alice", "secret"); err != nil {
//	    log.Fatal(err)
//	}
func Dial(addr string, options ...Option) (*Client, error) {
	return DialContext(context.Background(), addr, options...)
}

// DialContext is like Dial but uses ctx for the connect.
func DialContext(ctx context.Context, addr string, options ...Option) (*Client, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	// Create the client with defaults
	c := &Client{
		dialer: &net.Dialer{},
		logger: slog.New(slog.DiscardHandler),
	}

	// Apply options
	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	c.conn = conn
	c.reader = wire.NewReader(conn)
	c.writer = wire.NewWriter(conn)

	resp, err := c.readResponse()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read greeting: %w", err)
	}
	if resp.Code != wire.CodeServiceReady {
		conn.Close()
		return nil, newProtocolError(wire.Command{Op: "connect"}, resp, wire.ErrProtocolFraming)
	}
	c.greeting = toResponse(resp)

	return c, nil
}

// Greeting returns the server's 220 line.
func (c *Client) Greeting() *Response {
	return c.greeting
}

// Login authenticates with the server. The server closes the connection
// after a rejected login, so a Client cannot be reused once Login fails.
//
// A 530 reply is reported as ErrCredentialDenied:
//
//	if errors.Is(err, myftp.ErrCredentialDenied) { ... }
func (c *Client) Login(username, password string) error {
	if _, err := c.expectCode(wire.CodeNeedPassword, wire.OpUser, username); err != nil {
		return c.loginError(err)
	}
	if _, err := c.expectCode(wire.CodeLoggedIn, wire.OpPass, password); err != nil {
		return c.loginError(err)
	}
	c.logger.Debug("logged in", "user", username)
	return nil
}

// loginError reclassifies a 530 as a credential failure.
func (c *Client) loginError(err error) error {
	var pe *ProtocolError
	if errors.As(err, &pe) && pe.Code == int(wire.CodeLoginIncorrect) {
		pe.Err = wire.ErrCredentialDenied
	}
	return err
}

// Quit sends QUIT, waits for the goodbye and closes the connection.
func (c *Client) Quit() (*Response, error) {
	defer c.conn.Close()

	resp, err := c.expectCode(wire.CodeGoodbye, wire.OpQuit, "")
	if err != nil {
		return nil, err
	}
	return toResponse(resp), nil
}

// Close closes the control connection without sending QUIT.
func (c *Client) Close() error {
	return c.conn.Close()
}
