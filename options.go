package myftp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
)

// Option is a functional option for configuring an FTP client.
type Option func(*Client) error

// Dialer opens the control connection. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// WithLogger enables debug logging using the provided logger.
// All commands and responses will be logged at debug level, with PASS
// arguments masked.
//
// Example:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	}))
//	client, _ := myftp.Dial("127.0.0.1:2121", myftp.WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithDialer sets a custom dialer for the control connection.
// This can be used to configure source addresses, connect timeouts, etc.
func WithDialer(dialer Dialer) Option {
	return func(c *Client) error {
		if dialer == nil {
			return fmt.Errorf("dialer cannot be nil")
		}
		c.dialer = dialer
		return nil
	}
}

// WithProgress registers a callback invoked as file bytes arrive. done is
// the number of bytes received so far and total the size the server
// announced.
//
// Example:
//
//	myftp.WithProgress(func(done, total int64) {
//	    fmt.Printf("\r%d/%d", done, total)
//	})
func WithProgress(fn func(done, total int64)) Option {
	return func(c *Client) error {
		c.progress = fn
		return nil
	}
}
