package myftp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/gonzalop/myftp/internal/wire"
)

// dataListener is the client end of an active-mode data channel. It accepts
// exactly one connection from the server and then stops listening.
type dataListener struct {
	listener net.Listener

	// addr is what the client advertises in PORT.
	addr netip.AddrPort

	mu       sync.Mutex
	conn     net.Conn
	stopConn func() bool
}

// openDataListener listens on an ephemeral port of the interface the control
// connection uses, so the advertised address is one the server can reach.
func (c *Client) openDataListener() (*dataListener, error) {
	local, err := netip.ParseAddrPort(c.conn.LocalAddr().String())
	if err != nil {
		return nil, fmt.Errorf("%w: local address %s: %w", wire.ErrBadAddressEncoding, c.conn.LocalAddr(), err)
	}
	host := local.Addr().Unmap()
	if !host.Is4() {
		return nil, fmt.Errorf("%w: control connection is not IPv4 (%s)", wire.ErrBadAddressEncoding, host)
	}

	// Listen on a random port on the same interface
	listener, err := net.Listen("tcp4", netip.AddrPortFrom(host, 0).String())
	if err != nil {
		// Fallback to all interfaces if listening on specific IP fails
		listener, err = net.Listen("tcp4", ":0")
		if err != nil {
			return nil, fmt.Errorf("failed to create listener: %w", err)
		}
	}

	port := listener.Addr().(*net.TCPAddr).Port
	return &dataListener{
		listener: listener,
		addr:     netip.AddrPortFrom(host, uint16(port)),
	}, nil
}

// accept waits for the server's connection. Cancelling ctx unblocks it.
// The listening socket is closed as soon as one connection arrives.
func (d *dataListener) accept(ctx context.Context) (net.Conn, error) {
	stop := context.AfterFunc(ctx, func() { d.listener.Close() })
	defer stop()

	conn, err := d.listener.Accept()
	d.listener.Close()
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, fmt.Errorf("%w: %w", wire.ErrDataChannelUnreachable, cerr)
		}
		return nil, fmt.Errorf("%w: accept: %w", wire.ErrDataChannelUnreachable, err)
	}

	// Cancelling ctx also interrupts a read blocked on a stalled server.
	d.mu.Lock()
	d.conn = conn
	d.stopConn = context.AfterFunc(ctx, func() { conn.Close() })
	d.mu.Unlock()

	return conn, nil
}

// Close releases the data connection and the listening socket.
func (d *dataListener) Close() error {
	var result error

	d.mu.Lock()
	conn, stop := d.conn, d.stopConn
	d.mu.Unlock()

	if stop != nil {
		stop()
	}
	if conn != nil {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			result = multierror.Append(result, fmt.Errorf("close data connection: %w", err))
		}
	}
	if err := d.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		result = multierror.Append(result, fmt.Errorf("close data listener: %w", err))
	}
	return result
}
