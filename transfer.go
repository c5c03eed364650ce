package myftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gonzalop/myftp/internal/transfer"
	"github.com/gonzalop/myftp/internal/wire"
)

// Transfer describes a finished RETR.
type Transfer struct {
	// Name is the remote name as sent in RETR
	Name string

	// Size is the length the server announced
	Size int64

	// Received is the number of bytes written to the destination
	Received int64

	// Reply is the server's completion line (normally 226)
	Reply *Response
}

// Retrieve downloads the remote file name to w over an active-mode data
// connection.
//
// The returned errors classify the failure:
//   - a *ProtocolError with IsNotFound() for a 550; the session stays usable
//   - ErrDataChannelUnreachable when the server could not connect back (425)
//   - ErrTransferInterrupted when fewer bytes than announced arrived
//   - ErrSequenceViolation or ErrProtocolFraming when the server answered
//     out of protocol; the server has closed the session
//
// Example:
//
//	file, err := os.Create("local.txt")
//	if err != nil {
//	    return err
//	}
//	defer file.Close()
//
//	_, err = client.Retrieve(ctx, "remote.txt", file)
func (c *Client) Retrieve(ctx context.Context, name string, w io.Writer) (*Transfer, error) {
	dl, err := c.openDataListener()
	if err != nil {
		return nil, err
	}
	defer dl.Close()

	arg, err := wire.EncodeAddr(dl.addr)
	if err != nil {
		return nil, err
	}

	// PORT has no reply; the next line read answers RETR.
	if err := c.send(wire.OpPort, arg); err != nil {
		return nil, err
	}

	cmd := wire.Command{Op: wire.OpRetr, Param: name}
	resp, err := c.sendCommand(cmd.Op, cmd.Param)
	if err != nil {
		return nil, err
	}

	switch resp.Code {
	case wire.CodeFileFollows:
	case wire.CodeFileUnavailable:
		return nil, newProtocolError(cmd, resp, nil)
	case wire.CodeCantOpenData:
		return nil, newProtocolError(cmd, resp, wire.ErrDataChannelUnreachable)
	case wire.CodeBadSequence:
		return nil, newProtocolError(cmd, resp, wire.ErrSequenceViolation)
	default:
		return nil, newProtocolError(cmd, resp, wire.ErrProtocolFraming)
	}

	size, err := parseFileSize(resp.Text)
	if err != nil {
		return nil, newProtocolError(cmd, resp, err)
	}

	t := &Transfer{Name: name, Size: size}

	conn, err := dl.accept(ctx)
	if err != nil {
		return t, err
	}

	dst := w
	if c.progress != nil {
		dst = &progressWriter{w: w, total: size, report: c.progress}
	}

	n, recvErr := transfer.Receive(ctx, conn, dst, size)
	t.Received = n
	if closeErr := dl.Close(); closeErr != nil {
		c.logger.Debug("data channel close", "error", closeErr)
	}

	// The completion line is read even after a failed copy so the control
	// channel stays in step with the server.
	done, err := c.readResponse()
	if err != nil {
		if recvErr != nil {
			return t, recvErr
		}
		return t, err
	}
	t.Reply = toResponse(done)

	switch {
	case recvErr != nil:
		return t, recvErr
	case done.Code == wire.CodeTransferAborted:
		return t, newProtocolError(cmd, done, wire.ErrTransferInterrupted)
	case done.Code != wire.CodeTransferComplete:
		return t, newProtocolError(cmd, done, wire.ErrProtocolFraming)
	case n < size:
		return t, fmt.Errorf("%w: received %d of %d bytes", wire.ErrTransferInterrupted, n, size)
	}

	return t, nil
}

// RetrieveTo downloads the remote file name to the local file localPath.
// The data goes to a temporary file next to localPath. It replaces localPath
// once the transfer completes, or once it is interrupted after some bytes
// arrived; the partial file is kept and the ErrTransferInterrupted error is
// still returned. A refused RETR (550, 425, ...) leaves localPath alone.
func (c *Client) RetrieveTo(ctx context.Context, name, localPath string) (*Transfer, error) {
	file, err := os.CreateTemp(filepath.Dir(localPath), "."+filepath.Base(localPath)+".part-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create local file: %w", err)
	}
	tmp := file.Name()
	// CreateTemp uses 0600; downloads get the usual mode.
	_ = file.Chmod(0o644)

	t, err := c.Retrieve(ctx, name, file)
	if cerr := file.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close local file: %w", cerr)
	}

	partial := errors.Is(err, wire.ErrTransferInterrupted) && t != nil && t.Received > 0
	if err != nil && !partial {
		_ = os.Remove(tmp)
		return t, err
	}
	if rerr := os.Rename(tmp, localPath); rerr != nil {
		_ = os.Remove(tmp)
		if err == nil {
			err = fmt.Errorf("failed to save local file: %w", rerr)
		}
		return t, err
	}
	return t, err
}

// parseFileSize extracts n from "File <name> size <n> bytes". The name may
// contain spaces, so the size is taken from the end of the line.
func parseFileSize(text string) (int64, error) {
	rest, ok := strings.CutSuffix(text, " bytes")
	if !ok {
		return 0, fmt.Errorf("%w: no size in %q", wire.ErrProtocolFraming, text)
	}
	i := strings.LastIndex(rest, " size ")
	if i < 0 {
		return 0, fmt.Errorf("%w: no size in %q", wire.ErrProtocolFraming, text)
	}
	size, err := strconv.ParseInt(rest[i+len(" size "):], 10, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("%w: bad size in %q", wire.ErrProtocolFraming, text)
	}
	return size, nil
}

// IsNotFound reports whether err is a 550 reply to RETR.
func IsNotFound(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe) && pe.IsNotFound()
}
