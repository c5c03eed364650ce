// Package transfer copies file bytes over a data connection in fixed-size
// chunks. The engine never looks at the bytes; it only enforces the
// announced length.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gonzalop/myftp/internal/wire"
)

// ChunkSize is the size of each read from the source.
const ChunkSize = 512

// Send copies at most length bytes from src to dst in ChunkSize pieces,
// stopping early at the end of src. The caller closes dst afterwards so the
// receiver sees end-of-stream.
//
// Errors on either side, and cancellation of ctx, are reported as
// wire.ErrTransferInterrupted.
func Send(ctx context.Context, dst io.Writer, src io.Reader, length int64) (int64, error) {
	return copyChunks(ctx, dst, io.LimitReader(src, length))
}

// Receive copies from src to dst until expected bytes have been written or
// src reports end-of-stream, whichever comes first. It never writes more than
// expected bytes, even if the peer sends more.
//
// An EOF before expected is not an error here; the caller compares the
// returned count against what was announced. Bytes already written to dst
// stay there when an error is returned.
func Receive(ctx context.Context, src io.Reader, dst io.Writer, expected int64) (int64, error) {
	return copyChunks(ctx, dst, io.LimitReader(src, expected))
}

func copyChunks(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, ChunkSize)
	var total int64

	for {
		if err := ctx.Err(); err != nil {
			return total, fmt.Errorf("%w: %w", wire.ErrTransferInterrupted, err)
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			written, werr := dst.Write(buf[:n])
			total += int64(written)
			if werr == nil && written != n {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				return total, interrupted(ctx, "write", werr)
			}
		}

		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return total, nil
			}
			return total, interrupted(ctx, "read", rerr)
		}
	}
}

// interrupted prefers the context error when the connection was closed
// because ctx was cancelled.
func interrupted(ctx context.Context, op string, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("%w: %s: %w", wire.ErrTransferInterrupted, op, cerr)
	}
	return fmt.Errorf("%w: %s: %w", wire.ErrTransferInterrupted, op, err)
}
