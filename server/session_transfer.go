package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"os"
	"time"

	"github.com/gonzalop/myftp/internal/ratelimit"
	"github.com/gonzalop/myftp/internal/transfer"
	"github.com/gonzalop/myftp/internal/wire"
)

var (
	// errForeignDataAddress is returned when PORT names a host other than
	// the control connection's peer.
	errForeignDataAddress = errors.New("data address does not match control peer")

	// errControlClosed cancels a transfer whose control connection went away.
	errControlClosed = errors.New("control connection closed during transfer")
)

// handlePORT records the data endpoint for the next RETR. Nothing is sent
// back on success.
func (s *session) handlePORT(arg string) error {
	ap, err := wire.DecodeAddr(arg)
	if err != nil {
		_ = s.reply(wire.CodeBadArgument, "Bad PORT argument")
		return fmt.Errorf("PORT %q: %w", arg, err)
	}

	// Prevent bounce attacks: the data connection must go back to the peer.
	if !s.server.allowForeignData && ap.Addr() != s.remoteIP {
		s.server.logger.Warn("port_rejected",
			"session_id", s.sessionID,
			"remote_ip", s.remoteIP,
			"user", s.user,
			"target", ap.String(),
		)
		_ = s.reply(wire.CodeSyntaxError, "Illegal PORT command.")
		return fmt.Errorf("PORT %s: %w", ap, errForeignDataAddress)
	}

	s.dataAddr = ap
	return nil
}

// handleRETR sends one file over a fresh active-mode data connection.
func (s *session) handleRETR(name string) error {
	if !s.dataAddr.IsValid() {
		_ = s.reply(wire.CodeBadSequence, "PORT required before RETR")
		return fmt.Errorf("%w: RETR without PORT", wire.ErrSequenceViolation)
	}
	target := s.dataAddr
	s.dataAddr = netip.AddrPort{}

	f, size, err := openForRetrieve(s.server.files, name)
	if err != nil {
		s.server.logger.Info("file_unavailable",
			"session_id", s.sessionID,
			"user", s.user,
			"path", name,
			"error", err,
		)
		return s.reply(wire.CodeFileUnavailable, fmt.Sprintf("%s: no such file or directory", name))
	}
	defer f.Close()

	conn, err := s.dialData(target)
	if err != nil {
		s.server.logger.Warn("data_connection_failed",
			"session_id", s.sessionID,
			"user", s.user,
			"target", target.String(),
			"error", err,
		)
		return s.reply(wire.CodeCantOpenData, "Can't open data connection")
	}

	if err := s.reply(wire.CodeFileFollows, fmt.Sprintf("File %s size %d bytes", name, size)); err != nil {
		conn.Close()
		return err
	}

	return s.sendFile(conn, f, name, size)
}

// dialData opens the outbound data connection.
func (s *session) dialData(target netip.AddrPort) (net.Conn, error) {
	conn, err := s.server.dialer.DialContext(s.ctx, "tcp4", target.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", wire.ErrDataChannelUnreachable, err)
	}
	return conn, nil
}

// sendFile copies size bytes of src to the data connection and closes it.
// It returns an error only when the session has to end.
func (s *session) sendFile(conn net.Conn, src io.Reader, name string, size int64) error {
	ctx, cancel := context.WithCancelCause(s.ctx)
	defer cancel(nil)

	// Cancelling ctx unblocks a Write stuck on a slow receiver.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	stopWatch := s.watchControl(cancel)

	start := time.Now()
	dst := ratelimit.NewWriter(ctx, conn, ratelimit.New(s.server.bandwidthLimit))
	n, err := transfer.Send(ctx, dst, src, size)
	if cerr := conn.Close(); err == nil && cerr != nil && !errors.Is(cerr, net.ErrClosed) {
		err = fmt.Errorf("%w: close: %w", wire.ErrTransferInterrupted, cerr)
	}
	duration := time.Since(start)

	if stopWatch() {
		return context.Cause(ctx)
	}
	if cause := context.Cause(s.ctx); cause != nil {
		return cause
	}

	if err != nil {
		s.server.logger.Warn("transfer_failed",
			"session_id", s.sessionID,
			"user", s.user,
			"operation", "RETR",
			"path", name,
			"bytes", n,
			"error", err,
		)
		return s.reply(wire.CodeTransferAborted, "Connection closed; transfer aborted")
	}

	// Calculate throughput in MB/s
	throughputMBps := float64(0)
	if duration.Seconds() > 0 {
		throughputMBps = float64(n) / duration.Seconds() / 1024 / 1024
	}

	s.server.logger.Info("transfer_complete",
		"session_id", s.sessionID,
		"remote_ip", s.remoteIP,
		"user", s.user,
		"operation", "RETR",
		"path", name,
		"bytes", n,
		"duration_ms", duration.Milliseconds(),
		"throughput_mbps", fmt.Sprintf("%.2f", throughputMBps),
	)

	if s.server.metricsCollector != nil {
		s.server.metricsCollector.RecordTransfer("RETR", n, duration)
	}

	return s.reply(wire.CodeTransferComplete, "Transfer complete")
}

// watchControl notices the client closing the control connection while a
// transfer runs and cancels the transfer. The returned function stops the
// watcher and reports whether the control connection was lost.
//
// Bytes the client sends meanwhile stay buffered for the command loop.
func (s *session) watchControl(cancel context.CancelCauseFunc) func() bool {
	lost := make(chan bool, 1)
	go func() {
		_, err := s.reader.Buffered().Peek(1)
		if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
			cancel(fmt.Errorf("%w: %w", errControlClosed, err))
			lost <- true
			return
		}
		lost <- false
	}()

	return func() bool {
		_ = s.conn.SetReadDeadline(time.Unix(1, 0))
		l := <-lost
		_ = s.conn.SetReadDeadline(time.Time{})
		return l
	}
}
