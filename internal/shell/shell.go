// Package shell is the operator side of the myftp client: it reads
// instructions ("get <name>", "quit"), drives a logged-in client and prints
// what the server answered.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/gonzalop/myftp"
)

// Session is the part of *myftp.Client the loop uses.
type Session interface {
	RetrieveTo(ctx context.Context, name, localPath string) (*myftp.Transfer, error)
	Quit() (*myftp.Response, error)
}

// Kind classifies an operator instruction.
type Kind int

const (
	Empty Kind = iota
	Get
	Quit
	Unknown
)

// Instruction is one parsed operator line.
type Instruction struct {
	Kind Kind
	// Arg is the file name for Get and the unrecognized word for Unknown.
	Arg string
}

// Parse classifies an operator line. Words are case-insensitive; the Get
// argument is the rest of the line, so names may contain spaces.
func Parse(line string) Instruction {
	line = strings.TrimSpace(line)
	if line == "" {
		return Instruction{Kind: Empty}
	}
	word, rest, _ := strings.Cut(line, " ")
	switch strings.ToLower(word) {
	case "get":
		return Instruction{Kind: Get, Arg: strings.TrimSpace(rest)}
	case "quit":
		return Instruction{Kind: Quit}
	}
	return Instruction{Kind: Unknown, Arg: word}
}

// Shell runs operator instructions against a session.
type Shell struct {
	session Session
	input   Input
	out     *Printer
	dir     string
	logger  *slog.Logger
}

// New returns a shell saving downloads into dir.
func New(session Session, input Input, out *Printer, dir string, logger *slog.Logger) *Shell {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Shell{session: session, input: input, out: out, dir: dir, logger: logger}
}

// Run reads instructions until quit or the end of input, which behaves like
// quit. It returns an error only when the session can no longer be used.
func (s *Shell) Run(ctx context.Context) error {
	for {
		line, err := s.input.Next()
		if errors.Is(err, io.EOF) {
			return s.quit()
		}
		if err != nil {
			return fmt.Errorf("read instruction: %w", err)
		}

		in := Parse(line)
		switch in.Kind {
		case Empty:
			continue
		case Quit:
			return s.quit()
		case Unknown:
			s.out.Error("unrecognized command: %s", in.Arg)
		case Get:
			if in.Arg == "" {
				s.out.Error("usage: get <file>")
				continue
			}
			if err := s.get(ctx, in.Arg); err != nil {
				return err
			}
		}
	}
}

// get downloads one file. Failures that leave the control channel in step
// are printed; the rest are returned.
func (s *Shell) get(ctx context.Context, name string) error {
	base := path.Base(name)
	if base == "." || base == "/" || base == ".." {
		s.out.Error("usage: get <file>")
		return nil
	}
	local := filepath.Join(s.dir, base)

	t, err := s.session.RetrieveTo(ctx, name, local)
	if err == nil {
		s.out.Success("%s", t.Reply)
		s.out.Info("%d bytes saved to %s", t.Received, local)
		return nil
	}

	s.logger.Debug("get failed", "name", name, "error", err)

	switch {
	case myftp.IsNotFound(err),
		errors.Is(err, myftp.ErrDataChannelUnreachable),
		errors.Is(err, myftp.ErrTransferInterrupted):
		s.out.Error("%s", serverReply(err))
		if t != nil && t.Received > 0 && errors.Is(err, myftp.ErrTransferInterrupted) {
			s.out.Info("partial file kept: %d of %d bytes in %s", t.Received, t.Size, local)
		}
		return nil
	}

	s.out.Error("%v", err)
	return fmt.Errorf("get %s: %w", name, err)
}

func (s *Shell) quit() error {
	resp, err := s.session.Quit()
	if err != nil {
		s.out.Error("%v", err)
		return fmt.Errorf("quit: %w", err)
	}
	s.out.Info("%s", resp)
	return nil
}

// serverReply returns the server line carried by a ProtocolError, or the
// error text when there is none.
func serverReply(err error) string {
	var pe *myftp.ProtocolError
	if errors.As(err, &pe) {
		return pe.Response
	}
	return err.Error()
}
