package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"

	"github.com/gonzalop/myftp"
)

// Authenticator is the part of *myftp.Client the login driver uses.
type Authenticator interface {
	Login(user, pass string) error
}

// Prompter asks the operator for credentials.
type Prompter interface {
	Username(def string) (string, error)
	Password() (string, error)
}

// Login asks for credentials and logs in. A denial is printed and returned
// wrapped in myftp.ErrCredentialDenied; the server has closed the session by
// then, so there is no retry.
func Login(auth Authenticator, p Prompter, defaultUser string, out *Printer) error {
	user, err := p.Username(defaultUser)
	if err != nil {
		return fmt.Errorf("read username: %w", err)
	}
	if user == "" {
		return fmt.Errorf("username is required")
	}

	pass, err := p.Password()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	if err := auth.Login(user, pass); err != nil {
		if errors.Is(err, myftp.ErrCredentialDenied) {
			out.Error("%s", serverReply(err))
		} else {
			out.Error("%v", err)
		}
		return err
	}

	out.Success("User %s logged in", user)
	return nil
}

// TerminalPrompter reads the username as a line and the password without
// echo when fd is a terminal.
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

// NewTerminalPrompter reads from in and writes prompts to out. fd is the
// descriptor behind in, used to switch echo off.
func NewTerminalPrompter(in io.Reader, out io.Writer, fd int) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(in), out: out, fd: fd}
}

// Username prompts for a name, returning def on an empty answer.
func (t *TerminalPrompter) Username(def string) (string, error) {
	if def != "" {
		fmt.Fprintf(t.out, "Name (%s): ", def)
	} else {
		fmt.Fprint(t.out, "Name: ")
	}
	line, err := t.readLine()
	if err != nil {
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

// Password prompts for the password.
func (t *TerminalPrompter) Password() (string, error) {
	fmt.Fprint(t.out, "Password: ")
	if term.IsTerminal(t.fd) {
		b, err := term.ReadPassword(t.fd)
		fmt.Fprintln(t.out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return t.readLine()
}

func (t *TerminalPrompter) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
