package server

import (
	"bufio"
	"crypto/subtle"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// Authenticator decides whether a user/password pair may log in.
//
// A non-nil error means the check itself failed (for example the credential
// store could not be read). The session denies the login in that case.
type Authenticator interface {
	Authenticate(user, pass string) (bool, error)
}

// AuthenticatorFunc adapts an ordinary function to the Authenticator
// interface.
type AuthenticatorFunc func(user, pass string) (bool, error)

// Authenticate calls f(user, pass).
func (f AuthenticatorFunc) Authenticate(user, pass string) (bool, error) {
	return f(user, pass)
}

// FileAuthenticator checks credentials against a flat text file with one
// "user:secret" entry per line. The split happens on the first colon, so
// secrets may contain colons. Blank lines and lines starting with '#' are
// skipped.
//
// The file is reopened on every check, so edits take effect for the next
// login without a restart.
type FileAuthenticator struct {
	path string
	fsys fs.FS
}

// NewFileAuthenticator returns an authenticator reading the file at path.
func NewFileAuthenticator(path string) *FileAuthenticator {
	return &FileAuthenticator{path: path}
}

// NewFSAuthenticator is like NewFileAuthenticator but reads name from fsys.
func NewFSAuthenticator(fsys fs.FS, name string) *FileAuthenticator {
	return &FileAuthenticator{path: name, fsys: fsys}
}

// Authenticate scans the credential file for an exact user:secret match.
// A missing file is an error, not a silent denial.
func (a *FileAuthenticator) Authenticate(user, pass string) (bool, error) {
	f, err := a.open()
	if err != nil {
		return false, fmt.Errorf("open credentials: %w", err)
	}
	defer f.Close()

	found := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, secret, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		// Keep scanning after a match so timing does not depend on position.
		if subtle.ConstantTimeCompare([]byte(name), []byte(user)) == 1 &&
			subtle.ConstantTimeCompare([]byte(secret), []byte(pass)) == 1 {
			found = true
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("read credentials: %w", err)
	}
	return found, nil
}

func (a *FileAuthenticator) open() (fs.File, error) {
	if a.fsys != nil {
		return a.fsys.Open(a.path)
	}
	f, err := os.Open(a.path)
	if err != nil {
		return nil, err
	}
	return f, nil
}
