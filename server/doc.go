// Package server implements a minimal active-mode FTP server.
//
// # Overview
//
// A session greets the client, runs the USER/PASS handshake and then serves
// three commands:
//   - PORT a,b,c,d,p1,p2 announces where the client listens for data
//   - RETR name sends one file over a connection the server opens to that
//     address
//   - QUIT ends the session
//
// PORT is not acknowledged. Every other token after login is ignored.
//
// # Getting Started
//
//	package main
//
//	import (
//	    "log"
//
//	    "github.com/gonzalop/myftp/server"
//	)
//
//	func main() {
//	    s, err := server.NewServer(":2121",
//	        server.WithRootDir("/srv/ftp"),
//	        server.WithAuthenticator(server.NewFileAuthenticator("./ftpusers")),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := s.ListenAndServe(); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Credentials
//
// NewFileAuthenticator reads a text file with one "user:secret" entry per
// line. Any type with an Authenticate method can be used instead:
//
//	auth := server.AuthenticatorFunc(func(user, pass string) (bool, error) {
//	    return user == "guest" && pass == "guest", nil
//	})
//
// # Files
//
// WithRootDir serves a local directory through os.Root; RETR names cannot
// escape it. WithFS accepts any fs.FS (embed.FS, fstest.MapFS, ...).
//
// # Security
//
// By default the address in PORT must be the control connection's peer.
// This keeps the server from being used to open connections to third
// parties. WithAllowForeignDataAddress(true) turns the check off.
//
// # Logging
//
// The server logs with log/slog. Events are snake_case messages
// (session_started, login_failed, transfer_complete, ...) carrying
// session_id, remote_ip and user attributes. Passwords are never logged.
package server
