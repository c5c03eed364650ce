// Package myftp implements the client side of a minimal active-mode FTP
// dialect: login, single-file download, quit.
//
// # Overview
//
// The client supports:
//   - USER/PASS login
//   - RETR over an active-mode (PORT) data connection the client listens for
//   - Progress tracking via WithProgress
//   - Error classes that can be tested with errors.Is
//
// # Basic Usage
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
//
//	if _, err := client.RetrieveTo(ctx, "report.txt", "/tmp/report.txt"); err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := client.Quit(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Data Connections
//
// Every Retrieve opens a listener on the interface used by the control
// connection, announces it with PORT and waits for the server to connect.
// PORT is never acknowledged by the server; the next reply belongs to RETR.
// The listener accepts a single connection and is closed with it.
//
// # Error Handling
//
// Server replies outside the expected path are returned as *ProtocolError,
// which carries the command, the raw reply and the code, and unwraps to one
// of the Err* classes:
//
//	_, err := client.Retrieve(ctx, "missing.txt", io.Discard)
//	if myftp.IsNotFound(err) {
//	    // 550, the session is still usable
//	}
//	if errors.Is(err, myftp.ErrTransferInterrupted) {
//	    // fewer bytes arrived than the server announced
//	}
//
// # Debugging
//
// Pass a logger to see every command and reply (PASS arguments masked):
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
//	client, _ := myftp.Dial(addr, myftp.WithLogger(logger))
package myftp
