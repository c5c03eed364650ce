package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

func fatalIfErr(t *testing.T, err error, format string, args ...interface{}) {
	t.Helper()
	if err != nil {
		t.Fatalf(format+": %v", append(args, err)...)
	}
}

// testFiles is the tree most tests serve.
func testFiles() fstest.MapFS {
	return fstest.MapFS{
		"hello.txt":     {Data: []byte("Hello, FTP World!")},
		"empty.txt":     {Data: nil},
		"sub/inner.bin": {Data: []byte{0, 1, 2, 3, 255}},
	}
}

// testAuth accepts alice:secret and bob:hunter:2.
var testAuth = AuthenticatorFunc(func(user, pass string) (bool, error) {
	return (user == "alice" && pass == "secret") || (user == "bob" && pass == "hunter:2"), nil
})

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startServer serves testFiles with testAuth plus any extra options.
func startServer(t *testing.T, extra ...Option) (*Server, string) {
	t.Helper()
	opts := append([]Option{WithAuthenticator(testAuth), WithFS(testFiles())}, extra...)
	return startServerWith(t, opts...)
}

// startServerWith serves on a loopback port and returns the address.
func startServerWith(t *testing.T, opts ...Option) (*Server, string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	fatalIfErr(t, err, "listen")

	s, err := NewServer(ln.Addr().String(), append([]Option{WithLogger(discardLogger())}, opts...)...)
	fatalIfErr(t, err, "NewServer")

	go func() {
		if err := s.Serve(ln); err != nil && err != ErrServerClosed {
			t.Logf("Server stopped: %v", err)
		}
	}()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})

	return s, ln.Addr().String()
}

// ctrl is a raw control connection speaking the wire protocol by hand.
type ctrl struct {
	t    *testing.T
	conn net.Conn
	tp   *textproto.Conn
}

func dialCtrl(t *testing.T, addr string) *ctrl {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	fatalIfErr(t, err, "dial %s", addr)
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))
	return &ctrl{t: t, conn: conn, tp: textproto.NewConn(conn)}
}

func (c *ctrl) send(format string, args ...interface{}) {
	c.t.Helper()
	fatalIfErr(c.t, c.tp.PrintfLine(format, args...), "send %q", format)
}

// expect reads one line and checks its code and, if text is non-empty, the
// text after the code. It returns the text.
func (c *ctrl) expect(code int, text string) string {
	c.t.Helper()
	line, err := c.tp.ReadLine()
	fatalIfErr(c.t, err, "read reply (want %d)", code)
	prefix := fmt.Sprintf("%03d", code)
	if !strings.HasPrefix(line, prefix) {
		c.t.Fatalf("reply = %q, want code %d", line, code)
	}
	got := strings.TrimPrefix(strings.TrimPrefix(line, prefix), " ")
	if text != "" && got != text {
		c.t.Fatalf("reply = %q, want %s %s", line, prefix, text)
	}
	return got
}

// expectClosed asserts the server closed the control connection without
// sending anything else.
func (c *ctrl) expectClosed() {
	c.t.Helper()
	line, err := c.tp.ReadLine()
	if err == nil {
		c.t.Fatalf("expected connection close, got %q", line)
	}
}

func (c *ctrl) login(user, pass string) {
	c.t.Helper()
	c.expect(220, "srvFtp version 1.0")
	c.send("USER %s", user)
	c.expect(331, "Password required for "+user)
	c.send("PASS %s", pass)
	c.expect(230, "User "+user+" logged in")
}

// dataListener opens a loopback listener and returns it with its PORT
// argument.
func dataListener(t *testing.T) (net.Listener, string) {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	fatalIfErr(t, err, "listen data")
	t.Cleanup(func() { ln.Close() })
	port := ln.Addr().(*net.TCPAddr).Port
	return ln, "127,0,0,1," + strconv.Itoa(port>>8) + "," + strconv.Itoa(port&0xff)
}

// acceptAll accepts one connection and reads it to EOF.
func acceptAll(ln net.Listener) <-chan []byte {
	ch := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			ch <- nil
			return
		}
		defer conn.Close()
		b, _ := io.ReadAll(conn)
		ch <- b
	}()
	return ch
}

// closedPort returns a PORT argument for a loopback port nobody listens on.
func closedPort(t *testing.T) string {
	t.Helper()
	ln, arg := dataListener(t)
	ln.Close()
	return arg
}

// bigFile returns a file of n bytes with a repeating pattern.
func bigFile(n int) *fstest.MapFile {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return &fstest.MapFile{Data: b}
}
