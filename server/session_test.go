package server

import (
	"bytes"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestSession_RetrieveFile(t *testing.T) {
	t.Parallel()
	_, addr := startServer(t)
	c := dialCtrl(t, addr)
	c.login("alice", "secret")

	ln, arg := dataListener(t)
	got := acceptAll(ln)

	c.send("PORT %s", arg)
	c.send("RETR hello.txt")
	c.expect(299, "File hello.txt size 17 bytes")

	if data := <-got; string(data) != "Hello, FTP World!" {
		t.Errorf("data = %q", data)
	}
	c.expect(226, "Transfer complete")

	c.send("QUIT")
	c.expect(221, "Goodbye")
	c.expectClosed()
}

func TestSession_BandwidthLimit(t *testing.T) {
	t.Parallel()
	files := testFiles()
	files["limited.bin"] = bigFile(12 * 1024)
	// One second of burst, then 4 KiB still owed at 8 KiB/s.
	_, addr := startServerWith(t,
		WithAuthenticator(testAuth),
		WithFS(files),
		WithBandwidthLimit(8*1024),
	)
	c := dialCtrl(t, addr)
	c.login("alice", "secret")

	ln, arg := dataListener(t)
	got := acceptAll(ln)

	start := time.Now()
	c.send("PORT %s", arg)
	c.send("RETR limited.bin")
	c.expect(299, "File limited.bin size 12288 bytes")
	if data := <-got; len(data) != 12*1024 {
		t.Fatalf("received %d bytes, want %d", len(data), 12*1024)
	}
	c.expect(226, "Transfer complete")

	if d := time.Since(start); d < 400*time.Millisecond {
		t.Errorf("throttled transfer took %v, want about 500ms", d)
	}
}

func TestSession_RetrieveEmptyAndNested(t *testing.T) {
	t.Parallel()
	_, addr := startServer(t)
	c := dialCtrl(t, addr)
	c.login("alice", "secret")

	tests := []struct {
		name string
		want []byte
	}{
		{"empty.txt", nil},
		{"sub/inner.bin", []byte{0, 1, 2, 3, 255}},
		{"/hello.txt", []byte("Hello, FTP World!")},
	}
	for _, tt := range tests {
		ln, arg := dataListener(t)
		got := acceptAll(ln)

		c.send("PORT %s", arg)
		c.send("RETR %s", tt.name)
		c.expect(299, "")
		if data := <-got; !bytes.Equal(data, tt.want) {
			t.Errorf("RETR %s: data = %v, want %v", tt.name, data, tt.want)
		}
		c.expect(226, "")
	}
}

func TestSession_MissingFileKeepsSession(t *testing.T) {
	t.Parallel()
	_, addr := startServer(t)
	c := dialCtrl(t, addr)
	c.login("alice", "secret")

	ln, arg := dataListener(t)
	c.send("PORT %s", arg)
	c.send("RETR nope.txt")
	c.expect(550, "nope.txt: no such file or directory")

	// The endpoint was consumed even though nothing was sent.
	c.send("RETR hello.txt")
	c.expect(503, "PORT required before RETR")
	c.expectClosed()
	ln.Close()
}

func TestSession_DirectoryAndEscapeAreMissing(t *testing.T) {
	t.Parallel()
	_, addr := startServer(t)
	c := dialCtrl(t, addr)
	c.login("alice", "secret")

	for _, name := range []string{"sub", "../hello.txt/..", ".."} {
		_, arg := dataListener(t)
		c.send("PORT %s", arg)
		c.send("RETR %s", name)
		c.expect(550, name+": no such file or directory")
	}
}

func TestSession_RetrBeforePort(t *testing.T) {
	t.Parallel()
	_, addr := startServer(t)
	c := dialCtrl(t, addr)
	c.login("alice", "secret")

	c.send("RETR hello.txt")
	c.expect(503, "PORT required before RETR")
	c.expectClosed()
}

func TestSession_PortIsOneShot(t *testing.T) {
	t.Parallel()
	_, addr := startServer(t)
	c := dialCtrl(t, addr)
	c.login("alice", "secret")

	ln, arg := dataListener(t)
	got := acceptAll(ln)
	c.send("PORT %s", arg)
	c.send("RETR hello.txt")
	c.expect(299, "")
	<-got
	c.expect(226, "")

	c.send("RETR hello.txt")
	c.expect(503, "")
	c.expectClosed()
}

func TestSession_LastPortWins(t *testing.T) {
	t.Parallel()
	_, addr := startServer(t)
	c := dialCtrl(t, addr)
	c.login("alice", "secret")

	c.send("PORT %s", closedPort(t))
	ln, arg := dataListener(t)
	got := acceptAll(ln)
	c.send("PORT %s", arg)
	c.send("RETR hello.txt")
	c.expect(299, "")
	if data := <-got; string(data) != "Hello, FTP World!" {
		t.Errorf("data = %q", data)
	}
	c.expect(226, "")
}

func TestSession_DataConnectionRefused(t *testing.T) {
	t.Parallel()
	_, addr := startServer(t)
	c := dialCtrl(t, addr)
	c.login("alice", "secret")

	c.send("PORT %s", closedPort(t))
	c.send("RETR hello.txt")
	c.expect(425, "Can't open data connection")

	// Session continues.
	ln, arg := dataListener(t)
	got := acceptAll(ln)
	c.send("PORT %s", arg)
	c.send("RETR hello.txt")
	c.expect(299, "")
	<-got
	c.expect(226, "")
}

func TestSession_BadPort(t *testing.T) {
	t.Parallel()
	tests := []string{
		"1,2,3",
		"127,0,0,1,300,1",
		"a,b,c,d,e,f",
		"",
	}
	for _, arg := range tests {
		t.Run(arg, func(t *testing.T) {
			t.Parallel()
			_, addr := startServer(t)
			c := dialCtrl(t, addr)
			c.login("alice", "secret")
			c.send("PORT %s", arg)
			c.expect(501, "Bad PORT argument")
			c.expectClosed()
		})
	}
}

func TestSession_ForeignPortRejected(t *testing.T) {
	t.Parallel()
	_, addr := startServer(t)
	c := dialCtrl(t, addr)
	c.login("alice", "secret")

	c.send("PORT 10,1,2,3,4,5")
	c.expect(500, "Illegal PORT command.")
	c.expectClosed()
}

func TestSession_ForeignPortAllowed(t *testing.T) {
	t.Parallel()
	_, addr := startServer(t, WithAllowForeignDataAddress(true))
	c := dialCtrl(t, addr)
	c.login("alice", "secret")

	// Accepted silently; the next command is still answered.
	c.send("PORT 10,1,2,3,4,5")
	c.send("QUIT")
	c.expect(221, "")
}

func TestSession_UnknownCommandsIgnored(t *testing.T) {
	t.Parallel()
	_, addr := startServer(t)
	c := dialCtrl(t, addr)
	c.login("alice", "secret")

	c.send("NOOP")
	c.send("LIST /")
	c.send("USER bob")
	c.send("quit")
	c.expect(221, "Goodbye")
	c.expectClosed()
}

// lockedBuffer collects log output written from session goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSession_IgnoredCommandsLogged(t *testing.T) {
	t.Parallel()
	logs := &lockedBuffer{}
	_, addr := startServer(t, WithLogger(slog.New(slog.NewTextHandler(logs, nil))))
	c := dialCtrl(t, addr)
	c.login("alice", "secret")

	c.send("NOOP")
	c.send("USER bob")
	c.send("QUIT")
	c.expect(221, "Goodbye")

	out := logs.String()
	for _, want := range []string{
		"msg=command_ignored",
		"command=NOOP recognized=false",
		`command="USER bob" recognized=true`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestSession_MalformedCommand(t *testing.T) {
	t.Parallel()
	_, addr := startServer(t)
	c := dialCtrl(t, addr)
	c.login("alice", "secret")

	c.send("GO x")
	c.expect(500, "Syntax error, command unrecognized")
	c.expectClosed()
}

func TestSession_OversizeLine(t *testing.T) {
	t.Parallel()
	_, addr := startServer(t)
	c := dialCtrl(t, addr)
	c.login("alice", "secret")

	c.send("RETR %s", strings.Repeat("a", 5000))
	c.expect(500, "")
	c.expectClosed()
}

func TestSession_LoginFailures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		lines []string
		codes []int
	}{
		{"wrong password", []string{"USER alice", "PASS wrong"}, []int{331, 530}},
		{"pass first", []string{"PASS secret"}, []int{503}},
		{"retr first", []string{"RETR hello.txt"}, []int{503}},
		{"port after user", []string{"USER alice", "PORT 127,0,0,1,1,1"}, []int{331, 503}},
		{"short token", []string{"US x"}, []int{500}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, addr := startServer(t)
			c := dialCtrl(t, addr)
			c.expect(220, "")
			for i, line := range tt.lines {
				c.send("%s", line)
				c.expect(tt.codes[i], "")
			}
			c.expectClosed()
		})
	}
}

func TestSession_ClientHangsUp(t *testing.T) {
	t.Parallel()
	s, addr := startServer(t)
	c := dialCtrl(t, addr)
	c.login("alice", "secret")
	c.conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for s.activeConns.Load() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("session did not end after client closed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSession_ControlClosedDuringTransfer(t *testing.T) {
	t.Parallel()
	big := testFiles()
	big["big.bin"] = bigFile(32 << 20)
	s, addr := startServerWith(t, WithAuthenticator(testAuth), WithFS(big))

	c := dialCtrl(t, addr)
	c.login("alice", "secret")

	ln, arg := dataListener(t)
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	c.send("PORT %s", arg)
	c.send("RETR big.bin")
	c.expect(299, "")

	// Read a little so the server is mid-transfer, then drop control.
	data := <-accepted
	defer data.Close()
	_, _ = io.ReadFull(data, make([]byte, 1024))
	c.conn.Close()

	// The server cancels the transfer and closes the data connection.
	_ = data.SetReadDeadline(time.Now().Add(5 * time.Second))
	n, err := io.Copy(io.Discard, data)
	if err != nil {
		t.Fatalf("data connection not closed by server: %v", err)
	}
	if n >= 32<<20 {
		t.Errorf("transfer was not cut short: %d bytes", n)
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.activeConns.Load() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("session still active")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSession_PipelinedCommandSurvivesTransfer(t *testing.T) {
	t.Parallel()
	_, addr := startServer(t)
	c := dialCtrl(t, addr)
	c.login("alice", "secret")

	ln, arg := dataListener(t)
	got := acceptAll(ln)
	c.send("PORT %s", arg)
	c.send("RETR hello.txt")
	c.send("QUIT")

	c.expect(299, "")
	<-got
	c.expect(226, "")
	c.expect(221, "")
}

func TestSession_CustomWelcome(t *testing.T) {
	t.Parallel()
	_, addr := startServer(t, WithWelcomeMessage("hi there"))
	c := dialCtrl(t, addr)
	c.expect(220, "hi there")
}
