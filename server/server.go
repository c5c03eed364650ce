package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gonzalop/myftp/internal/wire"
)

// Server is the FTP server.
//
// It handles listening for incoming connections and dispatching them to
// client sessions. Each connection runs in its own goroutine and owns its
// session state; nothing but the connection bookkeeping below is shared.
//
// Lifecycle:
//  1. Create server with NewServer()
//  2. Start with ListenAndServe() or Serve()
//  3. Server runs until the listener fails or Shutdown is called
//
// Basic example:
//
//	s, err := server.NewServer(":2121",
//	    server.WithRootDir("/srv/ftp"),
//	    server.WithAuthenticator(server.NewFileAuthenticator("./ftpusers")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(s.ListenAndServe())
type Server struct {
	// addr is the TCP address to listen on (e.g., ":2121").
	addr string

	// auth validates USER/PASS pairs.
	auth Authenticator

	// files is the tree RETR serves from.
	files fs.FS

	// root is set by WithRootDir and closed on Shutdown.
	root *os.Root

	// logger is the logger instance.
	logger *slog.Logger

	// welcomeMessage is the text of the 220 greeting.
	welcomeMessage string

	// maxConnections is the maximum number of simultaneous sessions.
	// If 0, there is no limit.
	maxConnections int

	// allowForeignData disables the check that PORT targets the control
	// connection's peer.
	allowForeignData bool

	// bandwidthLimit is the per-transfer rate in bytes per second; 0 is
	// unlimited.
	bandwidthLimit int64

	// dialer opens outbound data connections.
	dialer *net.Dialer

	// metricsCollector is optional.
	metricsCollector MetricsCollector

	// activeConns tracks the number of currently active sessions.
	activeConns atomic.Int32

	// baseCtx is the parent of every session context; Shutdown cancels it.
	baseCtx    context.Context
	cancelBase context.CancelFunc

	// Shutdown handling
	mu         sync.Mutex
	listener   net.Listener
	conns      map[net.Conn]struct{}
	sessions   sync.WaitGroup
	inShutdown atomic.Bool
}

// ErrServerClosed is returned by Serve and ListenAndServe after a call to
// Shutdown.
var ErrServerClosed = errors.New("ftp: Server closed")

// NewServer creates a new FTP server with the given address and options.
// The address should be in the form ":port" or "host:port".
// An Authenticator and a file tree (WithFS or WithRootDir) are required.
//
// Default values:
//   - Logger: slog.Default()
//   - Welcome message: "srvFtp version 1.0"
//   - MaxConnections: 0 (unlimited)
//   - PORT must target the control connection's peer address
func NewServer(addr string, options ...Option) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:           addr,
		logger:         slog.Default(),
		welcomeMessage: "srvFtp version 1.0",
		dialer:         &net.Dialer{},
		baseCtx:        ctx,
		cancelBase:     cancel,
		conns:          make(map[net.Conn]struct{}),
	}

	// Apply options
	for _, opt := range options {
		if err := opt(s); err != nil {
			cancel()
			s.closeRoot()
			return nil, err
		}
	}

	// Validate required fields
	if s.auth == nil {
		cancel()
		s.closeRoot()
		return nil, fmt.Errorf("authenticator is required (use WithAuthenticator option)")
	}
	if s.files == nil {
		cancel()
		return nil, fmt.Errorf("file tree is required (use WithRootDir or WithFS option)")
	}

	return s, nil
}

// ListenAndServe starts the FTP server on the configured address.
// It blocks until the server stops or an error occurs.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.logger.Info("server_listening", "addr", ln.Addr().String())
	return s.Serve(ln)
}

// Shutdown stops the server.
//
// It closes the listener, cancels every session (which aborts in-flight
// transfers), closes all control and data connections and then waits for
// the session goroutines to exit or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.inShutdown.Store(true)
	s.cancelBase()

	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	conns := s.conns
	s.conns = make(map[net.Conn]struct{})
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}

	for conn := range maps.Keys(conns) {
		conn.Close()
	}

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.closeRoot()
	return err
}

// Serve accepts incoming connections on the listener l.
// It blocks until the listener is closed or an error occurs.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.inShutdown.Load() {
		s.mu.Unlock()
		l.Close()
		return ErrServerClosed
	}
	s.listener = l
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.listener == l {
			s.listener = nil
		}
		s.mu.Unlock()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if s.inShutdown.Load() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.logger.Error("accept_failed", "error", err)
			continue
		}

		s.sessions.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection handles a new client connection.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.sessions.Done()

	if !s.trackConnection(conn, true) {
		return
	}
	defer s.trackConnection(conn, false)

	// The slot is taken before the check, so the count never exceeds the limit.
	active := s.activeConns.Add(1)
	defer s.activeConns.Add(-1)

	if s.maxConnections > 0 && active > int32(s.maxConnections) {
		ip, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
		s.logger.Warn("connection_rejected",
			"remote_ip", ip,
			"reason", "global_limit_reached",
			"limit", s.maxConnections,
		)
		if s.metricsCollector != nil {
			s.metricsCollector.RecordConnection(false, "global_limit_reached")
		}
		_ = wire.NewWriter(conn).WriteResponse(wire.CodeTooManyUsers, "Too many users, sorry.")
		conn.Close()
		return
	}

	if s.metricsCollector != nil {
		s.metricsCollector.RecordConnection(true, "accepted")
	}

	newSession(s, conn).serve()
}

// trackConnection returns false if we're shutting down.
func (s *Server) trackConnection(conn net.Conn, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !add {
		delete(s.conns, conn)
		return true
	}

	if s.inShutdown.Load() {
		conn.Close()
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) closeRoot() {
	if s.root != nil {
		s.root.Close()
	}
}
