package server

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
)

// Option is a functional option for configuring an FTP server.
type Option func(*Server) error

// WithAuthenticator sets the credential check used by the login handshake.
// This option is required and can only be set once.
//
// Example:
//
//	s, _ := server.NewServer(":2121",
//	    server.WithAuthenticator(server.NewFileAuthenticator("/etc/myftpd/users")),
//	    server.WithRootDir("/srv/ftp"),
//	)
func WithAuthenticator(auth Authenticator) Option {
	return func(s *Server) error {
		if auth == nil {
			return fmt.Errorf("authenticator cannot be nil")
		}
		if s.auth != nil {
			return fmt.Errorf("authenticator already set")
		}
		s.auth = auth
		return nil
	}
}

// WithFS sets the file tree RETR serves from. Names in RETR are resolved
// relative to the root of fsys.
//
// Tests typically pass a testing/fstest.MapFS here.
func WithFS(fsys fs.FS) Option {
	return func(s *Server) error {
		if fsys == nil {
			return fmt.Errorf("file tree cannot be nil")
		}
		if s.files != nil {
			return fmt.Errorf("file tree already set")
		}
		s.files = fsys
		return nil
	}
}

// WithRootDir serves files from dir. Access goes through os.Root, so names
// that climb out of dir with ".." or symlinks are refused by the kernel-level
// check rather than by string matching.
func WithRootDir(dir string) Option {
	return func(s *Server) error {
		if s.files != nil {
			return fmt.Errorf("file tree already set")
		}
		root, err := os.OpenRoot(dir)
		if err != nil {
			return fmt.Errorf("failed to open root directory: %w", err)
		}
		s.root = root
		s.files = root.FS()
		return nil
	}
}

// WithLogger sets a custom logger for the server.
// If not specified, slog.Default() is used.
//
// Example with debug logging:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	}))
//	s, _ := server.NewServer(":2121",
//	    server.WithAuthenticator(auth),
//	    server.WithLogger(logger),
//	)
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithWelcomeMessage sets the text sent with the 220 greeting.
// If not specified, defaults to "srvFtp version 1.0".
func WithWelcomeMessage(msg string) Option {
	return func(s *Server) error {
		s.welcomeMessage = msg
		return nil
	}
}

// WithMaxConnections sets the maximum number of simultaneous sessions.
// Connections over the limit receive "421 Too many users, sorry." and are
// closed. If 0, there is no limit.
func WithMaxConnections(limit int) Option {
	return func(s *Server) error {
		if limit < 0 {
			return fmt.Errorf("max connections cannot be negative")
		}
		s.maxConnections = limit
		return nil
	}
}

// WithBandwidthLimit caps each RETR data connection at bytesPerSecond.
// If 0, transfers are not throttled.
func WithBandwidthLimit(bytesPerSecond int64) Option {
	return func(s *Server) error {
		if bytesPerSecond < 0 {
			return fmt.Errorf("bandwidth limit cannot be negative")
		}
		s.bandwidthLimit = bytesPerSecond
		return nil
	}
}

// WithAllowForeignDataAddress controls whether PORT may name a host other
// than the control connection's peer. It is false by default, which keeps
// the server from being used to connect to third parties.
func WithAllowForeignDataAddress(allow bool) Option {
	return func(s *Server) error {
		s.allowForeignData = allow
		return nil
	}
}

// WithDialer sets the dialer used for outbound data connections.
// Use it to bound the connect time:
//
//	server.WithDialer(&net.Dialer{Timeout: 10 * time.Second})
func WithDialer(d *net.Dialer) Option {
	return func(s *Server) error {
		if d == nil {
			return fmt.Errorf("dialer cannot be nil")
		}
		s.dialer = d
		return nil
	}
}

// WithMetricsCollector sets a metrics collector for monitoring server operations.
// The collector will receive callbacks for commands, transfers, connections, and authentication.
//
// Example:
//
//	collector := &MyPrometheusCollector{}
//	s, _ := server.NewServer(":2121",
//	    server.WithAuthenticator(auth),
//	    server.WithMetricsCollector(collector),
//	)
func WithMetricsCollector(collector MetricsCollector) Option {
	return func(s *Server) error {
		s.metricsCollector = collector
		return nil
	}
}
