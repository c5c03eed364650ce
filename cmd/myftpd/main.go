// Command myftpd serves files over active-mode FTP.
//
//	myftpd [--config FILE] [--root DIR] [--users FILE] [--log-level LEVEL] [--log-format FORMAT] [port]
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/gonzalop/myftp/internal/config"
	"github.com/gonzalop/myftp/server"
)

var (
	port       = kingpin.Arg("port", "Port to listen on; overrides the configured listen address").Uint16()
	configFile = kingpin.Flag("config", "TOML configuration file").Short('c').ExistingFile()
	root       = kingpin.Flag("root", "Directory to serve").Short('r').String()
	users      = kingpin.Flag("users", "Credential file with one user:secret per line").Short('u').String()
	logLevel   = kingpin.Flag("log-level", "Log level").Enum("debug", "info", "warn", "error")
	logFormat  = kingpin.Flag("log-format", "Log format").Enum("text", "json")
)

const shutdownTimeout = 5 * time.Second

func main() {
	kingpin.Parse()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "myftpd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	srv, err := server.NewServer(cfg.Listen, cfg.ServerOptions(logger)...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("config_loaded",
		"listen", cfg.Listen,
		"root", cfg.Root,
		"users_file", cfg.UsersFile,
		"max_connections", cfg.MaxConnections,
		"bandwidth_limit", cfg.BandwidthLimit,
	)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		_ = srv.Shutdown(context.Background())
		return err
	case <-ctx.Done():
	}

	logger.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, server.ErrServerClosed) {
		return err
	}
	return nil
}

// loadConfig reads the configuration file, if any, and applies the flags on
// top of it.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			return config.Config{}, err
		}
	}

	if *port != 0 {
		host, _, err := net.SplitHostPort(cfg.Listen)
		if err != nil {
			host = ""
		}
		cfg.Listen = net.JoinHostPort(host, strconv.Itoa(int(*port)))
	}
	if *root != "" {
		cfg.Root = *root
	}
	if *users != "" {
		cfg.UsersFile = *users
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFormat != "" {
		cfg.LogFormat = *logFormat
	}
	return cfg, cfg.Validate()
}
