// Package config loads the myftpd configuration file.
//
// The file is TOML:
//
//	listen = ":2121"
//	root = "/srv/ftp"
//	users_file = "/etc/myftpd/ftpusers"
//	welcome = "srvFtp version 1.0"
//	max_connections = 50
//	allow_foreign_data_address = false
//	bandwidth_limit = 0  # bytes per second per transfer, 0 is unlimited
//	log_level = "info"   # debug, info, warn, error
//	log_format = "text"  # text, json
//
// Keys left out keep their defaults.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pelletier/go-toml"

	"github.com/gonzalop/myftp/server"
)

// Config is the server configuration.
type Config struct {
	Listen                  string `toml:"listen"`
	Root                    string `toml:"root"`
	UsersFile               string `toml:"users_file"`
	Welcome                 string `toml:"welcome"`
	MaxConnections          int    `toml:"max_connections"`
	AllowForeignDataAddress bool   `toml:"allow_foreign_data_address"`
	BandwidthLimit          int64  `toml:"bandwidth_limit"`
	LogLevel                string `toml:"log_level"`
	LogFormat               string `toml:"log_format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:    ":2121",
		Root:      ".",
		UsersFile: "./ftpusers",
		Welcome:   "srvFtp version 1.0",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads and validates the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML on top of Default and validates the result.
func Parse(data []byte) (Config, error) {
	var file Config
	if err := toml.Unmarshal(data, &file); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default().merge(file)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// merge overlays the non-zero fields of o.
func (c Config) merge(o Config) Config {
	if o.Listen != "" {
		c.Listen = o.Listen
	}
	if o.Root != "" {
		c.Root = o.Root
	}
	if o.UsersFile != "" {
		c.UsersFile = o.UsersFile
	}
	if o.Welcome != "" {
		c.Welcome = o.Welcome
	}
	if o.MaxConnections != 0 {
		c.MaxConnections = o.MaxConnections
	}
	if o.AllowForeignDataAddress {
		c.AllowForeignDataAddress = true
	}
	if o.BandwidthLimit != 0 {
		c.BandwidthLimit = o.BandwidthLimit
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		c.LogFormat = o.LogFormat
	}
	return c
}

// Validate checks values the server cannot start with.
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is empty")
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("max_connections must not be negative, got %d", c.MaxConnections)
	}
	if c.BandwidthLimit < 0 {
		return fmt.Errorf("bandwidth_limit must not be negative, got %d", c.BandwidthLimit)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q (want text or json)", c.LogFormat)
	}
	return nil
}

// Logger builds the slog logger described by LogLevel and LogFormat.
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// ServerOptions turns the configuration into server options.
func (c Config) ServerOptions(logger *slog.Logger) []server.Option {
	return []server.Option{
		server.WithRootDir(c.Root),
		server.WithAuthenticator(server.NewFileAuthenticator(c.UsersFile)),
		server.WithWelcomeMessage(c.Welcome),
		server.WithMaxConnections(c.MaxConnections),
		server.WithAllowForeignDataAddress(c.AllowForeignDataAddress),
		server.WithBandwidthLimit(c.BandwidthLimit),
		server.WithLogger(logger),
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log_level %q (want debug, info, warn or error)", s)
	}
	return level, nil
}
