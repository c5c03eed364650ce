// Command myftp downloads files from an active-mode FTP server.
//
//	myftp [--user NAME] [--dir DIR] [--debug] [--no-color] <server-ip> <server-port>
//
// After logging in it accepts "get <file>" and "quit".
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"

	"github.com/fatih/color"
	"golang.org/x/term"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/gonzalop/myftp"
	"github.com/gonzalop/myftp/internal/shell"
)

var (
	serverIP   = kingpin.Arg("server-ip", "Server address").Required().String()
	serverPort = kingpin.Arg("server-port", "Server control port").Required().Uint16()
	userName   = kingpin.Flag("user", "Username to login with").Short('u').Default(os.Getenv("USER")).String()
	dir        = kingpin.Flag("dir", "Directory downloads are saved into").Short('d').Default(".").ExistingDir()
	debug      = kingpin.Flag("debug", "Log protocol traffic to stderr").Bool()
	noColor    = kingpin.Flag("no-color", "Disable coloured output").Bool()
)

func main() {
	kingpin.Parse()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "myftp:", err)
		os.Exit(1)
	}
}

func run() error {
	if *noColor {
		color.NoColor = true
	}
	out := shell.NewPrinter(color.Output)

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	addr := net.JoinHostPort(*serverIP, strconv.Itoa(int(*serverPort)))
	client, err := myftp.DialContext(ctx, addr, myftp.WithLogger(logger))
	if err != nil {
		return err
	}
	out.Info("%s", client.Greeting())

	// Login and a piped script read the same buffered stdin.
	stdin := int(os.Stdin.Fd())
	in := bufio.NewReader(os.Stdin)
	prompter := shell.NewTerminalPrompter(in, os.Stdout, stdin)
	if err := shell.Login(client, prompter, *userName, out); err != nil {
		_ = client.Close()
		return err
	}

	var input shell.Input
	if term.IsTerminal(stdin) {
		input = shell.NewPromptReader("myftp> ")
	} else {
		input = shell.NewLineReader(in)
	}

	if err := shell.New(client, input, out, *dir, logger).Run(ctx); err != nil {
		_ = client.Close()
		return err
	}
	return nil
}
