// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// wscat is an interactive WebSocket client built on the wsstream
// adapter. It connects to an endpoint, forwards stdin lines as text
// messages, and prints received messages to stdout until either side
// closes the connection.
//
// Endpoints can be given directly as a URL argument or named in a YAML
// config file (--config, or the WSCAT_CONFIG environment variable) as
// reusable profiles carrying the address, subprotocols, and handshake
// headers.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/wsstream"
)

// Set via -ldflags at build time.
var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   string
		endpointName string
		protocols    []string
		headerFlags  []string
		handshake    time.Duration
		insecure     bool
		closeCode    int
		closeReason  string
		verbose      bool
	)

	flagSet := pflag.NewFlagSet("wscat", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to a wscat config file (default: $WSCAT_CONFIG)")
	flagSet.StringVar(&endpointName, "endpoint", "", "named endpoint profile from the config file")
	flagSet.StringSliceVarP(&protocols, "protocol", "p", nil, "subprotocol to offer (repeatable)")
	flagSet.StringSliceVarP(&headerFlags, "header", "H", nil, "handshake header as \"Name: value\" (repeatable)")
	flagSet.DurationVar(&handshake, "handshake-timeout", 0, "WebSocket handshake timeout (default 45s)")
	flagSet.BoolVar(&insecure, "insecure", false, "skip TLS certificate verification")
	flagSet.IntVar(&closeCode, "close-code", 1000, "close code sent when stdin ends")
	flagSet.StringVar(&closeReason, "close-reason", "", "close reason sent when stdin ends")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log connection events to stderr")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing to match other tools.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("wscat %s (%s, %s)\n", version, gitCommit, runtime.Version())
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	args := flagSet.Args()
	if len(args) > 1 {
		return fmt.Errorf("unexpected argument: %s", args[1])
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	endpoint, err := cfg.Resolve(endpointName)
	if err != nil {
		return err
	}

	// Command-line settings override the profile.
	if len(args) == 1 {
		endpoint.Address = args[0]
	}
	if endpoint.Address == "" {
		return errors.New("no address: pass a URL argument, or name a profile with --endpoint")
	}
	if len(protocols) > 0 {
		endpoint.Protocols = protocols
	}
	if handshake > 0 {
		endpoint.HandshakeTimeout = handshake.String()
	}
	if insecure {
		endpoint.InsecureSkipVerify = true
	}
	for _, flag := range headerFlags {
		name, value, ok := strings.Cut(flag, ":")
		if !ok {
			return fmt.Errorf("malformed --header %q: want \"Name: value\"", flag)
		}
		if endpoint.Headers == nil {
			endpoint.Headers = make(map[string]string)
		}
		endpoint.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}

	dialer, err := endpoint.Dialer()
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runClient(ctx, newLogger(level), endpoint, dialer, closeCode, closeReason)
}

func runClient(
	ctx context.Context,
	logger *slog.Logger,
	endpoint EndpointConfig,
	dialer *wsstream.Dialer,
	closeCode int,
	closeReason string,
) error {
	conn, err := wsstream.Dial(ctx, endpoint.Address, &wsstream.Options{
		Protocols: endpoint.Protocols,
		Socket:    dialer.Dial,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	opened, err := conn.Opened(ctx)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", conn.Address(), err)
	}
	if opened.Protocol != "" {
		fmt.Fprintf(os.Stderr, "connected to %s (protocol %s)\n", conn.Address(), opened.Protocol)
	} else {
		fmt.Fprintf(os.Stderr, "connected to %s\n", conn.Address())
	}

	// Print inbound messages until the readable drains.
	receiveDone := make(chan struct{})
	go func() {
		defer close(receiveDone)
		for {
			message, err := opened.Readable.Read(context.Background())
			if err != nil {
				if err != io.EOF {
					logger.Debug("receive ended", "error", err)
				}
				return
			}
			printMessage(message)
		}
	}()

	// Forward stdin lines as text messages. The scanner runs in its own
	// goroutine so a signal or a remote close is not stuck behind a
	// blocking stdin read.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

input:
	for {
		select {
		case <-ctx.Done():
			// The dial context doubles as the cancellation signal; the
			// connection is already closing.
			break input
		case <-receiveDone:
			break input
		case line, ok := <-lines:
			if !ok {
				if err := conn.Close(&wsstream.CloseOptions{Code: closeCode, Reason: closeReason}); err != nil {
					logger.Warn("close request failed", "error", err)
				}
				break input
			}
			if err := opened.Writable.Write(wsstream.Text(line)); err != nil {
				logger.Warn("send failed", "error", err)
				break input
			}
		}
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	closed, err := conn.Closed(waitCtx)
	if err != nil {
		return fmt.Errorf("waiting for close: %w", err)
	}
	if closed.Reason != "" {
		fmt.Fprintf(os.Stderr, "closed: %d %s\n", closed.Code, closed.Reason)
	} else {
		fmt.Fprintf(os.Stderr, "closed: %d\n", closed.Code)
	}
	return nil
}

func printMessage(message wsstream.Message) {
	if message.Type == wsstream.MessageText {
		fmt.Println(string(message.Data))
		return
	}
	fmt.Printf("binary (%d bytes): %x\n", len(message.Data), message.Data)
}

// newLogger routes diagnostics to stderr: human-readable on a terminal,
// JSON when piped or redirected.
func newLogger(level slog.Level) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, options))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, options))
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `wscat is an interactive WebSocket client.

Connects to a WebSocket endpoint, sends each stdin line as a text
message, and prints received messages to stdout. The connection closes
with --close-code when stdin ends, on SIGINT, or when the server
closes first.

Endpoints may be named in a YAML config file (--config, or the
WSCAT_CONFIG environment variable):

  default_endpoint: staging
  endpoints:
    staging:
      address: wss://staging.example.com/feed
      protocols: [feed.v2]
      headers:
        Authorization: Bearer dev-token

Usage:
  wscat [flags] [url]

Examples:
  # Connect to a URL directly
  wscat wss://echo.example.com

  # Offer a subprotocol and send a header
  wscat -p chat.v1 -H "Authorization: Bearer token" wss://chat.example.com

  # Use a named profile from the config file
  wscat --config wscat.yaml --endpoint staging

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
