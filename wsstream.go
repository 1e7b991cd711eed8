// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wsstream

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/bureau-foundation/wsstream/stream"
)

// State is the connection lifecycle as observed through socket events and
// local close requests. Transitions are monotonic; a connection that fails
// during setup can jump straight from StateConnecting to StateClosed.
type State int

const (
	// StateConnecting covers construction until the socket's open event.
	StateConnecting State = iota
	// StateOpen means the open event arrived and the streams exist.
	StateOpen
	// StateClosing means a local close request is in flight.
	StateClosing
	// StateClosed means the socket's close event arrived.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options configures [Dial]. The zero value is usable: no subprotocols,
// the package's default WebSocket-backed socket, no logging.
type Options struct {
	// Protocols lists subprotocols to offer during the handshake, in
	// preference order.
	Protocols []string

	// Socket overrides how the underlying socket is constructed. Nil
	// selects [DefaultDialer].Dial.
	Socket SocketFactory

	// Logger receives debug-level event flow. Nil discards.
	Logger *slog.Logger
}

// Opened is the result of a successfully established connection.
type Opened struct {
	// Protocol is the negotiated subprotocol, "" when none was agreed.
	Protocol string
	// Extensions is the negotiated extension list, "" when none.
	Extensions string
	// Readable delivers inbound messages in arrival order. Cancelling it
	// requests socket closure without waiting for an acknowledgment.
	Readable *stream.Readable[Message]
	// Writable forwards outbound messages to the socket. Closing it
	// closes the connection with the default code; aborting it carries
	// the abort reason as the close reason.
	Writable *stream.Writable[Message]
}

// Closed is the terminal record of a connection: the close code and reason
// the socket reported, regardless of which side initiated the closure.
type Closed struct {
	Code   int
	Reason string
}

// CloseOptions carries an explicit close code and reason for [Conn.Close].
type CloseOptions struct {
	// Code must be 1000 or in [3000, 4999]; 0 selects the socket's
	// default (1000 for WebSocket).
	Code int
	// Reason must be valid UTF-8 of at most 123 bytes.
	Reason string
}

// maxCloseReasonBytes is the most a close frame can carry next to its
// two-byte code.
const maxCloseReasonBytes = 123

// Conn adapts an event-driven [Socket] into a pair of message streams plus
// two one-shot lifecycle futures. Construct one with [Dial], await
// [Conn.Opened] for the streams, and [Conn.Closed] for the terminal close
// record.
//
// All methods are safe for concurrent use. A single dispatch goroutine
// consumes the socket's events, so stream effects observe event order.
type Conn struct {
	address string
	socket  Socket
	logger  *slog.Logger

	mu    sync.Mutex
	state State

	openedCh  chan struct{} // closed when the opened future settles
	opened    *Opened       // set before openedCh closes
	openedErr error

	closedCh  chan struct{} // closed when the closed future settles
	closeInfo Closed

	// writerDone marks that the outbound stream initiated the closure, so
	// the close event must not error it.
	writerDone atomic.Bool

	// Dispatch-goroutine state. Only the dispatch loop touches these.
	readControl  *stream.ReadControl[Message]
	writeControl *stream.WriteControl[Message]
}

// Dial validates address, constructs the socket, and returns immediately;
// connection setup continues in the background. Await [Conn.Opened] for
// the outcome.
//
// The address scheme must be ws, wss, http, or https; http and https
// normalize to their WebSocket counterparts. Any other scheme returns a
// [SchemeError] without constructing a socket.
//
// Cancelling ctx closes the connection through the same path as
// [Conn.Close] with default options. A ctx already cancelled at call time
// fails fast without side effects. A nil ctx is treated as
// context.Background, a nil options as the zero [Options].
func Dial(ctx context.Context, address string, options *Options) (*Conn, error) {
	if options == nil {
		options = &Options{}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	normalized, err := normalizeAddress(address)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	factory := options.Socket
	if factory == nil {
		factory = DefaultDialer.Dial
	}
	socket, err := factory(normalized, options.Protocols)
	if err != nil {
		return nil, fmt.Errorf("wsstream: constructing socket: %w", err)
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	conn := &Conn{
		address:  normalized,
		socket:   socket,
		logger:   logger,
		state:    StateConnecting,
		openedCh: make(chan struct{}),
		closedCh: make(chan struct{}),
	}
	go conn.dispatch()
	if ctx.Done() != nil {
		go conn.watchContext(ctx)
	}
	return conn, nil
}

// normalizeAddress enforces the scheme allow-list and rewrites HTTP
// schemes to their WebSocket equivalents.
func normalizeAddress(address string) (string, error) {
	parsed, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("wsstream: invalid address %q: %w", address, err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "ws":
		parsed.Scheme = "ws"
	case "wss":
		parsed.Scheme = "wss"
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return "", &SchemeError{Scheme: strings.ToLower(parsed.Scheme)}
	}
	return parsed.String(), nil
}

// Address returns the connection's normalized address.
func (c *Conn) Address() string {
	return c.address
}

// State returns the connection's current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// setState advances the lifecycle. States only move forward, so a close
// request during setup is not overwritten by a late open event.
func (c *Conn) setState(next State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if next > c.state {
		c.state = next
	}
}

// Opened blocks until the connection establishes or fails, or until ctx is
// done. On success it returns the negotiated protocol and extensions along
// with the inbound and outbound streams. A connection that fails before
// opening reports [ErrConnectionFailed]; a ctx expiry returns ctx.Err()
// and leaves the future awaitable.
func (c *Conn) Opened(ctx context.Context) (*Opened, error) {
	select {
	case <-c.openedCh:
		if c.openedErr != nil {
			return nil, c.openedErr
		}
		return c.opened, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Closed blocks until the socket reports its close event, or until ctx is
// done. The record carries exactly the code and reason the socket
// reported, regardless of which side initiated the closure.
func (c *Conn) Closed(ctx context.Context) (Closed, error) {
	select {
	case <-c.closedCh:
		return c.closeInfo, nil
	case <-ctx.Done():
		return Closed{}, ctx.Err()
	}
}

// Close requests connection closure. A nil options requests the socket's
// default closure. Explicit codes must be 1000 or in [3000, 4999] and
// reasons valid UTF-8 of at most 123 bytes; violations are rejected before
// any close request is issued. Closing an already-closed connection is a
// no-op.
//
// Close returns once the request is issued. Await [Conn.Closed] for the
// socket's terminal close record.
func (c *Conn) Close(options *CloseOptions) error {
	var code int
	var reason string
	if options != nil {
		code = options.Code
		reason = options.Reason
	}
	if err := validateClose(code, reason); err != nil {
		return err
	}
	c.mu.Lock()
	alreadyClosed := c.state == StateClosed
	c.mu.Unlock()
	if alreadyClosed {
		return nil
	}
	if err := c.requestClose(code, reason); err != nil {
		return fmt.Errorf("wsstream: closing socket: %w", err)
	}
	return nil
}

// validateClose enforces the close frame constraints: applications may
// send 1000 or codes in [3000, 4999], and the reason must fit the frame
// next to the code.
func validateClose(code int, reason string) error {
	if code != 0 && code != closeNormal && (code < 3000 || code > 4999) {
		return fmt.Errorf("%w: %d (want 1000 or 3000-4999)", ErrInvalidCloseCode, code)
	}
	if len(reason) > maxCloseReasonBytes {
		return fmt.Errorf("%w: %d bytes exceeds the %d-byte limit",
			ErrInvalidCloseReason, len(reason), maxCloseReasonBytes)
	}
	if !utf8.ValidString(reason) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidCloseReason)
	}
	return nil
}

// requestClose marks the connection closing and forwards one close request
// to the socket. The socket's idempotence collapses duplicate requests.
func (c *Conn) requestClose(code int, reason string) error {
	c.setState(StateClosing)
	return c.socket.Close(code, reason)
}

// watchContext fires the explicit-close path when ctx is cancelled and
// exits once the connection closes. The close path's idempotence keeps
// repeated or racing signals down to a single socket close request.
func (c *Conn) watchContext(ctx context.Context) {
	select {
	case <-ctx.Done():
		c.logger.Debug("cancellation signal fired", "address", c.address)
		if err := c.Close(nil); err != nil {
			c.logger.Debug("close after cancellation failed", "address", c.address, "error", err)
		}
	case <-c.closedCh:
	}
}

// dispatch consumes socket events until the event channel closes. It is
// the only goroutine that settles the futures and drives the streams'
// terminal transitions, which keeps effects in event order.
func (c *Conn) dispatch() {
	for event := range c.socket.Events() {
		switch e := event.(type) {
		case OpenEvent:
			c.handleOpen()
		case MessageEvent:
			c.handleMessage(e.Message)
		case CloseEvent:
			c.handleClose(e.Code, e.Reason)
		case ErrorEvent:
			c.handleError(e.Err)
		}
	}
}

// handleOpen builds the stream pair and settles the opened future with the
// socket's negotiation results. A second open event is ignored.
func (c *Conn) handleOpen() {
	if c.settled(c.openedCh) {
		return
	}
	c.setState(StateOpen)

	readable := stream.NewReadable(stream.Source[Message]{
		Start: func(control *stream.ReadControl[Message]) error {
			c.readControl = control
			return nil
		},
		Cancel: func(reason error) {
			c.logger.Debug("inbound stream cancelled", "address", c.address, "reason", reason)
			if err := c.requestClose(0, ""); err != nil {
				c.logger.Debug("close after cancel failed", "address", c.address, "error", err)
			}
		},
	})
	writable := stream.NewWritable(stream.Sink[Message]{
		Start: func(control *stream.WriteControl[Message]) error {
			c.writeControl = control
			return nil
		},
		Write: func(message Message) error {
			return c.socket.Send(message)
		},
		Close: func() error {
			c.writerDone.Store(true)
			return c.requestClose(0, "")
		},
		Abort: func(reason error) error {
			c.writerDone.Store(true)
			return c.requestClose(0, closeReasonFromAbort(reason))
		},
	})

	c.opened = &Opened{
		Protocol:   c.socket.Protocol(),
		Extensions: c.socket.Extensions(),
		Readable:   readable,
		Writable:   writable,
	}
	c.logger.Debug("connection opened",
		"address", c.address,
		"protocol", c.opened.Protocol,
		"extensions", c.opened.Extensions)
	close(c.openedCh)
}

// handleMessage enqueues one inbound message. The stream's own tolerance
// drops messages that race a terminal transition.
func (c *Conn) handleMessage(message Message) {
	if c.readControl == nil {
		// A message before open violates the socket contract.
		c.logger.Debug("dropping message before open", "address", c.address, "type", message.Type)
		return
	}
	c.readControl.Enqueue(message)
}

// handleClose drives every close-adjacent transition: it rejects a still
// pending opened future, completes the inbound stream, errors the outbound
// stream unless the writer initiated the closure, and settles the closed
// future last, so awaiting it implies the streams are settled.
func (c *Conn) handleClose(code int, reason string) {
	c.setState(StateClosed)
	c.logger.Debug("connection closed", "address", c.address, "code", code, "reason", reason)

	if !c.settled(c.openedCh) {
		c.openedErr = ErrConnectionFailed
		close(c.openedCh)
	}
	if c.readControl != nil {
		c.readControl.Close()
	}
	if c.writeControl != nil && !c.writerDone.Load() {
		c.writeControl.Error(ErrConnectionClosed)
	}
	if !c.settled(c.closedCh) {
		c.closeInfo = Closed{Code: code, Reason: reason}
		close(c.closedCh)
	}
}

// handleError rejects a still pending opened future. Errors after open
// carry no separate signal; the close event that follows, when the socket
// can produce one, drives the stream transitions.
func (c *Conn) handleError(err error) {
	c.logger.Debug("socket error", "address", c.address, "error", err)
	if c.settled(c.openedCh) {
		return
	}
	if err != nil {
		c.openedErr = fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	} else {
		c.openedErr = ErrConnectionFailed
	}
	close(c.openedCh)
}

// settled reports whether a future's channel is closed. Futures are only
// settled from the dispatch goroutine, so its own checks are race-free.
func (c *Conn) settled(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// closeReasonFromAbort turns an abort reason into a close reason that fits
// the frame limit, truncating on a rune boundary.
func closeReasonFromAbort(reason error) string {
	if reason == nil {
		return ""
	}
	text := reason.Error()
	if len(text) <= maxCloseReasonBytes {
		return text
	}
	truncated := text[:maxCloseReasonBytes]
	for len(truncated) > 0 && !utf8.ValidString(truncated) {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated
}
