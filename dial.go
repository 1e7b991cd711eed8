// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wsstream

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultDialer is the socket factory [Dial] uses when [Options].Socket is
// nil: a zero-configured WebSocket dialer.
var DefaultDialer = &Dialer{}

const (
	defaultHandshakeTimeout = 45 * time.Second
	defaultCloseTimeout     = 5 * time.Second

	// closeWriteWait bounds the write of the outgoing close frame.
	closeWriteWait = 10 * time.Second
)

// Dialer configures the default WebSocket-backed sockets. The zero value
// is usable. Dialer.Dial satisfies [SocketFactory], so a configured
// instance plugs into [Options].Socket directly:
//
//	dialer := &wsstream.Dialer{HandshakeTimeout: 10 * time.Second}
//	conn, err := wsstream.Dial(ctx, address, &wsstream.Options{Socket: dialer.Dial})
type Dialer struct {
	// HandshakeTimeout bounds the WebSocket handshake. Zero means 45
	// seconds.
	HandshakeTimeout time.Duration

	// TLSClientConfig is used for wss addresses. Nil means defaults.
	TLSClientConfig *tls.Config

	// HTTPHeader is sent with the handshake request, for cookies and
	// authorization.
	HTTPHeader http.Header

	// EnableCompression negotiates per-message compression with the
	// server.
	EnableCompression bool

	// ReadLimit caps the size of an inbound message in bytes. Zero means
	// no cap. A message exceeding the cap fails the connection.
	ReadLimit int64

	// CloseTimeout bounds how long a close request waits for the peer's
	// close frame before the transport is torn down. Zero means 5
	// seconds.
	CloseTimeout time.Duration
}

// Dial returns a socket connecting to address in the background. It never
// blocks on the network; handshake failures surface through the socket's
// events.
func (d *Dialer) Dial(address string, protocols []string) (Socket, error) {
	dialCtx, cancel := context.WithCancel(context.Background())
	socket := &wsSocket{
		address:      address,
		events:       make(chan Event, eventBufferSize),
		cancelDial:   cancel,
		closeTimeout: d.CloseTimeout,
	}
	if socket.closeTimeout <= 0 {
		socket.closeTimeout = defaultCloseTimeout
	}

	wsDialer := &websocket.Dialer{
		Proxy:             http.ProxyFromEnvironment,
		HandshakeTimeout:  d.HandshakeTimeout,
		TLSClientConfig:   d.TLSClientConfig,
		Subprotocols:      protocols,
		EnableCompression: d.EnableCompression,
	}
	if wsDialer.HandshakeTimeout <= 0 {
		wsDialer.HandshakeTimeout = defaultHandshakeTimeout
	}

	go socket.connect(dialCtx, wsDialer, d.HTTPHeader, d.ReadLimit)
	return socket, nil
}

// wsSocket is the production [Socket]: a gorilla/websocket client
// connection translated into the event contract. Its event stream always
// terminates with a [CloseEvent], code 1006 when the connection ends
// without a close frame.
type wsSocket struct {
	address      string
	events       chan Event
	cancelDial   context.CancelFunc
	closeTimeout time.Duration

	mu             sync.Mutex
	conn           *websocket.Conn // nil until the handshake completes
	protocol       string
	extensions     string
	closeRequested bool
	pendingCode    int // close arguments captured before the handshake completed
	pendingReason  string
	closeTimer     *time.Timer
}

var _ Socket = (*wsSocket)(nil)

func (s *wsSocket) Address() string {
	return s.address
}

func (s *wsSocket) Protocol() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.protocol
}

func (s *wsSocket) Extensions() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extensions
}

func (s *wsSocket) Events() <-chan Event {
	return s.events
}

// connect performs the handshake and then runs the read loop. It is the
// only goroutine that sends on the events channel, which keeps event order
// trivially correct.
func (s *wsSocket) connect(ctx context.Context, dialer *websocket.Dialer, header http.Header, readLimit int64) {
	conn, response, err := dialer.DialContext(ctx, s.address, header)
	if err != nil {
		if response != nil && response.Body != nil {
			response.Body.Close()
		}
		// A cancelled dial is a local abort, not a failure to report.
		if ctx.Err() == nil {
			s.events <- ErrorEvent{Err: fmt.Errorf("dial %s: %w", s.address, err)}
		}
		s.events <- CloseEvent{Code: closeAbnormal}
		close(s.events)
		return
	}

	if readLimit > 0 {
		conn.SetReadLimit(readLimit)
	}

	s.mu.Lock()
	s.conn = conn
	s.protocol = conn.Subprotocol()
	s.extensions = response.Header.Get("Sec-WebSocket-Extensions")
	closedEarly := s.closeRequested
	code, reason := s.pendingCode, s.pendingReason
	s.mu.Unlock()

	if closedEarly {
		// Close arrived during the handshake: run the closing handshake
		// without ever reporting the socket open.
		_ = s.sendClose(conn, code, reason)
	} else {
		s.events <- OpenEvent{}
	}
	s.readLoop(conn)
}

// readLoop translates inbound traffic into events until the connection
// ends. Ping and pong frames are answered by the library and never surface
// here.
func (s *wsSocket) readLoop(conn *websocket.Conn) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			s.finish(conn, err)
			return
		}
		switch messageType {
		case websocket.TextMessage:
			s.events <- MessageEvent{Message: Message{Type: MessageText, Data: data}}
		case websocket.BinaryMessage:
			s.events <- MessageEvent{Message: Message{Type: MessageBinary, Data: data}}
		}
	}
}

// finish emits the terminal events for a read failure. A close frame from
// the peer carries its own code and reason; anything else is an abnormal
// closure, reported as an error unless this side requested the close.
func (s *wsSocket) finish(conn *websocket.Conn, err error) {
	s.mu.Lock()
	requested := s.closeRequested
	timer := s.closeTimer
	s.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}

	code, reason := closeAbnormal, ""
	var closeErr *websocket.CloseError
	switch {
	case errors.As(err, &closeErr):
		code, reason = closeErr.Code, closeErr.Text
	case !requested:
		s.events <- ErrorEvent{Err: fmt.Errorf("read %s: %w", s.address, err)}
	}
	conn.Close()
	s.events <- CloseEvent{Code: code, Reason: reason}
	close(s.events)
}

// Send transmits one message. It fails with [ErrNotConnected] until the
// handshake completes.
func (s *wsSocket) Send(message Message) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	var messageType int
	switch message.Type {
	case MessageText:
		messageType = websocket.TextMessage
	case MessageBinary:
		messageType = websocket.BinaryMessage
	default:
		return fmt.Errorf("send to %s: unknown message type %v", s.address, message.Type)
	}
	if err := conn.WriteMessage(messageType, message.Data); err != nil {
		return fmt.Errorf("send to %s: %w", s.address, err)
	}
	return nil
}

// Close requests closure. Before the handshake completes it aborts the
// dial; afterwards it sends a close frame and leaves the read loop to
// observe the peer's reply, tearing the transport down if none arrives
// within the close timeout. Calls after the first are no-ops.
func (s *wsSocket) Close(code int, reason string) error {
	s.mu.Lock()
	if s.closeRequested {
		s.mu.Unlock()
		return nil
	}
	s.closeRequested = true
	s.pendingCode, s.pendingReason = code, reason
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		s.cancelDial()
		return nil
	}
	return s.sendClose(conn, code, reason)
}

func (s *wsSocket) sendClose(conn *websocket.Conn, code int, reason string) error {
	if code == 0 {
		code = closeNormal
	}
	payload := websocket.FormatCloseMessage(code, reason)
	deadline := time.Now().Add(closeWriteWait)
	if err := conn.WriteControl(websocket.CloseMessage, payload, deadline); err != nil &&
		!errors.Is(err, websocket.ErrCloseSent) {
		conn.Close()
		return fmt.Errorf("sending close frame: %w", err)
	}

	// The peer is expected to answer with its own close frame, which ends
	// the read loop. Force the transport down if it never does.
	timer := time.AfterFunc(s.closeTimeout, func() { conn.Close() })
	s.mu.Lock()
	s.closeTimer = timer
	s.mu.Unlock()
	return nil
}
