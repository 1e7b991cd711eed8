// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wsstream

import "fmt"

// MessageType discriminates text from binary payloads. The numeric values
// match the WebSocket data frame opcodes.
type MessageType int

const (
	// MessageText marks a UTF-8 text payload.
	MessageText MessageType = 1
	// MessageBinary marks an opaque binary payload.
	MessageBinary MessageType = 2
)

func (t MessageType) String() string {
	switch t {
	case MessageText:
		return "text"
	case MessageBinary:
		return "binary"
	default:
		return fmt.Sprintf("MessageType(%d)", int(t))
	}
}

// Message is one unit of socket traffic. Payloads pass through the adapter
// untouched in both directions.
type Message struct {
	Type MessageType
	Data []byte
}

// Text builds a text message from s.
func Text(s string) Message {
	return Message{Type: MessageText, Data: []byte(s)}
}

// Binary builds a binary message wrapping data. The payload is not copied.
func Binary(data []byte) Message {
	return Message{Type: MessageBinary, Data: data}
}

// Event is a lifecycle notification from a [Socket]. The concrete types
// are [OpenEvent], [MessageEvent], [CloseEvent], and [ErrorEvent].
type Event interface {
	isEvent()
}

// OpenEvent reports that the socket finished connecting. The socket's
// Protocol and Extensions accessors are valid from this point on.
type OpenEvent struct{}

// MessageEvent carries one inbound message.
type MessageEvent struct {
	Message Message
}

// CloseEvent reports that the socket closed, with the close code and
// reason the socket attributes to the closure.
type CloseEvent struct {
	Code   int
	Reason string
}

// ErrorEvent reports a socket failure. Before open it explains why the
// connection never established; after open it precedes whatever close
// event the failure forces.
type ErrorEvent struct {
	Err error
}

func (OpenEvent) isEvent()    {}
func (MessageEvent) isEvent() {}
func (CloseEvent) isEvent()   {}
func (ErrorEvent) isEvent()   {}

// Socket is the event-driven, message-oriented endpoint a [Conn] adapts.
//
// Implementations deliver their lifecycle through the Events channel, in
// order: at most one [OpenEvent], any number of [MessageEvent]s, optional
// [ErrorEvent]s, and at most one final [CloseEvent]. The channel is closed
// once no further events will be delivered. Implementations should end the
// stream with a [CloseEvent] whenever they can attribute a closure; a
// connection's closed future settles only from one.
//
// A single goroutine owned by the [Conn] consumes the channel.
type Socket interface {
	// Address returns the endpoint the socket targets.
	Address() string

	// Protocol returns the negotiated subprotocol, or "" when none was
	// agreed. Valid once the open event has been delivered.
	Protocol() string

	// Extensions returns the negotiated extensions, or "" when none.
	// Valid once the open event has been delivered.
	Extensions() string

	// Send transmits one message. It is synchronous: a nil return means
	// the socket accepted the message for delivery. Sends are serialized
	// by the connection's outbound stream.
	Send(message Message) error

	// Close requests socket closure. Code 0 selects the implementation's
	// default. Close is idempotent: calls after the first are no-ops.
	Close(code int, reason string) error

	// Events returns the socket's event channel. Every call returns the
	// same channel.
	Events() <-chan Event
}

// SocketFactory constructs the socket behind a connection. Factories must
// not block on network progress: connection setup runs behind the returned
// socket and reports through its events.
type SocketFactory func(address string, protocols []string) (Socket, error)

// WebSocket close codes the adapter uses internally.
const (
	closeNormal   = 1000 // normal closure, the default for local closes
	closeAbnormal = 1006 // closed without a close frame
)

// eventBufferSize decouples event producers from the dispatch goroutine.
// Correctness does not depend on it; producers may block when it fills.
const eventBufferSize = 16

