// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wsstream adapts event-driven, message-oriented sockets into a
// pair of message streams with explicit lifecycle futures.
//
// A [Conn] stands between a [Socket], which reports its life as a sequence
// of open, message, close, and error events, and a consumer that wants
// pull-based reads, synchronous writes, and two awaitable edges: one for
// establishment, one for closure. [Dial] constructs the connection and
// returns immediately; [Conn.Opened] settles once with the negotiated
// subprotocol, extensions, and the stream pair, and [Conn.Closed] settles
// once with the close code and reason the socket reported, no matter which
// side initiated the closure.
//
// The inbound [stream.Readable] delivers messages one per read, in arrival
// order, and completes with io.EOF when the socket closes. Cancelling it
// asks the socket to close without waiting for an acknowledgment. The
// outbound [stream.Writable] forwards each write to the socket
// synchronously; closing it closes the connection with the default code,
// and aborting it carries the abort reason as the close reason. The two
// streams have independent lifecycles: completing or abandoning one side
// never tears down the other beyond what the socket's own closure forces.
//
// The production socket dials a WebSocket endpoint (gorilla/websocket)
// through [Dialer]; [Dial] uses [DefaultDialer] unless [Options].Socket
// supplies another factory. [DataChannelSocket] adapts an established
// WebRTC data channel to the same contract, and [FakeSocket] scripts
// arbitrary event sequences for tests. Addresses accept the ws, wss, http,
// and https schemes, the HTTP forms normalizing to their WebSocket
// counterparts; anything else fails with [SchemeError] before any socket
// exists.
//
// A single dispatch goroutine per connection consumes the socket's events,
// so every stream effect and future settlement observes event order. The
// context passed to [Dial] is the connection's cancellation signal:
// cancelling it closes the connection the same way [Conn.Close] with
// default options does.
package wsstream
