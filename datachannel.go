// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wsstream

import (
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
)

// DataChannelSocket adapts an established WebRTC data channel to the
// [Socket] contract, so a [Conn] serves streams over a peer-to-peer data
// channel exactly as it does over a WebSocket. Wrap the channel and hand
// it to [Dial] through a factory:
//
//	factory := func(string, []string) (wsstream.Socket, error) {
//		return wsstream.NewDataChannelSocket(channel), nil
//	}
//	conn, err := wsstream.Dial(ctx, "ws://peer.internal/data",
//		&wsstream.Options{Socket: factory})
//
// The dial address is advisory here: data channels negotiate through their
// own signaling, so only the scheme check applies to it.
//
// Data channels carry no close codes; every closure reports code 1000.
type DataChannelSocket struct {
	channel *webrtc.DataChannel

	mu     sync.Mutex
	opened bool // open event delivered
	ended  bool // event stream terminated
	closed bool // local close requested

	events chan Event
}

var _ Socket = (*DataChannelSocket)(nil)

// NewDataChannelSocket wraps channel. The socket takes over the channel's
// OnOpen, OnMessage, OnError, and OnClose callbacks. A channel that is
// already open when wrapped reports its open event immediately; one that
// is already closed reports closure immediately.
func NewDataChannelSocket(channel *webrtc.DataChannel) *DataChannelSocket {
	s := &DataChannelSocket{
		channel: channel,
		events:  make(chan Event, eventBufferSize),
	}
	channel.OnOpen(s.open)
	channel.OnMessage(func(message webrtc.DataChannelMessage) {
		kind := MessageBinary
		if message.IsString {
			kind = MessageText
		}
		s.deliver(MessageEvent{Message: Message{Type: kind, Data: message.Data}})
	})
	channel.OnError(func(err error) {
		s.deliver(ErrorEvent{Err: err})
	})
	channel.OnClose(s.finish)

	switch channel.ReadyState() {
	case webrtc.DataChannelStateOpen:
		s.open()
	case webrtc.DataChannelStateClosing, webrtc.DataChannelStateClosed:
		s.finish()
	}
	return s
}

// Address identifies the channel by label; data channels have no dialed
// endpoint.
func (s *DataChannelSocket) Address() string {
	return "datachannel:" + s.channel.Label()
}

// Protocol returns the channel's negotiated subprotocol.
func (s *DataChannelSocket) Protocol() string {
	return s.channel.Protocol()
}

// Extensions returns ""; data channels have no extension negotiation.
func (s *DataChannelSocket) Extensions() string {
	return ""
}

func (s *DataChannelSocket) Events() <-chan Event {
	return s.events
}

// Send transmits one message over the channel: text through SendText,
// binary through Send.
func (s *DataChannelSocket) Send(message Message) error {
	if s.channel.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrNotConnected
	}
	switch message.Type {
	case MessageText:
		return s.channel.SendText(string(message.Data))
	case MessageBinary:
		return s.channel.Send(message.Data)
	default:
		return fmt.Errorf("send on data channel %q: unknown message type %v",
			s.channel.Label(), message.Type)
	}
}

// Close closes the data channel. Close codes and reasons have no data
// channel equivalent and are dropped. Calls after the first are no-ops.
func (s *DataChannelSocket) Close(code int, reason string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.channel.Close()
}

// open delivers the open event once, whether it comes from the OnOpen
// callback or from wrapping an already-open channel.
func (s *DataChannelSocket) open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended || s.opened {
		return
	}
	s.opened = true
	s.events <- OpenEvent{}
}

// deliver forwards one event unless the stream already terminated. The
// send happens under the lock so a racing finish cannot close the channel
// mid-send; the dispatch goroutine never takes this lock, so the buffer
// always drains.
func (s *DataChannelSocket) deliver(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.events <- event
}

// finish emits the terminal close event and ends the event stream.
func (s *DataChannelSocket) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.events <- CloseEvent{Code: closeNormal}
	close(s.events)
}
