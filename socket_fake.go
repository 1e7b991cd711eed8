// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wsstream

import "sync"

// FakeSocket is an in-memory [Socket] for tests. The test scripts the
// socket's lifecycle through the Emit methods and inspects what the
// adapter asked of it through the recorded sends and close requests.
//
// A FakeSocket never closes itself: a Close call is recorded and nothing
// else happens until the test emits the matching close event. That is
// exactly the freedom needed to script peers that echo, ignore, or delay
// closure.
type FakeSocket struct {
	mu         sync.Mutex
	address    string
	protocols  []string
	protocol   string
	extensions string
	sent       []Message
	closeCalls []CloseCall
	sendErr    error
	ended      bool

	events chan Event
}

// CloseCall records one close request made against a [FakeSocket], with
// the raw arguments the adapter passed. Code 0 means "socket default".
type CloseCall struct {
	Code   int
	Reason string
}

var _ Socket = (*FakeSocket)(nil)

// NewFakeSocket returns a fake with an unstarted lifecycle. Emit events to
// drive it.
func NewFakeSocket() *FakeSocket {
	return &FakeSocket{
		events: make(chan Event, eventBufferSize),
	}
}

// Factory satisfies [SocketFactory], recording the address and protocols
// the adapter handed over and returning the fake itself.
func (s *FakeSocket) Factory(address string, protocols []string) (Socket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.address = address
	s.protocols = protocols
	return s, nil
}

func (s *FakeSocket) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

func (s *FakeSocket) Protocol() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.protocol
}

func (s *FakeSocket) Extensions() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extensions
}

func (s *FakeSocket) Events() <-chan Event {
	return s.events
}

// Send records the message, or fails with the error configured through
// [FakeSocket.FailSends].
func (s *FakeSocket) Send(message Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, message)
	return nil
}

// Close records the request. Every call is recorded, so tests can prove
// the adapter issues exactly as many close requests as it should.
func (s *FakeSocket) Close(code int, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCalls = append(s.closeCalls, CloseCall{Code: code, Reason: reason})
	return nil
}

// EmitOpen delivers the open event with the given negotiation results.
func (s *FakeSocket) EmitOpen(protocol, extensions string) {
	s.mu.Lock()
	s.protocol = protocol
	s.extensions = extensions
	s.mu.Unlock()
	s.emit(OpenEvent{})
}

// EmitMessage delivers one inbound message.
func (s *FakeSocket) EmitMessage(message Message) {
	s.emit(MessageEvent{Message: message})
}

// EmitError delivers a socket error without ending the event stream.
func (s *FakeSocket) EmitError(err error) {
	s.emit(ErrorEvent{Err: err})
}

// EmitClose delivers the close event and ends the event stream.
func (s *FakeSocket) EmitClose(code int, reason string) {
	s.emit(CloseEvent{Code: code, Reason: reason})
	s.End()
}

// End closes the event channel without a close event, the shape of a
// socket that fails and cannot attribute a closure. End is idempotent;
// emitting after End panics.
func (s *FakeSocket) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	close(s.events)
}

func (s *FakeSocket) emit(event Event) {
	s.mu.Lock()
	ended := s.ended
	s.mu.Unlock()
	if ended {
		panic("wsstream: emit on an ended FakeSocket")
	}
	// Not under the lock: the dispatch goroutine may be inside an accessor
	// while this send waits for buffer space.
	s.events <- event
}

// SentMessages returns a copy of every message the adapter sent, in order.
func (s *FakeSocket) SentMessages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}

// CloseCalls returns a copy of every close request, in order.
func (s *FakeSocket) CloseCalls() []CloseCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CloseCall(nil), s.closeCalls...)
}

// OfferedProtocols returns the subprotocols received through
// [FakeSocket.Factory].
func (s *FakeSocket) OfferedProtocols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.protocols...)
}

// FailSends makes subsequent sends fail with err. A nil err restores
// normal recording.
func (s *FakeSocket) FailSends(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendErr = err
}
