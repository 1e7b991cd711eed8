// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"errors"
	"sync"
)

// ErrClosed is reported by writes to a stream that was closed cleanly.
var ErrClosed = errors.New("stream: closed")

type writeState int

const (
	writeActive writeState = iota
	writeClosed
	writeErrored // sink failure, abort, or an external Error call
)

// Sink supplies the hooks a [Writable] forwards into. Start runs
// synchronously during construction and receives the control used to fail
// the stream from the outside. Write, Close, and Abort run synchronously in
// the caller's goroutine, under the stream lock; they must not call back
// into the stream. Any hook may be nil.
type Sink[T any] struct {
	Start func(*WriteControl[T]) error
	Write func(item T) error
	Close func() error
	Abort func(reason error) error
}

// Writable is a push stream forwarding items to a [Sink]. Producer calls
// serialize under the stream lock, so an abort issued while a write is in
// flight takes effect once that write returns.
type Writable[T any] struct {
	mu    sync.Mutex
	state writeState
	err   error // terminal cause when state == writeErrored
	sink  Sink[T]
}

// NewWritable constructs a stream around the given sink. If the sink's
// Start hook returns an error the stream begins in its errored state and
// every write reports that error.
func NewWritable[T any](sink Sink[T]) *Writable[T] {
	w := &Writable[T]{sink: sink}
	control := &WriteControl[T]{stream: w}
	if sink.Start != nil {
		if err := sink.Start(control); err != nil {
			w.state = writeErrored
			w.err = err
		}
	}
	return w
}

// Write forwards one item to the sink and returns the sink's error, if any.
// A failed write leaves the stream errored: subsequent writes report the
// same error. Writing to a closed stream reports [ErrClosed].
func (w *Writable[T]) Write(item T) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.state {
	case writeClosed:
		return ErrClosed
	case writeErrored:
		return w.err
	}
	if w.sink.Write == nil {
		return nil
	}
	if err := w.sink.Write(item); err != nil {
		w.state = writeErrored
		w.err = err
		return err
	}
	return nil
}

// Close completes the stream and runs the sink's Close hook. Closing twice
// is a no-op; closing an errored stream returns its error without invoking
// the hook.
func (w *Writable[T]) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.state {
	case writeClosed:
		return nil
	case writeErrored:
		return w.err
	}
	w.state = writeClosed
	if w.sink.Close == nil {
		return nil
	}
	if err := w.sink.Close(); err != nil {
		w.state = writeErrored
		w.err = err
		return err
	}
	return nil
}

// Abort terminates the stream and runs the sink's Abort hook with reason.
// Subsequent writes report reason. Aborting a stream that already
// terminated is a no-op and does not invoke the hook.
func (w *Writable[T]) Abort(reason error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != writeActive {
		return nil
	}
	w.state = writeErrored
	w.err = reason
	if w.sink.Abort == nil {
		return nil
	}
	return w.sink.Abort(reason)
}

// WriteControl lets the entity behind the sink fail a [Writable] from the
// outside, typically because the underlying resource went away.
type WriteControl[T any] struct {
	stream *Writable[T]
}

// Error fails the stream: subsequent writes report err. A stream that
// already terminated is left as is.
func (c *WriteControl[T]) Error(err error) {
	w := c.stream
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != writeActive {
		return
	}
	w.state = writeErrored
	w.err = err
}
