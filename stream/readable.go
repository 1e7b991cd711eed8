// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"context"
	"io"
	"sync"

	"github.com/eapache/queue"
)

type readState int

const (
	readActive readState = iota
	readClosed
	readErrored
	readCancelled
)

// Source supplies the hooks a [Readable] drives. Start runs synchronously
// during construction and receives the control the producer uses to push
// items into the stream. Cancel runs when the consumer abandons the stream
// and receives the consumer's reason. Either hook may be nil.
type Source[T any] struct {
	Start  func(*ReadControl[T]) error
	Cancel func(reason error)
}

// Readable is a pull-based stream of items pushed by a producer through a
// [ReadControl]. Items buffer without bound and are delivered one per
// [Readable.Read], in arrival order.
//
// A Readable is safe for concurrent use, though it is designed for a single
// consumer: concurrent reads compete for items.
type Readable[T any] struct {
	mu     sync.Mutex
	items  *queue.Queue
	state  readState
	err    error         // terminal cause when state == readErrored
	signal chan struct{} // closed and replaced on every mutation
	cancel func(error)
}

// NewReadable constructs a stream around the given source. If the source's
// Start hook returns an error the stream begins in its errored state and
// every read reports that error.
func NewReadable[T any](source Source[T]) *Readable[T] {
	r := &Readable[T]{
		items:  queue.New(),
		signal: make(chan struct{}),
		cancel: source.Cancel,
	}
	control := &ReadControl[T]{stream: r}
	if source.Start != nil {
		if err := source.Start(control); err != nil {
			control.Error(err)
		}
	}
	return r
}

// Read returns the next item. It blocks until an item is available, the
// stream terminates, or ctx is done. A gracefully completed or cancelled
// stream reports io.EOF once its buffer has drained; an errored stream
// reports its error immediately.
//
// A ctx expiry aborts only this read. The stream stays usable.
func (r *Readable[T]) Read(ctx context.Context) (T, error) {
	var zero T
	for {
		r.mu.Lock()
		if r.items.Length() > 0 {
			item := r.items.Remove().(T)
			r.mu.Unlock()
			return item, nil
		}
		switch r.state {
		case readClosed, readCancelled:
			r.mu.Unlock()
			return zero, io.EOF
		case readErrored:
			err := r.err
			r.mu.Unlock()
			return zero, err
		}
		wait := r.signal
		r.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Cancel abandons the stream: buffered items are discarded, subsequent
// reads report io.EOF, and the source's Cancel hook runs with the given
// reason. Cancelling a stream that already terminated is a no-op and does
// not invoke the hook.
func (r *Readable[T]) Cancel(reason error) {
	r.mu.Lock()
	if r.state != readActive {
		r.mu.Unlock()
		return
	}
	r.state = readCancelled
	r.discardLocked()
	r.wakeLocked()
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel(reason)
	}
}

func (r *Readable[T]) discardLocked() {
	for r.items.Length() > 0 {
		r.items.Remove()
	}
}

// wakeLocked unblocks every pending read so it can re-examine the stream.
func (r *Readable[T]) wakeLocked() {
	close(r.signal)
	r.signal = make(chan struct{})
}

// ReadControl is the producer's handle on a [Readable]. All methods
// tolerate a terminated stream: pushing into or closing a stream that is
// already done is a no-op, never a failure.
type ReadControl[T any] struct {
	stream *Readable[T]
}

// Enqueue appends an item to the stream's buffer. Items pushed after the
// stream terminates are dropped.
func (c *ReadControl[T]) Enqueue(item T) {
	r := c.stream
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != readActive {
		return
	}
	r.items.Add(item)
	r.wakeLocked()
}

// Close completes the stream gracefully. Buffered items remain readable;
// once drained, reads report io.EOF.
func (c *ReadControl[T]) Close() {
	r := c.stream
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != readActive {
		return
	}
	r.state = readClosed
	r.wakeLocked()
}

// Error fails the stream: buffered items are discarded and every read
// reports err.
func (c *ReadControl[T]) Error(err error) {
	r := c.stream
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != readActive {
		return
	}
	r.state = readErrored
	r.err = err
	r.discardLocked()
	r.wakeLocked()
}
