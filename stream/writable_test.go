// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"errors"
	"testing"
)

// recordingSink captures everything a Writable forwards into it and fails on
// demand.
type recordingSink struct {
	wrote    []string
	closes   int
	aborts   []error
	writeErr error
	closeErr error
}

func (s *recordingSink) sink() Sink[string] {
	return Sink[string]{
		Write: func(item string) error {
			if s.writeErr != nil {
				return s.writeErr
			}
			s.wrote = append(s.wrote, item)
			return nil
		},
		Close: func() error {
			s.closes++
			return s.closeErr
		},
		Abort: func(reason error) error {
			s.aborts = append(s.aborts, reason)
			return nil
		},
	}
}

func TestWritable_ForwardsInOrder(t *testing.T) {
	recorder := &recordingSink{}
	writable := NewWritable(recorder.sink())

	for _, item := range []string{"a", "b", "c"} {
		if err := writable.Write(item); err != nil {
			t.Fatalf("Write(%q) error: %v", item, err)
		}
	}

	if len(recorder.wrote) != 3 {
		t.Fatalf("sink received %d items, want 3", len(recorder.wrote))
	}
	for i, want := range []string{"a", "b", "c"} {
		if recorder.wrote[i] != want {
			t.Errorf("sink item %d = %q, want %q", i, recorder.wrote[i], want)
		}
	}
}

func TestWritable_WriteErrorSticks(t *testing.T) {
	boom := errors.New("send failed")
	recorder := &recordingSink{writeErr: boom}
	writable := NewWritable(recorder.sink())

	if err := writable.Write("doomed"); !errors.Is(err, boom) {
		t.Fatalf("Write = %v, want %v", err, boom)
	}

	// The failure is terminal even once the sink recovers.
	recorder.writeErr = nil
	if err := writable.Write("after"); !errors.Is(err, boom) {
		t.Errorf("Write after failure = %v, want %v", err, boom)
	}
	if err := writable.Close(); !errors.Is(err, boom) {
		t.Errorf("Close after failure = %v, want %v", err, boom)
	}
	if recorder.closes != 0 {
		t.Errorf("sink Close ran %d times on an errored stream, want 0", recorder.closes)
	}
}

func TestWritable_CloseIdempotent(t *testing.T) {
	recorder := &recordingSink{}
	writable := NewWritable(recorder.sink())

	if err := writable.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := writable.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
	if recorder.closes != 1 {
		t.Errorf("sink Close ran %d times, want 1", recorder.closes)
	}
	if err := writable.Write("too late"); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Close = %v, want %v", err, ErrClosed)
	}
}

func TestWritable_AbortCarriesReason(t *testing.T) {
	recorder := &recordingSink{}
	writable := NewWritable(recorder.sink())
	reason := errors.New("tearing down")

	if err := writable.Abort(reason); err != nil {
		t.Fatalf("Abort error: %v", err)
	}

	if len(recorder.aborts) != 1 || recorder.aborts[0] != reason {
		t.Errorf("sink aborts = %v, want [%v]", recorder.aborts, reason)
	}
	if err := writable.Write("after abort"); !errors.Is(err, reason) {
		t.Errorf("Write after Abort = %v, want %v", err, reason)
	}
	if recorder.closes != 0 {
		t.Errorf("sink Close ran %d times after abort, want 0", recorder.closes)
	}
}

func TestWritable_AbortAfterCloseIsNoOp(t *testing.T) {
	recorder := &recordingSink{}
	writable := NewWritable(recorder.sink())

	if err := writable.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := writable.Abort(errors.New("too late")); err != nil {
		t.Errorf("Abort after Close = %v, want nil", err)
	}
	if len(recorder.aborts) != 0 {
		t.Errorf("sink Abort ran %d times on a closed stream, want 0", len(recorder.aborts))
	}
}

func TestWritable_ControlErrorFailsStream(t *testing.T) {
	var control *WriteControl[string]
	recorder := &recordingSink{}
	sink := recorder.sink()
	sink.Start = func(c *WriteControl[string]) error {
		control = c
		return nil
	}
	writable := NewWritable(sink)
	boom := errors.New("resource went away")

	control.Error(boom)

	if err := writable.Write("x"); !errors.Is(err, boom) {
		t.Errorf("Write = %v, want %v", err, boom)
	}
	if err := writable.Close(); !errors.Is(err, boom) {
		t.Errorf("Close = %v, want %v", err, boom)
	}

	// A later control error must not replace the first.
	control.Error(errors.New("second failure"))
	if err := writable.Write("y"); !errors.Is(err, boom) {
		t.Errorf("Write after second control error = %v, want %v", err, boom)
	}
}

func TestWritable_StartErrorFailsStream(t *testing.T) {
	boom := errors.New("start failed")
	writable := NewWritable(Sink[int]{
		Start: func(*WriteControl[int]) error { return boom },
	})

	if err := writable.Write(1); !errors.Is(err, boom) {
		t.Errorf("Write = %v, want %v", err, boom)
	}
}
