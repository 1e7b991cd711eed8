// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package stream implements generic one-directional message streams with
// explicit completion signaling.
//
// A [Readable] is a pull-based stream fed by a producer through a
// [ReadControl]: items buffer without bound and are delivered one per read,
// in arrival order. The producer completes the stream with
// [ReadControl.Close] (remaining items drain, then reads report io.EOF) or
// fails it with [ReadControl.Error] (buffered items are discarded). The
// consumer can walk away with [Readable.Cancel], which notifies the producer
// through the [Source] cancel hook.
//
// A [Writable] is a push stream forwarding each item synchronously to a
// [Sink]. Whatever entity stands behind the sink can fail the stream from
// the outside through a [WriteControl]. Closing is idempotent, and aborting
// carries the producer's reason to the sink.
//
// Both streams tolerate late signals: closing, cancelling, or erroring a
// stream that already terminated is a no-op rather than a failure, which
// lets event-driven sources wire their teardown paths without tracking
// stream state themselves.
package stream
