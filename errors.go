// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wsstream

import (
	"errors"
	"fmt"
)

// ErrConnectionFailed reports that the socket failed before reaching its
// open state. The opened future settles with an error satisfying
// errors.Is(err, ErrConnectionFailed); the socket's own error, when one was
// reported, is wrapped alongside it.
var ErrConnectionFailed = errors.New("wsstream: connection failed")

// ErrConnectionClosed reports that the socket closed underneath the
// outbound stream without the writer having initiated the closure. Writes
// on the outbound stream return it after a remote or adapter-driven close.
var ErrConnectionClosed = errors.New("wsstream: connection closed")

// ErrNotConnected reports a send on a socket that has not opened yet or is
// already torn down.
var ErrNotConnected = errors.New("wsstream: socket not connected")

// ErrInvalidCloseCode rejects explicit close codes outside 1000 and
// [3000, 4999]. Codes in the remaining ranges are reserved for the
// protocol itself and cannot be sent by applications.
var ErrInvalidCloseCode = errors.New("wsstream: invalid close code")

// ErrInvalidCloseReason rejects close reasons that are not valid UTF-8 or
// exceed 123 bytes, the most a close frame can carry next to its code.
var ErrInvalidCloseReason = errors.New("wsstream: invalid close reason")

// SchemeError reports a dial address whose scheme is outside the allowed
// set. Callers can use errors.As to distinguish it from other dial
// failures:
//
//	var schemeErr *wsstream.SchemeError
//	if errors.As(err, &schemeErr) {
//	    log.Printf("unsupported scheme %q", schemeErr.Scheme)
//	}
type SchemeError struct {
	// Scheme is the offending URL scheme, lowercased.
	Scheme string
}

func (e *SchemeError) Error() string {
	return fmt.Sprintf("wsstream: scheme %q not allowed (want ws, wss, http, or https)", e.Scheme)
}
