// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wsstream_test

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/wsstream"
)

// ExampleDial scripts a complete connection lifecycle against a
// [wsstream.FakeSocket]; a production dial only swaps the factory for the
// default WebSocket dialer.
func ExampleDial() {
	fake := wsstream.NewFakeSocket()
	conn, err := wsstream.Dial(context.Background(), "wss://example.test/feed", &wsstream.Options{
		Protocols: []string{"chat.v1"},
		Socket:    fake.Factory,
	})
	if err != nil {
		panic(err)
	}

	fake.EmitOpen("chat.v1", "")
	opened, err := conn.Opened(context.Background())
	if err != nil {
		panic(err)
	}
	fmt.Println("protocol:", opened.Protocol)

	fake.EmitMessage(wsstream.Text("hello"))
	message, err := opened.Readable.Read(context.Background())
	if err != nil {
		panic(err)
	}
	fmt.Println("received:", string(message.Data))

	if err := opened.Writable.Write(wsstream.Text("hi yourself")); err != nil {
		panic(err)
	}

	fake.EmitClose(1000, "bye")
	closed, err := conn.Closed(context.Background())
	if err != nil {
		panic(err)
	}
	fmt.Println("closed:", closed.Code, closed.Reason)

	// Output:
	// protocol: chat.v1
	// received: hello
	// closed: 1000 bye
}
