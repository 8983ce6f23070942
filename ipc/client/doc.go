// Package client implements the outbound side of the IPC system: a single
// connection to a named service that is re-established automatically.
//
// The package focuses on:
//   - Managing the connection lifecycle with a bounded or unlimited retry budget
//   - Reassembling delimited frames and dispatching them as typed events
//   - Optionally serializing writes so that only one request is in flight
//
// Key Components:
//
//   - Client: the connection state machine. Connect returns immediately and
//     reports progress through the "connect", "error", "disconnect" and
//     "destroy" events. Every successful connect resets the retry budget.
//
//   - Event: the value passed to handlers. Decoded messages carry their JSON
//     payload, raw mode "data" events carry the bytes read, and "error"
//     events carry the transport error.
//
// Retries: when a connection ends the client waits Config.Retry and dials
// again while retries remain. A client that runs out of retries, has
// StopRetrying set or was disconnected explicitly becomes destroyed and stays
// that way. Disconnect also cancels a pending retry.
//
// Synchronous mode: with Config.Sync set, Emit queues writes and the next
// write starts only after an inbound round of messages was handled.
//
// Usage:
//
//	c := client.New(config, "world", "/tmp/app.world", 0)
//	c.On("pong", func(ev client.Event) { ... })
//	c.On(common.EventConnect, func(client.Event) { _ = c.Emit("ping", nil) })
//	c.Connect()
//	defer c.Disconnect()
package client
