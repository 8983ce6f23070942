// Package ipc is the entry point of dIPC, a library for exchanging typed
// messages between processes over Unix domain sockets, TCP, TLS and UDP.
//
// An IPC value is a small registry: it keeps one client per service id and at
// most one server, and derives addresses the caller leaves out from its
// configuration (socket path SocketRoot+AppSpace+ID, network host and port).
//
// Messages are JSON frames {"type": ..., "data": ...} terminated by a single
// delimiter byte (form feed by default). The type of a message is the name of
// the event it is dispatched as; raw mode skips the envelope entirely.
//
// Usage:
//
//	config := common.DefaultConfig()
//	config.ID = "world"
//
//	world := ipc.New(config)
//	_, err := world.Serve(ctx, "", func(srv server.IServer) {
//		srv.On("ping", func(ev server.Event) { _ = srv.Emit(ev.Peer, "pong", ev.Data) })
//	})
//
//	hello := ipc.New(nil)
//	_, err = hello.ConnectTo("world", "/tmp/app.world", func(c *client.Client) {
//		c.On(common.EventConnect, func(client.Event) { _ = c.Emit("ping", nil) })
//		c.On("pong", func(ev client.Event) { ... })
//	})
//
// See the client and server packages for the connection lifecycle and the
// events raised.
package ipc
