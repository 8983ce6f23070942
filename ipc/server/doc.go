// Package server implements the inbound side of the IPC system.
//
// Two independent variants implement the IServer capability set
// {Start, Stop, Emit, Broadcast}:
//
//   - StreamServer: serves a Unix domain socket, TCP or TLS endpoint. Every
//     accepted connection becomes a Session with its own frame buffer. Sessions
//     are tracked in accept order for Broadcast and pruned when they close.
//     Config.MaxConnections caps the number of open sessions, further
//     connections are closed right after accept.
//
//   - DatagramServer: serves a UDP socket. Each datagram is decoded as one
//     complete round; the sender address is the Peer to reply to. Broadcast
//     is not supported and returns common.ErrBroadcastUnsupported.
//
// Events raised by both variants:
//
//   - "start" once bound, "error" for transport failures
//   - "connect" with the session for every accepted stream connection
//   - one event per decoded message, named after the message type and
//     carrying the sending peer; unknown types go to the default handler
//   - "data" with the raw bytes in raw mode
//   - "close" with the session when a stream session ends
//   - on Stop: "socket.disconnected" for every remaining session, then
//     "close" without a peer
//
// The TLS variant falls back to bundled development credentials when no key
// material is configured. Those credentials are public and INSECURE.
//
// Usage:
//
//	srv := server.NewStreamServer(config, "/tmp/app.world", 0)
//	srv.On("ping", func(ev server.Event) {
//		_ = srv.Emit(ev.Peer, "pong", ev.Data)
//	})
//	if err := srv.Start(ctx); err != nil {
//		return err
//	}
//	<-srv.Done()
package server
