// Package udp implements the datagram transport of the IPC system. A UDP
// socket has no connected peers: every datagram carries its sender address,
// which is the only notion of "who to reply to".
package udp
