// Package transport defines the connector abstractions that let clients and
// servers work the same way over every stream transport.
//
// The package focuses on:
//   - Defining clear interfaces for opening client connections and server listeners
//   - Selecting the transport from the addressing of a client or server
//
// Key Components:
//
//   - IClientConnector: dials one connection. Implemented by unix, tcp and tls.
//
//   - IServerConnector: creates a listener. Implemented by unix, tcp and tls.
//
// Transport selection: an endpoint without a port is a Unix domain socket path,
// an endpoint with a port is TCP, upgraded to TLS when the configuration holds
// TLS settings. Datagram servers use the udp package directly since UDP has no
// connections to dial or accept.
package transport
