// Package tcp implements the plain TCP transport of the IPC system.
//
// Key Components:
//
//   - ClientConnector: Dials host:port, honouring the local address, local
//     port and address family hints of the configuration
//
//   - ServerConnector: Binds host:port
//
// Every accepted or dialed connection has Nagle's algorithm disabled and
// keep-alive enabled (see UpgradeConnection). The tls package reuses the
// dialer and the socket options of this package.
package tcp
