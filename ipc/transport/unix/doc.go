// Package unix implements the local transport of the IPC system using Unix
// domain sockets addressed by filesystem path.
//
// Key Components:
//
//   - ClientConnector: Dials the socket at the configured path
//
//   - ServerConnector: Removes a stale socket file (if unlinking is enabled),
//     binds the socket and optionally opens its permissions to all users.
//     The socket file is removed again when the listener is closed.
//
// Windows supports AF_UNIX sockets since Windows 10 1803, so the same
// connector serves there as well; paths are used as given.
package unix
