// Package common provides core data structures and utilities shared across
// the IPC system. It defines the message envelope, the configuration holder,
// event names, sentinel errors and the logging setup.
//
// The package focuses on:
//   - The Message envelope exchanged in framed mode ({"type": ..., "data": ...})
//   - The Config value passed explicitly into every client and server
//   - Custom logging integrated with Dragonboat's logger registry
//
// Key Components:
//
//   - Message: A typed frame. The Type field is used as event name when the
//     message is dispatched, Data stays raw JSON until a handler decodes it.
//
//   - Config: All tunables of the system (addressing, framing, retry policy,
//     TLS material, unix socket permissions). DefaultConfig returns the defaults.
//
//   - Logger: Custom logging implementation that plugs into Dragonboat's
//     logger factory, so every package obtains a named logger via
//     logger.GetLogger and InitLoggers can adjust all of them at once.
package common
