// Package cmd implements the command-line interface of dIPC. It provides a
// server that answers, echoes and relays messages, and client commands to
// talk to it.
//
// The package is organized into several subpackages:
//
//   - serve: Starts a server on a local socket, TCP, TLS or UDP endpoint
//   - client: Commands to send messages, listen and measure round trips
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set as environment variable DIPC_<FLAG> or in a .env
// file. See dipc -help for a list of all commands.
package cmd
