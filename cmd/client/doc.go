// Package client implements the client commands of the dipc CLI:
//
//   - send: sends one message and prints the replies
//   - listen: prints every message received until interrupted
//   - ping: measures round trip times against a server started with dipc serve
//
// All commands share the configuration flags of the serve command, so both
// ends can be configured the same way (e.g. --port, --tls, --delimiter).
package client
