// Package event provides the dispatch table used by clients and servers to
// deliver lifecycle events and decoded messages. Message types are arbitrary
// strings chosen by the peer, so the table is keyed by string and has an
// explicit default handler for names nobody subscribed to.
package event
