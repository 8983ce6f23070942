// Package queue provides the dispatch queue that serializes sends of a client
// in synchronous mode.
//
// The queue only paces writes: a send is started, and the next one waits until
// the owner signals (via Next) that the inbound data of the current round was
// processed. Replies are matched to requests by arrival order, there is no
// correlation identifier.
package queue
