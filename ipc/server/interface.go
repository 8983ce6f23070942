package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"

	"github.com/ValentinKolb/dIPC/ipc/codec"
	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/ValentinKolb/dIPC/ipc/event"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger(common.LoggerServer)

// --------------------------------------------------------------------------
// Interface Definitions
// --------------------------------------------------------------------------

// Peer is the remote end a server can write to: a Session for stream servers,
// a Datagram address for datagram servers.
type Peer interface {
	// ID returns the diagnostic identifier of the peer, empty if unknown
	ID() string
	// RemoteAddr returns the address of the remote end
	RemoteAddr() net.Addr
}

// IServer is the capability set shared by the stream and datagram servers
type IServer interface {
	// Start binds the endpoint and serves in the background. It returns once
	// the server is bound (after emitting "start") or binding failed.
	// Cancelling ctx stops the server.
	Start(ctx context.Context) error
	// Stop closes the endpoint and every session. Stopping twice is a no-op.
	Stop() error
	// Done is closed once the server has stopped
	Done() <-chan struct{}
	// Addr returns the bound address, nil before Start
	Addr() net.Addr

	// Emit encodes one message and writes it to peer
	Emit(peer Peer, typeOrRaw string, data any) error
	// Broadcast encodes one message and writes the same bytes to every peer
	Broadcast(typeOrRaw string, data any) error

	// On subscribes h to a lifecycle event or message type
	On(name string, h Handler)
	// OnDefault sets the handler for message types without subscribers
	OnDefault(h Handler)
}

// --------------------------------------------------------------------------
// Events
// --------------------------------------------------------------------------

// Event is passed to the handlers of a server. Peer is the session or sender
// the event concerns and nil for events of the whole server ("start" and the
// final "close").
type Event struct {
	Name string
	Data json.RawMessage
	Raw  []byte
	Err  error
	Peer Peer
}

// Decode unmarshals the message payload of the event into v
func (e Event) Decode(v any) error {
	return common.Message{Type: e.Name, Data: e.Data}.Decode(v)
}

// Handler is a callback subscribed to server events
type Handler = event.Handler[Event]

// --------------------------------------------------------------------------
// Factory
// --------------------------------------------------------------------------

// New creates the server variant for network. An empty network, "unix", "tcp"
// or "tls" selects the stream server (the transport then follows from port and
// config.TLS); "udp4" and "udp6" select the datagram server.
func New(config *common.Config, host string, port int, network string) (IServer, error) {
	switch strings.ToLower(network) {
	case "", "unix", "tcp", "tls":
		return NewStreamServer(config, host, port), nil
	case "udp4", "udp6":
		return NewDatagramServer(config, host, port, network)
	default:
		return nil, fmt.Errorf("unknown server network %q", network)
	}
}

// --------------------------------------------------------------------------
// Shared server state
// --------------------------------------------------------------------------

// base holds what both server variants share: the codec, the handlers and
// the stop signal
type base struct {
	config *common.Config
	codec  *codec.Codec
	events *event.Dispatcher[Event]
	done   chan struct{}
}

func newBase(config *common.Config) base {
	return base{
		config: config,
		codec:  codec.New(config),
		events: event.NewDispatcher[Event](),
		done:   make(chan struct{}),
	}
}

func (b *base) On(name string, h Handler) {
	b.events.On(name, h)
}

func (b *base) OnDefault(h Handler) {
	b.events.OnDefault(h)
}

func (b *base) Done() <-chan struct{} {
	return b.done
}

// emit raises a lifecycle event, which never reaches the default handler
func (b *base) emit(ev Event) {
	if b.events.Has(ev.Name) {
		b.events.Emit(ev.Name, ev)
	}
}

// dispatch delivers a decoded message
func (b *base) dispatch(ev Event) {
	if !b.events.Emit(ev.Name, ev) {
		Logger.Debugf("No handler for %s, dropping", ev.Name)
	}
}

// deliver dispatches one decoded round from peer in order
func (b *base) deliver(peer Peer, messages []common.Message) {
	for _, msg := range messages {
		Logger.Debugf("Received event of %s", msg.Type)
		b.dispatch(Event{Name: msg.Type, Data: msg.Data, Peer: peer})
	}
}
