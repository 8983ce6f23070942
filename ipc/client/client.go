package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/dIPC/ipc/codec"
	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/ValentinKolb/dIPC/ipc/event"
	"github.com/ValentinKolb/dIPC/ipc/metrics"
	"github.com/ValentinKolb/dIPC/ipc/queue"
	"github.com/ValentinKolb/dIPC/ipc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger(common.LoggerClient)

const readBufferSize = 64 * 1024

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// State is the lifecycle state of a client
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnected // a retry is scheduled
	StateDestroyed    // terminal
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Event is passed to the handlers of a client. Which fields are set depends
// on the event: Data for decoded messages, Raw for "data" in raw mode and Err
// for "error" events raised by the transport.
type Event struct {
	Name string
	Data json.RawMessage
	Raw  []byte
	Err  error
}

// Decode unmarshals the message payload of the event into v
func (e Event) Decode(v any) error {
	return common.Message{Type: e.Name, Data: e.Data}.Decode(v)
}

// Handler is a callback subscribed to client events
type Handler = event.Handler[Event]

// Client manages the lifecycle of one outbound connection: connecting,
// reconnecting after a fixed delay while retries remain, and tearing down.
//
// Lifecycle: Idle -> Connecting -> Connected -> Disconnected -> Connecting ...
// -> Destroyed. Destroyed is terminal, a destroyed client never reconnects.
type Client struct {
	config    *common.Config
	id        string
	path      string
	port      int
	connector transport.IClientConnector
	codec     *codec.Codec
	queue     *queue.DispatchQueue
	events    *event.Dispatcher[Event]

	mu                     sync.Mutex
	state                  State
	conn                   net.Conn
	retriesRemaining       int
	explicitlyDisconnected bool
	retryTimer             *time.Timer
	cancelDial             context.CancelFunc
}

// New creates a client for the service id at path. A port of 0 selects the
// local socket transport, otherwise path is the host to connect to.
func New(config *common.Config, id, path string, port int) *Client {
	return &Client{
		config:           config,
		id:               id,
		path:             path,
		port:             port,
		connector:        transport.NewClientConnector(config, path, port),
		codec:            codec.New(config),
		queue:            queue.New(),
		events:           event.NewDispatcher[Event](),
		retriesRemaining: config.MaxRetries,
	}
}

// --------------------------------------------------------------------------
// Public API
// --------------------------------------------------------------------------

// ID returns the service id of the client
func (c *Client) ID() string {
	return c.id
}

// On subscribes h to an event or message type
func (c *Client) On(name string, h Handler) *Client {
	c.events.On(name, h)
	return c
}

// OnDefault sets the handler for message types without subscribers
func (c *Client) OnDefault(h Handler) *Client {
	c.events.OnDefault(h)
	return c
}

// State returns the current lifecycle state
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// IsConnected reports whether the client holds an open connection
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state == StateConnected && c.conn != nil
}

// Connect opens the transport in the background and returns immediately.
// Progress is reported through the connect, error, disconnect and destroy
// events. Without a path Connect logs and returns without opening anything.
func (c *Client) Connect() *Client {
	Logger.Debugf("Requested connection to %s %s", c.id, common.ServerPath(c.path, c.port))

	if c.path == "" {
		Logger.Errorf("%s: client has not specified the socket path it wishes to connect to", c.id)
		return c
	}

	c.mu.Lock()
	if c.explicitlyDisconnected || c.state == StateDestroyed {
		c.mu.Unlock()
		return c
	}
	if c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		Logger.Debugf("%s: connection already in progress", c.id)
		return c
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelDial = cancel
	c.state = StateConnecting
	c.mu.Unlock()

	Logger.Infof("Connecting client %s via %s to %s", c.id, c.connector.GetName(), common.ServerPath(c.path, c.port))
	go c.run(ctx)

	return c
}

// Emit encodes a message and writes it to the connection. In raw mode
// typeOrRaw is written as is and data is ignored.
//
// In synchronous mode the write is queued and performed once the replies to
// all earlier writes have been processed. Emit only fails if the message can
// not be encoded; transport failures are reported through the error and
// disconnect events.
func (c *Client) Emit(typeOrRaw string, data any) error {
	payload, err := c.codec.Encode(typeOrRaw, data)
	if err != nil {
		return err
	}

	write := func() {
		Logger.Debugf("Dispatching event to %s %s: %s", c.id, c.path, typeOrRaw)

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			Logger.Errorf("%v (%s %s), dropping %s", common.ErrNotConnected, c.id, c.path, typeOrRaw)
			c.skip()
			return
		}

		n, err := conn.Write(payload)
		metrics.BytesWritten(c.connector.GetName()).Add(n)
		if err != nil {
			Logger.Warningf("Failed to write to %s: %v", c.id, err)
			c.skip()
		}
	}

	if c.config.Sync {
		c.queue.Add(write)
	} else {
		write()
	}
	return nil
}

// Disconnect removes all handlers, cancels a pending reconnection and closes
// the connection. The client ends up destroyed. Safe to call multiple times.
func (c *Client) Disconnect() *Client {
	c.events.RemoveAll()

	c.mu.Lock()
	if c.explicitlyDisconnected {
		c.mu.Unlock()
		return c
	}
	c.explicitlyDisconnected = true

	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	if c.cancelDial != nil {
		c.cancelDial()
	}

	conn := c.conn
	// without a running connection nobody else will finish the teardown
	if c.state == StateIdle || c.state == StateDisconnected {
		c.state = StateDestroyed
	}
	c.mu.Unlock()

	c.queue.Stop()
	c.queue.Clear()

	if conn != nil {
		conn.Close()
	}

	Logger.Infof("Client %s disconnected explicitly", c.id)
	return c
}

// --------------------------------------------------------------------------
// Connection lifecycle
// --------------------------------------------------------------------------

// run dials, reads until the connection ends and then runs the close logic
func (c *Client) run(ctx context.Context) {
	conn, err := c.connector.Connect(ctx)
	if err != nil {
		c.handleError(err)
		c.handleClose()
		return
	}

	c.mu.Lock()
	if c.explicitlyDisconnected {
		c.mu.Unlock()
		conn.Close()
		c.handleClose()
		return
	}
	c.conn = conn
	c.state = StateConnected
	c.retriesRemaining = c.config.MaxRetries
	c.mu.Unlock()

	metrics.ClientConnects.Inc()
	Logger.Debugf("Client %s connected, retries reset", c.id)
	c.emit(Event{Name: common.EventConnect})

	if err := c.readLoop(conn); err != nil {
		c.handleError(err)
	}
	conn.Close()
	c.handleClose()
}

// readLoop delivers inbound data until the connection fails or is closed.
// The frame buffer belongs to this connection only.
func (c *Client) readLoop(conn net.Conn) error {
	buffer := codec.NewFrameBuffer(c.codec, c.config.MaxBufferSize)
	readBuf := make([]byte, readBufferSize)
	bytesRead := metrics.BytesRead(c.connector.GetName())

	for {
		n, err := conn.Read(readBuf)
		if n > 0 {
			bytesRead.Add(n)
			if ferr := c.handleData(buffer, readBuf[:n]); ferr != nil {
				return ferr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

// handleData processes one read from the transport
func (c *Client) handleData(buffer *codec.FrameBuffer, data []byte) error {
	if c.codec.Raw() {
		c.emit(Event{Name: common.EventData, Raw: c.codec.RawBytes(data)})
		c.advance()
		return nil
	}

	messages, ok, err := buffer.Feed(data)
	if err != nil {
		return err
	}
	if !ok {
		Logger.Debugf("Waiting for the rest of a frame from %s (%d bytes buffered)", c.id, buffer.Len())
		return nil
	}

	for _, msg := range messages {
		Logger.Debugf("Detected event %s from %s", msg.Type, c.id)
		c.dispatch(Event{Name: msg.Type, Data: msg.Data})
	}
	c.advance()
	return nil
}

// handleError reports a transport error. The close logic follows separately.
func (c *Client) handleError(err error) {
	Logger.Warningf("Client %s: %v", c.id, err)
	c.emit(Event{Name: common.EventError, Err: err})
}

// handleClose decides between destroying the client and scheduling a retry.
// Both paths emit disconnect.
func (c *Client) handleClose() {
	c.mu.Lock()
	c.conn = nil
	c.cancelDial = nil

	outOfRetries := c.config.MaxRetries != common.UnlimitedRetries && c.retriesRemaining < 1
	if c.config.StopRetrying || outOfRetries || c.explicitlyDisconnected {
		c.state = StateDestroyed
		c.mu.Unlock()

		Logger.Infof("Connection to %s closed, retries exhausted or retrying stopped", c.id)
		metrics.ClientDestroyed.Inc()
		c.queue.Clear()
		c.emit(Event{Name: common.EventDisconnect})
		c.emit(Event{Name: common.EventDestroy})
		return
	}

	c.state = StateDisconnected
	c.mu.Unlock()

	if c.config.MaxRetries == common.UnlimitedRetries {
		Logger.Infof("Connection to %s closed, retrying in %s", c.id, c.config.Retry)
	} else {
		Logger.Infof("Connection to %s closed, %d of %d retries remaining", c.id, c.retriesRemaining, c.config.MaxRetries)
	}
	c.emit(Event{Name: common.EventDisconnect})

	// the reply to an in-flight write died with the connection
	if c.config.Sync && c.queue.Running() {
		c.skip()
	}

	c.mu.Lock()
	if !c.explicitlyDisconnected && c.state == StateDisconnected {
		c.retryTimer = time.AfterFunc(c.config.Retry, c.retry)
	}
	c.mu.Unlock()
}

// retry fires after the retry interval and reconnects
func (c *Client) retry() {
	c.mu.Lock()
	c.retryTimer = nil
	if c.explicitlyDisconnected || c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	if c.config.MaxRetries != common.UnlimitedRetries {
		c.retriesRemaining--
	}
	c.mu.Unlock()

	metrics.ClientRetries.Inc()
	c.Connect()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// emit raises a lifecycle event. Lifecycle events never reach the default handler.
func (c *Client) emit(ev Event) {
	if c.events.Has(ev.Name) {
		c.events.Emit(ev.Name, ev)
	}
}

// dispatch delivers a decoded message, falling back to the default handler
func (c *Client) dispatch(ev Event) {
	if !c.events.Emit(ev.Name, ev) {
		Logger.Debugf("No handler for %s from %s, dropping", ev.Name, c.id)
	}
}

// advance lets the dispatch queue start the next write once an inbound round
// has been processed
func (c *Client) advance() {
	if c.config.Sync {
		c.queue.Next()
	}
}

// skip releases the dispatch queue after a write that could not happen, as
// no reply will arrive for it
func (c *Client) skip() {
	if c.config.Sync {
		c.queue.Next()
	}
}
