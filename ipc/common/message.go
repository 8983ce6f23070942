package common

import (
	"encoding/json"
	"errors"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message is a single typed frame. Type doubles as the event name under which
// the message is dispatched, Data is kept as raw JSON until a handler decodes it.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the payload of the message into v
func (m Message) Decode(v any) error {
	if len(m.Data) == 0 {
		return errors.New("message has no data")
	}
	return json.Unmarshal(m.Data, v)
}

// ID returns the "id" field of an object payload, or "" if there is none
func (m Message) ID() string {
	var payload struct {
		ID string `json:"id"`
	}
	if len(m.Data) == 0 || m.Data[0] != '{' {
		return ""
	}
	if err := json.Unmarshal(m.Data, &payload); err != nil {
		return ""
	}
	return payload.ID
}

// ParseError is the payload of the synthetic error message produced for a
// frame that is not valid JSON
type ParseError struct {
	Message  string `json:"message"`
	Err      string `json:"err"`
	Response string `json:"response"`
}

// NewParseErrorMessage wraps a frame that failed to parse into an error message
func NewParseErrorMessage(segment string, err error) Message {
	data, _ := json.Marshal(ParseError{
		Message:  "Invalid JSON response format",
		Err:      err.Error(),
		Response: segment,
	})
	return Message{Type: EventError, Data: data}
}

// --------------------------------------------------------------------------
// Event names
// --------------------------------------------------------------------------

// Lifecycle events emitted by clients and servers. Decoded messages are
// dispatched under their own type, which may collide with these on purpose
// (a peer can send an "error" message).
const (
	EventConnect            = "connect"
	EventDisconnect         = "disconnect"
	EventDestroy            = "destroy"
	EventError              = "error"
	EventData               = "data"
	EventStart              = "start"
	EventClose              = "close"
	EventSocketDisconnected = "socket.disconnected"
)

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrMissingPath is returned when neither a socket path nor a host was supplied
	ErrMissingPath = errors.New("no socket path or host specified")
	// ErrMissingID is returned when a client is requested without an id
	ErrMissingID = errors.New("no service id specified")
	// ErrBufferOverflow is reported when a peer sends more than MaxBufferSize bytes without a delimiter
	ErrBufferOverflow = errors.New("receive buffer exceeded without frame delimiter")
	// ErrBroadcastUnsupported is returned by transports without a set of connected peers
	ErrBroadcastUnsupported = errors.New("broadcast not supported for datagram transport")
	// ErrNotConnected is reported when writing on a client without an open connection
	ErrNotConnected = errors.New("client is not connected")
	// ErrServerClosed is returned when operating on a stopped server
	ErrServerClosed = errors.New("server closed")
	// ErrInvalidPeer is returned when a server is asked to write to a peer of another server
	ErrInvalidPeer = errors.New("peer does not belong to this server")
)
