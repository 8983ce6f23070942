package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/ValentinKolb/dIPC/ipc/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger(common.LoggerCodec)

// Codec encodes and decodes the wire format of one configuration. It holds no
// per-connection state, so a single Codec may be shared between connections.
type Codec struct {
	delimiter byte
	raw       bool
	encoding  textEncoding
}

// envelope is the framed mode wire object
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// New creates a codec for the framing options of the given configuration.
// An unknown encoding falls back to utf8 (Config.Validate reports it earlier).
func New(config *common.Config) *Codec {
	enc, err := newTextEncoding(config.Encoding)
	if err != nil {
		Logger.Warningf("%v, falling back to utf8", err)
		enc = utf8Encoding{}
	}

	return &Codec{
		delimiter: config.Delimiter,
		raw:       config.RawBuffer,
		encoding:  enc,
	}
}

// Raw reports whether the codec passes data through without framing
func (c *Codec) Raw() bool {
	return c.raw
}

// Delimiter returns the byte terminating every frame
func (c *Codec) Delimiter() byte {
	return c.delimiter
}

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// Encode builds the bytes written to the transport.
//
// In raw mode typeOrRaw is the payload itself and data is ignored. In framed
// mode {type, data} is serialized as JSON followed by the delimiter. Data may be
// any JSON marshallable value, a json.RawMessage is embedded as is.
func (c *Codec) Encode(typeOrRaw string, data any) ([]byte, error) {
	if c.raw {
		return c.encoding.encode(typeOrRaw), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(envelope{Type: typeOrRaw, Data: data}); err != nil {
		return nil, fmt.Errorf("failed to encode message %q: %w", typeOrRaw, err)
	}

	// json.Encoder terminates every value with a newline
	text := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
	if bytes.IndexByte(text, c.delimiter) >= 0 {
		Logger.Warningf("Encoded message %q contains the frame delimiter %q, the peer will split it", typeOrRaw, c.delimiter)
	}

	out := c.encoding.encode(string(text))
	metrics.FramesEncoded.Inc()
	return append(out, c.delimiter), nil
}

// RawBytes converts inbound raw mode data into the bytes handed to the
// application. Transports already deliver bytes, so this only copies them
// out of the read buffer.
func (c *Codec) RawBytes(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	return out
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

// Decode parses all frames in buf.
//
// If the last byte of buf is not the delimiter the buffer is incomplete: Decode
// returns false and the caller keeps accumulating. Otherwise buf is split on
// the delimiter, the trailing empty segment is dropped and every segment is
// parsed on its own. A segment that is not valid JSON yields an "error" message
// carrying the parse failure and the offending text; Decode never fails.
func (c *Codec) Decode(buf []byte) ([]common.Message, bool) {
	if len(buf) == 0 || buf[len(buf)-1] != c.delimiter {
		return nil, false
	}

	segments := bytes.Split(buf[:len(buf)-1], []byte{c.delimiter})
	messages := make([]common.Message, 0, len(segments))
	for _, segment := range segments {
		messages = append(messages, c.parse(segment))
	}
	return messages, true
}

// parse decodes a single segment
func (c *Codec) parse(segment []byte) common.Message {
	text := c.encoding.decode(segment)

	var msg common.Message
	if err := json.Unmarshal([]byte(text), &msg); err != nil {
		metrics.FrameErrors.Inc()
		Logger.Debugf("Failed to parse frame %q: %v", text, err)
		return common.NewParseErrorMessage(text, err)
	}

	metrics.FramesDecoded.Inc()
	return msg
}
