package codec

import (
	"encoding/json"
	"testing"

	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfigs is a map of configuration name to factory function
var testConfigs = map[string]func() *common.Config{
	"utf8": common.DefaultConfig,
	"latin1": func() *common.Config {
		c := common.DefaultConfig()
		c.Encoding = "latin1"
		return c
	},
	"newline": func() *common.Config {
		c := common.DefaultConfig()
		c.Delimiter = '\n'
		return c
	},
}

// testPayloads returns payloads whose serialized form does not contain the delimiter
func testPayloads() map[string]any {
	return map[string]any{
		"nil":     nil,
		"number":  float64(42),
		"string":  "hello world",
		"control": "form\ffeed and new\nline",
		"object":  map[string]any{"n": float64(1), "nested": map[string]any{"ok": true}},
		"array":   []any{"a", float64(2), false},
		"html":    "<b>&</b>",
		"umlauts": "grüße",
	}
}

// TestRoundTrip checks decode(encode(type, P)) == [{type, P}]
func TestRoundTrip(t *testing.T) {
	for name, factory := range testConfigs {
		t.Run(name, func(t *testing.T) {
			c := New(factory())

			for payloadName, payload := range testPayloads() {
				data, err := c.Encode("event", payload)
				require.NoError(t, err, payloadName)
				assert.Equal(t, c.Delimiter(), data[len(data)-1])

				messages, ok := c.Decode(data)
				require.True(t, ok, payloadName)
				require.Len(t, messages, 1, payloadName)
				assert.Equal(t, "event", messages[0].Type)

				if payload == nil {
					assert.Empty(t, messages[0].Data, payloadName)
					continue
				}

				var got any
				require.NoError(t, messages[0].Decode(&got), payloadName)
				assert.Equal(t, payload, got, payloadName)
			}
		})
	}
}

func TestEncodeFramedFormat(t *testing.T) {
	c := New(common.DefaultConfig())

	data, err := c.Encode("ping", map[string]int{"n": 1})
	require.NoError(t, err)
	assert.Equal(t, "{\"type\":\"ping\",\"data\":{\"n\":1}}\f", string(data))

	data, err = c.Encode("ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "{\"type\":\"ping\"}\f", string(data))

	data, err = c.Encode("raw", json.RawMessage(`[1,2]`))
	require.NoError(t, err)
	assert.Equal(t, "{\"type\":\"raw\",\"data\":[1,2]}\f", string(data))
}

func TestEncodeUnsupportedValue(t *testing.T) {
	c := New(common.DefaultConfig())
	_, err := c.Encode("bad", make(chan int))
	assert.Error(t, err)
}

func TestEncodeRaw(t *testing.T) {
	config := common.DefaultConfig()
	config.RawBuffer = true
	c := New(config)

	data, err := c.Encode("plain text", map[string]int{"ignored": 1})
	require.NoError(t, err)
	assert.Equal(t, []byte("plain text"), data)

	config.Encoding = "latin1"
	data, err = New(config).Encode("grüße", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{'g', 'r', 0xfc, 0xdf, 'e'}, data)

	config.Encoding = "ascii"
	data, err = New(config).Encode("grüße", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("gr??e"), data)
}

func TestDecodeIncomplete(t *testing.T) {
	c := New(common.DefaultConfig())

	for _, buf := range []string{"", "{\"type\":\"a\"}", "{\"type\":\"a\"}\f{\"type\":\"b\""} {
		messages, ok := c.Decode([]byte(buf))
		assert.False(t, ok, buf)
		assert.Nil(t, messages, buf)
	}
}

func TestDecodeMultipleFrames(t *testing.T) {
	c := New(common.DefaultConfig())

	messages, ok := c.Decode([]byte("{\"type\":\"a\",\"data\":1}\f{\"type\":\"b\",\"data\":2}\f{\"type\":\"c\"}\f"))
	require.True(t, ok)
	require.Len(t, messages, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{messages[0].Type, messages[1].Type, messages[2].Type})
}

func TestDecodeParseError(t *testing.T) {
	c := New(common.DefaultConfig())

	messages, ok := c.Decode([]byte("{\"type\":\"a\"}\fnot json\f{\"type\":\"b\"}\f"))
	require.True(t, ok)
	require.Len(t, messages, 3)

	assert.Equal(t, "a", messages[0].Type)
	assert.Equal(t, common.EventError, messages[1].Type)
	assert.Equal(t, "b", messages[2].Type)

	var parseErr common.ParseError
	require.NoError(t, messages[1].Decode(&parseErr))
	assert.Equal(t, "Invalid JSON response format", parseErr.Message)
	assert.Equal(t, "not json", parseErr.Response)
	assert.NotEmpty(t, parseErr.Err)
}

// TestFrameBufferSplits feeds an encoded stream split at every possible pair
// of byte boundaries and checks each frame is delivered once, in order
func TestFrameBufferSplits(t *testing.T) {
	c := New(common.DefaultConfig())

	var stream []byte
	for _, typ := range []string{"first", "second", "third"} {
		data, err := c.Encode(typ, map[string]string{"v": typ})
		require.NoError(t, err)
		stream = append(stream, data...)
	}

	for i := 1; i < len(stream); i++ {
		for j := i; j < len(stream); j++ {
			buf := NewFrameBuffer(c, 0)
			var got []string

			for _, chunk := range [][]byte{stream[:i], stream[i:j], stream[j:]} {
				messages, ok, err := buf.Feed(chunk)
				require.NoError(t, err)
				if !ok {
					assert.Nil(t, messages)
					continue
				}
				for _, msg := range messages {
					got = append(got, msg.Type)
				}
			}

			require.Equal(t, []string{"first", "second", "third"}, got, "split at %d/%d", i, j)
			assert.Equal(t, 0, buf.Len())
		}
	}
}

func TestFrameBufferOverflow(t *testing.T) {
	c := New(common.DefaultConfig())
	buf := NewFrameBuffer(c, 8)

	_, ok, err := buf.Feed([]byte("{\"type\""))
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = buf.Feed([]byte(":\"too long\""))
	assert.ErrorIs(t, err, common.ErrBufferOverflow)
	assert.False(t, ok)
	assert.Equal(t, 0, buf.Len())

	messages, ok, err := buf.Feed([]byte("{}\f"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, messages, 1)
}
