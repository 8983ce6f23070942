package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()

	assert.Equal(t, "utf8", c.Encoding)
	assert.Equal(t, byte('\f'), c.Delimiter)
	assert.Equal(t, UnlimitedRetries, c.MaxRetries)
	assert.Equal(t, DefaultRetry, c.Retry)
	assert.True(t, c.Unlink)
	assert.NotEmpty(t, c.ID)
	assert.Contains(t, []string{"127.0.0.1", "::1"}, c.NetworkHost)
	require.NoError(t, c.Validate())
}

func TestDefaultPath(t *testing.T) {
	c := DefaultConfig()
	c.ID = "world"
	assert.Equal(t, "/tmp/app.world", c.DefaultPath())
}

func TestValidate(t *testing.T) {
	tests := map[string]func(c *Config){
		"encoding":  func(c *Config) { c.Encoding = "utf16le" },
		"delimiter": func(c *Config) { c.Delimiter = 0xff },
		"retry":     func(c *Config) { c.Retry = -1 },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := DefaultConfig()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestConfigString(t *testing.T) {
	c := DefaultConfig()
	c.TLS = &TLSConfig{}
	s := c.String()

	assert.True(t, strings.Contains(s, "FRAMING"))
	assert.Contains(t, s, "unlimited")
	assert.Contains(t, s, "INSECURE")
}

func TestServerPath(t *testing.T) {
	assert.Equal(t, "/tmp/app.sock", ServerPath("/tmp/app.sock", 0))
	assert.Equal(t, "127.0.0.1:8000", ServerPath("127.0.0.1", 8000))
	assert.Equal(t, "[::1]:8000", ServerPath("::1", 8000))
}

func TestMessageHelpers(t *testing.T) {
	msg := Message{Type: "hello", Data: []byte(`{"id":"client-1","n":2}`)}
	assert.Equal(t, "client-1", msg.ID())

	var payload struct{ N int }
	require.NoError(t, msg.Decode(&payload))
	assert.Equal(t, 2, payload.N)

	assert.Empty(t, Message{Type: "x", Data: []byte(`"plain"`)}.ID())
	assert.Error(t, Message{Type: "x"}.Decode(&payload))
}

func TestParseLogLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error", ""} {
		_, err := ParseLogLevel(level)
		assert.NoError(t, err, level)
	}
	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)
}
