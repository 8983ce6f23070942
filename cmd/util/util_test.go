package util

import (
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapString(t *testing.T) {
	wrapped := WrapString(strings.Repeat("word ", 30))
	for _, line := range strings.Split(wrapped, "\n") {
		assert.LessOrEqual(t, len(line), Wrap)
	}
	assert.Equal(t, "short text", WrapString("  short   text "))
}

func TestParseDelimiter(t *testing.T) {
	tests := map[string]struct {
		in      string
		want    byte
		wantErr bool
	}{
		"empty":     {in: "", want: '\f'},
		"form feed": {in: `\f`, want: '\f'},
		"newline":   {in: `\n`, want: '\n'},
		"hex":       {in: `\x00`, want: 0},
		"plain":     {in: "|", want: '|'},
		"two bytes": {in: "ab", wantErr: true},
		"bad":       {in: `\q`, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseDelimiter(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := &cobra.Command{Use: "test"}
	SetupIPCFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{
		"--id", "world",
		"--retry", "2s",
		"--max-retries", "3",
		"--delimiter", `\n`,
		"--tls",
		"--tls-trusted", "a.pem,b.pem",
		"--port", "9000",
	}))
	require.NoError(t, viper.BindPFlags(cmd.PersistentFlags()))

	config, err := GetConfig()
	require.NoError(t, err)

	assert.Equal(t, "world", config.ID)
	assert.Equal(t, 2*time.Second, config.Retry)
	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, byte('\n'), config.Delimiter)
	assert.Equal(t, 9000, config.NetworkPort)
	require.NotNil(t, config.TLS)
	assert.Equal(t, []string{"a.pem", "b.pem"}, config.TLS.TrustedConnections)
	assert.Equal(t, common.DefaultMaxConnections, config.MaxConnections)

	path, port := GetEndpoint()
	assert.Equal(t, config.NetworkHost, path)
	assert.Equal(t, 9000, port)
}

func TestGetConfigRejectsInvalidEncoding(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := &cobra.Command{Use: "test"}
	SetupIPCFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--encoding", "ebcdic"}))
	require.NoError(t, viper.BindPFlags(cmd.PersistentFlags()))

	_, err := GetConfig()
	assert.Error(t, err)
}
