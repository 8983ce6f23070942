package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables read by the CLI
	EnvPrefix = "dipc"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupIPCFlags adds the flags of all configuration values to a command
func SetupIPCFlags(cmd *cobra.Command) {
	defaults := common.DefaultConfig()
	flags := cmd.PersistentFlags()

	// addressing
	key := "socket-root"
	flags.String(key, defaults.SocketRoot, WrapString("Directory in which local sockets are created"))
	key = "app-space"
	flags.String(key, defaults.AppSpace, WrapString("Prefix of local socket names, the default socket path is socket-root + app-space + id"))
	key = "id"
	flags.String(key, defaults.ID, WrapString("Identifier of this process (defaults to the hostname)"))
	key = "path"
	flags.String(key, "", WrapString("Path of the local socket (defaults to socket-root + app-space + id). Ignored if a port is set"))
	key = "host"
	flags.String(key, defaults.NetworkHost, WrapString("Network host to bind or connect to"))
	key = "port"
	flags.Int(key, 0, WrapString("Network port. 0 selects the local socket given by path"))

	// framing
	key = "encoding"
	flags.String(key, defaults.Encoding, WrapString("Text encoding of the wire data (utf8, ascii, latin1)"))
	key = "delimiter"
	flags.String(key, `\f`, WrapString("Frame delimiter, a single character or escape sequence (e.g. \\f, \\n, \\x00)"))
	key = "raw-buffer"
	flags.Bool(key, defaults.RawBuffer, WrapString("Exchange raw bytes without JSON envelope and delimiter"))
	key = "sync"
	flags.Bool(key, defaults.Sync, WrapString("Send the next message of a client only after the reply to the previous one arrived"))
	key = "max-buffer-size"
	flags.Int(key, defaults.MaxBufferSize, WrapString("Maximum number of bytes buffered for an unterminated frame before the connection is closed (0 = unbounded)"))

	// connections
	key = "max-connections"
	flags.Int(key, defaults.MaxConnections, WrapString("Maximum number of concurrent sessions of a stream server"))
	key = "retry"
	flags.Duration(key, defaults.Retry, WrapString("Delay before a client reconnects"))
	key = "max-retries"
	flags.Int(key, defaults.MaxRetries, WrapString("Number of reconnection attempts of a client (-1 = unlimited)"))
	key = "stop-retrying"
	flags.Bool(key, defaults.StopRetrying, WrapString("Never reconnect after a connection ended"))

	// unix socket
	key = "unlink"
	flags.Bool(key, defaults.Unlink, WrapString("Remove a stale socket file before binding"))
	key = "readable-all"
	flags.Bool(key, defaults.ReadableAll, WrapString("Make the socket file readable by all users"))
	key = "writable-all"
	flags.Bool(key, defaults.WritableAll, WrapString("Make the socket file writable by all users"))

	// tls
	key = "tls"
	flags.Bool(key, false, WrapString("Use TLS for network connections. Without key material the bundled INSECURE development certificate is used"))
	key = "tls-private"
	flags.String(key, "", WrapString("Path of the PEM encoded private key"))
	key = "tls-public"
	flags.String(key, "", WrapString("Path of the PEM encoded certificate"))
	key = "tls-trusted"
	flags.String(key, "", WrapString("Comma-separated list of PEM encoded CA certificates to trust"))
	key = "tls-dhparam"
	flags.String(key, "", WrapString("Path of Diffie-Hellman parameters (accepted but unused, Go negotiates ECDHE)"))

	// local interface
	key = "local-address"
	flags.String(key, "", WrapString("Local address outgoing network connections bind to"))
	key = "local-port"
	flags.Int(key, 0, WrapString("Local port outgoing network connections bind to"))
	key = "family"
	flags.Int(key, 0, WrapString("IP family used to resolve hosts (0 = any, 4 or 6)"))

	// logging
	key = "log-level"
	flags.String(key, defaults.LogLevel, WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
	key = "silent"
	flags.Bool(key, defaults.Silent, WrapString("Suppress all log output"))
}

// InitConfig loads .env files and configures viper to read environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetConfig reads the configuration from viper
func GetConfig() (*common.Config, error) {
	config := common.DefaultConfig()

	delimiter, err := ParseDelimiter(viper.GetString("delimiter"))
	if err != nil {
		return nil, err
	}

	config.SocketRoot = viper.GetString("socket-root")
	config.AppSpace = viper.GetString("app-space")
	config.ID = viper.GetString("id")
	config.Encoding = viper.GetString("encoding")
	config.Delimiter = delimiter
	config.RawBuffer = viper.GetBool("raw-buffer")
	config.Sync = viper.GetBool("sync")
	config.MaxBufferSize = viper.GetInt("max-buffer-size")
	config.MaxConnections = viper.GetInt("max-connections")
	config.Retry = viper.GetDuration("retry")
	config.MaxRetries = viper.GetInt("max-retries")
	config.StopRetrying = viper.GetBool("stop-retrying")
	config.Unlink = viper.GetBool("unlink")
	config.ReadableAll = viper.GetBool("readable-all")
	config.WritableAll = viper.GetBool("writable-all")
	config.NetworkHost = viper.GetString("host")
	config.NetworkPort = orDefault(viper.GetInt("port"), config.NetworkPort)
	config.Interface = common.InterfaceConfig{
		LocalAddress: viper.GetString("local-address"),
		LocalPort:    viper.GetInt("local-port"),
		Family:       viper.GetInt("family"),
	}
	config.LogLevel = viper.GetString("log-level")
	config.Silent = viper.GetBool("silent")

	if viper.GetBool("tls") {
		config.TLS = &common.TLSConfig{
			Private: viper.GetString("tls-private"),
			Public:  viper.GetString("tls-public"),
			DHParam: viper.GetString("tls-dhparam"),
		}
		if trusted := viper.GetString("tls-trusted"); trusted != "" {
			config.TLS.TrustedConnections = strings.Split(trusted, ",")
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// GetEndpoint returns the path and port the command should use. A port of 0
// means the local socket at path (possibly empty for the default path).
func GetEndpoint() (path string, port int) {
	if port = viper.GetInt("port"); port != 0 {
		return viper.GetString("host"), port
	}
	return viper.GetString("path"), 0
}

// ParseDelimiter converts a delimiter flag into a single byte. Escape
// sequences as in Go string literals are accepted.
func ParseDelimiter(s string) (byte, error) {
	if s == "" {
		return common.DefaultDelimiter, nil
	}

	unquoted, err := strconv.Unquote(`"` + s + `"`)
	if err != nil {
		return 0, fmt.Errorf("invalid delimiter %q: %w", s, err)
	}
	if len(unquoted) != 1 {
		return 0, fmt.Errorf("invalid delimiter %q: must be exactly one byte", s)
	}
	return unquoted[0], nil
}

// WaitTimeout returns the duration flag key, or fallback if unset
func WaitTimeout(key string, fallback time.Duration) time.Duration {
	if d := viper.GetDuration(key); d > 0 {
		return d
	}
	return fallback
}

func orDefault(value, fallback int) int {
	if value == 0 {
		return fallback
	}
	return value
}
