package common

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	// UnlimitedRetries disables the retry budget of a client connection
	UnlimitedRetries = -1

	DefaultSocketRoot     = "/tmp/"
	DefaultAppSpace       = "app."
	DefaultEncoding       = "utf8"
	DefaultDelimiter      = '\f'
	DefaultMaxConnections = 100
	DefaultRetry          = 500 * time.Millisecond
	DefaultNetworkPort    = 8000
	DefaultMaxBufferSize  = 1024 * 1024 // 1 MiB
	DefaultLogLevel       = "info"
)

// --------------------------------------------------------------------------
// Configuration structs
// --------------------------------------------------------------------------

// TLSConfig references the key material used by the TLS transport.
// All values are file paths, read when a connection is opened or a server is bound.
type TLSConfig struct {
	// Private is the PEM encoded private key
	Private string
	// Public is the PEM encoded certificate
	Public string
	// TrustedConnections lists PEM encoded CA certificates
	TrustedConnections []string
	// DHParam is accepted for compatibility, Go's TLS stack negotiates ECDHE only
	DHParam string
}

// InterfaceConfig holds the local binding hints for outgoing network connections
type InterfaceConfig struct {
	LocalAddress string
	LocalPort    int
	// Family restricts name resolution: 0 (any), 4 or 6
	Family int
}

// Config holds all tunables of the IPC system. A single value is passed by
// pointer into every client and server; components never modify it.
type Config struct {
	// addressing
	SocketRoot string
	AppSpace   string
	ID         string

	// framing
	Encoding      string
	Delimiter     byte
	RawBuffer     bool
	Sync          bool
	MaxBufferSize int

	// unix socket artifacts
	Unlink      bool
	ReadableAll bool
	WritableAll bool

	// connection handling
	MaxConnections int
	Retry          time.Duration
	MaxRetries     int
	StopRetrying   bool

	// network
	TLS         *TLSConfig
	NetworkHost string
	NetworkPort int
	Interface   InterfaceConfig

	// logging
	LogLevel string
	Silent   bool
}

// DefaultConfig returns a new configuration populated with the default values
func DefaultConfig() *Config {
	id, err := os.Hostname()
	if err != nil || id == "" {
		id = "dipc"
	}

	return &Config{
		SocketRoot:     DefaultSocketRoot,
		AppSpace:       DefaultAppSpace,
		ID:             id,
		Encoding:       DefaultEncoding,
		Delimiter:      DefaultDelimiter,
		MaxBufferSize:  DefaultMaxBufferSize,
		Unlink:         true,
		MaxConnections: DefaultMaxConnections,
		Retry:          DefaultRetry,
		MaxRetries:     UnlimitedRetries,
		NetworkHost:    defaultNetworkHost(),
		NetworkPort:    DefaultNetworkPort,
		LogLevel:       DefaultLogLevel,
	}
}

// defaultNetworkHost picks the loopback address matching the address family of
// the first configured interface address
func defaultNetworkHost() string {
	addrs, err := net.InterfaceAddrs()
	if err == nil && len(addrs) > 0 {
		if ipNet, ok := addrs[0].(*net.IPNet); ok && ipNet.IP.To4() == nil {
			return "::1"
		}
	}
	return "127.0.0.1"
}

// Validate checks the configuration for values no component can work with
func (c *Config) Validate() error {
	switch strings.ToLower(c.Encoding) {
	case "utf8", "utf-8", "ascii", "latin1", "binary":
	default:
		return fmt.Errorf("unsupported encoding %q (expected one of utf8, ascii, latin1)", c.Encoding)
	}
	if c.Delimiter >= 0x80 {
		return fmt.Errorf("delimiter %#x is not a single-byte character in every supported encoding", c.Delimiter)
	}
	if c.Retry < 0 {
		return fmt.Errorf("retry interval must not be negative")
	}
	return nil
}

// DefaultPath returns the socket path used when a caller does not name one
func (c *Config) DefaultPath() string {
	return c.SocketRoot + c.AppSpace + c.ID
}

// String returns a formatted string representation of the configuration
func (c *Config) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Identity")
	addField("ID", c.ID)
	addField("Socket Root", c.SocketRoot)
	addField("App Space", c.AppSpace)

	addSection("Framing")
	addField("Encoding", c.Encoding)
	addField("Delimiter", fmt.Sprintf("%q", c.Delimiter))
	addField("Raw Buffer", fmt.Sprintf("%t", c.RawBuffer))
	addField("Sync", fmt.Sprintf("%t", c.Sync))
	addField("Max Buffer Size", fmt.Sprintf("%d bytes", c.MaxBufferSize))

	addSection("Connections")
	addField("Max Connections", fmt.Sprintf("%d", c.MaxConnections))
	addField("Retry", c.Retry.String())
	if c.MaxRetries == UnlimitedRetries {
		addField("Max Retries", "unlimited")
	} else {
		addField("Max Retries", fmt.Sprintf("%d", c.MaxRetries))
	}
	addField("Stop Retrying", fmt.Sprintf("%t", c.StopRetrying))

	addSection("Network")
	addField("Host", c.NetworkHost)
	addField("Port", fmt.Sprintf("%d", c.NetworkPort))
	if c.TLS != nil {
		addField("TLS Key", orDefault(c.TLS.Private, "development key (INSECURE)"))
		addField("TLS Certificate", orDefault(c.TLS.Public, "development certificate (INSECURE)"))
		addField("TLS Trusted", orDefault(strings.Join(c.TLS.TrustedConnections, ","), "-"))
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)
	addField("Silent", fmt.Sprintf("%t", c.Silent))

	return sb.String()
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// ServerPath formats a path or host with an optional port for log output
func ServerPath(host string, port int) string {
	if port == 0 {
		return host
	}
	return net.JoinHostPort(host, fmt.Sprintf("%d", port))
}
