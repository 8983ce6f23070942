package tls

import (
	"context"
	stdtls "crypto/tls"
	"fmt"
	"net"
	"strconv"

	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/ValentinKolb/dIPC/ipc/transport/tcp"
)

// --------------------------------------------------------------------------
// Client
// --------------------------------------------------------------------------

// ClientConnector dials TLS secured TCP connections
type ClientConnector struct {
	host   string
	port   int
	config *common.Config
}

// NewClientConnector creates a connector for host:port using the TLS settings
// and local binding hints of config
func NewClientConnector(host string, port int, config *common.Config) *ClientConnector {
	return &ClientConnector{host: host, port: port, config: config}
}

func (c *ClientConnector) GetName() string {
	return "tls"
}

// Connect reads the key material, dials and completes the handshake
func (c *ClientConnector) Connect(ctx context.Context) (net.Conn, error) {
	m, err := loadMaterial(c.config.TLS, false)
	if err != nil {
		return nil, err
	}
	if m.devPool {
		Logger.Warningf("Trusting the development certificate for %s, configure trusted connections for production use", c.host)
	}

	tlsConfig := &stdtls.Config{
		RootCAs:    m.pool,
		ServerName: c.host,
		MinVersion: stdtls.VersionTLS12,
	}
	if m.certificate != nil {
		tlsConfig.Certificates = []stdtls.Certificate{*m.certificate}
	}

	dialer := &stdtls.Dialer{
		NetDialer: tcp.Dialer(c.config.Interface),
		Config:    tlsConfig,
	}
	address := net.JoinHostPort(c.host, strconv.Itoa(c.port))
	conn, err := dialer.DialContext(ctx, tcp.Network(c.config.Interface.Family), address)
	if err != nil {
		return nil, err
	}

	if tlsConn, ok := conn.(*stdtls.Conn); ok {
		if err := tcp.UpgradeConnection(tlsConn.NetConn()); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to upgrade connection to %s: %w", address, err)
		}
	}
	return conn, nil
}

// --------------------------------------------------------------------------
// Server
// --------------------------------------------------------------------------

// ServerConnector creates TLS listeners
type ServerConnector struct {
	address string
	config  *common.TLSConfig
}

// NewServerConnector creates a connector listening on host:port
func NewServerConnector(host string, port int, config *common.TLSConfig) *ServerConnector {
	return &ServerConnector{
		address: net.JoinHostPort(host, strconv.Itoa(port)),
		config:  config,
	}
}

func (c *ServerConnector) GetName() string {
	return "tls"
}

// Listen loads the key material and binds the address. Clients presenting a
// certificate are verified against the trusted connections; clients without
// one are accepted.
func (c *ServerConnector) Listen(ctx context.Context) (net.Listener, error) {
	m, err := loadMaterial(c.config, true)
	if err != nil {
		return nil, err
	}
	if m.devCertificate {
		Logger.Warningf("Serving %s with the bundled development certificate, this is INSECURE", c.address)
	}

	tlsConfig := &stdtls.Config{
		Certificates: []stdtls.Certificate{*m.certificate},
		MinVersion:   stdtls.VersionTLS12,
	}
	if !m.devPool {
		tlsConfig.ClientCAs = m.pool
		tlsConfig.ClientAuth = stdtls.VerifyClientCertIfGiven
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", c.address)
	if err != nil {
		return nil, fmt.Errorf("failed to create TLS socket: %w", err)
	}
	return stdtls.NewListener(listener, tlsConfig), nil
}
