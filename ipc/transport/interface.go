package transport

import (
	"context"
	"net"

	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/ValentinKolb/dIPC/ipc/transport/tcp"
	"github.com/ValentinKolb/dIPC/ipc/transport/tls"
	"github.com/ValentinKolb/dIPC/ipc/transport/unix"
)

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IClientConnector opens one outbound stream connection
type IClientConnector interface {
	// Connect dials the endpoint the connector was created for. For secured
	// transports the handshake is complete when Connect returns.
	Connect(ctx context.Context) (net.Conn, error)
	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// NewClientConnector selects the transport for a client: no port means a
// local socket at path, a port without TLS settings plain TCP to path:port,
// and a port with TLS settings TLS to path:port.
func NewClientConnector(config *common.Config, path string, port int) IClientConnector {
	switch {
	case port == 0:
		return unix.NewClientConnector(path)
	case config.TLS == nil:
		return tcp.NewClientConnector(path, port, config.Interface)
	default:
		return tls.NewClientConnector(path, port, config)
	}
}

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// IServerConnector creates the listener of a stream server
type IServerConnector interface {
	// Listen binds the endpoint the connector was created for
	Listen(ctx context.Context) (net.Listener, error)
	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// NewServerConnector selects the transport for a stream server using the same
// rules as NewClientConnector
func NewServerConnector(config *common.Config, path string, port int) IServerConnector {
	switch {
	case port == 0:
		return unix.NewServerConnector(path, config)
	case config.TLS == nil:
		return tcp.NewServerConnector(path, port)
	default:
		return tls.NewServerConnector(path, port, config.TLS)
	}
}
