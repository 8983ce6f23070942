package tcp

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/ValentinKolb/dIPC/ipc/common"
)

const (
	defaultKeepAlive = 30 * time.Second
)

// Network returns the dial network for the address family hint (0, 4 or 6)
func Network(family int) string {
	switch family {
	case 4:
		return "tcp4"
	case 6:
		return "tcp6"
	default:
		return "tcp"
	}
}

// Dialer builds a net.Dialer honouring the local binding hints of iface
func Dialer(iface common.InterfaceConfig) *net.Dialer {
	d := &net.Dialer{KeepAlive: defaultKeepAlive}
	if iface.LocalAddress != "" || iface.LocalPort != 0 {
		d.LocalAddr = &net.TCPAddr{
			IP:   net.ParseIP(iface.LocalAddress),
			Port: iface.LocalPort,
		}
	}
	return d
}

// UpgradeConnection applies the socket options used for all TCP connections
func UpgradeConnection(conn net.Conn) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil // Not a TCP connection, nothing to upgrade
	}

	// Frames are small and latency matters more than throughput
	if err := tcpConn.SetNoDelay(true); err != nil {
		return err
	}
	if err := tcpConn.SetKeepAlive(true); err != nil {
		return err
	}
	return tcpConn.SetKeepAlivePeriod(defaultKeepAlive)
}

// --------------------------------------------------------------------------
// Client
// --------------------------------------------------------------------------

// ClientConnector dials plain TCP connections
type ClientConnector struct {
	address string
	iface   common.InterfaceConfig
}

// NewClientConnector creates a connector for host:port
func NewClientConnector(host string, port int, iface common.InterfaceConfig) *ClientConnector {
	return &ClientConnector{
		address: net.JoinHostPort(host, strconv.Itoa(port)),
		iface:   iface,
	}
}

func (c *ClientConnector) GetName() string {
	return "tcp"
}

func (c *ClientConnector) Connect(ctx context.Context) (net.Conn, error) {
	conn, err := Dialer(c.iface).DialContext(ctx, Network(c.iface.Family), c.address)
	if err != nil {
		return nil, err
	}

	if err := UpgradeConnection(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to upgrade connection to %s: %w", c.address, err)
	}
	return conn, nil
}

// --------------------------------------------------------------------------
// Server
// --------------------------------------------------------------------------

// ServerConnector creates TCP listeners
type ServerConnector struct {
	address string
}

// NewServerConnector creates a connector listening on host:port
func NewServerConnector(host string, port int) *ServerConnector {
	return &ServerConnector{address: net.JoinHostPort(host, strconv.Itoa(port))}
}

func (c *ServerConnector) GetName() string {
	return "tcp"
}

func (c *ServerConnector) Listen(ctx context.Context) (net.Listener, error) {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", c.address)
	if err != nil {
		return nil, fmt.Errorf("failed to create TCP socket: %w", err)
	}
	return listener, nil
}
