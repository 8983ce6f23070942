package udp

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// MaxDatagramSize is the largest payload a single UDP datagram can carry
const MaxDatagramSize = 64 * 1024

// ServerConnector binds UDP sockets
type ServerConnector struct {
	network string
	host    string
	port    int
}

// NewServerConnector creates a connector for network ("udp4" or "udp6") on
// host:port. A udp4 socket asked to bind the IPv6 loopback binds 127.0.0.1.
func NewServerConnector(network, host string, port int) (*ServerConnector, error) {
	network = strings.ToLower(network)
	if network != "udp4" && network != "udp6" {
		return nil, fmt.Errorf("invalid datagram network %q (expected udp4 or udp6)", network)
	}
	if network == "udp4" && host == "::1" {
		host = "127.0.0.1"
	}
	return &ServerConnector{network: network, host: host, port: port}, nil
}

func (c *ServerConnector) GetName() string {
	return c.network
}

// Host returns the host the connector binds
func (c *ServerConnector) Host() string {
	return c.host
}

// ListenPacket binds the socket
func (c *ServerConnector) ListenPacket(ctx context.Context) (*net.UDPConn, error) {
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, c.network, net.JoinHostPort(c.host, strconv.Itoa(c.port)))
	if err != nil {
		return nil, fmt.Errorf("failed to create UDP socket: %w", err)
	}
	return conn.(*net.UDPConn), nil
}
