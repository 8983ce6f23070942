package unix

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"

	"github.com/ValentinKolb/dIPC/ipc/common"
)

// --------------------------------------------------------------------------
// Client
// --------------------------------------------------------------------------

// ClientConnector dials a Unix domain socket
type ClientConnector struct {
	path string
}

// NewClientConnector creates a connector for the socket at path
func NewClientConnector(path string) *ClientConnector {
	return &ClientConnector{path: path}
}

func (c *ClientConnector) GetName() string {
	return "unix"
}

func (c *ClientConnector) Connect(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", c.path)
}

// --------------------------------------------------------------------------
// Server
// --------------------------------------------------------------------------

// ServerConnector creates Unix domain socket listeners
type ServerConnector struct {
	path        string
	unlink      bool
	readableAll bool
	writableAll bool
}

// NewServerConnector creates a connector for the socket at path using the
// unlink and permission settings of config
func NewServerConnector(path string, config *common.Config) *ServerConnector {
	return &ServerConnector{
		path:        path,
		unlink:      config.Unlink,
		readableAll: config.ReadableAll,
		writableAll: config.WritableAll,
	}
}

func (c *ServerConnector) GetName() string {
	return "unix"
}

func (c *ServerConnector) Listen(ctx context.Context) (net.Listener, error) {
	// Remove existing socket file if it exists
	if c.unlink {
		if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to remove existing socket: %w", err)
		}
	}

	// Create Unix socket listener
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "unix", c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to create Unix socket: %w", err)
	}

	if err := c.applyPermissions(); err != nil {
		listener.Close()
		return nil, err
	}

	return listener, nil
}

// applyPermissions opens the socket file to all users if configured
func (c *ServerConnector) applyPermissions() error {
	if !c.readableAll && !c.writableAll {
		return nil
	}

	info, err := os.Stat(c.path)
	if err != nil {
		return fmt.Errorf("failed to stat socket: %w", err)
	}

	mode := info.Mode().Perm()
	if c.readableAll {
		mode |= 0o444
	}
	if c.writableAll {
		mode |= 0o222
	}

	if err := os.Chmod(c.path, mode); err != nil {
		return fmt.Errorf("failed to change socket permissions: %w", err)
	}
	return nil
}
