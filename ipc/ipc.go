package ipc

import (
	"context"
	"sync"

	"github.com/ValentinKolb/dIPC/ipc/client"
	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/ValentinKolb/dIPC/ipc/server"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger(common.LoggerIPC)

// IPC keeps the clients of a process by service id and at most one server.
// It fills in addresses the caller leaves out from its configuration.
type IPC struct {
	config *common.Config
	of     *xsync.MapOf[string, *client.Client]

	mu     sync.Mutex
	server server.IServer
}

// New creates a registry using config, or the defaults if config is nil. It
// also applies the log level of config to all loggers of the module.
func New(config *common.Config) *IPC {
	if config == nil {
		config = common.DefaultConfig()
	}
	if err := common.InitLoggers(config); err != nil {
		Logger.Warningf("Failed to apply log level: %v", err)
	}

	return &IPC{
		config: config,
		of:     xsync.NewMapOf[string, *client.Client](),
	}
}

// Config returns the configuration shared by all clients and servers of the registry
func (i *IPC) Config() *common.Config {
	return i.config
}

// --------------------------------------------------------------------------
// Clients
// --------------------------------------------------------------------------

// ConnectTo connects to the local socket service id at path. An empty path
// defaults to SocketRoot+AppSpace+ID. setup, if not nil, is called before the
// connection is opened and is the place to subscribe handlers.
//
// If a connected client for id exists it is returned instead and setup is
// not called.
func (i *IPC) ConnectTo(id, path string, setup func(*client.Client)) (*client.Client, error) {
	if err := i.validateID(id); err != nil {
		return nil, err
	}
	return i.setupClient(id, i.validatePath(path), 0, setup), nil
}

// ConnectToNet connects to the network service id at host:port. An empty
// host or a zero port default to NetworkHost and NetworkPort. The transport is
// TLS if the configuration holds TLS settings, TCP otherwise.
func (i *IPC) ConnectToNet(id, host string, port int, setup func(*client.Client)) (*client.Client, error) {
	if err := i.validateID(id); err != nil {
		return nil, err
	}
	return i.setupClient(id, i.validateHost(host), i.validatePort(port), setup), nil
}

// Of returns the client registered for id
func (i *IPC) Of(id string) (*client.Client, bool) {
	return i.of.Load(id)
}

// Disconnect disconnects the client for id and removes it from the registry
func (i *IPC) Disconnect(id string) {
	if c, ok := i.of.LoadAndDelete(id); ok {
		c.Disconnect()
	}
}

// --------------------------------------------------------------------------
// Server
// --------------------------------------------------------------------------

// Serve starts a stream server on the local socket at path (default
// SocketRoot+AppSpace+ID). setup, if not nil, is called before the server
// binds. A server started earlier by the registry is stopped first.
func (i *IPC) Serve(ctx context.Context, path string, setup func(server.IServer)) (server.IServer, error) {
	srv := server.NewStreamServer(i.config, i.validatePath(path), 0)
	return i.setupServer(ctx, srv, setup)
}

// ServeNet starts a network server on host:port (defaults NetworkHost and
// NetworkPort). network selects the variant: "udp4" or "udp6" for a
// datagram server, anything else for a TCP or TLS stream server.
func (i *IPC) ServeNet(ctx context.Context, host string, port int, network string, setup func(server.IServer)) (server.IServer, error) {
	srv, err := server.New(i.config, i.validateHost(host), i.validatePort(port), network)
	if err != nil {
		return nil, err
	}
	return i.setupServer(ctx, srv, setup)
}

// Server returns the server of the registry, nil if none was started
func (i *IPC) Server() server.IServer {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.server
}

// Close stops the server and disconnects every client
func (i *IPC) Close() error {
	i.of.Range(func(id string, _ *client.Client) bool {
		i.Disconnect(id)
		return true
	})

	i.mu.Lock()
	srv := i.server
	i.server = nil
	i.mu.Unlock()

	if srv != nil {
		return srv.Stop()
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (i *IPC) setupClient(id, path string, port int, setup func(*client.Client)) *client.Client {
	if existing, ok := i.of.Load(id); ok {
		if existing.IsConnected() {
			Logger.Infof("Already connected to %s, so executing success without connection", id)
			return existing
		}
		// a client still retrying would otherwise keep running unreferenced
		existing.Disconnect()
	}

	c := client.New(i.config, id, path, port)
	if setup != nil {
		setup(c)
	}
	i.of.Store(id, c)
	return c.Connect()
}

func (i *IPC) setupServer(ctx context.Context, srv server.IServer, setup func(server.IServer)) (server.IServer, error) {
	if setup != nil {
		setup(srv)
	}

	i.mu.Lock()
	previous := i.server
	i.server = nil
	i.mu.Unlock()

	if previous != nil {
		Logger.Infof("Replacing running server")
		_ = previous.Stop()
	}

	if err := srv.Start(ctx); err != nil {
		return nil, err
	}

	i.mu.Lock()
	i.server = srv
	i.mu.Unlock()
	return srv, nil
}

func (i *IPC) validateID(id string) error {
	if id == "" {
		Logger.Errorf("Requested service connection without specifying service id, aborting connection attempt")
		return common.ErrMissingID
	}
	return nil
}

func (i *IPC) validatePath(path string) string {
	if path == "" {
		path = i.config.DefaultPath()
		Logger.Infof("Service path not specified, so defaulting to socketRoot + appspace + id: %s", path)
	}
	return path
}

func (i *IPC) validateHost(host string) string {
	if host == "" {
		host = i.config.NetworkHost
		Logger.Infof("Server host not specified, so defaulting to the configured network host: %s", host)
	}
	return host
}

func (i *IPC) validatePort(port int) int {
	if port == 0 {
		port = i.config.NetworkPort
		Logger.Infof("Server port not specified, so defaulting to the configured network port: %d", port)
	}
	return port
}
