package ipc

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/dIPC/ipc/client"
	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/ValentinKolb/dIPC/ipc/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *common.Config {
	config := common.DefaultConfig()
	config.SocketRoot = t.TempDir() + string(filepath.Separator)
	config.ID = "test"
	config.Retry = 20 * time.Millisecond
	config.Silent = true
	return config
}

func pingPong(srv server.IServer) {
	srv.On("ping", func(ev server.Event) {
		_ = srv.Emit(ev.Peer, "pong", ev.Data)
	})
}

func TestMissingID(t *testing.T) {
	registry := New(testConfig(t))

	_, err := registry.ConnectTo("", "", nil)
	assert.ErrorIs(t, err, common.ErrMissingID)
	_, err = registry.ConnectToNet("", "", 0, nil)
	assert.ErrorIs(t, err, common.ErrMissingID)
}

func TestDefaults(t *testing.T) {
	config := testConfig(t)
	registry := New(config)

	assert.Equal(t, filepath.Join(filepath.Dir(config.SocketRoot), "app.test"), registry.validatePath(""))
	assert.Equal(t, "/other", registry.validatePath("/other"))
	assert.Equal(t, config.NetworkHost, registry.validateHost(""))
	assert.Equal(t, config.NetworkPort, registry.validatePort(0))
	assert.Equal(t, 9000, registry.validatePort(9000))
}

// TestEndToEnd serves on the default path and has a second registry ping it
func TestEndToEnd(t *testing.T) {
	config := testConfig(t)
	world := New(config)
	defer world.Close()

	received := make(chan map[string]int, 1)
	_, err := world.Serve(context.Background(), "", func(srv server.IServer) {
		srv.On("ping", func(ev server.Event) {
			var data map[string]int
			assert.NoError(t, ev.Decode(&data))
			received <- data
			assert.NoError(t, srv.Emit(ev.Peer, "pong", ev.Data))
		})
	})
	require.NoError(t, err)
	require.NotNil(t, world.Server())

	hello := New(config)
	defer hello.Close()

	pong := make(chan map[string]int, 1)
	c, err := hello.ConnectTo("world", "", func(c *client.Client) {
		c.On(common.EventConnect, func(client.Event) {
			assert.NoError(t, c.Emit("ping", map[string]int{"n": 1}))
		})
		c.On("pong", func(ev client.Event) {
			var data map[string]int
			assert.NoError(t, ev.Decode(&data))
			pong <- data
		})
	})
	require.NoError(t, err)

	select {
	case data := <-received:
		assert.Equal(t, map[string]int{"n": 1}, data)
	case <-time.After(3 * time.Second):
		t.Fatal("server received nothing")
	}
	select {
	case data := <-pong:
		assert.Equal(t, map[string]int{"n": 1}, data)
	case <-time.After(3 * time.Second):
		t.Fatal("client received no pong")
	}

	// a connected client is reused
	again, err := hello.ConnectTo("world", "", nil)
	require.NoError(t, err)
	assert.Same(t, c, again)

	of, ok := hello.Of("world")
	assert.True(t, ok)
	assert.Same(t, c, of)

	hello.Disconnect("world")
	_, ok = hello.Of("world")
	assert.False(t, ok)
	assert.Eventually(t, func() bool { return c.State() == client.StateDestroyed }, 3*time.Second, 10*time.Millisecond)
}

func TestConnectReplacesRetryingClient(t *testing.T) {
	registry := New(testConfig(t))
	defer registry.Close()

	first, err := registry.ConnectTo("nobody", filepath.Join(t.TempDir(), "missing.sock"), nil)
	require.NoError(t, err)

	second, err := registry.ConnectTo("nobody", filepath.Join(t.TempDir(), "missing.sock"), nil)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Eventually(t, func() bool { return first.State() == client.StateDestroyed }, 3*time.Second, 10*time.Millisecond)
}

func TestServeNetDatagram(t *testing.T) {
	registry := New(testConfig(t))
	defer registry.Close()

	srv, err := registry.ServeNet(context.Background(), "127.0.0.1", 0, "udp4", pingPong)
	// port 0 falls back to the configured network port; that may be taken
	if err != nil {
		t.Skipf("default network port unavailable: %v", err)
	}
	assert.Equal(t, registry.Config().NetworkPort, srv.Addr().(*net.UDPAddr).Port)
	assert.ErrorIs(t, srv.Broadcast("x", nil), common.ErrBroadcastUnsupported)
}

func TestServeReplacesServer(t *testing.T) {
	registry := New(testConfig(t))
	defer registry.Close()

	first, err := registry.Serve(context.Background(), "", nil)
	require.NoError(t, err)
	second, err := registry.Serve(context.Background(), "", nil)
	require.NoError(t, err)

	select {
	case <-first.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("previous server not stopped")
	}
	assert.Same(t, second, registry.Server())
}

func TestServeFailureKeepsNoServer(t *testing.T) {
	registry := New(testConfig(t))
	defer registry.Close()

	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	srv, err := registry.ServeNet(context.Background(), "127.0.0.1", port, "", nil)
	assert.Error(t, err)
	assert.Nil(t, srv)
	assert.Nil(t, registry.Server())
}
