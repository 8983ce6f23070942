package serve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/dIPC/ipc/client"
	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/ValentinKolb/dIPC/ipc/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) (*server.StreamServer, *common.Config, string) {
	t.Helper()

	config := common.DefaultConfig()
	config.Silent = true
	path := filepath.Join(t.TempDir(), "serve.sock")

	srv := server.NewStreamServer(config, path, 0)
	registerHandlers(srv)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Stop() })
	return srv, config, path
}

func TestHandlers(t *testing.T) {
	_, config, path := startServer(t)

	c := client.New(config, "serve", path, 0)
	received := make(chan client.Event, 4)
	c.On("pong", func(ev client.Event) { received <- ev })
	c.On("custom", func(ev client.Event) { received <- ev })
	c.On("broadcast", func(ev client.Event) { received <- ev })
	c.On(common.EventConnect, func(client.Event) {
		assert.NoError(t, c.Emit("ping", map[string]string{"id": "1"}))
		assert.NoError(t, c.Emit("custom", "echo me"))
		assert.NoError(t, c.Emit("broadcast", "to all"))
	})
	c.Connect()
	defer c.Disconnect()

	got := map[string]string{}
	for len(got) < 3 {
		select {
		case ev := <-received:
			got[ev.Name] = string(ev.Data)
		case <-time.After(3 * time.Second):
			t.Fatalf("only received %v", got)
		}
	}

	assert.JSONEq(t, `{"id":"1"}`, got["pong"])
	assert.JSONEq(t, `"echo me"`, got["custom"])
	assert.JSONEq(t, `"to all"`, got["broadcast"])
}

func TestRouter(t *testing.T) {
	srv, _, _ := startServer(t)
	r := newRouter(srv)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dipc_frames_encoded_total")

	require.NoError(t, srv.Stop())
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
