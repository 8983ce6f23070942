package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cmdUtil "github.com/ValentinKolb/dIPC/cmd/util"
	"github.com/ValentinKolb/dIPC/ipc"
	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/ValentinKolb/dIPC/ipc/metrics"
	"github.com/ValentinKolb/dIPC/ipc/server"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var Logger = logger.GetLogger(common.LoggerCLI)

var (
	serveCmdConfig *common.Config
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start a dIPC server",
		Long: `Start a dIPC server with the specified configuration. The server answers "ping" with "pong", relays "broadcast" messages to every connected session and echoes all other messages back to their sender.

The configuration can be set via command line flags or environment variables. The format of the environment variables is DIPC_<flag> (e.g. DIPC_MAX_CONNECTIONS=10)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	cmdUtil.SetupIPCFlags(ServeCmd)

	key := "network"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Server variant for network endpoints: empty for TCP/TLS streams, udp4 or udp6 for datagrams"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address of the HTTP endpoint exposing metrics and health (e.g. localhost:9100). Empty disables it"))
}

// processConfig reads the configuration from the command line flags and environment variables
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	config, err := cmdUtil.GetConfig()
	if err != nil {
		return err
	}
	serveCmdConfig = config
	return nil
}

// run starts the server and, if configured, the metrics endpoint
func run(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := ipc.New(serveCmdConfig)
	Logger.Infof("Created dIPC server")
	Logger.Infof(serveCmdConfig.String())

	path, port := cmdUtil.GetEndpoint()

	var srv server.IServer
	var err error
	if port == 0 {
		srv, err = registry.Serve(ctx, path, registerHandlers)
	} else {
		srv, err = registry.ServeNet(ctx, viper.GetString("host"), port, viper.GetString("network"), registerHandlers)
	}
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, child := errgroup.WithContext(ctx)

	group.Go(func() error {
		select {
		case <-srv.Done():
		case <-child.Done():
		}
		// the metrics endpoint must not outlive the server
		cancel()
		return registry.Close()
	})

	if endpoint := viper.GetString("metrics-endpoint"); endpoint != "" {
		group.Go(func() error {
			return serveMetrics(child, endpoint, srv)
		})
	}

	return group.Wait()
}

// registerHandlers installs the behavior of the server
func registerHandlers(srv server.IServer) {
	srv.On(common.EventStart, func(server.Event) {
		Logger.Infof("Server bound to %s", srv.Addr())
	})
	srv.On(common.EventConnect, func(ev server.Event) {
		Logger.Infof("Session connected from %s", ev.Peer.RemoteAddr())
	})
	srv.On(common.EventClose, func(ev server.Event) {
		if ev.Peer != nil {
			Logger.Infof("Session %s closed", ev.Peer.RemoteAddr())
		}
	})
	srv.On(common.EventSocketDisconnected, func(ev server.Event) {
		Logger.Infof("Socket disconnected: %s", ev.Peer.ID())
	})
	srv.On(common.EventError, func(ev server.Event) {
		Logger.Warningf("Server error: %v", ev.Err)
	})

	srv.On("ping", func(ev server.Event) {
		reply(srv, ev.Peer, "pong", ev.Data)
	})
	srv.On("broadcast", func(ev server.Event) {
		if err := srv.Broadcast("broadcast", ev.Data); err != nil {
			Logger.Warningf("Broadcast failed: %v", err)
		}
	})
	srv.On(common.EventData, func(ev server.Event) {
		reply(srv, ev.Peer, string(ev.Raw), nil)
	})
	srv.OnDefault(func(ev server.Event) {
		reply(srv, ev.Peer, ev.Name, ev.Data)
	})
}

func reply(srv server.IServer, peer server.Peer, typeOrRaw string, data any) {
	if err := srv.Emit(peer, typeOrRaw, data); err != nil {
		Logger.Warningf("Failed to reply to %s: %v", peer.RemoteAddr(), err)
	}
}

// newRouter creates the HTTP handler of the metrics endpoint
func newRouter(srv server.IServer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w)
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		select {
		case <-srv.Done():
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("stopped"))
		default:
			_, _ = fmt.Fprintf(w, "OK %s", srv.Addr())
		}
	})
	return r
}

// serveMetrics runs the HTTP endpoint until ctx is done
func serveMetrics(ctx context.Context, endpoint string, srv server.IServer) error {
	httpServer := &http.Server{
		Addr:              endpoint,
		Handler:           newRouter(srv),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	Logger.Infof("Serving metrics on http://%s/metrics", endpoint)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
