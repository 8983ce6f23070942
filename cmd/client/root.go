package client

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ValentinKolb/dIPC/cmd/util"
	"github.com/ValentinKolb/dIPC/ipc"
	"github.com/ValentinKolb/dIPC/ipc/client"
	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Logger = logger.GetLogger(common.LoggerCLI)

var (
	clientConfig *common.Config

	// ClientCommands represents the client command group
	ClientCommands = &cobra.Command{
		Use:               "client",
		Short:             "Connect to a dIPC server",
		PersistentPreRunE: setupClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add the configuration flags to the client commands
	util.SetupIPCFlags(ClientCommands)

	ClientCommands.PersistentFlags().String("service", "server", util.WrapString("Service id of the server to connect to"))
	ClientCommands.PersistentFlags().Duration("connect-timeout", 5*time.Second, util.WrapString("How long to wait for the connection to be established"))

	// Add subcommands
	ClientCommands.AddCommand(sendCmd)
	ClientCommands.AddCommand(listenCmd)
	ClientCommands.AddCommand(pingCmd)
}

// setupClient reads the configuration of the client commands
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	config, err := util.GetConfig()
	if err != nil {
		return err
	}
	clientConfig = config
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// connect opens the connection configured by the flags and waits until it is
// established. setup subscribes handlers before the connection is opened.
func connect(ctx context.Context, setup func(*client.Client)) (*ipc.IPC, *client.Client, error) {
	registry := ipc.New(clientConfig)
	service := viper.GetString("service")

	connected := make(chan struct{}, 1)
	destroyed := make(chan struct{}, 1)
	wrapped := func(c *client.Client) {
		c.On(common.EventConnect, func(client.Event) {
			select {
			case connected <- struct{}{}:
			default:
			}
		})
		c.On(common.EventDestroy, func(client.Event) {
			close(destroyed)
		})
		c.On(common.EventError, func(ev client.Event) {
			Logger.Warningf("Connection error: %v", ev.Err)
		})
		if setup != nil {
			setup(c)
		}
	}

	var c *client.Client
	var err error
	if path, port := util.GetEndpoint(); port == 0 {
		c, err = registry.ConnectTo(service, path, wrapped)
	} else {
		c, err = registry.ConnectToNet(service, path, port, wrapped)
	}
	if err != nil {
		return nil, nil, err
	}

	timeout := util.WaitTimeout("connect-timeout", 5*time.Second)
	select {
	case <-connected:
		return registry, c, nil
	case <-destroyed:
		registry.Disconnect(service)
		return nil, nil, fmt.Errorf("connection to %s failed, retries exhausted", service)
	case <-time.After(timeout):
		registry.Disconnect(service)
		return nil, nil, fmt.Errorf("connection to %s not established within %s", service, timeout)
	case <-ctx.Done():
		registry.Disconnect(service)
		return nil, nil, ctx.Err()
	}
}

// printEvent writes a received message to stdout
func printEvent(ev client.Event) {
	if ev.Raw != nil {
		fmt.Printf("%s\n", ev.Raw)
		return
	}
	fmt.Printf("%s %s\n", ev.Name, ev.Data)
}
