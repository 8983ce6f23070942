package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dIPC/cmd/client"
	"github.com/ValentinKolb/dIPC/cmd/serve"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dipc",
		Short: "typed inter-process messaging",
		Long: fmt.Sprintf(`dIPC (v%s)

Typed message exchange between processes over Unix domain sockets,
TCP, TLS and UDP, with automatic reconnection and broadcasting.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dIPC",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dIPC v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(client.ClientCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
