// Hcishell-bridge exposes a locally attached Bluetooth controller to a
// remote hcishell over the network.
//
// The bridge opens one controller (a UART or USB dongle on this machine)
// and serves it to one client at a time, either as a raw H4 stream over
// TCP or as one H4 packet per WebSocket message. It advertises itself with
// mDNS so that 'hcishell --backend tcp' finds it without configuration.
//
// Usage:
//
//	hcishell-bridge serve [flags]
//
// See 'hcishell-bridge serve --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/hcishell/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hcishell-bridge",
	Short: "Network bridge for hcishell",
	Long: `A bridge that serves a locally attached Bluetooth controller to a remote hcishell.

Run it on the machine the controller is wired to (e.g. a Raspberry Pi with
the chip on its UART) and connect from anywhere on the network with
'hcishell --backend tcp' or '--backend websocket'.`,
	Version: version.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hcishell-bridge %s\n", version.Full())
	},
}
