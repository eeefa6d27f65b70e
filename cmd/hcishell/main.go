// Hcishell is an interactive shell for inspecting and patching Bluetooth
// controllers over HCI.
//
// It opens one controller through a serial (H4 UART), USB, TCP or WebSocket
// backend, identifies its firmware from the LMP subversion and offers
// commands to send raw HCI commands, read and write controller RAM with
// section checks, and run Lua scripts against the device.
//
// Traffic can be traced to the log, recorded to a file (--save) and
// replayed later without hardware (--replay).
//
// Usage:
//
//	hcishell [flags]
//	hcishell devices
//	hcishell trace dump <file>
//	hcishell firmware list
//
// See 'hcishell --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/hcishell/internal/config"
	"github.com/muurk/hcishell/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hcishell",
	Short: "Interactive HCI shell for Bluetooth controllers",
	Long: `An interactive shell for inspecting and patching Bluetooth controllers over HCI.

hcishell finds controllers on the enabled backends (serial, usb, tcp,
websocket), opens the selected one, identifies its firmware and then reads
commands from the terminal. Type 'help' at the prompt for the command list.

All traffic can be logged (--trace), recorded (--save) and replayed
without hardware (--replay).`,
	Version: version.Version,
	Example: `  # Pick a controller interactively
  hcishell

  # Open a specific UART at 3 Mbaud with flow control
  hcishell --device /dev/ttyUSB0 --serial-baud 3000000 --serial-hwfc

  # Dump the connection array, recording the session
  hcishell -c "readmem 0x204ba8 0x150; exit" --save session.trace

  # Replay the recording without hardware
  hcishell --backend serial --replay session.trace -c "readmem 0x204ba8 0x150"

  # Use a remote bridge
  hcishell --backend tcp --tcp-addr raspberrypi.local:4000`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(firmwareCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hcishell %s\n", version.Full())
	},
}
