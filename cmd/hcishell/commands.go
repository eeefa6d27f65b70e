package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/muurk/hcishell/internal/backend"
	"github.com/muurk/hcishell/internal/device"
	"github.com/muurk/hcishell/internal/hci"
	"github.com/muurk/hcishell/internal/logging"
	"github.com/muurk/hcishell/internal/tracefile"
	"github.com/muurk/hcishell/internal/ui"
	"github.com/muurk/hcishell/internal/urls"
)

// devicesCmd implements the 'devices' command
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List controllers on the enabled backends",
	Long: `Enumerate every enabled backend and list the controllers found.

The interface column is the value to pass to --device.`,
	Example: `  # All default backends
  hcishell devices

  # Only bridges, browsing mDNS for 5 seconds
  hcishell devices --backend tcp,websocket --discover-timeout 5s`,
	Args: cobra.NoArgs,
	RunE: runDevices,
}

func runDevices(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	opts, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logging.Sync()

	backends, err := newBackends(opts, logger)
	if err != nil {
		return err
	}

	var records []device.Record
	err = ui.RunWithSpinner(cmd.Context(), os.Stdout, "Searching for controllers...", func(ctx context.Context) error {
		records = device.Enumerate(ctx, backend.Selectable(backends), logger.Named("device"))
		return nil
	})
	if err != nil {
		return err
	}

	out := ui.NewPrinter(os.Stdout)
	if len(records) == 0 {
		out.PrintWarning("No controllers found",
			ui.Detail{Key: "Backends", Value: strings.Join(opts.Backends, ", ")},
			ui.Detail{Key: "Permissions", Value: urls.Permissions},
			ui.Detail{Key: "Bridges", Value: urls.Bridge},
		)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTERFACE\tBACKEND\tDESCRIPTION")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\n", rec.Interface, rec.BackendName(), rec.Label)
	}
	return w.Flush()
}

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Inspect recorded trace files",
}

// traceDumpCmd implements 'trace dump'
var traceDumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print the frames of a trace file",
	Long: `Print every frame of a trace written with --save, decoding HCI commands
and completions.

A file cut short mid-frame is reported after the frames that could be read.`,
	Example: `  hcishell trace dump session.trace
  hcishell trace dump session.trace --hex`,
	Args: cobra.ExactArgs(1),
	RunE: runTraceDump,
}

var traceHex bool

func init() {
	traceDumpCmd.Flags().BoolVar(&traceHex, "hex", false, "Include a hex dump of every payload")
	traceCmd.AddCommand(traceDumpCmd)
}

func runTraceDump(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := tracefile.NewReader(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return dumpFrames(os.Stdout, r, traceHex)
}

func dumpFrames(w io.Writer, r *tracefile.Reader, withHex bool) error {
	n := 0
	for {
		frame, err := r.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintf(w, "%d frames read\n", n)
			return err
		}
		n++
		fmt.Fprintf(w, "%5d %-4s %s\n", n, frame.Direction, hci.Describe(frame.Payload))
		if withHex {
			fmt.Fprintln(w, ui.FormatHexDump(0, frame.Payload))
		}
	}
	fmt.Fprintf(w, "%d frames\n", n)
	return nil
}

var firmwareCmd = &cobra.Command{
	Use:   "firmware",
	Short: "Inspect the firmware catalog",
}

// firmwareListCmd implements 'firmware list'
var firmwareListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported controller firmwares",
	Long: `List the firmwares the shell can identify, including any added with
--firmware-file.`,
	Args: cobra.NoArgs,
	RunE: runFirmwareList,
}

var firmwareSections bool

func init() {
	firmwareListCmd.Flags().BoolVar(&firmwareSections, "sections", false, "Show the section table of each firmware")
	firmwareCmd.AddCommand(firmwareListCmd)
}

func runFirmwareList(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	opts, _, err := setup(cmd)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(opts)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSUBVERSION\tCHIP\tVERIFIED\tDESCRIPTION")
	for _, fw := range catalog.List() {
		fmt.Fprintf(w, "%s\t0x%04x\t%s\t%t\t%s\n", fw.Name, fw.Subversion, fw.Chip, fw.Verified, fw.Description)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if firmwareSections {
		for _, fw := range catalog.List() {
			fmt.Printf("\n%s\n%s", fw.Name, ui.FormatSectionTable(fw.Sections))
		}
	}
	return nil
}
