package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/muurk/hcishell/internal/backend"
	"github.com/muurk/hcishell/internal/config"
	"github.com/muurk/hcishell/internal/firmware"
	"github.com/muurk/hcishell/internal/hook"
	"github.com/muurk/hcishell/internal/logging"
	"github.com/muurk/hcishell/internal/ui"
)

// setup loads options and initializes logging.
func setup(cmd *cobra.Command) (*config.Options, *zap.Logger, error) {
	opts, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	if err := logging.Initialize(opts.Level()); err != nil {
		return nil, nil, err
	}
	return opts, logging.GetLogger(), nil
}

// interactive reports whether an operator is at a terminal.
func interactive() bool {
	return ui.IsTerminal(os.Stdout) && term.IsTerminal(int(os.Stdin.Fd()))
}

func loadCatalog(opts *config.Options) (*firmware.Catalog, error) {
	if opts.FirmwareFile != "" {
		return firmware.LoadFile(opts.FirmwareFile)
	}
	return firmware.Load()
}

func newBackends(opts *config.Options, logger *zap.Logger) ([]backend.Backend, error) {
	return backend.NewAll(opts.Backends, backend.Config{
		Serial: backend.SerialConfig{
			BaudRate:            uint(opts.SerialBaud),
			HardwareFlowControl: opts.SerialHWFC,
		},
		TCP:       backend.TCPConfig{Addrs: opts.TCPAddrs},
		WebSocket: backend.WebSocketConfig{URLs: opts.WSURLs},
		Discover:  opts.DiscoverTimeout,
		Logger:    logger.Named("backend"),
	})
}

// attachHooks applies --trace, --replay and --save to every backend kind.
// Trace is attached first so it logs the raw transport; record sees the
// same packets.
func attachHooks(hooks *hook.Registry, backends []backend.Backend, opts *config.Options) error {
	kinds := backend.Kinds(backends)
	if opts.Trace {
		if err := hooks.AttachAll(kinds, hook.VariantTrace, hook.Options{}); err != nil {
			return err
		}
	}
	if opts.Replay != "" {
		err := hooks.AttachAll(kinds, hook.VariantReplay, hook.Options{Filename: opts.Replay, Strict: opts.StrictReplay})
		if err != nil {
			return err
		}
	}
	if opts.Save != "" {
		if err := hooks.AttachAll(kinds, hook.VariantRecord, hook.Options{Filename: opts.Save}); err != nil {
			return err
		}
	}
	return nil
}

func hookSummary(opts *config.Options) string {
	var parts []string
	if opts.Trace {
		parts = append(parts, "trace")
	}
	if opts.Replay != "" {
		mode := "lenient"
		if opts.StrictReplay {
			mode = "strict"
		}
		parts = append(parts, fmt.Sprintf("replay %s (%s)", opts.Replay, mode))
	}
	if opts.Save != "" {
		parts = append(parts, "save "+opts.Save)
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}
