package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/hcishell/internal/backend"
	"github.com/muurk/hcishell/internal/command/builtin"
	"github.com/muurk/hcishell/internal/config"
	"github.com/muurk/hcishell/internal/device"
	"github.com/muurk/hcishell/internal/firmware"
	"github.com/muurk/hcishell/internal/hook"
	"github.com/muurk/hcishell/internal/logging"
	"github.com/muurk/hcishell/internal/session"
	"github.com/muurk/hcishell/internal/shell"
	"github.com/muurk/hcishell/internal/ui"
	"github.com/muurk/hcishell/internal/urls"
	"github.com/muurk/hcishell/internal/version"
)

const prompt = "hcishell> "

func runShell(cmd *cobra.Command, args []string) error {
	// Suppress usage on execution errors (we're past argument parsing)
	cmd.SilenceUsage = true

	opts, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logging.Sync()

	out := ui.NewPrinter(os.Stdout)
	tty := interactive()

	catalog, err := loadCatalog(opts)
	if err != nil {
		out.PrintFailure("Failed to load firmware catalog", err, "Check the file given with --firmware-file", urls.SupportedFirmware)
		return err
	}

	backends, err := newBackends(opts, logger)
	if err != nil {
		out.PrintFailure("Invalid backend configuration", err)
		return err
	}

	hooks := hook.NewRegistry(logger.Named("hook"))
	if err := attachHooks(hooks, backends, opts); err != nil {
		out.PrintFailure("Failed to set up traffic hooks", err, "See "+urls.TraceFiles)
		_ = hooks.Close()
		return err
	}

	// Ctrl-C cancels startup; once the prompt is up the loop owns it.
	startCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	sess, err := connect(startCtx, opts, backends, hooks, catalog, tty, logger)
	stop()
	if err != nil {
		_ = hooks.Close()
		if errors.Is(err, context.Canceled) || errors.Is(err, ui.ErrSelectionCancelled) {
			out.Println("Cancelled.")
			return err
		}
		out.PrintFailure("Failed to open a controller", err)
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("error closing session", zap.Error(err))
		}
	}()

	fw := "unidentified"
	if sess.Firmware != nil {
		fw = sess.Firmware.String()
	}
	out.PrintBanner("hcishell "+version.Version, "Type 'help' for commands, 'exit' to quit.",
		ui.Detail{Key: "Device", Value: sess.Device.String()},
		ui.Detail{Key: "Firmware", Value: fw},
		ui.Detail{Key: "Hooks", Value: hookSummary(opts)},
		ui.Detail{Key: "Data", Value: opts.DataDir},
	)

	registry, err := builtin.NewRegistry()
	if err != nil {
		return err
	}

	readerCfg := shell.ReaderConfig{Registry: registry}
	if tty {
		readerCfg.Prompt = prompt
		readerCfg.HistoryFile = opts.HistoryPath()
	}
	reader, err := shell.NewReadline(readerCfg)
	if err != nil {
		return fmt.Errorf("failed to open terminal: %w", err)
	}
	defer reader.Close()

	loop := shell.New(shell.Config{
		Registry: registry,
		Session:  sess,
		Startup:  shell.SplitCommands(opts.Commands),
		Reader:   reader,
		Signals:  true,
		Out:      os.Stdout,
		Logger:   logger.Named("shell"),
	})
	runErr := loop.Run(context.Background())
	out.Println("Goodbye")
	if runErr != nil {
		out.PrintFailure("Session ended with an error", runErr)
	}
	return runErr
}

// connect selects a device and opens a session on it.
func connect(ctx context.Context, opts *config.Options, backends []backend.Backend, hooks *hook.Registry,
	catalog *firmware.Catalog, tty bool, logger *zap.Logger) (*session.Session, error) {
	var chooser device.Chooser
	if tty {
		chooser = ui.DeviceChooser{}
	}
	selOpts := device.Options{
		Interface: opts.Device,
		Replay:    opts.Replay != "",
		Chooser:   chooser,
		Logger:    logger.Named("device"),
	}

	var rec device.Record
	if selOpts.Replay {
		// Replay needs exactly one backend; the first one configured is used.
		var err error
		rec, err = device.Select(ctx, backend.Selectable(backends[:1]), selOpts)
		if err != nil {
			return nil, err
		}
	} else {
		var candidates []device.Record
		err := ui.RunWithSpinner(ctx, os.Stdout, "Searching for controllers...", func(ctx context.Context) error {
			candidates = device.Enumerate(ctx, backend.Selectable(backends), selOpts.Logger)
			return ctx.Err()
		})
		if err != nil {
			return nil, err
		}
		if rec, err = device.Choose(ctx, candidates, selOpts); err != nil {
			return nil, err
		}
	}
	logger.Info("opening controller", zap.String("device", rec.String()))

	params := session.Params{
		Device:      rec,
		Hooks:       hooks,
		Catalog:     catalog,
		Identify:    opts.Identify,
		Interactive: tty,
		DataDir:     opts.DataDir,
		Out:         os.Stdout,
		Logger:      logger.Named("session"),
		Confirm: func(question string) (bool, error) {
			return ui.ConfirmDangerousOperation(os.Stdout, "MEMORY WRITE", []string{
				question,
				"A wrong write can crash the controller firmware until it is reset",
				"Nothing is written to flash; a power cycle restores the controller",
			})
		},
	}

	var sess *session.Session
	err := ui.RunWithSpinner(ctx, os.Stdout, "Connecting to "+rec.String()+"...", func(ctx context.Context) error {
		var err error
		sess, err = session.Connect(ctx, params)
		return err
	})
	return sess, err
}
