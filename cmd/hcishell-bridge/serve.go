package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/hcishell/internal/backend"
	"github.com/muurk/hcishell/internal/bridge"
	"github.com/muurk/hcishell/internal/device"
	"github.com/muurk/hcishell/internal/discovery"
	"github.com/muurk/hcishell/internal/hook"
	"github.com/muurk/hcishell/internal/logging"
	"github.com/muurk/hcishell/internal/transport"
)

// Serve command and flags
var (
	proto       string
	host        string
	port        int
	path        string
	deviceID    string
	backendName string
	serialBaud  uint
	serialHWFC  bool
	advertise   bool
	instance    string
	trace       bool
	savePath    string
	logLevel    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Open a controller and serve it to remote shells",
	Long: `Open a local controller and serve it to one remote hcishell at a time.

With --proto tcp (default) the client receives a raw H4 packet stream. With
--proto ws the bridge accepts WebSocket connections on --path and carries
one H4 packet per binary message.

The controller stays open between clients. A second client is refused while
one is connected.`,
	Example: `  # Serve the Raspberry Pi UART controller on port 4000
  hcishell-bridge serve --device /dev/ttyAMA0 --serial-baud 3000000 --serial-hwfc

  # Serve a USB dongle over WebSocket
  hcishell-bridge serve --backend usb --device usb:1:4 --proto ws --port 8765

  # Record everything that passes through the bridge
  hcishell-bridge serve --device /dev/ttyUSB0 --save bridge.trace --trace`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&proto, "proto", discovery.ProtoTCP, "Wire protocol (tcp or ws)")
	serveCmd.Flags().StringVar(&host, "host", "", "Listen address (empty = all interfaces)")
	serveCmd.Flags().IntVar(&port, "port", 0, "Listen port (default 4000 for tcp, 8765 for ws)")
	serveCmd.Flags().StringVar(&path, "path", discovery.DefaultPath, "WebSocket endpoint path")
	serveCmd.Flags().StringVar(&deviceID, "device", "", "Interface id of the controller (default: the only one found)")
	serveCmd.Flags().StringVar(&backendName, "backend", "serial", "Local backend (serial or usb)")
	serveCmd.Flags().UintVar(&serialBaud, "serial-baud", 115200, "Serial baud rate")
	serveCmd.Flags().BoolVar(&serialHWFC, "serial-hwfc", false, "Enable serial hardware flow control")
	serveCmd.Flags().BoolVar(&advertise, "advertise", true, "Advertise the bridge with mDNS")
	serveCmd.Flags().StringVar(&instance, "name", "", "mDNS instance name (default: hostname)")
	serveCmd.Flags().BoolVar(&trace, "trace", false, "Log every packet passing through the bridge")
	serveCmd.Flags().StringVar(&savePath, "save", "", "Record all traffic to a trace file")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()
	logger := logging.GetLogger()

	if port == 0 {
		port = bridge.DefaultTCPPort
		if proto == discovery.ProtoWebSocket {
			port = bridge.DefaultWebSocketPort
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hooks := hook.NewRegistry(logger.Named("hook"))
	defer hooks.Close()

	ctrl, rec, err := openController(ctx, hooks, logger)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	srv, err := bridge.New(bridge.Config{
		Proto:     proto,
		Host:      host,
		Port:      port,
		Path:      path,
		Advertise: advertise,
		Instance:  instance,
		Metadata: map[string]string{
			"device":  rec.Interface,
			"backend": rec.BackendName(),
		},
		Logger: logger.Named("bridge"),
	}, ctrl)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}

// openController finds the local controller and opens it with the
// requested hooks.
func openController(ctx context.Context, hooks *hook.Registry, logger *zap.Logger) (transport.Transport, device.Record, error) {
	switch backendName {
	case string(transport.KindSerial), string(transport.KindUSB):
	default:
		return nil, device.Record{}, fmt.Errorf("backend %q cannot be bridged (want serial or usb)", backendName)
	}

	b, err := backend.New(backendName, backend.Config{
		Serial: backend.SerialConfig{BaudRate: serialBaud, HardwareFlowControl: serialHWFC},
		Logger: logger.Named("backend"),
	})
	if err != nil {
		return nil, device.Record{}, err
	}

	if trace {
		if err := hooks.Attach(b.Kind(), hook.VariantTrace, hook.Options{}); err != nil {
			return nil, device.Record{}, err
		}
	}
	if savePath != "" {
		if err := hooks.Attach(b.Kind(), hook.VariantRecord, hook.Options{Filename: savePath}); err != nil {
			return nil, device.Record{}, err
		}
	}

	rec, err := device.Select(ctx, []device.Backend{b}, device.Options{
		Interface: deviceID,
		Logger:    logger.Named("device"),
	})
	if err != nil {
		return nil, device.Record{}, err
	}
	logger.Info("Opening controller", zap.String("device", rec.String()))

	t, err := backend.Connect(ctx, hooks, rec)
	if err != nil {
		return nil, device.Record{}, err
	}
	return t, rec, nil
}
