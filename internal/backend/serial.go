package backend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cesanta/go-serial/serial"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/muurk/hcishell/internal/device"
	"github.com/muurk/hcishell/internal/transport"
)

const (
	// DefaultBaudRate is the H4 rate most controllers boot with.
	DefaultBaudRate = 115200

	interCharacterTimeout = 100 * time.Millisecond
)

// SerialConfig configures the serial backend.
type SerialConfig struct {
	BaudRate            uint
	HardwareFlowControl bool
	// Ports replaces enumeration with a fixed list.
	Ports []string
}

type serialBackend struct {
	cfg       SerialConfig
	enumerate func() []string
	logger    *zap.Logger
}

func newSerial(cfg SerialConfig, logger *zap.Logger) *serialBackend {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	return &serialBackend{cfg: cfg, enumerate: enumerateSerialPorts, logger: logger.Named("serial")}
}

func (b *serialBackend) Name() string          { return string(transport.KindSerial) }
func (b *serialBackend) Kind() transport.Kind { return transport.KindSerial }

func (b *serialBackend) Enumerate(ctx context.Context) ([]device.Record, error) {
	ports := b.cfg.Ports
	if len(ports) == 0 {
		ports = b.enumerate()
	}
	records := make([]device.Record, 0, len(ports))
	for _, port := range ports {
		records = append(records, device.Record{
			Backend:   b,
			Interface: port,
			Label:     serialLabel(port),
		})
	}
	return records, nil
}

func (b *serialBackend) Dial(ctx context.Context, iface string) (transport.Transport, error) {
	b.logger.Info("opening serial port",
		zap.String("port", iface),
		zap.Uint("baud", b.cfg.BaudRate),
		zap.Bool("hwfc", b.cfg.HardwareFlowControl),
	)
	oo := serial.OpenOptions{
		PortName:              iface,
		BaudRate:              b.cfg.BaudRate,
		DataBits:              8,
		ParityMode:            serial.PARITY_NONE,
		StopBits:              1,
		HardwareFlowControl:   b.cfg.HardwareFlowControl,
		InterCharacterTimeout: uint(interCharacterTimeout / time.Millisecond),
		MinimumReadSize:       0,
	}
	s, err := serial.Open(oo)
	if err != nil {
		return nil, errors.Annotatef(err, "open serial port %s", iface)
	}
	// drop anything the controller sent before we attached
	s.Flush()
	return transport.NewStream(s, transport.WithPolling()), nil
}

// serialLabel describes a port using the USB product name from sysfs when
// the kernel exposes one.
func serialLabel(port string) string {
	name := filepath.Base(port)
	for _, rel := range []string{"device/../product", "device/../../product"} {
		data, err := os.ReadFile(filepath.Join("/sys/class/tty", name, rel))
		if err == nil {
			if product := strings.TrimSpace(string(data)); product != "" {
				return product
			}
		}
	}
	if strings.HasPrefix(name, "ttyAMA") || strings.HasPrefix(name, "ttyS") {
		return "on-board UART"
	}
	return "serial port"
}
