package backend

import (
	"context"
	"net"
	"time"

	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/muurk/hcishell/internal/device"
	"github.com/muurk/hcishell/internal/discovery"
	"github.com/muurk/hcishell/internal/transport"
)

const dialTimeout = 5 * time.Second

// TCPConfig configures the socket bridge backend.
type TCPConfig struct {
	// Addrs are host:port bridges offered in addition to discovered ones.
	Addrs []string
}

type tcpBackend struct {
	cfg     TCPConfig
	scanner scanner
	logger  *zap.Logger
}

func newTCP(cfg TCPConfig, sc scanner, logger *zap.Logger) *tcpBackend {
	return &tcpBackend{cfg: cfg, scanner: sc, logger: logger.Named("tcp")}
}

func (b *tcpBackend) Name() string          { return string(transport.KindTCP) }
func (b *tcpBackend) Kind() transport.Kind { return transport.KindTCP }

func (b *tcpBackend) Enumerate(ctx context.Context) ([]device.Record, error) {
	var records []device.Record
	for _, addr := range b.cfg.Addrs {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return nil, errors.NotValidf("bridge address %q", addr)
		}
		records = append(records, device.Record{Backend: b, Interface: addr, Label: "configured bridge"})
	}

	if b.scanner != nil {
		eps, err := b.scanner.Scan(ctx)
		if err != nil {
			if len(records) > 0 {
				b.logger.Warn("bridge discovery failed", zap.Error(err))
				return records, nil
			}
			return nil, errors.Trace(err)
		}
		for _, ep := range filterProto(eps, discovery.ProtoTCP) {
			records = append(records, device.Record{Backend: b, Interface: ep.Address(), Label: ep.String()})
		}
	}
	return records, nil
}

func (b *tcpBackend) Dial(ctx context.Context, iface string) (transport.Transport, error) {
	b.logger.Info("connecting to bridge", zap.String("addr", iface))
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", iface)
	if err != nil {
		return nil, errors.Annotatef(err, "connect to bridge %s", iface)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	return transport.NewStream(conn), nil
}
