package backend

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/muurk/hcishell/internal/device"
	"github.com/muurk/hcishell/internal/discovery"
	"github.com/muurk/hcishell/internal/hook"
	"github.com/muurk/hcishell/internal/transport"
)

// Backend enumerates and opens controllers of one kind.
type Backend interface {
	device.Backend
	Kind() transport.Kind
	// Dial opens the live channel to iface.
	Dial(ctx context.Context, iface string) (transport.Transport, error)
}

// Config carries the options of every backend.
type Config struct {
	Serial    SerialConfig
	TCP       TCPConfig
	WebSocket WebSocketConfig
	// Discover is how long to browse for bridges with mDNS; zero disables it.
	Discover time.Duration
	Logger   *zap.Logger
}

// scanner finds bridges; *discovery.Scanner in production.
type scanner interface {
	Scan(ctx context.Context) ([]*discovery.Endpoint, error)
}

type factory func(cfg Config, sc scanner) Backend

var factories = map[string]factory{
	string(transport.KindSerial): func(cfg Config, _ scanner) Backend {
		return newSerial(cfg.Serial, cfg.Logger)
	},
	string(transport.KindUSB): func(cfg Config, _ scanner) Backend {
		return newUSB(cfg.Logger)
	},
	string(transport.KindTCP): func(cfg Config, sc scanner) Backend {
		return newTCP(cfg.TCP, sc, cfg.Logger)
	},
	string(transport.KindWebSocket): func(cfg Config, sc scanner) Backend {
		return newWebSocket(cfg.WebSocket, sc, cfg.Logger)
	},
}

var aliases = map[string]string{
	"ws":   string(transport.KindWebSocket),
	"uart": string(transport.KindSerial),
	"h4":   string(transport.KindSerial),
}

// Names returns the built-in backend names, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the backend called name.
func New(name string, cfg Config) (Backend, error) {
	all, err := NewAll([]string{name}, cfg)
	if err != nil {
		return nil, err
	}
	return all[0], nil
}

// NewAll builds backends in the order given. Bridge backends share one
// mDNS scan.
func NewAll(names []string, cfg Config) ([]Backend, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	var sc scanner
	if cfg.Discover > 0 {
		sc = newSharedScan(&discovery.Scanner{Timeout: cfg.Discover})
	}

	seen := make(map[string]bool)
	backends := make([]Backend, 0, len(names))
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if alias, ok := aliases[key]; ok {
			key = alias
		}
		f, ok := factories[key]
		if !ok {
			return nil, errors.NotFoundf("backend %q (available: %s)", name, strings.Join(Names(), ", "))
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		backends = append(backends, f(cfg, sc))
	}
	if len(backends) == 0 {
		return nil, errors.NotValidf("empty backend list")
	}
	return backends, nil
}

// Kinds returns the kinds of backends.
func Kinds(backends []Backend) []transport.Kind {
	kinds := make([]transport.Kind, len(backends))
	for i, b := range backends {
		kinds[i] = b.Kind()
	}
	return kinds
}

// Selectable converts backends for device.Select.
func Selectable(backends []Backend) []device.Backend {
	out := make([]device.Backend, len(backends))
	for i, b := range backends {
		out[i] = b
	}
	return out
}

// Connect opens rec through the hook registry.
func Connect(ctx context.Context, hooks *hook.Registry, rec device.Record) (transport.Transport, error) {
	b, ok := rec.Backend.(Backend)
	if !ok {
		return nil, errors.Errorf("device %s has no dialable backend", rec.Interface)
	}
	t, err := hooks.Open(ctx, b.Kind(), func(ctx context.Context) (transport.Transport, error) {
		return b.Dial(ctx, rec.Interface)
	})
	if err != nil {
		return nil, errors.Annotatef(err, "open %s", rec)
	}
	return t, nil
}
