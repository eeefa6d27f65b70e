package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/muurk/hcishell/internal/backend"
	"github.com/muurk/hcishell/internal/device"
	"github.com/muurk/hcishell/internal/firmware"
	"github.com/muurk/hcishell/internal/hci"
	"github.com/muurk/hcishell/internal/hook"
	"github.com/muurk/hcishell/internal/memory"
	"github.com/muurk/hcishell/internal/transport"
)

// ErrNoFirmware is returned by memory operations when no firmware has been
// identified for the controller.
var ErrNoFirmware = errors.New("no firmware identified; run identify or pass --firmware-file")

// ConfirmFunc asks the operator a yes/no question.
type ConfirmFunc func(question string) (bool, error)

// Params configures Connect and New.
type Params struct {
	Device device.Record
	Hooks  *hook.Registry

	// Catalog resolves firmware; nil loads the embedded catalog.
	Catalog *firmware.Catalog

	// Identify reads the local version at connect and selects the firmware.
	Identify bool

	// Interactive is set when a terminal operator is attached.
	Interactive bool

	DataDir string
	Out     io.Writer
	Confirm ConfirmFunc
	Logger  *zap.Logger

	// Dial replaces backend.Connect; used by tests.
	Dial func(ctx context.Context, hooks *hook.Registry, rec device.Record) (transport.Transport, error)
}

// Session is one connection to a controller.
type Session struct {
	Device    device.Record
	Transport transport.Transport
	HCI       *hci.Client
	Hooks     *hook.Registry
	State     *State

	Catalog  *firmware.Catalog
	Firmware *firmware.Firmware
	Version  *hci.LocalVersion
	Sections *memory.Table

	Interactive bool
	DataDir     string
	Out         io.Writer
	Confirm     ConfirmFunc
	Logger      *zap.Logger
}

// New builds a session over an already open transport. The state is left
// stopped.
func New(t transport.Transport, p Params) (*Session, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	catalog := p.Catalog
	if catalog == nil {
		var err error
		if catalog, err = firmware.Load(); err != nil {
			return nil, err
		}
	}
	hooks := p.Hooks
	if hooks == nil {
		hooks = hook.NewRegistry(logger)
	}
	out := p.Out
	if out == nil {
		out = os.Stdout
	}
	empty, err := memory.NewTable(nil)
	if err != nil {
		return nil, err
	}

	return &Session{
		Device:      p.Device,
		Transport:   t,
		HCI:         hci.NewClient(t, logger.Named("hci")),
		Hooks:       hooks,
		State:       NewState(),
		Catalog:     catalog,
		Sections:    empty,
		Interactive: p.Interactive,
		DataDir:     p.DataDir,
		Out:         out,
		Confirm:     p.Confirm,
		Logger:      logger,
	}, nil
}

// Connect opens the selected device and returns a running session. A failed
// identification is logged and leaves the session without a firmware.
// Identification never runs against a replayed recording.
func Connect(ctx context.Context, p Params) (*Session, error) {
	if p.Hooks == nil {
		p.Hooks = hook.NewRegistry(p.Logger)
	}
	dial := p.Dial
	if dial == nil {
		dial = backend.Connect
	}

	t, err := dial(ctx, p.Hooks, p.Device)
	if err != nil {
		return nil, err
	}
	s, err := New(t, p)
	if err != nil {
		t.Close()
		return nil, err
	}
	s.Logger.Info("connected", zap.String("device", p.Device.String()))

	if p.Identify && replaying(p) {
		s.Logger.Info("replaying a recording; firmware identification skipped")
	} else if p.Identify {
		if _, err := s.Identify(ctx); err != nil {
			if ctx.Err() != nil {
				s.Close()
				return nil, err
			}
			s.Logger.Warn("firmware identification failed", zap.Error(err))
		}
	}

	s.State.Start()
	return s, nil
}

// replaying reports whether the device is served from a recording. Sending
// Read Local Version there would consume frames recorded for the commands.
func replaying(p Params) bool {
	b, ok := p.Device.Backend.(backend.Backend)
	return ok && p.Hooks.Replaying(b.Kind())
}

// Identify reads the controller version and selects the matching firmware
// and section table. On an unknown subversion the version is still kept.
func (s *Session) Identify(ctx context.Context) (*firmware.Firmware, error) {
	v, err := s.HCI.ReadLocalVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("read local version: %w", err)
	}
	s.Version = v

	fw, err := s.Catalog.Identify(v.LMPSubversion)
	if err != nil {
		return nil, err
	}
	s.SetFirmware(fw)
	s.Logger.Info("identified firmware",
		zap.String("firmware", fw.Name),
		zap.String("manufacturer", hci.ManufacturerName(v.Manufacturer)),
	)
	return fw, nil
}

// SetFirmware selects fw and its section table.
func (s *Session) SetFirmware(fw *firmware.Firmware) {
	s.Firmware = fw
	if fw != nil && fw.Table() != nil {
		s.Sections = fw.Table()
	}
}

// RequireFirmware returns ErrNoFirmware until a firmware is selected.
func (s *Session) RequireFirmware() (*firmware.Firmware, error) {
	if s.Firmware == nil {
		return nil, ErrNoFirmware
	}
	return s.Firmware, nil
}

// Close stops the session, closes the transport and releases hook files.
func (s *Session) Close() error {
	s.State.Stop()
	var errs []error
	if s.Transport != nil {
		if err := s.Transport.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close transport: %w", err))
		}
	}
	if s.Hooks != nil {
		if err := s.Hooks.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close hooks: %w", err))
		}
	}
	return errors.Join(errs...)
}
