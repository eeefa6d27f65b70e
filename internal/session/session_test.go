package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/hcishell/internal/backend"
	"github.com/muurk/hcishell/internal/device"
	"github.com/muurk/hcishell/internal/firmware"
	"github.com/muurk/hcishell/internal/hci/hcitest"
	"github.com/muurk/hcishell/internal/hook"
	"github.com/muurk/hcishell/internal/memory"
	"github.com/muurk/hcishell/internal/tracefile"
	"github.com/muurk/hcishell/internal/transport"
)

func TestStateTransitions(t *testing.T) {
	s := NewState()
	assert.False(t, s.Active())

	s.Start()
	assert.True(t, s.Running())
	assert.True(t, s.Active())

	s.RequestExit()
	assert.True(t, s.ExitRequested())
	assert.False(t, s.Active())

	s.Start()
	assert.True(t, s.Active(), "restart clears the exit request")

	s.Stop()
	assert.False(t, s.Running())
	assert.False(t, s.Active())
}

func dialer(tr transport.Transport, calls *int) func(context.Context, *hook.Registry, device.Record) (transport.Transport, error) {
	return func(context.Context, *hook.Registry, device.Record) (transport.Transport, error) {
		*calls++
		return tr, nil
	}
}

func TestConnectIdentifies(t *testing.T) {
	chip := hcitest.NewController(0x6119)
	var calls int

	s, err := Connect(context.Background(), Params{
		Device:   device.Record{Interface: "/dev/ttyUSB0"},
		Identify: true,
		Dial:     dialer(chip, &calls),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, s.State.Active())

	require.NotNil(t, s.Firmware)
	assert.Equal(t, "BCM4345C0", s.Firmware.Name)
	assert.Equal(t, uint16(0x6119), s.Version.LMPSubversion)
	assert.Greater(t, s.Sections.Len(), 0)

	require.NoError(t, s.Close())
	assert.True(t, chip.Closed())
	assert.False(t, s.State.Running())
}

func TestConnectUnknownFirmwareContinues(t *testing.T) {
	chip := hcitest.NewController(0x1234)
	var calls int

	s, err := Connect(context.Background(), Params{Identify: true, Dial: dialer(chip, &calls)})
	require.NoError(t, err)
	defer s.Close()

	assert.Nil(t, s.Firmware)
	require.NotNil(t, s.Version)
	assert.Equal(t, memory.Unmapped, s.Sections.Classify(0x200000))

	_, err = s.RequireFirmware()
	assert.ErrorIs(t, err, ErrNoFirmware)

	_, err = s.Identify(context.Background())
	var unsupported *firmware.UnsupportedFirmwareError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, uint16(0x1234), unsupported.Subversion)
}

func TestConnectWithoutIdentify(t *testing.T) {
	chip := hcitest.NewController(0x6119)
	var calls int

	s, err := Connect(context.Background(), Params{Dial: dialer(chip, &calls)})
	require.NoError(t, err)
	defer s.Close()

	assert.Nil(t, s.Firmware)
	assert.Zero(t, chip.SentCount())
}

func TestConnectDialFailure(t *testing.T) {
	boom := errors.New("port busy")
	_, err := Connect(context.Background(), Params{
		Dial: func(context.Context, *hook.Registry, device.Record) (transport.Transport, error) {
			return nil, boom
		},
	})
	assert.ErrorIs(t, err, boom)
}

func TestConnectCancelledDuringIdentify(t *testing.T) {
	chip := hcitest.NewController(0x6119)
	chip.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int
	_, err := Connect(ctx, Params{Identify: true, Dial: dialer(chip, &calls)})
	assert.Error(t, err)
}

func TestConnectReplaySkipsIdentify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.trace")
	w, err := tracefile.CreateWriter(path)
	require.NoError(t, err)
	for _, f := range []tracefile.Frame{
		{Direction: tracefile.Send, Payload: []byte{0x01}},
		{Direction: tracefile.Recv, Payload: []byte{0xaa}},
		{Direction: tracefile.Recv, Payload: []byte{0xbb}},
	} {
		require.NoError(t, w.WriteFrame(f))
	}
	require.NoError(t, w.Close())

	hooks := hook.NewRegistry(nil)
	require.NoError(t, hooks.Attach(transport.KindTCP, hook.VariantReplay, hook.Options{Filename: path}))
	b, err := backend.New("tcp", backend.Config{})
	require.NoError(t, err)
	rec, err := device.Select(context.Background(), []device.Backend{b}, device.Options{Replay: true})
	require.NoError(t, err)

	s, err := Connect(context.Background(), Params{
		Device:   rec,
		Hooks:    hooks,
		Identify: true,
	})
	require.NoError(t, err)
	defer s.Close()

	assert.Nil(t, s.Version)
	assert.Nil(t, s.Firmware)

	ctx := context.Background()
	require.NoError(t, s.Transport.Send(ctx, []byte{0x01}))
	got, err := s.Transport.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa}, got)
	got, err = s.Transport.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xbb}, got)
	_, err = s.Transport.Recv(ctx)
	assert.ErrorIs(t, err, hook.ErrReplayExhausted)
}
