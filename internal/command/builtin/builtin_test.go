package builtin

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/hcishell/internal/command"
	"github.com/muurk/hcishell/internal/device"
	"github.com/muurk/hcishell/internal/hci"
	"github.com/muurk/hcishell/internal/hci/hcitest"
	"github.com/muurk/hcishell/internal/session"
)

type fixture struct {
	reg  *command.Registry
	s    *session.Session
	chip *hcitest.Controller
	out  *bytes.Buffer
}

func newFixture(t *testing.T, identify bool) *fixture {
	t.Helper()
	reg, err := NewRegistry()
	require.NoError(t, err)

	chip := hcitest.NewController(0x6119)
	out := &bytes.Buffer{}
	s, err := session.New(chip, session.Params{
		Device: device.Record{Interface: "/dev/ttyUSB0", Label: "CP2102"},
		Out:    out,
	})
	require.NoError(t, err)
	s.State.Start()
	if identify {
		_, err := s.Identify(context.Background())
		require.NoError(t, err)
	}
	return &fixture{reg: reg, s: s, chip: chip, out: out}
}

func (f *fixture) run(t *testing.T, line string) (bool, error) {
	t.Helper()
	f.out.Reset()
	word := strings.Fields(line)[0]
	if i := strings.IndexByte(word, '='); i >= 0 {
		word = word[:i]
	}
	spec, ok := f.reg.Lookup(word)
	require.True(t, ok, "no command %q", word)
	return spec.New(line, f.s).Execute(context.Background())
}

func TestRegistryHasBuiltins(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	for _, kw := range []string{"help", "?", "exit", "quit", "info", "identify", "reset", "sections",
		"memmap", "classify", "constants", "send", "readmem", "hexdump", "writemem", "script"} {
		_, ok := reg.Lookup(kw)
		assert.True(t, ok, kw)
	}
}

func TestHelp(t *testing.T) {
	f := newFixture(t, false)

	ok, err := f.run(t, "help")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, f.out.String(), "readmem, hexdump")
	assert.Contains(t, f.out.String(), "writemem")

	ok, err = f.run(t, "? readmem")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, f.out.String(), readmemUsage)
	assert.Contains(t, f.out.String(), "aliases: hexdump")

	ok, err = f.run(t, "help nosuch")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExitRequestsExit(t *testing.T) {
	f := newFixture(t, false)
	ok, err := f.run(t, "quit")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, f.s.State.ExitRequested())
}

func TestInfo(t *testing.T) {
	f := newFixture(t, true)
	ok, err := f.run(t, "info")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, f.out.String(), "BCM4345C0")
	assert.Contains(t, f.out.String(), "/dev/ttyUSB0")
}

func TestIdentify(t *testing.T) {
	f := newFixture(t, false)
	ok, err := f.run(t, "identify")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NotNil(t, f.s.Firmware)
	assert.Equal(t, "BCM4345C0", f.s.Firmware.Name)

	f.chip.Subversion = 0x4242
	f.s.Firmware = nil
	ok, err = f.run(t, "identify")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, f.out.String(), "0x4242")
}

func TestClassify(t *testing.T) {
	f := newFixture(t, true)
	tests := []struct {
		line string
		ok   bool
		want string
	}{
		{"classify 0x200000", true, "ram"},
		{"classify $1000", true, "rom"},
		{"classify 0x318000", true, "unmapped"},
		{"classify 0x100000", true, "unmapped"},
		{"classify=0x200010", true, "ram"},
		{"classify zz", false, "invalid address"},
		{"classify", false, "usage:"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			ok, err := f.run(t, tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Contains(t, f.out.String(), tt.want)
		})
	}
}

func TestSectionsAndConstants(t *testing.T) {
	f := newFixture(t, false)
	ok, err := f.run(t, "memmap")
	require.NoError(t, err)
	assert.False(t, ok, "no firmware yet")
	assert.Contains(t, f.out.String(), "no firmware identified")

	_, err = f.s.Identify(context.Background())
	require.NoError(t, err)

	ok, err = f.run(t, "sections")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, f.out.String(), "0x00200000")

	ok, err = f.run(t, "constants")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, f.out.String(), "connection_array_address")
	assert.Contains(t, f.out.String(), "0x00204ba8")
}

func TestReadmem(t *testing.T) {
	f := newFixture(t, true)
	for i, b := range []byte{0xde, 0xad, 0xbe, 0xef} {
		f.chip.Memory[0x200000+uint32(i)] = b
	}

	ok, err := f.run(t, "readmem 0x200000 4")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, f.out.String(), "00200000  de ad be ef")

	ok, err = f.run(t, "hexdump 0x200000")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, DefaultReadLength/16, strings.Count(f.out.String(), "\n"))
}

func TestReadmemToFile(t *testing.T) {
	f := newFixture(t, true)
	f.chip.Memory[0x204ba8] = 0x42
	path := filepath.Join(t.TempDir(), "conn0.bin")

	ok, err := f.run(t, "readmem 0x204ba8 0x150 --out "+path)
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, 0x150)
	assert.Equal(t, byte(0x42), data[0])
}

func TestReadmemRejectsInvalidRanges(t *testing.T) {
	f := newFixture(t, true)
	sent := f.chip.SentCount()

	for _, line := range []string{
		"readmem 0x318000 4",
		"readmem 0x8fff0 0x20",
		"readmem 0x100000",
	} {
		ok, err := f.run(t, line)
		require.NoError(t, err, line)
		assert.False(t, ok, line)
		assert.Contains(t, f.out.String(), "unmapped", line)
	}
	assert.Equal(t, sent, f.chip.SentCount(), "nothing may reach the controller")
}

func TestReadmemWithoutFirmware(t *testing.T) {
	f := newFixture(t, false)
	ok, err := f.run(t, "readmem 0x200000 4")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, f.out.String(), "no firmware identified")
}

func TestReadmemStatusErrorIsRecoverable(t *testing.T) {
	f := newFixture(t, true)
	f.chip.Status[hci.OpBroadcomReadRAM] = 0x12

	ok, err := f.run(t, "readmem 0x200000 4")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, f.out.String(), "invalid HCI command parameters")
}

func TestReadmemTransportFailureIsFatal(t *testing.T) {
	f := newFixture(t, true)
	f.chip.Close()

	ok, err := f.run(t, "readmem 0x200000 4")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestWritemem(t *testing.T) {
	f := newFixture(t, true)

	ok, err := f.run(t, `writemem 0x200000 "de ad" be:ef --yes`)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, byte(0xde), f.chip.Memory[0x200000])
	assert.Equal(t, byte(0xef), f.chip.Memory[0x200003])

	ok, err = f.run(t, "writemem 0x0 00")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, f.out.String(), "read-only")

	ok, err = f.run(t, "writemem 0x200000 abc")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, f.out.String(), "odd number")
}

func TestWritememFromFile(t *testing.T) {
	f := newFixture(t, true)
	path := filepath.Join(t.TempDir(), "patch.bin")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0x55}, 300), 0644))

	ok, err := f.run(t, "writemem 0x200100 --file "+path)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, byte(0x55), f.chip.Memory[0x200100+299])
}

func TestWritememConfirmation(t *testing.T) {
	f := newFixture(t, true)
	f.s.Interactive = true
	var asked int
	answer := false
	f.s.Confirm = func(string) (bool, error) {
		asked++
		return answer, nil
	}

	ok, err := f.run(t, "writemem 0x200000 01")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, asked)
	assert.Zero(t, f.chip.Memory[0x200000])

	answer = true
	ok, err = f.run(t, "writemem 0x200000 01")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, byte(0x01), f.chip.Memory[0x200000])

	ok, err = f.run(t, "writemem 0x200000 02 -y")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, asked, "--yes skips the prompt")
}

func TestSend(t *testing.T) {
	f := newFixture(t, false)

	ok, err := f.run(t, "send 0x1001")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, f.out.String(), "status 0x00 (success)")
	assert.Contains(t, f.out.String(), "19 61")

	ok, err = f.run(t, "send 0xfc4d 00002000 04")
	require.NoError(t, err)
	assert.True(t, ok)
	last := f.chip.Sent[len(f.chip.Sent)-1]
	assert.Equal(t, []byte{0x01, 0x4d, 0xfc, 0x05, 0x00, 0x00, 0x20, 0x00, 0x04}, last)

	ok, err = f.run(t, "send 0x12345")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReset(t *testing.T) {
	f := newFixture(t, false)
	ok, err := f.run(t, "reset")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte{0x01, 0x03, 0x0c, 0x00}, f.chip.Sent[len(f.chip.Sent)-1])
}

func TestUnknownFlag(t *testing.T) {
	f := newFixture(t, true)
	ok, err := f.run(t, "readmem 0x200000 --bogus")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, f.out.String(), "usage: "+readmemUsage)
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		args    []string
		want    []byte
		wantErr bool
	}{
		{[]string{"deadbeef"}, []byte{0xde, 0xad, 0xbe, 0xef}, false},
		{[]string{"de", "ad"}, []byte{0xde, 0xad}, false},
		{[]string{"0xDEAD"}, []byte{0xde, 0xad}, false},
		{[]string{"de:ad be"}, []byte{0xde, 0xad, 0xbe}, false},
		{nil, []byte{}, false},
		{[]string{"abc"}, nil, true},
		{[]string{"zz"}, nil, true},
	}
	for _, tt := range tests {
		got, err := parseHex(tt.args)
		if tt.wantErr {
			assert.Error(t, err, tt.args)
			continue
		}
		require.NoError(t, err, tt.args)
		assert.Equal(t, tt.want, got, tt.args)
	}
}

func TestScript(t *testing.T) {
	f := newFixture(t, true)
	path := filepath.Join(t.TempDir(), "check.lua")
	require.NoError(t, os.WriteFile(path, []byte(`
local v = hci.version()
print(v.lmp_subversion)
mem.write(0x200000, "\1\2")
print(mem.hex(mem.read(0x200000, 2)))
print(mem.classify(0))
print(mem.constant("connection_max"))
local status = hci.send(0x0c03)
print("reset", status)
`), 0644))

	ok, err := f.run(t, "script "+path)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "24857\n0102\nrom\n11\nreset\t0\n", f.out.String())
}

func TestScriptErrors(t *testing.T) {
	f := newFixture(t, true)
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.lua")
	require.NoError(t, os.WriteFile(bad, []byte("this is not lua"), 0644))
	ok, err := f.run(t, "script "+bad)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, f.out.String(), "script error")

	invalid := filepath.Join(dir, "invalid.lua")
	require.NoError(t, os.WriteFile(invalid, []byte("mem.read(0x318000, 4)"), 0644))
	ok, err = f.run(t, "script "+invalid)
	require.NoError(t, err, "an address error is not fatal")
	assert.False(t, ok)

	ok, err = f.run(t, "script "+filepath.Join(dir, "missing.lua"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScriptTransportFailureIsFatal(t *testing.T) {
	f := newFixture(t, true)
	path := filepath.Join(t.TempDir(), "read.lua")
	require.NoError(t, os.WriteFile(path, []byte("mem.read(0x200000, 4)"), 0644))
	f.chip.Close()

	ok, err := f.run(t, "script "+path)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestScriptAbort(t *testing.T) {
	f := newFixture(t, true)
	path := filepath.Join(t.TempDir(), "spin.lua")
	require.NoError(t, os.WriteFile(path, []byte("while true do end"), 0644))

	spec, _ := f.reg.Lookup("script")
	c := spec.New("script "+path, f.s)

	type result struct {
		ok  bool
		err error
	}
	done := make(chan result, 1)
	go func() {
		ok, err := c.Execute(context.Background())
		done <- result{ok, err}
	}()

	time.Sleep(50 * time.Millisecond)
	c.Abort()

	select {
	case r := <-done:
		assert.False(t, r.ok)
		assert.ErrorIs(t, r.err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("script did not stop after Abort")
	}
}
