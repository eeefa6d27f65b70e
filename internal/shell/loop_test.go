package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/hcishell/internal/command"
	"github.com/muurk/hcishell/internal/hci/hcitest"
	"github.com/muurk/hcishell/internal/session"
)

type fakeCmd struct {
	command.Base
	run func(ctx context.Context, c *fakeCmd) (bool, error)
}

func (c *fakeCmd) Execute(ctx context.Context) (bool, error) { return c.run(ctx, c) }

type harness struct {
	mu      sync.Mutex
	lines   []string
	created int
	aborted bool
	started chan struct{}
	// finishing runs inside the "late" command just before it succeeds
	finishing func()
}

func (h *harness) spec(word string, run func(ctx context.Context, c *fakeCmd) (bool, error)) command.Spec {
	return command.Spec{
		Keywords: []string{word},
		New: func(line string, s *session.Session) command.Command {
			h.mu.Lock()
			h.created++
			h.mu.Unlock()
			return &fakeCmd{run: run}
		},
	}
}

func newHarness(t *testing.T) (*harness, *command.Registry, *session.Session, *bytes.Buffer) {
	t.Helper()
	h := &harness{started: make(chan struct{}, 1)}

	var s *session.Session
	reg, err := command.NewRegistry(
		command.Spec{
			Keywords: []string{"rec"},
			New: func(line string, _ *session.Session) command.Command {
				return &fakeCmd{run: func(context.Context, *fakeCmd) (bool, error) {
					h.mu.Lock()
					h.lines = append(h.lines, line)
					h.mu.Unlock()
					return true, nil
				}}
			},
		},
		h.spec("fail", func(context.Context, *fakeCmd) (bool, error) { return false, nil }),
		h.spec("boom", func(context.Context, *fakeCmd) (bool, error) { return false, errors.New("transport gone") }),
		h.spec("perm", func(context.Context, *fakeCmd) (bool, error) {
			return false, fmt.Errorf("open /dev/ttyUSB0: %w", os.ErrPermission)
		}),
		h.spec("panic", func(context.Context, *fakeCmd) (bool, error) { panic("bad index") }),
		h.spec("exit", func(context.Context, *fakeCmd) (bool, error) {
			s.State.RequestExit()
			return true, nil
		}),
		h.spec("late", func(context.Context, *fakeCmd) (bool, error) {
			if h.finishing != nil {
				h.finishing()
			}
			return true, nil
		}),
		h.spec("block", func(ctx context.Context, c *fakeCmd) (bool, error) {
			h.started <- struct{}{}
			select {
			case <-c.Aborted():
				h.mu.Lock()
				h.aborted = true
				h.mu.Unlock()
				<-ctx.Done()
				return false, ctx.Err()
			case <-time.After(5 * time.Second):
				return true, nil
			}
		}),
	)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	s, err = session.New(hcitest.NewController(0x6119), session.Params{Out: out})
	require.NoError(t, err)
	s.State.Start()
	return h, reg, s, out
}

func TestSplitCommands(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a; b;c", []string{"a", "b", "c"}},
		{"  readmem 0x200000 16 ;; info ;", []string{"readmem 0x200000 16", "info"}},
		{"", nil},
		{" ; ", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitCommands(tt.in), tt.in)
	}
}

func TestKeyword(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"readmem 0x200000 16", "readmem"},
		{"  info  ", "info"},
		{"classify=0x200000", "classify"},
		{"send=1 2", "send"},
		{"help", "help"},
		{"=foo", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Keyword(tt.line); got != tt.want {
			t.Errorf("Keyword(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestStepUnknownKeyword(t *testing.T) {
	h, reg, s, out := newHarness(t)
	l := New(Config{Registry: reg, Session: s})

	assert.Equal(t, OutcomeUnknown, l.Step(context.Background(), "frobnicate 1 2"))
	assert.Contains(t, out.String(), `Unknown command "frobnicate"`)
	assert.Equal(t, OutcomeUnknown, l.Step(context.Background(), "REC x"), "lookup is case-sensitive")
	assert.True(t, s.State.Active())
	assert.Zero(t, h.created)
}

func TestStepEmptyLine(t *testing.T) {
	h, reg, s, out := newHarness(t)
	l := New(Config{Registry: reg, Session: s})

	for _, line := range []string{"", "   ", "\t", "=foo", " =1 2"} {
		assert.Equal(t, OutcomeEmpty, l.Step(context.Background(), line))
	}
	assert.Zero(t, h.created)
	assert.Empty(t, h.lines)
	assert.Empty(t, out.String(), "empty keywords are not reported as unknown")
}

func TestStepOutcomes(t *testing.T) {
	tests := []struct {
		line       string
		want       Outcome
		exitAsked  bool
		fatalError bool
	}{
		{"rec", OutcomeSucceeded, false, false},
		{"fail", OutcomeFailed, false, false},
		{"perm", OutcomePermissionDenied, false, false},
		{"boom", OutcomeFatal, true, true},
		{"panic", OutcomeFatal, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, reg, s, _ := newHarness(t)
			l := New(Config{Registry: reg, Session: s})

			assert.Equal(t, tt.want, l.Step(context.Background(), tt.line))
			assert.Equal(t, tt.exitAsked, s.State.ExitRequested())
			assert.Equal(t, tt.fatalError, l.Err() != nil)
		})
	}
}

func TestRunFatalErrorTerminates(t *testing.T) {
	h, reg, s, _ := newHarness(t)
	l := New(Config{Registry: reg, Session: s, Startup: []string{"rec 1", "boom", "rec 2"}})

	err := l.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom: transport gone")
	assert.True(t, s.State.ExitRequested())
	assert.Equal(t, []string{"rec 1"}, h.lines)
}

func TestRunStartupQueueFrontToBack(t *testing.T) {
	h, reg, s, _ := newHarness(t)
	l := New(Config{Registry: reg, Session: s, Startup: SplitCommands("rec a; rec b;rec c")})

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, []string{"rec a", "rec b", "rec c"}, h.lines)
}

func TestRunContinuesAfterRecoverableOutcomes(t *testing.T) {
	h, reg, s, _ := newHarness(t)
	l := New(Config{Registry: reg, Session: s, Startup: []string{"nosuch", "", "fail", "perm", "rec done"}})

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, []string{"rec done"}, h.lines)
}

func TestRunStopsOnExit(t *testing.T) {
	h, reg, s, _ := newHarness(t)
	l := New(Config{Registry: reg, Session: s, Startup: []string{"exit", "rec never"}})

	require.NoError(t, l.Run(context.Background()))
	assert.Empty(t, h.lines)
}

type scriptedReader struct {
	lines  []string
	errs   []error
	closed bool
}

func (r *scriptedReader) ReadLine() (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line, err := r.lines[0], r.errs[0]
	r.lines, r.errs = r.lines[1:], r.errs[1:]
	return line, err
}

func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

func TestRunReadsInteractiveInputAfterQueue(t *testing.T) {
	h, reg, s, _ := newHarness(t)
	reader := &scriptedReader{lines: []string{"rec typed"}, errs: []error{nil}}
	l := New(Config{Registry: reg, Session: s, Startup: []string{"rec queued"}, Reader: reader})

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, []string{"rec queued", "rec typed"}, h.lines)
}

func TestRunInterruptAtPromptExits(t *testing.T) {
	h, reg, s, _ := newHarness(t)
	reader := &scriptedReader{
		lines: []string{"", "rec never"},
		errs:  []error{ErrInterrupt, nil},
	}
	l := New(Config{Registry: reg, Session: s, Reader: reader})

	require.NoError(t, l.Run(context.Background()))
	assert.True(t, s.State.ExitRequested())
	assert.Empty(t, h.lines)
}

func TestRunReaderError(t *testing.T) {
	_, reg, s, _ := newHarness(t)
	reader := &scriptedReader{lines: []string{""}, errs: []error{errors.New("tty gone")}}
	l := New(Config{Registry: reg, Session: s, Reader: reader})

	err := l.Run(context.Background())
	assert.ErrorContains(t, err, "tty gone")
}

func TestInterruptAbortsRunningCommand(t *testing.T) {
	h, reg, s, _ := newHarness(t)
	l := New(Config{Registry: reg, Session: s})

	done := make(chan Outcome, 1)
	go func() { done <- l.Step(context.Background(), "block") }()

	select {
	case <-h.started:
	case <-time.After(5 * time.Second):
		t.Fatal("command did not start")
	}
	l.Interrupt()

	select {
	case outcome := <-done:
		assert.Equal(t, OutcomeInterrupted, outcome)
	case <-time.After(5 * time.Second):
		t.Fatal("command was not interrupted")
	}
	h.mu.Lock()
	assert.True(t, h.aborted)
	h.mu.Unlock()
	assert.True(t, s.State.Active(), "interrupting a command keeps the loop running")
	assert.NoError(t, l.Err())
}

func TestInterruptAsCommandCompletes(t *testing.T) {
	h, reg, s, _ := newHarness(t)
	l := New(Config{Registry: reg, Session: s})
	h.finishing = l.Interrupt

	assert.Equal(t, OutcomeSucceeded, l.Step(context.Background(), "late"))
	assert.True(t, s.State.Active())

	// the command is detached once Step returns
	l.Interrupt()
	assert.True(t, s.State.ExitRequested())
}

func TestInterruptIdleRequestsExit(t *testing.T) {
	_, reg, s, _ := newHarness(t)
	l := New(Config{Registry: reg, Session: s})

	l.Interrupt()
	assert.True(t, s.State.ExitRequested())
}

func TestRunChecksActiveState(t *testing.T) {
	h, reg, s, _ := newHarness(t)
	s.State.Stop()
	l := New(Config{Registry: reg, Session: s, Startup: []string{"rec a"}})

	require.NoError(t, l.Run(context.Background()))
	assert.Empty(t, h.lines)
}

func TestRunCancelledContext(t *testing.T) {
	_, reg, s, _ := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := New(Config{Registry: reg, Session: s, Startup: []string{"rec a"}})
	assert.ErrorIs(t, l.Run(ctx), context.Canceled)
}

func TestCompleter(t *testing.T) {
	_, reg, _, _ := newHarness(t)
	c := &completer{registry: reg}

	got, length := c.Do([]rune("re"), 2)
	assert.Equal(t, 2, length)
	assert.Equal(t, [][]rune{[]rune("c ")}, got)

	got, _ = c.Do([]rune("rec 1"), 5)
	assert.Empty(t, got, "arguments are not completed")

	got, length = c.Do([]rune(""), 0)
	assert.Equal(t, 0, length)
	assert.Len(t, got, 7)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "permission denied", OutcomePermissionDenied.String())
	assert.Equal(t, "invalid", Outcome(99).String())
}
