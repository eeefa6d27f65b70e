package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/hcishell/internal/command"
	"github.com/muurk/hcishell/internal/session"
	"github.com/muurk/hcishell/internal/ui"
)

// Config configures a Loop.
type Config struct {
	Registry *command.Registry
	Session  *session.Session

	// Startup lines run before interactive input, front to back.
	Startup []string

	// Reader supplies interactive input; nil ends the loop after Startup.
	Reader LineReader

	// Signals routes SIGINT to Interrupt while Run is active.
	Signals bool

	Out    io.Writer
	Logger *zap.Logger
}

// Loop is the command dispatch loop.
type Loop struct {
	registry *command.Registry
	session  *session.Session
	reader   LineReader
	signals  bool
	out      *ui.Printer
	logger   *zap.Logger

	queue []string

	mu          sync.Mutex
	current     command.Command
	cancel      context.CancelFunc
	interrupted bool
	fatal       error
}

// New returns a loop over cfg.
func New(cfg Config) *Loop {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	out := cfg.Out
	if out == nil {
		out = cfg.Session.Out
	}
	return &Loop{
		registry: cfg.Registry,
		session:  cfg.Session,
		reader:   cfg.Reader,
		signals:  cfg.Signals,
		out:      ui.NewPrinter(out),
		logger:   logger,
		queue:    append([]string(nil), cfg.Startup...),
	}
}

// Run dispatches lines until exit is requested, input ends, or a command
// fails fatally. The fatal error is returned.
func (l *Loop) Run(ctx context.Context) error {
	if l.signals {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt)
		done := make(chan struct{})
		defer func() {
			signal.Stop(sigs)
			close(done)
		}()
		go func() {
			for {
				select {
				case <-sigs:
					l.Interrupt()
				case <-done:
					return
				}
			}
		}()
	}

	state := l.session.State
	for state.Active() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := l.next()
		switch {
		case errors.Is(err, io.EOF):
			l.logger.Debug("input closed")
			return nil
		case errors.Is(err, ErrInterrupt):
			l.Interrupt()
			continue
		case err != nil:
			return fmt.Errorf("read input: %w", err)
		}

		if l.Step(ctx, line) == OutcomeFatal {
			return l.Err()
		}
	}
	return nil
}

func (l *Loop) next() (string, error) {
	if len(l.queue) > 0 {
		line := l.queue[0]
		l.queue = l.queue[1:]
		return line, nil
	}
	if l.reader == nil {
		return "", io.EOF
	}
	return l.reader.ReadLine()
}

// Err returns the error of the last fatal dispatch.
func (l *Loop) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fatal
}

// Step dispatches one line.
func (l *Loop) Step(ctx context.Context, line string) Outcome {
	keyword := Keyword(line)
	if keyword == "" {
		return OutcomeEmpty
	}

	spec, ok := l.registry.Lookup(keyword)
	if !ok {
		l.logger.Warn("unknown command", zap.String("keyword", keyword))
		l.out.Printf("Unknown command %q. Type 'help' for a list of commands.\n", keyword)
		return OutcomeUnknown
	}

	cctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cmd := spec.New(line, l.session)

	l.mu.Lock()
	l.current, l.cancel, l.interrupted = cmd, cancel, false
	l.mu.Unlock()

	succeeded, interrupted, err := l.execute(cctx, keyword, cmd)

	switch {
	case interrupted && !(succeeded && err == nil):
		l.logger.Warn("command interrupted", zap.String("command", keyword))
		return OutcomeInterrupted
	case err != nil && errors.Is(err, context.Canceled) && ctx.Err() == nil:
		l.logger.Warn("command cancelled", zap.String("command", keyword))
		return OutcomeInterrupted
	case err != nil && errors.Is(err, os.ErrPermission):
		l.logger.Error("permission denied; elevated privileges may be required",
			zap.String("command", keyword), zap.Error(err))
		l.out.PrintFailure("Permission denied", err)
		return OutcomePermissionDenied
	case err != nil:
		l.session.State.RequestExit()
		l.logger.Error("command failed fatally", zap.String("command", keyword), zap.Error(err))
		l.mu.Lock()
		l.fatal = fmt.Errorf("%s: %w", keyword, err)
		l.mu.Unlock()
		return OutcomeFatal
	case !succeeded:
		l.logger.Warn("command failed", zap.String("command", keyword))
		return OutcomeFailed
	default:
		return OutcomeSucceeded
	}
}

// execute runs cmd and detaches it from Interrupt before returning.
// interrupted reports whether an abort reached cmd while it ran; a command
// that still completed successfully is not treated as interrupted.
func (l *Loop) execute(ctx context.Context, keyword string, cmd command.Command) (ok, interrupted bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("command %s panicked: %v", keyword, r)
		}
		l.mu.Lock()
		interrupted = l.interrupted
		l.current, l.cancel = nil, nil
		l.mu.Unlock()
	}()
	ok, err = cmd.Execute(ctx)
	return ok, false, err
}

// Interrupt aborts the running command, or asks the loop to terminate when
// none is running. It is safe to call from any goroutine.
func (l *Loop) Interrupt() {
	l.mu.Lock()
	cmd, cancel := l.current, l.cancel
	if cmd != nil {
		// delivered under mu so execute cannot detach cmd halfway
		cancel()
		cmd.Abort()
		l.interrupted = true
	}
	l.mu.Unlock()

	if cmd == nil {
		l.logger.Debug("interrupt at prompt, exiting")
		l.session.State.RequestExit()
		return
	}
	l.logger.Debug("interrupted running command")
}
