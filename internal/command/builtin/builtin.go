package builtin

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/pflag"

	"github.com/muurk/hcishell/internal/command"
	"github.com/muurk/hcishell/internal/firmware"
	"github.com/muurk/hcishell/internal/hci"
	"github.com/muurk/hcishell/internal/memory"
	"github.com/muurk/hcishell/internal/session"
	"github.com/muurk/hcishell/internal/ui"
)

// UsageError is an operator mistake in a command line.
type UsageError struct {
	Usage string
	Msg   string
}

func (e *UsageError) Error() string {
	if e.Usage == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s\nusage: %s", e.Msg, e.Usage)
}

// NewRegistry returns a registry holding every built-in command.
func NewRegistry() (*command.Registry, error) {
	var reg *command.Registry
	specs := append([]command.Spec{helpSpec(func() *command.Registry { return reg })}, Specs()...)

	var err error
	reg, err = command.NewRegistry(specs...)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Specs returns the built-in commands except help, which needs the
// registry it lists.
func Specs() []command.Spec {
	return []command.Spec{
		exitSpec,
		infoSpec,
		identifySpec,
		resetSpec,
		sectionsSpec,
		classifySpec,
		constantsSpec,
		sendSpec,
		readmemSpec,
		writememSpec,
		scriptSpec,
	}
}

// base carries what every command needs. Commands embed it.
type base struct {
	command.Base
	s     *session.Session
	line  string
	usage string
	out   *ui.Printer
}

func newBase(line string, s *session.Session, usage string) base {
	var w io.Writer = io.Discard
	if s != nil && s.Out != nil {
		w = s.Out
	}
	return base{s: s, line: line, usage: usage, out: ui.NewPrinter(w)}
}

// parse tokenizes the line and parses flags defined by define. It returns
// the positional arguments after the keyword.
func (b *base) parse(define func(fs *pflag.FlagSet)) ([]string, error) {
	words, err := shellwords.Parse(b.line)
	if err != nil {
		return nil, b.usageErr("%v", err)
	}
	if len(words) == 0 {
		return nil, b.usageErr("empty command")
	}
	name, args := words[0], words[1:]
	// "keyword=value" passes value as the first argument
	if i := strings.IndexByte(name, '='); i >= 0 {
		if v := name[i+1:]; v != "" {
			args = append([]string{v}, args...)
		}
		name = name[:i]
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if define != nil {
		define(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, b.usageErr("%v", err)
	}
	return fs.Args(), nil
}

func (b *base) usageErr(format string, args ...any) error {
	return &UsageError{Usage: b.usage, Msg: fmt.Sprintf(format, args...)}
}

// finish turns err into the command result. Operator errors are printed and
// fail the command; anything else is returned to the loop.
func (b *base) finish(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if recoverable(err) {
		b.out.Printf("error: %v\n", err)
		return false, nil
	}
	return false, err
}

func recoverable(err error) bool {
	var (
		usage       *UsageError
		status      *hci.StatusError
		addr        *memory.AddressError
		unsupported *firmware.UnsupportedFirmwareError
	)
	return errors.As(err, &usage) ||
		errors.As(err, &status) ||
		errors.As(err, &addr) ||
		errors.As(err, &unsupported) ||
		errors.Is(err, session.ErrNoFirmware)
}

// parseHex decodes hex bytes written as one or more arguments. Spaces,
// colons and a leading 0x are ignored.
func parseHex(args []string) ([]byte, error) {
	s := strings.Join(args, "")
	s = strings.NewReplacer(" ", "", ":", "", "\t", "").Replace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd number of hex digits in %q", s)
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data: %w", err)
	}
	return data, nil
}
