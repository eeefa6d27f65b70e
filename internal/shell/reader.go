package shell

import (
	"errors"
	"strings"

	"github.com/chzyer/readline"

	"github.com/muurk/hcishell/internal/command"
)

// ErrInterrupt is returned by a LineReader when the operator presses
// Ctrl-C at the prompt.
var ErrInterrupt = errors.New("interrupted")

// LineReader supplies interactive input. ReadLine returns io.EOF when input
// ends.
type LineReader interface {
	ReadLine() (string, error)
	Close() error
}

// ReaderConfig configures NewReadline.
type ReaderConfig struct {
	Prompt string
	// HistoryFile is loaded at start and appended to per line; empty
	// disables history.
	HistoryFile string
	// Registry supplies keyword completion.
	Registry *command.Registry
}

// Readline is the terminal LineReader with history and completion.
type Readline struct {
	rl *readline.Instance
}

// NewReadline opens a readline instance on the terminal.
func NewReadline(cfg ReaderConfig) (*Readline, error) {
	rc := &readline.Config{
		Prompt:            cfg.Prompt,
		HistoryFile:       cfg.HistoryFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	}
	if cfg.Registry != nil {
		rc.AutoComplete = &completer{registry: cfg.Registry}
	}
	rl, err := readline.NewEx(rc)
	if err != nil {
		return nil, err
	}
	return &Readline{rl: rl}, nil
}

// ReadLine implements LineReader.
func (r *Readline) ReadLine() (string, error) {
	line, err := r.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", ErrInterrupt
	}
	return line, err
}

// Close restores the terminal and flushes history.
func (r *Readline) Close() error {
	return r.rl.Close()
}

// completer completes the command keyword; arguments are not completed.
type completer struct {
	registry *command.Registry
}

func (c *completer) Do(line []rune, pos int) ([][]rune, int) {
	prefix := string(line[:pos])
	if strings.ContainsAny(prefix, " =") {
		return nil, 0
	}

	var out [][]rune
	for _, kw := range c.registry.Complete(prefix) {
		out = append(out, []rune(kw[len(prefix):]+" "))
	}
	return out, len([]rune(prefix))
}
