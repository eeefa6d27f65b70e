// Package command defines the contract between the dispatch loop and the
// shell commands, and the keyword registry the loop dispatches through.
package command

import (
	"context"
	"sync"

	"github.com/muurk/hcishell/internal/session"
)

// Command is one invocation, built for a single input line.
type Command interface {
	// Execute runs the command. It reports success, or returns an error for
	// failures the loop must treat as fatal.
	Execute(ctx context.Context) (bool, error)

	// Abort asks a running Execute to stop. It may be called from another
	// goroutine and more than once.
	Abort()
}

// Factory builds a command from the raw input line.
type Factory func(line string, s *session.Session) Command

// Spec declares a command type.
type Spec struct {
	Keywords    []string
	Description string
	Usage       string
	New         Factory
}

// Base implements Abort for embedding.
type Base struct {
	once    sync.Once
	aborted chan struct{}
	initMu  sync.Mutex
}

func (b *Base) ch() chan struct{} {
	b.initMu.Lock()
	defer b.initMu.Unlock()
	if b.aborted == nil {
		b.aborted = make(chan struct{})
	}
	return b.aborted
}

// Abort closes the Aborted channel.
func (b *Base) Abort() {
	ch := b.ch()
	b.once.Do(func() { close(ch) })
}

// Aborted is closed once Abort has been called.
func (b *Base) Aborted() <-chan struct{} {
	return b.ch()
}

// IsAborted reports whether Abort has been called.
func (b *Base) IsAborted() bool {
	select {
	case <-b.Aborted():
		return true
	default:
		return false
	}
}
