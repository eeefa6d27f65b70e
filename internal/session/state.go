package session

import "sync/atomic"

// State is the run state shared by the dispatch loop, the commands and the
// interrupt path. The zero value is stopped.
type State struct {
	running       atomic.Bool
	exitRequested atomic.Bool
}

// NewState returns a stopped state.
func NewState() *State {
	return &State{}
}

// Start marks the session running and clears a previous exit request.
func (s *State) Start() {
	s.exitRequested.Store(false)
	s.running.Store(true)
}

// Running reports whether the session has been started and not stopped.
func (s *State) Running() bool {
	return s.running.Load()
}

// ExitRequested reports whether anything asked the loop to terminate.
func (s *State) ExitRequested() bool {
	return s.exitRequested.Load()
}

// Active is true while the loop should keep going.
func (s *State) Active() bool {
	return s.running.Load() && !s.exitRequested.Load()
}

// RequestExit asks the loop to stop after the current iteration.
func (s *State) RequestExit() {
	s.exitRequested.Store(true)
}

// Stop marks the session no longer running.
func (s *State) Stop() {
	s.running.Store(false)
}
