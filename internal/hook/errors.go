package hook

import (
	"errors"
	"fmt"

	"github.com/muurk/hcishell/internal/urls"
)

var (
	// ErrUnknownHookVariant is returned for a hook name that is not trace,
	// record or replay.
	ErrUnknownHookVariant = errors.New("unknown hook variant")

	// ErrAttachAfterOpen is returned when a hook is attached to, or detached
	// from, a backend kind that has already been opened.
	ErrAttachAfterOpen = errors.New("hooks must be attached before the backend is opened")

	// ErrReplayExhausted is returned by a replay receive when no recorded
	// receive frames remain.
	ErrReplayExhausted = errors.New("replay exhausted: no recorded receive frames remain")

	// ErrDuplicateHook is returned when the same variant is attached twice to
	// one backend kind.
	ErrDuplicateHook = errors.New("hook variant already attached")
)

// UnknownVariantError names the rejected variant.
type UnknownVariantError struct {
	Name string
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("unknown hook variant %q (valid: trace, record, replay)", e.Name)
}

func (e *UnknownVariantError) Unwrap() error {
	return ErrUnknownHookVariant
}

// ReplayFileError is returned when a replay file cannot be used.
// It is fatal at startup and never retried.
type ReplayFileError struct {
	Path string
	Err  error
}

func (e *ReplayFileError) Error() string {
	return fmt.Sprintf("cannot replay %s: %v\nHint: replay files are written with --save, see %s",
		e.Path, e.Err, urls.TraceFiles)
}

func (e *ReplayFileError) Unwrap() error {
	return e.Err
}

// ReplayMismatchError is returned in strict replay mode when the session
// diverges from the recording.
type ReplayMismatchError struct {
	// Frame is the index of the recorded frame involved
	Frame  int
	Reason string
	Want   []byte
	Got    []byte
}

func (e *ReplayMismatchError) Error() string {
	return fmt.Sprintf("replay mismatch at frame %d: %s", e.Frame, e.Reason)
}
