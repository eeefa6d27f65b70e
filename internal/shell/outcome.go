package shell

// Outcome is the result of dispatching one line.
type Outcome int

const (
	// OutcomeEmpty means the line was blank and nothing ran.
	OutcomeEmpty Outcome = iota
	// OutcomeUnknown means no command owns the keyword.
	OutcomeUnknown
	OutcomeSucceeded
	// OutcomeFailed means the command reported failure; the loop continues.
	OutcomeFailed
	// OutcomeInterrupted means the command was aborted by an interrupt.
	OutcomeInterrupted
	// OutcomePermissionDenied means the command could not open a resource;
	// the loop continues.
	OutcomePermissionDenied
	// OutcomeFatal means the command raised an error; exit has been
	// requested.
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEmpty:
		return "empty"
	case OutcomeUnknown:
		return "unknown"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeInterrupted:
		return "interrupted"
	case OutcomePermissionDenied:
		return "permission denied"
	case OutcomeFatal:
		return "fatal"
	default:
		return "invalid"
	}
}
