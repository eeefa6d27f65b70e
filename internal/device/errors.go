package device

import "errors"

var (
	// ErrNoMatchingDevice is returned when an explicit interface id matches
	// no enumerated device.
	ErrNoMatchingDevice = errors.New("no device matches the requested interface")

	// ErrAmbiguousDevice is returned when an explicit interface id matches
	// more than one device.
	ErrAmbiguousDevice = errors.New("more than one device matches the requested interface")

	// ErrNoDevices is returned when no backend reports any device.
	ErrNoDevices = errors.New("no devices found")

	// ErrSelectionRequired is returned when several devices are available
	// and there is no chooser to ask.
	ErrSelectionRequired = errors.New("several devices found; pick one with --device")

	// ErrInvalidChoice is returned when a chooser returns an index out of range.
	ErrInvalidChoice = errors.New("invalid device choice")

	// ErrReplayBackend is returned when replay mode is not configured with
	// exactly one backend.
	ErrReplayBackend = errors.New("replay needs exactly one backend")
)
