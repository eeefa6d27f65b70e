package ui

import (
	"context"
	"errors"

	"github.com/charmbracelet/huh"

	"github.com/muurk/hcishell/internal/device"
)

// ErrSelectionCancelled is returned when the operator aborts the device
// prompt.
var ErrSelectionCancelled = errors.New("device selection cancelled")

// DeviceChooser asks the operator to pick a device with a select prompt.
type DeviceChooser struct {
	Title string
}

// Choose implements device.Chooser.
func (c DeviceChooser) Choose(ctx context.Context, records []device.Record) (int, error) {
	title := c.Title
	if title == "" {
		title = "Several controllers found. Select one:"
	}

	options := make([]huh.Option[int], len(records))
	for i, rec := range records {
		options[i] = huh.NewOption(rec.String(), i)
	}

	choice := -1
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[int]().
			Title(title).
			Options(options...).
			Value(&choice),
	)).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return -1, ErrSelectionCancelled
	}
	if err != nil {
		return -1, err
	}
	return choice, nil
}

var _ device.Chooser = DeviceChooser{}
