package firmware

import (
	"fmt"
	"strings"

	"github.com/muurk/hcishell/internal/urls"
)

// UnsupportedFirmwareError is returned when the controller reports a
// subversion that is not in the catalog.
type UnsupportedFirmwareError struct {
	Subversion uint16
	Available  []*Firmware
}

func (e *UnsupportedFirmwareError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "unsupported firmware: lmp subversion 0x%04x\n\n", e.Subversion)
	b.WriteString("Memory commands need a section table for this controller.\n")
	b.WriteString("Add an entry with --firmware-file or see " + urls.SupportedFirmware + "\n\n")
	b.WriteString("Known firmwares:\n")
	if len(e.Available) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, fw := range e.Available {
		fmt.Fprintf(&b, "  - %s\n", fw)
	}
	return strings.TrimRight(b.String(), "\n")
}
