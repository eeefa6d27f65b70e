package ui

import (
	"fmt"
	"strings"

	"github.com/muurk/hcishell/internal/memory"
)

const bytesPerLine = 16

// FormatHexDump formats data as a canonical hex dump with addresses
// starting at base.
func FormatHexDump(base uint32, data []byte) string {
	var b strings.Builder
	for off := 0; off < len(data); off += bytesPerLine {
		end := off + bytesPerLine
		if end > len(data) {
			end = len(data)
		}
		line := data[off:end]

		fmt.Fprintf(&b, "%08x  ", base+uint32(off))
		for i := 0; i < bytesPerLine; i++ {
			if i < len(line) {
				fmt.Fprintf(&b, "%02x ", line[i])
			} else {
				b.WriteString("   ")
			}
			if i == 7 {
				b.WriteByte(' ')
			}
		}
		b.WriteString(" |")
		for _, c := range line {
			if c >= 0x20 && c < 0x7f {
				b.WriteByte(c)
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteString("|\n")
	}
	return b.String()
}

// FormatSectionTable lists sections with their classification.
func FormatSectionTable(sections []memory.Section) string {
	if len(sections) == 0 {
		return "  (no sections)\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "  %-10s  %-10s  %10s  %-8s  %s\n", "START", "END", "SIZE", "REGION", "NAME")
	for _, s := range sections {
		region := s.Region()
		fmt.Fprintf(&b, "  %s  %s  %10d  %s  %s\n",
			AddressStyle.Render(fmt.Sprintf("0x%08x", s.Start)),
			AddressStyle.Render(fmt.Sprintf("0x%08x", s.End)),
			s.Size(),
			RegionStyle(region).Render(fmt.Sprintf("%-8s", region)),
			s.Name,
		)
	}
	return b.String()
}
