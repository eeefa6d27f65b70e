package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// Progress renders a one-line transfer bar for memory reads and writes. It
// only draws when its writer is a terminal.
type Progress struct {
	Label string
	Total uint32

	out     io.Writer
	enabled bool
	drawn   bool
	bar     progress.Model
}

// NewProgress creates a progress line for a transfer of total bytes
func NewProgress(out io.Writer, label string, total uint32) *Progress {
	barWidth := GetTerminalWidth() - 40
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	return &Progress{
		Label:   label,
		Total:   total,
		out:     out,
		enabled: IsTerminal(out),
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(barWidth),
		),
	}
}

// Percent returns the fraction of total for done.
func (p *Progress) Percent(done uint32) float64 {
	if p.Total == 0 {
		return 1
	}
	if done >= p.Total {
		return 1
	}
	return float64(done) / float64(p.Total)
}

// Render returns the progress line for done bytes.
func (p *Progress) Render(done uint32) string {
	pct := p.Percent(done)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		ProgressLabelStyle.Render(p.Label),
		"  ",
		p.bar.ViewAs(pct),
		fmt.Sprintf("  %3.0f%%  %d/%d", pct*100, done, p.Total),
	)
}

// Update redraws the line; it matches the progress callbacks of hci.Client.
func (p *Progress) Update(done uint32) {
	if !p.enabled {
		return
	}
	p.drawn = true
	_, _ = fmt.Fprint(p.out, "\r"+p.Render(done))
}

// Done ends the progress line.
func (p *Progress) Done() {
	if p.drawn {
		_, _ = fmt.Fprintln(p.out)
		p.drawn = false
	}
}
