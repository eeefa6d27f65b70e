package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Banner is the box printed when a session starts.
type Banner struct {
	Title    string   // e.g., "HCI SHELL"
	Subtitle string   // e.g., "hcishell v1.2.0"
	Params   []Detail // e.g., Device, Backend, Firmware, Hooks
	Width    int
}

// NewBanner creates a banner with the given values
func NewBanner(title, subtitle string, params ...Detail) *Banner {
	return &Banner{Title: title, Subtitle: subtitle, Params: params, Width: GetTerminalWidth()}
}

// SetWidth sets the terminal width for responsive rendering
func (b *Banner) SetWidth(width int) *Banner {
	b.Width = width
	return b
}

// Render returns the styled banner as a string
func (b *Banner) Render() string {
	width := clampWidth(b.Width)

	top := lipgloss.JoinVertical(lipgloss.Left,
		BannerTitleStyle.Render(strings.ToUpper(b.Title)),
		BannerSubtitleStyle.Render(b.Subtitle),
	)

	content := top
	if len(b.Params) > 0 {
		dividerWidth := width - 6
		if dividerWidth < 10 {
			dividerWidth = 10
		}
		divider := lipgloss.NewStyle().
			Foreground(PrimaryColor).
			PaddingLeft(2).
			Render(strings.Repeat("─", dividerWidth-2))

		lines := make([]string, 0, len(b.Params))
		for _, p := range b.Params {
			lines = append(lines, ParamKeyStyle.Render(p.Key+":")+" "+ParamValueStyle.Render(p.Value))
		}
		content = lipgloss.JoinVertical(lipgloss.Left, top, divider, strings.Join(lines, "\n"))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2).
		Render(content)
}

// String implements fmt.Stringer
func (b *Banner) String() string {
	return b.Render()
}
