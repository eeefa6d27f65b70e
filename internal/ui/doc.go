// Package ui provides the terminal presentation of hcishell.
//
// Output follows a "print and move on" pattern: boxes and tables are
// rendered with Lipgloss and written to a writer, so command output stays
// scriptable and the interactive prompt owns the terminal between commands.
// Bubble Tea is only started for short-lived widgets: the spinner shown
// while backends enumerate, and the Huh prompts used to pick a device or
// confirm a memory write.
//
// # Components
//
//   - Banner: session header (device, backend, firmware, hooks)
//   - Result: success, failure and warning boxes with troubleshooting tips
//   - Progress: transfer bar for long memory reads and writes
//   - HexDump and SectionTable: formatted memory output
//   - DeviceChooser and Confirm: interactive prompts
//
// Widgets fall back to plain output when stdout is not a terminal.
//
// # Logging Integration
//
// Logging goes to stderr through internal/logging and is controlled by
// HCISHELL_LOG_LEVEL or --log-level, so it never interleaves with the
// rendered output on stdout.
package ui
