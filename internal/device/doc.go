// Package device enumerates candidate controllers across backends and
// resolves the one a session will use.
//
// Every backend reports the interfaces it can reach as Records. Select merges
// those results and applies, in order: replay bypass, explicit interface
// filter, single-candidate auto-selection, and finally an interactive
// Chooser. A backend that fails to enumerate is logged and skipped; it never
// aborts selection.
package device
