package shell

import "strings"

// SplitCommands splits a startup string on ';' and drops empty entries.
// The result is in the order written.
func SplitCommands(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Keyword returns the command word of line: the text up to the first
// space, cut at the first '='.
func Keyword(line string) string {
	line = strings.TrimSpace(line)
	if i := strings.IndexByte(line, ' '); i >= 0 {
		line = line[:i]
	}
	if i := strings.IndexByte(line, '='); i >= 0 {
		line = line[:i]
	}
	return line
}
