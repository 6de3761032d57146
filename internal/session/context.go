package session

import (
	"strings"
)

// ContextPrompt prefixes message with the last n exchanges of summary, each
// output cut to limit characters. Without exchanges message is returned as is.
func ContextPrompt(summary *Summary, n, limit int, message string) string {
	recent := summary.Recent(n)
	if len(recent) == 0 {
		return message
	}

	lines := make([]string, 0, 2*len(recent))
	for _, ex := range recent {
		lines = append(lines, "User: "+ex.User)
		out := ex.Output
		if len([]rune(out)) > limit {
			out = truncate(out, limit) + "..."
		}
		lines = append(lines, "Assistant: "+out)
	}

	return "[Previous conversation]\n" + strings.Join(lines, "\n") + "\n\n" + CurrentRequestMarker + message
}
