package agent

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultToolLabels maps tool names to human status labels
var DefaultToolLabels = map[string]string{
	"Read":      "📖 Reading",
	"Write":     "✏️ Writing",
	"Edit":      "🔧 Editing",
	"MultiEdit": "🔧 Editing",
	"Bash":      "⚡ Running",
	"shell":     "⚡ Running",
	"Grep":      "🔍 Searching",
	"Glob":      "🔍 Finding files",
	"WebSearch": "🌐 Searching the web",
	"WebFetch":  "🌐 Fetching",
	"Task":      "🤖 Delegating",
	"TodoWrite": "📋 Planning",
}

// StatusDescription builds the status label for a tool_use event: the tool's
// human label plus a short excerpt of its most salient argument.
// Returns "" when the event names no tool.
func StatusDescription(ev *Event, labels map[string]string) string {
	if ev == nil || ev.ToolName == "" {
		return ""
	}
	if labels == nil {
		labels = DefaultToolLabels
	}
	label, ok := labels[ev.ToolName]
	if !ok {
		label = ev.ToolName
	}

	switch ev.ToolName {
	case "Write", "Edit", "MultiEdit", "Read":
		if len(ev.FilePaths) > 0 {
			label += ": " + filepath.Base(ev.FilePaths[0])
		} else if fp := GetString(ev.ToolInput, "file_path"); fp != "" {
			label += ": " + filepath.Base(fp)
		}
	case "Bash", "shell":
		if cmd := GetString(ev.ToolInput, "command"); cmd != "" {
			label += ": " + truncateRunes(cmd, 40)
		}
	case "Grep", "Glob":
		if pat := GetString(ev.ToolInput, "pattern"); pat != "" {
			label += ": " + truncateRunes(pat, 30)
		}
	case "TodoWrite":
		todos, _ := GetSlice(ev.ToolInput, "todos")
		for _, item := range todos {
			todo, ok := item.(map[string]interface{})
			if ok && GetString(todo, "status") == "in_progress" {
				return label + ": " + truncateRunes(GetString(todo, "activeForm"), 30)
			}
		}
		label += fmt.Sprintf(" (%d items)", len(todos))
	}
	return label
}

// truncateRunes returns the first n characters of s
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// truncateWithEllipsis truncates s to n characters, appending "..." when cut
func truncateWithEllipsis(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return truncateRunes(s, n) + "..."
}

// joinTexts joins text chunks the way the final output is assembled
func joinTexts(chunks []string) string {
	return strings.Join(chunks, "\n\n")
}
