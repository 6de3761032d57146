package agent

import (
	"strings"
	"testing"
)

func TestStatusDescription(t *testing.T) {
	tests := []struct {
		name string
		ev   *Event
		want string
	}{
		{"nil event", nil, ""},
		{"no tool", &Event{Kind: EventText}, ""},
		{"write uses file path", &Event{ToolName: "Write", FilePaths: []string{"/w/pkg/main.go"}}, "✏️ Writing: main.go"},
		{"read falls back to input", &Event{ToolName: "Read", ToolInput: map[string]interface{}{"file_path": "/w/README.md"}}, "📖 Reading: README.md"},
		{"bash command truncated", &Event{ToolName: "Bash", ToolInput: map[string]interface{}{"command": strings.Repeat("a", 50)}}, "⚡ Running: " + strings.Repeat("a", 40)},
		{"grep pattern", &Event{ToolName: "Grep", ToolInput: map[string]interface{}{"pattern": "func main"}}, "🔍 Searching: func main"},
		{"unknown tool uses its name", &Event{ToolName: "mcp__custom"}, "mcp__custom"},
		{
			"todo in progress",
			&Event{ToolName: "TodoWrite", ToolInput: map[string]interface{}{"todos": []interface{}{
				map[string]interface{}{"status": "completed", "activeForm": "Done"},
				map[string]interface{}{"status": "in_progress", "activeForm": "Writing tests"},
			}}},
			"📋 Planning: Writing tests",
		},
		{
			"todo count",
			&Event{ToolName: "TodoWrite", ToolInput: map[string]interface{}{"todos": []interface{}{
				map[string]interface{}{"status": "pending"},
			}}},
			"📋 Planning (1 items)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusDescription(tt.ev, nil); got != tt.want {
				t.Errorf("StatusDescription() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusDescription_CustomLabels(t *testing.T) {
	labels := map[string]string{"Read": "Looking at"}
	got := StatusDescription(&Event{ToolName: "Read", FilePaths: []string{"a/b.txt"}}, labels)
	if got != "Looking at: b.txt" {
		t.Errorf("StatusDescription() = %q", got)
	}
}

func TestTruncateHelpers(t *testing.T) {
	if got := truncateRunes("héllo", 2); got != "hé" {
		t.Errorf("truncateRunes() = %q", got)
	}
	if got := truncateWithEllipsis("abcdef", 3); got != "abc..." {
		t.Errorf("truncateWithEllipsis() = %q", got)
	}
	if got := truncateWithEllipsis("abc", 3); got != "abc" {
		t.Errorf("truncateWithEllipsis() = %q", got)
	}
}
