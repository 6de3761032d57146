package gemini

import (
	"strings"

	"github.com/xmin-02/sumone/internal/agent"
)

// Record types in stream-json output
const (
	typeInit       = "init"
	typeMessage    = "message"
	typeToolUse    = "tool_use"
	typeToolResult = "tool_result"
	typeError      = "error"
	typeResult     = "result"
)

// ParseEvent translates one gemini stream-json record into events
func (a *Adapter) ParseEvent(raw map[string]interface{}) []*agent.Event {
	switch agent.GetString(raw, "type") {
	case typeInit:
		return []*agent.Event{agent.NewEvent(agent.GetString(raw, "session_id"))}

	case typeMessage:
		ev := agent.NewEvent("")
		if agent.GetString(raw, "role") == "assistant" {
			if text := strings.TrimSpace(agent.GetString(raw, "content")); text != "" {
				ev.Kind = agent.EventText
				ev.Text = text
			}
		}
		return []*agent.Event{ev}

	case typeToolUse:
		return []*agent.Event{a.parseToolUse(raw)}

	case typeError:
		ev := agent.NewEvent("")
		text := agent.GetString(raw, "message")
		if text == "" {
			text = agent.GetString(raw, "error")
		}
		if text == "" {
			text = agent.GetString(agent.GetMap(raw, "error"), "message")
		}
		if text != "" {
			ev.Kind = agent.EventText
			ev.Text = text
			ev.IsError = true
		}
		return []*agent.Event{ev}

	case typeResult:
		stats := agent.GetMap(raw, "stats")
		ev := agent.NewEvent("")
		ev.Kind = agent.EventResult
		ev.TokensIn = agent.GetInt(stats, "input_tokens")
		ev.TokensOut = agent.GetInt(stats, "output_tokens")
		ev.TokensCached = agent.GetInt(stats, "cached")
		ev.DurationMs = agent.GetInt(stats, "duration_ms")
		return []*agent.Event{ev}

	case typeToolResult:
	}
	return []*agent.Event{agent.NewEvent("")}
}

// parseToolUse maps gemini tool names onto the shared tool vocabulary so
// status labels and file tracking work the same for every provider
func (a *Adapter) parseToolUse(raw map[string]interface{}) *agent.Event {
	name := agent.GetString(raw, "tool_name")
	params := agent.GetMap(raw, "parameters")

	ev := agent.NewEvent("")
	ev.Kind = agent.EventToolUse
	ev.ToolName = name
	ev.ToolInput = params

	filePath := agent.ResolveToolPath(agent.GetString(params, "file_path"), a.cfg.WorkDir)

	switch name {
	case "write_file":
		if filePath != "" {
			ev.ToolName = "Write"
			ev.FilePaths = []string{filePath}
			ev.FileOp = agent.FileOpWrite
			ev.FileContent = agent.GetString(params, "content")
		}
	case "replace", "edit_file":
		if filePath != "" {
			ev.ToolName = "Edit"
			ev.FilePaths = []string{filePath}
			ev.FileOp = agent.FileOpEdit
			ev.IsEditDeferred = true
		}
	case "read_file":
		if filePath != "" {
			ev.ToolName = "Read"
			ev.FilePaths = []string{filePath}
		}
	case "run_shell_command", "shell", "execute_command":
		command := agent.GetString(params, "command")
		ev.ToolName = "Bash"
		ev.ToolInput = map[string]interface{}{"command": command}
		if deleted := agent.ParseDeletedPaths(command, a.cfg.WorkDir); len(deleted) > 0 {
			ev.FilePaths = deleted
			ev.FileOp = agent.FileOpDelete
		}
	}
	return ev
}
