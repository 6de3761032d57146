package codex

import (
	"strings"

	"github.com/xmin-02/sumone/internal/agent"
)

// ParseEvent translates one codex JSONL record into events
func (a *Adapter) ParseEvent(raw map[string]interface{}) []*agent.Event {
	switch agent.GetString(raw, "type") {
	case typeThreadStarted:
		return []*agent.Event{agent.NewEvent(agent.GetString(raw, "thread_id"))}

	case typeItemCompleted:
		return a.parseItem(agent.GetMap(raw, "item"))

	case typeTurnCompleted:
		usage := agent.GetMap(raw, "usage")
		ev := agent.NewEvent("")
		ev.Kind = agent.EventResult
		ev.TokensIn = agent.GetInt(usage, "input_tokens")
		ev.TokensOut = agent.GetInt(usage, "output_tokens")
		ev.TokensCached = agent.GetInt(usage, "cached_input_tokens")
		return []*agent.Event{ev}

	case typeError:
		return []*agent.Event{textEvent(agent.GetString(raw, "message"))}
	}

	// turn.started, item.started and friends
	return []*agent.Event{agent.NewEvent("")}
}

func (a *Adapter) parseItem(item map[string]interface{}) []*agent.Event {
	switch agent.GetString(item, "type") {
	case itemAgentMessage:
		return []*agent.Event{textEvent(strings.TrimSpace(agent.GetString(item, "text")))}

	case itemCommandExecution:
		command := agent.GetString(item, "command")
		ev := agent.NewEvent("")
		ev.Kind = agent.EventToolUse
		ev.ToolName = toolShell
		ev.ToolInput = map[string]interface{}{"command": command}
		if deleted := agent.ParseDeletedPaths(command, a.cfg.WorkDir); len(deleted) > 0 {
			ev.FilePaths = deleted
			ev.FileOp = agent.FileOpDelete
		}
		return []*agent.Event{ev}

	case itemFileChange:
		return a.parseFileChange(item)

	case itemError:
		return []*agent.Event{textEvent(agent.GetString(item, "message"))}

	case itemReasoning:
	}
	return []*agent.Event{agent.NewEvent("")}
}

// parseFileChange fans a patch out into one tool event per change kind.
// Added and updated files are read back from disk at the next checkpoint.
func (a *Adapter) parseFileChange(item map[string]interface{}) []*agent.Event {
	changes, _ := agent.GetSlice(item, "changes")

	var added, updated, deleted []string
	for _, c := range changes {
		change, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		p := agent.ResolveToolPath(agent.GetString(change, "path"), a.cfg.WorkDir)
		if p == "" {
			continue
		}
		switch agent.GetString(change, "kind") {
		case changeAdd:
			added = append(added, p)
		case changeDelete:
			deleted = append(deleted, p)
		case changeUpdate:
			updated = append(updated, p)
		}
	}

	var events []*agent.Event
	if len(added) > 0 {
		events = append(events, a.patchEvent(added, agent.FileOpWrite, true))
	}
	if len(updated) > 0 {
		events = append(events, a.patchEvent(updated, agent.FileOpEdit, true))
	}
	if len(deleted) > 0 {
		events = append(events, a.patchEvent(deleted, agent.FileOpDelete, false))
	}
	if len(events) == 0 {
		return []*agent.Event{agent.NewEvent("")}
	}
	return events
}

func (a *Adapter) patchEvent(paths []string, op agent.FileOp, deferred bool) *agent.Event {
	ev := agent.NewEvent("")
	ev.Kind = agent.EventToolUse
	ev.ToolName = toolPatch
	ev.ToolInput = map[string]interface{}{"file_path": paths[0]}
	ev.FilePaths = paths
	ev.FileOp = op
	ev.IsEditDeferred = deferred
	return ev
}

func textEvent(text string) *agent.Event {
	ev := agent.NewEvent("")
	if text != "" {
		ev.Kind = agent.EventText
		ev.Text = text
	}
	return ev
}
