package claude

import (
	"strings"

	"github.com/xmin-02/sumone/internal/agent"
)

// ParseEvent translates one stream-json record into events
func (a *Adapter) ParseEvent(raw map[string]interface{}) []*agent.Event {
	sid := agent.GetString(raw, "session_id")

	switch agent.GetString(raw, "type") {
	case typeAssistant:
		return a.parseAssistant(raw, sid)
	case typeResult:
		return []*agent.Event{parseResult(raw, sid)}
	case typeSystem:
		// init carries the session id; other subtypes are informational
		return []*agent.Event{agent.NewEvent(sid)}
	}
	return []*agent.Event{agent.NewEvent(sid)}
}

// parseAssistant handles one assistant message. Text blocks are joined and
// attached to the first tool event, or emitted alone when there is no tool.
func (a *Adapter) parseAssistant(raw map[string]interface{}, sid string) []*agent.Event {
	content, ok := agent.GetSlice(agent.GetMap(raw, "message"), "content")
	if !ok {
		return []*agent.Event{agent.NewEvent(sid)}
	}

	var (
		texts     []string
		tools     []*agent.Event
		questions []agent.Question
	)

	for _, item := range content {
		block, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		switch agent.GetString(block, "type") {
		case blockText:
			if t := strings.TrimSpace(agent.GetString(block, "text")); t != "" {
				texts = append(texts, t)
			}
		case blockToolUse:
			name := agent.GetString(block, "name")
			input := agent.GetMap(block, "input")
			if name == toolAskUser {
				if qs, _ := agent.GetSlice(input, "questions"); len(qs) > 0 {
					questions = agent.Questions(qs)
				}
			}
			if len(questions) > 0 {
				break
			}
			tools = append(tools, a.toolEvent(name, input, sid))
		}
		if len(questions) > 0 {
			break
		}
	}

	joined := strings.Join(texts, "\n\n")

	if len(questions) > 0 {
		ev := agent.NewEvent(sid)
		ev.Questions = questions
		if joined != "" {
			ev.Kind = agent.EventText
			ev.Text = joined
		}
		return []*agent.Event{ev}
	}

	if len(tools) > 0 {
		tools[0].Text = joined
		return tools
	}
	if joined != "" {
		ev := agent.NewEvent(sid)
		ev.Kind = agent.EventText
		ev.Text = joined
		return []*agent.Event{ev}
	}
	return []*agent.Event{agent.NewEvent(sid)}
}

func (a *Adapter) toolEvent(name string, input map[string]interface{}, sid string) *agent.Event {
	ev := agent.NewEvent(sid)
	ev.Kind = agent.EventToolUse
	ev.ToolName = name
	ev.ToolInput = input

	switch name {
	case toolWrite:
		if fp := agent.GetString(input, "file_path"); fp != "" {
			ev.FilePaths = []string{agent.ResolveToolPath(fp, a.cfg.WorkDir)}
			ev.FileOp = agent.FileOpWrite
			ev.FileContent = agent.GetString(input, "content")
		}
	case toolEdit, toolMultiEdit:
		if fp := agent.GetString(input, "file_path"); fp != "" {
			ev.FilePaths = []string{agent.ResolveToolPath(fp, a.cfg.WorkDir)}
			ev.FileOp = agent.FileOpEdit
			ev.IsEditDeferred = true
		}
	case toolBash:
		if deleted := agent.ParseDeletedPaths(agent.GetString(input, "command"), a.cfg.WorkDir); len(deleted) > 0 {
			ev.FilePaths = deleted
			ev.FileOp = agent.FileOpDelete
		}
	case toolRead:
		// Path only feeds the status label; reads are not recorded
		if fp := agent.GetString(input, "file_path"); fp != "" {
			ev.FilePaths = []string{agent.ResolveToolPath(fp, a.cfg.WorkDir)}
		}
	}
	return ev
}

func parseResult(raw map[string]interface{}, sid string) *agent.Event {
	errs := agent.GetStringSlice(raw, "errors")
	text := agent.GetString(raw, "result")
	if text == "" {
		var parts []string
		for _, e := range errs {
			if strings.TrimSpace(e) != "" {
				parts = append(parts, e)
			}
		}
		text = strings.Join(parts, "\n")
	}

	usage := agent.GetMap(raw, "usage")
	cached := agent.GetInt(usage, "cache_read_input_tokens")

	ev := agent.NewEvent(sid)
	ev.Kind = agent.EventResult
	ev.Text = text
	ev.CostUSD = agent.GetFloat(raw, "total_cost_usd")
	ev.DurationMs = agent.GetInt(raw, "duration_ms")
	ev.NumTurns = agent.GetInt(raw, "num_turns")
	ev.TokensIn = agent.GetInt(usage, "input_tokens") + cached
	ev.TokensOut = agent.GetInt(usage, "output_tokens")
	ev.TokensCached = cached
	ev.IsError = agent.GetBool(raw, "is_error")
	ev.Errors = errs
	return ev
}
