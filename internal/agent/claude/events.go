package claude

// Record types in the stream-json output
const (
	typeAssistant = "assistant"
	typeResult    = "result"
	typeSystem    = "system"
)

// Content block types inside assistant messages
const (
	blockText    = "text"
	blockToolUse = "tool_use"
)

// Tools with side effects the engine tracks
const (
	toolAskUser   = "AskUserQuestion"
	toolWrite     = "Write"
	toolEdit      = "Edit"
	toolMultiEdit = "MultiEdit"
	toolBash      = "Bash"
	toolRead      = "Read"
)
