package codex

// Top-level record types in `codex exec --json` output
const (
	typeThreadStarted = "thread.started"
	typeItemCompleted = "item.completed"
	typeTurnCompleted = "turn.completed"
	typeError         = "error"
)

// Item types carried by item.completed
const (
	itemAgentMessage     = "agent_message"
	itemCommandExecution = "command_execution"
	itemFileChange       = "file_change"
	itemReasoning        = "reasoning"
	itemError            = "error"
)

// Change kinds inside a file_change item
const (
	changeAdd    = "add"
	changeDelete = "delete"
	changeUpdate = "update"
)

// toolShell is the normalized tool name for command executions
const toolShell = "shell"

// toolPatch is the normalized tool name for file changes
const toolPatch = "apply_patch"
