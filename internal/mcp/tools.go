package mcp

// registerAllTools registers all MCP tools with the registry
func (s *Server) registerAllTools(r *Registry) {
	Register(r, ToolDef{
		Name: "agent_run",
		Description: `Send a request to the active coding agent and wait for its answer.

Runs the Claude, Codex or Gemini CLI in the configured work directory and returns
the final output, the session id to continue with, and any questions the agent
asked instead of finishing.

Key parameters:
  message      — The request text (required)
  provider     — claude, codex or gemini; switches the active provider first
  model        — Model alias or id (e.g. "opus", "codex-mini", "gemini-2.5-pro")
  session_id   — Continue a specific session instead of the bound one
  new_session  — Start a fresh conversation

Intermediate text and tool status are pushed as log notifications while the run
is in flight. Only one run executes at a time.`,
	}, s.handleRun)

	Register(r, ToolDef{
		Name: "agent",
		Description: `Inspect and control the agent bridge.

Actions:
  status       — Active provider, model, session, busy flag and cost totals.
  switch       — Make provider the active one, restoring its last session.
  model        — Select a model by alias or id; switches provider when needed.
  new_session  — Forget the active provider's session binding.
  cancel       — Stop the running agent. graceful=true sends a termination request.
  events       — Progress events of recent runs. Pass since=<last_index> to resume.`,
	}, s.handleAgent)

	Register(r, ToolDef{
		Name: "session",
		Description: `Browse stored conversation summaries.

Actions:
  list    — Most recent sessions first. Optional limit (default 20).
  get     — Exchanges of one session by session_id.
  delete  — Delete a session summary by session_id.`,
	}, s.handleSession)

	Register(r, ToolDef{
		Name: "usage",
		Description: `Summarize token usage and cost from the token log.

period is one of session, day, month, year or total (default: day). The session
period uses session_id, or the active session when omitted.`,
		ReadOnly: true,
	}, s.handleUsage)

	Register(r, ToolDef{
		Name: "files",
		Description: `List files modified by agent runs.

Actions:
  recent  — The latest modifications. Optional limit (default 20).
  run     — Modifications made during run_id.
  clear   — Forget all recorded modifications and snapshots.`,
	}, s.handleFiles)
}
