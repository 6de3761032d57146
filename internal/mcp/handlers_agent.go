package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/xmin-02/sumone/internal/agent"
	"github.com/xmin-02/sumone/internal/audit"
	"github.com/xmin-02/sumone/internal/bridge"
	"github.com/xmin-02/sumone/internal/logger"
	"github.com/xmin-02/sumone/internal/validation"
)

// RunParams are the agent_run arguments
type RunParams struct {
	Message    string `json:"message" jsonschema:"the request to send to the agent"`
	Provider   string `json:"provider,omitempty" jsonschema:"claude, codex or gemini"`
	Model      string `json:"model,omitempty" jsonschema:"model alias or id"`
	SessionID  string `json:"session_id,omitempty" jsonschema:"session to continue instead of the bound one"`
	NewSession bool   `json:"new_session,omitempty" jsonschema:"start a fresh conversation"`
}

// RunOutput is the agent_run result
type RunOutput struct {
	Output    string           `json:"output"`
	SessionID string           `json:"session_id,omitempty"`
	Provider  string           `json:"provider"`
	Questions []agent.Question `json:"questions,omitempty"`
}

func (s *Server) handleRun(ctx context.Context, request *mcp.CallToolRequest, params *RunParams) (*mcp.CallToolResult, any, error) {
	if params.Message == "" {
		return nil, nil, fmt.Errorf("message is required")
	}
	if err := validation.ValidateOptionalSessionID(params.SessionID); err != nil {
		return nil, nil, err
	}

	ctx = context.WithValue(ctx, logger.ContextKeyProvider, params.Provider)
	logger.InfoContext(ctx, "agent_run", "chars", len(params.Message), "new_session", params.NewSession)

	res, err := s.bridge.Ask(ctx, bridge.AskRequest{
		Message:    params.Message,
		Provider:   params.Provider,
		Model:      params.Model,
		SessionID:  params.SessionID,
		NewSession: params.NewSession,
	}, s.notifier(request))
	if err != nil {
		if errors.Is(err, bridge.ErrBusy) {
			return nil, nil, fmt.Errorf("another run is in progress; cancel it or retry later")
		}
		return nil, nil, err
	}

	return nil, RunOutput{
		Output:    res.Output,
		SessionID: res.SessionID,
		Provider:  s.bridge.State.Provider(),
		Questions: res.Questions,
	}, nil
}

// notifier records intermediate text, status and cost in the event log and
// forwards each event to the calling client as a log message. Sessions are
// nil when tools are called outside a transport; events are still recorded.
// Each call gets its own sink, so the registry rebuilds the engine per client.
func (s *Server) notifier(request *mcp.CallToolRequest) *agent.Callbacks {
	var session *mcp.ServerSession
	if request != nil {
		session = request.Session
	}
	emit := func(ev RunEvent) {
		ev = s.events.Append(ev)
		if session == nil {
			return
		}
		err := session.Log(context.Background(), &mcp.LoggingMessageParams{
			Logger: "sumone.agent",
			Level:  "info",
			Data:   ev,
		})
		if err != nil {
			logger.Error("Failed to push event to MCP client: %v", err)
		}
	}

	return &agent.Callbacks{
		OnText: func(text string) {
			emit(RunEvent{Type: "text", Text: text})
		},
		OnStatus: func(label string, elapsed time.Duration) {
			emit(RunEvent{Type: "status", Label: label, ElapsedSeconds: int(elapsed.Seconds())})
		},
		OnCost: func(ev *agent.Event) {
			emit(RunEvent{Type: "cost", CostUSD: ev.CostUSD, TokensIn: ev.TokensIn, TokensOut: ev.TokensOut})
		},
	}
}

// EventsOutput is the agent events result
type EventsOutput struct {
	Events    []RunEvent `json:"events"`
	LastIndex int        `json:"last_index"`
	Dropped   int64      `json:"dropped"`
}

// AgentParams are the agent tool arguments
type AgentParams struct {
	Action   string `json:"action" jsonschema:"status, switch, model, new_session, cancel or events"`
	Provider string `json:"provider,omitempty" jsonschema:"provider for switch"`
	Model    string `json:"model,omitempty" jsonschema:"model alias or id for model"`
	Graceful bool   `json:"graceful,omitempty" jsonschema:"cancel with a termination request instead of a kill"`
	Since    *int   `json:"since,omitempty" jsonschema:"for events: return events after this index; omit for all buffered events"`
}

var agentActions = []string{"status", "switch", "model", "new_session", "cancel", "events"}

// StatusOutput describes the bridge state
type StatusOutput struct {
	Provider  string                   `json:"provider"`
	Model     string                   `json:"model,omitempty"`
	SessionID string                   `json:"session_id,omitempty"`
	Busy      bool                     `json:"busy"`
	Running   bool                     `json:"running"`
	Queued    int                      `json:"queued"`
	TotalCost float64                  `json:"total_cost"`
	LastCost  float64                  `json:"last_cost"`
	Providers map[string]ProviderBrief `json:"providers"`
}

// ProviderBrief is one provider's binding and usage
type ProviderBrief struct {
	Label     string  `json:"label"`
	SessionID string  `json:"session_id,omitempty"`
	Default   string  `json:"default_model"`
	Cost      float64 `json:"cost"`
	TokensIn  int     `json:"tokens_in"`
	TokensOut int     `json:"tokens_out"`
}

func (s *Server) handleAgent(ctx context.Context, request *mcp.CallToolRequest, params *AgentParams) (*mcp.CallToolResult, any, error) {
	switch params.Action {
	case "":
		return nil, nil, missingActionError("agent", agentActions)
	case "status":
		return nil, s.status(), nil
	case "switch":
		if params.Provider == "" {
			return nil, nil, fmt.Errorf("provider is required for switch")
		}
		switched, err := s.bridge.SwitchProvider(params.Provider)
		audit.Record(audit.OpProviderSwitch, params.Provider, "", requestID(ctx), err)
		if err != nil {
			return nil, nil, err
		}
		return nil, map[string]any{"provider": params.Provider, "switched": switched, "session_id": s.bridge.State.CurrentSessionID()}, nil
	case "model":
		if params.Model == "" {
			return nil, nil, fmt.Errorf("model is required for model")
		}
		modelID, provider, err := s.bridge.SelectModel(params.Model)
		audit.Record(audit.OpModelSelect, provider, "", requestID(ctx), err)
		if err != nil {
			return nil, nil, err
		}
		return nil, map[string]any{"model": modelID, "provider": provider}, nil
	case "new_session":
		previous := s.bridge.State.CurrentSessionID()
		s.bridge.NewSession()
		audit.Record(audit.OpSessionNew, s.bridge.State.Provider(), previous, requestID(ctx), nil)
		return nil, map[string]any{"provider": s.bridge.State.Provider(), "session_id": ""}, nil
	case "cancel":
		cancelled := s.bridge.Cancel(params.Graceful)
		audit.Record(audit.OpRunCancel, s.bridge.State.Provider(), s.bridge.State.CurrentSessionID(), requestID(ctx), nil)
		return nil, map[string]any{"cancelled": cancelled}, nil
	case "events":
		since := -1
		if params.Since != nil {
			since = *params.Since
		}
		events, err := s.events.After(since)
		if err != nil {
			return nil, nil, err
		}
		return nil, EventsOutput{Events: events, LastIndex: s.events.LastIndex(), Dropped: s.events.Dropped()}, nil
	default:
		return nil, nil, actionError("agent", params.Action, agentActions)
	}
}

func (s *Server) status() StatusOutput {
	snap := s.bridge.State.Snapshot()
	cfg := s.bridge.Config()

	out := StatusOutput{
		Provider:  snap.Provider,
		Model:     snap.Model,
		SessionID: snap.SessionID,
		Busy:      snap.Busy,
		Running:   snap.Running,
		Queued:    snap.Queued,
		TotalCost: snap.TotalCost,
		LastCost:  snap.LastCost,
		Providers: make(map[string]ProviderBrief),
	}
	for _, name := range cfg.ProviderNames() {
		brief := ProviderBrief{
			Label:     cfg.Providers[name].Label,
			SessionID: snap.ProviderSessions[name],
			Default:   cfg.DefaultModel(name),
		}
		if name == snap.Provider {
			brief.SessionID = snap.SessionID
		}
		if stats, ok := snap.ProviderStats[name]; ok {
			brief.Cost = stats.Cost
			brief.TokensIn = stats.TokensIn
			brief.TokensOut = stats.TokensOut
		}
		out.Providers[name] = brief
	}
	return out
}
