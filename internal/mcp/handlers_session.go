package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/xmin-02/sumone/internal/audit"
	"github.com/xmin-02/sumone/internal/validation"
)

// SessionParams are the session tool arguments
type SessionParams struct {
	Action    string `json:"action" jsonschema:"list, get or delete"`
	SessionID string `json:"session_id,omitempty" jsonschema:"session for get and delete"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum sessions to list"`
}

var sessionActions = []string{"list", "get", "delete"}

const defaultListLimit = 20

// SessionBrief is one row of a session listing
type SessionBrief struct {
	SessionID string `json:"session_id"`
	Provider  string `json:"provider"`
	Model     string `json:"model,omitempty"`
	Exchanges int    `json:"exchanges"`
	Preview   string `json:"preview"`
	Modified  string `json:"modified"`
	Active    bool   `json:"active,omitempty"`
}

func (s *Server) handleSession(ctx context.Context, request *mcp.CallToolRequest, params *SessionParams) (*mcp.CallToolResult, any, error) {
	switch params.Action {
	case "":
		return nil, nil, missingActionError("session", sessionActions)
	case "list":
		return s.sessionList(params)
	case "get":
		return s.sessionGet(params)
	case "delete":
		if params.SessionID == "" {
			return nil, nil, fmt.Errorf("session_id is required for delete")
		}
		err := s.bridge.Sessions.Delete(params.SessionID)
		audit.Record(audit.OpSessionDelete, "", params.SessionID, requestID(ctx), err)
		if err != nil {
			return nil, nil, err
		}
		if s.bridge.State.CurrentSessionID() == params.SessionID {
			s.bridge.NewSession()
		}
		return nil, map[string]any{"deleted": params.SessionID}, nil
	default:
		return nil, nil, actionError("session", params.Action, sessionActions)
	}
}

func (s *Server) sessionList(params *SessionParams) (*mcp.CallToolResult, any, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	infos, err := s.bridge.Sessions.List(limit)
	if err != nil {
		return nil, nil, err
	}

	current := s.bridge.State.CurrentSessionID()
	out := make([]SessionBrief, 0, len(infos))
	for _, info := range infos {
		out = append(out, SessionBrief{
			SessionID: info.ID,
			Provider:  info.Provider,
			Model:     info.Model,
			Exchanges: info.Exchanges,
			Preview:   info.Preview,
			Modified:  info.Modified.Format(time.RFC3339),
			Active:    info.ID == current,
		})
	}
	return nil, map[string]any{"sessions": out}, nil
}

func (s *Server) sessionGet(params *SessionParams) (*mcp.CallToolResult, any, error) {
	id := params.SessionID
	if id == "" {
		id = s.bridge.State.CurrentSessionID()
	}
	if id == "" {
		return nil, nil, fmt.Errorf("session_id is required; no session is active")
	}
	if err := validation.ValidateSessionID(id); err != nil {
		return nil, nil, err
	}
	summary, err := s.bridge.Sessions.Load(id)
	if err != nil {
		return nil, nil, err
	}
	if summary == nil {
		return nil, nil, fmt.Errorf("session %s not found", id)
	}
	return nil, map[string]any{"session_id": id, "summary": summary}, nil
}
