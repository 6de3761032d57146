package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/xmin-02/sumone/internal/audit"
)

// FilesParams are the files tool arguments
type FilesParams struct {
	Action string `json:"action" jsonschema:"recent, run or clear"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum entries for recent"`
	RunID  int64  `json:"run_id,omitempty" jsonschema:"run for the run action"`
}

var filesActions = []string{"recent", "run", "clear"}

func (s *Server) handleFiles(ctx context.Context, request *mcp.CallToolRequest, params *FilesParams) (*mcp.CallToolResult, any, error) {
	switch params.Action {
	case "":
		return nil, nil, missingActionError("files", filesActions)
	case "recent":
		limit := params.Limit
		if limit <= 0 {
			limit = defaultListLimit
		}
		entries, err := s.bridge.Files.Recent(limit)
		if err != nil {
			return nil, nil, err
		}
		return nil, map[string]any{"files": entries, "total": s.bridge.Files.Count()}, nil
	case "run":
		if params.RunID <= 0 {
			return nil, nil, fmt.Errorf("run_id is required for run")
		}
		entries, err := s.bridge.Files.ListRun(params.RunID)
		if err != nil {
			return nil, nil, err
		}
		return nil, map[string]any{"run_id": params.RunID, "files": entries}, nil
	case "clear":
		err := s.bridge.Files.Clear()
		audit.Record(audit.OpFilesClear, "", "", requestID(ctx), err)
		if err != nil {
			return nil, nil, err
		}
		return nil, map[string]any{"cleared": true}, nil
	default:
		return nil, nil, actionError("files", params.Action, filesActions)
	}
}
