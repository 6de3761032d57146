package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/xmin-02/sumone/internal/tokens"
)

// UsageParams are the usage tool arguments
type UsageParams struct {
	Period    string `json:"period,omitempty" jsonschema:"session, day, month, year or total"`
	SessionID string `json:"session_id,omitempty" jsonschema:"session for the session period"`
}

// UsageTotals mirrors tokens.Totals for JSON output
type UsageTotals struct {
	Runs   int     `json:"runs"`
	In     int     `json:"tokens_in"`
	Out    int     `json:"tokens_out"`
	Cached int     `json:"tokens_cached"`
	Cost   float64 `json:"cost_usd"`
}

func toUsageTotals(t tokens.Totals) UsageTotals {
	return UsageTotals{Runs: t.Runs, In: t.In, Out: t.Out, Cached: t.Cached, Cost: t.Cost}
}

func (s *Server) handleUsage(ctx context.Context, request *mcp.CallToolRequest, params *UsageParams) (*mcp.CallToolResult, any, error) {
	name := params.Period
	if name == "" {
		name = string(tokens.PeriodDay)
	}
	period, err := tokens.ParsePeriod(name)
	if err != nil {
		return nil, nil, err
	}

	total, byProvider, err := s.bridge.Usage(period, params.SessionID)
	if err != nil {
		return nil, nil, err
	}

	providers := make(map[string]UsageTotals, len(byProvider))
	for name, t := range byProvider {
		providers[name] = toUsageTotals(t)
	}
	return nil, map[string]any{
		"period":    string(period),
		"total":     toUsageTotals(total),
		"providers": providers,
	}, nil
}
